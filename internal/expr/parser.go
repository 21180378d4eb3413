package expr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jn-toolkit/jn/internal/jnerr"
	"github.com/jn-toolkit/jn/internal/record"
)

// MaxDepth is the default parser recursion ceiling.
const MaxDepth = 100

var stringFnNames = map[string]bool{
	"split": true, "join": true, "startswith": true, "endswith": true,
	"contains": true, "ltrimstr": true, "rtrimstr": true,
	"ascii_downcase": true, "ascii_upcase": true, "upcase": true, "downcase": true,
	"trim": true, "ltrim": true, "rtrim": true, "slugify": true,
	"words": true, "lines": true, "chars": true, "test": true,
}

var byFuncNames = map[string]bool{
	"sort_by": true, "group_by": true, "unique_by": true, "min_by": true, "max_by": true,
}

// Compile parses src into a Program, applying the unsupported-feature
// gate first. Never panics; every failure is a returned error.
func Compile(src string) (*Program, error) {
	if err := gate(src); err != nil {
		return nil, err
	}
	toks, lexErr := lex(src)
	if lexErr != nil {
		pe, _ := lexErr.(*posError)
		pos := 0
		msg := lexErr.Error()
		if pe != nil {
			pos = pe.pos
		}
		return nil, jnerr.NewExprParseError(src, pos, msg)
	}
	p := &parser{toks: toks, src: src, maxDepth: MaxDepth, ar: newArena()}
	root, err := p.parsePipe()
	if err != nil {
		return nil, err
	}
	if !p.check(tokEOF) {
		return nil, p.errf("unexpected trailing input")
	}
	return &Program{Root: root, Src: src}, nil
}

type parser struct {
	toks     []token
	pos      int
	src      string
	depth    int
	maxDepth int
	ar       *arena
}

func (p *parser) errf(format string, args ...any) error {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return jnerr.NewExprParseError(p.src, p.peek().pos, msg)
}

func (p *parser) enter() error {
	p.depth++
	if p.depth > p.maxDepth {
		return jnerr.NewDepthExceededError(p.maxDepth)
	}
	return nil
}

func (p *parser) leave() { p.depth-- }

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) check(k tokKind) bool { return p.peek().kind == k }

func (p *parser) accept(k tokKind) (token, bool) {
	if p.check(k) {
		return p.next(), true
	}
	return token{}, false
}

func (p *parser) expect(k tokKind, what string) (token, error) {
	if t, ok := p.accept(k); ok {
		return t, nil
	}
	return token{}, p.errf("expected %s", what)
}

// parsePipe is the lowest-precedence level: a | b.
func (p *parser) parsePipe() (Node, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	left, err := p.parseComma()
	if err != nil {
		return nil, err
	}
	for p.check(tokPipe) {
		p.next()
		right, err := p.parseComma()
		if err != nil {
			return nil, err
		}
		left = p.ar.node(Pipe{Left: left, Right: right})
	}
	return left, nil
}

// parseComma: a , b concatenates both results (jq generator semantics),
// used both as the top-level sequencing operator and inside array/object
// construction.
func (p *parser) parseComma() (Node, error) {
	left, err := p.parseAlt()
	if err != nil {
		return nil, err
	}
	for p.check(tokComma) {
		p.next()
		right, err := p.parseAlt()
		if err != nil {
			return nil, err
		}
		left = p.ar.node(Comma{Left: left, Right: right})
	}
	return left, nil
}

func (p *parser) parseAlt() (Node, error) {
	left, err := p.parseAddSub()
	if err != nil {
		return nil, err
	}
	for p.check(tokAlt) {
		p.next()
		right, err := p.parseAddSub()
		if err != nil {
			return nil, err
		}
		left = p.ar.node(Alt{Left: left, Right: right})
	}
	return left, nil
}

func (p *parser) parseAddSub() (Node, error) {
	left, err := p.parseMulDiv()
	if err != nil {
		return nil, err
	}
	for p.check(tokPlus) || p.check(tokMinus) {
		opTok := p.next()
		op := byte('+')
		if opTok.kind == tokMinus {
			op = '-'
		}
		right, err := p.parseMulDiv()
		if err != nil {
			return nil, err
		}
		left = p.ar.node(Arith{Op: op, Left: left, Right: right})
	}
	return left, nil
}

func (p *parser) parseMulDiv() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.check(tokStar) || p.check(tokSlash) || p.check(tokPct) {
		opTok := p.next()
		var op byte
		switch opTok.kind {
		case tokStar:
			op = '*'
		case tokSlash:
			op = '/'
		case tokPct:
			op = '%'
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = p.ar.node(Arith{Op: op, Left: left, Right: right})
	}
	return left, nil
}

func (p *parser) parseUnary() (Node, error) {
	if p.check(tokMinus) {
		p.next()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return p.ar.node(Neg{X: x}), nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Node, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	switch {
	case p.check(tokDot):
		return p.parsePath()
	case p.check(tokNumber):
		t := p.next()
		return p.ar.node(Literal{Value: numberRecord(t.text)}), nil
	case p.check(tokString):
		t := p.next()
		return p.ar.node(Literal{Value: record.String(t.text)}), nil
	case p.check(tokTrue):
		p.next()
		return p.ar.node(Literal{Value: record.Bool(true)}), nil
	case p.check(tokFalse):
		p.next()
		return p.ar.node(Literal{Value: record.Bool(false)}), nil
	case p.check(tokNull):
		p.next()
		return p.ar.node(Literal{Value: record.Null}), nil
	case p.check(tokLParen):
		p.next()
		inner, err := p.parsePipe()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
		return inner, nil
	case p.check(tokLBrace):
		return p.parseObjectLit()
	case p.check(tokLBracket):
		return p.parseArrayLit()
	case p.check(tokIf):
		return p.parseIf()
	case p.check(tokIdent):
		return p.parseCallLike()
	default:
		return nil, p.errf("unexpected token")
	}
}

func numberRecord(text string) record.Record {
	if strings.ContainsAny(text, ".eE") {
		f, _ := strconv.ParseFloat(text, 64)
		return record.Float(f)
	}
	i, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		f, _ := strconv.ParseFloat(text, 64)
		return record.Float(f)
	}
	return record.Int(i)
}

// parseSignedInt parses an (optionally negative) integer array index,
// preserving MIN_INT64 exactly via unsigned-magnitude parsing + bit-level
// negation rather than float round-tripping.
func (p *parser) parseSignedInt() (int64, error) {
	neg := false
	if _, ok := p.accept(tokMinus); ok {
		neg = true
	}
	t, err := p.expect(tokNumber, "integer index")
	if err != nil {
		return 0, err
	}
	mag, perr := strconv.ParseUint(t.text, 10, 64)
	if perr != nil {
		return 0, p.errf("invalid integer index %q", t.text)
	}
	v := int64(mag)
	if neg {
		v = -v
	}
	return v, nil
}

func (p *parser) parsePath() (Node, error) {
	p.next() // consume '.'
	var steps []Step

	if p.check(tokIdent) {
		steps = append(steps, p.parseFieldStep())
	} else if p.check(tokString) {
		t := p.next()
		steps = append(steps, p.markQuestion(Field{Name: t.text}).(Field))
	}

	for {
		switch {
		case p.check(tokDot):
			p.next()
			if !p.check(tokIdent) {
				return nil, p.errf("expected field name after '.'")
			}
			steps = append(steps, p.parseFieldStep())
		case p.check(tokLBracket):
			p.next()
			step, err := p.parseBracketStep()
			if err != nil {
				return nil, err
			}
			if _, ok := p.accept(tokQuestion); ok {
				step = markStepOptional(step)
			}
			steps = append(steps, step)
		default:
			return p.ar.node(Path{Steps: steps}), nil
		}
	}
}

func (p *parser) parseFieldStep() Step {
	t := p.next()
	opt := false
	if _, ok := p.accept(tokQuestion); ok {
		opt = true
	}
	return Field{Name: t.text, Optional: opt}
}

func (p *parser) markQuestion(f Field) Step {
	if _, ok := p.accept(tokQuestion); ok {
		f.Optional = true
	}
	return f
}

func markStepOptional(s Step) Step {
	switch v := s.(type) {
	case Field:
		v.Optional = true
		return v
	case IndexStep:
		v.Optional = true
		return v
	case SliceStep:
		v.Optional = true
		return v
	case Iterate:
		v.Optional = true
		return v
	default:
		return s
	}
}

func (p *parser) parseBracketStep() (Step, error) {
	if p.check(tokRBracket) {
		p.next()
		return Iterate{}, nil
	}

	var lo *int64
	if !p.check(tokColon) {
		v, err := p.parseSignedInt()
		if err != nil {
			return nil, err
		}
		lo = &v
	}

	if p.check(tokColon) {
		p.next()
		var hi *int64
		if !p.check(tokRBracket) {
			v, err := p.parseSignedInt()
			if err != nil {
				return nil, err
			}
			hi = &v
		}
		if _, err := p.expect(tokRBracket, "']'"); err != nil {
			return nil, err
		}
		return SliceStep{Lo: lo, Hi: hi}, nil
	}

	if _, err := p.expect(tokRBracket, "']'"); err != nil {
		return nil, err
	}
	if lo == nil {
		return nil, p.errf("empty index")
	}
	return IndexStep{Idx: *lo}, nil
}

func (p *parser) parseObjectLit() (Node, error) {
	p.next() // '{'
	var entries []ObjEntry
	if !p.check(tokRBrace) {
		for {
			entry, err := p.parseObjEntry()
			if err != nil {
				return nil, err
			}
			entries = append(entries, entry)
			if _, ok := p.accept(tokComma); ok {
				continue
			}
			break
		}
	}
	if _, err := p.expect(tokRBrace, "'}'"); err != nil {
		return nil, err
	}
	return p.ar.node(ObjectLit{Entries: entries}), nil
}

func (p *parser) parseObjEntry() (ObjEntry, error) {
	switch {
	case p.check(tokString):
		key := p.next().text
		if _, ok := p.accept(tokColon); ok {
			val, err := p.parseAlt()
			if err != nil {
				return ObjEntry{}, err
			}
			return ObjEntry{KeyLit: key, Value: val}, nil
		}
		return ObjEntry{KeyLit: key, Value: p.ar.node(Path{Steps: []Step{Field{Name: key}}})}, nil
	case p.check(tokIdent):
		key := p.next().text
		if _, ok := p.accept(tokColon); ok {
			val, err := p.parseAlt()
			if err != nil {
				return ObjEntry{}, err
			}
			return ObjEntry{KeyLit: key, Value: val}, nil
		}
		return ObjEntry{KeyLit: key, Value: p.ar.node(Path{Steps: []Step{Field{Name: key}}})}, nil
	case p.check(tokLParen):
		p.next()
		keyExpr, err := p.parsePipe()
		if err != nil {
			return ObjEntry{}, err
		}
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return ObjEntry{}, err
		}
		if _, err := p.expect(tokColon, "':'"); err != nil {
			return ObjEntry{}, err
		}
		val, err := p.parseAlt()
		if err != nil {
			return ObjEntry{}, err
		}
		return ObjEntry{KeyExpr: keyExpr, Value: val}, nil
	default:
		return ObjEntry{}, p.errf("expected object key")
	}
}

func (p *parser) parseArrayLit() (Node, error) {
	p.next() // '['
	if _, ok := p.accept(tokRBracket); ok {
		return p.ar.node(ArrayLit{}), nil
	}
	body, err := p.parsePipe()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokRBracket, "']'"); err != nil {
		return nil, err
	}
	return p.ar.node(ArrayLit{Body: body}), nil
}

func (p *parser) parseIf() (Node, error) {
	p.next() // 'if'
	cond, err := p.parseCond()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokThen, "'then'"); err != nil {
		return nil, err
	}
	thenBr, err := p.parsePipe()
	if err != nil {
		return nil, err
	}
	var elseBr Node = Identity{}
	if _, ok := p.accept(tokElse); ok {
		elseBr, err = p.parsePipe()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(tokEnd, "'end'"); err != nil {
		return nil, err
	}
	return p.ar.node(If{Cond: cond, Then: thenBr, Else: elseBr}), nil
}

// parseCallLike handles an identifier primary: a zero/n-arg built-in
// call, or one of the specially-shaped forms (map/select/del/by-funcs).
func (p *parser) parseCallLike() (Node, error) {
	t := p.next()
	name := t.text

	switch name {
	case "map":
		arg, err := p.parseParenArg()
		if err != nil {
			return nil, err
		}
		return p.ar.node(MapCall{Body: arg}), nil
	case "select":
		if _, err := p.expect(tokLParen, "'('"); err != nil {
			return nil, err
		}
		cond, err := p.parseCond()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
		return p.ar.node(Select{Cond: cond}), nil
	case "del":
		arg, err := p.parseParenArg()
		if err != nil {
			return nil, err
		}
		return p.ar.node(Del{Target: arg}), nil
	}

	if byFuncNames[name] {
		arg, err := p.parseParenArg()
		if err != nil {
			return nil, err
		}
		return p.ar.node(ByFunc{Name: name, Key: arg}), nil
	}

	var args []Node
	if p.check(tokLParen) {
		var err error
		args, err = p.parseArgList()
		if err != nil {
			return nil, err
		}
	}

	if stringFnNames[name] {
		return p.ar.node(StringFn{Name: name, Args: args}), nil
	}
	return p.ar.node(Call{Name: name, Args: args}), nil
}

func (p *parser) parseParenArg() (Node, error) {
	if _, err := p.expect(tokLParen, "'('"); err != nil {
		return nil, err
	}
	arg, err := p.parsePipe()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokRParen, "')'"); err != nil {
		return nil, err
	}
	return arg, nil
}

func (p *parser) parseArgList() ([]Node, error) {
	p.next() // '('
	var args []Node
	if p.check(tokRParen) {
		p.next()
		return args, nil
	}
	for {
		arg, err := p.parseAlt()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if _, ok := p.accept(tokComma); ok {
			continue
		}
		break
	}
	if _, err := p.expect(tokRParen, "')'"); err != nil {
		return nil, err
	}
	return args, nil
}

// parseCond parses the boolean-condition grammar used by if/select.
func (p *parser) parseCond() (Cond, error) {
	return p.parseCondOr()
}

func (p *parser) parseCondOr() (Cond, error) {
	left, err := p.parseCondAnd()
	if err != nil {
		return nil, err
	}
	for p.check(tokOr) {
		p.next()
		right, err := p.parseCondAnd()
		if err != nil {
			return nil, err
		}
		left = p.ar.cond(CondOr{Left: left, Right: right})
	}
	return left, nil
}

func (p *parser) parseCondAnd() (Cond, error) {
	left, err := p.parseCondUnary()
	if err != nil {
		return nil, err
	}
	for p.check(tokAnd) {
		p.next()
		right, err := p.parseCondUnary()
		if err != nil {
			return nil, err
		}
		left = p.ar.cond(CondAnd{Left: left, Right: right})
	}
	return left, nil
}

func (p *parser) parseCondUnary() (Cond, error) {
	if p.check(tokNot) {
		p.next()
		x, err := p.parseCondUnary()
		if err != nil {
			return nil, err
		}
		return p.ar.cond(CondNot{X: x}), nil
	}
	return p.parseCondPrimary()
}

func (p *parser) parseCondPrimary() (Cond, error) {
	left, err := p.parseAlt()
	if err != nil {
		return nil, err
	}
	op := ""
	switch {
	case p.check(tokEq):
		op = "=="
	case p.check(tokNe):
		op = "!="
	case p.check(tokLe):
		op = "<="
	case p.check(tokGe):
		op = ">="
	case p.check(tokLt):
		op = "<"
	case p.check(tokGt):
		op = ">"
	}
	if op == "" {
		return p.ar.cond(CondSimple{Node: left}), nil
	}
	p.next()
	right, err := p.parseAlt()
	if err != nil {
		return nil, err
	}
	return p.ar.cond(CondCompare{Op: op, Left: left, Right: right}), nil
}
