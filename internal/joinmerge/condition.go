package joinmerge

import (
	"github.com/jn-toolkit/jn/internal/expr"
	"github.com/jn-toolkit/jn/internal/jnerr"
	"github.com/jn-toolkit/jn/internal/record"
)

// sideEffectBuiltins names the expression built-ins a condition-join
// predicate must not use: anything that reads wall-clock time or
// randomness would make the join's result depend on evaluation order,
// not on the two candidate records.
var sideEffectBuiltins = map[string]bool{
	"now": true, "today": true, "epoch": true, "epoch_ms": true,
	"uuid": true, "uuid7": true, "ulid": true, "xid": true,
	"nanoid": true, "shortid": true, "sid": true, "seq": true, "random": true,
	"ago": true,
}

// Condition is a compiled, validated condition-join predicate.
type Condition struct {
	prog *expr.Program
}

// CompileCondition parses src as an expression and rejects it if it
// references any impure built-in. The expression is evaluated against
// a synthetic {"left": ..., "right": ...} record per candidate pair.
func CompileCondition(src string) (*Condition, error) {
	prog, err := expr.Compile(src)
	if err != nil {
		return nil, err
	}
	if name, bad := findSideEffect(prog.Root); bad {
		return nil, jnerr.NewJoinError("condition expression uses impure built-in "+name, nil)
	}
	return &Condition{prog: prog}, nil
}

// Holds evaluates the condition for one left/right candidate pair,
// true iff at least one result is truthy (consistent with the
// expression engine's sequence semantics elsewhere).
func (c *Condition) Holds(ctx *expr.Context, left, right record.Record) (bool, error) {
	m := record.NewOrderedMap(2)
	m.Set("left", left)
	m.Set("right", right)
	res, err := expr.Eval(ctx, c.prog.Root, record.Object(m))
	if err != nil {
		return false, err
	}
	for _, v := range res.Items() {
		if v.Truthy() {
			return true, nil
		}
	}
	return false, nil
}

func findSideEffect(n expr.Node) (string, bool) {
	switch v := n.(type) {
	case expr.Pipe:
		if name, bad := findSideEffect(v.Left); bad {
			return name, true
		}
		return findSideEffect(v.Right)
	case expr.Comma:
		if name, bad := findSideEffect(v.Left); bad {
			return name, true
		}
		return findSideEffect(v.Right)
	case expr.Alt:
		if name, bad := findSideEffect(v.Left); bad {
			return name, true
		}
		return findSideEffect(v.Right)
	case expr.If:
		if name, bad := findSideEffectCond(v.Cond); bad {
			return name, true
		}
		if name, bad := findSideEffect(v.Then); bad {
			return name, true
		}
		return findSideEffect(v.Else)
	case expr.ObjectLit:
		for _, e := range v.Entries {
			if e.KeyExpr != nil {
				if name, bad := findSideEffect(e.KeyExpr); bad {
					return name, true
				}
			}
			if name, bad := findSideEffect(e.Value); bad {
				return name, true
			}
		}
		return "", false
	case expr.ArrayLit:
		if v.Body == nil {
			return "", false
		}
		return findSideEffect(v.Body)
	case expr.Arith:
		if name, bad := findSideEffect(v.Left); bad {
			return name, true
		}
		return findSideEffect(v.Right)
	case expr.Neg:
		return findSideEffect(v.X)
	case expr.Call:
		if sideEffectBuiltins[v.Name] {
			return v.Name, true
		}
		for _, a := range v.Args {
			if name, bad := findSideEffect(a); bad {
				return name, true
			}
		}
		return "", false
	case expr.StringFn:
		for _, a := range v.Args {
			if name, bad := findSideEffect(a); bad {
				return name, true
			}
		}
		return "", false
	case expr.MapCall:
		return findSideEffect(v.Body)
	case expr.ByFunc:
		return findSideEffect(v.Key)
	case expr.Del:
		return findSideEffect(v.Target)
	case expr.Select:
		return findSideEffectCond(v.Cond)
	default:
		return "", false
	}
}

func findSideEffectCond(c expr.Cond) (string, bool) {
	switch v := c.(type) {
	case expr.CondSimple:
		return findSideEffect(v.Node)
	case expr.CondCompare:
		if name, bad := findSideEffect(v.Left); bad {
			return name, true
		}
		return findSideEffect(v.Right)
	case expr.CondAnd:
		if name, bad := findSideEffectCond(v.Left); bad {
			return name, true
		}
		return findSideEffectCond(v.Right)
	case expr.CondOr:
		if name, bad := findSideEffectCond(v.Left); bad {
			return name, true
		}
		return findSideEffectCond(v.Right)
	case expr.CondNot:
		return findSideEffectCond(v.X)
	default:
		return "", false
	}
}
