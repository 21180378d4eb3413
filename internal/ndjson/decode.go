package ndjson

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jn-toolkit/jn/internal/record"
)

// Decode parses a single JSON value from line into a Record, using arena
// to back object/array storage so repeated decodes in a read loop do not
// grow the heap once steady state is reached.
func Decode(line []byte, arena *record.Arena) (record.Record, error) {
	d := &decoder{buf: line, arena: arena}
	d.skipSpace()
	v, err := d.value()
	if err != nil {
		return record.Null, err
	}
	d.skipSpace()
	if d.pos != len(d.buf) {
		return record.Null, fmt.Errorf("trailing data after JSON value at byte %d", d.pos)
	}
	return v, nil
}

type decoder struct {
	buf   []byte
	pos   int
	arena *record.Arena
}

func (d *decoder) skipSpace() {
	for d.pos < len(d.buf) {
		switch d.buf[d.pos] {
		case ' ', '\t', '\n', '\r':
			d.pos++
		default:
			return
		}
	}
}

func (d *decoder) peek() (byte, bool) {
	if d.pos >= len(d.buf) {
		return 0, false
	}
	return d.buf[d.pos], true
}

func (d *decoder) value() (record.Record, error) {
	b, ok := d.peek()
	if !ok {
		return record.Null, fmt.Errorf("unexpected end of input")
	}
	switch {
	case b == '{':
		return d.object()
	case b == '[':
		return d.array()
	case b == '"':
		s, err := d.stringLit()
		if err != nil {
			return record.Null, err
		}
		return record.String(s), nil
	case b == 't':
		return d.literal("true", record.Bool(true))
	case b == 'f':
		return d.literal("false", record.Bool(false))
	case b == 'n':
		return d.literal("null", record.Null)
	case b == '-' || (b >= '0' && b <= '9'):
		return d.number()
	default:
		return record.Null, fmt.Errorf("unexpected character %q at byte %d", b, d.pos)
	}
}

func (d *decoder) literal(lit string, val record.Record) (record.Record, error) {
	if d.pos+len(lit) > len(d.buf) || string(d.buf[d.pos:d.pos+len(lit)]) != lit {
		return record.Null, fmt.Errorf("invalid literal at byte %d", d.pos)
	}
	d.pos += len(lit)
	return val, nil
}

func (d *decoder) object() (record.Record, error) {
	d.pos++ // consume '{'
	m := d.arena.NewMap(4)
	d.skipSpace()
	if b, ok := d.peek(); ok && b == '}' {
		d.pos++
		return record.Object(m), nil
	}
	for {
		d.skipSpace()
		key, err := d.stringLit()
		if err != nil {
			return record.Null, err
		}
		d.skipSpace()
		if b, ok := d.peek(); !ok || b != ':' {
			return record.Null, fmt.Errorf("expected ':' at byte %d", d.pos)
		}
		d.pos++
		d.skipSpace()
		v, err := d.value()
		if err != nil {
			return record.Null, err
		}
		m.Set(key, v)
		d.skipSpace()
		b, ok := d.peek()
		if !ok {
			return record.Null, fmt.Errorf("unterminated object")
		}
		if b == ',' {
			d.pos++
			continue
		}
		if b == '}' {
			d.pos++
			return record.Object(m), nil
		}
		return record.Null, fmt.Errorf("expected ',' or '}' at byte %d", d.pos)
	}
}

func (d *decoder) array() (record.Record, error) {
	d.pos++ // consume '['
	items := d.arena.NewSlice(4)
	d.skipSpace()
	if b, ok := d.peek(); ok && b == ']' {
		d.pos++
		return record.Array(items), nil
	}
	for {
		d.skipSpace()
		v, err := d.value()
		if err != nil {
			return record.Null, err
		}
		items = append(items, v)
		d.skipSpace()
		b, ok := d.peek()
		if !ok {
			return record.Null, fmt.Errorf("unterminated array")
		}
		if b == ',' {
			d.pos++
			continue
		}
		if b == ']' {
			d.pos++
			return record.Array(items), nil
		}
		return record.Null, fmt.Errorf("expected ',' or ']' at byte %d", d.pos)
	}
}

func (d *decoder) stringLit() (string, error) {
	if b, ok := d.peek(); !ok || b != '"' {
		return "", fmt.Errorf("expected string at byte %d", d.pos)
	}
	d.pos++
	var sb strings.Builder
	for {
		if d.pos >= len(d.buf) {
			return "", fmt.Errorf("unterminated string")
		}
		b := d.buf[d.pos]
		if b == '"' {
			d.pos++
			return sb.String(), nil
		}
		if b == '\\' {
			d.pos++
			if d.pos >= len(d.buf) {
				return "", fmt.Errorf("unterminated escape")
			}
			esc := d.buf[d.pos]
			switch esc {
			case '"':
				sb.WriteByte('"')
			case '\\':
				sb.WriteByte('\\')
			case '/':
				sb.WriteByte('/')
			case 'n':
				sb.WriteByte('\n')
			case 'r':
				sb.WriteByte('\r')
			case 't':
				sb.WriteByte('\t')
			case 'b':
				sb.WriteByte('\b')
			case 'f':
				sb.WriteByte('\f')
			case 'u':
				if d.pos+4 >= len(d.buf) {
					return "", fmt.Errorf("invalid unicode escape")
				}
				r, err := strconv.ParseUint(string(d.buf[d.pos+1:d.pos+5]), 16, 32)
				if err != nil {
					return "", fmt.Errorf("invalid unicode escape: %w", err)
				}
				sb.WriteRune(rune(r))
				d.pos += 4
			default:
				return "", fmt.Errorf("invalid escape %q", esc)
			}
			d.pos++
			continue
		}
		sb.WriteByte(b)
		d.pos++
	}
}

func (d *decoder) number() (record.Record, error) {
	start := d.pos
	isFloat := false
	if b, ok := d.peek(); ok && b == '-' {
		d.pos++
	}
	for {
		b, ok := d.peek()
		if !ok {
			break
		}
		switch {
		case b >= '0' && b <= '9':
			d.pos++
		case b == '.' || b == 'e' || b == 'E' || b == '+' || b == '-':
			isFloat = true
			d.pos++
		default:
			goto done
		}
	}
done:
	tok := string(d.buf[start:d.pos])
	if tok == "" || tok == "-" {
		return record.Null, fmt.Errorf("invalid number at byte %d", start)
	}
	if !isFloat {
		if i, err := strconv.ParseInt(tok, 10, 64); err == nil {
			return record.Int(i), nil
		}
	}
	f, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return record.Null, fmt.Errorf("invalid number %q: %w", tok, err)
	}
	return record.Float(f), nil
}
