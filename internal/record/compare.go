package record

import (
	"strconv"
	"strings"
)

// typeRank implements the total order
// null < bool < number < string < array < object.
func typeRank(k Kind) int {
	switch k {
	case KindNull:
		return 0
	case KindBool:
		return 1
	case KindInt, KindFloat:
		return 2
	case KindString:
		return 3
	case KindArray:
		return 4
	case KindObject:
		return 5
	default:
		return 6
	}
}

// Compare implements the total order required by sort/sort_by/unique and
// by join-key comparison: null < bool < number < string < array < object,
// with natural ordering within a type and lexicographic, element-wise
// ordering within arrays.
func Compare(a, b Record) int {
	ra, rb := typeRank(a.kind), typeRank(b.kind)
	if ra != rb {
		return ra - rb
	}
	switch a.kind {
	case KindNull:
		return 0
	case KindBool:
		if a.b == b.b {
			return 0
		}
		if !a.b {
			return -1
		}
		return 1
	case KindInt, KindFloat:
		af, bf := a.Number(), b.Number()
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	case KindString:
		return strings.Compare(a.s, b.s)
	case KindArray:
		n := len(a.arr)
		if len(b.arr) < n {
			n = len(b.arr)
		}
		for i := 0; i < n; i++ {
			if c := Compare(a.arr[i], b.arr[i]); c != 0 {
				return c
			}
		}
		return len(a.arr) - len(b.arr)
	case KindObject:
		ak, bk := a.obj.Keys(), b.obj.Keys()
		n := len(ak)
		if len(bk) < n {
			n = len(bk)
		}
		for i := 0; i < n; i++ {
			if c := strings.Compare(ak[i], bk[i]); c != 0 {
				return c
			}
			av, _ := a.obj.Get(ak[i])
			bv, _ := b.obj.Get(bk[i])
			if c := Compare(av, bv); c != 0 {
				return c
			}
		}
		return len(ak) - len(bk)
	default:
		return 0
	}
}

// Equal reports whether a and b are structurally equal.
func Equal(a, b Record) bool {
	return Compare(a, b) == 0
}

// Key renders a type-tagged key for a record, used by group_by/unique_by
// and hash joins so that the string "1" and the integer 1 are distinct
// groups.
func Key(r Record) string {
	var sb strings.Builder
	writeKey(&sb, r)
	return sb.String()
}

func writeKey(sb *strings.Builder, r Record) {
	switch r.kind {
	case KindNull:
		sb.WriteString("n:")
	case KindBool:
		sb.WriteString("b:")
		if r.b {
			sb.WriteString("true")
		} else {
			sb.WriteString("false")
		}
	case KindInt:
		sb.WriteString("i:")
		sb.WriteString(strconv.FormatInt(r.i, 10))
	case KindFloat:
		sb.WriteString("f:")
		sb.WriteString(strconv.FormatFloat(r.f, 'g', -1, 64))
	case KindString:
		sb.WriteString("s:")
		sb.WriteString(r.s)
	case KindArray:
		sb.WriteString("a:[")
		for i, v := range r.arr {
			if i > 0 {
				sb.WriteByte(',')
			}
			writeKey(sb, v)
		}
		sb.WriteByte(']')
	case KindObject:
		sb.WriteString("o:{")
		first := true
		r.obj.Each(func(k string, v Record) bool {
			if !first {
				sb.WriteByte(',')
			}
			first = false
			sb.WriteString(k)
			sb.WriteByte('=')
			writeKey(sb, v)
			return true
		})
		sb.WriteByte('}')
	}
}
