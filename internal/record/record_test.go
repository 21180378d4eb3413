package record

import "testing"

func TestIndexNegativeSaturating(t *testing.T) {
	arr := Array([]Record{Int(10), Int(20), Int(30), Int(40), Int(50)})

	v, ok := arr.Index(-2)
	if !ok || v.Int() != 40 {
		t.Fatalf("expected 40, got %v ok=%v", v, ok)
	}

	_, ok = arr.Index(-9223372036854775808)
	if ok {
		t.Fatalf("expected out-of-bounds for MinInt64 offset")
	}
}

func TestSliceNegativeNoOverflow(t *testing.T) {
	arr := Array([]Record{Int(10), Int(20), Int(30), Int(40), Int(50)})

	lo := int64(-9223372036854775808)
	got, ok := arr.Slice(&lo, nil)
	if !ok {
		t.Fatalf("expected ok")
	}
	if len(got.Array()) != 5 {
		t.Fatalf("expected full slice, got %v", got)
	}

	lo2 := int64(-2)
	got2, ok := arr.Slice(&lo2, nil)
	if !ok || len(got2.Array()) != 2 {
		t.Fatalf("expected [40,50], got %v", got2)
	}
	if got2.Array()[0].Int() != 40 || got2.Array()[1].Int() != 50 {
		t.Fatalf("unexpected slice contents: %v", got2)
	}
}

func TestOrderedMapPreservesInsertionOrderAndDelete(t *testing.T) {
	m := NewOrderedMap(0)
	m.Set("b", Int(2))
	m.Set("a", Int(1))
	m.Set("c", Int(3))

	if got := m.Keys(); len(got) != 3 || got[0] != "b" || got[1] != "a" || got[2] != "c" {
		t.Fatalf("unexpected key order: %v", got)
	}

	m.Delete("a")
	if got := m.Keys(); len(got) != 2 || got[0] != "b" || got[1] != "c" {
		t.Fatalf("unexpected key order after delete: %v", got)
	}
}

func TestCompareTypeTagged(t *testing.T) {
	one := Int(1)
	oneStr := String("1")

	if Equal(one, oneStr) {
		t.Fatalf("integer 1 and string \"1\" must not compare equal")
	}
	if Key(one) == Key(oneStr) {
		t.Fatalf("integer 1 and string \"1\" must have distinct group keys")
	}
	if Compare(Null, Bool(false)) >= 0 {
		t.Fatalf("null must sort before bool")
	}
	if Compare(Bool(true), Int(0)) >= 0 {
		t.Fatalf("bool must sort before number")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	m := NewOrderedMap(1)
	m.Set("k", Int(1))
	orig := Object(m)
	clone := orig.Clone()

	m.Set("k", Int(2))

	v, _ := clone.Field("k")
	if v.Int() != 1 {
		t.Fatalf("clone observed mutation of original: %v", v)
	}
}
