package joinmerge

import (
	"testing"

	"github.com/jn-toolkit/jn/internal/expr"
	"github.com/jn-toolkit/jn/internal/ndjson"
	"github.com/jn-toolkit/jn/internal/record"
)

func dec(t *testing.T, src string) record.Record {
	t.Helper()
	r, err := ndjson.Decode([]byte(src), record.NewArena())
	if err != nil {
		t.Fatalf("decode %q: %v", src, err)
	}
	return r
}

func collect(t *testing.T, fn func(emit func(record.Record) error) error) []record.Record {
	t.Helper()
	var out []record.Record
	if err := fn(func(r record.Record) error {
		out = append(out, r)
		return nil
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return out
}

// TestHashJoinEmbedWithCount is a natural-key join with a count
// aggregation embedded under "matches".
func TestHashJoinEmbedWithCount(t *testing.T) {
	left := SliceSource([]record.Record{
		dec(t, `{"id":1}`),
		dec(t, `{"id":2}`),
	})
	right := SliceSource([]record.Record{
		dec(t, `{"id":1,"name":"A"}`),
		dec(t, `{"id":1,"name":"B"}`),
		dec(t, `{"id":2,"name":"C"}`),
	})

	agg, err := ParseAggSpec("cnt: count")
	if err != nil {
		t.Fatalf("ParseAggSpec: %v", err)
	}

	opts := JoinOptions{
		LeftKeys:    []string{"id"},
		RightKeys:   []string{"id"},
		Output:      OutputEmbed,
		TargetField: "matches",
		Aggs:        []AggSpec{agg},
	}

	out := collect(t, func(emit func(record.Record) error) error {
		return HashJoin(expr.NewContext(), left, right, opts, emit)
	})

	if len(out) != 2 {
		t.Fatalf("expected 2 output records, got %d", len(out))
	}
	if got := string(ndjson.Marshal(out[0])); got != `{"id":1,"matches":[{"id":1,"name":"A"},{"id":1,"name":"B"}],"cnt":2}` {
		t.Fatalf("unexpected first record: %s", got)
	}
	if got := string(ndjson.Marshal(out[1])); got != `{"id":2,"matches":[{"id":2,"name":"C"}],"cnt":1}` {
		t.Fatalf("unexpected second record: %s", got)
	}
}

// TestHashJoinPreservesLeftOrder is "Join preserves
// left-side order" even when right-bucket membership varies.
func TestHashJoinPreservesLeftOrder(t *testing.T) {
	left := SliceSource([]record.Record{
		dec(t, `{"id":3}`),
		dec(t, `{"id":1}`),
		dec(t, `{"id":2}`),
	})
	right := SliceSource([]record.Record{
		dec(t, `{"id":1,"v":"x"}`),
		dec(t, `{"id":2,"v":"y"}`),
	})
	opts := JoinOptions{LeftKeys: []string{"id"}, RightKeys: []string{"id"}, Output: OutputEmbed, TargetField: "m"}
	out := collect(t, func(emit func(record.Record) error) error {
		return HashJoin(expr.NewContext(), left, right, opts, emit)
	})
	ids := make([]int64, len(out))
	for i, r := range out {
		v, _ := r.Field("id")
		ids[i] = v.Int()
	}
	if ids[0] != 3 || ids[1] != 1 || ids[2] != 2 {
		t.Fatalf("left order not preserved: %v", ids)
	}
}

// TestHashJoinFlattenMergesRightOverLeft exercises OutputFlatten's
// object-+ semantics (right overrides left on conflict, fans out one
// output per match).
func TestHashJoinFlattenMergesRightOverLeft(t *testing.T) {
	left := SliceSource([]record.Record{dec(t, `{"id":1,"name":"old"}`)})
	right := SliceSource([]record.Record{
		dec(t, `{"id":1,"name":"new","extra":true}`),
	})
	opts := JoinOptions{LeftKeys: []string{"id"}, RightKeys: []string{"id"}, Output: OutputFlatten}
	out := collect(t, func(emit func(record.Record) error) error {
		return HashJoin(expr.NewContext(), left, right, opts, emit)
	})
	if len(out) != 1 {
		t.Fatalf("expected 1 output, got %d", len(out))
	}
	if got := string(ndjson.Marshal(out[0])); got != `{"id":1,"name":"new","extra":true}` {
		t.Fatalf("unexpected flattened record: %s", got)
	}
}

// TestHashJoinCompositeKey exercises the comma-separated composite key
// mode, confirming a mismatch in any field excludes the pairing.
func TestHashJoinCompositeKey(t *testing.T) {
	left := SliceSource([]record.Record{dec(t, `{"a":1,"b":"x"}`)})
	right := SliceSource([]record.Record{
		dec(t, `{"a":1,"b":"x","hit":true}`),
		dec(t, `{"a":1,"b":"y","hit":false}`),
	})
	opts := JoinOptions{LeftKeys: []string{"a", "b"}, RightKeys: []string{"a", "b"}, Output: OutputEmbed, TargetField: "matches"}
	out := collect(t, func(emit func(record.Record) error) error {
		return HashJoin(expr.NewContext(), left, right, opts, emit)
	})
	matches, _ := out[0].Field("matches")
	if len(matches.Array()) != 1 {
		t.Fatalf("expected exactly 1 composite-key match, got %d", len(matches.Array()))
	}
}

// TestHashJoinRightOverLimitFails: a configured right-side ceiling must
// hard-fail once the right source exceeds it.
func TestHashJoinRightOverLimitFails(t *testing.T) {
	left := SliceSource([]record.Record{dec(t, `{"id":1}`)})
	right := SliceSource([]record.Record{
		dec(t, `{"id":1}`),
		dec(t, `{"id":2}`),
		dec(t, `{"id":3}`),
	})
	opts := JoinOptions{LeftKeys: []string{"id"}, RightKeys: []string{"id"}, RightLimit: 2}
	err := HashJoin(expr.NewContext(), left, right, opts, func(record.Record) error { return nil })
	if err == nil {
		t.Fatal("expected a right-source-too-large error")
	}
}

// TestHashJoinWarnsAtHalfLimit confirms the soft warning fires at half
// the configured ceiling, before any hard failure.
func TestHashJoinWarnsAtHalfLimit(t *testing.T) {
	left := SliceSource([]record.Record{dec(t, `{"id":1}`)})
	right := SliceSource([]record.Record{
		dec(t, `{"id":1}`),
		dec(t, `{"id":2}`),
	})
	var warnings []string
	opts := JoinOptions{
		LeftKeys: []string{"id"}, RightKeys: []string{"id"},
		RightLimit: 4,
		OnWarn:     func(msg string) { warnings = append(warnings, msg) },
	}
	if err := HashJoin(expr.NewContext(), left, right, opts, func(record.Record) error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(warnings) == 0 {
		t.Fatal("expected a soft-limit warning at half the configured ceiling")
	}
}

// TestConditionJoinRejectsImpureBuiltins: condition-join expressions are
// pure functions of the two inputs, so a reference to now()/uuid()/etc.
// must be rejected at compile time.
func TestConditionJoinRejectsImpureBuiltins(t *testing.T) {
	if _, err := CompileCondition("select(.left.id == .right.id)"); err != nil {
		t.Fatalf("a pure condition must compile: %v", err)
	}
	if _, err := CompileCondition("now | select(. > .left.ts)"); err == nil {
		t.Fatal("expected an impure-builtin condition to be rejected")
	}
}

// TestConditionJoinMatchesCrossFieldPredicate exercises a non-equality
// condition evaluated over a synthetic {"left":...,"right":...} record.
func TestConditionJoinMatchesCrossFieldPredicate(t *testing.T) {
	cond, err := CompileCondition("select(.left.min <= .right.v and .right.v <= .left.max)")
	if err != nil {
		t.Fatalf("CompileCondition: %v", err)
	}
	left := SliceSource([]record.Record{dec(t, `{"min":10,"max":20}`)})
	right := SliceSource([]record.Record{
		dec(t, `{"v":15}`),
		dec(t, `{"v":25}`),
	})
	opts := JoinOptions{Condition: cond, Output: OutputEmbed, TargetField: "matches"}
	out := collect(t, func(emit func(record.Record) error) error {
		return HashJoin(expr.NewContext(), left, right, opts, emit)
	})
	matches, _ := out[0].Field("matches")
	if len(matches.Array()) != 1 {
		t.Fatalf("expected exactly 1 condition match, got %d", len(matches.Array()))
	}
}

// TestAggSum exercises the sum aggregation over a right bucket.
func TestAggSum(t *testing.T) {
	agg, err := ParseAggSpec("total: sum(amount)")
	if err != nil {
		t.Fatalf("ParseAggSpec: %v", err)
	}
	bucket := []record.Record{
		dec(t, `{"amount":5}`),
		dec(t, `{"amount":7}`),
	}
	got := agg.Apply(bucket)
	if got.Int() != 12 {
		t.Fatalf("expected sum 12, got %v", got)
	}
}

// TestAggUnknownFunctionRejected confirms an unrecognized aggregation
// name fails to parse.
func TestAggUnknownFunctionRejected(t *testing.T) {
	if _, err := ParseAggSpec("x: bogus(field)"); err == nil {
		t.Fatal("expected an error for an unknown aggregation function")
	}
}

// TestMergeConcatenatesInDeclaredOrder is merge preserves
// declared source order and each source's own emission order.
func TestMergeConcatenatesInDeclaredOrder(t *testing.T) {
	sources := []MergeSource{
		{Label: "a", Read: SliceSource([]record.Record{dec(t, `{"n":1}`), dec(t, `{"n":2}`)})},
		{Label: "b", Read: SliceSource([]record.Record{dec(t, `{"n":3}`)})},
	}
	out := collect(t, func(emit func(record.Record) error) error {
		return Merge(sources, MergeOptions{TagField: "_source"}, emit)
	})
	if len(out) != 3 {
		t.Fatalf("expected 3 records, got %d", len(out))
	}
	wantLabels := []string{"a", "a", "b"}
	for i, r := range out {
		tag, _ := r.Field("_source")
		if tag.Str() != wantLabels[i] {
			t.Fatalf("record %d: expected source tag %q, got %q", i, wantLabels[i], tag.Str())
		}
	}
}

// TestMergeContinueOnErrorSkipsFailedSource confirms the default policy
// records the failure and proceeds to the next source.
func TestMergeContinueOnErrorSkipsFailedSource(t *testing.T) {
	boom := func() (record.Record, error) { return record.Null, errBoom }
	sources := []MergeSource{
		{Label: "bad", Read: boom},
		{Label: "good", Read: SliceSource([]record.Record{dec(t, `{"ok":true}`)})},
	}
	var failed []string
	out := collect(t, func(emit func(record.Record) error) error {
		return Merge(sources, MergeOptions{
			Policy:        ContinueOnError,
			OnSourceError: func(label string, _ error) { failed = append(failed, label) },
		}, emit)
	})
	if len(out) != 1 {
		t.Fatalf("expected the good source's record to survive, got %d records", len(out))
	}
	if len(failed) != 1 || failed[0] != "bad" {
		t.Fatalf("expected the bad source to be recorded as failed, got %v", failed)
	}
}

// TestMergeFailFastAbortsImmediately confirms FailFast stops the whole
// merge on the first source error.
func TestMergeFailFastAbortsImmediately(t *testing.T) {
	boom := func() (record.Record, error) { return record.Null, errBoom }
	sources := []MergeSource{
		{Label: "bad", Read: boom},
		{Label: "good", Read: SliceSource([]record.Record{dec(t, `{"ok":true}`)})},
	}
	err := Merge(sources, MergeOptions{Policy: FailFast}, func(record.Record) error { return nil })
	if err == nil {
		t.Fatal("expected fail-fast to return the source error")
	}
}

var errBoom = errBoomType{}

type errBoomType struct{}

func (errBoomType) Error() string { return "boom" }
