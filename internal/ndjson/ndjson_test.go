package ndjson

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/jn-toolkit/jn/internal/record"
)

func TestDecodeEncodeRoundTrip(t *testing.T) {
	arena := record.NewArena()
	line := []byte(`{"name":"Alice","amount":"1200","tags":["a","b"],"n":1,"f":1.5,"ok":true,"nil":null}`)

	rec, err := Decode(line, arena)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}

	got := string(Marshal(rec))
	if got != string(line) {
		t.Fatalf("round trip mismatch:\n got: %s\nwant: %s", got, line)
	}
}

func TestEncodeEscaping(t *testing.T) {
	rec := record.String("line1\nline2\ttab\"quote\\back\x01ctrl")
	got := string(Marshal(rec))
	want := `"line1\nline2\ttab\"quote\\backctrl"`
	if got != want {
		t.Fatalf("got %s want %s", got, want)
	}
}

func TestEncodeNaNInfAsNull(t *testing.T) {
	got := string(Marshal(record.Float(float64NaN())))
	if got != "null" {
		t.Fatalf("expected null for NaN, got %s", got)
	}
}

func float64NaN() float64 {
	var zero float64
	return zero / zero
}

func TestReaderSkipsMalformedLinesByDefault(t *testing.T) {
	input := "{\"a\":1}\nnot-json\n{\"b\":2}\n"
	r := NewReader(strings.NewReader(input))
	arena := record.NewArena()

	var got []record.Record
	for {
		rec, err := r.ReadRecord(arena)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got = append(got, rec)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if r.Skipped != 1 {
		t.Fatalf("expected 1 skipped line, got %d", r.Skipped)
	}
}

func TestReaderStrictModeAbortsOnMalformedLine(t *testing.T) {
	input := "{\"a\":1}\nnot-json\n"
	r := NewReader(strings.NewReader(input))
	r.Strict = true
	arena := record.NewArena()

	if _, err := r.ReadRecord(arena); err != nil {
		t.Fatalf("first line should decode: %v", err)
	}
	if _, err := r.ReadRecord(arena); err == nil {
		t.Fatalf("expected strict mode to surface the malformed line")
	}
}

func TestWriterFlushesAtRecordBoundaries(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewWriter(buf)

	if err := w.WriteRecord(record.Int(1)); err != nil {
		t.Fatalf("write error: %v", err)
	}
	if buf.String() != "1\n" {
		t.Fatalf("expected immediate flush, got %q", buf.String())
	}
}

func TestIdentityIsFixedPoint(t *testing.T) {
	lines := []string{
		`{"a":1,"b":[1,2,3]}`,
		`{"name":"Alice","amount":"1200"}`,
		`[1,2.5,"x",null,true,false]`,
	}
	arena := record.NewArena()
	for _, line := range lines {
		rec, err := Decode([]byte(line), arena)
		if err != nil {
			t.Fatalf("decode %s: %v", line, err)
		}
		got := string(Marshal(rec))
		rec2, err := Decode([]byte(got), arena)
		if err != nil {
			t.Fatalf("re-decode %s: %v", got, err)
		}
		got2 := string(Marshal(rec2))
		if got != got2 {
			t.Fatalf("not a fixed point: %s != %s", got, got2)
		}
	}
}
