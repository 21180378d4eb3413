// Package ndjson implements the streaming I/O substrate: a buffered
// line-oriented reader/writer with per-record arena discipline
// and SIGPIPE-safe flush semantics.
package ndjson

import (
	"bufio"
	"errors"
	"io"

	"github.com/jn-toolkit/jn/internal/record"
)

const (
	defaultReadBufSize  = 64 * 1024
	defaultWriteBufSize = 8 * 1024
)

// Reader reads NDJSON lines with a configurable buffer.
type Reader struct {
	br      *bufio.Reader
	Strict  bool
	Skipped int
}

// NewReader wraps r with the default 64 KiB buffer.
func NewReader(r io.Reader) *Reader {
	return NewReaderSize(r, defaultReadBufSize)
}

// NewReaderSize wraps r with an explicit buffer size.
func NewReaderSize(r io.Reader, size int) *Reader {
	return &Reader{br: bufio.NewReaderSize(r, size)}
}

// ReadLine returns the next line with its trailing newline stripped, or
// io.EOF when the stream is exhausted cleanly.
func (r *Reader) ReadLine() ([]byte, error) {
	line, err := r.br.ReadBytes('\n')
	if len(line) > 0 && line[len(line)-1] == '\n' {
		line = line[:len(line)-1]
		if len(line) > 0 && line[len(line)-1] == '\r' {
			line = line[:len(line)-1]
		}
	}
	if err != nil {
		if errors.Is(err, io.EOF) {
			if len(line) == 0 {
				return nil, io.EOF
			}
			return line, nil
		}
		return nil, err
	}
	return line, nil
}

// ReadRecord reads and decodes the next line into a Record, scoped to
// arena. Malformed lines are skipped (counted in Skipped) unless Strict is
// set, in which case the error is returned.
func (r *Reader) ReadRecord(arena *record.Arena) (record.Record, error) {
	for {
		line, err := r.ReadLine()
		if err != nil {
			return record.Null, err
		}
		if len(trimSpace(line)) == 0 {
			continue
		}
		rec, decErr := Decode(line, arena)
		if decErr != nil {
			if r.Strict {
				return record.Null, decErr
			}
			r.Skipped++
			continue
		}
		return rec, nil
	}
}

func trimSpace(b []byte) []byte {
	i, j := 0, len(b)
	for i < j && isSpace(b[i]) {
		i++
	}
	for j > i && isSpace(b[j-1]) {
		j--
	}
	return b[i:j]
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n'
}
