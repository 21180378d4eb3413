package ndjson

import (
	"bufio"
	"errors"
	"io"
	"syscall"

	"github.com/jn-toolkit/jn/internal/record"
)

// Writer emits one Record per line, flushed at clean record boundaries.
type Writer struct {
	bw         *bufio.Writer
	brokenPipe bool
	scratch    []byte
}

// NewWriter wraps w with the default 8 KiB buffer.
func NewWriter(w io.Writer) *Writer {
	return NewWriterSize(w, defaultWriteBufSize)
}

// NewWriterSize wraps w with an explicit buffer size.
func NewWriterSize(w io.Writer, size int) *Writer {
	return &Writer{bw: bufio.NewWriterSize(w, size)}
}

// WriteRecord encodes r and appends the terminating newline. A broken-pipe
// write error is treated as graceful termination: it
// records BrokenPipe() and returns the error so the caller can stop
// reading further input, but it is not itself a fatal I/O error.
func (w *Writer) WriteRecord(r record.Record) error {
	w.scratch = AppendRecord(w.scratch[:0], r)
	w.scratch = append(w.scratch, '\n')
	if _, err := w.bw.Write(w.scratch); err != nil {
		if isBrokenPipe(err) {
			w.brokenPipe = true
		}
		return err
	}
	return w.Flush()
}

// Flush flushes buffered output, marking BrokenPipe on EPIPE.
func (w *Writer) Flush() error {
	if err := w.bw.Flush(); err != nil {
		if isBrokenPipe(err) {
			w.brokenPipe = true
		}
		return err
	}
	return nil
}

// BrokenPipe reports whether a prior write observed EPIPE.
func (w *Writer) BrokenPipe() bool {
	return w.brokenPipe
}

func isBrokenPipe(err error) bool {
	return errors.Is(err, syscall.EPIPE) || errors.Is(err, io.ErrClosedPipe)
}
