package main

import (
	"context"
	"io"
	"os"

	"github.com/jn-toolkit/jn/internal/address"
	"github.com/jn-toolkit/jn/internal/jnerr"
	"github.com/jn-toolkit/jn/internal/jnlog"
	"github.com/jn-toolkit/jn/internal/ndjson"
	"github.com/jn-toolkit/jn/internal/pipeline"
	"github.com/jn-toolkit/jn/internal/planner"
	"github.com/jn-toolkit/jn/internal/pluginreg"
	"github.com/jn-toolkit/jn/internal/record"
)

// source streams decoded records from one resolved address, running its
// planned pipeline (possibly several, end to end, for a glob) in the
// background and decoding its NDJSON stdout as the caller pulls records.
type source struct {
	reader *ndjson.Reader
	arena  *record.Arena
	wait   func() error
}

// openSource resolves raw (a literal address string, "-" for stdio, or an
// @ns/name profile reference) into a streaming record source. strict is the root
// --strict flag: when set, a malformed NDJSON line aborts the read
// instead of being skipped and counted.
func openSource(ctx context.Context, raw string, reg *pluginreg.Registry, log *jnlog.Logger, strict bool) (*source, error) {
	addr, err := address.Parse(raw)
	if err != nil {
		return nil, err
	}

	if addr.Kind == address.KindStdio {
		r := ndjson.NewReader(os.Stdin)
		r.Strict = strict
		return &source{reader: r, arena: record.NewArena(), wait: func() error { return nil }}, nil
	}

	specs, err := planner.Plan(addr, planner.Read, reg)
	if err != nil {
		return nil, err
	}

	pr, pw := io.Pipe()
	exec := pipeline.New(log)
	done := make(chan error, 1)
	go func() {
		defer pw.Close()
		for _, spec := range specs {
			stdin, closeStdin, err := stageStdin(addr, spec)
			if err != nil {
				done <- err
				return
			}
			_, err = exec.Run(ctx, &spec, stdin, pw)
			if closeStdin != nil {
				closeStdin()
			}
			if err != nil {
				done <- err
				return
			}
		}
		done <- nil
	}()

	r := ndjson.NewReader(pr)
	r.Strict = strict
	return &source{
		reader: r,
		arena:  record.NewArena(),
		wait: func() error {
			pr.Close()
			return <-done
		},
	}, nil
}

// stageStdin opens the local file backing spec when the planner left its
// protocol stage empty (plain file or glob-matched reads never gained a
// protocol stage, so nothing upstream supplies their bytes). Stdio and
// protocol/profile-ref addresses need no local file.
func stageStdin(addr address.Address, spec planner.PipelineSpec) (io.Reader, func(), error) {
	path := spec.SourceKey
	if path == "" {
		if addr.Kind != address.KindFile {
			return nil, nil, nil
		}
		path = addr.Base
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, jnerr.NewAddressError(path, "failed to open source file", err)
	}
	return f, func() { f.Close() }, nil
}

// Next decodes the next record, returning io.EOF at a clean end of stream.
func (s *source) Next() (record.Record, error) {
	return s.reader.ReadRecord(s.arena)
}

// Close drains the background pipeline to completion and returns its
// first error, if any.
func (s *source) Close() error {
	return s.wait()
}

// sink streams encoded records to one resolved destination address.
type sink struct {
	writer *ndjson.Writer
	wait   func() error
}

// openSink resolves raw into a streaming record destination. A stdio sink
// bypasses the planner entirely and writes NDJSON straight to os.Stdout,
// symmetric to openSource's stdin bypass above.
func openSink(ctx context.Context, raw string, reg *pluginreg.Registry, log *jnlog.Logger) (*sink, error) {
	addr, err := address.Parse(raw)
	if err != nil {
		return nil, err
	}

	if addr.Kind == address.KindStdio {
		return &sink{writer: ndjson.NewWriter(os.Stdout), wait: func() error { return nil }}, nil
	}

	specs, err := planner.Plan(addr, planner.Write, reg)
	if err != nil {
		return nil, err
	}

	return runWriteSpec(ctx, specs[0], nil, log)
}

func runWriteSpec(ctx context.Context, spec planner.PipelineSpec, stdout io.Writer, log *jnlog.Logger) (*sink, error) {
	pr, pw := io.Pipe()
	exec := pipeline.New(log)
	done := make(chan error, 1)
	go func() {
		_, err := exec.Run(ctx, &spec, pr, stdout)
		pr.Close()
		done <- err
	}()

	return &sink{
		writer: ndjson.NewWriter(pw),
		wait: func() error {
			pw.Close()
			return <-done
		},
	}, nil
}

// Write encodes and forwards one record downstream.
func (s *sink) Write(r record.Record) error {
	return s.writer.WriteRecord(r)
}

// Close flushes, signals end of input to the downstream pipeline, and
// waits for it to finish.
func (s *sink) Close() error {
	_ = s.writer.Flush()
	return s.wait()
}
