// Package pipeline implements the process pipeline executor:
// it spawns a planner.PipelineSpec's stages as a chain of
// OS processes wired stdout->stdin with raw pipes, the only concurrency
// anywhere in the module besides the children themselves.
//
// Follows a context.WithCancel / sync.WaitGroup-parallel-children /
// single-first-error-winner shape for running and capturing stderr from
// child processes, extended here to own a *chain* of piped commands
// rather than a single command.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"github.com/jn-toolkit/jn/internal/jnerr"
	"github.com/jn-toolkit/jn/internal/jnlog"
	"github.com/jn-toolkit/jn/internal/planner"
)

// Executor spawns a PipelineSpec's StageSpec chain and waits for it to
// complete.
type Executor struct {
	Log *jnlog.Logger
}

// New constructs an Executor.
func New(log *jnlog.Logger) *Executor {
	return &Executor{Log: log}
}

// Run spawns spec's real stages (skipping planner's sink pseudo-commands,
// which this package resolves directly instead of exec'ing), wiring
// stdin to the first stage and stdout to the last. Either may be nil:
// a nil stdin leaves the first child's stdin at /dev/null, a nil stdout
// is only valid when the pipeline resolves its own sink (format "-" or
// "file"). A spec that resolves to nothing but a sink pseudo-stage (a
// stdio or file write with no format/compression stage ahead of it)
// spawns no children at all: Run copies stdin straight to
// the resolved sink instead of erroring.
func (e *Executor) Run(ctx context.Context, spec *planner.PipelineSpec, stdin io.Reader, stdout io.Writer) (*Result, error) {
	stages := spec.Stages
	if len(stages) == 0 {
		return nil, jnerr.NewExecError(0, "", "", fmt.Errorf("empty pipeline"))
	}

	finalWriter := stdout
	real := stages
	if last := stages[len(stages)-1]; last.Command == sinkStdio || last.Command == sinkFile {
		real = stages[:len(stages)-1]
		if last.Command == sinkFile {
			if len(last.Args) == 0 {
				return nil, jnerr.NewExecError(len(stages)-1, sinkFile, "", fmt.Errorf("file sink missing destination path"))
			}
			f, err := os.OpenFile(last.Args[0], os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
			if err != nil {
				return nil, jnerr.NewExecError(len(stages)-1, sinkFile, "", err)
			}
			defer f.Close()
			finalWriter = f
		}
	}
	if len(real) == 0 {
		if finalWriter == nil {
			finalWriter = io.Discard
		}
		if stdin == nil {
			stdin = bytes.NewReader(nil)
		}
		if _, err := io.Copy(finalWriter, stdin); err != nil {
			return nil, jnerr.NewExecError(0, stages[len(stages)-1].Command, "", err)
		}
		return &Result{ExitCode: 0}, nil
	}
	if finalWriter == nil {
		finalWriter = io.Discard
	}

	cmds, stderrs, internalPipes, err := buildChain(ctx, real, stdin, finalWriter)
	if err != nil {
		return nil, err
	}

	if err := startChain(cmds); err != nil {
		e.Log.With(map[string]any{"error": err}).Warn("pipeline spawn failed")
		return nil, err
	}
	// Parent's copies of the internal pipe fds must close now: the
	// children hold their own (duplicated at exec), and closing ours is
	// what lets SIGPIPE propagate correctly when a downstream stage
	// exits first.
	for _, f := range internalPipes {
		f.Close()
	}

	results := waitChain(ctx, cmds, stderrs)

	winner := aggregate(results)
	res := &Result{ExitCode: winner.ExitCode, Stages: results}
	if winner.ExitCode != 0 && !winner.isSIGPIPE() {
		return res, jnerr.NewExecError(winner.Index, winner.Command, winner.Stderr, nil)
	}
	return res, nil
}

func buildChain(ctx context.Context, stages []planner.StageSpec, stdin io.Reader, stdout io.Writer) ([]*exec.Cmd, []*bytes.Buffer, []*os.File, error) {
	n := len(stages)
	cmds := make([]*exec.Cmd, n)
	stderrs := make([]*bytes.Buffer, n)

	for i, st := range stages {
		cmd := exec.CommandContext(ctx, st.Command, st.Args...)
		buf := &bytes.Buffer{}
		cmd.Stderr = buf
		cmds[i] = cmd
		stderrs[i] = buf
	}
	cmds[0].Stdin = stdin
	cmds[n-1].Stdout = stdout

	var internalPipes []*os.File
	for i := 0; i < n-1; i++ {
		r, w, err := os.Pipe()
		if err != nil {
			return nil, nil, nil, jnerr.NewExecError(i, cmds[i].Path, "", fmt.Errorf("failed to create pipe between stage %d and %d: %w", i, i+1, err))
		}
		cmds[i].Stdout = w
		cmds[i+1].Stdin = r
		internalPipes = append(internalPipes, r, w)
	}
	return cmds, stderrs, internalPipes, nil
}

func startChain(cmds []*exec.Cmd) error {
	for i, cmd := range cmds {
		if err := cmd.Start(); err != nil {
			killAll(cmds[:i])
			return jnerr.NewExecError(i, cmd.Path, "", fmt.Errorf("spawn failed: %w", err))
		}
	}
	return nil
}

func waitChain(ctx context.Context, cmds []*exec.Cmd, stderrs []*bytes.Buffer) []StageResult {
	results := make([]StageResult, len(cmds))
	var wg sync.WaitGroup
	wg.Add(len(cmds))
	for i, cmd := range cmds {
		go func(i int, cmd *exec.Cmd) {
			defer wg.Done()
			err := cmd.Wait()
			results[i] = buildStageResult(i, cmd.Path, stderrs[i], err)
		}(i, cmd)
	}

	waitDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(waitDone)
	}()

	select {
	case <-ctx.Done():
		terminateRightToLeft(cmds)
		<-waitDone
	case <-waitDone:
	}
	return results
}

// terminateRightToLeft signals SIGTERM from the last stage to the
// first, so upstream writers observe broken pipes naturally as each
// downstream reader disappears.
func terminateRightToLeft(cmds []*exec.Cmd) {
	for i := len(cmds) - 1; i >= 0; i-- {
		if cmds[i].Process != nil {
			cmds[i].Process.Signal(syscall.SIGTERM)
		}
	}
}

func killAll(cmds []*exec.Cmd) {
	for _, cmd := range cmds {
		if cmd.Process != nil {
			cmd.Process.Kill()
		}
	}
}
