package pipeline

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jn-toolkit/jn/internal/planner"
)

func shStage(role planner.Role, shape planner.Shape, script string) planner.StageSpec {
	return planner.StageSpec{Command: "sh", Args: []string{"-c", script}, Role: role, Shape: shape}
}

// TestRunTwoStagePipelineConcatenatesThroughPipe reproduces's
// shape: one upstream stage's stdout feeds the next stage's stdin over a
// raw OS pipe, with no in-process buffering of the whole stream.
func TestRunTwoStagePipelineConcatenatesThroughPipe(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX shell assumptions do not hold on Windows")
	}

	spec := &planner.PipelineSpec{Stages: []planner.StageSpec{
		shStage(planner.RoleFormat, planner.ShapeBytesToRecords, `printf 'a\nb\nc\n'`),
		shStage(planner.RoleTransform, planner.ShapeRecordsToRecords, `tr 'a-z' 'A-Z'`),
	}}

	var out bytes.Buffer
	exec := New(nil)
	res, err := exec.Run(context.Background(), spec, nil, &out)
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "A\nB\nC\n", out.String())
}

func TestRunReportsFailingStageStderr(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX shell assumptions do not hold on Windows")
	}

	spec := &planner.PipelineSpec{Stages: []planner.StageSpec{
		shStage(planner.RoleFormat, planner.ShapeBytesToRecords, `echo 'boom' >&2; exit 7`),
	}}

	var out bytes.Buffer
	exec := New(nil)
	res, err := exec.Run(context.Background(), spec, nil, &out)
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 7, res.ExitCode)
	assert.Equal(t, "boom", res.Stages[0].Stderr)
}

// TestRunLeftmostNonSIGPIPEFailureWinsOverRightmostSuccess reproduces
// an earlier non-SIGPIPE failure outranks the rightmost
// child's own exit status.
func TestRunLeftmostNonSIGPIPEFailureWinsOverRightmostSuccess(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX shell assumptions do not hold on Windows")
	}

	spec := &planner.PipelineSpec{Stages: []planner.StageSpec{
		shStage(planner.RoleFormat, planner.ShapeBytesToRecords, `exit 3`),
		shStage(planner.RoleTransform, planner.ShapeRecordsToRecords, `cat; exit 0`),
	}}

	var out bytes.Buffer
	exec := New(nil)
	res, err := exec.Run(context.Background(), spec, nil, &out)
	require.Error(t, err)
	assert.Equal(t, 3, res.ExitCode)
}

func TestRunFileSinkWritesDestination(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX shell assumptions do not hold on Windows")
	}

	dest := filepath.Join(t.TempDir(), "out.txt")
	spec := &planner.PipelineSpec{Stages: []planner.StageSpec{
		shStage(planner.RoleFormat, planner.ShapeBytesToRecords, `printf 'hello\n'`),
		{Command: sinkFile, Args: []string{dest}, Role: planner.RoleSink, Shape: planner.ShapeBytesToBytes},
	}}

	exec := New(nil)
	_, err := exec.Run(context.Background(), spec, nil, nil)
	require.NoError(t, err)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(got))
}

// TestRunSinkOnlySpecPassesThroughWithNoChildren covers a spec that
// resolves to nothing but a sink pseudo-stage (a stdio or file write with
// no format/compression stage ahead of it,): Run must copy
// stdin straight to the sink rather than erroring with "pipeline has no
// stages to spawn".
func TestRunSinkOnlySpecPassesThroughWithNoChildren(t *testing.T) {
	spec := &planner.PipelineSpec{Stages: []planner.StageSpec{
		{Command: sinkStdio, Role: planner.RoleSink, Shape: planner.ShapeRecordsToBytes},
	}}

	in := bytes.NewBufferString(`{"a":1}` + "\n")
	var out bytes.Buffer
	exec := New(nil)
	res, err := exec.Run(context.Background(), spec, in, &out)
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "{\"a\":1}\n", out.String())
}

func TestRunCancellationTerminatesChildren(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX shell assumptions do not hold on Windows")
	}

	spec := &planner.PipelineSpec{Stages: []planner.StageSpec{
		shStage(planner.RoleFormat, planner.ShapeBytesToRecords, `sleep 5; echo done`),
	}}

	ctx, cancel := context.WithCancel(context.Background())
	var out bytes.Buffer
	exec := New(nil)

	done := make(chan struct{})
	go func() {
		exec.Run(ctx, spec, nil, &out)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
	assert.NotContains(t, out.String(), "done")
}
