package pluginreg

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeExecutable(t *testing.T, path, script string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
}

func TestClassifyNativeValidMeta(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX shell assumptions do not hold on Windows")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "csvplug")
	writeExecutable(t, path, "#!/bin/sh\necho '{\"name\":\"csvplug\",\"patterns\":[\"*.csv\"],\"modes\":[\"read\",\"write\"]}'\n")

	s := NewScanner(nil)
	rec, err := s.classifyNative(context.Background(), path, TierProject, 0)
	require.NoError(t, err)
	assert.Equal(t, "csvplug", rec.Name)
	assert.True(t, rec.SupportsMode(ModeRead))
	assert.True(t, rec.SupportsMode(ModeWrite))
	assert.False(t, rec.SupportsMode(ModeRaw))
}

func TestClassifyNativeNonzeroExitDropped(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX shell assumptions do not hold on Windows")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "broken")
	writeExecutable(t, path, "#!/bin/sh\nexit 1\n")

	s := NewScanner(nil)
	_, err := s.classifyNative(context.Background(), path, TierProject, 0)
	require.Error(t, err)
}

func TestClassifyNativeInvalidJSONDropped(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX shell assumptions do not hold on Windows")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "notjson")
	writeExecutable(t, path, "#!/bin/sh\necho 'not json'\n")

	s := NewScanner(nil)
	_, err := s.classifyNative(context.Background(), path, TierProject, 0)
	require.Error(t, err)
}

func TestClassifyNativeMissingFieldsDropped(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX shell assumptions do not hold on Windows")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "incomplete")
	writeExecutable(t, path, "#!/bin/sh\necho '{\"name\":\"x\"}'\n")

	s := NewScanner(nil)
	_, err := s.classifyNative(context.Background(), path, TierProject, 0)
	require.Error(t, err)
}

func TestClassifyScriptedInlineMetadata(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "script.py")
	contents := "#!/usr/bin/env python3\n" +
		"# jn:meta:begin\n" +
		"# {\"name\": \"pyplug\", \"patterns\": [\"*.xml\"], \"modes\": [\"read\"]}\n" +
		"# jn:meta:end\n" +
		"print('hello')\n"
	writeExecutable(t, path, contents)

	rec, err := classifyScripted(path, TierUser, 123)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "pyplug", rec.Name)
	assert.Equal(t, KindScripted, rec.Kind)
	assert.Equal(t, TierUser, rec.Tier)
}

func TestClassifyScriptedNoMetadataBlockSkipped(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plain.sh")
	writeExecutable(t, path, "#!/bin/sh\necho hi\n")

	rec, err := classifyScripted(path, TierUser, 0)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestClassifyScriptedUnterminatedBlockErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.sh")
	writeExecutable(t, path, "# jn:meta:begin\n# {\"name\": \"x\"}\n")

	_, err := classifyScripted(path, TierUser, 0)
	require.Error(t, err)
}

func TestScanSkipsUnreadableDirectoryWithoutAborting(t *testing.T) {
	s := NewScanner(nil)
	// A directory that doesn't exist should just produce no records, not
	// an error or panic.
	got := s.scanDir(context.Background(), dirTier{dir: "/nonexistent/path/for/test", tier: TierSystem}, KindNative)
	assert.Nil(t, got)
}
