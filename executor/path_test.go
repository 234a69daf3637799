// elMap: a mapper execution engine for sequencing pipelines.
// Copyright (c) 2026 imec vzw.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version, and Additional Terms
// (see below).

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.

// You should have received a copy of the GNU Affero General Public
// License and Additional Terms along with this program. If not, see
// <https://github.com/ExaScience/elmap/blob/master/LICENSE.txt>.

package executor

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCapture(t *testing.T, e Executor, cmd Cmd) (string, int) {
	t.Helper()
	cmd.Stdout = true
	p, err := e.Execute(context.Background(), cmd)
	require.NoError(t, err)
	require.NotNil(t, p.Stdout())
	out, err := io.ReadAll(p.Stdout())
	require.NoError(t, err)
	require.NoError(t, p.Stdout().Close())
	code, err := p.Wait()
	require.NoError(t, err)
	return string(out), code
}

func TestPathIsExecutable(t *testing.T) {
	e := NewPath()
	assert.True(t, e.IsExecutable("sh"))
	assert.False(t, e.IsExecutable("elmap-no-such-binary"))
	name, err := e.Install("sh")
	require.NoError(t, err)
	assert.Equal(t, "sh", name)
}

func TestPathExitCode(t *testing.T) {
	out, code := runCapture(t, NewPath(), Cmd{Args: []string{"sh", "-c", "echo hello; exit 3"}})
	assert.Equal(t, "hello\n", out)
	assert.Equal(t, 3, code)
}

func TestPathStdoutFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "out.txt")
	p, err := NewPath().Execute(context.Background(), Cmd{
		Args:       []string{"sh", "-c", "echo redirected"},
		StdoutFile: file,
	})
	require.NoError(t, err)
	assert.Nil(t, p.Stdout())
	code, err := p.Wait()
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, "redirected\n", string(data))
}

func TestPathStderr(t *testing.T) {
	out, code := runCapture(t, NewPath(), Cmd{
		Args:           []string{"sh", "-c", "echo merged >&2"},
		StderrToStdout: true,
	})
	assert.Equal(t, "merged\n", out)
	assert.Equal(t, 0, code)

	file := filepath.Join(t.TempDir(), "err.txt")
	out, code = runCapture(t, NewPath(), Cmd{
		Args:       []string{"sh", "-c", "echo out; echo err >&2"},
		StderrFile: file,
	})
	assert.Equal(t, "out\n", out)
	assert.Equal(t, 0, code)
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, "err\n", string(data))
}

func TestPathDir(t *testing.T) {
	dir := t.TempDir()
	out, _ := runCapture(t, NewPath(), Cmd{Args: []string{"sh", "-c", "pwd -P"}, Dir: dir})
	resolved, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	assert.Equal(t, resolved+"\n", out)
}

func TestPathSignal(t *testing.T) {
	_, code := runCapture(t, NewPath(), Cmd{Args: []string{"sh", "-c", "kill -9 $$"}})
	assert.Equal(t, -1, code)
}

func TestPathCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p, err := NewPath().Execute(ctx, Cmd{Args: []string{"sleep", "30"}})
	require.NoError(t, err)
	cancel()
	code, err := p.Wait()
	require.NoError(t, err)
	assert.Equal(t, -1, code)
}

func TestEmptyCommand(t *testing.T) {
	_, err := NewPath().Execute(context.Background(), Cmd{})
	assert.Error(t, err)
}

func TestParseKind(t *testing.T) {
	for name, kind := range map[string]Kind{
		"":          Bundled,
		"bundled":   Bundled,
		"PATH":      Path,
		"system":    Path,
		"container": Container,
		"docker":    Container,
	} {
		k, err := ParseKind(name)
		require.NoError(t, err, name)
		assert.Equal(t, kind, k, name)
	}
	_, err := ParseKind("cloud")
	assert.Error(t, err)
	assert.Equal(t, "container", Container.String())
}

func TestNew(t *testing.T) {
	e, err := New(Path, Config{})
	require.NoError(t, err)
	assert.IsType(t, &PathExecutor{}, e)

	_, err = New(Bundled, Config{Package: "bwa", Version: "0.7.17"})
	assert.Error(t, err)
	_, err = New(Container, Config{})
	assert.Error(t, err)

	e, err = New(Container, Config{Image: "elmap/bwa:0.7.17"})
	require.NoError(t, err)
	assert.Equal(t, "elmap/bwa:0.7.17", e.(*ContainerExecutor).Image())
}
