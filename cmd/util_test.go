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

package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withArgs(t *testing.T, args ...string) {
	t.Helper()
	saved := os.Args
	os.Args = append([]string{"elmap"}, args...)
	t.Cleanup(func() { os.Args = saved })
}

func TestPositionalArgs(t *testing.T) {
	withArgs(t, "map", "reads_1.fq", "reads_2.fq", "out.sam", "--mapper", "bwa")
	assert.Equal(t, []string{"reads_1.fq", "reads_2.fq", "out.sam"}, positionalArgs(2, 3, MapHelp))

	withArgs(t, "map", "reads.fq", "out.sam", "--mapper", "bwa")
	assert.Equal(t, []string{"reads.fq", "out.sam"}, positionalArgs(2, 3, MapHelp))

	withArgs(t, "index", "genome.fa", "genome.zip", "extra")
	assert.Equal(t, []string{"genome.fa", "genome.zip"}, positionalArgs(2, 2, IndexHelp))
}

func TestCheckFiles(t *testing.T) {
	logger = hclog.NewNullLogger()
	dir := t.TempDir()
	existing := filepath.Join(dir, "existing")
	require.NoError(t, os.WriteFile(existing, nil, 0644))

	assert.True(t, checkExist("", existing))
	assert.False(t, checkExist("--index", filepath.Join(dir, "missing")))
	assert.False(t, checkExist("--index", ""))
	assert.False(t, checkExist("--index", "--mapper"))

	created := filepath.Join(dir, "sub", "out.sam")
	assert.True(t, checkCreate("", created))
	assert.NoFileExists(t, created)
	assert.DirExists(t, filepath.Dir(created))
	assert.True(t, checkCreate("", existing))
	assert.False(t, checkCreate("", ""))
}

func TestExpandPath(t *testing.T) {
	home, err := homedir.Dir()
	require.NoError(t, err)
	path, err := expandPath("~/elmap")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "elmap"), path)

	path, err = expandPath("")
	require.NoError(t, err)
	assert.Empty(t, path)

	wd, err := os.Getwd()
	require.NoError(t, err)
	path, err = expandPath("tmp")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(wd, "tmp"), path)
}

func TestLogLevel(t *testing.T) {
	logger = hclog.New(&hclog.LoggerOptions{Output: hclog.DefaultOutput, Level: hclog.Info})
	assert.True(t, setLogLevel(""))
	assert.True(t, setLogLevel("debug"))
	assert.True(t, logger.IsDebug())
	assert.False(t, setLogLevel("loud"))

	t.Setenv(EnvLogLevel, "warn")
	assert.Equal(t, hclog.Warn, levelFromEnv())
	t.Setenv(EnvLogLevel, "")
	assert.Equal(t, hclog.Info, levelFromEnv())
}

func TestEnvDefault(t *testing.T) {
	t.Setenv(EnvExecutor, "")
	assert.Equal(t, "path", envDefault(EnvExecutor, "path"))
	t.Setenv(EnvExecutor, "container")
	assert.Equal(t, "container", envDefault(EnvExecutor, "path"))
}
