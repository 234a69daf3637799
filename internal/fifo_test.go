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

package internal

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenFifoWriterWaitsForReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reads.fq")
	require.NoError(t, Mkfifo(path))
	assert.True(t, IsFifo(path))

	got := make(chan []byte, 1)
	go func() {
		time.Sleep(20 * time.Millisecond)
		f, err := os.Open(path)
		if err != nil {
			got <- nil
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		got <- data
	}()

	w, err := OpenFifoWriter(context.Background(), path)
	require.NoError(t, err)
	_, err = w.WriteString("@r1\nACGT\n+r1\nIIII\n")
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.Equal(t, "@r1\nACGT\n+r1\nIIII\n", string(<-got))
}

func TestOpenFifoWriterCanceled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reads.fq")
	require.NoError(t, Mkfifo(path))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := OpenFifoWriter(ctx, path)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestOpenFifoWriterMissing(t *testing.T) {
	_, err := OpenFifoWriter(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRemoveFiles(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.sai")
	sub := filepath.Join(dir, "star")
	require.NoError(t, os.WriteFile(file, nil, 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(sub, "tmp"), 0755))

	failed, errs := RemoveFiles([]string{file, sub, filepath.Join(dir, "never-created")})
	assert.Empty(t, failed)
	assert.Empty(t, errs)
	assert.NoFileExists(t, file)
	assert.NoDirExists(t, sub)
}

func TestFilesWithSuffix(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"genome.1.bt2", "genome.rev.1.bt2", "genome.fa"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
	}
	files, err := FilesWithSuffix(dir, ".rev.1.bt2")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "genome.rev.1.bt2")}, files)
}
