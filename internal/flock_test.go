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
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockFileExcludes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bwa.lock")

	var (
		wg      sync.WaitGroup
		mutex   sync.Mutex
		holders int
		maximum int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lock, err := LockFile(path)
			if !assert.NoError(t, err) {
				return
			}
			mutex.Lock()
			holders++
			if holders > maximum {
				maximum = holders
			}
			mutex.Unlock()

			mutex.Lock()
			holders--
			mutex.Unlock()
			assert.NoError(t, lock.Unlock())
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maximum)
	assert.NoFileExists(t, path)
}

func TestLockFileUnlockRemoves(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.lock")
	lock, err := LockFile(path)
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Equal(t, path, lock.Path())
	require.NoError(t, lock.Unlock())
	assert.NoFileExists(t, path)

	lock, err = LockFile(path)
	require.NoError(t, err)
	require.NoError(t, lock.Unlock())
}
