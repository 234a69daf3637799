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
	"path"
	"runtime"
	gosync "sync"

	"github.com/exascience/pargo/sync"

	"github.com/exascience/elmap/internal"
)

type binaryKey struct {
	pkg, version, name string
}

// Hash implements the method of the pargo sync.Hasher interface.
func (k binaryKey) Hash() uint64 {
	return internal.StringsHash(k.pkg, k.version, k.name)
}

func (k binaryKey) String() string {
	return path.Join(k.pkg, k.version, k.name)
}

// installLocks holds one mutex per binary identity for the lifetime of
// the process, shared by all executors, so that two executors for the
// same binary never extract it concurrently.
var installLocks = sync.NewMap(16 * runtime.GOMAXPROCS(0))

func installLock(key binaryKey) *gosync.Mutex {
	entry, _ := installLocks.LoadOrStore(key, new(gosync.Mutex))
	return entry.(*gosync.Mutex)
}
