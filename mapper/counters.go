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

package mapper

import (
	"runtime"
	"sync/atomic"

	"github.com/exascience/pargo/sync"

	"github.com/exascience/elmap/internal"
)

// Counter receives progress ticks. Implementations must be safe for
// concurrent use.
type Counter interface {
	IncrCounter(group, name string, n int64)
}

// ReadsCounter is the counter name that is incremented once per read
// written to a mapping process.
const ReadsCounter = "reads"

type counterKey struct {
	group, name string
}

// Hash implements the method of the pargo sync.Hasher interface.
func (k counterKey) Hash() uint64 {
	return internal.StringsHash(k.group, k.name)
}

// Counters is a concurrent Counter that keeps totals in memory.
type Counters struct {
	counters *sync.Map
}

func NewCounters() *Counters {
	return &Counters{counters: sync.NewMap(runtime.GOMAXPROCS(0))}
}

func (c *Counters) IncrCounter(group, name string, n int64) {
	entry, _ := c.counters.LoadOrStore(counterKey{group, name}, new(int64))
	atomic.AddInt64(entry.(*int64), n)
}

// Get returns the current total of a counter.
func (c *Counters) Get(group, name string) int64 {
	if entry, ok := c.counters.Load(counterKey{group, name}); ok {
		return atomic.LoadInt64(entry.(*int64))
	}
	return 0
}
