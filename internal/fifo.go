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
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// Mkfifo creates a named pipe at path.
func Mkfifo(path string) error {
	if err := unix.Mkfifo(path, 0600); err != nil {
		return &os.PathError{Op: "mkfifo", Path: path, Err: err}
	}
	return nil
}

const (
	minFifoPoll = time.Millisecond
	maxFifoPoll = 50 * time.Millisecond
)

// OpenFifoWriter opens the write end of the named pipe at path.
//
// A blocking open of a FIFO for writing only returns once a reader has
// opened the other end, and cannot be interrupted. OpenFifoWriter
// instead polls a non-blocking open, which fails with ENXIO as long as
// there is no reader, until it succeeds or ctx is done. The returned
// file is switched back to blocking mode.
func OpenFifoWriter(ctx context.Context, path string) (*os.File, error) {
	poll := minFifoPoll
	for {
		fd, err := unix.Open(path, unix.O_WRONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
		switch err {
		case nil:
			if err := unix.SetNonblock(fd, false); err != nil {
				_ = unix.Close(fd)
				return nil, &os.PathError{Op: "open", Path: path, Err: err}
			}
			return os.NewFile(uintptr(fd), path), nil
		case unix.EINTR:
			continue
		case unix.ENXIO:
		default:
			return nil, &os.PathError{Op: "open", Path: path, Err: err}
		}
		timer := time.NewTimer(poll)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		if poll *= 2; poll > maxFifoPoll {
			poll = maxFifoPoll
		}
	}
}

// IsFifo reports whether path names a named pipe.
func IsFifo(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode()&os.ModeNamedPipe != 0
}
