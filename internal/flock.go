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
	"os"

	"golang.org/x/sys/unix"
)

// FileLock is an exclusive advisory lock on a lock file, shared between
// independent processes.
type FileLock struct {
	file *os.File
	path string
}

// LockFile creates the lock file at path if needed and blocks until it
// holds an exclusive lock on it.
//
// Unlock removes the lock file. A process that opened the file before
// it was removed may then end up locking an unlinked inode, so after
// acquiring the lock LockFile checks that path still refers to the
// locked file, and starts over otherwise.
func LockFile(path string) (*FileLock, error) {
	for {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
		if err != nil {
			return nil, err
		}
		if err = flock(f, unix.LOCK_EX); err != nil {
			_ = f.Close()
			return nil, &os.PathError{Op: "flock", Path: path, Err: err}
		}
		var locked, current unix.Stat_t
		if err = unix.Fstat(int(f.Fd()), &locked); err != nil {
			_ = f.Close()
			return nil, &os.PathError{Op: "fstat", Path: path, Err: err}
		}
		if err = unix.Stat(path, &current); err == nil && locked.Dev == current.Dev && locked.Ino == current.Ino {
			return &FileLock{file: f, path: path}, nil
		}
		_ = f.Close()
	}
}

func flock(f *os.File, how int) error {
	for {
		if err := unix.Flock(int(f.Fd()), how); err != unix.EINTR {
			return err
		}
	}
}

// Path returns the name of the lock file.
func (l *FileLock) Path() string {
	return l.path
}

// Unlock removes the lock file and releases the lock.
func (l *FileLock) Unlock() error {
	rerr := os.Remove(l.path)
	if err := flock(l.file, unix.LOCK_UN); err != nil {
		_ = l.file.Close()
		return &os.PathError{Op: "flock", Path: l.path, Err: err}
	}
	if err := l.file.Close(); err != nil {
		return err
	}
	if rerr != nil && !os.IsNotExist(rerr) {
		return rerr
	}
	return nil
}
