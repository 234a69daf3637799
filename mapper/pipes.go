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
	"context"
	"os"

	"github.com/exascience/elmap/internal"
)

// fifoSink is the write end of a named pipe. It is opened on the first
// write, once the consuming process has opened the read end, or on
// Close, so that a consumer of an empty input sees end of file.
type fifoSink struct {
	ctx  context.Context
	path string
	file *os.File
}

func (s *fifoSink) open() error {
	if s.file != nil {
		return nil
	}
	f, err := internal.OpenFifoWriter(s.ctx, s.path)
	if err != nil {
		return err
	}
	s.file = f
	return nil
}

func (s *fifoSink) Write(p []byte) (int, error) {
	if err := s.open(); err != nil {
		return 0, err
	}
	return s.file.Write(p)
}

// Close does not fail for an empty input whose consumer is gone
// without opening it.
func (s *fifoSink) Close() error {
	if s.file == nil {
		if err := s.open(); err != nil {
			if s.ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
	return s.file.Close()
}
