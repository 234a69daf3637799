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

package sam

import (
	"bufio"
	"bytes"
	"io"
)

// SkipHeader skips the header lines of a SAM stream and returns how
// many lines it skipped.
func SkipHeader(reader *bufio.Reader) (lines int, err error) {
	for {
		data, err := reader.Peek(1)
		if err != nil {
			if err == io.EOF {
				return lines, nil
			}
			return lines, err
		}
		if data[0] != '@' {
			return lines, nil
		}
		if _, err := reader.ReadSlice('\n'); err != nil {
			for err == bufio.ErrBufferFull {
				_, err = reader.ReadSlice('\n')
			}
			if err != nil {
				if err == io.EOF {
					return lines + 1, nil
				}
				return lines, err
			}
		}
		lines++
	}
}

// CountAlignments counts the alignment lines of a SAM stream, that is
// the non-empty lines that are not header lines.
func CountAlignments(r io.Reader) (alignments int64, err error) {
	c := &Counter{}
	_, err = io.Copy(c, r)
	return c.Alignments(), err
}

// Counter is an io.Writer that counts the alignment lines of the SAM
// data written to it, and copies the data to W if W is not nil.
type Counter struct {
	W io.Writer

	alignments int64
	headers    int64
	midLine    bool
}

func (c *Counter) count(p []byte) {
	for len(p) > 0 {
		if !c.midLine {
			switch p[0] {
			case '\n':
				p = p[1:]
				continue
			case '@':
				c.headers++
			default:
				c.alignments++
			}
			c.midLine = true
		}
		i := bytes.IndexByte(p, '\n')
		if i < 0 {
			return
		}
		c.midLine = false
		p = p[i+1:]
	}
}

func (c *Counter) Write(p []byte) (int, error) {
	if c.W != nil {
		n, err := c.W.Write(p)
		c.count(p[:n])
		return n, err
	}
	c.count(p)
	return len(p), nil
}

// Alignments returns the number of alignment lines seen so far.
func (c *Counter) Alignments() int64 {
	return c.alignments
}

// Headers returns the number of header lines seen so far.
func (c *Counter) Headers() int64 {
	return c.headers
}
