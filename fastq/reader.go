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

package fastq

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
)

// Reader splits a FASTQ stream into reads.
type Reader struct {
	buf  *bufio.Reader
	read Read
	line int
	err  error
}

// NewReader returns a Reader for r. Gzip and BGZF compressed input is
// detected from its first bytes and decompressed transparently.
func NewReader(r io.Reader) (*Reader, error) {
	buf := bufio.NewReader(r)
	magic, err := buf.Peek(2)
	if err != nil && err != io.EOF {
		return nil, err
	}
	if len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(buf)
		if err != nil {
			return nil, err
		}
		buf = bufio.NewReader(gz)
	}
	return &Reader{buf: buf}, nil
}

func (r *Reader) readLine() ([]byte, bool) {
	line, err := r.buf.ReadSlice('\n')
	if err == bufio.ErrBufferFull {
		full := append([]byte(nil), line...)
		for err == bufio.ErrBufferFull {
			line, err = r.buf.ReadSlice('\n')
			full = append(full, line...)
		}
		line = full
	}
	switch {
	case err == io.EOF && len(line) == 0:
		return nil, false
	case err != nil && err != io.EOF:
		r.err = err
		return nil, false
	}
	r.line++
	line = bytes.TrimRight(line, "\r\n")
	return line, true
}

// Next advances to the next read, which is then available through
// Read. It returns false at the end of the input or after an error.
func (r *Reader) Next() bool {
	if r.err != nil {
		return false
	}
	var header []byte
	for {
		line, ok := r.readLine()
		if !ok {
			return false
		}
		if len(line) > 0 {
			header = line
			break
		}
	}
	if header[0] != '@' {
		r.err = fmt.Errorf("invalid FASTQ record header in line %v: %q", r.line, header)
		return false
	}
	name := string(header[1:])
	seq, ok := r.readLine()
	if !ok {
		return r.truncated(name)
	}
	plus, ok := r.readLine()
	if !ok {
		return r.truncated(name)
	}
	if len(plus) == 0 || plus[0] != '+' {
		r.err = fmt.Errorf("invalid FASTQ separator in line %v for read %v", r.line, name)
		return false
	}
	qual, ok := r.readLine()
	if !ok {
		return r.truncated(name)
	}
	r.read = Read{Name: name, Sequence: string(seq), Quality: string(qual)}
	if err := r.read.Validate(); err != nil {
		r.err = fmt.Errorf("%v in line %v", err, r.line)
		return false
	}
	return true
}

func (r *Reader) truncated(name string) bool {
	if r.err == nil {
		r.err = fmt.Errorf("truncated FASTQ record for read %v", name)
	}
	return false
}

// Read returns the read found by the last call to Next.
func (r *Reader) Read() Read {
	return r.read
}

// Err returns the first error encountered by Next.
func (r *Reader) Err() error {
	return r.err
}

// File is a Reader on an open FASTQ file.
type File struct {
	*Reader
	file *os.File
}

// Open opens the named FASTQ file for reading.
func Open(name string) (*File, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	r, err := NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%v: %w", name, err)
	}
	return &File{Reader: r, file: f}, nil
}

// Close closes the underlying file.
func (f *File) Close() error {
	return f.file.Close()
}
