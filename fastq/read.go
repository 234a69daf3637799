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

import "fmt"

// Read is one sequencing read.
type Read struct {
	Name     string
	Sequence string
	Quality  string
}

// Validate checks that the read has a name and that its sequence and
// quality strings have the same length.
func (r *Read) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("read without a name")
	}
	if len(r.Sequence) != len(r.Quality) {
		return fmt.Errorf("read %v has a sequence of length %v but a quality string of length %v", r.Name, len(r.Sequence), len(r.Quality))
	}
	return nil
}

// AppendRead appends the 4-line FASTQ representation of the read to
// out and returns the extended slice. The separator line repeats the
// read name.
func AppendRead(out []byte, r *Read) []byte {
	out = append(append(out, '@'), r.Name...)
	out = append(append(out, '\n'), r.Sequence...)
	out = append(append(out, "\n+"...), r.Name...)
	out = append(append(out, '\n'), r.Quality...)
	return append(out, '\n')
}

// String returns the FASTQ representation of the read.
func (r *Read) String() string {
	return string(AppendRead(nil, r))
}
