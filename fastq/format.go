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
	"fmt"
	"strings"
)

// Format is the quality encoding of a FASTQ file.
type Format int

// Quality encodings.
const (
	// Sanger uses Phred scores with ASCII offset 33.
	Sanger Format = iota
	// Solexa uses Solexa scores with ASCII offset 64.
	Solexa
	// Illumina is Illumina 1.3+, Phred scores with ASCII offset 64.
	Illumina
	// Illumina15 is Illumina 1.5+, like Illumina 1.3+ but with a
	// special meaning for quality 2.
	Illumina15
)

var formatNames = map[string]Format{
	"sanger":             Sanger,
	"fastq-sanger":       Sanger,
	"phred33":            Sanger,
	"illumina-1.8":       Sanger,
	"solexa":             Solexa,
	"fastq-solexa":       Solexa,
	"illumina":           Illumina,
	"illumina-1.3":       Illumina,
	"fastq-illumina":     Illumina,
	"phred64":            Illumina,
	"illumina-1.5":       Illumina15,
	"fastq-illumina-1.5": Illumina15,
}

// ParseFormat converts the name of a quality encoding into a Format.
// Names are case insensitive.
func ParseFormat(name string) (Format, error) {
	if f, ok := formatNames[strings.ToLower(strings.TrimSpace(name))]; ok {
		return f, nil
	}
	return Sanger, fmt.Errorf("unknown FASTQ format %q", name)
}

func (f Format) String() string {
	switch f {
	case Sanger:
		return "fastq-sanger"
	case Solexa:
		return "fastq-solexa"
	case Illumina:
		return "fastq-illumina"
	case Illumina15:
		return "fastq-illumina-1.5"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// Offset returns the ASCII offset of quality characters.
func (f Format) Offset() int {
	if f == Sanger {
		return 33
	}
	return 64
}

// IsPhred reports whether qualities are Phred scores, which holds for
// every encoding except Solexa.
func (f Format) IsPhred() bool {
	return f != Solexa
}
