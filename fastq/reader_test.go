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
	"bytes"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoReads = "@r1 first\nACGT\n+\nIIII\n@r2\r\nGG\r\n+r2\r\n#I\r\n"

func TestReader(t *testing.T) {
	r, err := NewReader(strings.NewReader(twoReads))
	require.NoError(t, err)
	require.True(t, r.Next())
	assert.Equal(t, Read{Name: "r1 first", Sequence: "ACGT", Quality: "IIII"}, r.Read())
	require.True(t, r.Next())
	assert.Equal(t, Read{Name: "r2", Sequence: "GG", Quality: "#I"}, r.Read())
	assert.False(t, r.Next())
	assert.NoError(t, r.Err())
}

func TestReaderGzip(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(twoReads))
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	r, err := NewReader(&buf)
	require.NoError(t, err)
	count := 0
	for r.Next() {
		count++
	}
	assert.NoError(t, r.Err())
	assert.Equal(t, 2, count)
}

func TestReaderErrors(t *testing.T) {
	for name, input := range map[string]string{
		"header":    "r1\nACGT\n+\nIIII\n",
		"separator": "@r1\nACGT\n-\nIIII\n",
		"truncated": "@r1\nACGT\n",
		"length":    "@r1\nACGT\n+\nIII\n",
	} {
		t.Run(name, func(t *testing.T) {
			r, err := NewReader(strings.NewReader(input))
			require.NoError(t, err)
			assert.False(t, r.Next())
			assert.Error(t, r.Err())
		})
	}
}

func TestAppendRead(t *testing.T) {
	read := Read{Name: "r1", Sequence: "ACGT", Quality: "IIII"}
	assert.Equal(t, "@r1\nACGT\n+r1\nIIII\n", read.String())
}

func TestParseFormat(t *testing.T) {
	for name, want := range map[string]Format{
		"sanger":         Sanger,
		"FASTQ-SANGER":   Sanger,
		"solexa":         Solexa,
		"illumina-1.3":   Illumina,
		"fastq-illumina": Illumina,
		"illumina-1.5":   Illumina15,
	} {
		got, err := ParseFormat(name)
		assert.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
	_, err := ParseFormat("colorspace")
	assert.Error(t, err)
	assert.Equal(t, 33, Sanger.Offset())
	assert.Equal(t, 64, Illumina15.Offset())
	assert.False(t, Solexa.IsPhred())
	assert.Equal(t, "fastq-solexa", Solexa.String())
}
