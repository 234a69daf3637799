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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exascience/elmap/fastq"
)

type namedProvider struct {
	toyProvider
	name string
}

func (p *namedProvider) Name() string { return p.name }

func TestRegistry(t *testing.T) {
	r, err := NewRegistry(&namedProvider{name: "zeta"}, &namedProvider{name: "Alpha"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha", "zeta"}, r.Names())
	p, ok := r.Provider("ALPHA")
	require.True(t, ok)
	assert.Equal(t, "Alpha", p.Name())

	m, err := r.Mapper("zeta", Options{})
	require.NoError(t, err)
	assert.Equal(t, "zeta", m.Name())

	_, err = r.Mapper("omega", Options{})
	assert.True(t, IsKind(err, Configuration))

	_, err = NewRegistry(&namedProvider{name: "dup"}, &namedProvider{name: "DUP"})
	assert.Error(t, err)
}

func TestQualityOptions(t *testing.T) {
	q := QualityOptions{
		Sanger:      []string{"--phred33"},
		Illumina:    []string{"--phred64"},
		Unsupported: []fastq.Format{fastq.Solexa},
	}
	args, err := q.Arguments("toy", fastq.Illumina15)
	require.NoError(t, err)
	assert.Equal(t, []string{"--phred64"}, args)
	args, err = q.Arguments("toy", fastq.Sanger)
	require.NoError(t, err)
	assert.Equal(t, []string{"--phred33"}, args)
	_, err = q.Arguments("toy", fastq.Solexa)
	assert.True(t, IsKind(err, Configuration))

	noIllumina := QualityOptions{Unsupported: []fastq.Format{fastq.Illumina}}
	_, err = noIllumina.Arguments("toy", fastq.Illumina15)
	assert.Error(t, err)
}

func TestErrors(t *testing.T) {
	exit := &ExitError{Mapper: "bwa", Args: []string{"bwa", "mem"}, Code: 17}
	err := newError(Execution, "bwa", exit)
	assert.Equal(t, "bwa: execution error: bwa exited with code 17: bwa mem", err.Error())
	var target *ExitError
	assert.True(t, errors.As(err, &target))
	assert.Same(t, err, newError(IO, "bwa", err))
	assert.Nil(t, newError(IO, "bwa", nil))
	assert.False(t, IsCanceled(err))
	assert.True(t, IsCanceled(&Error{Kind: Canceled, Mapper: "bwa", Err: ErrCanceled}))
}
