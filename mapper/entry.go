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
	"runtime"

	"github.com/hashicorp/go-hclog"

	"github.com/exascience/elmap/fastq"
)

// MappingOptions configures one mapping invocation.
type MappingOptions struct {
	Format fastq.Format

	// Arguments are passed to the aligner. If nil, the default
	// arguments of the provider are used.
	Arguments []string

	// Threads defaults to the number of CPUs. It is forced to 1 when
	// MultipleInstances is set.
	Threads int

	// MultipleInstances lets several mapping processes share one index
	// in memory, with one thread each.
	MultipleInstances bool

	// Counter, if not nil, receives one tick per read written, in
	// CounterGroup.
	Counter      Counter
	CounterGroup string

	// StderrFile receives the standard error of the aligner. If empty,
	// it is inherited.
	StderrFile string
}

// EntryMapping is the read-only configuration of a mapping invocation.
type EntryMapping struct {
	instance          *Instance
	indexDir          string
	format            fastq.Format
	arguments         []string
	quality           []string
	threads           int
	multipleInstances bool
	counter           Counter
	counterGroup      string
	stderrFile        string
}

// NewEntryMapping returns a mapping against the unpacked index in
// indexDir.
func (inst *Instance) NewEntryMapping(indexDir string, options MappingOptions) (*EntryMapping, error) {
	p := inst.mapper.provider
	if err := ValidateIndex(indexDir, p.IndexFiles(inst.flavor)); err != nil {
		return nil, newError(IO, inst.name(), err)
	}
	quality, err := p.QualityArguments(inst.flavor, options.Format)
	if err != nil {
		return nil, newError(Configuration, inst.name(), err)
	}
	if options.MultipleInstances && p.MultipleInstancesArguments() == nil {
		return nil, errorf(Configuration, inst.name(), "version %v flavor %v does not support multiple instances", inst.version, inst.flavor)
	}
	threads := options.Threads
	switch {
	case options.MultipleInstances:
		threads = 1
	case threads <= 0:
		threads = runtime.NumCPU()
	}
	arguments := options.Arguments
	if arguments == nil {
		arguments = p.DefaultArguments(inst.flavor)
	}
	return &EntryMapping{
		instance:          inst,
		indexDir:          indexDir,
		format:            options.Format,
		arguments:         append([]string(nil), arguments...),
		quality:           quality,
		threads:           threads,
		multipleInstances: options.MultipleInstances,
		counter:           options.Counter,
		counterGroup:      options.CounterGroup,
		stderrFile:        options.StderrFile,
	}, nil
}

func (em *EntryMapping) Instance() *Instance {
	return em.instance
}

func (em *EntryMapping) IndexDir() string {
	return em.indexDir
}

func (em *EntryMapping) Format() fastq.Format {
	return em.format
}

// Arguments returns a copy of the aligner arguments.
func (em *EntryMapping) Arguments() []string {
	return append([]string(nil), em.arguments...)
}

// QualityArguments returns a copy of the arguments that select the
// quality encoding.
func (em *EntryMapping) QualityArguments() []string {
	return append([]string(nil), em.quality...)
}

func (em *EntryMapping) Threads() int {
	return em.threads
}

func (em *EntryMapping) MultipleInstances() bool {
	return em.multipleInstances
}

func (em *EntryMapping) Logger() hclog.Logger {
	return em.instance.logger
}

func (em *EntryMapping) start(ctx context.Context, p *Process, err error) (*Process, error) {
	if err != nil {
		return nil, err
	}
	if err := p.Start(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

// MapSE starts a single-end mapping of the reads written to the
// returned process.
func (em *EntryMapping) MapSE(ctx context.Context) (*Process, error) {
	p, err := em.instance.mapper.provider.MapSE(em, Input{})
	return em.start(ctx, p, err)
}

// MapPE starts a paired-end mapping of the mates written to the
// returned process.
func (em *EntryMapping) MapPE(ctx context.Context) (*Process, error) {
	p, err := em.instance.mapper.provider.MapPE(em, Input{Paired: true})
	return em.start(ctx, p, err)
}

// MapFileSE starts a single-end mapping of an existing FASTQ file.
func (em *EntryMapping) MapFileSE(ctx context.Context, file string) (*Process, error) {
	p, err := em.instance.mapper.provider.MapSE(em, Input{File1: file})
	return em.start(ctx, p, err)
}

// MapFilePE starts a paired-end mapping of two existing FASTQ files.
func (em *EntryMapping) MapFilePE(ctx context.Context, file1, file2 string) (*Process, error) {
	p, err := em.instance.mapper.provider.MapPE(em, Input{Paired: true, File1: file1, File2: file2})
	return em.start(ctx, p, err)
}
