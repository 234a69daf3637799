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

package aligners

import (
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exascience/elmap/executor"
	"github.com/exascience/elmap/fastq"
	"github.com/exascience/elmap/internal"
	"github.com/exascience/elmap/mapper"
)

var flavors = map[string][]string{
	"bowtie":   {Standard, LargeIndex},
	"bowtie2":  {Standard, LargeIndex},
	"bwa":      {Aln, Mem},
	"star":     {Standard, Long},
	"minimap2": {Standard},
}

// fakeBundle contains a do-nothing script for every executable of
// every provider.
func fakeBundle() fstest.MapFS {
	bundle := fstest.MapFS{}
	script := &fstest.MapFile{Data: []byte("#!/bin/sh\nexit 0\n"), Mode: 0755}
	for _, p := range Providers() {
		dir := path.Join(p.Name(), p.DefaultVersion(), runtime.GOOS, runtime.GOARCH)
		for _, flavor := range flavors[p.Name()] {
			for _, name := range append(p.IndexerExecutables(flavor), p.MapperExecutable(flavor)) {
				bundle[path.Join(dir, name)] = script
			}
		}
	}
	return bundle
}

// fakeIndex creates empty files for the index of a provider flavor.
func fakeIndex(t *testing.T, p mapper.Provider, flavor string) string {
	dir := t.TempDir()
	for _, suffix := range p.IndexFiles(flavor) {
		name := suffix
		if strings.HasPrefix(suffix, ".") {
			name = "genome" + suffix
		}
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
	}
	return dir
}

type env struct {
	tempDir  string
	registry *mapper.Registry
	options  mapper.Options
}

func newEnv(t *testing.T) *env {
	r, err := NewRegistry()
	require.NoError(t, err)
	tempDir := t.TempDir()
	return &env{
		tempDir:  tempDir,
		registry: r,
		options: mapper.Options{
			TempDir:   tempDir,
			Resources: fakeBundle(),
			Logger:    hclog.NewNullLogger(),
		},
	}
}

func (e *env) mapping(t *testing.T, name, flavor string, options mapper.MappingOptions) *mapper.EntryMapping {
	t.Helper()
	m, err := e.registry.Mapper(name, e.options)
	require.NoError(t, err)
	inst, err := m.NewInstance("", flavor, executor.Bundled)
	require.NoError(t, err)
	em, err := inst.NewEntryMapping(fakeIndex(t, m.Provider(), inst.Flavor()), options)
	require.NoError(t, err)
	return em
}

func TestRegistry(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)
	assert.Equal(t, []string{"bowtie", "bowtie2", "bwa", "minimap2", "star"}, r.Names())
}

func TestCommandLinesUseInstalledExecutables(t *testing.T) {
	e := newEnv(t)
	installDir := filepath.Join(e.tempDir, "elmap-binaries")
	for _, p := range Providers() {
		for _, flavor := range flavors[p.Name()] {
			em := e.mapping(t, p.Name(), flavor, mapper.MappingOptions{Threads: 4})
			for _, paired := range []bool{false, true} {
				var proc *mapper.Process
				var err error
				if paired {
					proc, err = p.MapPE(em, mapper.Input{Paired: true})
				} else {
					proc, err = p.MapSE(em, mapper.Input{})
				}
				require.NoError(t, err, "%v %v", p.Name(), flavor)
				lines := proc.CommandLines()
				require.NotEmpty(t, lines)
				for _, line := range lines {
					assert.True(t, strings.HasPrefix(line[0], installDir), "%v %v: %v", p.Name(), flavor, line[0])
					assert.True(t, internal.IsExecutableFile(line[0]), "%v %v: %v", p.Name(), flavor, line[0])
				}
				last := lines[len(lines)-1]
				assert.Contains(t, last, proc.Layout().Input1)
				if paired {
					assert.Contains(t, last, proc.Layout().Input2)
				}
				proc.Cancel()
			}
		}
	}
	leftovers, err := filepath.Glob(filepath.Join(e.tempDir, "elmap-*-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestBWAAlnPairedEnd(t *testing.T) {
	e := newEnv(t)
	for threads, alnThreads := range map[int]string{4: "2", 1: "1"} {
		em := e.mapping(t, "bwa", Aln, mapper.MappingOptions{Threads: threads})
		p, err := BWA{}.MapPE(em, mapper.Input{Paired: true})
		require.NoError(t, err)
		commands := p.Commands()
		require.Len(t, commands, 3)
		l := p.Layout()
		prefix := filepath.Join(em.IndexDir(), "genome")
		inputs := []string{l.Input1, l.Input2}
		for i := 0; i < 2; i++ {
			assert.Equal(t, []string{"aln", "-t", alnThreads, prefix, inputs[i]}, commands[i].Args[1:])
			assert.True(t, strings.HasSuffix(commands[i].StdoutFile, ".sai"))
			assert.False(t, commands[i].Barrier)
		}
		assert.NotEqual(t, commands[0].StdoutFile, commands[1].StdoutFile)
		assert.Equal(t, []string{"sampe", prefix, commands[0].StdoutFile, commands[1].StdoutFile, l.Input1, l.Input2}, commands[2].Args[1:])
		assert.True(t, commands[2].Barrier)
		assert.Empty(t, commands[2].StdoutFile)
		p.Cancel()
	}
}

func TestBWAAlnSingleEnd(t *testing.T) {
	e := newEnv(t)
	em := e.mapping(t, "bwa", Aln, mapper.MappingOptions{Threads: 4, Format: fastq.Illumina})
	p, err := BWA{}.MapSE(em, mapper.Input{})
	require.NoError(t, err)
	commands := p.Commands()
	require.Len(t, commands, 2)
	prefix := filepath.Join(em.IndexDir(), "genome")
	input := p.Layout().Input1
	assert.Equal(t, []string{"aln", "-t", "4", "-I", prefix, input}, commands[0].Args[1:])
	assert.Equal(t, []string{"samse", prefix, commands[0].StdoutFile, input}, commands[1].Args[1:])
	assert.True(t, commands[1].Barrier)
	p.Cancel()
}

func TestAlnThreads(t *testing.T) {
	assert.Equal(t, 2, AlnThreads(4, true))
	assert.Equal(t, 2, AlnThreads(5, true))
	assert.Equal(t, 1, AlnThreads(1, true))
	assert.Equal(t, 4, AlnThreads(4, false))
	assert.Equal(t, 1, AlnThreads(0, false))
}

func TestBWAMem(t *testing.T) {
	e := newEnv(t)
	em := e.mapping(t, "bwa", "", mapper.MappingOptions{Threads: 3, Arguments: []string{"-M"}})
	p, err := BWA{}.MapPE(em, mapper.Input{Paired: true})
	require.NoError(t, err)
	l := p.Layout()
	assert.Equal(t, [][]string{{p.CommandLines()[0][0], "mem", "-t", "3", "-M", filepath.Join(em.IndexDir(), "genome"), l.Input1, l.Input2}}, p.CommandLines())
	p.Cancel()
}

func TestSTAR(t *testing.T) {
	e := newEnv(t)
	em := e.mapping(t, "star", Long, mapper.MappingOptions{Threads: 8, MultipleInstances: true})
	input := filepath.Join(t.TempDir(), "reads.fq")
	p, err := STAR{}.MapSE(em, mapper.Input{File1: input})
	require.NoError(t, err)
	line := p.CommandLines()[0]
	assert.Equal(t, "STARlong", filepath.Base(line[0]))
	joined := strings.Join(line, " ")
	assert.Contains(t, joined, "--runThreadN 1")
	assert.Contains(t, joined, "--genomeLoad LoadAndKeep")
	assert.Contains(t, joined, "--genomeDir "+em.IndexDir())
	assert.Contains(t, joined, "--readFilesIn "+input)
	dir := p.Layout().Dir
	assert.DirExists(t, dir)
	p.Cancel()
	assert.NoDirExists(t, dir)
}

func TestQualityConfiguration(t *testing.T) {
	e := newEnv(t)
	for _, c := range []struct {
		name, flavor string
		format       fastq.Format
	}{
		{"bwa", Mem, fastq.Illumina},
		{"bwa", Aln, fastq.Solexa},
		{"star", Standard, fastq.Solexa},
	} {
		m, err := e.registry.Mapper(c.name, e.options)
		require.NoError(t, err)
		inst, err := m.NewInstance("", c.flavor, executor.Bundled)
		require.NoError(t, err)
		_, err = inst.NewEntryMapping(fakeIndex(t, m.Provider(), c.flavor), mapper.MappingOptions{Format: c.format})
		assert.True(t, mapper.IsKind(err, mapper.Configuration), "%v %v %v", c.name, c.flavor, c.format)
	}

	args, err := Bowtie2{}.QualityArguments(Standard, fastq.Solexa)
	require.NoError(t, err)
	assert.Equal(t, []string{"--solexa-quals"}, args)
	args, err = Bowtie{}.QualityArguments(Standard, fastq.Illumina15)
	require.NoError(t, err)
	assert.Equal(t, []string{"--phred64-quals"}, args)
}

func TestMultipleInstancesUnsupported(t *testing.T) {
	e := newEnv(t)
	m, err := e.registry.Mapper("minimap2", e.options)
	require.NoError(t, err)
	inst, err := m.NewInstance("", "", executor.Bundled)
	require.NoError(t, err)
	_, err = inst.NewEntryMapping(fakeIndex(t, m.Provider(), Standard), mapper.MappingOptions{MultipleInstances: true})
	assert.True(t, mapper.IsKind(err, mapper.Configuration))
}

func TestUnsupportedFlavor(t *testing.T) {
	e := newEnv(t)
	m, err := e.registry.Mapper("minimap2", e.options)
	require.NoError(t, err)
	_, err = m.NewInstance("", LargeIndex, executor.Bundled)
	assert.True(t, mapper.IsKind(err, mapper.Configuration))
	assert.Contains(t, err.Error(), LargeIndex)
}

func TestIndexCommands(t *testing.T) {
	e := newEnv(t)
	genome := filepath.Join(t.TempDir(), "genome.fa")
	require.NoError(t, os.WriteFile(genome, make([]byte, 1<<12), 0644))
	dir := filepath.Join(t.TempDir(), "index")
	prefix := filepath.Join(dir, "genome")
	expected := map[string][]string{
		"bowtie":   {"--threads", "2", genome, prefix},
		"bowtie2":  {"--threads", "2", genome, prefix},
		"bwa":      {"index", "-p", prefix, genome},
		"minimap2": {"-t", "2", "-d", prefix + ".idx", genome},
		"star": {"--runMode", "genomeGenerate", "--runThreadN", "2", "--genomeDir", dir,
			"--genomeFastaFiles", genome, "--genomeSAindexNbases", "5", "--outFileNamePrefix", dir + string(filepath.Separator)},
	}
	for _, p := range Providers() {
		m, err := e.registry.Mapper(p.Name(), e.options)
		require.NoError(t, err)
		inst, err := m.NewInstance("", "", executor.Bundled)
		require.NoError(t, err)
		commands, err := inst.IndexCommands(genome, dir, 2)
		require.NoError(t, err)
		require.Len(t, commands, 1)
		args := commands[0].Args
		assert.Equal(t, p.IndexerExecutables(inst.Flavor())[0], filepath.Base(args[0]))
		assert.Equal(t, expected[p.Name()], args[1:], p.Name())
	}
	assert.Equal(t, 14, saIndexBases("/nonexistent"))
}
