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
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"

	"github.com/exascience/elmap/executor"
	"github.com/exascience/elmap/internal"
)

// Instance is a Mapper bound to a version, a flavor and an executor.
type Instance struct {
	mapper   *Mapper
	executor executor.Executor
	version  string
	flavor   string
	logger   hclog.Logger
}

// NewInstanceWith returns an instance that runs binaries with exec.
//
// It checks that the flavor is supported and that the indexer and
// mapper executables are available, and installs the mapper
// executable, so that missing pieces are reported before any index or
// mapping work starts.
func (m *Mapper) NewInstanceWith(version, flavor string, exec executor.Executor) (*Instance, error) {
	p := m.provider
	if version == "" {
		version = p.DefaultVersion()
	}
	if flavor == "" {
		flavor = p.DefaultFlavor()
	}
	if !p.IsFlavorSupported(flavor) {
		return nil, errorf(Configuration, m.Name(), "version %v: unsupported flavor %v", version, flavor)
	}
	for _, name := range p.IndexerExecutables(flavor) {
		if !exec.IsExecutable(name) {
			return nil, errorf(Installation, m.Name(), "version %v flavor %v: indexer executable %v not available", version, flavor, name)
		}
	}
	name := p.MapperExecutable(flavor)
	if !exec.IsExecutable(name) {
		return nil, errorf(Installation, m.Name(), "version %v flavor %v: mapper executable %v not available", version, flavor, name)
	}
	if _, err := exec.Install(name); err != nil {
		return nil, errorf(Installation, m.Name(), "version %v flavor %v: %v", version, flavor, err)
	}
	return &Instance{
		mapper:   m,
		executor: exec,
		version:  version,
		flavor:   flavor,
		logger:   m.logger.With("version", version, "flavor", flavor),
	}, nil
}

func (inst *Instance) Mapper() *Mapper {
	return inst.mapper
}

func (inst *Instance) Executor() executor.Executor {
	return inst.executor
}

func (inst *Instance) Version() string {
	return inst.version
}

func (inst *Instance) Flavor() string {
	return inst.flavor
}

func (inst *Instance) name() string {
	return inst.mapper.Name()
}

// Install installs the named executable and returns the path commands
// must use for it.
func (inst *Instance) Install(name string) (string, error) {
	path, err := inst.executor.Install(name)
	if err != nil {
		return "", errorf(Installation, inst.name(), "version %v flavor %v: %v", inst.version, inst.flavor, err)
	}
	return path, nil
}

// IndexLayout describes the construction of an index.
type IndexLayout struct {
	instance *Instance

	// Genome is the absolute path of the reference FASTA file.
	Genome string
	// Dir is the empty directory that receives the index files.
	Dir string
	// Prefix is Dir/genome, the base name for index files.
	Prefix  string
	Threads int
	Flavor  string
}

// Executable installs the named executable and returns its path.
func (l *IndexLayout) Executable(name string) (string, error) {
	return l.instance.Install(name)
}

// IndexCommands returns the commands that build an index of genome
// into dir.
func (inst *Instance) IndexCommands(genome, dir string, threads int) ([]Command, error) {
	if threads <= 0 {
		threads = 1
	}
	layout := &IndexLayout{
		instance: inst,
		Genome:   genome,
		Dir:      dir,
		Prefix:   filepath.Join(dir, "genome"),
		Threads:  threads,
		Flavor:   inst.flavor,
	}
	commands, err := inst.mapper.provider.IndexCommands(layout)
	if err != nil {
		return nil, newError(Configuration, inst.name(), err)
	}
	return commands, nil
}

// MakeIndex builds an index of genome and stores it in a zip archive.
// If stored is true, the archive is not compressed.
func (inst *Instance) MakeIndex(ctx context.Context, genome, archive string, threads int, stored bool) (err error) {
	genome, err = filepath.Abs(genome)
	if err != nil {
		return newError(IO, inst.name(), err)
	}
	dir, err := os.MkdirTemp(inst.mapper.TempDir(), "elmap-index-")
	if err != nil {
		return newError(IO, inst.name(), err)
	}
	defer func() {
		if rerr := os.RemoveAll(dir); rerr != nil {
			inst.logger.Warn("cannot remove index directory", "dir", dir, "error", rerr)
		}
	}()
	commands, err := inst.IndexCommands(genome, dir, threads)
	if err != nil {
		return err
	}
	for _, command := range commands {
		if err := inst.run(ctx, command, dir, []string{genome, dir}); err != nil {
			return err
		}
	}
	if err := ValidateIndex(dir, inst.mapper.provider.IndexFiles(inst.flavor)); err != nil {
		return newError(IO, inst.name(), err)
	}
	if err := ZipIndex(dir, archive, stored); err != nil {
		return newError(IO, inst.name(), err)
	}
	inst.logger.Info("index created", "genome", genome, "archive", archive)
	return nil
}

// run executes one command to completion.
func (inst *Instance) run(ctx context.Context, command Command, dir string, files []string) error {
	if len(command.Args) == 0 {
		return errorf(Configuration, inst.name(), "empty command line")
	}
	inst.logger.Debug("running", "command", command.Args)
	p, err := inst.executor.Execute(ctx, executor.Cmd{
		Args:       command.Args,
		Dir:        dir,
		StdoutFile: command.StdoutFile,
		Files:      files,
	})
	if err != nil {
		return newError(Execution, inst.name(), err)
	}
	code, err := p.Wait()
	if err != nil {
		return newError(Execution, inst.name(), err)
	}
	if ctx.Err() != nil {
		return &Error{Kind: Canceled, Mapper: inst.name(), Err: ErrCanceled}
	}
	if code != 0 {
		return &Error{Kind: Execution, Mapper: inst.name(), Err: &ExitError{Mapper: inst.name(), Args: command.Args, Code: code}}
	}
	return nil
}

// PrepareIndex unpacks an index archive into dir, unless dir already
// exists, and checks that it holds a complete index for the flavor of
// this instance.
func (inst *Instance) PrepareIndex(archive, dir string) error {
	if err := PrepareIndex(archive, dir, inst.logger); err != nil {
		return newError(IO, inst.name(), err)
	}
	if err := ValidateIndex(dir, inst.mapper.provider.IndexFiles(inst.flavor)); err != nil {
		return newError(IO, inst.name(), fmt.Errorf("index %v: %w", archive, err))
	}
	return nil
}

// PrepareIndex unpacks archive into dir on first use.
//
// Concurrent callers, in this or other processes, serialize on an
// exclusive lock of dir.lock, which is removed afterwards. The archive
// is unpacked into a unique sibling of dir that is renamed into place,
// so dir is either absent or complete.
func PrepareIndex(archive, dir string, logger hclog.Logger) error {
	if isDir(dir) {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dir), 0755); err != nil {
		return err
	}
	lock, err := internal.LockFile(dir + ".lock")
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Unlock(); err != nil && logger != nil {
			logger.Warn("cannot release index lock", "lock", lock.Path(), "error", err)
		}
	}()
	if isDir(dir) {
		return nil
	}
	tmp := uniqueSibling(dir)
	if err := UnzipIndex(archive, tmp); err != nil {
		_ = os.RemoveAll(tmp)
		return err
	}
	if err := os.Rename(tmp, dir); err != nil {
		_ = os.RemoveAll(tmp)
		return err
	}
	if logger != nil {
		logger.Debug("index unpacked", "archive", archive, "dir", dir)
	}
	return nil
}

func isDir(name string) bool {
	info, err := os.Stat(name)
	return err == nil && info.IsDir()
}
