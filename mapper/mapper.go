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

// Package mapper binds external aligners to an execution engine.
//
// A Mapper is one aligner, described by a Provider. An Instance binds a
// Mapper to a version, a flavor and an executor strategy, and checks at
// construction that everything it needs is available. An EntryMapping
// adds the settings of one mapping invocation: quality encoding, extra
// arguments, threads and an index directory. Mapping creates a Process
// that runs the pipeline of commands the provider builds, streams reads
// into it through named pipes, and exposes the output of the last
// command.
package mapper

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"

	"github.com/exascience/elmap/executor"
)

// Options configures a Mapper.
type Options struct {
	// TempDir holds named pipes, intermediate files and unpacked
	// indexes. Defaults to os.TempDir().
	TempDir string

	// Resources is the bundle of binaries for the Bundled executor.
	Resources fs.FS

	// InstallDir receives extracted bundled binaries. Defaults to
	// elmap-binaries in TempDir.
	InstallDir string

	// ContainerImage overrides the image of the provider for the
	// Container executor, and ContainerRuntime the runtime command.
	ContainerImage   string
	ContainerRuntime string

	// Logger defaults to hclog.L().
	Logger hclog.Logger
}

// Mapper is an aligner with its configuration. It is immutable.
type Mapper struct {
	provider Provider
	options  Options
	logger   hclog.Logger
}

// New returns a Mapper for provider.
func New(provider Provider, options Options) *Mapper {
	if options.TempDir == "" {
		options.TempDir = os.TempDir()
	}
	if options.InstallDir == "" {
		options.InstallDir = filepath.Join(options.TempDir, "elmap-binaries")
	}
	logger := options.Logger
	if logger == nil {
		logger = hclog.L()
	}
	return &Mapper{
		provider: provider,
		options:  options,
		logger:   logger.Named(provider.Name()),
	}
}

func (m *Mapper) Name() string {
	return m.provider.Name()
}

func (m *Mapper) Provider() Provider {
	return m.provider
}

func (m *Mapper) TempDir() string {
	return m.options.TempDir
}

func (m *Mapper) Logger() hclog.Logger {
	return m.logger
}

// NewInstance returns an instance of the given version and flavor,
// running binaries with an executor of the given kind. Empty version
// and flavor select the defaults of the provider.
func (m *Mapper) NewInstance(version, flavor string, kind executor.Kind) (*Instance, error) {
	if version == "" {
		version = m.provider.DefaultVersion()
	}
	image := m.options.ContainerImage
	if image == "" {
		image = m.provider.DockerImage(version)
	}
	exec, err := executor.New(kind, executor.Config{
		Resources:  m.options.Resources,
		Package:    m.provider.Name(),
		Version:    version,
		InstallDir: m.options.InstallDir,
		Runtime:    m.options.ContainerRuntime,
		Image:      image,
		Logger:     m.logger,
	})
	if err != nil {
		return nil, newError(Installation, m.Name(), err)
	}
	return m.NewInstanceWith(version, flavor, exec)
}
