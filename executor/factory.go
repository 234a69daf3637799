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

package executor

import (
	"fmt"
	"io/fs"

	"github.com/hashicorp/go-hclog"
)

// Config collects the settings of all executor strategies. Each
// strategy only reads the fields it needs.
type Config struct {
	// Resources, Package, Version and InstallDir configure Bundled.
	Resources  fs.FS
	Package    string
	Version    string
	InstallDir string

	// Runtime and Image configure Container.
	Runtime string
	Image   string

	Logger hclog.Logger
}

// New returns an executor of the given kind.
func New(kind Kind, config Config) (Executor, error) {
	switch kind {
	case Bundled:
		if config.Resources == nil {
			return nil, fmt.Errorf("no bundle available for %v version %v", config.Package, config.Version)
		}
		if config.InstallDir == "" {
			return nil, fmt.Errorf("no installation directory for %v version %v", config.Package, config.Version)
		}
		return NewBundled(config.Resources, config.Package, config.Version, config.InstallDir, config.Logger), nil
	case Path:
		return NewPath(), nil
	case Container:
		if config.Image == "" {
			return nil, fmt.Errorf("no container image for %v version %v", config.Package, config.Version)
		}
		return NewContainer(config.Runtime, config.Image, config.Logger), nil
	default:
		return nil, fmt.Errorf("unsupported executor kind %v", kind)
	}
}
