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

// Package aligners provides the mapper.Provider implementations of the
// supported aligners.
package aligners

import (
	"strconv"

	"github.com/exascience/elmap/mapper"
)

// Providers returns the providers of all supported aligners.
func Providers() []mapper.Provider {
	return []mapper.Provider{Bowtie{}, Bowtie2{}, BWA{}, STAR{}, Minimap2{}}
}

// NewRegistry returns a registry of all supported aligners.
func NewRegistry() (*mapper.Registry, error) {
	return mapper.NewRegistry(Providers()...)
}

func biocontainer(name, version string) string {
	return "quay.io/biocontainers/" + name + ":" + version
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

// options returns the quality, multiple instances and user arguments
// of a mapping, in that order.
func options(p mapper.Provider, em *mapper.EntryMapping) []string {
	args := em.QualityArguments()
	if em.MultipleInstances() {
		args = append(args, p.MultipleInstancesArguments()...)
	}
	return append(args, em.Arguments()...)
}

// command starts a command line with the installed path of name.
func command(l interface {
	Executable(string) (string, error)
}, name string, args ...string) ([]string, error) {
	path, err := l.Executable(name)
	if err != nil {
		return nil, err
	}
	return append([]string{path}, args...), nil
}
