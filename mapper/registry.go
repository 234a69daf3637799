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
	"fmt"
	"sort"
	"strings"
)

// Registry maps aligner names to providers. It is populated once by
// NewRegistry and read-only afterwards.
type Registry struct {
	providers map[string]Provider
	names     []string
}

// NewRegistry returns a registry of the given providers. Names are
// case-insensitive and must be unique.
func NewRegistry(providers ...Provider) (*Registry, error) {
	r := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		key := strings.ToLower(p.Name())
		if key == "" {
			return nil, fmt.Errorf("provider %T has no name", p)
		}
		if _, found := r.providers[key]; found {
			return nil, fmt.Errorf("duplicate mapper provider %v", p.Name())
		}
		r.providers[key] = p
		r.names = append(r.names, p.Name())
	}
	sort.Strings(r.names)
	return r, nil
}

// Provider returns the provider registered under name.
func (r *Registry) Provider(name string) (Provider, bool) {
	p, ok := r.providers[strings.ToLower(name)]
	return p, ok
}

// Names returns the sorted names of all registered providers.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// Mapper returns a mapper for the provider registered under name.
func (r *Registry) Mapper(name string, options Options) (*Mapper, error) {
	p, ok := r.Provider(name)
	if !ok {
		return nil, errorf(Configuration, name, "unknown mapper, known mappers are %v", strings.Join(r.names, ", "))
	}
	return New(p, options), nil
}
