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
	"fmt"
	"strings"
)

// ErrorKind classifies the errors of the engine.
type ErrorKind int

// Error kinds.
const (
	// Configuration errors are unsupported flavors, quality encodings
	// or option combinations, detected before anything runs.
	Configuration ErrorKind = iota
	// Installation errors are missing or unextractable binaries.
	Installation
	// Execution errors are subprocesses that could not be started or
	// exited with a non-zero code.
	Execution
	// IO errors occur while streaming reads, preparing inputs or
	// handling index archives.
	IO
	// Canceled reports a process that was canceled by its caller.
	Canceled
)

func (k ErrorKind) String() string {
	switch k {
	case Configuration:
		return "configuration"
	case Installation:
		return "installation"
	case Execution:
		return "execution"
	case IO:
		return "I/O"
	case Canceled:
		return "cancellation"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Error is the single error type the engine reports to its callers.
type Error struct {
	Kind   ErrorKind
	Mapper string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v: %v error: %v", e.Mapper, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrCanceled is wrapped by errors of kind Canceled.
var ErrCanceled = errors.New("mapper process canceled")

// ExitError reports a subprocess that exited with a non-zero code.
// Code is -1 if the subprocess was killed by a signal.
type ExitError struct {
	Mapper string
	Args   []string
	Code   int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%v exited with code %v: %v", e.Mapper, e.Code, strings.Join(e.Args, " "))
}

// newError wraps err into an *Error, unless it already is one.
func newError(kind ErrorKind, mapper string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: kind, Mapper: mapper, Err: err}
}

func errorf(kind ErrorKind, mapper, format string, args ...interface{}) error {
	return &Error{Kind: kind, Mapper: mapper, Err: fmt.Errorf(format, args...)}
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
