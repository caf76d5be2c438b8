/*
Copyright 2022 The Numaproj Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package ceperr

import (
	"errors"
	"fmt"
)

// Kind classifies where in the operator lifecycle an error was raised.
type Kind int16

const (
	Unknown        Kind = iota // Unknown err kind
	Config                     // bad or incomplete operator configuration
	Projection                 // the configured property path did not resolve
	Predicate                  // a filter predicate failed to execute
	Query                      // the relational evaluator failed
	PatternCompile             // the pattern description is malformed
)

func (k Kind) String() string {
	switch k {
	case Config:
		return "ConfigError"
	case Projection:
		return "ProjectionError"
	case Predicate:
		return "PredicateError"
	case Query:
		return "QueryError"
	case PatternCompile:
		return "PatternCompileError"
	default:
		return "Unknown"
	}
}

// IsConfigurationTime returns true for the kinds that prevent an operator from activating.
func (k Kind) IsConfigurationTime() bool {
	return k == Config || k == PatternCompile
}

// Error is the error type used across the engine.
type Error struct {
	kind    Kind
	message string
	cause   error
}

func New(kind Kind, msg string) *Error {
	return &Error{
		kind:    kind,
		message: msg,
	}
}

// Newf formats the message, a %w verb keeps the wrapped error as the cause.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	err := fmt.Errorf(format, args...)
	return &Error{
		kind:    kind,
		message: err.Error(),
		cause:   errors.Unwrap(err),
	}
}

// Wrap returns nil if err is nil.
func Wrap(kind Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{
		kind:    kind,
		message: fmt.Sprintf("%s: %v", msg, err),
		cause:   err,
	}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.kind, e.message)
}

func (e *Error) Kind() Kind {
	return e.kind
}

func (e *Error) Message() string {
	return e.message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches another *Error of the same kind, so errors.Is(err, ceperr.New(ceperr.Query, "")) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.kind == e.kind
}

// KindOf returns the kind of the first *Error in the chain, Unknown otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return Unknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
