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

// Package filter holds the ordered predicate chain applied to the events of one stream.
package filter

import (
	"github.com/numaproj/numacep/pkg/ceperr"
	"github.com/numaproj/numacep/pkg/event"
	"github.com/numaproj/numacep/pkg/shared/expr"
)

// DefaultVariable is the free variable name used when a stream has no event type name.
const DefaultVariable = "event"

// Chain is the ordered list of predicates of one stream.
type Chain struct {
	variable    string
	expressions []string
	predicates  []expr.Predicate
}

// NewChain compiles every expression once, binding the free variable to the stream's
// event type name.
func NewChain(compiler *expr.Compiler, variable string, expressions []string) (*Chain, error) {
	if variable == "" {
		variable = DefaultVariable
	}
	c := &Chain{
		variable:    variable,
		expressions: expressions,
		predicates:  make([]expr.Predicate, 0, len(expressions)),
	}
	for _, e := range expressions {
		p, err := compiler.CompilePredicate(e, variable)
		if err != nil {
			return nil, ceperr.Newf(ceperr.Config, "failed to compile filter %q, %w", e, err)
		}
		c.predicates = append(c.predicates, p)
	}
	return c, nil
}

// Len returns the number of predicates.
func (c *Chain) Len() int {
	return len(c.predicates)
}

// Admit returns true only if every predicate holds. A failing predicate rejects the event,
// the error is returned for logging only.
func (c *Chain) Admit(e *event.Event) (bool, error) {
	if len(c.predicates) == 0 {
		return true, nil
	}
	fields := e.Fields()
	for i, p := range c.predicates {
		ok, err := p(fields)
		if err != nil {
			return false, ceperr.Newf(ceperr.Predicate, "filter %q, %w", c.expressions[i], err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}
