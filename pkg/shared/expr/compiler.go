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

package expr

import (
	"fmt"

	"github.com/antonmedv/expr"
	"github.com/antonmedv/expr/vm"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of compiled programs kept by a Compiler.
const DefaultCacheSize = 512

// Predicate is a compiled boolean expression with one free variable.
type Predicate func(value interface{}) (bool, error)

// Mapping is a compiled expression with one free variable.
type Mapping func(value interface{}) (interface{}, error)

// Compiler turns user authored expression text into executable programs. Only the
// expr grammar is available to the text, there is no access to the host runtime.
// Compiled programs are cached by their normalized text.
type Compiler struct {
	cache *lru.Cache[string, *vm.Program]
}

// NewCompiler returns a Compiler caching at most size programs.
func NewCompiler(size int) (*Compiler, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, *vm.Program](size)
	if err != nil {
		return nil, err
	}
	return &Compiler{cache: cache}, nil
}

// Compile compiles the expression, SQL style operators are accepted.
func (c *Compiler) Compile(expression string) (*Program, error) {
	normalized := Normalize(expression)
	if program, ok := c.cache.Get(normalized); ok {
		return &Program{text: expression, program: program}, nil
	}
	program, err := expr.Compile(normalized)
	if err != nil {
		return nil, fmt.Errorf("unable to compile expression '%s': %w", expression, err)
	}
	c.cache.Add(normalized, program)
	return &Program{text: expression, program: program}, nil
}

// CompilePredicate compiles a boolean expression in which variable is the only free name.
func (c *Compiler) CompilePredicate(expression string, variable string) (Predicate, error) {
	p, err := c.Compile(expression)
	if err != nil {
		return nil, err
	}
	return func(value interface{}) (bool, error) {
		return p.EvalBool(map[string]interface{}{variable: value})
	}, nil
}

// CompileMapping compiles an expression in which variable is the only free name.
func (c *Compiler) CompileMapping(expression string, variable string) (Mapping, error) {
	p, err := c.Compile(expression)
	if err != nil {
		return nil, err
	}
	return func(value interface{}) (interface{}, error) {
		return p.Eval(map[string]interface{}{variable: value})
	}, nil
}

// Program is a compiled expression.
type Program struct {
	text    string
	program *vm.Program
}

func (p *Program) String() string {
	return p.text
}

// Eval runs the program against the given variables and the builtin helpers.
func (p *Program) Eval(vars map[string]interface{}) (interface{}, error) {
	result, err := expr.Run(p.program, getFuncMap(vars))
	if err != nil {
		return nil, fmt.Errorf("unable to evaluate expression '%s': %w", p.text, err)
	}
	return result, nil
}

// EvalBool runs the program and requires a boolean result.
func (p *Program) EvalBool(vars map[string]interface{}) (bool, error) {
	result, err := p.Eval(vars)
	if err != nil {
		return false, err
	}
	resultBool, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("unable to cast expression result '%v' to bool", result)
	}
	return resultBool, nil
}
