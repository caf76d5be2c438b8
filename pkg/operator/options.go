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

package operator

import (
	"go.uber.org/zap"
	"k8s.io/utils/clock"

	"github.com/numaproj/numacep/pkg/event"
	"github.com/numaproj/numacep/pkg/relational"
	"github.com/numaproj/numacep/pkg/shared/expr"
)

type options struct {
	emit     func(*event.Event)
	report   func(string)
	clock    clock.WithTicker
	compiler *expr.Compiler
	executor relational.Executor
	logger   *zap.SugaredLogger
}

type Option func(*options)

// WithEmitter sets the callback receiving the derived events, one at a time in emission order.
func WithEmitter(f func(*event.Event)) Option {
	return func(o *options) {
		o.emit = f
	}
}

// WithErrorReporter sets the callback receiving the non fatal evaluation failures.
func WithErrorReporter(f func(string)) Option {
	return func(o *options) {
		o.report = f
	}
}

// WithClock sets the clock driving the time windows and stamping the arrival time.
func WithClock(c clock.WithTicker) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithCompiler sets the expression compiler, it can be shared by operators.
func WithCompiler(c *expr.Compiler) Option {
	return func(o *options) {
		o.compiler = c
	}
}

// WithExecutor replaces the in-memory relational executor.
func WithExecutor(x relational.Executor) Option {
	return func(o *options) {
		o.executor = x
	}
}

func WithLogger(l *zap.SugaredLogger) Option {
	return func(o *options) {
		o.logger = l
	}
}
