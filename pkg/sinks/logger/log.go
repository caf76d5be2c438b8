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

package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/numaproj/numacep/pkg/event"
	"github.com/numaproj/numacep/pkg/metrics"
	"github.com/numaproj/numacep/pkg/shared/logging"
)

// ToLog prints the derived events, one JSON document per line.
type ToLog struct {
	lock   sync.Mutex
	out    io.Writer
	prefix bool
	logger *zap.SugaredLogger
}

type Option func(*ToLog)

func WithLogger(log *zap.SugaredLogger) Option {
	return func(t *ToLog) {
		if log != nil {
			t.logger = log
		}
	}
}

// WithWriter replaces the standard output.
func WithWriter(w io.Writer) Option {
	return func(t *ToLog) {
		t.out = w
	}
}

// WithOperatorPrefix prefixes each line with the operator name in parentheses.
func WithOperatorPrefix() Option {
	return func(t *ToLog) {
		t.prefix = true
	}
}

// NewToLog returns ToLog type.
func NewToLog(opts ...Option) *ToLog {
	toLog := &ToLog{out: os.Stdout}
	for _, o := range opts {
		o(toLog)
	}
	if toLog.logger == nil {
		toLog.logger = logging.NewLogger()
	}
	return toLog
}

// Write writes to the log.
func (t *ToLog) Write(_ context.Context, operator string, e *event.Event) error {
	labels := map[string]string{metrics.LabelSink: "log", metrics.LabelOperator: operator}
	payload, err := e.MarshalJSON()
	if err != nil {
		metrics.SinkWriteErrorCount.With(labels).Inc()
		return fmt.Errorf("failed to encode event of %q, %w", operator, err)
	}
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.prefix {
		_, err = fmt.Fprintf(t.out, "(%s) %s\n", operator, payload)
	} else {
		_, err = fmt.Fprintf(t.out, "%s\n", payload)
	}
	if err != nil {
		metrics.SinkWriteErrorCount.With(labels).Inc()
		return err
	}
	metrics.SinkWriteCount.With(labels).Inc()
	return nil
}

// IsHealthy returns nil, printing is always possible.
func (t *ToLog) IsHealthy(_ context.Context) error {
	return nil
}

func (t *ToLog) Close() error {
	return nil
}
