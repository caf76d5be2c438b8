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

package nats

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/numaproj/numacep/pkg/event"
	"github.com/numaproj/numacep/pkg/metrics"
	natsclient "github.com/numaproj/numacep/pkg/shared/clients/nats"
	"github.com/numaproj/numacep/pkg/shared/logging"
)

// ToNats publishes the derived events on a NATS subject.
type ToNats struct {
	client  *natsclient.Client
	subject string
	logger  *zap.SugaredLogger
}

type Option func(*ToNats)

func WithLogger(log *zap.SugaredLogger) Option {
	return func(t *ToNats) {
		if log != nil {
			t.logger = log
		}
	}
}

// NewToNats returns a sink publishing on subject, it owns the client.
func NewToNats(client *natsclient.Client, subject string, opts ...Option) *ToNats {
	t := &ToNats{client: client, subject: subject}
	for _, o := range opts {
		o(t)
	}
	if t.logger == nil {
		t.logger = logging.NewLogger()
	}
	return t
}

func (t *ToNats) Write(_ context.Context, operator string, e *event.Event) error {
	labels := map[string]string{metrics.LabelSink: "nats", metrics.LabelOperator: operator}
	payload, err := e.MarshalJSON()
	if err == nil {
		err = t.client.Publish(t.subject, payload)
	}
	if err != nil {
		metrics.SinkWriteErrorCount.With(labels).Inc()
		return fmt.Errorf("failed to publish event of %q to nats, %w", operator, err)
	}
	metrics.SinkWriteCount.With(labels).Inc()
	return nil
}

func (t *ToNats) IsHealthy(ctx context.Context) error {
	return t.client.IsHealthy(ctx)
}

// Close flushes the pending publishes and closes the connection.
func (t *ToNats) Close() error {
	t.logger.Info("Closing nats sink...")
	t.client.Close()
	return nil
}
