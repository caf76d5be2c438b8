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

package redis

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/numaproj/numacep/pkg/event"
	"github.com/numaproj/numacep/pkg/metrics"
	redisclient "github.com/numaproj/numacep/pkg/shared/clients/redis"
	"github.com/numaproj/numacep/pkg/shared/logging"
)

// ToRedis appends the derived events to a redis stream. Each entry holds the operator name and the
// encoded event.
type ToRedis struct {
	client *redisclient.RedisClient
	stream string
	maxLen int64
	logger *zap.SugaredLogger
}

type Option func(*ToRedis)

func WithLogger(log *zap.SugaredLogger) Option {
	return func(t *ToRedis) {
		if log != nil {
			t.logger = log
		}
	}
}

// WithMaxLen trims the stream to approximately n entries, 0 disables trimming.
func WithMaxLen(n int64) Option {
	return func(t *ToRedis) {
		t.maxLen = n
	}
}

// NewToRedis returns a sink writing to stream, it owns the client.
func NewToRedis(client *redisclient.RedisClient, stream string, opts ...Option) *ToRedis {
	t := &ToRedis{client: client, stream: stream}
	for _, o := range opts {
		o(t)
	}
	if t.logger == nil {
		t.logger = logging.NewLogger()
	}
	return t
}

// Write adds the event to the stream. The write is not cancelled with ctx so that events emitted
// before a shutdown are still delivered.
func (t *ToRedis) Write(_ context.Context, operator string, e *event.Event) error {
	labels := map[string]string{metrics.LabelSink: "redis", metrics.LabelOperator: operator}
	payload, err := e.MarshalJSON()
	if err == nil {
		_, err = t.client.AddToStream(redisclient.RedisContext, t.stream, t.maxLen, map[string]interface{}{
			"operator": operator,
			"event":    string(payload),
		})
	}
	if err != nil {
		metrics.SinkWriteErrorCount.With(labels).Inc()
		return fmt.Errorf("failed to add event of %q to redis stream %q, %w", operator, t.stream, err)
	}
	metrics.SinkWriteCount.With(labels).Inc()
	return nil
}

func (t *ToRedis) IsHealthy(ctx context.Context) error {
	return t.client.Ping(ctx)
}

func (t *ToRedis) Close() error {
	t.logger.Info("Closing redis sink...")
	return t.client.Close()
}
