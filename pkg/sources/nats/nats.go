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
	"time"

	natslib "github.com/nats-io/nats.go"
	"go.uber.org/zap"

	cepv1 "github.com/numaproj/numacep/pkg/apis/cep/v1alpha1"
	"github.com/numaproj/numacep/pkg/metrics"
	"github.com/numaproj/numacep/pkg/shared/logging"
)

type natsSource struct {
	subject    string
	logger     *zap.SugaredLogger
	natsConn   *natslib.Conn
	sub        *natslib.Subscription
	bufferSize int
	messages   chan []byte
}

// New connects to the NATS server and starts a queue subscription. Messages are buffered until Run
// hands them over.
func New(ctx context.Context, source *cepv1.NatsSource, opts ...Option) (*natsSource, error) {
	if source == nil {
		return nil, fmt.Errorf("nats source is not configured")
	}
	n := &natsSource{
		subject:    source.Subject,
		bufferSize: 1000, // default size
		logger:     logging.FromContext(ctx),
	}
	for _, o := range opts {
		if err := o(n); err != nil {
			return nil, err
		}
	}

	n.messages = make(chan []byte, n.bufferSize)

	opt := []natslib.Option{
		natslib.MaxReconnects(-1),
		natslib.ReconnectWait(3 * time.Second),
		natslib.DisconnectErrHandler(func(c *natslib.Conn, err error) {
			n.logger.Errorw("Nats disconnected", zap.Error(err))
		}),
		natslib.ReconnectHandler(func(c *natslib.Conn) {
			n.logger.Info("Nats reconnected")
		}),
	}

	n.logger.Info("Connecting to nats service...")
	if conn, err := natslib.Connect(source.URL, opt...); err != nil {
		return nil, fmt.Errorf("failed to connect to nats server, %w", err)
	} else {
		n.natsConn = conn
	}
	if sub, err := n.natsConn.QueueSubscribe(source.Subject, source.Queue, func(msg *natslib.Msg) {
		n.messages <- msg.Data
	}); err != nil {
		n.natsConn.Close()
		return nil, fmt.Errorf("failed to QueueSubscribe nats messages, %w", err)
	} else {
		n.sub = sub
	}
	// the subscription is registered on the server once flushed
	if err := n.natsConn.Flush(); err != nil {
		_ = n.Close()
		return nil, fmt.Errorf("failed to flush nats subscription, %w", err)
	}
	return n, nil
}

type Option func(*natsSource) error

// WithLogger is used to return logger information
func WithLogger(l *zap.SugaredLogger) Option {
	return func(o *natsSource) error {
		if l != nil {
			o.logger = l
		}
		return nil
	}
}

// WithBufferSize sets the buffer size for storing the messages from nats
func WithBufferSize(s int) Option {
	return func(o *natsSource) error {
		if s < 0 {
			return fmt.Errorf("invalid buffer size %d", s)
		}
		o.bufferSize = s
		return nil
	}
}

// Run hands the subscribed messages to handler until the context is done.
func (ns *natsSource) Run(ctx context.Context, handler func([]byte)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case data := <-ns.messages:
			metrics.SourceReadCount.With(map[string]string{metrics.LabelSource: string(cepv1.SourceTypeNats)}).Inc()
			handler(data)
		}
	}
}

// IsHealthy returns an error while the connection is not established.
func (ns *natsSource) IsHealthy(_ context.Context) error {
	if !ns.natsConn.IsConnected() {
		return fmt.Errorf("nats connection is %s", ns.natsConn.Status())
	}
	return nil
}

func (ns *natsSource) Close() error {
	ns.logger.Info("Shutting down nats source...")
	if err := ns.sub.Unsubscribe(); err != nil {
		ns.logger.Errorw("Failed to unsubscribe nats subscription", zap.Error(err))
	}
	ns.natsConn.Close()
	ns.logger.Info("Nats source shutdown")
	return nil
}
