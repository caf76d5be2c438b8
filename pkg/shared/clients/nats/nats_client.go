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
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/numaproj/numacep/pkg/shared/logging"
)

// Client is a NATS connection which can be shared by the publishers of a process
type Client struct {
	sync.Mutex
	nc  *nats.Conn
	log *zap.SugaredLogger
}

// NewNATSClient connects to the comma separated server urls
func NewNATSClient(ctx context.Context, url string, natsOptions ...nats.Option) (*Client, error) {
	log := logging.FromContext(ctx)
	opts := []nats.Option{
		// if max reconnects is set to -1, it will try to reconnect forever
		nats.MaxReconnects(-1),
		nats.PingInterval(3 * time.Second),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Errorw("Nats default: error occurred for subscription", zap.Error(err))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Info("Nats default: connection closed")
		}),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Errorw("Nats default: disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("Nats default: reconnected")
		}),
		// Write (and flush) timeout
		nats.FlusherTimeout(10 * time.Second),
		// If the server doesn't respond to 2 pings we will reconnect
		nats.MaxPingsOutstanding(2),
	}
	opts = append(opts, natsOptions...)
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats url=%s: %w", url, err)
	}
	return &Client{nc: nc, log: log}, nil
}

// Publish publishes data on subject, delivery is at most once.
func (c *Client) Publish(subject string, data []byte) error {
	return c.nc.Publish(subject, data)
}

// Flush waits for the server to process the buffered publishes.
func (c *Client) Flush(ctx context.Context) error {
	c.Lock()
	defer c.Unlock()
	return c.nc.FlushWithContext(ctx)
}

// IsHealthy returns an error while the connection is not established.
func (c *Client) IsHealthy(_ context.Context) error {
	if !c.nc.IsConnected() {
		return fmt.Errorf("nats connection is %s", c.nc.Status())
	}
	return nil
}

// Close drains the buffered publishes and closes the connection
func (c *Client) Close() {
	if err := c.nc.Drain(); err != nil {
		c.log.Warnw("Failed to drain nats connection", zap.Error(err))
		c.nc.Close()
	}
}
