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
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"k8s.io/utils/clock"

	cepv1 "github.com/numaproj/numacep/pkg/apis/cep/v1alpha1"
)

// message is an inbound message stamped at submission.
type message struct {
	raw interface{}
	seq uint64
	at  time.Time
	// done marks a Sync barrier, it is closed instead of being processed
	done chan struct{}
}

// Handle runs an operator. Submitted messages and time window closures are processed one at a
// time, to completion, on a single goroutine.
type Handle struct {
	id        string
	processor *Processor
	clock     clock.WithTicker
	log       *zap.SugaredLogger

	lock    sync.Mutex
	seq     uint64
	mailbox []message
	signal  chan struct{}

	closed *atomic.Bool
	stop   chan struct{}
	wg     sync.WaitGroup
}

// Configure validates and compiles the spec, then starts the operator. On a configuration error
// nothing is started.
func Configure(ctx context.Context, spec cepv1.OperatorSpec, opts ...Option) (*Handle, error) {
	o, err := buildOptions(ctx, opts...)
	if err != nil {
		return nil, err
	}
	if o.clock == nil {
		o.clock = clock.RealClock{}
	}
	p, err := newProcessor(spec.WithDefaults(), o)
	if err != nil {
		return nil, err
	}
	h := &Handle{
		id:        uuid.NewString(),
		processor: p,
		clock:     o.clock,
		signal:    make(chan struct{}, 1),
		closed:    atomic.NewBool(false),
		stop:      make(chan struct{}),
	}
	h.log = p.log.With("id", h.id)
	h.wg.Add(1)
	go h.run(ctx, h.startTickers())
	return h, nil
}

// ID returns the unique id of this operator instance.
func (h *Handle) ID() string {
	return h.id
}

func (h *Handle) Name() string {
	return h.processor.Name()
}

// Submit queues a message and returns immediately. Messages submitted after Close are ignored.
func (h *Handle) Submit(raw interface{}) {
	if h.closed.Load() {
		return
	}
	h.lock.Lock()
	h.seq++
	h.mailbox = append(h.mailbox, message{raw: raw, seq: h.seq, at: h.clock.Now()})
	h.lock.Unlock()
	select {
	case h.signal <- struct{}{}:
	default:
	}
}

// Close stops the time windows and the processing goroutine, then discards every partial window.
// Nothing is flushed. Close must not be called from the emitter or the error reporter.
func (h *Handle) Close() {
	if !h.closed.CompareAndSwap(false, true) {
		return
	}
	close(h.stop)
	h.wg.Wait()
	h.lock.Lock()
	h.mailbox = nil
	h.lock.Unlock()
	h.processor.Reset()
	h.log.Info("Operator closed")
}

// Sync blocks until every message submitted before the call has been processed. It returns early
// when the context is done or the handle is closed.
func (h *Handle) Sync(ctx context.Context) error {
	if h.closed.Load() {
		return nil
	}
	done := make(chan struct{})
	h.lock.Lock()
	h.mailbox = append(h.mailbox, message{done: done})
	h.lock.Unlock()
	select {
	case h.signal <- struct{}{}:
	default:
	}
	select {
	case <-done:
		return nil
	case <-h.stop:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type tick struct {
	index  int
	ticker clock.Ticker
}

// startTickers opens the time windows now, they close every window length from here.
func (h *Handle) startTickers() []tick {
	var ticks []tick
	for index, length := range h.processor.TimeWindows() {
		ticks = append(ticks, tick{index: index, ticker: h.clock.NewTicker(length)})
	}
	return ticks
}

func (h *Handle) run(ctx context.Context, ticks []tick) {
	defer h.wg.Done()
	// at most two windows, a nil channel never fires
	var (
		c0, c1 <-chan time.Time
		i0, i1 int
	)
	for i, t := range ticks {
		defer t.ticker.Stop()
		if i == 0 {
			c0, i0 = t.ticker.C(), t.index
		} else {
			c1, i1 = t.ticker.C(), t.index
		}
	}
	for {
		select {
		case <-h.stop:
			return
		case <-ctx.Done():
			h.log.Info("Context cancelled, stopping operator")
			return
		case <-h.signal:
			h.drain(ctx)
		case <-c0:
			h.drain(ctx)
			h.processor.Tick(ctx, i0)
		case <-c1:
			h.drain(ctx)
			h.processor.Tick(ctx, i1)
		}
	}
}

// drain processes the queued messages in submission order.
func (h *Handle) drain(ctx context.Context) {
	h.lock.Lock()
	batch := h.mailbox
	h.mailbox = nil
	h.lock.Unlock()
	for _, m := range batch {
		if h.closed.Load() {
			return
		}
		if m.done != nil {
			close(m.done)
			continue
		}
		h.processor.Process(ctx, m.raw, m.seq, m.at)
	}
}
