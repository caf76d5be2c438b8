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

// Package synchronizer aligns the window closures of two correlated streams. The k-th batch closed by
// the left stream is paired with the k-th batch closed by the right stream, whatever the wall-clock
// instant each of them closed at (rendezvous, not a time join).
//
// A stream that closes batches faster than the other accumulates them in its side queue. The queues are
// bounded by MaxPending, when a queue is full the overflow policy decides which batch is lost.
package synchronizer

import (
	"fmt"

	"github.com/numaproj/numacep/pkg/shared/queue"
	"github.com/numaproj/numacep/pkg/window"
)

// DefaultMaxPending is the default depth of each side queue.
const DefaultMaxPending = 1024

// Side identifies one of the two synchronized streams.
type Side int

const (
	Left Side = iota
	Right
)

func (s Side) String() string {
	switch s {
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return "unknown"
	}
}

// Pair is a synchronized couple of non-empty batches.
type Pair struct {
	// Seq is the position of the pair, starting at 1.
	Seq   uint64
	Left  *window.Batch
	Right *window.Batch
}

type options struct {
	maxPending int
	policy     queue.OverflowPolicy
}

type Option func(*options)

// WithMaxPending bounds each side queue, 0 makes them unbounded.
func WithMaxPending(n int) Option {
	return func(o *options) {
		o.maxPending = n
	}
}

// WithOverflowPolicy sets which batch is lost on a full side queue.
func WithOverflowPolicy(p queue.OverflowPolicy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// Zip pairs the batches of two streams by FIFO position.
type Zip struct {
	queues    [2]*queue.OverflowQueue[*window.Batch]
	paired    uint64
	discarded uint64
	dropped   uint64
}

// NewZip returns an empty synchronizer.
func NewZip(opts ...Option) *Zip {
	o := &options{
		maxPending: DefaultMaxPending,
		policy:     queue.DropOldest,
	}
	for _, opt := range opts {
		opt(o)
	}
	return &Zip{
		queues: [2]*queue.OverflowQueue[*window.Batch]{
			queue.New[*window.Batch](o.maxPending, o.policy),
			queue.New[*window.Batch](o.maxPending, o.policy),
		},
	}
}

// Push enqueues the closed batch of one side. Once both sides hold a batch the heads are
// consumed together; the pair is returned only if both batches are non-empty. If the side
// queue was full, the batch lost to the overflow policy is returned as dropped.
func (z *Zip) Push(side Side, b *window.Batch) (pair *Pair, dropped *window.Batch, err error) {
	if side != Left && side != Right {
		return nil, nil, fmt.Errorf("unknown side %d", side)
	}
	if lost, overflow := z.queues[side].Append(b); overflow {
		z.dropped++
		dropped = lost
	}
	if z.queues[Left].Length() == 0 || z.queues[Right].Length() == 0 {
		return nil, dropped, nil
	}
	left, _ := z.queues[Left].Pop()
	right, _ := z.queues[Right].Pop()
	z.paired++
	if left.IsEmpty() || right.IsEmpty() {
		z.discarded++
		return nil, dropped, nil
	}
	return &Pair{Seq: z.paired, Left: left, Right: right}, dropped, nil
}

// Pending returns the number of batches waiting for their counterpart on the given side.
func (z *Zip) Pending(side Side) int {
	if side != Left && side != Right {
		return 0
	}
	return z.queues[side].Length()
}

// Paired returns the number of consumed pairs, including the discarded ones.
func (z *Zip) Paired() uint64 {
	return z.paired
}

// Discarded returns the number of pairs consumed with at least one empty side.
func (z *Zip) Discarded() uint64 {
	return z.discarded
}

// Dropped returns the number of batches lost to overflow.
func (z *Zip) Dropped() uint64 {
	return z.dropped
}

// Reset drops every pending batch.
func (z *Zip) Reset() {
	z.queues[Left].Clear()
	z.queues[Right].Clear()
}
