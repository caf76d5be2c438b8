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

package window

import (
	"fmt"
	"time"

	"github.com/numaproj/numacep/pkg/event"
)

// Type represents the window discipline.
type Type int

const (
	Count Type = iota
	Time
)

func (t Type) String() string {
	switch t {
	case Count:
		return "Count"
	case Time:
		return "Time"
	default:
		return "Unknown"
	}
}

// Spec describes the window of one logical stream, Count(n) or Time(d).
type Spec struct {
	Type Type
	// Size is the number of events of a Count window.
	Size int
	// Length is the duration of a Time window.
	Length time.Duration
}

// CountSpec returns a Count(n) window spec.
func CountSpec(n int) Spec {
	return Spec{Type: Count, Size: n}
}

// TimeSpec returns a Time(d) window spec.
func TimeSpec(d time.Duration) Spec {
	return Spec{Type: Time, Length: d}
}

// Validate returns an error for windows that would never close.
func (s Spec) Validate() error {
	switch s.Type {
	case Count:
		if s.Size < 1 {
			return fmt.Errorf("count window size must be at least 1, got %d", s.Size)
		}
	case Time:
		if s.Length < time.Millisecond {
			return fmt.Errorf("time window length must be at least 1ms, got %s", s.Length)
		}
	default:
		return fmt.Errorf("unknown window type %d", s.Type)
	}
	return nil
}

func (s Spec) String() string {
	if s.Type == Time {
		return fmt.Sprintf("Time(%s)", s.Length)
	}
	return fmt.Sprintf("Count(%d)", s.Size)
}

// Batch is the finite ordered sequence of events released when a window closes.
type Batch struct {
	// Stream is the index of the logical stream the batch belongs to.
	Stream int
	// Seq is the position of the batch among the batches closed by the stream, starting at 1.
	Seq uint64
	// Events in arrival order.
	Events []*event.Event
}

func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Events)
}

func (b *Batch) IsEmpty() bool {
	return b.Len() == 0
}

// Windower buffers the admitted events of one logical stream.
type Windower interface {
	// Spec returns the window spec
	Spec() Spec
	// Append buffers the event and returns the closed batch if the event completed the window.
	Append(e *event.Event) *Batch
	// Tick closes the current window on a timer, it returns nil for windows not driven by time.
	Tick() *Batch
	// Pending returns the number of events in the open window.
	Pending() int
	// Reset discards the open window without emitting it.
	Reset()
}

// Buffer is the accumulating state shared by the window strategies.
type Buffer struct {
	stream int
	closed uint64
	events []*event.Event
}

// NewBuffer returns an empty buffer for the given stream.
func NewBuffer(stream int, capacity int) *Buffer {
	return &Buffer{
		stream: stream,
		events: make([]*event.Event, 0, capacity),
	}
}

func (b *Buffer) Add(e *event.Event) int {
	b.events = append(b.events, e)
	return len(b.events)
}

func (b *Buffer) Len() int {
	return len(b.events)
}

// Close hands off the accumulated events as a batch and opens a new window.
func (b *Buffer) Close() *Batch {
	b.closed++
	batch := &Batch{
		Stream: b.stream,
		Seq:    b.closed,
		Events: b.events,
	}
	b.events = make([]*event.Event, 0, cap(b.events))
	return batch
}

// Reset drops the accumulated events, the batch numbering is kept.
func (b *Buffer) Reset() {
	b.events = make([]*event.Event, 0, cap(b.events))
}
