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

// Package fixed implements Fixed windows. Fixed windows (sometimes called tumbling windows) are
// defined by a static window length, e.g. 500ms windows. A window opens when the previous one
// closes and closes every Length, measured from the moment it was opened, independent of event
// arrival. The ticks are delivered by the owner of the windower through Tick.
package fixed

import (
	"time"

	"github.com/numaproj/numacep/pkg/event"
	"github.com/numaproj/numacep/pkg/window"
)

// Fixed implements a time driven tumbling window.
type Fixed struct {
	// Length is the temporal length of the window.
	Length time.Duration
	buffer *window.Buffer
}

var _ window.Windower = (*Fixed)(nil)

// NewFixed returns a Fixed windower for the given stream.
func NewFixed(length time.Duration, stream int) *Fixed {
	return &Fixed{
		Length: length,
		buffer: window.NewBuffer(stream, 16),
	}
}

func (f *Fixed) Spec() window.Spec {
	return window.TimeSpec(f.Length)
}

// Append only buffers the event, time windows never close on arrival.
func (f *Fixed) Append(e *event.Event) *window.Batch {
	f.buffer.Add(e)
	return nil
}

// Tick closes the current window, possibly empty, and opens the next one.
func (f *Fixed) Tick() *window.Batch {
	return f.buffer.Close()
}

func (f *Fixed) Pending() int {
	return f.buffer.Len()
}

func (f *Fixed) Reset() {
	f.buffer.Reset()
}
