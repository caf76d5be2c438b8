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

// Package count implements Count windows. A count window holds a fixed number of events and closes as
// soon as the last one arrives. Closing is deterministic and driven purely by event arrival.
package count

import (
	"github.com/numaproj/numacep/pkg/event"
	"github.com/numaproj/numacep/pkg/window"
)

// Count implements an arrival driven tumbling window of Size events.
type Count struct {
	// Size is the number of events of every window.
	Size   int
	buffer *window.Buffer
}

var _ window.Windower = (*Count)(nil)

// NewCount returns a Count windower for the given stream.
func NewCount(size int, stream int) *Count {
	return &Count{
		Size:   size,
		buffer: window.NewBuffer(stream, size),
	}
}

func (c *Count) Spec() window.Spec {
	return window.CountSpec(c.Size)
}

// Append buffers the event and closes the window when it holds Size events.
func (c *Count) Append(e *event.Event) *window.Batch {
	if c.buffer.Add(e) >= c.Size {
		return c.buffer.Close()
	}
	return nil
}

// Tick is a no-op, count windows are not driven by time.
func (c *Count) Tick() *window.Batch {
	return nil
}

func (c *Count) Pending() int {
	return c.buffer.Len()
}

func (c *Count) Reset() {
	c.buffer.Reset()
}
