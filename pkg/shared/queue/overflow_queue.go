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

package queue

import "sync"

// OverflowPolicy decides which element is lost when a bounded queue is full.
type OverflowPolicy int

const (
	// DropOldest evicts the head of the queue to make room for the new element.
	DropOldest OverflowPolicy = iota
	// DropNewest rejects the element being appended.
	DropNewest
)

func (p OverflowPolicy) String() string {
	switch p {
	case DropOldest:
		return "dropOldest"
	case DropNewest:
		return "dropNewest"
	default:
		return "unknown"
	}
}

// OverflowQueue is a thread safe FIFO queue. A maxSize <= 0 makes it unbounded,
// otherwise the overflow policy decides which element overflows.
type OverflowQueue[T any] struct {
	elements []T
	maxSize  int
	policy   OverflowPolicy
	lock     *sync.RWMutex
}

func New[T any](size int, policy OverflowPolicy) *OverflowQueue[T] {
	return &OverflowQueue[T]{
		elements: []T{},
		maxSize:  size,
		policy:   policy,
		lock:     new(sync.RWMutex),
	}
}

// Append adds an element to the tail of the queue. If an element had to overflow,
// it is returned with true.
func (q *OverflowQueue[T]) Append(value T) (T, bool) {
	q.lock.Lock()
	defer q.lock.Unlock()
	var dropped T
	if q.maxSize > 0 && len(q.elements) >= q.maxSize {
		if q.policy == DropNewest {
			return value, true
		}
		dropped = q.elements[0]
		q.elements = q.elements[1:]
		q.elements = append(q.elements, value)
		return dropped, true
	}
	q.elements = append(q.elements, value)
	return dropped, false
}

// Pop removes and returns the head of the queue.
func (q *OverflowQueue[T]) Pop() (T, bool) {
	q.lock.Lock()
	defer q.lock.Unlock()
	var head T
	if len(q.elements) == 0 {
		return head, false
	}
	head = q.elements[0]
	var zero T
	q.elements[0] = zero
	q.elements = q.elements[1:]
	return head, true
}

// Length returns the current length of the queue
func (q *OverflowQueue[T]) Length() int {
	q.lock.RLock()
	defer q.lock.RUnlock()
	return len(q.elements)
}

// Clear drops every element.
func (q *OverflowQueue[T]) Clear() {
	q.lock.Lock()
	defer q.lock.Unlock()
	q.elements = []T{}
}
