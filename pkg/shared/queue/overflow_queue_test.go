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

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func drain[T any](q *OverflowQueue[T]) []T {
	var r []T
	for {
		v, ok := q.Pop()
		if !ok {
			return r
		}
		r = append(r, v)
	}
}

func TestOverflowQueue_DropOldest(t *testing.T) {
	q := New[int](2, DropOldest)
	_, dropped := q.Append(1)
	assert.False(t, dropped)
	q.Append(2)
	old, dropped := q.Append(3)
	assert.True(t, dropped)
	assert.Equal(t, 1, old)
	assert.Equal(t, 2, q.Length())
	q.Append(4)
	q.Append(5)
	assert.Equal(t, []int{4, 5}, drain(q))
	q.Append(6)
	assert.Equal(t, 1, q.Length())
}

func TestOverflowQueue_DropNewest(t *testing.T) {
	q := New[string](1, DropNewest)
	q.Append("a")
	rejected, dropped := q.Append("b")
	assert.True(t, dropped)
	assert.Equal(t, "b", rejected)
	assert.Equal(t, []string{"a"}, drain(q))
}

func TestOverflowQueue_Unbounded(t *testing.T) {
	q := New[int](0, DropOldest)
	for i := 0; i < 100; i++ {
		_, dropped := q.Append(i)
		assert.False(t, dropped)
	}
	assert.Equal(t, 100, q.Length())
}

func TestOverflowQueue_Pop(t *testing.T) {
	q := New[int](0, DropOldest)
	_, ok := q.Pop()
	assert.False(t, ok)
	q.Append(1)
	q.Append(2)
	v, ok := q.Pop()
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	v, _ = q.Pop()
	assert.Equal(t, 2, v)
	assert.Equal(t, 0, q.Length())
	q.Append(3)
	q.Clear()
	assert.Equal(t, 0, q.Length())
}

func TestOverflowPolicy_String(t *testing.T) {
	assert.Equal(t, "dropOldest", DropOldest.String())
	assert.Equal(t, "dropNewest", DropNewest.String())
	assert.Equal(t, "unknown", OverflowPolicy(9).String())
}
