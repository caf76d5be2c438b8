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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/numaproj/numacep/pkg/event"
)

func TestSpec_Validate(t *testing.T) {
	assert.NoError(t, CountSpec(1).Validate())
	assert.Error(t, CountSpec(0).Validate())
	assert.NoError(t, TimeSpec(time.Millisecond).Validate())
	assert.Error(t, TimeSpec(time.Microsecond).Validate())
	assert.Error(t, Spec{Type: Type(7)}.Validate())
	assert.Equal(t, "Count(3)", CountSpec(3).String())
	assert.Equal(t, "Time(1s)", TimeSpec(time.Second).String())
	assert.Equal(t, "Unknown", Type(7).String())
}

func TestBuffer(t *testing.T) {
	b := NewBuffer(1, 2)
	assert.Equal(t, 1, b.Add(event.FromMap(map[string]interface{}{"v": 1})))
	assert.Equal(t, 2, b.Add(event.FromMap(map[string]interface{}{"v": 2})))
	batch := b.Close()
	assert.Equal(t, 2, batch.Len())
	assert.Equal(t, 1, batch.Stream)
	assert.Equal(t, uint64(1), batch.Seq)
	assert.Equal(t, 0, b.Len())

	b.Add(event.FromMap(map[string]interface{}{"v": 3}))
	b.Reset()
	assert.True(t, b.Close().IsEmpty())

	var nilBatch *Batch
	assert.True(t, nilBatch.IsEmpty())
}
