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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"

	cepv1 "github.com/numaproj/numacep/pkg/apis/cep/v1alpha1"
	"github.com/numaproj/numacep/pkg/ceperr"
)

func payload(fields map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{"payload": fields}
}

func TestHandle_CountWindow(t *testing.T) {
	c := &collector{}
	h, err := Configure(context.Background(), aggregateSpec(cepv1.Aggregate{Function: cepv1.FunctionSum, Field: "v", Alias: "total"}), c.options()...)
	require.NoError(t, err)
	defer h.Close()
	assert.NotEmpty(t, h.ID())
	assert.Equal(t, "aggr", h.Name())

	for i := 1; i <= 3; i++ {
		h.Submit(payload(map[string]interface{}{"v": i}))
	}
	assert.Eventually(t, func() bool {
		return len(c.Events()) == 1
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, `{"eventType":"aggregateEvent","total":6}`, c.Events()[0])
}

func TestHandle_TimeWindow(t *testing.T) {
	fc := testingclock.NewFakeClock(time.Now())
	c := &collector{}
	spec := aggregateSpec(cepv1.Aggregate{Function: cepv1.FunctionCount, Alias: "n"})
	spec.Aggregate.Window = cepv1.Window{Type: cepv1.WindowTypeTime, Param: 1000}
	h, err := Configure(context.Background(), spec, append(c.options(), WithClock(fc))...)
	require.NoError(t, err)
	defer h.Close()

	h.Submit(payload(map[string]interface{}{"v": 1}))
	h.Submit(payload(map[string]interface{}{"v": 2}))
	fc.Step(time.Second)
	assert.Eventually(t, func() bool {
		return len(c.Events()) == 1
	}, 5*time.Second, 10*time.Millisecond)

	// an empty interval emits nothing, the next window starts from the previous close
	fc.Step(time.Second)
	h.Submit(payload(map[string]interface{}{"v": 3}))
	fc.Step(time.Second)
	assert.Eventually(t, func() bool {
		return len(c.Events()) == 2
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{
		`{"eventType":"aggregateEvent","n":2}`,
		`{"eventType":"aggregateEvent","n":1}`,
	}, c.Events())
}

func TestHandle_PatternOrder(t *testing.T) {
	c := &collector{}
	h, err := Configure(context.Background(), patternSpec(`"Evt1","Evt2"`), c.options()...)
	require.NoError(t, err)
	defer h.Close()

	h.Submit(payload(map[string]interface{}{"eventType": "Evt2", "id": 1, "n": 1}))
	h.Submit(payload(map[string]interface{}{"eventType": "Evt1", "id": 1, "n": 2}))
	h.Submit(payload(map[string]interface{}{"eventType": "Evt1", "id": 1, "n": 3}))
	h.Submit(payload(map[string]interface{}{"eventType": "Evt2", "id": 1, "n": 4}))
	assert.Eventually(t, func() bool {
		return len(c.Events()) == 1
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, `{"eventType":"patternEvent","id":1,"n":4}`, c.Events()[0])
}

func TestHandle_ConcurrentSubmit(t *testing.T) {
	c := &collector{}
	spec := aggregateSpec(cepv1.Aggregate{Function: cepv1.FunctionCount, Alias: "n"})
	spec.Aggregate.Window = countWindow(10)
	h, err := Configure(context.Background(), spec, c.options()...)
	require.NoError(t, err)
	defer h.Close()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				h.Submit(payload(map[string]interface{}{"v": j}))
			}
		}()
	}
	wg.Wait()
	assert.Eventually(t, func() bool {
		return len(c.Events()) == 10
	}, 5*time.Second, 10*time.Millisecond)
	for _, e := range c.Events() {
		assert.Equal(t, `{"eventType":"aggregateEvent","n":10}`, e)
	}
}

func TestHandle_Sync(t *testing.T) {
	c := &collector{}
	spec := aggregateSpec(cepv1.Aggregate{Function: cepv1.FunctionCount, Alias: "n"})
	spec.Aggregate.Window = countWindow(2)
	h, err := Configure(context.Background(), spec, c.options()...)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		h.Submit(payload(map[string]interface{}{"v": i}))
	}
	require.NoError(t, h.Sync(context.Background()))
	// the fifth event is still in the open window
	assert.Len(t, c.Events(), 2)
	assert.Equal(t, 1, h.processor.windowers[0].Pending())

	h.Close()
	assert.NoError(t, h.Sync(context.Background()))
}

func TestHandle_CloseDiscardsPartialWindows(t *testing.T) {
	c := &collector{}
	fc := testingclock.NewFakeClock(time.Now())
	spec := joinSpec("")
	spec.Join.Window2 = cepv1.Window{Type: cepv1.WindowTypeTime, Param: 100}
	h, err := Configure(context.Background(), spec, append(c.options(), WithClock(fc))...)
	require.NoError(t, err)

	h.Submit(payload(map[string]interface{}{"eventType": "A", "id": 1}))
	h.Submit(payload(map[string]interface{}{"eventType": "B", "id": 1}))
	h.Close()
	h.Close()
	h.Submit(payload(map[string]interface{}{"eventType": "A", "id": 1}))
	assert.Equal(t, 0, h.processor.windowers[0].Pending())
	assert.Equal(t, 0, h.processor.windowers[1].Pending())
	assert.Empty(t, c.Events())
}

func TestHandle_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := &collector{}
	h, err := Configure(ctx, aggregateSpec(cepv1.Aggregate{Function: cepv1.FunctionCount}), c.options()...)
	require.NoError(t, err)
	cancel()
	h.Close()
}

func TestConfigure_Errors(t *testing.T) {
	spec := patternSpec("(")
	_, err := Configure(context.Background(), spec, WithLogger(nil))
	assert.True(t, ceperr.IsKind(err, ceperr.PatternCompile))

	_, err = Configure(context.Background(), cepv1.OperatorSpec{Type: cepv1.OperatorTypeJoin})
	assert.True(t, ceperr.IsKind(err, ceperr.Config))
}
