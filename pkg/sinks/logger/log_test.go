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

package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/numaproj/numacep/pkg/event"
)

func TestToLog_Write(t *testing.T) {
	tests := []struct {
		name   string
		opts   []Option
		expect string
	}{
		{name: "plain", expect: "{\"eventType\":\"aggregateEvent\",\"total\":6}\n"},
		{name: "prefixed", opts: []Option{WithOperatorPrefix()}, expect: "(sum) {\"eventType\":\"aggregateEvent\",\"total\":6}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			s := NewToLog(append(tt.opts, WithWriter(&buf))...)
			e := event.Derive("eventType", "aggregateEvent", []string{"total"}, map[string]interface{}{"total": 6})
			assert.NoError(t, s.Write(context.Background(), "sum", e))
			assert.Equal(t, tt.expect, buf.String())
			assert.NoError(t, s.IsHealthy(context.Background()))
			assert.NoError(t, s.Close())
		})
	}
}
