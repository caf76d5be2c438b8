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

package metrics

import (
	"context"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/gavv/httpexpect/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type checker struct {
	err error
}

func (c *checker) IsHealthy(context.Context) error {
	return c.err
}

func Test_MetricsServer_Handler(t *testing.T) {
	hc := &checker{}
	ms := NewMetricsServer(NewMetricsOptions(context.Background(), 0, []HealthChecker{hc})...)
	server := httptest.NewServer(ms.handler(context.Background()))
	defer server.Close()

	e := httpexpect.Default(t, server.URL)
	ReceivedCount.WithLabelValues("handler-test", "aggregate").Inc()
	e.GET("/metrics").Expect().Status(200).Body().Contains("cep_received_total")
	e.GET("/livez").Expect().Status(204)
	e.GET("/readyz").Expect().Status(204)

	hc.err = fmt.Errorf("connection closed")
	e.GET("/readyz").Expect().Status(500).Body().IsEqual("connection closed")
}

func Test_StartMetricsServer(t *testing.T) {
	ms := NewMetricsServer(WithPort(0))
	addr, shutdown, err := ms.Start(context.Background())
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, shutdown(context.Background()))
	}()
	e := httpexpect.Default(t, "http://"+addr)
	e.GET("/livez").Expect().Status(204)
}

func Test_MetricsServer_WithHealthCheckExecutor(t *testing.T) {
	executed := false
	ms := NewMetricsServer(WithHealthCheckExecutor(func() error {
		executed = true
		return nil
	}))
	assert.Equal(t, DefaultPort, ms.port)
	require.Len(t, ms.healthCheckExecutors, 1)
	assert.NoError(t, ms.healthCheckExecutors[0]())
	assert.True(t, executed)
}
