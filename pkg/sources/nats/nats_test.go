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

package nats

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	natslib "github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cepv1 "github.com/numaproj/numacep/pkg/apis/cep/v1alpha1"
	natstest "github.com/numaproj/numacep/pkg/shared/clients/nats/test"
)

type received struct {
	sync.Mutex
	data []string
}

func (r *received) add(b []byte) {
	r.Lock()
	defer r.Unlock()
	r.data = append(r.data, string(b))
}

func (r *received) len() int {
	r.Lock()
	defer r.Unlock()
	return len(r.data)
}

func run(ctx context.Context, ns *natsSource, r *received) *sync.WaitGroup {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = ns.Run(ctx, r.add)
	}()
	return &wg
}

func Test_Single(t *testing.T) {
	server := natstest.RunNatsServer(t)
	defer server.Shutdown()

	url := server.ClientURL()
	ns, err := New(context.Background(), &cepv1.NatsSource{URL: url, Subject: "test", Queue: "test-queue"}, WithBufferSize(10))
	require.NoError(t, err)
	defer func() { _ = ns.Close() }()
	assert.NoError(t, ns.IsHealthy(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	r := &received{}
	wg := run(ctx, ns, r)

	nc, err := natslib.Connect(url)
	require.NoError(t, err)
	defer nc.Close()
	for i := 1; i <= 3; i++ {
		_ = nc.Publish("test", []byte(fmt.Sprintf(`{"payload":{"v":%d}}`, i)))
	}

	assert.Eventually(t, func() bool { return r.len() == 3 }, 5*time.Second, 10*time.Millisecond)
	cancel()
	wg.Wait()
	assert.Equal(t, []string{`{"payload":{"v":1}}`, `{"payload":{"v":2}}`, `{"payload":{"v":3}}`}, r.data)
}

func Test_Multiple(t *testing.T) {
	server := natstest.RunNatsServer(t)
	defer server.Shutdown()

	url := server.ClientURL()
	spec := &cepv1.NatsSource{URL: url, Subject: "test", Queue: "test-queue"}
	ns1, err := New(context.Background(), spec)
	require.NoError(t, err)
	defer func() { _ = ns1.Close() }()
	ns2, err := New(context.Background(), spec)
	require.NoError(t, err)
	defer func() { _ = ns2.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	r1, r2 := &received{}, &received{}
	wg1 := run(ctx, ns1, r1)
	wg2 := run(ctx, ns2, r2)

	nc, err := natslib.Connect(url)
	require.NoError(t, err)
	defer nc.Close()
	for i := 0; i < 5; i++ {
		_ = nc.Publish("test", []byte(fmt.Sprint(i)))
	}

	// queue subscribers share the messages
	assert.Eventually(t, func() bool { return r1.len()+r2.len() == 5 }, 5*time.Second, 10*time.Millisecond)
	cancel()
	wg1.Wait()
	wg2.Wait()
}

func Test_Options(t *testing.T) {
	_, err := New(context.Background(), nil)
	assert.Error(t, err)

	server := natstest.RunNatsServer(t)
	defer server.Shutdown()
	_, err = New(context.Background(), &cepv1.NatsSource{URL: server.ClientURL(), Subject: "test"}, WithBufferSize(-1))
	assert.Error(t, err)
}
