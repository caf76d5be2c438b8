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
	"testing"
	"time"

	natslib "github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/numaproj/numacep/pkg/event"
	natsclient "github.com/numaproj/numacep/pkg/shared/clients/nats"
	natstest "github.com/numaproj/numacep/pkg/shared/clients/nats/test"
)

func TestToNats_Write(t *testing.T) {
	server := natstest.RunNatsServer(t)
	defer server.Shutdown()
	ctx := context.Background()

	nc, err := natslib.Connect(server.ClientURL())
	require.NoError(t, err)
	defer nc.Close()
	sub, err := nc.SubscribeSync("cep.out")
	require.NoError(t, err)
	require.NoError(t, nc.Flush())

	client, err := natsclient.NewNATSClient(ctx, server.ClientURL())
	require.NoError(t, err)
	s := NewToNats(client, "cep.out")
	assert.NoError(t, s.IsHealthy(ctx))

	e := event.Derive("eventType", "joinEvent", []string{"id", "x"}, map[string]interface{}{"id": 1, "x": 11})
	assert.NoError(t, s.Write(ctx, "join", e))
	assert.NoError(t, s.Close())

	msg, err := sub.NextMsg(2 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, `{"eventType":"joinEvent","id":1,"x":11}`, string(msg.Data))
}
