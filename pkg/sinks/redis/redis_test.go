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

package redis

import (
	"context"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/numaproj/numacep/pkg/event"
	redisclient "github.com/numaproj/numacep/pkg/shared/clients/redis"
)

type mockRedisClient struct {
	mock.Mock
	redis.UniversalClient
}

func (m *mockRedisClient) XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd {
	args := m.Called(ctx, a)
	cmd := redis.NewStringCmd(ctx)
	cmd.SetErr(args.Error(0))
	return cmd
}

func TestToRedis_Write(t *testing.T) {
	e := event.Derive("eventType", "patternEvent", []string{"id"}, map[string]interface{}{"id": 1})
	expect := &redis.XAddArgs{
		Stream: "cep",
		MaxLen: 10,
		Approx: true,
		Values: map[string]interface{}{"operator": "door", "event": `{"eventType":"patternEvent","id":1}`},
	}

	t.Run("written", func(t *testing.T) {
		m := new(mockRedisClient)
		m.On("XAdd", mock.Anything, expect).Return(nil)
		s := NewToRedis(&redisclient.RedisClient{Client: m}, "cep", WithMaxLen(10))
		assert.NoError(t, s.Write(context.Background(), "door", e))
		m.AssertExpectations(t)
	})

	t.Run("failed", func(t *testing.T) {
		m := new(mockRedisClient)
		m.On("XAdd", mock.Anything, expect).Return(errors.New("OOM"))
		s := NewToRedis(&redisclient.RedisClient{Client: m}, "cep", WithMaxLen(10))
		assert.ErrorContains(t, s.Write(context.Background(), "door", e), "OOM")
	})
}

func TestToRedis_Server(t *testing.T) {
	t.SkipNow()
	ctx := context.TODO()
	client := redisclient.NewRedisClient(&redis.UniversalOptions{Addrs: []string{":6379"}})
	s := NewToRedis(client, "numacep-sink-test")
	defer func() { _ = s.Close() }()
	assert.NoError(t, s.IsHealthy(ctx))
	assert.NoError(t, s.Write(ctx, "op", event.Derive("eventType", "aggregateEvent", nil, nil)))
	assert.NoError(t, client.DeleteKeys(ctx, "numacep-sink-test"))
}
