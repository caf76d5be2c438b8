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
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisContext is used for writes which must complete even when the caller's context is cancelled during
// shutdown, go-redis uses the context to obtain a connection from the pool.
var RedisContext = context.Background()

// RedisClient datatype to hold redis client attributes.
type RedisClient struct {
	Client redis.UniversalClient
}

// NewRedisClient returns a new Redis Client.
func NewRedisClient(options *redis.UniversalOptions) *RedisClient {
	client := new(RedisClient)
	client.Client = redis.NewUniversalClient(options)
	return client
}

// AddToStream appends an entry with the given values to the stream. A positive maxLen trims the stream
// approximately.
func (cl *RedisClient) AddToStream(ctx context.Context, stream string, maxLen int64, values map[string]interface{}) (string, error) {
	args := &redis.XAddArgs{
		Stream: stream,
		Values: values,
	}
	if maxLen > 0 {
		args.MaxLen = maxLen
		args.Approx = true
	}
	return cl.Client.XAdd(ctx, args).Result()
}

// StreamLength returns the number of entries of the stream.
func (cl *RedisClient) StreamLength(ctx context.Context, stream string) (int64, error) {
	return cl.Client.XLen(ctx, stream).Result()
}

// DeleteKeys deletes a redis keys
func (cl *RedisClient) DeleteKeys(ctx context.Context, keys ...string) error {
	return cl.Client.Del(ctx, keys...).Err()
}

// Ping returns an error when the server cannot be reached.
func (cl *RedisClient) Ping(ctx context.Context) error {
	if err := cl.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis, %w", err)
	}
	return nil
}

func (cl *RedisClient) Close() error {
	return cl.Client.Close()
}
