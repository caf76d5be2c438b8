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

// Package sinks delivers the derived events emitted by the operators.
package sinks

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	cepv1 "github.com/numaproj/numacep/pkg/apis/cep/v1alpha1"
	natsclient "github.com/numaproj/numacep/pkg/shared/clients/nats"
	redisclient "github.com/numaproj/numacep/pkg/shared/clients/redis"
	logsink "github.com/numaproj/numacep/pkg/sinks/logger"
	natssink "github.com/numaproj/numacep/pkg/sinks/nats"
	redissink "github.com/numaproj/numacep/pkg/sinks/redis"
)

// New builds the sink described by spec.
func New(ctx context.Context, spec cepv1.SinkSpec, log *zap.SugaredLogger) (Sinker, error) {
	switch spec.Type {
	case cepv1.SinkTypeLog, "":
		return logsink.NewToLog(logsink.WithLogger(log)), nil
	case cepv1.SinkTypeNats:
		client, err := natsclient.NewNATSClient(ctx, spec.Nats.URL)
		if err != nil {
			return nil, err
		}
		return natssink.NewToNats(client, spec.Nats.Subject, natssink.WithLogger(log)), nil
	case cepv1.SinkTypeRedis:
		client := redisclient.NewRedisClient(&redis.UniversalOptions{
			Addrs:    []string{spec.Redis.Addr},
			Password: spec.Redis.Password,
			DB:       spec.Redis.DB,
		})
		return redissink.NewToRedis(client, spec.Redis.Stream, redissink.WithMaxLen(spec.Redis.MaxLen), redissink.WithLogger(log)), nil
	default:
		return nil, fmt.Errorf("unrecognized sink type %q", spec.Type)
	}
}
