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

// Package sources reads the inbound messages fed to the operators.
package sources

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	cepv1 "github.com/numaproj/numacep/pkg/apis/cep/v1alpha1"
	"github.com/numaproj/numacep/pkg/sources/nats"
	"github.com/numaproj/numacep/pkg/sources/reader"
)

// Sourcer delivers the undecoded inbound messages to handler, one at a time, until it is
// exhausted or the context is done.
type Sourcer interface {
	Run(ctx context.Context, handler func([]byte)) error
	IsHealthy(ctx context.Context) error
	Close() error
}

// New builds the source described by spec.
func New(ctx context.Context, spec cepv1.SourceSpec, log *zap.SugaredLogger) (Sourcer, error) {
	switch spec.Type {
	case cepv1.SourceTypeStdin, "":
		return reader.NewStdin(reader.WithLogger(log)), nil
	case cepv1.SourceTypeNats:
		return nats.New(ctx, spec.Nats, nats.WithLogger(log))
	default:
		return nil, fmt.Errorf("unrecognized source type %q", spec.Type)
	}
}
