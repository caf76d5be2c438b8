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

// Package reader reads newline delimited inbound messages, from the standard input by default.
package reader

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/numaproj/numacep/pkg/metrics"
	"github.com/numaproj/numacep/pkg/shared/logging"
)

// maxLineSize bounds a single message.
const maxLineSize = 4 * 1024 * 1024

type lineReader struct {
	name   string
	in     io.Reader
	logger *zap.SugaredLogger
}

type Option func(*lineReader)

func WithLogger(l *zap.SugaredLogger) Option {
	return func(r *lineReader) {
		if l != nil {
			r.logger = l
		}
	}
}

// New returns a source reading one message per line from in. Blank lines are skipped.
func New(name string, in io.Reader, opts ...Option) *lineReader {
	r := &lineReader{
		name:   name,
		in:     in,
		logger: logging.NewLogger(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// NewStdin returns a source reading the standard input.
func NewStdin(opts ...Option) *lineReader {
	return New("stdin", os.Stdin, opts...)
}

// Run hands every line to handler until the input is exhausted or the context is done.
func (r *lineReader) Run(ctx context.Context, handler func([]byte)) error {
	lines := make(chan []byte)
	errCh := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r.in)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			// the scanner reuses its buffer
			data := make([]byte, len(line))
			copy(data, line)
			select {
			case lines <- data:
			case <-ctx.Done():
				errCh <- nil
				return
			}
		}
		errCh <- scanner.Err()
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case data, ok := <-lines:
			if !ok {
				if err := <-errCh; err != nil {
					metrics.SourceReadErrorCount.With(map[string]string{metrics.LabelSource: r.name}).Inc()
					return fmt.Errorf("failed to read %s, %w", r.name, err)
				}
				r.logger.Infow("Input exhausted", zap.String("source", r.name))
				return nil
			}
			metrics.SourceReadCount.With(map[string]string{metrics.LabelSource: r.name}).Inc()
			handler(data)
		}
	}
}

// IsHealthy always succeeds, there is no connection to lose.
func (r *lineReader) IsHealthy(_ context.Context) error {
	return nil
}

func (r *lineReader) Close() error {
	return nil
}
