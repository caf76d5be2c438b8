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

package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/numaproj/numacep"
	cepv1 "github.com/numaproj/numacep/pkg/apis/cep/v1alpha1"
	"github.com/numaproj/numacep/pkg/event"
	"github.com/numaproj/numacep/pkg/metrics"
	"github.com/numaproj/numacep/pkg/operator"
	"github.com/numaproj/numacep/pkg/shared/expr"
	"github.com/numaproj/numacep/pkg/shared/logging"
	"github.com/numaproj/numacep/pkg/sinks"
	"github.com/numaproj/numacep/pkg/sources"
)

func NewRunCommand() *cobra.Command {
	var (
		configFile  string
		metricsPort int
	)

	command := &cobra.Command{
		Use:   "run",
		Short: "Run the configured operators",
		RunE: func(cmd *cobra.Command, args []string) error {
			v := numacep.GetVersion()
			log := logging.NewLogger()
			log.Infow("Starting numacep", "version", v.Version)
			metrics.BuildInfo.WithLabelValues(v.Version, v.Platform).Set(1)

			conf, err := loadConfig(configFile)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(logging.WithLogger(context.Background(), log), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			src, err := sources.New(ctx, conf.Source, log)
			if err != nil {
				return fmt.Errorf("failed to create source, %w", err)
			}
			defer func() { _ = src.Close() }()
			sink, err := sinks.New(ctx, conf.Sink, log)
			if err != nil {
				return fmt.Errorf("failed to create sink, %w", err)
			}
			defer func() { _ = sink.Close() }()

			if metricsPort > 0 {
				ms := metrics.NewMetricsServer(metrics.NewMetricsOptions(ctx, metricsPort, []metrics.HealthChecker{src, sink})...)
				_, shutdown, err := ms.Start(ctx)
				if err != nil {
					return err
				}
				defer func() {
					sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = shutdown(sctx)
				}()
			}
			return runOperators(ctx, conf, src, sink)
		},
	}
	command.Flags().StringVarP(&configFile, "config", "c", "cep.yaml", "configuration file, YAML or JSON")
	command.Flags().IntVar(&metricsPort, "metrics-port", metrics.DefaultPort, "port of the metrics and health endpoints, 0 disables them")
	return command
}

// runOperators starts every operator, feeds each of them every inbound message and writes the derived
// events to the sink. It returns when the source is exhausted or the context is done. On exhaustion the
// queued messages are processed first, open windows are discarded. An operator that fails to configure
// is left out, the host fails only when no operator could be started.
func runOperators(ctx context.Context, conf *cepv1.Config, src sources.Sourcer, sink sinks.Sinker) error {
	log := logging.FromContext(ctx)
	compiler, err := expr.NewCompiler(expr.DefaultCacheSize)
	if err != nil {
		return err
	}
	handles := make([]*operator.Handle, 0, len(conf.Operators))
	defer func() {
		for _, h := range handles {
			h.Close()
		}
	}()
	for _, spec := range conf.Operators {
		name := spec.Name
		opLog := log.With("operator", name)
		h, err := operator.Configure(ctx, spec,
			operator.WithCompiler(compiler),
			operator.WithLogger(log),
			operator.WithEmitter(func(e *event.Event) {
				if err := sink.Write(ctx, name, e); err != nil {
					opLog.Errorw("Failed to write derived event", zap.Error(err))
				}
			}),
			operator.WithErrorReporter(func(msg string) {
				opLog.Warnw("Evaluation failed", zap.String("error", msg))
			}),
		)
		if err != nil {
			metrics.ConfigErrorCount.WithLabelValues(name, string(spec.Type)).Inc()
			opLog.Errorw("Failed to configure operator, it stays inert", zap.Error(err))
			continue
		}
		handles = append(handles, h)
		opLog.Infow("Operator started", zap.String("type", string(spec.Type)), zap.String("id", h.ID()))
	}

	if len(handles) == 0 {
		return fmt.Errorf("none of the %d operators could be configured", len(conf.Operators))
	}

	if err := src.Run(ctx, func(data []byte) {
		for _, h := range handles {
			h.Submit(data)
		}
	}); err != nil {
		return err
	}
	if ctx.Err() != nil {
		log.Info("Shutting down")
		return nil
	}
	errs, gctx := errgroup.WithContext(ctx)
	for _, h := range handles {
		h := h
		errs.Go(func() error {
			return h.Sync(gctx)
		})
	}
	return errs.Wait()
}
