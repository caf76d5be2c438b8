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

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	cepv1 "github.com/numaproj/numacep/pkg/apis/cep/v1alpha1"
	"github.com/numaproj/numacep/pkg/operator"
	"github.com/numaproj/numacep/pkg/shared/expr"
	"github.com/numaproj/numacep/pkg/shared/logging"
)

func NewValidateCommand() *cobra.Command {
	var (
		configFile string
		print      bool
	)

	command := &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration and compile every operator",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := loadConfig(configFile)
			if err != nil {
				return err
			}
			if err := conf.Validate(); err != nil {
				return err
			}
			if err := compileOperators(cmd.Context(), conf); err != nil {
				return err
			}
			if print {
				out, err := yaml.Marshal(conf)
				if err != nil {
					return fmt.Errorf("failed to marshal configuration, %w", err)
				}
				_, _ = cmd.OutOrStdout().Write(out)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d operators are valid\n", len(conf.Operators))
			return nil
		},
	}
	command.Flags().StringVarP(&configFile, "config", "c", "cep.yaml", "configuration file, YAML or JSON")
	command.Flags().BoolVar(&print, "print", false, "print the configuration with the defaults applied")
	return command
}

// loadConfig reads and defaults the configuration, and validates the host part of it.
func loadConfig(path string) (*cepv1.Config, error) {
	raw, err := cepv1.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	conf := raw.WithDefaults()
	if err := conf.ValidateHost(); err != nil {
		return nil, err
	}
	return &conf, nil
}

// compileOperators builds the processors of every operator without starting them, it catches the
// errors Validate cannot see, malformed expressions and patterns.
func compileOperators(ctx context.Context, conf *cepv1.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	compiler, err := expr.NewCompiler(expr.DefaultCacheSize)
	if err != nil {
		return err
	}
	log := logging.FromContext(ctx)
	for _, spec := range conf.Operators {
		if _, err := operator.NewProcessor(ctx, spec, operator.WithCompiler(compiler), operator.WithLogger(log)); err != nil {
			return err
		}
	}
	return nil
}
