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

package v1alpha1

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/multierr"

	"github.com/numaproj/numacep/pkg/ceperr"
)

type SourceType string

const (
	SourceTypeStdin SourceType = "stdin"
	SourceTypeNats  SourceType = "nats"
)

type SinkType string

const (
	SinkTypeLog   SinkType = "log"
	SinkTypeNats  SinkType = "nats"
	SinkTypeRedis SinkType = "redis"
)

// Config is the configuration of the numacep host.
type Config struct {
	Operators []OperatorSpec `json:"operators"`
	Source    SourceSpec     `json:"source"`
	Sink      SinkSpec       `json:"sink"`
}

type SourceSpec struct {
	// Type defaults to stdin, one JSON message per line.
	Type SourceType  `json:"type,omitempty"`
	Nats *NatsSource `json:"nats,omitempty"`
}

type NatsSource struct {
	// URL to connect to NATS cluster, multiple urls could be separated by comma.
	URL     string `json:"url"`
	Subject string `json:"subject"`
	// Queue is used for queue subscription.
	// +optional
	Queue string `json:"queue,omitempty"`
}

type SinkSpec struct {
	// Type defaults to log.
	Type  SinkType   `json:"type,omitempty"`
	Nats  *NatsSink  `json:"nats,omitempty"`
	Redis *RedisSink `json:"redis,omitempty"`
}

type NatsSink struct {
	URL     string `json:"url"`
	Subject string `json:"subject"`
}

type RedisSink struct {
	// Addr is host:port of the redis server.
	Addr string `json:"addr"`
	// +optional
	Password string `json:"password,omitempty"`
	// +optional
	DB int `json:"db,omitempty"`
	// Stream is the redis stream the events are added to.
	Stream string `json:"stream"`
	// MaxLen trims the stream approximately, 0 disables trimming.
	// +optional
	MaxLen int64 `json:"maxLen,omitempty"`
}

// LoadConfig reads the configuration file, YAML or JSON. Values can be overridden with
// NUMACEP_ prefixed environment variables, for example NUMACEP_SINK_TYPE.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("numacep")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault("source.type", string(SourceTypeStdin))
	v.SetDefault("sink.type", string(SinkTypeLog))
	if err := v.ReadInConfig(); err != nil {
		return nil, ceperr.Wrap(ceperr.Config, err, "failed to load configuration file")
	}
	conf := &Config{}
	if err := v.Unmarshal(conf); err != nil {
		return nil, ceperr.Wrap(ceperr.Config, err, "failed unmarshal configuration file")
	}
	return conf, nil
}

// WithDefaults returns a copy of the configuration with the defaults of every operator applied.
func (c Config) WithDefaults() Config {
	operators := make([]OperatorSpec, len(c.Operators))
	for i, o := range c.Operators {
		if o.Name == "" {
			o.Name = fmt.Sprintf("%s-%d", o.Type, i)
		}
		operators[i] = o.WithDefaults()
	}
	c.Operators = operators
	if c.Source.Type == "" {
		c.Source.Type = SourceTypeStdin
	}
	if c.Sink.Type == "" {
		c.Sink.Type = SinkTypeLog
	}
	return c
}

// Validate checks the host configuration, operators included.
func (c Config) Validate() error {
	errs := c.validateHost()
	for _, o := range c.Operators {
		errs = multierr.Append(errs, o.Validate())
	}
	if errs != nil {
		return ceperr.Wrap(ceperr.Config, errs, "invalid configuration")
	}
	return nil
}

// ValidateHost checks the source, the sink and the operator names. The operator specs are left to
// the operators, an invalid one stays inert without stopping the others.
func (c Config) ValidateHost() error {
	if errs := c.validateHost(); errs != nil {
		return ceperr.Wrap(ceperr.Config, errs, "invalid configuration")
	}
	return nil
}

func (c Config) validateHost() error {
	var errs error
	if len(c.Operators) == 0 {
		errs = multierr.Append(errs, fmt.Errorf("no operator configured"))
	}
	names := make(map[string]bool, len(c.Operators))
	for _, o := range c.Operators {
		if names[o.Name] {
			errs = multierr.Append(errs, fmt.Errorf("duplicate operator name %q", o.Name))
		}
		names[o.Name] = true
	}
	switch c.Source.Type {
	case SourceTypeStdin:
	case SourceTypeNats:
		if c.Source.Nats == nil || c.Source.Nats.URL == "" || c.Source.Nats.Subject == "" {
			errs = multierr.Append(errs, fmt.Errorf("nats source requires url and subject"))
		}
	default:
		errs = multierr.Append(errs, fmt.Errorf("unknown source type %q", c.Source.Type))
	}
	switch c.Sink.Type {
	case SinkTypeLog:
	case SinkTypeNats:
		if c.Sink.Nats == nil || c.Sink.Nats.URL == "" || c.Sink.Nats.Subject == "" {
			errs = multierr.Append(errs, fmt.Errorf("nats sink requires url and subject"))
		}
	case SinkTypeRedis:
		if c.Sink.Redis == nil || c.Sink.Redis.Addr == "" || c.Sink.Redis.Stream == "" {
			errs = multierr.Append(errs, fmt.Errorf("redis sink requires addr and stream"))
		}
	default:
		errs = multierr.Append(errs, fmt.Errorf("unknown sink type %q", c.Sink.Type))
	}
	return errs
}
