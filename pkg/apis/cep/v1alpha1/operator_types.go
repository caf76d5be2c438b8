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
	"math"
	"regexp"
	"strings"
	"time"

	"go.uber.org/multierr"

	"github.com/numaproj/numacep/pkg/ceperr"
	"github.com/numaproj/numacep/pkg/window"
)

// identifier is the shape of the event type names, they name the streams inside expressions.
var identifier = regexp.MustCompile(`^[A-Za-z_$][\w$]*$`)

// OperatorSpec is the configuration of one CEP operator.
type OperatorSpec struct {
	// Name identifies the operator in logs and metrics.
	Name string `json:"name"`
	Type OperatorType `json:"type"`
	// Property is the path of the event inside each inbound message, defaults to "payload".
	// +optional
	Property string `json:"property,omitempty"`
	// TypeField is the event field holding the event type, defaults to "eventType".
	// +optional
	TypeField string `json:"typeField,omitempty"`
	// NewEvent is the event type of the derived events.
	// +optional
	NewEvent string `json:"newEvent,omitempty"`
	// Filters are evaluated in order, an event is admitted only if all of them hold.
	// +optional
	Filters   []Filter       `json:"filters,omitempty"`
	Aggregate *AggregateSpec `json:"aggregate,omitempty"`
	Join      *JoinSpec      `json:"join,omitempty"`
	Pattern   *PatternSpec   `json:"pattern,omitempty"`
	// MaxPending caps the number of closed windows waiting for their counterpart on each side of
	// a join, 0 means unbounded.
	// +optional
	MaxPending *int `json:"maxPending,omitempty"`
	// OverflowPolicy is applied when MaxPending is reached, dropOldest or dropNewest.
	// +optional
	OverflowPolicy OverflowPolicy `json:"overflowPolicy,omitempty"`
}

// Window is the tumbling window of a stream.
type Window struct {
	// Type is count or time. The aliases counter and timer are accepted.
	Type WindowType `json:"type,omitempty"`
	// Param is the number of events of a count window, or the length of a time window in milliseconds.
	Param int64 `json:"param"`
}

type Filter struct {
	// Stream selects the stream the filter applies to, 1 or 2. Ignored by aggregate operators.
	// +optional
	Stream int `json:"stream,omitempty"`
	// Expression is a boolean expression over the event, bound to the stream's event type name.
	Expression string `json:"expression"`
}

type Aggregate struct {
	Function AggregateFunction `json:"function"`
	// Field is the aggregated expression, empty means every row for COUNT.
	// +optional
	Field string `json:"field,omitempty"`
	// +optional
	Alias string `json:"alias,omitempty"`
}

type Projection struct {
	Field string `json:"field"`
	// +optional
	Alias string `json:"alias,omitempty"`
}

type AggregateSpec struct {
	// EventType names the stream in filters and expressions.
	// +optional
	EventType  string       `json:"eventType,omitempty"`
	Window     Window       `json:"window"`
	Aggregates []Aggregate  `json:"aggregates,omitempty"`
	Fields     []Projection `json:"fields,omitempty"`
	// +optional
	GroupBy string `json:"groupBy,omitempty"`
	// +optional
	Having string `json:"having,omitempty"`
}

// IsEmpty returns true if nothing is selected.
func (a *AggregateSpec) IsEmpty() bool {
	return len(a.Aggregates) == 0 && len(a.Fields) == 0
}

type JoinSpec struct {
	EventType1 string `json:"eventType1"`
	EventType2 string `json:"eventType2"`
	Window1    Window `json:"window1"`
	Window2    Window `json:"window2"`
	// On is the join condition, for example "A.id = B.id".
	On string `json:"on"`
	// Fields is the projection list, for example "A.x AS ax, B.y". Empty selects every field.
	// +optional
	Fields string `json:"fields,omitempty"`
}

type PatternSpec struct {
	EventType1 string `json:"eventType1"`
	EventType2 string `json:"eventType2"`
	// Window is shared by both streams.
	Window Window `json:"window"`
	On     string `json:"on"`
	// +optional
	Fields string `json:"fields,omitempty"`
	// Pattern is the ordered list of event types, for example `"Evt1","Evt2"`.
	Pattern string `json:"pattern"`
}

// GetMaxPending returns the synchronizer queue depth.
func (o OperatorSpec) GetMaxPending() int {
	if o.MaxPending == nil {
		return DefaultMaxPending
	}
	return *o.MaxPending
}

// WithDefaults returns a copy of the spec with the defaults applied.
func (o OperatorSpec) WithDefaults() OperatorSpec {
	if o.Property == "" {
		o.Property = DefaultProperty
	}
	if o.TypeField == "" {
		o.TypeField = DefaultTypeField
	}
	if o.OverflowPolicy == "" {
		o.OverflowPolicy = OverflowDropOldest
	}
	if o.MaxPending == nil {
		n := DefaultMaxPending
		o.MaxPending = &n
	}
	if len(o.Filters) > 0 {
		o.Filters = append([]Filter(nil), o.Filters...)
	}
	switch o.Type {
	case OperatorTypeAggregate:
		if o.NewEvent == "" {
			o.NewEvent = DefaultAggregateEvent
		}
		if o.Aggregate != nil {
			a := *o.Aggregate
			a.Window = a.Window.WithDefaults()
			a.Aggregates = make([]Aggregate, len(o.Aggregate.Aggregates))
			for i, agg := range o.Aggregate.Aggregates {
				agg.Function = AggregateFunction(strings.ToUpper(strings.TrimSpace(string(agg.Function))))
				if agg.Alias == "" {
					agg.Alias = defaultAliases[agg.Function]
				}
				a.Aggregates[i] = agg
			}
			o.Aggregate = &a
		}
	case OperatorTypeJoin:
		if o.NewEvent == "" {
			o.NewEvent = DefaultJoinEvent
		}
		if o.Join != nil {
			j := *o.Join
			j.Window1 = j.Window1.WithDefaults()
			j.Window2 = j.Window2.WithDefaults()
			o.Join = &j
		}
	case OperatorTypePattern:
		if o.NewEvent == "" {
			o.NewEvent = DefaultPatternEvent
		}
		if o.Pattern != nil {
			p := *o.Pattern
			p.Window = p.Window.WithDefaults()
			o.Pattern = &p
		}
	}
	return o
}

// Validate checks a spec with its defaults applied. It returns a ConfigError listing every problem.
func (o OperatorSpec) Validate() error {
	var errs error
	add := func(format string, args ...interface{}) {
		errs = multierr.Append(errs, fmt.Errorf(format, args...))
	}
	for i, f := range o.Filters {
		if strings.TrimSpace(f.Expression) == "" {
			add("filters[%d]: missing expression", i)
		}
		if o.Type != OperatorTypeAggregate && f.Stream != 1 && f.Stream != 2 {
			add("filters[%d]: stream must be 1 or 2, got %d", i, f.Stream)
		}
	}
	if o.MaxPending != nil && *o.MaxPending < 0 {
		add("maxPending must not be negative")
	}
	if o.OverflowPolicy != "" && o.OverflowPolicy != OverflowDropOldest && o.OverflowPolicy != OverflowDropNewest {
		add("unknown overflow policy %q", o.OverflowPolicy)
	}
	switch o.Type {
	case OperatorTypeAggregate:
		if o.Aggregate == nil {
			add("missing aggregate spec")
			break
		}
		errs = multierr.Append(errs, o.Aggregate.validate())
	case OperatorTypeJoin:
		if o.Join == nil {
			add("missing join spec")
			break
		}
		errs = multierr.Append(errs, o.Join.validate())
	case OperatorTypePattern:
		if o.Pattern == nil {
			add("missing pattern spec")
			break
		}
		errs = multierr.Append(errs, o.Pattern.validate())
	default:
		add("unknown operator type %q", o.Type)
	}
	if errs != nil {
		return ceperr.Wrap(ceperr.Config, errs, fmt.Sprintf("invalid operator %q", o.Name))
	}
	return nil
}

func (a *AggregateSpec) validate() error {
	errs := a.Window.validate("window")
	if a.EventType != "" && !identifier.MatchString(a.EventType) {
		errs = multierr.Append(errs, fmt.Errorf("eventType %q is not an identifier", a.EventType))
	}
	for i, agg := range a.Aggregates {
		if _, ok := defaultAliases[agg.Function]; !ok {
			errs = multierr.Append(errs, fmt.Errorf("aggregates[%d]: unknown function %q", i, agg.Function))
			continue
		}
		if agg.Field == "" && agg.Function != FunctionCount {
			errs = multierr.Append(errs, fmt.Errorf("aggregates[%d]: %s requires a field", i, agg.Function))
		}
	}
	for i, f := range a.Fields {
		if strings.TrimSpace(f.Field) == "" {
			errs = multierr.Append(errs, fmt.Errorf("fields[%d]: missing field", i))
		}
	}
	if a.Having != "" && a.GroupBy == "" && len(a.Aggregates) == 0 {
		errs = multierr.Append(errs, fmt.Errorf("having requires groupBy or an aggregate"))
	}
	return errs
}

func (j *JoinSpec) validate() error {
	errs := multierr.Combine(
		validateStreams(j.EventType1, j.EventType2),
		j.Window1.validate("window1"),
		j.Window2.validate("window2"),
	)
	if strings.TrimSpace(j.On) == "" {
		errs = multierr.Append(errs, fmt.Errorf("missing join condition"))
	}
	if _, err := ParseProjections(j.Fields); err != nil {
		errs = multierr.Append(errs, err)
	}
	return errs
}

func (p *PatternSpec) validate() error {
	errs := multierr.Combine(
		validateStreams(p.EventType1, p.EventType2),
		p.Window.validate("window"),
	)
	if strings.TrimSpace(p.On) == "" {
		errs = multierr.Append(errs, fmt.Errorf("missing join condition"))
	}
	if strings.TrimSpace(p.Pattern) == "" {
		errs = multierr.Append(errs, fmt.Errorf("missing pattern"))
	}
	if _, err := ParseProjections(p.Fields); err != nil {
		errs = multierr.Append(errs, err)
	}
	return errs
}

func validateStreams(eventType1, eventType2 string) error {
	var errs error
	if eventType1 == "" {
		errs = multierr.Append(errs, fmt.Errorf("missing eventType1"))
	}
	if eventType2 == "" {
		errs = multierr.Append(errs, fmt.Errorf("missing eventType2"))
	}
	for _, t := range []string{eventType1, eventType2} {
		if t != "" && !identifier.MatchString(t) {
			errs = multierr.Append(errs, fmt.Errorf("event type %q is not an identifier", t))
		}
	}
	if eventType1 != "" && eventType1 == eventType2 {
		errs = multierr.Append(errs, fmt.Errorf("eventType1 and eventType2 must differ, both are %q", eventType1))
	}
	return errs
}

// WithDefaults resolves the window type aliases, an empty type is a count window.
func (w Window) WithDefaults() Window {
	switch strings.ToLower(string(w.Type)) {
	case "", "count", "counter":
		w.Type = WindowTypeCount
	case "time", "timer":
		w.Type = WindowTypeTime
	}
	return w
}

func (w Window) validate(name string) error {
	if _, err := w.Spec(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// MaxTimeWindowMillis is the longest time window, in milliseconds, a time.Duration can hold.
const MaxTimeWindowMillis = int64(math.MaxInt64 / int64(time.Millisecond))

// Spec returns the window spec.
func (w Window) Spec() (window.Spec, error) {
	var s window.Spec
	switch w.WithDefaults().Type {
	case WindowTypeCount:
		if w.Param > math.MaxInt32 {
			return window.Spec{}, fmt.Errorf("count window size must be at most %d, got %d", math.MaxInt32, w.Param)
		}
		s = window.CountSpec(int(w.Param))
	case WindowTypeTime:
		if w.Param > MaxTimeWindowMillis {
			return window.Spec{}, fmt.Errorf("time window length must be at most %dms, got %dms", MaxTimeWindowMillis, w.Param)
		}
		s = window.TimeSpec(time.Duration(w.Param) * time.Millisecond)
	default:
		return window.Spec{}, fmt.Errorf("unknown window type %q", w.Type)
	}
	if err := s.Validate(); err != nil {
		return window.Spec{}, err
	}
	return s, nil
}
