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

// Package operator implements the three CEP operators: windowed aggregation, windowed join and
// windowed pattern matching.
//
// Every operator runs the same pipeline. An inbound message is projected into an event, routed to
// its stream by event type, filtered, and buffered in the stream window. A closed window is
// evaluated against the operator query, directly for the aggregation, after being paired with the
// window of the other stream for the join and the pattern. Every result row becomes one derived
// event. The pattern operator additionally only keeps the rows whose two events arrived in an
// order accepted by its pattern.
//
// Processor is the synchronous core, Handle runs a Processor on its own goroutine.
package operator

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	cepv1 "github.com/numaproj/numacep/pkg/apis/cep/v1alpha1"
	"github.com/numaproj/numacep/pkg/ceperr"
	"github.com/numaproj/numacep/pkg/event"
	"github.com/numaproj/numacep/pkg/filter"
	"github.com/numaproj/numacep/pkg/metrics"
	"github.com/numaproj/numacep/pkg/pattern"
	"github.com/numaproj/numacep/pkg/relational"
	"github.com/numaproj/numacep/pkg/shared/expr"
	"github.com/numaproj/numacep/pkg/shared/logging"
	"github.com/numaproj/numacep/pkg/shared/queue"
	"github.com/numaproj/numacep/pkg/synchronizer"
	"github.com/numaproj/numacep/pkg/window"
	"github.com/numaproj/numacep/pkg/window/strategy/count"
	"github.com/numaproj/numacep/pkg/window/strategy/fixed"
)

// stream is one logical input of an operator.
type stream struct {
	// eventType routes the events to the stream, empty admits every event.
	eventType string
	filters   *filter.Chain
}

// Processor runs the operator pipeline synchronously. It is not safe for concurrent use.
type Processor struct {
	name      string
	kind      cepv1.OperatorType
	typeField string
	newEvent  string
	// inert processors select nothing and never evaluate.
	inert bool

	projector *event.Projector
	streams   []stream
	windowers []window.Windower
	zip       *synchronizer.Zip
	query     *relational.Query
	aliases   []string
	pattern   *pattern.Pattern
	executor  relational.Executor

	emit   func(*event.Event)
	report func(string)
	log    *zap.SugaredLogger
}

// NewProcessor validates the spec and compiles everything the operator needs. Configuration
// problems are returned as ConfigError or PatternCompileError.
func NewProcessor(ctx context.Context, spec cepv1.OperatorSpec, opts ...Option) (*Processor, error) {
	o, err := buildOptions(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return newProcessor(spec.WithDefaults(), o)
}

func buildOptions(ctx context.Context, opts ...Option) (*options, error) {
	o := &options{}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if o.emit == nil {
		o.emit = func(*event.Event) {}
	}
	if o.report == nil {
		o.report = func(string) {}
	}
	if o.logger == nil {
		o.logger = logging.FromContext(ctx)
	}
	if o.compiler == nil {
		c, err := expr.NewCompiler(expr.DefaultCacheSize)
		if err != nil {
			return nil, err
		}
		o.compiler = c
	}
	if o.executor == nil {
		o.executor = relational.NewExecutor(o.compiler)
	}
	return o, nil
}

func newProcessor(spec cepv1.OperatorSpec, o *options) (*Processor, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	p := &Processor{
		name:      spec.Name,
		kind:      spec.Type,
		typeField: spec.TypeField,
		newEvent:  spec.NewEvent,
		executor:  o.executor,
		emit:      o.emit,
		report:    o.report,
		log:       o.logger.Named(string(spec.Type)).With("operator", spec.Name),
	}
	projector, err := event.NewProjector(o.compiler, spec.Property)
	if err != nil {
		return nil, err
	}
	p.projector = projector

	switch spec.Type {
	case cepv1.OperatorTypeAggregate:
		err = p.configureAggregate(spec, o.compiler)
	case cepv1.OperatorTypeJoin:
		err = p.configureJoin(spec, o.compiler)
	case cepv1.OperatorTypePattern:
		err = p.configurePattern(spec, o.compiler)
	}
	if err != nil {
		return nil, err
	}
	if p.inert {
		p.log.Warn("Nothing is selected, the operator will not emit")
	} else {
		if err := p.executor.Prepare(p.query); err != nil {
			return nil, ceperr.Wrap(ceperr.Config, err, "invalid query")
		}
		p.log.Infow("Operator configured", zap.String("property", p.projector.Property()), zap.String("query", p.query.Format(p.aliases...)))
	}
	return p, nil
}

func (p *Processor) configureAggregate(spec cepv1.OperatorSpec, compiler *expr.Compiler) error {
	a := spec.Aggregate
	expressions := make([]string, 0, len(spec.Filters))
	for _, f := range spec.Filters {
		expressions = append(expressions, f.Expression)
	}
	chain, err := filter.NewChain(compiler, a.EventType, expressions)
	if err != nil {
		return err
	}
	// the aggregation reads every event, the event type only names the stream
	p.streams = []stream{{filters: chain}}
	w, err := newWindower(a.Window, 0)
	if err != nil {
		return err
	}
	p.windowers = []window.Windower{w}
	p.aliases = []string{a.EventType}
	if a.IsEmpty() {
		p.inert = true
		return nil
	}
	p.query, err = aggregateQuery(a)
	return err
}

func (p *Processor) configureJoin(spec cepv1.OperatorSpec, compiler *expr.Compiler) error {
	j := spec.Join
	if err := p.configureStreams(spec, compiler, j.EventType1, j.EventType2); err != nil {
		return err
	}
	w1, err := newWindower(j.Window1, 0)
	if err != nil {
		return err
	}
	w2, err := newWindower(j.Window2, 1)
	if err != nil {
		return err
	}
	p.windowers = []window.Windower{w1, w2}
	p.query, err = joinQuery(relational.InnerJoin, j.Fields, j.On, spec.TypeField)
	return err
}

func (p *Processor) configurePattern(spec cepv1.OperatorSpec, compiler *expr.Compiler) error {
	ps := spec.Pattern
	if err := p.configureStreams(spec, compiler, ps.EventType1, ps.EventType2); err != nil {
		return err
	}
	compiled, err := pattern.Compile(ps.Pattern)
	if err != nil {
		return err
	}
	p.pattern = compiled
	// both streams share one window
	w, err := newWindower(ps.Window, 0)
	if err != nil {
		return err
	}
	p.windowers = []window.Windower{w}
	p.query, err = joinQuery(relational.FullOuterJoin, ps.Fields, ps.On, spec.TypeField)
	return err
}

func (p *Processor) configureStreams(spec cepv1.OperatorSpec, compiler *expr.Compiler, eventType1, eventType2 string) error {
	p.aliases = []string{eventType1, eventType2}
	p.streams = make([]stream, 2)
	for i, eventType := range p.aliases {
		var expressions []string
		for _, f := range spec.Filters {
			if f.Stream == i+1 {
				expressions = append(expressions, f.Expression)
			}
		}
		chain, err := filter.NewChain(compiler, eventType, expressions)
		if err != nil {
			return err
		}
		p.streams[i] = stream{eventType: eventType, filters: chain}
	}
	p.zip = synchronizer.NewZip(
		synchronizer.WithMaxPending(spec.GetMaxPending()),
		synchronizer.WithOverflowPolicy(overflowPolicy(spec.OverflowPolicy)),
	)
	return nil
}

func overflowPolicy(p cepv1.OverflowPolicy) queue.OverflowPolicy {
	if p == cepv1.OverflowDropNewest {
		return queue.DropNewest
	}
	return queue.DropOldest
}

func newWindower(w cepv1.Window, index int) (window.Windower, error) {
	s, err := w.Spec()
	if err != nil {
		return nil, ceperr.Wrap(ceperr.Config, err, "invalid window")
	}
	if s.Type == window.Time {
		return fixed.NewFixed(s.Length, index), nil
	}
	return count.NewCount(s.Size, index), nil
}

// Name returns the operator name.
func (p *Processor) Name() string {
	return p.name
}

// Type returns the operator type.
func (p *Processor) Type() cepv1.OperatorType {
	return p.kind
}

// Inert returns true if the operator selects nothing.
func (p *Processor) Inert() bool {
	return p.inert
}

// TimeWindows returns the length of the time windows by windower index, for the owner to tick them.
func (p *Processor) TimeWindows() map[int]time.Duration {
	r := make(map[int]time.Duration)
	for i, w := range p.windowers {
		if s := w.Spec(); s.Type == window.Time {
			r[i] = s.Length
		}
	}
	return r
}

// Process runs one inbound message through the pipeline. seq and at are the arrival order and time.
func (p *Processor) Process(ctx context.Context, raw interface{}, seq uint64, at time.Time) {
	metrics.ReceivedCount.WithLabelValues(p.name, string(p.kind)).Inc()
	e, err := p.projector.Project(raw, seq, at)
	if err != nil {
		p.drop(metrics.ReasonProjection, err)
		return
	}
	index, ok := p.route(e)
	if !ok {
		p.drop(metrics.ReasonUnrouted, nil)
		return
	}
	admitted, err := p.streams[index].filters.Admit(e)
	if !admitted {
		p.drop(metrics.ReasonPredicate, err)
		return
	}
	w := p.windowers[0]
	if len(p.windowers) > 1 {
		w = p.windowers[index]
	}
	if b := w.Append(e); b != nil {
		p.closed(ctx, b)
	}
}

// Tick closes the time window of the given windower.
func (p *Processor) Tick(ctx context.Context, index int) {
	if index < 0 || index >= len(p.windowers) {
		return
	}
	if b := p.windowers[index].Tick(); b != nil {
		p.closed(ctx, b)
	}
}

// Reset discards every partial window and pending batch.
func (p *Processor) Reset() {
	for _, w := range p.windowers {
		w.Reset()
	}
	if p.zip != nil {
		p.zip.Reset()
		p.updateQueueDepth()
	}
}

func (p *Processor) route(e *event.Event) (int, bool) {
	if len(p.streams) == 1 {
		return 0, true
	}
	t := e.Type(p.typeField)
	for i, s := range p.streams {
		if s.eventType == t {
			return i, true
		}
	}
	return 0, false
}

func (p *Processor) drop(reason string, err error) {
	metrics.DroppedCount.WithLabelValues(p.name, string(p.kind), reason).Inc()
	if err != nil {
		p.log.Debugw("Dropping message", zap.String("reason", reason), zap.Error(err))
	}
}

func (p *Processor) closed(ctx context.Context, b *window.Batch) {
	metrics.WindowsClosedCount.WithLabelValues(p.name, string(p.kind), strconv.Itoa(b.Stream+1)).Inc()
	switch p.kind {
	case cepv1.OperatorTypeAggregate:
		if b.IsEmpty() {
			metrics.DroppedCount.WithLabelValues(p.name, string(p.kind), metrics.ReasonEmpty).Inc()
			return
		}
		if p.inert {
			return
		}
		p.evaluate(ctx, relational.Table{Alias: p.aliases[0], Rows: b.Events})
	case cepv1.OperatorTypeJoin:
		p.push(ctx, synchronizer.Side(b.Stream), b)
	case cepv1.OperatorTypePattern:
		if b.IsEmpty() {
			metrics.DroppedCount.WithLabelValues(p.name, string(p.kind), metrics.ReasonEmpty).Inc()
			return
		}
		left, right := p.split(b)
		p.push(ctx, synchronizer.Left, left)
		p.push(ctx, synchronizer.Right, right)
	}
}

// split separates a merged pattern window into the batches of each stream.
func (p *Processor) split(b *window.Batch) (*window.Batch, *window.Batch) {
	left := &window.Batch{Stream: 0, Seq: b.Seq}
	right := &window.Batch{Stream: 1, Seq: b.Seq}
	for _, e := range b.Events {
		if i, _ := p.route(e); i == 0 {
			left.Events = append(left.Events, e)
		} else {
			right.Events = append(right.Events, e)
		}
	}
	return left, right
}

func (p *Processor) push(ctx context.Context, side synchronizer.Side, b *window.Batch) {
	discarded := p.zip.Discarded()
	pair, dropped, err := p.zip.Push(side, b)
	if err != nil {
		p.log.Errorw("Failed to synchronize window", zap.Error(err))
		return
	}
	if dropped != nil {
		metrics.DroppedCount.WithLabelValues(p.name, string(p.kind), metrics.ReasonOverflow).Inc()
		msg := fmt.Sprintf("operator %q: %s stream queue is full, dropped window %d with %d events", p.name, side, dropped.Seq, dropped.Len())
		p.log.Warnw(msg, zap.Uint64("droppedWindows", p.zip.Dropped()))
		p.report(msg)
	}
	p.updateQueueDepth()
	if p.zip.Discarded() > discarded {
		metrics.DroppedCount.WithLabelValues(p.name, string(p.kind), metrics.ReasonEmpty).Inc()
		p.log.Debugw("Discarding pair with an empty side", zap.Uint64("pair", p.zip.Paired()))
	}
	if pair == nil {
		return
	}
	p.evaluate(ctx,
		relational.Table{Alias: p.aliases[0], Rows: pair.Left.Events},
		relational.Table{Alias: p.aliases[1], Rows: pair.Right.Events},
	)
}

func (p *Processor) updateQueueDepth() {
	for _, side := range []synchronizer.Side{synchronizer.Left, synchronizer.Right} {
		metrics.SyncQueueDepth.WithLabelValues(p.name, string(p.kind), strconv.Itoa(int(side)+1)).Set(float64(p.zip.Pending(side)))
	}
}

func (p *Processor) evaluate(ctx context.Context, tables ...relational.Table) {
	metrics.EvaluatedCount.WithLabelValues(p.name, string(p.kind)).Inc()
	start := time.Now()
	rows, err := p.executor.Execute(ctx, p.query, tables...)
	metrics.EvaluationTime.WithLabelValues(p.name, string(p.kind)).Observe(float64(time.Since(start).Microseconds()))
	if err != nil {
		metrics.QueryErrorCount.WithLabelValues(p.name, string(p.kind)).Inc()
		p.log.Errorw("Failed to evaluate window", zap.Error(err))
		p.report(fmt.Sprintf("operator %q: %v", p.name, err))
		return
	}
	if p.pattern != nil {
		rows = p.matching(rows)
	}
	p.emitRows(rows)
}
