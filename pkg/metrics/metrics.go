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

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	LabelVersion      = "version"
	LabelPlatform     = "platform"
	LabelOperator     = "operator"
	LabelOperatorType = "type"
	LabelStream       = "stream"
	LabelReason       = "reason"
	LabelSource       = "source"
	LabelSink         = "sink"
)

// Reasons an inbound message or a closed window is dropped.
const (
	ReasonProjection = "projection"
	ReasonPredicate  = "predicate"
	ReasonUnrouted   = "unrouted"
	ReasonOverflow   = "overflow"
	ReasonEmpty      = "empty"
	ReasonQuery      = "query"
)

const subsystem = "cep"

var (
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "build_info",
		Help: "A metric with a constant value '1', labeled by numacep binary version and platform",
	}, []string{LabelVersion, LabelPlatform})
)

// Operator metrics
var (
	// ReceivedCount is the number of messages submitted to an operator
	ReceivedCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "received_total",
		Help:      "Total number of messages submitted to the operator",
	}, []string{LabelOperator, LabelOperatorType})

	// DroppedCount is the number of messages, or windows for the overflow and empty reasons, that were dropped
	DroppedCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "dropped_total",
		Help:      "Total number of dropped messages or windows, by reason",
	}, []string{LabelOperator, LabelOperatorType, LabelReason})

	WindowsClosedCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "windows_closed_total",
		Help:      "Total number of closed windows",
	}, []string{LabelOperator, LabelOperatorType, LabelStream})

	EvaluatedCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "evaluated_total",
		Help:      "Total number of batches or batch pairs handed to the relational evaluator",
	}, []string{LabelOperator, LabelOperatorType})

	// ConfigErrorCount is the number of operators left inert by a configuration error
	ConfigErrorCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "config_error_total",
		Help:      "Total number of operators that failed to configure",
	}, []string{LabelOperator, LabelOperatorType})

	QueryErrorCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "query_error_total",
		Help:      "Total number of failed evaluations",
	}, []string{LabelOperator, LabelOperatorType})

	EvaluationTime = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Subsystem: subsystem,
		Name:      "evaluation_time",
		Help:      "Processing times of the relational evaluation (100 microseconds to 1 second)",
		Buckets:   prometheus.ExponentialBucketsRange(100, 1000000, 10),
	}, []string{LabelOperator, LabelOperatorType})

	EmittedCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "emitted_total",
		Help:      "Total number of derived events",
	}, []string{LabelOperator, LabelOperatorType})

	PatternMatchCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "pattern_match_total",
		Help:      "Total number of joined rows accepted by the pattern",
	}, []string{LabelOperator})

	PatternRejectCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "pattern_reject_total",
		Help:      "Total number of joined rows rejected by the pattern",
	}, []string{LabelOperator})

	// SyncQueueDepth is the number of closed windows waiting for their counterpart
	SyncQueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Subsystem: subsystem,
		Name:      "sync_queue_depth",
		Help:      "Number of closed windows waiting in the synchronizer queue of a stream",
	}, []string{LabelOperator, LabelOperatorType, LabelStream})
)

// Transport metrics
var (
	SourceReadCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "source",
		Name:      "read_total",
		Help:      "Total number of messages read from the source",
	}, []string{LabelSource})

	// SourceReadErrorCount is the number of inbound messages the source could not read
	SourceReadErrorCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "source",
		Name:      "read_error_total",
		Help:      "Total number of source read errors",
	}, []string{LabelSource})

	SinkWriteCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "sink",
		Name:      "write_total",
		Help:      "Total number of derived events written to the sink",
	}, []string{LabelSink, LabelOperator})

	SinkWriteErrorCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "sink",
		Name:      "write_error_total",
		Help:      "Total number of derived events the sink failed to write",
	}, []string{LabelSink, LabelOperator})
)
