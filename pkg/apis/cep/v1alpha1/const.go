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

const (
	// DefaultProperty is the message property holding the event.
	DefaultProperty = "payload"
	// DefaultTypeField is the event field carrying the event type.
	DefaultTypeField = "eventType"
	// DefaultMaxPending is the default depth of each synchronizer queue.
	DefaultMaxPending = 1024

	DefaultAggregateEvent = "aggregateEvent"
	DefaultJoinEvent      = "joinEvent"
	DefaultPatternEvent   = "patternEvent"
)

type OperatorType string

const (
	OperatorTypeAggregate OperatorType = "aggregate"
	OperatorTypeJoin      OperatorType = "join"
	OperatorTypePattern   OperatorType = "pattern"
)

type WindowType string

const (
	WindowTypeCount WindowType = "count"
	WindowTypeTime  WindowType = "time"
)

type OverflowPolicy string

const (
	OverflowDropOldest OverflowPolicy = "dropOldest"
	OverflowDropNewest OverflowPolicy = "dropNewest"
)

type AggregateFunction string

const (
	FunctionAvg    AggregateFunction = "AVG"
	FunctionCount  AggregateFunction = "COUNT"
	FunctionMax    AggregateFunction = "MAX"
	FunctionMedian AggregateFunction = "MEDIAN"
	FunctionMin    AggregateFunction = "MIN"
	FunctionStdev  AggregateFunction = "STDEV"
	FunctionSum    AggregateFunction = "SUM"
	FunctionVar    AggregateFunction = "VAR"
)

// defaultAliases are the output names of aggregates configured without an alias.
var defaultAliases = map[AggregateFunction]string{
	FunctionAvg:    "avgAggr",
	FunctionCount:  "countAggr",
	FunctionMax:    "maxAggr",
	FunctionMedian: "medianAggr",
	FunctionMin:    "minAggr",
	FunctionStdev:  "stdevAggr",
	FunctionSum:    "sumAggr",
	FunctionVar:    "varAggr",
}
