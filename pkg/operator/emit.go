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

package operator

import (
	"sort"

	"github.com/numaproj/numacep/pkg/event"
	"github.com/numaproj/numacep/pkg/metrics"
	"github.com/numaproj/numacep/pkg/pattern"
	"github.com/numaproj/numacep/pkg/relational"
)

// emitRows derives one event per row, in row order.
func (p *Processor) emitRows(rows []relational.Row) {
	for _, row := range rows {
		e := event.Derive(p.typeField, p.newEvent, row.Columns, row.Values)
		p.emit(e)
		metrics.EmittedCount.WithLabelValues(p.name, string(p.kind)).Inc()
	}
}

// matching keeps the rows whose events, in arrival order, are accepted by the pattern.
func (p *Processor) matching(rows []relational.Row) []relational.Row {
	matched := rows[:0:0]
	for _, row := range rows {
		if p.pattern.Match(orderedTokens(p.typeField, row.Left, row.Right)) {
			metrics.PatternMatchCount.WithLabelValues(p.name).Inc()
			matched = append(matched, row)
			continue
		}
		metrics.PatternRejectCount.WithLabelValues(p.name).Inc()
	}
	return matched
}

// orderedTokens returns the event types of a joined row by arrival order, the missing side last.
func orderedTokens(typeField string, events ...*event.Event) []pattern.Token {
	ordered := append([]*event.Event(nil), events...)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a == nil || b == nil {
			return b == nil && a != nil
		}
		return a.Seq() < b.Seq()
	})
	tokens := make([]pattern.Token, len(ordered))
	for i, e := range ordered {
		if e == nil {
			tokens[i] = pattern.Absent()
			continue
		}
		tokens[i] = pattern.Present(e.Type(typeField))
	}
	return tokens
}
