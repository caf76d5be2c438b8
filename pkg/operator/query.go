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
	cepv1 "github.com/numaproj/numacep/pkg/apis/cep/v1alpha1"
	"github.com/numaproj/numacep/pkg/ceperr"
	"github.com/numaproj/numacep/pkg/relational"
)

// aggregateQuery selects the aggregates then the pass-through fields.
func aggregateQuery(a *cepv1.AggregateSpec) (*relational.Query, error) {
	q := &relational.Query{
		Kind:    relational.Select,
		Items:   make([]relational.Item, 0, len(a.Aggregates)+len(a.Fields)),
		GroupBy: a.GroupBy,
		Having:  a.Having,
	}
	for _, agg := range a.Aggregates {
		f, err := relational.ParseFunc(string(agg.Function))
		if err != nil {
			return nil, ceperr.Wrap(ceperr.Config, err, "invalid aggregate")
		}
		q.Items = append(q.Items, relational.Item{Func: f, Expr: agg.Field, Alias: agg.Alias})
	}
	for _, f := range a.Fields {
		q.Items = append(q.Items, relational.Item{Expr: f.Field, Alias: f.Alias})
	}
	if err := q.Validate(); err != nil {
		return nil, ceperr.Wrap(ceperr.Config, err, "invalid aggregation")
	}
	return q, nil
}

// joinQuery selects the projected fields, or every field of both sides but the event type.
func joinQuery(kind relational.Kind, fields string, on string, typeField string) (*relational.Query, error) {
	projections, err := cepv1.ParseProjections(fields)
	if err != nil {
		return nil, ceperr.Wrap(ceperr.Config, err, "invalid projection")
	}
	q := &relational.Query{Kind: kind, On: on}
	if len(projections) == 0 {
		q.Star = true
		q.Exclude = []string{typeField}
	}
	for _, p := range projections {
		q.Items = append(q.Items, relational.Item{Expr: p.Field, Alias: p.Alias})
	}
	if err := q.Validate(); err != nil {
		return nil, ceperr.Wrap(ceperr.Config, err, "invalid join")
	}
	return q, nil
}
