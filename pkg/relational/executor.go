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

package relational

import (
	"context"
	"fmt"

	"github.com/numaproj/numacep/pkg/ceperr"
	"github.com/numaproj/numacep/pkg/event"
	"github.com/numaproj/numacep/pkg/shared/expr"
)

// executor evaluates queries in memory. It is stateless, evaluating the same query over the same
// tables always yields the same rows.
type executor struct {
	compiler *expr.Compiler
}

var _ Executor = (*executor)(nil)

// NewExecutor returns the in-memory Executor.
func NewExecutor(compiler *expr.Compiler) Executor {
	return &executor{compiler: compiler}
}

type compiledItem struct {
	Item
	name    string
	program *expr.Program
}

// plan is a query with every expression compiled.
type plan struct {
	items   []compiledItem
	groupBy *expr.Program
	having  *expr.Program
	// hidden are the aggregates referenced by HAVING, bound to generated names.
	hidden []compiledItem
	on     *expr.Program
}

// grouped returns true if the rows are reduced to one row per group.
func (p *plan) grouped(q *Query) bool {
	return q.GroupBy != "" || q.HasAggregates() || len(p.hidden) > 0
}

func (x *executor) Prepare(q *Query) error {
	_, err := x.prepare(q)
	return err
}

func (x *executor) prepare(q *Query) (*plan, error) {
	if err := q.Validate(); err != nil {
		return nil, ceperr.Newf(ceperr.Query, "invalid query %q, %w", q, err)
	}
	items, err := x.compileItems(q.Items)
	if err != nil {
		return nil, err
	}
	p := &plan{items: items}
	if q.GroupBy != "" {
		if p.groupBy, err = x.compile(q.GroupBy); err != nil {
			return nil, err
		}
	}
	if q.Having != "" {
		text, hidden := rewriteAggregates(q.Having)
		if p.hidden, err = x.compileItems(hidden); err != nil {
			return nil, err
		}
		if p.having, err = x.compile(text); err != nil {
			return nil, err
		}
	}
	if q.Kind != Select {
		if p.on, err = x.compile(q.On); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (x *executor) Execute(ctx context.Context, q *Query, tables ...Table) ([]Row, error) {
	p, err := x.prepare(q)
	if err != nil {
		return nil, err
	}
	if len(tables) != q.Tables() {
		return nil, ceperr.Newf(ceperr.Query, "%s expects %d tables, got %d", q.Kind, q.Tables(), len(tables))
	}
	if err := ctx.Err(); err != nil {
		return nil, ceperr.Wrap(ceperr.Query, err, "query cancelled")
	}
	var rows []Row
	switch q.Kind {
	case Select:
		rows, err = selectRows(q, p, tables[0])
	default:
		rows, err = joinRows(q, p, tables[0], tables[1])
	}
	if err != nil {
		return nil, ceperr.Wrap(ceperr.Query, err, fmt.Sprintf("failed to execute %q", q.Format(aliases(tables)...)))
	}
	return rows, nil
}

func aliases(tables []Table) []string {
	r := make([]string, len(tables))
	for i, t := range tables {
		r[i] = t.Alias
	}
	return r
}

func (x *executor) compileItems(items []Item) ([]compiledItem, error) {
	compiled := make([]compiledItem, 0, len(items))
	for _, i := range items {
		c := compiledItem{Item: i, name: i.Name()}
		if !(i.Func == Count && (i.Expr == "" || i.Expr == "*")) {
			p, err := x.compiler.Compile(i.Expr)
			if err != nil {
				return nil, ceperr.Newf(ceperr.Query, "select item %q, %w", i, err)
			}
			c.program = p
		}
		compiled = append(compiled, c)
	}
	return compiled, nil
}

func (x *executor) compile(text string) (*expr.Program, error) {
	p, err := x.compiler.Compile(text)
	if err != nil {
		return nil, ceperr.Newf(ceperr.Query, "%w", err)
	}
	return p, nil
}

// rowEnv exposes the fields at top level and under the table alias.
func rowEnv(alias string, e *event.Event) map[string]interface{} {
	env := e.Fields()
	if alias != "" {
		env[alias] = e.Fields()
	}
	return env
}

type group struct {
	first int
	rows  []int
}

func selectRows(q *Query, p *plan, t Table) ([]Row, error) {
	envs := make([]map[string]interface{}, len(t.Rows))
	for i, e := range t.Rows {
		envs[i] = rowEnv(t.Alias, e)
	}

	if !p.grouped(q) {
		rows := make([]Row, 0, len(envs))
		for _, env := range envs {
			row, err := project(p.items, env)
			if err != nil {
				return nil, err
			}
			rows = append(rows, row)
		}
		return rows, nil
	}

	groups, err := groupRows(p.groupBy, envs)
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(groups))
	for _, g := range groups {
		row := Row{Values: make(map[string]interface{}, len(p.items))}
		for _, item := range p.items {
			row.Columns = appendColumn(row.Columns, item.name)
			v, ok, err := g.eval(item, envs)
			if err != nil {
				return nil, err
			}
			if ok {
				row.Values[item.name] = v
			}
		}
		if p.having != nil {
			env := map[string]interface{}{}
			if g.first >= 0 {
				for k, v := range envs[g.first] {
					env[k] = v
				}
			}
			for k, v := range row.Values {
				env[k] = v
			}
			// unset hidden aggregates read as nil
			for _, item := range p.hidden {
				v, _, err := g.eval(item, envs)
				if err != nil {
					return nil, err
				}
				env[item.Alias] = v
			}
			ok, err := p.having.EvalBool(env)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// eval returns the value of a select item for the group: the aggregate over its rows, or the
// plain expression over its first row.
func (g *group) eval(item compiledItem, envs []map[string]interface{}) (interface{}, bool, error) {
	if !item.IsAggregate() {
		if g.first < 0 {
			return nil, false, nil
		}
		v, err := item.program.Eval(envs[g.first])
		if err != nil {
			return nil, false, err
		}
		return v, true, nil
	}
	values := make([]interface{}, 0, len(g.rows))
	for _, i := range g.rows {
		if item.program == nil {
			values = append(values, true)
			continue
		}
		v, err := item.program.Eval(envs[i])
		if err != nil {
			return nil, false, err
		}
		values = append(values, v)
	}
	v, ok := aggregate(item.Func, values)
	return v, ok, nil
}

// groupRows partitions the rows by the GROUP BY expression, in first seen order. Without GROUP BY
// every row belongs to a single group, which exists even when there are no rows.
func groupRows(key *expr.Program, envs []map[string]interface{}) ([]*group, error) {
	if key == nil {
		g := &group{first: -1, rows: make([]int, len(envs))}
		for i := range envs {
			g.rows[i] = i
		}
		if len(envs) > 0 {
			g.first = 0
		}
		return []*group{g}, nil
	}
	var groups []*group
	index := make(map[string]*group)
	for i, env := range envs {
		v, err := key.Eval(env)
		if err != nil {
			return nil, err
		}
		k := fmt.Sprintf("%T:%v", v, v)
		g, ok := index[k]
		if !ok {
			g = &group{first: i}
			index[k] = g
			groups = append(groups, g)
		}
		g.rows = append(g.rows, i)
	}
	return groups, nil
}

func project(items []compiledItem, env map[string]interface{}) (Row, error) {
	row := Row{Values: make(map[string]interface{}, len(items))}
	for _, item := range items {
		v, err := item.program.Eval(env)
		if err != nil {
			return Row{}, err
		}
		row.Columns = appendColumn(row.Columns, item.name)
		row.Values[item.name] = v
	}
	return row, nil
}

func joinRows(q *Query, p *plan, left, right Table) ([]Row, error) {
	exclude := make(map[string]bool, len(q.Exclude))
	for _, f := range q.Exclude {
		exclude[f] = true
	}
	build := func(l, r *event.Event) (Row, error) {
		var (
			row Row
			err error
		)
		if q.Star {
			row = Row{Values: map[string]interface{}{}}
			for _, e := range []*event.Event{l, r} {
				if e == nil {
					continue
				}
				for _, k := range e.Keys() {
					if exclude[k] {
						continue
					}
					v, _ := e.Get(k)
					row.Columns = appendColumn(row.Columns, k)
					row.Values[k] = v
				}
			}
		} else {
			row, err = project(p.items, joinEnv(left.Alias, l, right.Alias, r))
			if err != nil {
				return Row{}, err
			}
		}
		row.Left, row.Right = l, r
		return row, nil
	}

	var rows []Row
	matchedRight := make([]bool, len(right.Rows))
	for _, l := range left.Rows {
		matched := false
		for j, r := range right.Rows {
			ok, err := p.on.EvalBool(joinEnv(left.Alias, l, right.Alias, r))
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			matched = true
			matchedRight[j] = true
			row, err := build(l, r)
			if err != nil {
				return nil, err
			}
			rows = append(rows, row)
		}
		if !matched && q.Kind == FullOuterJoin {
			row, err := build(l, nil)
			if err != nil {
				return nil, err
			}
			rows = append(rows, row)
		}
	}
	if q.Kind == FullOuterJoin {
		for j, r := range right.Rows {
			if matchedRight[j] {
				continue
			}
			row, err := build(nil, r)
			if err != nil {
				return nil, err
			}
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// joinEnv exposes each side under its alias, a missing side is an empty object so that its
// fields read as nil.
func joinEnv(leftAlias string, l *event.Event, rightAlias string, r *event.Event) map[string]interface{} {
	side := func(e *event.Event) map[string]interface{} {
		if e == nil {
			return map[string]interface{}{}
		}
		return e.Fields()
	}
	return map[string]interface{}{
		leftAlias:  side(l),
		rightAlias: side(r),
	}
}

func appendColumn(columns []string, name string) []string {
	for _, c := range columns {
		if c == name {
			return columns
		}
	}
	return append(columns, name)
}
