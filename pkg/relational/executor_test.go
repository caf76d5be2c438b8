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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/numaproj/numacep/pkg/ceperr"
	"github.com/numaproj/numacep/pkg/event"
	"github.com/numaproj/numacep/pkg/shared/expr"
)

func newExecutor(t *testing.T) Executor {
	t.Helper()
	c, err := expr.NewCompiler(64)
	require.NoError(t, err)
	return NewExecutor(c)
}

func rows(fields ...map[string]interface{}) []*event.Event {
	r := make([]*event.Event, len(fields))
	for i, f := range fields {
		r[i] = event.FromMap(f).WithArrival(uint64(i+1), testTime)
	}
	return r
}

func TestExecute_Aggregates(t *testing.T) {
	x := newExecutor(t)
	table := Table{Alias: "m", Rows: rows(
		map[string]interface{}{"v": float64(1), "name": "a"},
		map[string]interface{}{"v": float64(2), "name": "b"},
		map[string]interface{}{"v": float64(3)},
		map[string]interface{}{"v": "x", "name": "c"},
	)}
	q := &Query{Kind: Select, Items: []Item{
		{Func: Sum, Expr: "v", Alias: "total"},
		{Func: Avg, Expr: "v", Alias: "avg"},
		{Func: Min, Expr: "m.v", Alias: "min"},
		{Func: Max, Expr: "v", Alias: "max"},
		{Func: Median, Expr: "v", Alias: "median"},
		{Func: Var, Expr: "v", Alias: "var"},
		{Func: Stdev, Expr: "v", Alias: "stdev"},
		{Func: Count, Alias: "rows"},
		{Func: Count, Expr: "name", Alias: "names"},
	}}
	result, err := x.Execute(context.Background(), q, table)
	require.NoError(t, err)
	require.Len(t, result, 1)
	row := result[0]
	assert.Equal(t, []string{"total", "avg", "min", "max", "median", "var", "stdev", "rows", "names"}, row.Columns)
	assert.Equal(t, float64(6), row.Values["total"])
	assert.Equal(t, float64(2), row.Values["avg"])
	assert.Equal(t, float64(1), row.Values["min"])
	assert.Equal(t, float64(3), row.Values["max"])
	assert.Equal(t, float64(2), row.Values["median"])
	assert.Equal(t, float64(1), row.Values["var"])
	assert.Equal(t, float64(1), row.Values["stdev"])
	assert.Equal(t, 4, row.Values["rows"])
	assert.Equal(t, 3, row.Values["names"])
}

func TestExecute_MissingAggregate(t *testing.T) {
	x := newExecutor(t)
	table := Table{Alias: "m", Rows: rows(map[string]interface{}{"v": "text"})}
	q := &Query{Kind: Select, Items: []Item{{Func: Sum, Expr: "v", Alias: "total"}, {Func: Count, Alias: "n"}}}
	result, err := x.Execute(context.Background(), q, table)
	require.NoError(t, err)
	require.Len(t, result, 1)
	_, ok := result[0].Get("total")
	assert.False(t, ok)
	v, ok := result[0].Get("n")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestExecute_Projection(t *testing.T) {
	x := newExecutor(t)
	table := Table{Alias: "m", Rows: rows(
		map[string]interface{}{"v": float64(1), "room": "a"},
		map[string]interface{}{"v": float64(2), "room": "b"},
	)}
	q := &Query{Kind: Select, Items: []Item{{Expr: "m.room"}, {Expr: "v * 10", Alias: "scaled"}}}
	result, err := x.Execute(context.Background(), q, table)
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, []string{"room", "scaled"}, result[0].Columns)
	assert.Equal(t, "a", result[0].Values["room"])
	assert.Equal(t, float64(20), result[1].Values["scaled"])
}

func TestExecute_GroupByHaving(t *testing.T) {
	x := newExecutor(t)
	table := Table{Alias: "t", Rows: rows(
		map[string]interface{}{"room": "kitchen", "v": float64(20)},
		map[string]interface{}{"room": "hall", "v": float64(15)},
		map[string]interface{}{"room": "kitchen", "v": float64(22)},
		map[string]interface{}{"room": "cellar", "v": float64(9)},
	)}
	q := &Query{
		Kind:    Select,
		Items:   []Item{{Expr: "room"}, {Func: Avg, Expr: "v", Alias: "avg"}},
		GroupBy: "room",
	}
	result, err := x.Execute(context.Background(), q, table)
	require.NoError(t, err)
	require.Len(t, result, 3)
	assert.Equal(t, "kitchen", result[0].Values["room"])
	assert.Equal(t, float64(21), result[0].Values["avg"])
	assert.Equal(t, "hall", result[1].Values["room"])
	assert.Equal(t, "cellar", result[2].Values["room"])

	q.Having = "avg > 10 AND room <> 'hall'"
	result, err = x.Execute(context.Background(), q, table)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "kitchen", result[0].Values["room"])

	tests := []struct {
		having string
		rooms  []string
	}{
		{having: "SUM(v) > 20", rooms: []string{"kitchen"}},
		{having: "COUNT(*) > 1", rooms: []string{"kitchen"}},
		{having: "count(v) = 1 AND MAX(t.v) >= 10", rooms: []string{"hall"}},
		{having: "AVG(v) < 21 OR room = 'SUM(v)'", rooms: []string{"hall", "cellar"}},
	}
	for _, tt := range tests {
		t.Run(tt.having, func(t *testing.T) {
			q.Having = tt.having
			result, err := x.Execute(context.Background(), q, table)
			require.NoError(t, err)
			rooms := make([]string, 0, len(result))
			for _, r := range result {
				rooms = append(rooms, r.Values["room"].(string))
				_, hidden := r.Values["__having_0"]
				assert.False(t, hidden)
			}
			assert.Equal(t, tt.rooms, rooms)
		})
	}
}

func TestExecute_HavingWithoutSelectedAggregates(t *testing.T) {
	x := newExecutor(t)
	table := Table{Alias: "t", Rows: rows(
		map[string]interface{}{"v": float64(1)},
		map[string]interface{}{"v": float64(2)},
	)}
	q := &Query{Kind: Select, Items: []Item{{Expr: "v"}}, Having: "SUM(v) > 2"}
	result, err := x.Execute(context.Background(), q, table)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, []string{"v"}, result[0].Columns)
	assert.Equal(t, float64(1), result[0].Values["v"])

	q.Having = "SUM(v) > 3"
	result, err = x.Execute(context.Background(), q, table)
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestRewriteAggregates(t *testing.T) {
	text, hidden := rewriteAggregates("SUM(v) > 2 AND sum( v ) < 9 OR COUNT(*) = 1 OR sprig.max(1, 2) > 0 OR name = 'AVG(x)'")
	assert.Equal(t, "__having_0 > 2 AND __having_0 < 9 OR __having_1 = 1 OR sprig.max(1, 2) > 0 OR name = 'AVG(x)'", text)
	assert.Equal(t, []Item{
		{Func: Sum, Expr: "v", Alias: "__having_0"},
		{Func: Count, Alias: "__having_1"},
	}, hidden)

	text, hidden = rewriteAggregates("avg > 10")
	assert.Equal(t, "avg > 10", text)
	assert.Empty(t, hidden)
}

func TestExecutor_Prepare(t *testing.T) {
	x := newExecutor(t)
	tests := []struct {
		name    string
		q       *Query
		wantErr bool
	}{
		{name: "valid join", q: &Query{Kind: InnerJoin, Star: true, On: "A.id = B.id"}},
		{name: "valid having", q: &Query{Kind: Select, Items: []Item{{Expr: "g"}}, GroupBy: "g", Having: "SUM(v) > 2"}},
		{name: "bad condition", q: &Query{Kind: InnerJoin, Star: true, On: "A.id === B.id"}, wantErr: true},
		{name: "bad select item", q: &Query{Kind: Select, Items: []Item{{Func: Sum, Expr: "v +"}}}, wantErr: true},
		{name: "bad group by", q: &Query{Kind: Select, Items: []Item{{Func: Count}}, GroupBy: "g +"}, wantErr: true},
		{name: "bad having", q: &Query{Kind: Select, Items: []Item{{Func: Count}}, Having: "SUM(v) >"}, wantErr: true},
		{name: "bad having aggregate", q: &Query{Kind: Select, Items: []Item{{Func: Count}}, Having: "SUM(v *) > 1"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := x.Prepare(tt.q)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, ceperr.IsKind(err, ceperr.Query))
		})
	}
}

func TestExecute_Idempotent(t *testing.T) {
	x := newExecutor(t)
	table := Table{Alias: "t", Rows: rows(
		map[string]interface{}{"v": float64(1)},
		map[string]interface{}{"v": float64(5)},
	)}
	q := &Query{Kind: Select, Items: []Item{{Func: Stdev, Expr: "v"}, {Func: Sum, Expr: "v"}}}
	first, err := x.Execute(context.Background(), q, table)
	require.NoError(t, err)
	second, err := x.Execute(context.Background(), q, table)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, []string{"STDEV(v)", "SUM(v)"}, first[0].Columns)
}

func TestExecute_InnerJoin(t *testing.T) {
	x := newExecutor(t)
	a := Table{Alias: "A", Rows: rows(
		map[string]interface{}{"id": float64(1), "x": float64(10)},
		map[string]interface{}{"id": float64(2), "x": float64(20)},
		map[string]interface{}{"id": float64(3), "x": float64(30)},
	)}
	b := Table{Alias: "B", Rows: rows(
		map[string]interface{}{"id": float64(2), "y": float64(6)},
		map[string]interface{}{"id": float64(1), "y": float64(5)},
	)}
	q := &Query{Kind: InnerJoin, Items: []Item{{Expr: "A.x"}, {Expr: "B.y"}}, On: "A.id = B.id"}
	result, err := x.Execute(context.Background(), q, a, b)
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, map[string]interface{}{"x": float64(10), "y": float64(5)}, result[0].Values)
	assert.Equal(t, map[string]interface{}{"x": float64(20), "y": float64(6)}, result[1].Values)
	assert.Same(t, a.Rows[0], result[0].Left)
	assert.Same(t, b.Rows[1], result[0].Right)
}

func TestExecute_JoinStar(t *testing.T) {
	x := newExecutor(t)
	a := Table{Alias: "A", Rows: rows(map[string]interface{}{"eventType": "A", "id": float64(1), "v": "left"})}
	b := Table{Alias: "B", Rows: rows(map[string]interface{}{"eventType": "B", "id": float64(1), "v": "right", "w": true})}
	q := &Query{Kind: InnerJoin, Star: true, Exclude: []string{"eventType"}, On: "A.id == B.id"}
	result, err := x.Execute(context.Background(), q, a, b)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, []string{"id", "v", "w"}, result[0].Columns)
	assert.Equal(t, "right", result[0].Values["v"])
	_, ok := result[0].Values["eventType"]
	assert.False(t, ok)
}

func TestExecute_FullOuterJoin(t *testing.T) {
	x := newExecutor(t)
	a := Table{Alias: "A", Rows: rows(
		map[string]interface{}{"id": float64(1)},
		map[string]interface{}{"id": float64(2)},
	)}
	b := Table{Alias: "B", Rows: rows(
		map[string]interface{}{"id": float64(3)},
		map[string]interface{}{"id": float64(1)},
	)}
	q := &Query{Kind: FullOuterJoin, Items: []Item{{Expr: "A.id", Alias: "a"}, {Expr: "B.id", Alias: "b"}}, On: "A.id == B.id"}
	result, err := x.Execute(context.Background(), q, a, b)
	require.NoError(t, err)
	require.Len(t, result, 3)

	assert.Equal(t, float64(1), result[0].Values["a"])
	assert.Equal(t, float64(1), result[0].Values["b"])
	assert.NotNil(t, result[0].Left)
	assert.NotNil(t, result[0].Right)

	assert.Equal(t, float64(2), result[1].Values["a"])
	assert.Nil(t, result[1].Values["b"])
	assert.Nil(t, result[1].Right)

	assert.Nil(t, result[2].Values["a"])
	assert.Equal(t, float64(3), result[2].Values["b"])
	assert.Nil(t, result[2].Left)
}

func TestExecute_Errors(t *testing.T) {
	x := newExecutor(t)
	table := Table{Alias: "t", Rows: rows(map[string]interface{}{"v": float64(1)})}
	tests := []struct {
		name   string
		q      *Query
		tables []Table
	}{
		{name: "empty select", q: &Query{Kind: Select}, tables: []Table{table}},
		{name: "join without condition", q: &Query{Kind: InnerJoin, Star: true}, tables: []Table{table, table}},
		{name: "aggregate in join", q: &Query{Kind: InnerJoin, Items: []Item{{Func: Sum, Expr: "t.v"}}, On: "true"}, tables: []Table{table, table}},
		{name: "table count", q: &Query{Kind: Select, Items: []Item{{Expr: "v"}}}, tables: []Table{table, table}},
		{name: "bad expression", q: &Query{Kind: Select, Items: []Item{{Expr: "v +"}}}, tables: []Table{table}},
		{name: "non boolean having", q: &Query{Kind: Select, Items: []Item{{Func: Sum, Expr: "v", Alias: "s"}}, Having: "s"}, tables: []Table{table}},
		{name: "non boolean condition", q: &Query{Kind: InnerJoin, Star: true, On: "1"}, tables: []Table{{Alias: "a", Rows: table.Rows}, {Alias: "b", Rows: table.Rows}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := x.Execute(context.Background(), tt.q, tt.tables...)
			require.Error(t, err)
			assert.True(t, ceperr.IsKind(err, ceperr.Query))
		})
	}
}

func TestExecute_Cancelled(t *testing.T) {
	x := newExecutor(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := x.Execute(ctx, &Query{Kind: Select, Items: []Item{{Func: Count}}}, Table{})
	assert.True(t, ceperr.IsKind(err, ceperr.Query))
}

func TestExecute_EmptyTable(t *testing.T) {
	x := newExecutor(t)
	q := &Query{Kind: Select, Items: []Item{{Func: Count, Alias: "n"}, {Func: Sum, Expr: "v", Alias: "s"}, {Expr: "v"}}}
	result, err := x.Execute(context.Background(), q, Table{Alias: "t"})
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, map[string]interface{}{"n": 0}, result[0].Values)
}
