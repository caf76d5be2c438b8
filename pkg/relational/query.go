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

// Package relational evaluates declarative SELECT, GROUP BY, HAVING and JOIN queries over in-memory
// batches of events. The query description is built by the operators from their configuration, the
// expressions it carries are evaluated with the sandboxed expression compiler.
package relational

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/numaproj/numacep/pkg/event"
)

// Kind is the shape of a query.
type Kind int

const (
	Select Kind = iota
	InnerJoin
	FullOuterJoin
)

func (k Kind) String() string {
	switch k {
	case Select:
		return "SELECT"
	case InnerJoin:
		return "INNER JOIN"
	case FullOuterJoin:
		return "FULL OUTER JOIN"
	default:
		return "UNKNOWN"
	}
}

// Func is an aggregate function, NoFunc marks a plain expression.
type Func int

const (
	NoFunc Func = iota
	Avg
	Count
	Max
	Median
	Min
	Stdev
	Sum
	Var
)

var funcNames = map[Func]string{
	Avg:    "AVG",
	Count:  "COUNT",
	Max:    "MAX",
	Median: "MEDIAN",
	Min:    "MIN",
	Stdev:  "STDEV",
	Sum:    "SUM",
	Var:    "VAR",
}

func (f Func) String() string {
	if n, ok := funcNames[f]; ok {
		return n
	}
	return ""
}

// ParseFunc returns the aggregate function named s, case insensitive.
func ParseFunc(s string) (Func, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for f, n := range funcNames {
		if n == name {
			return f, nil
		}
	}
	return NoFunc, fmt.Errorf("unknown aggregate function %q", s)
}

var (
	simplePath = regexp.MustCompile(`^[A-Za-z_$][\w$]*(\.[A-Za-z_$][\w$]*)*$`)
	// aggregateCall matches a single argument aggregate call such as SUM(v) or COUNT(*).
	aggregateCall = regexp.MustCompile(`(?i)\b(AVG|COUNT|MAX|MEDIAN|MIN|STDEV|SUM|VAR)\s*\(\s*([^(),]*?)\s*\)`)
)

// Item is one entry of the select list.
type Item struct {
	Func Func
	// Expr is the argument of an aggregate or the plain expression, "" or "*" means every row for COUNT.
	Expr  string
	Alias string
}

// IsAggregate returns true for aggregate function items.
func (i Item) IsAggregate() bool {
	return i.Func != NoFunc
}

// Name returns the output column name: the alias, else the last segment of a field path,
// else the item text.
func (i Item) Name() string {
	if i.Alias != "" {
		return i.Alias
	}
	if !i.IsAggregate() && simplePath.MatchString(i.Expr) {
		return i.Expr[strings.LastIndex(i.Expr, ".")+1:]
	}
	return i.text()
}

func (i Item) text() string {
	if !i.IsAggregate() {
		return i.Expr
	}
	arg := i.Expr
	if arg == "" {
		arg = "*"
	}
	return fmt.Sprintf("%s(%s)", i.Func, arg)
}

func (i Item) String() string {
	if i.Alias == "" {
		return i.text()
	}
	return i.text() + " AS " + i.Alias
}

// Query is the declarative description handed to an Executor.
type Query struct {
	Kind  Kind
	Items []Item
	// Star selects every field of the joined rows, it applies to joins only.
	Star bool
	// Exclude lists the fields never selected by Star.
	Exclude []string
	GroupBy string
	Having  string
	// On is the join condition.
	On string
}

// HasAggregates returns true if any select item is an aggregate.
func (q *Query) HasAggregates() bool {
	for _, i := range q.Items {
		if i.IsAggregate() {
			return true
		}
	}
	return false
}

// Tables returns the number of tables the query reads.
func (q *Query) Tables() int {
	if q.Kind == Select {
		return 1
	}
	return 2
}

// Validate checks the query shape.
func (q *Query) Validate() error {
	switch q.Kind {
	case Select:
		if len(q.Items) == 0 {
			return fmt.Errorf("empty select list")
		}
		if q.Having != "" && q.GroupBy == "" && !q.HasAggregates() {
			return fmt.Errorf("HAVING requires GROUP BY or an aggregate")
		}
	case InnerJoin, FullOuterJoin:
		if strings.TrimSpace(q.On) == "" {
			return fmt.Errorf("missing join condition")
		}
		if len(q.Items) == 0 && !q.Star {
			return fmt.Errorf("empty select list")
		}
		if q.HasAggregates() || q.GroupBy != "" || q.Having != "" {
			return fmt.Errorf("aggregates are not supported on %s", q.Kind)
		}
	default:
		return fmt.Errorf("unknown query kind %d", q.Kind)
	}
	return nil
}

// rewriteAggregates replaces the aggregate calls of a HAVING clause, outside string literals, by
// generated names and returns the aggregates to bind to them. Identical calls share one name.
func rewriteAggregates(text string) (string, []Item) {
	var (
		b      strings.Builder
		hidden []Item
		names  = map[string]string{}
	)
	for _, part := range splitLiterals(text) {
		if part.literal {
			b.WriteString(part.text)
			continue
		}
		last := 0
		for _, m := range aggregateCall.FindAllStringSubmatchIndex(part.text, -1) {
			// member calls such as sprig.max(v) are not aggregates
			if m[0] > 0 && part.text[m[0]-1] == '.' {
				continue
			}
			f, err := ParseFunc(part.text[m[2]:m[3]])
			if err != nil {
				continue
			}
			arg := part.text[m[4]:m[5]]
			if arg == "*" {
				arg = ""
			}
			key := f.String() + "(" + arg + ")"
			name, ok := names[key]
			if !ok {
				name = fmt.Sprintf("__having_%d", len(hidden))
				names[key] = name
				hidden = append(hidden, Item{Func: f, Expr: arg, Alias: name})
			}
			b.WriteString(part.text[last:m[0]])
			b.WriteString(name)
			last = m[1]
		}
		b.WriteString(part.text[last:])
	}
	return b.String(), hidden
}

func hasAggregateCall(text string) bool {
	_, hidden := rewriteAggregates(text)
	return len(hidden) > 0
}

type textPart struct {
	text    string
	literal bool
}

// splitLiterals cuts the text into quoted string literals and the text between them.
func splitLiterals(s string) []textPart {
	var parts []textPart
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\'' && c != '"' && c != '`' {
			continue
		}
		if i > start {
			parts = append(parts, textPart{text: s[start:i]})
		}
		j := i + 1
		for j < len(s) && s[j] != c {
			if s[j] == '\\' {
				j++
			}
			j++
		}
		if j >= len(s) {
			j = len(s) - 1
		}
		parts = append(parts, textPart{text: s[i : j+1], literal: true})
		i = j
		start = j + 1
	}
	if start < len(s) {
		parts = append(parts, textPart{text: s[start:]})
	}
	return parts
}

// Format renders the query as SQL text with the given table aliases, for logging.
func (q *Query) Format(aliases ...string) string {
	alias := func(i int) string {
		if i < len(aliases) && aliases[i] != "" {
			return " " + aliases[i]
		}
		return ""
	}
	var b strings.Builder
	b.WriteString("SELECT ")
	if q.Star {
		b.WriteString("*")
	} else {
		for i, item := range q.Items {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(item.String())
		}
	}
	b.WriteString(" FROM ?" + alias(0))
	if q.Kind != Select {
		b.WriteString(" " + q.Kind.String() + " ?" + alias(1) + " ON " + q.On)
	}
	if q.GroupBy != "" {
		b.WriteString(" GROUP BY " + q.GroupBy)
	}
	if q.Having != "" {
		b.WriteString(" HAVING " + q.Having)
	}
	return b.String()
}

func (q *Query) String() string {
	return q.Format()
}

// Table is a named batch of rows.
type Table struct {
	Alias string
	Rows  []*event.Event
}

// Row is one result row. Columns keeps the select order. Left and Right reference the source
// events of a join row, nil for the missing side of an outer join. They are never part of Values.
type Row struct {
	Columns []string
	Values  map[string]interface{}
	Left    *event.Event
	Right   *event.Event
}

// Get returns the value of a column.
func (r Row) Get(column string) (interface{}, bool) {
	v, ok := r.Values[column]
	return v, ok
}

// Executor is the tabular query capability.
type Executor interface {
	// Prepare validates the query and compiles its expressions without running it.
	Prepare(q *Query) error
	// Execute runs the query over the given tables and returns the result rows in order.
	Execute(ctx context.Context, q *Query, tables ...Table) ([]Row, error)
}
