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
	"regexp"
	"strings"
)

var aliasSeparator = regexp.MustCompile(`(?i)\s+AS(\s+|$)`)

// ParseProjections parses a projection list such as "A.x AS ax, B.y". Commas inside quotes,
// parentheses or brackets do not separate items.
func ParseProjections(text string) ([]Projection, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	var (
		items []string
		depth int
		quote byte
		start int
	)
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'' || c == '`':
			quote = c
		case c == '(' || c == '[':
			depth++
		case c == ')' || c == ']':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("fields %q: unbalanced %q", text, c)
			}
		case c == ',' && depth == 0:
			items = append(items, text[start:i])
			start = i + 1
		}
	}
	if quote != 0 || depth != 0 {
		return nil, fmt.Errorf("fields %q: unterminated quote or group", text)
	}
	items = append(items, text[start:])

	projections := make([]Projection, 0, len(items))
	for i, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			return nil, fmt.Errorf("fields %q: empty item at position %d", text, i+1)
		}
		p := Projection{Field: item}
		if loc := lastMatch(item); loc != nil {
			p.Field = strings.TrimSpace(item[:loc[0]])
			p.Alias = strings.TrimSpace(item[loc[1]:])
			if p.Field == "" || p.Alias == "" || strings.ContainsAny(p.Alias, " \t") {
				return nil, fmt.Errorf("fields %q: invalid item %q", text, item)
			}
		}
		projections = append(projections, p)
	}
	return projections, nil
}

// lastMatch returns the location of the last AS keyword outside quotes.
func lastMatch(item string) []int {
	var last []int
	for _, loc := range aliasSeparator.FindAllStringIndex(item, -1) {
		if !quoted(item, loc[0]) {
			last = loc
		}
	}
	return last
}

func quoted(s string, pos int) bool {
	var quote byte
	for i := 0; i < pos; i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'' || c == '`':
			quote = c
		}
	}
	return quote != 0
}

func (p Projection) String() string {
	if p.Alias == "" {
		return p.Field
	}
	return p.Field + " AS " + p.Alias
}
