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

// Package pattern compiles ordered event type patterns and matches them against sequences of
// event type tokens.
//
// A pattern is a comma separated list of elements. Each element is a boolean expression over
// event type literals: OR (or |) separates alternatives and AND (or &) chains literals into a
// sequence, parentheses group. The element "*" matches zero or more tokens and "_" matches any
// single token. Every compiled pattern is implicitly wrapped as [*, elements..., *].
package pattern

import (
	"fmt"
	"strings"

	"github.com/numaproj/numacep/pkg/ceperr"
)

// maxAlternatives bounds the expansion of a single element.
const maxAlternatives = 256

// Token is one position of the matched sequence. Absent tokens stand for the missing side of an
// outer join and are never matched by any element.
type Token struct {
	Type    string
	Present bool
}

// Present returns a present token of the given event type.
func Present(eventType string) Token {
	return Token{Type: eventType, Present: eventType != ""}
}

// Absent returns the absent token.
func Absent() Token {
	return Token{}
}

func (t Token) String() string {
	if !t.Present {
		return "<absent>"
	}
	return t.Type
}

type kind int

const (
	slot kind = iota
	repeat
	wildcard
)

type element struct {
	kind kind
	// alternatives of a slot, each one a sequence of literals.
	alternatives [][]string
}

// Pattern is a compiled pattern, safe for concurrent use.
type Pattern struct {
	text     string
	elements []element
}

// Compile parses the pattern text.
func Compile(text string) (*Pattern, error) {
	parts, err := splitElements(text)
	if err != nil {
		return nil, ceperr.Newf(ceperr.PatternCompile, "pattern %q, %w", text, err)
	}
	p := &Pattern{text: text, elements: make([]element, 0, len(parts)+2)}
	p.elements = append(p.elements, element{kind: repeat})
	for _, part := range parts {
		el, err := parseElement(part)
		if err != nil {
			return nil, ceperr.Newf(ceperr.PatternCompile, "pattern %q, element %q, %w", text, part, err)
		}
		p.elements = append(p.elements, el)
	}
	p.elements = append(p.elements, element{kind: repeat})
	return p, nil
}

func (p *Pattern) String() string {
	return p.text
}

// Match returns true if the whole token sequence is accepted by the pattern.
func (p *Pattern) Match(tokens []Token) bool {
	m := matcher{elements: p.elements, tokens: tokens, failed: make(map[[2]int]bool)}
	return m.match(0, 0)
}

type matcher struct {
	elements []element
	tokens   []Token
	// failed memoizes the (element, token) positions known not to match.
	failed map[[2]int]bool
}

func (m *matcher) match(e, t int) bool {
	if e == len(m.elements) {
		return t == len(m.tokens)
	}
	key := [2]int{e, t}
	if m.failed[key] {
		return false
	}
	el := m.elements[e]
	switch el.kind {
	case repeat:
		if m.match(e+1, t) {
			return true
		}
		for i := t; i < len(m.tokens) && m.tokens[i].Present; i++ {
			if m.match(e+1, i+1) {
				return true
			}
		}
	case wildcard:
		if t < len(m.tokens) && m.tokens[t].Present && m.match(e+1, t+1) {
			return true
		}
	default:
		for _, seq := range el.alternatives {
			if m.accepts(seq, t) && m.match(e+1, t+len(seq)) {
				return true
			}
		}
	}
	m.failed[key] = true
	return false
}

func (m *matcher) accepts(seq []string, t int) bool {
	if t+len(seq) > len(m.tokens) {
		return false
	}
	for i, literal := range seq {
		tok := m.tokens[t+i]
		if !tok.Present || tok.Type != literal {
			return false
		}
	}
	return true
}

// splitElements splits on the commas outside quotes.
func splitElements(text string) ([]string, error) {
	var (
		parts []string
		quote byte
		start int
	)
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == ',':
			parts = append(parts, strings.TrimSpace(text[start:i]))
			start = i + 1
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated quote")
	}
	parts = append(parts, strings.TrimSpace(text[start:]))
	for i, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("empty element at position %d", i+1)
		}
	}
	return parts, nil
}

func parseElement(text string) (element, error) {
	switch text {
	case "*":
		return element{kind: repeat}, nil
	case "_":
		return element{kind: wildcard}, nil
	}
	toks, err := lex(text)
	if err != nil {
		return element{}, err
	}
	p := &parser{tokens: toks}
	alternatives, err := p.parseOr()
	if err != nil {
		return element{}, err
	}
	if p.pos < len(p.tokens) {
		return element{}, fmt.Errorf("unexpected %q", p.tokens[p.pos].text)
	}
	return element{kind: slot, alternatives: alternatives}, nil
}
