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

package pattern

import (
	"fmt"
	"strings"
)

type tokenKind int

const (
	tokLiteral tokenKind = iota
	tokOr
	tokAnd
	tokOpen
	tokClose
)

type token struct {
	kind tokenKind
	text string
}

func lex(s string) ([]token, error) {
	var tokens []token
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(':
			tokens = append(tokens, token{kind: tokOpen, text: "("})
			i++
		case c == ')':
			tokens = append(tokens, token{kind: tokClose, text: ")"})
			i++
		case c == '|':
			tokens = append(tokens, token{kind: tokOr, text: "|"})
			i++
		case c == '&':
			tokens = append(tokens, token{kind: tokAnd, text: "&"})
			i++
		case c == '"' || c == '\'':
			j := strings.IndexByte(s[i+1:], c)
			if j < 0 {
				return nil, fmt.Errorf("unterminated quote")
			}
			literal := s[i+1 : i+1+j]
			if literal == "" {
				return nil, fmt.Errorf("empty literal")
			}
			tokens = append(tokens, token{kind: tokLiteral, text: literal})
			i += j + 2
		default:
			j := i
			for j < len(s) && !strings.ContainsRune(" \t\r\n()|&\"'", rune(s[j])) {
				j++
			}
			word := s[i:j]
			switch strings.ToUpper(word) {
			case "OR":
				tokens = append(tokens, token{kind: tokOr, text: word})
			case "AND":
				tokens = append(tokens, token{kind: tokAnd, text: word})
			default:
				tokens = append(tokens, token{kind: tokLiteral, text: word})
			}
			i = j
		}
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("empty element")
	}
	return tokens, nil
}

// parser turns an element expression into its disjunctive normal form: a list of
// alternatives, each a sequence of literals.
type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() (token, bool) {
	if p.pos >= len(p.tokens) {
		return token{}, false
	}
	return p.tokens[p.pos], true
}

func (p *parser) parseOr() ([][]string, error) {
	result, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		t, ok := p.peek()
		if !ok || t.kind != tokOr {
			return result, nil
		}
		p.pos++
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		result = append(result, right...)
		if len(result) > maxAlternatives {
			return nil, fmt.Errorf("more than %d alternatives", maxAlternatives)
		}
	}
}

// parseAnd handles explicit AND as well as adjacent operands.
func (p *parser) parseAnd() ([][]string, error) {
	result, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	for {
		t, ok := p.peek()
		if !ok || t.kind == tokOr || t.kind == tokClose {
			return result, nil
		}
		if t.kind == tokAnd {
			p.pos++
		}
		right, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		if result, err = product(result, right); err != nil {
			return nil, err
		}
	}
}

func (p *parser) parseAtom() ([][]string, error) {
	t, ok := p.peek()
	if !ok {
		return nil, fmt.Errorf("unexpected end of element")
	}
	switch t.kind {
	case tokLiteral:
		p.pos++
		return [][]string{{t.text}}, nil
	case tokOpen:
		p.pos++
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if c, ok := p.peek(); !ok || c.kind != tokClose {
			return nil, fmt.Errorf("missing closing parenthesis")
		}
		p.pos++
		return inner, nil
	default:
		return nil, fmt.Errorf("unexpected %q", t.text)
	}
}

// product concatenates every left sequence with every right sequence.
func product(left, right [][]string) ([][]string, error) {
	if len(left)*len(right) > maxAlternatives {
		return nil, fmt.Errorf("more than %d alternatives", maxAlternatives)
	}
	result := make([][]string, 0, len(left)*len(right))
	for _, l := range left {
		for _, r := range right {
			seq := make([]string, 0, len(l)+len(r))
			seq = append(seq, l...)
			seq = append(seq, r...)
			result = append(result, seq)
		}
	}
	return result, nil
}
