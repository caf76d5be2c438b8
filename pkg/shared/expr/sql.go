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

package expr

import (
	"strings"
)

type tokenKind int

const (
	tokOther tokenKind = iota
	tokWord
	tokString
	tokSpace
)

type token struct {
	kind tokenKind
	text string
}

// Normalize rewrites the SQL spellings found in join conditions and HAVING clauses
// into the expr grammar: `=` becomes `==`, `<>` becomes `!=`, AND/OR/NOT/NULL/TRUE/FALSE
// are lower cased and `IS [NOT] NULL` becomes a nil comparison. String literals and
// member names are left untouched.
func Normalize(text string) string {
	tokens := lex(text)
	var b strings.Builder
	b.Grow(len(text) + 8)
	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		switch t.kind {
		case tokWord:
			if isMember(tokens, i) {
				b.WriteString(t.text)
				continue
			}
			switch strings.ToUpper(t.text) {
			case "AND", "OR", "NOT", "TRUE", "FALSE":
				b.WriteString(strings.ToLower(t.text))
			case "NULL":
				b.WriteString("nil")
			case "IS":
				j := nextWord(tokens, i)
				if j < 0 {
					b.WriteString(t.text)
					continue
				}
				switch strings.ToUpper(tokens[j].text) {
				case "NULL":
					b.WriteString("== nil")
					i = j
				case "NOT":
					k := nextWord(tokens, j)
					if k >= 0 && strings.ToUpper(tokens[k].text) == "NULL" {
						b.WriteString("!= nil")
						i = k
					} else {
						b.WriteString(t.text)
					}
				default:
					b.WriteString(t.text)
				}
			default:
				b.WriteString(t.text)
			}
		case tokOther:
			next := ""
			if i+1 < len(tokens) && tokens[i+1].kind == tokOther {
				next = tokens[i+1].text
			}
			switch {
			case t.text == "<" && next == ">":
				b.WriteString("!=")
				i++
			case (t.text == "=" || t.text == "!" || t.text == "<" || t.text == ">") && next == "=":
				b.WriteString(t.text + "=")
				i++
			case t.text == "=":
				b.WriteString("==")
			default:
				b.WriteString(t.text)
			}
		default:
			b.WriteString(t.text)
		}
	}
	return b.String()
}

// isMember reports whether the word at i follows a dot, i.e. it is a field name.
func isMember(tokens []token, i int) bool {
	return i > 0 && tokens[i-1].kind == tokOther && tokens[i-1].text == "."
}

// nextWord returns the index of the next word token skipping blanks, -1 otherwise.
func nextWord(tokens []token, i int) int {
	for j := i + 1; j < len(tokens); j++ {
		switch tokens[j].kind {
		case tokSpace:
			continue
		case tokWord:
			return j
		default:
			return -1
		}
	}
	return -1
}

func lex(s string) []token {
	var tokens []token
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == '"' || c == '\'' || c == '`':
			j := i + 1
			for j < len(s) && s[j] != c {
				if s[j] == '\\' {
					j++
				}
				j++
			}
			if j < len(s) {
				j++
			}
			if j > len(s) {
				j = len(s)
			}
			tokens = append(tokens, token{kind: tokString, text: s[i:j]})
			i = j
		case isSpace(c):
			j := i
			for j < len(s) && isSpace(s[j]) {
				j++
			}
			tokens = append(tokens, token{kind: tokSpace, text: s[i:j]})
			i = j
		case isWordChar(c):
			j := i
			for j < len(s) && isWordChar(s[j]) {
				j++
			}
			tokens = append(tokens, token{kind: tokWord, text: s[i:j]})
			i = j
		default:
			tokens = append(tokens, token{kind: tokOther, text: s[i : i+1]})
			i++
		}
	}
	return tokens
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isWordChar(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
