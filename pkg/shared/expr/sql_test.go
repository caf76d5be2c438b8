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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: `A.id = B.id`, want: `A.id == B.id`},
		{in: `A.id == B.id`, want: `A.id == B.id`},
		{in: `a <> b`, want: `a != b`},
		{in: `a >= 1 AND b <= 2`, want: `a >= 1 and b <= 2`},
		{in: `a != 1 Or NOT b`, want: `a != 1 or not b`},
		{in: `a IS NULL`, want: `a == nil`},
		{in: `a is not null`, want: `a != nil`},
		{in: `a = NULL`, want: `a == nil`},
		{in: `x.and = 'a = b'`, want: `x.and == 'a = b'`},
		{in: `name = "AND"`, want: `name == "AND"`},
		{in: `flag = TRUE`, want: `flag == true`},
		{in: `total > 10`, want: `total > 10`},
		{in: `a is b`, want: `a is b`},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestLex_UnterminatedString(t *testing.T) {
	tokens := lex(`a = 'open`)
	assert.Equal(t, tokString, tokens[len(tokens)-1].kind)
	assert.Equal(t, `'open`, tokens[len(tokens)-1].text)
}
