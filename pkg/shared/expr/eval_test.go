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
	"time"

	"github.com/stretchr/testify/assert"
)

func Test_eval_json(t *testing.T) {
	t.Run("test nil", func(t *testing.T) {
		m := _json(nil)
		assert.Nil(t, m)
	})

	t.Run("test invalid json bytes", func(t *testing.T) {
		assert.Panics(t, func() { _json([]byte("abc")) })
	})

	t.Run("test valid json bytes", func(t *testing.T) {
		m := _json([]byte(`{"a": "b"}`))
		assert.Equal(t, 1, len(m))
		assert.Equal(t, "b", m["a"])
	})

	t.Run("test valid string", func(t *testing.T) {
		m := _json(`{"a": "b"}`)
		assert.Equal(t, 1, len(m))
		assert.Equal(t, "b", m["a"])
	})

	t.Run("test map passes through", func(t *testing.T) {
		m := _json(map[string]interface{}{"a": 1})
		assert.Equal(t, 1, m["a"])
	})

	t.Run("test default panic", func(t *testing.T) {
		assert.Panics(t, func() { _json(222) })
	})
}

func Test_eval_string(t *testing.T) {
	assert.Equal(t, "a", _string("a"))
	assert.Equal(t, "a", _string([]byte("a")))
	assert.Equal(t, "444", _string(444))
	assert.Equal(t, "", _string(nil))
}

func Test_eval_int(t *testing.T) {
	t.Run("test bytes", func(t *testing.T) {
		assert.Equal(t, 1, _int([]byte("1")))
	})

	t.Run("test bytes panic", func(t *testing.T) {
		assert.Panics(t, func() { _int([]byte{}) })
	})

	t.Run("test string", func(t *testing.T) {
		assert.Equal(t, 1, _int("1"))
	})

	t.Run("test string panic", func(t *testing.T) {
		assert.Panics(t, func() { _int("") })
	})

	t.Run("test float", func(t *testing.T) {
		assert.Equal(t, 1, _int(float64(1.2)))
	})

	t.Run("test int", func(t *testing.T) {
		assert.Equal(t, 1, _int(1))
		assert.Equal(t, 7, _int(int64(7)))
	})

	t.Run("test default panic", func(t *testing.T) {
		assert.Panics(t, func() { _int(time.Second) })
	})
}

func Test_eval_getFuncMap(t *testing.T) {
	a := getFuncMap(map[string]interface{}{"a": "b", "int": 3})
	assert.Contains(t, a, "a")
	assert.NotContains(t, a, "b")
	assert.Contains(t, a, "string")
	assert.Contains(t, a, "json")
	assert.Contains(t, a, "sprig")
	assert.Equal(t, 3, a["int"])
}
