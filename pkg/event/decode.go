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


package event

import (
	"bytes"
	"fmt"
	"reflect"

	"github.com/goccy/go-json"
)

// keyOrder records the key order of the objects of a decoded document, by map identity.
type keyOrder map[uintptr][]string

func (o keyOrder) of(m map[string]interface{}) ([]string, bool) {
	keys, ok := o[reflect.ValueOf(m).Pointer()]
	return keys, ok
}

// decodeOrdered decodes a JSON document into plain maps and slices, like json.Unmarshal into an
// interface{}, and remembers the key order of every object.
func decodeOrdered(data []byte) (interface{}, keyOrder, error) {
	// the token stream does not check separators
	if !json.Valid(data) {
		return nil, nil, fmt.Errorf("invalid JSON document")
	}
	d := &orderedDecoder{
		dec:   json.NewDecoder(bytes.NewReader(data)),
		order: keyOrder{},
	}
	v, err := d.value()
	if err != nil {
		return nil, nil, err
	}
	return v, d.order, nil
}

type orderedDecoder struct {
	dec   *json.Decoder
	order keyOrder
}

func (d *orderedDecoder) value() (interface{}, error) {
	t, err := d.dec.Token()
	if err != nil {
		return nil, err
	}
	return d.fromToken(t)
}

func (d *orderedDecoder) fromToken(t json.Token) (interface{}, error) {
	delim, ok := t.(json.Delim)
	if !ok {
		return t, nil
	}
	switch delim {
	case '{':
		obj := map[string]interface{}{}
		var keys []string
		for {
			t, err := d.dec.Token()
			if err != nil {
				return nil, err
			}
			if t == json.Delim('}') {
				break
			}
			k, ok := t.(string)
			if !ok {
				return nil, fmt.Errorf("unexpected object key %v", t)
			}
			v, err := d.value()
			if err != nil {
				return nil, err
			}
			if _, dup := obj[k]; !dup {
				keys = append(keys, k)
			}
			obj[k] = v
		}
		d.order[reflect.ValueOf(obj).Pointer()] = keys
		return obj, nil
	case '[':
		arr := []interface{}{}
		for {
			t, err := d.dec.Token()
			if err != nil {
				return nil, err
			}
			if t == json.Delim(']') {
				break
			}
			v, err := d.fromToken(t)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		return arr, nil
	default:
		return nil, fmt.Errorf("unexpected delimiter %v", delim)
	}
}
