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

// Package event defines the Event flowing through the operators and the intake stage
// that projects raw inbound messages into events.
package event

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/goccy/go-json"
)

// DefaultTypeField is the discriminant field carrying the event type.
const DefaultTypeField = "eventType"

// Event is an ordered, immutable mapping from field name to a JSON like value. The arrival
// sequence and time are assigned at intake and are only used for ordering, they are never
// part of the encoded event.
type Event struct {
	keys    []string
	fields  map[string]interface{}
	seq     uint64
	arrival time.Time
}

// New returns an event holding the given keys in order. Keys missing from fields are skipped.
func New(keys []string, fields map[string]interface{}) *Event {
	e := &Event{
		keys:   make([]string, 0, len(keys)),
		fields: make(map[string]interface{}, len(keys)),
	}
	for _, k := range keys {
		v, ok := fields[k]
		if !ok {
			continue
		}
		if _, dup := e.fields[k]; dup {
			continue
		}
		e.keys = append(e.keys, k)
		e.fields[k] = v
	}
	return e
}

// FromMap returns an event with the map's keys in lexical order.
func FromMap(fields map[string]interface{}) *Event {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return New(keys, fields)
}

// WithArrival returns a copy of the event stamped with the arrival sequence and time.
func (e *Event) WithArrival(seq uint64, at time.Time) *Event {
	return &Event{
		keys:    e.keys,
		fields:  e.fields,
		seq:     seq,
		arrival: at,
	}
}

// Seq returns the arrival sequence number.
func (e *Event) Seq() uint64 {
	return e.seq
}

// ArrivedAt returns the arrival wall-clock time.
func (e *Event) ArrivedAt() time.Time {
	return e.arrival
}

func (e *Event) Get(name string) (interface{}, bool) {
	v, ok := e.fields[name]
	return v, ok
}

// Type returns the value of the discriminant field as a string, "" when absent.
func (e *Event) Type(typeField string) string {
	v, ok := e.fields[typeField]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func (e *Event) Len() int {
	return len(e.keys)
}

// Keys returns a copy of the field names in order.
func (e *Event) Keys() []string {
	r := make([]string, len(e.keys))
	copy(r, e.keys)
	return r
}

// Fields returns a shallow copy of the fields.
func (e *Event) Fields() map[string]interface{} {
	r := make(map[string]interface{}, len(e.fields))
	for k, v := range e.fields {
		r[k] = v
	}
	return r
}

// MarshalJSON encodes the fields in order.
func (e *Event) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range e.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		value, err := json.Marshal(e.fields[k])
		if err != nil {
			return nil, fmt.Errorf("failed to encode field %q, %w", k, err)
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (e *Event) String() string {
	b, err := e.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("%v", e.fields)
	}
	return string(b)
}

// Derive builds a derived event labelled with eventType. The label is always the first field
// and is never overwritten by a column of the same name. Missing, nil, NaN and infinite
// values are omitted and floating point values are rounded to RoundPlaces decimals.
func Derive(typeField, label string, columns []string, values map[string]interface{}) *Event {
	keys := make([]string, 0, len(columns)+1)
	fields := make(map[string]interface{}, len(columns)+1)
	keys = append(keys, typeField)
	fields[typeField] = label
	for _, c := range columns {
		if c == typeField {
			continue
		}
		v, ok := values[c]
		if !ok || v == nil {
			continue
		}
		v, ok = Round(v)
		if !ok {
			continue
		}
		if _, dup := fields[c]; dup {
			continue
		}
		keys = append(keys, c)
		fields[c] = v
	}
	return &Event{keys: keys, fields: fields}
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
