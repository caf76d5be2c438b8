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
	"fmt"
	"regexp"
	"time"

	"github.com/goccy/go-json"

	"github.com/numaproj/numacep/pkg/ceperr"
	"github.com/numaproj/numacep/pkg/shared/expr"
)

// DefaultProperty is the field of the inbound message holding the event.
const DefaultProperty = "payload"

// messageVariable names the raw inbound message inside the property path expression.
const messageVariable = "msg"

var propertyPath = regexp.MustCompile(`^[A-Za-z_$][\w$]*(\.[A-Za-z_$][\w$]*|\[\d+\]|\["[^"\\]*"\])*$`)

// Projector normalizes raw inbound messages into events by extracting a configured
// property path, e.g. "payload" or "payload.reading".
type Projector struct {
	property string
	mapping  expr.Mapping
}

// NewProjector compiles the property path once.
func NewProjector(compiler *expr.Compiler, property string) (*Projector, error) {
	if property == "" {
		property = DefaultProperty
	}
	if !propertyPath.MatchString(property) {
		return nil, ceperr.Newf(ceperr.Config, "invalid property path %q", property)
	}
	mapping, err := compiler.CompileMapping(fmt.Sprintf("%s.%s", messageVariable, property), messageVariable)
	if err != nil {
		return nil, ceperr.Newf(ceperr.Config, "failed to compile property path %q, %w", property, err)
	}
	return &Projector{property: property, mapping: mapping}, nil
}

// Property returns the configured property path.
func (p *Projector) Property() string {
	return p.property
}

// Project extracts the configured property from raw and stamps the arrival order. raw is
// either a decoded message or a JSON document as []byte, json.RawMessage or string.
func (p *Projector) Project(raw interface{}, seq uint64, at time.Time) (*Event, error) {
	msg, order, err := decode(raw)
	if err != nil {
		return nil, ceperr.Wrap(ceperr.Projection, err, "failed to decode message")
	}
	v, err := p.mapping(msg)
	if err != nil {
		return nil, ceperr.Wrap(ceperr.Projection, err, fmt.Sprintf("property %q did not resolve", p.property))
	}
	switch fields := v.(type) {
	case map[string]interface{}:
		if keys, ok := order.of(fields); ok {
			return New(keys, fields).WithArrival(seq, at), nil
		}
		return FromMap(fields).WithArrival(seq, at), nil
	case *Event:
		return fields.WithArrival(seq, at), nil
	case nil:
		return nil, ceperr.Newf(ceperr.Projection, "property %q is missing", p.property)
	default:
		return nil, ceperr.Newf(ceperr.Projection, "property %q is a %T, not an object", p.property, v)
	}
}

// decode returns the message and, for JSON documents, the key order of its objects. Decoded
// messages carry no order, their objects are read in lexical key order.
func decode(raw interface{}) (interface{}, keyOrder, error) {
	var data []byte
	switch r := raw.(type) {
	case nil:
		return nil, nil, fmt.Errorf("empty message")
	case []byte:
		data = r
	case json.RawMessage:
		data = r
	case string:
		data = []byte(r)
	case *Event:
		return r.Fields(), nil, nil
	default:
		return raw, nil, nil
	}
	return decodeOrdered(data)
}
