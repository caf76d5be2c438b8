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

package relational

import (
	"github.com/montanaflynn/stats"
)

// aggregate applies f over the values of a group. COUNT counts the non nil values, the other
// functions only consider numeric values. It returns false when the result is missing.
func aggregate(f Func, values []interface{}) (interface{}, bool) {
	if f == Count {
		n := 0
		for _, v := range values {
			if v != nil {
				n++
			}
		}
		return n, true
	}
	data := make(stats.Float64Data, 0, len(values))
	for _, v := range values {
		if n, ok := toFloat(v); ok {
			data = append(data, n)
		}
	}
	if len(data) == 0 {
		return nil, false
	}
	var (
		result float64
		err    error
	)
	switch f {
	case Avg:
		result, err = stats.Mean(data)
	case Max:
		result, err = stats.Max(data)
	case Median:
		result, err = stats.Median(data)
	case Min:
		result, err = stats.Min(data)
	case Stdev:
		result, err = stats.StandardDeviationSample(data)
	case Sum:
		result, err = stats.Sum(data)
	case Var:
		result, err = stats.SampleVariance(data)
	default:
		return nil, false
	}
	if err != nil {
		return nil, false
	}
	return result, true
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
