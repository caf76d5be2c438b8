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
	"github.com/shopspring/decimal"
)

// RoundPlaces is the number of decimals kept on emitted numeric values.
const RoundPlaces = 10

// Round normalizes floating point noise on numeric values. It returns false for values
// that cannot be represented, NaN and infinities, which are then treated as missing.
func Round(v interface{}) (interface{}, bool) {
	switch n := v.(type) {
	case float64:
		if !isFinite(n) {
			return nil, false
		}
		f, _ := decimal.NewFromFloat(n).Round(RoundPlaces).Float64()
		return f, true
	case float32:
		f64 := float64(n)
		if !isFinite(f64) {
			return nil, false
		}
		f, _ := decimal.NewFromFloat32(n).Round(RoundPlaces).Float64()
		return f, true
	default:
		return v, true
	}
}
