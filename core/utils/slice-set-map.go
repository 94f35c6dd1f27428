// Licensed to NASA JPL under one or more contributor
// license agreements. See the NOTICE file distributed with
// this work for additional information regarding copyright
// ownership. NASA JPL licenses this file to you under
// the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

// Generic helpers that you'd expect to be part of the std lib but aren't
package utils

import (
	"sort"

	"golang.org/x/exp/constraints"
)

// PrettyPrintIndentForJSON - indentation used whenever we write human-readable JSON
const PrettyPrintIndentForJSON = "    "

func ItemInSlice[T comparable](a T, list []T) bool {
	for _, b := range list {
		if b == a {
			return true
		}
	}
	return false
}

// GetSortedMapKeys - keys of a map in ascending order, so iteration is deterministic
func GetSortedMapKeys[K constraints.Ordered, V any](theMap map[K]V) []K {
	result := make([]K, 0, len(theMap))
	for key := range theMap {
		result = append(result, key)
	}

	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

// Clamp - restricts value to [lo, hi]. If lo > hi, lo wins
func Clamp[T constraints.Integer | constraints.Float](value T, lo T, hi T) T {
	if value > hi {
		value = hi
	}
	if value < lo {
		value = lo
	}
	return value
}
