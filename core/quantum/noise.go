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

package quantum

import "github.com/pixlise/pixelrender/core/utils"

// ReduceNoise - 3x3 median over raw samples, edges replicated. Applied before normalisation, so it
// is independent of the curve and bit depth. Returns a new slice
func ReduceNoise(width int, height int, samples []float64) []float64 {
	result := make([]float64, len(samples))
	if width <= 0 || height <= 0 || len(samples) != width*height {
		copy(result, samples)
		return result
	}

	var window [9]float64
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			n := 0
			for dy := -1; dy <= 1; dy++ {
				sy := utils.Clamp(y+dy, 0, height-1)
				for dx := -1; dx <= 1; dx++ {
					window[n] = samples[sy*width+utils.Clamp(x+dx, 0, width-1)]
					n++
				}
			}
			result[y*width+x] = median9(&window)
		}
	}
	return result
}

// insertion sort, 9 values
func median9(w *[9]float64) float64 {
	for i := 1; i < len(w); i++ {
		v := w[i]
		j := i - 1
		for ; j >= 0 && w[j] > v; j-- {
			w[j+1] = w[j]
		}
		w[j+1] = v
	}
	return w[4]
}
