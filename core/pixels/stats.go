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

package pixels

import (
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ComputeChannelStats - global min/max/mean/std dev per channel over every z and t of a level.
// Usually run on the lowest level that's still representative, as it reads every plane
func ComputeChannelStats(ps *PixelSet, level int) ([]ChannelStats, error) {
	result := make([]ChannelStats, len(ps.Channels))

	var g errgroup.Group
	for c := range ps.Channels {
		c := c
		g.Go(func() error {
			samples := []float64{}
			for z := 0; z < ps.SizeZ; z++ {
				for t := 0; t < ps.SizeT; t++ {
					plane, err := ps.Plane(level, z, t, c)
					if err != nil {
						return err
					}
					samples = append(samples, plane.Samples...)
				}
			}

			if len(samples) <= 0 {
				return fmt.Errorf("pixel set %v channel %v has no samples at level %v", ps.ID, c, level)
			}

			mean, stdDev := stat.MeanStdDev(samples, nil)
			if math.IsNaN(stdDev) {
				// Single sample
				stdDev = 0
			}
			result[c] = ChannelStats{
				Min:    floats.Min(samples),
				Max:    floats.Max(samples),
				Mean:   mean,
				StdDev: stdDev,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}
