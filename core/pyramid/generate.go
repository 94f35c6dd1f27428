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

package pyramid

import (
	"context"
	"fmt"

	"github.com/pixlise/pixelrender/core/logger"
	"github.com/pixlise/pixelrender/core/pixels"
	"golang.org/x/sync/errgroup"
)

// PlaneWriter - where generated planes go. pixels.MemoryPlanes and pixels.FilePlaneSource both are
type PlaneWriter interface {
	WritePlane(level int, z int, t int, c int, plane *pixels.Plane) error
}

// DefaultLevels - halves the native size until a level fits in one tile (or can't shrink any
// more). Lowest resolution first, last one is native
func DefaultLevels(sizeX int, sizeY int, tileSize int) []pixels.ResolutionLevel {
	sizes := [][2]int{{sizeX, sizeY}}
	w, h := sizeX, sizeY
	for (w > tileSize || h > tileSize) && w > 1 && h > 1 {
		w = (w + 1) / 2
		h = (h + 1) / 2
		sizes = append(sizes, [2]int{w, h})
	}

	result := make([]pixels.ResolutionLevel, len(sizes))
	for i := range sizes {
		s := sizes[len(sizes)-1-i]
		result[i] = pixels.ResolutionLevel{Index: i, Width: s[0], Height: s[1], TileSize: tileSize}
	}
	return result
}

// Downsample - area average of src down to width x height
func Downsample(src *pixels.Plane, width int, height int) *pixels.Plane {
	dst := pixels.NewPlane(width, height)
	for y := 0; y < height; y++ {
		y0 := y * src.Height / height
		y1 := (y + 1) * src.Height / height
		if y1 <= y0 {
			y1 = y0 + 1
		}
		for x := 0; x < width; x++ {
			x0 := x * src.Width / width
			x1 := (x + 1) * src.Width / width
			if x1 <= x0 {
				x1 = x0 + 1
			}

			sum := 0.0
			for sy := y0; sy < y1; sy++ {
				for sx := x0; sx < x1; sx++ {
					sum += src.At(sx, sy)
				}
			}
			dst.Set(x, y, sum/float64((x1-x0)*(y1-y0)))
		}
	}
	return dst
}

// Generate - writes every level below native, for every z, t and channel, from the native planes.
// ps must already list the levels to generate
func Generate(ctx context.Context, ps *pixels.PixelSet, writer PlaneWriter, concurrency int) error {
	levels := ps.AllLevels()
	native := levels[len(levels)-1]

	g, ctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}

	for z := 0; z < ps.SizeZ; z++ {
		for t := 0; t < ps.SizeT; t++ {
			for c := range ps.Channels {
				z, t, c := z, t, c
				g.Go(func() error {
					if err := ctx.Err(); err != nil {
						return err
					}

					src, err := ps.Plane(native.Index, z, t, c)
					if err != nil {
						return err
					}

					for _, l := range levels[:len(levels)-1] {
						if err := writer.WritePlane(l.Index, z, t, c, Downsample(src, l.Width, l.Height)); err != nil {
							return fmt.Errorf("failed to write level %v z=%v t=%v c=%v: %w", l.Index, z, t, c, err)
						}
					}
					return nil
				})
			}
		}
	}

	return g.Wait()
}

// Build - what an ingestion job does for a large pixel set: mark it PENDING, generate the levels,
// then store channel stats which is what readers see as READY
func Build(ctx context.Context, ps *pixels.PixelSet, writer PlaneWriter, descs pixels.DescriptionStore, concurrency int, log logger.ILogger) error {
	if err := descs.SetPyramidStatus(ctx, ps.ID, pixels.PyramidPending); err != nil {
		return err
	}

	log.Infof("Generating %v pyramid levels for pixel set %v", len(ps.AllLevels())-1, ps.ID)
	if err := Generate(ctx, ps, writer, concurrency); err != nil {
		return err
	}

	stats, err := pixels.ComputeChannelStats(ps, ps.NativeLevel().Index)
	if err != nil {
		return err
	}

	if err := descs.SetChannelStats(ctx, ps.ID, stats); err != nil {
		return err
	}

	log.Infof("Pyramid for pixel set %v ready", ps.ID)
	return descs.SetPyramidStatus(ctx, ps.ID, pixels.PyramidReady)
}
