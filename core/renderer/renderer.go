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

// Package renderer turns the raw planes of a pixel set into an RGB bitmap for one (z, t) at one
// resolution level, using a snapshot of a user's rendering settings.
//
// Each active channel's samples are quantized into the settings' codomain, scaled by the channel
// colour and added into the output. Per component:
//
//	out = min(255, sum over active channels of round(q * colour / (2^bitDepth - 1)))
//
// In the greyscale colour model only the first active channel contributes, as white.
//
// Everything is integer once quantized, so output is byte-identical for identical inputs no matter
// how the rows are split between workers.
package renderer

import (
	"image"
	"math"
	"runtime"

	"github.com/pixlise/pixelrender/core/bitmap"
	"github.com/pixlise/pixelrender/core/errorwithstatus"
	"github.com/pixlise/pixelrender/core/logger"
	"github.com/pixlise/pixelrender/core/pixels"
	"github.com/pixlise/pixelrender/core/quantum"
	"github.com/pixlise/pixelrender/core/rendersettings"
	"github.com/pixlise/pixelrender/core/utils"
	"golang.org/x/sync/errgroup"
)

const DefaultTileSize = 256

type Renderer struct {
	log      logger.ILogger
	workers  int
	tileSize int
}

// NewRenderer - workers <= 0 means one per CPU
func NewRenderer(log logger.ILogger, workers int) *Renderer {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Renderer{log: log, workers: workers, tileSize: DefaultTileSize}
}

// SetDefaultTileSize - tile size for levels that don't specify one. Call before rendering starts
func (r *Renderer) SetDefaultTileSize(size int) {
	if size > 0 {
		r.tileSize = size
	}
}

// channelPass - everything needed to add one channel into the output
type channelPass struct {
	quantizer *quantum.Quantizer
	samples   []float64
	stride    int
	lut       [][3]int
}

// Render - the whole of a resolution level
func (r *Renderer) Render(ps *pixels.PixelSet, settings *rendersettings.Settings, z int, t int, level int) (*bitmap.Bitmap, error) {
	lvl, err := ps.Level(level)
	if err != nil {
		return nil, err
	}
	return r.RenderRegion(ps, settings, z, t, level, image.Rect(0, 0, lvl.Width, lvl.Height))
}

// RenderTile - one tile of a level, tiles being TileSize square (the renderer's default if the
// level doesn't say) and cropped at the right and bottom edges
func (r *Renderer) RenderTile(ps *pixels.PixelSet, settings *rendersettings.Settings, z int, t int, level int, tileX int, tileY int) (*bitmap.Bitmap, error) {
	lvl, err := ps.Level(level)
	if err != nil {
		return nil, err
	}

	tileSize := lvl.TileSize
	if tileSize <= 0 {
		tileSize = r.tileSize
	}

	tilesX := (lvl.Width + tileSize - 1) / tileSize
	tilesY := (lvl.Height + tileSize - 1) / tileSize
	if tileX < 0 || tileX >= tilesX || tileY < 0 || tileY >= tilesY {
		return nil, errorwithstatus.MakeInvalidCoordinateError("tile %v,%v outside %vx%v tiles of level %v", tileX, tileY, tilesX, tilesY, level)
	}

	region := image.Rect(tileX*tileSize, tileY*tileSize, (tileX+1)*tileSize, (tileY+1)*tileSize).Intersect(image.Rect(0, 0, lvl.Width, lvl.Height))
	return r.RenderRegion(ps, settings, z, t, level, region)
}

// RenderRegion - a sub-rectangle of a level. Output is identical to cropping a full Render of the
// same level, noise reduction included
func (r *Renderer) RenderRegion(ps *pixels.PixelSet, settings *rendersettings.Settings, z int, t int, level int, region image.Rectangle) (*bitmap.Bitmap, error) {
	// Work from a private copy so the whole render sees one version
	snapshot := settings.Clone()

	lvl, err := ps.Level(level)
	if err != nil {
		return nil, err
	}
	if err := ps.CheckCoordinate(z, t); err != nil {
		return nil, err
	}
	if region.Empty() || !region.In(image.Rect(0, 0, lvl.Width, lvl.Height)) {
		return nil, errorwithstatus.MakeInvalidCoordinateError("region %v not inside level %v (%vx%v)", region, level, lvl.Width, lvl.Height)
	}
	if len(snapshot.Channels) != ps.SizeC() {
		return nil, errorwithstatus.MakeInvalidConfigurationError("settings have %v channels, pixel set %v has %v", len(snapshot.Channels), ps.ID, ps.SizeC())
	}
	if err := snapshot.Codomain.Validate(snapshot.BitDepth); err != nil {
		return nil, err
	}

	active := snapshot.ActiveChannels()
	if snapshot.IsGreyscale() && len(active) > 1 {
		active = active[:1]
	}

	passes := []channelPass{}
	for _, c := range active {
		color := snapshot.Channels[c].Color
		if snapshot.IsGreyscale() {
			color = rendersettings.White
		}

		pass, err := r.prepareChannel(ps, snapshot, c, color, z, t, level)
		if err != nil {
			return nil, err
		}
		passes = append(passes, pass)
	}

	out := bitmap.New(region.Dx(), region.Dy())
	if len(passes) <= 0 {
		return out, nil
	}

	bandRows := (out.Height + r.workers - 1) / r.workers
	var g errgroup.Group
	for y0 := 0; y0 < out.Height; y0 += bandRows {
		y0 := y0
		y1 := y0 + bandRows
		if y1 > out.Height {
			y1 = out.Height
		}
		g.Go(func() error {
			blendRows(out, passes, region.Min, y0, y1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}

func (r *Renderer) prepareChannel(ps *pixels.PixelSet, settings *rendersettings.Settings, c int, color rendersettings.RGB, z int, t int, level int) (channelPass, error) {
	binding := settings.Channels[c]

	q, err := quantum.NewCodomainQuantizer(binding.QuantumConfig(), settings.BitDepth, settings.Codomain)
	if err != nil {
		return channelPass{}, err
	}

	plane, err := ps.Plane(level, z, t, c)
	if err != nil {
		return channelPass{}, err
	}

	samples := plane.Samples
	if settings.NoiseReduction {
		samples = quantum.ReduceNoise(plane.Width, plane.Height, samples)
	}

	return channelPass{
		quantizer: q,
		samples:   samples,
		stride:    plane.Width,
		lut:       contributionTable(q.MaxValue(), color),
	}, nil
}

// contributionTable - per quantized value, what it adds to R, G and B
func contributionTable(maxValue int, color rendersettings.RGB) [][3]int {
	lut := make([][3]int, maxValue+1)
	for q := range lut {
		lut[q] = [3]int{
			scaleComponent(q, maxValue, color.R),
			scaleComponent(q, maxValue, color.G),
			scaleComponent(q, maxValue, color.B),
		}
	}
	return lut
}

func scaleComponent(q int, maxValue int, component uint8) int {
	if maxValue <= 0 {
		return 0
	}
	return int(math.Round(float64(q) * float64(component) / float64(maxValue)))
}

func blendRows(out *bitmap.Bitmap, passes []channelPass, origin image.Point, y0 int, y1 int) {
	for y := y0; y < y1; y++ {
		for x := 0; x < out.Width; x++ {
			var sum [3]int
			for _, p := range passes {
				sample := p.samples[(origin.Y+y)*p.stride+origin.X+x]
				add := p.lut[p.quantizer.Quantize(sample)]
				sum[0] += add[0]
				sum[1] += add[1]
				sum[2] += add[2]
			}

			i := out.Offset(x, y)
			out.Pix[i] = byte(utils.Clamp(sum[0], 0, 255))
			out.Pix[i+1] = byte(utils.Clamp(sum[1], 0, 255))
			out.Pix[i+2] = byte(utils.Clamp(sum[2], 0, 255))
		}
	}
}
