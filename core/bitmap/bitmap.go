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

// Package bitmap holds the engine's output type: packed 8-bit RGB, row-major, no padding.
package bitmap

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
)

const BytesPerPixel = 3

type Bitmap struct {
	Width  int
	Height int
	Pix    []byte
}

// New - all black bitmap
func New(width int, height int) *Bitmap {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Bitmap{Width: width, Height: height, Pix: make([]byte, width*height*BytesPerPixel)}
}

func (b *Bitmap) Offset(x int, y int) int {
	return (y*b.Width + x) * BytesPerPixel
}

func (b *Bitmap) RGB(x int, y int) (uint8, uint8, uint8) {
	i := b.Offset(x, y)
	return b.Pix[i], b.Pix[i+1], b.Pix[i+2]
}

func (b *Bitmap) SetRGB(x int, y int, r uint8, g uint8, bl uint8) {
	i := b.Offset(x, y)
	b.Pix[i] = r
	b.Pix[i+1] = g
	b.Pix[i+2] = bl
}

// SizeBytes - what this bitmap costs in a cache budget
func (b *Bitmap) SizeBytes() int {
	return len(b.Pix)
}

func (b *Bitmap) Clone() *Bitmap {
	pix := make([]byte, len(b.Pix))
	copy(pix, b.Pix)
	return &Bitmap{Width: b.Width, Height: b.Height, Pix: pix}
}

func (b *Bitmap) Equal(other *Bitmap) bool {
	if b == nil || other == nil {
		return b == other
	}
	return b.Width == other.Width && b.Height == other.Height && bytes.Equal(b.Pix, other.Pix)
}

func (b *Bitmap) Validate() error {
	if b.Width < 0 || b.Height < 0 {
		return fmt.Errorf("invalid bitmap dimensions %vx%v", b.Width, b.Height)
	}
	if len(b.Pix) != b.Width*b.Height*BytesPerPixel {
		return fmt.Errorf("bitmap %vx%v expected %v bytes, got %v", b.Width, b.Height, b.Width*b.Height*BytesPerPixel, len(b.Pix))
	}
	return nil
}

// ToImage - opaque RGBA copy for use with image/draw & the encoders
func (b *Bitmap) ToImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, b.Width, b.Height))
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			src := b.Offset(x, y)
			dst := img.PixOffset(x, y)
			img.Pix[dst] = b.Pix[src]
			img.Pix[dst+1] = b.Pix[src+1]
			img.Pix[dst+2] = b.Pix[src+2]
			img.Pix[dst+3] = 0xFF
		}
	}
	return img
}

// FromImage - drops alpha, origin moves to 0,0
func FromImage(img image.Image) *Bitmap {
	bounds := img.Bounds()

	rgba, ok := img.(*image.RGBA)
	if !ok || bounds.Min != image.Pt(0, 0) {
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}

	result := New(bounds.Dx(), bounds.Dy())
	for y := 0; y < result.Height; y++ {
		for x := 0; x < result.Width; x++ {
			c := rgba.RGBAAt(x, y)
			result.SetRGB(x, y, c.R, c.G, c.B)
		}
	}
	return result
}

// At - lets a Bitmap be read as a colour grid without converting it
func (b *Bitmap) At(x int, y int) color.RGBA {
	r, g, bl := b.RGB(x, y)
	return color.RGBA{R: r, G: g, B: bl, A: 0xFF}
}
