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

package imageedit

import (
	"image"
	"math"

	"github.com/pixlise/pixelrender/core/bitmap"
	"golang.org/x/image/draw"
)

// ScaleImage - resamples img to exactly width x height, aspect ratio is not preserved
func ScaleImage(img image.Image, width int, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.ApproxBiLinear.Scale(dst, dst.Rect, img, img.Bounds(), draw.Src, nil)
	return dst
}

// ScaleBitmap - same as ScaleImage but for RGB bitmaps. Same size in = copy out
func ScaleBitmap(b *bitmap.Bitmap, width int, height int) *bitmap.Bitmap {
	if b.Width == width && b.Height == height {
		return b.Clone()
	}
	return bitmap.FromImage(ScaleImage(b.ToImage(), width, height))
}

// FitLongestSide - dimensions with the longest side equal to longest, keeping the aspect ratio of
// width x height. Neither side goes below 1
func FitLongestSide(width int, height int, longest int) (int, int) {
	if width <= 0 || height <= 0 || longest <= 0 {
		return 0, 0
	}

	if width >= height {
		h := int(math.Round(float64(height) * float64(longest) / float64(width)))
		return longest, max(h, 1)
	}

	w := int(math.Round(float64(width) * float64(longest) / float64(height)))
	return max(w, 1), longest
}
