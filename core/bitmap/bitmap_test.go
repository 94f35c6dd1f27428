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

package bitmap

import (
	"fmt"
	"image"
	"image/color"
)

func Example_bitmap() {
	b := New(3, 2)
	fmt.Println(b.SizeBytes(), b.Validate())

	b.SetRGB(2, 1, 10, 20, 30)
	fmt.Println(b.RGB(2, 1))
	fmt.Println(b.Offset(2, 1))

	c := b.Clone()
	fmt.Println(c.Equal(b))
	c.SetRGB(0, 0, 1, 1, 1)
	fmt.Println(c.Equal(b))

	b.Pix = b.Pix[1:]
	fmt.Println(b.Validate())

	// Output:
	// 18 <nil>
	// 10 20 30
	// 15
	// true
	// false
	// bitmap 3x2 expected 18 bytes, got 17
}

func Example_imageConversion() {
	b := New(2, 2)
	b.SetRGB(1, 0, 255, 128, 0)

	img := b.ToImage()
	fmt.Println(img.Bounds(), img.RGBAAt(1, 0), img.RGBAAt(0, 1))

	// Offset origin gets moved to 0,0
	src := image.NewRGBA(image.Rect(5, 5, 7, 6))
	src.SetRGBA(6, 5, color.RGBA{R: 1, G: 2, B: 3, A: 255})
	back := FromImage(src)
	fmt.Println(back.Width, back.Height, back.Pix)

	fmt.Println(FromImage(img).Equal(b))

	// Output:
	// (0,0)-(2,2) {255 128 0 255} {0 0 0 255}
	// 2 1 [0 0 0 1 2 3]
	// true
}
