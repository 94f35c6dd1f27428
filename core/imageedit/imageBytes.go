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
	"bufio"
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/pixlise/pixelrender/core/bitmap"
)

const FormatPNG = "png"
const FormatJPEG = "jpeg"

// ContentType - for HTTP responses of GetImageBytes output
func ContentType(imgFormat string) string {
	if imgFormat == FormatJPEG {
		return "image/jpeg"
	}
	return "image/png"
}

func GetImageBytes(img image.Image, imgFormat string) ([]byte, error) {
	var err error
	var b bytes.Buffer
	writer := bufio.NewWriter(&b)

	if imgFormat == FormatPNG {
		err = png.Encode(writer, img)
	} else if imgFormat == FormatJPEG {
		err = jpeg.Encode(writer, img, &jpeg.Options{Quality: 90})
	} else {
		err = fmt.Errorf("unexpected image format: %v", imgFormat)
	}

	if err != nil {
		return nil, err
	}

	err = writer.Flush()
	if err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

func GetBitmapBytes(b *bitmap.Bitmap, imgFormat string) ([]byte, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return GetImageBytes(b.ToImage(), imgFormat)
}
