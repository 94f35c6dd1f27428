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

package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/pixlise/pixelrender/core/bitmap"
	"github.com/pixlise/pixelrender/core/errorwithstatus"
	"github.com/pixlise/pixelrender/core/imageedit"
)

func toJSON(w http.ResponseWriter, item interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	return enc.Encode(item)
}

// intParam - def if the param isn't there, bad request if it's not an int
func intParam(params map[string]string, name string, def int64) (int64, error) {
	val, ok := params[name]
	if !ok || len(val) <= 0 {
		return def, nil
	}

	i, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, errorwithstatus.MakeBadRequestError(fmt.Errorf("invalid %v: %v", name, val))
	}
	return i, nil
}

func hasParam(params map[string]string, name string) bool {
	return len(params[name]) > 0
}

func imageFormat(params map[string]string, def string) (string, error) {
	format := params["format"]
	if len(format) <= 0 {
		return def, nil
	}
	if format != imageedit.FormatPNG && format != imageedit.FormatJPEG {
		return "", errorwithstatus.MakeBadRequestError(fmt.Errorf("unsupported format: %v", format))
	}
	return format, nil
}

func writeBitmap(w http.ResponseWriter, bmp *bitmap.Bitmap, format string) error {
	data, err := imageedit.GetBitmapBytes(bmp, format)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", imageedit.ContentType(format))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, err = w.Write(data)
	return err
}
