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
	"strconv"

	apiRouter "github.com/pixlise/pixelrender/api/router"
	"github.com/pixlise/pixelrender/core/bitmap"
	"github.com/pixlise/pixelrender/core/imageedit"
)

////////////////////////////////////////////////////////////////////////////////////////////////////////////
// Thumbnails
//
// GET /thumbnail/{pixelSetId}?width=W&height=H  exact size
// GET /thumbnail/{pixelSetId}?size=S            longest side S, aspect ratio kept (default size if not given)
// nodefault=true renders with defaults without creating settings for a user who has none

const thumbnailPrefix = "thumbnail"

func registerThumbnailHandler(router *apiRouter.ApiObjectRouter) {
	router.AddGenericHandler(apiRouter.MakeEndpointPath(thumbnailPrefix, pixelSetIdentifier), "GET", thumbnailGet)
}

func thumbnailGet(params apiRouter.ApiHandlerGenericParams) error {
	pixelSetID, err := intParam(params.PathParams, pixelSetIdentifier, 0)
	if err != nil {
		return err
	}

	format, err := imageFormat(params.PathParams, params.Svcs.Config.ThumbnailFormat)
	if err != nil {
		return err
	}

	size, err := intParam(params.PathParams, "size", 0)
	if err != nil {
		return err
	}
	width, err := intParam(params.PathParams, "width", 0)
	if err != nil {
		return err
	}
	height, err := intParam(params.PathParams, "height", 0)
	if err != nil {
		return err
	}

	noDefault, _ := strconv.ParseBool(params.PathParams["nodefault"])
	exactSize := hasParam(params.PathParams, "width") || hasParam(params.PathParams, "height")
	ctx := params.Request.Context()
	cache := params.Svcs.Thumbnails

	var bmp *bitmap.Bitmap
	switch {
	case noDefault:
		if !exactSize {
			desc, err := params.Svcs.Descriptions.GetDescription(ctx, pixelSetID)
			if err != nil {
				return err
			}
			if size <= 0 {
				size = int64(params.Svcs.Config.DefaultThumbnailSize)
			}
			w, h := imageedit.FitLongestSide(desc.SizeX, desc.SizeY, int(size))
			width, height = int64(w), int64(h)
		}
		bmp, err = cache.GetThumbnailWithoutDefault(ctx, pixelSetID, params.UserID, int(width), int(height))
	case exactSize:
		bmp, err = cache.GetThumbnail(ctx, pixelSetID, params.UserID, int(width), int(height))
	default:
		bmp, err = cache.GetThumbnailByLongestSide(ctx, pixelSetID, params.UserID, int(size))
	}

	if err != nil {
		return err
	}

	// Thumbnails change when settings change, make the browser check
	params.Writer.Header().Set("Cache-Control", "no-cache")
	return writeBitmap(params.Writer, bmp, format)
}
