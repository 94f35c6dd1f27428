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
	apiRouter "github.com/pixlise/pixelrender/api/router"
	"github.com/pixlise/pixelrender/api/services"
	"github.com/pixlise/pixelrender/core/bitmap"
	"github.com/pixlise/pixelrender/core/pixels"
)

////////////////////////////////////////////////////////////////////////////////////////////////////////////
// Full renders
//
// GET /render/{pixelSetId}/{z}/{t}?level=L                  whole level, native if not given
// GET /render/{pixelSetId}/{z}/{t}?level=L&tileX=X&tileY=Y  one tile of a level
// Always uses the user's current settings (created if needed)

const renderPrefix = "render"

func registerRenderHandler(router *apiRouter.ApiObjectRouter) {
	router.AddGenericHandler(apiRouter.MakeEndpointPath(renderPrefix, pixelSetIdentifier, "z", "t"), "GET", renderGet)
}

func renderGet(params apiRouter.ApiHandlerGenericParams) error {
	pixelSetID, err := intParam(params.PathParams, pixelSetIdentifier, 0)
	if err != nil {
		return err
	}
	z, err := intParam(params.PathParams, "z", 0)
	if err != nil {
		return err
	}
	t, err := intParam(params.PathParams, "t", 0)
	if err != nil {
		return err
	}
	format, err := imageFormat(params.PathParams, "png")
	if err != nil {
		return err
	}

	ctx := params.Request.Context()
	desc, err := params.Svcs.Descriptions.GetDescription(ctx, pixelSetID)
	if err != nil {
		return err
	}

	native := desc.NativeLevel().Index
	level, err := intParam(params.PathParams, "level", int64(native))
	if err != nil {
		return err
	}

	// Lower levels only exist once the pyramid is done
	if int(level) != native {
		desc, err = params.Svcs.Resolver.AwaitDescription(ctx, desc)
		if err != nil {
			return err
		}
	}

	settings, err := params.Svcs.Settings.LoadOrCreate(ctx, pixelSetID, params.UserID)
	if err != nil {
		return err
	}

	ps := &pixels.PixelSet{Description: *desc, Planes: services.PlaneSource(params.Svcs.Config, params.Svcs.FS)(desc)}

	var bmp *bitmap.Bitmap
	if hasParam(params.PathParams, "tileX") || hasParam(params.PathParams, "tileY") {
		tileX, err := intParam(params.PathParams, "tileX", 0)
		if err != nil {
			return err
		}
		tileY, err := intParam(params.PathParams, "tileY", 0)
		if err != nil {
			return err
		}
		bmp, err = params.Svcs.Renderer.RenderTile(ps, settings, int(z), int(t), int(level), int(tileX), int(tileY))
		if err != nil {
			return err
		}
	} else {
		bmp, err = params.Svcs.Renderer.Render(ps, settings, int(z), int(t), int(level))
		if err != nil {
			return err
		}
	}

	return writeBitmap(params.Writer, bmp, format)
}
