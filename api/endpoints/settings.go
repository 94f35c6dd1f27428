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

	apiRouter "github.com/pixlise/pixelrender/api/router"
	"github.com/pixlise/pixelrender/core/errorwithstatus"
	"github.com/pixlise/pixelrender/core/rendersettings"
)

////////////////////////////////////////////////////////////////////////////////////////////////////////////
// Rendering settings of the requesting user
//
// GET  /rendersettings/{pixelSetId}                  current settings, defaults created on first view
// PUT  /rendersettings/{pixelSetId}                  body is a ChangeRequest made against "version"
// POST /rendersettings/{pixelSetId}/reset?version=N  back to defaults, as a new version

const renderSettingsPrefix = "rendersettings"

func registerRenderSettingsHandler(router *apiRouter.ApiObjectRouter) {
	path := apiRouter.MakeEndpointPath(renderSettingsPrefix, pixelSetIdentifier)
	router.AddGenericHandler(path, "GET", renderSettingsGet)
	router.AddGenericHandler(path, "PUT", renderSettingsPut)
	router.AddGenericHandler(path+"/reset", "POST", renderSettingsReset)
}

func renderSettingsGet(params apiRouter.ApiHandlerGenericParams) error {
	pixelSetID, err := intParam(params.PathParams, pixelSetIdentifier, 0)
	if err != nil {
		return err
	}

	settings, err := params.Svcs.Settings.LoadOrCreate(params.Request.Context(), pixelSetID, params.UserID)
	if err != nil {
		return err
	}
	return toJSON(params.Writer, settings)
}

func renderSettingsPut(params apiRouter.ApiHandlerGenericParams) error {
	pixelSetID, err := intParam(params.PathParams, pixelSetIdentifier, 0)
	if err != nil {
		return err
	}

	var req rendersettings.ChangeRequest
	if err := json.NewDecoder(params.Request.Body).Decode(&req); err != nil {
		return errorwithstatus.MakeBadRequestError(fmt.Errorf("failed to read settings change: %v", err))
	}

	settings, err := params.Svcs.Settings.Apply(params.Request.Context(), pixelSetID, params.UserID, req)
	if err != nil {
		return err
	}
	return toJSON(params.Writer, settings)
}

func renderSettingsReset(params apiRouter.ApiHandlerGenericParams) error {
	pixelSetID, err := intParam(params.PathParams, pixelSetIdentifier, 0)
	if err != nil {
		return err
	}
	if !hasParam(params.PathParams, "version") {
		return errorwithstatus.MakeBadRequestError(fmt.Errorf("version is required"))
	}
	version, err := intParam(params.PathParams, "version", 0)
	if err != nil {
		return err
	}

	ctx := params.Request.Context()
	current, ok, err := params.Svcs.Settings.Load(ctx, pixelSetID, params.UserID)
	if err != nil {
		return err
	}
	if !ok {
		return errorwithstatus.MakeNotFoundError(rendersettings.MakeID(pixelSetID, params.UserID))
	}
	if current.Version != version {
		return errorwithstatus.MakeStaleSettingsVersionError(pixelSetID, params.UserID, version)
	}

	settings, err := params.Svcs.Settings.ResetDefaults(ctx, current)
	if err != nil {
		return err
	}
	return toJSON(params.Writer, settings)
}
