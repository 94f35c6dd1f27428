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
)

////////////////////////////////////////////////////////////////////////////////////////////////////////////
// Getting component versions

type ComponentVersion struct {
	Component string `json:"component"`
	Version   string `json:"version"`
}

type VersionResponse struct {
	Versions []ComponentVersion `json:"versions"`

	CachedThumbnails     int `json:"cachedThumbnails"`
	CachedThumbnailBytes int `json:"cachedThumbnailBytes"`
}

func getAPIVersion() string {
	ver := services.ApiVersion
	if len(services.ApiVersion) <= 0 {
		ver = "(Local build)"
	}

	if len(services.GitHash) > 0 {
		hashEnd := 8
		if len(services.GitHash) < 8 {
			hashEnd = len(services.GitHash)
		}
		ver += "-" + services.GitHash[0:hashEnd]
	}

	return ver
}

func registerVersionHandler(router *apiRouter.ApiObjectRouter) {
	router.AddPublicHandler("/", "GET", rootRequest)
	router.AddPublicHandler("/version", "GET", getVersion)
}

// Load balancer health checks hit this
func rootRequest(params apiRouter.ApiHandlerGenericPublicParams) error {
	params.Writer.Header().Set("Content-Type", "text/plain")
	_, err := params.Writer.Write([]byte("Pixel render API " + getAPIVersion()))
	return err
}

func getVersion(params apiRouter.ApiHandlerGenericPublicParams) error {
	result := VersionResponse{
		Versions: []ComponentVersion{
			{Component: "API", Version: getAPIVersion()},
		},
	}
	result.CachedThumbnails, result.CachedThumbnailBytes = params.Svcs.Thumbnails.Stats()
	return toJSON(params.Writer, result)
}
