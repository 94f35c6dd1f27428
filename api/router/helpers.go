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

package apiRouter

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/getsentry/sentry-go"
	"github.com/gorilla/mux"
	"github.com/pixlise/pixelrender/api/services"
	"github.com/pixlise/pixelrender/core/errorwithstatus"
	"github.com/pixlise/pixelrender/core/logger"
)

// UserIDHeader - set by the authenticating proxy in front of us
const UserIDHeader = "X-User-Id"

// GetUserID - the requesting user's id from UserIDHeader
func GetUserID(r *http.Request) (int64, error) {
	val := r.Header.Get(UserIDHeader)
	if len(val) <= 0 {
		return 0, errorwithstatus.MakeStatusError(http.StatusUnauthorized, fmt.Errorf("missing %v header", UserIDHeader))
	}

	id, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, errorwithstatus.MakeBadRequestError(fmt.Errorf("invalid %v header: %v", UserIDHeader, val))
	}
	return id, nil
}

func makePathParams(svcs *services.APIServices, r *http.Request) map[string]string {
	// Get path params
	pathParams := mux.Vars(r)
	if pathParams == nil {
		pathParams = map[string]string{}
	}

	queries := r.URL.Query()
	for q, v := range queries {
		if len(v) > 0 {
			pathParams[q] = v[0] // we ignore subsequent ones
		}
	}

	return pathParams
}

// StatusOf - HTTP status for an error returned by a handler
func StatusOf(err error) int {
	var statusErr errorwithstatus.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Status()
	}
	return http.StatusInternalServerError
}

func logHandlerErrors(err error, log logger.ILogger, w http.ResponseWriter, r *http.Request) {
	status := StatusOf(err)
	log.Errorf("Request: %v (%v), Result: status=%v, error=%v", r.URL, r.Method, status, err)

	if status >= http.StatusInternalServerError {
		hub := sentry.GetHubFromContext(r.Context())
		if hub == nil {
			hub = sentry.CurrentHub()
		}
		hub.CaptureException(err)
	}

	http.Error(w, err.Error(), status)
}
