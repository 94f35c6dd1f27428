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
	"fmt"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	apiRouter "github.com/pixlise/pixelrender/api/router"
	"github.com/pixlise/pixelrender/core/logger"
)

type LoggerMiddleware struct {
	Log logger.ILogger
}

func (h *LoggerMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &responseRecorder{RealWriter: w}

		next.ServeHTTP(rec, r)

		// Load balancer health checks hit / constantly, don't bury other logs under them
		if r.URL.Path == "/" {
			return
		}

		status := rec.StatusCode()
		hadError := status != http.StatusOK && status != http.StatusNotModified

		level := logger.LogDebug
		if hadError {
			level = logger.LogError
		}

		h.Log.Printf(level, "Request: %v (%v) user: \"%v\", status: %v, %v bytes in %v", r.URL, r.Method, r.Header.Get(apiRouter.UserIDHeader), status, rec.BytesWritten, time.Since(start))

		if status >= http.StatusInternalServerError {
			sentry.CaptureMessage(fmt.Sprintf("API returned %v for %v \"%v %v\". Requesting user id: \"%v\". Response body: \"%v\"",
				status,
				r.Method,
				r.Host,
				r.URL,
				r.Header.Get(apiRouter.UserIDHeader),
				rec.Body.String(),
			))
		}
	})
}
