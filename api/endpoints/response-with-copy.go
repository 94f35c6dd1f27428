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
	"bytes"
	"net/http"
	"strings"
)

// How much of a text response body is kept for logging
const maxRecordedBodyBytes = 600

// responseRecorder - passes everything through to the real writer, remembering the status, how
// much was written and the start of any text body, so middleware can log/monitor it
type responseRecorder struct {
	RealWriter   http.ResponseWriter
	Status       int
	BytesWritten int
	Body         bytes.Buffer
}

func (w *responseRecorder) StatusCode() int {
	if w.Status == 0 {
		return http.StatusOK
	}
	return w.Status
}

func (w *responseRecorder) Header() http.Header {
	return w.RealWriter.Header()
}

func (w *responseRecorder) Write(p []byte) (int, error) {
	if w.isText() && w.Body.Len() < maxRecordedBodyBytes {
		rest := maxRecordedBodyBytes - w.Body.Len()
		if rest > len(p) {
			rest = len(p)
		}
		w.Body.Write(p[:rest])
	}

	n, err := w.RealWriter.Write(p)
	w.BytesWritten += n
	return n, err
}

func (w *responseRecorder) WriteHeader(statusCode int) {
	w.Status = statusCode
	w.RealWriter.WriteHeader(statusCode)
}

func (w *responseRecorder) isText() bool {
	ct := w.Header().Get("Content-Type")
	return strings.HasPrefix(ct, "text/") || strings.HasPrefix(ct, "application/json")
}
