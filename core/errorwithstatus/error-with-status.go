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

// Typed failures for the rendering engine. Every error the engine surfaces carries a Kind
// (what went wrong, so callers can decide to retry/reload) and an HTTP-style status code so a
// transport layer can map it without knowing engine internals.
package errorwithstatus

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind - category of failure
type Kind int

const (
	Unknown Kind = iota
	NotFound
	InvalidConfiguration
	StaleSettingsVersion
	MissingPlane
	InvalidCoordinate
	GenerationTimeout
	CacheStoreError
)

var kindNames = map[Kind]string{
	Unknown:              "Unknown",
	NotFound:             "NotFound",
	InvalidConfiguration: "InvalidConfiguration",
	StaleSettingsVersion: "StaleSettingsVersion",
	MissingPlane:         "MissingPlane",
	InvalidCoordinate:    "InvalidCoordinate",
	GenerationTimeout:    "GenerationTimeout",
	CacheStoreError:      "CacheStoreError",
}

func (k Kind) String() string {
	return kindNames[k]
}

type Error interface {
	error
	Status() int
}

type StatusError struct {
	Code int
	Kind Kind
	Err  error
}

func (se StatusError) Error() string {
	return se.Err.Error()
}

func (se StatusError) Status() int {
	return se.Code
}

func (se StatusError) Unwrap() error {
	return se.Err
}

// KindOf - returns the Kind of the first StatusError found in the error chain, Unknown otherwise
func KindOf(err error) Kind {
	var se StatusError
	if errors.As(err, &se) {
		return se.Kind
	}
	return Unknown
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

func MakeNotFoundError(ID string) StatusError {
	return StatusError{
		Code: http.StatusNotFound,
		Kind: NotFound,
		Err:  fmt.Errorf("%v not found", ID),
	}
}

func MakeBadRequestError(err error) StatusError {
	return StatusError{
		Code: http.StatusBadRequest,
		Kind: Unknown,
		Err:  err,
	}
}

func MakeInvalidConfigurationError(format string, a ...interface{}) StatusError {
	return StatusError{
		Code: http.StatusBadRequest,
		Kind: InvalidConfiguration,
		Err:  fmt.Errorf("invalid configuration: "+format, a...),
	}
}

func MakeStaleSettingsVersionError(pixelSetID int64, userID int64, version int64) StatusError {
	return StatusError{
		Code: http.StatusConflict,
		Kind: StaleSettingsVersion,
		Err:  fmt.Errorf("rendering settings for pixel set %v user %v: version %v is stale, reload and retry", pixelSetID, userID, version),
	}
}

func MakeMissingPlaneError(pixelSetID int64, level int, z int, t int, c int) StatusError {
	return StatusError{
		Code: http.StatusNotFound,
		Kind: MissingPlane,
		Err:  fmt.Errorf("pixel set %v has no plane for level=%v z=%v t=%v c=%v", pixelSetID, level, z, t, c),
	}
}

func MakeInvalidCoordinateError(format string, a ...interface{}) StatusError {
	return StatusError{
		Code: http.StatusBadRequest,
		Kind: InvalidCoordinate,
		Err:  fmt.Errorf("invalid coordinate: "+format, a...),
	}
}

func MakeGenerationTimeoutError(pixelSetID int64, attempts int) StatusError {
	return StatusError{
		Code: http.StatusServiceUnavailable,
		Kind: GenerationTimeout,
		Err:  fmt.Errorf("pyramid for pixel set %v not ready after %v attempts", pixelSetID, attempts),
	}
}

func MakeCacheStoreError(key string, err error) StatusError {
	return StatusError{
		Code: http.StatusInternalServerError,
		Kind: CacheStoreError,
		Err:  fmt.Errorf("failed to store thumbnail %v: %w", key, err),
	}
}

func MakeStatusError(code int, err error) StatusError {
	return StatusError{
		Code: code,
		Kind: Unknown,
		Err:  err,
	}
}
