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

// Package pyramid picks which resolution level of a pixel set to read for a given output size, and
// waits (bounded) for pyramid generation that's still in progress. It can also generate the lower
// levels itself from the native planes.
package pyramid

import (
	"context"
	"time"

	"github.com/pixlise/pixelrender/core/errorwithstatus"
	"github.com/pixlise/pixelrender/core/logger"
	"github.com/pixlise/pixelrender/core/pixels"
)

// StatusSource - where the pyramid state of a pixel set is observed, and its description re-read
// once the pyramid is ready
type StatusSource interface {
	PyramidStatus(ctx context.Context, pixelSetID int64) (pixels.PyramidStatus, error)
	GetDescription(ctx context.Context, pixelSetID int64) (*pixels.Description, error)
}

// PollOptions - bounds on waiting for a PENDING pyramid
type PollOptions struct {
	MaxAttempts int
	Interval    time.Duration
}

type Resolver struct {
	status        StatusSource
	sizeThreshold int
	poll          PollOptions
	log           logger.ILogger
}

// NewResolver - pixel sets with both dimensions at or below sizeThreshold never need a pyramid
func NewResolver(status StatusSource, sizeThreshold int, poll PollOptions, log logger.ILogger) *Resolver {
	if poll.MaxAttempts <= 0 {
		poll.MaxAttempts = 1
	}
	return &Resolver{status: status, sizeThreshold: sizeThreshold, poll: poll, log: log}
}

func (r *Resolver) NeedsPyramid(desc *pixels.Description) bool {
	return desc.SizeX > r.sizeThreshold || desc.SizeY > r.sizeThreshold
}

// ResolveLevel - smallest level at least desiredMaxDimension on both axes, native if nothing is big
// enough or there's no usable pyramid
func ResolveLevel(desc *pixels.Description, desiredMaxDimension int) pixels.ResolutionLevel {
	return ResolveLevelFor(desc, desiredMaxDimension, desiredMaxDimension)
}

// ResolveLevelFor - smallest level at least width x height. Lower levels are only used once the
// pyramid is READY
func ResolveLevelFor(desc *pixels.Description, width int, height int) pixels.ResolutionLevel {
	native := desc.NativeLevel()
	if desc.EffectiveStatus() != pixels.PyramidReady {
		return native
	}

	for _, l := range desc.AllLevels() {
		if l.Fits(width, height) {
			return l
		}
	}
	return native
}

// WaitForReady - polls until the pyramid is no longer PENDING. Returns false if it still wasn't after
// opts.MaxAttempts polls. Cancelling ctx stops the wait with ctx's error
func (r *Resolver) WaitForReady(ctx context.Context, pixelSetID int64, opts PollOptions) (bool, error) {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}

	for attempt := 1; ; attempt++ {
		status, err := r.status.PyramidStatus(ctx, pixelSetID)
		if err != nil {
			return false, err
		}
		if status != pixels.PyramidPending {
			return true, nil
		}

		if attempt >= opts.MaxAttempts {
			return false, nil
		}

		r.log.Debugf("Pyramid for pixel set %v pending, attempt %v/%v", pixelSetID, attempt, opts.MaxAttempts)

		timer := time.NewTimer(opts.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false, ctx.Err()
		case <-timer.C:
		}
	}
}

// AwaitDescription - returns desc as is unless its pyramid is PENDING, in which case it waits with
// the resolver's poll options and returns the description as stored once generation finished, so
// levels and stats written alongside the status are seen. GenerationTimeout if it never becomes ready
func (r *Resolver) AwaitDescription(ctx context.Context, desc *pixels.Description) (*pixels.Description, error) {
	if desc.EffectiveStatus() != pixels.PyramidPending {
		return desc, nil
	}

	ready, err := r.WaitForReady(ctx, desc.ID, r.poll)
	if err != nil {
		return nil, err
	}
	if !ready {
		r.log.Errorf("Pyramid for pixel set %v not ready after %v attempts", desc.ID, r.poll.MaxAttempts)
		return nil, errorwithstatus.MakeGenerationTimeoutError(desc.ID, r.poll.MaxAttempts)
	}

	return r.status.GetDescription(ctx, desc.ID)
}
