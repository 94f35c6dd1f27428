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

package rendersettings

import (
	"context"

	"github.com/pixlise/pixelrender/core/errorwithstatus"
	"github.com/pixlise/pixelrender/core/logger"
	"github.com/pixlise/pixelrender/core/pixels"
	"github.com/pixlise/pixelrender/core/timestamper"
)

// Service - create/load/update of settings. Nothing is cached here, every call goes to the store so
// a version returned by Update can always be reloaded
type Service struct {
	store       Store
	descs       pixels.DescriptionStore
	timeStamper timestamper.ITimeStamper
	log         logger.ILogger
}

func NewService(store Store, descs pixels.DescriptionStore, ts timestamper.ITimeStamper, log logger.ILogger) *Service {
	return &Service{store: store, descs: descs, timeStamper: ts, log: log}
}

// Create - persists default settings as version 1. Fails with StaleSettingsVersion if the user
// already has settings for this pixel set
func (s *Service) Create(ctx context.Context, pixelSetID int64, userID int64) (*Settings, error) {
	desc, err := s.descs.GetDescription(ctx, pixelSetID)
	if err != nil {
		return nil, err
	}

	settings := Defaults(desc, userID)
	settings.Version = 1
	settings.ModifiedUnixSec = s.timeStamper.GetTimeNowSec()

	if err := settings.Validate(desc); err != nil {
		return nil, err
	}

	if err := s.store.Save(ctx, settings, 0); err != nil {
		return nil, err
	}

	s.log.Infof("Created rendering settings for pixel set %v user %v", pixelSetID, userID)
	return settings, nil
}

// Load - returns false if the user has no settings for this pixel set
func (s *Service) Load(ctx context.Context, pixelSetID int64, userID int64) (*Settings, bool, error) {
	return s.store.Load(ctx, pixelSetID, userID)
}

// LoadOrCreate - settings always exist once a user has viewed a pixel set. If a concurrent caller
// creates them first we read theirs
func (s *Service) LoadOrCreate(ctx context.Context, pixelSetID int64, userID int64) (*Settings, error) {
	settings, ok, err := s.store.Load(ctx, pixelSetID, userID)
	if err != nil || ok {
		return settings, err
	}

	settings, err = s.Create(ctx, pixelSetID, userID)
	if errorwithstatus.IsKind(err, errorwithstatus.StaleSettingsVersion) {
		settings, ok, err = s.store.Load(ctx, pixelSetID, userID)
		if err == nil && !ok {
			err = errorwithstatus.MakeNotFoundError(MakeID(pixelSetID, userID))
		}
	}
	return settings, err
}

// Update - applies mutations to a copy of current, validates, bumps the version by 1 and persists.
// current is never modified. On any failure the previously stored version stays as it was
func (s *Service) Update(ctx context.Context, current *Settings, mutations ...Mutation) (*Settings, error) {
	desc, err := s.descs.GetDescription(ctx, current.PixelSetID)
	if err != nil {
		return nil, err
	}

	next := current.Clone()
	for _, m := range mutations {
		if err := m(next, desc); err != nil {
			return nil, err
		}
	}

	if err := next.Validate(desc); err != nil {
		return nil, err
	}

	next.Version = current.Version + 1
	next.ModifiedUnixSec = s.timeStamper.GetTimeNowSec()

	if err := s.store.Save(ctx, next, current.Version); err != nil {
		if !errorwithstatus.IsKind(err, errorwithstatus.StaleSettingsVersion) {
			s.log.Errorf("Failed to save rendering settings %v version %v: %v", next.ID, next.Version, err)
		}
		return nil, err
	}

	s.log.Debugf("Rendering settings %v now at version %v", next.ID, next.Version)
	return next, nil
}

// ResetDefaults - a versioned mutation like any other
func (s *Service) ResetDefaults(ctx context.Context, current *Settings) (*Settings, error) {
	return s.Update(ctx, current, ResetToDefaults())
}

// Apply - update from a request made against a given version. The version must be the stored one
func (s *Service) Apply(ctx context.Context, pixelSetID int64, userID int64, req ChangeRequest) (*Settings, error) {
	current, err := s.LoadOrCreate(ctx, pixelSetID, userID)
	if err != nil {
		return nil, err
	}

	if current.Version != req.Version {
		return nil, errorwithstatus.MakeStaleSettingsVersionError(pixelSetID, userID, req.Version)
	}

	return s.Update(ctx, current, req.Mutations()...)
}
