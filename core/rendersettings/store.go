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
	"sync"

	"github.com/pixlise/pixelrender/api/dbCollections"
	"github.com/pixlise/pixelrender/core/errorwithstatus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store - persistence contract for settings. Save is optimistic: it only succeeds if the stored
// version is still expectedVersion (0 meaning nothing stored yet), otherwise StaleSettingsVersion
type Store interface {
	Load(ctx context.Context, pixelSetID int64, userID int64) (*Settings, bool, error)
	Save(ctx context.Context, settings *Settings, expectedVersion int64) error
}

// MemoryStore - settings held in memory, copies go in and out
type MemoryStore struct {
	mutex    sync.Mutex
	settings map[string]*Settings
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{settings: map[string]*Settings{}}
}

func (m *MemoryStore) Load(ctx context.Context, pixelSetID int64, userID int64) (*Settings, bool, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	s, ok := m.settings[MakeID(pixelSetID, userID)]
	if !ok {
		return nil, false, nil
	}
	return s.Clone(), true, nil
}

func (m *MemoryStore) Save(ctx context.Context, settings *Settings, expectedVersion int64) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	id := MakeID(settings.PixelSetID, settings.UserID)
	storedVersion := int64(0)
	if existing, ok := m.settings[id]; ok {
		storedVersion = existing.Version
	}

	if storedVersion != expectedVersion {
		return errorwithstatus.MakeStaleSettingsVersionError(settings.PixelSetID, settings.UserID, expectedVersion)
	}

	m.settings[id] = settings.Clone()
	return nil
}

// MongoStore - settings in the renderingSettings collection, _id is MakeID(pixel set, user)
type MongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{coll: db.Collection(dbCollections.RenderingSettingsName)}
}

func (m *MongoStore) Load(ctx context.Context, pixelSetID int64, userID int64) (*Settings, bool, error) {
	result := m.coll.FindOne(ctx, bson.M{"_id": MakeID(pixelSetID, userID)}, options.FindOne())
	if result.Err() != nil {
		if result.Err() == mongo.ErrNoDocuments {
			return nil, false, nil
		}
		return nil, false, result.Err()
	}

	s := &Settings{}
	if err := result.Decode(s); err != nil {
		return nil, false, err
	}
	return s, true, nil
}

func (m *MongoStore) Save(ctx context.Context, settings *Settings, expectedVersion int64) error {
	settings.ID = MakeID(settings.PixelSetID, settings.UserID)

	if expectedVersion == 0 {
		// Creating, if someone beat us to it the _id clashes
		_, err := m.coll.InsertOne(ctx, settings)
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return errorwithstatus.MakeStaleSettingsVersionError(settings.PixelSetID, settings.UserID, expectedVersion)
			}
			return err
		}
		return nil
	}

	filter := bson.D{{Key: "_id", Value: settings.ID}, {Key: "version", Value: expectedVersion}}
	result, err := m.coll.ReplaceOne(ctx, filter, settings, options.Replace())
	if err != nil {
		return err
	}
	if result.MatchedCount != 1 {
		return errorwithstatus.MakeStaleSettingsVersionError(settings.PixelSetID, settings.UserID, expectedVersion)
	}
	return nil
}
