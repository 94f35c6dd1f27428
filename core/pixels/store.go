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

package pixels

import (
	"context"
	"fmt"
	"sync"

	"github.com/pixlise/pixelrender/api/dbCollections"
	"github.com/pixlise/pixelrender/core/errorwithstatus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DescriptionStore - the engine's read/write contract with whatever holds pixel set metadata
type DescriptionStore interface {
	GetDescription(ctx context.Context, pixelSetID int64) (*Description, error)
	PutDescription(ctx context.Context, desc *Description) error
	SetChannelStats(ctx context.Context, pixelSetID int64, stats []ChannelStats) error
	SetPyramidStatus(ctx context.Context, pixelSetID int64, status PyramidStatus) error

	// PyramidStatus - as observed by readers, see Description.EffectiveStatus
	PyramidStatus(ctx context.Context, pixelSetID int64) (PyramidStatus, error)
}

func notFound(pixelSetID int64) error {
	return errorwithstatus.MakeNotFoundError(fmt.Sprintf("pixel set %v", pixelSetID))
}

// MemoryDescriptionStore - descriptions held in memory, copies go in and out
type MemoryDescriptionStore struct {
	mutex sync.RWMutex
	descs map[int64]*Description
}

func NewMemoryDescriptionStore() *MemoryDescriptionStore {
	return &MemoryDescriptionStore{descs: map[int64]*Description{}}
}

func (s *MemoryDescriptionStore) GetDescription(ctx context.Context, pixelSetID int64) (*Description, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	d, ok := s.descs[pixelSetID]
	if !ok {
		return nil, notFound(pixelSetID)
	}
	return d.Clone(), nil
}

func (s *MemoryDescriptionStore) PutDescription(ctx context.Context, desc *Description) error {
	if err := desc.Validate(); err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.descs[desc.ID] = desc.Clone()
	return nil
}

func (s *MemoryDescriptionStore) SetChannelStats(ctx context.Context, pixelSetID int64, stats []ChannelStats) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	d, ok := s.descs[pixelSetID]
	if !ok {
		return notFound(pixelSetID)
	}
	if len(stats) != len(d.Channels) {
		return fmt.Errorf("pixel set %v has %v channels, got stats for %v", pixelSetID, len(d.Channels), len(stats))
	}

	for c := range stats {
		st := stats[c]
		d.Channels[c].Stats = &st
	}
	return nil
}

func (s *MemoryDescriptionStore) SetPyramidStatus(ctx context.Context, pixelSetID int64, status PyramidStatus) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	d, ok := s.descs[pixelSetID]
	if !ok {
		return notFound(pixelSetID)
	}
	d.PyramidStatus = status
	return nil
}

func (s *MemoryDescriptionStore) PyramidStatus(ctx context.Context, pixelSetID int64) (PyramidStatus, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	d, ok := s.descs[pixelSetID]
	if !ok {
		return PyramidNone, notFound(pixelSetID)
	}
	return d.EffectiveStatus(), nil
}

// MongoDescriptionStore - descriptions in the pixelSets collection, _id is the pixel set id
type MongoDescriptionStore struct {
	coll *mongo.Collection
}

func NewMongoDescriptionStore(db *mongo.Database) *MongoDescriptionStore {
	return &MongoDescriptionStore{coll: db.Collection(dbCollections.PixelSetsName)}
}

func (s *MongoDescriptionStore) GetDescription(ctx context.Context, pixelSetID int64) (*Description, error) {
	result := s.coll.FindOne(ctx, bson.M{"_id": pixelSetID}, options.FindOne())
	if result.Err() != nil {
		if result.Err() == mongo.ErrNoDocuments {
			return nil, notFound(pixelSetID)
		}
		return nil, result.Err()
	}

	desc := &Description{}
	err := result.Decode(desc)
	if err != nil {
		return nil, err
	}
	return desc, nil
}

func (s *MongoDescriptionStore) PutDescription(ctx context.Context, desc *Description) error {
	if err := desc.Validate(); err != nil {
		return err
	}

	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": desc.ID}, desc, options.Replace().SetUpsert(true))
	return err
}

func (s *MongoDescriptionStore) SetChannelStats(ctx context.Context, pixelSetID int64, stats []ChannelStats) error {
	set := bson.D{}
	for c := range stats {
		set = append(set, bson.E{Key: fmt.Sprintf("channels.%v.stats", c), Value: stats[c]})
	}

	// Only matches if the channel count agrees with what we're writing
	filter := bson.D{{Key: "_id", Value: pixelSetID}, {Key: "channels", Value: bson.D{{Key: "$size", Value: len(stats)}}}}
	result, err := s.coll.UpdateOne(ctx, filter, bson.D{{Key: "$set", Value: set}})
	if err != nil {
		return err
	}
	if result.MatchedCount != 1 {
		return fmt.Errorf("pixel set %v not found with %v channels", pixelSetID, len(stats))
	}
	return nil
}

func (s *MongoDescriptionStore) SetPyramidStatus(ctx context.Context, pixelSetID int64, status PyramidStatus) error {
	result, err := s.coll.UpdateByID(ctx, pixelSetID, bson.D{{Key: "$set", Value: bson.D{{Key: "pyramidstatus", Value: status}}}})
	if err != nil {
		return err
	}
	if result.MatchedCount != 1 {
		return notFound(pixelSetID)
	}
	return nil
}

func (s *MongoDescriptionStore) PyramidStatus(ctx context.Context, pixelSetID int64) (PyramidStatus, error) {
	desc, err := s.GetDescription(ctx, pixelSetID)
	if err != nil {
		return PyramidNone, err
	}
	return desc.EffectiveStatus(), nil
}
