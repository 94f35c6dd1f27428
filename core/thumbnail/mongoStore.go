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

package thumbnail

import (
	"context"

	"github.com/pixlise/pixelrender/api/dbCollections"
	"github.com/pixlise/pixelrender/core/bitmap"
	"github.com/pixlise/pixelrender/core/logger"
	"github.com/pixlise/pixelrender/core/timestamper"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type storedThumbnail struct {
	ID                  string `bson:"_id,omitempty"`
	PixelSetID          int64
	UserID              int64
	Version             int64
	Width               int
	Height              int
	Data                []byte
	DataSize            int
	MemoTimeUnixSec     int64
	LastReadTimeUnixSec int64
}

// MongoStore - thumbnails in the thumbnails collection, _id is Key.String(). Reads refresh the last
// read time, entries unread for longer than maxUnreadAgeSec are deleted when found
type MongoStore struct {
	coll            *mongo.Collection
	maxUnreadAgeSec int64
	timeStamper     timestamper.ITimeStamper
	log             logger.ILogger
}

func NewMongoStore(db *mongo.Database, maxUnreadAgeSec int64, ts timestamper.ITimeStamper, log logger.ILogger) *MongoStore {
	return &MongoStore{
		coll:            db.Collection(dbCollections.ThumbnailsName),
		maxUnreadAgeSec: maxUnreadAgeSec,
		timeStamper:     ts,
		log:             log,
	}
}

func (s *MongoStore) Get(ctx context.Context, key Key) (*bitmap.Bitmap, bool, error) {
	id := key.String()
	filter := bson.M{"_id": id}
	result := s.coll.FindOne(ctx, filter, options.FindOne())
	if result.Err() != nil {
		if result.Err() == mongo.ErrNoDocuments {
			return nil, false, nil
		}
		return nil, false, result.Err()
	}

	item := storedThumbnail{}
	if err := result.Decode(&item); err != nil {
		return nil, false, err
	}

	now := s.timeStamper.GetTimeNowSec()

	if s.maxUnreadAgeSec > 0 && item.LastReadTimeUnixSec < now-s.maxUnreadAgeSec {
		s.log.Infof("Thumbnail %v hasn't been read in %v sec. Deleting.", id, now-item.LastReadTimeUnixSec)

		if _, err := s.coll.DeleteOne(ctx, filter, options.Delete()); err != nil {
			// Don't error out on this, but do notify
			s.log.Errorf("Failed to delete outdated thumbnail: %v. Error: %v", id, err)
		}
		return nil, false, nil
	}

	_, bmp, _, err := DecodeEntry(item.Data)
	if err != nil {
		return nil, false, err
	}

	if now != item.LastReadTimeUnixSec {
		update := bson.D{{Key: "$set", Value: bson.D{{Key: "lastreadtimeunixsec", Value: now}}}}
		if _, err := s.coll.UpdateByID(ctx, id, update, options.Update()); err != nil {
			s.log.Errorf("Failed to update last read time stamp for thumbnail: %v. Error: %v", id, err)
		}
	}

	return bmp, true, nil
}

func (s *MongoStore) Put(ctx context.Context, key Key, bmp *bitmap.Bitmap) error {
	now := s.timeStamper.GetTimeNowSec()
	data := EncodeEntry(key, bmp, now)

	id := key.String()
	item := storedThumbnail{
		PixelSetID:          key.PixelSetID,
		UserID:              key.UserID,
		Version:             key.Version,
		Width:               key.Width,
		Height:              key.Height,
		Data:                data,
		DataSize:            len(data),
		MemoTimeUnixSec:     now,
		LastReadTimeUnixSec: now,
	}

	result, err := s.coll.UpdateByID(ctx, id, bson.D{{Key: "$set", Value: item}}, options.Update().SetUpsert(true))
	if err != nil {
		return err
	}

	if result.UpsertedCount != 1 && result.MatchedCount != 1 {
		s.log.Errorf("Thumbnail write for: %v got unexpected DB write result: %+v", id, result)
	}

	// Older versions of this user's settings can no longer be requested
	filter := bson.M{"pixelsetid": key.PixelSetID, "userid": key.UserID, "version": bson.M{"$lt": key.Version}}
	delResult, err := s.coll.DeleteMany(ctx, filter, options.Delete())
	if err != nil {
		s.log.Errorf("Failed to delete superseded thumbnails of pixel set %v user %v: %v", key.PixelSetID, key.UserID, err)
	} else if delResult.DeletedCount > 0 {
		s.log.Debugf("Deleted %v superseded thumbnails of pixel set %v user %v", delResult.DeletedCount, key.PixelSetID, key.UserID)
	}

	return nil
}

// DeleteUnreadSince - removes everything last read before oldestAllowedUnixSec
func (s *MongoStore) DeleteUnreadSince(ctx context.Context, oldestAllowedUnixSec int64) (int64, error) {
	filter := bson.M{"lastreadtimeunixsec": bson.M{"$lt": oldestAllowedUnixSec}}
	delResult, err := s.coll.DeleteMany(ctx, filter, options.Delete())
	if err != nil {
		return 0, err
	}
	return delResult.DeletedCount, nil
}
