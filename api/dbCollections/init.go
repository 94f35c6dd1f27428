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

package dbCollections

import (
	"context"
	"fmt"

	"github.com/pixlise/pixelrender/core/logger"
	"github.com/pixlise/pixelrender/core/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// InitCollections makes sure our collections exist and have the indexes the stores query by
func InitCollections(db *mongo.Database, iLog logger.ILogger) error {
	collectionsRequired := []string{
		PixelSetsName,
		RenderingSettingsName,
		ThumbnailsName,
	}

	ctx := context.TODO()
	existingCollections, err := db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return fmt.Errorf("failed to list collections: %v", err)
	}

	for _, collName := range collectionsRequired {
		if !utils.ItemInSlice(collName, existingCollections) {
			iLog.Infof("Mongo collection %v doesn't exist, pre-creating it...", collName)
			err = db.CreateCollection(ctx, collName)
			if err != nil {
				return fmt.Errorf("failed to create collection %v: %v", collName, err)
			}
		}
	}

	// Settings are looked up by (pixel set, user), thumbnails are collected by age and by owner
	indexes := map[string][]mongo.IndexModel{
		RenderingSettingsName: {
			{Keys: bson.D{{Key: "pixelsetid", Value: 1}, {Key: "userid", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		ThumbnailsName: {
			{Keys: bson.D{{Key: "lastreadtimeunixsec", Value: 1}}},
			{Keys: bson.D{{Key: "pixelsetid", Value: 1}, {Key: "userid", Value: 1}, {Key: "version", Value: 1}}},
		},
	}

	for _, collName := range utils.GetSortedMapKeys(indexes) {
		_, err = db.Collection(collName).Indexes().CreateMany(ctx, indexes[collName])
		if err != nil {
			return fmt.Errorf("failed to create indexes for %v: %v", collName, err)
		}
	}

	return nil
}
