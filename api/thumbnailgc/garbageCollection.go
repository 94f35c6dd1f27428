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

package thumbnailgc

import (
	"context"
	"time"

	"github.com/pixlise/pixelrender/core/logger"
	"github.com/pixlise/pixelrender/core/timestamper"
)

// UnreadDeleter - a persisted thumbnail store that tracks when each item was last read
type UnreadDeleter interface {
	DeleteUnreadSince(ctx context.Context, oldestAllowedUnixSec int64) (int64, error)
}

// RunThumbnailGarbageCollector - blocks forever, every intervalSec deleting stored thumbnails that
// haven't been read in oldestAllowedSec
func RunThumbnailGarbageCollector(intervalSec uint32, oldestAllowedSec uint32, store UnreadDeleter, ts timestamper.ITimeStamper, log logger.ILogger) {
	for range time.Tick(time.Second * time.Duration(intervalSec)) {
		collectGarbage(store, oldestAllowedSec, ts, log)
	}
}

func collectGarbage(store UnreadDeleter, oldestAllowedSec uint32, ts timestamper.ITimeStamper, log logger.ILogger) {
	log.Infof("Thumbnail GC starting...")

	oldestAllowedUnixSec := ts.GetTimeNowSec() - int64(oldestAllowedSec)

	deleted, err := store.DeleteUnreadSince(context.TODO(), oldestAllowedUnixSec)
	if err != nil {
		log.Errorf("Thumbnail GC delete error: %v", err)
	} else {
		log.Infof("Thumbnail GC deleted %v items", deleted)
	}
}
