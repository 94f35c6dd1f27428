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
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/pixlise/pixelrender/core/bitmap"
	"github.com/pixlise/pixelrender/core/fileaccess"
	"github.com/pixlise/pixelrender/core/logger"
	"github.com/pixlise/pixelrender/core/timestamper"
)

// Store - backing store so thumbnails survive restarts. Get returns false if there's nothing stored
// for the key
type Store interface {
	Get(ctx context.Context, key Key) (*bitmap.Bitmap, bool, error)
	Put(ctx context.Context, key Key, bmp *bitmap.Bitmap) error
}

// FileStore - one object per thumbnail under <root>/<pixel set>/<user>/. Storing a version deletes
// files of older versions for the same pixel set & user.
//
// Objects carry no last read time of their own, so the stamp inside each entry serves as one: Get
// rewrites an entry once its stamp is older than ReadStampRefreshSec
type FileStore struct {
	fs          fileaccess.FileAccess
	bucket      string
	root        string
	timeStamper timestamper.ITimeStamper
	log         logger.ILogger
}

// ReadStampRefreshSec - granularity of the last read time kept by FileStore
const ReadStampRefreshSec = 3600

func NewFileStore(fs fileaccess.FileAccess, bucket string, root string, ts timestamper.ITimeStamper, log logger.ILogger) *FileStore {
	return &FileStore{fs: fs, bucket: bucket, root: root, timeStamper: ts, log: log}
}

func (s *FileStore) ownerPrefix(pixelSetID int64, userID int64) string {
	return path.Join(s.root, strconv.FormatInt(pixelSetID, 10), url.PathEscape(strconv.FormatInt(userID, 10))) + "/"
}

func (s *FileStore) objectPath(key Key) string {
	return fmt.Sprintf("%vv%v_%vx%v.thumb", s.ownerPrefix(key.PixelSetID, key.UserID), key.Version, key.Width, key.Height)
}

// versionOf - version from a file name written by objectPath, -1 if it's not one of ours
func versionOf(objectPath string) int64 {
	name := path.Base(objectPath)
	if !strings.HasPrefix(name, "v") || !strings.HasSuffix(name, ".thumb") {
		return -1
	}

	verStr, _, ok := strings.Cut(name[1:], "_")
	if !ok {
		return -1
	}

	ver, err := strconv.ParseInt(verStr, 10, 64)
	if err != nil {
		return -1
	}
	return ver
}

func (s *FileStore) Get(ctx context.Context, key Key) (*bitmap.Bitmap, bool, error) {
	data, err := s.fs.ReadObject(s.bucket, s.objectPath(key))
	if err != nil {
		if s.fs.IsNotFoundError(err) {
			return nil, false, nil
		}
		return nil, false, err
	}

	storedKey, bmp, stamp, err := DecodeEntry(data)
	if err != nil {
		return nil, false, err
	}
	if storedKey != key {
		return nil, false, fmt.Errorf("thumbnail file %v contains %v", s.objectPath(key), storedKey)
	}

	if now := s.timeStamper.GetTimeNowSec(); stamp < now-ReadStampRefreshSec {
		if err := s.fs.WriteObject(s.bucket, s.objectPath(key), EncodeEntry(key, bmp, now)); err != nil {
			s.log.Errorf("Failed to update read time of thumbnail %v: %v", s.objectPath(key), err)
		}
	}
	return bmp, true, nil
}

// DeleteUnreadSince - removes every thumbnail last read (or written) before oldestAllowedUnixSec.
// Unreadable entries are deleted too
func (s *FileStore) DeleteUnreadSince(ctx context.Context, oldestAllowedUnixSec int64) (int64, error) {
	files, err := s.fs.ListObjects(s.bucket, strings.TrimSuffix(s.root, "/")+"/")
	if err != nil {
		return 0, err
	}

	deleted := int64(0)
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return deleted, err
		}
		if versionOf(f) < 0 {
			continue
		}

		data, err := s.fs.ReadObject(s.bucket, f)
		if err != nil {
			if !s.fs.IsNotFoundError(err) {
				s.log.Errorf("Failed to read thumbnail %v: %v", f, err)
			}
			continue
		}

		_, _, stamp, err := DecodeEntry(data)
		if err == nil && stamp >= oldestAllowedUnixSec {
			continue
		}

		if err := s.fs.DeleteObject(s.bucket, f); err != nil {
			s.log.Errorf("Failed to delete unread thumbnail %v: %v", f, err)
			continue
		}
		deleted++
	}
	return deleted, nil
}

func (s *FileStore) Put(ctx context.Context, key Key, bmp *bitmap.Bitmap) error {
	err := s.fs.WriteObject(s.bucket, s.objectPath(key), EncodeEntry(key, bmp, s.timeStamper.GetTimeNowSec()))
	if err != nil {
		return err
	}

	s.deleteSuperseded(key)
	return nil
}

// Older versions are unreachable once a newer one has been stored. Failing to delete them isn't an
// error for the Put
func (s *FileStore) deleteSuperseded(key Key) {
	files, err := s.fs.ListObjects(s.bucket, s.ownerPrefix(key.PixelSetID, key.UserID))
	if err != nil {
		s.log.Errorf("Failed to list thumbnails of pixel set %v user %v: %v", key.PixelSetID, key.UserID, err)
		return
	}

	for _, f := range files {
		ver := versionOf(f)
		if ver >= 0 && ver < key.Version {
			if err := s.fs.DeleteObject(s.bucket, f); err != nil {
				s.log.Errorf("Failed to delete superseded thumbnail %v: %v", f, err)
			} else {
				s.log.Debugf("Deleted superseded thumbnail %v", f)
			}
		}
	}
}
