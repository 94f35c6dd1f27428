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

package services

import (
	"log"
	"path/filepath"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/pixlise/pixelrender/api/config"
	"github.com/pixlise/pixelrender/api/dbCollections"
	"github.com/pixlise/pixelrender/api/thumbnailgc"
	"github.com/pixlise/pixelrender/core/awsutil"
	"github.com/pixlise/pixelrender/core/fileaccess"
	"github.com/pixlise/pixelrender/core/logger"
	"github.com/pixlise/pixelrender/core/mongoDBConnection"
	"github.com/pixlise/pixelrender/core/pixels"
	"github.com/pixlise/pixelrender/core/pyramid"
	"github.com/pixlise/pixelrender/core/renderer"
	"github.com/pixlise/pixelrender/core/rendersettings"
	"github.com/pixlise/pixelrender/core/thumbnail"
	"github.com/pixlise/pixelrender/core/timestamper"
	"go.mongodb.org/mongo-driver/mongo"
)

// NOTE: these 2 vars are set during compilation (see Makefile)
var ApiVersion string
var GitHash string

// APIServices contains any services that HTTP handlers would want to use. Instead of globals we pass
// this around, which also lets unit tests swap in memory implementations
type APIServices struct {
	// Configuration read in on startup
	Config config.RenderConfig

	// Default logger
	Log logger.ILogger

	// Timestamp retriever - so can be mocked for unit tests
	TimeStamper timestamper.ITimeStamper

	// Where raw planes (and file-stored thumbnails) live
	FS fileaccess.FileAccess

	// nil when running without mongo (tests)
	MongoDB *mongo.Database

	Descriptions pixels.DescriptionStore
	Settings     *rendersettings.Service
	Resolver     *pyramid.Resolver
	Renderer     *renderer.Renderer
	Thumbnails   *thumbnail.Cache

	// Set if thumbnails are persisted, used for age based GC
	ThumbnailGCStore thumbnailgc.UnreadDeleter
}

// Stores - the persistence pieces MakeAPIServices wires together
type Stores struct {
	Descriptions pixels.DescriptionStore
	Settings     rendersettings.Store
	Thumbnails   thumbnail.Store
}

// BucketPath - bucket name, or a directory under LocalStorageRoot when running on local files
func BucketPath(cfg config.RenderConfig, bucket string) string {
	if len(cfg.LocalStorageRoot) > 0 {
		return filepath.Join(cfg.LocalStorageRoot, bucket)
	}
	return bucket
}

// PlaneSource - raw planes for a pixel set, read through fs
func PlaneSource(cfg config.RenderConfig, fs fileaccess.FileAccess) thumbnail.PlaneSourceFunc {
	bucket := BucketPath(cfg, cfg.PlanesBucket)
	return func(desc *pixels.Description) pixels.PlaneSource {
		return pixels.NewFilePlaneSource(fs, bucket, cfg.PlanesRoot, desc)
	}
}

// MakeAPIServices - wires up the rendering components from already created stores
func MakeAPIServices(cfg config.RenderConfig, iLog logger.ILogger, ts timestamper.ITimeStamper, fs fileaccess.FileAccess, stores Stores) APIServices {
	settings := rendersettings.NewService(stores.Settings, stores.Descriptions, ts, iLog)
	resolver := pyramid.NewResolver(
		stores.Descriptions,
		cfg.PyramidSizeThreshold,
		pyramid.PollOptions{
			MaxAttempts: cfg.PyramidPollMaxAttempts,
			Interval:    time.Duration(cfg.PyramidPollIntervalMs) * time.Millisecond,
		},
		iLog,
	)
	rend := renderer.NewRenderer(iLog, cfg.RenderWorkers)
	rend.SetDefaultTileSize(cfg.PyramidTileSize)

	cache := thumbnail.NewCache(
		settings,
		stores.Descriptions,
		PlaneSource(cfg, fs),
		resolver,
		rend,
		stores.Thumbnails,
		thumbnail.Options{BudgetBytes: cfg.CacheBudgetBytes, DefaultLongestSide: cfg.DefaultThumbnailSize, MaxSide: cfg.MaxThumbnailSize},
		iLog,
	)

	return APIServices{
		Config:       cfg,
		Log:          iLog,
		TimeStamper:  ts,
		FS:           fs,
		Descriptions: stores.Descriptions,
		Settings:     settings,
		Resolver:     resolver,
		Renderer:     rend,
		Thumbnails:   cache,
	}
}

// InitAPIServices sets up a new APIServices instance talking to AWS & mongo
func InitAPIServices(cfg config.RenderConfig) APIServices {
	logLevel, err := cfg.Level()
	if err != nil {
		log.Fatalf("%v", err)
	}

	ourLogger := &logger.StdOutLogger{}
	ourLogger.SetLogLevel(logLevel)

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.SentryEndpoint,
		Environment: cfg.EnvironmentName,
		Release:     ApiVersion,
	}); err != nil {
		ourLogger.Errorf("Sentry initialization failed: %v", err)
	}

	// Get a session for the bucket region
	sess, err := awsutil.GetSession()
	if err != nil {
		log.Fatalf("Failed to create AWS session. Error: %v", err)
	}

	var fs fileaccess.FileAccess
	if len(cfg.LocalStorageRoot) > 0 {
		ourLogger.Infof("Using local file storage at: %v", cfg.LocalStorageRoot)
		fs = &fileaccess.FSAccess{}
	} else {
		s3svc, err := awsutil.GetS3(sess)
		if err != nil {
			log.Fatalf("Failed to create AWS S3 service. Error: %v", err)
		}
		fs = fileaccess.MakeS3Access(s3svc)
	}

	mongoClient, err := mongoDBConnection.Connect(sess, cfg.MongoSecret, cfg.MongoCAFilePath, ourLogger)
	if err != nil {
		ourLogger.Errorf("Failed to connect to mongo: %v", err)
		log.Fatalf("%v", err)
	}

	db := mongoClient.Database(mongoDBConnection.GetDatabaseName(cfg.DatabaseName, cfg.EnvironmentName))
	if err := dbCollections.InitCollections(db, ourLogger); err != nil {
		log.Fatalf("Failed to initialise collections: %v", err)
	}

	ts := &timestamper.UnixTimeNowStamper{}

	stores := Stores{
		Descriptions: pixels.NewMongoDescriptionStore(db),
		Settings:     rendersettings.NewMongoStore(db),
	}

	var gcStore thumbnailgc.UnreadDeleter
	switch cfg.ThumbnailStore {
	case "mongo":
		mongoThumbs := thumbnail.NewMongoStore(db, int64(cfg.MaxUnreadThumbnailAgeSec), ts, ourLogger)
		stores.Thumbnails = mongoThumbs
		gcStore = mongoThumbs
	case "file":
		fileThumbs := thumbnail.NewFileStore(fs, BucketPath(cfg, cfg.ThumbnailBucket), cfg.ThumbnailRoot, ts, ourLogger)
		stores.Thumbnails = fileThumbs
		gcStore = fileThumbs
	}

	svcs := MakeAPIServices(cfg, ourLogger, ts, fs, stores)
	svcs.MongoDB = db
	svcs.ThumbnailGCStore = gcStore
	return svcs
}
