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

package main

import (
	"context"
	"fmt"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/pixlise/pixelrender/core/awsutil"
	"github.com/pixlise/pixelrender/core/fileaccess"
	"github.com/pixlise/pixelrender/core/logger"
	"github.com/pixlise/pixelrender/core/mongoDBConnection"
	"github.com/pixlise/pixelrender/core/pixels"
	"github.com/pixlise/pixelrender/core/pyramid"
	"k8s.io/utils/env"
)

func handler(ctx context.Context, event awsutil.Event) error {
	stdLog := &logger.StdOutLogger{}
	stdLog.SetLogLevel(logger.LogInfo)

	sess, err := awsutil.GetSession()
	if err != nil {
		return err
	}
	s3svc, err := awsutil.GetS3(sess)
	if err != nil {
		return err
	}

	mongoClient, err := mongoDBConnection.Connect(sess, env.GetString("MONGO_SECRET", ""), env.GetString("MONGO_CA_FILE", "./rds-combined-ca-bundle.pem"), stdLog)
	if err != nil {
		return err
	}
	defer mongoClient.Disconnect(context.Background())

	dbName := mongoDBConnection.GetDatabaseName(env.GetString("DATABASE_NAME", "pixelrender"), env.GetString("ENVIRONMENT_NAME", "local"))

	concurrency, err := env.GetInt("PYRAMID_CONCURRENCY", 4)
	if err != nil {
		return err
	}
	sizeThreshold, err := env.GetInt("PYRAMID_SIZE_THRESHOLD", 3000)
	if err != nil {
		return err
	}
	tileSize, err := env.GetInt("PYRAMID_TILE_SIZE", 256)
	if err != nil {
		return err
	}

	descs := pixels.NewMongoDescriptionStore(mongoClient.Database(dbName))
	b := &builder{
		fs:          fileaccess.MakeS3Access(s3svc),
		planesRoot:  env.GetString("PLANES_ROOT", "planes"),
		descs:       descs,
		resolver:    pyramid.NewResolver(descs, sizeThreshold, pyramid.PollOptions{}, stdLog),
		tileSize:    tileSize,
		concurrency: concurrency,
		log:         stdLog,
	}

	errCount := 0
	for _, record := range event.Records {
		if _, err := b.processUpload(ctx, record.Bucket, record.Key); err != nil {
			// Don't stop here!
			stdLog.Errorf("Processing FAILED for s3://%v/%v. Error: %v.", record.Bucket, record.Key, err)
			errCount++
		}
	}

	if errCount > 0 {
		return fmt.Errorf("pyramid builder failed for %v paths", errCount)
	}
	return nil
}

func main() {
	lambda.Start(handler)
}
