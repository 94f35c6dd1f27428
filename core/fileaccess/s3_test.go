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

package fileaccess

import (
	"bytes"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/pixlise/pixelrender/core/awsutil"
)

func Example_s3ListingWithContinuation() {
	const bucket = "pixelrender-planes"
	const listPath = "pixels/42/"

	var mockS3 awsutil.MockS3Client
	defer mockS3.FinishTest()

	mockS3.ExpListObjectsV2Input = []s3.ListObjectsV2Input{
		{
			Bucket: aws.String(bucket), Prefix: aws.String(listPath),
		},
		{
			Bucket: aws.String(bucket), Prefix: aws.String(listPath), ContinuationToken: aws.String("cont-1"),
		},
	}
	mockS3.QueuedListObjectsV2Output = []*s3.ListObjectsV2Output{
		{
			IsTruncated:           aws.Bool(true),
			NextContinuationToken: aws.String("cont-1"),
			Contents: []*s3.Object{
				{Key: aws.String("pixels/42/L0/z0-t0-c0.raw")},
				{Key: aws.String("pixels/42/L0/")},
				{Key: aws.String("pixels/42/L1/z0-t0-c0.raw")},
			},
		},
		{
			IsTruncated: aws.Bool(false),
			Contents: []*s3.Object{
				{Key: aws.String("pixels/42/L2/z0-t0-c0.raw")},
			},
		},
	}

	fs := MakeS3Access(&mockS3)
	list, err := fs.ListObjects(bucket, listPath)
	fmt.Printf("%v, list: %v\n", err, list)

	// Output:
	// <nil>, list: [pixels/42/L0/z0-t0-c0.raw pixels/42/L1/z0-t0-c0.raw pixels/42/L2/z0-t0-c0.raw]
}

func Example_s3ReadWrite() {
	const bucket = "pixelrender-thumbnails"

	var mockS3 awsutil.MockS3Client
	defer mockS3.FinishTest()

	mockS3.ExpGetObjectInput = []s3.GetObjectInput{
		{Bucket: aws.String(bucket), Key: aws.String("thumbs/1.bin")},
		{Bucket: aws.String(bucket), Key: aws.String("thumbs/2.bin")},
	}
	mockS3.QueuedGetObjectOutput = []*s3.GetObjectOutput{
		{Body: io.NopCloser(bytes.NewReader([]byte{1, 2, 3}))},
		nil,
	}
	mockS3.ExpPutObjectInput = []s3.PutObjectInput{
		{Bucket: aws.String(bucket), Key: aws.String("thumbs/3.bin"), Body: bytes.NewReader([]byte{9, 8})},
	}
	mockS3.QueuedPutObjectOutput = []*s3.PutObjectOutput{{}}

	fs := MakeS3Access(&mockS3)

	data, err := fs.ReadObject(bucket, "thumbs/1.bin")
	fmt.Printf("%v|%v\n", data, err)

	_, err = fs.ReadObject(bucket, "thumbs/2.bin")
	fmt.Printf("not found: %v\n", fs.IsNotFoundError(err))

	fmt.Printf("write: %v\n", fs.WriteObject(bucket, "thumbs/3.bin", []byte{9, 8}))

	// Output:
	// [1 2 3]|<nil>
	// not found: true
	// write: <nil>
}

func Example_s3CopyObject() {
	const bucket = "pixelrender-planes"

	var mockS3 awsutil.MockS3Client
	defer mockS3.FinishTest()

	mockS3.ExpCopyObjectInput = []s3.CopyObjectInput{
		{Bucket: aws.String(bucket), Key: aws.String("pixels/42/L3/z0-t0-c1.raw"), CopySource: aws.String(bucket + "/pixels/42/L0/z0-t0-c1.raw")},
		{Bucket: aws.String("other"), Key: aws.String("copied.raw"), CopySource: aws.String(bucket + "/missing.raw")},
	}
	mockS3.QueuedCopyObjectOutput = []*s3.CopyObjectOutput{{}, nil}

	fs := MakeS3Access(&mockS3)
	fmt.Printf("copy: %v\n", fs.CopyObject(bucket, "pixels/42/L0/z0-t0-c1.raw", bucket, "pixels/42/L3/z0-t0-c1.raw"))
	fmt.Printf("failed: %v\n", fs.CopyObject(bucket, "missing.raw", "other", "copied.raw") != nil)

	// Output:
	// copy: <nil>
	// failed: true
}
