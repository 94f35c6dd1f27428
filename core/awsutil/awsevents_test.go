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

package awsutil

import (
	"encoding/json"
	"fmt"
)

const s3Body = `{
    "Records": [
        {
            "eventVersion": "2.1",
            "eventSource": "aws:s3",
            "awsRegion": "us-east-1",
            "eventTime": "2024-03-11T09:12:41.118Z",
            "eventName": "ObjectCreated:Put",
            "s3": {
                "s3SchemaVersion": "1.0",
                "bucket": {
                    "name": "pixelrender-planes",
                    "arn": "arn:aws:s3:::pixelrender-planes"
                },
                "object": {
                    "key": "pixels/42/L2/z0-t0-c1.raw",
                    "size": 2097152
                }
            }
        }
    ]
}`

func Example_unmarshalS3Event() {
	var e Event
	err := json.Unmarshal([]byte(s3Body), &e)
	fmt.Printf("%v|%+v\n", err, e.Records)

	// Output:
	// <nil>|[{EventSource:aws:s3 EventName:ObjectCreated:Put AWSRegion:us-east-1 Bucket:pixelrender-planes Key:pixels/42/L2/z0-t0-c1.raw}]
}

func Example_unmarshalSQSEvent() {
	body, _ := json.Marshal(s3Body)
	sqs := `{"Records": [{"messageId": "m1", "eventSource": "aws:sqs", "awsRegion": "us-east-1", "body": ` + string(body) + `}]}`

	var e Event
	err := json.Unmarshal([]byte(sqs), &e)
	fmt.Printf("%v|%v|%v|%v\n", err, len(e.Records), e.Records[0].EventSource, e.Records[0].Key)

	// Output:
	// <nil>|1|aws:sqs|pixels/42/L2/z0-t0-c1.raw
}

func Example_unmarshalBadEvents() {
	var e Event
	fmt.Println(json.Unmarshal([]byte(`{"Records": []}`), &e))
	fmt.Println(json.Unmarshal([]byte(`{"Records": [{"eventSource": "aws:sns"}]}`), &e))
	fmt.Println(json.Unmarshal([]byte(`{"Records": [{"eventSource": "aws:sqs", "body": "not json"}]}`), &e))

	// Output:
	// Event contained no records
	// Unsupported event source: "aws:sns"
	// Failed to decode sqs body to an S3 event: invalid character 'o' in literal null (expecting 'u')
}
