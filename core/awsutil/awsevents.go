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
	"net/url"

	"github.com/aws/aws-lambda-go/events"
	"github.com/pkg/errors"
)

// Lambdas get triggered by S3 object creation either directly or via an SQS queue that S3 posts to.
// Event flattens both into a list of bucket/key pairs

type eventType int

const (
	unknownEventType eventType = iota
	s3EventType
	sqsEventType
)

type Record struct {
	EventSource string
	EventName   string
	AWSRegion   string
	Bucket      string
	Key         string
}

type Event struct {
	Records []Record
}

type eventSourceProbe struct {
	Records []struct {
		EventSource    string `json:"eventSource"`
		EventSourceSQS string `json:"EventSource"`
	} `json:"Records"`
}

func getEventType(data []byte) (eventType, error) {
	var probe eventSourceProbe
	if err := json.Unmarshal(data, &probe); err != nil {
		return unknownEventType, errors.Wrap(err, "Failed to read event records")
	}

	if len(probe.Records) <= 0 {
		return unknownEventType, errors.New("Event contained no records")
	}

	source := probe.Records[0].EventSource
	if len(source) <= 0 {
		source = probe.Records[0].EventSourceSQS
	}

	switch source {
	case "aws:s3":
		return s3EventType, nil
	case "aws:sqs":
		return sqsEventType, nil
	}
	return unknownEventType, errors.Errorf("Unsupported event source: %q", source)
}

func s3Records(source string, s3Event *events.S3Event) ([]Record, error) {
	result := []Record{}
	for _, rec := range s3Event.Records {
		// Keys arrive URL encoded, spaces as +
		key, err := url.QueryUnescape(rec.S3.Object.Key)
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to decode S3 key %v", rec.S3.Object.Key)
		}

		if len(source) <= 0 {
			source = rec.EventSource
		}

		result = append(result, Record{
			EventSource: source,
			EventName:   rec.EventName,
			AWSRegion:   rec.AWSRegion,
			Bucket:      rec.S3.Bucket.Name,
			Key:         key,
		})
	}
	return result, nil
}

func (event *Event) UnmarshalJSON(data []byte) error {
	eType, err := getEventType(data)
	if err != nil {
		return err
	}

	event.Records = []Record{}

	switch eType {
	case s3EventType:
		s3Event := &events.S3Event{}
		if err := json.Unmarshal(data, s3Event); err != nil {
			return errors.Wrap(err, "Failed to decode S3 event")
		}
		recs, err := s3Records("", s3Event)
		if err != nil {
			return err
		}
		event.Records = recs

	case sqsEventType:
		sqsEvent := &events.SQSEvent{}
		if err := json.Unmarshal(data, sqsEvent); err != nil {
			return errors.Wrap(err, "Failed to decode SQS event")
		}

		for _, msg := range sqsEvent.Records {
			s3Event := &events.S3Event{}
			if err := json.Unmarshal([]byte(msg.Body), s3Event); err != nil {
				return errors.Wrap(err, "Failed to decode sqs body to an S3 event")
			}
			if len(s3Event.Records) == 0 {
				return errors.New("S3 Event Records is empty")
			}

			recs, err := s3Records(msg.EventSource, s3Event)
			if err != nil {
				return err
			}
			event.Records = append(event.Records, recs...)
		}
	}

	return nil
}
