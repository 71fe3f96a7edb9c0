// Copyright 2024 Arcstor
// This file is licensed under the Apache License, Version 2.0
// (the "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package controllers

import (
	"encoding/xml"

	"github.com/arcstor/arcgw/s3err"
	"github.com/arcstor/arcgw/s3response"
)

const (
	tagLimitBucket = 50
	tagLimitObject = 10

	maxTagKeyLen   = 128
	maxTagValueLen = 256
)

// parseTagging decodes and validates a tagging request body into a
// key/value map.
func parseTagging(body []byte, limit int) (map[string]string, error) {
	var tagging s3response.Tagging
	if err := xml.Unmarshal(body, &tagging); err != nil {
		return nil, s3err.GetAPIError(s3err.ErrMalformedXML)
	}

	if len(tagging.TagSet.Tags) > limit {
		return nil, s3err.GetAPIError(s3err.ErrInvalidRequest)
	}

	tags := make(map[string]string, len(tagging.TagSet.Tags))
	for _, tag := range tagging.TagSet.Tags {
		if tag.Key == "" || len(tag.Key) > maxTagKeyLen || len(tag.Value) > maxTagValueLen {
			return nil, s3err.GetAPIError(s3err.ErrInvalidRequest)
		}
		if _, exists := tags[tag.Key]; exists {
			return nil, s3err.GetAPIError(s3err.ErrInvalidRequest)
		}
		tags[tag.Key] = tag.Value
	}

	return tags, nil
}

func tagsToResponse(tags map[string]string) s3response.Tagging {
	resp := s3response.Tagging{}
	for key, value := range tags {
		resp.TagSet.Tags = append(resp.TagSet.Tags, s3response.Tag{
			Key:   key,
			Value: value,
		})
	}
	return resp
}
