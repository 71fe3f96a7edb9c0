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

package utils

import (
	"strings"
	"testing"
)

func TestIsValidBucketName(t *testing.T) {
	tests := []struct {
		name   string
		bucket string
		want   bool
	}{
		{name: "simple", bucket: "my-bucket", want: true},
		{name: "with dots", bucket: "my.bucket.logs", want: true},
		{name: "digits", bucket: "bucket01", want: true},
		{name: "min length", bucket: "abc", want: true},
		{name: "max length", bucket: strings.Repeat("a", 63), want: true},
		{name: "too short", bucket: "ab", want: false},
		{name: "too long", bucket: strings.Repeat("a", 64), want: false},
		{name: "empty", bucket: "", want: false},
		{name: "uppercase", bucket: "My-Bucket", want: false},
		{name: "underscore", bucket: "my_bucket", want: false},
		{name: "leading hyphen", bucket: "-bucket", want: false},
		{name: "trailing hyphen", bucket: "bucket-", want: false},
		{name: "leading dot", bucket: ".bucket", want: false},
		{name: "ipv4 shaped", bucket: "192.168.5.4", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidBucketName(tt.bucket); got != tt.want {
				t.Errorf("IsValidBucketName(%q) = %v, want %v", tt.bucket, got, tt.want)
			}
		})
	}
}

func TestParseUint(t *testing.T) {
	tests := []struct {
		name    string
		str     string
		want    int32
		wantErr bool
	}{
		{name: "empty defaults", str: "", want: 1000},
		{name: "zero", str: "0", want: 0},
		{name: "small", str: "25", want: 25},
		{name: "negative", str: "-1", wantErr: true},
		{name: "not a number", str: "abc", wantErr: true},
		{name: "overflow", str: "99999999999999", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseUint(tt.str)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseUint(%q) error = %v, wantErr %v", tt.str, err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("ParseUint(%q) = %v, want %v", tt.str, got, tt.want)
			}
		})
	}
}
