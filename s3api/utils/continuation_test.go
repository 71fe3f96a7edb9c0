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
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"testing"
)

func hexSum(payload string) string {
	digest := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(digest[:])
}

func TestContinuationTokenRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		marker ContinuationMarker
	}{
		{name: "empty", marker: ContinuationMarker{}},
		{name: "key only", marker: ContinuationMarker{Key: "photos/2024/img-0001.jpg"}},
		{name: "key and directory", marker: ContinuationMarker{Key: "a/b/c", Directory: "a/b/"}},
		{name: "binary safe", marker: ContinuationMarker{Key: "k\x00\xff", Directory: "d-"}},
		{name: "separator in key", marker: ContinuationMarker{Key: "a-b-c", Directory: "-"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := EncodeContinuationToken(tt.marker)
			got, err := DecodeContinuationToken(token)
			if err != nil {
				t.Fatalf("DecodeContinuationToken() error = %v", err)
			}
			if got != tt.marker {
				t.Errorf("round trip = %+v, want %+v", got, tt.marker)
			}
		})
	}
}

func TestDecodeContinuationTokenTampered(t *testing.T) {
	token := EncodeContinuationToken(ContinuationMarker{Key: "photos/cat.jpg"})

	// flip one payload character without breaking the hex alphabet
	flip := byte('0')
	if token[0] == '0' {
		flip = '1'
	}
	tampered := string(flip) + token[1:]

	_, err := DecodeContinuationToken(tampered)
	if !errors.Is(err, ErrContinuationIntegrity) {
		t.Errorf("DecodeContinuationToken() error = %v, want ErrContinuationIntegrity", err)
	}
}

func TestDecodeContinuationTokenMalformed(t *testing.T) {
	valid := EncodeContinuationToken(ContinuationMarker{Key: "k"})
	payload, digest, _ := strings.Cut(valid, "-")

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "no separator", token: payload},
		{name: "missing digest", token: payload + "-"},
		{name: "short digest", token: payload + "-abcdef"},
		{name: "non hex digest", token: payload + "-" + strings.Repeat("zz", 32)},
		{name: "garbage", token: "not-a-token"},
		{name: "digest only", token: "-" + digest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeContinuationToken(tt.token)
			if !errors.Is(err, ErrContinuationMalformed) {
				t.Errorf("DecodeContinuationToken(%q) error = %v, want ErrContinuationMalformed",
					tt.token, err)
			}
		})
	}
}

func TestDecodeContinuationTokenShortPayload(t *testing.T) {
	// a resealed 2 byte payload is structurally too short to hold the
	// length prefix even though its digest matches
	short := "abcd"
	token := short + "-" + hexSum(short)

	_, err := DecodeContinuationToken(token)
	if !errors.Is(err, ErrContinuationMalformed) {
		t.Errorf("DecodeContinuationToken() error = %v, want ErrContinuationMalformed", err)
	}
}

func TestDecodeContinuationTokenLengthOverrun(t *testing.T) {
	// length prefix claims more key bytes than the payload carries
	payload := "00000010" + "6162" // len 16, only "ab" present
	token := payload + "-" + hexSum(payload)

	_, err := DecodeContinuationToken(token)
	if !errors.Is(err, ErrContinuationMalformed) {
		t.Errorf("DecodeContinuationToken() error = %v, want ErrContinuationMalformed", err)
	}
}
