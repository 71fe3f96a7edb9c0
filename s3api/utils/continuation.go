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
	"encoding/binary"
	"encoding/hex"
	"errors"
	"strings"
)

// ContinuationMarker is the opaque-token payload for paginated
// listings: the last key returned plus the directory scope the listing
// was walking when it stopped.
type ContinuationMarker struct {
	Key       string
	Directory string
}

var (
	// ErrContinuationMalformed reports a token that does not decode at
	// all (bad hex, truncated layout, missing digest).
	ErrContinuationMalformed = errors.New("malformed continuation token")
	// ErrContinuationIntegrity reports a well-formed token whose digest
	// does not match its payload.
	ErrContinuationIntegrity = errors.New("continuation token integrity check failed")
)

// EncodeContinuationToken serializes the marker into an opaque token.
// The payload is a length-prefixed binary layout, hex encoded, with a
// SHA-256 digest of the hex string appended so tampering is detected
// on decode:
//
//	payload = uint32(len(key)) | key | directory
//	token   = hex(payload) + "-" + hex(sha256(hex(payload)))
func EncodeContinuationToken(marker ContinuationMarker) string {
	buf := make([]byte, 4+len(marker.Key)+len(marker.Directory))
	binary.BigEndian.PutUint32(buf, uint32(len(marker.Key)))
	copy(buf[4:], marker.Key)
	copy(buf[4+len(marker.Key):], marker.Directory)

	payload := hex.EncodeToString(buf)
	digest := sha256.Sum256([]byte(payload))
	return payload + "-" + hex.EncodeToString(digest[:])
}

// DecodeContinuationToken reverses EncodeContinuationToken. Structural
// failures return ErrContinuationMalformed; a payload that decodes but
// fails its digest returns ErrContinuationIntegrity.
func DecodeContinuationToken(token string) (ContinuationMarker, error) {
	payload, digestHex, found := strings.Cut(token, "-")
	if !found || payload == "" || digestHex == "" {
		return ContinuationMarker{}, ErrContinuationMalformed
	}

	digest, err := hex.DecodeString(digestHex)
	if err != nil || len(digest) != sha256.Size {
		return ContinuationMarker{}, ErrContinuationMalformed
	}

	want := sha256.Sum256([]byte(payload))
	if want != [sha256.Size]byte(digest) {
		return ContinuationMarker{}, ErrContinuationIntegrity
	}

	buf, err := hex.DecodeString(payload)
	if err != nil {
		return ContinuationMarker{}, ErrContinuationMalformed
	}
	if len(buf) < 4 {
		return ContinuationMarker{}, ErrContinuationMalformed
	}

	keyLen := binary.BigEndian.Uint32(buf)
	if uint32(len(buf)-4) < keyLen {
		return ContinuationMarker{}, ErrContinuationMalformed
	}

	return ContinuationMarker{
		Key:       string(buf[4 : 4+keyLen]),
		Directory: string(buf[4+keyLen:]),
	}, nil
}
