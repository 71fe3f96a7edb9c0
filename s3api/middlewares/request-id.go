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

package middlewares

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/oklog/ulid/v2"

	"github.com/arcstor/arcgw/s3api/utils"
)

// AssignRequestID stamps every request with a unique identifier and
// records the arrival time and resolved client address. The identifier
// is a ULID so concurrent requests sort roughly by arrival when logs
// are merged.
func AssignRequestID(ctx *fiber.Ctx) error {
	now := time.Now()
	requestID := ulid.Make().String()

	idDigest := sha256.Sum256([]byte(requestID))

	utils.ContextKeyStartTime.Set(ctx, now)
	utils.ContextKeyRequestID.Set(ctx, requestID)
	utils.ContextKeyHostID.Set(ctx, hex.EncodeToString(idDigest[:]))
	utils.ContextKeyClientIP.Set(ctx, resolveClientIP(ctx))
	return nil
}

// SetAmzResponseHeaders publishes the request identifiers on the
// response. It runs for error responses too.
func SetAmzResponseHeaders(ctx *fiber.Ctx) {
	ctx.Set("x-amz-request-id", utils.ContextKeyRequestID.String(ctx))
	ctx.Set("x-amz-id-2", utils.ContextKeyHostID.String(ctx))
}

// resolveClientIP prefers proxy-supplied headers over the peer
// address: X-Real-IP first, then the first entry of X-Forwarded-For.
func resolveClientIP(ctx *fiber.Ctx) string {
	if ip := strings.TrimSpace(ctx.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if fwd := ctx.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	return ctx.IP()
}
