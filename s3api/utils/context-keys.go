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
	"github.com/gofiber/fiber/v2"
)

// ContextKey names an annotation on the per-request context. The
// annotation bag is the only channel pipeline stages share state
// through; it is owned by the single in-flight request.
type ContextKey string

const (
	ContextKeyRegion        ContextKey = "region"
	ContextKeyStartTime     ContextKey = "start-time"
	ContextKeyIsRoot        ContextKey = "is-root"
	ContextKeyRootAccessKey ContextKey = "root-access-key"
	ContextKeyAccount       ContextKey = "account"
	ContextKeyAuthenticated ContextKey = "authenticated"
	ContextKeyAuthData      ContextKey = "auth-data"
	ContextKeyRequestID     ContextKey = "request-id"
	ContextKeyHostID        ContextKey = "host-id"
	ContextKeyClientIP      ContextKey = "client-ip"
	ContextKeySkip          ContextKey = "skip"

	// ContextKeyRawPath holds the literal request path as the client
	// sent it, captured before any virtual-host rewriting. SigV4
	// canonicalization must use this path, not the normalized one.
	ContextKeyRawPath ContextKey = "raw-path"

	// ContextKeyOriginalContentType preserves the Content-Type the
	// client actually declared before compatibility rewriting.
	ContextKeyOriginalContentType ContextKey = "original-content-type"
)

func (ck ContextKey) Set(ctx *fiber.Ctx, val any) {
	ctx.Locals(string(ck), val)
}

func (ck ContextKey) IsSet(ctx *fiber.Ctx) bool {
	return ctx.Locals(string(ck)) != nil
}

func (ck ContextKey) Get(ctx *fiber.Ctx) any {
	return ctx.Locals(string(ck))
}

func (ck ContextKey) Delete(ctx *fiber.Ctx) {
	ctx.Locals(string(ck), nil)
}

// String returns the string annotation value, or empty when unset or
// of a different type.
func (ck ContextKey) String(ctx *fiber.Ctx) string {
	s, _ := ctx.Locals(string(ck)).(string)
	return s
}
