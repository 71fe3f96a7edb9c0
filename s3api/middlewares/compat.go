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
	"github.com/gofiber/fiber/v2"

	"github.com/arcstor/arcgw/s3api/utils"
)

// NormalizeCompatibility smooths over client quirks before dispatch.
// Several SDK generations omit or mangle the Content-Type on XML
// subresource requests, which breaks body parsers downstream. The
// declared value is preserved in the annotation bag first because
// legacy signature verification covers the original header.
func NormalizeCompatibility(ctx *fiber.Ctx) error {
	utils.ContextKeyOriginalContentType.Set(ctx, ctx.Get(fiber.HeaderContentType))

	args := ctx.Request().URI().QueryArgs()
	switch {
	case args.Has("delete"), args.Has("uploadId"):
		ctx.Request().Header.SetContentType(fiber.MIMEApplicationXML)
	case args.Has("uploads"):
		// initiate-multipart advertises the eventual object type in
		// this header; clients that omit it get the protocol default
		if ctx.Get(fiber.HeaderContentType) == "" {
			ctx.Request().Header.SetContentType("binary/octet-stream")
		}
	}
	return nil
}
