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
	"net/url"

	"github.com/gofiber/fiber/v2"

	"github.com/arcstor/arcgw/s3api/utils"
	"github.com/arcstor/arcgw/s3err"
)

// NormalizeURI captures the literal request path for signature
// canonicalization, then percent-decodes it for routing. Signature
// verification must see the exact bytes the client signed, while the
// route table and backends work on decoded bucket and object names.
func NormalizeURI(ctx *fiber.Ctx) error {
	rawPath := string(ctx.Request().URI().PathOriginal())
	if rawPath == "" {
		rawPath = "/"
	}
	utils.ContextKeyRawPath.Set(ctx, rawPath)

	decoded, err := url.PathUnescape(rawPath)
	if err != nil {
		return s3err.GetAPIError(s3err.ErrInvalidURI)
	}
	ctx.Path(decoded)
	return nil
}
