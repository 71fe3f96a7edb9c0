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
	"errors"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/arcstor/arcgw/s3api/utils"
	"github.com/arcstor/arcgw/s3err"
)

func TestNormalizeURI(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		wantRaw  string
		wantPath string
		wantErr  bool
	}{
		{
			name:     "plain path",
			uri:      "/my-bucket/my-key",
			wantRaw:  "/my-bucket/my-key",
			wantPath: "/my-bucket/my-key",
		},
		{
			name:     "encoded space",
			uri:      "/my-bucket/my%20key",
			wantRaw:  "/my-bucket/my%20key",
			wantPath: "/my-bucket/my key",
		},
		{
			name:     "encoded slash kept encoded in raw",
			uri:      "/my-bucket/a%2Fb",
			wantRaw:  "/my-bucket/a%2Fb",
			wantPath: "/my-bucket/a/b",
		},
		{
			name:    "broken escape",
			uri:     "/my-bucket/a%zzb",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New(fiber.Config{UnescapePath: false})
			fctx := &fasthttp.RequestCtx{}
			fctx.Request.SetRequestURI(tt.uri)

			ctx := app.AcquireCtx(fctx)
			defer app.ReleaseCtx(ctx)

			err := NormalizeURI(ctx)
			if tt.wantErr {
				if !errors.Is(err, s3err.GetAPIError(s3err.ErrInvalidURI)) {
					t.Fatalf("NormalizeURI() error = %v, want InvalidURI", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizeURI() error = %v", err)
			}
			if raw := utils.ContextKeyRawPath.String(ctx); raw != tt.wantRaw {
				t.Errorf("raw path = %q, want %q", raw, tt.wantRaw)
			}
			if got := ctx.Path(); got != tt.wantPath {
				t.Errorf("path = %q, want %q", got, tt.wantPath)
			}
		})
	}
}

func TestNormalizeCompatibility(t *testing.T) {
	tests := []struct {
		name         string
		uri          string
		contentType  string
		wantType     string
		wantOriginal string
	}{
		{
			name:         "multi delete forced to xml",
			uri:          "/my-bucket?delete",
			contentType:  "application/octet-stream",
			wantType:     fiber.MIMEApplicationXML,
			wantOriginal: "application/octet-stream",
		},
		{
			name:         "complete multipart forced to xml",
			uri:          "/my-bucket/my-key?uploadId=abc",
			contentType:  "",
			wantType:     fiber.MIMEApplicationXML,
			wantOriginal: "",
		},
		{
			name:         "initiate multipart default",
			uri:          "/my-bucket/my-key?uploads",
			contentType:  "",
			wantType:     "binary/octet-stream",
			wantOriginal: "",
		},
		{
			name:         "initiate multipart declared type kept",
			uri:          "/my-bucket/my-key?uploads",
			contentType:  "image/jpeg",
			wantType:     "image/jpeg",
			wantOriginal: "image/jpeg",
		},
		{
			name:         "plain request untouched",
			uri:          "/my-bucket/my-key",
			contentType:  "text/plain",
			wantType:     "text/plain",
			wantOriginal: "text/plain",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			fctx := &fasthttp.RequestCtx{}
			fctx.Request.SetRequestURI(tt.uri)
			if tt.contentType != "" {
				fctx.Request.Header.SetContentType(tt.contentType)
			}

			ctx := app.AcquireCtx(fctx)
			defer app.ReleaseCtx(ctx)

			if err := NormalizeCompatibility(ctx); err != nil {
				t.Fatalf("NormalizeCompatibility() error = %v", err)
			}
			if got := ctx.Get(fiber.HeaderContentType); got != tt.wantType {
				t.Errorf("content type = %q, want %q", got, tt.wantType)
			}
			if got := utils.ContextKeyOriginalContentType.String(ctx); got != tt.wantOriginal {
				t.Errorf("original content type = %q, want %q", got, tt.wantOriginal)
			}
		})
	}
}
