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
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

func TestHostStyleParser(t *testing.T) {
	tests := []struct {
		name    string
		domains []string
		host    string
		path    string
		want    string
	}{
		{
			name:    "bucket extracted",
			domains: []string{"s3.example.com"},
			host:    "my-bucket.s3.example.com",
			path:    "/my-key",
			want:    "/my-bucket/my-key",
		},
		{
			name:    "bucket with root path",
			domains: []string{"s3.example.com"},
			host:    "my-bucket.s3.example.com",
			path:    "/",
			want:    "/my-bucket/",
		},
		{
			name:    "bare suffix stays path style",
			domains: []string{"s3.example.com"},
			host:    "s3.example.com",
			path:    "/my-bucket/my-key",
			want:    "/my-bucket/my-key",
		},
		{
			name:    "unrelated host untouched",
			domains: []string{"s3.example.com"},
			host:    "storage.other.net",
			path:    "/my-bucket/my-key",
			want:    "/my-bucket/my-key",
		},
		{
			name:    "port stripped",
			domains: []string{"s3.example.com"},
			host:    "my-bucket.s3.example.com:7070",
			path:    "/my-key",
			want:    "/my-bucket/my-key",
		},
		{
			name:    "case insensitive",
			domains: []string{"S3.Example.COM"},
			host:    "My-Bucket.S3.EXAMPLE.com",
			path:    "/my-key",
			want:    "/my-bucket/my-key",
		},
		{
			name:    "trailing dot stripped",
			domains: []string{"s3.example.com"},
			host:    "my-bucket.s3.example.com.",
			path:    "/my-key",
			want:    "/my-bucket/my-key",
		},
		{
			name:    "longest suffix wins",
			domains: []string{"example.com", "s3.example.com"},
			host:    "my-bucket.s3.example.com",
			path:    "/my-key",
			want:    "/my-bucket/my-key",
		},
		{
			name:    "shorter suffix still served",
			domains: []string{"example.com", "s3.example.com"},
			host:    "my-bucket.example.com",
			path:    "/my-key",
			want:    "/my-bucket/my-key",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			fctx := &fasthttp.RequestCtx{}
			fctx.Request.SetRequestURI(tt.path)
			fctx.Request.Header.SetHost(tt.host)

			ctx := app.AcquireCtx(fctx)
			defer app.ReleaseCtx(ctx)

			if err := HostStyleParser(tt.domains)(ctx); err != nil {
				t.Fatalf("HostStyleParser() error = %v", err)
			}
			if got := ctx.Path(); got != tt.want {
				t.Errorf("path = %q, want %q", got, tt.want)
			}
		})
	}
}
