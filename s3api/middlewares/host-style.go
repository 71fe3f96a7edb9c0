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
	"sort"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// HostStyleParser rewrites virtual-host addressing into path style so
// the route table only ever sees /bucket/object paths. The configured
// domain suffixes are matched case-insensitively against the Host
// header with the port and any trailing dot stripped; when several
// suffixes match, the longest one wins so the extracted bucket name is
// never padded with subdomain labels. A host equal to a bare suffix is
// already path style and passes through untouched.
func HostStyleParser(virtualDomains []string) func(ctx *fiber.Ctx) error {
	suffixes := make([]string, len(virtualDomains))
	for i, d := range virtualDomains {
		suffixes[i] = strings.ToLower(strings.TrimSuffix(d, "."))
	}
	// longest first so the most specific suffix claims the host
	sort.Slice(suffixes, func(i, j int) bool {
		return len(suffixes[i]) > len(suffixes[j])
	})

	return func(ctx *fiber.Ctx) error {
		host := normalizeHost(string(ctx.Request().Header.Host()))

		for _, suffix := range suffixes {
			if suffix == "" || host == suffix {
				continue
			}
			bucket, found := strings.CutSuffix(host, "."+suffix)
			if !found || bucket == "" {
				continue
			}
			ctx.Path("/" + bucket + ctx.Path())
			return nil
		}
		return nil
	}
}

// normalizeHost lowercases the host and strips the port and the fully
// qualified trailing dot.
func normalizeHost(host string) string {
	host = strings.ToLower(host)
	if idx := strings.LastIndexByte(host, ':'); idx != -1 && !strings.Contains(host[idx:], "]") {
		host = host[:idx]
	}
	return strings.TrimSuffix(host, ".")
}
