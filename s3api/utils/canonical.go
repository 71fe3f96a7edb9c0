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
	"sort"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

// BuildStringToSign builds the deterministic SigV4 signing input for
// the request and stores it on the descriptor:
//
//	CanonicalRequest = Method \n CanonicalURI \n CanonicalQueryString \n
//	                   CanonicalHeaders \n SignedHeaderNames \n PayloadHash
//	StringToSign     = Algorithm \n Timestamp \n CredentialScope \n
//	                   Hex(SHA256(CanonicalRequest))
//
// The canonical URI uses the literal path the client sent, captured
// before virtual-host rewriting, so the gateway signs the same bytes
// the client signed.
func BuildStringToSign(ctx *fiber.Ctx, auth *AuthData) string {
	rawPath := ContextKeyRawPath.String(ctx)
	if rawPath == "" {
		rawPath = ctx.Path()
	}

	payloadHash := ctx.Get("X-Amz-Content-Sha256")
	if payloadHash == "" || auth.Presigned {
		payloadHash = UnsignedPayload
	}

	canonicalReq := strings.Join([]string{
		ctx.Method(),
		CanonicalURI(rawPath),
		CanonicalQueryString(ctx.Request().URI().QueryArgs(), auth.Presigned),
		canonicalHeaders(ctx, auth.SignedHeaders),
		strings.Join(auth.SignedHeaders, ";"),
		payloadHash,
	}, "\n")

	reqHash := sha256.Sum256([]byte(canonicalReq))

	auth.StringToSign = strings.Join([]string{
		auth.Algorithm,
		auth.Timestamp.Format(iso8601Format),
		CredentialScope(auth),
		hex.EncodeToString(reqHash[:]),
	}, "\n")

	return auth.StringToSign
}

// CredentialScope formats the date/region/service/terminator scope
// tuple for the descriptor.
func CredentialScope(auth *AuthData) string {
	return strings.Join([]string{auth.Date, auth.Region, service, terminator}, "/")
}

// CanonicalURI encodes the request path per SigV4 rules: each segment
// is URI-encoded, literal slashes are preserved.
func CanonicalURI(path string) string {
	if path == "" {
		return "/"
	}

	segments := strings.Split(path, "/")
	for i, seg := range segments {
		segments[i] = uriEncode(seg, false)
	}
	return strings.Join(segments, "/")
}

// CanonicalQueryString sorts parameters by key in byte order,
// URI-encodes keys and values, and joins with '&'. Parameters without
// a value keep a trailing '='. For presigned requests the signature
// parameter itself is excluded.
func CanonicalQueryString(args *fasthttp.Args, presigned bool) string {
	var params []string
	args.VisitAll(func(key, value []byte) {
		if presigned && string(key) == "X-Amz-Signature" {
			return
		}
		params = append(params, uriEncode(string(key), true)+"="+uriEncode(string(value), true))
	})
	sort.Strings(params)
	return strings.Join(params, "&")
}

// canonicalHeaders serializes the signed headers as name:value pairs,
// lower-cased and whitespace-collapsed, in the exact order the client
// listed them. Re-sorting here would break verification for clients
// that signed an unsorted list.
func canonicalHeaders(ctx *fiber.Ctx, signedHdrs []string) string {
	var b strings.Builder
	for _, name := range signedHdrs {
		name = strings.ToLower(name)
		var value string
		if name == "host" {
			value = string(ctx.Request().Header.Host())
		} else {
			value = ctx.Get(name)
		}
		b.WriteString(name)
		b.WriteByte(':')
		b.WriteString(collapseSpace(strings.TrimSpace(value)))
		b.WriteByte('\n')
	}
	return b.String()
}

// collapseSpace folds runs of inner whitespace into single spaces.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

const upperhex = "0123456789ABCDEF"

// uriEncode percent-encodes per the SigV4 definition: unreserved
// characters (A-Z a-z 0-9 - . _ ~) stay literal, everything else is
// %XX with uppercase hex. Slashes stay literal in path segments'
// parent (encodeSlash=false handles segments which contain no slash).
func uriEncode(s string, encodeSlash bool) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9',
			c == '-', c == '.', c == '_', c == '~':
			b.WriteByte(c)
		case c == '/' && !encodeSlash:
			b.WriteByte(c)
		default:
			b.WriteByte('%')
			b.WriteByte(upperhex[c>>4])
			b.WriteByte(upperhex[c&0xf])
		}
	}
	return b.String()
}

// v2 subresources included in the canonicalized resource, in sorted
// order as the scheme requires.
var v2Subresources = []string{
	"acl", "delete", "location", "partNumber", "tagging", "uploadId", "uploads",
}

// BuildV2StringToSign builds the SigV2 signing input:
//
//	Method \n Content-MD5 \n Content-Type \n Date \n
//	CanonicalizedAmzHeaders CanonicalizedResource
func BuildV2StringToSign(ctx *fiber.Ctx, auth *AuthData) string {
	var b strings.Builder
	b.WriteString(ctx.Method())
	b.WriteByte('\n')
	b.WriteString(ctx.Get("Content-MD5"))
	b.WriteByte('\n')
	b.WriteString(ContextKeyOriginalContentType.String(ctx))
	b.WriteByte('\n')
	b.WriteString(ctx.Get("Date"))
	b.WriteByte('\n')
	b.WriteString(canonicalizedAmzHeaders(ctx))
	b.WriteString(canonicalizedResource(ctx))

	auth.StringToSign = b.String()
	return auth.StringToSign
}

func canonicalizedAmzHeaders(ctx *fiber.Ctx) string {
	var names []string
	headers := map[string]string{}
	ctx.Request().Header.VisitAll(func(key, value []byte) {
		name := strings.ToLower(string(key))
		if !strings.HasPrefix(name, "x-amz-") {
			return
		}
		if _, ok := headers[name]; !ok {
			names = append(names, name)
			headers[name] = strings.TrimSpace(string(value))
		} else {
			headers[name] += "," + strings.TrimSpace(string(value))
		}
	})
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		b.WriteString(name)
		b.WriteByte(':')
		b.WriteString(headers[name])
		b.WriteByte('\n')
	}
	return b.String()
}

func canonicalizedResource(ctx *fiber.Ctx) string {
	resource := ctx.Path()

	var present []string
	args := ctx.Request().URI().QueryArgs()
	for _, sub := range v2Subresources {
		if args.Has(sub) {
			val := string(args.Peek(sub))
			if val == "" {
				present = append(present, sub)
			} else {
				present = append(present, sub+"="+val)
			}
		}
	}
	if len(present) > 0 {
		resource += "?" + strings.Join(present, "&")
	}
	return resource
}
