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

package s3api

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/gofiber/fiber/v2"

	"github.com/arcstor/arcgw/auth"
	"github.com/arcstor/arcgw/backend/memory"
	"github.com/arcstor/arcgw/s3api/middlewares"
	"github.com/arcstor/arcgw/s3api/utils"
	"github.com/arcstor/arcgw/s3response"
)

const (
	testAccess = "root-access"
	testSecret = "root-secret-key"
	testRegion = "us-east-1"
)

func newTestGateway(t *testing.T, opts ...Option) *fiber.App {
	t.Helper()

	app := fiber.New()
	iam, err := auth.New(&auth.Opts{})
	if err != nil {
		t.Fatalf("setup iam: %v", err)
	}

	opts = append(opts, WithQuiet())
	_, err = New(app, memory.New(),
		middlewares.RootUserConfig{Access: testAccess, Secret: testSecret},
		":7070", testRegion, iam, nil, nil, nil, opts...)
	if err != nil {
		t.Fatalf("setup gateway: %v", err)
	}
	return app
}

// signedRequest builds and v4-signs a request against the gateway so it
// passes the full authentication pipeline.
func signedRequest(t *testing.T, method, host, uri string, body []byte, headers map[string]string) *http.Request {
	t.Helper()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, "http://"+host+uri, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	for key, val := range headers {
		req.Header.Set(key, val)
	}

	signer := v4.NewSigner()
	err = signer.SignHTTP(context.Background(),
		aws.Credentials{AccessKeyID: testAccess, SecretAccessKey: testSecret},
		req, utils.UnsignedPayload, "s3", testRegion, time.Now().UTC())
	if err != nil {
		t.Fatalf("sign request: %v", err)
	}
	return req
}

func do(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response body: %v", err)
	}
	resp.Body.Close()
	return resp, body
}

func TestGatewayObjectLifecycle(t *testing.T) {
	app := newTestGateway(t)
	const host = "gw.local"

	resp, _ := do(t, app, signedRequest(t, http.MethodPut, host, "/my-bucket", nil, nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("CreateBucket status = %v", resp.StatusCode)
	}
	if resp.Header.Get("Location") != "/my-bucket" {
		t.Errorf("CreateBucket location = %q", resp.Header.Get("Location"))
	}

	resp, _ = do(t, app, signedRequest(t, http.MethodPut, host, "/my-bucket/my-key",
		[]byte("hello world"), map[string]string{"Content-Type": "text/plain"}))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("PutObject status = %v", resp.StatusCode)
	}
	if resp.Header.Get("ETag") == "" {
		t.Error("PutObject missing ETag header")
	}

	resp, body := do(t, app, signedRequest(t, http.MethodGet, host, "/my-bucket/my-key", nil, nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GetObject status = %v", resp.StatusCode)
	}
	if string(body) != "hello world" {
		t.Errorf("GetObject body = %q", body)
	}
	if resp.Header.Get("Content-Type") != "text/plain" {
		t.Errorf("GetObject content type = %q", resp.Header.Get("Content-Type"))
	}

	resp, body = do(t, app, signedRequest(t, http.MethodGet, host, "/my-bucket/my-key", nil,
		map[string]string{"Range": "bytes=0-4"}))
	if resp.StatusCode != http.StatusPartialContent {
		t.Fatalf("ranged GetObject status = %v", resp.StatusCode)
	}
	if string(body) != "hello" {
		t.Errorf("ranged GetObject body = %q", body)
	}
	if resp.Header.Get("Content-Range") != "bytes 0-4/11" {
		t.Errorf("ranged GetObject content range = %q", resp.Header.Get("Content-Range"))
	}

	resp, _ = do(t, app, signedRequest(t, http.MethodDelete, host, "/my-bucket/my-key", nil, nil))
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("DeleteObject status = %v", resp.StatusCode)
	}

	resp, body = do(t, app, signedRequest(t, http.MethodGet, host, "/my-bucket/my-key", nil, nil))
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("GetObject after delete status = %v", resp.StatusCode)
	}
	if !strings.Contains(string(body), "<Code>NoSuchKey</Code>") {
		t.Errorf("GetObject after delete body = %s", body)
	}

	resp, _ = do(t, app, signedRequest(t, http.MethodDelete, host, "/my-bucket", nil, nil))
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("DeleteBucket status = %v", resp.StatusCode)
	}
}

func TestGatewayEmptyObjectGet(t *testing.T) {
	app := newTestGateway(t)
	const host = "gw.local"

	do(t, app, signedRequest(t, http.MethodPut, host, "/my-bucket", nil, nil))

	resp, body := do(t, app, signedRequest(t, http.MethodPut, host,
		"/my-bucket/empty.txt", nil, nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("PutObject status = %v, body %s", resp.StatusCode, body)
	}

	// a plain GET of a zero-byte object is a full read, not a range
	resp, body = do(t, app, signedRequest(t, http.MethodGet, host,
		"/my-bucket/empty.txt", nil, nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GetObject status = %v, body %s", resp.StatusCode, body)
	}
	if len(body) != 0 {
		t.Errorf("GetObject body = %q, want empty", body)
	}
	if resp.Header.Get("Content-Range") != "" {
		t.Errorf("GetObject content range = %q, want none", resp.Header.Get("Content-Range"))
	}
}

func TestGatewayListObjectsV2SealedTokens(t *testing.T) {
	app := newTestGateway(t)
	const host = "gw.local"

	do(t, app, signedRequest(t, http.MethodPut, host, "/my-bucket", nil, nil))
	for _, key := range []string{"a", "b", "c"} {
		do(t, app, signedRequest(t, http.MethodPut, host, "/my-bucket/"+key,
			[]byte(key), nil))
	}

	resp, body := do(t, app, signedRequest(t, http.MethodGet, host,
		"/my-bucket?list-type=2&max-keys=2", nil, nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ListObjectsV2 status = %v, body %s", resp.StatusCode, body)
	}

	var page s3response.ListBucketResultV2
	if err := xml.Unmarshal(body, &page); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	if !page.IsTruncated || len(page.Contents) != 2 {
		t.Fatalf("first page = %+v", page)
	}

	// the token is opaque but must decode to the last returned key
	marker, err := utils.DecodeContinuationToken(page.NextContinuationToken)
	if err != nil {
		t.Fatalf("decode continuation token: %v", err)
	}
	if marker.Key != "b" {
		t.Errorf("token resume key = %q, want %q", marker.Key, "b")
	}

	resp, body = do(t, app, signedRequest(t, http.MethodGet, host,
		"/my-bucket?list-type=2&max-keys=2&continuation-token="+page.NextContinuationToken,
		nil, nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ListObjectsV2 page 2 status = %v, body %s", resp.StatusCode, body)
	}

	var second s3response.ListBucketResultV2
	if err := xml.Unmarshal(body, &second); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	if second.IsTruncated || len(second.Contents) != 1 || second.Contents[0].Key != "c" {
		t.Fatalf("second page = %+v", second)
	}
	if second.ContinuationToken != page.NextContinuationToken {
		t.Error("second page does not echo the client token")
	}
}

func TestGatewayListObjectsV2DelimiterPagination(t *testing.T) {
	app := newTestGateway(t)
	const host = "gw.local"

	do(t, app, signedRequest(t, http.MethodPut, host, "/my-bucket", nil, nil))
	for _, key := range []string{"a.txt", "docs/x", "docs/y", "pics/z"} {
		do(t, app, signedRequest(t, http.MethodPut, host, "/my-bucket/"+key,
			[]byte(key), nil))
	}

	resp, body := do(t, app, signedRequest(t, http.MethodGet, host,
		"/my-bucket?list-type=2&delimiter=%2F&max-keys=2", nil, nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ListObjectsV2 status = %v, body %s", resp.StatusCode, body)
	}

	var page s3response.ListBucketResultV2
	if err := xml.Unmarshal(body, &page); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	if !page.IsTruncated || len(page.Contents) != 1 || len(page.CommonPrefixes) != 1 {
		t.Fatalf("first page = %+v", page)
	}
	if page.CommonPrefixes[0].Prefix != "docs/" {
		t.Fatalf("first page prefix = %q", page.CommonPrefixes[0].Prefix)
	}

	// the sealed token records the directory the page ended on
	marker, err := utils.DecodeContinuationToken(page.NextContinuationToken)
	if err != nil {
		t.Fatalf("decode continuation token: %v", err)
	}
	if marker.Directory != "docs/" {
		t.Errorf("token directory = %q, want %q", marker.Directory, "docs/")
	}

	resp, body = do(t, app, signedRequest(t, http.MethodGet, host,
		"/my-bucket?list-type=2&delimiter=%2F&max-keys=2&continuation-token="+page.NextContinuationToken,
		nil, nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ListObjectsV2 page 2 status = %v, body %s", resp.StatusCode, body)
	}

	var second s3response.ListBucketResultV2
	if err := xml.Unmarshal(body, &second); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	// the delivered directory must not repeat on the next page
	if second.IsTruncated || len(second.Contents) != 0 {
		t.Fatalf("second page = %+v", second)
	}
	if len(second.CommonPrefixes) != 1 || second.CommonPrefixes[0].Prefix != "pics/" {
		t.Errorf("second page prefixes = %+v", second.CommonPrefixes)
	}
}

func TestGatewayRejectsForgedContinuationToken(t *testing.T) {
	app := newTestGateway(t)
	const host = "gw.local"

	do(t, app, signedRequest(t, http.MethodPut, host, "/my-bucket", nil, nil))

	token := utils.EncodeContinuationToken(utils.ContinuationMarker{Key: "a"})
	// flip a payload character, keeping valid hex
	forged := "f" + token[1:]
	if token[0] == 'f' {
		forged = "e" + token[1:]
	}

	resp, body := do(t, app, signedRequest(t, http.MethodGet, host,
		"/my-bucket?list-type=2&continuation-token="+forged, nil, nil))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %v, want 400", resp.StatusCode)
	}
	if !strings.Contains(string(body), "<Code>InvalidArgument</Code>") {
		t.Errorf("body = %s", body)
	}
}

func TestGatewaySubresourceDispatch(t *testing.T) {
	app := newTestGateway(t)
	const host = "gw.local"

	do(t, app, signedRequest(t, http.MethodPut, host, "/my-bucket", nil, nil))

	// same method and path, different query: acl wins over listing
	resp, body := do(t, app, signedRequest(t, http.MethodGet, host, "/my-bucket?acl", nil, nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GetBucketAcl status = %v, body %s", resp.StatusCode, body)
	}
	if !strings.Contains(string(body), "<AccessControlPolicy>") {
		t.Errorf("GetBucketAcl body = %s", body)
	}

	resp, body = do(t, app, signedRequest(t, http.MethodGet, host, "/my-bucket", nil, nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ListObjects status = %v", resp.StatusCode)
	}
	if !strings.Contains(string(body), "<ListBucketResult") {
		t.Errorf("ListObjects body = %s", body)
	}

	// recognized but unsupported subresource is refused, not listed
	resp, body = do(t, app, signedRequest(t, http.MethodGet, host, "/my-bucket?versioning", nil, nil))
	if resp.StatusCode != http.StatusNotImplemented {
		t.Fatalf("versioning status = %v", resp.StatusCode)
	}
	if !strings.Contains(string(body), "<Code>NotImplemented</Code>") {
		t.Errorf("versioning body = %s", body)
	}

	resp, body = do(t, app, signedRequest(t, http.MethodGet, host, "/my-bucket?location", nil, nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GetBucketLocation status = %v", resp.StatusCode)
	}
	// us-east-1 serializes as an empty constraint
	if !strings.Contains(string(body), "LocationConstraint") {
		t.Errorf("GetBucketLocation body = %s", body)
	}
}

func TestGatewayAnonymousRejected(t *testing.T) {
	app := newTestGateway(t)

	req, _ := http.NewRequest(http.MethodGet, "http://gw.local/my-bucket", nil)
	resp, body := do(t, app, req)

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %v, want 401", resp.StatusCode)
	}
	if !strings.Contains(string(body), "<Code>AccessDenied</Code>") {
		t.Errorf("body = %s", body)
	}

	// request id headers apply to failures too
	if resp.Header.Get("x-amz-request-id") == "" {
		t.Error("missing x-amz-request-id header on error response")
	}
	if !strings.Contains(string(body), "<RequestId>") {
		t.Errorf("body missing RequestId: %s", body)
	}
}

func TestGatewayBadSignatureRejected(t *testing.T) {
	app := newTestGateway(t)

	req := signedRequest(t, http.MethodGet, "gw.local", "/my-bucket", nil, nil)
	// tamper after signing
	req.Header.Set("X-Amz-Meta-Extra", "tampered")
	authHdr := req.Header.Get("Authorization")
	req.Header.Set("Authorization", strings.Replace(authHdr, "SignedHeaders=", "SignedHeaders=x-amz-meta-extra;", 1))

	resp, body := do(t, app, req)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %v, want 403", resp.StatusCode)
	}
	if !strings.Contains(string(body), "<Code>SignatureDoesNotMatch</Code>") {
		t.Errorf("body = %s", body)
	}
}

func TestGatewayWrongRegionRejected(t *testing.T) {
	app := newTestGateway(t)

	req, _ := http.NewRequest(http.MethodGet, "http://gw.local/my-bucket", nil)
	signer := v4.NewSigner()
	err := signer.SignHTTP(context.Background(),
		aws.Credentials{AccessKeyID: testAccess, SecretAccessKey: testSecret},
		req, utils.UnsignedPayload, "s3", "eu-west-1", time.Now().UTC())
	if err != nil {
		t.Fatalf("sign request: %v", err)
	}

	resp, body := do(t, app, req)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %v, want 400", resp.StatusCode)
	}
	if !strings.Contains(string(body), "<Code>AuthorizationHeaderMalformed</Code>") {
		t.Errorf("body = %s", body)
	}
}

func TestGatewayHostStyleAddressing(t *testing.T) {
	app := newTestGateway(t, WithHostStyle([]string{"s3.example.com"}))
	const host = "my-bucket.s3.example.com"

	resp, body := do(t, app, signedRequest(t, http.MethodPut, host, "/", nil, nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("CreateBucket status = %v, body %s", resp.StatusCode, body)
	}

	resp, body = do(t, app, signedRequest(t, http.MethodPut, host, "/my-key",
		[]byte("host style data"), nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("PutObject status = %v, body %s", resp.StatusCode, body)
	}

	resp, body = do(t, app, signedRequest(t, http.MethodGet, host,
		"/?list-type=2&prefix=my", nil, nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ListObjectsV2 status = %v, body %s", resp.StatusCode, body)
	}

	var page s3response.ListBucketResultV2
	if err := xml.Unmarshal(body, &page); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	if page.Name != "my-bucket" || len(page.Contents) != 1 || page.Contents[0].Key != "my-key" {
		t.Errorf("host style listing = %+v", page)
	}

	// path style via the bare suffix still works on the same gateway
	resp, body = do(t, app, signedRequest(t, http.MethodGet, "s3.example.com",
		"/my-bucket/my-key", nil, nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("path style GetObject status = %v, body %s", resp.StatusCode, body)
	}
	if string(body) != "host style data" {
		t.Errorf("path style GetObject body = %q", body)
	}
}

func TestGatewayDeleteObjects(t *testing.T) {
	app := newTestGateway(t)
	const host = "gw.local"

	do(t, app, signedRequest(t, http.MethodPut, host, "/my-bucket", nil, nil))
	for _, key := range []string{"a", "b"} {
		do(t, app, signedRequest(t, http.MethodPut, host, "/my-bucket/"+key, []byte(key), nil))
	}

	deleteBody := []byte(`<Delete><Object><Key>a</Key></Object><Object><Key>b</Key></Object></Delete>`)
	resp, body := do(t, app, signedRequest(t, http.MethodPost, host, "/my-bucket?delete",
		deleteBody, nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("DeleteObjects status = %v, body %s", resp.StatusCode, body)
	}

	var res s3response.DeleteResult
	if err := xml.Unmarshal(body, &res); err != nil {
		t.Fatalf("decode delete result: %v", err)
	}
	if len(res.Deleted) != 2 {
		t.Errorf("DeleteObjects deleted = %+v", res.Deleted)
	}
}

func TestGatewayMultipartUpload(t *testing.T) {
	app := newTestGateway(t)
	const host = "gw.local"

	do(t, app, signedRequest(t, http.MethodPut, host, "/my-bucket", nil, nil))

	resp, body := do(t, app, signedRequest(t, http.MethodPost, host,
		"/my-bucket/big-key?uploads", nil, nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("CreateMultipartUpload status = %v, body %s", resp.StatusCode, body)
	}
	var init s3response.InitiateMultipartUploadResult
	if err := xml.Unmarshal(body, &init); err != nil {
		t.Fatalf("decode initiate result: %v", err)
	}
	if init.UploadID == "" {
		t.Fatal("CreateMultipartUpload missing upload id")
	}

	etags := make([]string, 2)
	for i, part := range []string{"hello ", "world"} {
		uri := fmt.Sprintf("/my-bucket/big-key?partNumber=%d&uploadId=%s", i+1, init.UploadID)
		resp, body = do(t, app, signedRequest(t, http.MethodPut, host, uri, []byte(part), nil))
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("UploadPart %d status = %v, body %s", i+1, resp.StatusCode, body)
		}
		etags[i] = resp.Header.Get("ETag")
	}

	completeBody := []byte(`<CompleteMultipartUpload>` +
		`<Part><PartNumber>1</PartNumber><ETag>` + etags[0] + `</ETag></Part>` +
		`<Part><PartNumber>2</PartNumber><ETag>` + etags[1] + `</ETag></Part>` +
		`</CompleteMultipartUpload>`)
	resp, body = do(t, app, signedRequest(t, http.MethodPost, host,
		"/my-bucket/big-key?uploadId="+init.UploadID, completeBody, nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("CompleteMultipartUpload status = %v, body %s", resp.StatusCode, body)
	}

	resp, body = do(t, app, signedRequest(t, http.MethodGet, host, "/my-bucket/big-key", nil, nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GetObject status = %v", resp.StatusCode)
	}
	if string(body) != "hello world" {
		t.Errorf("assembled object = %q", body)
	}
}
