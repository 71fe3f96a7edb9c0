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

package backend

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/arcstor/arcgw/s3err"
	"github.com/arcstor/arcgw/s3response"
)

// GetObjectResult is the backend result for object reads. Body must be
// closed by the caller; it aborts when the request context is canceled.
type GetObjectResult struct {
	Body          io.ReadCloser
	ContentLength int64
	ContentType   string
	ETag          string
	LastModified  string
	ContentRange  string
}

// ObjectMeta is the backend result for object stat operations.
type ObjectMeta struct {
	ContentLength int64
	ContentType   string
	ETag          string
	LastModified  string
}

// Backend is the storage cluster boundary. The gateway core validates
// and routes requests; all durable state lives behind this interface.
type Backend interface {
	fmt.Stringer
	Shutdown()

	// bucket operations
	ListBuckets(_ context.Context, owner string) (s3response.ListAllMyBucketsResult, error)
	HeadBucket(_ context.Context, bucket string) error
	CreateBucket(_ context.Context, bucket, owner string) error
	DeleteBucket(_ context.Context, bucket string) error
	ListObjects(context.Context, *s3.ListObjectsInput) (s3response.ListBucketResult, error)
	ListObjectsV2(context.Context, *s3.ListObjectsV2Input) (s3response.ListBucketResultV2, error)

	// standard object operations
	PutObject(_ context.Context, bucket, object, contentType string, body io.Reader) (etag string, err error)
	GetObject(_ context.Context, bucket, object string, startOffset, length int64) (GetObjectResult, error)
	HeadObject(_ context.Context, bucket, object string) (ObjectMeta, error)
	DeleteObject(_ context.Context, bucket, object string) error
	DeleteObjects(_ context.Context, bucket string, objects s3response.DeleteObjects) (s3response.DeleteResult, error)

	// multipart operations
	CreateMultipartUpload(_ context.Context, bucket, object, contentType string) (s3response.InitiateMultipartUploadResult, error)
	UploadPart(_ context.Context, bucket, object, uploadID string, partNumber int32, body io.Reader) (etag string, err error)
	CompleteMultipartUpload(_ context.Context, bucket, object, uploadID string, parts s3response.CompleteMultipartUpload) (s3response.CompleteMultipartUploadResult, error)
	AbortMultipartUpload(_ context.Context, bucket, object, uploadID string) error
	ListParts(_ context.Context, bucket, object, uploadID string, partNumberMarker, maxParts int) (s3response.ListPartsResult, error)
	ListMultipartUploads(_ context.Context, bucket, prefix, delimiter string, maxUploads int) (s3response.ListMultipartUploadsResult, error)

	// bucket tagging operations
	GetBucketTagging(_ context.Context, bucket string) (map[string]string, error)
	PutBucketTagging(_ context.Context, bucket string, tags map[string]string) error
	DeleteBucketTagging(_ context.Context, bucket string) error

	// object tagging operations
	GetObjectTagging(_ context.Context, bucket, object string) (map[string]string, error)
	PutObjectTagging(_ context.Context, bucket, object string, tags map[string]string) error
	DeleteObjectTagging(_ context.Context, bucket, object string) error

	// acl operations
	GetBucketAcl(_ context.Context, bucket string) (s3response.AccessControlPolicy, error)
	PutBucketAcl(_ context.Context, bucket string, acl s3response.AccessControlPolicy) error
}

// BackendUnsupported returns NotImplemented for every operation so that
// partial backends stay honest about what they serve.
type BackendUnsupported struct{}

var _ Backend = &BackendUnsupported{}

func New() Backend {
	return &BackendUnsupported{}
}
func (BackendUnsupported) Shutdown() {}
func (BackendUnsupported) String() string {
	return "Unsupported"
}
func (BackendUnsupported) ListBuckets(context.Context, string) (s3response.ListAllMyBucketsResult, error) {
	return s3response.ListAllMyBucketsResult{}, s3err.GetAPIError(s3err.ErrNotImplemented)
}
func (BackendUnsupported) HeadBucket(context.Context, string) error {
	return s3err.GetAPIError(s3err.ErrNotImplemented)
}
func (BackendUnsupported) CreateBucket(context.Context, string, string) error {
	return s3err.GetAPIError(s3err.ErrNotImplemented)
}
func (BackendUnsupported) DeleteBucket(context.Context, string) error {
	return s3err.GetAPIError(s3err.ErrNotImplemented)
}
func (BackendUnsupported) ListObjects(context.Context, *s3.ListObjectsInput) (s3response.ListBucketResult, error) {
	return s3response.ListBucketResult{}, s3err.GetAPIError(s3err.ErrNotImplemented)
}
func (BackendUnsupported) ListObjectsV2(context.Context, *s3.ListObjectsV2Input) (s3response.ListBucketResultV2, error) {
	return s3response.ListBucketResultV2{}, s3err.GetAPIError(s3err.ErrNotImplemented)
}
func (BackendUnsupported) PutObject(context.Context, string, string, string, io.Reader) (string, error) {
	return "", s3err.GetAPIError(s3err.ErrNotImplemented)
}
func (BackendUnsupported) GetObject(context.Context, string, string, int64, int64) (GetObjectResult, error) {
	return GetObjectResult{}, s3err.GetAPIError(s3err.ErrNotImplemented)
}
func (BackendUnsupported) HeadObject(context.Context, string, string) (ObjectMeta, error) {
	return ObjectMeta{}, s3err.GetAPIError(s3err.ErrNotImplemented)
}
func (BackendUnsupported) DeleteObject(context.Context, string, string) error {
	return s3err.GetAPIError(s3err.ErrNotImplemented)
}
func (BackendUnsupported) DeleteObjects(context.Context, string, s3response.DeleteObjects) (s3response.DeleteResult, error) {
	return s3response.DeleteResult{}, s3err.GetAPIError(s3err.ErrNotImplemented)
}
func (BackendUnsupported) CreateMultipartUpload(context.Context, string, string, string) (s3response.InitiateMultipartUploadResult, error) {
	return s3response.InitiateMultipartUploadResult{}, s3err.GetAPIError(s3err.ErrNotImplemented)
}
func (BackendUnsupported) UploadPart(context.Context, string, string, string, int32, io.Reader) (string, error) {
	return "", s3err.GetAPIError(s3err.ErrNotImplemented)
}
func (BackendUnsupported) CompleteMultipartUpload(context.Context, string, string, string, s3response.CompleteMultipartUpload) (s3response.CompleteMultipartUploadResult, error) {
	return s3response.CompleteMultipartUploadResult{}, s3err.GetAPIError(s3err.ErrNotImplemented)
}
func (BackendUnsupported) AbortMultipartUpload(context.Context, string, string, string) error {
	return s3err.GetAPIError(s3err.ErrNotImplemented)
}
func (BackendUnsupported) ListParts(context.Context, string, string, string, int, int) (s3response.ListPartsResult, error) {
	return s3response.ListPartsResult{}, s3err.GetAPIError(s3err.ErrNotImplemented)
}
func (BackendUnsupported) ListMultipartUploads(context.Context, string, string, string, int) (s3response.ListMultipartUploadsResult, error) {
	return s3response.ListMultipartUploadsResult{}, s3err.GetAPIError(s3err.ErrNotImplemented)
}
func (BackendUnsupported) GetBucketTagging(context.Context, string) (map[string]string, error) {
	return nil, s3err.GetAPIError(s3err.ErrNotImplemented)
}
func (BackendUnsupported) PutBucketTagging(context.Context, string, map[string]string) error {
	return s3err.GetAPIError(s3err.ErrNotImplemented)
}
func (BackendUnsupported) DeleteBucketTagging(context.Context, string) error {
	return s3err.GetAPIError(s3err.ErrNotImplemented)
}
func (BackendUnsupported) GetObjectTagging(context.Context, string, string) (map[string]string, error) {
	return nil, s3err.GetAPIError(s3err.ErrNotImplemented)
}
func (BackendUnsupported) PutObjectTagging(context.Context, string, string, map[string]string) error {
	return s3err.GetAPIError(s3err.ErrNotImplemented)
}
func (BackendUnsupported) DeleteObjectTagging(context.Context, string, string) error {
	return s3err.GetAPIError(s3err.ErrNotImplemented)
}
func (BackendUnsupported) GetBucketAcl(context.Context, string) (s3response.AccessControlPolicy, error) {
	return s3response.AccessControlPolicy{}, s3err.GetAPIError(s3err.ErrNotImplemented)
}
func (BackendUnsupported) PutBucketAcl(context.Context, string, s3response.AccessControlPolicy) error {
	return s3err.GetAPIError(s3err.ErrNotImplemented)
}
