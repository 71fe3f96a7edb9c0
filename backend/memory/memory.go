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

// Package memory is a map backed storage backend. It serves the full
// operation surface for functional testing and small deployments
// where durability is not required.
package memory

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/arcstor/arcgw/backend"
	"github.com/arcstor/arcgw/s3err"
	"github.com/arcstor/arcgw/s3response"
)

const timefmt = "Mon, 02 Jan 2006 15:04:05 GMT"

type object struct {
	data        []byte
	contentType string
	etag        string
	modified    time.Time
	tags        map[string]string
}

type part struct {
	data     []byte
	etag     string
	modified time.Time
}

type upload struct {
	key         string
	contentType string
	initiated   time.Time
	parts       map[int32]part
}

type bucket struct {
	owner   string
	created time.Time
	objects map[string]*object
	tags    map[string]string
	acl     s3response.AccessControlPolicy
	uploads map[string]*upload
}

// Memory keeps all state under a single lock. Contention is
// acceptable here; this backend trades throughput for simplicity.
type Memory struct {
	backend.BackendUnsupported

	mu      sync.RWMutex
	buckets map[string]*bucket
}

var _ backend.Backend = &Memory{}

func New() *Memory {
	return &Memory{
		buckets: map[string]*bucket{},
	}
}

func (m *Memory) Shutdown() {}

func (m *Memory) String() string {
	return "Memory Gateway"
}

func (m *Memory) ListBuckets(_ context.Context, owner string) (s3response.ListAllMyBucketsResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var entries []s3response.ListAllMyBucketsEntry
	for name, b := range m.buckets {
		if b.owner != owner {
			continue
		}
		entries = append(entries, s3response.ListAllMyBucketsEntry{
			Name:         name,
			CreationDate: b.created,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})

	return s3response.ListAllMyBucketsResult{
		Owner:   s3response.Owner{ID: owner},
		Buckets: s3response.ListAllMyBucketsList{Bucket: entries},
	}, nil
}

func (m *Memory) HeadBucket(_ context.Context, name string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.buckets[name]; !ok {
		return s3err.GetAPIError(s3err.ErrNoSuchBucket)
	}
	return nil
}

func (m *Memory) CreateBucket(_ context.Context, name, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if b, ok := m.buckets[name]; ok {
		if b.owner == owner {
			return s3err.GetAPIError(s3err.ErrBucketAlreadyOwnedByYou)
		}
		return s3err.GetAPIError(s3err.ErrBucketAlreadyExists)
	}

	m.buckets[name] = &bucket{
		owner:   owner,
		created: time.Now(),
		objects: map[string]*object{},
		uploads: map[string]*upload{},
		acl: s3response.AccessControlPolicy{
			Owner: s3response.Owner{ID: owner},
			AccessControlList: s3response.AccessControlList{
				Grants: []s3response.Grant{
					{
						Grantee:    s3response.Grantee{ID: owner},
						Permission: "FULL_CONTROL",
					},
				},
			},
		},
	}
	return nil
}

func (m *Memory) DeleteBucket(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[name]
	if !ok {
		return s3err.GetAPIError(s3err.ErrNoSuchBucket)
	}
	if len(b.objects) > 0 {
		return s3err.GetAPIError(s3err.ErrBucketNotEmpty)
	}

	delete(m.buckets, name)
	return nil
}

// sortedKeys returns the bucket's object keys in byte order, the
// order every listing operation must produce.
func (b *bucket) sortedKeys() []string {
	keys := make([]string, 0, len(b.objects))
	for key := range b.objects {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// listing walks keys after the marker, grouping by delimiter into
// common prefixes, until maxKeys entries are collected. nextKey is the
// last enumerated object key; nextDirectory is set when the page ended
// on a prefix group, meaning that whole directory was delivered.
type listing struct {
	contents       []s3response.ListEntry
	commonPrefixes []s3response.CommonPrefix
	nextMarker     string
	nextKey        string
	nextDirectory  string
	truncated      bool
}

func (b *bucket) list(prefix, delimiter, marker string, maxKeys int32) listing {
	var res listing
	if maxKeys <= 0 {
		return res
	}

	// a marker ending in the delimiter names a fully delivered
	// directory; everything beneath it is skipped on resume
	skipDir := ""
	if delimiter != "" && marker != "" && strings.HasSuffix(marker, delimiter) {
		skipDir = marker
	}

	seenPrefixes := map[string]bool{}
	count := int32(0)

	for _, key := range b.sortedKeys() {
		if marker != "" && key <= marker {
			continue
		}
		if skipDir != "" && strings.HasPrefix(key, skipDir) {
			continue
		}
		if !strings.HasPrefix(key, prefix) {
			continue
		}

		if count >= maxKeys {
			res.truncated = true
			return res
		}

		if delimiter != "" {
			rest := key[len(prefix):]
			if idx := strings.Index(rest, delimiter); idx != -1 {
				commonPrefix := key[:len(prefix)+idx+len(delimiter)]
				if !seenPrefixes[commonPrefix] {
					seenPrefixes[commonPrefix] = true
					res.commonPrefixes = append(res.commonPrefixes,
						s3response.CommonPrefix{Prefix: commonPrefix})
					res.nextMarker = commonPrefix
					res.nextKey = key
					res.nextDirectory = commonPrefix
					count++
				}
				continue
			}
		}

		obj := b.objects[key]
		res.contents = append(res.contents, s3response.ListEntry{
			Key:          key,
			LastModified: obj.modified,
			ETag:         obj.etag,
			Size:         int64(len(obj.data)),
			StorageClass: "STANDARD",
		})
		res.nextMarker = key
		res.nextKey = key
		res.nextDirectory = ""
		count++
	}

	return res
}

func (m *Memory) ListObjects(_ context.Context, input *s3.ListObjectsInput) (s3response.ListBucketResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.buckets[*input.Bucket]
	if !ok {
		return s3response.ListBucketResult{}, s3err.GetAPIError(s3err.ErrNoSuchBucket)
	}

	prefix := strDeref(input.Prefix)
	delimiter := strDeref(input.Delimiter)
	marker := strDeref(input.Marker)
	maxKeys := int32(1000)
	if input.MaxKeys != nil {
		maxKeys = *input.MaxKeys
	}

	l := b.list(prefix, delimiter, marker, maxKeys)

	result := s3response.ListBucketResult{
		Name:           *input.Bucket,
		Prefix:         prefix,
		Marker:         marker,
		MaxKeys:        maxKeys,
		Delimiter:      delimiter,
		IsTruncated:    l.truncated,
		Contents:       l.contents,
		CommonPrefixes: l.commonPrefixes,
	}
	if l.truncated {
		result.NextMarker = l.nextMarker
	}
	return result, nil
}

func (m *Memory) ListObjectsV2(_ context.Context, input *s3.ListObjectsV2Input) (s3response.ListBucketResultV2, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.buckets[*input.Bucket]
	if !ok {
		return s3response.ListBucketResultV2{}, s3err.GetAPIError(s3err.ErrNoSuchBucket)
	}

	prefix := strDeref(input.Prefix)
	delimiter := strDeref(input.Delimiter)
	maxKeys := int32(1000)
	if input.MaxKeys != nil {
		maxKeys = *input.MaxKeys
	}

	// resume from the decoded continuation key when present,
	// otherwise from start-after
	marker := strDeref(input.ContinuationToken)
	if marker == "" {
		marker = strDeref(input.StartAfter)
	}

	l := b.list(prefix, delimiter, marker, maxKeys)

	result := s3response.ListBucketResultV2{
		Name:           *input.Bucket,
		Prefix:         prefix,
		MaxKeys:        maxKeys,
		Delimiter:      delimiter,
		IsTruncated:    l.truncated,
		Contents:       l.contents,
		CommonPrefixes: l.commonPrefixes,
		KeyCount:       int32(len(l.contents) + len(l.commonPrefixes)),
		StartAfter:     strDeref(input.StartAfter),
	}
	if l.truncated {
		// raw resume position; the gateway seals it into an opaque token
		result.NextContinuationToken = l.nextKey
		result.NextDirectory = l.nextDirectory
	}
	return result, nil
}

func (m *Memory) PutObject(_ context.Context, bucketName, key, contentType string, body io.Reader) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[bucketName]
	if !ok {
		return "", s3err.GetAPIError(s3err.ErrNoSuchBucket)
	}

	etag := dataETag(data)
	b.objects[key] = &object{
		data:        data,
		contentType: contentType,
		etag:        etag,
		modified:    time.Now(),
	}
	return etag, nil
}

func (m *Memory) GetObject(_ context.Context, bucketName, key string, startOffset, length int64) (backend.GetObjectResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, err := m.lookup(bucketName, key)
	if err != nil {
		return backend.GetObjectResult{}, err
	}

	// a zero-length read of a zero-byte object is a plain GET, not a range
	size := int64(len(obj.data))
	if startOffset < 0 || startOffset+length > size ||
		(length > 0 && startOffset >= size) {
		return backend.GetObjectResult{}, s3err.GetAPIError(s3err.ErrInvalidRange)
	}

	data := obj.data[startOffset : startOffset+length]
	res := backend.GetObjectResult{
		Body:          io.NopCloser(bytes.NewReader(data)),
		ContentLength: length,
		ContentType:   obj.contentType,
		ETag:          obj.etag,
		LastModified:  obj.modified.UTC().Format(timefmt),
	}
	if length != size {
		res.ContentRange = backend.ContentRange(startOffset, startOffset+length-1, size)
	}
	return res, nil
}

func (m *Memory) HeadObject(_ context.Context, bucketName, key string) (backend.ObjectMeta, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, err := m.lookup(bucketName, key)
	if err != nil {
		return backend.ObjectMeta{}, err
	}

	return backend.ObjectMeta{
		ContentLength: int64(len(obj.data)),
		ContentType:   obj.contentType,
		ETag:          obj.etag,
		LastModified:  obj.modified.UTC().Format(timefmt),
	}, nil
}

func (m *Memory) DeleteObject(_ context.Context, bucketName, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[bucketName]
	if !ok {
		return s3err.GetAPIError(s3err.ErrNoSuchBucket)
	}

	// deleting an absent key succeeds
	delete(b.objects, key)
	return nil
}

func (m *Memory) DeleteObjects(_ context.Context, bucketName string, objects s3response.DeleteObjects) (s3response.DeleteResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[bucketName]
	if !ok {
		return s3response.DeleteResult{}, s3err.GetAPIError(s3err.ErrNoSuchBucket)
	}

	var result s3response.DeleteResult
	for _, obj := range objects.Objects {
		delete(b.objects, obj.Key)
		if !objects.Quiet {
			result.Deleted = append(result.Deleted,
				s3response.DeletedObject{Key: obj.Key})
		}
	}
	return result, nil
}

func (m *Memory) CreateMultipartUpload(_ context.Context, bucketName, key, contentType string) (s3response.InitiateMultipartUploadResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[bucketName]
	if !ok {
		return s3response.InitiateMultipartUploadResult{}, s3err.GetAPIError(s3err.ErrNoSuchBucket)
	}

	uploadID := uuid.NewString()
	b.uploads[uploadID] = &upload{
		key:         key,
		contentType: contentType,
		initiated:   time.Now(),
		parts:       map[int32]part{},
	}

	return s3response.InitiateMultipartUploadResult{
		Bucket:   bucketName,
		Key:      key,
		UploadID: uploadID,
	}, nil
}

func (m *Memory) UploadPart(_ context.Context, bucketName, key, uploadID string, partNumber int32, body io.Reader) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	up, err := m.lookupUpload(bucketName, key, uploadID)
	if err != nil {
		return "", err
	}

	etag := dataETag(data)
	up.parts[partNumber] = part{
		data:     data,
		etag:     etag,
		modified: time.Now(),
	}
	return etag, nil
}

func (m *Memory) CompleteMultipartUpload(_ context.Context, bucketName, key, uploadID string, parts s3response.CompleteMultipartUpload) (s3response.CompleteMultipartUploadResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b := m.buckets[bucketName]
	up, err := m.lookupUpload(bucketName, key, uploadID)
	if err != nil {
		return s3response.CompleteMultipartUploadResult{}, err
	}

	var data []byte
	md5sums := md5.New()
	for _, p := range parts.Parts {
		stored, ok := up.parts[p.PartNumber]
		if !ok || strings.Trim(stored.etag, `"`) != strings.Trim(p.ETag, `"`) {
			return s3response.CompleteMultipartUploadResult{}, s3err.GetAPIError(s3err.ErrInvalidPart)
		}
		data = append(data, stored.data...)
		sum, _ := hex.DecodeString(strings.Trim(stored.etag, `"`))
		md5sums.Write(sum)
	}

	etag := fmt.Sprintf("\"%s-%d\"", hex.EncodeToString(md5sums.Sum(nil)), len(parts.Parts))
	b.objects[key] = &object{
		data:        data,
		contentType: up.contentType,
		etag:        etag,
		modified:    time.Now(),
	}
	delete(b.uploads, uploadID)

	return s3response.CompleteMultipartUploadResult{
		Location: fmt.Sprintf("/%v/%v", bucketName, key),
		Bucket:   bucketName,
		Key:      key,
		ETag:     etag,
	}, nil
}

func (m *Memory) AbortMultipartUpload(_ context.Context, bucketName, key, uploadID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.lookupUpload(bucketName, key, uploadID); err != nil {
		return err
	}
	delete(m.buckets[bucketName].uploads, uploadID)
	return nil
}

func (m *Memory) ListParts(_ context.Context, bucketName, key, uploadID string, partNumberMarker, maxParts int) (s3response.ListPartsResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	up, err := m.lookupUpload(bucketName, key, uploadID)
	if err != nil {
		return s3response.ListPartsResult{}, err
	}

	numbers := make([]int32, 0, len(up.parts))
	for num := range up.parts {
		if int(num) > partNumberMarker {
			numbers = append(numbers, num)
		}
	}
	sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })

	result := s3response.ListPartsResult{
		Bucket:           bucketName,
		Key:              key,
		UploadID:         uploadID,
		PartNumberMarker: partNumberMarker,
		MaxParts:         maxParts,
	}
	for _, num := range numbers {
		if len(result.Parts) >= maxParts {
			result.IsTruncated = true
			break
		}
		p := up.parts[num]
		result.Parts = append(result.Parts, s3response.Part{
			PartNumber:   num,
			LastModified: p.modified,
			ETag:         p.etag,
			Size:         int64(len(p.data)),
		})
		result.NextPartNumberMarker = int(num)
	}
	return result, nil
}

func (m *Memory) ListMultipartUploads(_ context.Context, bucketName, prefix, delimiter string, maxUploads int) (s3response.ListMultipartUploadsResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.buckets[bucketName]
	if !ok {
		return s3response.ListMultipartUploadsResult{}, s3err.GetAPIError(s3err.ErrNoSuchBucket)
	}

	var uploads []s3response.Upload
	for id, up := range b.uploads {
		if !strings.HasPrefix(up.key, prefix) {
			continue
		}
		uploads = append(uploads, s3response.Upload{
			Key:          up.key,
			UploadID:     id,
			StorageClass: "STANDARD",
			Initiated:    up.initiated,
		})
	}
	sort.Slice(uploads, func(i, j int) bool {
		if uploads[i].Key != uploads[j].Key {
			return uploads[i].Key < uploads[j].Key
		}
		return uploads[i].UploadID < uploads[j].UploadID
	})

	result := s3response.ListMultipartUploadsResult{
		Bucket:     bucketName,
		Prefix:     prefix,
		Delimiter:  delimiter,
		MaxUploads: maxUploads,
	}
	if len(uploads) > maxUploads {
		result.IsTruncated = true
		uploads = uploads[:maxUploads]
		result.NextKeyMarker = uploads[len(uploads)-1].Key
		result.NextUploadIDMarker = uploads[len(uploads)-1].UploadID
	}
	result.Uploads = uploads
	return result, nil
}

func (m *Memory) GetBucketTagging(_ context.Context, bucketName string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.buckets[bucketName]
	if !ok {
		return nil, s3err.GetAPIError(s3err.ErrNoSuchBucket)
	}
	if len(b.tags) == 0 {
		return nil, s3err.GetAPIError(s3err.ErrNoSuchTagSet)
	}
	return copyTags(b.tags), nil
}

func (m *Memory) PutBucketTagging(_ context.Context, bucketName string, tags map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[bucketName]
	if !ok {
		return s3err.GetAPIError(s3err.ErrNoSuchBucket)
	}
	b.tags = copyTags(tags)
	return nil
}

func (m *Memory) DeleteBucketTagging(_ context.Context, bucketName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[bucketName]
	if !ok {
		return s3err.GetAPIError(s3err.ErrNoSuchBucket)
	}
	b.tags = nil
	return nil
}

func (m *Memory) GetObjectTagging(_ context.Context, bucketName, key string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, err := m.lookup(bucketName, key)
	if err != nil {
		return nil, err
	}
	if len(obj.tags) == 0 {
		return nil, s3err.GetAPIError(s3err.ErrNoSuchTagSet)
	}
	return copyTags(obj.tags), nil
}

func (m *Memory) PutObjectTagging(_ context.Context, bucketName, key string, tags map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	obj, err := m.lookup(bucketName, key)
	if err != nil {
		return err
	}
	obj.tags = copyTags(tags)
	return nil
}

func (m *Memory) DeleteObjectTagging(_ context.Context, bucketName, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	obj, err := m.lookup(bucketName, key)
	if err != nil {
		return err
	}
	obj.tags = nil
	return nil
}

func (m *Memory) GetBucketAcl(_ context.Context, bucketName string) (s3response.AccessControlPolicy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.buckets[bucketName]
	if !ok {
		return s3response.AccessControlPolicy{}, s3err.GetAPIError(s3err.ErrNoSuchBucket)
	}
	return b.acl, nil
}

func (m *Memory) PutBucketAcl(_ context.Context, bucketName string, acl s3response.AccessControlPolicy) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[bucketName]
	if !ok {
		return s3err.GetAPIError(s3err.ErrNoSuchBucket)
	}
	b.acl = acl
	return nil
}

// lookup returns the live object, callers hold the lock.
func (m *Memory) lookup(bucketName, key string) (*object, error) {
	b, ok := m.buckets[bucketName]
	if !ok {
		return nil, s3err.GetAPIError(s3err.ErrNoSuchBucket)
	}
	obj, ok := b.objects[key]
	if !ok {
		return nil, s3err.GetAPIError(s3err.ErrNoSuchKey)
	}
	return obj, nil
}

func (m *Memory) lookupUpload(bucketName, key, uploadID string) (*upload, error) {
	b, ok := m.buckets[bucketName]
	if !ok {
		return nil, s3err.GetAPIError(s3err.ErrNoSuchBucket)
	}
	up, ok := b.uploads[uploadID]
	if !ok || up.key != key {
		return nil, s3err.GetAPIError(s3err.ErrNoSuchUpload)
	}
	return up, nil
}

func dataETag(data []byte) string {
	sum := md5.Sum(data)
	return fmt.Sprintf("\"%s\"", hex.EncodeToString(sum[:]))
}

func copyTags(tags map[string]string) map[string]string {
	cp := make(map[string]string, len(tags))
	for k, v := range tags {
		cp[k] = v
	}
	return cp
}

func strDeref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
