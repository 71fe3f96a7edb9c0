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

package metrics

// Metric action names, one per dispatched operation. Underscores keep
// the names valid as statsd metric path components.
var (
	ActionUndetected              = "ActionUnDetected"
	ActionAbortMultipartUpload    = "s3_AbortMultipartUpload"
	ActionCompleteMultipartUpload = "s3_CompleteMultipartUpload"
	ActionCreateBucket            = "s3_CreateBucket"
	ActionCreateMultipartUpload   = "s3_CreateMultipartUpload"
	ActionDeleteBucket            = "s3_DeleteBucket"
	ActionDeleteBucketTagging     = "s3_DeleteBucketTagging"
	ActionDeleteObject            = "s3_DeleteObject"
	ActionDeleteObjectTagging     = "s3_DeleteObjectTagging"
	ActionDeleteObjects           = "s3_DeleteObjects"
	ActionGetBucketAcl            = "s3_GetBucketAcl"
	ActionGetBucketLocation       = "s3_GetBucketLocation"
	ActionGetBucketTagging        = "s3_GetBucketTagging"
	ActionGetObject               = "s3_GetObject"
	ActionGetObjectTagging        = "s3_GetObjectTagging"
	ActionHeadBucket              = "s3_HeadBucket"
	ActionHeadObject              = "s3_HeadObject"
	ActionListAllMyBuckets        = "s3_ListAllMyBuckets"
	ActionListMultipartUploads    = "s3_ListMultipartUploads"
	ActionListObjects             = "s3_ListObjects"
	ActionListObjectsV2           = "s3_ListObjectsV2"
	ActionListParts               = "s3_ListParts"
	ActionPutBucketAcl            = "s3_PutBucketAcl"
	ActionPutBucketTagging        = "s3_PutBucketTagging"
	ActionPutObject               = "s3_PutObject"
	ActionPutObjectTagging        = "s3_PutObjectTagging"
	ActionUploadPart              = "s3_UploadPart"
	ActionNotImplemented          = "s3_NotImplemented"
)
