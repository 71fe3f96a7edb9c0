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

package s3response

import (
	"encoding/xml"
	"time"
)

// Owner - bucket owner
type Owner struct {
	ID          string
	DisplayName string
}

// Bucket container for bucket metadata
type Bucket struct {
	Name         string
	CreationDate string // time string of format "2006-01-02T15:04:05.000Z"
}

// ListAllMyBucketsList - list of all buckets
type ListAllMyBucketsList struct {
	Bucket []ListAllMyBucketsEntry
}

// ListAllMyBucketsEntry - each bucket metadata
type ListAllMyBucketsEntry struct {
	Name         string
	CreationDate time.Time
}

// ListAllMyBucketsResult - GET / response
type ListAllMyBucketsResult struct {
	XMLName xml.Name `xml:"http://s3.amazonaws.com/doc/2006-03-01/ ListAllMyBucketsResult"`
	Owner   Owner
	Buckets ListAllMyBucketsList
}

// CommonPrefix container for prefix response in ListBucketResult
type CommonPrefix struct {
	Prefix string
}

// ListEntry - individual object listing entry
type ListEntry struct {
	Key          string
	LastModified time.Time
	ETag         string
	Size         int64
	StorageClass string
	Owner        *Owner `xml:"Owner,omitempty"`
}

// ListBucketResult - GET /:bucket response (ListObjects)
type ListBucketResult struct {
	XMLName        xml.Name       `xml:"http://s3.amazonaws.com/doc/2006-03-01/ ListBucketResult"`
	Name           string         `xml:"Name"`
	Prefix         string         `xml:"Prefix"`
	Marker         string         `xml:"Marker"`
	NextMarker     string         `xml:"NextMarker,omitempty"`
	MaxKeys        int32          `xml:"MaxKeys"`
	Delimiter      string         `xml:"Delimiter,omitempty"`
	IsTruncated    bool           `xml:"IsTruncated"`
	Contents       []ListEntry    `xml:"Contents,omitempty"`
	CommonPrefixes []CommonPrefix `xml:"CommonPrefixes,omitempty"`
}

// ListBucketResultV2 - GET /:bucket?list-type=2 response (ListObjectsV2)
type ListBucketResultV2 struct {
	XMLName               xml.Name       `xml:"http://s3.amazonaws.com/doc/2006-03-01/ ListBucketResult"`
	Name                  string         `xml:"Name"`
	Prefix                string         `xml:"Prefix"`
	MaxKeys               int32          `xml:"MaxKeys"`
	Delimiter             string         `xml:"Delimiter,omitempty"`
	IsTruncated           bool           `xml:"IsTruncated"`
	Contents              []ListEntry    `xml:"Contents,omitempty"`
	CommonPrefixes        []CommonPrefix `xml:"CommonPrefixes,omitempty"`
	ContinuationToken     string         `xml:"ContinuationToken,omitempty"`
	NextContinuationToken string         `xml:"NextContinuationToken,omitempty"`
	KeyCount              int32          `xml:"KeyCount"`
	StartAfter            string         `xml:"StartAfter,omitempty"`

	// NextDirectory reports the common prefix a truncated listing ended
	// on, for the gateway's continuation token. Never serialized.
	NextDirectory string `xml:"-"`
}

// LocationResponse - format for location response.
type LocationResponse struct {
	XMLName  xml.Name `xml:"http://s3.amazonaws.com/doc/2006-03-01/ LocationConstraint" json:"-"`
	Location string   `xml:",chardata"`
}

// Tag - single bucket/object tag
type Tag struct {
	Key   string `xml:"Key"`
	Value string `xml:"Value"`
}

// TagSet - list of tags
type TagSet struct {
	Tags []Tag `xml:"Tag"`
}

// Tagging - bucket/object tagging body
type Tagging struct {
	XMLName xml.Name `xml:"Tagging"`
	TagSet  TagSet   `xml:"TagSet"`
}

// AccessControlPolicy - ACL get/put body
type AccessControlPolicy struct {
	XMLName           xml.Name `xml:"AccessControlPolicy"`
	Owner             Owner
	AccessControlList AccessControlList
}

// AccessControlList - list of ACL grants
type AccessControlList struct {
	Grants []Grant `xml:"Grant"`
}

// Grant - single ACL grant
type Grant struct {
	Grantee    Grantee
	Permission string
}

// Grantee - ACL grant target
type Grantee struct {
	XMLName     xml.Name `xml:"Grantee"`
	ID          string
	DisplayName string
}

// InitiateMultipartUploadResult - POST /:bucket/:key?uploads response
type InitiateMultipartUploadResult struct {
	XMLName  xml.Name `xml:"http://s3.amazonaws.com/doc/2006-03-01/ InitiateMultipartUploadResult"`
	Bucket   string
	Key      string
	UploadID string `xml:"UploadId"`
}

// Part - multipart upload part description
type Part struct {
	PartNumber   int32
	LastModified time.Time
	ETag         string
	Size         int64
}

// ListPartsResult - GET /:bucket/:key?uploadId response
type ListPartsResult struct {
	XMLName              xml.Name `xml:"http://s3.amazonaws.com/doc/2006-03-01/ ListPartsResult"`
	Bucket               string
	Key                  string
	UploadID             string `xml:"UploadId"`
	Initiator            Owner
	Owner                Owner
	StorageClass         string
	PartNumberMarker     int
	NextPartNumberMarker int
	MaxParts             int
	IsTruncated          bool
	Parts                []Part `xml:"Part"`
}

// Upload - in-progress multipart upload description
type Upload struct {
	Key          string
	UploadID     string `xml:"UploadId"`
	Initiator    Owner
	Owner        Owner
	StorageClass string
	Initiated    time.Time
}

// ListMultipartUploadsResult - GET /:bucket?uploads response
type ListMultipartUploadsResult struct {
	XMLName            xml.Name `xml:"http://s3.amazonaws.com/doc/2006-03-01/ ListMultipartUploadsResult"`
	Bucket             string
	KeyMarker          string
	UploadIDMarker     string `xml:"UploadIdMarker"`
	NextKeyMarker      string
	NextUploadIDMarker string `xml:"NextUploadIdMarker"`
	MaxUploads         int
	IsTruncated        bool
	Uploads            []Upload `xml:"Upload"`
	Prefix             string
	Delimiter          string         `xml:"Delimiter,omitempty"`
	CommonPrefixes     []CommonPrefix `xml:"CommonPrefixes,omitempty"`
}

// CompleteMultipartUpload - POST /:bucket/:key?uploadId request body
type CompleteMultipartUpload struct {
	XMLName xml.Name           `xml:"CompleteMultipartUpload"`
	Parts   []CompletedPartReq `xml:"Part"`
}

// CompletedPartReq - single part reference in a complete request
type CompletedPartReq struct {
	PartNumber int32
	ETag       string
}

// CompleteMultipartUploadResult - POST /:bucket/:key?uploadId response
type CompleteMultipartUploadResult struct {
	XMLName  xml.Name `xml:"http://s3.amazonaws.com/doc/2006-03-01/ CompleteMultipartUploadResult"`
	Location string
	Bucket   string
	Key      string
	ETag     string
}

// DeleteObjects - POST /:bucket?delete request body
type DeleteObjects struct {
	XMLName xml.Name      `xml:"Delete"`
	Quiet   bool          `xml:"Quiet"`
	Objects []ObjectToDel `xml:"Object"`
}

// ObjectToDel - single key in a multi-object delete request
type ObjectToDel struct {
	Key string `xml:"Key"`
}

// DeleteResult - POST /:bucket?delete response
type DeleteResult struct {
	XMLName xml.Name        `xml:"http://s3.amazonaws.com/doc/2006-03-01/ DeleteResult"`
	Deleted []DeletedObject `xml:"Deleted,omitempty"`
	Errors  []DeleteError   `xml:"Error,omitempty"`
}

// DeletedObject - successfully deleted key
type DeletedObject struct {
	Key string `xml:"Key"`
}

// DeleteError - per-key failure in a multi-object delete
type DeleteError struct {
	Key     string
	Code    string
	Message string
}
