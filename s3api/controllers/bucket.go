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

package controllers

import (
	"encoding/xml"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gofiber/fiber/v2"

	"github.com/arcstor/arcgw/auth"
	"github.com/arcstor/arcgw/s3api/utils"
	"github.com/arcstor/arcgw/s3err"
	"github.com/arcstor/arcgw/s3event"
	"github.com/arcstor/arcgw/s3response"
)

func (c S3ApiController) ListBuckets(ctx *fiber.Ctx) (*Response, error) {
	acct := utils.ContextKeyAccount.Get(ctx).(auth.Account)

	res, err := c.be.ListBuckets(ctx.Context(), acct.Access)
	return &Response{
		Data: res,
		MetaOpts: &MetaOptions{
			BucketOwner: acct.Access,
		},
	}, err
}

func (c S3ApiController) HeadBucket(ctx *fiber.Ctx) (*Response, error) {
	bucket := ctx.Params("bucket")

	err := c.be.HeadBucket(ctx.Context(), bucket)
	return &Response{
		MetaOpts: &MetaOptions{},
	}, err
}

func (c S3ApiController) CreateBucket(ctx *fiber.Ctx) (*Response, error) {
	bucket := ctx.Params("bucket")
	acct := utils.ContextKeyAccount.Get(ctx).(auth.Account)

	if !utils.IsValidBucketName(bucket) {
		return &Response{
			MetaOpts: &MetaOptions{},
		}, s3err.GetAPIError(s3err.ErrInvalidBucketName)
	}

	err := c.be.CreateBucket(ctx.Context(), bucket, acct.Access)
	location := "/" + bucket
	return &Response{
		Headers: map[string]*string{
			"Location": &location,
		},
		MetaOpts: &MetaOptions{
			BucketOwner: acct.Access,
		},
	}, err
}

func (c S3ApiController) DeleteBucket(ctx *fiber.Ctx) (*Response, error) {
	bucket := ctx.Params("bucket")

	err := c.be.DeleteBucket(ctx.Context(), bucket)
	return &Response{
		MetaOpts: &MetaOptions{
			Status: http.StatusNoContent,
		},
	}, err
}

func (c S3ApiController) GetBucketLocation(ctx *fiber.Ctx) (*Response, error) {
	bucket := ctx.Params("bucket")

	if err := c.be.HeadBucket(ctx.Context(), bucket); err != nil {
		return &Response{
			MetaOpts: &MetaOptions{},
		}, err
	}

	region := utils.ContextKeyRegion.String(ctx)
	// us-east-1 is represented as an empty constraint
	if region == "us-east-1" {
		region = ""
	}

	return &Response{
		Data: s3response.LocationResponse{
			Location: region,
		},
		MetaOpts: &MetaOptions{},
	}, nil
}

func (c S3ApiController) ListObjects(ctx *fiber.Ctx) (*Response, error) {
	bucket := ctx.Params("bucket")
	prefix := ctx.Query("prefix")
	marker := ctx.Query("marker")
	delimiter := ctx.Query("delimiter")
	maxkeysStr := ctx.Query("max-keys")

	maxkeys, err := utils.ParseUint(maxkeysStr)
	if err != nil {
		return &Response{
			MetaOpts: &MetaOptions{},
		}, s3err.GetAPIError(s3err.ErrInvalidMaxKeys)
	}

	res, err := c.be.ListObjects(ctx.Context(), &s3.ListObjectsInput{
		Bucket:    &bucket,
		Prefix:    &prefix,
		Marker:    &marker,
		Delimiter: &delimiter,
		MaxKeys:   &maxkeys,
	})
	return &Response{
		Data:     res,
		MetaOpts: &MetaOptions{},
	}, err
}

func (c S3ApiController) ListObjectsV2(ctx *fiber.Ctx) (*Response, error) {
	bucket := ctx.Params("bucket")
	prefix := ctx.Query("prefix")
	delimiter := ctx.Query("delimiter")
	startAfter := ctx.Query("start-after")
	token := ctx.Query("continuation-token")
	maxkeysStr := ctx.Query("max-keys")

	maxkeys, err := utils.ParseUint(maxkeysStr)
	if err != nil {
		return &Response{
			MetaOpts: &MetaOptions{},
		}, s3err.GetAPIError(s3err.ErrInvalidMaxKeys)
	}

	// the continuation token is opaque to clients but carries the
	// resume position for the backend: the last delivered key, or the
	// last common prefix when the page ended on one, so resume skips
	// the rest of that directory
	var resumeKey string
	if token != "" {
		marker, err := utils.DecodeContinuationToken(token)
		if err != nil {
			return &Response{
				MetaOpts: &MetaOptions{},
			}, s3err.GetAPIError(s3err.ErrInvalidContinuationToken)
		}
		resumeKey = marker.Key
		if marker.Directory != "" {
			resumeKey = marker.Directory
		}
	}

	res, err := c.be.ListObjectsV2(ctx.Context(), &s3.ListObjectsV2Input{
		Bucket:            &bucket,
		Prefix:            &prefix,
		Delimiter:         &delimiter,
		StartAfter:        &startAfter,
		ContinuationToken: &resumeKey,
		MaxKeys:           &maxkeys,
	})
	if err != nil {
		return &Response{
			MetaOpts: &MetaOptions{},
		}, err
	}

	// backends report the raw resume position, clients get the sealed token
	if res.NextContinuationToken != "" {
		res.NextContinuationToken = utils.EncodeContinuationToken(
			utils.ContinuationMarker{
				Key:       res.NextContinuationToken,
				Directory: res.NextDirectory,
			})
	}
	res.NextDirectory = ""
	res.ContinuationToken = token

	return &Response{
		Data:     res,
		MetaOpts: &MetaOptions{},
	}, nil
}

func (c S3ApiController) DeleteObjects(ctx *fiber.Ctx) (*Response, error) {
	bucket := ctx.Params("bucket")

	var dObj s3response.DeleteObjects
	if err := xml.Unmarshal(ctx.Body(), &dObj); err != nil {
		return &Response{
			MetaOpts: &MetaOptions{},
		}, s3err.GetAPIError(s3err.ErrMalformedXML)
	}

	res, err := c.be.DeleteObjects(ctx.Context(), bucket, dObj)
	return &Response{
		Data: res,
		MetaOpts: &MetaOptions{
			ObjectCount: int64(len(dObj.Objects)),
			EventName:   s3event.EventObjectRemovedDeleteObjects,
		},
	}, err
}

func (c S3ApiController) GetBucketTagging(ctx *fiber.Ctx) (*Response, error) {
	bucket := ctx.Params("bucket")

	tags, err := c.be.GetBucketTagging(ctx.Context(), bucket)
	if err != nil {
		return &Response{
			MetaOpts: &MetaOptions{},
		}, err
	}

	return &Response{
		Data:     tagsToResponse(tags),
		MetaOpts: &MetaOptions{},
	}, nil
}

func (c S3ApiController) PutBucketTagging(ctx *fiber.Ctx) (*Response, error) {
	bucket := ctx.Params("bucket")

	tags, err := parseTagging(ctx.Body(), tagLimitBucket)
	if err != nil {
		return &Response{
			MetaOpts: &MetaOptions{},
		}, err
	}

	err = c.be.PutBucketTagging(ctx.Context(), bucket, tags)
	return &Response{
		MetaOpts: &MetaOptions{
			Status: http.StatusNoContent,
		},
	}, err
}

func (c S3ApiController) DeleteBucketTagging(ctx *fiber.Ctx) (*Response, error) {
	bucket := ctx.Params("bucket")

	err := c.be.DeleteBucketTagging(ctx.Context(), bucket)
	return &Response{
		MetaOpts: &MetaOptions{
			Status: http.StatusNoContent,
		},
	}, err
}

func (c S3ApiController) GetBucketAcl(ctx *fiber.Ctx) (*Response, error) {
	bucket := ctx.Params("bucket")

	res, err := c.be.GetBucketAcl(ctx.Context(), bucket)
	return &Response{
		Data:     res,
		MetaOpts: &MetaOptions{},
	}, err
}

func (c S3ApiController) PutBucketAcl(ctx *fiber.Ctx) (*Response, error) {
	bucket := ctx.Params("bucket")

	var acl s3response.AccessControlPolicy
	if err := xml.Unmarshal(ctx.Body(), &acl); err != nil {
		return &Response{
			MetaOpts: &MetaOptions{},
		}, s3err.GetAPIError(s3err.ErrMalformedXML)
	}

	err := c.be.PutBucketAcl(ctx.Context(), bucket, acl)
	return &Response{
		MetaOpts: &MetaOptions{},
	}, err
}

func (c S3ApiController) ListMultipartUploads(ctx *fiber.Ctx) (*Response, error) {
	bucket := ctx.Params("bucket")
	prefix := ctx.Query("prefix")
	delimiter := ctx.Query("delimiter")
	maxUploadsStr := ctx.Query("max-uploads")

	maxUploads, err := utils.ParseUint(maxUploadsStr)
	if err != nil {
		return &Response{
			MetaOpts: &MetaOptions{},
		}, s3err.GetAPIError(s3err.ErrInvalidArgument)
	}

	res, err := c.be.ListMultipartUploads(ctx.Context(), bucket, prefix,
		delimiter, int(maxUploads))
	return &Response{
		Data:     res,
		MetaOpts: &MetaOptions{},
	}, err
}
