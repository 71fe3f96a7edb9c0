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
	"bytes"
	"encoding/xml"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/arcstor/arcgw/s3api/utils"
	"github.com/arcstor/arcgw/s3err"
	"github.com/arcstor/arcgw/s3event"
	"github.com/arcstor/arcgw/s3response"
)

const maxPartNumber = 10000

func (c S3ApiController) CreateMultipartUpload(ctx *fiber.Ctx) (*Response, error) {
	bucket := ctx.Params("bucket")
	key := objectKey(ctx)
	contentType := ctx.Get(fiber.HeaderContentType)

	res, err := c.be.CreateMultipartUpload(ctx.Context(), bucket, key, contentType)
	return &Response{
		Data:     res,
		MetaOpts: &MetaOptions{},
	}, err
}

func (c S3ApiController) UploadPart(ctx *fiber.Ctx) (*Response, error) {
	bucket := ctx.Params("bucket")
	key := objectKey(ctx)
	uploadID := ctx.Query("uploadId")

	partNumber, err := strconv.ParseInt(ctx.Query("partNumber"), 10, 32)
	if err != nil || partNumber < 1 || partNumber > maxPartNumber {
		return &Response{
			MetaOpts: &MetaOptions{},
		}, s3err.GetAPIError(s3err.ErrInvalidPartNumber)
	}

	body := ctx.Body()
	etag, err := c.be.UploadPart(ctx.Context(), bucket, key, uploadID,
		int32(partNumber), bytes.NewReader(body))
	if err != nil {
		return &Response{
			MetaOpts: &MetaOptions{},
		}, err
	}

	return &Response{
		Headers: map[string]*string{
			"ETag": &etag,
		},
		MetaOpts: &MetaOptions{
			ContentLength: int64(len(body)),
		},
	}, nil
}

func (c S3ApiController) CompleteMultipartUpload(ctx *fiber.Ctx) (*Response, error) {
	bucket := ctx.Params("bucket")
	key := objectKey(ctx)
	uploadID := ctx.Query("uploadId")

	var parts s3response.CompleteMultipartUpload
	if err := xml.Unmarshal(ctx.Body(), &parts); err != nil {
		return &Response{
			MetaOpts: &MetaOptions{},
		}, s3err.GetAPIError(s3err.ErrMalformedXML)
	}
	if len(parts.Parts) == 0 {
		return &Response{
			MetaOpts: &MetaOptions{},
		}, s3err.GetAPIError(s3err.ErrMalformedXML)
	}

	// the parts list must arrive in ascending part number order
	for i := 1; i < len(parts.Parts); i++ {
		if parts.Parts[i].PartNumber <= parts.Parts[i-1].PartNumber {
			return &Response{
				MetaOpts: &MetaOptions{},
			}, s3err.GetAPIError(s3err.ErrInvalidPartOrder)
		}
	}

	res, err := c.be.CompleteMultipartUpload(ctx.Context(), bucket, key,
		uploadID, parts)
	if err != nil {
		return &Response{
			MetaOpts: &MetaOptions{},
		}, err
	}

	return &Response{
		Data: res,
		MetaOpts: &MetaOptions{
			ObjectETag: &res.ETag,
			EventName:  s3event.EventCompleteMultipartUpload,
		},
	}, nil
}

func (c S3ApiController) AbortMultipartUpload(ctx *fiber.Ctx) (*Response, error) {
	bucket := ctx.Params("bucket")
	key := objectKey(ctx)
	uploadID := ctx.Query("uploadId")

	err := c.be.AbortMultipartUpload(ctx.Context(), bucket, key, uploadID)
	return &Response{
		MetaOpts: &MetaOptions{
			Status: http.StatusNoContent,
		},
	}, err
}

func (c S3ApiController) ListParts(ctx *fiber.Ctx) (*Response, error) {
	bucket := ctx.Params("bucket")
	key := objectKey(ctx)
	uploadID := ctx.Query("uploadId")
	partNumberMarkerStr := ctx.Query("part-number-marker")

	var partNumberMarker int
	if partNumberMarkerStr != "" {
		var err error
		partNumberMarker, err = strconv.Atoi(partNumberMarkerStr)
		if err != nil || partNumberMarker < 0 {
			return &Response{
				MetaOpts: &MetaOptions{},
			}, s3err.GetAPIError(s3err.ErrInvalidArgument)
		}
	}

	maxParts, err := utils.ParseUint(ctx.Query("max-parts"))
	if err != nil {
		return &Response{
			MetaOpts: &MetaOptions{},
		}, s3err.GetAPIError(s3err.ErrInvalidMaxParts)
	}

	res, err := c.be.ListParts(ctx.Context(), bucket, key, uploadID,
		partNumberMarker, int(maxParts))
	return &Response{
		Data:     res,
		MetaOpts: &MetaOptions{},
	}, err
}
