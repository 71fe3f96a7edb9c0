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
	"fmt"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/arcstor/arcgw/backend"
	"github.com/arcstor/arcgw/s3err"
	"github.com/arcstor/arcgw/s3event"
)

func objectKey(ctx *fiber.Ctx) string {
	bucket := ctx.Params("bucket")
	return strings.TrimPrefix(ctx.Path(), fmt.Sprintf("/%s/", bucket))
}

func (c S3ApiController) PutObject(ctx *fiber.Ctx) (*Response, error) {
	bucket := ctx.Params("bucket")
	key := objectKey(ctx)
	contentType := ctx.Get(fiber.HeaderContentType)

	if key == "" {
		return &Response{
			MetaOpts: &MetaOptions{},
		}, s3err.GetAPIError(s3err.ErrInvalidObjectName)
	}

	body := ctx.Body()
	etag, err := c.be.PutObject(ctx.Context(), bucket, key, contentType,
		bytes.NewReader(body))
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
			ObjectSize:    int64(len(body)),
			ObjectETag:    &etag,
			EventName:     s3event.EventObjectCreatedPut,
		},
	}, nil
}

func (c S3ApiController) GetObject(ctx *fiber.Ctx) (*Response, error) {
	bucket := ctx.Params("bucket")
	key := objectKey(ctx)
	rangeHdr := ctx.Get(fiber.HeaderRange)

	meta, err := c.be.HeadObject(ctx.Context(), bucket, key)
	if err != nil {
		return &Response{
			MetaOpts: &MetaOptions{},
		}, err
	}

	start, end, readFull, err := backend.ParseObjectRange(meta.ContentLength, rangeHdr)
	if err != nil {
		return &Response{
			MetaOpts: &MetaOptions{},
		}, err
	}
	length := end - start + 1

	res, err := c.be.GetObject(ctx.Context(), bucket, key, start, length)
	if err != nil {
		return &Response{
			MetaOpts: &MetaOptions{},
		}, err
	}

	ctx.Response().Header.SetContentType(res.ContentType)
	ctx.Set("ETag", res.ETag)
	ctx.Set(fiber.HeaderLastModified, res.LastModified)
	ctx.Set(fiber.HeaderAcceptRanges, "bytes")

	status := http.StatusOK
	if !readFull {
		ctx.Set(fiber.HeaderContentRange,
			backend.ContentRange(start, end, meta.ContentLength))
		status = http.StatusPartialContent
	}

	ctx.Status(status)
	if err := ctx.SendStream(res.Body, int(length)); err != nil {
		return &Response{
			MetaOpts: &MetaOptions{},
		}, err
	}

	return &Response{
		MetaOpts: &MetaOptions{
			ContentLength: length,
			ObjectSize:    meta.ContentLength,
			Status:        status,
		},
	}, nil
}

func (c S3ApiController) HeadObject(ctx *fiber.Ctx) (*Response, error) {
	bucket := ctx.Params("bucket")
	key := objectKey(ctx)

	meta, err := c.be.HeadObject(ctx.Context(), bucket, key)
	if err != nil {
		return &Response{
			MetaOpts: &MetaOptions{},
		}, err
	}

	contentLength := fmt.Sprint(meta.ContentLength)
	acceptRanges := "bytes"
	return &Response{
		Headers: map[string]*string{
			"Content-Type":   &meta.ContentType,
			"Content-Length": &contentLength,
			"ETag":           &meta.ETag,
			"Last-Modified":  &meta.LastModified,
			"Accept-Ranges":  &acceptRanges,
		},
		MetaOpts: &MetaOptions{
			ObjectSize: meta.ContentLength,
		},
	}, nil
}

func (c S3ApiController) DeleteObject(ctx *fiber.Ctx) (*Response, error) {
	bucket := ctx.Params("bucket")
	key := objectKey(ctx)

	err := c.be.DeleteObject(ctx.Context(), bucket, key)
	return &Response{
		MetaOpts: &MetaOptions{
			Status:    http.StatusNoContent,
			EventName: s3event.EventObjectRemovedDelete,
		},
	}, err
}

func (c S3ApiController) GetObjectTagging(ctx *fiber.Ctx) (*Response, error) {
	bucket := ctx.Params("bucket")
	key := objectKey(ctx)

	tags, err := c.be.GetObjectTagging(ctx.Context(), bucket, key)
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

func (c S3ApiController) PutObjectTagging(ctx *fiber.Ctx) (*Response, error) {
	bucket := ctx.Params("bucket")
	key := objectKey(ctx)

	tags, err := parseTagging(ctx.Body(), tagLimitObject)
	if err != nil {
		return &Response{
			MetaOpts: &MetaOptions{},
		}, err
	}

	err = c.be.PutObjectTagging(ctx.Context(), bucket, key, tags)
	return &Response{
		MetaOpts: &MetaOptions{
			EventName: s3event.EventObjectTaggingPut,
		},
	}, err
}

func (c S3ApiController) DeleteObjectTagging(ctx *fiber.Ctx) (*Response, error) {
	bucket := ctx.Params("bucket")
	key := objectKey(ctx)

	err := c.be.DeleteObjectTagging(ctx.Context(), bucket, key)
	return &Response{
		MetaOpts: &MetaOptions{
			Status:    http.StatusNoContent,
			EventName: s3event.EventObjectTaggingDelete,
		},
	}, err
}
