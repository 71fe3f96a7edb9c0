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
	"fmt"
	"net/http"
	"os"

	"github.com/gofiber/fiber/v2"

	"github.com/arcstor/arcgw/auth"
	"github.com/arcstor/arcgw/backend"
	"github.com/arcstor/arcgw/metrics"
	"github.com/arcstor/arcgw/s3api/utils"
	"github.com/arcstor/arcgw/s3err"
	"github.com/arcstor/arcgw/s3event"
	"github.com/arcstor/arcgw/s3log"
)

// S3ApiController carries the storage backend and identity service
// shared by all operation handlers.
type S3ApiController struct {
	be  backend.Backend
	iam auth.IAMService
}

const (
	maxXMLBodyLen = 4 * 1024 * 1024
)

var xmlhdr = []byte(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")

func New(be backend.Backend, iam auth.IAMService) S3ApiController {
	return S3ApiController{
		be:  be,
		iam: iam,
	}
}

// HandleUnmatch returns MethodNotAllowed for unmatched routes
func (c S3ApiController) HandleUnmatch(ctx *fiber.Ctx) (*Response, error) {
	return &Response{}, s3err.GetAPIError(s3err.ErrMethodNotAllowed)
}

// HandleNotImplemented rejects recognized but unsupported subresources
// so clients get a protocol error instead of a silently wrong answer.
func (c S3ApiController) HandleNotImplemented(ctx *fiber.Ctx) (*Response, error) {
	return &Response{}, s3err.GetAPIError(s3err.ErrNotImplemented)
}

// MetaOptions is the per-operation metadata handed back by handlers
// for metrics, audit logs and bucket notifications.
type MetaOptions struct {
	BucketOwner   string
	ContentLength int64
	ObjectSize    int64
	ObjectCount   int64
	EventName     s3event.EventType
	ObjectETag    *string
	Status        int
}

// Response is a controller result.
// Data - response body, XML-encoded unless already []byte
// Headers - response headers
// MetaOpts - metadata for metrics, audit logs and events
type Response struct {
	Data     any
	Headers  map[string]*string
	MetaOpts *MetaOptions
}

// Services groups the audit logger, event sender and metrics manager
type Services struct {
	Logger         s3log.AuditLogger
	EventSender    s3event.S3EventSender
	MetricsManager *metrics.Manager
}

// Controller is the handler signature for one dispatched operation
type Controller func(ctx *fiber.Ctx) (*Response, error)

// ProcessHandlers groups a controller and its route-local middlewares
// into a single fiber handler. A route discriminator that set the skip
// annotation hands the request to the next registered route.
func ProcessHandlers(controller Controller, s3action string, svc *Services, handlers ...fiber.Handler) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		if utils.ContextKeySkip.IsSet(ctx) {
			utils.ContextKeySkip.Delete(ctx)
			return ctx.Next()
		}

		for _, handler := range handlers {
			err := handler(ctx)
			if err != nil {
				return ProcessController(ctx, func(ctx *fiber.Ctx) (*Response, error) {
					return &Response{
						MetaOpts: &MetaOptions{},
					}, err
				}, s3action, svc)
			}
		}

		return ProcessController(ctx, controller, s3action, svc)
	}
}

// SetResponseHeaders applies controller-provided headers, skipping
// unset values.
func SetResponseHeaders(ctx *fiber.Ctx, headers map[string]*string) {
	for key, val := range headers {
		if val != nil {
			ctx.Set(key, *val)
		}
	}
}

// ProcessController executes the operation handler and takes care of
// the terminal concerns: response encoding, the error envelope,
// metrics, audit logs and bucket notifications.
func ProcessController(ctx *fiber.Ctx, controller Controller, s3action string, svc *Services) error {
	response, err := controller(ctx)
	if response == nil {
		response = &Response{}
	}

	SetResponseHeaders(ctx, response.Headers)

	opts := response.MetaOpts
	if opts == nil {
		opts = &MetaOptions{}
	}

	if svc.MetricsManager != nil {
		if opts.ObjectCount > 0 {
			svc.MetricsManager.Send(err, s3action, opts.ContentLength, opts.ObjectCount)
		} else {
			svc.MetricsManager.Send(err, s3action, opts.ContentLength, 0)
		}
	}

	if err != nil {
		if svc.Logger != nil {
			svc.Logger.Log(ctx, err, nil, s3log.LogMeta{
				Action:      s3action,
				BucketOwner: opts.BucketOwner,
				ObjectSize:  opts.ObjectSize,
			})
		}
		return sendErrorResponse(ctx, err)
	}

	if opts.Status == 0 {
		opts.Status = http.StatusOK
	}

	if response.Data == nil {
		ctx.Status(opts.Status)
		logAndNotify(ctx, svc, s3action, opts, nil)
		return nil
	}

	// handle already encoded responses (raw text, json)
	if encodedResp, ok := response.Data.([]byte); ok {
		if len(encodedResp) > 0 {
			ctx.Response().Header.Set("Content-Length", fmt.Sprint(len(encodedResp)))
		}
		ctx.Status(opts.Status)
		logAndNotify(ctx, svc, s3action, opts, encodedResp)
		return ctx.Send(encodedResp)
	}

	responseBytes, err := xml.Marshal(response.Data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "encode response for %v: %v\n", s3action, err)
		return sendErrorResponse(ctx, s3err.GetAPIError(s3err.ErrInternalError))
	}

	msglen := len(xmlhdr) + len(responseBytes)
	if msglen > maxXMLBodyLen {
		return sendErrorResponse(ctx, s3err.GetAPIError(s3err.ErrInternalError))
	}

	res := make([]byte, 0, msglen)
	res = append(res, xmlhdr...)
	res = append(res, responseBytes...)

	ctx.Response().Header.Set("Content-Length", fmt.Sprint(len(res)))
	ctx.Response().Header.SetContentType(fiber.MIMEApplicationXML)
	ctx.Status(opts.Status)

	logAndNotify(ctx, svc, s3action, opts, res)
	return ctx.Send(res)
}

func logAndNotify(ctx *fiber.Ctx, svc *Services, s3action string, opts *MetaOptions, body []byte) {
	if svc.Logger != nil {
		svc.Logger.Log(ctx, nil, body, s3log.LogMeta{
			Action:      s3action,
			BucketOwner: opts.BucketOwner,
			ObjectSize:  opts.ObjectSize,
			HttpStatus:  opts.Status,
		})
	}

	if svc.EventSender != nil && opts.EventName != "" {
		svc.EventSender.SendEvent(ctx, s3event.EventMeta{
			BucketOwner: opts.BucketOwner,
			ObjectSize:  opts.ObjectSize,
			ObjectETag:  opts.ObjectETag,
			EventName:   opts.EventName,
		})
	}
}

// sendErrorResponse writes the protocol error envelope. The request id
// assigned on arrival is echoed so clients can correlate failures.
func sendErrorResponse(ctx *fiber.Ctx, err error) error {
	serr, ok := err.(s3err.APIError)
	if !ok {
		fmt.Fprintf(os.Stderr, "Internal Error, %v\n", err)
		serr = s3err.GetAPIError(s3err.ErrInternalError)
	}

	ctx.Status(serr.HTTPStatusCode)
	ctx.Response().Header.SetContentType(fiber.MIMEApplicationXML)
	return ctx.Send(s3err.GetAPIErrorResponse(serr, ctx.Path(),
		utils.ContextKeyRequestID.String(ctx)))
}
