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

package s3log

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/arcstor/arcgw/auth"
	"github.com/arcstor/arcgw/s3api/utils"
	"github.com/arcstor/arcgw/s3err"
)

// AuditLogger records one entry per completed request. Implementations
// must be safe for concurrent use; fiber runs handlers on many
// goroutines.
type AuditLogger interface {
	Log(ctx *fiber.Ctx, err error, body []byte, meta LogMeta)
	Shutdown() error
}

type LogMeta struct {
	BucketOwner string
	ObjectSize  int64
	Action      string
	HttpStatus  int
}

type LogConfig struct {
	LogFile    string
	WebhookURL string
}

// LogFields is the access-log record, shaped after the s3 server
// access log format so existing log tooling parses it unchanged.
type LogFields struct {
	BucketOwner      string
	Bucket           string
	Time             time.Time
	RemoteIP         string
	Requester        string
	RequestID        string
	Operation        string
	Key              string
	RequestURI       string
	HttpStatus       int
	ErrorCode        string
	BytesSent        int
	ObjectSize       int64
	TotalTime        int64
	Referer          string
	UserAgent        string
	HostID           string
	SignatureVersion string
	HostHeader       string
}

// InitLogger builds the configured audit logger, or nil when access
// logging is disabled.
func InitLogger(cfg *LogConfig) (AuditLogger, error) {
	if cfg.WebhookURL != "" && cfg.LogFile != "" {
		return nil, fmt.Errorf("access log must be either file or webhook, not both")
	}

	switch {
	case cfg.WebhookURL != "":
		return InitWebhookLogger(cfg.WebhookURL)
	case cfg.LogFile != "":
		return InitFileLogger(cfg.LogFile)
	}
	return nil, nil
}

// collectFields assembles the common record shared by all logger
// implementations from the request annotations.
func collectFields(ctx *fiber.Ctx, err error, body []byte, meta LogMeta) LogFields {
	path := strings.Split(ctx.Path(), "/")
	var bucket, object string
	if len(path) > 1 {
		bucket = path[1]
		object = strings.Join(path[2:], "/")
	}

	httpStatus := meta.HttpStatus
	if httpStatus == 0 {
		httpStatus = fiber.StatusOK
	}
	errorCode := ""
	if err != nil {
		if serr, ok := err.(s3err.APIError); ok {
			errorCode = serr.Code
			httpStatus = serr.HTTPStatusCode
		} else {
			errorCode = err.Error()
			httpStatus = fiber.StatusInternalServerError
		}
	}

	requester := "-"
	if acct, ok := utils.ContextKeyAccount.Get(ctx).(auth.Account); ok {
		requester = acct.Access
	}

	startTime, ok := utils.ContextKeyStartTime.Get(ctx).(time.Time)
	if !ok {
		startTime = time.Now()
	}

	sigVersion := "-"
	if authData, ok := utils.ContextKeyAuthData.Get(ctx).(utils.AuthData); ok {
		switch authData.Version {
		case utils.SignatureV4:
			sigVersion = "SigV4"
		case utils.SignatureV2:
			sigVersion = "SigV2"
		}
	}

	return LogFields{
		BucketOwner:      meta.BucketOwner,
		Bucket:           bucket,
		Time:             time.Now(),
		RemoteIP:         utils.ContextKeyClientIP.String(ctx),
		Requester:        requester,
		RequestID:        utils.ContextKeyRequestID.String(ctx),
		Operation:        meta.Action,
		Key:              object,
		RequestURI:       ctx.OriginalURL(),
		HttpStatus:       httpStatus,
		ErrorCode:        errorCode,
		BytesSent:        len(body),
		ObjectSize:       meta.ObjectSize,
		TotalTime:        time.Since(startTime).Milliseconds(),
		Referer:          ctx.Get("Referer"),
		UserAgent:        ctx.Get("User-Agent"),
		HostID:           utils.ContextKeyHostID.String(ctx),
		SignatureVersion: sigVersion,
		HostHeader:       string(ctx.Request().Header.Host()),
	}
}
