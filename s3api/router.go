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
	"github.com/gofiber/fiber/v2"

	"github.com/arcstor/arcgw/auth"
	"github.com/arcstor/arcgw/backend"
	"github.com/arcstor/arcgw/metrics"
	"github.com/arcstor/arcgw/s3api/controllers"
	"github.com/arcstor/arcgw/s3api/middlewares"
	"github.com/arcstor/arcgw/s3event"
	"github.com/arcstor/arcgw/s3log"
)

// S3ApiRouter registers the operation route table. Routes share the
// same method and path pattern, so query discriminators decide which
// route claims a request: subresource routes are registered before
// the defaults and evaluation follows registration order.
type S3ApiRouter struct {
	app    *fiber.App
	be     backend.Backend
	iam    auth.IAMService
	logger s3log.AuditLogger
	evs    s3event.S3EventSender
	mm     *metrics.Manager
	Ctrl   controllers.S3ApiController
}

// recognized but unsupported bucket subresources, rejected with
// NotImplemented rather than falling through to the listing routes
var unsupportedBucketSubresources = []string{
	"policy", "versioning", "versions", "cors", "lifecycle", "encryption",
	"object-lock", "replication", "website", "logging", "notification",
	"requestPayment", "ownershipControls", "intelligent-tiering",
	"inventory", "analytics", "metrics", "accelerate", "publicAccessBlock",
}

// recognized but unsupported object subresources
var unsupportedObjectSubresources = []string{
	"retention", "legal-hold", "restore", "torrent", "attributes",
}

func (sa *S3ApiRouter) Init() {
	ctrl := controllers.New(sa.be, sa.iam)
	sa.Ctrl = ctrl

	svc := &controllers.Services{
		Logger:         sa.logger,
		EventSender:    sa.evs,
		MetricsManager: sa.mm,
	}

	app := sa.app

	// ListBuckets
	app.Get("/",
		controllers.ProcessHandlers(ctrl.ListBuckets, metrics.ActionListAllMyBuckets, svc))

	// HeadBucket
	app.Head("/:bucket",
		controllers.ProcessHandlers(ctrl.HeadBucket, metrics.ActionHeadBucket, svc))

	// bucket subresource reads, ahead of the listing defaults
	app.Get("/:bucket",
		middlewares.MatchQueryArgs("location"),
		controllers.ProcessHandlers(ctrl.GetBucketLocation, metrics.ActionGetBucketLocation, svc))
	app.Get("/:bucket",
		middlewares.MatchQueryArgs("tagging"),
		controllers.ProcessHandlers(ctrl.GetBucketTagging, metrics.ActionGetBucketTagging, svc))
	app.Get("/:bucket",
		middlewares.MatchQueryArgs("acl"),
		controllers.ProcessHandlers(ctrl.GetBucketAcl, metrics.ActionGetBucketAcl, svc))
	app.Get("/:bucket",
		middlewares.MatchQueryArgs("uploads"),
		controllers.ProcessHandlers(ctrl.ListMultipartUploads, metrics.ActionListMultipartUploads, svc))

	for _, subresource := range unsupportedBucketSubresources {
		app.Get("/:bucket",
			middlewares.MatchQueryArgs(subresource),
			controllers.ProcessHandlers(ctrl.HandleNotImplemented, metrics.ActionNotImplemented, svc))
		app.Put("/:bucket",
			middlewares.MatchQueryArgs(subresource),
			controllers.ProcessHandlers(ctrl.HandleNotImplemented, metrics.ActionNotImplemented, svc))
		app.Delete("/:bucket",
			middlewares.MatchQueryArgs(subresource),
			controllers.ProcessHandlers(ctrl.HandleNotImplemented, metrics.ActionNotImplemented, svc))
	}

	// ListObjectsV2 and the ListObjects default
	app.Get("/:bucket",
		middlewares.MatchQueryArgWithValue("list-type", "2"),
		controllers.ProcessHandlers(ctrl.ListObjectsV2, metrics.ActionListObjectsV2, svc))
	app.Get("/:bucket",
		controllers.ProcessHandlers(ctrl.ListObjects, metrics.ActionListObjects, svc))

	// bucket subresource writes ahead of CreateBucket
	app.Put("/:bucket",
		middlewares.MatchQueryArgs("tagging"),
		controllers.ProcessHandlers(ctrl.PutBucketTagging, metrics.ActionPutBucketTagging, svc))
	app.Put("/:bucket",
		middlewares.MatchQueryArgs("acl"),
		controllers.ProcessHandlers(ctrl.PutBucketAcl, metrics.ActionPutBucketAcl, svc))
	app.Put("/:bucket",
		controllers.ProcessHandlers(ctrl.CreateBucket, metrics.ActionCreateBucket, svc))

	app.Delete("/:bucket",
		middlewares.MatchQueryArgs("tagging"),
		controllers.ProcessHandlers(ctrl.DeleteBucketTagging, metrics.ActionDeleteBucketTagging, svc))
	app.Delete("/:bucket",
		controllers.ProcessHandlers(ctrl.DeleteBucket, metrics.ActionDeleteBucket, svc))

	// DeleteObjects
	app.Post("/:bucket",
		middlewares.MatchQueryArgs("delete"),
		controllers.ProcessHandlers(ctrl.DeleteObjects, metrics.ActionDeleteObjects, svc))

	// object subresources ahead of the object defaults
	for _, subresource := range unsupportedObjectSubresources {
		app.Get("/:bucket/*",
			middlewares.MatchQueryArgs(subresource),
			controllers.ProcessHandlers(ctrl.HandleNotImplemented, metrics.ActionNotImplemented, svc))
		app.Put("/:bucket/*",
			middlewares.MatchQueryArgs(subresource),
			controllers.ProcessHandlers(ctrl.HandleNotImplemented, metrics.ActionNotImplemented, svc))
	}

	app.Get("/:bucket/*",
		middlewares.MatchQueryArgs("tagging"),
		controllers.ProcessHandlers(ctrl.GetObjectTagging, metrics.ActionGetObjectTagging, svc))
	app.Get("/:bucket/*",
		middlewares.MatchQueryArgs("uploadId"),
		controllers.ProcessHandlers(ctrl.ListParts, metrics.ActionListParts, svc))
	app.Get("/:bucket/*",
		controllers.ProcessHandlers(ctrl.GetObject, metrics.ActionGetObject, svc))

	app.Head("/:bucket/*",
		controllers.ProcessHandlers(ctrl.HeadObject, metrics.ActionHeadObject, svc))

	app.Put("/:bucket/*",
		middlewares.MatchQueryArgs("tagging"),
		controllers.ProcessHandlers(ctrl.PutObjectTagging, metrics.ActionPutObjectTagging, svc))
	app.Put("/:bucket/*",
		middlewares.MatchQueryArgs("uploadId", "partNumber"),
		controllers.ProcessHandlers(ctrl.UploadPart, metrics.ActionUploadPart, svc))
	app.Put("/:bucket/*",
		controllers.ProcessHandlers(ctrl.PutObject, metrics.ActionPutObject, svc))

	app.Post("/:bucket/*",
		middlewares.MatchQueryArgs("uploads"),
		controllers.ProcessHandlers(ctrl.CreateMultipartUpload, metrics.ActionCreateMultipartUpload, svc))
	app.Post("/:bucket/*",
		middlewares.MatchQueryArgs("uploadId"),
		controllers.ProcessHandlers(ctrl.CompleteMultipartUpload, metrics.ActionCompleteMultipartUpload, svc))

	app.Delete("/:bucket/*",
		middlewares.MatchQueryArgs("tagging"),
		controllers.ProcessHandlers(ctrl.DeleteObjectTagging, metrics.ActionDeleteObjectTagging, svc))
	app.Delete("/:bucket/*",
		middlewares.MatchQueryArgs("uploadId"),
		controllers.ProcessHandlers(ctrl.AbortMultipartUpload, metrics.ActionAbortMultipartUpload, svc))
	app.Delete("/:bucket/*",
		controllers.ProcessHandlers(ctrl.DeleteObject, metrics.ActionDeleteObject, svc))

	// unmatched methods and paths
	app.All("/*",
		controllers.ProcessHandlers(ctrl.HandleUnmatch, metrics.ActionUndetected, svc))
}
