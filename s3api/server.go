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
	"crypto/tls"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"

	"github.com/arcstor/arcgw/auth"
	"github.com/arcstor/arcgw/backend"
	"github.com/arcstor/arcgw/metrics"
	"github.com/arcstor/arcgw/s3api/middlewares"
	"github.com/arcstor/arcgw/s3api/pipeline"
	"github.com/arcstor/arcgw/s3event"
	"github.com/arcstor/arcgw/s3log"
)

// pipeline stage priorities; lower runs first
const (
	stageRequestID = 10
	stageNormalize = 20
	stageHostStyle = 30
	stageCompat    = 40
	stageAuth      = 50
)

type S3ApiServer struct {
	app            *fiber.App
	backend        backend.Backend
	router         *S3ApiRouter
	port           string
	cert           *tls.Certificate
	quiet          bool
	health         string
	virtualDomains []string
}

// New assembles the request pipeline and route table. Request stages
// run in priority order before dispatch and the first failing stage
// rejects the request; response stages always run.
func New(
	app *fiber.App,
	be backend.Backend,
	root middlewares.RootUserConfig,
	port, region string,
	iam auth.IAMService,
	l s3log.AuditLogger,
	evs s3event.S3EventSender,
	mm *metrics.Manager,
	opts ...Option,
) (*S3ApiServer, error) {
	server := &S3ApiServer{
		app:     app,
		backend: be,
		router: &S3ApiRouter{
			app:    app,
			be:     be,
			iam:    iam,
			logger: l,
			evs:    evs,
			mm:     mm,
		},
		port: port,
	}

	for _, opt := range opts {
		opt(server)
	}

	if !server.quiet {
		app.Use(logger.New(logger.Config{
			Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path} | ${error} | ${queryParams}\n",
		}))
	}
	if server.health != "" {
		app.Get(server.health, func(ctx *fiber.Ctx) error {
			return ctx.SendStatus(http.StatusOK)
		})
	}

	requestStages := []pipeline.RequestStage{
		{Name: "request-id", Priority: stageRequestID, Run: middlewares.AssignRequestID},
		{Name: "uri-normalize", Priority: stageNormalize, Run: middlewares.NormalizeURI},
		{Name: "compat", Priority: stageCompat, Run: middlewares.NormalizeCompatibility},
		{Name: "authentication", Priority: stageAuth, Run: middlewares.VerifyAuthentication(root, iam, region)},
	}
	if len(server.virtualDomains) > 0 {
		requestStages = append(requestStages, pipeline.RequestStage{
			Name:     "host-style",
			Priority: stageHostStyle,
			Run:      middlewares.HostStyleParser(server.virtualDomains),
		})
	}

	responseStages := []pipeline.ResponseStage{
		{Name: "amz-headers", Priority: 10, Run: middlewares.SetAmzResponseHeaders},
	}

	p, err := pipeline.New(requestStages, responseStages)
	if err != nil {
		return nil, err
	}
	app.Use(p.Handler())

	server.router.Init()

	return server, nil
}

// Option sets various options for New()
type Option func(*S3ApiServer)

// WithTLS sets TLS Credentials
func WithTLS(cert tls.Certificate) Option {
	return func(s *S3ApiServer) { s.cert = &cert }
}

// WithQuiet silences default logging output
func WithQuiet() Option {
	return func(s *S3ApiServer) { s.quiet = true }
}

// WithHealth sets up a GET health endpoint
func WithHealth(health string) Option {
	return func(s *S3ApiServer) { s.health = health }
}

// WithHostStyle enables host-style bucket addressing for the given
// virtual domain suffixes
func WithHostStyle(virtualDomains []string) Option {
	return func(s *S3ApiServer) { s.virtualDomains = virtualDomains }
}

func (sa *S3ApiServer) Serve() (err error) {
	if sa.cert != nil {
		return sa.app.ListenTLSWithCertificate(sa.port, *sa.cert)
	}
	return sa.app.Listen(sa.port)
}
