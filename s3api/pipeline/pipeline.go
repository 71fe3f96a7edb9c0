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

// Package pipeline orders per-request processing stages ahead of and
// behind route dispatch. Stages are registered once at startup with an
// explicit priority; the executor runs request stages in ascending
// priority order, short-circuits on the first failure, and always runs
// the response stages so terminal concerns (request-id headers, access
// logging) apply to error responses too.
package pipeline

import (
	"fmt"
	"sort"

	"github.com/gofiber/fiber/v2"

	"github.com/arcstor/arcgw/s3api/utils"
	"github.com/arcstor/arcgw/s3err"
)

// RequestStage runs before dispatch. Returning an error stops the
// remaining request stages and the route handler; the executor writes
// the error envelope itself.
type RequestStage struct {
	Name     string
	Priority int
	Run      func(ctx *fiber.Ctx) error
}

// ResponseStage runs after the response body has been produced,
// whether dispatch succeeded or a request stage failed.
type ResponseStage struct {
	Name     string
	Priority int
	Run      func(ctx *fiber.Ctx)
}

// Pipeline is an immutable, priority-ordered stage registry. Build it
// once with New before the server starts accepting requests.
type Pipeline struct {
	request  []RequestStage
	response []ResponseStage
}

// New validates and orders the stages. Stage names must be unique
// within each direction; priority ties keep registration order.
func New(request []RequestStage, response []ResponseStage) (*Pipeline, error) {
	names := map[string]bool{}
	for _, s := range request {
		if names[s.Name] {
			return nil, fmt.Errorf("duplicate request stage %q", s.Name)
		}
		names[s.Name] = true
	}
	names = map[string]bool{}
	for _, s := range response {
		if names[s.Name] {
			return nil, fmt.Errorf("duplicate response stage %q", s.Name)
		}
		names[s.Name] = true
	}

	p := &Pipeline{
		request:  append([]RequestStage(nil), request...),
		response: append([]ResponseStage(nil), response...),
	}
	sort.SliceStable(p.request, func(i, j int) bool {
		return p.request[i].Priority < p.request[j].Priority
	})
	sort.SliceStable(p.response, func(i, j int) bool {
		return p.response[i].Priority < p.response[j].Priority
	})
	return p, nil
}

// RequestStageNames returns the ordered request stage names.
func (p *Pipeline) RequestStageNames() []string {
	names := make([]string, len(p.request))
	for i, s := range p.request {
		names[i] = s.Name
	}
	return names
}

// Handler adapts the pipeline to a single middleware: request stages,
// then the matched route via Next, then response stages.
func (p *Pipeline) Handler() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := p.runRequest(ctx)
		if err == nil {
			err = ctx.Next()
		}
		if err != nil {
			writeErrorEnvelope(ctx, err)
		}

		for _, stage := range p.response {
			stage.Run(ctx)
		}
		return nil
	}
}

func (p *Pipeline) runRequest(ctx *fiber.Ctx) error {
	for _, stage := range p.request {
		if err := stage.Run(ctx); err != nil {
			return err
		}
	}
	return nil
}

// writeErrorEnvelope serializes the failure as the protocol's XML
// error document. Unclassified errors map to InternalError so backend
// details never leak to clients.
func writeErrorEnvelope(ctx *fiber.Ctx, err error) {
	apiErr, ok := err.(s3err.APIError)
	if !ok {
		apiErr = s3err.GetAPIError(s3err.ErrInternalError)
	}

	resp := s3err.GetAPIErrorResponse(apiErr, ctx.Path(),
		utils.ContextKeyRequestID.String(ctx))
	ctx.Status(apiErr.HTTPStatusCode)
	ctx.Response().Header.SetContentType(fiber.MIMEApplicationXML)
	ctx.Write(resp)
}
