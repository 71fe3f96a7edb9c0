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

package pipeline

import (
	"io"
	"net/http"
	"reflect"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/arcstor/arcgw/s3err"
)

func TestNewOrdersByPriority(t *testing.T) {
	p, err := New([]RequestStage{
		{Name: "auth", Priority: 50, Run: func(*fiber.Ctx) error { return nil }},
		{Name: "request-id", Priority: 10, Run: func(*fiber.Ctx) error { return nil }},
		{Name: "normalize", Priority: 20, Run: func(*fiber.Ctx) error { return nil }},
	}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	want := []string{"request-id", "normalize", "auth"}
	if got := p.RequestStageNames(); !reflect.DeepEqual(got, want) {
		t.Errorf("RequestStageNames() = %v, want %v", got, want)
	}
}

func TestNewPriorityTiesKeepRegistrationOrder(t *testing.T) {
	p, err := New([]RequestStage{
		{Name: "first", Priority: 10, Run: func(*fiber.Ctx) error { return nil }},
		{Name: "second", Priority: 10, Run: func(*fiber.Ctx) error { return nil }},
	}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	want := []string{"first", "second"}
	if got := p.RequestStageNames(); !reflect.DeepEqual(got, want) {
		t.Errorf("RequestStageNames() = %v, want %v", got, want)
	}
}

func TestNewRejectsDuplicateNames(t *testing.T) {
	_, err := New([]RequestStage{
		{Name: "auth", Priority: 10, Run: func(*fiber.Ctx) error { return nil }},
		{Name: "auth", Priority: 20, Run: func(*fiber.Ctx) error { return nil }},
	}, nil)
	if err == nil {
		t.Error("New() expected duplicate request stage error")
	}

	_, err = New(nil, []ResponseStage{
		{Name: "headers", Priority: 10, Run: func(*fiber.Ctx) {}},
		{Name: "headers", Priority: 20, Run: func(*fiber.Ctx) {}},
	})
	if err == nil {
		t.Error("New() expected duplicate response stage error")
	}
}

func TestHandlerRunsStagesAroundDispatch(t *testing.T) {
	var order []string

	p, err := New([]RequestStage{
		{Name: "second", Priority: 20, Run: func(*fiber.Ctx) error {
			order = append(order, "second")
			return nil
		}},
		{Name: "first", Priority: 10, Run: func(*fiber.Ctx) error {
			order = append(order, "first")
			return nil
		}},
	}, []ResponseStage{
		{Name: "after", Priority: 10, Run: func(*fiber.Ctx) {
			order = append(order, "after")
		}},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	app := fiber.New()
	app.Use(p.Handler())
	app.Get("/", func(ctx *fiber.Ctx) error {
		order = append(order, "handler")
		return ctx.SendStatus(http.StatusOK)
	})

	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %v, want 200", resp.StatusCode)
	}

	want := []string{"first", "second", "handler", "after"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("execution order = %v, want %v", order, want)
	}
}

func TestHandlerShortCircuitsOnStageError(t *testing.T) {
	var order []string

	p, err := New([]RequestStage{
		{Name: "reject", Priority: 10, Run: func(*fiber.Ctx) error {
			order = append(order, "reject")
			return s3err.GetAPIError(s3err.ErrAccessDenied)
		}},
		{Name: "never", Priority: 20, Run: func(*fiber.Ctx) error {
			order = append(order, "never")
			return nil
		}},
	}, []ResponseStage{
		{Name: "always", Priority: 10, Run: func(ctx *fiber.Ctx) {
			order = append(order, "always")
			ctx.Set("X-Test-Terminal", "ran")
		}},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	app := fiber.New()
	app.Use(p.Handler())
	app.Get("/", func(*fiber.Ctx) error {
		order = append(order, "handler")
		return nil
	})

	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}

	apiErr := s3err.GetAPIError(s3err.ErrAccessDenied)
	if resp.StatusCode != apiErr.HTTPStatusCode {
		t.Errorf("status = %v, want %v", resp.StatusCode, apiErr.HTTPStatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "<Code>AccessDenied</Code>") {
		t.Errorf("body missing error code: %s", body)
	}

	// response stages still run on failures
	if resp.Header.Get("X-Test-Terminal") != "ran" {
		t.Error("response stage did not run on request stage failure")
	}

	want := []string{"reject", "always"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("execution order = %v, want %v", order, want)
	}
}

func TestHandlerMapsUnclassifiedErrors(t *testing.T) {
	p, err := New([]RequestStage{
		{Name: "boom", Priority: 10, Run: func(*fiber.Ctx) error {
			return io.ErrUnexpectedEOF
		}},
	}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	app := fiber.New()
	app.Use(p.Handler())
	app.Get("/", func(*fiber.Ctx) error { return nil })

	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %v, want 500", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "<Code>InternalError</Code>") {
		t.Errorf("body missing InternalError code: %s", body)
	}
	if strings.Contains(string(body), "unexpected EOF") {
		t.Errorf("backend detail leaked to client: %s", body)
	}
}
