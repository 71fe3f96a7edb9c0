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

package s3event

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/arcstor/arcgw/s3response"
)

type WebhookEventSender struct {
	url    string
	client *http.Client
	filter EventFilter
}

func InitWebhookEventSender(url string, filter EventFilter) (S3EventSender, error) {
	if url == "" {
		return nil, fmt.Errorf("webhook url should be specified")
	}

	client := &http.Client{Timeout: time.Second}

	testEv, err := generateTestEvent()
	if err != nil {
		return nil, fmt.Errorf("webhook generate test event: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(testEv))
	if err != nil {
		return nil, fmt.Errorf("create webhook http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	_, err = client.Do(req)
	if nerr, ok := err.(net.Error); ok && !nerr.Timeout() {
		return nil, fmt.Errorf("send webhook test event: %w", err)
	}

	return &WebhookEventSender{
		url:    url,
		client: &http.Client{Timeout: 3 * time.Second},
		filter: filter,
	}, nil
}

func (w *WebhookEventSender) SendEvent(ctx *fiber.Ctx, meta EventMeta) {
	if w.filter != nil && !w.filter.Filter(meta.EventName) {
		return
	}

	if meta.EventName == EventObjectRemovedDeleteObjects {
		var dObj s3response.DeleteObjects
		if err := xml.Unmarshal(ctx.Body(), &dObj); err != nil {
			fmt.Fprintf(os.Stderr, "failed to parse delete objects input payload: %v\n", err)
			return
		}
		// per object records, delivery order is not guaranteed
		for _, obj := range dObj.Objects {
			schema := createEventSchema(ctx, meta, ConfigurationIdWebhook)
			schema.Records[0].S3.Object.Key = obj.Key
			go w.send(schema)
		}
		return
	}

	schema := createEventSchema(ctx, meta, ConfigurationIdWebhook)
	go w.send(schema)
}

func (w *WebhookEventSender) Close() error {
	return nil
}

func (w *WebhookEventSender) send(event EventSchema) {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to marshal event data: %v\n", err)
		return
	}

	req, err := http.NewRequest(http.MethodPost, w.url, bytes.NewReader(eventBytes))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create webhook event request: %v\n", err)
		return
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := w.client.Do(req)
	if err != nil {
		if nerr, ok := err.(net.Error); ok && !nerr.Timeout() {
			fmt.Fprintf(os.Stderr, "failed to send webhook event: %v\n", err)
		}
		return
	}
	resp.Body.Close()
}
