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
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
)

// WebhookLogger posts each access-log record as JSON to a remote
// collector. Delivery is fire and forget so a slow collector never
// stalls the request path.
type WebhookLogger struct {
	url    string
	client *http.Client
}

var _ AuditLogger = &WebhookLogger{}

func InitWebhookLogger(url string) (AuditLogger, error) {
	client := &http.Client{Timeout: 3 * time.Second}

	// probe once so a misconfigured url fails at startup
	_, err := client.Post(url, "application/json", nil)
	if nerr, ok := err.(net.Error); ok && !nerr.Timeout() {
		return nil, fmt.Errorf("unreachable webhook url: %w", err)
	}

	return &WebhookLogger{
		url:    url,
		client: &http.Client{Timeout: time.Second},
	}, nil
}

func (wl *WebhookLogger) Log(ctx *fiber.Ctx, err error, body []byte, meta LogMeta) {
	lf := collectFields(ctx, err, body, meta)

	jsonLog, jerr := json.Marshal(lf)
	if jerr != nil {
		fmt.Fprintf(os.Stderr, "encode access log: %v\n", jerr)
		return
	}

	go wl.send(jsonLog)
}

func (wl *WebhookLogger) send(payload []byte) {
	resp, err := wl.client.Post(wl.url, "application/json; charset=utf-8",
		bytes.NewReader(payload))
	if err != nil {
		if nerr, ok := err.(net.Error); ok && !nerr.Timeout() {
			fmt.Fprintf(os.Stderr, "send webhook log: %v\n", err)
		}
		return
	}
	resp.Body.Close()
}

func (wl *WebhookLogger) Shutdown() error {
	return nil
}
