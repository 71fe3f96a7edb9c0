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
	"os"
	"sync"

	"github.com/gofiber/fiber/v2"
)

const (
	logFileMode = 0600
	timeFormat  = "02/January/2006:15:04:05 -0700"
)

// FileLogger appends one access-log line per request to a local file.
type FileLogger struct {
	mu   sync.Mutex
	file *os.File
}

var _ AuditLogger = &FileLogger{}

func InitFileLogger(path string) (AuditLogger, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, logFileMode)
	if err != nil {
		return nil, fmt.Errorf("open access log: %w", err)
	}
	return &FileLogger{file: file}, nil
}

func (f *FileLogger) Log(ctx *fiber.Ctx, err error, body []byte, meta LogMeta) {
	lf := collectFields(ctx, err, body, meta)

	line := fmt.Sprintf("%v %v [%v] %v %v %v %v %v %q %v %v %v %v %v %q %q %v %v %q\n",
		dash(lf.BucketOwner),
		dash(lf.Bucket),
		lf.Time.Format(timeFormat),
		dash(lf.RemoteIP),
		dash(lf.Requester),
		dash(lf.RequestID),
		dash(lf.Operation),
		dash(lf.Key),
		lf.RequestURI,
		lf.HttpStatus,
		dash(lf.ErrorCode),
		lf.BytesSent,
		lf.ObjectSize,
		lf.TotalTime,
		lf.Referer,
		lf.UserAgent,
		dash(lf.HostID),
		dash(lf.SignatureVersion),
		lf.HostHeader,
	)

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, werr := f.file.WriteString(line); werr != nil {
		fmt.Fprintf(os.Stderr, "write access log: %v\n", werr)
	}
}

func (f *FileLogger) Shutdown() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.file.Close()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
