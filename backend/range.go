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

package backend

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/arcstor/arcgw/s3err"
)

// ParseObjectRange parses a single HTTP byte range against an object of
// the given size and returns the inclusive [start, end] pair. readFull
// reports whether the whole object is requested. Multi-range requests
// are not supported.
func ParseObjectRange(size int64, header string) (start, end int64, readFull bool, err error) {
	if header == "" {
		return 0, size - 1, true, nil
	}

	spec, found := strings.CutPrefix(header, "bytes=")
	if !found || strings.Contains(spec, ",") {
		return 0, 0, false, s3err.GetAPIError(s3err.ErrInvalidRange)
	}

	startStr, endStr, found := strings.Cut(spec, "-")
	if !found {
		return 0, 0, false, s3err.GetAPIError(s3err.ErrInvalidRange)
	}

	// suffix form: bytes=-N means the final N bytes
	if startStr == "" {
		suffixLen, perr := strconv.ParseInt(endStr, 10, 64)
		if perr != nil || suffixLen <= 0 {
			return 0, 0, false, s3err.GetAPIError(s3err.ErrInvalidRange)
		}
		if suffixLen >= size {
			return 0, size - 1, true, nil
		}
		return size - suffixLen, size - 1, false, nil
	}

	start, perr := strconv.ParseInt(startStr, 10, 64)
	if perr != nil || start < 0 || start >= size {
		return 0, 0, false, s3err.GetAPIError(s3err.ErrInvalidRange)
	}

	if endStr == "" {
		return start, size - 1, start == 0, nil
	}

	end, perr = strconv.ParseInt(endStr, 10, 64)
	if perr != nil || end < start {
		return 0, 0, false, s3err.GetAPIError(s3err.ErrInvalidRange)
	}
	if end >= size {
		end = size - 1
	}

	return start, end, start == 0 && end == size-1, nil
}

// ContentRange formats the Content-Range response header value for a
// partial object read.
func ContentRange(start, end, size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", start, end, size)
}
