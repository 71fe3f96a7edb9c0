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

package utils

import (
	"fmt"
	"net/netip"
	"regexp"
	"strconv"
)

var bucketNameRegexp = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

// IsValidBucketName checks the protocol bucket naming rules: 3 to 63
// characters of lowercase letters, digits, dots and hyphens, starting
// and ending alphanumeric, and never shaped like an IP address.
func IsValidBucketName(name string) bool {
	if !bucketNameRegexp.MatchString(name) {
		return false
	}
	if _, err := netip.ParseAddr(name); err == nil {
		return false
	}
	return true
}

// ParseUint parses query values that must be small non-negative
// integers, defaulting to 1000 when absent.
func ParseUint(str string) (int32, error) {
	if str == "" {
		return 1000, nil
	}
	num, err := strconv.ParseInt(str, 10, 32)
	if err != nil {
		return 1000, fmt.Errorf("invalid int: %w", err)
	}
	if num < 0 {
		return 1000, fmt.Errorf("negative uint: %v", num)
	}
	return int32(num), nil
}
