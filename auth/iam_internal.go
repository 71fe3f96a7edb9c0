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

package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

const iamFile = "users.json"

// IAMServiceInternal manages the internal IAM service backed by a JSON
// file in the gateway data directory. All mutations rewrite the file
// atomically via rename.
type IAMServiceInternal struct {
	mu   sync.RWMutex
	dir  string
	accs map[string]Account
}

var _ IAMService = &IAMServiceInternal{}

// NewInternal initializes the file backed IAM service in the given
// directory, loading any previously stored accounts.
func NewInternal(dir string) (*IAMServiceInternal, error) {
	i := &IAMServiceInternal{
		dir:  dir,
		accs: map[string]Account{},
	}

	b, err := os.ReadFile(filepath.Join(dir, iamFile))
	if errors.Is(err, fs.ErrNotExist) {
		return i, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read iam store: %w", err)
	}

	if err := json.Unmarshal(b, &i.accs); err != nil {
		return nil, fmt.Errorf("parse iam store: %w", err)
	}

	return i, nil
}

// CreateAccount adds a new account to the internal IAM store
func (i *IAMServiceInternal) CreateAccount(account Account) error {
	if err := validateAccount(account); err != nil {
		return err
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	if _, ok := i.accs[account.Access]; ok {
		return ErrUserExists
	}
	i.accs[account.Access] = account

	return i.storeLocked()
}

// GetUserAccount retrieves the account for the given access key id
func (i *IAMServiceInternal) GetUserAccount(access string) (Account, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	acc, ok := i.accs[access]
	if !ok {
		return Account{}, ErrNoSuchUser
	}

	return acc, nil
}

// DeleteUserAccount removes the account for the given access key id
func (i *IAMServiceInternal) DeleteUserAccount(access string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if _, ok := i.accs[access]; !ok {
		return ErrNoSuchUser
	}
	delete(i.accs, access)

	return i.storeLocked()
}

// ListUserAccounts lists all stored accounts sorted by access key id
func (i *IAMServiceInternal) ListUserAccounts() ([]Account, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	accs := make([]Account, 0, len(i.accs))
	for _, acc := range i.accs {
		accs = append(accs, acc)
	}
	sort.Slice(accs, func(a, b int) bool {
		return accs[a].Access < accs[b].Access
	})

	return accs, nil
}

// Shutdown graceful termination of service
func (i *IAMServiceInternal) Shutdown() error {
	return nil
}

func (i *IAMServiceInternal) storeLocked() error {
	b, err := json.Marshal(i.accs)
	if err != nil {
		return fmt.Errorf("serialize iam store: %w", err)
	}

	tmp := filepath.Join(i.dir, iamFile+".tmp")
	if err := os.WriteFile(tmp, b, 0600); err != nil {
		return fmt.Errorf("write iam store: %w", err)
	}

	return os.Rename(tmp, filepath.Join(i.dir, iamFile))
}
