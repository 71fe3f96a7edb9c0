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
	"errors"
	"fmt"
)

// Account is a gateway IAM account
type Account struct {
	Access string `json:"access"`
	Secret string `json:"secret"`
	Role   Role   `json:"role"`
}

// Role is the account access role
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// IAMService is the identity/secret store boundary. Given an access key
// id it resolves the account holding the signing secret. The gateway
// core never stores secret material itself.
type IAMService interface {
	CreateAccount(account Account) error
	GetUserAccount(access string) (Account, error)
	DeleteUserAccount(access string) error
	ListUserAccounts() ([]Account, error)
	Shutdown() error
}

var (
	// ErrNoSuchUser is returned when the access key id is unknown
	ErrNoSuchUser = errors.New("user not found")
	// ErrUserExists is returned when creating a duplicate access key id
	ErrUserExists = errors.New("user already exists")
	// ErrNotSupported is returned by stores without account management
	ErrNotSupported = errors.New("method is not supported by the iam service")
)

// Opts are the options for the IAM service selection. Exactly one
// backing store is chosen; single root-only mode is the fallback.
type Opts struct {
	Dir            string
	LDAPServerURL  string
	LDAPBindDN     string
	LDAPPassword   string
	LDAPQueryBase  string
	LDAPObjClasses string
	LDAPAccessAtr  string
	LDAPSecretAtr  string
	LDAPRoleAtr    string
}

// New initializes the IAM service from the provided options.
func New(o *Opts) (IAMService, error) {
	switch {
	case o.Dir != "":
		return NewInternal(o.Dir)
	case o.LDAPServerURL != "":
		return NewLDAPService(o.LDAPServerURL, o.LDAPBindDN, o.LDAPPassword,
			o.LDAPQueryBase, o.LDAPAccessAtr, o.LDAPSecretAtr, o.LDAPRoleAtr,
			o.LDAPObjClasses)
	default:
		return IAMServiceSingle{}, nil
	}
}

func validateAccount(account Account) error {
	if account.Access == "" {
		return fmt.Errorf("account access key id is empty")
	}
	if account.Secret == "" {
		return fmt.Errorf("account secret key is empty")
	}
	return nil
}
