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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultsToSingle(t *testing.T) {
	svc, err := New(&Opts{})
	require.NoError(t, err)
	assert.IsType(t, IAMServiceSingle{}, svc)
}

func TestSingleServiceHasNoUsers(t *testing.T) {
	svc := IAMServiceSingle{}

	_, err := svc.GetUserAccount("any-access-key")
	assert.ErrorIs(t, err, ErrNoSuchUser)

	assert.ErrorIs(t, svc.CreateAccount(Account{Access: "a", Secret: "s"}), ErrNotSupported)
	assert.ErrorIs(t, svc.DeleteUserAccount("a"), ErrNotSupported)

	accounts, err := svc.ListUserAccounts()
	assert.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestInternalServiceAccounts(t *testing.T) {
	svc, err := NewInternal(t.TempDir())
	require.NoError(t, err)
	defer svc.Shutdown()

	account := Account{Access: "user1", Secret: "secret1", Role: RoleUser}
	require.NoError(t, svc.CreateAccount(account))

	assert.ErrorIs(t, svc.CreateAccount(account), ErrUserExists)

	got, err := svc.GetUserAccount("user1")
	require.NoError(t, err)
	assert.Equal(t, account, got)

	_, err = svc.GetUserAccount("missing")
	assert.ErrorIs(t, err, ErrNoSuchUser)

	require.NoError(t, svc.DeleteUserAccount("user1"))
	_, err = svc.GetUserAccount("user1")
	assert.ErrorIs(t, err, ErrNoSuchUser)
}

func TestInternalServiceListSorted(t *testing.T) {
	svc, err := NewInternal(t.TempDir())
	require.NoError(t, err)
	defer svc.Shutdown()

	for _, access := range []string{"charlie", "alice", "bob"} {
		require.NoError(t, svc.CreateAccount(Account{Access: access, Secret: "x", Role: RoleUser}))
	}

	accounts, err := svc.ListUserAccounts()
	require.NoError(t, err)
	require.Len(t, accounts, 3)
	assert.Equal(t, "alice", accounts[0].Access)
	assert.Equal(t, "bob", accounts[1].Access)
	assert.Equal(t, "charlie", accounts[2].Access)
}
