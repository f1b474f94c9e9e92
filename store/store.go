/*
 * SPDX-FileCopyrightText: © Hypermode Inc. <hello@hypermode.com>
 * SPDX-License-Identifier: Apache-2.0
 */

// Package store holds the users served by the GraphQL API. Users live only in
// memory and are lost when the process exits.
package store

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.opencensus.io/stats"

	"github.com/hypermodeinc/usergraph/x"
)

// ErrUserExists is returned when inserting a user whose id is already taken.
var ErrUserExists = errors.New("user already exists")

// User is a single user record.
type User struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Email string `json:"email" yaml:"email"`
}

// Users is an ordered collection of users guarded by a lock. Reads share
// the lock, writes hold it exclusively. The lock is never held once an
// operation returns, even if the operation panicked.
//
// The zero value is an empty store ready to use.
type Users struct {
	sync.RWMutex
	users []User
}

// New returns a store holding the given users in order. It fails if two of
// them share an id.
func New(users ...User) (*Users, error) {
	s := &Users{users: make([]User, 0, len(users))}
	for _, u := range users {
		if _, err := s.Insert(u); err != nil {
			return nil, errors.Wrap(err, "while seeding the user store")
		}
	}
	return s, nil
}

// List returns a copy of all users in insertion order.
func (s *Users) List() []User {
	s.RLock()
	defer s.RUnlock()
	defer record("list")

	out := make([]User, len(s.users))
	copy(out, s.users)
	return out
}

// Find returns the user with the given id.
func (s *Users) Find(id string) (User, bool) {
	s.RLock()
	defer s.RUnlock()
	defer record("find")

	if i := s.index(id); i >= 0 {
		return s.users[i], true
	}
	return User{}, false
}

// Len returns the number of users in the store.
func (s *Users) Len() int {
	s.RLock()
	defer s.RUnlock()
	return len(s.users)
}

// Insert appends u to the store and returns it. The store is left unchanged
// and ErrUserExists is returned if a user with the same id is present.
func (s *Users) Insert(u User) (User, error) {
	s.Lock()
	defer s.Unlock()
	defer record("insert")

	if s.index(u.ID) >= 0 {
		return User{}, errors.Wrapf(ErrUserExists, "id %q", u.ID)
	}
	s.users = append(s.users, u)
	s.gauge()
	return u, nil
}

// Update overwrites the name and email of the user with the given id, for
// whichever of the two is non-nil. It returns the updated user, or false if
// there is no such user.
func (s *Users) Update(id string, name, email *string) (User, bool) {
	s.Lock()
	defer s.Unlock()
	defer record("update")

	i := s.index(id)
	if i < 0 {
		return User{}, false
	}
	if name != nil {
		s.users[i].Name = *name
	}
	if email != nil {
		s.users[i].Email = *email
	}
	return s.users[i], true
}

// Delete removes the user with the given id and returns it, or false if
// there is no such user.
func (s *Users) Delete(id string) (User, bool) {
	s.Lock()
	defer s.Unlock()
	defer record("delete")

	i := s.index(id)
	if i < 0 {
		return User{}, false
	}
	u := s.users[i]
	s.users = append(s.users[:i], s.users[i+1:]...)
	s.gauge()
	return u, true
}

// index must be called with the lock held.
func (s *Users) index(id string) int {
	for i := range s.users {
		if s.users[i].ID == id {
			return i
		}
	}
	return -1
}

// gauge must be called with the lock held.
func (s *Users) gauge() {
	stats.Record(context.Background(), x.NumUsers.M(int64(len(s.users))))
}

func record(op string) {
	x.RecordCount(context.Background(), x.NumStoreOps, op, false)
}
