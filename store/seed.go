/*
 * SPDX-FileCopyrightText: © Hypermode Inc. <hello@hypermode.com>
 * SPDX-License-Identifier: Apache-2.0
 */

package store

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DefaultSeed returns the users the server starts with when no seed file is
// given.
func DefaultSeed() []User {
	return []User{
		{ID: "1", Name: "John Doe", Email: "john.doe@example.com"},
		{ID: "2", Name: "Jane Doe", Email: "jane.doe@example.com"},
	}
}

// LoadSeed reads users from a YAML file holding a list of users, e.g.
//
//	- id: "1"
//	  name: John Doe
//	  email: john.doe@example.com
//
// An empty file yields no users.
func LoadSeed(path string) ([]User, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "while reading seed file %s", path)
	}

	var users []User
	if err := yaml.Unmarshal(b, &users); err != nil {
		return nil, errors.Wrapf(err, "while parsing seed file %s", path)
	}
	for i, u := range users {
		if u.ID == "" {
			return nil, errors.Errorf("seed file %s: user at position %d has no id", path, i)
		}
	}
	return users, nil
}
