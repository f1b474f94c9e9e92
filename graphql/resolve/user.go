/*
 * SPDX-FileCopyrightText: © Hypermode Inc. <hello@hypermode.com>
 * SPDX-License-Identifier: Apache-2.0
 */

package resolve

import "github.com/hypermodeinc/usergraph/store"

type userResolver struct {
	u store.User
}

func newUserResolver(u store.User, ok bool) *userResolver {
	if !ok {
		return nil
	}
	return &userResolver{u: u}
}

func (r *userResolver) ID() string {
	return r.u.ID
}

func (r *userResolver) Name() string {
	return r.u.Name
}

func (r *userResolver) Email() string {
	return r.u.Email
}
