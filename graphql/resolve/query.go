/*
 * SPDX-FileCopyrightText: © Hypermode Inc. <hello@hypermode.com>
 * SPDX-License-Identifier: Apache-2.0
 */

package resolve

import "github.com/hypermodeinc/usergraph/store"

// resolver is the root resolver.  Its methods are the fields of the Query and
// Mutation types.
type resolver struct {
	users *store.Users
}

func (r *resolver) Users() []*userResolver {
	users := r.users.List()
	out := make([]*userResolver, 0, len(users))
	for _, u := range users {
		out = append(out, &userResolver{u: u})
	}
	return out
}

func (r *resolver) User(args struct{ ID string }) *userResolver {
	return newUserResolver(r.users.Find(args.ID))
}
