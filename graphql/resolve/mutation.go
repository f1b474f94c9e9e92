/*
 * SPDX-FileCopyrightText: © Hypermode Inc. <hello@hypermode.com>
 * SPDX-License-Identifier: Apache-2.0
 */

package resolve

import (
	"context"

	"github.com/golang/glog"

	"github.com/hypermodeinc/usergraph/graphql/api"
	"github.com/hypermodeinc/usergraph/graphql/schema"
	"github.com/hypermodeinc/usergraph/store"
)

// Mutations are executed serially by the GraphQL engine, in the order they
// appear in the request.

func (r *resolver) CreateUser(ctx context.Context,
	args struct{ ID, Name, Email string }) (*userResolver, error) {

	u, err := r.users.Insert(store.User{ID: args.ID, Name: args.Name, Email: args.Email})
	if err != nil {
		return nil, schema.GQLWrapf(err, "couldn't create user")
	}
	glog.V(2).Infof("[%s] created user %q", api.RequestID(ctx), u.ID)
	return &userResolver{u: u}, nil
}

func (r *resolver) UpdateUser(ctx context.Context, args struct {
	ID    string
	Name  *string
	Email *string
}) *userResolver {
	u, ok := r.users.Update(args.ID, args.Name, args.Email)
	if ok {
		glog.V(2).Infof("[%s] updated user %q", api.RequestID(ctx), u.ID)
	}
	return newUserResolver(u, ok)
}

func (r *resolver) DeleteUser(ctx context.Context, args struct{ ID string }) *userResolver {
	u, ok := r.users.Delete(args.ID)
	if ok {
		glog.V(2).Infof("[%s] deleted user %q", api.RequestID(ctx), u.ID)
	}
	return newUserResolver(u, ok)
}
