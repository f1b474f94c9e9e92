/*
 * SPDX-FileCopyrightText: © Hypermode Inc. <hello@hypermode.com>
 * SPDX-License-Identifier: Apache-2.0
 */

package schema

import (
	"bytes"
	"fmt"

	"github.com/dgraph-io/gqlparser/v2/gqlerror"
	gqlerrors "github.com/graph-gophers/graphql-go/errors"
)

type gqlableError struct {
	message string
	cause   error
}

func (gqlable *gqlableError) Error() string {
	var buf bytes.Buffer
	buf.WriteString(gqlable.message)
	buf.WriteString(" because ")
	switch cause := gqlable.cause.(type) {
	case *gqlerrors.QueryError:
		// Avoid writing the "graphql: " prefix and locations into the error string.
		buf.WriteString(cause.Message)
	default:
		buf.WriteString(cause.Error())
	}
	return buf.String()
}

func (gqlable *gqlableError) Unwrap() error {
	return gqlable.cause
}

// GQLWrapf takes an existing error and wraps it with a message suitable for a
// GraphQL client.  err is saved as the underlying error, so errors.Is and
// errors.As still see it.  If err is nil, GQLWrapf returns nil.
func GQLWrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}

	return &gqlableError{
		message: fmt.Sprintf(format, args...),
		cause:   err,
	}
}

// AsGQLErrors formats an error as a list of GraphQL errors.
// A *QueryError gets returned as a one item list, gqlparser errors have their
// locations and paths carried over, and all other errors get their message
// printed into a QueryError.  A nil input results in nil output.
func AsGQLErrors(err error) []*gqlerrors.QueryError {
	if err == nil {
		return nil
	}

	switch e := err.(type) {
	case *gqlerrors.QueryError:
		return []*gqlerrors.QueryError{e}
	case *gqlerror.Error:
		return []*gqlerrors.QueryError{toQueryError(e)}
	case gqlerror.List:
		result := make([]*gqlerrors.QueryError, 0, len(e))
		for _, gqlErr := range e {
			result = append(result, toQueryError(gqlErr))
		}
		return result
	default:
		return []*gqlerrors.QueryError{{Message: e.Error(), Err: e}}
	}
}

func toQueryError(err *gqlerror.Error) *gqlerrors.QueryError {
	qe := &gqlerrors.QueryError{
		Message: err.Message,
		Err:     err,
	}
	for _, loc := range err.Locations {
		qe.Locations = append(qe.Locations, gqlerrors.Location{Line: loc.Line, Column: loc.Column})
	}
	for _, p := range err.Path {
		qe.Path = append(qe.Path, p)
	}
	return qe
}
