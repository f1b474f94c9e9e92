/*
 * SPDX-FileCopyrightText: © Hypermode Inc. <hello@hypermode.com>
 * SPDX-License-Identifier: Apache-2.0
 */

package schema

import (
	"encoding/json"
	"io"

	gqlerrors "github.com/graph-gophers/graphql-go/errors"
	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// GraphQL spec on response is here:
// https://spec.graphql.org/October2021/#sec-Response

// Response represents a GraphQL response
type Response struct {
	Errors     []*gqlerrors.QueryError
	Data       json.RawMessage
	Extensions *Extensions
}

// Extensions : GraphQL specifies allowing "extensions" in results, but the
// format is up to the implementation.
type Extensions struct {
	RequestID string `json:"requestID,omitempty"`
}

// ErrorResponsef returns a Response containing a single GraphQL error with a
// message obtained by Sprintf-ing the argugments
func ErrorResponsef(format string, args ...interface{}) *Response {
	return &Response{
		Errors: []*gqlerrors.QueryError{gqlerrors.Errorf(format, args...)},
	}
}

// ErrorResponse formats an error as a list of GraphQL errors and builds
// a response with that error list and no data.
func ErrorResponse(err error) *Response {
	return &Response{
		Errors: AsGQLErrors(err),
	}
}

// WithRequestID records id in the extensions of r.  An empty id is ignored.
func (r *Response) WithRequestID(id string) *Response {
	if r == nil || id == "" {
		return r
	}
	if r.Extensions == nil {
		r.Extensions = &Extensions{}
	}
	r.Extensions.RequestID = id
	return r
}

// WriteTo writes the GraphQL response as unindented JSON to w
// and returns the number of bytes written and error, if any.
func (r *Response) WriteTo(w io.Writer) (int64, error) {
	if r == nil {
		i, err := w.Write([]byte(
			`{ "errors": [ { "message": "Internal error - no response to write." } ], ` +
				` "data": null }`))
		return int64(i), err
	}

	js, err := json.Marshal(struct {
		Errors     []*gqlerrors.QueryError `json:"errors,omitempty"`
		Data       json.RawMessage         `json:"data,omitempty"`
		Extensions *Extensions             `json:"extensions,omitempty"`
	}{
		Errors:     r.Errors,
		Data:       r.Data,
		Extensions: r.Extensions,
	})

	if err != nil {
		msg := "Internal error - failed to marshal a valid JSON response"
		glog.Errorf("%+v", errors.Wrap(err, msg))
		js = []byte(`{ "errors": [ { "message": "` + msg + `" } ], "data": null }`)
	}

	i, err := w.Write(js)
	return int64(i), err
}
