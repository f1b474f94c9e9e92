/*
 * SPDX-FileCopyrightText: © Hypermode Inc. <hello@hypermode.com>
 * SPDX-License-Identifier: Apache-2.0
 */

// Package api holds the pieces of request handling that are shared by the
// HTTP transport and the resolvers: request ids and panic recovery.
package api

import (
	"runtime/debug"

	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// PanicHandler catches panics to make sure that we recover from panics during
// GraphQL request execution and return an appropriate error.
//
// If PanicHandler recovers from a panic, it logs a stack trace, creates an error
// and applies fn to the error.
func PanicHandler(requestID string, fn func(error)) {
	if err := recover(); err != nil {
		glog.Errorf("[%s] panic: %s.\n trace: %s", requestID, err, string(debug.Stack()))

		fn(errors.Errorf("[%s] Internal Server Error - a panic was trapped.  "+
			"This indicates a bug in the GraphQL server.  A stack trace was logged.",
			requestID))
	}
}
