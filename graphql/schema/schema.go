/*
 * SPDX-FileCopyrightText: © Hypermode Inc. <hello@hypermode.com>
 * SPDX-License-Identifier: Apache-2.0
 */

// Package schema holds the GraphQL schema served by usergraph, together with
// the request and response types that travel through the server and the
// conversion of Go errors into GraphQL errors.
package schema

import (
	_ "embed"
)

//go:embed schema.graphql
var sdl string

// SDL returns the GraphQL schema definition of the users API.
func SDL() string {
	return sdl
}
