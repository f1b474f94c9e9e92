/*
 * SPDX-FileCopyrightText: © Hypermode Inc. <hello@hypermode.com>
 * SPDX-License-Identifier: Apache-2.0
 */

package web

import (
	_ "embed"
	"net/http"

	"github.com/golang/glog"
)

//go:embed playground.html
var playgroundHTML []byte

// servePlayground writes the GraphQL Playground console.  The page loads its
// scripts from a CDN and sends the queries typed into it back to this route.
func servePlayground(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(playgroundHTML); err != nil {
		glog.Error(err)
	}
}
