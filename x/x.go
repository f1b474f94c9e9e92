/*
 * SPDX-FileCopyrightText: © Hypermode Inc. <hello@hypermode.com>
 * SPDX-License-Identifier: Apache-2.0
 */

package x

import (
	"net/http"
	"time"
)

// AddCorsHeaders adds the CORS headers that let a browser on another origin
// talk to the GraphQL endpoint.
func AddCorsHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers",
		"Content-Type, Content-Length, Accept-Encoding, Content-Encoding, "+
			"X-Request-Id, Cache-Control, X-Requested-With")
	w.Header().Set("Access-Control-Expose-Headers", "X-Request-Id")
}

// SinceMs returns the time since startTime in milliseconds (as a float).
func SinceMs(startTime time.Time) float64 {
	return float64(time.Since(startTime)) / 1e6
}
