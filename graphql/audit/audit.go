/*
 * SPDX-FileCopyrightText: © Hypermode Inc. <hello@hypermode.com>
 * SPDX-License-Identifier: Apache-2.0
 */

// Package audit records every GraphQL request served, one JSON line each.
package audit

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/golang/glog"

	"github.com/hypermodeinc/usergraph/graphql/api"
	"github.com/hypermodeinc/usergraph/x"
)

const maxReqLength = 4 << 10

type AuditEvent struct {
	RequestID   string
	ClientHost  string
	Endpoint    string
	Method      string
	Req         string
	Status      int
	QueryParams map[string][]string
	Latency     time.Duration
}

// Auditor writes audit events.  A nil *Auditor audits nothing.
type Auditor struct {
	log *x.Logger
}

// Open returns an Auditor appending to output, a file path or "stdout".
func Open(output string) (*Auditor, error) {
	l, err := x.InitLogger(output)
	if err != nil {
		return nil, err
	}
	glog.Infof("audit logs are enabled, writing to %s", output)
	return &Auditor{log: l}, nil
}

// New returns an Auditor writing through l.
func New(l *x.Logger) *Auditor {
	return &Auditor{log: l}
}

func (a *Auditor) Audit(event *AuditEvent) {
	if a == nil {
		return
	}
	a.log.AuditI(event.Endpoint,
		"request_id", event.RequestID,
		"client", event.ClientHost,
		"method", event.Method,
		"req_body", event.Req,
		"query_param", event.QueryParams,
		"status", event.Status,
		"latency_ms", event.Latency.Milliseconds())
}

// Close flushes and closes the audit log.
func (a *Auditor) Close() {
	if a == nil {
		return
	}
	a.log.Close()
	glog.Infoln("audit logs are closed.")
}

// WrapHandler audits every request next serves, except CORS preflights.
// The request id is taken from the response, so next must set it.
func (a *Auditor) WrapHandler(next http.Handler) http.Handler {
	if a == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rw := NewResponseWriter(w)
		var buf bytes.Buffer
		if r.Body != nil {
			r.Body = readCloser{io.TeeReader(r.Body, &buf), r.Body}
		}
		next.ServeHTTP(rw, r)

		req := buf.String()
		if r.Header.Get("Content-Encoding") != "" {
			// Encoded bodies aren't worth keeping as text.
			req = ""
		}
		a.Audit(&AuditEvent{
			RequestID:   rw.Header().Get(api.RequestIDHeader),
			ClientHost:  r.RemoteAddr,
			Endpoint:    r.URL.Path,
			Method:      r.Method,
			Req:         truncate(req, maxReqLength),
			Status:      rw.statusCode,
			QueryParams: r.URL.Query(),
			Latency:     time.Since(start),
		})
	})
}

type readCloser struct {
	io.Reader
	io.Closer
}

type ResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func NewResponseWriter(w http.ResponseWriter) *ResponseWriter {
	// WriteHeader(int) is not called if our response implicitly returns 200 OK, so
	// we default to that status code.
	return &ResponseWriter{w, http.StatusOK}
}

func (rw *ResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func truncate(s string, l int) string {
	if len(s) > l {
		return s[:l]
	}
	return s
}
