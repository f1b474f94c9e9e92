/*
 * SPDX-FileCopyrightText: © Hypermode Inc. <hello@hypermode.com>
 * SPDX-License-Identifier: Apache-2.0
 */

// Package web serves GraphQL over HTTP.
//
// GraphQL servers should serve both GET and POST
// https://graphql.org/learn/serving-over-http/
//
// GET should be like
// http://myapi/graphql?query={me{name}}
//
// POST should have a json content body like
//
//	{
//	  "query": "...",
//	  "operationName": "...",
//	  "variables": { "myVariable": "someValue", ... }
//	}
//
// A GET without a query serves an interactive console instead.
package web

import (
	"context"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/dgraph-io/gqlparser/v2/ast"
	"github.com/golang/glog"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
	"go.opencensus.io/trace"

	"github.com/hypermodeinc/usergraph/graphql/api"
	"github.com/hypermodeinc/usergraph/graphql/resolve"
	"github.com/hypermodeinc/usergraph/graphql/schema"
	"github.com/hypermodeinc/usergraph/x"
)

// Path is the one route served by the GraphQL server.
const Path = "/graphql"

const allowedMethods = "GET, POST, OPTIONS"

// An IServeGraphQL can serve a GraphQL endpoint (currently only on http)
type IServeGraphQL interface {
	// HTTPHandler returns a http.Handler that serves GraphQL.
	HTTPHandler() http.Handler

	// Resolve processes a GQL Request using the resolver and returns a GQL Response
	Resolve(ctx context.Context, gqlReq *schema.Request) *schema.Response
}

// Options tune the HTTP side of the server.
type Options struct {
	// Gzip compresses responses for clients that accept gzip.
	Gzip bool
}

type graphqlHandler struct {
	resolver *resolve.RequestResolver
	opts     Options
	handler  http.Handler
}

// NewServer returns a new IServeGraphQL that serves requests with resolver.
func NewServer(resolver *resolve.RequestResolver, opts Options) IServeGraphQL {
	gh := &graphqlHandler{resolver: resolver, opts: opts}
	gh.handler = api.WithRequestID(recoveryHandler(commonHeaders(gh)))
	return gh
}

// NewServeMux returns a mux that routes Path, and nothing else, to gs.
func NewServeMux(gs IServeGraphQL) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle(Path, gs.HTTPHandler())
	return mux
}

func (gh *graphqlHandler) HTTPHandler() http.Handler {
	return gh.handler
}

func (gh *graphqlHandler) Resolve(ctx context.Context, gqlReq *schema.Request) *schema.Response {
	return gh.resolver.Resolve(ctx, gqlReq)
}

// write chooses between the http response writer and gzip writer
// and sends the schema response using that.
func write(w http.ResponseWriter, rr *schema.Response, status int, acceptGzip bool) {
	var out io.Writer = w

	w.Header().Set("Content-Type", "application/json")
	// If the receiver accepts gzip, then we would update the writer
	// and send gzipped content instead.
	if acceptGzip {
		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Add("Vary", "Accept-Encoding")
		gzw := gzip.NewWriter(w)
		defer gzw.Close()
		out = gzw
	}
	w.WriteHeader(status)

	if _, err := rr.WriteTo(out); err != nil {
		glog.Error(err)
	}
}

// ServeHTTP handles GraphQL queries and mutations, and writes a valid GraphQL
// JSON response to w.  Requests that never reach the resolver are answered
// with an HTTP error status, but still with a GraphQL shaped body.
func (gh *graphqlHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, span := trace.StartSpan(r.Context(), "handler")
	defer span.End()

	if !gh.isValid() {
		panic("graphqlHandler not initialised")
	}

	switch r.Method {
	case http.MethodOptions:
		w.Header().Set("Allow", allowedMethods)
		w.WriteHeader(http.StatusOK)
		return
	case http.MethodGet:
		if !r.URL.Query().Has("query") {
			servePlayground(w)
			return
		}
	case http.MethodPost:
	default:
		w.Header().Set("Allow", allowedMethods)
		gh.writeError(w, r, http.StatusMethodNotAllowed, errors.New(
			"Unrecognised request method.  Please use GET or POST for GraphQL requests"))
		return
	}

	gqlReq, status, err := getRequest(r)
	if err != nil {
		if status == http.StatusMethodNotAllowed {
			w.Header().Set("Allow", allowedMethods)
		}
		gh.writeError(w, r, status, err)
		return
	}

	res := gh.resolver.Resolve(ctx, gqlReq)
	write(w, res, http.StatusOK, gh.acceptGzip(r))
}

func (gh *graphqlHandler) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	glog.V(2).Infof("[%s] rejecting %s request: %v", api.RequestID(r.Context()), r.Method, err)
	rr := schema.ErrorResponse(err).WithRequestID(api.RequestID(r.Context()))
	write(w, rr, status, gh.acceptGzip(r))
}

func (gh *graphqlHandler) acceptGzip(r *http.Request) bool {
	return gh.opts.Gzip && strings.Contains(r.Header.Get("Accept-Encoding"), "gzip")
}

func (gh *graphqlHandler) isValid() bool {
	return !(gh == nil || gh.resolver == nil)
}

type gzreadCloser struct {
	*gzip.Reader
	io.Closer
}

func (gz gzreadCloser) Close() error {
	err := gz.Reader.Close()
	if err != nil {
		return err
	}
	return gz.Closer.Close()
}

// getRequest decodes the GraphQL request carried by r.  On failure it also
// returns the HTTP status the failure should be reported with.
func getRequest(r *http.Request) (*schema.Request, int, error) {
	gqlReq := &schema.Request{}

	if r.Header.Get("Content-Encoding") == "gzip" {
		zr, err := gzip.NewReader(r.Body)
		if err != nil {
			return nil, http.StatusBadRequest, errors.Wrap(err, "Unable to parse gzip")
		}
		r.Body = gzreadCloser{zr, r.Body}
	}

	switch r.Method {
	case http.MethodGet:
		query := r.URL.Query()
		gqlReq.Query = query.Get("query")
		gqlReq.OperationName = query.Get("operationName")
		variables, ok := query["variables"]
		if ok && variables[0] != "" {
			d := json.NewDecoder(strings.NewReader(variables[0]))
			d.UseNumber()

			if err := d.Decode(&gqlReq.Variables); err != nil {
				return nil, http.StatusBadRequest,
					errors.Wrap(err, "Not a valid GraphQL request body")
			}
		}

		// Mutations change state, so they are only accepted over POST.  Requests
		// that can't be parsed are left for the resolver to report.
		if op, err := schema.OperationType(gqlReq); err == nil && op == ast.Mutation {
			return nil, http.StatusMethodNotAllowed,
				errors.New("Mutations can only be sent with POST requests")
		}
	case http.MethodPost:
		mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil {
			return nil, http.StatusUnsupportedMediaType,
				errors.Wrap(err, "unable to parse media type")
		}

		switch mediaType {
		case "application/json":
			d := json.NewDecoder(r.Body)
			d.UseNumber()
			if err = d.Decode(&gqlReq); err != nil {
				return nil, http.StatusBadRequest,
					errors.Wrap(err, "Not a valid GraphQL request body")
			}
		case "application/graphql":
			bytes, err := io.ReadAll(r.Body)
			if err != nil {
				return nil, http.StatusBadRequest,
					errors.Wrap(err, "Could not read GraphQL request body")
			}
			gqlReq.Query = string(bytes)
		default:
			// https://graphql.org/learn/serving-over-http/#post-request says:
			// "A standard GraphQL POST request should use the application/json
			// content type ..."
			return nil, http.StatusUnsupportedMediaType, errors.New(
				"Unrecognised Content-Type.  Please use application/json or application/graphql " +
					"for GraphQL requests")
		}
	default:
		return nil, http.StatusMethodNotAllowed,
			errors.New("Unrecognised request method.  Please use GET or POST for GraphQL requests")
	}

	return gqlReq, http.StatusOK, nil
}

func commonHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		x.AddCorsHeaders(w)

		next.ServeHTTP(w, r)
	})
}

func recoveryHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := api.RequestID(r.Context())
		defer api.PanicHandler(reqID,
			func(err error) {
				rr := schema.ErrorResponse(err).WithRequestID(reqID)
				write(w, rr, http.StatusInternalServerError, false)
			})

		next.ServeHTTP(w, r)
	})
}
