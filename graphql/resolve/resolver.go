/*
 * SPDX-FileCopyrightText: © Hypermode Inc. <hello@hypermode.com>
 * SPDX-License-Identifier: Apache-2.0
 */

// Package resolve executes GraphQL requests against the users schema.
//
// GraphQL servers should return 200 (even on errors),
// and result body should be json:
//
//	{
//	  "data": { "query_name" : { ... } },
//	  "errors": [ { "message" : ..., ...} ... ]
//	}
//
// Key points about the response
// (https://spec.graphql.org/October2021/#sec-Response)
//
//   - If an error was encountered before execution begins,
//     the data entry should not be present in the result.
//   - If an error was encountered during the execution that
//     prevented a valid response, the data entry in the response should be null.
//   - If there's errors and data, both are returned.
//   - If no errors were encountered during the requested operation,
//     the errors entry should not be present in the result.
package resolve

import (
	"context"
	"time"

	"github.com/dgraph-io/gqlparser/v2/ast"
	"github.com/golang/glog"
	graphql "github.com/graph-gophers/graphql-go"
	"github.com/pkg/errors"
	"go.opencensus.io/stats"
	"go.opencensus.io/trace"

	"github.com/hypermodeinc/usergraph/graphql/api"
	"github.com/hypermodeinc/usergraph/graphql/schema"
	"github.com/hypermodeinc/usergraph/store"
	"github.com/hypermodeinc/usergraph/x"
)

// Options tune how requests are executed.
type Options struct {
	// Introspection enables the __schema and __type queries.
	Introspection bool
	// MaxDepth limits how deeply selections may nest.  0 means no limit.
	MaxDepth int
}

// DefaultOptions are the options the server runs with unless configured.
var DefaultOptions = Options{Introspection: true}

// RequestResolver can process GraphQL requests and write GraphQL JSON
// responses.  It is bound to one user store; every request it resolves reads
// and writes that store.
type RequestResolver struct {
	schema *graphql.Schema
}

// New parses the users schema and binds it to users.
func New(users *store.Users, opts Options) (*RequestResolver, error) {
	if users == nil {
		return nil, errors.New("a user store is required to resolve requests")
	}

	schemaOpts := []graphql.SchemaOpt{
		graphql.UseStringDescriptions(),
		graphql.Logger(panicLogger{}),
	}
	if !opts.Introspection {
		schemaOpts = append(schemaOpts, graphql.DisableIntrospection())
	}
	if opts.MaxDepth > 0 {
		schemaOpts = append(schemaOpts, graphql.MaxDepth(opts.MaxDepth))
	}

	s, err := graphql.ParseSchema(schema.SDL(), &resolver{users: users}, schemaOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "while parsing the GraphQL schema")
	}
	return &RequestResolver{schema: s}, nil
}

// Resolve processes gqlReq and returns a GraphQL response.  Errors are
// recorded in the response's error field, Resolve itself never fails.
func (r *RequestResolver) Resolve(ctx context.Context, gqlReq *schema.Request) *schema.Response {
	if r == nil || r.schema == nil {
		glog.Error("Call to Resolve with nil RequestResolver")
		return schema.ErrorResponsef("Internal error")
	}

	reqID := api.RequestID(ctx)
	if gqlReq == nil || gqlReq.Query == "" {
		return schema.ErrorResponsef("no query string supplied in request").WithRequestID(reqID)
	}

	ctx, span := trace.StartSpan(ctx, "resolve")
	defer span.End()

	start := time.Now()
	method := methodName(gqlReq)
	span.AddAttributes(trace.StringAttribute("method", method))

	res := r.schema.Exec(ctx, gqlReq.Query, gqlReq.OperationName, gqlReq.Variables)

	failed := len(res.Errors) > 0
	measure := x.NumQueries
	if method == string(ast.Mutation) {
		measure = x.NumMutations
	}
	x.RecordCount(ctx, measure, method, failed)
	stats.Record(x.WithMethod(ctx, method), x.LatencyMs.M(x.SinceMs(start)))

	if failed && glog.V(2) {
		glog.Infof("[%s] %s finished with %d error(s): %v", reqID, method, len(res.Errors), res.Errors)
	}

	return (&schema.Response{
		Errors: res.Errors,
		Data:   res.Data,
	}).WithRequestID(reqID)
}

// methodName is the metrics tag for gqlReq: its operation type, or "invalid"
// if the request can't be parsed.  Execution reports the actual error.
func methodName(gqlReq *schema.Request) string {
	op, err := schema.OperationType(gqlReq)
	if err != nil {
		return "invalid"
	}
	return string(op)
}

// panicLogger logs panics trapped while resolving fields.  The execution
// library turns each of them into a GraphQL error in the response.
type panicLogger struct{}

func (panicLogger) LogPanic(ctx context.Context, value interface{}) {
	glog.Errorf("[%s] panic while resolving GraphQL field: %v", api.RequestID(ctx), value)
}
