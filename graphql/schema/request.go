/*
 * SPDX-FileCopyrightText: © Hypermode Inc. <hello@hypermode.com>
 * SPDX-License-Identifier: Apache-2.0
 */

package schema

import (
	"github.com/dgraph-io/gqlparser/v2/ast"
	"github.com/dgraph-io/gqlparser/v2/parser"
	"github.com/pkg/errors"
)

// A Request represents a GraphQL request.  It makes no guarantees that the
// request is valid.
type Request struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
}

// OperationType finds the operation that req selects and returns its type:
// ast.Query, ast.Mutation or ast.Subscription.  Only the request document is
// looked at, it isn't validated against the schema.
func OperationType(req *Request) (ast.Operation, error) {
	if req == nil || req.Query == "" {
		return "", errors.New("no query string supplied in request")
	}

	doc, gqlErr := parser.ParseQuery(&ast.Source{Input: req.Query})
	if gqlErr != nil {
		return "", gqlErr
	}

	if len(doc.Operations) == 0 {
		return "", errors.New("no operation found in request")
	}

	if len(doc.Operations) > 1 && req.OperationName == "" {
		return "", errors.Errorf("Operation name must by supplied when query has more " +
			"than 1 operation.")
	}

	op := doc.Operations.ForName(req.OperationName)
	if op == nil {
		return "", errors.Errorf("unable to find operation %q in request", req.OperationName)
	}
	return op.Operation, nil
}
