/*
 * SPDX-FileCopyrightText: © Hypermode Inc. <hello@hypermode.com>
 * SPDX-License-Identifier: Apache-2.0
 */

package web

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"

	"github.com/hypermodeinc/usergraph/graphql/api"
	"github.com/hypermodeinc/usergraph/graphql/resolve"
	"github.com/hypermodeinc/usergraph/graphql/schema"
	"github.com/hypermodeinc/usergraph/store"
)

type gqlError struct {
	Message string `json:"message"`
}

type gqlResponse struct {
	Data       json.RawMessage        `json:"data"`
	Errors     []gqlError             `json:"errors"`
	Extensions map[string]interface{} `json:"extensions"`
}

func newTestServer(t *testing.T, opts Options) (*httptest.Server, *store.Users) {
	users, err := store.New(store.DefaultSeed()...)
	require.NoError(t, err)

	rr, err := resolve.New(users, resolve.DefaultOptions)
	require.NoError(t, err)

	srv := httptest.NewServer(NewServeMux(NewServer(rr, opts)))
	t.Cleanup(srv.Close)
	return srv, users
}

func postJSON(t *testing.T, srv *httptest.Server, req *schema.Request) (*http.Response, gqlResponse) {
	b, err := json.Marshal(req)
	require.NoError(t, err)

	resp, err := http.Post(srv.URL+Path, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	return resp, decode(t, resp)
}

func decode(t *testing.T, resp *http.Response) gqlResponse {
	defer resp.Body.Close()
	var out gqlResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestPostQuery(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	resp, out := postJSON(t, srv, &schema.Request{Query: `{ users { id name } }`})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	require.Empty(t, out.Errors)
	require.JSONEq(t,
		`{"users": [{"id": "1", "name": "John Doe"}, {"id": "2", "name": "Jane Doe"}]}`,
		string(out.Data))
}

func TestPostMutationScenario(t *testing.T) {
	srv, users := newTestServer(t, Options{})

	_, out := postJSON(t, srv, &schema.Request{
		Query: `mutation add($id: String!, $name: String!, $email: String!) {
			createUser(id: $id, name: $name, email: $email) { id name email }
		}`,
		Variables: map[string]interface{}{"id": "3", "name": "Alice", "email": "a@x.com"},
	})
	require.Empty(t, out.Errors)
	require.JSONEq(t, `{"createUser": {"id": "3", "name": "Alice", "email": "a@x.com"}}`,
		string(out.Data))
	require.Equal(t, 3, users.Len())

	_, out = postJSON(t, srv, &schema.Request{
		Query: `mutation { updateUser(id: "1", name: "Johnny") { name email } }`,
	})
	require.JSONEq(t, `{"updateUser": {"name": "Johnny", "email": "john.doe@example.com"}}`,
		string(out.Data))

	_, out = postJSON(t, srv, &schema.Request{Query: `mutation { deleteUser(id: "2") { id } }`})
	require.JSONEq(t, `{"deleteUser": {"id": "2"}}`, string(out.Data))

	_, out = postJSON(t, srv, &schema.Request{Query: `{ user(id: "2") { id } }`})
	require.JSONEq(t, `{"user": null}`, string(out.Data))

	_, out = postJSON(t, srv, &schema.Request{Query: `mutation { deleteUser(id: "99") { id } }`})
	require.JSONEq(t, `{"deleteUser": null}`, string(out.Data))
	require.Equal(t, 2, users.Len())
}

func TestGraphQLErrorsAreStatusOK(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	resp, out := postJSON(t, srv, &schema.Request{Query: `{ users { nope } }`})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, out.Errors, 1)
	require.Contains(t, out.Errors[0].Message, "Cannot query field")
}

func TestPostApplicationGraphQL(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	resp, err := http.Post(srv.URL+Path, "application/graphql",
		strings.NewReader(`{ user(id: "1") { email } }`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := decode(t, resp)
	require.JSONEq(t, `{"user": {"email": "john.doe@example.com"}}`, string(out.Data))
}

func TestTransportErrors(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	tests := map[string]struct {
		method      string
		contentType string
		body        string
		wantStatus  int
		wantMsg     string
	}{
		"malformed json": {
			method: http.MethodPost, contentType: "application/json", body: `{"query": `,
			wantStatus: http.StatusBadRequest, wantMsg: "Not a valid GraphQL request body"},
		"unsupported content type": {
			method: http.MethodPost, contentType: "text/plain", body: `{ users { id } }`,
			wantStatus: http.StatusUnsupportedMediaType, wantMsg: "Unrecognised Content-Type"},
		"missing content type": {
			method: http.MethodPost, body: `{ users { id } }`,
			wantStatus: http.StatusUnsupportedMediaType, wantMsg: "unable to parse media type"},
		"unsupported method": {
			method: http.MethodPut, contentType: "application/json", body: `{}`,
			wantStatus: http.StatusMethodNotAllowed, wantMsg: "Unrecognised request method"},
		"empty query": {
			method: http.MethodPost, contentType: "application/json", body: `{}`,
			wantStatus: http.StatusOK, wantMsg: "no query string supplied in request"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			req, err := http.NewRequest(tc.method, srv.URL+Path, strings.NewReader(tc.body))
			require.NoError(t, err)
			if tc.contentType != "" {
				req.Header.Set("Content-Type", tc.contentType)
			}

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			require.Equal(t, tc.wantStatus, resp.StatusCode)

			out := decode(t, resp)
			require.Len(t, out.Errors, 1)
			require.Contains(t, out.Errors[0].Message, tc.wantMsg)
			require.Empty(t, out.Data)
		})
	}
}

func TestGetServesPlayground(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	resp, err := http.Get(srv.URL + Path)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "GraphQLPlayground.init")
}

func TestGetQuery(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	params := url.Values{}
	params.Set("query", `query one($id: String!) { user(id: $id) { name } }`)
	params.Set("variables", `{"id": "2"}`)
	resp, err := http.Get(srv.URL + Path + "?" + params.Encode())
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := decode(t, resp)
	require.Empty(t, out.Errors)
	require.JSONEq(t, `{"user": {"name": "Jane Doe"}}`, string(out.Data))
}

func TestGetMutationIsRejected(t *testing.T) {
	srv, users := newTestServer(t, Options{})

	params := url.Values{}
	params.Set("query", `mutation { deleteUser(id: "1") { id } }`)
	resp, err := http.Get(srv.URL + Path + "?" + params.Encode())
	require.NoError(t, err)
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	require.Equal(t, allowedMethods, resp.Header.Get("Allow"))

	out := decode(t, resp)
	require.Len(t, out.Errors, 1)
	require.Contains(t, out.Errors[0].Message, "Mutations can only be sent with POST requests")
	require.Equal(t, 2, users.Len())
}

func TestGetBadVariables(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	params := url.Values{}
	params.Set("query", `{ users { id } }`)
	params.Set("variables", `{not json`)
	resp, err := http.Get(srv.URL + Path + "?" + params.Encode())
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	decode(t, resp)
}

func TestOptionsPreflight(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	req, err := http.NewRequest(http.MethodOptions, srv.URL+Path, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	require.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "POST")
}

func TestOnlyGraphQLRouteIsServed(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	for _, path := range []string{"/", "/admin", "/graphql/extra"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	req, err := http.NewRequest(http.MethodPost, srv.URL+Path,
		strings.NewReader(`{"query": "{ users { id } }"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(api.RequestIDHeader, "trace-me")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, "trace-me", resp.Header.Get(api.RequestIDHeader))

	out := decode(t, resp)
	require.Equal(t, "trace-me", out.Extensions["requestID"])
}

func TestGzip(t *testing.T) {
	srv, _ := newTestServer(t, Options{Gzip: true})

	var body bytes.Buffer
	zw := gzip.NewWriter(&body)
	_, err := zw.Write([]byte(`{"query": "{ user(id: \"1\") { name } }"}`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	req, err := http.NewRequest(http.MethodPost, srv.URL+Path, &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Encoding", "gzip")
	// Setting Accept-Encoding by hand stops the transport from transparently
	// decompressing the response.
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "gzip", resp.Header.Get("Content-Encoding"))

	zr, err := gzip.NewReader(resp.Body)
	require.NoError(t, err)
	var out gqlResponse
	require.NoError(t, json.NewDecoder(zr).Decode(&out))
	require.JSONEq(t, `{"user": {"name": "John Doe"}}`, string(out.Data))
}

func TestBadGzipBody(t *testing.T) {
	srv, _ := newTestServer(t, Options{Gzip: true})

	req, err := http.NewRequest(http.MethodPost, srv.URL+Path,
		strings.NewReader(`{"query": "{ users { id } }"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Encoding", "gzip")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	out := decode(t, resp)
	require.Contains(t, out.Errors[0].Message, "Unable to parse gzip")
}

func TestRecoveryHandler(t *testing.T) {
	h := api.WithRequestID(recoveryHandler(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			panic("handler blew up")
		})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, Path, nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var out gqlResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Errors, 1)
	require.Contains(t, out.Errors[0].Message, "Internal Server Error - a panic was trapped")
}

func TestUninitialisedHandlerPanicIsRecovered(t *testing.T) {
	h := NewServer(nil, Options{}).HTTPHandler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, Path+"?query=%7Busers%7Bid%7D%7D", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
