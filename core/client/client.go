// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

/*
Package client provides access to the fashionera REST api

A client either talks HTTP to a base URL, or, instead of marshalling HTTP, directly to
a mux router. The latter is the tool of choice for unit tests.

Every call is fire-once: there are no retries, no backoff and no client side timeout.
A call waits until the server answers or the passed context is done. All failures are
reported as *core.Failure with one of the kinds HttpError, TransportError or DecodeError.
*/
package client

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"

	"github.com/relabs-tech/fashionera/core"
	"github.com/relabs-tech/fashionera/core/logger"
)

// Client provides easy access to the REST API.
type Client struct {
	router     *mux.Router
	httpClient *http.Client
	url        string
	token      string

	defaultHeaders map[string]string
}

// NewWithRouter creates a client to make pseudo-REST requests to the backend,
// through the mux router
func NewWithRouter(router *mux.Router) Client {
	return Client{
		router:         router,
		defaultHeaders: map[string]string{},
	}
}

// NewWithURL creates a client to make REST requests to the backend at url.
// Paths are appended to url verbatim, a trailing slash is removed.
//
// WithToken adds an authorization token to the request header.
func NewWithURL(url string) Client {
	return Client{
		url:            strings.TrimSuffix(url, "/"),
		httpClient:     &http.Client{},
		defaultHeaders: map[string]string{},
	}
}

// WithHTTPClient returns a new client which uses the given http client
func (c Client) WithHTTPClient(httpClient *http.Client) Client {
	c.httpClient = httpClient
	return c
}

// WithHeader returns a new client with a default header added
func (c Client) WithHeader(key string, value string) Client {
	// we want a true copy to avoid side effects
	headers := map[string]string{key: value}
	for k, v := range c.defaultHeaders {
		if k != key {
			headers[k] = v
		}
	}
	c.defaultHeaders = headers
	return c
}

// WithToken returns a new client which sends token as bearer token.
// An empty token removes the authorization.
func (c Client) WithToken(token string) Client {
	c.token = token
	return c
}

// Token returns the bearer token of this client
func (c Client) Token() string {
	return c.token
}

// URL returns the base URL, empty for router clients
func (c Client) URL() string {
	return c.url
}

// Get gets the resource from path. result can be nil.
func (c Client) Get(ctx context.Context, path string, result interface{}) error {
	return c.Request(ctx, http.MethodGet, path, nil, result)
}

// Post posts body to path. result can be nil.
func (c Client) Post(ctx context.Context, path string, body interface{}, result interface{}) error {
	return c.Request(ctx, http.MethodPost, path, body, result)
}

// Put puts body to path. result can be nil.
func (c Client) Put(ctx context.Context, path string, body interface{}, result interface{}) error {
	return c.Request(ctx, http.MethodPut, path, body, result)
}

// Delete deletes the resource at path.
func (c Client) Delete(ctx context.Context, path string) error {
	return c.Request(ctx, http.MethodDelete, path, nil, nil)
}

// Request issues a request to path with the given method. Any 2xx status is
// a success.
//
// body can be nil, a []byte which is sent as is, or anything that marshals to JSON.
// result can be nil, a raw *[]byte, or anything that unmarshals from JSON. An empty
// response body leaves result untouched.
func (c Client) Request(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	if ctx == nil {
		ctx = context.Background()
	}
	rlog := logger.FromContext(ctx)

	var bodyReader io.Reader
	if body != nil {
		j, ok := body.([]byte)
		if !ok {
			var err error
			j, err = json.Marshal(body)
			if err != nil {
				return &core.Failure{Kind: core.KindValidation, Message: method + " " + path + ": cannot encode body", Err: err}
			}
		}
		bodyReader = bytes.NewReader(j)
	}

	r, err := http.NewRequestWithContext(ctx, method, c.url+path, bodyReader)
	if err != nil {
		return &core.Failure{Kind: core.KindTransport, Message: method + " " + path, Err: err}
	}
	for key, value := range c.defaultHeaders {
		r.Header.Set(key, value)
	}
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	r.Header.Set("Accept", "application/json")
	if c.token != "" {
		r.Header.Set("Authorization", "Bearer "+c.token)
	}
	if id := logger.RequestIDFromContext(ctx); id != "" {
		r.Header.Set(logger.RequestIDHeader, id)
	}

	start := time.Now()
	status, resBody, err := c.do(r)
	if err != nil {
		rlog.WithError(err).Debugf("%s %s failed after %v", method, path, time.Since(start))
		return &core.Failure{Kind: core.KindTransport, Message: method + " " + path, Err: err}
	}
	rlog.Debugf("%s %s -> %d (%v)", method, path, status, time.Since(start))

	if status < 200 || status > 299 {
		return &core.Failure{Kind: core.KindHTTP, Status: status, Message: errorMessage(resBody, status)}
	}

	if result == nil || len(bytes.TrimSpace(resBody)) == 0 {
		return nil
	}
	if raw, ok := result.(*[]byte); ok {
		*raw = resBody
		return nil
	}
	if err := json.Unmarshal(resBody, result); err != nil {
		return &core.Failure{Kind: core.KindDecode, Status: status, Message: method + " " + path, Err: err}
	}
	return nil
}

// do executes the request either against the router or over HTTP
func (c Client) do(r *http.Request) (int, []byte, error) {
	if c.router != nil {
		// the router does not watch the context, so we do
		if err := r.Context().Err(); err != nil {
			return 0, nil, err
		}
		rec := httptest.NewRecorder()
		c.router.ServeHTTP(rec, r)
		res := rec.Result()
		defer res.Body.Close()
		resBody, err := io.ReadAll(res.Body)
		if err != nil {
			return 0, nil, err
		}
		if err := r.Context().Err(); err != nil {
			return 0, nil, err
		}
		return res.StatusCode, resBody, nil
	}

	res, err := c.httpClient.Do(r)
	if err != nil {
		return 0, nil, err
	}
	defer res.Body.Close()
	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return 0, nil, err
	}
	return res.StatusCode, resBody, nil
}

// errorMessage extracts a human readable message from an error response. The
// api answers with {"message": "..."} or {"error": "..."}; anything else is
// taken verbatim.
func errorMessage(body []byte, status int) string {
	var envelope struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &envelope) == nil {
		if envelope.Message != "" {
			return envelope.Message
		}
		if envelope.Error != "" {
			return envelope.Error
		}
	}
	if s := strings.TrimSpace(string(body)); s != "" {
		return s
	}
	return http.StatusText(status)
}
