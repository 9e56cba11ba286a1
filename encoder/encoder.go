// Package encoder turns a GraphQL operation into the URL of an event-stream
// request.
//
// Event-stream requests carry no body and, in browsers, no custom headers,
// so the operation and its credential travel as query parameters:
//
//	GET /graphql?authorization=Bearer+…&operationName=Feed&query=…&variables={…}
package encoder

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/kbukum/livequery/errors"
	"github.com/kbukum/livequery/operation"
)

// Query parameter names.
const (
	ParamQuery         = "query"
	ParamOperationName = "operationName"
	ParamVariables     = "variables"
	ParamExtensions    = "extensions"
	ParamAuthorization = "authorization"
)

// Request is an encoded event-stream request.
type Request struct {
	URL *url.URL
}

// String returns the full request URL.
func (r *Request) String() string {
	return r.URL.String()
}

// Params returns the request's query parameters.
func (r *Request) Params() url.Values {
	return r.URL.Query()
}

// Encode builds the request URL for op against endpoint. Parameters already
// on the endpoint are kept; every parameter holds a single value. The output
// is deterministic for equal inputs.
func Encode(endpoint string, op *operation.Operation, credential string) (*Request, error) {
	if op == nil || strings.TrimSpace(op.Query) == "" {
		return nil, errors.InvalidInput("query", "must not be empty")
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, errors.InvalidInput("endpoint", err.Error())
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.InvalidInput("endpoint", "must be an absolute URL")
	}

	params := u.Query()
	params.Set(ParamQuery, op.Query)
	if op.OperationName != "" {
		params.Set(ParamOperationName, op.OperationName)
	}
	if op.Variables != nil {
		raw, err := json.Marshal(op.Variables)
		if err != nil {
			return nil, errors.InvalidInput("variables", err.Error())
		}
		params.Set(ParamVariables, string(raw))
	}
	if len(op.Extensions) > 0 {
		raw, err := json.Marshal(op.Extensions)
		if err != nil {
			return nil, errors.InvalidInput("extensions", err.Error())
		}
		params.Set(ParamExtensions, string(raw))
	}
	if credential != "" {
		params.Set(ParamAuthorization, credential)
	}

	out := *u
	out.RawQuery = params.Encode()
	return &Request{URL: &out}, nil
}

// CredentialFromHeaders returns the authorization header, matched
// case-insensitively, or "".
func CredentialFromHeaders(headers map[string]string) string {
	for k, v := range headers {
		if strings.EqualFold(k, "authorization") {
			return v
		}
	}
	return ""
}
