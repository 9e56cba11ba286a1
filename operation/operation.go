package operation

import (
	"encoding/json"
	"maps"
	"strings"

	"github.com/vektah/gqlparser/v2/gqlerror"
)

// Operation is an immutable GraphQL request descriptor. Helpers that change
// it return a copy.
type Operation struct {
	Query         string
	OperationName string
	Variables     map[string]any
	Extensions    map[string]any
	// Headers are transport headers, keyed by lowercase name.
	Headers map[string]string
}

// WithHeader returns a copy of op with the header set.
func (op *Operation) WithHeader(name, value string) *Operation {
	cp := *op
	cp.Headers = make(map[string]string, len(op.Headers)+1)
	maps.Copy(cp.Headers, op.Headers)
	cp.Headers[strings.ToLower(name)] = value
	return &cp
}

// Header returns the header value, matching the name case-insensitively.
func (op *Operation) Header(name string) string {
	if v, ok := op.Headers[strings.ToLower(name)]; ok {
		return v
	}
	for k, v := range op.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// Name returns the operation name, or "anonymous".
func (op *Operation) Name() string {
	if op.OperationName != "" {
		return op.OperationName
	}
	if def, err := Definition(op); err == nil && def.Name != "" {
		return def.Name
	}
	return "anonymous"
}

// Result is a GraphQL response: one request/response reply or one snapshot
// of a streaming operation.
type Result struct {
	Data       json.RawMessage `json:"data"`
	Errors     gqlerror.List   `json:"errors,omitempty"`
	Extensions map[string]any  `json:"extensions,omitempty"`
}

// HasErrors reports whether the result carries GraphQL errors.
func (r *Result) HasErrors() bool {
	return len(r.Errors) > 0
}
