package operation

import (
	"fmt"
	"math"
	"strconv"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

// Transport is the channel an operation is routed to.
type Transport int

const (
	// TransportRequestResponse sends the operation once and reads one reply.
	TransportRequestResponse Transport = iota
	// TransportStreaming keeps a server-sent event stream open.
	TransportStreaming
)

func (t Transport) String() string {
	if t == TransportStreaming {
		return "streaming"
	}
	return "request_response"
}

// LiveDirective is the directive that turns a query into a live query.
const LiveDirective = "live"

// Select picks the transport for op. Documents that cannot be parsed, or
// whose operation cannot be resolved, take the request/response path where
// the server reports the problem.
func Select(op *Operation) Transport {
	def, err := Definition(op)
	if err != nil {
		return TransportRequestResponse
	}
	if def.Operation == ast.Subscription || IsLiveQuery(def, op.Variables) {
		return TransportStreaming
	}
	return TransportRequestResponse
}

// IsStreaming reports whether op is carried over the streaming transport.
func IsStreaming(op *Operation) bool {
	return Select(op) == TransportStreaming
}

// Definition parses op.Query and returns the operation to execute: the one
// named op.OperationName, or the only operation when no name is given.
func Definition(op *Operation) (*ast.OperationDefinition, error) {
	doc, err := parser.ParseQuery(&ast.Source{Input: op.Query})
	if err != nil {
		return nil, err
	}
	if op.OperationName == "" {
		if len(doc.Operations) != 1 {
			return nil, fmt.Errorf("operation: document has %d operations and no operation name", len(doc.Operations))
		}
		return doc.Operations[0], nil
	}
	for _, def := range doc.Operations {
		if def.Name == op.OperationName {
			return def, nil
		}
	}
	return nil, fmt.Errorf("operation: no operation named %q", op.OperationName)
}

// IsLiveQuery reports whether def is a query carrying an active @live
// directive. @live without arguments is active; @live(if: ...) follows a
// boolean literal or the truthiness of the referenced variable.
func IsLiveQuery(def *ast.OperationDefinition, variables map[string]any) bool {
	if def == nil || def.Operation != ast.Query {
		return false
	}
	dir := def.Directives.ForName(LiveDirective)
	if dir == nil {
		return false
	}
	arg := dir.Arguments.ForName("if")
	if arg == nil || arg.Value == nil {
		return true
	}
	switch arg.Value.Kind {
	case ast.BooleanValue:
		v, err := strconv.ParseBool(arg.Value.Raw)
		return err == nil && v
	case ast.Variable:
		return truthy(variables[arg.Value.Raw])
	default:
		return false
	}
}

// truthy mirrors how loosely-typed clients coerce variable values.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case int:
		return x != 0
	case int32:
		return x != 0
	case int64:
		return x != 0
	case float32:
		return x != 0 && !math.IsNaN(float64(x))
	case float64:
		return x != 0 && !math.IsNaN(x)
	case interface{ Float64() (float64, error) }:
		f, err := x.Float64()
		return err == nil && f != 0 && !math.IsNaN(f)
	default:
		return true
	}
}
