package link

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/kbukum/livequery/bridge"
	"github.com/kbukum/livequery/errors"
	"github.com/kbukum/livequery/httpclient"
	"github.com/kbukum/livequery/logger"
	"github.com/kbukum/livequery/observability"
	"github.com/kbukum/livequery/operation"
)

// HTTPLink executes queries and mutations as a single JSON POST and
// delivers the one result.
type HTTPLink struct {
	client *httpclient.Client
	opts   options
}

// NewHTTPLink creates a request/response link. Requests go to the client's
// base URL unless WithPath is given.
func NewHTTPLink(client *httpclient.Client, opts ...Option) *HTTPLink {
	return &HTTPLink{client: client, opts: applyOptions("link.http", opts)}
}

// requestBody is the GraphQL-over-HTTP request document.
type requestBody struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
	Extensions    map[string]any `json:"extensions,omitempty"`
}

// Subscribe implements Link.
func (l *HTTPLink) Subscribe(ctx context.Context, op *operation.Operation, obs bridge.Observer) Subscription {
	if op == nil || op.Query == "" {
		return Fail(ctx, obs, errors.InvalidInput("query", "must not be empty"))
	}

	id := uuid.NewString()
	log := l.opts.log.WithFields(logger.Fields(
		logger.FieldSubscriptionID, id,
		logger.FieldOperationName, op.Name(),
		logger.FieldTransport, operation.TransportRequestResponse.String(),
	))

	sc := observability.NewSubscriptionContext(id, op.Name(), operation.TransportRequestResponse.String(), l.opts.metrics)
	ctx = sc.Start(ctx, observability.SpanRequest)

	t := &tracked{ctx: ctx, sc: sc, inner: obs}
	t.handle = bridge.Subscribe(ctx, &httpResult{link: l, op: op, log: log}, nil, t,
		bridge.WithID(id), bridge.WithLogger(log))
	go t.watch()
	return t
}

// httpResult yields the single result of one POST.
type httpResult struct {
	link *HTTPLink
	op   *operation.Operation
	log  *logger.Logger
	done bool
}

func (r *httpResult) Next(ctx context.Context) (*operation.Result, bool, error) {
	if r.done {
		return nil, false, nil
	}
	r.done = true

	resp, err := r.link.client.Do(ctx, httpclient.Request{
		Method:  http.MethodPost,
		Path:    r.link.opts.path,
		Headers: r.headers(),
		Body: requestBody{
			Query:         r.op.Query,
			OperationName: r.op.OperationName,
			Variables:     r.op.Variables,
			Extensions:    r.op.Extensions,
		},
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		// GraphQL servers may answer 4xx with a well-formed result that
		// carries the errors.
		var he *httpclient.Error
		if stderrors.As(err, &he) && he.StatusCode < 500 && he.Code != httpclient.ErrCodeAuth {
			if res, ok := decodeResult(he.Body); ok && res.HasErrors() {
				return res, true, nil
			}
		}
		r.log.Debug("request failed", logger.ErrorFields("post", err))
		return nil, false, transportError(err)
	}

	res, ok := decodeResult(resp.Body)
	if !ok {
		return nil, false, errors.MalformedPayload("response is not a GraphQL result", nil)
	}
	return res, true, nil
}

func (r *httpResult) Close() error { return nil }

func (r *httpResult) headers() map[string]string {
	headers := make(map[string]string, len(r.op.Headers)+1)
	for k, v := range r.op.Headers {
		headers[k] = v
	}
	headers["Accept"] = "application/graphql-response+json, application/json"
	return headers
}

func decodeResult(body []byte) (*operation.Result, bool) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, false
	}
	_, hasData := doc["data"]
	_, hasErrors := doc["errors"]
	if !hasData && !hasErrors {
		return nil, false
	}
	var res operation.Result
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, false
	}
	return &res, true
}

// transportError maps an httpclient failure onto the livequery error codes.
func transportError(err error) error {
	if httpclient.IsAuth(err) {
		return errors.Auth("server rejected the credential", err)
	}
	if _, ok := errors.AsAppError(err); ok {
		return err
	}
	return errors.Transport(err, httpclient.IsRetryable(err))
}
