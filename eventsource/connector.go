package eventsource

import (
	"context"
	"net/http"
	"sync"

	"github.com/kbukum/livequery/encoder"
	"github.com/kbukum/livequery/httpclient"
)

// Connector opens one connection of an event stream. Implementations return
// httpclient errors for failed attempts so they can be classified as
// transient or fatal.
type Connector interface {
	Connect(ctx context.Context, req *encoder.Request, lastEventID string) (*httpclient.StreamResponse, error)
}

// ConnectorFunc adapts a function to Connector.
type ConnectorFunc func(ctx context.Context, req *encoder.Request, lastEventID string) (*httpclient.StreamResponse, error)

// Connect calls f.
func (f ConnectorFunc) Connect(ctx context.Context, req *encoder.Request, lastEventID string) (*httpclient.StreamResponse, error) {
	return f(ctx, req, lastEventID)
}

// HTTPConnector issues event-stream GET requests through an httpclient.Client.
type HTTPConnector struct {
	client *httpclient.Client
}

// NewHTTPConnector creates a connector. A nil client uses a shared client
// with default settings.
func NewHTTPConnector(client *httpclient.Client) *HTTPConnector {
	return &HTTPConnector{client: client}
}

var defaultClient = sync.OnceValues(func() (*httpclient.Client, error) {
	return httpclient.New(httpclient.Config{})
})

// Connect implements Connector.
func (c *HTTPConnector) Connect(ctx context.Context, req *encoder.Request, lastEventID string) (*httpclient.StreamResponse, error) {
	client := c.client
	if client == nil {
		var err error
		if client, err = defaultClient(); err != nil {
			return nil, err
		}
	}
	headers := map[string]string{
		"Accept":        "text/event-stream",
		"Cache-Control": "no-cache",
	}
	if lastEventID != "" {
		headers["Last-Event-ID"] = lastEventID
	}
	return client.DoStream(ctx, httpclient.Request{
		Method:  http.MethodGet,
		Path:    req.String(),
		Headers: headers,
	})
}
