package link

import (
	"github.com/kbukum/livequery/eventsource"
	"github.com/kbukum/livequery/logger"
	"github.com/kbukum/livequery/observability"
)

// Option configures a transport link.
type Option func(*options)

type options struct {
	log       *logger.Logger
	metrics   *observability.Metrics
	connector eventsource.Connector
	path      string
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithMetrics records subscription metrics on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithConnector replaces the connector the live link opens streams with.
func WithConnector(c eventsource.Connector) Option {
	return func(o *options) { o.connector = c }
}

// WithPath sets the request path of the HTTP link, relative to the
// client's base URL or absolute.
func WithPath(path string) Option {
	return func(o *options) { o.path = path }
}

func applyOptions(component string, opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	o.log = logger.OrComponent(o.log, component)
	return o
}
