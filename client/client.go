// Package client assembles the full transport for one GraphQL endpoint:
// authentication in front of a split that sends subscriptions and live
// queries over an event stream and everything else over HTTP.
//
//	c, err := client.New(&cfg, client.WithTokenProvider(provider))
//	sub := c.Subscribe(ctx, &operation.Operation{Query: q}, observer)
//	defer sub.Cancel()
package client

import (
	"context"
	"fmt"

	"github.com/kbukum/livequery/bridge"
	"github.com/kbukum/livequery/credential"
	"github.com/kbukum/livequery/eventsource"
	"github.com/kbukum/livequery/httpclient"
	"github.com/kbukum/livequery/link"
	"github.com/kbukum/livequery/logger"
	"github.com/kbukum/livequery/observability"
	"github.com/kbukum/livequery/operation"
	"github.com/kbukum/livequery/version"
)

// Option customizes a Client.
type Option func(*options)

type options struct {
	provider    credential.TokenProvider
	log         *logger.Logger
	connector   eventsource.Connector
	middlewares []link.Middleware
}

// WithTokenProvider overrides the token source configured in Config.Auth.
func WithTokenProvider(p credential.TokenProvider) Option {
	return func(o *options) { o.provider = p }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithConnector replaces how event streams are opened.
func WithConnector(c eventsource.Connector) Option {
	return func(o *options) { o.connector = c }
}

// WithMiddleware adds middlewares inside authentication, in order.
func WithMiddleware(mws ...link.Middleware) Option {
	return func(o *options) { o.middlewares = append(o.middlewares, mws...) }
}

// Client executes GraphQL operations against one endpoint.
type Client struct {
	cfg  *Config
	link link.Link
	log  *logger.Logger
}

// New validates cfg and builds the link chain.
func New(cfg *Config, opts ...Option) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("client config: %w", err)
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	log := logger.OrComponent(o.log, "client")

	httpCfg := cfg.HTTP
	httpCfg.Headers = make(map[string]string, len(cfg.HTTP.Headers)+1)
	for k, v := range cfg.HTTP.Headers {
		httpCfg.Headers[k] = v
	}
	if _, ok := httpCfg.Headers["User-Agent"]; !ok {
		httpCfg.Headers["User-Agent"] = version.UserAgent()
	}
	if cfg.Auth.APIKey != "" {
		httpCfg.Auth = httpclient.APIKeyAuth(cfg.Auth.APIKeyHeader, cfg.Auth.APIKey)
	}
	hc, err := httpclient.New(httpCfg)
	if err != nil {
		return nil, fmt.Errorf("http client: %w", err)
	}

	metrics, err := observability.NewMetrics(observability.Meter(observability.ScopeName))
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}

	connector := o.connector
	if connector == nil {
		connector = eventsource.NewHTTPConnector(hc)
	}
	live := link.NewLiveLink(cfg.Endpoint, cfg.EventSource,
		link.WithConnector(connector), link.WithLogger(log), link.WithMetrics(metrics))
	http := link.NewHTTPLink(hc, link.WithLogger(log), link.WithMetrics(metrics))

	provider := o.provider
	if provider == nil {
		provider = providerFromConfig(cfg.Auth)
	}

	middlewares := []link.Middleware{
		link.WithLogging(log),
		link.WithAuth(provider, link.AuthOptions{
			Template:       cfg.Auth.Template,
			AllowAnonymous: cfg.Auth.AllowAnonymous,
			Leeway:         cfg.Auth.Leeway,
		}),
	}
	middlewares = append(middlewares, o.middlewares...)

	log.Info("client ready", logger.Fields(
		"endpoint", cfg.Endpoint,
		"http_endpoint", cfg.HTTPEndpoint,
		"anonymous", cfg.Auth.AllowAnonymous,
	))

	return &Client{
		cfg:  cfg,
		link: link.From(link.Split(operation.IsStreaming, live, http), middlewares...),
		log:  log,
	}, nil
}

func providerFromConfig(auth AuthConfig) credential.TokenProvider {
	switch {
	case auth.Token != "":
		return credential.Static(auth.Token)
	case auth.TokenEnv != "":
		return credential.Env(auth.TokenEnv)
	default:
		return nil
	}
}

// Link returns the assembled link chain.
func (c *Client) Link() link.Link { return c.link }

// Config returns the effective configuration.
func (c *Client) Config() *Config { return c.cfg }

// Subscribe starts op and reports its results to obs.
func (c *Client) Subscribe(ctx context.Context, op *operation.Operation, obs bridge.Observer) link.Subscription {
	return c.link.Subscribe(ctx, op, obs)
}

// Execute runs op and returns its first result. A streaming operation is
// cancelled after its first snapshot.
func (c *Client) Execute(ctx context.Context, op *operation.Operation) (*operation.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	obs := bridge.NewChannelObserver(ctx)
	sub := c.link.Subscribe(ctx, op, obs)
	defer sub.Cancel()

	select {
	case res, ok := <-obs.Results():
		if ok {
			return res, nil
		}
		if err := obs.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("operation %s completed without a result", op.Name())
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
