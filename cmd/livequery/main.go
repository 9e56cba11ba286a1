// Command livequery runs one GraphQL operation against an endpoint and
// prints every result it receives as indented JSON, one document per
// snapshot, until the server completes the stream or the process is
// interrupted.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/kbukum/livequery/bridge"
	"github.com/kbukum/livequery/client"
	"github.com/kbukum/livequery/config"
	"github.com/kbukum/livequery/credential"
	"github.com/kbukum/livequery/logger"
	"github.com/kbukum/livequery/observability"
	"github.com/kbukum/livequery/operation"
	"github.com/kbukum/livequery/version"
)

type flags struct {
	configFile string
	endpoint   string
	query      string
	queryFile  string
	operation  string
	variables  string
	token      string
}

func main() {
	var f flags
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.StringVar(&f.configFile, "config", "", "path to livequery.yaml (optional)")
	flag.StringVar(&f.endpoint, "endpoint", "", "event-stream endpoint, overrides the config")
	flag.StringVar(&f.query, "query", "", "GraphQL document")
	flag.StringVar(&f.queryFile, "query-file", "", "file holding the GraphQL document")
	flag.StringVar(&f.operation, "operation", "", "operation name to select from the document")
	flag.StringVar(&f.variables, "variables", "", "variables as a JSON object")
	flag.StringVar(&f.token, "token", "", "bearer token, overrides the config")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Get().String())
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, f, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "livequery:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, f flags, out io.Writer) error {
	op, err := buildOperation(f)
	if err != nil {
		return err
	}

	var cfg client.Config
	opts := []config.LoaderOption{config.WithEnvPrefix("LIVEQUERY")}
	if f.configFile != "" {
		opts = append(opts, config.WithConfigFile(f.configFile))
	}
	if err := config.LoadConfig("livequery", &cfg, opts...); err != nil {
		return err
	}
	if f.endpoint != "" {
		cfg.Endpoint = f.endpoint
		cfg.HTTPEndpoint = ""
	}
	if cfg.Version == "" {
		cfg.Version = version.Get().Short()
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}

	cfg.Logging.ServiceName = cfg.Name
	logger.Init(&cfg.Logging)
	log := logger.WithComponent("cli")

	shutdown, err := initTelemetry(ctx, &cfg.Observability)
	if err != nil {
		return err
	}
	defer shutdown()

	var clientOpts []client.Option
	clientOpts = append(clientOpts, client.WithLogger(log))
	if f.token != "" {
		clientOpts = append(clientOpts, client.WithTokenProvider(credential.Static(f.token)))
	}
	c, err := client.New(&cfg, clientOpts...)
	if err != nil {
		return err
	}

	obs := bridge.NewChannelObserver(ctx)
	sub := c.Subscribe(ctx, op, obs)
	defer sub.Cancel()

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	for {
		select {
		case res, ok := <-obs.Results():
			if !ok {
				return obs.Err()
			}
			if err := enc.Encode(res); err != nil {
				return err
			}
		case <-ctx.Done():
			log.Info("interrupted")
			return nil
		}
	}
}

func buildOperation(f flags) (*operation.Operation, error) {
	query := f.query
	if f.queryFile != "" {
		if query != "" {
			return nil, fmt.Errorf("-query and -query-file are mutually exclusive")
		}
		data, err := os.ReadFile(f.queryFile)
		if err != nil {
			return nil, err
		}
		query = string(data)
	}
	if query == "" {
		return nil, fmt.Errorf("a GraphQL document is required, use -query or -query-file")
	}

	op := &operation.Operation{Query: query, OperationName: f.operation}
	if f.variables != "" {
		if err := json.Unmarshal([]byte(f.variables), &op.Variables); err != nil {
			return nil, fmt.Errorf("-variables: %w", err)
		}
	}
	return op, nil
}

func initTelemetry(ctx context.Context, cfg *observability.Config) (func(), error) {
	var closers []func(context.Context) error
	if cfg.Tracing.Enabled {
		tp, err := observability.InitTracer(ctx, &cfg.Tracing)
		if err != nil {
			return nil, err
		}
		closers = append(closers, tp.Shutdown)
	}
	if cfg.Metrics.Enabled {
		mp, err := observability.InitMeter(ctx, &cfg.Metrics)
		if err != nil {
			return nil, err
		}
		closers = append(closers, mp.Shutdown)
	}
	return func() {
		// ctx may already be cancelled by a signal
		for _, c := range closers {
			if err := c(context.Background()); err != nil {
				logger.Warn("telemetry shutdown", logger.ErrorFields("shutdown", err))
			}
		}
	}, nil
}
