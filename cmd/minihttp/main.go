// Command minihttp serves echo, user-agent and files routes over HTTP/1.1.
//
// Configuration is layered: defaults, then the --config file (YAML or JSON), then
// MINIHTTP_* environment variables, then explicitly passed flags.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/indigo-web/minihttp"
	"github.com/indigo-web/minihttp/config"
	"github.com/indigo-web/minihttp/http/status"
	"github.com/indigo-web/minihttp/internal/logging"
	"github.com/indigo-web/minihttp/internal/metrics"
	"github.com/indigo-web/minihttp/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

// Build information, set via ldflags.
var version = "dev"

const metricsShutdownTimeout = 5 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.LookupEnv, serve).RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

type runFunc func(ctx context.Context, cfg *config.Config) error

func newApp(lookup config.LookupFunc, run runFunc) *cli.App {
	return &cli.App{
		Name:    "minihttp",
		Usage:   "minimal HTTP/1.1 server",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a YAML or JSON configuration file",
			},
			&cli.StringFlag{
				Name:  "directory",
				Usage: "directory served by the /files route",
			},
			&cli.UintFlag{
				Name:  "port",
				Usage: "port to listen on",
				Value: uint(config.Default().NET.Port),
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "number of connection workers",
				Value: config.Default().NET.Workers,
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "trace, debug, info, warn, error or disabled",
				Value: config.Default().Log.Level,
			},
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "address to expose Prometheus metrics on, disabled if empty",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c, lookup)
			if err != nil {
				return err
			}

			return run(c.Context, cfg)
		},
	}
}

func loadConfig(c *cli.Context, lookup config.LookupFunc) (*config.Config, error) {
	cfg := config.Default()
	if path := c.String("config"); len(path) > 0 {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}

	if err := config.ApplyEnv(cfg, lookup); err != nil {
		return nil, err
	}

	if c.IsSet("directory") {
		cfg.Files.Root = c.String("directory")
	}

	if c.IsSet("port") {
		port := c.Uint("port")
		if port > 65535 {
			return nil, fmt.Errorf("port out of range: %d", port)
		}

		cfg.NET.Port = uint16(port)
	}

	if c.IsSet("workers") {
		cfg.NET.Workers = c.Int("workers")
	}

	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}

	if c.IsSet("metrics-addr") {
		cfg.Metrics.Addr = c.String("metrics-addr")
	}

	return cfg, cfg.Validate()
}

func serve(ctx context.Context, cfg *config.Config) error {
	log, err := logging.New(cfg.Log, os.Stderr)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	svc, err := service.New(cfg.Files)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	log.Info().
		Str("addr", cfg.Addr()).
		Str("directory", svc.Root()).
		Str("version", version).
		Msg("starting minihttp")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := minihttp.New(cfg).
			Logger(log).
			Metrics(registry).
			Serve(ctx, svc.Router())
		if errors.Is(err, status.ErrShutdown) {
			return nil
		}

		return err
	})

	if len(cfg.Metrics.Addr) > 0 {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, metrics.Handler(registry))
		server := &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           mux,
			ReadHeaderTimeout: metricsShutdownTimeout,
		}

		g.Go(func() error {
			log.Info().Str("addr", cfg.Metrics.Addr).Msg("exposing metrics")
			if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics: %w", err)
			}

			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
			defer cancel()

			return server.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}
