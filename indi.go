// Package minihttp is a minimal HTTP/1.1 server: one request per connection, GET and POST
// only, served by a fixed pool of workers.
package minihttp

import (
	"context"
	"sync"

	"github.com/indigo-web/minihttp/config"
	"github.com/indigo-web/minihttp/internal/metrics"
	"github.com/indigo-web/minihttp/internal/server/http"
	"github.com/indigo-web/minihttp/internal/server/tcp"
	"github.com/indigo-web/minihttp/router"
	"github.com/indigo-web/minihttp/router/inbuilt"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// Listener is a net.Listener whose Accept can be interrupted by a deadline, e.g.
// *net.TCPListener.
type Listener = tcp.Listener

// App binds the configuration, the router and the server loop together.
type App struct {
	cfg      *config.Config
	log      zerolog.Logger
	hooks    hooks
	registry prometheus.Registerer

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped bool
}

// New returns a new App instance. A nil config means config.Default().
func New(cfg *config.Config) *App {
	if cfg == nil {
		cfg = config.Default()
	}

	return &App{
		cfg: cfg,
		log: zerolog.Nop(),
	}
}

// Logger replaces the default no-op logger.
func (a *App) Logger(log zerolog.Logger) *App {
	a.log = log
	return a
}

// Metrics registers server collectors in the registry when serving starts.
func (a *App) Metrics(registry prometheus.Registerer) *App {
	a.registry = registry
	return a
}

// NotifyOnStart calls the callback when the listener is bound and the router is started.
// Connections made from the moment on are guaranteed to be served.
func (a *App) NotifyOnStart(cb func()) *App {
	a.hooks.OnStart = cb
	return a
}

// NotifyOnStop calls the callback when the listener is closed and every accepted
// connection is served.
func (a *App) NotifyOnStop(cb func()) *App {
	a.hooks.OnStop = cb
	return a
}

// Serve binds the configured address and serves until ctx is done or Stop is called. If
// nil is passed instead of a router, empty inbuilt will be used.
func (a *App) Serve(ctx context.Context, r router.Router) error {
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	l, err := tcp.Bind(ctx, a.cfg.Addr())
	if err != nil {
		return err
	}

	return a.ServeListener(ctx, l, r)
}

// ServeListener is like Serve, but uses an already bound listener. The listener is
// closed on exit. Returns status.ErrShutdown after a requested stop.
func (a *App) ServeListener(ctx context.Context, l Listener, r router.Router) error {
	if r == nil {
		r = inbuilt.New()
	}

	if err := r.OnStart(); err != nil {
		_ = l.Close()
		return err
	}

	stats := metrics.New()
	if a.registry != nil {
		if err := stats.Register(a.registry); err != nil {
			_ = l.Close()
			return err
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if !a.setCancel(cancel) {
		cancel()
	}

	httpServer := http.NewServer(a.cfg, r, a.log, stats)
	server := tcp.NewServer(
		l,
		tcp.NewPool(a.cfg.NET.Workers),
		a.cfg.NET,
		a.log,
		httpServer.HandleConn,
	)

	a.log.Info().
		Stringer("addr", l.Addr()).
		Int("workers", a.cfg.NET.Workers).
		Msg("listening")
	callIfNotNil(a.hooks.OnStart)

	err := server.Start(ctx)
	server.Wait()

	a.log.Info().Err(err).Msg("stopped")
	callIfNotNil(a.hooks.OnStop)

	return err
}

// Stop makes the running Serve return after every accepted connection is served. The
// call isn't blocking. Calling it before Serve makes Serve exit immediately.
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stopped = true
	if a.cancel != nil {
		a.cancel()
	}
}

// setCancel reports false if the app was already stopped.
func (a *App) setCancel(cancel context.CancelFunc) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.cancel = cancel
	return !a.stopped
}

type hooks struct {
	OnStart, OnStop func()
}

func callIfNotNil(f func()) {
	if f != nil {
		f()
	}
}
