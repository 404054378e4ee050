package tcp

import (
	"context"
	"errors"
	"net"
	"os"
	"sync/atomic"
	"time"

	"github.com/indigo-web/minihttp/config"
	"github.com/indigo-web/minihttp/http/status"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	minAcceptBackoff = 5 * time.Millisecond
	maxAcceptBackoff = time.Second
)

// Listener is a net.Listener whose Accept can be interrupted by a deadline.
type Listener interface {
	net.Listener
	SetDeadline(t time.Time) error
}

// OnConn handles an accepted connection. It owns the connection and must close it.
type OnConn func(conn net.Conn)

// Bind creates a TCP listener with SO_REUSEADDR set, where supported.
func Bind(ctx context.Context, addr string) (*net.TCPListener, error) {
	lc := net.ListenConfig{Control: control}

	l, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	return l.(*net.TCPListener), nil
}

// Server accepts connections and hands them to the worker pool.
type Server struct {
	l         Listener
	pool      *Pool
	onConn    OnConn
	interrupt time.Duration
	limiter   *rate.Limiter
	stop      atomic.Bool
	log       zerolog.Logger
	// sleep is replaced in tests
	sleep func(time.Duration)
}

func NewServer(l Listener, pool *Pool, cfg config.NET, log zerolog.Logger, onConn OnConn) *Server {
	interrupt := cfg.AcceptLoopInterruptPeriod
	if interrupt <= 0 {
		interrupt = time.Second
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.AcceptRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.AcceptRate), max(cfg.AcceptBurst, 1))
	}

	return &Server{
		l:         l,
		pool:      pool,
		onConn:    onConn,
		interrupt: interrupt,
		limiter:   limiter,
		log:       log,
		sleep:     time.Sleep,
	}
}

// Start runs the accept loop until ctx is cancelled or Stop is called. The Accept call is
// interrupted every so often in order to notice the stop. On exit, the listener is closed
// and the pool shut down, but connections already accepted are served till the end.
// Returns status.ErrShutdown after a requested stop.
func (s *Server) Start(ctx context.Context) error {
	defer func() {
		_ = s.l.Close()
		s.pool.Shutdown()
	}()

	backoff := time.Duration(0)

	for !s.stopped(ctx) {
		if err := s.l.SetDeadline(time.Now().Add(s.interrupt)); err != nil {
			return err
		}

		conn, err := s.l.Accept()
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				continue
			}

			if errors.Is(err, net.ErrClosed) {
				if s.stopped(ctx) {
					break
				}

				return err
			}

			backoff = nextBackoff(backoff)
			s.log.Warn().Err(err).Dur("retry_in", backoff).Msg("accept failed")
			s.sleep(backoff)
			continue
		}

		backoff = 0

		if err = s.limiter.Wait(ctx); err != nil {
			_ = conn.Close()
			continue
		}

		if err = s.pool.Submit(func() {
			s.onConn(conn)
		}); err != nil {
			_ = conn.Close()
			return err
		}
	}

	return status.ErrShutdown
}

// Stop makes the accept loop exit on the next interrupt.
func (s *Server) Stop() {
	s.stop.Store(true)
}

// Wait blocks until every accepted connection is processed. Meaningful only after the
// loop has exited.
func (s *Server) Wait() {
	s.pool.Wait()
}

func (s *Server) stopped(ctx context.Context) bool {
	return s.stop.Load() || ctx.Err() != nil
}

func nextBackoff(prev time.Duration) time.Duration {
	if prev == 0 {
		return minAcceptBackoff
	}

	return min(prev*2, maxAcceptBackoff)
}
