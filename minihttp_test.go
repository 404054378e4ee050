package minihttp

import (
	"context"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/indigo-web/minihttp/config"
	"github.com/indigo-web/minihttp/http/status"
	"github.com/indigo-web/minihttp/internal/requestgen"
	"github.com/indigo-web/minihttp/service"
	"github.com/indigo-web/minihttp/testutils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run starts the app on a random port and returns its address. The app is stopped when
// the test ends.
func run(t *testing.T, cfg *config.Config) string {
	cfg.NET.AcceptLoopInterruptPeriod = 20 * time.Millisecond

	svc, err := service.New(cfg.Files)
	require.NoError(t, err)

	l, err := testutils.Listen()
	require.NoError(t, err)

	app := New(cfg)
	started := make(chan struct{})
	errCh := make(chan error, 1)
	app.NotifyOnStart(func() {
		close(started)
	})

	go func() {
		errCh <- app.ServeListener(context.Background(), l, svc.Router())
	}()

	<-started
	t.Cleanup(func() {
		app.Stop()
		require.ErrorIs(t, <-errCh, status.ErrShutdown)
	})

	return l.Addr().String()
}

func TestServer(t *testing.T) {
	cfg := config.Default()
	cfg.NET.Workers = 2
	cfg.Files.Root = t.TempDir()
	addr := run(t, cfg)

	t.Run("root", func(t *testing.T) {
		resp, err := testutils.Roundtrip(addr, "GET / HTTP/1.1\r\nHost: localhost:4221\r\n\r\n")
		require.NoError(t, err)
		require.Equal(t, "HTTP/1.1 200 OK\r\n\r\n", resp)
	})

	t.Run("echo", func(t *testing.T) {
		resp, err := testutils.Roundtrip(addr, "GET /echo/abc HTTP/1.1\r\nHost: localhost:4221\r\n\r\n")
		require.NoError(t, err)
		require.Equal(t,
			"HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\nContent-Length: 3\r\n\r\nabc", resp)
	})

	t.Run("user-agent", func(t *testing.T) {
		request := "GET /user-agent HTTP/1.1\r\nHost: localhost:4221\r\nUser-Agent: foobar/1.2.3\r\n\r\n"
		resp, err := testutils.Roundtrip(addr, request)
		require.NoError(t, err)
		require.Equal(t,
			"HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\nContent-Length: 12\r\n\r\nfoobar/1.2.3", resp)
	})

	t.Run("many headers", func(t *testing.T) {
		request := requestgen.Generate("GET", "/user-agent", requestgen.Headers(20), nil)
		resp, err := testutils.Roundtrip(addr, string(request))
		require.NoError(t, err)
		require.Equal(t,
			"HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\nContent-Length: 0\r\n\r\n", resp)
	})

	t.Run("files", func(t *testing.T) {
		request := "POST /files/hello.txt HTTP/1.1\r\nHost: localhost:4221\r\nContent-Length: 5\r\n\r\nhello"
		resp, err := testutils.Roundtrip(addr, request)
		require.NoError(t, err)
		require.Equal(t, "HTTP/1.1 201 Created\r\n\r\n", resp)

		resp, err = testutils.Roundtrip(addr, "GET /files/hello.txt HTTP/1.1\r\n\r\n")
		require.NoError(t, err)
		require.Equal(t,
			"HTTP/1.1 200 OK\r\nContent-Type: application/octet-stream\r\nContent-Length: 5\r\n\r\nhello",
			resp)

		resp, err = testutils.Roundtrip(addr, "GET /files/nope.txt HTTP/1.1\r\n\r\n")
		require.NoError(t, err)
		require.Equal(t, "HTTP/1.1 404 Not Found\r\n\r\n", resp)
	})

	t.Run("unknown path", func(t *testing.T) {
		resp, err := testutils.Roundtrip(addr, "GET /unknown HTTP/1.1\r\n\r\n")
		require.NoError(t, err)
		require.Equal(t, "HTTP/1.1 404 Not Found\r\n\r\n", resp)
	})

	t.Run("malformed", func(t *testing.T) {
		resp, err := testutils.Roundtrip(addr, "GARBAGE\r\n\r\n")
		require.NoError(t, err)
		require.Empty(t, resp)
	})

	t.Run("concurrent", func(t *testing.T) {
		const clients = 16
		var wg sync.WaitGroup

		for i := range clients {
			wg.Add(1)
			go func() {
				defer wg.Done()

				msg := fmt.Sprintf("client%d", i)
				resp, err := testutils.Roundtrip(addr, "GET /echo/"+msg+" HTTP/1.1\r\n\r\n")
				if !assert.NoError(t, err) {
					return
				}

				want := fmt.Sprintf(
					"HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\nContent-Length: %d\r\n\r\n%s",
					len(msg), msg,
				)
				assert.Equal(t, want, resp)
			}()
		}

		wg.Wait()
	})
}

func TestServer_RespondOnMalformed(t *testing.T) {
	cfg := config.Default()
	cfg.HTTP.OnMalformed = config.RespondOnMalformed
	addr := run(t, cfg)

	for _, request := range []string{"GARBAGE\r\n\r\n", "DELETE /echo/a HTTP/1.1\r\n\r\n"} {
		resp, err := testutils.Roundtrip(addr, request)
		require.NoError(t, err)
		require.Equal(t, "HTTP/1.1 400 Bad Request\r\n\r\n", resp)
	}
}

func TestApp(t *testing.T) {
	t.Run("stop before serve", func(t *testing.T) {
		l, err := testutils.Listen()
		require.NoError(t, err)

		var onStop bool
		app := New(nil).NotifyOnStop(func() {
			onStop = true
		})
		app.Stop()
		require.ErrorIs(t, app.ServeListener(context.Background(), l, nil), status.ErrShutdown)
		require.True(t, onStop)

		_, err = net.Dial("tcp", l.Addr().String())
		require.Error(t, err)
	})

	t.Run("context cancel", func(t *testing.T) {
		l, err := testutils.Listen()
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		app := New(nil).NotifyOnStart(cancel)
		require.ErrorIs(t, app.ServeListener(ctx, l, nil), status.ErrShutdown)
	})

	t.Run("serve binds configured address", func(t *testing.T) {
		cfg := config.Default()
		cfg.NET.Host = "127.0.0.1"
		cfg.NET.Port = 0

		app := New(cfg)
		app.NotifyOnStart(app.Stop)
		require.ErrorIs(t, app.Serve(context.Background(), nil), status.ErrShutdown)
	})

	t.Run("metrics", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		cfg := config.Default()
		cfg.NET.AcceptLoopInterruptPeriod = 20 * time.Millisecond

		l, err := testutils.Listen()
		require.NoError(t, err)

		app := New(cfg).Metrics(reg)
		app.NotifyOnStart(func() {
			go func() {
				defer app.Stop()

				resp, err := testutils.Roundtrip(l.Addr().String(), "GET /missing HTTP/1.1\r\n\r\n")
				assert.NoError(t, err)
				assert.Equal(t, "HTTP/1.1 404 Not Found\r\n\r\n", resp)
			}()
		})
		require.ErrorIs(t, app.ServeListener(context.Background(), l, nil), status.ErrShutdown)

		families, err := reg.Gather()
		require.NoError(t, err)
		names := make([]string, 0, len(families))
		for _, family := range families {
			names = append(names, family.GetName())
		}
		require.Contains(t, names, "minihttp_connections_total")
		require.Contains(t, names, "minihttp_responses_total")
	})

	t.Run("router fails to start", func(t *testing.T) {
		l, err := testutils.Listen()
		require.NoError(t, err)

		svc, err := service.New(config.Files{})
		require.NoError(t, err)
		r := svc.Router().Route("echo", nil)

		err = New(nil).ServeListener(context.Background(), l, r)
		require.Error(t, err)
		require.NotErrorIs(t, err, status.ErrShutdown)
	})
}
