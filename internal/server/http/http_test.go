package http

import (
	"bytes"
	"testing"
	"time"

	"github.com/indigo-web/minihttp/config"
	"github.com/indigo-web/minihttp/http"
	"github.com/indigo-web/minihttp/internal/metrics"
	"github.com/indigo-web/minihttp/internal/server/tcp/dummy"
	"github.com/indigo-web/minihttp/router/inbuilt"
	"github.com/indigo-web/minihttp/router/simple"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func getRouter(t *testing.T) *inbuilt.Router {
	r := inbuilt.New().
		Root(http.Respond).
		Route("echo", func(request *http.Request) *http.Response {
			msg, _ := request.Segment(2)
			return http.String(request, msg)
		}).
		Route("panic", func(*http.Request) *http.Response {
			panic("something went wrong")
		}).
		Route("nil", func(*http.Request) *http.Response {
			return nil
		})
	require.NoError(t, r.OnStart())

	return r
}

func serve(t *testing.T, cfg *config.Config, conn *dummy.Conn) string {
	server := NewServer(cfg, getRouter(t), zerolog.Nop(), nil)
	server.HandleConn(conn)
	require.True(t, conn.Closed())

	return string(conn.Written())
}

func TestServer(t *testing.T) {
	t.Run("echo", func(t *testing.T) {
		conn := dummy.NewConn([]byte("GET /echo/abc HTTP/1.1\r\nHost: localhost\r\n\r\n"))
		got := serve(t, config.Default(), conn)
		require.Equal(t,
			"HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\nContent-Length: 3\r\n\r\nabc", got)
	})

	t.Run("root", func(t *testing.T) {
		conn := dummy.NewConn([]byte("GET / HTTP/1.1\r\n\r\n"))
		require.Equal(t, "HTTP/1.1 200 OK\r\n\r\n", serve(t, config.Default(), conn))
	})

	t.Run("not found", func(t *testing.T) {
		conn := dummy.NewConn([]byte("GET /unknown HTTP/1.1\r\n\r\n"))
		require.Equal(t, "HTTP/1.1 404 Not Found\r\n\r\n", serve(t, config.Default(), conn))
	})

	t.Run("slow peer", func(t *testing.T) {
		conn := dummy.NewConn([]byte("GET /echo/slow HTTP/1.1\r\nUser-Agent: x\r\n\r\n")).Chunked(1)
		got := serve(t, config.Default(), conn)
		require.Equal(t,
			"HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\nContent-Length: 4\r\n\r\nslow", got)
	})

	t.Run("handler panic", func(t *testing.T) {
		conn := dummy.NewConn([]byte("GET /panic HTTP/1.1\r\n\r\n"))
		require.Equal(t, "HTTP/1.1 500 Internal Server Error\r\n\r\n", serve(t, config.Default(), conn))
	})

	t.Run("nil response", func(t *testing.T) {
		conn := dummy.NewConn([]byte("GET /nil HTTP/1.1\r\n\r\n"))
		require.Equal(t, "HTTP/1.1 200 OK\r\n\r\n", serve(t, config.Default(), conn))
	})

	t.Run("empty request", func(t *testing.T) {
		conn := dummy.NewConn()
		require.Empty(t, serve(t, config.Default(), conn))
	})
}

func TestServer_Malformed(t *testing.T) {
	requests := []string{
		"GARBAGE\r\n\r\n",
		"PUT /echo/abc HTTP/1.1\r\n\r\n",
		"GET /echo/abc\r\n\r\n",
	}

	t.Run("close", func(t *testing.T) {
		for _, request := range requests {
			conn := dummy.NewConn([]byte(request))
			require.Empty(t, serve(t, config.Default(), conn), request)
		}
	})

	t.Run("respond", func(t *testing.T) {
		cfg := config.Default()
		cfg.HTTP.OnMalformed = config.RespondOnMalformed

		for _, request := range requests {
			conn := dummy.NewConn([]byte(request))
			require.Equal(t, "HTTP/1.1 400 Bad Request\r\n\r\n", serve(t, cfg, conn), request)
		}
	})
}

func TestServer_WriteFailure(t *testing.T) {
	var logs bytes.Buffer
	conn := dummy.NewConn([]byte("GET /echo/abc HTTP/1.1\r\n\r\n")).FailWrites()
	server := NewServer(config.Default(), getRouter(t), zerolog.New(&logs), nil)
	server.HandleConn(conn)

	require.True(t, conn.Closed())
	require.Empty(t, conn.Written())
	require.Contains(t, logs.String(), "writing response")
}

func TestServer_Deadlines(t *testing.T) {
	t.Run("disabled by default", func(t *testing.T) {
		conn := dummy.NewConn([]byte("GET / HTTP/1.1\r\n\r\n"))
		serve(t, config.Default(), conn)
		read, write := conn.Deadlines()
		require.True(t, read.IsZero())
		require.True(t, write.IsZero())
	})

	t.Run("configured", func(t *testing.T) {
		cfg := config.Default()
		cfg.NET.ReadTimeout = time.Minute
		cfg.NET.WriteTimeout = time.Minute

		conn := dummy.NewConn([]byte("GET / HTTP/1.1\r\n\r\n"))
		serve(t, cfg, conn)
		read, write := conn.Deadlines()
		require.False(t, read.IsZero())
		require.False(t, write.IsZero())
	})

	t.Run("sub-second", func(t *testing.T) {
		cfg := config.Default()
		cfg.NET.ReadTimeout = 200 * time.Millisecond
		cfg.NET.WriteTimeout = 200 * time.Millisecond

		for range 10 {
			before := time.Now()
			conn := dummy.NewConn([]byte("GET /echo/abc HTTP/1.1\r\n\r\n"))
			require.Contains(t, serve(t, cfg, conn), "abc")

			read, write := conn.Deadlines()
			require.True(t, read.After(before), "read deadline is already expired")
			require.True(t, write.After(before), "write deadline is already expired")
			time.Sleep(50 * time.Millisecond)
		}
	})
}

func TestServer_CustomRouter(t *testing.T) {
	r := simple.New(func(request *http.Request) *http.Response {
		return http.String(request, request.Headers.Value("User-Agent"))
	}, nil)
	conn := dummy.NewConn([]byte("GET /anything HTTP/1.1\r\nUser-Agent: curl/8.0\r\n\r\n"))

	NewServer(config.Default(), r, zerolog.Nop(), nil).HandleConn(conn)
	require.Equal(t,
		"HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\nContent-Length: 8\r\n\r\ncurl/8.0",
		string(conn.Written()))
}

func TestServer_Metrics(t *testing.T) {
	stats := metrics.New()
	server := NewServer(config.Default(), getRouter(t), zerolog.Nop(), stats)

	for _, request := range []string{
		"GET /echo/a HTTP/1.1\r\n\r\n",
		"GET /unknown HTTP/1.1\r\n\r\n",
		"GET /panic HTTP/1.1\r\n\r\n",
		"GARBAGE\r\n\r\n",
	} {
		server.HandleConn(dummy.NewConn([]byte(request)))
	}

	require.Equal(t, 4.0, testutil.ToFloat64(stats.Connections))
	require.Equal(t, 0.0, testutil.ToFloat64(stats.InFlight))
	require.Equal(t, 1.0, testutil.ToFloat64(stats.Requests.WithLabelValues("200")))
	require.Equal(t, 1.0, testutil.ToFloat64(stats.Requests.WithLabelValues("404")))
	require.Equal(t, 1.0, testutil.ToFloat64(stats.Requests.WithLabelValues("500")))
	require.Equal(t, 1.0, testutil.ToFloat64(stats.Malformed))
	require.Equal(t, 1.0, testutil.ToFloat64(stats.Panics))
}

func TestServer_ReleaseBuffer(t *testing.T) {
	server := NewServer(config.Default(), getRouter(t), zerolog.Nop(), nil)

	require.True(t, server.releaseBuffer(make([]byte, 0, 4096)))
	require.True(t, server.releaseBuffer(make([]byte, 0, maxPooledBuffer)))
	require.False(t, server.releaseBuffer(make([]byte, 0, maxPooledBuffer+1)))
}
