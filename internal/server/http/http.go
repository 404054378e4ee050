package http

import (
	"bufio"
	"errors"
	"net"
	"time"

	"github.com/indigo-web/minihttp/config"
	"github.com/indigo-web/minihttp/http"
	"github.com/indigo-web/minihttp/http/status"
	"github.com/indigo-web/minihttp/internal/metrics"
	"github.com/indigo-web/minihttp/internal/pool"
	"github.com/indigo-web/minihttp/internal/protocol/http1"
	"github.com/indigo-web/minihttp/router"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// Server serves exactly one request per connection: parse, route, respond, close.
// It is safe for concurrent use, as every connection gets its own parser state.
type Server struct {
	cfg    *config.Config
	router router.Router
	parser *http1.Parser
	log    zerolog.Logger
	stats  *metrics.Metrics

	// readers and buffers are reused across connections
	readers *pool.Pool[*bufio.Reader]
	buffers *pool.Pool[[]byte]
}

// NewServer returns a connection handler. If stats is nil, an unregistered set of
// collectors is used.
func NewServer(cfg *config.Config, r router.Router, log zerolog.Logger, stats *metrics.Metrics) *Server {
	if stats == nil {
		stats = metrics.New()
	}

	readers := pool.New(func() *bufio.Reader {
		return bufio.NewReaderSize(nil, cfg.NET.ReadBufferSize)
	})
	buffers := pool.New(func() []byte {
		return make([]byte, 0, cfg.NET.ReadBufferSize)
	})

	return &Server{
		cfg:     cfg,
		router:  r,
		parser:  http1.NewParser(cfg),
		log:     log,
		stats:   stats,
		readers: readers,
		buffers: buffers,
	}
}

// HandleConn processes the connection and closes it, no matter what.
func (s *Server) HandleConn(conn net.Conn) {
	done := s.stats.ConnStarted()
	defer done()

	log := s.log.With().
		Str("conn", ulid.Make().String()).
		Stringer("remote", conn.RemoteAddr()).
		Logger()

	defer func() {
		if err := conn.Close(); err != nil {
			log.Debug().Err(err).Msg("closing connection")
		}
	}()

	if s.cfg.NET.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(s.cfg.NET.ReadTimeout))
	}

	request := http.NewRequest()
	request.Remote = conn.RemoteAddr()
	request.Log = log

	reader := s.readers.Acquire()
	reader.Reset(conn)
	defer func() {
		reader.Reset(nil)
		s.readers.Release(reader)
	}()

	var response *http.Response

	if err := s.parser.Parse(reader, request); err != nil {
		if !errors.Is(err, status.ErrMalformedRequest) {
			log.Debug().Err(err).Msg("reading request")
			return
		}

		log.Info().Err(err).Msg("malformed request")
		s.stats.Malformed.Inc()

		if s.cfg.HTTP.OnMalformed != config.RespondOnMalformed {
			return
		}

		response = s.onError(request, err)
	} else {
		log.Debug().
			Stringer("method", request.Method).
			Str("path", request.Path).
			Msg("request")

		response = s.onRequest(request)
	}

	if s.cfg.NET.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.NET.WriteTimeout))
	}

	buff := s.buffers.Acquire()
	serializer := http1.NewSerializer(buff)
	err := serializer.Write(response, conn)
	s.releaseBuffer(serializer.Buffer())

	if err != nil {
		log.Warn().Err(err).Msg("writing response")
		return
	}

	code := response.Reveal().Code
	s.stats.Responded(code)
	log.Debug().Uint16("code", uint16(code)).Msg("responded")
}

// maxPooledBuffer is the largest render buffer kept for reuse. Buffers grown by big
// responses are left to the garbage collector.
const maxPooledBuffer = 64 * 1024

func (s *Server) releaseBuffer(buff []byte) (released bool) {
	if cap(buff) > maxPooledBuffer {
		return false
	}

	s.buffers.Release(buff)
	return true
}

func (s *Server) onError(request *http.Request, err error) *http.Response {
	return notNil(request, s.router.OnError(request, err))
}

func (s *Server) onRequest(request *http.Request) (response *http.Response) {
	defer func() {
		if r := recover(); r != nil {
			request.Log.Error().Interface("panic", r).Str("path", request.Path).Msg("handler panicked")
			s.stats.Panics.Inc()
			response = http.Error(request, status.ErrInternalServerError)
		}
	}()

	return notNil(request, s.router.OnRequest(request))
}

func notNil(request *http.Request, response *http.Response) *http.Response {
	if response != nil {
		return response
	}

	return http.Respond(request)
}
