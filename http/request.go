package http

import (
	"net"
	"strings"

	"github.com/indigo-web/minihttp/http/headers"
	"github.com/indigo-web/minihttp/http/method"
	"github.com/indigo-web/minihttp/http/query"
	"github.com/rs/zerolog"
)

// Request represents HTTP request. A request lives exactly as long as the connection it
// was read from, and is never shared between connections.
type Request struct {
	// Method is either method.GET or method.POST, as nothing else passes the parser.
	Method method.Method
	// Path is the request-target without the query part. It isn't decoded nor normalized.
	Path string
	// Version is the protocol token as sent by the client, e.g. HTTP/1.1.
	Version string
	// Headers holds header pairs with case-sensitive names. On duplicate keys the last
	// occurrence wins.
	Headers *headers.Headers
	// Query holds parameters parsed from the request-target.
	Query query.Query
	// Body is nil unless a positive Content-Length was supplied. It may be shorter than
	// declared if the stream ended prematurely.
	Body []byte
	// Remote holds the remote address. May be nil for in-memory connections.
	Remote net.Addr
	// Log is the connection-scoped logger.
	Log zerolog.Logger
}

func NewRequest() *Request {
	return &Request{
		Method:  method.Unknown,
		Headers: headers.NewPrealloc(8),
		Log:     zerolog.Nop(),
	}
}

// HasBody reports whether the request carried a body.
func (r *Request) HasBody() bool {
	return r.Body != nil
}

// Segment returns the path segment by its index, counting the empty string before the
// leading slash as the segment 0. So for /echo/abc the segment 1 is "echo" and the
// segment 2 is "abc". The bool is false when there are not enough segments.
func (r *Request) Segment(n int) (string, bool) {
	path := r.Path

	for i := 0; i < n; i++ {
		slash := strings.IndexByte(path, '/')
		if slash == -1 {
			return "", false
		}

		path = path[slash+1:]
	}

	if slash := strings.IndexByte(path, '/'); slash != -1 {
		path = path[:slash]
	}

	return path, true
}

// Respond returns a fresh response builder with status code set to 200 OK.
func (r *Request) Respond() *Response {
	return NewResponse()
}
