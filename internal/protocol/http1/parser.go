package http1

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/indigo-web/minihttp/config"
	"github.com/indigo-web/minihttp/http"
	"github.com/indigo-web/minihttp/http/method"
	"github.com/indigo-web/minihttp/http/query"
	"github.com/indigo-web/minihttp/http/status"
	"github.com/indigo-web/utils/uf"
)

const contentLength = "Content-Length"

var headerSeparator = []byte(": ")

// Parser reads exactly one request from a line-oriented stream. It holds no per-request
// state, so a single instance may be shared by all the connections.
type Parser struct {
	cfg *config.Config
}

func NewParser(cfg *config.Config) *Parser {
	return &Parser{cfg: cfg}
}

// Parse fills the request from r. Errors wrapping status.ErrMalformedRequest mean the
// request itself is bad, any other error comes from the underlying stream.
func (p *Parser) Parse(r *bufio.Reader, request *http.Request) error {
	if err := p.parseRequestLine(r, request); err != nil {
		return err
	}

	if err := p.parseHeaders(r, request); err != nil {
		return err
	}

	return p.parseBody(r, request)
}

func (p *Parser) parseRequestLine(r *bufio.Reader, request *http.Request) error {
	line, err := p.readLine(r)
	switch {
	case errors.Is(err, io.EOF):
		return status.ErrEmptyRequest
	case err != nil:
		return err
	case len(line) == 0:
		return status.ErrEmptyRequest
	}

	tokens := bytes.Fields(line)
	if len(tokens) != 3 {
		return status.ErrBadRequestLine
	}

	request.Method = method.Parse(uf.B2S(tokens[0]))
	if request.Method == method.Unknown {
		return status.ErrUnsupportedMethod
	}

	path, rawQuery, _ := strings.Cut(string(tokens[1]), "?")
	request.Path = path
	request.Query = query.Parse(rawQuery)
	request.Version = string(tokens[2])

	return nil
}

// parseHeaders reads header lines until an empty one or the end of the stream. Lines
// without the ": " separator are skipped.
func (p *Parser) parseHeaders(r *bufio.Reader, request *http.Request) error {
	maxHeaders := p.cfg.HTTP.MaxHeaders

	for count := 0; ; count++ {
		line, err := p.readLine(r)
		switch {
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			return err
		}

		if len(bytes.TrimSpace(line)) == 0 {
			return nil
		}

		if maxHeaders > 0 && count >= maxHeaders {
			return status.ErrTooManyHeaders
		}

		key, value, found := bytes.Cut(line, headerSeparator)
		if !found {
			request.Log.Debug().Bytes("line", line).Msg("header formatted incorrectly, skipping")
			continue
		}

		request.Headers.Set(string(key), string(value))
	}
}

// parseBody reads at most Content-Length bytes. A body cut by the end of the stream is
// accepted as is, unless HTTP.StrictBody is set.
func (p *Parser) parseBody(r *bufio.Reader, request *http.Request) error {
	value, found := request.Headers.Get(contentLength)
	if !found || len(value) == 0 {
		return nil
	}

	length, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	switch {
	case err != nil, length < 0:
		return status.ErrBadContentLength
	case length > p.cfg.HTTP.MaxBodySize:
		return status.ErrBodyTooLarge
	case length == 0:
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(r, length))
	if err != nil {
		return err
	}

	if int64(len(body)) < length {
		if p.cfg.HTTP.StrictBody {
			return status.ErrTruncatedBody
		}

		request.Log.Debug().
			Int64("declared", length).
			Int("received", len(body)).
			Msg("request body is truncated")
	}

	request.Body = body

	return nil
}

// readLine returns a line without the trailing CRLF or LF. The last line of the stream
// doesn't need a terminator. Returned slice is valid only until the next read.
func (p *Parser) readLine(r *bufio.Reader) ([]byte, error) {
	var line []byte

	for {
		chunk, more, err := r.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) && line != nil {
				return line, nil
			}

			return nil, err
		}

		if len(line)+len(chunk) > p.cfg.HTTP.MaxLineSize {
			return nil, status.ErrTooLongLine
		}

		if line == nil && !more {
			return chunk, nil
		}

		line = append(line, chunk...)
		if !more {
			return line, nil
		}
	}
}
