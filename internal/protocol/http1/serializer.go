package http1

import (
	"io"

	"github.com/indigo-web/minihttp/http"
	"github.com/indigo-web/minihttp/http/status"
)

// Serializer renders responses into the wire format. Only 200 OK responses carry headers
// and a body, every other code is rendered as a bare status line followed by an empty
// line, even if the response has headers or a body set.
type Serializer struct {
	buff []byte
}

func NewSerializer(buff []byte) *Serializer {
	return &Serializer{
		buff: buff[:0],
	}
}

// Render returns the serialized response. The returned slice is valid until the next
// call.
func (s *Serializer) Render(response *http.Response) []byte {
	s.buff = s.buff[:0]
	fields := response.Reveal()
	s.buff = append(s.buff, status.Line(fields.Code)...)

	if fields.Code != status.OK {
		s.crlf()
		return s.buff
	}

	for _, header := range fields.Headers.Expose() {
		s.buff = append(s.buff, header.Key...)
		s.colonsp()
		s.buff = append(s.buff, header.Value...)
		s.crlf()
	}

	s.crlf()
	s.buff = append(s.buff, fields.Body...)

	return s.buff
}

// Buffer returns the underlying buffer, possibly grown by rendering.
func (s *Serializer) Buffer() []byte {
	return s.buff[:0]
}

// Write renders the response and writes it in a single call.
func (s *Serializer) Write(response *http.Response, w io.Writer) error {
	_, err := w.Write(s.Render(response))
	return err
}

func (s *Serializer) crlf() {
	s.buff = append(s.buff, '\r', '\n')
}

func (s *Serializer) colonsp() {
	s.buff = append(s.buff, ':', ' ')
}
