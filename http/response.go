package http

import (
	"strconv"

	"github.com/indigo-web/minihttp/http/mime"
	"github.com/indigo-web/minihttp/http/status"
	"github.com/indigo-web/minihttp/internal/response"
	"github.com/indigo-web/utils/uf"
)

const (
	contentType   = "Content-Type"
	contentLength = "Content-Length"
)

// Response is a builder of an HTTP response. Headers are rendered in the same order as
// they were set.
type Response struct {
	fields *response.Fields
}

// NewResponse returns a new instance of the Response object with status code set to 200 OK,
// no headers and no body.
func NewResponse() *Response {
	return &Response{
		fields: response.NewFields(),
	}
}

// Code sets a Response code.
func (r *Response) Code(code status.Code) *Response {
	r.fields.Code = code
	return r
}

// Header sets the header value. In case it already exists (keys are compared
// case-insensitively), the value is overridden in place.
func (r *Response) Header(key, value string) *Response {
	r.fields.Headers.SetFold(key, value)
	return r
}

// ContentType sets a custom Content-Type header value.
func (r *Response) ContentType(value mime.MIME) *Response {
	return r.Header(contentType, value)
}

// String sets the response's body to the passed string
func (r *Response) String(body string) *Response {
	return r.Bytes(uf.S2B(body))
}

// Bytes sets the response's body to passed slice WITHOUT COPYING. Content-Length is set
// accordingly, and if no Content-Type was set before, application/octet-stream is used.
func (r *Response) Bytes(body []byte) *Response {
	if body == nil {
		body = []byte{}
	}

	if !r.fields.Headers.HasFold(contentType) {
		r.ContentType(mime.OctetStream)
	}

	r.fields.Body = body

	return r.Header(contentLength, strconv.Itoa(len(body)))
}

// Error sets the status code carried by the error. Errors which are not status.HTTPError
// result in 500 Internal Server Error. If passed err is nil, nothing will happen.
func (r *Response) Error(err error) *Response {
	if err == nil {
		return r
	}

	return r.Code(status.CodeOf(err))
}

// Reveal returns a struct with values, filled by builder. Used mostly in internal purposes
func (r *Response) Reveal() *response.Fields {
	return r.fields
}

// Clear discards everything was done with Response object before
func (r *Response) Clear() *Response {
	r.fields.Clear()
	return r
}

// Respond is a predicate to request.Respond(). May be used as a dummy handler
func Respond(request *Request) *Response {
	return request.Respond()
}

// Code is a predicate to request.Respond().Code(...)
func Code(request *Request, code status.Code) *Response {
	return request.Respond().Code(code)
}

// String is a predicate to request.Respond().ContentType(mime.Plain).String(...)
func String(request *Request, str string) *Response {
	return request.Respond().ContentType(mime.Plain).String(str)
}

// Bytes is a predicate to request.Respond().Bytes(...)
func Bytes(request *Request, b []byte) *Response {
	return request.Respond().Bytes(b)
}

// Error is a predicate to request.Respond().Error(...)
func Error(request *Request, err error) *Response {
	return request.Respond().Error(err)
}
