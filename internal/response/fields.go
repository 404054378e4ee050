package response

import (
	"github.com/indigo-web/minihttp/http/headers"
	"github.com/indigo-web/minihttp/http/status"
)

// why 4? Handlers of this server set at most Content-Type and Content-Length, so there's
// some room left for custom ones.
const preallocHeaders = 4

type Fields struct {
	Headers *headers.Headers
	Body    []byte
	Code    status.Code
}

func NewFields() *Fields {
	return &Fields{
		Code:    status.OK,
		Headers: headers.NewPrealloc(preallocHeaders),
	}
}

func (f *Fields) Clear() {
	f.Code = status.OK
	f.Headers.Clear()
	f.Body = nil
}
