package router

import (
	"github.com/indigo-web/minihttp/http"
)

// Router maps parsed requests to responses.
type Router interface {
	// OnStart is called once before the server starts accepting connections. After it,
	// the router must not change.
	OnStart() error
	// OnRequest returns exactly one response. It never fails: failures are expressed as
	// responses with corresponding status codes.
	OnRequest(request *http.Request) *http.Response
	// OnError returns a response for a request that couldn't be read completely.
	OnError(request *http.Request, err error) *http.Response
}
