// Package simple wraps plain functions into a router.Router. Useful mostly when all the
// requests are served the same way.
package simple

import (
	"github.com/indigo-web/minihttp/http"
	"github.com/indigo-web/minihttp/router"
)

type (
	Handler      func(*http.Request) *http.Response
	ErrorHandler func(*http.Request, error) *http.Response
)

var _ router.Router = new(Router)

type Router struct {
	handler    Handler
	errHandler ErrorHandler
}

// New returns a router calling handler for every request. If errHandler is nil, errors are
// responded by their status code.
func New(handler Handler, errHandler ErrorHandler) *Router {
	if errHandler == nil {
		errHandler = http.Error
	}

	return &Router{
		handler:    handler,
		errHandler: errHandler,
	}
}

func (Router) OnStart() error {
	return nil
}

func (r Router) OnRequest(request *http.Request) *http.Response {
	return r.handler(request)
}

func (r Router) OnError(request *http.Request, err error) *http.Response {
	return r.errHandler(request, err)
}
