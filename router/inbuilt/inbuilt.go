package inbuilt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/indigo-web/minihttp/http"
	"github.com/indigo-web/minihttp/http/status"
	"github.com/indigo-web/minihttp/router"
)

type (
	Handler      func(*http.Request) *http.Response
	ErrorHandler func(*http.Request, error) *http.Response
)

type route struct {
	segment string
	handler Handler
}

var _ router.Router = new(Router)

// Router is a built-in implementation of router.Router interface. It dispatches requests
// by the first path segment, checking registered segments in the registration order. The
// route table is frozen by OnStart.
type Router struct {
	root     Handler
	routes   []route
	notFound Handler
	onError  ErrorHandler
	started  bool
}

// New constructs a new instance of inbuilt router
func New() *Router {
	return &Router{
		notFound: defaultNotFound,
		onError:  http.Error,
	}
}

// Route registers a handler for every path whose first segment equals to segment. The
// segment must not contain slashes.
func (r *Router) Route(segment string, handler Handler) *Router {
	r.mustNotBeStarted()

	if strings.Contains(segment, "/") {
		panic(fmt.Sprintf("inbuilt: segment %q must not contain slashes", segment))
	}

	r.routes = append(r.routes, route{
		segment: segment,
		handler: handler,
	})

	return r
}

// Root registers a handler for the exact "/" path.
func (r *Router) Root(handler Handler) *Router {
	r.mustNotBeStarted()
	r.root = handler
	return r
}

// NotFound overrides the handler for unmatched requests. Defaults to an empty 404.
func (r *Router) NotFound(handler Handler) *Router {
	r.mustNotBeStarted()
	r.notFound = handler
	return r
}

// RouteError overrides the handler responding to requests that couldn't be parsed.
// Defaults to http.Error.
func (r *Router) RouteError(handler ErrorHandler) *Router {
	r.mustNotBeStarted()
	r.onError = handler
	return r
}

var ErrDuplicateRoute = errors.New("duplicate route")

// OnStart validates and freezes the route table.
func (r *Router) OnStart() error {
	seen := make(map[string]struct{}, len(r.routes))

	for _, rt := range r.routes {
		if _, found := seen[rt.segment]; found {
			return fmt.Errorf("%w: %q", ErrDuplicateRoute, rt.segment)
		}

		seen[rt.segment] = struct{}{}
	}

	r.started = true

	return nil
}

func (r *Router) OnRequest(request *http.Request) *http.Response {
	if r.root != nil && request.Path == "/" {
		return r.root(request)
	}

	segment, ok := request.Segment(1)
	if !ok {
		return r.notFound(request)
	}

	for _, rt := range r.routes {
		if rt.segment == segment {
			return rt.handler(request)
		}
	}

	return r.notFound(request)
}

func (r *Router) OnError(request *http.Request, err error) *http.Response {
	return r.onError(request, err)
}

func (r *Router) mustNotBeStarted() {
	if r.started {
		panic("inbuilt: the route table is frozen after OnStart")
	}
}

func defaultNotFound(request *http.Request) *http.Response {
	return http.Code(request, status.NotFound)
}
