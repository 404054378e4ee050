// Package service implements the handlers served by minihttp: echo, user-agent and a
// flat file store.
package service

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/indigo-web/minihttp/config"
	"github.com/indigo-web/minihttp/http"
	"github.com/indigo-web/minihttp/http/method"
	"github.com/indigo-web/minihttp/http/status"
	"github.com/indigo-web/minihttp/router/inbuilt"
)

const userAgent = "User-Agent"

var ErrRootNotAllowed = errors.New("root directory is not in the allow-list")

// Service holds the state shared by handlers. It is immutable after New.
type Service struct {
	cfg  config.Files
	root string
}

// New validates the files configuration against the allow-list. An empty root disables
// the files route.
func New(cfg config.Files) (*Service, error) {
	if len(cfg.Root) > 0 && len(cfg.AllowedRoots) > 0 && !allowed(cfg.Root, cfg.AllowedRoots) {
		return nil, fmt.Errorf("%w: %s", ErrRootNotAllowed, cfg.Root)
	}

	return &Service{
		cfg:  cfg,
		root: cfg.Root,
	}, nil
}

func allowed(root string, allowList []string) bool {
	clean := filepath.Clean(root)

	return slices.ContainsFunc(allowList, func(dir string) bool {
		return filepath.Clean(dir) == clean
	})
}

// Root returns the directory served by the files route.
func (s *Service) Root() string {
	return s.root
}

// Router returns the route table with every handler of the service registered.
func (s *Service) Router() *inbuilt.Router {
	return inbuilt.New().
		Root(http.Respond).
		Route("echo", s.Echo).
		Route("user-agent", s.UserAgent).
		Route("files", s.Files)
}

// Echo responds with the segment after /echo/ as plain text.
func (s *Service) Echo(request *http.Request) *http.Response {
	message, _ := request.Segment(2)
	return http.String(request, message)
}

// UserAgent responds with the User-Agent header value as plain text.
func (s *Service) UserAgent(request *http.Request) *http.Response {
	return http.String(request, request.Headers.Value(userAgent))
}

// Files reads a file on GET and writes the request body into it on POST.
func (s *Service) Files(request *http.Request) *http.Response {
	name, ok := request.Segment(2)
	if !ok || len(name) == 0 || len(s.root) == 0 {
		return http.Error(request, status.ErrNotFound)
	}

	if s.cfg.RejectTraversal && !isFilename(name) {
		request.Log.Debug().Str("file", name).Msg("rejecting non-local filename")
		return http.Error(request, status.ErrNotFound)
	}

	path := filepath.Join(s.root, name)

	switch request.Method {
	case method.GET:
		return s.readFile(request, path)
	case method.POST:
		return s.writeFile(request, path)
	default:
		return http.Error(request, status.ErrNotFound)
	}
}

func (s *Service) readFile(request *http.Request, path string) *http.Response {
	content, err := os.ReadFile(path)
	if err != nil {
		request.Log.Debug().Err(err).Str("path", path).Msg("cannot read file")
		return http.Error(request, status.ErrNotFound)
	}

	if s.cfg.StripNewlines {
		content = stripNewlines(content)
	}

	return http.Bytes(request, content)
}

func (s *Service) writeFile(request *http.Request, path string) *http.Response {
	if len(request.Body) == 0 {
		return http.Error(request, status.ErrNotFound)
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		request.Log.Warn().Err(err).Str("path", path).Msg("cannot remove file")
		return http.Error(request, status.ErrNotFound)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		request.Log.Warn().Err(err).Str("path", path).Msg("cannot create file")
		return http.Error(request, status.ErrNotFound)
	}

	_, err = file.Write(request.Body)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		request.Log.Warn().Err(err).Str("path", path).Msg("cannot write file")
		return http.Error(request, status.ErrNotFound)
	}

	return http.Code(request, status.Created)
}

// isFilename reports whether name refers to an entry inside the root and not to the root
// itself.
func isFilename(name string) bool {
	return filepath.IsLocal(name) && filepath.Clean(name) != "."
}

func stripNewlines(b []byte) []byte {
	if bytes.IndexAny(b, "\r\n") == -1 {
		return b
	}

	return slices.DeleteFunc(b, func(c byte) bool {
		return c == '\r' || c == '\n'
	})
}
