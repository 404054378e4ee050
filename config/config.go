package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unsafe"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"
)

// MalformedPolicy defines what happens to a connection whose request couldn't be parsed.
type MalformedPolicy string

const (
	// CloseOnMalformed closes the connection without writing anything back.
	CloseOnMalformed MalformedPolicy = "close"
	// RespondOnMalformed writes the router's error response (400 Bad Request) before closing.
	RespondOnMalformed MalformedPolicy = "respond"
)

type (
	NET struct {
		// Host is the interface to bind. Empty means all of them.
		Host string `yaml:"host" json:"host" test:"nullable"`
		// Port to listen on. 0 lets the OS pick one.
		Port uint16 `yaml:"port" json:"port"`
		// Workers is the fixed size of the pool processing accepted connections.
		Workers int `yaml:"workers" json:"workers"`
		// ReadBufferSize is the size of the buffered reader wrapping every connection.
		ReadBufferSize int `yaml:"read_buffer_size" json:"read_buffer_size"`
		// ReadTimeout bounds the whole request reading. Zero disables the deadline, so a
		// silent client occupies a worker until it disconnects.
		ReadTimeout time.Duration `yaml:"read_timeout" json:"read_timeout" test:"nullable"`
		// WriteTimeout bounds writing the response. Zero disables the deadline.
		WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout" test:"nullable"`
		// AcceptLoopInterruptPeriod controls how often will the Accept() call be interrupted
		// in order to check whether it's time to stop.
		AcceptLoopInterruptPeriod time.Duration `yaml:"accept_loop_interrupt_period" json:"accept_loop_interrupt_period"`
		// AcceptRate limits accepted connections per second. Zero disables the limit.
		AcceptRate float64 `yaml:"accept_rate" json:"accept_rate" test:"nullable"`
		// AcceptBurst is the number of connections accepted at once above AcceptRate.
		AcceptBurst int `yaml:"accept_burst" json:"accept_burst"`
	}

	HTTP struct {
		// MaxLineSize limits the request line and every header line.
		MaxLineSize int `yaml:"max_line_size" json:"max_line_size"`
		// MaxHeaders is the maximal number of header lines in a request.
		MaxHeaders int `yaml:"max_headers" json:"max_headers"`
		// MaxBodySize is the maximal accepted Content-Length value.
		MaxBodySize int64 `yaml:"max_body_size" json:"max_body_size"`
		// StrictBody rejects requests whose body ended before Content-Length bytes were
		// read. By default, such bodies are accepted truncated.
		StrictBody bool `yaml:"strict_body" json:"strict_body" test:"nullable"`
		// OnMalformed is either "close" or "respond".
		OnMalformed MalformedPolicy `yaml:"on_malformed" json:"on_malformed"`
	}

	Files struct {
		// Root is the directory served by the files route. Empty disables the route.
		Root string `yaml:"root" json:"root" test:"nullable"`
		// AllowedRoots restricts which non-empty Root values are accepted. Empty list
		// allows any.
		AllowedRoots []string `yaml:"allowed_roots" json:"allowed_roots" test:"nullable"`
		// StripNewlines removes every CR and LF byte from served files, as if the file was
		// read line by line and the lines were concatenated.
		StripNewlines bool `yaml:"strip_newlines" json:"strip_newlines"`
		// RejectTraversal answers 404 to filenames that aren't local (.., absolute paths,
		// reserved names) before touching the filesystem.
		RejectTraversal bool `yaml:"reject_traversal" json:"reject_traversal"`
	}

	Metrics struct {
		// Addr is where Prometheus metrics are exposed. Empty disables the endpoint.
		Addr string `yaml:"addr" json:"addr" test:"nullable"`
		Path string `yaml:"path" json:"path"`
	}

	Log struct {
		// Level is one of zerolog levels: trace, debug, info, warn, error, disabled.
		Level string `yaml:"level" json:"level"`
		// Format is either "console" or "json".
		Format string `yaml:"format" json:"format"`
	}
)

// Config holds settings used across the server, mainly limits, policies and the served
// directory.
//
// You must ALWAYS modify defaults (returned via Default()) and NEVER try to initialize the
// config manually, because most likely this will result in ambiguous errors.
type Config struct {
	NET     NET     `yaml:"net" json:"net"`
	HTTP    HTTP    `yaml:"http" json:"http"`
	Files   Files   `yaml:"files" json:"files"`
	Metrics Metrics `yaml:"metrics" json:"metrics"`
	Log     Log     `yaml:"log" json:"log"`
}

// Default returns default config.
func Default() *Config {
	return &Config{
		NET: NET{
			Port:                      4221,
			Workers:                   10,
			ReadBufferSize:            4 * 1024,
			AcceptLoopInterruptPeriod: time.Second,
			AcceptBurst:               64,
		},
		HTTP: HTTP{
			MaxLineSize: 16 * 1024,
			MaxHeaders:  100,
			MaxBodySize: 512 * 1024 * 1024, // 512 megabytes
			OnMalformed: CloseOnMalformed,
		},
		Files: Files{
			StripNewlines:   true,
			RejectTraversal: true,
		},
		Metrics: Metrics{
			Path: "/metrics",
		},
		Log: Log{
			Level:  "info",
			Format: "console",
		},
	}
}

// Addr returns the address to bind.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.NET.Host, strconv.Itoa(int(c.NET.Port)))
}

var ErrUnknownFormat = errors.New("unknown config file format")

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func init() {
	jsoniter.RegisterTypeDecoderFunc("time.Duration", decodeDuration)
}

// decodeDuration accepts both Go duration strings ("5s") and plain nanoseconds.
func decodeDuration(ptr unsafe.Pointer, iter *jsoniter.Iterator) {
	switch iter.WhatIsNext() {
	case jsoniter.StringValue:
		d, err := time.ParseDuration(iter.ReadString())
		if err != nil {
			iter.ReportError("decode time.Duration", err.Error())
			return
		}

		*(*time.Duration)(ptr) = d
	case jsoniter.NumberValue:
		*(*time.Duration)(ptr) = time.Duration(iter.ReadInt64())
	default:
		iter.Skip()
		iter.ReportError("decode time.Duration", "expected a string or a number")
	}
}

// Load reads a YAML (.yaml, .yml) or JSON (.json) file on top of defaults. Fields absent
// in the file keep their default values. The result is validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()

	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".json":
		err = json.Unmarshal(data, cfg)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}

	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	return cfg, cfg.Validate()
}

// Validate checks whether the values are usable.
func (c *Config) Validate() error {
	switch {
	case c.NET.Workers < 1:
		return fmt.Errorf("workers must be positive, got %d", c.NET.Workers)
	case c.NET.ReadBufferSize < 16:
		return fmt.Errorf("read buffer size must be at least 16 bytes, got %d", c.NET.ReadBufferSize)
	case c.NET.ReadTimeout < 0 || c.NET.WriteTimeout < 0:
		return errors.New("timeouts must not be negative")
	case c.NET.AcceptLoopInterruptPeriod <= 0:
		return errors.New("accept loop interrupt period must be positive")
	case c.NET.AcceptRate < 0:
		return fmt.Errorf("accept rate must not be negative, got %g", c.NET.AcceptRate)
	case c.NET.AcceptBurst < 1:
		return fmt.Errorf("accept burst must be positive, got %d", c.NET.AcceptBurst)
	case c.HTTP.MaxLineSize < 1:
		return fmt.Errorf("max line size must be positive, got %d", c.HTTP.MaxLineSize)
	case c.HTTP.MaxHeaders < 0:
		return fmt.Errorf("max headers must not be negative, got %d", c.HTTP.MaxHeaders)
	case c.HTTP.MaxBodySize < 0:
		return fmt.Errorf("max body size must not be negative, got %d", c.HTTP.MaxBodySize)
	}

	switch c.HTTP.OnMalformed {
	case CloseOnMalformed, RespondOnMalformed:
	default:
		return fmt.Errorf("unknown malformed request policy: %q", c.HTTP.OnMalformed)
	}

	if !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics path must start with a slash, got %q", c.Metrics.Path)
	}

	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("unknown log format: %q", c.Log.Format)
	}

	return nil
}
