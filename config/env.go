package config

import (
	"fmt"
	"strconv"
	"time"
)

// EnvPrefix prefixes every environment variable recognized by ApplyEnv.
const EnvPrefix = "MINIHTTP_"

// LookupFunc has the same signature as os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides the config with environment variables:
//
//	MINIHTTP_HOST, MINIHTTP_PORT, MINIHTTP_WORKERS, MINIHTTP_DIRECTORY,
//	MINIHTTP_READ_TIMEOUT, MINIHTTP_WRITE_TIMEOUT, MINIHTTP_ACCEPT_RATE,
//	MINIHTTP_ON_MALFORMED, MINIHTTP_METRICS_ADDR, MINIHTTP_LOG_LEVEL,
//	MINIHTTP_LOG_FORMAT
//
// Unparseable values are reported instead of being silently ignored.
func ApplyEnv(cfg *Config, lookup LookupFunc) error {
	env := func(name string) (string, bool) {
		value, found := lookup(EnvPrefix + name)
		return value, found && len(value) > 0
	}

	if host, ok := env("HOST"); ok {
		cfg.NET.Host = host
	}

	if port, ok := env("PORT"); ok {
		p, err := strconv.ParseUint(port, 10, 16)
		if err != nil {
			return fmt.Errorf("%sPORT: %w", EnvPrefix, err)
		}

		cfg.NET.Port = uint16(p)
	}

	if workers, ok := env("WORKERS"); ok {
		w, err := strconv.Atoi(workers)
		if err != nil {
			return fmt.Errorf("%sWORKERS: %w", EnvPrefix, err)
		}

		cfg.NET.Workers = w
	}

	if dir, ok := env("DIRECTORY"); ok {
		cfg.Files.Root = dir
	}

	for name, dst := range map[string]*time.Duration{
		"READ_TIMEOUT":  &cfg.NET.ReadTimeout,
		"WRITE_TIMEOUT": &cfg.NET.WriteTimeout,
	} {
		value, ok := env(name)
		if !ok {
			continue
		}

		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}

		*dst = d
	}

	if rate, ok := env("ACCEPT_RATE"); ok {
		r, err := strconv.ParseFloat(rate, 64)
		if err != nil {
			return fmt.Errorf("%sACCEPT_RATE: %w", EnvPrefix, err)
		}

		cfg.NET.AcceptRate = r
	}

	if addr, ok := env("METRICS_ADDR"); ok {
		cfg.Metrics.Addr = addr
	}

	if policy, ok := env("ON_MALFORMED"); ok {
		cfg.HTTP.OnMalformed = MalformedPolicy(policy)
	}

	if level, ok := env("LOG_LEVEL"); ok {
		cfg.Log.Level = level
	}

	if format, ok := env("LOG_FORMAT"); ok {
		cfg.Log.Format = format
	}

	return cfg.Validate()
}
