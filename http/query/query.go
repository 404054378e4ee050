package query

import (
	"errors"
	"strings"
)

var ErrNoSuchKey = errors.New("no entry by the key")

// Query holds the parameters of a request-target, the part after the first '?'.
// The last occurrence of a key wins.
type Query struct {
	params map[string]string
}

// Parse splits raw by '&' into key=value pairs. Pairs carrying anything other than exactly
// one '=' are silently dropped. No percent-decoding is performed.
func Parse(raw string) Query {
	if len(raw) == 0 {
		return Query{}
	}

	params := make(map[string]string, strings.Count(raw, "&")+1)

	for pair := range strings.SplitSeq(raw, "&") {
		if strings.Count(pair, "=") != 1 {
			continue
		}

		key, value, _ := strings.Cut(pair, "=")
		params[key] = value
	}

	return Query{params: params}
}

// Get returns the value by the key or ErrNoSuchKey.
func (q Query) Get(key string) (string, error) {
	value, found := q.params[key]
	if !found {
		return "", ErrNoSuchKey
	}

	return value, nil
}

// Value returns the value by the key or an empty string.
func (q Query) Value(key string) string {
	return q.params[key]
}

func (q Query) Has(key string) bool {
	_, found := q.params[key]
	return found
}

func (q Query) Len() int {
	return len(q.params)
}

// Unwrap returns all the parameters. The map must not be modified.
func (q Query) Unwrap() map[string]string {
	return q.params
}
