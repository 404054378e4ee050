package headers

import (
	"iter"

	"github.com/indigo-web/utils/strcomp"
)

type Header struct {
	Key, Value string
}

// Headers is an ordered storage of header pairs. It acts as a map but uses linear search
// instead, which is more efficient on the amounts of entries a request usually carries.
// Keys are compared case-sensitively, except by SetFold.
type Headers struct {
	pairs []Header
}

func New() *Headers {
	return new(Headers)
}

// NewPrealloc returns an instance of Headers with pre-allocated underlying storage.
func NewPrealloc(n int) *Headers {
	return &Headers{
		pairs: make([]Header, 0, n),
	}
}

// Add appends a new pair, regardless of whether the key is already presented.
func (h *Headers) Add(key, value string) *Headers {
	h.pairs = append(h.pairs, Header{Key: key, Value: value})
	return h
}

// Set overrides the value of an existing key in place, so the original position is kept.
// If the key isn't presented, the pair is appended.
func (h *Headers) Set(key, value string) *Headers {
	for i := range h.pairs {
		if h.pairs[i].Key == key {
			h.pairs[i].Value = value
			return h
		}
	}

	return h.Add(key, value)
}

// SetFold does the same as Set, but the key is matched case-insensitively. The stored key
// is replaced, too.
func (h *Headers) SetFold(key, value string) *Headers {
	for i := range h.pairs {
		if strcomp.EqualFold(h.pairs[i].Key, key) {
			h.pairs[i] = Header{Key: key, Value: value}
			return h
		}
	}

	return h.Add(key, value)
}

// Get returns a value and a bool, indicating whether the value was found.
func (h *Headers) Get(key string) (value string, found bool) {
	for _, pair := range h.pairs {
		if pair.Key == key {
			return pair.Value, true
		}
	}

	return "", false
}

// Value returns the value corresponding to the key. Otherwise, empty string is returned.
func (h *Headers) Value(key string) string {
	value, _ := h.Get(key)
	return value
}

// HasFold reports whether there's an entry of the key, ignoring the case.
func (h *Headers) HasFold(key string) bool {
	for _, pair := range h.pairs {
		if strcomp.EqualFold(pair.Key, key) {
			return true
		}
	}

	return false
}

// Has indicates, whether there's an entry of the key.
func (h *Headers) Has(key string) bool {
	_, found := h.Get(key)
	return found
}

// Pairs returns an iterator over the pairs in insertion order.
func (h *Headers) Pairs() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		for _, pair := range h.pairs {
			if !yield(pair.Key, pair.Value) {
				break
			}
		}
	}
}

// Expose exposes the underlying pairs slice.
func (h *Headers) Expose() []Header {
	return h.pairs
}

// Len returns a number of stored pairs.
func (h *Headers) Len() int {
	return len(h.pairs)
}

func (h *Headers) Empty() bool {
	return h.Len() == 0
}

// Clear all the entries. However, all the allocated space won't be freed.
func (h *Headers) Clear() *Headers {
	h.pairs = h.pairs[:0]
	return h
}
