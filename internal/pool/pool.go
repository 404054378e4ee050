// Package pool provides a typed wrapper over sync.Pool.
package pool

import "sync"

// Pool is a generic analogue of sync.Pool. It is safe for concurrent use.
type Pool[T any] struct {
	pool sync.Pool
}

// New returns a pool producing new objects via newFn when empty.
func New[T any](newFn func() T) *Pool[T] {
	return &Pool[T]{
		pool: sync.Pool{
			New: func() any {
				return newFn()
			},
		},
	}
}

func (p *Pool[T]) Acquire() T {
	return p.pool.Get().(T)
}

func (p *Pool[T]) Release(obj T) {
	p.pool.Put(obj)
}
