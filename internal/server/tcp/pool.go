package tcp

import (
	"errors"
	"sync"
)

var ErrPoolClosed = errors.New("worker pool is closed")

// Pool runs submitted tasks on a fixed number of workers. Tasks are queued in FIFO
// order and the queue is unbounded, so Submit never blocks on busy workers.
type Pool struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []func()
	closed  bool
	workers sync.WaitGroup
}

// NewPool starts n workers. n below 1 is treated as 1.
func NewPool(n int) *Pool {
	if n < 1 {
		n = 1
	}

	p := new(Pool)
	p.cond = sync.NewCond(&p.mu)
	p.workers.Add(n)

	for range n {
		go p.worker()
	}

	return p
}

// Submit enqueues the task. After Shutdown, it returns ErrPoolClosed and the task is
// never run.
func (p *Pool) Submit(task func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPoolClosed
	}

	p.queue = append(p.queue, task)
	p.cond.Signal()

	return nil
}

// Shutdown stops accepting new tasks. Already queued tasks are still run.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.cond.Broadcast()
}

// Wait blocks until Shutdown was called and every queued task has completed.
func (p *Pool) Wait() {
	p.workers.Wait()
}

func (p *Pool) worker() {
	defer p.workers.Done()

	for {
		task, ok := p.next()
		if !ok {
			return
		}

		task()
	}
}

func (p *Pool) next() (func(), bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for len(p.queue) == 0 {
		if p.closed {
			return nil, false
		}

		p.cond.Wait()
	}

	task := p.queue[0]
	p.queue[0] = nil
	p.queue = p.queue[1:]

	return task, true
}
