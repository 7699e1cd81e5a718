package worker

import (
	"fmt"
	"sync"
)

type job struct {
	fn   func() error
	done func(error)
}

// Pool runs submitted jobs on a fixed number of goroutines.
type Pool struct {
	jobs      chan job
	loop      *Loop
	closed    chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewPool starts size workers. Completion callbacks run on loop when it is
// non-nil, otherwise on the worker goroutine.
func NewPool(size int, loop *Loop) *Pool {
	if size < 1 {
		size = 1
	}
	p := &Pool{
		jobs:   make(chan job, size*4),
		loop:   loop,
		closed: make(chan struct{}),
	}
	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go p.work()
	}
	return p
}

// Submit queues fn. done, if set, receives fn's result. Submit reports false
// once the pool is closed.
func (p *Pool) Submit(fn func() error, done func(error)) bool {
	select {
	case <-p.closed:
		return false
	default:
	}
	select {
	case <-p.closed:
		return false
	case p.jobs <- job{fn: fn, done: done}:
		return true
	}
}

// Close stops the workers and waits for running jobs to return. Queued jobs
// that have not started are dropped.
func (p *Pool) Close() {
	p.closeOnce.Do(func() { close(p.closed) })
	p.wg.Wait()
}

func (p *Pool) work() {
	defer p.wg.Done()
	for {
		select {
		case <-p.closed:
			return
		case j := <-p.jobs:
			err := run(j.fn)
			if j.done == nil {
				continue
			}
			if p.loop == nil {
				j.done(err)
				continue
			}
			p.loop.Post(func() { j.done(err) })
		}
	}
}

func run(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return fn()
}
