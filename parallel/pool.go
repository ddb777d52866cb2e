/*package parallel provides a fixed pool of worker goroutines with fork-join
dispatch.

Each call to Run hands the same task to every worker along with that worker's
index, then blocks until all of them have finished. The barrier is hard: no
caller observes partial results. Workers carry no state of their own; anything
per-worker is indexed by the worker id on the caller's side.
*/
package parallel

import (
	"runtime"
)

// Pool is a fixed set of worker goroutines.
type Pool struct {
	workers int
	tasks   []chan func(worker int)
	done    chan struct{}
}

// NewPool creates a pool with the given number of workers. If workers <= 0,
// the number of logical cores is used.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	p := &Pool{
		workers: workers,
		tasks:   make([]chan func(int), workers),
		done:    make(chan struct{}, workers),
	}
	for id := range p.tasks {
		p.tasks[id] = make(chan func(int))
		go p.loop(id)
	}
	return p
}

func (p *Pool) loop(id int) {
	for task := range p.tasks[id] {
		task(id)
		p.done <- struct{}{}
	}
}

// Workers returns the number of workers in the pool.
func (p *Pool) Workers() int { return p.workers }

// Run executes task once per worker, passing each invocation its worker
// index, and blocks until every invocation has returned.
//
// Run must not be called concurrently with itself and task must not call Run.
func (p *Pool) Run(task func(worker int)) {
	for _, c := range p.tasks {
		c <- task
	}
	for i := 0; i < p.workers; i++ {
		<-p.done
	}
}

// Close shuts the workers down. The pool must not be used afterwards.
func (p *Pool) Close() {
	for _, c := range p.tasks {
		close(c)
	}
}
