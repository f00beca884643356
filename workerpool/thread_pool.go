package workerpool

import "sync"

// job pairs a task with where to deliver its result, if anyone is
// waiting for one.
type job struct {
	task Task
	ch   chan Result // nil for LaunchNoFuture
}

// ThreadPool runs tasks on a fixed number of worker goroutines
// consuming a shared queue (§4.8: "N worker threads consume a shared
// queue").
type ThreadPool struct {
	jobs chan job
	wg   sync.WaitGroup
}

// NewThreadPool starts a ThreadPool with the given worker count
// (at least 1).
func NewThreadPool(workers int) *ThreadPool {
	if workers < 1 {
		workers = 1
	}
	p := &ThreadPool{jobs: make(chan job, workers*4)}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

func (p *ThreadPool) worker() {
	defer p.wg.Done()
	for j := range p.jobs {
		r := runTask(j.task)
		if j.ch != nil {
			j.ch <- r
			close(j.ch)
		}
	}
}

func (p *ThreadPool) Launch(f Task) Future {
	ch := make(chan Result, 1)
	p.jobs <- job{task: f, ch: ch}
	return chanFuture{ch: ch}
}

func (p *ThreadPool) LaunchNoFuture(f Task) {
	p.jobs <- job{task: f}
}

// Close stops accepting new work and waits for in-flight jobs to
// drain before the worker goroutines exit.
func (p *ThreadPool) Close() {
	close(p.jobs)
	p.wg.Wait()
}
