package workerpool

import "sync"

// ThreadOnDemand spawns one goroutine per launch (§4.8: "each launch
// spawns a detached thread"). A WaitGroup lets Close drain
// outstanding goroutines instead of a counting semaphore, since Go
// goroutines are cheap enough that XPN's external bound (configured
// concurrency at the client/server call site) is sufficient.
type ThreadOnDemand struct {
	wg sync.WaitGroup
}

// NewThreadOnDemand constructs the pool.
func NewThreadOnDemand() *ThreadOnDemand { return &ThreadOnDemand{} }

func (p *ThreadOnDemand) Launch(f Task) Future {
	ch := make(chan Result, 1)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ch <- runTask(f)
		close(ch)
	}()
	return chanFuture{ch: ch}
}

func (p *ThreadOnDemand) LaunchNoFuture(f Task) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		_ = runTask(f)
	}()
}

// Close waits for all detached goroutines launched so far to finish.
func (p *ThreadOnDemand) Close() {
	p.wg.Wait()
}
