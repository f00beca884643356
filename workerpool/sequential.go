package workerpool

// Sequential executes every task inline on the caller's goroutine
// (§4.8: "launch executes inline on the caller thread and returns a
// ready future").
type Sequential struct{}

// NewSequential constructs the sequential pool.
func NewSequential() *Sequential { return &Sequential{} }

func (p *Sequential) Launch(f Task) Future {
	return immediateFuture{result: runTask(f)}
}

func (p *Sequential) LaunchNoFuture(f Task) {
	_ = runTask(f)
}

func (p *Sequential) Close() {}
