package executor

// Future reports the completion of a scheduled compaction run. It
// resolves exactly once, with the first error the run encountered or
// nil on success.
type Future struct {
	done chan struct{}
	err  error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) resolve(err error) {
	f.err = err
	close(f.done)
}

// Done is closed when the run has completed.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Err returns the run's outcome. Only valid after Done is closed.
func (f *Future) Err() error {
	return f.err
}

// Wait blocks until the run completes and returns its outcome.
func (f *Future) Wait() error {
	<-f.done
	return f.err
}
