package executor

import (
	"sync"
	"time"

	"github.com/eapache/channels"

	"github.com/streamstore/streamstore/catalog"
	"github.com/streamstore/streamstore/metrics"
	"github.com/streamstore/streamstore/utils/log"
)

/*
	Executor serializes compaction per topic: one worker goroutine and
	an unbounded queue per topic, so at most one run is ever active for
	a topic while different topics compact concurrently. The compaction
	core assumes exactly this mutual exclusion and takes no lock of its
	own.
*/
type Executor struct {
	mu      sync.Mutex
	workers map[string]*worker
	wg      sync.WaitGroup
	closed  bool
}

type worker struct {
	queue *channels.InfiniteChannel
}

type task struct {
	run func() error
	fut *Future
}

func NewExecutor() *Executor {
	return &Executor{workers: map[string]*worker{}}
}

// Compact schedules one compaction run for the topic and returns a
// future that resolves when the run has published or failed. Requests
// for one topic are executed strictly in submission order.
func (ex *Executor) Compact(t *catalog.Topic) *Future {
	return ex.submit(t.Name, t.Compactor().Compact)
}

func (ex *Executor) submit(topic string, run func() error) *Future {
	fut := newFuture()

	ex.mu.Lock()
	if ex.closed {
		ex.mu.Unlock()
		fut.resolve(ExecutorClosedError(topic))
		return fut
	}
	w, ok := ex.workers[topic]
	if !ok {
		w = &worker{queue: channels.NewInfiniteChannel()}
		ex.workers[topic] = w
		ex.wg.Add(1)
		go ex.drain(topic, w)
	}

	// The infinite channel's writer side never blocks, so the send can
	// stay under the lock. Shutdown closes the queues under the same
	// lock, which keeps this send and the close strictly ordered.
	w.queue.In() <- &task{run: run, fut: fut}
	ex.mu.Unlock()
	return fut
}

func (ex *Executor) drain(topic string, w *worker) {
	defer ex.wg.Done()
	for v := range w.queue.Out() {
		t := v.(*task)
		start := time.Now()
		err := t.run()
		if err != nil {
			metrics.CompactionRunsTotal.WithLabelValues("failure").Inc()
			log.Error("compaction run for topic %s failed: %v", topic, err)
		} else {
			metrics.CompactionRunsTotal.WithLabelValues("success").Inc()
			metrics.CompactionDuration.Observe(time.Since(start).Seconds())
		}
		t.fut.resolve(err)
	}
}

// Shutdown stops accepting work and waits for in-flight runs to
// finish.
func (ex *Executor) Shutdown() {
	ex.mu.Lock()
	if ex.closed {
		ex.mu.Unlock()
		return
	}
	ex.closed = true
	for _, w := range ex.workers {
		w.queue.Close()
	}
	ex.mu.Unlock()
	ex.wg.Wait()
}

type ExecutorClosedError string

func (msg ExecutorClosedError) Error() string {
	return string(msg) + ": executor is shut down"
}
