// Package pool implements the engine's persistent worker pool (Component F): a fixed
// set of goroutines draining a shared task queue, adapted from the teacher's
// pkg/parallel worker-pool idiom but generalized from its batch input/output Task[T,R]
// shape to the argument-less, side-effecting compute-unit tasks the DAG schedules.
package pool

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/mpengine/mpcore/internal/logsink"
	"github.com/mpengine/mpcore/internal/queue"
)

// Task is any unit of work the pool can run: a compute unit, or anything adapted via
// TaskFunc.
type Task interface {
	Run() error
	Description() string
}

// TaskFunc adapts a plain closure into a Task, the generalized analogue of the
// teacher's NewTask(input, fn) constructor.
type TaskFunc struct {
	fn   func() error
	desc string
}

// NewTaskFunc builds a Task from a closure and a human-readable description.
func NewTaskFunc(desc string, fn func() error) TaskFunc {
	return TaskFunc{fn: fn, desc: desc}
}

func (t TaskFunc) Run() error            { return t.fn() }
func (t TaskFunc) Description() string   { return t.desc }

// Metrics holds running execution statistics, adapted from the teacher's
// PoolMetrics (itself a snapshot struct, not an atomic one — Pool copies it out under
// its own lock).
type Metrics struct {
	TotalTasks     int64
	CompletedTasks int64
	FailedTasks    int64
	TotalDuration  time.Duration
	MaxTaskTime    time.Duration
}

// Pool is a fixed-size worker pool draining a bounded lock-free queue.
type Pool struct {
	queue         *queue.Queue[Task]
	activeWorkers int
	mu            sync.Mutex
	cond          *sync.Cond
	quit          bool
	wg            sync.WaitGroup
	metrics       Metrics
}

// New starts numWorkers goroutines (default runtime.GOMAXPROCS(0)) draining a queue of
// the given capacity.
func New(numWorkers, queueCapacity int) *Pool {
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	p := &Pool{queue: queue.New[Task](queueCapacity)}
	p.cond = sync.NewCond(&p.mu)
	for i := 0; i < numWorkers; i++ {
		p.wg.Add(1)
		go p.workerLoop()
	}
	return p
}

func (p *Pool) workerLoop() {
	defer p.wg.Done()
	for {
		// Count this worker active before popping, so WaitAllDone never sees an empty
		// queue and zero active workers while a popped task has yet to run.
		p.mu.Lock()
		p.activeWorkers++
		p.mu.Unlock()

		task, ok := p.queue.TryPop()
		if !ok {
			p.mu.Lock()
			p.activeWorkers--
			if p.quit {
				p.mu.Unlock()
				return
			}
			if !p.queue.Empty() {
				// A submission landed between TryPop and acquiring the lock; retry
				// instead of committing to Wait and missing its Broadcast.
				p.mu.Unlock()
				continue
			}
			p.cond.Wait()
			quit := p.quit
			p.mu.Unlock()
			if quit {
				return
			}
			continue
		}

		p.runTask(task)

		p.mu.Lock()
		p.activeWorkers--
		p.cond.Broadcast()
		p.mu.Unlock()
	}
}

func (p *Pool) runTask(task Task) {
	start := time.Now()
	var failed bool
	defer func() {
		duration := time.Since(start)
		if r := recover(); r != nil {
			failed = true
			logsink.Global().Add(fmt.Sprintf("task panicked: %s: %v", task.Description(), r), logsink.ERROR)
		}
		p.mu.Lock()
		p.metrics.TotalTasks++
		p.metrics.TotalDuration += duration
		if duration > p.metrics.MaxTaskTime {
			p.metrics.MaxTaskTime = duration
		}
		if failed {
			p.metrics.FailedTasks++
		} else {
			p.metrics.CompletedTasks++
		}
		p.mu.Unlock()
	}()
	if err := task.Run(); err != nil {
		failed = true
		logsink.Global().Add(fmt.Sprintf("task failed: %s: %v", task.Description(), err), logsink.ERROR)
	}
}

// Metrics returns a snapshot of the pool's running execution statistics.
func (p *Pool) Metrics() Metrics {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.metrics
}

// Submit enqueues tasks and wakes any idle workers. A submission after Shutdown is a
// no-op with a warning: every worker has already exited workerLoop, so enqueuing would
// either strand the task forever or spin Submit itself if the queue is full.
func (p *Pool) Submit(tasks ...Task) {
	p.mu.Lock()
	if p.quit {
		p.mu.Unlock()
		logsink.Global().Add(fmt.Sprintf("submit to pool after shutdown ignored: %d task(s)", len(tasks)), logsink.WARN)
		return
	}
	p.mu.Unlock()

	for _, t := range tasks {
		for !p.queue.TryEnqueue(t) {
			runtime.Gosched()
		}
	}
	p.mu.Lock()
	p.cond.Broadcast()
	p.mu.Unlock()
}

// WaitAllDone blocks until no worker is active and the queue is empty.
func (p *Pool) WaitAllDone() {
	for {
		p.mu.Lock()
		done := p.activeWorkers == 0 && p.queue.Empty()
		p.mu.Unlock()
		if done {
			return
		}
		runtime.Gosched()
	}
}

// Shutdown signals every worker to exit once the queue drains and blocks until they
// have. The pool must not be submitted to again afterward.
func (p *Pool) Shutdown() {
	p.WaitAllDone()
	p.mu.Lock()
	p.quit = true
	p.cond.Broadcast()
	p.mu.Unlock()
	p.wg.Wait()
}
