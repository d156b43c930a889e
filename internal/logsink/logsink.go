// Package logsink implements the async, severity-filtered, buffered, single-consumer
// log sink (Component E). It is the kernel-facing sink the engine's internal
// components log through; internal/obslog's Logger is the separate, ambient
// application-facing logger the CLI uses.
package logsink

import (
	"fmt"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mpengine/mpcore/internal/queue"
	"github.com/mpengine/mpcore/internal/term"
)

// Level is the sink's severity, ordered INFO < WARN < ERROR per the spec.
type Level int

const (
	INFO Level = iota
	WARN
	ERROR
)

func (l Level) String() string {
	switch l {
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

type entry struct {
	message string
	level   Level
	seq     uint64
	at      time.Time
}

// Sink is the async log sink. Construct one with New; the package also exposes a
// process-wide Global() singleton matching the source's global RuntimeLog instance.
type Sink struct {
	path     string
	level    Level
	queue    *queue.Queue[entry]
	flushing atomic.Bool
	seq      atomic.Uint64
	mu       sync.Mutex // guards path/level updates
}

const defaultCapacity = 256

// New creates a sink with the given file path, severity threshold, and queue
// capacity, and registers it with the termination registry so pending entries are
// flushed on process exit.
func New(path string, level Level, capacity int) *Sink {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	s := &Sink{
		path:  path,
		level: level,
		queue: queue.New[entry](capacity),
	}
	term.Global().RegisterCallback(func(any) {
		for !s.queue.Empty() {
			s.Flush()
		}
	})
	return s
}

var (
	globalOnce sync.Once
	globalSink *Sink
)

// Global returns the process-wide sink, constructing it with defaults on first use.
func Global() *Sink {
	globalOnce.Do(func() {
		globalSink = New("./mpcore.log", INFO, defaultCapacity)
	})
	return globalSink
}

// SetLevel changes the severity threshold.
func (s *Sink) SetLevel(level Level) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.level = level
}

// Add enqueues a message at the given level. If the queue is momentarily full, the
// caller itself drives one Flush and retries exactly once more before giving up
// (matching the spec's literal wording, not the source's unbounded retry loop).
func (s *Sink) Add(message string, level Level) {
	e := entry{message: message, level: level, seq: s.seq.Add(1), at: time.Now()}
	if s.queue.TryEnqueue(e) {
		return
	}
	s.Flush()
	s.queue.TryEnqueue(e)
}

// Flush drains the queue and writes surviving entries to the log file. Only one
// goroutine performs an actual flush at a time; if another is already flushing, the
// caller yields and returns immediately (entries it enqueued concurrently are still
// safe, since the queue itself tolerates concurrent production during a flush).
func (s *Sink) Flush() {
	if !s.flushing.CompareAndSwap(false, true) {
		runtime.Gosched()
		return
	}
	defer s.flushing.Store(false)

	s.mu.Lock()
	path := s.path
	threshold := s.level
	s.mu.Unlock()

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		// Flush failures are swallowed; logging is never allowed to fail the caller.
		return
	}
	defer file.Close()

	for {
		e, ok := s.queue.TryPop()
		if !ok {
			break
		}
		if e.level < threshold {
			continue
		}
		fmt.Fprintf(file, "[%s] [%s] seq=%d %s\n", e.at.Format("2006-01-02 15:04:05.000"), e.level, e.seq, e.message)
	}
}
