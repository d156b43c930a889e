package dag

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/mpengine/mpcore/internal/pool"
)

// Unit is a scheduling atom: an inbound dependency counter, an outbound list of
// forward callbacks, and one or more tasks run once the counter reaches zero. A unit
// forwards at most once, enforced by decrementing to exactly zero exactly once rather
// than by a separate guard flag.
type Unit struct {
	remaining atomic.Int64
	latch     atomic.Int64
	tasks     []func() error
	desc      string
	kind      string
	pool      *pool.Pool

	fwMu         sync.Mutex
	forwardCalls []func()
}

// NewMonoUnit builds a unit with a single task (or no task at all, for a trivial
// forward-only source like a constant node's unit).
func NewMonoUnit(p *pool.Pool, desc string, task func() error) *Unit {
	var tasks []func() error
	if task != nil {
		tasks = []func() error{task}
	}
	u := &Unit{pool: p, desc: desc, kind: "mono", tasks: tasks}
	u.latch.Store(int64(max(len(tasks), 1)))
	return u
}

// NewParallelUnit builds a unit with multiple internal tasks; forward callbacks fire
// only once every task has completed, mirroring the source's ParallelizableUnit with
// its internal latch.
func NewParallelUnit(p *pool.Pool, desc string, tasks ...func() error) *Unit {
	u := &Unit{pool: p, desc: desc, kind: "parallel", tasks: tasks}
	u.latch.Store(int64(max(len(tasks), 1)))
	return u
}

// AddDependency registers pred as a predecessor: this unit's counter is incremented,
// and pred gains a forward callback that decrements it.
func (u *Unit) AddDependency(pred *Unit) {
	u.remaining.Add(1)
	pred.fwMu.Lock()
	pred.forwardCalls = append(pred.forwardCalls, u.notifyDependencyDone)
	pred.fwMu.Unlock()
}

func (u *Unit) notifyDependencyDone() {
	if u.remaining.Add(-1) == 0 {
		u.submit()
	}
}

// Kick submits a dependency-free unit (a source node's unit, with no AddDependency
// calls against it) directly.
func (u *Unit) Kick() {
	u.submit()
}

func (u *Unit) submit() {
	if len(u.tasks) == 0 {
		u.forward()
		return
	}
	runnables := make([]pool.Task, len(u.tasks))
	for i, fn := range u.tasks {
		fn := fn
		runnables[i] = pool.NewTaskFunc(fmt.Sprintf("%s#%d", u.desc, i), func() error {
			err := fn()
			if u.latch.Add(-1) == 0 {
				u.forward()
			}
			return err
		})
	}
	u.pool.Submit(runnables...)
}

func (u *Unit) forward() {
	u.fwMu.Lock()
	calls := u.forwardCalls
	u.fwMu.Unlock()
	for _, fn := range calls {
		fn()
	}
}

// Description names the unit for diagnostics, mirroring the source's
// BasicComputeUnitType::get_type()/description() accessors.
func (u *Unit) Description() string { return u.desc }

// DependencyKind reports whether this unit is a mono or a parallelizable compute
// unit, mirroring the source's BasicComputeUnitType::get_acceptance().
func (u *Unit) DependencyKind() string { return u.kind }

// ForwardSignal classifies how many forward callbacks this unit has accumulated, the
// same three-way distinction export diagnostics in the source make: a unit with no
// successors, exactly one, or more than one.
func (u *Unit) ForwardSignal() string {
	u.fwMu.Lock()
	n := len(u.forwardCalls)
	u.fwMu.Unlock()
	switch n {
	case 0:
		return "NO_FORWARDS"
	case 1:
		return "SERIALIZE_SIGNAL"
	default:
		return "DEFAULT_SIGNAL"
	}
}
