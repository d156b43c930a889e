// Package context implements the engine's top-level orchestration layer
// (Component J): a Context owns the DAG node list and its fixed (logL, base) pair,
// hands out Handles as context-scoped views onto nodes, and drives the
// sort/generate/evaluate/export pipeline described by the rest of the engine.
//
// Handles are a generational index into the context's own registry rather than a
// direct reference to a node: releasing a handle only retires that particular
// reference (mirroring the source's ~IntegerVarReference erasing its signature
// entry), it never touches the shared node or its limb data, which the context keeps
// alive for as long as the DAG needs it.
package context

import (
	stdctx "context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/mpengine/mpcore/internal/alloc"
	"github.com/mpengine/mpcore/internal/bigint"
	"github.com/mpengine/mpcore/internal/dag"
	"github.com/mpengine/mpcore/internal/journal"
	"github.com/mpengine/mpcore/internal/obslog"
	"github.com/mpengine/mpcore/internal/pool"
	"github.com/mpengine/mpcore/pkg/genjson"
	"github.com/mpengine/mpcore/pkg/mpconfig"
	"github.com/mpengine/mpcore/pkg/mperrors"
)

var tracer = otel.Tracer("mpcore")

// defaultQueueCapacity bounds the worker pool's task queue; unlike the slab pool's
// shard count and the limb-length bounds, the engine has no configuration key for
// this (it is an implementation detail of the scheduler, not the arithmetic domain).
const defaultQueueCapacity = 4096

type handleSlot struct {
	node       dag.Node
	generation uint64
	alive      bool
}

// Context is the DAG arena: the node list (insertion order, later replaced wholesale
// by SortNodes), the handle registry, the fixed precision/base pair every node in
// this context shares, and the worker pool units are scheduled onto.
type Context struct {
	mu              sync.Mutex
	base            bigint.IOBasic
	logLen          int
	precisionDigits int
	limits          bigint.Limits

	nodes []dag.Node
	slots []handleSlot

	workers *pool.Pool
	journal *journal.Journal
}

// NewContext creates a context sized for precisionDigits digits of the requested
// base, with engine limits (min/max limb length, allocation strategy, slab sharding)
// read from cfg (a nil cfg falls back to defaults, same as mpconfig.Default()).
func NewContext(precisionDigits int, base bigint.IOBasic, cfg *mpconfig.Config) *Context {
	logLen := bigint.PrecisionToLogLen(precisionDigits, base)
	minLog := mpconfig.GetOrElse(cfg, "engine.min_log_length", alloc.MinLogLen)
	maxLog := mpconfig.GetOrElse(cfg, "engine.max_log_length", alloc.MaxLogLen)
	delayed := mpconfig.GetOrElse(cfg, "engine.delayed_allocation", true)
	shards := mpconfig.GetOrElse(cfg, "engine.pool_shards", 2*runtime.GOMAXPROCS(0))
	if shards <= 0 {
		shards = 2 * runtime.GOMAXPROCS(0)
	}
	slabInitial := mpconfig.GetOrElse(cfg, "engine.slab_initial_size", 4194304)

	var j *journal.Journal
	if cfg != nil {
		var err error
		j, err = journal.Open(cfg.Journal)
		if err != nil {
			obslog.Global().Warn("failed to open evaluation journal, continuing without it", "error", err)
			j = nil
		}
	}

	return &Context{
		base:            base,
		logLen:          logLen,
		precisionDigits: precisionDigits,
		limits: bigint.Limits{
			MinLogLen:         minLog,
			MaxLogLen:         maxLog,
			DelayedAllocation: delayed,
			Pool:              alloc.New(shards, uint64(slabInitial)),
		},
		workers: pool.New(0, defaultQueueCapacity),
		journal: j,
	}
}

// addHandle registers node in the next free (or newly appended) slot and returns a
// handle referencing it.
func (c *Context) addHandle(node dag.Node) Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.slots {
		if !c.slots[i].alive {
			c.slots[i] = handleSlot{node: node, generation: c.slots[i].generation + 1, alive: true}
			return Handle{ctx: c, index: i, generation: c.slots[i].generation}
		}
	}
	c.slots = append(c.slots, handleSlot{node: node, generation: 1, alive: true})
	return Handle{ctx: c, index: len(c.slots) - 1, generation: 1}
}

func (c *Context) resolve(h Handle) (dag.Node, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if h.index < 0 || h.index >= len(c.slots) {
		return nil, mperrors.New(mperrors.HandleReleasedError, "handle does not belong to this context")
	}
	slot := c.slots[h.index]
	if !slot.alive || slot.generation != h.generation {
		return nil, mperrors.New(mperrors.HandleReleasedError, "handle has been released")
	}
	return slot.node, nil
}

func (c *Context) releaseSlot(h Handle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if h.index >= 0 && h.index < len(c.slots) && c.slots[h.index].generation == h.generation {
		c.slots[h.index] = handleSlot{generation: c.slots[h.index].generation}
	}
}

// MakeInteger parses literal into a new constant node registered in this context and
// returns a handle to it.
func (c *Context) MakeInteger(literal string) (Handle, error) {
	b := bigint.NewBigInt(c.logLen, c.base, c.limits)
	if err := bigint.Parse(literal, b); err != nil {
		return Handle{}, err
	}
	node := dag.NewConstantNode(b)

	c.mu.Lock()
	c.nodes = append(c.nodes, node)
	c.mu.Unlock()

	return c.addHandle(node), nil
}

// Add builds a new binary-add node with a and b as predecessors and returns a handle
// to it. Both handles must resolve within this context.
func (c *Context) Add(a, b Handle) (Handle, error) {
	if a.ctx != c || b.ctx != c {
		return Handle{}, mperrors.New(mperrors.ContextError, "unable to add two integers of different contexts")
	}
	nodeA, err := c.resolve(a)
	if err != nil {
		return Handle{}, err
	}
	nodeB, err := c.resolve(b)
	if err != nil {
		return Handle{}, err
	}

	addNode, err := dag.NewBinaryAddNode(nodeA, nodeB, c.base, c.logLen, c.limits)
	if err != nil {
		return Handle{}, err
	}

	c.mu.Lock()
	c.nodes = append(c.nodes, addNode)
	c.mu.Unlock()

	return c.addHandle(addNode), nil
}

// SortNodes replaces the context's node list with a topological ordering, every node
// after all of its predecessors (Kahn's algorithm, keyed by each node's Nexts successor
// list). On a cycle, the
// context's node list is left exactly as it was: sorting happens against a private
// copy that only replaces c.nodes once every node has been placed.
func (c *Context) SortNodes() error {
	_, span := tracer.Start(stdctx.Background(), "SortNodes")
	defer span.End()

	c.mu.Lock()
	nodes := append([]dag.Node(nil), c.nodes...)
	c.mu.Unlock()
	span.SetAttributes(attribute.Int("node_count", len(nodes)))

	if len(nodes) <= 1 {
		return nil
	}

	indegree := make(map[dag.Node]int, len(nodes))
	for _, n := range nodes {
		indegree[n] = 0
	}
	for _, n := range nodes {
		for _, next := range *n.Nexts() {
			indegree[next]++
		}
	}

	queue := make([]dag.Node, 0, len(nodes))
	for _, n := range nodes {
		if indegree[n] == 0 {
			queue = append(queue, n)
		}
	}

	sorted := make([]dag.Node, 0, len(nodes))
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		sorted = append(sorted, n)
		for _, next := range *n.Nexts() {
			indegree[next]--
			if indegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if len(sorted) != len(nodes) {
		err := mperrors.New(mperrors.DAGConstructionError, "loop detected in a DAG")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	c.mu.Lock()
	c.nodes = sorted
	c.mu.Unlock()
	return nil
}

// GenerateProcedures calls GenerateProcedure on every node in the context's current
// (sorted) order, so each predecessor's procedure port exists by the time its
// successor builds its own unit.
func (c *Context) GenerateProcedures() error {
	_, span := tracer.Start(stdctx.Background(), "GenerateProcedures")
	defer span.End()

	c.mu.Lock()
	nodes := append([]dag.Node(nil), c.nodes...)
	c.mu.Unlock()
	span.SetAttributes(attribute.Int("node_count", len(nodes)))

	for _, n := range nodes {
		if err := n.GenerateProcedure(c.workers); err != nil {
			wrapped := fmt.Errorf("generate procedure for %s node: %w", n.Kind(), err)
			span.RecordError(wrapped)
			span.SetStatus(codes.Error, wrapped.Error())
			return wrapped
		}
	}
	return nil
}

// Evaluate kicks every source node (a node with no predecessors in this context) and
// blocks until the DAG has finished computing, or until ctx is done.
func (c *Context) Evaluate(ctx stdctx.Context) error {
	ctx, span := tracer.Start(ctx, "Evaluate")
	defer span.End()

	start := time.Now()

	c.mu.Lock()
	nodes := append([]dag.Node(nil), c.nodes...)
	c.mu.Unlock()
	span.SetAttributes(attribute.Int("node_count", len(nodes)))

	unitCount := 0
	for _, n := range nodes {
		if _, err := n.ProcedurePort(); err == nil {
			unitCount++
		}
	}

	predecessorCount := make(map[dag.Node]int, len(nodes))
	for _, n := range nodes {
		predecessorCount[n] = 0
	}
	for _, n := range nodes {
		for _, next := range *n.Nexts() {
			predecessorCount[next]++
		}
	}
	for _, n := range nodes {
		if predecessorCount[n] != 0 {
			continue
		}
		port, err := n.ProcedurePort()
		if err != nil {
			wrapped := fmt.Errorf("source node %s has no procedure: %w", n.Kind(), err)
			span.RecordError(wrapped)
			span.SetStatus(codes.Error, wrapped.Error())
			c.recordRun(ctx, start, len(nodes), unitCount, false, wrapped)
			return wrapped
		}
		port.Kick()
	}

	done := make(chan struct{})
	go func() {
		c.workers.WaitAllDone()
		close(done)
	}()
	select {
	case <-done:
		c.recordRun(ctx, start, len(nodes), unitCount, true, nil)
		return nil
	case <-ctx.Done():
		err := mperrors.Wrap(mperrors.ContextError, "evaluation cancelled", ctx.Err())
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.recordRun(ctx, start, len(nodes), unitCount, false, err)
		return err
	}
}

// recordRun writes a best-effort evaluation_runs row through the context's journal, if
// one was opened. A nil journal (no journal configured) makes this a no-op.
func (c *Context) recordRun(ctx stdctx.Context, start time.Time, nodeCount, unitCount int, success bool, runErr error) {
	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
	}
	c.journal.RecordRun(ctx, journal.EvaluationRun{
		Base:            c.base.String(),
		PrecisionDigits: c.precisionDigits,
		NodeCount:       nodeCount,
		UnitCount:       unitCount,
		DurationMillis:  time.Since(start).Milliseconds(),
		Success:         success,
		ErrorMessage:    errMsg,
	})
}

// Wait blocks until the worker pool has no active or queued work, with no
// cancellation path; callers that need one should use Evaluate's ctx instead.
func (c *Context) Wait() {
	c.workers.WaitAllDone()
}

// ExportGraph writes dag.json and pro.json describing the context's nodes, edges,
// and compute units into dir/daginfo.
func (c *Context) ExportGraph(dir string) error {
	c.mu.Lock()
	nodes := append([]dag.Node(nil), c.nodes...)
	slots := append([]handleSlot(nil), c.slots...)
	c.mu.Unlock()

	outDir := filepath.Join(dir, "daginfo")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return mperrors.Wrap(mperrors.IOError, "failed to create export directory", err)
	}
	graph := buildGraphExport(nodes, slots)
	procedures := buildProcedureExport(nodes)

	if err := genjson.NewPretty[graphExport]().WriteToFile(graph, filepath.Join(outDir, "dag.json")); err != nil {
		return mperrors.Wrap(mperrors.IOError, "failed to export graph details", err)
	}
	if err := genjson.NewPretty[procedureExport]().WriteToFile(procedures, filepath.Join(outDir, "pro.json")); err != nil {
		return mperrors.Wrap(mperrors.IOError, "failed to export graph details", err)
	}

	// Also write gzip-compressed copies: large DAGs (deep expression scripts, wide
	// demos) produce dag.json/pro.json into the tens of megabytes, and uploadExport
	// uploads only these .gz files, not the plain ones, when a storage backend is
	// configured.
	if err := genjson.NewGzip[graphExport]().WriteToFile(graph, filepath.Join(outDir, "dag.json.gz")); err != nil {
		return mperrors.Wrap(mperrors.IOError, "failed to export graph details", err)
	}
	if err := genjson.NewGzip[procedureExport]().WriteToFile(procedures, filepath.Join(outDir, "pro.json.gz")); err != nil {
		return mperrors.Wrap(mperrors.IOError, "failed to export graph details", err)
	}
	return nil
}

// Handle is a context-scoped, generational-index reference to a DAG node: cloning
// registers another reference to the same node, and releasing one reference never
// affects the node or any other handle aliasing it.
type Handle struct {
	ctx        *Context
	index      int
	generation uint64
}

// Context returns the context this handle belongs to.
func (h Handle) Context() *Context { return h.ctx }

// Clone registers a new handle aliasing the same underlying node.
func (h Handle) Clone() (Handle, error) {
	node, err := h.ctx.resolve(h)
	if err != nil {
		return Handle{}, err
	}
	return h.ctx.addHandle(node), nil
}

// Release retires this particular reference. The underlying node and its limb data
// remain owned by the context for as long as the DAG needs them.
func (h *Handle) Release() {
	if h.ctx == nil {
		return
	}
	h.ctx.releaseSlot(*h)
	h.ctx = nil
}

// Format writes the decimal/octal/hex representation of h's currently realized limb
// vector to w.
func Format(h Handle, w io.Writer) error {
	node, err := h.ctx.resolve(h)
	if err != nil {
		return err
	}
	data := node.Data()
	if data == nil {
		return mperrors.New(mperrors.DAGConstructionError, "node data is not constructed yet")
	}
	_, err = io.WriteString(w, bigint.Format(data))
	return err
}
