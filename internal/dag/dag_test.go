package dag

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpengine/mpcore/internal/alloc"
	"github.com/mpengine/mpcore/internal/bigint"
	"github.com/mpengine/mpcore/internal/pool"
)

func testLimits() bigint.Limits {
	return bigint.Limits{MinLogLen: 2, MaxLogLen: 8, DelayedAllocation: true, Pool: alloc.New(2, 1 << 16)}
}

func newConstant(t *testing.T, s string, base bigint.IOBasic, limits bigint.Limits) *ConstantNode {
	t.Helper()
	b := bigint.NewBigInt(4, base, limits)
	require.NoError(t, Parse(s, b))
	return NewConstantNode(b)
}

// Parse is a thin indirection so this test file doesn't need to import bigint.Parse
// under a different name.
func Parse(s string, b *bigint.BigInt) error { return bigint.Parse(s, b) }

func TestSingleAddEvaluatesCorrectly(t *testing.T) {
	limits := testLimits()
	p := pool.New(4, 64)
	defer p.Shutdown()

	a := newConstant(t, "123", bigint.Dec, limits)
	b := newConstant(t, "877", bigint.Dec, limits)
	addNode, err := NewBinaryAddNode(a, b, bigint.Dec, 4, limits)
	require.NoError(t, err)

	require.NoError(t, a.GenerateProcedure(p))
	require.NoError(t, b.GenerateProcedure(p))
	require.NoError(t, addNode.GenerateProcedure(p))

	portA, _ := a.ProcedurePort()
	portB, _ := b.ProcedurePort()
	portA.Kick()
	portB.Kick()
	p.WaitAllDone()

	require.NotNil(t, addNode.Data())
	assert.Equal(t, "1000", bigint.Format(addNode.Data()))
}

func TestLengthMismatchRejected(t *testing.T) {
	limits := testLimits()
	a := newConstant(t, "1", bigint.Dec, limits)
	b := NewConstantNode(bigint.NewBigInt(8, bigint.Dec, limits))
	require.NoError(t, bigint.Parse("2", b.Data()))
	_, err := NewBinaryAddNode(a, b, bigint.Dec, 4, limits)
	require.Error(t, err)
}

func TestProcedurePortBeforeGenerateProcedureFails(t *testing.T) {
	limits := testLimits()
	a := newConstant(t, "1", bigint.Dec, limits)
	_, err := a.ProcedurePort()
	require.Error(t, err)
}

func TestChainedAddsAcrossMultipleUnits(t *testing.T) {
	limits := testLimits()
	p := pool.New(4, 64)
	defer p.Shutdown()

	a := newConstant(t, "1", bigint.Dec, limits)
	b := newConstant(t, "2", bigint.Dec, limits)
	c := newConstant(t, "3", bigint.Dec, limits)

	ab, err := NewBinaryAddNode(a, b, bigint.Dec, 4, limits)
	require.NoError(t, err)
	abc, err := NewBinaryAddNode(ab, c, bigint.Dec, 4, limits)
	require.NoError(t, err)

	require.NoError(t, a.GenerateProcedure(p))
	require.NoError(t, b.GenerateProcedure(p))
	require.NoError(t, c.GenerateProcedure(p))
	require.NoError(t, ab.GenerateProcedure(p))
	require.NoError(t, abc.GenerateProcedure(p))

	for _, n := range []Node{a, b, c} {
		port, err := n.ProcedurePort()
		require.NoError(t, err)
		port.Kick()
	}
	p.WaitAllDone()

	require.NotNil(t, abc.Data())
	assert.Equal(t, "6", bigint.Format(abc.Data()))
}

func TestParallelUnitForwardsOnlyAfterAllTasksDone(t *testing.T) {
	p := pool.New(4, 64)
	defer p.Shutdown()

	done := make(chan struct{}, 1)
	count := 0
	sink := NewMonoUnit(p, "sink", func() error { count++; return nil })
	pu := NewParallelUnit(p, "multi",
		func() error { return nil },
		func() error { return nil },
		func() error { return nil },
	)
	sink.AddDependency(pu)
	pu.Kick()

	go func() {
		for count == 0 {
			time.Sleep(time.Millisecond)
		}
		done <- struct{}{}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sink never ran")
	}
	assert.Equal(t, 1, count)
}
