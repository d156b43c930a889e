// Package dag implements the DAG node and compute-unit layer (Component I): the
// scheduling atoms a context wires together and hands to the worker pool.
package dag

import (
	"fmt"

	"github.com/mpengine/mpcore/internal/bigint"
	"github.com/mpengine/mpcore/internal/pool"
	"github.com/mpengine/mpcore/pkg/mperrors"
)

// Node is the closed interface every DAG node kind implements: a small set of node
// kinds dispatched through method sets rather than a runtime type-switch on a tag
// field, so adding a new operation never touches a central switch statement.
type Node interface {
	// Nexts returns the node's outgoing successor list, used by the context's
	// topological sort.
	Nexts() *[]Node
	// GenerateProcedure appends this node's compute unit(s) to its procedure,
	// wiring them as dependents of its predecessors' procedure ports. Must be
	// called in topological order: by the time a node's GenerateProcedure runs,
	// every predecessor's procedure already exists. p is the pool units submit
	// themselves to once their dependencies are satisfied.
	GenerateProcedure(p *pool.Pool) error
	// ProcedurePort returns the last unit of this node's procedure: the unit whose
	// forward callbacks successor nodes hook into.
	ProcedurePort() (*Unit, error)
	// Kind names the node for diagnostics and dag.json export.
	Kind() string
	// Data returns the node's limb vector, which may be nil if not yet allocated
	// (or, for a binary-op node, not yet even constructed).
	Data() *bigint.BigInt
}

// baseNode holds the fields every node kind shares.
type baseNode struct {
	nexts     []Node
	procedure []*Unit
	data      *bigint.BigInt
}

func (b *baseNode) Nexts() *[]Node { return &b.nexts }
func (b *baseNode) Data() *bigint.BigInt { return b.data }

func (b *baseNode) procedurePort() (*Unit, error) {
	if len(b.procedure) == 0 {
		return nil, mperrors.New(mperrors.DAGConstructionError, "node procedure is not initialized")
	}
	return b.procedure[len(b.procedure)-1], nil
}

// ConstantNode carries a limb vector produced directly by parsing; it has no
// predecessors and its procedure is a single trivial unit acting as a forward source.
type ConstantNode struct {
	baseNode
}

// NewConstantNode wraps an already-parsed BigInt as a source node.
func NewConstantNode(data *bigint.BigInt) *ConstantNode {
	return &ConstantNode{baseNode{data: data}}
}

func (n *ConstantNode) Kind() string { return "constant" }

func (n *ConstantNode) ProcedurePort() (*Unit, error) { return n.procedurePort() }

// GenerateProcedure gives the constant node a single trivial unit with no task, whose
// only job is to forward its (already-satisfied) dependency signal once kicked.
func (n *ConstantNode) GenerateProcedure(p *pool.Pool) error {
	if n.data == nil {
		return mperrors.New(mperrors.DAGConstructionError, "constant node with empty data domain")
	}
	n.procedure = append(n.procedure, NewMonoUnit(p, "constant", nil))
	return nil
}

// BinaryAddNode computes the signed sum of two predecessor nodes. Its limb vector is
// allocated lazily when its unit's task runs.
type BinaryAddNode struct {
	baseNode
	operandA, operandB Node
	base               bigint.IOBasic
	logLen             int
	limits             bigint.Limits
}

// NewBinaryAddNode links a to b as predecessors of a new add node; both nodes'
// Nexts lists gain this node as a successor, mirroring the source's constructor
// registering itself on both operands.
func NewBinaryAddNode(a, b Node, base bigint.IOBasic, logLen int, limits bigint.Limits) (*BinaryAddNode, error) {
	if a.Data() != nil && b.Data() != nil {
		if a.Data().Len() != b.Data().Len() {
			return nil, mperrors.New(mperrors.LengthMismatch, fmt.Sprintf("node data length mismatch: (%d) can not match (%d)", a.Data().Len(), b.Data().Len()))
		}
		if a.Data().Base() != b.Data().Base() {
			return nil, mperrors.New(mperrors.BaseMismatch, fmt.Sprintf("node data base mismatch: (%s) can not match (%s)", a.Data().Base(), b.Data().Base()))
		}
	}
	n := &BinaryAddNode{operandA: a, operandB: b, base: base, logLen: logLen, limits: limits}
	*a.Nexts() = append(*a.Nexts(), n)
	*b.Nexts() = append(*b.Nexts(), n)
	return n, nil
}

func (n *BinaryAddNode) Kind() string { return "arithmetic_add_integer" }

func (n *BinaryAddNode) ProcedurePort() (*Unit, error) { return n.procedurePort() }

// GenerateProcedure builds the node's single mono compute unit and wires it as a
// dependent of both predecessors' procedure ports.
func (n *BinaryAddNode) GenerateProcedure(p *pool.Pool) error {
	portA, err := n.operandA.ProcedurePort()
	if err != nil {
		return err
	}
	portB, err := n.operandB.ProcedurePort()
	if err != nil {
		return err
	}
	unit := NewMonoUnit(p, "arithmetic_add_integer", n.runAdd)
	unit.AddDependency(portA)
	unit.AddDependency(portB)
	n.procedure = append(n.procedure, unit)
	return nil
}

func (n *BinaryAddNode) runAdd() error {
	sourceA, sourceB := n.operandA.Data(), n.operandB.Data()
	if sourceA == nil || sourceB == nil {
		return mperrors.New(mperrors.DAGConstructionError, "predecessor node data is not constructed")
	}
	if sourceA.Len() != sourceB.Len() {
		return mperrors.New(mperrors.LengthMismatch, fmt.Sprintf("node data length mismatch: (%d) can not match (%d)", sourceA.Len(), sourceB.Len()))
	}
	if n.data == nil {
		n.data = bigint.NewBigInt(n.logLen, n.base, n.limits)
	}
	target := n.data.EnsuredPointer()
	sign := bigint.AddSigned(sourceA.Sign(), sourceA.EnsuredPointer(), sourceB.Sign(), sourceB.EnsuredPointer(), target, n.base.StoreBase())
	n.data.SetSign(sign)
	return nil
}
