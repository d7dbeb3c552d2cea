package cdfg

import (
	"slices"

	"tlog.app/go/errors"
)

// DepEdge is a data dependency: op From produces Value, op To reads it.
type DepEdge struct {
	From  int
	To    int
	Value string
}

// DFG is the data-flow graph of one block. Nodes are operation indices.
type DFG struct {
	n     int
	edges []DepEdge
	succs [][]int
	preds [][]int
}

func newDFG(n int) *DFG {
	return &DFG{
		n:     n,
		succs: make([][]int, n),
		preds: make([][]int, n),
	}
}

// addEdge records from->to once; later duplicates are ignored.
func (d *DFG) addEdge(from, to int, value string) {
	if d.HasEdge(from, to) {
		return
	}
	d.edges = append(d.edges, DepEdge{From: from, To: to, Value: value})
	d.succs[from] = append(d.succs[from], to)
	d.preds[to] = append(d.preds[to], from)
}

// Len returns the number of nodes.
func (d *DFG) Len() int { return d.n }

// Edges returns the edges in insertion order.
func (d *DFG) Edges() []DepEdge { return d.edges }

// Succs returns the ops that depend on op i.
func (d *DFG) Succs(i int) []int { return d.succs[i] }

// Preds returns the ops op i depends on.
func (d *DFG) Preds(i int) []int { return d.preds[i] }

// InDegree returns the number of distinct predecessors of op i.
func (d *DFG) InDegree(i int) int { return len(d.preds[i]) }

// HasEdge reports whether from->to exists.
func (d *DFG) HasEdge(from, to int) bool {
	return slices.Contains(d.succs[from], to)
}

// With returns a new graph holding d's edges followed by extra.
// Edges must point forward (From < To); others are dropped.
func (d *DFG) With(extra []DepEdge) *DFG {
	g := newDFG(d.n)
	for _, e := range d.edges {
		g.addEdge(e.From, e.To, e.Value)
	}
	for _, e := range extra {
		if e.From < e.To && e.To < d.n {
			g.addEdge(e.From, e.To, e.Value)
		}
	}
	return g
}

// BasicBlock is a straight-line list of operations.
type BasicBlock struct {
	Label string
	Ops   []Operation
	Next  string // fall-through successor in source order, "" for none

	dfg *DFG
}

// NewBasicBlock creates a block with the given operations.
func NewBasicBlock(label string, ops ...Operation) *BasicBlock {
	return &BasicBlock{Label: label, Ops: ops}
}

// AddOp appends an operation. The DFG must be rebuilt afterwards.
func (b *BasicBlock) AddOp(op Operation) {
	b.Ops = append(b.Ops, op)
}

// DFG returns the block's data-flow graph, nil before BuildDFG.
func (b *BasicBlock) DFG() *DFG { return b.dfg }

// Terminator returns the last operation when it is a BR or RET.
func (b *BasicBlock) Terminator() (Operation, bool) {
	if len(b.Ops) == 0 {
		return Operation{}, false
	}
	last := b.Ops[len(b.Ops)-1]
	return last, last.IsTerminator()
}

// BuildDFG replaces the block's data-flow graph.
//
// An edge i->j exists when ops[i] defines a name appearing among the raw
// operands of ops[j], i < j. Every earlier definition of the name adds an
// edge, so re-definitions inside a block are not distinguished.
func (b *BasicBlock) BuildDFG() error {
	if err := b.check(); err != nil {
		return err
	}
	b.dfg = b.buildDFG()
	return nil
}

func (b *BasicBlock) check() error {
	for i, op := range b.Ops {
		if err := op.validate(); err != nil {
			return errors.Wrap(ErrMalformedIR, "block %v op %d: %v", b.Label, i, err)
		}
	}
	return nil
}

func (b *BasicBlock) buildDFG() *DFG {
	d := newDFG(len(b.Ops))
	for j, op := range b.Ops {
		for i := 0; i < j; i++ {
			prev := b.Ops[i].Result
			if prev == "" {
				continue
			}
			if slices.Contains(op.Operands, prev) {
				d.addEdge(i, j, prev)
			}
		}
	}
	return d
}

// Uses returns every variable read in the block.
func (b *BasicBlock) Uses() VarSet {
	s := make(VarSet)
	for _, op := range b.Ops {
		for _, v := range op.Uses() {
			s.Add(v)
		}
	}
	return s
}

// Defs returns every variable written in the block.
func (b *BasicBlock) Defs() VarSet {
	s := make(VarSet)
	for _, op := range b.Ops {
		if v, ok := op.Def(); ok {
			s.Add(v)
		}
	}
	return s
}
