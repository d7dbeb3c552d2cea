package cdfg

import (
	"github.com/oleiade/lane"
	"tlog.app/go/errors"
)

// ErrMalformedIR reports a structurally invalid function.
var ErrMalformedIR = errors.New("malformed IR")

// EntryLabel is the label of the entry block produced by the IR front end.
const EntryLabel = "0"

// ParamKind distinguishes array parameters (memories) from scalars.
type ParamKind string

const (
	ParamArray  ParamKind = "array"
	ParamScalar ParamKind = "non-array"
)

// Param is a function parameter.
type Param struct {
	Name string
	Kind ParamKind
}

// Condition values of unconditional CFG edges.
const CondTrue = "true"

// CFGEdge is a control transfer From -> To taken when Cond holds.
// Cond is "true", the branch condition variable, or "not <var>".
type CFGEdge struct {
	From string
	To   string
	Cond string
}

// CFG is the control-flow graph over block labels.
type CFG struct {
	edges []CFGEdge
	succs map[string][]string
	preds map[string][]string
}

func newCFG() *CFG {
	return &CFG{
		succs: make(map[string][]string),
		preds: make(map[string][]string),
	}
}

func (c *CFG) addEdge(from, to, cond string) {
	for _, s := range c.succs[from] {
		if s == to {
			return
		}
	}
	c.edges = append(c.edges, CFGEdge{From: from, To: to, Cond: cond})
	c.succs[from] = append(c.succs[from], to)
	c.preds[to] = append(c.preds[to], from)
}

// Edges returns the edges ordered by source block, then branch order.
func (c *CFG) Edges() []CFGEdge { return c.edges }

// Succs returns the successors of a block.
func (c *CFG) Succs(label string) []string { return c.succs[label] }

// Preds returns the predecessors of a block.
func (c *CFG) Preds(label string) []string { return c.preds[label] }

// CDFG is one function: metadata, blocks in source order, and the CFG.
type CDFG struct {
	FunctionName string
	RetType      string
	Params       []Param
	Blocks       []*BasicBlock

	index map[string]int
	cfg   *CFG
}

// New validates the function and builds every DFG and the CFG.
// On error nothing is returned.
func New(name, retType string, params []Param, blocks []*BasicBlock) (*CDFG, error) {
	if len(blocks) == 0 {
		return nil, errors.Wrap(ErrMalformedIR, "function %v has no blocks", name)
	}

	g := &CDFG{
		FunctionName: name,
		RetType:      retType,
		Params:       params,
		Blocks:       blocks,
		index:        make(map[string]int, len(blocks)),
	}

	for i, b := range blocks {
		if b == nil || b.Label == "" {
			return nil, errors.Wrap(ErrMalformedIR, "block %d has no label", i)
		}
		if _, dup := g.index[b.Label]; dup {
			return nil, errors.Wrap(ErrMalformedIR, "duplicate block label %v", b.Label)
		}
		g.index[b.Label] = i
	}

	for _, p := range params {
		if p.Name == "" {
			return nil, errors.Wrap(ErrMalformedIR, "unnamed parameter")
		}
		if p.Kind != ParamArray && p.Kind != ParamScalar {
			return nil, errors.Wrap(ErrMalformedIR, "parameter %v: unknown kind %q", p.Name, p.Kind)
		}
	}

	if err := g.BuildDFGs(); err != nil {
		return nil, err
	}
	if err := g.BuildCFG(); err != nil {
		return nil, err
	}
	return g, nil
}

// Block returns the block with the given label.
func (g *CDFG) Block(label string) (*BasicBlock, bool) {
	i, ok := g.index[label]
	if !ok {
		return nil, false
	}
	return g.Blocks[i], true
}

// Labels returns the block labels in source order.
func (g *CDFG) Labels() []string {
	labels := make([]string, len(g.Blocks))
	for i, b := range g.Blocks {
		labels[i] = b.Label
	}
	return labels
}

// Entry returns the entry block label.
func (g *CDFG) Entry() string {
	if _, ok := g.index[EntryLabel]; ok {
		return EntryLabel
	}
	return g.Blocks[0].Label
}

// CFG returns the control-flow graph.
func (g *CDFG) CFG() *CFG { return g.cfg }

// ParamNames returns every parameter name.
func (g *CDFG) ParamNames() VarSet {
	s := make(VarSet, len(g.Params))
	for _, p := range g.Params {
		s.Add(p.Name)
	}
	return s
}

// ScalarParams returns the names of the non-array parameters.
func (g *CDFG) ScalarParams() VarSet {
	s := make(VarSet)
	for _, p := range g.Params {
		if p.Kind == ParamScalar {
			s.Add(p.Name)
		}
	}
	return s
}

// BuildDFGs rebuilds the data-flow graph of every block.
// No block is touched unless every block is well formed.
func (g *CDFG) BuildDFGs() error {
	for _, b := range g.Blocks {
		if err := b.check(); err != nil {
			return err
		}
	}
	for _, b := range g.Blocks {
		b.dfg = b.buildDFG()
	}
	return nil
}

// BuildCFG rebuilds the control-flow graph.
//
// A block ending in a conditional BR gets a cond edge to the true target and
// a "not cond" edge to the false target; an unconditional BR gets a "true"
// edge to its target; any other block gets a "true" edge to Next.
// The stored graph is replaced only on success.
func (g *CDFG) BuildCFG() error {
	c := newCFG()
	for _, b := range g.Blocks {
		if b.Next != "" {
			if _, ok := g.index[b.Next]; !ok {
				return errors.Wrap(ErrMalformedIR, "block %v: unknown fall-through %v", b.Label, b.Next)
			}
		}
		last, ok := b.Terminator()
		if !ok || last.Kind != OpBr {
			if b.Next != "" {
				c.addEdge(b.Label, b.Next, CondTrue)
			}
			continue
		}

		for _, t := range last.BranchTargets() {
			if _, ok := g.index[t]; !ok {
				return errors.Wrap(ErrMalformedIR, "block %v: branch to unknown label %v", b.Label, t)
			}
		}

		switch targets := last.BranchTargets(); {
		case len(targets) == 2 && targets[0] == targets[1]:
			c.addEdge(b.Label, targets[0], CondTrue)
		case len(targets) == 2:
			cond := last.Operands[0]
			c.addEdge(b.Label, targets[0], cond)
			c.addEdge(b.Label, targets[1], "not "+cond)
		case len(targets) == 1:
			c.addEdge(b.Label, targets[0], CondTrue)
		}
	}
	g.cfg = c
	return nil
}

// Reachable returns the blocks reachable from the entry, in breadth-first order.
func (g *CDFG) Reachable() []string {
	entry := g.Entry()
	seen := map[string]bool{entry: true}
	order := []string{}

	q := lane.NewQueue()
	q.Enqueue(entry)
	for !q.Empty() {
		label := q.Dequeue().(string)
		order = append(order, label)
		for _, s := range g.cfg.Succs(label) {
			if !seen[s] {
				seen[s] = true
				q.Enqueue(s)
			}
		}
	}
	return order
}
