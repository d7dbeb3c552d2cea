// Package schedule assigns every operation of a block to a cycle and a
// functional-unit instance under per-kind resource limits.
package schedule

import (
	"context"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/raymyers/ralph-hls/pkg/cdfg"
)

// ErrStalled is returned when operations wait for a unit that never frees.
var ErrStalled = errors.New("scheduler stalled")

// Slot is one operation started in a cycle on unit instance Unit.
type Slot struct {
	Op   int
	Unit int
}

// Cycle lists the operations started in one cycle.
type Cycle []Slot

// Options add precedence edges beyond the data dependencies.
type Options struct {
	// OrderTerminators makes each BR/RET wait for every other op of its block.
	OrderTerminators bool `yaml:"order_terminators"`
	// MemoryOrder orders LOAD/STORE pairs on the same array when one is a STORE.
	MemoryOrder bool `yaml:"memory_order"`
}

// DefaultOptions orders terminators after the rest of their block.
func DefaultOptions() Options {
	return Options{OrderTerminators: true}
}

// Schedule is the per-block cycle table.
type Schedule struct {
	Cycles    map[string][]Cycle
	Deadlocks map[string]int // forced in-degree resets per block
}

// Block returns the cycles of a block.
func (s *Schedule) Block(label string) []Cycle { return s.Cycles[label] }

// Length returns the number of cycles of a block.
func (s *Schedule) Length(label string) int { return len(s.Cycles[label]) }

// StartCycle returns the cycle in which op starts.
func (s *Schedule) StartCycle(label string, op int) (int, bool) {
	for c, cyc := range s.Cycles[label] {
		for _, sl := range cyc {
			if sl.Op == op {
				return c, true
			}
		}
	}
	return 0, false
}

// ASAP is the resource-constrained as-soon-as-possible list scheduler.
type ASAP struct {
	Resources cdfg.ResourceTable
	Options   Options
}

// NewASAP creates a scheduler with the given resource table.
func NewASAP(res cdfg.ResourceTable, opts Options) *ASAP {
	return &ASAP{Resources: res, Options: opts}
}

// Schedule schedules every block of g independently.
func (a *ASAP) Schedule(ctx context.Context, g *cdfg.CDFG) (*Schedule, error) {
	if err := a.Resources.Validate(); err != nil {
		return nil, errors.Wrap(err, "resources")
	}

	tr := tlog.SpanFromContext(ctx)

	s := &Schedule{
		Cycles:    make(map[string][]Cycle, len(g.Blocks)),
		Deadlocks: make(map[string]int),
	}
	for _, b := range g.Blocks {
		cycles, forced, err := a.ScheduleBlock(ctx, b)
		if err != nil {
			return nil, errors.Wrap(err, "block %v", b.Label)
		}
		s.Cycles[b.Label] = cycles
		if forced > 0 {
			s.Deadlocks[b.Label] = forced
		}
		tr.Printw("scheduled block", "block", b.Label, "ops", len(b.Ops), "cycles", len(cycles))
	}
	return s, nil
}

// ScheduleBlock schedules one block and returns its cycles and the number of
// deadlock recoveries.
func (a *ASAP) ScheduleBlock(ctx context.Context, b *cdfg.BasicBlock) ([]Cycle, int, error) {
	if b.DFG() == nil {
		if err := b.BuildDFG(); err != nil {
			return nil, 0, err
		}
	}

	prec := b.DFG().With(orderingEdges(b, a.Options))
	p := precedence{
		succs:  make([][]int, len(b.Ops)),
		indeg:  make([]int, len(b.Ops)),
		kinds:  make([]cdfg.OpKind, len(b.Ops)),
		label:  b.Label,
		tracer: tlog.SpanFromContext(ctx),
	}
	for i, op := range b.Ops {
		p.succs[i] = prec.Succs(i)
		p.indeg[i] = prec.InDegree(i)
		p.kinds[i] = op.Kind
	}
	return a.simulate(p)
}

// precedence is the graph the simulation consumes.
type precedence struct {
	succs [][]int
	indeg []int
	kinds []cdfg.OpKind

	label  string
	tracer tlog.Span
}

// simulate runs the cycle-level state machine:
// advance running ops, admit ready ops in index order, bind waiting ops to
// the first free unit of their kind.
func (a *ASAP) simulate(p precedence) ([]Cycle, int, error) {
	n := len(p.kinds)
	if n == 0 {
		return nil, 0, nil
	}

	indeg := append([]int(nil), p.indeg...)
	remaining := make([]int, n)
	unit := make([]int, n)
	admitted := make([]bool, n)
	done := make([]bool, n)
	var busy [cdfg.NumKinds][]bool
	for k := range busy {
		busy[k] = make([]bool, a.Resources[k].Units)
	}
	for i := range unit {
		unit[i] = -1
	}

	var (
		cycles     []Cycle
		waiting    []int
		unfinished = n
		forced     int
	)

	for unfinished > 0 {
		running := false
		for i := 0; i < n; i++ {
			if remaining[i] <= 0 {
				continue
			}
			remaining[i]--
			if remaining[i] > 0 {
				running = true
				continue
			}
			busy[p.kinds[i]][unit[i]] = false
			unit[i] = -1
			done[i] = true
			unfinished--
			for _, s := range p.succs[i] {
				indeg[s]--
			}
		}

		for i := 0; i < n; i++ {
			if !admitted[i] && indeg[i] <= 0 {
				admitted[i] = true
				waiting = append(waiting, i)
			}
		}

		var cyc Cycle
		kept := waiting[:0]
		for _, i := range waiting {
			k := p.kinds[i]
			u := firstFree(busy[k])
			if u < 0 {
				kept = append(kept, i)
				continue
			}
			busy[k][u] = true
			unit[i] = u
			remaining[i] = a.Resources[k].Latency
			cyc = append(cyc, Slot{Op: i, Unit: u})
			running = true
		}
		waiting = kept
		cycles = append(cycles, cyc)

		if running || unfinished == 0 {
			continue
		}
		if len(waiting) > 0 {
			return nil, forced, errors.Wrap(ErrStalled, "%d ops waiting with no free unit", len(waiting))
		}

		// Nothing runs, nothing is ready, yet ops remain: a dependency cycle.
		for i := 0; i < n; i++ {
			if !done[i] && !admitted[i] {
				p.tracer.Printw("scheduling deadlock, forcing op", "block", p.label, "op", i, "kind", p.kinds[i])
				indeg[i] = 0
				admitted[i] = true
				waiting = append(waiting, i)
				forced++
				break
			}
		}
	}

	// The final iteration only retires the last op.
	return cycles[:len(cycles)-1], forced, nil
}

func firstFree(units []bool) int {
	for u, b := range units {
		if !b {
			return u
		}
	}
	return -1
}

// orderingEdges returns the extra precedence edges requested by opts.
func orderingEdges(b *cdfg.BasicBlock, opts Options) []cdfg.DepEdge {
	var extra []cdfg.DepEdge

	if opts.OrderTerminators {
		for t, op := range b.Ops {
			if !op.IsTerminator() {
				continue
			}
			for i := 0; i < t; i++ {
				if !b.Ops[i].IsTerminator() {
					extra = append(extra, cdfg.DepEdge{From: i, To: t})
				}
			}
		}
	}

	if opts.MemoryOrder {
		for j, later := range b.Ops {
			arrJ, ok := later.Array()
			if !ok {
				continue
			}
			for i := 0; i < j; i++ {
				arrI, ok := b.Ops[i].Array()
				if !ok || arrI != arrJ {
					continue
				}
				if b.Ops[i].Kind == cdfg.OpStore || later.Kind == cdfg.OpStore {
					extra = append(extra, cdfg.DepEdge{From: i, To: j, Value: arrJ})
				}
			}
		}
	}
	return extra
}
