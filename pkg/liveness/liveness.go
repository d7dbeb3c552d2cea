// Package liveness computes block input/output variable sets over the CFG,
// the cross-block (global) variables, and per-cycle live sets of the
// remaining block-local variables.
package liveness

import (
	"context"

	"github.com/oleiade/lane"
	"tlog.app/go/tlog"

	"github.com/raymyers/ralph-hls/pkg/cdfg"
	"github.com/raymyers/ralph-hls/pkg/schedule"
)

// Interval is an inclusive range of cycle boundaries.
type Interval struct {
	Start int `yaml:"start"`
	End   int `yaml:"end"`
}

// Len returns End - Start.
func (iv Interval) Len() int { return iv.End - iv.Start }

// Overlaps reports whether the two intervals share a boundary.
func (iv Interval) Overlaps(o Interval) bool {
	return !(iv.End < o.Start || o.End < iv.Start)
}

// Info holds every liveness table.
type Info struct {
	Input   map[string]cdfg.VarSet
	Output  map[string]cdfg.VarSet
	Globals cdfg.VarSet

	// Live[label][i] is the set live at boundary i: before cycle i, and
	// after the last cycle for i == len(schedule).
	Live map[string][]cdfg.VarSet

	// Periods[label][v] spans the first and last boundary where v is live.
	Periods map[string]map[string]Interval
}

// CrossEdge returns the local variables carried over from -> to.
func (info *Info) CrossEdge(from, to string) cdfg.VarSet {
	return info.Output[from].Intersect(info.Input[to]).Minus(info.Globals)
}

// Analyzer computes Info from a CDFG and its schedule.
type Analyzer struct{}

// Analyze runs every liveness step.
func (Analyzer) Analyze(ctx context.Context, g *cdfg.CDFG, s *schedule.Schedule) *Info {
	tr := tlog.SpanFromContext(ctx)

	info := &Info{}
	info.Input, info.Output = InputOutput(g)
	info.Globals = Globals(g)
	info.Live = LiveSets(g, s, info.Output, info.Globals)
	info.Periods = Periods(info.Live)

	tr.Printw("liveness", "globals", len(info.Globals), "blocks", len(g.Blocks))
	return info
}

// InputOutput propagates variables along the CFG, starting from every block
// reachable from the entry, until no input set grows:
//
//	output[bb] = (input[bb] ∪ defs[bb]) − uses[bb]
//	input[s]  ∪= output[bb]   for every successor s
//
// Literals and parameters are removed from both tables afterwards.
// Blocks unreachable from the entry keep empty sets.
func InputOutput(g *cdfg.CDFG) (in, out map[string]cdfg.VarSet) {
	in = make(map[string]cdfg.VarSet, len(g.Blocks))
	out = make(map[string]cdfg.VarSet, len(g.Blocks))
	uses := make(map[string]cdfg.VarSet, len(g.Blocks))
	defs := make(map[string]cdfg.VarSet, len(g.Blocks))
	for _, b := range g.Blocks {
		in[b.Label] = make(cdfg.VarSet)
		out[b.Label] = make(cdfg.VarSet)
		uses[b.Label] = b.Uses()
		defs[b.Label] = b.Defs()
	}

	queued := map[string]bool{}
	q := lane.NewQueue()
	push := func(label string) {
		if !queued[label] {
			queued[label] = true
			q.Enqueue(label)
		}
	}

	for _, label := range g.Reachable() {
		push(label)
	}
	for !q.Empty() {
		label := q.Dequeue().(string)
		queued[label] = false

		out[label] = in[label].Union(defs[label]).Minus(uses[label])
		for _, s := range g.CFG().Succs(label) {
			before := len(in[s])
			in[s] = in[s].Union(out[label])
			if len(in[s]) > before {
				push(s)
			}
		}
	}

	params := g.ParamNames()
	for _, b := range g.Blocks {
		in[b.Label] = stripped(in[b.Label], params)
		out[b.Label] = stripped(out[b.Label], params)
	}
	return in, out
}

// Globals returns the variables used in two or more blocks, without literals
// and scalar parameters.
func Globals(g *cdfg.CDFG) cdfg.VarSet {
	seen := make(map[string]int)
	for _, b := range g.Blocks {
		for v := range b.Uses() {
			seen[v]++
		}
	}

	scalars := g.ScalarParams()
	globals := make(cdfg.VarSet)
	for v, n := range seen {
		if n >= 2 && !cdfg.IsLiteral(v) && !scalars.Contains(v) {
			globals.Add(v)
		}
	}
	return globals
}

// LiveSets walks each block's schedule backwards, starting from
// output[bb] − globals. At each cycle the cycle's definitions are removed and
// its uses added, both without globals and literals. The result has one set
// per cycle boundary.
func LiveSets(g *cdfg.CDFG, s *schedule.Schedule, out map[string]cdfg.VarSet, globals cdfg.VarSet) map[string][]cdfg.VarSet {
	live := make(map[string][]cdfg.VarSet, len(g.Blocks))
	for _, b := range g.Blocks {
		cycles := s.Block(b.Label)
		sets := make([]cdfg.VarSet, len(cycles)+1)

		cur := out[b.Label].Minus(globals)
		sets[len(cycles)] = cur
		for c := len(cycles) - 1; c >= 0; c-- {
			used := make(cdfg.VarSet)
			defined := make(cdfg.VarSet)
			for _, sl := range cycles[c] {
				op := b.Ops[sl.Op]
				for _, v := range op.Uses() {
					used.Add(v)
				}
				if v, ok := op.Def(); ok {
					defined.Add(v)
				}
			}
			cur = stripped(cur.Minus(defined).Union(used.Minus(globals)), nil)
			sets[c] = cur
		}
		live[b.Label] = sets
	}
	return live
}

// Periods turns per-boundary live sets into one interval per variable.
func Periods(live map[string][]cdfg.VarSet) map[string]map[string]Interval {
	periods := make(map[string]map[string]Interval, len(live))
	for label, sets := range live {
		p := make(map[string]Interval)
		for i, set := range sets {
			for v := range set {
				iv, ok := p[v]
				if !ok {
					iv.Start = i
				}
				iv.End = i
				p[v] = iv
			}
		}
		periods[label] = p
	}
	return periods
}

// stripped drops literals and the names in drop.
func stripped(s, drop cdfg.VarSet) cdfg.VarSet {
	r := make(cdfg.VarSet, len(s))
	for v := range s {
		if cdfg.IsLiteral(v) || drop.Contains(v) {
			continue
		}
		r.Add(v)
	}
	return r
}
