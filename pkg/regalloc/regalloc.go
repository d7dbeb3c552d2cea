// Package regalloc assigns block-local variables to registers: left-edge
// coloring per block, alignment of values carried over CFG edges, and a
// global merge that lowers register indices wherever intervals allow.
package regalloc

import (
	"context"

	"tlog.app/go/tlog"

	"github.com/raymyers/ralph-hls/pkg/cdfg"
	"github.com/raymyers/ralph-hls/pkg/liveness"
)

// Result holds each allocation stage.
type Result struct {
	// Initial is the per-block left-edge coloring, padded.
	Initial Coloring
	// Coloring is Initial after cross-edge alignment.
	Coloring Coloring
	// Merged is the final register assignment.
	Merged Coloring

	// Aligned counts variables moved during alignment.
	Aligned int

	Stats Stats
}

// Stats summarises the register file.
type Stats struct {
	Locals  int `yaml:"locals"`
	Globals int `yaml:"globals"`
	Total   int `yaml:"total"`
}

// Allocator runs the three allocation stages.
type Allocator struct{}

// Allocate colors every block of g using the live periods in info.
func (Allocator) Allocate(ctx context.Context, g *cdfg.CDFG, info *liveness.Info) *Result {
	tr := tlog.SpanFromContext(ctx)
	labels := g.Labels()

	initial := make(Coloring, len(labels))
	for _, label := range labels {
		initial[label] = LeftEdge(info.Periods[label])
	}
	initial.pad(initial.Registers())

	res := &Result{Initial: initial}
	res.Coloring = initial.Clone()
	res.Aligned = Align(res.Coloring, g, info)
	res.Merged = Merge(res.Coloring, labels)

	res.Stats = Stats{
		Locals:  len(res.Merged[g.Entry()]),
		Globals: len(info.Globals),
	}
	res.Stats.Total = res.Stats.Locals + res.Stats.Globals

	tr.Printw("registers", "initial", initial.Registers(), "aligned", res.Aligned,
		"locals", res.Stats.Locals, "globals", res.Stats.Globals)
	return res
}
