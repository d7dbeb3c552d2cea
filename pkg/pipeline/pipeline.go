// Package pipeline chains scheduling, liveness analysis and register
// allocation over one CDFG.
package pipeline

import (
	"context"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/raymyers/ralph-hls/pkg/cdfg"
	"github.com/raymyers/ralph-hls/pkg/config"
	"github.com/raymyers/ralph-hls/pkg/liveness"
	"github.com/raymyers/ralph-hls/pkg/regalloc"
	"github.com/raymyers/ralph-hls/pkg/schedule"
)

// Scheduler assigns operations to cycles.
type Scheduler interface {
	Schedule(ctx context.Context, g *cdfg.CDFG) (*schedule.Schedule, error)
}

// LivenessAnalyzer derives the liveness tables of a scheduled CDFG.
type LivenessAnalyzer interface {
	Analyze(ctx context.Context, g *cdfg.CDFG, s *schedule.Schedule) *liveness.Info
}

// RegisterAllocator maps live periods to registers.
type RegisterAllocator interface {
	Allocate(ctx context.Context, g *cdfg.CDFG, info *liveness.Info) *regalloc.Result
}

// Pipeline runs its three stages in order.
type Pipeline struct {
	Scheduler Scheduler
	Liveness  LivenessAnalyzer
	Allocator RegisterAllocator
}

// Result is everything one run produces. Stages never modify an earlier
// stage's output.
type Result struct {
	CDFG      *cdfg.CDFG
	Schedule  *schedule.Schedule
	Liveness  *liveness.Info
	Registers *regalloc.Result
}

// New returns the default pipeline: ASAP scheduling with res and opts.
func New(res cdfg.ResourceTable, opts schedule.Options) *Pipeline {
	return &Pipeline{
		Scheduler: schedule.NewASAP(res, opts),
		Liveness:  liveness.Analyzer{},
		Allocator: regalloc.Allocator{},
	}
}

// FromConfig builds the default pipeline from a configuration.
func FromConfig(c *config.Config) (*Pipeline, error) {
	res, err := c.ResourceTable()
	if err != nil {
		return nil, err
	}
	return New(res, c.Scheduler), nil
}

// Run schedules g, analyzes liveness and allocates registers.
func (p *Pipeline) Run(ctx context.Context, g *cdfg.CDFG) (res *Result, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "hls", "function", g.FunctionName, "blocks", len(g.Blocks))
	defer tr.Finish("err", &err)

	s, err := p.Scheduler.Schedule(ctx, g)
	if err != nil {
		return nil, errors.Wrap(err, "schedule %v", g.FunctionName)
	}
	for label, n := range s.Deadlocks {
		tr.Printw("deadlock recovered", "block", label, "forced", n)
	}

	info := p.Liveness.Analyze(ctx, g, s)
	regs := p.Allocator.Allocate(ctx, g, info)

	tr.Printw("done", "registers", regs.Stats.Total)

	return &Result{
		CDFG:      g,
		Schedule:  s,
		Liveness:  info,
		Registers: regs,
	}, nil
}
