package irfile

import (
	"github.com/raymyers/ralph-hls/pkg/liveness"
	"github.com/raymyers/ralph-hls/pkg/pipeline"
	"github.com/raymyers/ralph-hls/pkg/regalloc"
)

// Report is the exported result of one pipeline run, keyed by block label.
type Report struct {
	Function  string                                  `yaml:"function"`
	Schedule  map[string][][]Slot                     `yaml:"schedule"`
	Deadlocks map[string]int                          `yaml:"deadlocks,omitempty"`
	Input     map[string][]string                     `yaml:"input_variables"`
	Output    map[string][]string                     `yaml:"output_variables"`
	Globals   []string                                `yaml:"global_variables"`
	Periods   map[string]map[string]liveness.Interval `yaml:"living_periods"`
	Coloring  map[string][][]Assignment               `yaml:"coloring"`
	Merged    map[string][][]Assignment               `yaml:"merged_coloring"`
	Registers regalloc.Stats                          `yaml:"registers"`
}

// Slot is one scheduled operation.
type Slot struct {
	Op   int    `yaml:"op"`
	Kind string `yaml:"kind"`
	Unit int    `yaml:"unit"`
}

// Assignment is one variable interval in a register.
type Assignment struct {
	Var   string `yaml:"var"`
	Start int    `yaml:"start"`
	End   int    `yaml:"end"`
}

// NewReport flattens a pipeline result.
func NewReport(res *pipeline.Result) *Report {
	g := res.CDFG
	r := &Report{
		Function:  g.FunctionName,
		Schedule:  make(map[string][][]Slot, len(g.Blocks)),
		Deadlocks: res.Schedule.Deadlocks,
		Input:     make(map[string][]string, len(g.Blocks)),
		Output:    make(map[string][]string, len(g.Blocks)),
		Globals:   res.Liveness.Globals.Sorted(),
		Periods:   res.Liveness.Periods,
		Coloring:  coloring(res.Registers.Coloring),
		Merged:    coloring(res.Registers.Merged),
		Registers: res.Registers.Stats,
	}
	if len(r.Deadlocks) == 0 {
		r.Deadlocks = nil
	}

	for _, b := range g.Blocks {
		cycles := res.Schedule.Block(b.Label)
		sc := make([][]Slot, len(cycles))
		for c, cyc := range cycles {
			sc[c] = make([]Slot, len(cyc))
			for i, sl := range cyc {
				sc[c][i] = Slot{Op: sl.Op, Kind: b.Ops[sl.Op].Kind.String(), Unit: sl.Unit}
			}
		}
		r.Schedule[b.Label] = sc
		r.Input[b.Label] = res.Liveness.Input[b.Label].Sorted()
		r.Output[b.Label] = res.Liveness.Output[b.Label].Sorted()
	}
	return r
}

func coloring(c regalloc.Coloring) map[string][][]Assignment {
	r := make(map[string][][]Assignment, len(c))
	for label, regs := range c {
		out := make([][]Assignment, len(regs))
		for i, reg := range regs {
			out[i] = make([]Assignment, len(reg))
			for j, a := range reg {
				out[i][j] = Assignment{Var: a.Var, Start: a.Start, End: a.End}
			}
		}
		r[label] = out
	}
	return r
}
