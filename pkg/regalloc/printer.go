package regalloc

import (
	"fmt"
	"io"
	"strings"

	"github.com/raymyers/ralph-hls/pkg/cdfg"
)

// Printer writes register tables.
type Printer struct {
	w io.Writer
}

// NewPrinter creates a printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// PrintResult prints the aligned and merged colorings and the totals.
func (p *Printer) PrintResult(g *cdfg.CDFG, res *Result) {
	p.PrintColoring("Coloring", g, res.Coloring)
	p.PrintColoring("Merged registers", g, res.Merged)
	fmt.Fprintf(p.w, "local registers: %d\n", res.Stats.Locals)
	fmt.Fprintf(p.w, "global registers: %d\n", res.Stats.Globals)
	fmt.Fprintf(p.w, "total registers: %d\n", res.Stats.Total)
	fmt.Fprintln(p.w)
}

// PrintColoring prints one coloring, one line per register:
//
//	reg 0: a[0,0] t[1,2]
func (p *Printer) PrintColoring(title string, g *cdfg.CDFG, c Coloring) {
	fmt.Fprintf(p.w, "===== %s =====\n", title)
	for _, label := range g.Labels() {
		fmt.Fprintf(p.w, "block %s:\n", label)
		for r, reg := range c[label] {
			parts := make([]string, len(reg))
			for i, a := range reg {
				parts[i] = fmt.Sprintf("%s[%d,%d]", a.Var, a.Start, a.End)
			}
			fmt.Fprintf(p.w, "  reg %d: %s\n", r, strings.Join(parts, " "))
		}
	}
	fmt.Fprintln(p.w)
}
