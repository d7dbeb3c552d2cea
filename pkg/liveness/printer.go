package liveness

import (
	"fmt"
	"io"
	"strings"

	"github.com/raymyers/ralph-hls/pkg/cdfg"
)

// Printer writes liveness tables.
type Printer struct {
	w io.Writer
}

// NewPrinter creates a printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// PrintInfo prints input/output sets, globals, live sets and periods.
func (p *Printer) PrintInfo(g *cdfg.CDFG, info *Info) {
	fmt.Fprintln(p.w, "===== Liveness =====")
	fmt.Fprintf(p.w, "globals: %s\n", set(info.Globals))
	for _, label := range g.Labels() {
		fmt.Fprintf(p.w, "block %s:\n", label)
		fmt.Fprintf(p.w, "  input: %s\n", set(info.Input[label]))
		fmt.Fprintf(p.w, "  output: %s\n", set(info.Output[label]))
		for i, live := range info.Live[label] {
			fmt.Fprintf(p.w, "  live %d: %s\n", i, set(live))
		}

		periods := info.Periods[label]
		names := make(cdfg.VarSet, len(periods))
		for v := range periods {
			names.Add(v)
		}
		for _, v := range names.Sorted() {
			iv := periods[v]
			fmt.Fprintf(p.w, "  period %s: [%d,%d]\n", v, iv.Start, iv.End)
		}
	}
	fmt.Fprintln(p.w)
}

func set(s cdfg.VarSet) string {
	return "{" + strings.Join(s.Sorted(), ", ") + "}"
}
