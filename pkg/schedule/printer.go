package schedule

import (
	"fmt"
	"io"

	"github.com/raymyers/ralph-hls/pkg/cdfg"
)

// Printer writes schedule tables.
type Printer struct {
	w io.Writer
}

// NewPrinter creates a printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// PrintSchedule prints the cycles of every block in source order.
func (p *Printer) PrintSchedule(g *cdfg.CDFG, s *Schedule) {
	fmt.Fprintln(p.w, "===== Schedule =====")
	for _, b := range g.Blocks {
		fmt.Fprintf(p.w, "block %s:\n", b.Label)
		for c, cyc := range s.Block(b.Label) {
			fmt.Fprintf(p.w, "  cycle %d:", c)
			for _, sl := range cyc {
				fmt.Fprintf(p.w, " (op %d %s, unit %d)", sl.Op, b.Ops[sl.Op].Kind, sl.Unit)
			}
			fmt.Fprintln(p.w)
		}
		if n := s.Deadlocks[b.Label]; n > 0 {
			fmt.Fprintf(p.w, "  deadlock recoveries: %d\n", n)
		}
	}
	fmt.Fprintln(p.w)
}
