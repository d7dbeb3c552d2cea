package cdfg

import (
	"fmt"
	"io"
)

// Printer writes a human-readable dump of a CDFG.
type Printer struct {
	w io.Writer
}

// NewPrinter creates a printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// PrintCDFG prints function info, blocks, CFG and DFGs.
func (p *Printer) PrintCDFG(g *CDFG) {
	p.PrintFunction(g)
	p.PrintBlocks(g)
	p.PrintCFG(g)
	p.PrintDFGs(g)
}

// PrintFunction prints the function header.
func (p *Printer) PrintFunction(g *CDFG) {
	fmt.Fprintln(p.w, "===== Function =====")
	fmt.Fprintf(p.w, "name: %s\n", g.FunctionName)
	fmt.Fprintf(p.w, "returns: %s\n", g.RetType)
	fmt.Fprint(p.w, "params:")
	for _, prm := range g.Params {
		fmt.Fprintf(p.w, " %s(%s)", prm.Name, prm.Kind)
	}
	fmt.Fprintln(p.w)
	fmt.Fprintln(p.w)
}

// PrintBlocks prints every block's operations.
func (p *Printer) PrintBlocks(g *CDFG) {
	fmt.Fprintln(p.w, "===== Basic Blocks =====")
	for _, b := range g.Blocks {
		next := b.Next
		if next == "" {
			next = "-"
		}
		fmt.Fprintf(p.w, "block %s (next %s):\n", b.Label, next)
		for i, op := range b.Ops {
			fmt.Fprintf(p.w, "  [%d] %s\n", i, op)
		}
	}
	fmt.Fprintln(p.w)
}

// PrintCFG prints the control-flow edges.
func (p *Printer) PrintCFG(g *CDFG) {
	fmt.Fprintln(p.w, "===== CFG =====")
	if g.CFG() != nil {
		for _, e := range g.CFG().Edges() {
			fmt.Fprintf(p.w, "  %s -> %s [%s]\n", e.From, e.To, e.Cond)
		}
	}
	fmt.Fprintln(p.w)
}

// PrintDFGs prints the dependency edges of blocks that have any.
func (p *Printer) PrintDFGs(g *CDFG) {
	fmt.Fprintln(p.w, "===== DFG =====")
	for _, b := range g.Blocks {
		d := b.DFG()
		if d == nil || len(d.Edges()) == 0 {
			continue
		}
		fmt.Fprintf(p.w, "block %s:\n", b.Label)
		for _, e := range d.Edges() {
			fmt.Fprintf(p.w, "  %d -> %d [%s]\n", e.From, e.To, e.Value)
		}
	}
	fmt.Fprintln(p.w)
}
