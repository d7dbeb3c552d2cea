package regalloc

import (
	"sort"

	"github.com/raymyers/ralph-hls/pkg/cdfg"
	"github.com/raymyers/ralph-hls/pkg/liveness"
)

// Align moves intervals so every local variable carried over a CFG edge sits
// in the same register at the tail of the source block and at the head of
// the sink block. Edges are visited in CFG order; c is modified in place.
// It returns the number of variables that needed a move.
func Align(c Coloring, g *cdfg.CDFG, info *liveness.Info) int {
	n := c.Registers()
	c.pad(n)

	moved := 0
	for _, e := range g.CFG().Edges() {
		for _, v := range crossOrder(c[e.From], info.CrossEdge(e.From, e.To)) {
			var ok bool
			n, ok = alignVar(c, e.From, e.To, v, n)
			if ok {
				moved++
			}
		}
	}
	return moved
}

// crossOrder sorts carried variables by descending tail interval length in
// the source block, then by name.
func crossOrder(regs [][]Assignment, vars cdfg.VarSet) []string {
	length := make(map[string]int, len(vars))
	for v := range vars {
		if r := findTail(regs, v); r >= 0 {
			length[v] = last(regs[r]).Len()
		}
	}

	names := vars.Sorted()
	sort.SliceStable(names, func(i, j int) bool {
		return length[names[i]] > length[names[j]]
	})
	return names
}

// alignVar tries each relocation in priority order and stops at the first
// that fits. It returns the register count and whether anything moved.
func alignVar(c Coloring, src, sink, v string, n int) (int, bool) {
	sr := findTail(c[src], v)
	kr := findHead(c[sink], v)
	if sr < 0 || kr < 0 || sr == kr {
		return n, false
	}
	srcVar := last(c[src][sr])

	// 1: tail moves into the sink's register
	if srcVar.Start > rightEdge(c[src], kr) {
		c[src][sr] = c[src][sr][:len(c[src][sr])-1]
		c[src][kr] = append(c[src][kr], srcVar)
		return n, true
	}

	// 2: swap tails in the source block
	if other := last(c[src][kr]); other.Start > beforeTailEdge(c[src], sr) &&
		srcVar.Start > beforeTailEdge(c[src], kr) {
		c[src][sr][len(c[src][sr])-1] = other
		c[src][kr][len(c[src][kr])-1] = srcVar
		return n, true
	}

	// 3: head moves into the source's register
	sinkVar := c[sink][kr][0]
	if sinkVar.End < leftEdge(c[sink], sr) {
		c[sink][kr] = c[sink][kr][1:]
		c[sink][sr] = prepend(c[sink][sr], sinkVar)
		return n, true
	}

	// 4: a register that takes both ends
	for r := 0; r < n; r++ {
		if srcVar.Start > rightEdge(c[src], r) && sinkVar.End < leftEdge(c[sink], r) {
			relocate(c, src, sink, sr, kr, r)
			return n, true
		}
	}

	// 5: a new register
	c.pad(n + 1)
	relocate(c, src, sink, sr, kr, n)
	return n + 1, true
}

// relocate moves the tail of src register sr and the head of sink register
// kr into register r.
func relocate(c Coloring, src, sink string, sr, kr, r int) {
	tail := last(c[src][sr])
	c[src][sr] = c[src][sr][:len(c[src][sr])-1]
	head := c[sink][kr][0]
	c[sink][kr] = c[sink][kr][1:]

	c[src][r] = append(c[src][r], tail)
	c[sink][r] = prepend(c[sink][r], head)
}
