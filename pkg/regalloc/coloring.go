package regalloc

import (
	"math"
	"sort"

	"github.com/raymyers/ralph-hls/pkg/liveness"
)

// Assignment places variable Var in a register for the cycles of Interval.
type Assignment struct {
	Var string
	liveness.Interval
}

// Coloring maps a block label to its registers; each register lists its
// assignments ordered by start boundary.
type Coloring map[string][][]Assignment

// Registers returns the largest register count over all blocks.
func (c Coloring) Registers() int {
	n := 0
	for _, regs := range c {
		n = max(n, len(regs))
	}
	return n
}

// Clone returns a deep copy.
func (c Coloring) Clone() Coloring {
	r := make(Coloring, len(c))
	for label, regs := range c {
		cp := make([][]Assignment, len(regs))
		for i, reg := range regs {
			cp[i] = append([]Assignment(nil), reg...)
		}
		r[label] = cp
	}
	return r
}

// RegisterOf returns the register holding v in the block.
func (c Coloring) RegisterOf(label, v string) (int, bool) {
	for r, reg := range c[label] {
		for _, a := range reg {
			if a.Var == v {
				return r, true
			}
		}
	}
	return 0, false
}

// pad appends empty registers so every block has n.
func (c Coloring) pad(n int) {
	for label, regs := range c {
		for len(regs) < n {
			regs = append(regs, nil)
		}
		c[label] = regs
	}
}

// LeftEdge colors one block's intervals.
//
// Variables are sorted by (start, length, name). Each pass sweeps the sorted
// list and packs every interval starting strictly after the register's
// current right edge; one pass yields one register.
func LeftEdge(periods map[string]liveness.Interval) [][]Assignment {
	uncolored := make([]string, 0, len(periods))
	for v := range periods {
		uncolored = append(uncolored, v)
	}
	sort.Slice(uncolored, func(i, j int) bool {
		a, b := periods[uncolored[i]], periods[uncolored[j]]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.Len() != b.Len() {
			return a.Len() < b.Len()
		}
		return uncolored[i] < uncolored[j]
	})

	var regs [][]Assignment
	for len(uncolored) > 0 {
		var reg []Assignment
		rest := uncolored[:0]
		right := -1
		for _, v := range uncolored {
			iv := periods[v]
			if iv.Start > right {
				reg = append(reg, Assignment{Var: v, Interval: iv})
				right = iv.End
				continue
			}
			rest = append(rest, v)
		}
		regs = append(regs, reg)
		uncolored = rest
	}
	return regs
}

func last(reg []Assignment) Assignment { return reg[len(reg)-1] }

// rightEdge is the end of the register's tail, -1 when empty.
func rightEdge(regs [][]Assignment, r int) int {
	if len(regs[r]) == 0 {
		return -1
	}
	return last(regs[r]).End
}

// beforeTailEdge is the end of the second-to-last assignment, -1 if none.
func beforeTailEdge(regs [][]Assignment, r int) int {
	if len(regs[r]) < 2 {
		return -1
	}
	return regs[r][len(regs[r])-2].End
}

// leftEdge is the start of the register's head, MaxInt when empty.
func leftEdge(regs [][]Assignment, r int) int {
	if len(regs[r]) == 0 {
		return math.MaxInt
	}
	return regs[r][0].Start
}

// findTail returns the register whose last assignment is v.
func findTail(regs [][]Assignment, v string) int {
	for r, reg := range regs {
		if len(reg) > 0 && last(reg).Var == v {
			return r
		}
	}
	return -1
}

// findHead returns the register whose first assignment is v.
func findHead(regs [][]Assignment, v string) int {
	for r, reg := range regs {
		if len(reg) > 0 && reg[0].Var == v {
			return r
		}
	}
	return -1
}

func prepend(reg []Assignment, a Assignment) []Assignment {
	return append([]Assignment{a}, reg...)
}

// insertSorted keeps the register ordered by start boundary.
func insertSorted(reg []Assignment, a Assignment) []Assignment {
	i := sort.Search(len(reg), func(i int) bool { return reg[i].Start > a.Start })
	reg = append(reg, Assignment{})
	copy(reg[i+1:], reg[i:])
	reg[i] = a
	return reg
}
