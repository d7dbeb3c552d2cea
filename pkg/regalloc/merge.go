package regalloc

// Merge returns a copy of c where each variable has been moved, in every
// block where it appears, to the lowest register that stays free of
// overlaps. Passes repeat until nothing moves; empty registers are then
// dropped and blocks padded to the same count.
func Merge(c Coloring, labels []string) Coloring {
	m := c.Clone()
	for mergePass(m, labels) > 0 {
	}
	return compact(m, labels)
}

// mergePass runs one relocation sweep and returns how many variables moved.
func mergePass(c Coloring, labels []string) int {
	moved := 0
	for _, v := range varOrder(c, labels) {
		at := locate(c, labels, v)

		cur := 0
		for _, p := range at {
			cur = max(cur, p.reg)
		}

		for r := 0; r < cur; r++ {
			if !fits(c, v, at, r) {
				continue
			}
			for label, p := range at {
				c[label][p.reg] = without(c[label][p.reg], v)
				c[label][r] = insertSorted(c[label][r], p.Assignment)
			}
			moved++
			break
		}
	}
	return moved
}

type placement struct {
	reg int
	Assignment
}

// varOrder lists variables by first appearance: blocks, then registers,
// then assignments.
func varOrder(c Coloring, labels []string) []string {
	seen := map[string]bool{}
	var vars []string
	for _, label := range labels {
		for _, reg := range c[label] {
			for _, a := range reg {
				if !seen[a.Var] {
					seen[a.Var] = true
					vars = append(vars, a.Var)
				}
			}
		}
	}
	return vars
}

func locate(c Coloring, labels []string, v string) map[string]placement {
	at := make(map[string]placement)
	for _, label := range labels {
		for r, reg := range c[label] {
			for _, a := range reg {
				if a.Var == v {
					at[label] = placement{reg: r, Assignment: a}
				}
			}
		}
	}
	return at
}

// fits reports whether register r holds no interval of another variable
// overlapping v in any block where v appears.
func fits(c Coloring, v string, at map[string]placement, r int) bool {
	for label, p := range at {
		for _, a := range c[label][r] {
			if a.Var != v && a.Overlaps(p.Interval) {
				return false
			}
		}
	}
	return true
}

func without(reg []Assignment, v string) []Assignment {
	r := reg[:0]
	for _, a := range reg {
		if a.Var != v {
			r = append(r, a)
		}
	}
	return r
}

// compact drops empty registers, renumbers each block and pads all blocks to
// the largest count.
func compact(c Coloring, labels []string) Coloring {
	r := make(Coloring, len(c))
	for _, label := range labels {
		var regs [][]Assignment
		for _, reg := range c[label] {
			if len(reg) > 0 {
				regs = append(regs, reg)
			}
		}
		r[label] = regs
	}
	r.pad(r.Registers())
	return r
}
