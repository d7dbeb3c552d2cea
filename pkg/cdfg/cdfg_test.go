package cdfg

import (
	"bytes"
	"errors"
	"slices"
	"strings"
	"testing"
)

// loopFunction builds:
//
//	0: i = ASSIGN 0          -> 1
//	1: c = LT i n; BR c 2 3
//	2: i = ADD i 1; BR 1
//	3: RET i
func loopFunction(t *testing.T) *CDFG {
	t.Helper()
	b0 := NewBasicBlock("0", Op("i", OpAssign, "0"))
	b0.Next = "1"
	b1 := NewBasicBlock("1", Op("c", OpLt, "i", "n"), Op("", OpBr, "c", "2", "3"))
	b1.Next = "2"
	b2 := NewBasicBlock("2", Op("i", OpAdd, "i", "1"), Op("", OpBr, "1"))
	b2.Next = "3"
	b3 := NewBasicBlock("3", Op("", OpRet, "i"))

	g, err := New("loop", "i32", []Param{{Name: "n", Kind: ParamScalar}}, []*BasicBlock{b0, b1, b2, b3})
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func TestBuildCFG(t *testing.T) {
	g := loopFunction(t)

	want := []CFGEdge{
		{From: "0", To: "1", Cond: "true"},
		{From: "1", To: "2", Cond: "c"},
		{From: "1", To: "3", Cond: "not c"},
		{From: "2", To: "1", Cond: "true"},
	}
	if !slices.Equal(g.CFG().Edges(), want) {
		t.Errorf("edges = %v, want %v", g.CFG().Edges(), want)
	}
	if got := g.CFG().Succs("1"); !slices.Equal(got, []string{"2", "3"}) {
		t.Errorf("succs(1) = %v", got)
	}
	if got := g.CFG().Preds("1"); !slices.Equal(got, []string{"0", "2"}) {
		t.Errorf("preds(1) = %v", got)
	}
	if len(g.CFG().Succs("3")) != 0 {
		t.Errorf("last block should have no successors")
	}
}

func TestBuildCFGIdempotent(t *testing.T) {
	g := loopFunction(t)
	first := slices.Clone(g.CFG().Edges())
	if err := g.BuildCFG(); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(first, g.CFG().Edges()) {
		t.Errorf("rebuild changed edges")
	}
}

func TestBuildCFGSameTargets(t *testing.T) {
	b0 := NewBasicBlock("0", Op("", OpBr, "c", "1", "1"))
	b1 := NewBasicBlock("1", Op("", OpRet))
	g, err := New("f", "void", []Param{{Name: "c", Kind: ParamScalar}}, []*BasicBlock{b0, b1})
	if err != nil {
		t.Fatal(err)
	}
	want := []CFGEdge{{From: "0", To: "1", Cond: "true"}}
	if !slices.Equal(g.CFG().Edges(), want) {
		t.Errorf("edges = %v, want %v", g.CFG().Edges(), want)
	}
}

func TestNewMalformed(t *testing.T) {
	tests := []struct {
		name   string
		blocks func() []*BasicBlock
		params []Param
	}{
		{
			name:   "empty function",
			blocks: func() []*BasicBlock { return nil },
		},
		{
			name: "dangling branch",
			blocks: func() []*BasicBlock {
				return []*BasicBlock{NewBasicBlock("0", Op("", OpBr, "9"))}
			},
		},
		{
			name: "dangling conditional branch",
			blocks: func() []*BasicBlock {
				return []*BasicBlock{
					NewBasicBlock("0", Op("", OpBr, "c", "0", "7")),
				}
			},
		},
		{
			name: "dangling fall-through",
			blocks: func() []*BasicBlock {
				b := NewBasicBlock("0", Op("x", OpAssign, "1"))
				b.Next = "4"
				return []*BasicBlock{b}
			},
		},
		{
			name: "duplicate label",
			blocks: func() []*BasicBlock {
				return []*BasicBlock{NewBasicBlock("0"), NewBasicBlock("0")}
			},
		},
		{
			name: "missing operand",
			blocks: func() []*BasicBlock {
				return []*BasicBlock{NewBasicBlock("0", Op("t", OpMul, "a"))}
			},
		},
		{
			name: "bad param kind",
			blocks: func() []*BasicBlock {
				return []*BasicBlock{NewBasicBlock("0", Op("", OpRet))}
			},
			params: []Param{{Name: "a", Kind: "vector"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := New("f", "void", tt.params, tt.blocks())
			if !errors.Is(err, ErrMalformedIR) {
				t.Errorf("err = %v, want ErrMalformedIR", err)
			}
			if g != nil {
				t.Error("no graph should be returned on error")
			}
		})
	}
}

func TestNewNoPartialDFG(t *testing.T) {
	good := NewBasicBlock("0", Op("t", OpAdd, "a", "b"))
	good.Next = "1"
	bad := NewBasicBlock("1", Op("", OpStore, "m"))
	if _, err := New("f", "void", nil, []*BasicBlock{good, bad}); err == nil {
		t.Fatal("expected error")
	}
	if good.DFG() != nil {
		t.Error("well-formed block should not get a DFG when a sibling is malformed")
	}
}

func TestEntryAndReachable(t *testing.T) {
	g := loopFunction(t)
	if g.Entry() != "0" {
		t.Errorf("entry = %v, want 0", g.Entry())
	}
	if got := g.Reachable(); !slices.Equal(got, []string{"0", "1", "2", "3"}) {
		t.Errorf("reachable = %v", got)
	}

	a := NewBasicBlock("entry", Op("", OpRet))
	b := NewBasicBlock("dead", Op("", OpRet))
	g2, err := New("f", "void", nil, []*BasicBlock{a, b})
	if err != nil {
		t.Fatal(err)
	}
	if g2.Entry() != "entry" {
		t.Errorf("entry = %v, want first block", g2.Entry())
	}
	if got := g2.Reachable(); !slices.Equal(got, []string{"entry"}) {
		t.Errorf("reachable = %v", got)
	}
}

func TestParams(t *testing.T) {
	b := NewBasicBlock("0", Op("", OpRet))
	g, err := New("f", "void", []Param{
		{Name: "mem", Kind: ParamArray},
		{Name: "n", Kind: ParamScalar},
	}, []*BasicBlock{b})
	if err != nil {
		t.Fatal(err)
	}
	if got := g.ScalarParams().Sorted(); !slices.Equal(got, []string{"n"}) {
		t.Errorf("scalar params = %v", got)
	}
	if got := g.ParamNames().Sorted(); !slices.Equal(got, []string{"mem", "n"}) {
		t.Errorf("params = %v", got)
	}
}

func TestPrinter(t *testing.T) {
	g := loopFunction(t)
	var buf bytes.Buffer
	NewPrinter(&buf).PrintCDFG(g)
	out := buf.String()

	for _, want := range []string{
		"name: loop",
		"n(non-array)",
		"block 1 (next 2):",
		"[0] c = LT i n",
		"1 -> 3 [not c]",
		"0 -> 1 [c]",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
