package irfile

import (
	"bytes"
	"context"
	"errors"
	"os"
	"slices"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/raymyers/ralph-hls/pkg/cdfg"
	"github.com/raymyers/ralph-hls/pkg/config"
	"github.com/raymyers/ralph-hls/pkg/pipeline"
	"github.com/raymyers/ralph-hls/pkg/regalloc"
)

// ScenarioSpec is one pipeline scenario from scenarios.yaml.
type ScenarioSpec struct {
	Name      string                     `yaml:"name"`
	Resources map[string]config.Override `yaml:"resources"`
	Function  File                       `yaml:"function"`
	Expect    struct {
		Lengths   map[string]int      `yaml:"lengths"`
		Globals   []string            `yaml:"globals"`
		Cross     map[string][]string `yaml:"cross"`
		Registers regalloc.Stats      `yaml:"registers"`
	} `yaml:"expect"`
	Skip string `yaml:"skip,omitempty"`
}

// ScenarioFile is the scenarios.yaml layout.
type ScenarioFile struct {
	Tests []ScenarioSpec `yaml:"tests"`
}

func TestScenarios(t *testing.T) {
	data, err := os.ReadFile("../../testdata/scenarios.yaml")
	if err != nil {
		t.Fatalf("failed to read scenarios.yaml: %v", err)
	}
	var file ScenarioFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		t.Fatalf("failed to parse scenarios.yaml: %v", err)
	}
	if len(file.Tests) == 0 {
		t.Fatal("no scenarios")
	}

	for _, tc := range file.Tests {
		t.Run(tc.Name, func(t *testing.T) {
			if tc.Skip != "" {
				t.Skip(tc.Skip)
			}

			g, err := tc.Function.Build()
			if err != nil {
				t.Fatal(err)
			}
			c := config.Default()
			c.Resources = tc.Resources
			p, err := pipeline.FromConfig(c)
			if err != nil {
				t.Fatal(err)
			}
			res, err := p.Run(context.Background(), g)
			if err != nil {
				t.Fatal(err)
			}

			for label, want := range tc.Expect.Lengths {
				if got := res.Schedule.Length(label); got != want {
					t.Errorf("block %s length = %d, want %d", label, got, want)
				}
			}
			if got := res.Liveness.Globals.Sorted(); !slices.Equal(got, nonNil(tc.Expect.Globals)) {
				t.Errorf("globals = %v, want %v", got, tc.Expect.Globals)
			}
			for edge, want := range tc.Expect.Cross {
				from, to, _ := strings.Cut(edge, "->")
				if got := res.Liveness.CrossEdge(from, to).Sorted(); !slices.Equal(got, nonNil(want)) {
					t.Errorf("cross %s = %v, want %v", edge, got, want)
				}
			}
			if res.Registers.Stats != tc.Expect.Registers {
				t.Errorf("registers = %+v, want %+v", res.Registers.Stats, tc.Expect.Registers)
			}
		})
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func TestLoad(t *testing.T) {
	g, err := Load("../../testdata/loop.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if g.FunctionName != "loop" {
		t.Errorf("name = %q, want loop", g.FunctionName)
	}
	if got := g.Labels(); !slices.Equal(got, []string{"0", "1", "2", "3"}) {
		t.Errorf("labels = %v", got)
	}

	// Fall-through next labels come from source order.
	wantNext := map[string]string{"0": "1", "1": "2", "2": "3", "3": ""}
	for _, b := range g.Blocks {
		if b.Next != wantNext[b.Label] {
			t.Errorf("block %s next = %q, want %q", b.Label, b.Next, wantNext[b.Label])
		}
	}
	if got := g.CFG().Succs("0"); !slices.Equal(got, []string{"1"}) {
		t.Errorf("succs(0) = %v, want [1]", got)
	}

	if _, err := Load("../../testdata/missing.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestReadExplicitNext(t *testing.T) {
	src := `
function: f
blocks:
  - label: "0"
    next: ""
    ops:
      - {result: x, kind: ASSIGN, operands: ["1"]}
  - label: "1"
    ops:
      - {kind: RET, operands: [x]}
`
	g, err := Read(strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	if got := g.CFG().Succs("0"); len(got) != 0 {
		t.Errorf("succs(0) = %v, want none", got)
	}
}

func TestReadKinds(t *testing.T) {
	src := `
function: f
blocks:
  - label: 0
    ops:
      - {result: x, kind: 1, operands: [a, 2]}
      - {result: y, kind: op_mul, operands: [x, x]}
      - {kind: RET, operands: [y]}
`
	g, err := Read(strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	b, ok := g.Block("0")
	if !ok {
		t.Fatal("block 0 missing")
	}
	want := []cdfg.Operation{
		cdfg.Op("x", cdfg.OpAdd, "a", "2"),
		cdfg.Op("y", cdfg.OpMul, "x", "x"),
		cdfg.Op("", cdfg.OpRet, "y"),
	}
	for i, op := range b.Ops {
		if op.String() != want[i].String() {
			t.Errorf("op %d = %v, want %v", i, op, want[i])
		}
	}
}

func TestReadMalformed(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"empty", ""},
		{"no blocks", "function: f\n"},
		{"unknown kind", "function: f\nblocks:\n  - label: \"0\"\n    ops:\n      - {kind: FMA, operands: [a]}\n"},
		{"dangling branch", "function: f\nblocks:\n  - label: \"0\"\n    ops:\n      - {kind: BR, operands: [\"9\"]}\n"},
		{"dangling next", "function: f\nblocks:\n  - label: \"0\"\n    next: \"7\"\n    ops:\n      - {kind: RET}\n"},
		{"bad param kind", "function: f\nparams:\n  - {name: a, kind: matrix}\nblocks:\n  - label: \"0\"\n    ops:\n      - {kind: RET}\n"},
		{"not yaml", "function: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.src))
			if !errors.Is(err, cdfg.ErrMalformedIR) {
				t.Errorf("got %v, want ErrMalformedIR", err)
			}
		})
	}
}

func TestFromCDFG(t *testing.T) {
	g, err := Load("../../testdata/twoblock.yaml")
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := Write(&buf, FromCDFG(g)); err != nil {
		t.Fatal(err)
	}
	back, err := Read(&buf)
	if err != nil {
		t.Fatalf("re-read: %v\n%s", err, buf.String())
	}
	if !slices.Equal(back.CFG().Edges(), g.CFG().Edges()) {
		t.Errorf("edges = %v, want %v", back.CFG().Edges(), g.CFG().Edges())
	}
}

func TestReport(t *testing.T) {
	g, err := Load("../../testdata/twoblock.yaml")
	if err != nil {
		t.Fatal(err)
	}
	c, err := config.Load("../../testdata/hls.yaml")
	if err != nil {
		t.Fatal(err)
	}
	p, err := pipeline.FromConfig(c)
	if err != nil {
		t.Fatal(err)
	}
	res, err := p.Run(context.Background(), g)
	if err != nil {
		t.Fatal(err)
	}

	r := NewReport(res)
	wantSched := [][]Slot{{{Op: 0, Kind: "MUL", Unit: 0}}, {}, {}, {{Op: 1, Kind: "RET", Unit: 0}}}
	if got := r.Schedule["1"]; len(got) != len(wantSched) || got[0][0] != wantSched[0][0] || got[3][0] != wantSched[3][0] {
		t.Errorf("schedule[1] = %v, want %v", got, wantSched)
	}
	if got := r.Output["0"]; !slices.Equal(got, []string{"t"}) {
		t.Errorf("output[0] = %v, want [t]", got)
	}
	if r.Deadlocks != nil {
		t.Errorf("deadlocks = %v, want none", r.Deadlocks)
	}
	if got := r.Merged["0"][1]; len(got) != 2 || got[1] != (Assignment{Var: "t", Start: 1, End: 2}) {
		t.Errorf("merged[0][1] = %v", got)
	}

	var buf bytes.Buffer
	if err := Write(&buf, r); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"function: f",
		"global_variables: []",
		"merged_coloring:",
		"total: 2",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}
