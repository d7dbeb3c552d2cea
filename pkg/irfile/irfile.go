// Package irfile reads a CDFG from YAML and writes pipeline results as YAML.
//
// Input layout:
//
//	function: f
//	returns: i32
//	params:
//	  - {name: a, kind: non-array}
//	blocks:
//	  - label: "0"
//	    ops:
//	      - {result: t, kind: ADD, operands: [a, b]}
//	      - {kind: BR, operands: ["1"]}
//	  - label: "1"
//	    ops:
//	      - {kind: RET, operands: [t]}
//
// A block without next falls through to the following block; next: "" marks
// a block with no successor.
package irfile

import (
	"io"
	"os"

	"gopkg.in/yaml.v3"
	"tlog.app/go/errors"

	"github.com/raymyers/ralph-hls/pkg/cdfg"
)

// File is the YAML form of one function.
type File struct {
	Function string  `yaml:"function"`
	Returns  string  `yaml:"returns,omitempty"`
	Params   []Param `yaml:"params,omitempty"`
	Blocks   []Block `yaml:"blocks"`
}

// Param is a function parameter; kind is "array" or "non-array".
type Param struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`
}

// Block is a basic block. A nil Next falls through to the following block.
type Block struct {
	Label string  `yaml:"label"`
	Next  *string `yaml:"next,omitempty"`
	Ops   []Op    `yaml:"ops"`
}

// Op is one operation; kind is a name or a numeric code.
type Op struct {
	Result   string   `yaml:"result,omitempty"`
	Kind     string   `yaml:"kind"`
	Operands []string `yaml:"operands,flow"`
}

// Load reads a function from path.
func Load(path string) (*cdfg.CDFG, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}
	defer f.Close()

	g, err := Read(f)
	if err != nil {
		return nil, errors.Wrap(err, "%v", path)
	}
	return g, nil
}

// Read decodes and builds a function.
func Read(r io.Reader) (*cdfg.CDFG, error) {
	var f File
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		if err == io.EOF {
			return nil, errors.Wrap(cdfg.ErrMalformedIR, "empty input")
		}
		return nil, errors.Wrap(cdfg.ErrMalformedIR, "decode: %v", err)
	}
	return f.Build()
}

// Build converts f into a validated CDFG.
func (f *File) Build() (*cdfg.CDFG, error) {
	params := make([]cdfg.Param, len(f.Params))
	for i, p := range f.Params {
		params[i] = cdfg.Param{Name: p.Name, Kind: cdfg.ParamKind(p.Kind)}
	}

	blocks := make([]*cdfg.BasicBlock, len(f.Blocks))
	for i, fb := range f.Blocks {
		b := cdfg.NewBasicBlock(fb.Label)
		for j, fo := range fb.Ops {
			k, err := cdfg.ParseOpKind(fo.Kind)
			if err != nil {
				return nil, errors.Wrap(cdfg.ErrMalformedIR, "block %v op %d: %v", fb.Label, j, err)
			}
			b.AddOp(cdfg.Op(fo.Result, k, fo.Operands...))
		}

		switch {
		case fb.Next != nil:
			b.Next = *fb.Next
		case i+1 < len(f.Blocks):
			b.Next = f.Blocks[i+1].Label
		}
		blocks[i] = b
	}

	return cdfg.New(f.Function, f.Returns, params, blocks)
}

// FromCDFG converts g back into its file form with explicit next labels.
func FromCDFG(g *cdfg.CDFG) *File {
	f := &File{Function: g.FunctionName, Returns: g.RetType}
	for _, p := range g.Params {
		f.Params = append(f.Params, Param{Name: p.Name, Kind: string(p.Kind)})
	}
	for _, b := range g.Blocks {
		next := b.Next
		fb := Block{Label: b.Label, Next: &next}
		for _, op := range b.Ops {
			fb.Ops = append(fb.Ops, Op{Result: op.Result, Kind: op.Kind.String(), Operands: op.Operands})
		}
		f.Blocks = append(f.Blocks, fb)
	}
	return f
}

// Write encodes v as YAML with two-space indentation.
func Write(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(err, "encode")
	}
	return enc.Close()
}
