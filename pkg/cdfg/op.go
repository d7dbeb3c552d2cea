// Package cdfg defines the control/data-flow graph consumed by the HLS backend.
// A CDFG owns the basic blocks of one function, the control-flow graph between
// them, and one data-flow graph per block.
package cdfg

import (
	"strconv"
	"strings"

	"tlog.app/go/errors"
)

// OpKind identifies one of the fifteen operation kinds.
// The numeric values match the OP TYPE codes of the IR producer.
type OpKind int

const (
	OpAssign OpKind = iota
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpLoad
	OpStore
	OpBr
	OpLt
	OpGt
	OpLe
	OpGe
	OpEq
	OpPhi
	OpRet

	NumKinds = int(OpRet) + 1
)

var kindNames = [NumKinds]string{
	"ASSIGN", "ADD", "SUB", "MUL", "DIV", "LOAD", "STORE",
	"BR", "LT", "GT", "LE", "GE", "EQ", "PHI", "RET",
}

// String returns the upper-case mnemonic of the kind.
func (k OpKind) String() string {
	if k.Valid() {
		return kindNames[k]
	}
	return strconv.Itoa(int(k))
}

// Valid reports whether k is one of the known kinds.
func (k OpKind) Valid() bool {
	return k >= 0 && int(k) < NumKinds
}

// ParseOpKind accepts a mnemonic (case-insensitive, optional "OP_" prefix)
// or a decimal OP TYPE code.
func ParseOpKind(s string) (OpKind, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	name = strings.TrimPrefix(name, "OP_")
	for i, n := range kindNames {
		if n == name {
			return OpKind(i), nil
		}
	}
	if code, err := strconv.Atoi(name); err == nil && OpKind(code).Valid() {
		return OpKind(code), nil
	}
	return 0, errors.New("unknown operation kind %q", s)
}

// Kinds returns all kinds in code order.
func Kinds() []OpKind {
	ks := make([]OpKind, NumKinds)
	for i := range ks {
		ks[i] = OpKind(i)
	}
	return ks
}

// IsLiteral reports whether name is a decimal literal.
// Literals are never used or defined variables.
func IsLiteral(name string) bool {
	if name == "" {
		return false
	}
	for _, c := range name {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// Operation is one IR operation: Result = Kind(Operands...).
// Result is empty for STORE, BR and RET.
//
// Operand layout depends on the kind:
//
//	LOAD   [array, index]
//	STORE  [array, index, value]
//	BR     [cond, trueLabel, falseLabel] or [target]
//	PHI    [value0, label0, value1, label1, ...]
//	RET    [value] or []
//	others all operands are values
type Operation struct {
	Result   string
	Kind     OpKind
	Operands []string
}

// Op is a convenience constructor.
func Op(result string, kind OpKind, operands ...string) Operation {
	return Operation{Result: result, Kind: kind, Operands: operands}
}

// IsConditionalBranch reports whether op is a two-way BR.
func (op Operation) IsConditionalBranch() bool {
	return op.Kind == OpBr && len(op.Operands) >= 3
}

// IsTerminator reports whether op ends a block (BR or RET).
func (op Operation) IsTerminator() bool {
	return op.Kind == OpBr || op.Kind == OpRet
}

// BranchTargets returns the labels a BR may jump to, true target first.
func (op Operation) BranchTargets() []string {
	if op.Kind != OpBr {
		return nil
	}
	if op.IsConditionalBranch() {
		return []string{op.Operands[1], op.Operands[2]}
	}
	if len(op.Operands) == 1 {
		return []string{op.Operands[0]}
	}
	return nil
}

// Array returns the memory handle of a LOAD or STORE.
func (op Operation) Array() (string, bool) {
	if (op.Kind == OpLoad || op.Kind == OpStore) && len(op.Operands) > 0 {
		return op.Operands[0], true
	}
	return "", false
}

// Uses returns the variables read by op, in operand order and without
// duplicates. Array handles, branch labels, PHI source labels and literals
// are not variables.
func (op Operation) Uses() []string {
	var raw []string
	switch op.Kind {
	case OpPhi:
		for i := 0; i < len(op.Operands); i += 2 {
			raw = append(raw, op.Operands[i])
		}
	case OpLoad, OpStore:
		if len(op.Operands) > 1 {
			raw = op.Operands[1:]
		}
	case OpBr:
		if op.IsConditionalBranch() {
			raw = op.Operands[:1]
		}
	default:
		raw = op.Operands
	}

	uses := make([]string, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, v := range raw {
		if v == "" || IsLiteral(v) || seen[v] {
			continue
		}
		seen[v] = true
		uses = append(uses, v)
	}
	return uses
}

// Def returns the variable written by op, if any.
func (op Operation) Def() (string, bool) {
	if op.Result == "" || IsLiteral(op.Result) {
		return "", false
	}
	return op.Result, true
}

// String renders op the way the reports print it.
func (op Operation) String() string {
	var sb strings.Builder
	if op.Result != "" {
		sb.WriteString(op.Result)
		sb.WriteString(" = ")
	}
	sb.WriteString(op.Kind.String())
	if len(op.Operands) > 0 {
		sb.WriteString(" ")
		sb.WriteString(strings.Join(op.Operands, " "))
	}
	return sb.String()
}

// validate checks the operand count and result presence for the kind.
func (op Operation) validate() error {
	if !op.Kind.Valid() {
		return errors.New("invalid kind %d", int(op.Kind))
	}
	n := len(op.Operands)
	for i, v := range op.Operands {
		if v == "" {
			return errors.New("%v: empty operand %d", op.Kind, i)
		}
	}

	switch op.Kind {
	case OpStore, OpBr, OpRet:
		if op.Result != "" {
			return errors.New("%v: unexpected result %q", op.Kind, op.Result)
		}
	default:
		if op.Result == "" {
			return errors.New("%v: missing result", op.Kind)
		}
		if IsLiteral(op.Result) {
			return errors.New("%v: literal result %q", op.Kind, op.Result)
		}
	}

	var ok bool
	switch op.Kind {
	case OpAssign:
		ok = n >= 1
	case OpAdd, OpSub, OpMul, OpDiv, OpLt, OpGt, OpLe, OpGe, OpEq:
		ok = n >= 2
	case OpLoad:
		ok = n >= 2
	case OpStore:
		ok = n >= 3
	case OpBr:
		ok = n == 1 || n == 3
	case OpPhi:
		ok = n >= 2 && n%2 == 0
	case OpRet:
		ok = n <= 1
	}
	if !ok {
		return errors.New("%v: bad operand count %d", op.Kind, n)
	}
	return nil
}
