package llir

import (
	"fmt"

	"tlog.app/go/tlog/tlwire"
)

type (
	// Ident names an anchor. It must be declared exactly once per program.
	Ident string

	// Operand is one of Imm, Pos, Rel, LabelRef, ImmAnchor, PosAnchor
	// before resolution, or one of Imm, Ptr, Off after.
	Operand any

	Imm int64 // literal word, immediate mode

	Pos      Ident // reference to an anchor, position mode
	Rel      Ident // reference to an anchor, relative mode
	LabelRef Ident // reference to a label, resolves to its address as an immediate

	// ImmAnchor declares a named cell inline in the instruction.
	// The cell holds Init and is read in immediate mode.
	ImmAnchor struct {
		Name Ident
		Init int64
	}

	// PosAnchor declares a named cell inline in the instruction.
	// The cell holds Init and is read in position mode.
	PosAnchor struct {
		Name Ident
		Init int64
	}

	Ptr int64 // resolved absolute address, position mode
	Off int64 // resolved word, relative mode

	// Instr is one of the structs below.
	// Operand fields are declared in emission order, destination last.
	Instr any

	Add struct{ A, B, Dst Operand }
	Mul struct{ A, B, Dst Operand }

	In  struct{ Dst Operand }
	Out struct{ Src Operand }

	Jnz struct{ Cond, Target Operand }
	Jz  struct{ Cond, Target Operand }

	Less struct{ A, B, Dst Operand }
	Eq   struct{ A, B, Dst Operand }

	Arb struct{ Delta Operand }

	Halt struct{}

	// Derived instructions. rewrite expands them into primitives.

	Copy struct{ Dst, Src Operand }
	Jump struct{ Target Operand }
	Iadd struct{ Dst, Val Operand }
	Imul struct{ Dst, Val Operand }

	// Pseudo instructions. Neither emits an opcode word.

	Lbl struct{ Name Ident } // names the address of the next real instruction

	Var struct { // reserves one data word holding Init
		Name Ident
		Init int64
	}

	Program struct {
		Code []Instr
	}

	MalformedOperandError struct {
		Instr int
		Slot  int
		Op    Operand
	}
)

func (e MalformedOperandError) Error() string {
	return fmt.Sprintf("malformed operand: instr %d slot %d: %T is not allowed here", e.Instr, e.Slot, e.Op)
}

// Operands returns x's operands in emission order. Pseudo instructions have none.
func Operands(x Instr) []Operand {
	switch x := x.(type) {
	case Add:
		return []Operand{x.A, x.B, x.Dst}
	case Mul:
		return []Operand{x.A, x.B, x.Dst}
	case Less:
		return []Operand{x.A, x.B, x.Dst}
	case Eq:
		return []Operand{x.A, x.B, x.Dst}
	case Jnz:
		return []Operand{x.Cond, x.Target}
	case Jz:
		return []Operand{x.Cond, x.Target}
	case In:
		return []Operand{x.Dst}
	case Out:
		return []Operand{x.Src}
	case Arb:
		return []Operand{x.Delta}
	case Halt, Lbl, Var:
		return nil
	case Copy:
		return []Operand{x.Dst, x.Src}
	case Jump:
		return []Operand{x.Target}
	case Iadd:
		return []Operand{x.Dst, x.Val}
	case Imul:
		return []Operand{x.Dst, x.Val}
	default:
		panic(x)
	}
}

// WithOperands returns a copy of x with its operands replaced, in the same
// order Operands returns them.
func WithOperands(x Instr, ops []Operand) Instr {
	switch x.(type) {
	case Add:
		return Add{A: ops[0], B: ops[1], Dst: ops[2]}
	case Mul:
		return Mul{A: ops[0], B: ops[1], Dst: ops[2]}
	case Less:
		return Less{A: ops[0], B: ops[1], Dst: ops[2]}
	case Eq:
		return Eq{A: ops[0], B: ops[1], Dst: ops[2]}
	case Jnz:
		return Jnz{Cond: ops[0], Target: ops[1]}
	case Jz:
		return Jz{Cond: ops[0], Target: ops[1]}
	case In:
		return In{Dst: ops[0]}
	case Out:
		return Out{Src: ops[0]}
	case Arb:
		return Arb{Delta: ops[0]}
	case Halt, Lbl, Var:
		return x
	case Copy:
		return Copy{Dst: ops[0], Src: ops[1]}
	case Jump:
		return Jump{Target: ops[0]}
	case Iadd:
		return Iadd{Dst: ops[0], Val: ops[1]}
	case Imul:
		return Imul{Dst: ops[0], Val: ops[1]}
	default:
		panic(x)
	}
}

// Anchor returns the identifier an operand declares, if any.
func Anchor(op Operand) (Ident, bool) {
	switch op := op.(type) {
	case ImmAnchor:
		return op.Name, true
	case PosAnchor:
		return op.Name, true
	default:
		return "", false
	}
}

// Ref converts an anchor-declaring operand into a plain reference to it.
// Plain references pass through unchanged.
func Ref(op Operand) Operand {
	switch op := op.(type) {
	case ImmAnchor:
		return Pos(op.Name)
	case PosAnchor:
		return Pos(op.Name)
	default:
		return op
	}
}

// Validate checks operand kinds against each instruction's slot rules.
// Arity is structural, so only kinds are checked: a slot the machine stores
// into must not hold an immediate-mode operand.
func Validate(p Program) error {
	for i, x := range p.Code {
		ops := Operands(x)

		for slot, op := range ops {
			if op == nil || !known(op) {
				return MalformedOperandError{Instr: i, Slot: slot, Op: op}
			}
		}

		w, inplace := writeSlot(x)
		if w < 0 {
			continue
		}

		if !writable(ops[w], inplace) {
			return MalformedOperandError{Instr: i, Slot: w, Op: ops[w]}
		}
	}

	for i, x := range p.Code {
		switch x := x.(type) {
		case Lbl:
			if x.Name == "" {
				return MalformedOperandError{Instr: i, Op: x}
			}
		case Var:
			if x.Name == "" {
				return MalformedOperandError{Instr: i, Op: x}
			}
		}
	}

	return nil
}

// writeSlot returns the index of x's write target in Operands order, or -1.
// inplace is set for derived in-place forms, which read the target before
// writing it and so may anchor it even in immediate mode.
func writeSlot(x Instr) (slot int, inplace bool) {
	switch x.(type) {
	case Add, Mul, Less, Eq:
		return 2, false
	case In:
		return 0, false
	case Copy:
		return 0, false
	case Iadd, Imul:
		return 0, true
	default:
		return -1, false
	}
}

func writable(op Operand, inplace bool) bool {
	switch op.(type) {
	case Pos, Rel, PosAnchor, Ptr, Off:
		return true
	case ImmAnchor:
		return inplace
	default:
		return false
	}
}

func known(op Operand) bool {
	switch op.(type) {
	case Imm, Pos, Rel, LabelRef, ImmAnchor, PosAnchor, Ptr, Off:
		return true
	default:
		return false
	}
}

func (a ImmAnchor) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	b = e.AppendMap(b, 2)

	b = e.AppendKeyString(b, "name", string(a.Name))
	b = e.AppendKeyInt64(b, "init", a.Init)

	return b
}

func (a PosAnchor) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	b = e.AppendMap(b, 2)

	b = e.AppendKeyString(b, "name", string(a.Name))
	b = e.AppendKeyInt64(b, "init", a.Init)

	return b
}
