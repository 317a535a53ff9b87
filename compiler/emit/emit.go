package emit

import (
	"context"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/lowlang/low/compiler/llir"
)

// Base opcodes. The opcode word is base + 100*mode1 + 1000*mode2 + 10000*mode3.
const (
	OpAdd  = 1
	OpMul  = 2
	OpIn   = 3
	OpOut  = 4
	OpJnz  = 5
	OpJz   = 6
	OpLess = 7
	OpEq   = 8
	OpArb  = 9
	OpHalt = 99
)

// Addressing modes, one base-100 digit per operand slot.
const (
	ModePos = 0
	ModeImm = 1
	ModeRel = 2
)

// Image appends the flat integer image of a fully resolved program to b.
// It only accepts primitives over resolved operands; a label emits nothing
// and a variable declaration emits its single data word.
func Image(ctx context.Context, b []int64, p llir.Program) (_ []int64, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "emit", "instrs", len(p.Code))
	defer tr.Finish("err", &err)

	for i, x := range p.Code {
		b, err = instr(b, x)
		if err != nil {
			return nil, errors.Wrap(err, "instr %d", i)
		}
	}

	tr.V("emit").Printw("image", "words", len(b))

	return b, nil
}

func instr(b []int64, x llir.Instr) ([]int64, error) {
	var base int64

	switch x := x.(type) {
	case llir.Lbl:
		return b, nil
	case llir.Var:
		return append(b, x.Init), nil
	case llir.Add:
		base = OpAdd
	case llir.Mul:
		base = OpMul
	case llir.In:
		base = OpIn
	case llir.Out:
		base = OpOut
	case llir.Jnz:
		base = OpJnz
	case llir.Jz:
		base = OpJz
	case llir.Less:
		base = OpLess
	case llir.Eq:
		base = OpEq
	case llir.Arb:
		base = OpArb
	case llir.Halt:
		base = OpHalt
	default:
		return nil, errors.New("unsupported instruction: %T", x)
	}

	ops := llir.Operands(x)

	word := base
	mul := int64(100)

	for slot, op := range ops {
		m, err := mode(op)
		if err != nil {
			return nil, errors.Wrap(err, "slot %d", slot)
		}

		word += m * mul
		mul *= 10
	}

	b = append(b, word)

	for _, op := range ops {
		b = append(b, value(op))
	}

	return b, nil
}

func mode(op llir.Operand) (int64, error) {
	switch op.(type) {
	case llir.Ptr:
		return ModePos, nil
	case llir.Imm:
		return ModeImm, nil
	case llir.Off:
		return ModeRel, nil
	default:
		return 0, errors.New("unresolved operand: %T", op)
	}
}

func value(op llir.Operand) int64 {
	switch op := op.(type) {
	case llir.Ptr:
		return int64(op)
	case llir.Imm:
		return int64(op)
	case llir.Off:
		return int64(op)
	default:
		panic(op)
	}
}
