package rewrite

import (
	"context"

	"tlog.app/go/tlog"

	"github.com/lowlang/low/compiler/llir"
)

// Expand rewrites derived instructions into primitives so that layout,
// resolve and emit only ever see primitive and pseudo instructions.
// Instruction order is preserved; every derived form expands to exactly one
// primitive, so indexes are stable too.
func Expand(ctx context.Context, p llir.Program) (q llir.Program, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "rewrite: expand derived", "instrs", len(p.Code))
	defer tr.Finish("err", &err)

	q.Code = make([]llir.Instr, len(p.Code))

	for i, x := range p.Code {
		y := One(x)

		if tr.If("rewrite") && y != x {
			tr.Printw("expand", "i", i, "typ", tlog.NextAsType, x, "val", x, "to_typ", tlog.NextAsType, y, "to", y)
		}

		q.Code[i] = y
	}

	return q, nil
}

// One expands a single derived instruction, or returns x unchanged.
//
// The in-place forms keep the anchor-declaring operand in the read slot and
// reference it from the write slot. The read may then legitimately be
// immediate mode: the cell lives inline in the instruction and the store
// goes through the position-mode reference.
func One(x llir.Instr) llir.Instr {
	switch x := x.(type) {
	case llir.Copy:
		return llir.Add{A: x.Src, B: llir.Imm(0), Dst: x.Dst}
	case llir.Jump:
		return llir.Jnz{Cond: llir.Imm(1), Target: x.Target}
	case llir.Iadd:
		return llir.Add{A: x.Dst, B: x.Val, Dst: llir.Ref(x.Dst)}
	case llir.Imul:
		return llir.Mul{A: x.Dst, B: x.Val, Dst: llir.Ref(x.Dst)}
	default:
		return x
	}
}
