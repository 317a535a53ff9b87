package layout

import (
	"context"
	"fmt"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"
	"tlog.app/go/tlog/tlwire"

	"github.com/lowlang/low/compiler/llir"
	"github.com/lowlang/low/compiler/rewrite"
)

type (
	// Layout describes one instruction's footprint in the emitted image.
	//
	// Size counts emitted words. Anchors name the identifier declared in
	// each operand slot, "" meaning none. Adjust shifts every anchor
	// address declared by the instruction; it is -1 for the pseudo
	// instructions, which contribute no opcode word, and 0 otherwise.
	Layout struct {
		Size    int
		Anchors [3]llir.Ident
		Adjust  int
	}
)

// Of computes one Layout per instruction, in program order.
//
// Derived instructions report the layout of their expanded primitive form,
// so the resolver works off final sizes whether or not rewrite ran first.
func Of(ctx context.Context, p llir.Program) (ls []Layout, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "layout", "instrs", len(p.Code))
	defer tr.Finish("err", &err)

	ls = make([]Layout, len(p.Code))

	for i, x := range p.Code {
		l, err := of(rewrite.One(x))
		if err != nil {
			return nil, errors.Wrap(err, "instr %d", i)
		}

		if tr.If("layout") {
			tr.Printw("layout", "i", i, "typ", tlog.NextAsType, x, "val", x, "layout", l)
		}

		ls[i] = l
	}

	return ls, nil
}

func of(x llir.Instr) (l Layout, err error) {
	switch x := x.(type) {
	case llir.Lbl:
		return Layout{Size: 0, Anchors: [3]llir.Ident{x.Name}, Adjust: -1}, nil
	case llir.Var:
		return Layout{Size: 1, Anchors: [3]llir.Ident{x.Name}, Adjust: -1}, nil
	case llir.Halt:
		return Layout{Size: 1}, nil
	case llir.Add, llir.Mul, llir.Less, llir.Eq, llir.Jnz, llir.Jz, llir.In, llir.Out, llir.Arb:
	default:
		return l, errors.New("unsupported instruction: %T", x)
	}

	ops := llir.Operands(x)

	l.Size = 1 + len(ops)

	for slot, op := range ops {
		if name, ok := llir.Anchor(op); ok {
			l.Anchors[slot] = name
		}
	}

	return l, nil
}

func (l Layout) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	n := 2
	for _, a := range l.Anchors {
		if a != "" {
			n++
			break
		}
	}

	b = e.AppendMap(b, n)

	b = e.AppendKeyInt(b, "size", l.Size)
	b = e.AppendKeyInt(b, "adjust", l.Adjust)

	if n == 3 {
		b = e.AppendKeyString(b, "anchors", fmt.Sprintf("%v", l.Anchors))
	}

	return b
}
