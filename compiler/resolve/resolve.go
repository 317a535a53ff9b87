package resolve

import (
	"context"
	"fmt"

	"tlog.app/go/errors"
	"tlog.app/go/loc"
	"tlog.app/go/tlog"

	"github.com/lowlang/low/compiler/layout"
	"github.com/lowlang/low/compiler/llir"
)

type (
	// SymbolTable maps each declared anchor to its absolute address in the
	// emitted image. It is complete after Table returns and never mutated
	// afterwards.
	SymbolTable map[llir.Ident]int64

	DuplicateAnchorError struct {
		Name llir.Ident
	}

	UndefinedSymbolError struct {
		Name llir.Ident
	}
)

func (e DuplicateAnchorError) Error() string {
	return fmt.Sprintf("duplicate anchor: %s", e.Name)
}

func (e UndefinedSymbolError) Error() string {
	return fmt.Sprintf("undefined symbol: %s", e.Name)
}

// Table is the addressing pass. It walks instructions in program order,
// registering every declared anchor at
//
//	current + 1 + slot + adjust
//
// where current is the running word index of the instruction, 1 accounts for
// the opcode word and adjust takes it back for the pseudo instructions that
// have none. A label therefore lands on the next real instruction's opcode
// word, and a variable on its own data word.
//
// References are not touched here, which is what makes forward references
// work: Substitute only runs against the finished table.
func Table(ctx context.Context, p llir.Program, ls []layout.Layout) (tbl SymbolTable, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "resolve: addressing", "instrs", len(p.Code))
	defer tr.Finish("err", &err)

	if len(ls) != len(p.Code) {
		return nil, errors.New("layouts do not match program: %d != %d", len(ls), len(p.Code))
	}

	tbl = make(SymbolTable)

	cur := int64(0)

	for i, l := range ls {
		for slot, name := range l.Anchors {
			if name == "" {
				continue
			}

			if _, ok := tbl[name]; ok {
				return nil, errors.Wrap(DuplicateAnchorError{Name: name}, "instr %d", i)
			}

			addr := cur + 1 + int64(slot) + int64(l.Adjust)

			tbl[name] = addr

			tr.V("resolve").Printw("anchor", "name", name, "addr", addr, "i", i, "slot", slot, "from", loc.Caller(1))
		}

		cur += int64(l.Size)
	}

	return tbl, nil
}

// Substitute is the substitution pass. Every reference operand is replaced
// by its resolved form and every anchor declaration by the initial value
// stored at its point of definition.
func Substitute(ctx context.Context, p llir.Program, tbl SymbolTable) (q llir.Program, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "resolve: substitution", "instrs", len(p.Code), "symbols", len(tbl))
	defer tr.Finish("err", &err)

	q.Code = make([]llir.Instr, len(p.Code))

	for i, x := range p.Code {
		ops := llir.Operands(x)
		if ops == nil {
			q.Code[i] = x
			continue
		}

		for slot, op := range ops {
			ops[slot], err = operand(op, tbl)
			if err != nil {
				return q, errors.Wrap(err, "instr %d slot %d", i, slot)
			}
		}

		q.Code[i] = llir.WithOperands(x, ops)
	}

	return q, nil
}

func operand(op llir.Operand, tbl SymbolTable) (llir.Operand, error) {
	switch op := op.(type) {
	case llir.Imm, llir.Ptr, llir.Off:
		return op, nil
	case llir.Pos:
		addr, ok := tbl[llir.Ident(op)]
		if !ok {
			return nil, UndefinedSymbolError{Name: llir.Ident(op)}
		}

		return llir.Ptr(addr), nil
	case llir.Rel:
		addr, ok := tbl[llir.Ident(op)]
		if !ok {
			return nil, UndefinedSymbolError{Name: llir.Ident(op)}
		}

		return llir.Off(addr), nil
	case llir.LabelRef:
		addr, ok := tbl[llir.Ident(op)]
		if !ok {
			return nil, UndefinedSymbolError{Name: llir.Ident(op)}
		}

		return llir.Imm(addr), nil
	case llir.ImmAnchor:
		return llir.Imm(op.Init), nil
	case llir.PosAnchor:
		return llir.Ptr(op.Init), nil
	default:
		return nil, errors.New("unsupported operand: %T", op)
	}
}
