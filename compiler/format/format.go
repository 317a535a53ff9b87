package format

import (
	"context"
	"fmt"

	"tlog.app/go/errors"

	"github.com/lowlang/low/compiler/llir"
)

// Format appends the surface rendering of p to b, one instruction per line.
// It accepts resolved and unresolved programs alike; parsing the rendering
// back is somebody else's business.
func Format(ctx context.Context, b []byte, p llir.Program) (_ []byte, err error) {
	for i, x := range p.Code {
		b, err = instr(ctx, b, x)
		if err != nil {
			return nil, errors.Wrap(err, "instr %d", i)
		}

		b = append(b, '\n')
	}

	return b, nil
}

func instr(ctx context.Context, b []byte, x llir.Instr) ([]byte, error) {
	switch x := x.(type) {
	case llir.Lbl:
		return fmt.Appendf(b, "LBL %s", x.Name), nil
	case llir.Var:
		if x.Init == 0 {
			return fmt.Appendf(b, "VAR %s", x.Name), nil
		}

		return fmt.Appendf(b, "VAR [%d]%s", x.Init, x.Name), nil
	}

	m, ok := mnemonic(x)
	if !ok {
		return nil, errors.New("unsupported type: %T", x)
	}

	b = append(b, m...)

	for _, op := range llir.Operands(x) {
		b = append(b, ' ')

		q, err := operand(op)
		if err != nil {
			return nil, err
		}

		b = append(b, q...)
	}

	return b, nil
}

func mnemonic(x llir.Instr) (string, bool) {
	switch x.(type) {
	case llir.Add:
		return "ADD", true
	case llir.Mul:
		return "MUL", true
	case llir.In:
		return "IN", true
	case llir.Out:
		return "OUT", true
	case llir.Jnz:
		return "JIF", true
	case llir.Jz:
		return "JIZ", true
	case llir.Less:
		return "LESS", true
	case llir.Eq:
		return "EQ", true
	case llir.Arb:
		return "ARB", true
	case llir.Halt:
		return "HALT", true
	case llir.Copy:
		return "COPY", true
	case llir.Jump:
		return "JUMP", true
	case llir.Iadd:
		return "IADD", true
	case llir.Imul:
		return "IMUL", true
	default:
		return "", false
	}
}

func operand(op llir.Operand) (string, error) {
	switch op := op.(type) {
	case llir.Imm:
		return fmt.Sprintf("%d", int64(op)), nil
	case llir.Pos:
		return fmt.Sprintf("&%s", llir.Ident(op)), nil
	case llir.Rel:
		return fmt.Sprintf("@%s", llir.Ident(op)), nil
	case llir.LabelRef:
		return fmt.Sprintf("$%s", llir.Ident(op)), nil
	case llir.ImmAnchor:
		if op.Init == 0 {
			return fmt.Sprintf("#%s", op.Name), nil
		}

		return fmt.Sprintf("[%d]#%s", op.Init, op.Name), nil
	case llir.PosAnchor:
		if op.Init == 0 {
			return fmt.Sprintf("&#%s", op.Name), nil
		}

		return fmt.Sprintf("[%d]&#%s", op.Init, op.Name), nil
	case llir.Ptr:
		return fmt.Sprintf("&%d", int64(op)), nil
	case llir.Off:
		return fmt.Sprintf("@%d", int64(op)), nil
	default:
		return "", errors.New("unsupported operand: %T", op)
	}
}
