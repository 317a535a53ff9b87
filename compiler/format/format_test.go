package format

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/lowlang/low/compiler/llir"
)

func TestFormat(t *testing.T) {
	p := llir.Program{Code: []llir.Instr{
		llir.In{Dst: llir.Pos("a")},
		llir.Imul{Dst: llir.ImmAnchor{Name: "a"}, Val: llir.Imm(10)},
		llir.Out{Src: llir.Rel("b")},
		llir.Add{A: llir.Imm(1), B: llir.PosAnchor{Name: "c", Init: 5}, Dst: llir.Pos("c")},
		llir.Jump{Target: llir.LabelRef("end")},
		llir.Var{Name: "b", Init: 3},
		llir.Var{Name: "z"},
		llir.Lbl{Name: "end"},
		llir.Halt{},
	}}

	b, err := Format(context.Background(), nil, p)
	require.NoError(t, err)

	want := `IN &a
IMUL #a 10
OUT @b
ADD 1 [5]&#c &c
JUMP $end
VAR [3]b
VAR z
LBL end
HALT
`

	if diff := cmp.Diff(want, string(b)); diff != "" {
		t.Errorf("render (-want +got):\n%s", diff)
	}
}

func TestFormatResolved(t *testing.T) {
	p := llir.Program{Code: []llir.Instr{
		llir.Jnz{Cond: llir.Imm(1), Target: llir.Imm(4)},
		llir.Out{Src: llir.Ptr(7)},
		llir.Arb{Delta: llir.Off(-2)},
	}}

	b, err := Format(context.Background(), nil, p)
	require.NoError(t, err)

	want := `JIF 1 4
OUT &7
ARB @-2
`

	if diff := cmp.Diff(want, string(b)); diff != "" {
		t.Errorf("render (-want +got):\n%s", diff)
	}
}

func TestFormatRejectsUnknown(t *testing.T) {
	_, err := Format(context.Background(), nil, llir.Program{Code: []llir.Instr{42}})
	require.Error(t, err)

	_, err = Format(context.Background(), nil, llir.Program{Code: []llir.Instr{llir.Out{Src: 42}}})
	require.Error(t, err)
}
