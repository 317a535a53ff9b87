package resolve

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowlang/low/compiler/layout"
	"github.com/lowlang/low/compiler/llir"
)

func table(t *testing.T, p llir.Program) SymbolTable {
	t.Helper()

	ctx := context.Background()

	ls, err := layout.Of(ctx, p)
	require.NoError(t, err)

	tbl, err := Table(ctx, p, ls)
	require.NoError(t, err)

	return tbl
}

func TestTableAnchorAddresses(t *testing.T) {
	p := llir.Program{Code: []llir.Instr{
		llir.In{Dst: llir.Pos("a")},                                                         // words 0-1
		llir.Mul{A: llir.ImmAnchor{Name: "a"}, B: llir.Imm(10), Dst: llir.Pos("a")},         // words 2-5
		llir.Add{A: llir.Imm(0), B: llir.PosAnchor{Name: "b", Init: 7}, Dst: llir.Pos("a")}, // words 6-9
	}}

	tbl := table(t, p)

	assert.Equal(t, SymbolTable{"a": 3, "b": 8}, tbl)
}

func TestTableLabelPointsAtNextOpcode(t *testing.T) {
	p := llir.Program{Code: []llir.Instr{
		llir.Lbl{Name: "start"},
		llir.In{Dst: llir.Pos("v")}, // words 0-1
		llir.Lbl{Name: "loop"},
		llir.Halt{},                  // word 2
		llir.Var{Name: "v", Init: 5}, // word 3
	}}

	tbl := table(t, p)

	assert.Equal(t, SymbolTable{"start": 0, "loop": 2, "v": 3}, tbl)
}

func TestTableDuplicateAnchor(t *testing.T) {
	p := llir.Program{Code: []llir.Instr{
		llir.Var{Name: "x"},
		llir.Var{Name: "x"},
	}}

	ctx := context.Background()

	ls, err := layout.Of(ctx, p)
	require.NoError(t, err)

	_, err = Table(ctx, p, ls)

	var e DuplicateAnchorError
	require.ErrorAs(t, err, &e)
	assert.Equal(t, llir.Ident("x"), e.Name)
}

func TestSubstitute(t *testing.T) {
	p := llir.Program{Code: []llir.Instr{
		llir.In{Dst: llir.Pos("a")},
		llir.Out{Src: llir.Rel("a")},
		llir.Jnz{Cond: llir.Imm(1), Target: llir.LabelRef("l")},
		llir.Add{A: llir.ImmAnchor{Name: "k", Init: 5}, B: llir.PosAnchor{Name: "m", Init: 9}, Dst: llir.Pos("a")},
		llir.Lbl{Name: "l"},
		llir.Halt{},
	}}

	tbl := SymbolTable{"a": 100, "l": 12, "k": 6, "m": 7}

	q, err := Substitute(context.Background(), p, tbl)
	require.NoError(t, err)

	want := llir.Program{Code: []llir.Instr{
		llir.In{Dst: llir.Ptr(100)},
		llir.Out{Src: llir.Off(100)},
		llir.Jnz{Cond: llir.Imm(1), Target: llir.Imm(12)},
		llir.Add{A: llir.Imm(5), B: llir.Ptr(9), Dst: llir.Ptr(100)},
		llir.Lbl{Name: "l"},
		llir.Halt{},
	}}

	if diff := cmp.Diff(want, q); diff != "" {
		t.Errorf("substitute (-want +got):\n%s", diff)
	}
}

func TestSubstituteUndefinedSymbol(t *testing.T) {
	p := llir.Program{Code: []llir.Instr{
		llir.Out{Src: llir.Pos("nope")},
	}}

	_, err := Substitute(context.Background(), p, SymbolTable{})

	var e UndefinedSymbolError
	require.ErrorAs(t, err, &e)
	assert.Equal(t, llir.Ident("nope"), e.Name)
}

func TestForwardEqualsBackward(t *testing.T) {
	fwd := llir.Program{Code: []llir.Instr{
		llir.Out{Src: llir.Pos("x")}, // words 0-1
		llir.Var{Name: "x", Init: 5}, // word 2
	}}

	bwd := llir.Program{Code: []llir.Instr{
		llir.Var{Name: "x", Init: 5}, // word 0
		llir.Out{Src: llir.Pos("x")}, // words 1-2
	}}

	assert.Equal(t, SymbolTable{"x": 2}, table(t, fwd))
	assert.Equal(t, SymbolTable{"x": 0}, table(t, bwd))
}
