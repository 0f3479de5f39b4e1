package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Muph0/santas-lang/lang/ast"
	"github.com/Muph0/santas-lang/lang/diag"
	"github.com/Muph0/santas-lang/lang/ir"
)

func kinds(tiles []ast.Tile) []ast.TileKind {
	out := make([]ast.TileKind, len(tiles))
	for i, t := range tiles {
		out[i] = t.Kind
	}
	return out
}

func TestParseEmptyTiles(t *testing.T) {
	src := `
workshop test:
    floorplan:
    .. .. ..
    .. ..
    ;
;
`
	tu, errs := Parse("test", src)
	require.Empty(t, errs)
	require.Len(t, tu.Workshops, 1)

	wk := tu.Workshops[0]
	assert.Equal(t, "test", wk.Name.Name)
	require.Len(t, wk.Blocks, 1)

	b := wk.Blocks[0]
	assert.Equal(t, 3, b.Width)
	assert.Equal(t, 2, b.Height)
	for _, tile := range b.Tiles {
		assert.Equal(t, ast.KindEmpty, tile.Kind)
	}
}

// A row indented 3 extra columns is shifted one tile to the right, so the
// P0 below lines up under the mv.
func TestParseShiftedIndent(t *testing.T) {
	src := `
workshop test:
    floorplan:
    e> .. mv
       .. P0
    ;
;
`
	tu, errs := Parse("test", src)
	require.Empty(t, errs)
	require.Len(t, tu.Workshops, 1)

	b := tu.Workshops[0].Blocks[0]
	assert.Equal(t, 3, b.Width)
	assert.Equal(t, 2, b.Height)
	assert.Equal(t, []ast.TileKind{
		ast.KindElfStart, ast.KindEmpty, ast.KindMove,
		ast.KindEmpty, ast.KindEmpty, ast.KindInstr,
	}, kinds(b.Tiles))
	assert.Equal(t, ir.MkPush(0), b.Tiles[5].Inst)
	assert.Equal(t, ast.Right, b.Tiles[0].Dir)
	assert.Equal(t, ast.Down, b.Tiles[2].Dir)
}

func TestParseTileCodes(t *testing.T) {
	cases := []struct {
		tok  string
		kind ast.TileKind
		inst ir.Instr
	}{
		{"..", ast.KindEmpty, ir.Instr{}},
		{"m<", ast.KindMove, ir.Instr{}},
		{"e^", ast.KindElfStart, ir.Instr{}},
		{"?=", ast.KindIsZero, ir.Instr{}},
		{"?>", ast.KindIsPos, ir.Instr{}},
		{"?<", ast.KindIsNeg, ir.Instr{}},
		{"?_", ast.KindIsEmpty, ir.Instr{}},
		{"P5", ast.KindInstr, ir.MkPush(5)},
		{"Pa", ast.KindInstr, ir.MkPush('a')},
		{"42", ast.KindInstr, ir.MkPush(42)},
		{"D1", ast.KindInstr, ir.MkDup(1)},
		{"E0", ast.KindInstr, ir.MkErase(0)},
		{"S3", ast.KindInstr, ir.MkSwap(3)},
		{"T2", ast.KindInstr, ir.MkTuck(2)},
		{"R7", ast.KindInstr, ir.MkRead(7)},
		{"W0", ast.KindInstr, ir.MkWrite(0)},
		{"L_", ast.KindInstr, ir.MkStackLen()},
		{"I1", ast.KindInstr, ir.MkIn(ir.ToPort('1'))},
		{"Oq", ast.KindInstr, ir.MkOut(ir.ToPort('q'))},
		{"+_", ast.KindInstr, ir.MkArith(ir.Add)},
		{"-3", ast.KindInstr, ir.MkArithC(ir.Sub, 3)},
		{"%2", ast.KindInstr, ir.MkArithC(ir.Mod, 2)},
		{"Hm", ast.KindInstr, ir.MkHammock()},
		{"zz", ast.KindUnknown, ir.Instr{}},
	}
	for _, tc := range cases {
		t.Run(tc.tok, func(t *testing.T) {
			tile := parseTile(tc.tok, ast.Loc{Line: 1, Col: 1, Len: 2})
			assert.Equal(t, tc.kind, tile.Kind)
			if tc.kind == ast.KindInstr {
				assert.Equal(t, tc.inst, tile.Inst)
			}
		})
	}
}

func TestParseSantaBlock(t *testing.T) {
	src := `
Santa will:
    setup toys for elf Josh (1 2 3)
    setup prod for elf Bob ()

    setup Josh.a -> Bob.1

    monitor Josh.b:
        receive (a b)
        receive x
        send (a 1234)
        setup sweets for elf Alice (4 5)
    ;
;
`
	tu, errs := Parse("test", src)
	require.Empty(t, errs)
	require.Len(t, tu.Todos, 4)

	setup := tu.Todos[0]
	assert.Equal(t, ast.ToDoSetupElf, setup.Kind)
	assert.Equal(t, "toys", setup.Shop.Name)
	require.NotNil(t, setup.Name)
	assert.Equal(t, "Josh", setup.Name.Name)
	require.Len(t, setup.Stack, 3)
	assert.Equal(t, int64(1), setup.Stack[0].Number)
	assert.Equal(t, int64(3), setup.Stack[2].Number)

	bob := tu.Todos[1]
	assert.Equal(t, ast.ToDoSetupElf, bob.Kind)
	assert.Empty(t, bob.Stack)

	conn := tu.Todos[2]
	assert.Equal(t, ast.ToDoConnect, conn.Kind)
	assert.Equal(t, ast.ConnPortKind, conn.Src.Kind)
	assert.Equal(t, "Josh", conn.Src.Port.Elf.Name)
	assert.Equal(t, 'a', conn.Src.Port.Port)
	assert.Equal(t, "Bob", conn.Dst.Port.Elf.Name)
	assert.Equal(t, '1', conn.Dst.Port.Port)

	mon := tu.Todos[3]
	assert.Equal(t, ast.ToDoMonitor, mon.Kind)
	assert.Equal(t, "Josh", mon.Target.Elf.Name)
	assert.Equal(t, 'b', mon.Target.Port)
	require.Len(t, mon.Todos, 4)

	recv := mon.Todos[0]
	assert.Equal(t, ast.ToDoReceive, recv.Kind)
	assert.Nil(t, recv.RecvSrc)
	require.Len(t, recv.RecvVars, 2)
	assert.Equal(t, "a", recv.RecvVars[0].Name)
	assert.Equal(t, "b", recv.RecvVars[1].Name)

	recvOne := mon.Todos[1]
	require.Len(t, recvOne.RecvVars, 1)
	assert.Equal(t, "x", recvOne.RecvVars[0].Name)

	send := mon.Todos[2]
	assert.Equal(t, ast.ToDoSend, send.Kind)
	require.Len(t, send.Values, 2)
	assert.Equal(t, ast.ExprVar, send.Values[0].Kind)
	assert.Equal(t, "a", send.Values[0].Var.Name)
	assert.Equal(t, ast.ExprNumber, send.Values[1].Kind)
	assert.Equal(t, int64(1234), send.Values[1].Number)

	assert.Equal(t, ast.ToDoSetupElf, mon.Todos[3].Kind)
}

func TestParseFileConnections(t *testing.T) {
	src := `
Santa will:
    setup file "in.txt" -> E.1
    setup E.2 -> file "out.txt"
    deliver 10
;
`
	tu, errs := Parse("test", src)
	require.Empty(t, errs)
	require.Len(t, tu.Todos, 3)

	openRead := tu.Todos[0]
	assert.Equal(t, ast.ToDoConnect, openRead.Kind)
	assert.Equal(t, ast.ConnFileKind, openRead.Src.Kind)
	assert.Equal(t, "in.txt", openRead.Src.File.Name)
	assert.Equal(t, ast.ConnPortKind, openRead.Dst.Kind)

	openWrite := tu.Todos[1]
	assert.Equal(t, ast.ConnFileKind, openWrite.Dst.Kind)
	assert.Equal(t, "out.txt", openWrite.Dst.File.Name)

	deliver := tu.Todos[2]
	assert.Equal(t, ast.ToDoDeliver, deliver.Kind)
	assert.Equal(t, ast.ExprNumber, deliver.Value.Kind)
	assert.Equal(t, int64(10), deliver.Value.Number)
}

func TestParseDuplicateWorkshop(t *testing.T) {
	src := `
workshop w:
    floorplan:
    e> Hm
    ;
;
workshop w:
    floorplan:
    e> Hm
    ;
;
`
	tu, errs := Parse("test", src)
	require.Len(t, errs, 1)
	assert.Equal(t, diag.DuplicateShop, errs[0].Code)
	assert.Len(t, tu.Workshops, 2)
}

// Diagnostics accumulate: one buffer with two malformed director items
// surfaces both.
func TestParseErrorsAccumulate(t *testing.T) {
	src := `
Santa will:
    frobnicate Josh
    setup Josh.a ->
;
`
	_, errs := Parse("test", src)
	require.Len(t, errs, 2)
	assert.Equal(t, diag.Parse, errs[0].Code)
	assert.Equal(t, diag.Parse, errs[1].Code)
	assert.Equal(t, 3, errs[0].Loc.Line)
	assert.Equal(t, 4, errs[1].Loc.Line)
}

func TestParseUnterminatedBlock(t *testing.T) {
	src := `
Santa will:
    setup toys for elf Josh ()
`
	_, errs := Parse("test", src)
	require.NotEmpty(t, errs)
	assert.Equal(t, diag.Parse, errs[0].Code)
}
