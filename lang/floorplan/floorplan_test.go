package floorplan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Muph0/santas-lang/lang/ast"
	"github.com/Muph0/santas-lang/lang/diag"
	"github.com/Muph0/santas-lang/lang/ir"
)

// plan builds an ast.ShopBlock for a tile grid given as a row-major kind
// matrix; it's a thin test helper, not a stand-in for lang/parser, which
// has its own tests against real source text.
func plan(w, h int, tiles []ast.Tile) ast.ShopBlock {
	if len(tiles) != w*h {
		panic("floorplan test: tile count mismatch")
	}
	return ast.ShopBlock{Width: w, Height: h, Tiles: tiles}
}

func e(k ast.TileKind) ast.Tile      { return ast.Tile{Kind: k} }
func mv(d ast.Direction) ast.Tile    { return ast.Tile{Kind: ast.KindMove, Dir: d} }
func start(d ast.Direction) ast.Tile { return ast.Tile{Kind: ast.KindElfStart, Dir: d} }
func instr(i ir.Instr) ast.Tile      { return ast.Tile{Kind: ast.KindInstr, Inst: i} }

// A straight walk: the elf passes over P1 and loops around into the
// Hammock tile.
func TestCompileSimple(t *testing.T) {
	tiles := []ast.Tile{
		start(ast.Right), instr(ir.MkPush(1)), e(ast.KindEmpty), mv(ast.Down),
		instr(ir.MkHammock()), e(ast.KindEmpty), e(ast.KindEmpty), mv(ast.Left),
	}
	room, errs := Compile(plan(4, 2, tiles))
	require.Empty(t, errs)
	require.NotNil(t, room)
	assert.Equal(t, []ir.Instr{ir.MkPush(1), ir.MkHammock()}, room.Program)
}

// Branching on IsZero, with both branches converging on the Hammock:
// .. m> P2 mv ..
// e> ?= .. m> Hm
// .. m> P1 m^ ..
func TestCompileIfZero(t *testing.T) {
	tiles := []ast.Tile{
		e(ast.KindEmpty), mv(ast.Right), instr(ir.MkPush(2)), mv(ast.Down), e(ast.KindEmpty),
		start(ast.Right), e(ast.KindIsZero), e(ast.KindEmpty), mv(ast.Right), instr(ir.MkHammock()),
		e(ast.KindEmpty), mv(ast.Right), instr(ir.MkPush(1)), mv(ast.Up), e(ast.KindEmpty),
	}
	room, errs := Compile(plan(5, 3, tiles))
	require.Empty(t, errs)
	require.NotNil(t, room)
	want := []ir.Instr{
		ir.MkIfNzPtr(3), ir.MkPush(1), ir.MkHammock(), ir.MkPush(2), ir.MkJmpPtr(2),
	}
	assert.Equal(t, want, room.Program)
}

// Mirror of the IsZero layout with IsPos; the fall-through branch swaps.
func TestCompileIfPos(t *testing.T) {
	tiles := []ast.Tile{
		e(ast.KindEmpty), mv(ast.Right), instr(ir.MkPush(2)), mv(ast.Down), e(ast.KindEmpty),
		start(ast.Right), e(ast.KindIsPos), e(ast.KindEmpty), mv(ast.Right), instr(ir.MkHammock()),
		e(ast.KindEmpty), mv(ast.Right), instr(ir.MkPush(1)), mv(ast.Up), e(ast.KindEmpty),
	}
	room, errs := Compile(plan(5, 3, tiles))
	require.Empty(t, errs)
	require.NotNil(t, room)
	want := []ir.Instr{
		ir.MkIfPosPtr(3), ir.MkPush(2), ir.MkHammock(), ir.MkPush(1), ir.MkJmpPtr(2),
	}
	assert.Equal(t, want, room.Program)
}

// IsNeg lowers to ArithC(Add,1) + IfPosPtr.
func TestCompileIfNeg(t *testing.T) {
	tiles := []ast.Tile{
		e(ast.KindEmpty), mv(ast.Right), instr(ir.MkPush(2)), mv(ast.Down), e(ast.KindEmpty),
		start(ast.Right), e(ast.KindIsNeg), e(ast.KindEmpty), mv(ast.Right), instr(ir.MkHammock()),
		e(ast.KindEmpty), mv(ast.Right), instr(ir.MkPush(1)), mv(ast.Up), e(ast.KindEmpty),
	}
	room, errs := Compile(plan(5, 3, tiles))
	require.Empty(t, errs)
	require.NotNil(t, room)
	want := []ir.Instr{
		ir.MkArithC(ir.Add, 1), ir.MkIfPosPtr(4),
		ir.MkPush(1), ir.MkHammock(), ir.MkPush(2), ir.MkJmpPtr(3),
	}
	assert.Equal(t, want, room.Program)
}

// Jump integrity: every branch target a compiled room carries is a valid
// index into that same room's program.
func TestCompileJumpTargetsInBounds(t *testing.T) {
	tiles := []ast.Tile{
		e(ast.KindEmpty), mv(ast.Right), instr(ir.MkPush(2)), mv(ast.Down), e(ast.KindEmpty),
		start(ast.Right), e(ast.KindIsZero), e(ast.KindEmpty), mv(ast.Right), instr(ir.MkHammock()),
		e(ast.KindEmpty), mv(ast.Right), instr(ir.MkPush(1)), mv(ast.Up), e(ast.KindEmpty),
	}
	room, errs := Compile(plan(5, 3, tiles))
	require.Empty(t, errs)
	for ip, in := range room.Program {
		if target, ok := in.JumpTarget(); ok {
			assert.GreaterOrEqual(t, target, 0, "ip %d", ip)
			assert.Less(t, target, len(room.Program), "ip %d", ip)
		}
	}
}

func TestCompileMissingElfStart(t *testing.T) {
	tiles := []ast.Tile{e(ast.KindEmpty), e(ast.KindEmpty)}
	room, errs := Compile(plan(2, 1, tiles))
	require.Nil(t, room)
	require.Len(t, errs, 1)
	assert.Equal(t, diag.MissingElfStart, errs[0].Code)
}

func TestCompileMultipleElfStarts(t *testing.T) {
	tiles := []ast.Tile{start(ast.Right), start(ast.Left)}
	room, errs := Compile(plan(2, 1, tiles))
	require.Nil(t, room)
	require.Len(t, errs, 1)
	assert.Equal(t, diag.MultipleElfStarts, errs[0].Code)
}

func TestCompileWallHit(t *testing.T) {
	tiles := []ast.Tile{start(ast.Left)}
	room, errs := Compile(plan(1, 1, tiles))
	require.Nil(t, room)
	require.Len(t, errs, 1)
	assert.Equal(t, diag.ElfWallHit, errs[0].Code)
}

func TestCompileUnknownTile(t *testing.T) {
	tiles := []ast.Tile{
		start(ast.Right), {Kind: ast.KindUnknown, Text: "??"},
	}
	room, errs := Compile(plan(2, 1, tiles))
	require.Nil(t, room)
	require.Len(t, errs, 1)
	assert.Equal(t, diag.UnknownTile, errs[0].Code)
}

// State memoization: a trajectory that bounces between two Move tiles
// revisits a state it already compiled and emits a single JmpPtr instead of
// re-expanding (or walking off the grid).
func TestCompileLoopMemoizes(t *testing.T) {
	// e> m> m<   -- the middle tile bounces the elf back onto itself, and
	// the elf start tile is never re-entered (it only acts as a pass-through
	// on the initial step), so the loop closes one tile early.
	tiles := []ast.Tile{
		start(ast.Right), mv(ast.Right), mv(ast.Left),
	}
	room, errs := Compile(plan(3, 1, tiles))
	require.Empty(t, errs)
	require.NotNil(t, room)
	assert.Equal(t, []ir.Instr{ir.MkJmpPtr(0)}, room.Program)
}
