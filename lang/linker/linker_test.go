package linker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Muph0/santas-lang/lang/ast"
	"github.com/Muph0/santas-lang/lang/diag"
	"github.com/Muph0/santas-lang/lang/ir"
)

func ident(name string) ast.Ident { return ast.Ident{Name: name} }

// echoShop is a two-tile workshop "e> Hm": the elf starts, walks into the
// Hammock tile, and halts. Good enough as a SetupElf target in tests that
// only exercise the director side of the linker.
func echoShop(name string) ast.Workshop {
	tiles := []ast.Tile{
		{Kind: ast.KindElfStart, Dir: ast.Right},
		{Kind: ast.KindInstr, Inst: ir.MkHammock()},
	}
	return ast.Workshop{
		Name: ident(name),
		Blocks: []ast.ShopBlock{
			{Width: 2, Height: 1, Tiles: tiles},
		},
	}
}

func TestLinkSetupElfAndConnectSelfLoop(t *testing.T) {
	tu := ast.TranslationUnit{
		Workshops: []ast.Workshop{echoShop("emit_stack")},
		Todos: []ast.ToDo{
			{
				Kind:  ast.ToDoSetupElf,
				Shop:  ident("emit_stack"),
				Name:  namePtr("Baba"),
				Stack: []ast.Expr{{Kind: ast.ExprNumber, Number: 1}},
			},
			{
				Kind: ast.ToDoConnect,
				Src: ast.Connection{
					Kind: ast.ConnPortKind,
					Port: ast.ConnPort{Elf: ident("Baba"), Port: '1'},
				},
				Dst: ast.Connection{
					Kind: ast.ConnPortKind,
					Port: ast.ConnPort{Elf: ident("Baba"), Port: '1'},
				},
			},
		},
	}

	unit, errs := Link(tu)
	require.Empty(t, errs)
	require.NotNil(t, unit)
	require.Len(t, unit.Rooms, 1)

	// line 0: Const(1); line 1: SetupElf; line 2: Connect
	require.Len(t, unit.Santa, 3)
	assert.Equal(t, ir.DConst, unit.Santa[0].Op)
	assert.Equal(t, ir.Int(1), unit.Santa[0].Value)
	assert.Equal(t, ir.DSetupElf, unit.Santa[1].Op)
	assert.Equal(t, "Baba", unit.Santa[1].Name)
	assert.Equal(t, []ir.SantaLine{0}, unit.Santa[1].InitStack)
	assert.Equal(t, ir.DConnect, unit.Santa[2].Op)
	assert.Equal(t, ir.SantaLine(1), unit.Santa[2].Src.Line)
	assert.Equal(t, ir.SantaLine(1), unit.Santa[2].Dst.Line)
}

func TestLinkMonitorBlockLen(t *testing.T) {
	tu := ast.TranslationUnit{
		Workshops: []ast.Workshop{echoShop("emit_stack")},
		Todos: []ast.ToDo{
			{Kind: ast.ToDoSetupElf, Shop: ident("emit_stack"), Name: namePtr("Baba")},
			{
				Kind:   ast.ToDoMonitor,
				Target: ast.ConnPort{Elf: ident("Baba"), Port: 'o'},
				Todos: []ast.ToDo{
					{Kind: ast.ToDoReceive, RecvVars: []ast.Ident{ident("v")}},
					{Kind: ast.ToDoDeliver, Value: ast.Expr{Kind: ast.ExprVar, Var: ident("v")}},
				},
			},
		},
	}

	unit, errs := Link(tu)
	require.Empty(t, errs)
	require.NotNil(t, unit)

	// line 0: SetupElf; line 1: Monitor{block_len=3}; line 2: Receive; line 3: Deliver
	require.Len(t, unit.Santa, 4)
	assert.Equal(t, ir.DMonitor, unit.Santa[1].Op)
	assert.Equal(t, 3, unit.Santa[1].BlockLen)
	assert.Equal(t, ir.DReceive, unit.Santa[2].Op)
	assert.Equal(t, ir.DDeliver, unit.Santa[3].Op)
	assert.Equal(t, ir.SantaLine(2), unit.Santa[3].DeliverLine)
}

// Compile-error completeness: a director referencing two unknown
// identifiers surfaces both diagnostics in one pass.
func TestLinkUnknownIdentifierCompleteness(t *testing.T) {
	tu := ast.TranslationUnit{
		Todos: []ast.ToDo{
			{
				Kind: ast.ToDoConnect,
				Src: ast.Connection{
					Kind: ast.ConnPortKind,
					Port: ast.ConnPort{Elf: ident("Ghost1"), Port: '1'},
				},
				Dst: ast.Connection{
					Kind: ast.ConnPortKind,
					Port: ast.ConnPort{Elf: ident("Ghost2"), Port: '1'},
				},
			},
		},
	}

	unit, errs := Link(tu)
	assert.Nil(t, unit)
	require.Len(t, errs, 2)
	assert.Equal(t, diag.UnknownIdentifier, errs[0].Code)
	assert.Equal(t, diag.UnknownIdentifier, errs[1].Code)
}

func TestLinkIdentifierConflict(t *testing.T) {
	tu := ast.TranslationUnit{
		Workshops: []ast.Workshop{echoShop("emit_stack")},
		Todos: []ast.ToDo{
			{Kind: ast.ToDoSetupElf, Shop: ident("emit_stack"), Name: namePtr("Baba")},
			{Kind: ast.ToDoSetupElf, Shop: ident("emit_stack"), Name: namePtr("Baba")},
		},
	}

	unit, errs := Link(tu)
	assert.Nil(t, unit)
	require.Len(t, errs, 1)
	assert.Equal(t, diag.IdentifierConflict, errs[0].Code)
}

func TestLinkMissingPlan(t *testing.T) {
	tu := ast.TranslationUnit{
		Workshops: []ast.Workshop{{Name: ident("empty_shop")}},
	}
	unit, errs := Link(tu)
	assert.Nil(t, unit)
	require.Len(t, errs, 1)
	assert.Equal(t, diag.MissingPlan, errs[0].Code)
}

func namePtr(s string) *ast.Ident {
	id := ident(s)
	return &id
}
