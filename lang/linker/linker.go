// Package linker flattens a parsed translation unit into a compiled Unit:
// it runs the floorplan compiler over every workshop and flattens the
// nested "Santa will:" director tree into Unit.Santa, resolving source
// identifiers to director line indices along the way.
//
// IdentifierConflict and UnknownIdentifier are recoverable: the linker
// keeps emitting with a placeholder operand of 0 so a single pass surfaces
// every diagnostic in the unit, not just the first.
package linker

import (
	"github.com/dolthub/swiss"

	"github.com/Muph0/santas-lang/lang/ast"
	"github.com/Muph0/santas-lang/lang/diag"
	"github.com/Muph0/santas-lang/lang/floorplan"
	"github.com/Muph0/santas-lang/lang/ir"
)

// identTable maps source identifiers to director line indices, shared by
// SetupElf names and Receive-bound variable names.
type identTable struct {
	m *swiss.Map[string, ir.SantaLine]
}

func newIdentTable() *identTable {
	return &identTable{m: swiss.NewMap[string, ir.SantaLine](16)}
}

func (t *identTable) get(name string) (ir.SantaLine, bool) {
	return t.m.Get(name)
}

func (t *identTable) put(name string, line ir.SantaLine) {
	t.m.Put(name, line)
}

// linker carries the mutable state threaded through the director-tree walk:
// the emitted director program and the diagnostics accumulated along the
// way.
type linker struct {
	santa  []ir.DirectorInstr
	idents *identTable
	rooms  map[string]ir.RoomId
	diags  []*diag.Error
}

// Link compiles a translation unit into a Unit, or returns the diagnostics
// accumulated while trying.
func Link(tu ast.TranslationUnit) (*ir.Unit, []*diag.Error) {
	l := &linker{
		idents: newIdentTable(),
		rooms:  make(map[string]ir.RoomId),
		diags:  nil,
	}

	rooms := l.compileWorkshops(tu.Workshops)
	l.emitTodos(tu.Todos, -1)

	if len(l.diags) > 0 {
		return nil, l.diags
	}
	return &ir.Unit{Rooms: rooms, Santa: l.santa}, nil
}

func (l *linker) compileWorkshops(workshops []ast.Workshop) []ir.Room {
	var rooms []ir.Room
	for _, wk := range workshops {
		var plans []ast.ShopBlock
		for _, b := range wk.Blocks {
			if !b.IsProgram {
				plans = append(plans, b)
			}
		}
		if len(plans) == 0 {
			l.diags = append(l.diags, diag.AtMissingPlan(wk.Name.Loc))
			continue
		}
		if len(plans) > 1 {
			l.diags = append(l.diags, diag.AtMultiplePlans(wk.Name.Loc))
		}

		room, errs := floorplan.Compile(plans[0])
		if len(errs) > 0 {
			l.diags = append(l.diags, errs...)
			continue
		}
		l.rooms[wk.Name.Name] = len(rooms)
		rooms = append(rooms, *room)
	}
	return rooms
}

// emitTodos walks the director tree in source order, emitting director
// instructions. parentMonitor is the director line of the enclosing
// Monitor block, or -1 outside any monitor; a Receive or Send with no
// explicit port inherits the enclosing monitor's.
func (l *linker) emitTodos(todos []ast.ToDo, parentMonitor ir.SantaLine) {
	for _, td := range todos {
		switch td.Kind {
		case ast.ToDoSetupElf:
			l.emitSetupElf(td)
		case ast.ToDoConnect:
			l.emitConnect(td)
		case ast.ToDoMonitor:
			l.emitMonitor(td)
		case ast.ToDoReceive:
			l.emitReceive(td, parentMonitor)
		case ast.ToDoSend:
			l.emitSend(td, parentMonitor)
		case ast.ToDoDeliver:
			l.emitDeliver(td)
		}
	}
}

func (l *linker) emit(instr ir.DirectorInstr) ir.SantaLine {
	line := len(l.santa)
	l.santa = append(l.santa, instr)
	return line
}

// define registers name -> line, reporting IdentifierConflict (recoverable)
// if name was already bound; the new binding wins either way so later
// references resolve to the most recent definition.
func (l *linker) define(ident ast.Ident, line ir.SantaLine) {
	if prevLine, ok := l.idents.get(ident.Name); ok {
		l.diags = append(l.diags, diag.AtIdentifierConflict(ident.Loc, ident.Name, l.lineLoc(prevLine)))
	}
	l.idents.put(ident.Name, line)
}

// lineLoc is a best-effort location for a previously emitted line, used
// only for IdentifierConflict's "first defined at" detail; the director
// program carries no location of its own so this degrades to Unknown.
func (l *linker) lineLoc(ir.SantaLine) ast.Loc { return ast.Loc{} }

// resolve looks up name, recording UnknownIdentifier and returning line 0
// as a placeholder on failure so later errors still surface in one pass.
func (l *linker) resolve(ident ast.Ident) ir.SantaLine {
	if line, ok := l.idents.get(ident.Name); ok {
		return line
	}
	l.diags = append(l.diags, diag.AtUnknownIdentifier(ident.Loc, ident.Name))
	return 0
}

func (l *linker) emitSetupElf(td ast.ToDo) {
	var stackLines []ir.SantaLine
	for _, e := range td.Stack {
		stackLines = append(stackLines, l.emitExpr(e))
	}

	room, ok := l.rooms[td.Shop.Name]
	if !ok {
		l.diags = append(l.diags, diag.AtUnknownIdentifier(td.Shop.Loc, td.Shop.Name))
	}

	line := l.emit(ir.DirectorInstr{
		Op:        ir.DSetupElf,
		Name:      nameOf(td.Name),
		HasName:   td.Name != nil,
		Room:      room,
		InitStack: stackLines,
	})
	if td.Name != nil {
		l.define(*td.Name, line)
	}
}

func nameOf(id *ast.Ident) string {
	if id == nil {
		return ""
	}
	return id.Name
}

// emitExpr emits a Const line for a literal, or resolves a variable
// reference to its existing line.
func (l *linker) emitExpr(e ast.Expr) ir.SantaLine {
	if e.Kind == ast.ExprNumber {
		return l.emit(ir.DirectorInstr{Op: ir.DConst, Value: e.Number})
	}
	return l.resolve(e.Var)
}

func (l *linker) emitConnect(td ast.ToDo) {
	switch {
	case td.Src.Kind == ast.ConnPortKind && td.Dst.Kind == ast.ConnPortKind:
		src := l.resolveConnEnd(td.Src.Port)
		dst := l.resolveConnEnd(td.Dst.Port)
		l.emit(ir.DirectorInstr{Op: ir.DConnect, Src: src, Dst: dst})

	case td.Src.Kind == ast.ConnFileKind && td.Dst.Kind == ast.ConnPortKind:
		dst := l.resolveConnEnd(td.Dst.Port)
		l.emit(ir.DirectorInstr{Op: ir.DOpenRead, File: td.Src.File.Name, Dst: dst})

	case td.Src.Kind == ast.ConnPortKind && td.Dst.Kind == ast.ConnFileKind:
		src := l.resolveConnEnd(td.Src.Port)
		l.emit(ir.DirectorInstr{Op: ir.DOpenWrite, Src: src, File: td.Dst.File.Name})

	default:
		// File->File connections parse but have no director instruction, and
		// the parser never produces Std endpoints; both are reported here.
		l.diags = append(l.diags, diag.AtUnknownIdentifier(td.Loc, "<connection>"))
	}
}

func (l *linker) resolveConnEnd(p ast.ConnPort) ir.ConnEnd {
	return ir.ConnEnd{Line: l.resolve(p.Elf), Port: ir.ToPort(p.Port)}
}

func (l *linker) emitMonitor(td ast.ToDo) {
	target := l.resolveConnEnd(td.Target)
	blockStart := l.emit(ir.DirectorInstr{Op: ir.DMonitor, MonPort: target, BlockLen: 0})
	l.emitTodos(td.Todos, blockStart)
	l.santa[blockStart].BlockLen = len(l.santa) - blockStart
}

// monitorPort resolves the implicit port for a Receive/Send with no
// explicit target: it must inherit the nearest enclosing Monitor's port.
func (l *linker) monitorPort(loc ast.Loc, parentMonitor ir.SantaLine) ir.ConnEnd {
	if parentMonitor < 0 {
		l.diags = append(l.diags, diag.AtUnknownIdentifier(loc, "<implicit port outside monitor>"))
		return ir.ConnEnd{}
	}
	return l.santa[parentMonitor].MonPort
}

func (l *linker) emitReceive(td ast.ToDo, parentMonitor ir.SantaLine) {
	var port ir.ConnEnd
	if td.RecvSrc != nil {
		port = l.resolveConnEnd(*td.RecvSrc)
	} else {
		port = l.monitorPort(td.Loc, parentMonitor)
	}

	for _, v := range td.RecvVars {
		line := l.emit(ir.DirectorInstr{Op: ir.DReceive, Port: port})
		l.define(v, line)
	}
}

func (l *linker) emitSend(td ast.ToDo, parentMonitor ir.SantaLine) {
	var port ir.ConnEnd
	if td.SendDst != nil {
		port = l.resolveConnEnd(*td.SendDst)
	} else {
		port = l.monitorPort(td.Loc, parentMonitor)
	}

	for _, v := range td.Values {
		valueLine := l.emitExpr(v)
		l.emit(ir.DirectorInstr{Op: ir.DSend, Port: port, ValueLine: valueLine})
	}
}

func (l *linker) emitDeliver(td ast.ToDo) {
	valueLine := l.emitExpr(td.Value)
	l.emit(ir.DirectorInstr{Op: ir.DDeliver, DeliverLine: valueLine})
}
