// Package ast defines the types consumed by the floorplan compiler and the
// linker. Building these values from source text is the job of
// lang/parser; the core packages (lang/floorplan, lang/linker) only ever
// see the types in this package, never raw text.
//
// Comments are not represented: the grammar does not have any.
package ast

import (
	"fmt"

	"github.com/Muph0/santas-lang/lang/ir"
)

// Loc is a source location: a 1-based line and column, and the length in
// runes of the spanned text. A zero Loc means "unknown".
type Loc struct {
	Line, Col, Len int
}

func (l Loc) Unknown() bool { return l.Line == 0 }

func (l Loc) String() string {
	if l.Unknown() {
		return "?"
	}
	return fmt.Sprintf("%d:%d", l.Line, l.Col)
}

// Ident is a source identifier: its text plus where it came from, so the
// linker can report conflicts and unresolved references with a precise
// location.
type Ident struct {
	Name string
	Loc  Loc
}

// TranslationUnit is everything read out of one or more source buffers:
// the named workshops and the flattened list of director (Santa) items.
// Multiple parsed buffers are merged into one TranslationUnit before
// linking.
type TranslationUnit struct {
	Workshops []Workshop
	Todos     []ToDo
}

// Workshop is a named shop block; its Blocks should contain exactly one
// Plan block (the linker reports MissingPlan / MultiplePlans otherwise).
type Workshop struct {
	Name   Ident
	Blocks []ShopBlock
}

// ShopBlock is either a floorplan grid or, reserved for a possible literal
// program syntax, a pre-assembled elf program. santas-lang programs are
// always expressed as floorplans; Program blocks never appear in practice.
type ShopBlock struct {
	IsProgram bool

	// Plan fields.
	Width, Height int
	Tiles         []Tile // row-major, len == Width*Height

	// Program field (IsProgram == true).
	Program []ir.Instr
}

// Direction is a compass direction an elf can face.
type Direction int

const (
	Right Direction = iota
	Down
	Left
	Up
)

func (d Direction) Left() Direction  { return (d + 3) % 4 }
func (d Direction) Right() Direction { return (d + 1) % 4 }

func (d Direction) String() string {
	switch d {
	case Right:
		return "Right"
	case Down:
		return "Down"
	case Left:
		return "Left"
	case Up:
		return "Up"
	default:
		return "Direction(?)"
	}
}

// TileKind identifies the semantic kind of a floorplan tile.
type TileKind int

const (
	KindEmpty TileKind = iota
	KindMove
	KindElfStart
	KindIsZero
	KindIsPos
	KindIsNeg
	KindIsEmpty
	KindInstr
	KindUnknown
)

// Tile is one cell of a floorplan grid.
type Tile struct {
	Kind TileKind
	Dir  Direction // valid for KindMove, KindElfStart
	Inst ir.Instr  // valid for KindInstr
	Text string    // raw source text, for KindUnknown diagnostics
	Loc  Loc
}

// ToDo is one item of a "Santa will:" director block.
type ToDoKind int

const (
	ToDoSetupElf ToDoKind = iota
	ToDoConnect
	ToDoMonitor
	ToDoReceive
	ToDoSend
	ToDoDeliver
)

type ToDo struct {
	Kind ToDoKind
	Loc  Loc

	// SetupElf
	Shop  Ident
	Name  *Ident // optional
	Stack []Expr

	// Connect
	Src, Dst Connection

	// Monitor
	Target ConnPort
	Todos  []ToDo

	// Receive
	RecvSrc  *ConnPort // optional; nil means "inherit enclosing monitor's port"
	RecvVars []Ident

	// Send
	SendDst *ConnPort
	Values  []Expr

	// Deliver
	Value Expr
}

// ConnPort names a port on a previously-declared elf: `name.port`.
type ConnPort struct {
	Elf  Ident
	Port rune
}

// ConnectionKind distinguishes the connection endpoint shapes the grammar
// accepts: an elf port or a file path.
type ConnectionKind int

const (
	ConnPortKind ConnectionKind = iota
	ConnFileKind
	ConnStdKind
)

type Connection struct {
	Kind ConnectionKind
	Port ConnPort // ConnPortKind
	File Ident    // ConnFileKind
}

// ExprKind distinguishes a literal integer from a variable reference in
// SetupElf stacks, Send values, and Deliver.
type ExprKind int

const (
	ExprNumber ExprKind = iota
	ExprVar
)

type Expr struct {
	Kind   ExprKind
	Number int64
	Var    Ident
}
