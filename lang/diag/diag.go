// Package diag defines the structured diagnostic taxonomy shared by the
// parser, floorplan compiler, linker and runtime: a code, an optional
// source location, and the per-code detail fields.
package diag

import (
	"fmt"

	"github.com/Muph0/santas-lang/lang/ast"
)

// Code identifies the kind of a diagnostic.
type Code int

const (
	// Parse / IO, raised while reading source.
	Io Code = iota
	Parse

	// Compile-time; these accumulate so one pass surfaces every problem.
	DuplicateShop
	MissingPlan
	MultiplePlans
	MissingElfStart
	MultipleElfStarts
	UnknownTile
	ElfWallHit
	IdentifierConflict
	UnknownIdentifier

	// Runtime faults; the first one aborts the current run.
	InvalidIndex
	InvalidInstr
	DivisionByZero
)

// Error is one diagnostic: a code, an optional source location, and the
// extra data each code carries.
type Error struct {
	Code Code
	Loc  ast.Loc // zero value means unknown/none

	SourceName string // source path, for Io/Parse; "" prints as "<input>"
	Name       string // shop/identifier/tile name, when relevant
	X, Y       int    // ElfWallHit coordinates
	Index      int    // InvalidIndex's k
	PrevLoc    ast.Loc // DuplicateShop/IdentifierConflict's earlier definition
	Err        error  // Io's underlying error
}

func (e *Error) Error() string {
	msg := e.phrase()
	if !e.Loc.Unknown() {
		src := e.SourceName
		if src == "" {
			src = "<input>"
		}
		return fmt.Sprintf("%s\n  - %s:%s", msg, src, e.Loc)
	}
	return msg
}

func (e *Error) phrase() string {
	switch e.Code {
	case Io:
		return fmt.Sprintf("%s: %s", e.Err, e.SourceName)
	case Parse:
		return fmt.Sprintf("syntax error: %s", e.Err)
	case DuplicateShop:
		return fmt.Sprintf("duplicate shop definition: %s (first defined at %s)", e.Name, e.PrevLoc)
	case MissingPlan:
		return "missing floorplan block"
	case MultiplePlans:
		return "multiple floorplan blocks found"
	case MissingElfStart:
		return "missing elf starting tile"
	case MultipleElfStarts:
		return "multiple elf starting tiles"
	case UnknownTile:
		return fmt.Sprintf("unknown tile %q", e.Name)
	case ElfWallHit:
		return fmt.Sprintf("elf walks into a wall on tile (%d,%d)", e.X, e.Y)
	case IdentifierConflict:
		return fmt.Sprintf("identifier %q redefined (first defined at %s)", e.Name, e.PrevLoc)
	case UnknownIdentifier:
		return fmt.Sprintf("unknown identifier %q", e.Name)
	case InvalidIndex:
		return fmt.Sprintf("invalid stack index %d", e.Index)
	case InvalidInstr:
		return "invalid instruction"
	case DivisionByZero:
		return "division by zero"
	default:
		return "unknown error"
	}
}

// Constructors matching each Code, used by lang/parser, lang/floorplan and
// lang/linker to accumulate diagnostics.
func AtIo(sourceName string, err error) *Error {
	return &Error{Code: Io, SourceName: sourceName, Err: err}
}
func AtParse(sourceName string, loc ast.Loc, err error) *Error {
	return &Error{Code: Parse, SourceName: sourceName, Loc: loc, Err: err}
}
func AtDuplicateShop(loc ast.Loc, name string, prev ast.Loc) *Error {
	return &Error{Code: DuplicateShop, Loc: loc, Name: name, PrevLoc: prev}
}
func AtMissingPlan(loc ast.Loc) *Error { return &Error{Code: MissingPlan, Loc: loc} }
func AtMultiplePlans(loc ast.Loc) *Error { return &Error{Code: MultiplePlans, Loc: loc} }
func AtMissingElfStart(loc ast.Loc) *Error { return &Error{Code: MissingElfStart, Loc: loc} }
func AtMultipleElfStarts(loc ast.Loc) *Error { return &Error{Code: MultipleElfStarts, Loc: loc} }
func AtUnknownTile(loc ast.Loc, text string) *Error {
	return &Error{Code: UnknownTile, Loc: loc, Name: text}
}
func AtElfWallHit(loc ast.Loc, x, y int) *Error {
	return &Error{Code: ElfWallHit, Loc: loc, X: x, Y: y}
}
func AtIdentifierConflict(loc ast.Loc, name string, prev ast.Loc) *Error {
	return &Error{Code: IdentifierConflict, Loc: loc, Name: name, PrevLoc: prev}
}
func AtUnknownIdentifier(loc ast.Loc, name string) *Error {
	return &Error{Code: UnknownIdentifier, Loc: loc, Name: name}
}
func AtInvalidIndex(k int) *Error     { return &Error{Code: InvalidIndex, Index: k} }
func AtInvalidInstr() *Error          { return &Error{Code: InvalidInstr} }
func AtDivisionByZero() *Error        { return &Error{Code: DivisionByZero} }
