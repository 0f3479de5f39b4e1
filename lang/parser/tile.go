package parser

import (
	"github.com/Muph0/santas-lang/lang/ast"
	"github.com/Muph0/santas-lang/lang/ir"
)

// parseTile decodes one two-character tile code. loc is the tile's own
// location, already resolved by the caller to its (line, column) in the
// source.
func parseTile(tok string, loc ast.Loc) ast.Tile {
	base := ast.Tile{Loc: loc, Text: tok}

	if tok == ".." || tok == "  " {
		base.Kind = ast.KindEmpty
		return base
	}
	if len(tok) != 2 {
		base.Kind = ast.KindUnknown
		return base
	}

	head, tail := tok[0], tok[1]

	switch head {
	case 'm':
		if d, ok := parseDir(tail); ok {
			base.Kind = ast.KindMove
			base.Dir = d
			return base
		}
	case 'e':
		if d, ok := parseDir(tail); ok {
			base.Kind = ast.KindElfStart
			base.Dir = d
			return base
		}
	case 'P':
		base.Kind = ast.KindInstr
		base.Inst = ir.MkPush(tileParam(tail))
		return base
	case 'D':
		if d, ok := digit(rune(tail)); ok {
			base.Kind = ast.KindInstr
			base.Inst = ir.MkDup(d)
			return base
		}
	case 'E':
		if d, ok := digit(rune(tail)); ok {
			base.Kind = ast.KindInstr
			base.Inst = ir.MkErase(d)
			return base
		}
	case 'S':
		if d, ok := digit(rune(tail)); ok {
			base.Kind = ast.KindInstr
			base.Inst = ir.MkSwap(d)
			return base
		}
	case 'I':
		base.Kind = ast.KindInstr
		base.Inst = ir.MkIn(ir.ToPort(rune(tail)))
		return base
	case 'O':
		base.Kind = ast.KindInstr
		base.Inst = ir.MkOut(ir.ToPort(rune(tail)))
		return base
	case 'T':
		if d, ok := digit(rune(tail)); ok {
			base.Kind = ast.KindInstr
			base.Inst = ir.MkTuck(d)
			return base
		}
	case 'R':
		if d, ok := digit(rune(tail)); ok {
			base.Kind = ast.KindInstr
			base.Inst = ir.MkRead(d)
			return base
		}
	case 'W':
		if d, ok := digit(rune(tail)); ok {
			base.Kind = ast.KindInstr
			base.Inst = ir.MkWrite(d)
			return base
		}
	case 'L':
		if tail == '_' {
			base.Kind = ast.KindInstr
			base.Inst = ir.MkStackLen()
			return base
		}
	case '?':
		switch tail {
		case '=':
			base.Kind = ast.KindIsZero
			return base
		case '>':
			base.Kind = ast.KindIsPos
			return base
		case '<':
			base.Kind = ast.KindIsNeg
			return base
		case '_':
			base.Kind = ast.KindIsEmpty
			return base
		}
	}

	if d1, ok1 := digit(rune(head)); ok1 {
		if d0, ok0 := digit(rune(tail)); ok0 {
			base.Kind = ast.KindInstr
			base.Inst = ir.MkPush(ir.Int(d1*10 + d0))
			return base
		}
	}

	if op, ok := arithOp(rune(head)); ok {
		if tail == '_' {
			base.Kind = ast.KindInstr
			base.Inst = ir.MkArith(op)
			return base
		}
		if d, ok := digit(rune(tail)); ok {
			base.Kind = ast.KindInstr
			base.Inst = ir.MkArithC(op, ir.Int(d))
			return base
		}
	}

	if tok == "Hm" {
		base.Kind = ast.KindInstr
		base.Inst = ir.MkHammock()
		return base
	}

	base.Kind = ast.KindUnknown
	return base
}

func parseDir(c byte) (ast.Direction, bool) {
	switch c {
	case '^':
		return ast.Up, true
	case 'v':
		return ast.Down, true
	case '<':
		return ast.Left, true
	case '>':
		return ast.Right, true
	default:
		return 0, false
	}
}

func digit(c rune) (int, bool) {
	if c >= '0' && c <= '9' {
		return int(c - '0'), true
	}
	return 0, false
}

// tileParam decodes P's parameter: a digit stands for its value, any
// other character stands for its code point (the "push a character
// literal" form).
func tileParam(c byte) ir.Int {
	if d, ok := digit(rune(c)); ok {
		return ir.Int(d)
	}
	return ir.Int(c)
}

func arithOp(c rune) (ir.Op, bool) {
	switch c {
	case '+':
		return ir.Add, true
	case '-':
		return ir.Sub, true
	case '*':
		return ir.Mul, true
	case '/':
		return ir.Div, true
	case '%':
		return ir.Mod, true
	default:
		return 0, false
	}
}
