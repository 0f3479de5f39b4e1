// Package parser turns santas-lang source text into the lang/ast values
// that lang/floorplan and lang/linker consume. It is a hand-written,
// line-oriented recursive-descent reader; the surface syntax is line
// structured enough that no token stream is needed.
//
// Surface syntax:
//
//	workshop <name>:
//	    floorplan:
//	    <tile> <tile> ...
//	    <tile> <tile> ...
//	    ;
//	;
//
//	Santa will:
//	    setup <shop> for elf [<name>] (<n> <n> ...)
//	    setup <elf>.<port> -> <elf>.<port>
//	    setup <elf>.<port> -> file "<path>"
//	    setup file "<path>" -> <elf>.<port>
//	    monitor <elf>.<port>:
//	        receive (<var> ...) [from <elf>.<port>]
//	        send (<val> ...) [to <elf>.<port>]
//	        deliver <val>
//	    ;
//	;
//
// Tiles are two-character codes (see tile.go): movement and start tiles
// ("m>", "e^"), branch tiles ("?=", "?>", "?<", "?_"), and instruction
// tiles ("P5", "42", "D1", "E0", "T2", "S1", "R0"/"W0", "L_",
// "I<port>"/"O<port>", arithmetic like "+_" and "-3", and "Hm").
package parser

import (
	"fmt"
	"strings"

	"github.com/Muph0/santas-lang/lang/ast"
	"github.com/Muph0/santas-lang/lang/diag"
)

// Parse reads one source buffer into a TranslationUnit, accumulating
// diagnostics for any malformed construct rather than aborting at the
// first error. sourceName is used only to annotate diagnostics.
func Parse(sourceName, source string) (ast.TranslationUnit, []*diag.Error) {
	p := &parser{sourceName: sourceName, lines: splitLines(source)}
	return p.parseUnit()
}

// splitLines keeps line terminators out of each entry but otherwise
// preserves blank lines, so line numbers line up 1:1 with p.lineNo.
func splitLines(source string) []string {
	source = strings.ReplaceAll(source, "\r\n", "\n")
	return strings.Split(source, "\n")
}

type parser struct {
	sourceName string
	lines      []string
	idx        int // 0-based index into lines of the next unconsumed line
	diags      []*diag.Error
}

func (p *parser) lineNo() int { return p.idx + 1 }

func (p *parser) atEnd() bool { return p.idx >= len(p.lines) }

func (p *parser) peekLine() string {
	if p.atEnd() {
		return ""
	}
	return p.lines[p.idx]
}

func (p *parser) nextLine() string {
	l := p.peekLine()
	p.idx++
	return l
}

func (p *parser) errorf(loc ast.Loc, format string, args ...any) {
	p.diags = append(p.diags, diag.AtParse(p.sourceName, loc, fmt.Errorf(format, args...)))
}

func (p *parser) locHere(col int) ast.Loc {
	return ast.Loc{Line: p.lineNo(), Col: col, Len: 1}
}

// skipBlank advances past blank/whitespace-only lines.
func (p *parser) skipBlank() {
	for !p.atEnd() && strings.TrimSpace(p.peekLine()) == "" {
		p.idx++
	}
}

func (p *parser) parseUnit() (ast.TranslationUnit, []*diag.Error) {
	var tu ast.TranslationUnit
	seen := map[string]ast.Loc{}

	for {
		p.skipBlank()
		if p.atEnd() {
			break
		}
		trimmed := strings.TrimSpace(p.peekLine())

		switch {
		case strings.HasPrefix(trimmed, "workshop "):
			wk, ok := p.parseWorkshop()
			if ok {
				if prev, dup := seen[wk.Name.Name]; dup {
					p.diags = append(p.diags, diag.AtDuplicateShop(wk.Name.Loc, wk.Name.Name, prev))
				} else {
					seen[wk.Name.Name] = wk.Name.Loc
				}
				tu.Workshops = append(tu.Workshops, wk)
			}

		case trimmed == "Santa will:":
			p.nextLine()
			todos := p.parseTodoList()
			tu.Todos = append(tu.Todos, todos...)

		default:
			p.errorf(p.locHere(1), "expected 'workshop' or 'Santa will:', found %q", trimmed)
			p.nextLine()
		}
	}

	return tu, p.diags
}
