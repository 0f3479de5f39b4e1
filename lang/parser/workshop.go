package parser

import (
	"strings"

	"github.com/Muph0/santas-lang/lang/ast"
)

// parseWorkshop reads a "workshop <name>: ... ;" block. The caller has
// already confirmed the current line starts with "workshop ".
func (p *parser) parseWorkshop() (ast.Workshop, bool) {
	line := p.lineNo()
	header := strings.TrimSpace(p.nextLine())
	name, ok := strings.CutSuffix(strings.TrimPrefix(header, "workshop "), ":")
	name = strings.TrimSpace(name)
	if !ok || name == "" || strings.ContainsAny(name, " \t") {
		p.errorf(ast.Loc{Line: line, Col: 1, Len: len(header)}, "malformed workshop header %q", header)
		p.skipToSemicolon()
		return ast.Workshop{}, false
	}

	wk := ast.Workshop{Name: ast.Ident{Name: name, Loc: ast.Loc{Line: line, Col: 10, Len: len(name)}}}

	for {
		p.skipBlank()
		if p.atEnd() {
			p.errorf(p.locHere(1), "unterminated workshop %q", wk.Name.Name)
			return wk, true
		}
		trimmed := strings.TrimSpace(p.peekLine())
		if trimmed == ";" {
			p.nextLine()
			return wk, true
		}
		if trimmed == "floorplan:" {
			p.nextLine()
			block := p.parseFloorplanBlock()
			wk.Blocks = append(wk.Blocks, block)
			continue
		}
		p.errorf(p.locHere(1), "expected 'floorplan:' or ';', found %q", trimmed)
		p.nextLine()
	}
}

// skipToSemicolon discards lines until one that trims to ";", used to
// recover from a malformed block header without cascading diagnostics.
func (p *parser) skipToSemicolon() {
	for !p.atEnd() {
		l := p.nextLine()
		if strings.TrimSpace(l) == ";" {
			return
		}
	}
}
