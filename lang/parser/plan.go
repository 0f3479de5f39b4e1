package parser

import (
	"strings"

	"github.com/Muph0/santas-lang/lang/ast"
)

// planRow is one parsed row of a floorplan grid: its indentation (in
// columns) and its tiles in source order.
type planRow struct {
	indent int
	lineNo int
	cols   []int // source column of each tile, for diagnostics
	tiles  []string
}

// parseFloorplanBlock reads tile rows until a line that trims to ";",
// then lays them out into a rectangular grid with indent normalization:
// the least-indented row anchors column 0, and every 3 columns of extra
// indentation shifts a row one tile to the right.
func (p *parser) parseFloorplanBlock() ast.ShopBlock {
	var rows []planRow

	for {
		p.skipBlank()
		if p.atEnd() {
			p.errorf(p.locHere(1), "unterminated floorplan block")
			break
		}
		trimmed := strings.TrimSpace(p.peekLine())
		if trimmed == ";" {
			p.nextLine()
			break
		}
		rows = append(rows, p.parsePlanRow())
	}

	if len(rows) == 0 {
		return ast.ShopBlock{}
	}

	leftmost := rows[0].indent
	for _, r := range rows[1:] {
		if r.indent < leftmost {
			leftmost = r.indent
		}
	}

	width := 0
	for _, r := range rows {
		xOff := (r.indent - leftmost) / 3
		if w := len(r.tiles) + xOff; w > width {
			width = w
		}
	}
	height := len(rows)

	tiles := make([]ast.Tile, width*height)
	for i := range tiles {
		tiles[i].Kind = ast.KindEmpty
	}

	for y, r := range rows {
		xOff := (r.indent - leftmost) / 3
		for i, tok := range r.tiles {
			x := i + xOff
			loc := ast.Loc{Line: r.lineNo, Col: r.cols[i], Len: len(tok)}
			tiles[x+y*width] = parseTile(tok, loc)
		}
	}

	return ast.ShopBlock{Width: width, Height: height, Tiles: tiles}
}

// parsePlanRow splits one source line into its indentation and
// whitespace-separated tile tokens, recording each token's source column.
func (p *parser) parsePlanRow() planRow {
	line := p.nextLine()
	lineNo := p.lineNo() - 1

	indent := 0
	for indent < len(line) && line[indent] == ' ' {
		indent++
	}

	row := planRow{indent: indent, lineNo: lineNo}
	i := indent
	for i < len(line) {
		for i < len(line) && line[i] == ' ' {
			i++
		}
		if i >= len(line) {
			break
		}
		start := i
		for i < len(line) && line[i] != ' ' {
			i++
		}
		row.tiles = append(row.tiles, line[start:i])
		row.cols = append(row.cols, start+1)
	}
	return row
}
