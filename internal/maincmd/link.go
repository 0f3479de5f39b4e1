package maincmd

import (
	"context"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mna/mainer"

	"github.com/Muph0/santas-lang/lang/ir"
	"github.com/Muph0/santas-lang/lang/linker"
)

func (c *Cmd) Link(ctx context.Context, stdio mainer.Stdio, args []string) error {
	unit, err := linkFiles(stdio, args)
	if err != nil {
		return err
	}

	for i := range unit.Rooms {
		printRoom(stdio, i, &unit.Rooms[i])
	}
	printSanta(stdio, unit.Santa)
	return nil
}

// linkFiles parses and links the given files, printing any accumulated
// diagnostics; shared by the link and run commands.
func linkFiles(stdio mainer.Stdio, files []string) (*ir.Unit, error) {
	tu, diags := loadUnit(files)
	if len(diags) > 0 {
		return nil, printDiags(stdio, diags)
	}
	unit, errs := linker.Link(tu)
	if len(errs) > 0 {
		return nil, printDiags(stdio, errs)
	}
	return unit, nil
}

func printRoom(stdio mainer.Stdio, idx int, room *ir.Room) {
	t := table.NewWriter()
	t.SetOutputMirror(stdio.Stdout)
	t.SetTitle(fmt.Sprintf("room %d (%dx%d)", idx, room.Width, room.Height))
	t.AppendHeader(table.Row{"#", "instruction", "tile"})
	for ip, instr := range room.Program {
		tile := ""
		if xy, ok := room.IPToTile[ip]; ok {
			tile = fmt.Sprintf("(%d,%d)", xy[0], xy[1])
		}
		t.AppendRow(table.Row{ip, instr.String(), tile})
	}
	t.Render()
}

func printSanta(stdio mainer.Stdio, santa []ir.DirectorInstr) {
	t := table.NewWriter()
	t.SetOutputMirror(stdio.Stdout)
	t.SetTitle("Santa will")
	t.AppendHeader(table.Row{"line", "instruction"})
	for line, instr := range santa {
		t.AppendRow(table.Row{line, instr.String()})
	}
	t.Render()
}
