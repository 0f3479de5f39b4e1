package maincmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mna/mainer"

	"github.com/Muph0/santas-lang/lang/runtime"
)

func (c *Cmd) Run(ctx context.Context, stdio mainer.Stdio, args []string) error {
	unit, err := linkFiles(stdio, args)
	if err != nil {
		return err
	}

	level := slog.LevelWarn
	if c.Trace {
		level = runtime.LevelTrace
		for i := range unit.Rooms {
			fmt.Fprintf(stdio.Stderr, "room %d:\n%s", i, unit.Rooms[i].Disassemble())
		}
	}
	logger := slog.New(slog.NewTextHandler(stdio.Stderr, &slog.HandlerOptions{Level: level}))

	rt := runtime.New(unit, logger)
	rt.Output = stdio.Stdout
	defer rt.Close()

	cmd := runtime.RunToEnd
	if c.Steps > 0 {
		cmd = runtime.Step(c.Steps)
	}

	res, err := rt.Run(cmd)
	if err != nil {
		var fault *runtime.Fault
		if errors.As(err, &fault) {
			printFault(stdio, fault)
		} else {
			fmt.Fprintln(stdio.Stderr, err)
		}
		return err
	}

	if res.Stepped > 0 && !res.Done {
		fmt.Fprintf(stdio.Stderr, "stopped after %d steps\n", res.Stepped)
	}
	return nil
}

func printFault(stdio mainer.Stdio, f *runtime.Fault) {
	fmt.Fprintln(stdio.Stderr, f)

	t := table.NewWriter()
	t.SetOutputMirror(stdio.Stderr)
	t.SetTitle("runtime fault")
	if f.HasRoom {
		t.AppendRow(table.Row{"room", f.Room})
	}
	t.AppendRow(table.Row{"ip", f.IP})
	t.AppendRow(table.Row{"stack", fmt.Sprintf("%v", f.Stack)})
	t.Render()
}
