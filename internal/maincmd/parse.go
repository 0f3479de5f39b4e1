package maincmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mna/mainer"

	"github.com/Muph0/santas-lang/lang/ast"
	"github.com/Muph0/santas-lang/lang/diag"
	"github.com/Muph0/santas-lang/lang/parser"
)

func (c *Cmd) Parse(ctx context.Context, stdio mainer.Stdio, args []string) error {
	tu, errs := loadUnit(args)
	printUnit(stdio.Stdout, tu)
	if len(errs) > 0 {
		return printDiags(stdio, errs)
	}
	return nil
}

// loadUnit reads and parses every file, merging the results into one
// translation unit. Workshops and director items keep their source order
// across files; diagnostics accumulate rather than aborting at the first
// bad file.
func loadUnit(files []string) (ast.TranslationUnit, []*diag.Error) {
	var merged ast.TranslationUnit
	var diags []*diag.Error

	for _, path := range files {
		content, err := os.ReadFile(path)
		if err != nil {
			diags = append(diags, diag.AtIo(path, err))
			continue
		}
		tu, errs := parser.Parse(path, string(content))
		diags = append(diags, errs...)
		merged.Workshops = append(merged.Workshops, tu.Workshops...)
		merged.Todos = append(merged.Todos, tu.Todos...)
	}
	return merged, diags
}

func printDiags(stdio mainer.Stdio, errs []*diag.Error) error {
	for _, e := range errs {
		fmt.Fprintln(stdio.Stderr, e)
	}
	return fmt.Errorf("%d error(s)", len(errs))
}

func printUnit(w io.Writer, tu ast.TranslationUnit) {
	for _, wk := range tu.Workshops {
		for _, b := range wk.Blocks {
			fmt.Fprintf(w, "workshop %s: %dx%d floorplan\n", wk.Name.Name, b.Width, b.Height)
		}
		if len(wk.Blocks) == 0 {
			fmt.Fprintf(w, "workshop %s: no floorplan\n", wk.Name.Name)
		}
	}
	if len(tu.Todos) > 0 {
		fmt.Fprintln(w, "Santa will:")
		printTodos(w, tu.Todos, 1)
	}
}

func printTodos(w io.Writer, todos []ast.ToDo, depth int) {
	indent := strings.Repeat("    ", depth)
	for _, td := range todos {
		switch td.Kind {
		case ast.ToDoSetupElf:
			name := "?"
			if td.Name != nil {
				name = td.Name.Name
			}
			fmt.Fprintf(w, "%ssetup %s for elf %s %s\n", indent, td.Shop.Name, name, exprListString(td.Stack))
		case ast.ToDoConnect:
			fmt.Fprintf(w, "%ssetup %s -> %s\n", indent, connString(td.Src), connString(td.Dst))
		case ast.ToDoMonitor:
			fmt.Fprintf(w, "%smonitor %s.%c:\n", indent, td.Target.Elf.Name, td.Target.Port)
			printTodos(w, td.Todos, depth+1)
		case ast.ToDoReceive:
			var names []string
			for _, v := range td.RecvVars {
				names = append(names, v.Name)
			}
			fmt.Fprintf(w, "%sreceive (%s)%s\n", indent, strings.Join(names, " "), portSuffix(" from", td.RecvSrc))
		case ast.ToDoSend:
			fmt.Fprintf(w, "%ssend %s%s\n", indent, exprListString(td.Values), portSuffix(" to", td.SendDst))
		case ast.ToDoDeliver:
			fmt.Fprintf(w, "%sdeliver %s\n", indent, exprString(td.Value))
		}
	}
}

func connString(c ast.Connection) string {
	if c.Kind == ast.ConnFileKind {
		return fmt.Sprintf("file %q", c.File.Name)
	}
	return fmt.Sprintf("%s.%c", c.Port.Elf.Name, c.Port.Port)
}

func portSuffix(kw string, p *ast.ConnPort) string {
	if p == nil {
		return ""
	}
	return fmt.Sprintf("%s %s.%c", kw, p.Elf.Name, p.Port)
}

func exprString(e ast.Expr) string {
	if e.Kind == ast.ExprNumber {
		return fmt.Sprintf("%d", e.Number)
	}
	return e.Var.Name
}

func exprListString(exprs []ast.Expr) string {
	var parts []string
	for _, e := range exprs {
		parts = append(parts, exprString(e))
	}
	return "(" + strings.Join(parts, " ") + ")"
}
