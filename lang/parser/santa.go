package parser

import (
	"strconv"
	"strings"

	"github.com/Muph0/santas-lang/lang/ast"
)

// parseTodoList reads director items until a line that trims to ";",
// which it consumes. Used both for the outer "Santa will: ... ;" block
// and for every nested "monitor ...: ... ;" block.
func (p *parser) parseTodoList() []ast.ToDo {
	var out []ast.ToDo
	for {
		p.skipBlank()
		if p.atEnd() {
			p.errorf(p.locHere(1), "unterminated director block")
			return out
		}
		trimmed := strings.TrimSpace(p.peekLine())
		if trimmed == ";" {
			p.nextLine()
			return out
		}
		if td, ok := p.parseTodoLine(trimmed); ok {
			out = append(out, td)
		}
	}
}

func (p *parser) parseTodoLine(trimmed string) (ast.ToDo, bool) {
	lineNo := p.lineNo()
	toks := strings.Fields(trimmed)
	p.nextLine()
	if len(toks) == 0 {
		return ast.ToDo{}, false
	}

	loc := ast.Loc{Line: lineNo, Col: 1, Len: len(trimmed)}
	switch toks[0] {
	case "setup":
		return p.parseSetup(toks[1:], lineNo, loc)
	case "monitor":
		return p.parseMonitor(toks[1:], lineNo, loc)
	case "receive":
		return p.parseReceive(toks[1:], loc)
	case "send":
		return p.parseSend(toks[1:], loc)
	case "deliver":
		return p.parseDeliver(toks[1:], loc)
	default:
		p.errorf(loc, "unknown director item %q", toks[0])
		return ast.ToDo{}, false
	}
}

// parseSetup handles both "setup" forms: SetupElf ("setup <shop> for elf
// <name>? (<n> ...)") and Connect ("setup <src> -> <dst>").
func (p *parser) parseSetup(toks []string, lineNo int, loc ast.Loc) (ast.ToDo, bool) {
	if len(toks) >= 3 && toks[1] == "for" && toks[2] == "elf" {
		shop := ast.Ident{Name: toks[0], Loc: loc}
		idx := 3
		var name *ast.Ident
		if idx < len(toks) && !strings.HasPrefix(toks[idx], "(") {
			n := ast.Ident{Name: toks[idx], Loc: loc}
			name = &n
			idx++
		}
		nums := parseNumList(toks[idx:])
		var stack []ast.Expr
		for _, n := range nums {
			stack = append(stack, ast.Expr{Kind: ast.ExprNumber, Number: n})
		}
		return ast.ToDo{Kind: ast.ToDoSetupElf, Loc: loc, Shop: shop, Name: name, Stack: stack}, true
	}

	src, n1, ok1 := parseConnEndpoint(toks)
	if !ok1 || n1 >= len(toks) || toks[n1] != "->" {
		p.errorf(loc, "malformed setup/connect line")
		return ast.ToDo{}, false
	}
	dst, _, ok2 := parseConnEndpoint(toks[n1+1:])
	if !ok2 {
		p.errorf(loc, "malformed connection target")
		return ast.ToDo{}, false
	}
	return ast.ToDo{Kind: ast.ToDoConnect, Loc: loc, Src: src, Dst: dst}, true
}

func (p *parser) parseMonitor(toks []string, lineNo int, loc ast.Loc) (ast.ToDo, bool) {
	if len(toks) != 1 || !strings.HasSuffix(toks[0], ":") {
		p.errorf(loc, "malformed monitor header")
		return ast.ToDo{}, false
	}
	port, ok := parsePort(strings.TrimSuffix(toks[0], ":"))
	if !ok {
		p.errorf(loc, "malformed monitor target %q", toks[0])
		return ast.ToDo{}, false
	}
	nested := p.parseTodoList()
	return ast.ToDo{Kind: ast.ToDoMonitor, Loc: loc, Target: port, Todos: nested}, true
}

func (p *parser) parseReceive(toks []string, loc ast.Loc) (ast.ToDo, bool) {
	items, rest := splitParenList(toks)
	vars := identsOf(items, loc)

	var src *ast.ConnPort
	if len(rest) >= 2 && rest[0] == "from" {
		if port, ok := parsePort(rest[1]); ok {
			src = &port
		}
	}
	return ast.ToDo{Kind: ast.ToDoReceive, Loc: loc, RecvSrc: src, RecvVars: vars}, true
}

func (p *parser) parseSend(toks []string, loc ast.Loc) (ast.ToDo, bool) {
	items, rest := splitParenList(toks)
	values := exprsOf(items)

	var dst *ast.ConnPort
	if len(rest) >= 2 && rest[0] == "to" {
		if port, ok := parsePort(rest[1]); ok {
			dst = &port
		}
	}
	return ast.ToDo{Kind: ast.ToDoSend, Loc: loc, SendDst: dst, Values: values}, true
}

func (p *parser) parseDeliver(toks []string, loc ast.Loc) (ast.ToDo, bool) {
	if len(toks) == 0 {
		p.errorf(loc, "deliver requires a value")
		return ast.ToDo{}, false
	}
	return ast.ToDo{Kind: ast.ToDoDeliver, Loc: loc, Value: exprOf(toks[0])}, true
}

// parseConnEndpoint reads one connection endpoint: "file <path>" or
// "<elf>.<port>".
func parseConnEndpoint(toks []string) (ast.Connection, int, bool) {
	if len(toks) == 0 {
		return ast.Connection{}, 0, false
	}
	if toks[0] == "file" {
		if len(toks) < 2 {
			return ast.Connection{}, 0, false
		}
		return ast.Connection{Kind: ast.ConnFileKind, File: ast.Ident{Name: unquote(toks[1])}}, 2, true
	}
	port, ok := parsePort(toks[0])
	if !ok {
		return ast.Connection{}, 0, false
	}
	return ast.Connection{Kind: ast.ConnPortKind, Port: port}, 1, true
}

func parsePort(tok string) (ast.ConnPort, bool) {
	i := strings.LastIndexByte(tok, '.')
	if i <= 0 {
		return ast.ConnPort{}, false
	}
	port := []rune(tok[i+1:])
	if len(port) != 1 {
		return ast.ConnPort{}, false
	}
	return ast.ConnPort{Elf: ast.Ident{Name: tok[:i]}, Port: port[0]}, true
}

func unquote(tok string) string {
	if len(tok) >= 2 && tok[0] == '"' && tok[len(tok)-1] == '"' {
		return tok[1 : len(tok)-1]
	}
	return tok
}

func parseNumList(toks []string) []int64 {
	items, _ := splitParenList(toks)
	var out []int64
	for _, it := range items {
		n, err := strconv.ParseInt(it, 10, 64)
		if err == nil {
			out = append(out, n)
		}
	}
	return out
}

func identsOf(items []string, loc ast.Loc) []ast.Ident {
	var out []ast.Ident
	for _, it := range items {
		out = append(out, ast.Ident{Name: it, Loc: loc})
	}
	return out
}

func exprOf(tok string) ast.Expr {
	if n, err := strconv.ParseInt(tok, 10, 64); err == nil {
		return ast.Expr{Kind: ast.ExprNumber, Number: n}
	}
	return ast.Expr{Kind: ast.ExprVar, Var: ast.Ident{Name: tok}}
}

func exprsOf(items []string) []ast.Expr {
	var out []ast.Expr
	for _, it := range items {
		out = append(out, exprOf(it))
	}
	return out
}

// splitParenList splits a "(a b c) rest..." or "a rest..." token sequence
// into its list items and the remaining tokens; a bare word is a
// single-item list.
func splitParenList(toks []string) (items, rest []string) {
	if len(toks) == 0 {
		return nil, nil
	}
	if !strings.HasPrefix(toks[0], "(") {
		return toks[:1], toks[1:]
	}
	if strings.HasSuffix(toks[0], ")") && len(toks[0]) > 1 {
		inner := strings.TrimSuffix(strings.TrimPrefix(toks[0], "("), ")")
		return strings.Fields(inner), toks[1:]
	}

	first := strings.TrimPrefix(toks[0], "(")
	if first != "" {
		items = append(items, first)
	}
	for i := 1; i < len(toks); i++ {
		t := toks[i]
		if strings.HasSuffix(t, ")") {
			t = strings.TrimSuffix(t, ")")
			if t != "" {
				items = append(items, t)
			}
			return items, toks[i+1:]
		}
		items = append(items, t)
	}
	return items, nil
}
