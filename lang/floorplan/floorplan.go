// Package floorplan implements the grid-walk compiler: it simulates every
// reachable elf trajectory through a workshop's floorplan and emits a
// single linear instruction stream with back-patched branch targets,
// memoizing already-visited (x, y, direction) states so that each is only
// ever compiled once.
package floorplan

import (
	"github.com/Muph0/santas-lang/lang/ast"
	"github.com/Muph0/santas-lang/lang/diag"
	"github.com/Muph0/santas-lang/lang/ir"
)

// state is an elf's position and facing; the compiler's memoization key.
type state struct {
	x, y int
	dir  ast.Direction
}

func (s state) stepForward() state {
	switch s.dir {
	case ast.Up:
		s.y--
	case ast.Down:
		s.y++
	case ast.Left:
		s.x--
	case ast.Right:
		s.x++
	}
	return s
}

func (s state) withDir(d ast.Direction) state {
	s.dir = d
	return s
}

func (s state) stepLeft() state {
	return s.withDir(s.dir.Left()).stepForward()
}

func (s state) stepRight() state {
	return s.withDir(s.dir.Right()).stepForward()
}

// inBounds reports whether (x,y) is a valid tile coordinate. Stepping off
// the top or left edge goes negative, so a negative coordinate is out of
// bounds like any coordinate past the far edges.
func inBounds(s state, w, h int) bool {
	return s.x >= 0 && s.x < w && s.y >= 0 && s.y < h
}

// worklistEntry is one queued trajectory: the state to process, and
// optionally the index in emit whose jump target must be back-patched once
// this state's first instruction is emitted.
type worklistEntry struct {
	s         state
	patchSite int
	hasPatch  bool
}

// Compile translates one workshop's floorplan into a Room, or returns a
// nonempty diagnostics slice. MissingElfStart and MultipleElfStarts
// short-circuit (no Room is produced); all other diagnostics (UnknownTile,
// ElfWallHit) accumulate and the compiler keeps exploring the remaining
// trajectories.
func Compile(plan ast.ShopBlock) (*ir.Room, []*diag.Error) {
	w, h := plan.Width, plan.Height
	tiles := plan.Tiles

	start, _, errs := findElfStart(tiles, w, h)
	if errs != nil {
		return nil, errs
	}

	var (
		emit     []ir.Instr
		ipToTile = make(map[int][2]int)
		visited  = make(map[state]int)
		worklist = []worklistEntry{{s: start}}
		diags    []*diag.Error
	)

	for len(worklist) > 0 {
		// pop from the back: a stack, not a FIFO queue, so a branch's
		// fall-through trajectory is compiled immediately after the branch
		// instruction and the provisional target stays adjacent.
		top := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		cur, patchSite, hasPatch := top.s, top.patchSite, top.hasPatch

		if at, ok := visited[cur]; ok {
			emit = append(emit, ir.MkJmpPtr(at))
			recordTile(ipToTile, len(emit)-1, cur)
			continue
		}

		if !inBounds(cur, w, h) {
			diags = append(diags, diag.AtElfWallHit(ast.Loc{}, cur.x, cur.y))
			continue
		}

		visited[cur] = len(emit)
		if hasPatch {
			emit[patchSite] = emit[patchSite].WithTarget(len(emit))
		}

		tile := tiles[cur.x+cur.y*w]
		next := cur.stepForward()
		terminate := false

		switch tile.Kind {
		case ast.KindEmpty, ast.KindElfStart:
			// no emission

		case ast.KindMove:
			next = cur.withDir(tile.Dir).stepForward()

		case ast.KindIsZero:
			trueElf := cur.stepRight()
			falseElf := cur.stepLeft()
			next = trueElf
			worklist = append(worklist, worklistEntry{s: falseElf, patchSite: len(emit), hasPatch: true})
			emit = append(emit, ir.MkIfNzPtr(len(emit)+1))
			recordTile(ipToTile, len(emit)-1, cur)

		case ast.KindIsNeg:
			next = cur.stepRight()
			emit = append(emit, ir.MkArithC(ir.Add, 1))
			recordTile(ipToTile, len(emit)-1, cur)
			worklist = append(worklist, worklistEntry{s: cur.stepLeft(), patchSite: len(emit), hasPatch: true})
			emit = append(emit, ir.MkIfPosPtr(len(emit)+1))
			recordTile(ipToTile, len(emit)-1, cur)

		case ast.KindIsPos:
			next = cur.stepLeft()
			worklist = append(worklist, worklistEntry{s: cur.stepRight(), patchSite: len(emit), hasPatch: true})
			emit = append(emit, ir.MkIfPosPtr(len(emit)+1))
			recordTile(ipToTile, len(emit)-1, cur)

		case ast.KindIsEmpty:
			// IfEmptyPtr jumps on success (stack empty), so like IsPos the
			// success branch is the one queued for back-patching and the
			// failure branch falls through.
			next = cur.stepLeft()
			worklist = append(worklist, worklistEntry{s: cur.stepRight(), patchSite: len(emit), hasPatch: true})
			emit = append(emit, ir.MkIfEmptyPtr(len(emit)+1))
			recordTile(ipToTile, len(emit)-1, cur)

		case ast.KindInstr:
			emit = append(emit, tile.Inst)
			recordTile(ipToTile, len(emit)-1, cur)
			if tile.Inst.Op == ir.Hammock {
				terminate = true
			}

		case ast.KindUnknown:
			diags = append(diags, diag.AtUnknownTile(tile.Loc, tile.Text))
			terminate = true

		default:
			terminate = true
		}

		if !terminate {
			worklist = append(worklist, worklistEntry{s: next})
		}
	}

	if len(diags) > 0 {
		return nil, diags
	}
	return &ir.Room{
		Program:  emit,
		IPToTile: ipToTile,
		Width:    w,
		Height:   h,
	}, nil
}

func recordTile(m map[int][2]int, ip int, s state) {
	m[ip] = [2]int{s.x, s.y}
}

func findElfStart(tiles []ast.Tile, w, h int) (state, ast.Loc, []*diag.Error) {
	found := false
	var start state
	var loc ast.Loc
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			t := tiles[x+y*w]
			if t.Kind != ast.KindElfStart {
				continue
			}
			if found {
				return state{}, ast.Loc{}, []*diag.Error{diag.AtMultipleElfStarts(t.Loc)}
			}
			found = true
			start = state{x: x, y: y, dir: t.Dir}
			loc = t.Loc
		}
	}
	if !found {
		return state{}, ast.Loc{}, []*diag.Error{diag.AtMissingElfStart(ast.Loc{})}
	}
	return start, loc, nil
}
