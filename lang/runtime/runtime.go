// Package runtime implements the cooperative, single-threaded scheduler:
// it interleaves a director interpreter with N stack-machine agents
// connected by the pipes in pipe.go, driven by a FIFO turn queue.
//
// Scheduling decisions and per-step execution are traced through an
// injected *slog.Logger at LevelTrace; there is no package-level logger.
package runtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dolthub/swiss"

	"github.com/Muph0/santas-lang/lang/diag"
	"github.com/Muph0/santas-lang/lang/ir"
)

// LevelTrace is the level for per-step scheduling and agent tracing. It sits
// just above slog.LevelInfo, so any handler enabled at Info or lower (the
// slog.Default() logger included) shows it, and a handler at Warn hides it.
const LevelTrace = slog.LevelInfo + 1

const sleeveSize = 10

// elfNames is the default-naming table for unnamed SetupElf instructions,
// cycled through by elf id.
var elfNames = [...]string{
	"Alabaster", "Archibald", "Applejack", "Amberglow", "Astra", "Auburn", "Aurora", "Amity", "Aurelian", "Azura", "Aspen",
	"Bells", "Blitzie", "Bounder", "Bubble", "Buddy", "Bramble", "Biscuit", "Beryl", "Brio", "Blythe",
	"Cherry", "Cookie", "Cocoa", "Crinkle", "Cuddles", "Charm", "Clover", "Candlenut", "Celestia", "Crispin",
	"Dabble", "Dandy", "Doodle", "Dingle", "Dongle", "Dazzle", "Drizzle", "Dulcie", "Dewdrop", "Dandelion",
	"Ellie", "Elmo", "Evergreen", "Ember", "Echo", "Edelweiss", "Elfina", "Euphoria", "Elara", "Eos",
	"Flurry", "Frosty", "Frostfern", "Frostine", "Figgy", "Flicker", "Frangle", "Fable", "Frolic", "Feather", "Fiora",
	"Glimmer", "Glitter", "Gingersnap", "Glee", "Gossamer", "Gusty", "Giddy", "Glowbug", "Galatea", "Glimora", "Glintleaf",
	"Holly", "Happy", "Harmony", "Hobnob", "Hugsy", "Hickory", "Hazel", "Humphrey", "Halcyon", "Hesper",
	"Icicle", "Ivy", "Inky", "Iris", "Iggle", "Isolde", "Iota", "Illumina", "Indigo", "Iolana",
	"Jimmy", "Jingle", "Jolly", "Jovial", "Jester", "Jubilee", "Jasmine", "Joviette", "Juniper", "Jovani",
	"Kandy", "Kip", "Knickers", "Kringle", "Kookie", "Kismet", "Keenan", "Kettle", "Kalliope", "Korrin",
	"Lolly", "Lumi", "Lucky", "Larkspur", "Luster", "Lilac", "Lively", "Linden", "Lyric", "Liora",
	"Maple", "Merry", "Misty", "Muffin", "Myrth", "Mallow", "Moonbeam", "Moonwhisper", "Moppet", "Mirabel", "Mystara",
	"Nibbles", "Nutmeg", "Nuzzle", "Nifty", "Nectar", "Noodle", "Nimble", "Nimora", "Nerissa", "Noxie",
	"Olaf", "Opal", "Orin", "Orca", "Onyx", "Olive", "Octavia", "Ocarina", "Odette", "Orchid",
	"Pepper", "Peppermint", "Pinecone", "Pippin", "Purdy", "Puddle", "Pixie", "Pansy", "Primrose", "Pavonine",
	"Quincy", "Quibble", "Quill", "Quirky", "Quaver", "Quartz", "Quokka", "Quenby", "Quarra", "Quintessa",
	"Ripplo", "Rolo", "Rudy", "Ruffles", "Rusty", "Razzle", "Ramble", "Rhyme", "Riven", "Roscoe",
	"Shinny", "Snowdrop", "Snowflake", "Snappy", "Sparkleberry", "Sprinkle", "Sugarplum", "Starbright", "Solstice", "Sylphie", "Sylvaris",
	"Tinsel", "Twinkle", "Taffy", "Tango", "Tiptoe", "Truffle", "Tulip", "Tinker", "Thistle", "Tauriel", "Thalindra",
	"Vixen", "Vivi", "Velvet", "Vireo", "Vesper", "Verity", "Valen", "Valkyra", "Viridian", "Vallora",
	"Wunorse", "Waffle", "Winky", "Whimsy", "Wobble", "Wander", "Wisp", "Wisteria", "Willow", "Wyrda",
	"Xander", "Xylo", "Xenia", "Xavi", "Xylia", "Xanadu", "Xerra", "Xiomara", "Xeraphine", "Xylora",
	"Yule", "Yara", "Yanni", "Yippee", "Yarrow", "Yodel", "Yvette", "Yonder", "Ysabel", "Ysolde",
	"Zanzwi", "Zulu", "Zigzag", "Zippy", "Zinna", "Zephyr", "Zelda", "Zodiac", "Zarina", "Zyra",
}

// Elf is one running agent: its instruction pointer, the room it executes,
// its stack and 10-slot sleeve, and its connected ports.
type Elf struct {
	IP       ir.ElfLine
	Room     ir.RoomId
	ID       ir.ElfId
	Name     string
	Stack    []ir.Int
	Sleeve   [sleeveSize]ir.Int
	Inputs   map[ir.Port]*InputPipe
	Outputs  map[ir.Port]*OutputPipe
	Finished bool
}

func (e *Elf) ensureOutput(port ir.Port) *OutputPipe {
	if e.Outputs[port] == nil {
		e.Outputs[port] = NewOutputPipe()
	}
	return e.Outputs[port]
}

func (e *Elf) ensureInput(port ir.Port, connect *OutputPipe) *InputPipe {
	if in, ok := e.Inputs[port]; ok {
		connect.ConnectExisting(in)
		return in
	}
	in := connect.Connect()
	e.Inputs[port] = in
	return in
}

// topIdx converts a "k from the top" index to an absolute stack index;
// ok is false when the stack is not deep enough.
func (e *Elf) topIdx(fromTop int) (int, bool) {
	n := len(e.Stack)
	if fromTop >= n {
		return 0, false
	}
	return n - fromTop - 1, true
}

func (e *Elf) topVal(fromTop int) (ir.Int, bool) {
	idx, ok := e.topIdx(fromTop)
	if !ok {
		return 0, false
	}
	return e.Stack[idx], true
}

// turn is one scheduled unit of work: either the director (bounded to
// [santaIP, santaUntil)) or a single agent.
type turn struct {
	isSanta    bool
	santaIP    ir.SantaLine
	santaUntil ir.SantaLine
	elfID      ir.ElfId
}

// eventKind is the outcome of one step, dispatched by the scheduler's main
// loop: keep the turn in front, rotate it to the back, or retire it.
type eventKind int

const (
	eventNone eventKind = iota
	eventYield
	eventDequeue
	eventWrite
)

// event carries the Write case's port alongside its kind, so the scheduler
// can look up a monitor without a shared mutable side channel.
type event struct {
	kind eventKind
	port ir.Port
}

type monitorKey struct {
	elfID ir.ElfId
	port  ir.Port
}

type monitorEntry struct {
	pipe      *InputPipe
	santaLine ir.SantaLine
}

// outFile is a registered OpenWrite destination: a pipe fed by the source
// agent's output port, periodically drained to an io.Writer.
type outFile struct {
	pipe   *InputPipe
	writer io.Writer
	closer io.Closer
}

// OutSink is where Deliver's bytes go: os.Stdout by default, an in-memory
// buffer in tests.
type OutSink interface {
	io.Writer
}

// RunCommand selects how far Run advances the schedule: to completion, or
// a bounded number of steps.
type RunCommand struct {
	runToEnd bool
	step     int // >0 means Step(step)
}

var RunToEnd = RunCommand{runToEnd: true}

func Step(n int) RunCommand { return RunCommand{step: n} }

// RunResult reports why Run returned.
type RunResult struct {
	Done    bool
	Stepped int
}

// Fault is a runtime error: the first one aborts the run, recording the
// culprit's room, instruction pointer and stack, and resets the runtime.
type Fault struct {
	Code    diag.Code
	IP      int
	Room    ir.RoomId
	HasRoom bool
	Index   int // InvalidIndex's k
	Stack   []ir.Int
}

func (f *Fault) Error() string {
	msg := "elf encountered a problem and doesn't know what to do: "
	switch f.Code {
	case diag.InvalidIndex:
		msg += fmt.Sprintf("invalid index %d", f.Index)
	case diag.InvalidInstr:
		msg += "invalid instruction"
	case diag.DivisionByZero:
		msg += "division by zero"
	default:
		msg += "unknown fault"
	}
	return msg
}

// Runtime executes one compiled Unit.
type Runtime struct {
	unit *ir.Unit

	santaIP     ir.SantaLine
	santaResult []int

	nextElfID int
	elves     map[ir.ElfId]*Elf

	schedule []turn

	monitors *swiss.Map[monitorKey, *monitorEntry]

	Output   OutSink
	outFiles []*outFile

	log *slog.Logger
}

// New constructs a Runtime ready to execute unit. If logger is nil,
// slog.Default() is used.
func New(unit *ir.Unit, logger *slog.Logger) *Runtime {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runtime{
		unit:        unit,
		santaResult: make([]int, len(unit.Santa)),
		elves:       make(map[ir.ElfId]*Elf),
		schedule:    []turn{{isSanta: true, santaIP: 0, santaUntil: len(unit.Santa)}},
		monitors:    swiss.NewMap[monitorKey, *monitorEntry](8),
		Output:      os.Stdout,
		log:         logger,
	}
}

// Reset reinitializes the runtime to its just-constructed state, dropping
// all agents, pipes and monitors.
func (r *Runtime) Reset() {
	out := r.Output
	log := r.log
	*r = *New(r.unit, log)
	r.Output = out
}

func (r *Runtime) pushFront(t turn) { r.schedule = append([]turn{t}, r.schedule...) }
func (r *Runtime) pushBack(t turn)  { r.schedule = append(r.schedule, t) }

func (r *Runtime) popFront() (turn, bool) {
	if len(r.schedule) == 0 {
		return turn{}, false
	}
	t := r.schedule[0]
	r.schedule = r.schedule[1:]
	return t, true
}

// Run drives the scheduler per cmd.
func (r *Runtime) Run(cmd RunCommand) (RunResult, error) {
	steps := 0

	for {
		next, ok := r.popFront()
		if !ok {
			r.flushOuts()
			return RunResult{Done: true}, nil
		}

		r.log.Log(context.Background(), LevelTrace, "scheduling", slog.Any("turn", next))

		var evt event
		var err error
		if next.isSanta {
			evt, err = r.stepSanta(&next.santaIP, next.santaUntil)
		} else {
			evt, err = r.stepElf(next.elfID)
		}

		if err != nil {
			r.Reset()
			return RunResult{}, err
		}

		switch evt.kind {
		case eventDequeue:
			if !next.isSanta {
				if elf, ok := r.elves[next.elfID]; ok {
					for _, o := range elf.Outputs {
						o.Close()
					}
					delete(r.elves, next.elfID)
				}
			}
		case eventYield, eventWrite:
			r.pushBack(next)
		default:
			r.pushFront(next)
		}

		if evt.kind == eventWrite {
			r.dispatchWrite(next, evt.port)
		}

		steps++
		if steps%1024 == 0 {
			r.flushOuts()
		}

		if cmd.step > 0 && steps >= cmd.step {
			r.flushOuts()
			return RunResult{Stepped: steps}, nil
		}
	}
}

// dispatchWrite prepends a monitor's handler turn to the front of the
// schedule when the just-completed agent write landed on a monitored port,
// so the handler reacts before anything else runs.
func (r *Runtime) dispatchWrite(t turn, port ir.Port) {
	if t.isSanta {
		return
	}
	mon, ok := r.monitors.Get(monitorKey{elfID: t.elfID, port: port})
	if !ok {
		return
	}
	blockLen := r.unit.Santa[mon.santaLine].BlockLen
	r.pushFront(turn{
		isSanta:    true,
		santaIP:    mon.santaLine + 1,
		santaUntil: mon.santaLine + blockLen,
	})
}

func (r *Runtime) stepSanta(ip *ir.SantaLine, until ir.SantaLine) (event, error) {
	if *ip >= len(r.unit.Santa) || *ip >= until {
		return event{kind: eventDequeue}, nil
	}
	code := r.unit.Santa[*ip]
	nextIP := *ip + 1

	var evt event
	switch code.Op {
	case ir.DConst:
		r.santaResult[*ip] = int(code.Value)

	case ir.DSetupElf:
		id := r.nextElfID
		r.nextElfID++
		name := code.Name
		if !code.HasName {
			name = elfNames[id%len(elfNames)]
		}
		stack := make([]ir.Int, len(code.InitStack))
		for i, line := range code.InitStack {
			stack[i] = ir.Int(r.santaResult[line])
		}
		elf := &Elf{
			IP:      0,
			Room:    code.Room,
			ID:      id,
			Name:    name,
			Stack:   stack,
			Inputs:  make(map[ir.Port]*InputPipe),
			Outputs: make(map[ir.Port]*OutputPipe),
		}
		r.elves[id] = elf
		r.pushBack(turn{elfID: id})
		r.santaResult[*ip] = id

	case ir.DConnect:
		srcID := r.santaResult[code.Src.Line]
		dstID := r.santaResult[code.Dst.Line]
		if srcID == dstID {
			elf := r.elves[srcID]
			out := elf.ensureOutput(code.Src.Port)
			elf.ensureInput(code.Dst.Port, out)
		} else {
			src := r.elves[srcID]
			dst := r.elves[dstID]
			out := src.ensureOutput(code.Src.Port)
			dst.ensureInput(code.Dst.Port, out)
		}

	case ir.DOpenRead:
		content, err := os.ReadFile(code.File)
		if err != nil {
			r.log.Warn("cannot read input file", "path", code.File, "err", err)
			content = nil
		}
		dstID := r.santaResult[code.Dst.Line]
		elf := r.elves[dstID]
		// Prefill through a direct pipe: no sender ever exists, so the port
		// reads Closed the moment the file contents drain. An input already
		// wired by a Connect keeps its live sender; the file contents just
		// land in its buffer.
		in, ok := elf.Inputs[code.Dst.Port]
		if !ok {
			in = NewDirectInputPipe()
			elf.Inputs[code.Dst.Port] = in
		}
		for _, c := range string(content) {
			in.WriteDirect(ir.Int(c))
		}

	case ir.DOpenWrite:
		f, err := os.Create(code.File)
		var w io.Writer = io.Discard
		var closer io.Closer
		if err == nil {
			w = f
			closer = f
		}
		srcID := r.santaResult[code.Src.Line]
		elf := r.elves[srcID]
		pipe := elf.ensureOutput(code.Src.Port).Connect()
		r.outFiles = append(r.outFiles, &outFile{pipe: pipe, writer: w, closer: closer})

	case ir.DMonitor:
		elfID := r.santaResult[code.MonPort.Line]
		elf := r.elves[elfID]
		out := elf.ensureOutput(code.MonPort.Port)
		key := monitorKey{elfID: elfID, port: code.MonPort.Port}
		if _, ok := r.monitors.Get(key); ok {
			// two handlers on one (elf, port) is a structural bug: the
			// linker never emits it and dispatchWrite can only fire one
			panic(fmt.Sprintf("runtime: duplicate monitor on elf %d port %d", elfID, code.MonPort.Port))
		}
		r.monitors.Put(key, &monitorEntry{
			pipe:      out.Connect(),
			santaLine: *ip,
		})
		nextIP = *ip + code.BlockLen

	case ir.DReceive:
		elfID := r.santaResult[code.Port.Line]
		mon, ok := r.monitors.Get(monitorKey{elfID: elfID, port: code.Port.Port})
		if !ok {
			return event{kind: eventDequeue}, nil
		}
		v, res := mon.pipe.TryRead()
		switch res {
		case ReadClosed:
			evt = event{kind: eventDequeue}
		case ReadEmpty:
			nextIP = *ip
			evt = event{kind: eventYield}
		case ReadOk:
			r.santaResult[*ip] = int(v)
		}

	case ir.DSend:
		// Recognised but not implemented: the linker emits Send lines for
		// "send" items, and a director that reaches one panics here.
		panic("runtime: Send is not implemented")

	case ir.DDeliver:
		v := r.santaResult[code.DeliverLine]
		c := byte(v)
		if r.Output != nil {
			_, _ = r.Output.Write([]byte{c})
		}
	}

	*ip = nextIP
	return evt, nil
}

func (r *Runtime) stepElf(id ir.ElfId) (event, error) {
	elf, ok := r.elves[id]
	if !ok {
		return event{kind: eventDequeue}, nil
	}

	room := r.unit.Rooms[elf.Room]
	var instr ir.Instr
	if elf.IP < len(room.Program) {
		instr = room.Program[elf.IP]
	} else {
		instr = ir.MkHammock()
	}

	nextIP := elf.IP + 1
	var evt event

	switch instr.Op {
	case ir.Nop:
		// no-op

	case ir.Push:
		elf.Stack = append(elf.Stack, instr.Arg)

	case ir.Dup:
		v, ok := elf.topVal(instr.Idx)
		if !ok {
			return event{}, &Fault{Code: diag.InvalidIndex, IP: elf.IP, Room: elf.Room, HasRoom: true, Index: instr.Idx, Stack: elf.Stack}
		}
		elf.Stack = append(elf.Stack, v)

	case ir.Erase:
		idx, ok := elf.topIdx(instr.Idx)
		if !ok {
			return event{}, &Fault{Code: diag.InvalidIndex, IP: elf.IP, Room: elf.Room, HasRoom: true, Index: instr.Idx, Stack: elf.Stack}
		}
		elf.Stack = append(elf.Stack[:idx], elf.Stack[idx+1:]...)

	case ir.Tuck:
		idx, ok := elf.topIdx(instr.Idx)
		if !ok {
			return event{}, &Fault{Code: diag.InvalidIndex, IP: elf.IP, Room: elf.Room, HasRoom: true, Index: instr.Idx, Stack: elf.Stack}
		}
		top := elf.Stack[len(elf.Stack)-1]
		elf.Stack = elf.Stack[:len(elf.Stack)-1]
		elf.Stack = append(elf.Stack, 0)
		copy(elf.Stack[idx+1:], elf.Stack[idx:])
		elf.Stack[idx] = top

	case ir.Swap:
		topIdx, _ := elf.topIdx(0)
		idx, ok := elf.topIdx(instr.Idx)
		if !ok {
			return event{}, &Fault{Code: diag.InvalidIndex, IP: elf.IP, Room: elf.Room, HasRoom: true, Index: instr.Idx, Stack: elf.Stack}
		}
		elf.Stack[topIdx], elf.Stack[idx] = elf.Stack[idx], elf.Stack[topIdx]

	case ir.JmpPtr:
		nextIP = int(instr.Arg)

	case ir.IfPosPtr:
		v, ok := elf.topVal(0)
		if !ok {
			return event{}, &Fault{Code: diag.InvalidIndex, IP: elf.IP, Room: elf.Room, HasRoom: true, Stack: elf.Stack}
		}
		if v > 0 {
			nextIP = int(instr.Arg)
		}
		elf.Stack = elf.Stack[:len(elf.Stack)-1]

	case ir.IfNzPtr:
		v, ok := elf.topVal(0)
		if !ok {
			return event{}, &Fault{Code: diag.InvalidIndex, IP: elf.IP, Room: elf.Room, HasRoom: true, Stack: elf.Stack}
		}
		if v != 0 {
			nextIP = int(instr.Arg)
		}
		elf.Stack = elf.Stack[:len(elf.Stack)-1]

	case ir.IfEmptyPtr:
		if len(elf.Stack) == 0 {
			nextIP = int(instr.Arg)
		}

	case ir.Arith:
		a, ok1 := elf.topVal(1)
		b, ok2 := elf.topVal(0)
		if !ok1 || !ok2 {
			return event{}, &Fault{Code: diag.InvalidIndex, IP: elf.IP, Room: elf.Room, HasRoom: true, Stack: elf.Stack}
		}
		result, ok := instr.Arith.Invoke(a, b)
		if !ok {
			return event{}, &Fault{Code: diag.DivisionByZero, IP: elf.IP, Room: elf.Room, HasRoom: true, Stack: elf.Stack}
		}
		elf.Stack = elf.Stack[:len(elf.Stack)-2]
		elf.Stack = append(elf.Stack, result)

	case ir.ArithC:
		a, ok := elf.topVal(0)
		if !ok {
			return event{}, &Fault{Code: diag.InvalidIndex, IP: elf.IP, Room: elf.Room, HasRoom: true, Stack: elf.Stack}
		}
		result, ok := instr.Arith.Invoke(a, instr.Arg)
		if !ok {
			return event{}, &Fault{Code: diag.DivisionByZero, IP: elf.IP, Room: elf.Room, HasRoom: true, Stack: elf.Stack}
		}
		elf.Stack[len(elf.Stack)-1] = result

	case ir.In:
		port := ir.Port(instr.Arg)
		in, ok := elf.Inputs[port]
		if !ok {
			elf.Finished = true
			break
		}
		v, res := in.TryRead()
		switch res {
		case ReadOk:
			elf.Stack = append(elf.Stack, v)
		case ReadEmpty:
			nextIP = elf.IP
			evt = event{kind: eventYield}
		case ReadClosed:
			elf.Finished = true
		}

	case ir.Out:
		v, ok := elf.topVal(0)
		if !ok {
			return event{}, &Fault{Code: diag.InvalidIndex, IP: elf.IP, Room: elf.Room, HasRoom: true, Stack: elf.Stack}
		}
		elf.Stack = elf.Stack[:len(elf.Stack)-1]
		port := ir.Port(instr.Arg)
		if out, ok := elf.Outputs[port]; ok {
			out.Write(v)
			evt = event{kind: eventWrite, port: port}
		} else {
			r.log.Warn("elf writes to unused port", "elf", elf.Name, "port", port)
		}

	case ir.Read:
		elf.Stack = append(elf.Stack, elf.Sleeve[instr.Idx])

	case ir.Write:
		v, ok := elf.topVal(0)
		if !ok {
			return event{}, &Fault{Code: diag.InvalidIndex, IP: elf.IP, Room: elf.Room, HasRoom: true, Stack: elf.Stack}
		}
		elf.Sleeve[instr.Idx] = v
		elf.Stack = elf.Stack[:len(elf.Stack)-1]

	case ir.StackLen:
		elf.Stack = append(elf.Stack, ir.Int(len(elf.Stack)))

	case ir.Hammock:
		elf.Finished = true
	}

	if elf.Finished {
		evt = event{kind: eventDequeue}
	}

	r.log.Log(context.Background(), LevelTrace, "elf step", slog.String("name", elf.Name), slog.Int("ip", elf.IP), slog.Any("instr", instr))

	elf.IP = nextIP
	return evt, nil
}

func (r *Runtime) flushOuts() {
	for _, f := range r.outFiles {
		for {
			v, res := f.pipe.TryRead()
			if res != ReadOk {
				break
			}
			_, _ = f.writer.Write([]byte{byte(v)})
		}
	}
}

// Close releases any open out-files; callers should invoke it once a run
// is known to be finished.
func (r *Runtime) Close() {
	for _, f := range r.outFiles {
		if f.closer != nil {
			_ = f.closer.Close()
		}
	}
}
