// Package ir defines the linear intermediate representation that both the
// floorplan compiler and the linker emit, and that the runtime executes:
// the agent instruction set, the director instruction set, and the
// compiled Unit that ties them together.
package ir

import "fmt"

// Int is the only value type on any stack or wire: a signed 64-bit integer.
type Int = int64

// Port is an agent-local 16-bit port identifier, derived from a source
// character: '0'..'9' and ASCII letters map to their code-point values.
type Port = uint16

func ToPort(src rune) Port { return Port(src) }

type (
	ElfId     = int
	RoomId    = int
	SantaLine = int
	ElfLine   = int
)

// Op is an arithmetic operator consumed by Arith/ArithC.
type Op int

const (
	Add Op = iota
	Sub
	Mul
	Div
	Mod
)

func (o Op) String() string {
	switch o {
	case Add:
		return "+"
	case Sub:
		return "-"
	case Mul:
		return "*"
	case Div:
		return "/"
	case Mod:
		return "%"
	default:
		return "?"
	}
}

// Invoke applies the operator to a, b (in that order: a is the deeper
// operand). Division and modulo by zero are reported through ok=false so
// the caller can raise diag.DivisionByZero with the faulting instruction's
// position still on the call stack.
func (o Op) Invoke(a, b Int) (Int, bool) {
	switch o {
	case Add:
		return a + b, true
	case Sub:
		return a - b, true
	case Mul:
		return a * b, true
	case Div:
		if b == 0 {
			return 0, false
		}
		return a / b, true
	case Mod:
		if b == 0 {
			return 0, false
		}
		return a % b, true
	default:
		panic(fmt.Sprintf("ir: invalid Op %d", o))
	}
}

// Opcode identifies an Instr's variant.
type Opcode int

const (
	Nop Opcode = iota
	Push
	Dup
	Erase
	Tuck
	Swap
	JmpPtr
	IfPosPtr
	IfNzPtr
	IfEmptyPtr
	Arith
	ArithC
	StackLen
	Read
	Write
	In
	Out
	Hammock
)

func (op Opcode) String() string {
	names := [...]string{
		"Nop", "Push", "Dup", "Erase", "Tuck", "Swap",
		"JmpPtr", "IfPosPtr", "IfNzPtr", "IfEmptyPtr",
		"Arith", "ArithC", "StackLen", "Read", "Write", "In", "Out", "Hammock",
	}
	if int(op) < len(names) {
		return names[op]
	}
	return "Opcode(?)"
}

// Instr is one agent-program instruction. Rather than a tagged union of
// distinct Go types (which would force every consumer to type-switch on an
// interface), it is one struct with the fields relevant to Op populated,
// so Room.Program stays a dense plain slice.
type Instr struct {
	Op Opcode

	// Push, ArithC's constant, JmpPtr/IfPosPtr/IfNzPtr/IfEmptyPtr's target.
	Arg Int

	// Dup/Erase/Tuck/Swap's index, Read/Write's slot.
	Idx int

	// Arith/ArithC's operator.
	Arith Op
}

func (i Instr) String() string {
	switch i.Op {
	case Push:
		return fmt.Sprintf("Push(%d)", i.Arg)
	case Dup, Erase, Tuck, Swap:
		return fmt.Sprintf("%s(%d)", i.Op, i.Idx)
	case JmpPtr, IfPosPtr, IfNzPtr, IfEmptyPtr:
		return fmt.Sprintf("%s(%d)", i.Op, i.Arg)
	case Arith:
		return fmt.Sprintf("Arith(%s)", i.Arith)
	case ArithC:
		return fmt.Sprintf("ArithC(%s, %d)", i.Arith, i.Arg)
	case Read, Write:
		return fmt.Sprintf("%s(%d)", i.Op, i.Idx)
	case In, Out:
		return fmt.Sprintf("%s(%d)", i.Op, i.Arg)
	default:
		return i.Op.String()
	}
}

// Constructors, for readability at call sites (lang/parser, lang/floorplan
// and the tests) instead of composite literals with mostly-zero fields.
func MkNop() Instr                { return Instr{Op: Nop} }
func MkPush(v Int) Instr          { return Instr{Op: Push, Arg: v} }
func MkDup(k int) Instr           { return Instr{Op: Dup, Idx: k} }
func MkErase(k int) Instr         { return Instr{Op: Erase, Idx: k} }
func MkTuck(k int) Instr          { return Instr{Op: Tuck, Idx: k} }
func MkSwap(k int) Instr          { return Instr{Op: Swap, Idx: k} }
func MkJmpPtr(line int) Instr     { return Instr{Op: JmpPtr, Arg: Int(line)} }
func MkIfPosPtr(line int) Instr   { return Instr{Op: IfPosPtr, Arg: Int(line)} }
func MkIfNzPtr(line int) Instr    { return Instr{Op: IfNzPtr, Arg: Int(line)} }
func MkIfEmptyPtr(line int) Instr { return Instr{Op: IfEmptyPtr, Arg: Int(line)} }
func MkArith(op Op) Instr         { return Instr{Op: Arith, Arith: op} }
func MkArithC(op Op, c Int) Instr { return Instr{Op: ArithC, Arith: op, Arg: c} }
func MkStackLen() Instr           { return Instr{Op: StackLen} }
func MkRead(slot int) Instr       { return Instr{Op: Read, Idx: slot} }
func MkWrite(slot int) Instr      { return Instr{Op: Write, Idx: slot} }
func MkIn(port Port) Instr        { return Instr{Op: In, Arg: Int(port)} }
func MkOut(port Port) Instr       { return Instr{Op: Out, Arg: Int(port)} }
func MkHammock() Instr            { return Instr{Op: Hammock} }

// JumpTarget returns the instruction's jump target and whether it has one.
func (i Instr) JumpTarget() (int, bool) {
	switch i.Op {
	case JmpPtr, IfPosPtr, IfNzPtr, IfEmptyPtr:
		return int(i.Arg), true
	default:
		return 0, false
	}
}

// WithTarget returns a copy of i with its jump target overwritten; used by
// the floorplan compiler's back-patching step.
func (i Instr) WithTarget(target int) Instr {
	if _, ok := i.JumpTarget(); !ok {
		panic("ir: WithTarget on non-jump instruction")
	}
	i.Arg = Int(target)
	return i
}

// Room is the compiled form of one workshop's floorplan: the linear
// instruction stream plus enough metadata to map an instruction index back
// to the grid coordinates it came from, for diagnostics.
type Room struct {
	Program  []Instr
	IPToTile map[int][2]int // instruction index -> (x, y)
	Width    int
	Height   int
}

// Disassemble renders the room's program as a human-readable instruction
// listing; jump targets already are instruction indices, so no label
// resolution is involved.
func (r *Room) Disassemble() string {
	var sb []byte
	for i, instr := range r.Program {
		line := fmt.Sprintf("%4d  %s\n", i, instr)
		sb = append(sb, line...)
	}
	return string(sb)
}

// DirectorOp identifies a DirectorInstr's variant.
type DirectorOp int

const (
	DConst DirectorOp = iota
	DSetupElf
	DConnect
	DOpenRead
	DOpenWrite
	DMonitor
	DReceive
	DSend
	DDeliver
)

func (op DirectorOp) String() string {
	names := [...]string{
		"Const", "SetupElf", "Connect", "OpenRead", "OpenWrite",
		"Monitor", "Receive", "Send", "Deliver",
	}
	if int(op) < len(names) {
		return names[op]
	}
	return "DirectorOp(?)"
}

// ConnEnd names one endpoint of a Connect/OpenRead/OpenWrite: a director
// line (expected to be a SetupElf line, resolved to an ElfId at run time)
// and a port on that elf.
type ConnEnd struct {
	Line SantaLine
	Port Port
}

// DirectorInstr is one instruction of the linear director program. Like
// Instr, it is one struct with the fields relevant to Op populated.
type DirectorInstr struct {
	Op DirectorOp

	// Const
	Value Int

	// SetupElf
	Name      string // used only when HasName is set
	HasName   bool   // false: unnamed, runtime assigns a default name
	Room      RoomId
	InitStack []SantaLine

	// Connect
	Src, Dst ConnEnd

	// OpenRead (File, Dst) / OpenWrite (Src, File)
	File string

	// Monitor
	MonPort  ConnEnd
	BlockLen int

	// Receive (ElfLine via Port.Line, Port via Port.Port)
	Port ConnEnd

	// Send
	ValueLine SantaLine

	// Deliver
	DeliverLine SantaLine
}

func (i DirectorInstr) String() string {
	switch i.Op {
	case DConst:
		return fmt.Sprintf("Const(%d)", i.Value)
	case DSetupElf:
		name := i.Name
		if !i.HasName {
			name = "<auto>"
		}
		return fmt.Sprintf("SetupElf{name=%s, room=%d, stack=%v}", name, i.Room, i.InitStack)
	case DConnect:
		return fmt.Sprintf("Connect{%v -> %v}", i.Src, i.Dst)
	case DOpenRead:
		return fmt.Sprintf("OpenRead{%q -> %v}", i.File, i.Dst)
	case DOpenWrite:
		return fmt.Sprintf("OpenWrite{%v -> %q}", i.Src, i.File)
	case DMonitor:
		return fmt.Sprintf("Monitor{%v, block_len=%d}", i.MonPort, i.BlockLen)
	case DReceive:
		return fmt.Sprintf("Receive(%v)", i.Port)
	case DSend:
		return fmt.Sprintf("Send(%v, value=%d)", i.Port, i.ValueLine)
	case DDeliver:
		return fmt.Sprintf("Deliver(%d)", i.DeliverLine)
	default:
		return i.Op.String()
	}
}

// Unit is the complete compiled program handed from the linker to the
// runtime: ordered rooms and an ordered director program.
type Unit struct {
	Rooms []Room
	Santa []DirectorInstr
}
