// Pipes connect agent ports: an OutputPipe fans values out to every
// registered receiver, an InputPipe is the unique receive end of one
// connection. The runtime is single-threaded and cooperative, so a pipe
// is a buffer with an explicit alive flag rather than a channel: the flag
// is cleared when the owning agent retires, and a drained buffer with no
// live sender reads as Closed.
package runtime

import "github.com/Muph0/santas-lang/lang/ir"

// pipeEnd is the buffer a writer fans values into and a reader drains from.
// alive mirrors "at least one strong sender exists"; once false and the
// buffer is empty, the pipe reports Closed.
type pipeEnd struct {
	buf   []ir.Int
	alive bool
}

// InputPipe is the unique receive end of a connection.
type InputPipe struct {
	end *pipeEnd
}

// OutputPipe is an agent output port: zero or more registered receive ends.
type OutputPipe struct {
	ends []*pipeEnd
}

// ReadResult is the outcome of InputPipe.TryRead.
type ReadResult int

const (
	ReadOk ReadResult = iota
	ReadEmpty
	ReadClosed
)

// NewOutputPipe returns an unconnected output port.
func NewOutputPipe() *OutputPipe { return &OutputPipe{} }

// Connect creates a new InputPipe and registers it as a receiver of o in
// one step.
func (o *OutputPipe) Connect() *InputPipe {
	end := &pipeEnd{alive: true}
	o.ends = append(o.ends, end)
	return &InputPipe{end: end}
}

// ConnectExisting re-registers an already-constructed InputPipe as an
// additional receiver of o, used when an input port is connected to more
// than one source over the lifetime of a program.
func (o *OutputPipe) ConnectExisting(in *InputPipe) {
	in.end.alive = true
	o.ends = append(o.ends, in.end)
}

// Write fan-outs v to every registered receiver.
func (o *OutputPipe) Write(v ir.Int) {
	for _, e := range o.ends {
		e.buf = append(e.buf, v)
	}
}

// Close marks every receiver registered on o as no longer fed by a live
// sender (called when the owning agent is removed from the active set —
// the Go stand-in for dropping the last Arc<Sender>).
func (o *OutputPipe) Close() {
	for _, e := range o.ends {
		e.alive = false
	}
}

// NewDirectInputPipe returns an InputPipe with no sender at all: a
// file-prefilled port that reports Closed as soon as its buffer drains.
func NewDirectInputPipe() *InputPipe {
	return &InputPipe{end: &pipeEnd{alive: false}}
}

// WriteDirect pushes v straight into the receive buffer, bypassing any
// output pipe (used by OpenRead to prefill a port with file contents).
func (p *InputPipe) WriteDirect(v ir.Int) {
	p.end.buf = append(p.end.buf, v)
}

// TryRead pops the oldest buffered value, or reports Empty (live sender,
// nothing buffered) or Closed (no live sender, buffer drained).
func (p *InputPipe) TryRead() (ir.Int, ReadResult) {
	if len(p.end.buf) > 0 {
		v := p.end.buf[0]
		p.end.buf = p.end.buf[1:]
		return v, ReadOk
	}
	if p.end.alive {
		return 0, ReadEmpty
	}
	return 0, ReadClosed
}
