package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Muph0/santas-lang/lang/ir"
)

func TestPipeFIFOOrder(t *testing.T) {
	out := NewOutputPipe()
	in := out.Connect()

	out.Write(1)
	out.Write(2)
	out.Write(3)

	for _, want := range []ir.Int{1, 2, 3} {
		v, res := in.TryRead()
		assert.Equal(t, ReadOk, res)
		assert.Equal(t, want, v)
	}
}

func TestPipeClosedAfterDrain(t *testing.T) {
	out := NewOutputPipe()
	in := out.Connect()
	out.Write(7)
	out.Close()

	v, res := in.TryRead()
	assert.Equal(t, ReadOk, res)
	assert.Equal(t, ir.Int(7), v)

	_, res = in.TryRead()
	assert.Equal(t, ReadClosed, res)
}

func TestPipeEmptyBeforeClose(t *testing.T) {
	out := NewOutputPipe()
	in := out.Connect()

	_, res := in.TryRead()
	assert.Equal(t, ReadEmpty, res)

	out.Close()
	_, res = in.TryRead()
	assert.Equal(t, ReadClosed, res)
}

func TestDirectInputPipeClosedWhenDrained(t *testing.T) {
	in := NewDirectInputPipe()
	in.WriteDirect(65)

	v, res := in.TryRead()
	assert.Equal(t, ReadOk, res)
	assert.Equal(t, ir.Int(65), v)

	_, res = in.TryRead()
	assert.Equal(t, ReadClosed, res)
}

func TestOutputPipeFanOut(t *testing.T) {
	out := NewOutputPipe()
	a := out.Connect()
	b := out.Connect()

	out.Write(42)

	va, resA := a.TryRead()
	vb, resB := b.TryRead()
	assert.Equal(t, ReadOk, resA)
	assert.Equal(t, ReadOk, resB)
	assert.Equal(t, ir.Int(42), va)
	assert.Equal(t, ir.Int(42), vb)
}
