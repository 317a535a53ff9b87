package vm

import (
	"context"
	"fmt"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"
)

type (
	// Interrupt is what a tick surfaces instead of quietly continuing.
	// It is one of Halt, Output, InputRequired. A nil Interrupt together
	// with a nil error means the machine just moved on.
	Interrupt any

	// Halt reports normal termination. Value is the word at address 0 at
	// the moment of the halt.
	Halt struct {
		Value int64
	}

	// Output carries one word produced by an output instruction.
	Output struct {
		Value int64
	}

	// InputRequired is a cooperative yield, not an error: the caller
	// queues a value with Push and ticks again, and the same input
	// instruction retries.
	InputRequired struct{}

	// Machine executes a flat integer image. It owns its tape exclusively
	// and keeps the image around so Reset can start over.
	Machine struct {
		tape  Tape
		image []int64

		pos  int64
		base int64

		in  []int64
		out []int64

		sink func(int64)
	}

	Option func(*Machine)

	OpcodeError struct {
		Addr int64
		Code int64
	}

	AddressingModeError struct {
		Addr int64
		Mode int64
	}
)

func (e OpcodeError) Error() string {
	return fmt.Sprintf("invalid opcode %d at %d", e.Code, e.Addr)
}

func (e AddressingModeError) Error() string {
	return fmt.Sprintf("invalid addressing mode %d at %d", e.Mode, e.Addr)
}

// New loads the image at address 0 of a fresh machine. The image slice is
// copied; the caller keeps its own.
func New(image []int64, opts ...Option) *Machine {
	m := &Machine{
		image: append([]int64{}, image...),
	}

	for _, o := range opts {
		o(m)
	}

	if m.tape == nil {
		m.tape = NewFlat(m.image)
	} else {
		m.tape.Reset(m.image)
	}

	return m
}

// WithTape picks the tape implementation. Flat is the default.
func WithTape(t Tape) Option {
	return func(m *Machine) {
		m.tape = t
	}
}

// WithOutput streams output words to fn instead of buffering them.
func WithOutput(fn func(int64)) Option {
	return func(m *Machine) {
		m.sink = fn
	}
}

// Push queues input values. One is consumed per input instruction.
func (m *Machine) Push(vs ...int64) {
	m.in = append(m.in, vs...)
}

// Outputs returns the output words buffered so far. Empty if a sink is set.
func (m *Machine) Outputs() []int64 {
	return m.out
}

// Peek reads a tape word without executing anything.
func (m *Machine) Peek(addr int64) (int64, error) {
	return m.tape.Load(addr)
}

// Reset restores the tape from the initial image, zeroes the position and
// relative base and drops queued input and buffered output.
func (m *Machine) Reset() {
	m.tape.Reset(m.image)

	m.pos = 0
	m.base = 0

	m.in = nil
	m.out = nil
}

// Tick executes exactly one instruction. State moves only if the whole
// instruction went through: a yield or a fault leaves the machine where it
// was, so the next Tick retries.
func (m *Machine) Tick() (Interrupt, error) {
	w, err := m.tape.Load(m.pos)
	if err != nil {
		return nil, errors.Wrap(err, "fetch")
	}

	op := w % 100
	modes := w / 100

	m1 := modes % 10
	m2 := modes / 10 % 10
	m3 := modes / 100 % 10

	switch op {
	case opAdd:
		a, err := m.load(1, m1)
		if err != nil {
			return nil, err
		}

		b, err := m.load(2, m2)
		if err != nil {
			return nil, err
		}

		err = m.store(3, m3, a+b)
		if err != nil {
			return nil, err
		}

		m.pos += 4
	case opMul:
		a, err := m.load(1, m1)
		if err != nil {
			return nil, err
		}

		b, err := m.load(2, m2)
		if err != nil {
			return nil, err
		}

		err = m.store(3, m3, a*b)
		if err != nil {
			return nil, err
		}

		m.pos += 4
	case opIn:
		if len(m.in) == 0 {
			return InputRequired{}, nil
		}

		err = m.store(1, m1, m.in[0])
		if err != nil {
			return nil, err
		}

		m.in = m.in[1:]
		m.pos += 2
	case opOut:
		v, err := m.load(1, m1)
		if err != nil {
			return nil, err
		}

		m.pos += 2

		return Output{Value: v}, nil
	case opJnz:
		c, err := m.load(1, m1)
		if err != nil {
			return nil, err
		}

		t, err := m.load(2, m2)
		if err != nil {
			return nil, err
		}

		if c != 0 {
			m.pos = t
		} else {
			m.pos += 3
		}
	case opJz:
		c, err := m.load(1, m1)
		if err != nil {
			return nil, err
		}

		t, err := m.load(2, m2)
		if err != nil {
			return nil, err
		}

		if c == 0 {
			m.pos = t
		} else {
			m.pos += 3
		}
	case opLess:
		a, err := m.load(1, m1)
		if err != nil {
			return nil, err
		}

		b, err := m.load(2, m2)
		if err != nil {
			return nil, err
		}

		err = m.store(3, m3, b2i(a < b))
		if err != nil {
			return nil, err
		}

		m.pos += 4
	case opEq:
		a, err := m.load(1, m1)
		if err != nil {
			return nil, err
		}

		b, err := m.load(2, m2)
		if err != nil {
			return nil, err
		}

		err = m.store(3, m3, b2i(a == b))
		if err != nil {
			return nil, err
		}

		m.pos += 4
	case opArb:
		d, err := m.load(1, m1)
		if err != nil {
			return nil, err
		}

		m.base += d
		m.pos += 2
	case opHalt:
		v, err := m.tape.Load(0)
		if err != nil {
			return nil, errors.Wrap(err, "halt")
		}

		return Halt{Value: v}, nil
	default:
		return nil, OpcodeError{Addr: m.pos, Code: w}
	}

	return nil, nil
}

// Run ticks until something other than output comes up. Output words go to
// the sink, or into the buffer Outputs returns. The context is checked
// between ticks.
func (m *Machine) Run(ctx context.Context) (it Interrupt, err error) {
	tr := tlog.SpanFromContext(ctx)

	for {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "run")
		}

		it, err = m.Tick()
		if err != nil {
			return nil, err
		}

		if it == nil {
			continue
		}

		o, ok := it.(Output)
		if !ok {
			tr.V("vm").Printw("interrupt", "typ", tlog.NextAsType, it, "val", it, "pos", m.pos, "base", m.base)

			return it, nil
		}

		tr.V("vm").Printw("output", "val", o.Value, "pos", m.pos)

		if m.sink != nil {
			m.sink(o.Value)
		} else {
			m.out = append(m.out, o.Value)
		}
	}
}

func (m *Machine) load(off, mode int64) (int64, error) {
	w, err := m.tape.Load(m.pos + off)
	if err != nil {
		return 0, errors.Wrap(err, "operand %d", off)
	}

	switch mode {
	case modePos:
		return m.tape.Load(w)
	case modeImm:
		return w, nil
	case modeRel:
		return m.tape.Load(m.base + w)
	default:
		return 0, AddressingModeError{Addr: m.pos, Mode: mode}
	}
}

func (m *Machine) store(off, mode, v int64) error {
	w, err := m.tape.Load(m.pos + off)
	if err != nil {
		return errors.Wrap(err, "operand %d", off)
	}

	switch mode {
	case modePos:
		return m.tape.Store(w, v)
	case modeRel:
		return m.tape.Store(m.base+w, v)
	default:
		return AddressingModeError{Addr: m.pos, Mode: mode}
	}
}

const (
	opAdd  = 1
	opMul  = 2
	opIn   = 3
	opOut  = 4
	opJnz  = 5
	opJz   = 6
	opLess = 7
	opEq   = 8
	opArb  = 9
	opHalt = 99
)

const (
	modePos = 0
	modeImm = 1
	modeRel = 2
)

func b2i(v bool) int64 {
	if v {
		return 1
	}

	return 0
}
