// Copyright (C) 2021  Antonio Lassandro

// This program is free software: you can redistribute it and/or modify it
// under the terms of the GNU General Public License as published by the Free
// Software Foundation, either version 3 of the License, or (at your option)
// any later version.

// This program is distributed in the hope that it will be useful, but WITHOUT
// ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
// FITNESS FOR A PARTICULAR PURPOSE.  See the GNU General Public License for
// more details.

// You should have received a copy of the GNU General Public License along
// with this program.  If not, see <http://www.gnu.org/licenses/>.

package machine

import (
	"io"

	"github.com/pkg/errors"

	"github.com/lassandro/gointcode/pkg/encoding"
)

func New(program []int64) *Machine {
	mc := &Machine{}
	mc.attach(NewMemory(program))
	return mc
}

// Parse builds a machine from comma-separated program text.
func Parse(src string) (*Machine, error) {
	program, err := encoding.ParseProgram(src)

	if err != nil {
		return nil, err
	}

	return New(program), nil
}

func Load(reader io.Reader) (*Machine, error) {
	program, err := encoding.ReadProgram(reader)

	if err != nil {
		return nil, err
	}

	return New(program), nil
}

func (mc *Machine) attach(mem *Memory) {
	mc.memory = mem
	mem.observe = mc.observe
}

func (mc *Machine) observe(addr int64, write bool) {
	if mc.Debugger == nil {
		return
	}

	if write {
		mc.Debugger.Write(addr, mc)
	} else {
		mc.Debugger.Read(addr, mc)
	}
}

// Clone returns an independent copy of the machine. The debugger is shared.
func (mc *Machine) Clone() *Machine {
	clone := &Machine{
		Debugger: mc.Debugger,
		cursor:   mc.cursor,
		halted:   mc.halted,
	}
	clone.attach(mc.memory.clone())
	return clone
}

func (mc *Machine) Memory() *Memory {
	return mc.memory
}

func (mc *Machine) Cursor() int64 {
	return mc.cursor
}

func (mc *Machine) SetCursor(cursor int64) {
	mc.cursor = cursor
}

func (mc *Machine) Halted() bool {
	return mc.halted
}

// Step executes a single instruction. Once halted, Step keeps returning
// RESULT_HALTED without touching the machine. When an IN instruction finds no
// input available the cursor stays on it and RESULT_INPUT_REQUEST is
// returned, so the same instruction runs again on the next call.
//
// Malformed programs and invalid addresses are fatal: Step panics with one of
// the error types in this package. The Run functions recover those panics and
// return them as errors.
func (mc *Machine) Step(in Input, out Output) RunResult {
	if mc.halted {
		return RESULT_HALTED
	}

	ins := Decode(mc.memory, mc.cursor)
	result := RESULT_CONTINUE

	switch ins.Opcode {
	case OP_HALT:
		mc.halted = true
		result = RESULT_HALTED

	case OP_IN:
		value, ok := in.Read()

		if !ok {
			return RESULT_INPUT_REQUEST
		}

		mc.memory.Write(mc.memory.Resolve(ins.Params[0]), value)
		mc.cursor += ins.Size()

	case OP_OUT:
		out.Write(mc.memory.Value(ins.Params[0]))
		mc.cursor += ins.Size()
		result = RESULT_OUTPUT

	default:
		if jumped := operations[ins.Opcode](
			ins.Params, mc.memory, &mc.cursor,
		); !jumped {
			mc.cursor += ins.Size()
		}
	}

	if mc.Debugger != nil {
		mc.Debugger.Step(mc)
	}

	return result
}

// fatal turns a recovered panic carrying one of the machine error types into
// an error. Any other panic is re-raised.
func (mc *Machine) fatal(recovered interface{}, err *error) {
	switch e := recovered.(type) {
	case nil:
	case *InvalidOpcodeError, *InvalidModeError,
		*InvalidAddressError, *ImmediateWriteError:
		*err = errors.Wrapf(e.(error), "machine stopped @cursor=%d/%d", mc.cursor, mc.memory.Len())
	default:
		panic(e)
	}
}

// Advance executes a single instruction like Step, returning fatal conditions
// as errors instead of panicking.
func (mc *Machine) Advance(in Input, out Output) (result RunResult, err error) {
	defer func() { mc.fatal(recover(), &err) }()

	return mc.Step(in, out), nil
}

// Run steps the machine until it halts. Input is expected to block until a
// value is available; an input request means the input has been exhausted,
// which is reported as *InputExhaustedError.
func (mc *Machine) Run(in Input, out Output) (err error) {
	defer func() { mc.fatal(recover(), &err) }()

	for {
		switch mc.Step(in, out) {
		case RESULT_HALTED:
			return nil
		case RESULT_INPUT_REQUEST:
			return errors.WithStack(&InputExhaustedError{mc.cursor})
		}
	}
}

// RunUntilInputExhausted steps the machine until it halts or asks for input
// that is not there. In the latter case the machine is left suspended on the
// IN instruction and may be resumed by calling again with more input.
func (mc *Machine) RunUntilInputExhausted(in Input, out Output) (result RunResult, err error) {
	defer func() { mc.fatal(recover(), &err) }()

	for {
		switch result = mc.Step(in, out); result {
		case RESULT_HALTED, RESULT_INPUT_REQUEST:
			return result, nil
		}
	}
}

// RunSingleInput steps the machine until one IN instruction has consumed a
// value, the machine halts, or input runs out.
func (mc *Machine) RunSingleInput(in Input, out Output) (result RunResult, err error) {
	defer func() { mc.fatal(recover(), &err) }()

	for {
		consuming := !mc.halted && Opcode(mc.memory.peek(mc.cursor)%OPCODE_DIVISOR) == OP_IN

		switch result = mc.Step(in, out); result {
		case RESULT_HALTED, RESULT_INPUT_REQUEST:
			return result, nil
		case RESULT_CONTINUE:
			if consuming {
				return result, nil
			}
		}
	}
}
