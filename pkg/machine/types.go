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
	"fmt"
	"strconv"
)

type Opcode int64
type ParameterMode int64
type RunResult uint

type Parameter struct {
	Mode  ParameterMode
	Value int64
}

type Instruction struct {
	Opcode Opcode
	Params []Parameter
}

type MachineDebugger interface {
	Step(mc *Machine)
	Read(addr int64, mc *Machine)
	Write(addr int64, mc *Machine)
}

// Machine owns a tape and a cursor into it. The zero value is not usable,
// construct one with New, Parse or Load.
type Machine struct {
	Debugger MachineDebugger

	memory *Memory
	cursor int64
	halted bool
}

func (op Opcode) Arity() int {
	return arity[op]
}

func (op Opcode) Valid() bool {
	_, exists := arity[op]
	return exists
}

func (op Opcode) String() string {
	if name, exists := mnemonics[op]; exists {
		return name
	}

	return "op(" + strconv.FormatInt(int64(op), 10) + ")"
}

// Looks up an opcode by its assembler mnemonic.
func OpcodeByName(name string) (Opcode, bool) {
	for op, mnemonic := range mnemonics {
		if mnemonic == name {
			return op, true
		}
	}

	return 0, false
}

func (mode ParameterMode) Valid() bool {
	switch mode {
	case MODE_POSITION, MODE_IMMEDIATE, MODE_RELATIVE:
		return true
	}

	return false
}

func (p Parameter) String() string {
	switch p.Mode {
	case MODE_IMMEDIATE:
		return "#" + strconv.FormatInt(p.Value, 10)
	case MODE_RELATIVE:
		return "@" + strconv.FormatInt(p.Value, 10)
	default:
		return strconv.FormatInt(p.Value, 10)
	}
}

func (result RunResult) String() string {
	switch result {
	case RESULT_CONTINUE:
		return "continue"
	case RESULT_OUTPUT:
		return "output"
	case RESULT_HALTED:
		return "halted"
	case RESULT_INPUT_REQUEST:
		return "input request"
	}

	return "<invalid>"
}

type InvalidOpcodeError struct {
	Cursor int64
	Word   int64
}

func (err *InvalidOpcodeError) Error() string {
	return fmt.Sprintf(
		"%d: Invalid opcode %d (word %d)",
		err.Cursor,
		err.Word%OPCODE_DIVISOR,
		err.Word,
	)
}

type InvalidModeError struct {
	Cursor int64
	Word   int64
	Mode   int64
}

func (err *InvalidModeError) Error() string {
	return fmt.Sprintf(
		"%d: Invalid parameter mode %d (word %d)",
		err.Cursor,
		err.Mode,
		err.Word,
	)
}

type InvalidAddressError struct {
	Address int64
}

func (err *InvalidAddressError) Error() string {
	return fmt.Sprintf("Invalid address %d", err.Address)
}

type ImmediateWriteError struct {
	Value int64
}

func (err *ImmediateWriteError) Error() string {
	return fmt.Sprintf(
		"Immediate parameter #%d used as a write destination", err.Value,
	)
}

type InputExhaustedError struct {
	Cursor int64
}

func (err *InputExhaustedError) Error() string {
	return fmt.Sprintf("%d: Input exhausted while running to completion", err.Cursor)
}
