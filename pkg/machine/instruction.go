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
	"strings"
)

// An operation applies an instruction's effect and reports whether it moved
// the cursor itself.
type operation func(params []Parameter, mem *Memory, cursor *int64) bool

var operations = map[Opcode]operation{
	OP_ADD: opAdd,
	OP_MUL: opMul,
	OP_JT:  opJumpIfTrue,
	OP_JF:  opJumpIfFalse,
	OP_LT:  opLessThan,
	OP_EQ:  opEquals,
	OP_ARB: opAdjustRelativeBase,
}

// Splits the instruction word found at cursor. operand fetches the word i
// cells after it.
func decodeWord(cursor, word int64, operand func(i int64) int64) (Instruction, error) {
	opcode := Opcode(word % OPCODE_DIVISOR)

	if !opcode.Valid() {
		return Instruction{}, &InvalidOpcodeError{cursor, word}
	}

	params := make([]Parameter, opcode.Arity())
	modes := word / OPCODE_DIVISOR

	for i := range params {
		mode := ParameterMode(modes % MODE_BASE)
		modes /= MODE_BASE

		if !mode.Valid() {
			return Instruction{}, &InvalidModeError{cursor, word, int64(mode)}
		}

		params[i] = Parameter{mode, operand(int64(i) + 1)}
	}

	return Instruction{opcode, params}, nil
}

// Decode reads the instruction starting at cursor. Parameters are kept raw,
// they are resolved against memory only when the instruction executes.
func Decode(mem *Memory, cursor int64) Instruction {
	ins, err := decodeWord(cursor, mem.peek(cursor), func(i int64) int64 {
		return mem.peek(cursor + i)
	})

	if err != nil {
		panic(err)
	}

	return ins
}

// DecodeAt decodes from a bare program without growing or touching it. An
// instruction running past the end of program is an *InvalidAddressError.
func DecodeAt(program []int64, cursor int64) (Instruction, error) {
	size := int64(len(program))

	if cursor < 0 || cursor >= size {
		return Instruction{}, &InvalidAddressError{cursor}
	}

	word := program[cursor]

	if op := Opcode(word % OPCODE_DIVISOR); op.Valid() {
		if last := cursor + int64(op.Arity()); last >= size {
			return Instruction{}, &InvalidAddressError{last}
		}
	}

	return decodeWord(cursor, word, func(i int64) int64 {
		return program[cursor+i]
	})
}

// Size is the number of tape cells the instruction occupies.
func (ins Instruction) Size() int64 {
	return int64(1 + len(ins.Params))
}

func (ins Instruction) String() string {
	if len(ins.Params) == 0 {
		return ins.Opcode.String()
	}

	operands := make([]string, len(ins.Params))
	for i, param := range ins.Params {
		operands[i] = param.String()
	}

	return ins.Opcode.String() + " " + strings.Join(operands, ", ")
}

func binary(params []Parameter, mem *Memory, f func(a, b int64) int64) {
	a := mem.Value(params[0])
	b := mem.Value(params[1])
	mem.Write(mem.Resolve(params[2]), f(a, b))
}

func boolWord(cond bool) int64 {
	if cond {
		return 1
	}

	return 0
}

func opAdd(params []Parameter, mem *Memory, _ *int64) bool {
	binary(params, mem, func(a, b int64) int64 { return a + b })
	return false
}

func opMul(params []Parameter, mem *Memory, _ *int64) bool {
	binary(params, mem, func(a, b int64) int64 { return a * b })
	return false
}

func opLessThan(params []Parameter, mem *Memory, _ *int64) bool {
	binary(params, mem, func(a, b int64) int64 { return boolWord(a < b) })
	return false
}

func opEquals(params []Parameter, mem *Memory, _ *int64) bool {
	binary(params, mem, func(a, b int64) int64 { return boolWord(a == b) })
	return false
}

func jumpIf(params []Parameter, mem *Memory, cursor *int64, cond func(int64) bool) bool {
	if !cond(mem.Value(params[0])) {
		return false
	}

	*cursor = mem.Value(params[1])
	return true
}

func opJumpIfTrue(params []Parameter, mem *Memory, cursor *int64) bool {
	return jumpIf(params, mem, cursor, func(v int64) bool { return v != 0 })
}

func opJumpIfFalse(params []Parameter, mem *Memory, cursor *int64) bool {
	return jumpIf(params, mem, cursor, func(v int64) bool { return v == 0 })
}

func opAdjustRelativeBase(params []Parameter, mem *Memory, _ *int64) bool {
	mem.AdjustRelativeBase(mem.Value(params[0]))
	return false
}
