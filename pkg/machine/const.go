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

const (
	OP_ADD  Opcode = 1
	OP_MUL  Opcode = 2
	OP_IN   Opcode = 3
	OP_OUT  Opcode = 4
	OP_JT   Opcode = 5
	OP_JF   Opcode = 6
	OP_LT   Opcode = 7
	OP_EQ   Opcode = 8
	OP_ARB  Opcode = 9
	OP_HALT Opcode = 99
)

const (
	MODE_POSITION  ParameterMode = 0
	MODE_IMMEDIATE ParameterMode = 1
	MODE_RELATIVE  ParameterMode = 2
)

const (
	RESULT_CONTINUE RunResult = iota
	RESULT_OUTPUT
	RESULT_HALTED
	RESULT_INPUT_REQUEST
)

// Instruction word layout: opcode in the low two decimal digits, one mode
// digit per parameter above that.
const (
	OPCODE_DIVISOR = 100
	MODE_BASE      = 10
	MAX_PARAMS     = 3
)

var arity = map[Opcode]int{
	OP_ADD:  3,
	OP_MUL:  3,
	OP_IN:   1,
	OP_OUT:  1,
	OP_JT:   2,
	OP_JF:   2,
	OP_LT:   3,
	OP_EQ:   3,
	OP_ARB:  1,
	OP_HALT: 0,
}

var mnemonics = map[Opcode]string{
	OP_ADD:  "add",
	OP_MUL:  "mul",
	OP_IN:   "in",
	OP_OUT:  "out",
	OP_JT:   "jt",
	OP_JF:   "jf",
	OP_LT:   "lt",
	OP_EQ:   "eq",
	OP_ARB:  "arb",
	OP_HALT: "hlt",
}
