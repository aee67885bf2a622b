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

package assembler_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lassandro/gointcode/pkg/assembler"
)

func TestDisassemble(t *testing.T) {
	tests := []struct {
		Name    string
		Program []int64
		Want    string
		Next    int64
	}{
		{"ADD", []int64{1, 1, 2, 3}, "add 1, 2, 3", 4},
		{"MUL Modes", []int64{1002, 4, 3, 4, 33}, "mul 4, #3, 4", 4},
		{"IN Relative", []int64{203, 5}, "in @5", 2},
		{"JT", []int64{1105, 1, 0}, "jt #1, #0", 3},
		{"HLT", []int64{99}, "hlt", 1},
		{"Invalid Opcode", []int64{33, 1}, ".data 33", 1},
		{"Invalid Mode", []int64{301, 0, 0, 0}, ".data 301", 1},
		{"Truncated", []int64{1101, 1}, ".data 1101", 1},
		{"Negative Word", []int64{-1, 0}, ".data -1", 1},
	}

	for _, test := range tests {
		var buf bytes.Buffer

		next, err := assembler.Disassemble(test.Program, 0, &buf)

		assert.NoError(t, err, test.Name)
		assert.Equal(t, test.Want, buf.String(), test.Name)
		assert.Equal(t, test.Next, next, test.Name)
	}

	_, err := assembler.Disassemble([]int64{99}, 1, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestDisassembleAll(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, assembler.DisassembleAll([]int64{1002, 4, 3, 4, 33}, 10, &buf))
	assert.Equal(t, "    10\tmul 4, #3, 4\n    14\t.data 33\n", buf.String())
}

func TestDisassembleRoundTrip(t *testing.T) {
	source := "in @5\nadd #4, @-1, 7\njt 1, #0\nout #-9\narb #2\nhlt\n"

	program, errs := assembler.Assemble(strings.NewReader(source), nil)
	require.Empty(t, errs)

	var buf bytes.Buffer
	for pc := int64(0); pc < int64(len(program)); {
		var err error
		pc, err = assembler.Disassemble(program, pc, &buf)
		require.NoError(t, err)
		buf.WriteByte('\n')
	}

	reassembled, errs := assembler.Assemble(&buf, nil)
	require.Empty(t, errs)
	assert.Equal(t, program, reassembled)
}

func TestSymTableFile(t *testing.T) {
	symtable := assembler.NewSymTable("/src/echo.ica")

	_, errs := assembler.Assemble(
		strings.NewReader("start: in value\nout value\nvalue: .data 0\n"),
		symtable,
	)
	require.Empty(t, errs)

	var buf bytes.Buffer
	require.NoError(t, assembler.WriteSymTable(&buf, symtable))

	loaded, err := assembler.ReadSymTable(&buf)
	require.NoError(t, err)

	assert.Equal(t, symtable, loaded)

	addr, ok := loaded.Address("value")
	assert.True(t, ok)
	assert.Equal(t, int64(4), addr)

	_, ok = loaded.Address("missing")
	assert.False(t, ok)

	_, err = assembler.ReadSymTable(strings.NewReader("[symbols]\nabc = 1\n"))
	assert.Error(t, err)
}
