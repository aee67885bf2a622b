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

package assembler

import (
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/lassandro/gointcode/pkg/machine"
)

type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) Write(p []byte) (int, error) {
	if ew.err != nil {
		return 0, ew.err
	}

	n, err := ew.w.Write(p)
	ew.err = err
	return n, err
}

// Disassemble writes the instruction at pc to w and returns the address of
// the next instruction and any write error. Words that do not decode are
// written as a .data directive.
func Disassemble(program []int64, pc int64, w io.Writer) (next int64, err error) {
	if pc < 0 || pc >= int64(len(program)) {
		return pc, errors.Errorf("Address %d outside program", pc)
	}

	ew, _ := w.(*errWriter)
	if ew == nil {
		ew = &errWriter{w: w}
	}

	ins, err := machine.DecodeAt(program, pc)

	if err != nil {
		fmt.Fprintf(ew, ".data %d", program[pc])
		return pc + 1, ew.err
	}

	io.WriteString(ew, ins.String())
	return pc + ins.Size(), ew.err
}

// DisassembleAll writes every instruction of program, one per line, prefixed
// with its address. base is the address of program[0].
func DisassembleAll(program []int64, base int64, w io.Writer) error {
	ew := &errWriter{w: w}

	for pc := int64(0); pc < int64(len(program)); {
		fmt.Fprintf(ew, "%6d\t", base+pc)
		pc, _ = Disassemble(program, pc, ew)
		ew.Write([]byte{'\n'})

		if ew.err != nil {
			return ew.err
		}
	}

	return nil
}
