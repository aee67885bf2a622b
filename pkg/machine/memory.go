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

// Largest tape a slice can hold on 64-bit platforms
const maxCells = 1 << 45

// Memory is a zero-filled tape that grows on demand. Addresses below zero, or
// too large to ever allocate, are a fatal condition and panic with
// *InvalidAddressError.
type Memory struct {
	cells []int64
	base  int64

	// Called for every parameter read and write, not for instruction fetch.
	observe func(addr int64, write bool)
}

func NewMemory(program []int64) *Memory {
	cells := make([]int64, len(program))
	copy(cells, program)

	return &Memory{cells: cells}
}

func (mem *Memory) ensure(addr int64) {
	if addr < 0 || addr >= maxCells {
		panic(&InvalidAddressError{addr})
	}

	size := addr + 1

	if size <= int64(len(mem.cells)) {
		return
	}

	// Cells past len are only ever zero, so spare capacity can be reused.
	if size <= int64(cap(mem.cells)) {
		mem.cells = mem.cells[:size]
		return
	}

	capacity := 2 * size
	if capacity > maxCells {
		capacity = maxCells
	}

	grown := make([]int64, size, capacity)
	copy(grown, mem.cells)
	mem.cells = grown
}

// Returns the value at addr without notifying an observer.
func (mem *Memory) peek(addr int64) int64 {
	mem.ensure(addr)
	return mem.cells[addr]
}

func (mem *Memory) Read(addr int64) int64 {
	mem.ensure(addr)

	if mem.observe != nil {
		mem.observe(addr, false)
	}

	return mem.cells[addr]
}

func (mem *Memory) Write(addr int64, value int64) {
	mem.ensure(addr)
	mem.cells[addr] = value

	if mem.observe != nil {
		mem.observe(addr, true)
	}
}

// Resolve returns the absolute address a parameter refers to. Immediate
// parameters have no address and panic with *ImmediateWriteError.
func (mem *Memory) Resolve(p Parameter) int64 {
	switch p.Mode {
	case MODE_POSITION:
		return p.Value
	case MODE_RELATIVE:
		return p.Value + mem.base
	default:
		panic(&ImmediateWriteError{p.Value})
	}
}

// Value returns what a parameter evaluates to.
func (mem *Memory) Value(p Parameter) int64 {
	if p.Mode == MODE_IMMEDIATE {
		return p.Value
	}

	return mem.Read(mem.Resolve(p))
}

func (mem *Memory) AdjustRelativeBase(delta int64) {
	mem.base += delta
}

func (mem *Memory) RelativeBase() int64 {
	return mem.base
}

func (mem *Memory) SetRelativeBase(base int64) {
	mem.base = base
}

func (mem *Memory) Len() int {
	return len(mem.cells)
}

// Cells exposes the backing tape. The slice is invalidated by the next
// access that extends memory.
func (mem *Memory) Cells() []int64 {
	return mem.cells
}

func (mem *Memory) clone() *Memory {
	cells := make([]int64, len(mem.cells))
	copy(cells, mem.cells)

	return &Memory{cells: cells, base: mem.base}
}
