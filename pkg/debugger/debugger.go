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

package debugger

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/inconshreveable/log15"

	"github.com/lassandro/gointcode/pkg/assembler"
	"github.com/lassandro/gointcode/pkg/encoding"
	"github.com/lassandro/gointcode/pkg/machine"
)

func (dbg *Debugger) out() io.Writer {
	if dbg.Out == nil {
		return os.Stdout
	}

	return dbg.Out
}

func (dbg *Debugger) logger() log.Logger {
	if dbg.Log == nil {
		return log.Root()
	}

	return dbg.Log
}

// Interrupt stops the machine after the instruction it is running. Unlike
// setting Break, it is safe to call from another goroutine.
func (dbg *Debugger) Interrupt() {
	dbg.interrupted.Store(true)
}

func (dbg *Debugger) Step(mc *machine.Machine) {
	if dbg.Trace {
		dbg.trace(mc)
	}

	if dbg.interrupted.Swap(false) {
		dbg.Break = true
	}

	if dbg.HandleBreak == nil {
		return
	}

	if dbg.Break {
		dbg.HandleBreak(dbg, mc)
		return
	}

	for _, breakpoint := range dbg.Breakpoints {
		if mc.Cursor() == breakpoint.Addr {
			dbg.HandleBreak(dbg, mc)
			break
		}
	}
}

// Logs the instruction the machine will execute next.
func (dbg *Debugger) trace(mc *machine.Machine) {
	if mc.Halted() {
		dbg.logger().Debug("halted", "cursor", mc.Cursor())
		return
	}

	var next strings.Builder

	if _, err := assembler.Disassemble(
		mc.Memory().Cells(), mc.Cursor(), &next,
	); err != nil {
		dbg.logger().Debug("step", "cursor", mc.Cursor(), "err", err)
		return
	}

	dbg.logger().Debug(
		"step",
		"cursor", mc.Cursor(),
		"base", mc.Memory().RelativeBase(),
		"next", next.String(),
	)
}

func (dbg *Debugger) Read(addr int64, mc *machine.Machine) {
	for _, watchpoint := range dbg.Watchpoints {
		if watchpoint.Type == WriteWatch {
			continue
		}

		if addr == watchpoint.Addr && dbg.HandleRead != nil {
			dbg.HandleRead(addr, dbg, mc)
			break
		}
	}
}

func (dbg *Debugger) Write(addr int64, mc *machine.Machine) {
	for _, watchpoint := range dbg.Watchpoints {
		if watchpoint.Type == ReadWatch {
			continue
		}

		if addr == watchpoint.Addr && dbg.HandleWrite != nil {
			dbg.HandleWrite(addr, dbg, mc)
			break
		}
	}
}

// Returns false if a breakpoint already exists at addr.
func (dbg *Debugger) AddBreakpoint(addr int64) bool {
	for _, breakpoint := range dbg.Breakpoints {
		if breakpoint.Addr == addr {
			return false
		}
	}

	dbg.Breakpoints = append(dbg.Breakpoints, Breakpoint{addr})
	return true
}

func (dbg *Debugger) RemoveBreakpoint(i int) bool {
	if i < 0 || i >= len(dbg.Breakpoints) {
		return false
	}

	dbg.Breakpoints[i] = dbg.Breakpoints[len(dbg.Breakpoints)-1]
	dbg.Breakpoints = dbg.Breakpoints[:len(dbg.Breakpoints)-1]
	return true
}

// Returns false if an identical watchpoint already exists.
func (dbg *Debugger) AddWatchpoint(addr int64, wtype WatchpointType) bool {
	for _, watchpoint := range dbg.Watchpoints {
		if watchpoint.Addr == addr && watchpoint.Type == wtype {
			return false
		}
	}

	dbg.Watchpoints = append(dbg.Watchpoints, Watchpoint{addr, wtype})
	return true
}

func (dbg *Debugger) RemoveWatchpoint(i int) bool {
	if i < 0 || i >= len(dbg.Watchpoints) {
		return false
	}

	dbg.Watchpoints[i] = dbg.Watchpoints[len(dbg.Watchpoints)-1]
	dbg.Watchpoints = dbg.Watchpoints[:len(dbg.Watchpoints)-1]
	return true
}

// Resolves a label through the symbol table, falling back to a numeric
// address.
func (dbg *Debugger) Lookup(s string) (int64, error) {
	if dbg.SymTable != nil {
		if addr, ok := dbg.SymTable.Address(s); ok {
			return addr, nil
		}
	}

	return encoding.DecodeAddress(s)
}

func (dbg *Debugger) PrintSource(addr int64, count int) {
	out := dbg.out()

	if dbg.Source == nil {
		fmt.Fprintln(out, "No source file loaded")
		return
	}

	if dbg.SymTable == nil {
		fmt.Fprintln(out, "No symbol table loaded")
		return
	}

	offset, exists := dbg.SymTable.Symbols[addr]

	if !exists {
		fmt.Fprintf(out, "No instruction found at %d\n", addr)
		return
	}

	lines := make(map[int64]int64, len(dbg.SymTable.Symbols))
	for lineaddr, linebyte := range dbg.SymTable.Symbols {
		lines[linebyte] = lineaddr
	}

	if _, err := dbg.Source.Seek(offset, io.SeekStart); err != nil {
		fmt.Fprintln(out, err)
		return
	}

	scanner := bufio.NewScanner(dbg.Source)
	scanner.Split(bufio.ScanLines)

	for i := 0; i < count; i++ {
		if !scanner.Scan() {
			break
		}

		line := scanner.Text()

		if lineaddr, found := lines[offset]; found {
			fmt.Fprintf(out, "\033[1m[%6d]\033[0m ", lineaddr)
		} else {
			fmt.Fprint(out, "\033[1;30m~~~~~~~~\033[0m ")
		}

		fmt.Fprintln(out, line)

		offset += int64(len(line) + 1)
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintln(out, err)
	}
}

// PrintMem reads the tape directly, so watchpoints do not fire and memory
// is not extended.
func (dbg *Debugger) PrintMem(mem *machine.Memory, addr int64, count int) {
	out := dbg.out()
	cells := mem.Cells()

	for i := addr; i < addr+int64(count); i++ {
		if i == addr {
			fmt.Fprintf(out, "\033[1m[%6d]\033[0m ", i)
		} else if (i-addr)%4 == 0 {
			fmt.Fprintln(out)
			fmt.Fprintf(out, "\033[1m[%6d]\033[0m ", i)
		}

		var result int64
		if i >= 0 && i < int64(len(cells)) {
			result = cells[i]
		}

		if result == 0 {
			fmt.Fprintf(out, "\033[1;30m%d\033[0m ", result)
		} else {
			fmt.Fprintf(out, "%d ", result)
		}
	}

	fmt.Fprintln(out)
}

// PrintDisasm disassembles count instructions starting at addr, marking the
// machine cursor and any labels.
func (dbg *Debugger) PrintDisasm(mc *machine.Machine, addr int64, count int) {
	out := dbg.out()
	cells := mc.Memory().Cells()

	for i := 0; i < count && addr >= 0 && addr < int64(len(cells)); i++ {
		if dbg.SymTable != nil {
			if label, exists := dbg.SymTable.Labels[addr]; exists {
				fmt.Fprintf(out, "\033[1;30m%s:\033[0m\n", label)
			}
		}

		marker := " "
		if addr == mc.Cursor() {
			marker = ">"
		}

		fmt.Fprintf(out, "%s\033[1m[%6d]\033[0m ", marker, addr)

		next, err := assembler.Disassemble(cells, addr, out)
		fmt.Fprintln(out)

		if err != nil {
			fmt.Fprintln(out, err)
			return
		}

		addr = next
	}
}
