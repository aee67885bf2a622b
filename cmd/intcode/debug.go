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

package main

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/lassandro/gointcode/pkg/debugger"
	"github.com/lassandro/gointcode/pkg/encoding"
	"github.com/lassandro/gointcode/pkg/machine"
)

var lastcmd []string
var initial machine.MachineState

func complain(v ...interface{}) {
	fmt.Fprintln(os.Stderr, v...)
}

func indexFormat(n int, rest string) string {
	digits := math.Floor(math.Log10(float64(n + 1)))
	return fmt.Sprintf("#%%0%dd: %s\n", int64(digits)+1, rest)
}

// Parses an optional "[addr|label] [#]" pair. A lone decimal number is taken
// as the count, use the 0x form to give only an address.
func parseRange(dbg *debugger.Debugger, args []string, addr int64, count int) (int64, int, bool) {
	if len(args) == 1 {
		if n, err := strconv.Atoi(args[0]); err == nil {
			return addr, n, true
		}
	}

	if len(args) > 0 {
		value, err := dbg.Lookup(args[0])

		if err != nil {
			complain(err)
			return 0, 0, false
		}

		addr = value
	}

	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])

		if err != nil {
			complain(err)
			return 0, 0, false
		}

		count = n
	}

	return addr, count, true
}

func debugBreak(dbg *debugger.Debugger, args []string) {
	const usage = "break [add|list|remove|clear]"

	if len(args) == 0 {
		args = append(args, "l")
	}

	cmd := args[0]
	args = args[1:]

	switch cmd {
	case "a", "add":
		const usage = "break add [addr|label]"

		if len(args) != 1 {
			complain(usage)
			return
		}

		addr, err := dbg.Lookup(args[0])

		if err != nil {
			complain(err)
			return
		}

		if dbg.AddBreakpoint(addr) {
			fmt.Printf("Breakpoint added [%d]\n", addr)
		}

	case "l", "ls", "list":
		format := indexFormat(len(dbg.Breakpoints), "%d")

		for i, breakpoint := range dbg.Breakpoints {
			fmt.Printf(format, i, breakpoint.Addr)
		}

	case "r", "rm", "remove":
		const usage = "break remove [#]"

		if len(args) != 1 {
			complain(usage)
			return
		}

		i, err := strconv.Atoi(args[0])

		if err != nil {
			complain(err)
			return
		}

		if !dbg.RemoveBreakpoint(i) {
			complain("Invalid breakpoint number")
			return
		}

		fmt.Printf("Breakpoint removed [%d]\n", i)

	case "clear":
		dbg.Breakpoints = nil
		fmt.Println("Breakpoints reset")

	default:
		complain(usage)
	}
}

func debugWatch(dbg *debugger.Debugger, args []string) {
	const usage = "watch [add|list|remove|clear]"

	if len(args) == 0 {
		args = append(args, "l")
	}

	cmd := args[0]
	args = args[1:]

	switch cmd {
	case "a", "add":
		const usage = "watch add [addr|label] [read|write|readwrite]"

		if len(args) != 2 {
			complain(usage)
			return
		}

		addr, err := dbg.Lookup(args[0])

		if err != nil {
			complain(err)
			return
		}

		var wtype debugger.WatchpointType

		switch args[1] {
		case "r", "read":
			wtype = debugger.ReadWatch
		case "w", "write":
			wtype = debugger.WriteWatch
		case "rw", "readwrite":
			wtype = debugger.ReadWriteWatch
		default:
			complain(usage)
			return
		}

		if dbg.AddWatchpoint(addr, wtype) {
			fmt.Printf("Watchpoint added [%d] (%s)\n", addr, wtype)
		}

	case "l", "ls", "list":
		format := indexFormat(len(dbg.Watchpoints), "%d %s")

		for i, watchpoint := range dbg.Watchpoints {
			fmt.Printf(format, i, watchpoint.Addr, watchpoint.Type)
		}

	case "r", "rm", "remove":
		const usage = "watch remove [#]"

		if len(args) != 1 {
			complain(usage)
			return
		}

		i, err := strconv.Atoi(args[0])

		if err != nil {
			complain(err)
			return
		}

		if !dbg.RemoveWatchpoint(i) {
			complain("Invalid watchpoint number")
			return
		}

		fmt.Printf("Watchpoint removed [%d]\n", i)

	case "clear":
		dbg.Watchpoints = nil
		fmt.Println("Watchpoints reset")

	default:
		complain(usage)
	}
}

func debugReg(mc *machine.Machine, args []string) {
	const usage = "register [cursor|base] [#]"

	if len(args) == 0 {
		fmt.Printf(
			"\033[1mcursor:\033[0m %d\t\033[1mbase:\033[0m %d\t\033[1mhalted:\033[0m %t\n",
			mc.Cursor(), mc.Memory().RelativeBase(), mc.Halted(),
		)
		return
	}

	if len(args) != 2 {
		complain(usage)
		return
	}

	value, err := encoding.DecodeInt(args[1])

	if err != nil {
		complain(err)
		return
	}

	switch strings.ToLower(args[0]) {
	case "c", "cursor":
		if value < 0 {
			complain("Invalid cursor")
			return
		}
		mc.SetCursor(value)
	case "b", "base":
		mc.Memory().SetRelativeBase(value)
	default:
		complain(usage)
		return
	}

	fmt.Printf("\033[1m%s:\033[0m %d\n", args[0], value)
}

func debugSource(dbg *debugger.Debugger, mc *machine.Machine, args []string) {
	const usage = "source [addr|label] [#]"

	if len(args) > 2 {
		complain(usage)
		return
	}

	if addr, count, ok := parseRange(dbg, args, mc.Cursor(), 3); ok {
		dbg.PrintSource(addr, count)
	}
}

func debugDisasm(dbg *debugger.Debugger, mc *machine.Machine, args []string) {
	const usage = "disasm [addr|label] [#]"

	if len(args) > 2 {
		complain(usage)
		return
	}

	if addr, count, ok := parseRange(dbg, args, mc.Cursor(), 8); ok {
		dbg.PrintDisasm(mc, addr, count)
	}
}

func debugLabels(dbg *debugger.Debugger, args []string) {
	const usage = "labels"

	if len(args) > 0 {
		complain(usage)
		return
	}

	if dbg.SymTable == nil {
		fmt.Println("No symbol table loaded")
		return
	}

	keys := make([]int64, 0, len(dbg.SymTable.Labels))
	for addr := range dbg.SymTable.Labels {
		keys = append(keys, addr)
	}

	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	for _, addr := range keys {
		fmt.Printf("\033[1m[%6d]\033[0m %s\n", addr, dbg.SymTable.Labels[addr])
	}
}

func debugJump(dbg *debugger.Debugger, mc *machine.Machine, args []string) {
	const usage = "jump [addr|label]"

	if len(args) != 1 {
		complain(usage)
		return
	}

	addr, err := dbg.Lookup(args[0])

	if err != nil {
		fmt.Printf("Unable to find '%s'\n", args[0])
		return
	}

	mc.SetCursor(addr)
	fmt.Printf("\033[1mcursor:\033[0m %d\n", addr)
}

func debugMemory(dbg *debugger.Debugger, mc *machine.Machine, args []string) {
	const usage = "memory [addr|label] [#]"

	if len(args) > 2 {
		complain(usage)
		return
	}

	if addr, count, ok := parseRange(dbg, args, mc.Cursor(), 1); ok {
		dbg.PrintMem(mc.Memory(), addr, count)
	}
}

func debugSet(dbg *debugger.Debugger, mc *machine.Machine, args []string) {
	const usage = "set [addr|label] [#]"

	if len(args) != 2 {
		complain(usage)
		return
	}

	addr, err := dbg.Lookup(args[0])

	if err != nil {
		complain(err)
		return
	}

	value, err := encoding.DecodeInt(args[1])

	if err != nil {
		complain(err)
		return
	}

	// Edits from the debug CLI must not trip watchpoints.
	mc.Debugger = nil
	mc.Memory().Write(addr, value)
	mc.Debugger = dbg

	dbg.PrintMem(mc.Memory(), addr, 1)
}

func debugSave(mc *machine.Machine, args []string) {
	const usage = "save [file]"

	if len(args) != 1 {
		complain(usage)
		return
	}

	data, err := mc.Snapshot()

	if err == nil {
		err = os.WriteFile(args[0], data, 0644)
	}

	if err != nil {
		complain(err)
		return
	}

	fmt.Printf("Machine saved to %s\n", args[0])
}

func debugLoad(mc *machine.Machine, args []string) {
	const usage = "load [file]"

	if len(args) != 1 {
		complain(usage)
		return
	}

	data, err := os.ReadFile(args[0])

	if err != nil {
		complain(err)
		return
	}

	state, err := machine.DecodeState(data)

	if err != nil {
		complain(err)
		return
	}

	mc.Reset(state)
	fmt.Printf("Machine loaded from %s\n", args[0])
}

func debugREPL(dbg *debugger.Debugger, mc *machine.Machine) {
	for {
		fmt.Print("\033[1;30m(dbg)\033[0m ")

		if !console.Scan() {
			fmt.Println()
			shouldexit = true
			return
		}

		args := strings.Fields(console.Text())

		if len(args) == 0 {
			if len(lastcmd) == 0 {
				continue
			}
			args = lastcmd
		} else {
			lastcmd = make([]string, len(args))
			copy(lastcmd, args)
		}

		cmd := args[0]
		args = args[1:]

		switch cmd {
		case "b", "bp", "break", "breakpoint":
			debugBreak(dbg, args)

		case "w", "wp", "watch", "watchpoint":
			debugWatch(dbg, args)

		case "r", "reg", "register", "registers":
			debugReg(mc, args)

		case "s", "src", "source":
			debugSource(dbg, mc, args)

		case "d", "dis", "disasm":
			debugDisasm(dbg, mc, args)

		case "l", "label", "labels":
			debugLabels(dbg, args)

		case "j", "jmp", "jump":
			debugJump(dbg, mc, args)

		case "m", "mem", "memory":
			debugMemory(dbg, mc, args)

		case "set":
			debugSet(dbg, mc, args)

		case "save":
			debugSave(mc, args)

		case "load":
			debugLoad(mc, args)

		case "t", "trace":
			dbg.Trace = !dbg.Trace
			fmt.Printf("Trace %t\n", dbg.Trace)

		case "c", "continue":
			dbg.Break = false
			return

		case "n", "next":
			dbg.Break = true
			return

		case "q", "quit", "exit":
			shouldexit = true
			return

		case "clear":
			fmt.Print("\033[H\033[2J")

		case "reset":
			mc.Reset(initial)
			fmt.Println("Machine reset")

		default:
			fmt.Printf("error: '%s' is not a valid command\n", cmd)
		}
	}
}

func handleBreak(dbg *debugger.Debugger, mc *machine.Machine) {
	if !dbg.Break {
		fmt.Println()
		fmt.Println("Program stopped")

		if dbg.Source != nil {
			dbg.PrintSource(mc.Cursor(), 8)
		} else {
			dbg.PrintDisasm(mc, mc.Cursor(), 4)
		}
	} else {
		dbg.PrintDisasm(mc, mc.Cursor(), 1)
	}

	debugREPL(dbg, mc)
}

func handleRead(addr int64, dbg *debugger.Debugger, mc *machine.Machine) {
	fmt.Println()
	fmt.Println("Program stopped on read")
	dbg.PrintMem(mc.Memory(), addr, 1)
	debugREPL(dbg, mc)
}

func handleWrite(addr int64, dbg *debugger.Debugger, mc *machine.Machine) {
	fmt.Println()
	fmt.Println("Program stopped on write")
	dbg.PrintMem(mc.Memory(), addr, 1)
	debugREPL(dbg, mc)
}
