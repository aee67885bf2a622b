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
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	log "github.com/inconshreveable/log15"
	"github.com/pkg/errors"

	"github.com/lassandro/gointcode/pkg/assembler"
	"github.com/lassandro/gointcode/pkg/debugger"
	"github.com/lassandro/gointcode/pkg/machine"
)

var shouldexit bool

// Shared by the debug CLI and text-mode input so neither steals buffered
// lines from the other.
var console = bufio.NewScanner(os.Stdin)

// promptInput prints a prompt before every read from a terminal.
type promptInput struct {
	prompt string
	in     machine.Input
}

func (p promptInput) Read() (int64, bool) {
	fmt.Fprint(os.Stderr, p.prompt)
	return p.in.Read()
}

func loadMachine(cfg *config) (*machine.Machine, error) {
	if cfg.Resume != "" {
		data, err := os.ReadFile(cfg.Resume)

		if err != nil {
			return nil, errors.Wrap(err, "Error reading snapshot")
		}

		return machine.Restore(data)
	}

	if cfg.Program == "-" {
		return machine.Load(os.Stdin)
	}

	file, err := os.Open(cfg.Program)

	if err != nil {
		return nil, err
	}

	defer file.Close()

	return machine.Load(file)
}

func saveMachine(cfg *config, mc *machine.Machine) error {
	data, err := mc.Snapshot()

	if err != nil {
		return err
	}

	if err := os.WriteFile(cfg.SaveState, data, 0644); err != nil {
		return errors.Wrap(err, "Error writing snapshot")
	}

	log.Info("Saved machine state", "file", cfg.SaveState, "cursor", mc.Cursor())
	return nil
}

func symbolsPath(cfg *config) string {
	if cfg.Symbols != "" || cfg.Program == "" || cfg.Program == "-" {
		return cfg.Symbols
	}

	return filepath.Join(filepath.Dir(cfg.Program), strings.TrimSuffix(
		filepath.Base(cfg.Program), filepath.Ext(cfg.Program),
	)+".icdb")
}

func loadSymbols(dbg *debugger.Debugger, path string) {
	if path == "" {
		return
	}

	file, err := os.Open(path)

	if err != nil {
		log.Warn("Error loading symbol file", "err", err)
		return
	}

	defer file.Close()

	if dbg.SymTable, err = assembler.ReadSymTable(file); err != nil {
		log.Warn("Error loading symbol file", "err", err)
	}
}

func attachDebugger(cfg *config, mc *machine.Machine) func() {
	dbg := &debugger.Debugger{Trace: cfg.Trace}
	mc.Debugger = dbg

	if !cfg.Debug {
		return func() {}
	}

	dbg.HandleBreak = handleBreak
	dbg.HandleRead = handleRead
	dbg.HandleWrite = handleWrite

	initial = mc.State()
	loadSymbols(dbg, symbolsPath(cfg))

	var source *os.File

	if dbg.SymTable != nil && dbg.SymTable.Source != "" {
		var err error

		if source, err = os.Open(dbg.SymTable.Source); err == nil {
			dbg.Source = source
		} else {
			log.Warn("Error loading source file", "err", err)
		}
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)

	go func() {
		for range c {
			fmt.Println()
			dbg.Interrupt()
		}
	}()

	return func() {
		signal.Stop(c)
		close(c)

		if source != nil {
			source.Close()
		}
	}
}

// Steps one instruction at a time while debugging so that quitting the debug
// CLI takes effect immediately.
func execute(cfg *config, mc *machine.Machine, in machine.Input, out machine.Output) (machine.RunResult, error) {
	if !cfg.Debug {
		return mc.RunUntilInputExhausted(in, out)
	}

	for !shouldexit {
		result, err := mc.Advance(in, out)

		if err != nil {
			return result, err
		}

		switch result {
		case machine.RESULT_HALTED, machine.RESULT_INPUT_REQUEST:
			return result, nil
		}
	}

	return machine.RESULT_CONTINUE, nil
}

func runText(cfg *config, mc *machine.Machine) (machine.RunResult, error) {
	text := machine.NewASCIITranslator()
	in := machine.MultiInput{machine.NewQueueInput(cfg.Input...), text}

	for {
		result, err := execute(cfg, mc, in, text)

		fmt.Print(text.DrainString())

		for _, value := range text.Values() {
			fmt.Println(value)
		}

		text.Clear()

		if err != nil || result != machine.RESULT_INPUT_REQUEST || !cfg.Interactive {
			return result, err
		}

		if isTerminal(os.Stdin) {
			fmt.Fprint(os.Stderr, "> ")
		}

		if !console.Scan() {
			return result, errors.Wrap(console.Err(), "Error reading input")
		}

		text.PushString(console.Text())
	}
}

func runValues(cfg *config, mc *machine.Machine) (machine.RunResult, error) {
	in := machine.MultiInput{machine.NewQueueInput(cfg.Input...)}
	out := machine.NewWriterOutput(os.Stdout)

	var lines *machine.LineInput

	if cfg.Interactive {
		lines = machine.NewLineInput(os.Stdin)

		if isTerminal(os.Stdin) {
			in = append(in, promptInput{"> ", lines})
		} else {
			in = append(in, lines)
		}
	}

	result, err := execute(cfg, mc, in, out)

	if err == nil {
		err = out.Err()
	}

	if err == nil && lines != nil {
		err = lines.Err()
	}

	return result, err
}

func intcode() int {
	cfg, fs, err := loadConfig(os.Args[1:])

	if err != nil {
		log.Error(err.Error())
		fs.SetOutput(os.Stderr)
		fs.PrintDefaults()
		return 1
	}

	if cfg.Help {
		fmt.Println(usage)
		fs.SetOutput(os.Stdout)
		fs.PrintDefaults()
		return 0
	}

	log.Root().SetHandler(log.LvlFilterHandler(
		cfg.LogLevel, log.StreamHandler(os.Stderr, log.TerminalFormat()),
	))

	mc, err := loadMachine(cfg)

	if err != nil {
		log.Error("Error loading program", "err", err)
		return 1
	}

	if cfg.Debug || cfg.Trace {
		defer attachDebugger(cfg, mc)()
	}

	if cfg.Debug {
		debugREPL(mc.Debugger.(*debugger.Debugger), mc)
	}

	var result machine.RunResult

	if cfg.ASCII {
		result, err = runText(cfg, mc)
	} else {
		result, err = runValues(cfg, mc)
	}

	if err != nil {
		log.Error("Program failed", "err", err)
		return 1
	}

	if result != machine.RESULT_HALTED {
		if cfg.SaveState != "" {
			if err := saveMachine(cfg, mc); err != nil {
				log.Error(err.Error())
				return 1
			}

			return 0
		}

		if result == machine.RESULT_INPUT_REQUEST {
			log.Error("Program stopped", "err", &machine.InputExhaustedError{Cursor: mc.Cursor()})
			return 1
		}
	}

	return 0
}

func main() {
	os.Exit(intcode())
}
