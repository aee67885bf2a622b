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
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	log "github.com/inconshreveable/log15"
	"github.com/spf13/pflag"

	"github.com/lassandro/gointcode/pkg/assembler"
	"github.com/lassandro/gointcode/pkg/encoding"
)

var helpvar bool
var debugvar bool
var disasmvar bool
var outvar string

const usage = "intcode-asm [--debug] [--out outfile] [--disasm] filename"

func init() {
	pflag.BoolVar(&helpvar, "help", false, "Displays command usage")
	pflag.BoolVar(
		&debugvar, "debug", false,
		"Specifies whether to generate debugging information as a symbol "+
			"table. The table will use the output filename with extension "+
			"'.icdb'",
	)
	pflag.StringVarP(
		&outvar, "out", "o", "",
		"Specifies a precise name for the output file, "+
			"overriding the default means of determining it",
	)
	pflag.BoolVar(
		&disasmvar, "disasm", false,
		"Disassembles a program file to stdout instead of assembling",
	)
	pflag.Parse()
}

func replaceExt(filename, ext string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename)) + ext
}

// Prints each error with the offending source line underlined.
func report(errs []error, source []byte, name string) {
	input := bytes.NewReader(source)

	for _, err := range errs {
		tokenErr, ok := err.(assembler.TokenError)

		if !ok {
			log.Error(err.Error(), "file", name)
			continue
		}

		cursor := tokenErr.GetPosition()

		if _, err := input.Seek(cursor.LineByte, io.SeekStart); err != nil {
			log.Error(err.Error(), "file", name)
			continue
		}

		line, _ := bufio.NewReader(input).ReadString('\n')
		line = strings.TrimRight(line, "\r\n")

		size := int(cursor.Size)
		if size < 1 {
			size = 1
		}

		underline := strings.Repeat(" ", int(cursor.Byte-cursor.LineByte)) +
			"^" + strings.Repeat("~", size-1)

		fmt.Fprintf(
			os.Stderr,
			"\033[1m%s:\033[0m%s\n%s\n\033[31m%s\033[0m\n",
			name, err, line, underline,
		)
	}
}

func disassemble(args []string) int {
	var input io.Reader = os.Stdin

	if len(args) == 1 && args[0] != "-" {
		file, err := os.Open(args[0])

		if err != nil {
			log.Error(err.Error())
			return 1
		}

		defer file.Close()
		input = file
	} else if len(args) > 1 {
		log.Error(usage)
		return 1
	}

	program, err := encoding.ReadProgram(input)

	if err != nil {
		log.Error(err.Error())
		return 1
	}

	out := bufio.NewWriter(os.Stdout)

	if err := assembler.DisassembleAll(program, 0, out); err != nil {
		log.Error("Error writing disassembly", "err", err)
		return 1
	}

	if err := out.Flush(); err != nil {
		log.Error("Error writing disassembly", "err", err)
		return 1
	}

	return 0
}

func intcodeAsm() int {
	if helpvar {
		fmt.Println(usage)
		pflag.PrintDefaults()
		return 0
	}

	args := pflag.Args()

	if disasmvar {
		return disassemble(args)
	}

	var infile string
	var source []byte
	var err error

	if stat, _ := os.Stdin.Stat(); len(args) == 0 && stat.Mode()&os.ModeCharDevice == 0 {
		infile = "<stdin>"

		if source, err = io.ReadAll(os.Stdin); err != nil {
			log.Error(err.Error(), "file", infile)
			return 1
		}

		if outvar == "" {
			outvar = "out.ic"
		}
	} else {
		if len(args) != 1 {
			log.Error(usage)
			return 1
		}

		infile = args[0]

		if stat, err := os.Stat(infile); err != nil {
			log.Error(err.Error())
			return 1
		} else if stat.IsDir() {
			log.Error("Not a valid Intcode assembly file", "file", infile)
			return 1
		}

		if source, err = os.ReadFile(infile); err != nil {
			log.Error(err.Error())
			return 1
		}

		if outvar == "" {
			outvar = replaceExt(filepath.Base(infile), ".ic")
		}
	}

	var symtable *assembler.SymTable

	if debugvar {
		symtable = assembler.NewSymTable("")

		if infile != "<stdin>" {
			if symtable.Source, err = filepath.Abs(infile); err != nil {
				log.Warn("Unable to resolve source path", "err", err)
				symtable.Source = ""
			}
		}
	}

	result, errs := assembler.Assemble(bytes.NewReader(source), symtable)

	if len(errs) > 0 {
		report(errs, source, filepath.Base(infile))
		return 1
	}

	if err := os.WriteFile(
		outvar, []byte(encoding.FormatProgram(result)+"\n"), 0666,
	); err != nil {
		log.Error("Error writing output file", "err", err)
		return 1
	}

	if debugvar {
		filename := replaceExt(outvar, ".icdb")
		file, err := os.Create(filename)

		if err != nil {
			log.Error("Error creating symbol table", "err", err)
			return 1
		}

		defer file.Close()

		if err := assembler.WriteSymTable(file, symtable); err != nil {
			log.Error(err.Error())
			return 1
		}
	}

	return 0
}

func main() {
	log.Root().SetHandler(log.LvlFilterHandler(
		log.LvlInfo, log.StreamHandler(os.Stderr, log.TerminalFormat()),
	))

	os.Exit(intcodeAsm())
}
