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
	"io"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// TOML keys are strings, so addresses are written in base 10.
type symTableFile struct {
	Source  string            `toml:"source"`
	Symbols map[string]int64  `toml:"symbols"`
	Labels  map[string]string `toml:"labels"`
}

func NewSymTable(source string) *SymTable {
	return &SymTable{
		Source:  source,
		Symbols: make(map[int64]int64),
		Labels:  make(map[int64]string),
	}
}

// Returns the address a label was declared at.
func (symtable *SymTable) Address(label string) (int64, bool) {
	for addr, name := range symtable.Labels {
		if name == label {
			return addr, true
		}
	}

	return 0, false
}

func WriteSymTable(w io.Writer, symtable *SymTable) error {
	file := symTableFile{
		Source:  symtable.Source,
		Symbols: make(map[string]int64, len(symtable.Symbols)),
		Labels:  make(map[string]string, len(symtable.Labels)),
	}

	for addr, offset := range symtable.Symbols {
		file.Symbols[strconv.FormatInt(addr, 10)] = offset
	}

	for addr, label := range symtable.Labels {
		file.Labels[strconv.FormatInt(addr, 10)] = label
	}

	return errors.Wrap(
		toml.NewEncoder(w).Encode(file), "Error writing symbol table",
	)
}

func ReadSymTable(r io.Reader) (*SymTable, error) {
	var file symTableFile

	if _, err := toml.NewDecoder(r).Decode(&file); err != nil {
		return nil, errors.Wrap(err, "Error reading symbol table")
	}

	symtable := NewSymTable(file.Source)

	for key, offset := range file.Symbols {
		addr, err := strconv.ParseInt(key, 10, 64)

		if err != nil {
			return nil, errors.Wrapf(err, "Invalid symbol address %q", key)
		}

		symtable.Symbols[addr] = offset
	}

	for key, label := range file.Labels {
		addr, err := strconv.ParseInt(key, 10, 64)

		if err != nil {
			return nil, errors.Wrapf(err, "Invalid label address %q", key)
		}

		symtable.Labels[addr] = label
	}

	return symtable, nil
}
