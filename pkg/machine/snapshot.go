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
	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
)

type MachineState struct {
	Cursor       int64   `cbor:"1,keyasint"`
	RelativeBase int64   `cbor:"2,keyasint"`
	Halted       bool    `cbor:"3,keyasint"`
	Memory       []int64 `cbor:"4,keyasint"`
}

var snapshotMode cbor.EncMode

func init() {
	mode, err := cbor.CanonicalEncOptions().EncMode()

	if err != nil {
		panic(err)
	}

	snapshotMode = mode
}

func (mc *Machine) State() MachineState {
	cells := make([]int64, mc.memory.Len())
	copy(cells, mc.memory.Cells())

	return MachineState{
		Cursor:       mc.cursor,
		RelativeBase: mc.memory.RelativeBase(),
		Halted:       mc.halted,
		Memory:       cells,
	}
}

// Snapshot encodes the full machine state, so that a suspended machine can be
// resumed in another process.
func (mc *Machine) Snapshot() ([]byte, error) {
	data, err := snapshotMode.Marshal(mc.State())
	return data, errors.Wrap(err, "snapshot failed")
}

func FromState(state MachineState) *Machine {
	mc := &Machine{}
	mc.Reset(state)
	return mc
}

// Reset replaces the whole machine state. The debugger is kept.
func (mc *Machine) Reset(state MachineState) {
	mc.attach(NewMemory(state.Memory))
	mc.memory.SetRelativeBase(state.RelativeBase)
	mc.cursor = state.Cursor
	mc.halted = state.Halted
}

func DecodeState(data []byte) (MachineState, error) {
	var state MachineState

	if err := cbor.Unmarshal(data, &state); err != nil {
		return state, errors.Wrap(err, "restore failed")
	}

	if state.Cursor < 0 {
		return state, errors.WithStack(&InvalidAddressError{state.Cursor})
	}

	return state, nil
}

func Restore(data []byte) (*Machine, error) {
	state, err := DecodeState(data)

	if err != nil {
		return nil, err
	}

	return FromState(state), nil
}
