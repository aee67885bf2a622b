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

package machine_test

import (
	"reflect"
	"testing"

	"github.com/pkg/errors"

	"github.com/lassandro/gointcode/pkg/machine"
)

type testMachineState struct {
	Cursor       int64
	RelativeBase int64
	Halted       bool
	Memory       map[int64]int64
}

type testCase struct {
	Name    string
	Steps   uint
	Program []int64
	Inputs  []int64
	Outputs []int64
	Result  machine.RunResult
	Input   testMachineState
	Output  testMachineState
}

func testMachineSuccess(t *testing.T, test *testCase) {
	mc := machine.New(test.Program)
	mc.SetCursor(test.Input.Cursor)
	mc.Memory().SetRelativeBase(test.Input.RelativeBase)

	for addr, value := range test.Input.Memory {
		mc.Memory().Write(addr, value)
	}

	in := machine.NewQueueInput(test.Inputs...)
	var out machine.LogOutput

	if test.Steps == 0 {
		test.Steps = 1
	}

	var result machine.RunResult
	for i := uint(0); i < test.Steps; i++ {
		result = mc.Step(in, &out)
	}

	if result != test.Result {
		t.Errorf(
			"Step result mismatch"+
				"\nwant:%s (test.Result)\nhave:%s",
			test.Result,
			result,
		)
	}

	if have := mc.Cursor(); have != test.Output.Cursor {
		t.Errorf(
			"Cursor mismatch"+
				"\nwant:%d (test.Output.Cursor)\nhave:%d",
			test.Output.Cursor,
			have,
		)
	}

	if have := mc.Memory().RelativeBase(); have != test.Output.RelativeBase {
		t.Errorf(
			"Relative base mismatch"+
				"\nwant:%d (test.Output.RelativeBase)\nhave:%d",
			test.Output.RelativeBase,
			have,
		)
	}

	if have := mc.Halted(); have != test.Output.Halted {
		t.Errorf(
			"Halted flag mismatch"+
				"\nwant:%t (test.Output.Halted)\nhave:%t",
			test.Output.Halted,
			have,
		)
	}

	if have := out.Values(); len(have) != 0 || len(test.Outputs) != 0 {
		if !reflect.DeepEqual(have, test.Outputs) {
			t.Errorf(
				"Output mismatch"+
					"\nwant:%v (test.Outputs)\nhave:%v",
				test.Outputs,
				have,
			)
		}
	}

	for i, value := range mc.Memory().Cells() {
		addr := int64(i)
		input, expectingInput := test.Input.Memory[addr]
		output, expectingOutput := test.Output.Memory[addr]

		if expectingOutput {
			// Value was supposed to change
			if value != output {
				t.Fatalf(
					"Memory value mismatch"+
						"\nwant:%d (test.Output.Memory[%d])\nhave:%d",
					output,
					addr,
					value,
				)
			}
		} else if expectingInput {
			// Value was supposed to remain
			if value != input {
				t.Fatalf(
					"Memory value mismatch"+
						"\nwant:%d (test.Input.Memory[%d])\nhave:%d",
					input,
					addr,
					value,
				)
			}
		} else if i < len(test.Program) {
			if value != test.Program[i] {
				t.Fatalf(
					"Program unexpectedly changed"+
						"\nwant:%d (test.Program[%d])\nhave:%d",
					test.Program[i],
					addr,
					value,
				)
			}
		} else if value != 0 {
			// Value was expected to remain unitialized
			t.Fatalf(
				"Memory unexpectedly changed"+
					"\nwant:0 (test.Output.Memory[%d])\nhave:%d",
				addr,
				value,
			)
		}
	}
}

func testSuccess(t *testing.T, tests []testCase) {
	t.Run("Success", func(t *testing.T) {
		for _, test := range tests {
			test := test
			t.Run(test.Name, func(t *testing.T) {
				testMachineSuccess(t, &test)
			})
		}
	})
}

func TestAdd(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name:    "ADD Position",
			Program: []int64{1, 0, 0, 0, 99},
			Output: testMachineState{
				Cursor: 4,
				Memory: map[int64]int64{0: 2},
			},
		},
		{
			Name:    "ADD Immediate",
			Program: []int64{1101, 2, 3, 5, 99, 0},
			Output: testMachineState{
				Cursor: 4,
				Memory: map[int64]int64{5: 5},
			},
		},
		{
			Name:    "ADD Negative",
			Program: []int64{1101, -5, 3, 5, 99, 0},
			Output: testMachineState{
				Cursor: 4,
				Memory: map[int64]int64{5: -2},
			},
		},
		{
			Name:    "ADD Relative Extends Memory",
			Steps:   2,
			Program: []int64{109, 7, 21201, 0, 7, 1, 99, 35},
			Output: testMachineState{
				Cursor:       6,
				RelativeBase: 7,
				Memory:       map[int64]int64{8: 42},
			},
		},
		{
			Name:    "ADD Cursor Offset",
			Program: []int64{99, 1101, 20, 22, 0},
			Input: testMachineState{
				Cursor: 1,
			},
			Output: testMachineState{
				Cursor: 5,
				Memory: map[int64]int64{0: 42},
			},
		},
	})
}

func TestMultiply(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name:    "MUL Position",
			Program: []int64{2, 3, 0, 3, 99},
			Output: testMachineState{
				Cursor: 4,
				Memory: map[int64]int64{3: 6},
			},
		},
		{
			Name:    "MUL Square",
			Program: []int64{2, 4, 4, 5, 99, 0},
			Output: testMachineState{
				Cursor: 4,
				Memory: map[int64]int64{5: 9801},
			},
		},
		{
			Name:    "MUL Mixed Modes",
			Program: []int64{1002, 4, 3, 4, 33},
			Output: testMachineState{
				Cursor: 4,
				Memory: map[int64]int64{4: 99},
			},
		},
		{
			Name:    "MUL Large",
			Program: []int64{1102, 34915192, 34915192, 7, 99, 0, 0, 0},
			Output: testMachineState{
				Cursor: 4,
				Memory: map[int64]int64{7: 1219070632396864},
			},
		},
	})
}

func TestCompare(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name:    "LT True",
			Program: []int64{1107, -3, 2, 5, 99, 7},
			Output: testMachineState{
				Cursor: 4,
				Memory: map[int64]int64{5: 1},
			},
		},
		{
			Name:    "LT Equal Operands",
			Program: []int64{1107, 2, 2, 5, 99, 7},
			Output: testMachineState{
				Cursor: 4,
				Memory: map[int64]int64{5: 0},
			},
		},
		{
			Name:    "EQ True",
			Program: []int64{1108, -4, -4, 5, 99, 7},
			Output: testMachineState{
				Cursor: 4,
				Memory: map[int64]int64{5: 1},
			},
		},
		{
			Name:    "EQ False",
			Program: []int64{1108, 4, -4, 5, 99, 7},
			Output: testMachineState{
				Cursor: 4,
				Memory: map[int64]int64{5: 0},
			},
		},
		{
			Name:    "EQ Position",
			Program: []int64{8, 5, 6, 7, 99, 12, 12, 3},
			Output: testMachineState{
				Cursor: 4,
				Memory: map[int64]int64{7: 1},
			},
		},
	})
}

func TestJump(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name:    "JT Taken",
			Program: []int64{1105, 1, 7, 99, 0, 0, 0, 99},
			Output:  testMachineState{Cursor: 7},
		},
		{
			Name:    "JT Not Taken",
			Program: []int64{1105, 0, 7, 99},
			Output:  testMachineState{Cursor: 3},
		},
		{
			Name:    "JF Taken",
			Program: []int64{1106, 0, 9, 99},
			Output:  testMachineState{Cursor: 9},
		},
		{
			Name:    "JF Not Taken",
			Program: []int64{1106, 5, 9, 99},
			Output:  testMachineState{Cursor: 3},
		},
		{
			Name:    "JT Position",
			Program: []int64{5, 5, 6, 99, 0, 1, 10},
			Output:  testMachineState{Cursor: 10},
		},
		{
			Name:    "JT Jump To Self",
			Steps:   5,
			Program: []int64{1105, 1, 0},
			Output:  testMachineState{Cursor: 0},
		},
	})
}

func TestAdjustRelativeBase(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name:    "ARB Immediate",
			Program: []int64{109, 19, 99},
			Output: testMachineState{
				Cursor:       2,
				RelativeBase: 19,
			},
		},
		{
			Name:    "ARB Negative",
			Program: []int64{109, -3, 99},
			Output: testMachineState{
				Cursor:       2,
				RelativeBase: -3,
			},
		},
		{
			Name:    "ARB Then Relative Output",
			Steps:   2,
			Program: []int64{109, 19, 204, -34, 99},
			Outputs: []int64{42},
			Result:  machine.RESULT_OUTPUT,
			Input: testMachineState{
				RelativeBase: 2000,
				Memory:       map[int64]int64{1985: 42},
			},
			Output: testMachineState{
				Cursor:       4,
				RelativeBase: 2019,
			},
		},
		{
			Name:    "ARB Relative Parameter",
			Steps:   2,
			Program: []int64{109, 5, 209, -1, 99},
			Output: testMachineState{
				Cursor:       4,
				RelativeBase: 104,
			},
		},
	})
}

func TestInputOutput(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name:    "IN Then OUT",
			Steps:   3,
			Program: []int64{3, 0, 4, 0, 99},
			Inputs:  []int64{7},
			Outputs: []int64{7},
			Result:  machine.RESULT_HALTED,
			Output: testMachineState{
				Cursor: 4,
				Halted: true,
				Memory: map[int64]int64{0: 7},
			},
		},
		{
			Name:    "IN Without Input",
			Steps:   3,
			Program: []int64{3, 0, 4, 0, 99},
			Result:  machine.RESULT_INPUT_REQUEST,
			Output:  testMachineState{Cursor: 0},
		},
		{
			Name:    "IN Relative",
			Steps:   2,
			Program: []int64{109, 5, 203, 3, 99},
			Inputs:  []int64{11},
			Output: testMachineState{
				Cursor:       4,
				RelativeBase: 5,
				Memory:       map[int64]int64{8: 11},
			},
		},
		{
			Name:    "OUT Immediate Large",
			Program: []int64{104, 1125899906842624, 99},
			Outputs: []int64{1125899906842624},
			Result:  machine.RESULT_OUTPUT,
			Output:  testMachineState{Cursor: 2},
		},
		{
			Name:    "OUT Past End Of Program",
			Program: []int64{4, 50, 99},
			Outputs: []int64{0},
			Result:  machine.RESULT_OUTPUT,
			Output:  testMachineState{Cursor: 2},
		},
	})
}

func TestHalt(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name:    "HALT",
			Program: []int64{99},
			Result:  machine.RESULT_HALTED,
			Output: testMachineState{
				Halted: true,
			},
		},
		{
			Name:    "HALT Repeated",
			Steps:   4,
			Program: []int64{99, 1, 0, 0, 0},
			Result:  machine.RESULT_HALTED,
			Output: testMachineState{
				Halted: true,
			},
		},
		{
			Name:    "HALT With Mode Digits",
			Program: []int64{22299},
			Result:  machine.RESULT_HALTED,
			Output: testMachineState{
				Halted: true,
			},
		},
	})
}

func TestFatal(t *testing.T) {
	tests := []struct {
		Name    string
		Program []int64
		Inputs  []int64
		Error   error
	}{
		{"Invalid Opcode", []int64{98}, nil, &machine.InvalidOpcodeError{}},
		{"Negative Opcode", []int64{-1}, nil, &machine.InvalidOpcodeError{}},
		{"Data As Code", []int64{1101, 0, 0, 4, 99}, nil, &machine.InvalidOpcodeError{}},
		{"Invalid Mode", []int64{301, 0, 0, 0, 99}, nil, &machine.InvalidModeError{}},
		{"Invalid Third Mode", []int64{30001, 0, 0, 0, 99}, nil, &machine.InvalidModeError{}},
		{"Negative Read", []int64{4, -1, 99}, nil, &machine.InvalidAddressError{}},
		{"Negative Write", []int64{1101, 1, 1, -1, 99}, nil, &machine.InvalidAddressError{}},
		{"Negative Relative Base", []int64{109, -5, 204, 1, 99}, nil, &machine.InvalidAddressError{}},
		{"Negative Jump", []int64{1105, 1, -3}, nil, &machine.InvalidAddressError{}},
		{"Immediate Destination", []int64{11101, 1, 1, 3, 99}, nil, &machine.ImmediateWriteError{}},
		{"Immediate Input", []int64{103, 5, 99}, []int64{1}, &machine.ImmediateWriteError{}},
		{"Input Exhausted", []int64{3, 0, 99}, nil, &machine.InputExhaustedError{}},
	}

	for _, test := range tests {
		test := test
		t.Run(test.Name, func(t *testing.T) {
			mc := machine.New(test.Program)
			err := mc.Run(
				machine.NewQueueInput(test.Inputs...), machine.DiscardOutput{},
			)

			if err == nil {
				t.Fatal("Expected an error, have nil")
			}

			want := reflect.TypeOf(test.Error)
			have := reflect.TypeOf(errors.Cause(err))

			if want != have {
				t.Fatalf(
					"Error type mismatch\nwant:%s\nhave:%s (%v)",
					want,
					have,
					err,
				)
			}
		})
	}
}

func TestStepPanics(t *testing.T) {
	mc := machine.New([]int64{98})

	defer func() {
		if _, ok := recover().(*machine.InvalidOpcodeError); !ok {
			t.Fatal("Expected Step to panic with *InvalidOpcodeError")
		}
	}()

	mc.Step(machine.EmptyInput{}, machine.DiscardOutput{})
}

func runProgram(t *testing.T, program []int64, inputs ...int64) (*machine.Machine, []int64) {
	t.Helper()

	mc := machine.New(program)
	var out machine.LogOutput

	if err := mc.Run(machine.NewQueueInput(inputs...), &out); err != nil {
		t.Fatalf("%+v", err)
	}

	return mc, out.Values()
}

func TestRunToCompletion(t *testing.T) {
	tests := []struct {
		Program []int64
		Memory  []int64
	}{
		{
			[]int64{1, 0, 0, 0, 99},
			[]int64{2, 0, 0, 0, 99},
		},
		{
			[]int64{1, 9, 10, 3, 2, 3, 11, 0, 99, 30, 40, 50},
			[]int64{3500, 9, 10, 70, 2, 3, 11, 0, 99, 30, 40, 50},
		},
		{
			[]int64{1, 1, 1, 4, 99, 5, 6, 0, 99},
			[]int64{30, 1, 1, 4, 2, 5, 6, 0, 99},
		},
		{
			[]int64{1101, 100, -1, 4, 0},
			[]int64{1101, 100, -1, 4, 99},
		},
	}

	for _, test := range tests {
		mc, _ := runProgram(t, test.Program)

		if have := mc.Memory().Cells(); !reflect.DeepEqual(have, test.Memory) {
			t.Errorf(
				"Memory mismatch\nwant:%v\nhave:%v", test.Memory, have,
			)
		}

		if !mc.Halted() {
			t.Error("Machine not halted after Run")
		}
	}
}

func TestComparisonsYieldWords(t *testing.T) {
	operands := []int64{-1 << 40, -7, -1, 0, 1, 7, 1 << 40}

	for _, a := range operands {
		for _, b := range operands {
			for _, op := range []int64{1107, 1108} {
				mc, _ := runProgram(t, []int64{op, a, b, 5, 99, -9})
				have := mc.Memory().Read(5)

				var want int64
				if (op == 1107 && a < b) || (op == 1108 && a == b) {
					want = 1
				}

				if have != want {
					t.Errorf(
						"%d(%d, %d)\nwant:%d\nhave:%d", op, a, b, want, have,
					)
				}
			}
		}
	}
}

func TestSuspendResume(t *testing.T) {
	mc := machine.New([]int64{3, 0, 4, 0, 99})
	var out machine.LogOutput

	result, err := mc.RunUntilInputExhausted(machine.EmptyInput{}, &out)

	if err != nil {
		t.Fatal(err)
	}

	if result != machine.RESULT_INPUT_REQUEST || mc.Cursor() != 0 {
		t.Fatalf(
			"Expected suspension on the IN instruction\nhave:%s @%d",
			result,
			mc.Cursor(),
		)
	}

	if len(out.Values()) != 0 {
		t.Fatalf("Unexpected output %v", out.Values())
	}

	result, err = mc.RunUntilInputExhausted(machine.NewQueueInput(7), &out)

	if err != nil {
		t.Fatal(err)
	}

	if result != machine.RESULT_HALTED {
		t.Fatalf("Expected halt, have %s", result)
	}

	for i := 0; i < 3; i++ {
		if result := mc.Step(machine.NewQueueInput(8), &out); result != machine.RESULT_HALTED {
			t.Fatalf("Expected halt, have %s", result)
		}

		if _, err := mc.RunUntilInputExhausted(machine.RepeatInput(1), &out); err != nil {
			t.Fatal(err)
		}
	}

	if want := []int64{7}; !reflect.DeepEqual(out.Values(), want) {
		t.Fatalf("Output mismatch\nwant:%v\nhave:%v", want, out.Values())
	}
}

func TestRunSingleInput(t *testing.T) {
	// in, out, in, out, halt
	mc := machine.New([]int64{3, 9, 4, 9, 3, 9, 4, 9, 99, 0})
	in := machine.NewQueueInput(5, 6)
	var out machine.LogOutput

	result, err := mc.RunSingleInput(in, &out)

	if err != nil {
		t.Fatal(err)
	}

	if result != machine.RESULT_CONTINUE || mc.Cursor() != 2 || in.Len() != 1 {
		t.Fatalf(
			"Expected to stop after one input\nhave:%s @%d, %d pending",
			result,
			mc.Cursor(),
			in.Len(),
		)
	}

	result, err = mc.RunSingleInput(in, &out)

	if err != nil {
		t.Fatal(err)
	}

	if result != machine.RESULT_CONTINUE || mc.Cursor() != 6 {
		t.Fatalf("have:%s @%d", result, mc.Cursor())
	}

	if result, _ = mc.RunSingleInput(in, &out); result != machine.RESULT_HALTED {
		t.Fatalf("Expected halt, have %s", result)
	}

	if want := []int64{5, 6}; !reflect.DeepEqual(out.Values(), want) {
		t.Fatalf("Output mismatch\nwant:%v\nhave:%v", want, out.Values())
	}
}

func TestRelativeWrite(t *testing.T) {
	const value = 31337

	for _, n := range []int64{0, 1, 7, 250, -3, -40} {
		for _, m := range []int64{5, 10, 60, 1000} {
			if n+m < 5 {
				continue
			}

			mc, _ := runProgram(t, []int64{109, n, 203, m, 99}, value)

			if have := mc.Memory().Read(n + m); have != value {
				t.Errorf(
					"base %d offset %d\nwant:%d @%d\nhave:%d",
					n, m, value, n+m, have,
				)
			}

			if have := mc.Memory().RelativeBase(); have != n {
				t.Errorf("Relative base mismatch\nwant:%d\nhave:%d", n, have)
			}
		}
	}
}

func TestSelfModifying(t *testing.T) {
	// The ADD rewrites the HALT at address 4 into an immediate OUT.
	_, out := runProgram(t, []int64{1101, 100, 4, 4, 99, 7, 99})

	if want := []int64{7}; !reflect.DeepEqual(out, want) {
		t.Fatalf("Output mismatch\nwant:%v\nhave:%v", want, out)
	}
}

func TestQuine(t *testing.T) {
	program := []int64{
		109, 1, 204, -1, 1001, 100, 1, 100, 1008, 100, 16, 101, 1006, 101, 0, 99,
	}

	_, out := runProgram(t, program)

	if !reflect.DeepEqual(out, program) {
		t.Fatalf("Output mismatch\nwant:%v\nhave:%v", program, out)
	}
}

func TestCompareInput(t *testing.T) {
	tests := []struct {
		Name    string
		Program []int64
		Input   int64
		Output  int64
	}{
		{"Position EQ 8", []int64{3, 9, 8, 9, 10, 9, 4, 9, 99, -1, 8}, 8, 1},
		{"Position EQ 8 False", []int64{3, 9, 8, 9, 10, 9, 4, 9, 99, -1, 8}, 5, 0},
		{"Position LT 8", []int64{3, 9, 7, 9, 10, 9, 4, 9, 99, -1, 8}, 5, 1},
		{"Immediate EQ 8", []int64{3, 3, 1108, -1, 8, 3, 4, 3, 99}, 8, 1},
		{"Immediate LT 8", []int64{3, 3, 1107, -1, 8, 3, 4, 3, 99}, 9, 0},
		{"Jump Position Zero", []int64{3, 12, 6, 12, 15, 1, 13, 14, 13, 4, 13, 99, -1, 0, 1, 9}, 0, 0},
		{"Jump Position Nonzero", []int64{3, 12, 6, 12, 15, 1, 13, 14, 13, 4, 13, 99, -1, 0, 1, 9}, 3, 1},
		{"Jump Immediate Zero", []int64{3, 3, 1105, -1, 9, 1101, 0, 0, 12, 4, 12, 99, 1}, 0, 0},
		{"Jump Immediate Nonzero", []int64{3, 3, 1105, -1, 9, 1101, 0, 0, 12, 4, 12, 99, 1}, -2, 1},
	}

	larger := []int64{
		3, 21, 1008, 21, 8, 20, 1005, 20, 22, 107, 8, 21, 20, 1006, 20, 31,
		1106, 0, 36, 98, 0, 0, 1002, 21, 125, 20, 4, 20, 1105, 1, 46, 104,
		999, 1105, 1, 46, 1101, 1000, 1, 20, 4, 20, 1105, 1, 46, 98, 99,
	}

	for input, output := range map[int64]int64{7: 999, 8: 1000, 9: 1001} {
		tests = append(tests, struct {
			Name    string
			Program []int64
			Input   int64
			Output  int64
		}{"Around 8", larger, input, output})
	}

	for _, test := range tests {
		_, out := runProgram(t, test.Program, test.Input)

		if len(out) != 1 || out[0] != test.Output {
			t.Errorf(
				"%s(%d)\nwant:[%d]\nhave:%v",
				test.Name,
				test.Input,
				test.Output,
				out,
			)
		}
	}
}

func TestClone(t *testing.T) {
	mc := machine.New([]int64{3, 9, 4, 9, 1105, 1, 0, 99, 0, 0})

	if result, _ := mc.RunUntilInputExhausted(
		machine.NewQueueInput(1), machine.DiscardOutput{},
	); result != machine.RESULT_INPUT_REQUEST {
		t.Fatalf("Expected input request, have %s", result)
	}

	clone := mc.Clone()
	var a, b machine.LogOutput

	mc.RunUntilInputExhausted(machine.NewQueueInput(2), &a)
	clone.RunUntilInputExhausted(machine.NewQueueInput(3), &b)

	if a.Values()[0] != 2 || b.Values()[0] != 3 {
		t.Fatalf("Clones share state: %v %v", a.Values(), b.Values())
	}

	if mc.Memory().Read(9) != 2 || clone.Memory().Read(9) != 3 {
		t.Fatal("Clones share memory")
	}
}

func TestAdvance(t *testing.T) {
	mc := machine.New([]int64{104, 3, 98})
	var out machine.LogOutput

	result, err := mc.Advance(machine.EmptyInput{}, &out)

	if err != nil || result != machine.RESULT_OUTPUT {
		t.Fatalf("want:%s\nhave:%s (%v)", machine.RESULT_OUTPUT, result, err)
	}

	_, err = mc.Advance(machine.EmptyInput{}, &out)

	if _, ok := errors.Cause(err).(*machine.InvalidOpcodeError); !ok {
		t.Fatalf("Expected *InvalidOpcodeError, have %v", err)
	}

	if mc.Cursor() != 2 {
		t.Fatalf("Cursor moved on a fatal step: %d", mc.Cursor())
	}
}
