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

package pipeline_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lassandro/gointcode/pkg/assembler"
	"github.com/lassandro/gointcode/pkg/machine"
	"github.com/lassandro/gointcode/pkg/pipeline"
)

var chainPrograms = []struct {
	Program []int64
	Phases  []int64
	Signal  int64
}{
	{
		[]int64{3, 15, 3, 16, 1002, 16, 10, 16, 1, 16, 15, 15, 4, 15, 99, 0, 0},
		[]int64{4, 3, 2, 1, 0},
		43210,
	},
	{
		[]int64{
			3, 23, 3, 24, 1002, 24, 10, 24, 1002, 23, -1, 23, 101, 5, 23, 23, 1,
			24, 23, 23, 4, 23, 99, 0, 0,
		},
		[]int64{0, 1, 2, 3, 4},
		54321,
	},
}

var feedbackProgram = []int64{
	3, 26, 1001, 26, -4, 26, 3, 27, 1002, 27, 2, 27, 1, 27, 26, 27, 4, 27, 1001,
	28, -1, 28, 1005, 28, 6, 99, 0, 0, 5,
}

func TestFeedbackChain(t *testing.T) {
	for _, test := range chainPrograms {
		signal, err := pipeline.Feedback(context.Background(), test.Program, test.Phases)

		require.NoError(t, err)
		assert.Equal(t, test.Signal, signal)
	}
}

func TestFeedbackLoop(t *testing.T) {
	signal, err := pipeline.Feedback(
		context.Background(), feedbackProgram, []int64{9, 8, 7, 6, 5},
	)

	require.NoError(t, err)
	assert.Equal(t, int64(139629729), signal)
}

func TestSearch(t *testing.T) {
	ctx := context.Background()

	best, phases, err := pipeline.Search(
		ctx, chainPrograms[0].Program, []int64{0, 1, 2, 3, 4},
	)
	require.NoError(t, err)
	assert.Equal(t, int64(43210), best)
	assert.Equal(t, []int64{4, 3, 2, 1, 0}, phases)

	best, phases, err = pipeline.Search(ctx, feedbackProgram, []int64{5, 6, 7, 8, 9})
	require.NoError(t, err)
	assert.Equal(t, int64(139629729), best)
	assert.Equal(t, []int64{9, 8, 7, 6, 5}, phases)
}

func TestFeedbackErrors(t *testing.T) {
	_, err := pipeline.Feedback(context.Background(), []int64{99}, nil)
	assert.Error(t, err)

	_, err = pipeline.Feedback(context.Background(), []int64{98}, []int64{0, 1})
	assert.IsType(t, &machine.InvalidOpcodeError{}, errors.Cause(err))

	// Halts without output
	_, err = pipeline.Feedback(context.Background(), []int64{3, 0, 99}, []int64{0})
	assert.Error(t, err)
}

func TestFeedbackCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// Both machines end up waiting on each other
	_, err := pipeline.Feedback(ctx, []int64{3, 0, 3, 0, 3, 0, 99}, []int64{1, 2})
	assert.Equal(t, context.DeadlineExceeded, err)
}

// Forwards each packet to the next node with Y incremented; the last node
// sends to 255.
const relay = `
        in addr
loop:   in x
        eq x, #-1, tmp
        jt tmp, #loop
        in y
        add y, #1, y
        add addr, #1, dest
        eq dest, #3, tmp
        jf tmp, #send
        add #255, #0, dest
send:   out dest
        out x
        out y
        jt #1, #loop
addr:   .data 0
x:      .data 0
y:      .data 0
dest:   .data 0
tmp:    .data 0
`

func TestNetwork(t *testing.T) {
	program, errs := assembler.Assemble(strings.NewReader(relay), nil)
	require.Empty(t, errs)

	network := pipeline.NewNetwork(program, 3)
	require.Equal(t, 3, network.Size())
	require.Error(t, network.Send(pipeline.Packet{Dest: 3}))

	for i := 0; i < 10; i++ {
		require.NoError(t, network.Tick())
	}

	require.NoError(t, network.Send(pipeline.Packet{Dest: 0, X: 7, Y: 10}))

	packet, ok, err := network.Run(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, pipeline.Packet{Dest: 255, X: 7, Y: 13}, packet)

	_, ok, err = network.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, network.Idle())

	_, ok = network.Poll()
	assert.False(t, ok)
}

func TestNetworkFatal(t *testing.T) {
	network := pipeline.NewNetwork([]int64{98}, 2)
	err := network.Tick()

	assert.IsType(t, &machine.InvalidOpcodeError{}, errors.Cause(err))
}
