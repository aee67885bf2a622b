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

package pipeline

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/lassandro/gointcode/pkg/machine"
)

// Room for a phase setting, the seed and one value in flight
const LINK_BUFFER = 3

type teeOutput []machine.Output

func (tee teeOutput) Write(value int64) {
	for _, out := range tee {
		out.Write(value)
	}
}

// Feedback runs one copy of program per phase setting, each in its own
// goroutine, with every machine's output feeding the next machine's input and
// the last machine feeding the first. Each machine receives its phase setting
// as its first input; the first machine then receives 0. Feedback returns the
// last value emitted by the final machine once every machine has halted.
//
// A program that halts after a single output makes this a one-pass chain.
func Feedback(ctx context.Context, program []int64, phases []int64) (int64, error) {
	if len(phases) == 0 {
		return 0, errors.New("No phase settings")
	}

	g, gctx := errgroup.WithContext(ctx)

	links := make([]chan int64, len(phases))
	for i, phase := range phases {
		links[i] = make(chan int64, LINK_BUFFER)
		links[i] <- phase
	}

	links[0] <- 0

	var last machine.LastOutput

	for i := range phases {
		i := i
		mc := machine.New(program)
		next := links[(i+1)%len(links)]

		in := machine.NewChanInput(gctx, links[i])
		var out machine.Output = machine.NewChanOutput(gctx, next)

		if i == len(phases)-1 {
			out = teeOutput{&last, out}
		}

		g.Go(func() error {
			err := mc.Run(in, out)

			// Whatever is still sent to a halted machine is dropped, so that
			// the machine upstream never blocks on it.
			close(next)
			for range links[i] {
			}

			return errors.Wrapf(err, "machine %d", i)
		})
	}

	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}

		return 0, err
	}

	value, ok := last.Value()

	if !ok {
		return 0, errors.New("Final machine produced no output")
	}

	return value, nil
}

// Search tries every ordering of settings with Feedback and returns the
// largest result along with the ordering that produced it.
func Search(ctx context.Context, program []int64, settings []int64) (best int64, phases []int64, err error) {
	found := false

	permute(append([]int64(nil), settings...), 0, func(order []int64) bool {
		var value int64

		if value, err = Feedback(ctx, program, order); err != nil {
			return false
		}

		if !found || value > best {
			best = value
			phases = append(phases[:0], order...)
			found = true
		}

		return true
	})

	if err != nil {
		return 0, nil, err
	}

	return best, phases, nil
}

// Visits every permutation of values[k:] in place. Stops when visit returns
// false.
func permute(values []int64, k int, visit func([]int64) bool) bool {
	if k == len(values) {
		return visit(values)
	}

	for i := k; i < len(values); i++ {
		values[k], values[i] = values[i], values[k]

		if !permute(values, k+1, visit) {
			return false
		}

		values[k], values[i] = values[i], values[k]
	}

	return true
}
