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

	log "github.com/inconshreveable/log15"
	"github.com/pkg/errors"

	"github.com/lassandro/gointcode/pkg/machine"
)

// Value fed to a node that asks for input while its queue is empty
const NO_PACKET = -1

// Each packet is emitted as three consecutive outputs
const PACKET_SIZE = 3

type Packet struct {
	Dest int64
	X    int64
	Y    int64
}

type node struct {
	mc   *machine.Machine
	in   *machine.QueueInput
	out  machine.LogOutput
	idle bool
}

// A node never suspends on input: an empty queue reads as NO_PACKET and marks
// the node idle until it sends or receives a packet.
func (n *node) Read() (int64, bool) {
	if value, ok := n.in.Read(); ok {
		return value, true
	}

	n.idle = true
	return NO_PACKET, true
}

// Network drives several machines on a single goroutine, one instruction per
// machine per tick. Packets addressed to a node are queued as its input; any
// other destination goes to an outbox read with Poll.
type Network struct {
	Log log.Logger

	nodes  []*node
	outbox []Packet
}

// NewNetwork boots size copies of program. Every node receives its own
// address as its first input.
func NewNetwork(program []int64, size int) *Network {
	network := &Network{
		Log:   log.New("module", "network"),
		nodes: make([]*node, size),
	}

	for i := range network.nodes {
		network.nodes[i] = &node{
			mc: machine.New(program),
			in: machine.NewQueueInput(int64(i)),
		}
	}

	return network
}

func (network *Network) Size() int {
	return len(network.nodes)
}

func (network *Network) Send(packet Packet) error {
	if packet.Dest < 0 || packet.Dest >= int64(len(network.nodes)) {
		return errors.Errorf("No node at address %d", packet.Dest)
	}

	target := network.nodes[packet.Dest]
	target.in.Push(packet.X, packet.Y)
	target.idle = false
	return nil
}

// Poll returns the oldest packet addressed outside the network.
func (network *Network) Poll() (Packet, bool) {
	if len(network.outbox) == 0 {
		return Packet{}, false
	}

	packet := network.outbox[0]
	network.outbox = network.outbox[1:]
	return packet, true
}

// Idle reports whether every running node is waiting on an empty queue.
func (network *Network) Idle() bool {
	for _, n := range network.nodes {
		if !n.mc.Halted() && (!n.idle || n.in.Len() > 0) {
			return false
		}
	}

	return true
}

// Tick executes one instruction on every running node.
func (network *Network) Tick() error {
	for addr, n := range network.nodes {
		if n.mc.Halted() {
			continue
		}

		result, err := n.mc.Advance(n, &n.out)

		if err != nil {
			return errors.Wrapf(err, "node %d", addr)
		}

		switch result {
		case machine.RESULT_OUTPUT:
			n.idle = false

			if values := n.out.Values(); len(values) == PACKET_SIZE {
				packet := Packet{values[0], values[1], values[2]}
				n.out.Clear()

				network.Log.Debug(
					"packet",
					"from", addr,
					"dest", packet.Dest,
					"x", packet.X,
					"y", packet.Y,
				)

				if err := network.Send(packet); err != nil {
					network.outbox = append(network.outbox, packet)
				}
			}

		case machine.RESULT_HALTED:
			network.Log.Debug("halted", "node", addr)
		}
	}

	return nil
}

// Run ticks until a packet leaves the network, the network goes idle, or ctx
// is done. The returned flag is false when no packet left the network.
func (network *Network) Run(ctx context.Context) (Packet, bool, error) {
	for {
		if packet, ok := network.Poll(); ok {
			return packet, true, nil
		}

		if err := ctx.Err(); err != nil {
			return Packet{}, false, err
		}

		if err := network.Tick(); err != nil {
			return Packet{}, false, err
		}

		if network.Idle() && len(network.outbox) == 0 {
			return Packet{}, false, nil
		}
	}
}
