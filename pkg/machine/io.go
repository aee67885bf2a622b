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
	"bufio"
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Input produces the next value for an IN instruction. Returning false is
// not an error: the machine suspends and the instruction is retried later.
type Input interface {
	Read() (int64, bool)
}

// Output accepts values emitted by OUT instructions.
type Output interface {
	Write(value int64)
}

// EmptyInput never has a value.
type EmptyInput struct{}

func (EmptyInput) Read() (int64, bool) {
	return 0, false
}

// QueueInput hands out pre-supplied values front to back.
type QueueInput struct {
	values []int64
}

func NewQueueInput(values ...int64) *QueueInput {
	queue := &QueueInput{}
	queue.Push(values...)
	return queue
}

func (q *QueueInput) Read() (int64, bool) {
	if len(q.values) == 0 {
		return 0, false
	}

	value := q.values[0]
	q.values = q.values[1:]
	return value, true
}

func (q *QueueInput) Push(values ...int64) {
	q.values = append(q.values, values...)
}

func (q *QueueInput) Len() int {
	return len(q.values)
}

// SingleInput yields its value once.
type SingleInput struct {
	value int64
	taken bool
}

func NewSingleInput(value int64) *SingleInput {
	return &SingleInput{value: value}
}

func (s *SingleInput) Read() (int64, bool) {
	if s.taken {
		return 0, false
	}

	s.taken = true
	return s.value, true
}

// RepeatInput yields the same value forever.
type RepeatInput int64

func (r RepeatInput) Read() (int64, bool) {
	return int64(r), true
}

// LineInput parses one base-10 integer per line of text. A read error or a
// malformed line ends the input; Err reports why.
type LineInput struct {
	scanner *bufio.Scanner
	err     error
}

func NewLineInput(r io.Reader) *LineInput {
	return &LineInput{scanner: bufio.NewScanner(r)}
}

func (l *LineInput) Read() (int64, bool) {
	if l.err != nil || !l.scanner.Scan() {
		if l.err == nil {
			l.err = l.scanner.Err()
		}
		return 0, false
	}

	line := strings.TrimSpace(l.scanner.Text())
	value, err := strconv.ParseInt(line, 10, 64)

	if err != nil {
		l.err = errors.Wrapf(err, "invalid input line %q", line)
		return 0, false
	}

	return value, true
}

func (l *LineInput) Err() error {
	return l.err
}

// ChanInput blocks until a value arrives. A closed channel or a finished
// context means no more input.
type ChanInput struct {
	ctx context.Context
	ch  <-chan int64
}

func NewChanInput(ctx context.Context, ch <-chan int64) *ChanInput {
	return &ChanInput{ctx, ch}
}

func (c *ChanInput) Read() (int64, bool) {
	select {
	case value, ok := <-c.ch:
		return value, ok
	case <-c.ctx.Done():
		return 0, false
	}
}

// MultiInput reads from each input in turn, moving on once one runs dry.
type MultiInput []Input

func (m MultiInput) Read() (int64, bool) {
	for _, in := range m {
		if value, ok := in.Read(); ok {
			return value, true
		}
	}

	return 0, false
}

// DiscardOutput drops every value.
type DiscardOutput struct{}

func (DiscardOutput) Write(int64) {}

// LogOutput keeps every emitted value in order.
type LogOutput struct {
	values []int64
}

func (l *LogOutput) Write(value int64) {
	l.values = append(l.values, value)
}

func (l *LogOutput) Values() []int64 {
	return l.values
}

// Clear starts a new log. Slices returned by Values before are left intact.
func (l *LogOutput) Clear() {
	l.values = nil
}

// LastOutput keeps only the most recent value.
type LastOutput struct {
	value int64
	set   bool
}

func (l *LastOutput) Write(value int64) {
	l.value = value
	l.set = true
}

func (l *LastOutput) Value() (int64, bool) {
	return l.value, l.set
}

// WriterOutput prints one value per line. The first write error is kept and
// further writes are dropped.
type WriterOutput struct {
	w   io.Writer
	err error
}

func NewWriterOutput(w io.Writer) *WriterOutput {
	return &WriterOutput{w: w}
}

func (o *WriterOutput) Write(value int64) {
	if o.err != nil {
		return
	}

	if _, err := io.WriteString(
		o.w, strconv.FormatInt(value, 10)+"\n",
	); err != nil {
		o.err = errors.Wrap(err, "write failed")
	}
}

func (o *WriterOutput) Err() error {
	return o.err
}

// ChanOutput sends every value on a channel, giving up once ctx is done.
type ChanOutput struct {
	ctx context.Context
	ch  chan<- int64
}

func NewChanOutput(ctx context.Context, ch chan<- int64) *ChanOutput {
	return &ChanOutput{ctx, ch}
}

func (c *ChanOutput) Write(value int64) {
	select {
	case c.ch <- value:
	case <-c.ctx.Done():
	}
}

// ASCIITranslator carries a line-oriented text protocol. As an Output it
// collects ASCII values as text and keeps anything else as a raw value; as an
// Input it feeds queued characters back one at a time.
type ASCIITranslator struct {
	text    strings.Builder
	values  []int64
	pending QueueInput
}

func NewASCIITranslator() *ASCIITranslator {
	return &ASCIITranslator{}
}

func (t *ASCIITranslator) Write(value int64) {
	if value >= 0 && value < 128 {
		t.text.WriteByte(byte(value))
	} else {
		t.values = append(t.values, value)
	}
}

func (t *ASCIITranslator) Read() (int64, bool) {
	return t.pending.Read()
}

// PushString queues s as input, terminated by a newline.
func (t *ASCIITranslator) PushString(s string) {
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}

	for _, c := range []byte(s) {
		t.pending.Push(int64(c))
	}
}

func (t *ASCIITranslator) String() string {
	return t.text.String()
}

// DrainString returns the collected text and forgets it.
func (t *ASCIITranslator) DrainString() string {
	s := t.text.String()
	t.text.Reset()
	return s
}

// Values returns the emitted values that were not ASCII characters.
func (t *ASCIITranslator) Values() []int64 {
	return t.values
}

func (t *ASCIITranslator) Pending() int {
	return t.pending.Len()
}

// Clear drops collected text and raw values. Queued input is kept.
func (t *ASCIITranslator) Clear() {
	t.text.Reset()
	t.values = nil
}
