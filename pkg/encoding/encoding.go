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

package encoding

import (
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Decodes program text: base-10 integers separated by commas, surrounding
// whitespace ignored.
func ParseProgram(src string) ([]int64, error) {
	src = strings.TrimSpace(src)

	if src == "" {
		return nil, errors.New("Empty program")
	}

	items := strings.Split(src, ",")
	program := make([]int64, len(items))

	for i, item := range items {
		value, err := strconv.ParseInt(strings.TrimSpace(item), 10, 64)

		if err != nil {
			return nil, errors.Wrapf(err, "Invalid program item %d", i)
		}

		program[i] = value
	}

	return program, nil
}

func ReadProgram(reader io.Reader) ([]int64, error) {
	src, err := io.ReadAll(reader)

	if err != nil {
		return nil, errors.Wrap(err, "Error reading program")
	}

	return ParseProgram(string(src))
}

func FormatProgram(program []int64) string {
	var builder strings.Builder

	for i, value := range program {
		if i > 0 {
			builder.WriteByte(',')
		}
		builder.WriteString(strconv.FormatInt(value, 10))
	}

	return builder.String()
}

// Decodes a base-10 string in the formats: #123, 123, -123
func DecodeInt(s string) (int64, error) {
	if i := strings.Index(s, "#"); i == 0 {
		s = s[1:]
	}

	result, err := strconv.ParseInt(s, 10, 64)

	if err != nil {
		return 0, err
	}

	return result, nil
}

// Decodes a tape address in the formats: 123, 0x7B, x7B
func DecodeAddress(s string) (int64, error) {
	var result int64
	var err error

	if i := strings.IndexAny(s, "xX"); i == 0 {
		result, err = strconv.ParseInt(s[1:], 16, 64)
	} else if i == 1 && s[0] == '0' {
		result, err = strconv.ParseInt(s[2:], 16, 64)
	} else if i == -1 {
		result, err = strconv.ParseInt(s, 10, 64)
	} else {
		return 0, errors.New("Invalid address string")
	}

	if err != nil {
		return 0, err
	}

	if result < 0 {
		return 0, errors.Errorf("Negative address %d", result)
	}

	return result, nil
}
