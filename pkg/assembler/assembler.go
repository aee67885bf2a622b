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
	"bufio"
	"io"
	"strings"
	"unicode"

	"github.com/pkg/errors"

	"github.com/lassandro/gointcode/pkg/encoding"
	"github.com/lassandro/gointcode/pkg/machine"
)

// Operand index each opcode writes its result through
var destinations = map[machine.Opcode]int{
	machine.OP_ADD: 2,
	machine.OP_MUL: 2,
	machine.OP_LT:  2,
	machine.OP_EQ:  2,
	machine.OP_IN:  0,
}

// An operand carries either its value or a label reference that is resolved
// once the whole source has been read. For label references Value holds the
// offset added to the label address.
type operand struct {
	Mode     machine.ParameterMode
	Value    int64
	Label    string
	Position Cursor
}

func parseDirective(ident string) DirectiveType {
	if strings.EqualFold(ident, ".DATA") {
		return DIRECTIVE_DATA
	} else if strings.EqualFold(ident, ".ZERO") {
		return DIRECTIVE_ZERO
	}

	return DIRECTIVE_INVALID
}

func parseInstruction(ident string) (machine.Opcode, bool) {
	return machine.OpcodeByName(strings.ToLower(ident))
}

func isLabel(s string) bool {
	if s == "" {
		return false
	}

	for i, char := range s {
		switch {
		case char == '_':
		case char <= unicode.MaxASCII && unicode.IsLetter(char):
		case i > 0 && char >= '0' && char <= '9':
		default:
			return false
		}
	}

	return true
}

func parseOperand(token *Token) (op operand, err error) {
	op.Position = token.Position
	body := token.Value

	switch token.Type {
	case TOKEN_IMMEDIATE:
		op.Mode = machine.MODE_IMMEDIATE
		body = body[1:]
	case TOKEN_RELATIVE:
		op.Mode = machine.MODE_RELATIVE
		body = body[1:]
	case TOKEN_LITERAL, TOKEN_IDENT:
		op.Mode = machine.MODE_POSITION
	default:
		return op, &InvalidOperandError{
			token.Position,
			[]TokenType{
				TOKEN_LITERAL, TOKEN_IDENT, TOKEN_IMMEDIATE, TOKEN_RELATIVE,
			},
			token.Type,
		}
	}

	if body == "" {
		return op, &InvalidLiteralError{token.Position}
	}

	if c := body[0]; c == '-' || c == '+' || (c >= '0' && c <= '9') {
		if op.Value, err = encoding.DecodeInt(body); err != nil {
			return op, &InvalidLiteralError{token.Position}
		}

		return op, nil
	}

	op.Label = body

	// label+n, label-n
	if i := strings.IndexAny(body, "+-"); i > 0 {
		op.Label = body[:i]

		if op.Value, err = encoding.DecodeInt(body[i:]); err != nil {
			return op, &InvalidLiteralError{token.Position}
		}
	}

	if !isLabel(op.Label) {
		return op, &UnknownIdentifierError{token.Position, op.Label}
	}

	return op, nil
}

// Assemble translates Intcode assembly into a program. Every error found is
// collected; a program is only usable when errs is empty.
func Assemble(input io.Reader, symtable *SymTable) (result []int64, errs []error) {
	type LabelRef struct {
		Label    string
		Offset   int64
		Addr     int64
		Position Cursor
	}

	var labels = make(map[string]int64)
	var labelRefs []LabelRef

	var builder strings.Builder
	var scanner = bufio.NewScanner(input)

	var cursor = Cursor{Line: 1, Column: 0, Size: 0, Byte: 0}

	result = make([]int64, 0)
	errs = make([]error, 0)

	if symtable != nil {
		if symtable.Symbols == nil {
			symtable.Symbols = make(map[int64]int64)
		}

		if symtable.Labels == nil {
			symtable.Labels = make(map[int64]string)
		}
	}

	emit := func(op operand) {
		if op.Label != "" {
			labelRefs = append(
				labelRefs,
				LabelRef{op.Label, op.Value, int64(len(result)), op.Position},
			)
			result = append(result, 0)
		} else {
			result = append(result, op.Value)
		}
	}

	// Process:
	// - Parse line
	// - Assemble line
	for scanner.Scan() {
		var tokens = make([]Token, 0, 5)
		var tokenStart int = 0
		var tokenType TokenType = TOKEN_NONE
		var separated bool = false

		var lineErrs = len(errs)

		line := scanner.Text()
		builder.Grow(len(line))

		cursor.Size = int64(len(line))

		flushToken := func() {
			if builder.Len() > 0 {
				var token Token
				token.Position = Cursor{
					Line:     cursor.Line,
					Column:   tokenStart,
					Byte:     cursor.Byte + int64(tokenStart-1),
					Size:     int64(builder.Len()),
					LineByte: cursor.Byte,
				}
				token.Type = tokenType
				token.Value = builder.String()
				tokens = append(tokens, token)
				builder.Reset()
			}

			tokenType = TOKEN_NONE
		}

		// Parse Line:
		// - Gather tokens and their types
		// - Check for syntax errors
		for column, char := range line {
			cursor.Column = column + 1

			var flush bool = false
			var skip bool = false
			var starting bool = tokenType == TOKEN_NONE

			if starting {
				tokenStart = cursor.Column
			}

			switch {
			// Whitespace
			case unicode.IsSpace(char):
				if tokenType == TOKEN_NONE {
					continue
				}

				flush = true

			// Comments
			case char == ';':
				flush = true
				skip = true

			// Operand Separator
			case char == ',':
				if tokenType == TOKEN_NONE && (separated || len(tokens) == 0) {
					errs = append(errs, &UnexpectedCharacterError{cursor, char})
				}

				separated = true
				flush = true

			// Assembler Directives
			case char == '.':
				if tokenType == TOKEN_NONE {
					tokenType = TOKEN_DIRECTIVE
				} else {
					errs = append(errs, &UnexpectedCharacterError{cursor, char})
				}

			// Immediate Operand (i.e. #42, #label)
			case char == PREFIX_IMMEDIATE:
				if tokenType == TOKEN_NONE {
					tokenType = TOKEN_IMMEDIATE
				} else {
					errs = append(errs, &UnexpectedCharacterError{cursor, char})
				}

			// Relative Operand (i.e. @-1)
			case char == PREFIX_RELATIVE:
				if tokenType == TOKEN_NONE {
					tokenType = TOKEN_RELATIVE
				} else {
					errs = append(errs, &UnexpectedCharacterError{cursor, char})
				}

			// Label Declaration
			case char == SUFFIX_LABEL:
				if tokenType == TOKEN_IDENT {
					tokenType = TOKEN_LABEL
					flush = true
				} else {
					errs = append(errs, &UnexpectedCharacterError{cursor, char})
				}

			// Numeric Literal
			case unicode.IsDigit(char):
				if tokenType == TOKEN_NONE {
					tokenType = TOKEN_LITERAL
				}

			// Numeric Sign or Label Offset
			case char == '-' || char == '+':
				if tokenType == TOKEN_NONE {
					tokenType = TOKEN_LITERAL
				} else if tokenType == TOKEN_DIRECTIVE {
					errs = append(errs, &UnexpectedCharacterError{cursor, char})
				}

			// Identifier
			case char == '_' || unicode.IsLetter(char):
				if char > unicode.MaxASCII {
					errs = append(errs, &OversizedCharacterError{cursor})
				}

				if tokenType == TOKEN_NONE {
					tokenType = TOKEN_IDENT
				} else if tokenType == TOKEN_LITERAL {
					errs = append(errs, &UnexpectedCharacterError{cursor, char})
				}

			default:
				if char > unicode.MaxASCII {
					errs = append(errs, &OversizedCharacterError{cursor})
				} else {
					errs = append(
						errs, &UnexpectedCharacterError{cursor, char},
					)
				}
			}

			if starting && tokenType != TOKEN_NONE {
				separated = false
			}

			if flush {
				flushToken()
			} else if !skip {
				builder.WriteRune(char)
			}

			if skip {
				break
			}
		}

		flushToken()

		if separated {
			errs = append(errs, &UnexpectedCharacterError{cursor, ','})
		}

		// Pass any potential assembler errors if we already had parser errors
		if len(tokens) == 0 || len(errs) > lineErrs {
			cursor.Line++
			cursor.Byte += int64(len(line) + 1)
			cursor.LineByte += int64(len(line) + 1)
			continue
		}

		// Assemble line
		// - Write instruction words to result
		// - Save label refs for unknown labels
		// - Type check instruction operands
		var addr = int64(len(result))
		var statement = tokens

		if label := &tokens[0]; label.Type == TOKEN_LABEL {
			if !isLabel(label.Value) {
				errs = append(
					errs, &UnknownIdentifierError{label.Position, label.Value},
				)
			} else if _, exists := labels[label.Value]; !exists {
				labels[label.Value] = addr
			} else {
				errs = append(
					errs, &RedeclaredLabelError{label.Position, label.Value},
				)
			}

			statement = tokens[1:]
		}

		// No need to assemble label-only statements
		if len(statement) == 0 {
			cursor.Line++
			cursor.Byte += int64(len(line) + 1)
			cursor.LineByte += int64(len(line) + 1)
			continue
		}

		keyword := &statement[0]
		operands := statement[1:]
		assembled := len(errs)

		switch keyword.Type {
		// mnemonic operand, ...
		case TOKEN_IDENT:
			opcode, ok := parseInstruction(keyword.Value)

			if !ok {
				errs = append(
					errs,
					&UnknownIdentifierError{keyword.Position, keyword.Value},
				)

				break
			}

			if count := len(operands); count != opcode.Arity() {
				errs = append(
					errs,
					&InvalidNumArgumentsError{
						keyword.Position, opcode.Arity(), count,
					},
				)

				break
			}

			parsed := make([]operand, len(operands))
			word := int64(opcode)
			scale := int64(machine.OPCODE_DIVISOR)

			for i := range operands {
				op, err := parseOperand(&operands[i])

				if err != nil {
					errs = append(errs, err)
				} else if dest, writes := destinations[opcode]; writes &&
					dest == i && op.Mode == machine.MODE_IMMEDIATE {
					errs = append(errs, &ImmediateDestinationError{op.Position})
				}

				word += int64(op.Mode) * scale
				scale *= machine.MODE_BASE
				parsed[i] = op
			}

			if len(errs) > assembled {
				break
			}

			result = append(result, word)

			for _, op := range parsed {
				emit(op)
			}

		case TOKEN_DIRECTIVE:
			switch parseDirective(keyword.Value) {
			// .data value, ...
			case DIRECTIVE_DATA:
				if len(operands) == 0 {
					errs = append(
						errs, &InvalidNumArgumentsError{keyword.Position, 1, 0},
					)

					break
				}

				values := make([]operand, 0, len(operands))

				for i := range operands {
					if t := operands[i].Type; t != TOKEN_LITERAL && t != TOKEN_IDENT {
						errs = append(
							errs,
							&InvalidOperandError{
								operands[i].Position,
								[]TokenType{TOKEN_LITERAL, TOKEN_IDENT},
								t,
							},
						)

						continue
					}

					op, err := parseOperand(&operands[i])

					if err != nil {
						errs = append(errs, err)
						continue
					}

					values = append(values, op)
				}

				if len(errs) > assembled {
					break
				}

				for _, op := range values {
					emit(op)
				}

			// .zero count
			case DIRECTIVE_ZERO:
				if count := len(operands); count != 1 {
					errs = append(
						errs,
						&InvalidNumArgumentsError{keyword.Position, 1, count},
					)

					break
				}

				if operands[0].Type != TOKEN_LITERAL {
					errs = append(
						errs,
						&InvalidOperandError{
							operands[0].Position,
							[]TokenType{TOKEN_LITERAL},
							operands[0].Type,
						},
					)

					break
				}

				size, err := encoding.DecodeInt(operands[0].Value)

				if err != nil {
					errs = append(errs, &InvalidLiteralError{operands[0].Position})
					break
				}

				if size < 0 || size > MAX_ZERO_SIZE {
					errs = append(
						errs,
						&OversizedLiteralError{
							operands[0].Position, MAX_ZERO_SIZE, size,
						},
					)

					break
				}

				result = append(result, make([]int64, size)...)

			default:
				errs = append(
					errs,
					&UnknownIdentifierError{keyword.Position, keyword.Value},
				)
			}

		default:
			errs = append(
				errs, &UnknownIdentifierError{keyword.Position, keyword.Value},
			)
		}

		if symtable != nil && int64(len(result)) > addr {
			symtable.Symbols[addr] = cursor.LineByte
		}

		cursor.Line++
		cursor.Byte += int64(len(line) + 1)
		cursor.LineByte += int64(len(line) + 1)
	}

	if err := scanner.Err(); err != nil {
		errs = append(errs, errors.Wrap(err, "Error reading source"))
	}

	// Label
	// - Validate and resolve label references
	// - Add labels to symbol table
	for _, ref := range labelRefs {
		addr, exists := labels[ref.Label]

		if !exists {
			errs = append(errs, &UnknownLabelError{ref.Position, ref.Label})
			continue
		}

		result[ref.Addr] = addr + ref.Offset
	}

	if symtable != nil {
		for label, addr := range labels {
			// Several labels may share an address; keep the first by name
			if have, exists := symtable.Labels[addr]; !exists || label < have {
				symtable.Labels[addr] = label
			}
		}
	}

	return
}
