package jsontransform

import (
	"fmt"
	"strconv"
	"strings"
)

type exprTokenKind int

const (
	tokEOF exprTokenKind = iota
	tokNumber
	tokString
	tokBool
	tokNull
	tokPath
	tokIdent // contains / startsWith / endsWith
	tokOp    // ! * / % + - == != < <= > >= && ||
	tokLParen
	tokRParen
)

type exprToken struct {
	kind exprTokenKind
	text string
	num  float64
	str  string
}

// lexExpression tokenizes a condition/predicate string per spec §4.B.
func lexExpression(src string) ([]exprToken, error) {
	var toks []exprToken
	i := 0
	n := len(src)
	for i < n {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(':
			toks = append(toks, exprToken{kind: tokLParen, text: "("})
			i++
		case c == ')':
			toks = append(toks, exprToken{kind: tokRParen, text: ")"})
			i++
		case c == '$':
			end := scanPathExtent(src, i)
			raw := src[i:end]
			toks = append(toks, exprToken{kind: tokPath, text: raw, str: raw})
			i = end
		case c == '\'' || c == '"':
			s, end, err := scanQuotedString(src, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, exprToken{kind: tokString, str: s})
			i = end
		case c == '!':
			if i+1 < n && src[i+1] == '=' {
				toks = append(toks, exprToken{kind: tokOp, text: "!="})
				i += 2
			} else {
				toks = append(toks, exprToken{kind: tokOp, text: "!"})
				i++
			}
		case c == '=' && i+1 < n && src[i+1] == '=':
			toks = append(toks, exprToken{kind: tokOp, text: "=="})
			i += 2
		case c == '<':
			if i+1 < n && src[i+1] == '=' {
				toks = append(toks, exprToken{kind: tokOp, text: "<="})
				i += 2
			} else {
				toks = append(toks, exprToken{kind: tokOp, text: "<"})
				i++
			}
		case c == '>':
			if i+1 < n && src[i+1] == '=' {
				toks = append(toks, exprToken{kind: tokOp, text: ">="})
				i += 2
			} else {
				toks = append(toks, exprToken{kind: tokOp, text: ">"})
				i++
			}
		case c == '&' && i+1 < n && src[i+1] == '&':
			toks = append(toks, exprToken{kind: tokOp, text: "&&"})
			i += 2
		case c == '|' && i+1 < n && src[i+1] == '|':
			toks = append(toks, exprToken{kind: tokOp, text: "||"})
			i += 2
		case c == '+' || c == '-' || c == '*' || c == '/' || c == '%':
			toks = append(toks, exprToken{kind: tokOp, text: string(c)})
			i++
		case c >= '0' && c <= '9':
			end := i
			for end < n && (src[end] >= '0' && src[end] <= '9' || src[end] == '.') {
				end++
			}
			numStr := src[i:end]
			f, err := strconv.ParseFloat(numStr, 64)
			if err != nil {
				return nil, &Error{Code: ErrInvalidConditionError, Message: "invalid number literal: " + numStr, Expression: src}
			}
			toks = append(toks, exprToken{kind: tokNumber, num: f, text: numStr})
			i = end
		case isIdentByte(c):
			end := i
			for end < n && isIdentByte(src[end]) {
				end++
			}
			word := src[i:end]
			switch word {
			case "true":
				toks = append(toks, exprToken{kind: tokBool, num: 1, text: word})
			case "false":
				toks = append(toks, exprToken{kind: tokBool, num: 0, text: word})
			case "null":
				toks = append(toks, exprToken{kind: tokNull, text: word})
			case "contains", "startsWith", "endsWith":
				toks = append(toks, exprToken{kind: tokIdent, text: word})
			default:
				return nil, &Error{Code: ErrInvalidConditionError, Message: "unexpected identifier: " + word, Expression: src}
			}
			i = end
		default:
			return nil, &Error{Code: ErrInvalidConditionError, Message: fmt.Sprintf("unexpected character %q at position %d", c, i), Expression: src}
		}
	}
	toks = append(toks, exprToken{kind: tokEOF})
	return toks, nil
}

// scanPathExtent finds the end of a "$..." path reference starting at i,
// consuming identifier/bracket/dot characters per the path grammar.
func scanPathExtent(src string, i int) int {
	n := len(src)
	j := i + 1
	for j < n {
		switch {
		case src[j] == '.':
			j++
		case src[j] == '[':
			depth := 1
			j++
			for j < n && depth > 0 {
				if src[j] == '[' {
					depth++
				} else if src[j] == ']' {
					depth--
				}
				j++
			}
		case isIdentByte(src[j]) || src[j] == '*':
			j++
		default:
			return j
		}
	}
	return j
}

func scanQuotedString(src string, i int) (string, int, error) {
	quote := src[i]
	j := i + 1
	var b strings.Builder
	for j < len(src) && src[j] != quote {
		b.WriteByte(src[j])
		j++
	}
	if j >= len(src) {
		return "", 0, &Error{Code: ErrInvalidConditionError, Message: "unterminated string literal", Expression: src}
	}
	return b.String(), j + 1, nil
}
