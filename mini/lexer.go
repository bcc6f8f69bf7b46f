package mini

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokWord
	tokDotDot
	tokPipe
	tokStar
	tokQuestion
	tokColon
	tokPercent
	tokLParen
	tokRParen
	tokLBracket
	tokRBracket
	tokComma
)

var tokenNames = map[tokenKind]string{
	tokEOF:      "end of input",
	tokNumber:   "number",
	tokWord:     "word",
	tokDotDot:   `".."`,
	tokPipe:     `"|"`,
	tokStar:     `"*"`,
	tokQuestion: `"?"`,
	tokColon:    `":"`,
	tokPercent:  `"%"`,
	tokLParen:   `"("`,
	tokRParen:   `")"`,
	tokLBracket: `"["`,
	tokRBracket: `"]"`,
	tokComma:    `","`,
}

func (k tokenKind) String() string { return tokenNames[k] }

type token struct {
	kind   tokenKind
	text   string
	pos    int
	spaced bool // preceded by whitespace
}

var punct = map[byte]tokenKind{
	'|': tokPipe, '*': tokStar, '?': tokQuestion, ':': tokColon, '%': tokPercent,
	'(': tokLParen, ')': tokRParen, '[': tokLBracket, ']': tokRBracket, ',': tokComma,
}

var accidentals = strings.NewReplacer("♯", "#", "♭", "b")

// Normalize applies NFC and maps the sharp and flat signs to # and b. Error
// positions refer to the normalised text.
func Normalize(src string) string {
	return accidentals.Replace(norm.NFC.String(src))
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
func isLetter(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}
func isWordByte(c byte) bool {
	return isLetter(c) || isDigit(c) || c == '#' || c == '/' || c == '-'
}

// lex splits normalised source into tokens, ending with tokEOF.
func lex(src string) ([]token, error) {
	var toks []token
	spaced := false
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			spaced = true
			i++
			continue
		case isDigit(c) || c == '-' && i+1 < len(src) && isDigit(src[i+1]):
			start := i
			i++
			for i < len(src) && isDigit(src[i]) {
				i++
			}
			if i+1 < len(src) && src[i] == '.' && isDigit(src[i+1]) {
				i++
				for i < len(src) && isDigit(src[i]) {
					i++
				}
			}
			toks = append(toks, token{kind: tokNumber, text: src[start:i], pos: start, spaced: spaced})
		case isLetter(c):
			start := i
			for i < len(src) {
				if isWordByte(src[i]) {
					i++
					continue
				}
				// a single dot inside a word, as in a file name; ".." ends the word
				if src[i] == '.' && i+1 < len(src) && isLetter(src[i+1]) {
					i++
					continue
				}
				break
			}
			toks = append(toks, token{kind: tokWord, text: src[start:i], pos: start, spaced: spaced})
		case c == '.':
			if i+1 < len(src) && src[i+1] == '.' {
				toks = append(toks, token{kind: tokDotDot, text: "..", pos: i, spaced: spaced})
				i += 2
				break
			}
			return nil, newParseError(src, i, `unexpected "."`)
		default:
			kind, ok := punct[c]
			if !ok {
				r, _ := utf8.DecodeRuneInString(src[i:])
				return nil, newParseError(src, i, "unexpected character %q", r)
			}
			toks = append(toks, token{kind: kind, text: string(c), pos: i, spaced: spaced})
			i++
		}
		spaced = false
	}
	return append(toks, token{kind: tokEOF, pos: len(src), spaced: spaced}), nil
}
