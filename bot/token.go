package bot

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Token is one whitespace-delimited word of a chat line, remembering the
// byte offset it started at in the original text.
type Token struct {
	Text   string
	Offset int
}

// ParseCommand splits a chat line into whitespace-separated tokens with
// their byte offsets preserved. Runs of whitespace are skipped; the
// empty and all-whitespace line yield no tokens.
func ParseCommand(line string) []Token {
	var tokens []Token
	offset := 0
	for offset < len(line) {
		r, size := utf8.DecodeRuneInString(line[offset:])
		if unicode.IsSpace(r) {
			offset += size
			continue
		}
		start := offset
		for offset < len(line) {
			r, size := utf8.DecodeRuneInString(line[offset:])
			if unicode.IsSpace(r) {
				break
			}
			offset += size
		}
		tokens = append(tokens, Token{Text: line[start:offset], Offset: start})
	}
	return tokens
}

// CommandName extracts the command a parsed line invokes, without the
// leading exclamation mark. ok is false when the line is no command at
// all; a bare "!" yields an empty name with ok true.
func CommandName(tokens []Token) (name string, ok bool) {
	if len(tokens) == 0 || !strings.HasPrefix(tokens[0].Text, "!") || tokens[0].Offset != 0 {
		return "", false
	}
	return strings.TrimPrefix(tokens[0].Text, "!"), true
}

// IsCommand reports whether tokens invoke the named command. The name is
// given without the leading exclamation mark.
func IsCommand(tokens []Token, name string) bool {
	got, ok := CommandName(tokens)
	return ok && got == name
}
