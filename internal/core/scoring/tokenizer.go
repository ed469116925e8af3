package scoring

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const minTokenRunes = 2

func isSeparator(r rune) bool {
	if unicode.IsSpace(r) {
		return true
	}
	switch r {
	case ',', '.', '/', '·', '-', '_', '(', ')':
		return true
	}
	return false
}

// Tokenize lowercases text and splits it on whitespace and separator
// punctuation. Tokens shorter than two characters are dropped.
func Tokenize(text string) []string {
	if text == "" {
		return nil
	}
	fields := strings.FieldsFunc(strings.ToLower(text), isSeparator)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if utf8.RuneCountInString(f) >= minTokenRunes {
			out = append(out, f)
		}
	}
	return out
}

func tokenSet(texts ...string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, text := range texts {
		for _, tok := range Tokenize(text) {
			set[tok] = struct{}{}
		}
	}
	return set
}
