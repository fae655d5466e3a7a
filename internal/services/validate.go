package services

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// validateContent trims content and checks it against the policy.
func (p Policy) validateContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", invalid("content", "can't be blank")
	}
	if n := utf8.RuneCountInString(content); n > p.MaxContent {
		return "", invalid("content", "is too long")
	}
	for _, r := range content {
		if r > unicode.MaxLatin1 {
			return "", invalid("content", "contains unsupported characters")
		}
	}
	for _, tok := range strings.Fields(content) {
		word := strings.TrimFunc(tok, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if word != "" && p.isProhibited(word) {
			return "", invalid("content", "contains a prohibited word")
		}
	}
	return content, nil
}
