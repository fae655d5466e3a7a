package services

import (
	"strings"
	"unicode/utf8"

	"thicket/internal/utils"
)

const trailingPunct = ".,!?;:'\""

// Tags are the references found in a text, in scan order.
type Tags struct {
	Mentions []string
	Links    []string
	Hashtags []string
}

// ExtractTags classifies every whitespace-separated token of text.
func ExtractTags(text string) Tags {
	var t Tags
	for _, tok := range strings.Fields(text) {
		tok = cleanToken(tok)
		switch {
		case strings.HasPrefix(tok, "@"):
			if name := tok[1:]; utils.IsWord(name) {
				t.Mentions = append(t.Mentions, name)
			}
		case strings.HasPrefix(tok, "#"):
			if tag := tok[1:]; utils.IsWord(tag) {
				t.Hashtags = append(t.Hashtags, tag)
			}
		case isLink(tok):
			t.Links = append(t.Links, tok)
		}
	}
	return t
}

// cleanToken strips one trailing punctuation mark, then one wrapping parenthesis.
func cleanToken(tok string) string {
	if r, size := utf8.DecodeLastRuneInString(tok); size > 0 && strings.ContainsRune(trailingPunct, r) {
		tok = tok[:len(tok)-size]
	}
	tok = strings.TrimPrefix(tok, "(")
	tok = strings.TrimSuffix(tok, ")")
	return tok
}

func isLink(tok string) bool {
	for _, scheme := range []string{"http://", "https://"} {
		if rest, ok := strings.CutPrefix(tok, scheme); ok {
			return strings.Contains(rest, ".")
		}
	}
	return false
}

// check rejects more than one reference of any kind.
func (t Tags) check() error {
	switch {
	case len(t.Mentions) > 1:
		return invalid("mention", "only one mention is allowed")
	case len(t.Links) > 1:
		return invalid("link", "only one link is allowed")
	case len(t.Hashtags) > 1:
		return invalid("hashtag", "only one hashtag is allowed")
	}
	return nil
}

func first(s []string) string {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}
