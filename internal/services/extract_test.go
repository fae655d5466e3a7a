package services

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractTags(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Tags
	}{
		{name: "hashtag", text: "Hello #world", want: Tags{Hashtags: []string{"world"}}},
		{name: "trailing punctuation", text: "hey @bob, see #go!", want: Tags{Mentions: []string{"bob"}, Hashtags: []string{"go"}}},
		{name: "wrapping parens", text: "(@bob) and (#tag)", want: Tags{Mentions: []string{"bob"}, Hashtags: []string{"tag"}}},
		{name: "paren then punctuation", text: "look (https://example.com).", want: Tags{Links: []string{"https://example.com"}}},
		{name: "link needs a dot", text: "http://localhost https://go.dev/doc", want: Tags{Links: []string{"https://go.dev/doc"}}},
		{name: "bad charset", text: "@bo-b #a.b @", want: Tags{}},
		{name: "two mentions in order", text: "@ann then @bob", want: Tags{Mentions: []string{"ann", "bob"}}},
		{name: "bare scheme is not a link", text: "ftp://x.y www.x.y", want: Tags{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ExtractTags(tt.text))
		})
	}
}

func TestTagsCheck(t *testing.T) {
	require.NoError(t, Tags{Mentions: []string{"a"}, Links: []string{"http://a.b"}, Hashtags: []string{"x"}}.check())
	requireValidation(t, Tags{Mentions: []string{"a", "b"}}.check(), "mention")
	requireValidation(t, Tags{Links: []string{"http://a.b", "http://c.d"}}.check(), "link")
	requireValidation(t, Tags{Hashtags: []string{"x", "y"}}.check(), "hashtag")
}

func TestValidateContent(t *testing.T) {
	p := NewPolicy(20, []string{"Spam"})

	got, err := p.validateContent("  héllo  ")
	require.NoError(t, err)
	require.Equal(t, "héllo", got)

	_, err = p.validateContent("   ")
	requireValidation(t, err, "content")

	_, err = p.validateContent("this sentence is far too long")
	requireValidation(t, err, "content")

	_, err = p.validateContent("日本")
	requireValidation(t, err, "content")

	_, err = p.validateContent("buy SPAM!")
	requireValidation(t, err, "content")

	_, err = p.validateContent("spammy is fine")
	require.NoError(t, err)

	// never wider than the content column
	require.Equal(t, DefaultMaxContent, NewPolicy(DefaultMaxContent+1, nil).MaxContent)
	require.Equal(t, DefaultMaxContent, NewPolicy(0, nil).MaxContent)
}
