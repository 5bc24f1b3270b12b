// Package sanitize cleans free text received from leads before it is stored
// or shown to the language model.
package sanitize

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	// MaxMessageRunes caps a stored inbound message.
	MaxMessageRunes = 4096
	// MaxNameRunes caps a lead display name.
	MaxNameRunes = 120
)

var (
	htmlTagRegex    = regexp.MustCompile(`<[^>]*>`)
	blankRunRegex   = regexp.MustCompile(`[ \t]+`)
	blankLinesRegex = regexp.MustCompile(`\n{3,}`)

	entityReplacer = strings.NewReplacer(
		"&lt;", "<",
		"&gt;", ">",
		"&amp;", "&",
		"&quot;", "\"",
		"&#39;", "'",
		"&nbsp;", " ",
	)
)

// StripHTML removes HTML tags, decoding common entities and stripping again
// so encoded tags do not survive.
func StripHTML(s string) string {
	result := htmlTagRegex.ReplaceAllString(s, "")
	result = entityReplacer.Replace(result)
	result = htmlTagRegex.ReplaceAllString(result, "")
	return strings.TrimSpace(result)
}

// Message cleans a chat message: tags and control characters are removed,
// horizontal whitespace is collapsed and the result is capped at
// MaxMessageRunes. Line breaks are kept, at most one blank line in a row.
func Message(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = StripHTML(s)
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return r
		case unicode.IsControl(r), r == unicode.ReplacementChar:
			return -1
		}
		return r
	}, s)
	s = blankRunRegex.ReplaceAllString(s, " ")
	s = blankLinesRegex.ReplaceAllString(s, "\n\n")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return truncate(strings.TrimSpace(strings.Join(lines, "\n")), MaxMessageRunes)
}

// Name cleans a display name to a single line capped at MaxNameRunes.
func Name(s string) string {
	s = StripHTML(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)
	return truncate(strings.Join(strings.Fields(s), " "), MaxNameRunes)
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return strings.TrimSpace(string(runes[:max]))
}
