// Package text normalizes user-supplied names before they are put into bot
// messages: invisible and control characters are dropped, whitespace is
// collapsed and Markdown markup is neutralized.
package text

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxNameLength is the longest name kept, in runes. Telegram caps first and
// last names at 64 characters each.
const MaxNameLength = 128

var (
	// controlCharsRegex matches ASCII control characters including DEL.
	controlCharsRegex = regexp.MustCompile(`[\x00-\x1F\x7F]`)

	// unicodeReplacer drops invisible format characters and maps exotic
	// spaces to a plain space.
	unicodeReplacer = strings.NewReplacer(
		"\u2060", "", // word joiner
		"\uFEFF", "", // byte order mark
		"\u00AD", "", // soft hyphen
		"\u200E", "", // left-to-right mark
		"\u200F", "", // right-to-left mark
		"\u202A", "", "\u202B", "", "\u202C", "", "\u202D", "", "\u202E", "", // bidi embedding and override
		"\u2066", "", "\u2067", "", "\u2068", "", "\u2069", "", // bidi isolates
		"\u2061", "", "\u2062", "", "\u2063", "", "\u2064", "",
		"\u2028", " ",
		"\u2029", " ",
		"\u200B", " ",
		"\u200C", " ",
		"\u205F", " ",
		"\u2009", " ",
		"\u200A", " ",
		"\u202F", " ",
		"\u3000", " ",
		"\u00A0", " ",
	)

	// markdownEscaper escapes the characters legacy Markdown treats as markup.
	markdownEscaper = strings.NewReplacer(
		"_", `\_`,
		"*", `\*`,
		"`", "\\`",
		"[", `\[`,
	)

	// entityStripper removes characters that would end or nest an entity.
	entityStripper = strings.NewReplacer(
		"_", "",
		"*", "",
		"`", "",
		"[", "",
		"]", "",
	)
)

// collapseWhitespace turns every run of whitespace into one space and trims
// the ends.
func collapseWhitespace(s string) string {
	var sb strings.Builder
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !space {
				sb.WriteRune(' ')
				space = true
			}
			continue
		}
		sb.WriteRune(r)
		space = false
	}
	return strings.TrimSpace(sb.String())
}

// CleanName normalizes a display name. The result may be empty when the
// input held nothing printable.
func CleanName(name string) string {
	if name == "" {
		return ""
	}
	s := unicodeReplacer.Replace(name)
	s = controlCharsRegex.ReplaceAllString(s, " ")
	s = collapseWhitespace(s)

	if utf8.RuneCountInString(s) > MaxNameLength {
		s = strings.TrimSpace(string([]rune(s)[:MaxNameLength-1])) + "…"
	}
	return s
}

// FullName joins the cleaned first and last name.
func FullName(first, last string) string {
	first, last = CleanName(first), CleanName(last)
	switch {
	case first == "":
		return last
	case last == "":
		return first
	default:
		return first + " " + last
	}
}

// EscapeMarkdown escapes s for use outside entities in a legacy Markdown message.
func EscapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// EntityText makes s safe inside a legacy Markdown entity such as link text,
// where escaping is not allowed.
func EntityText(s string) string {
	return collapseWhitespace(entityStripper.Replace(s))
}
