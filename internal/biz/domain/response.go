package domain

import (
	"math/rand"
	"strconv"
	"strings"
)

// Author identifies the sender of the message that fired a trigger.
type Author struct {
	ID       string
	Username string
	Display  string
	Nickname string
}

// MentionFunc renders a platform mention reference for an author.
type MentionFunc func(a Author) string

// NormalizeResponse expands `\n` escapes into real newlines. Runs once
// when the response is stored, not when it is sent.
func NormalizeResponse(raw string) string {
	return strings.ReplaceAll(raw, `\n`, "\n")
}

// SplitVariants splits a response on unescaped semicolons. `\;` becomes
// a literal `;` inside the variant; other backslashes are kept as-is.
func SplitVariants(response string) []string {
	var variants []string
	var b strings.Builder
	escaped := false
	for _, r := range response {
		switch {
		case escaped:
			if r != ';' {
				b.WriteRune('\\')
			}
			b.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == ';':
			variants = append(variants, b.String())
			b.Reset()
		default:
			b.WriteRune(r)
		}
	}
	if escaped {
		b.WriteRune('\\')
	}
	return append(variants, b.String())
}

// PickVariant chooses one response variant uniformly at random.
func PickVariant(variants []string, rng *rand.Rand) string {
	switch len(variants) {
	case 0:
		return ""
	case 1:
		return variants[0]
	}
	return variants[rng.Intn(len(variants))]
}

// ExpandResponse substitutes template variables into a response
// variant. Mention-prefixed variables are replaced first so that the
// plain forms they contain are not clobbered, then the plain author
// fields, then `{matchN}` for each capture group (0 = whole match).
func ExpandResponse(variant string, a Author, groups []string, mention MentionFunc) string {
	out := variant

	for _, v := range []string{"username", "display", "nickname", "id"} {
		out = strings.ReplaceAll(out, "@{author_"+v+"}", mention(a))
	}

	plain := []struct{ name, value string }{
		{"username", a.Username},
		{"display", a.Display},
		{"nickname", a.Nickname},
		{"id", a.ID},
	}
	for _, p := range plain {
		out = strings.ReplaceAll(out, "{author_"+p.name+"}", p.value)
	}

	for i, g := range groups {
		out = strings.ReplaceAll(out, "{match"+strconv.Itoa(i)+"}", g)
	}
	return out
}
