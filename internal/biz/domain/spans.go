package domain

import "regexp"

var (
	urlRE   = regexp.MustCompile(`https?://(www\.)?[-a-zA-Z0-9@:%._+~#=]{1,256}\.[a-zA-Z0-9()]{1,6}\b([-a-zA-Z0-9()@:%_+.~#?&/=]*)`)
	emoteRE = regexp.MustCompile(`:[a-zA-Z0-9_]+:`)
)

// Span is a half-open [Start, End) byte range within a message.
type Span struct {
	Start, End int
}

// Contains reports whether other lies entirely inside s.
func (s Span) Contains(other Span) bool {
	return other.Start >= s.Start && other.End <= s.End
}

// URLSpans returns the byte ranges of every link in the text.
func URLSpans(text string) []Span {
	return findSpans(urlRE, text)
}

// EmoteSpans returns the byte ranges of every emote shortcode
// (:name:) in the text.
func EmoteSpans(text string) []Span {
	return findSpans(emoteRE, text)
}

// WithinAny reports whether m lies entirely inside one of the spans.
func WithinAny(spans []Span, m Span) bool {
	for _, s := range spans {
		if s.Contains(m) {
			return true
		}
	}
	return false
}

func findSpans(re *regexp.Regexp, text string) []Span {
	var spans []Span
	for _, loc := range re.FindAllStringIndex(text, -1) {
		spans = append(spans, Span{Start: loc[0], End: loc[1]})
	}
	return spans
}
