package domain

import (
	"fmt"
	"regexp"
)

// PatternError reports a pattern that does not compile. Only reachable
// in regex mode; every other mode escapes the pattern literally.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid pattern %q: %v", e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error { return e.Err }

// CompileExpr builds the regular expression source for a trigger. All
// triggers use a regex matcher in the background regardless of mode.
func CompileExpr(mode Mode, pattern string, caseSensitive, start, end bool) string {
	body := pattern
	if mode != ModeRegex {
		body = regexp.QuoteMeta(pattern)
	}

	// plain or word with both anchors is just full
	if (mode == ModePlain || mode == ModeWord) && start && end {
		mode = ModeFull
	}
	if mode == ModeFull {
		start, end = true, true
	}

	if mode == ModeWord {
		body = `\b(?:` + body + `)\b`
	}
	if start {
		body = "^" + body
	}
	if end {
		body += "$"
	}
	if !caseSensitive {
		body = "(?i)" + body
	}
	return body
}

// Compile builds and compiles the matcher for a trigger.
func Compile(mode Mode, pattern string, caseSensitive, start, end bool) (string, *regexp.Regexp, error) {
	expr := CompileExpr(mode, pattern, caseSensitive, start, end)
	re, err := regexp.Compile(expr)
	if err != nil {
		return "", nil, &PatternError{Pattern: pattern, Err: err}
	}
	return expr, re, nil
}
