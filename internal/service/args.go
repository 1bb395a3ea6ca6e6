package service

import (
	"fmt"
	"strconv"
	"strings"
)

// tokenize splits a command line on whitespace. Double quotes group a
// value containing spaces; `\"` inside quotes is a literal quote.
func tokenize(line string) []string {
	var tokens []string
	var b strings.Builder
	inQuotes, escaped, pending := false, false, false

	flush := func() {
		if pending || b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
			pending = false
		}
	}

	for _, r := range line {
		switch {
		case escaped:
			if r != '"' {
				b.WriteRune('\\')
			}
			b.WriteRune(r)
			escaped = false
		case r == '\\' && inQuotes:
			escaped = true
		case r == '"':
			inQuotes = !inQuotes
			pending = true // a quoted empty string is still a token
		case (r == ' ' || r == '\t') && !inQuotes:
			flush()
		default:
			b.WriteRune(r)
		}
	}
	if escaped {
		b.WriteRune('\\')
	}
	flush()
	return tokens
}

// args holds parsed key=value command arguments.
type args map[string]string

// parseArgs interprets tokens as key=value pairs.
func parseArgs(tokens []string) (args, error) {
	out := make(args, len(tokens))
	for _, tok := range tokens {
		key, value, ok := strings.Cut(tok, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", tok)
		}
		if _, dup := out[key]; dup {
			return nil, fmt.Errorf("duplicate argument %q", key)
		}
		out[key] = value
	}
	return out, nil
}

// take removes and returns an argument, reporting whether it was set.
func (a args) take(key string) (string, bool) {
	v, ok := a[key]
	if ok {
		delete(a, key)
	}
	return v, ok
}

// takeBool removes and parses an optional boolean argument.
func (a args) takeBool(key string) (*bool, error) {
	raw, ok := a.take(key)
	if !ok {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be true or false, got %q", key, raw)
	}
	return &v, nil
}

// takeInt removes and parses an optional non-negative integer argument.
func (a args) takeInt(key string) (*int, error) {
	raw, ok := a.take(key)
	if !ok {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return nil, fmt.Errorf("%s must be a non-negative number, got %q", key, raw)
	}
	return &v, nil
}

// unknown returns an error naming any argument nobody consumed.
func (a args) unknown() error {
	for key := range a {
		return fmt.Errorf("unknown argument %q", key)
	}
	return nil
}
