package domain

import (
	"errors"
	"regexp"
	"testing"
)

func TestCompile_Matching(t *testing.T) {
	tests := []struct {
		name    string
		mode    Mode
		pattern string
		cs      bool
		start   bool
		end     bool
		message string
		want    bool
	}{
		{"plain substring", ModePlain, "end", false, false, false, "Friendship is important", true},
		{"plain no occurrence", ModePlain, "quack", false, false, false, "Friendship is important", false},
		{"word rejects inner substring", ModeWord, "end", false, false, false, "Friendship is important", false},
		{"word matches whole word", ModeWord, "end", false, false, false, "The end is near", true},
		{"full matches exact message", ModeFull, "Friendship is important", false, false, false, "Friendship is important", true},
		{"full rejects trailing char", ModeFull, "Friendship is important", false, false, false, "Friendship is important!", false},
		{"full rejects leading char", ModeFull, "Friendship is important", false, false, false, "!Friendship is important", false},
		{"case insensitive by default", ModePlain, "END", false, false, false, "the end", true},
		{"case sensitive rejects", ModePlain, "END", true, false, false, "the end", false},
		{"case sensitive accepts exact", ModePlain, "END", true, false, false, "THE END", true},
		{"start anchor", ModePlain, "the", false, true, false, "the end", true},
		{"start anchor rejects middle", ModePlain, "end", false, true, false, "the end", false},
		{"end anchor", ModePlain, "end", false, false, true, "the end", true},
		{"end anchor rejects middle", ModePlain, "the", false, false, true, "the end", false},
		{"plain with both anchors acts as full", ModePlain, "the end", false, true, true, "the end", true},
		{"plain with both anchors rejects extra", ModePlain, "the end", false, true, true, "the end!", false},
		{"metacharacters escaped outside regex mode", ModePlain, "a.c", false, false, false, "abc", false},
		{"metacharacters literal outside regex mode", ModePlain, "a.c", false, false, false, "xa.cx", true},
		{"regex keeps metacharacters", ModeRegex, "a.c", false, false, false, "abc", true},
		{"regex with word boundaries via word mode collapse", ModeFull, "d.ck", false, false, false, "dck", false},
		{"regex capture groups", ModeRegex, "cat(s?)", false, false, false, "cats", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr, re, err := Compile(tt.mode, tt.pattern, tt.cs, tt.start, tt.end)
			if err != nil {
				t.Fatalf("Compile() error: %v", err)
			}
			if expr == "" {
				t.Fatal("Compile() returned empty expression")
			}
			if got := re.MatchString(tt.message); got != tt.want {
				t.Errorf("pattern %q against %q: got %v, want %v (expr=%q)", tt.pattern, tt.message, got, tt.want, expr)
			}
		})
	}
}

func TestCompile_InvalidRegex(t *testing.T) {
	_, _, err := Compile(ModeRegex, "(unclosed", false, false, false)
	if err == nil {
		t.Fatal("expected error for invalid regex")
	}
	var perr *PatternError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *PatternError, got %T", err)
	}
	if perr.Pattern != "(unclosed" {
		t.Errorf("PatternError.Pattern = %q", perr.Pattern)
	}
}

func TestCompile_InvalidSyntaxEscapedOutsideRegexMode(t *testing.T) {
	// The same text that fails in regex mode must compile fine when
	// it is escaped literally.
	_, re, err := Compile(ModePlain, "(unclosed", false, false, false)
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}
	if !re.MatchString("see (unclosed here") {
		t.Error("expected literal match of escaped metacharacters")
	}
}

func TestCompileExpr_CaseFoldingCoversWholeMatch(t *testing.T) {
	// The insensitivity flag must apply to anchors and boundaries,
	// not just the literal body.
	expr := CompileExpr(ModeWord, "End", false, false, false)
	re, err := regexp.Compile(expr)
	if err != nil {
		t.Fatalf("compile %q: %v", expr, err)
	}
	if !re.MatchString("THE END IS NEAR") {
		t.Errorf("expr %q should match uppercased message", expr)
	}
}
