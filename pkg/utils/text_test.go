package utils

import (
	"testing"
)

func TestTruncate(t *testing.T) {
	if Truncate("hello", 10) != "hello" {
		t.Error("short string unchanged")
	}
	if Truncate("hello world", 5) != "hello..." {
		t.Errorf("got %s", Truncate("hello world", 5))
	}
	if got := Truncate("ñandú", 3); got != "ñan..." {
		t.Errorf("multibyte: got %s", got)
	}
	if Truncate("x", 0) != "x" {
		t.Error("maxLen 0 returns as-is")
	}
}

func TestJoinNonEmpty(t *testing.T) {
	tests := []struct {
		name  string
		parts []string
		want  string
	}{
		{"all present", []string{"Ana", "María"}, "Ana María"},
		{"second missing", []string{"Ana", ""}, "Ana"},
		{"first missing", []string{"", "María"}, "María"},
		{"whitespace trimmed", []string{" Ana ", "  "}, "Ana"},
		{"nothing", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := JoinNonEmpty(" ", tt.parts...); got != tt.want {
				t.Errorf("JoinNonEmpty() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsDigits(t *testing.T) {
	for in, want := range map[string]bool{
		"12345": true,
		"0":     true,
		"":      false,
		"12a45": false,
		" 123":  false,
		"１２３":   false,
	} {
		if got := IsDigits(in); got != want {
			t.Errorf("IsDigits(%q) = %v, want %v", in, got, want)
		}
	}
}
