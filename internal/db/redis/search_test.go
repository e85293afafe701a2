package redis

import (
	"strings"
	"testing"

	"github.com/lawman-hq/clauseidx/internal/db"
)

func TestEscapeQuery(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain words", "termination clause", "termination clause"},
		{"punctuation", "cap; fees, paid.", `cap\; fees\, paid\.`},
		{"query operators", "net-30 | (late fee)", `net\-30 \| \(late fee\)`},
		{"tag braces", "{liability}", `\{liability\}`},
		{"quotes", `"force majeure"`, `\"force majeure\"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := escapeQuery(tt.in); got != tt.want {
				t.Errorf("escapeQuery(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestEscapeQuery_NoBareEscapes(t *testing.T) {
	// every special character must come out preceded by a backslash
	specials := `,.<>{}[]"':;!@#$%^&*()-+=~/|`
	escaped := escapeQuery(specials)

	for _, r := range specials {
		if !strings.Contains(escaped, `\`+string(r)) {
			t.Errorf("character %q not escaped in %q", r, escaped)
		}
	}
}

func TestBuildHighlightArgs(t *testing.T) {
	args := buildHighlightArgs(&db.HighlightSpec{
		Fields:   []string{"text", "heading"},
		OpenTag:  "<em>",
		CloseTag: "</em>",
	})

	want := []string{"HIGHLIGHT", "FIELDS", "2", "text", "heading", "TAGS", "<em>", "</em>"}
	if len(args) != len(want) {
		t.Fatalf("args = %v, want %v", args, want)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Errorf("args[%d] = %q, want %q", i, args[i], want[i])
		}
	}
}

func TestBuildHighlightArgs_NoFields(t *testing.T) {
	if args := buildHighlightArgs(&db.HighlightSpec{}); args != nil {
		t.Errorf("args = %v, want nil", args)
	}
}

func TestBuildHighlightArgs_NoTags(t *testing.T) {
	args := buildHighlightArgs(&db.HighlightSpec{Fields: []string{"text"}})

	for _, a := range args {
		if a == "TAGS" {
			t.Errorf("TAGS emitted without tag values: %v", args)
		}
	}
}
