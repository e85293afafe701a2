package lexical

import (
	"strings"
	"testing"
)

func TestStripTags(t *testing.T) {
	got := stripTags("a <em>b</em> c <em>d</em>")
	if got != "a b c d" {
		t.Errorf("unexpected result: %q", got)
	}
}

func TestStripTags_NoTags(t *testing.T) {
	if got := stripTags("plain text"); got != "plain text" {
		t.Errorf("unexpected result: %q", got)
	}
}

func TestExtractFragments_None(t *testing.T) {
	if frags := extractFragments("no matches here"); len(frags) != 0 {
		t.Errorf("expected no fragments, got %v", frags)
	}
}

func TestExtractFragments_SingleShortText(t *testing.T) {
	frags := extractFragments("the <em>term</em> is short")
	if len(frags) != 1 {
		t.Fatalf("expected 1 fragment, got %d", len(frags))
	}
	if frags[0] != "the <em>term</em> is short" {
		t.Errorf("unexpected fragment: %q", frags[0])
	}
}

func TestExtractFragments_CapsAtThree(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 5; i++ {
		b.WriteString(strings.Repeat("x ", 120))
		b.WriteString("<em>match</em> ")
	}

	frags := extractFragments(b.String())
	if len(frags) != maxFragments {
		t.Fatalf("expected %d fragments, got %d", maxFragments, len(frags))
	}
	for i, f := range frags {
		if !strings.Contains(f, "<em>match</em>") {
			t.Errorf("fragment %d lost its match: %q", i, f)
		}
	}
}

func TestExtractFragments_KeepsClosingTag(t *testing.T) {
	text := strings.Repeat("a ", 80) + "<em>" + strings.Repeat("b", 160) + "</em>"
	frags := extractFragments(text)
	if len(frags) != 1 {
		t.Fatalf("expected 1 fragment, got %d", len(frags))
	}
	if !strings.HasSuffix(frags[0], "</em>") {
		t.Errorf("fragment cut through closing tag: %q", frags[0])
	}
}

func TestExtractFragments_RuneSafety(t *testing.T) {
	text := strings.Repeat("ф", 100) + "<em>срок</em>" + strings.Repeat("ы", 100)
	for _, f := range extractFragments(text) {
		if !strings.Contains(f, "<em>срок</em>") {
			t.Errorf("fragment lost its match: %q", f)
		}
		for _, r := range f {
			if r == '�' {
				t.Fatalf("fragment contains broken rune: %q", f)
			}
		}
	}
}
