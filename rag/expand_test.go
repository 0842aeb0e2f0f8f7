package rag

import (
	"strings"
	"testing"
)

func TestExpandQueryAppendsSynonyms(t *testing.T) {
	t.Parallel()

	got := ExpandQuery("employee fired without notice")
	if got == "employee fired without notice" {
		t.Fatal("expected expansion for known terms")
	}
	for _, term := range []string{"terminated", "dismissed"} {
		if !containsWord(t, got, term) {
			t.Fatalf("expanded query missing %q: %q", term, got)
		}
	}
	// The original query text stays as the prefix.
	if got[:len("employee fired without notice")] != "employee fired without notice" {
		t.Fatalf("expansion rewrote the original query: %q", got)
	}
}

func TestExpandQuerySkipsPresentSynonyms(t *testing.T) {
	t.Parallel()

	got := ExpandQuery("employee fired terminated")
	if containsWordTwice(got, "terminated") {
		t.Fatalf("synonym already present was appended again: %q", got)
	}
}

func TestExpandQueryNoMatchesUnchanged(t *testing.T) {
	t.Parallel()

	for _, q := range []string{"", "quantum chromodynamics", "   "} {
		if got := ExpandQuery(q); got != q {
			t.Fatalf("query %q expanded to %q", q, got)
		}
	}
}

func containsWord(t *testing.T, text, word string) bool {
	t.Helper()
	for _, w := range strings.Fields(text) {
		if w == word {
			return true
		}
	}
	return false
}

func containsWordTwice(text, word string) bool {
	n := 0
	for _, w := range strings.Fields(text) {
		if w == word {
			n++
		}
	}
	return n > 1
}
