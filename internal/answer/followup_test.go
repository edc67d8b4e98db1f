package answer

import (
	"reflect"
	"strings"
	"testing"
)

func TestNeedsMoreContext(t *testing.T) {
	cases := []struct {
		answer string
		want   bool
	}{
		{"The handler validates input and writes JSON.", false},
		{"The relevant definition cannot be found in the provided context.", true},
		{"Details are Not Specified in the snippets.", true},
		{"The configuration appears INCOMPLETE.", true},
		{"Some fields are missing from the struct.", true},
		{"It is unclear how retries work.", true},
		{"", false},
	}
	for _, c := range cases {
		if got := needsMoreContext(c.answer); got != c.want {
			t.Errorf("needsMoreContext(%q) = %v, want %v", c.answer, got, c.want)
		}
	}
}

func TestExtractFollowUpTermsDefinitions(t *testing.T) {
	answer := "The func BuildIndex is defined near class VaultStore, but def helper_fn is not shown."
	terms := extractFollowUpTerms("", answer)
	for _, want := range []string{"BuildIndex", "VaultStore", "helper_fn"} {
		if !contains(terms, want) {
			t.Errorf("terms %v missing %q", terms, want)
		}
	}
}

func TestExtractFollowUpTermsFileStems(t *testing.T) {
	answer := "See internal/api/handler.go and scripts\\batch_index.py for details."
	terms := extractFollowUpTerms("", answer)
	if !contains(terms, "handler") {
		t.Errorf("terms %v missing file stem handler", terms)
	}
	if !contains(terms, "batch_index") {
		t.Errorf("terms %v missing file stem batch_index", terms)
	}
}

func TestExtractFollowUpTermsQueryWords(t *testing.T) {
	terms := extractFollowUpTerms("how does authentication middleware work", "nothing here")
	if !contains(terms, "authentication") || !contains(terms, "middleware") {
		t.Errorf("terms %v missing long query words", terms)
	}
	if contains(terms, "how") || contains(terms, "does") || contains(terms, "work") {
		t.Errorf("terms %v include short query words", terms)
	}
}

func TestExtractFollowUpTermsDedupAndCap(t *testing.T) {
	answer := strings.Repeat("func Alpha func Beta func Gamma func Delta func Epsilon func Zeta ", 2)
	terms := extractFollowUpTerms("", answer)
	if len(terms) != maxFollowUpTerms {
		t.Fatalf("got %d terms, want capped at %d: %v", len(terms), maxFollowUpTerms, terms)
	}
	want := []string{"Alpha", "Beta", "Gamma", "Delta", "Epsilon"}
	if !reflect.DeepEqual(terms, want) {
		t.Errorf("terms = %v, want first-seen order %v", terms, want)
	}
}

func TestExtractFollowUpTermsEmpty(t *testing.T) {
	if terms := extractFollowUpTerms("a b c", "nothing to see"); len(terms) != 0 {
		t.Errorf("expected no terms, got %v", terms)
	}
}

func contains(ss []string, want string) bool {
	for _, s := range ss {
		if s == want {
			return true
		}
	}
	return false
}
