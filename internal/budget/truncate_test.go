package budget

import (
	"strings"
	"testing"
)

func TestTruncateCodeFitsUnchanged(t *testing.T) {
	content := "func main() {\n\tprintln(\"hi\")\n}\n"
	if got := truncateCode(content, 1000); got != content {
		t.Errorf("content under budget must pass through unchanged, got %q", got)
	}
}

func TestTruncateCodeKeepsWholeLines(t *testing.T) {
	lines := make([]string, 40)
	for i := range lines {
		lines[i] = "value += 1"
	}
	content := strings.Join(lines, "\n")

	got := truncateCode(content, 100)
	if len(got) > 100 {
		t.Fatalf("result length %d over budget 100", len(got))
	}
	for _, line := range strings.Split(got, "\n") {
		if line != "value += 1" {
			t.Errorf("partial line leaked through: %q", line)
		}
	}
}

func TestTruncateCodeGraceForDefinitionHeader(t *testing.T) {
	// 19 five-char lines fill 95 of 100 budget; the next line starts a
	// definition and fits within the 10% grace, so it is included before
	// the stop. The joined result then exceeds the budget and gets
	// hard-cut with the marker.
	var lines []string
	for i := 0; i < 19; i++ {
		lines = append(lines, "aaaa")
	}
	lines = append(lines, "def fooo():", "body")
	content := strings.Join(lines, "\n")

	got := truncateCode(content, 100)
	if len(got) > 100 {
		t.Fatalf("result length %d over budget 100", len(got))
	}
	if !strings.HasSuffix(got, truncationMarker) {
		t.Errorf("expected truncation marker, got %q", got)
	}
}

func TestTruncateCodeNoGraceForPlainLine(t *testing.T) {
	var lines []string
	for i := 0; i < 19; i++ {
		lines = append(lines, "aaaa")
	}
	lines = append(lines, "plain overflowing line", "more")
	content := strings.Join(lines, "\n")

	got := truncateCode(content, 100)
	if strings.Contains(got, "plain overflowing") {
		t.Error("non-definition line must not receive the grace allowance")
	}
	if strings.Contains(got, truncationMarker) {
		t.Errorf("unexpected marker: %q", got)
	}
	if len(got) > 100 {
		t.Fatalf("result length %d over budget 100", len(got))
	}
}

func TestTruncateCodeGraceBound(t *testing.T) {
	// A definition line pushing past the 10% grace is not included.
	content := "aa\n" + "def " + strings.Repeat("x", 200) + "():"
	got := truncateCode(content, 100)
	if len(got) > 110 {
		t.Fatalf("result length %d over grace bound 110", len(got))
	}
	if strings.Contains(got, "def ") {
		t.Error("oversized definition line must not be included")
	}
}

func TestTruncateCodeSingleGiantLine(t *testing.T) {
	content := strings.Repeat("x", 100000)
	got := truncateCode(content, 500)
	if len(got) > 500 {
		t.Fatalf("result length %d over budget 500", len(got))
	}
	if !strings.HasSuffix(got, truncationMarker) {
		t.Errorf("expected truncation marker at end, got tail %q", got[len(got)-30:])
	}
}

func TestIsDefinitionLine(t *testing.T) {
	cases := []struct {
		line string
		want bool
	}{
		{"def parse(x):", true},
		{"    def nested(self):", true},
		{"\tclass Vault:", true},
		{"func Build(c []Candidate) string {", true},
		{"fn truncate(s: &str) -> String {", true},
		{"function handle(req) {", true},
		{"x := define(1)", false},
		{"// func comment", false},
		{"", false},
	}
	for _, c := range cases {
		if got := isDefinitionLine(c.line); got != c.want {
			t.Errorf("isDefinitionLine(%q) = %v, want %v", c.line, got, c.want)
		}
	}
}
