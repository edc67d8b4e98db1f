package answer

import (
	"regexp"
	"strings"
)

// hedgePhrases signal that the generated answer could not find what it
// needed. Substring matching here is a heuristic with known false
// positives and negatives, which is acceptable for an advisory hint.
var hedgePhrases = []string{
	"cannot be found",
	"not found",
	"not available",
	"incomplete",
	"missing",
	"unclear",
	"not specified",
	"not mentioned",
}

// needsMoreContext reports whether the answer hedges about missing
// information.
func needsMoreContext(answer string) bool {
	lower := strings.ToLower(answer)
	for _, phrase := range hedgePhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

var (
	definitionRe = regexp.MustCompile(`(?i)\b(?:def|class|func|fn|function)\s+([A-Za-z_]\w*)`)
	fileRe       = regexp.MustCompile(`(?i)[\w/\\.-]*\w\.(?:py|md|js|ts|java|cpp|go|rs)\b`)
)

const maxFollowUpTerms = 5

// extractFollowUpTerms collects candidate search terms for a follow-up
// query: identifiers mentioned after definition keywords, file-name stems,
// and non-trivial words from the original query. Deduplicated in
// first-seen order and capped for display brevity.
func extractFollowUpTerms(query, answer string) []string {
	var terms []string

	for _, m := range definitionRe.FindAllStringSubmatch(answer, -1) {
		terms = append(terms, m[1])
	}

	for _, m := range fileRe.FindAllString(answer, -1) {
		terms = append(terms, fileStem(m))
	}

	for _, w := range strings.Fields(query) {
		if len(w) > 4 {
			terms = append(terms, w)
		}
	}

	seen := make(map[string]bool, len(terms))
	out := make([]string, 0, maxFollowUpTerms)
	for _, term := range terms {
		if term == "" || seen[term] {
			continue
		}
		seen[term] = true
		out = append(out, term)
		if len(out) == maxFollowUpTerms {
			break
		}
	}
	return out
}

// fileStem reduces a matched file path to its base name without the
// extension.
func fileStem(path string) string {
	if i := strings.LastIndexAny(path, "/\\"); i >= 0 {
		path = path[i+1:]
	}
	if i := strings.LastIndex(path, "."); i > 0 {
		path = path[:i]
	}
	return path
}
