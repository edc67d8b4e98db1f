package budget

import "strings"

// defKeywords mark lines that begin a function or type definition. This is
// a cheap substring heuristic, not a parser: it does not understand nested
// scopes or string literals containing a keyword, and that is acceptable
// for the purpose of keeping truncated code legible.
var defKeywords = []string{"def ", "class ", "func ", "fn ", "function "}

// graceFactor lets a definition header slightly exceed the budget so a
// signature is not orphaned mid-line.
const graceFactor = 1.1

// truncationMarker is appended when line-based truncation was not enough
// and the content had to be hard-cut.
const truncationMarker = "\n\n[... code truncated ...]"

// truncateCode shortens code content to roughly maxChars while preserving
// structure. Whole lines are kept until the budget is reached; a line that
// starts a definition may still be included within a 10% grace allowance.
// If the kept lines still exceed maxChars the content is hard-cut and a
// marker appended.
func truncateCode(content string, maxChars int) string {
	if len(content) <= maxChars {
		return content
	}

	lines := strings.Split(content, "\n")
	var kept []string
	currentLength := 0

	for _, line := range lines {
		lineLength := len(line) + 1
		if currentLength+lineLength > maxChars {
			if isDefinitionLine(line) &&
				float64(currentLength+lineLength) <= float64(maxChars)*graceFactor {
				kept = append(kept, line)
				currentLength += lineLength
			}
			break
		}
		kept = append(kept, line)
		currentLength += lineLength
	}

	// Not even one complete line fit the budget. Hard-cut the raw
	// content rather than returning nothing.
	if len(kept) == 0 {
		return content[:maxChars-50] + truncationMarker
	}

	result := strings.Join(kept, "\n")
	if len(result) > maxChars {
		result = result[:maxChars-50] + truncationMarker
	}
	return result
}

// isDefinitionLine reports whether the line, ignoring indentation, begins
// a function or class/type definition.
func isDefinitionLine(line string) bool {
	trimmed := strings.TrimLeft(line, " \t")
	for _, kw := range defKeywords {
		if strings.HasPrefix(trimmed, kw) {
			return true
		}
	}
	return false
}
