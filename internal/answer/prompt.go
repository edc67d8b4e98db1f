package answer

import "fmt"

// promptTemplate is the fixed instruction scaffold sent to the generation
// backend. It is stable across calls; only the context document and the
// question are substituted.
const promptTemplate = `You are an expert code analyst. Based on the following code snippets and documentation from a codebase, provide a detailed and comprehensive answer to the question.

Guidelines:
- Explain how functions, classes, and modules work
- Identify relationships and dependencies between components
- Reference specific file paths when relevant
- If the code shows patterns or architecture, explain them
- Be specific and cite code examples from the context
- If information is incomplete, note what's missing

Context (code snippets and documentation):
%s

Question: %s

Provide a detailed answer with specific references to the code:`

// composePrompt renders the instruction prompt for one generation turn.
func composePrompt(query, contextDocument string) string {
	return fmt.Sprintf(promptTemplate, contextDocument, query)
}
