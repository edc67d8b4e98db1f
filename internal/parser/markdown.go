package parser

import (
	"strings"
)

// MarkdownParser strips YAML front matter into metadata and indexes the
// document body with the heaviest markup removed.
type MarkdownParser struct{}

// Parse splits front matter from the body. Front matter is read as
// simple "key: value" lines; nested YAML is kept as raw strings.
func (*MarkdownParser) Parse(fileName string, data []byte) (Document, error) {
	body, meta := splitFrontMatter(string(data))
	return Document{
		Content:  stripMarkup(body),
		Metadata: meta,
		FileType: "md",
		FileName: fileName,
	}, nil
}

func splitFrontMatter(content string) (string, map[string]string) {
	meta := map[string]string{}
	if !strings.HasPrefix(content, "---\n") && !strings.HasPrefix(content, "---\r\n") {
		return content, meta
	}
	rest := content[strings.Index(content, "\n")+1:]
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return content, meta
	}
	for _, line := range strings.Split(rest[:end], "\n") {
		k, v, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		v = strings.Trim(strings.TrimSpace(v), `"'`)
		if k != "" && v != "" {
			meta[k] = v
		}
	}
	body := rest[end+len("\n---"):]
	body = strings.TrimPrefix(body, "\r")
	body = strings.TrimPrefix(body, "\n")
	return body, meta
}

// stripMarkup removes heading markers, emphasis and link syntax so the
// indexed text reads like prose. Code fences keep their content.
func stripMarkup(body string) string {
	lines := strings.Split(body, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimLeft(line, " ")
		if strings.HasPrefix(trimmed, "```") {
			continue
		}
		trimmed = strings.TrimLeft(trimmed, "#")
		trimmed = strings.TrimPrefix(trimmed, " ")
		out = append(out, trimmed)
	}
	text := strings.Join(out, "\n")
	for _, marker := range []string{"**", "__", "*", "_", "`"} {
		text = strings.ReplaceAll(text, marker, "")
	}
	return text
}
