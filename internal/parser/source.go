package parser

import (
	"regexp"
	"strings"
)

// SourceParser indexes code files and records the declared function and
// type names as metadata for better searchability. A file that fails to
// match anything is still indexed with its raw content.
type SourceParser struct{}

var (
	funcDeclRe = regexp.MustCompile(`(?m)^\s*(?:def|func|fn|function)\s+(?:\([^)]*\)\s+)?([A-Za-z_]\w*)`)
	typeDeclRe = regexp.MustCompile(`(?m)^\s*(?:class|type|struct|interface)\s+([A-Za-z_]\w*)`)
)

// Parse scans the file for declarations.
func (*SourceParser) Parse(fileName string, data []byte) (Document, error) {
	content := string(data)
	meta := map[string]string{}

	if funcs := declNames(funcDeclRe, content); len(funcs) > 0 {
		meta["functions"] = strings.Join(funcs, ",")
	}
	if types := declNames(typeDeclRe, content); len(types) > 0 {
		meta["classes"] = strings.Join(types, ",")
	}

	return Document{
		Content:  content,
		Metadata: meta,
		FileType: fileType(fileName),
		FileName: fileName,
	}, nil
}

func declNames(re *regexp.Regexp, content string) []string {
	var names []string
	seen := map[string]bool{}
	for _, m := range re.FindAllStringSubmatch(content, -1) {
		if name := m[1]; !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}
