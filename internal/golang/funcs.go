package golang

import (
	"strconv"
	"strings"
	"text/template"
)

// TemplateFuncs is the func map shared by bundled and override templates.
// The naming and lower funcs are unused by go/resource.tmpl; they are there
// for templates passed with --templates.
func TemplateFuncs(n *Namer) template.FuncMap {
	return template.FuncMap{
		"pascalCase": n.PascalCase,
		"camelCase":  n.CamelCase,
		"goName":     n.ToGoIdentifier,
		"goComment":  GoComment,
		"quote":      strconv.Quote,
		"lower":      strings.ToLower,
	}
}

// GoComment renders s as line comments.
func GoComment(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight("// "+strings.TrimSpace(line), " ")
	}
	return strings.Join(lines, "\n")
}
