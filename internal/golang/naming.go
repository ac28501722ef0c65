package golang

import (
	"strings"
	"unicode"
)

var defaultInitialisms = []string{
	"API", "DNS", "HTTP", "ID", "IP", "JSON", "JWT", "LDAP", "SK",
	"SQL", "SSH", "TLS", "TTL", "URI", "URL", "UUID", "XML",
}

// Namer turns spec names into Go identifiers. Words in its initialism set
// are rendered in upper case.
type Namer struct {
	initialisms map[string]bool
}

// NewNamer returns a Namer knowing the default initialisms plus extra.
func NewNamer(extra ...string) *Namer {
	n := &Namer{initialisms: make(map[string]bool, len(defaultInitialisms)+len(extra))}
	for _, w := range defaultInitialisms {
		n.initialisms[w] = true
	}
	for _, w := range extra {
		if w = strings.TrimSpace(w); w != "" {
			n.initialisms[strings.ToUpper(w)] = true
		}
	}
	return n
}

var defaultNamer = NewNamer()

// PascalCase turns an operation-id or field name into an exported name.
func PascalCase(s string) string { return defaultNamer.PascalCase(s) }

// CamelCase is PascalCase with the first word lower-cased.
func CamelCase(s string) string { return defaultNamer.CamelCase(s) }

func ToGoIdentifier(s string) string { return defaultNamer.ToGoIdentifier(s) }

func ParamName(s string, taken map[string]bool) string {
	return defaultNamer.ParamName(s, taken)
}

func (n *Namer) PascalCase(s string) string {
	var b strings.Builder
	for _, word := range splitWords(s) {
		b.WriteString(n.titleWord(word))
	}
	return b.String()
}

func (n *Namer) CamelCase(s string) string {
	var b strings.Builder
	for i, word := range splitWords(s) {
		if i == 0 {
			b.WriteString(strings.ToLower(word))
			continue
		}
		b.WriteString(n.titleWord(word))
	}
	return b.String()
}

func (n *Namer) titleWord(word string) string {
	upper := strings.ToUpper(word)
	if n.initialisms[upper] {
		return upper
	}
	runes := []rune(strings.ToLower(word))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// splitWords breaks on separators and lower-to-upper transitions.
func splitWords(s string) []string {
	var words []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			words = append(words, current.String())
			current.Reset()
		}
	}

	var prev rune
	for i, r := range s {
		switch {
		case r == '_' || r == '-' || r == ' ' || r == '.' || r == '/':
			flush()
		case i > 0 && unicode.IsUpper(r) && (unicode.IsLower(prev) || unicode.IsDigit(prev)):
			flush()
			current.WriteRune(r)
		default:
			current.WriteRune(r)
		}
		prev = r
	}
	flush()

	return words
}

// ToGoIdentifier is PascalCase that always yields a valid identifier.
func (n *Namer) ToGoIdentifier(s string) string {
	result := n.PascalCase(s)
	if result == "" {
		return "X"
	}
	if unicode.IsDigit(rune(result[0])) {
		return "X" + result
	}
	return result
}

var goKeywords = map[string]bool{
	"break": true, "case": true, "chan": true, "const": true, "continue": true,
	"default": true, "defer": true, "else": true, "fallthrough": true, "for": true,
	"func": true, "go": true, "goto": true, "if": true, "import": true,
	"interface": true, "map": true, "package": true, "range": true, "return": true,
	"select": true, "struct": true, "switch": true, "type": true, "var": true,
}

func EscapeKeyword(s string) string {
	if goKeywords[strings.ToLower(s)] {
		return s + "_"
	}
	return s
}

// ParamName is the local variable name for a parameter in a generated
// method. Names taken by the method's own variables get a suffix.
func (n *Namer) ParamName(s string, taken map[string]bool) string {
	name := n.CamelCase(s)
	if name == "" {
		name = "p"
	}
	if unicode.IsDigit(rune(name[0])) {
		name = "p" + name
	}
	name = EscapeKeyword(name)
	for taken[name] {
		name += "Param"
	}
	return name
}

// SnakeFile is the generated file name for a resource.
func SnakeFile(resource string) string {
	words := splitWords(resource)
	for i, w := range words {
		words[i] = strings.ToLower(w)
	}
	if len(words) == 0 {
		return "resource.go"
	}
	return strings.Join(words, "_") + ".go"
}
