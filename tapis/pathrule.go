package tapis

import "strings"

// DefaultVersionPrefix is injected in front of path templates that lack it.
const DefaultVersionPrefix = "/v3"

// NoPrefixValue disables prefix injection when used as a path-prefix setting.
const NoPrefixValue = "none"

// PathRule normalizes an operation's path template before parameter
// substitution. Some service specs declare "/v3/..." paths and some omit the
// version entirely.
type PathRule interface {
	Apply(template string) string
}

// PathRuleFunc adapts a function to PathRule.
type PathRuleFunc func(template string) string

func (f PathRuleFunc) Apply(template string) string {
	return f(template)
}

// VersionPrefix injects prefix unless the template already starts with it.
func VersionPrefix(prefix string) PathRule {
	prefix = "/" + strings.Trim(prefix, "/")
	return PathRuleFunc(func(template string) string {
		if template == prefix || strings.HasPrefix(template, prefix+"/") {
			return template
		}
		if !strings.HasPrefix(template, "/") {
			template = "/" + template
		}
		return prefix + template
	})
}

// NoPrefix leaves templates untouched.
func NoPrefix() PathRule {
	return PathRuleFunc(func(template string) string { return template })
}

// ParsePathRule turns a configured prefix into a rule; "none" disables
// injection.
func ParsePathRule(prefix string) PathRule {
	if prefix == "" || strings.EqualFold(prefix, NoPrefixValue) || prefix == "/" {
		return NoPrefix()
	}
	return VersionPrefix(prefix)
}
