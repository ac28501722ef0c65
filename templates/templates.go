// Package templates holds the bundled code generation templates.
package templates

import "embed"

//go:embed go/*.tmpl
var FS embed.FS
