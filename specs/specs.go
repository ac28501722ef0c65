// Package specs bundles the OpenAPI v3 documents used when a remote copy is
// unavailable or downloading is disabled.
package specs

import "embed"

//go:embed openapi_v3-*.yml
var FS embed.FS

// FileName is the bundled file name for a resource.
func FileName(resource string) string {
	return "openapi_v3-" + resource + ".yml"
}
