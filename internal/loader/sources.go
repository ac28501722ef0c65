package loader

import "slices"

// Source names one resource and where its specification lives.
type Source struct {
	Name string
	// URL is the upstream location, consulted only when downloading is enabled.
	URL string
	// LocalPath overrides the bundled copy.
	LocalPath string
}

var defaultSources = []Source{
	{Name: "actors", URL: "https://raw.githubusercontent.com/TACC/abaco/master/docs/specs/openapi_v3.yml"},
	{Name: "authenticator", URL: "https://raw.githubusercontent.com/tapis-project/authenticator/dev/service/resources/openapi_v3.yml"},
	{Name: "files", URL: "https://raw.githubusercontent.com/tapis-project/tapis-files/master/api/src/main/resources/openapi.yaml"},
	{Name: "meta", URL: "https://raw.githubusercontent.com/tapis-project/tapis-client-java/master/meta-client/src/main/resources/metav3-openapi.yaml"},
	{Name: "sk", URL: "https://raw.githubusercontent.com/tapis-project/tapis-client-java/master/security-client/src/main/resources/SKAuthorizationAPI.yaml"},
	{Name: "streams", URL: "https://raw.githubusercontent.com/tapis-project/streams-api/dev/service/resources/openapi_v3.yml"},
	{Name: "systems", URL: "https://raw.githubusercontent.com/tapis-project/tapis-client-java/master/systems-client/SystemsAPI.yaml"},
	{Name: "tenants", URL: "https://raw.githubusercontent.com/tapis-project/tenants-api/master/service/resources/openapi_v3.yml"},
	{Name: "tokens", URL: "https://raw.githubusercontent.com/tapis-project/tokens-api/master/service/resources/openapi_v3.yml"},
}

// DefaultSources returns the resources that ship with a bundled spec copy.
func DefaultSources() []Source {
	return slices.Clone(defaultSources)
}

// MergeSources overlays overrides onto base by name; unknown names are appended.
func MergeSources(base []Source, overrides []Source) []Source {
	out := slices.Clone(base)
	for _, o := range overrides {
		idx := slices.IndexFunc(out, func(s Source) bool { return s.Name == o.Name })
		if idx < 0 {
			out = append(out, o)
			continue
		}
		if o.URL != "" {
			out[idx].URL = o.URL
		}
		if o.LocalPath != "" {
			out[idx].LocalPath = o.LocalPath
		}
	}
	return out
}
