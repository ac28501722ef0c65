package tapis

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVersionPrefix(t *testing.T) {
	tests := []struct {
		prefix   string
		template string
		want     string
	}{
		{"/v3", "/tenants", "/v3/tenants"},
		{"/v3", "/v3/tenants", "/v3/tenants"},
		{"/v3", "/v3", "/v3"},
		{"/v3", "/v3tenants", "/v3/v3tenants"},
		{"/v3", "security/role", "/v3/security/role"},
		{"v3/", "/security/role", "/v3/security/role"},
	}

	for _, tt := range tests {
		t.Run(tt.prefix+tt.template, func(t *testing.T) {
			require.Equal(t, tt.want, VersionPrefix(tt.prefix).Apply(tt.template))
		})
	}
}

func TestParsePathRule(t *testing.T) {
	require.Equal(t, "/tenants", ParsePathRule("none").Apply("/tenants"))
	require.Equal(t, "/tenants", ParsePathRule("NONE").Apply("/tenants"))
	require.Equal(t, "/tenants", ParsePathRule("").Apply("/tenants"))
	require.Equal(t, "/tenants", ParsePathRule("/").Apply("/tenants"))
	require.Equal(t, "/v4/tenants", ParsePathRule("/v4").Apply("/tenants"))
}
