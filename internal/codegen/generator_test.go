package codegen

import (
	"context"
	"go/parser"
	"go/token"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tapis-project/tapis-go/internal/loader"
	"github.com/tapis-project/tapis-go/internal/model"
)

func loadSpec(t *testing.T, resource string) *model.Spec {
	t.Helper()
	l := &loader.Loader{}
	result, err := l.Load(context.Background(), loader.Source{Name: resource})
	require.NoError(t, err)
	spec, err := loader.Transform(result)
	require.NoError(t, err)
	return spec
}

func TestGenerateTenants(t *testing.T) {
	g, err := New(Options{Package: "tenants"})
	require.NoError(t, err)

	out, err := g.Generate("tenants", loadSpec(t, "tenants"))
	require.NoError(t, err)
	require.Equal(t, "tenants.go", out.Filename)

	_, err = parser.ParseFile(token.NewFileSet(), out.Filename, out.Content, parser.AllErrors)
	require.NoError(t, err)

	require.Contains(t, out.Content, "// Code generated by tapis generate; DO NOT EDIT.")
	require.Contains(t, out.Content, "type TenantsClient struct")
	require.Contains(t, out.Content, "func NewTenantsClient(c *tapis.Client) *TenantsClient")
	require.Contains(t, out.Content, "func (c *TenantsClient) GetTenant(ctx context.Context, tenantID string, extra ...tapis.Args) (*tapis.Response, error)")
	require.Contains(t, out.Content, `args["tenant_id"] = tenantID`)
	require.Contains(t, out.Content, "type ListTenantsParams struct")
	require.Regexp(t, `Limit\s+\*int64`, out.Content)
	require.Contains(t, out.Content, `return c.client.Invoke(ctx, "tenants", "list_tenants", args)`)
}

func TestGenerateFieldsAndBodies(t *testing.T) {
	spec := &model.Spec{
		Info: model.Info{Title: "Things", Version: "1"},
		Operations: []model.Operation{
			{
				ID:     "create_thing",
				Method: model.MethodPost,
				Path:   "/things/{type}",
				Parameters: []model.Parameter{
					{Name: "type", In: model.LocationPath, Required: true},
					{Name: "dry_run", In: model.LocationQuery, Schema: &model.Schema{Type: model.TypeBoolean}},
				},
				RequestBody: &model.RequestBody{
					Required: true,
					Content: []model.MediaTypeContent{{
						MediaType: "application/json",
						Schema: &model.Schema{
							Type:     model.TypeObject,
							Required: []string{"name"},
							Properties: []model.Property{
								{Name: "name", Schema: &model.Schema{Type: model.TypeString, Description: "Display name."}},
								{Name: "tags", Schema: &model.Schema{Type: model.TypeArray, Items: &model.Schema{Type: model.TypeString}}},
								{Name: "dry_run", Schema: &model.Schema{Type: model.TypeBoolean}},
							},
						},
					}},
				},
			},
			{
				ID:     "replace_thing",
				Method: model.MethodPut,
				Path:   "/things",
				RequestBody: &model.RequestBody{
					Content: []model.MediaTypeContent{{MediaType: "application/json", Schema: &model.Schema{Type: model.TypeObject}}},
				},
			},
			{
				ID:     "upload_thing",
				Method: model.MethodPost,
				Path:   "/things/upload",
				RequestBody: &model.RequestBody{
					Content: []model.MediaTypeContent{{MediaType: "multipart/form-data"}},
				},
			},
			{Method: model.MethodGet, Path: "/anonymous"},
		},
	}

	g, err := New(Options{Package: "things"})
	require.NoError(t, err)
	out, err := g.Generate("things", spec)
	require.NoError(t, err)

	_, err = parser.ParseFile(token.NewFileSet(), out.Filename, out.Content, parser.AllErrors)
	require.NoError(t, err)

	require.Contains(t, out.Content, "func (c *ThingsClient) CreateThing(ctx context.Context, type_ string, params *CreateThingParams, extra ...tapis.Args)")
	require.Regexp(t, `DryRun\s+\*bool`, out.Content)
	require.Regexp(t, `Name\s+string`, out.Content)
	require.Regexp(t, `Tags\s+\[\]string`, out.Content)
	require.Contains(t, out.Content, "// Display name.")
	require.Regexp(t, `RequestBody\s+any`, out.Content)
	require.Contains(t, out.Content, `args["request_body"] = params.RequestBody`)
	require.Contains(t, out.Content, "tapis.ErrNotImplemented")
	require.NotContains(t, out.Content, "anonymous")
}

func TestNewRejectsInvalidPackage(t *testing.T) {
	_, err := New(Options{Package: "my-pkg"})
	require.ErrorContains(t, err, "invalid package name")
}

func TestGeneratorInitialismsAreScoped(t *testing.T) {
	spec := &model.Spec{
		Operations: []model.Operation{
			{ID: "get_hpc_queue", Method: model.MethodGet, Path: "/queues"},
		},
	}

	withHPC, err := New(Options{Package: "gen", Initialisms: []string{"hpc"}})
	require.NoError(t, err)
	out, err := withHPC.Generate("systems", spec)
	require.NoError(t, err)
	require.Contains(t, out.Content, "func (c *SystemsClient) GetHPCQueue(")

	plain, err := New(Options{Package: "gen"})
	require.NoError(t, err)
	out, err = plain.Generate("systems", spec)
	require.NoError(t, err)
	require.Contains(t, out.Content, "func (c *SystemsClient) GetHpcQueue(")
}
