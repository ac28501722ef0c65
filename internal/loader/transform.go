package loader

import (
	"strings"

	"github.com/pb33f/libopenapi/datamodel/high/base"
	v3 "github.com/pb33f/libopenapi/datamodel/high/v3"
	"github.com/pb33f/libopenapi/orderedmap"
	"go.yaml.in/yaml/v4"

	"github.com/tapis-project/tapis-go/internal/model"
)

// ExtPathPrefix overrides the version prefix injected in front of a path template.
const ExtPathPrefix = "x-tapis-path-prefix"

// maxSchemaDepth bounds how far nested schemas are expanded; the invoker only
// reads top-level body properties and their item types.
const maxSchemaDepth = 3

func Transform(result *Result) (*model.Spec, error) {
	doc := result.Document.Model

	spec := &model.Spec{
		Info:    transformInfo(doc.Info),
		Servers: transformServers(doc.Servers),
	}

	if doc.Paths != nil && doc.Paths.PathItems != nil {
		for pathStr, pathItem := range doc.Paths.PathItems.FromOldest() {
			spec.Operations = append(spec.Operations, transformPath(pathStr, pathItem)...)
		}
	}

	return spec, nil
}

func transformInfo(info *base.Info) model.Info {
	if info == nil {
		return model.Info{}
	}
	return model.Info{
		Title:       info.Title,
		Description: info.Description,
		Version:     info.Version,
	}
}

func transformServers(servers []*v3.Server) []model.Server {
	var result []model.Server
	for _, s := range servers {
		result = append(result, model.Server{
			URL:         s.URL,
			Description: s.Description,
		})
	}
	return result
}

func transformPath(pathStr string, pathItem *v3.PathItem) []model.Operation {
	var ops []model.Operation

	// Use a slice for deterministic ordering
	methods := []struct {
		method model.Method
		op     *v3.Operation
	}{
		{model.MethodGet, pathItem.Get},
		{model.MethodPost, pathItem.Post},
		{model.MethodPut, pathItem.Put},
		{model.MethodDelete, pathItem.Delete},
		{model.MethodPatch, pathItem.Patch},
		{model.MethodHead, pathItem.Head},
		{model.MethodOptions, pathItem.Options},
		{model.MethodTrace, pathItem.Trace},
	}

	shared := make([]model.Parameter, 0, len(pathItem.Parameters))
	for _, p := range pathItem.Parameters {
		shared = append(shared, transformParameter(p))
	}
	pathPrefix := stringExtension(pathItem.Extensions, ExtPathPrefix)

	for _, m := range methods {
		if m.op == nil {
			continue
		}
		op := transformOperation(m.method, pathStr, m.op, shared)
		if op.PathPrefix == "" {
			op.PathPrefix = pathPrefix
		}
		ops = append(ops, op)
	}

	return ops
}

func transformOperation(method model.Method, path string, op *v3.Operation, shared []model.Parameter) model.Operation {
	operation := model.Operation{
		ID:          op.OperationId,
		Method:      method,
		Path:        path,
		Summary:     op.Summary,
		Description: op.Description,
		Tags:        op.Tags,
		Deprecated:  boolPtr(op.Deprecated),
		PathPrefix:  stringExtension(op.Extensions, ExtPathPrefix),
	}

	for _, p := range op.Parameters {
		operation.Parameters = append(operation.Parameters, transformParameter(p))
	}
	// Path-item parameters apply unless the operation redeclares them.
	for _, p := range shared {
		if !hasParameter(operation.Parameters, p.Name, p.In) {
			operation.Parameters = append(operation.Parameters, p)
		}
	}

	if op.RequestBody != nil {
		operation.RequestBody = transformRequestBody(op.RequestBody)
	}

	return operation
}

func hasParameter(params []model.Parameter, name string, in model.ParameterLocation) bool {
	for _, p := range params {
		if p.Name == name && p.In == in {
			return true
		}
	}
	return false
}

func transformParameter(p *v3.Parameter) model.Parameter {
	param := model.Parameter{
		Name:        p.Name,
		In:          model.ParameterLocation(strings.ToLower(p.In)),
		Description: p.Description,
		Required:    boolPtr(p.Required),
	}

	if p.Schema != nil {
		param.Schema = transformSchemaProxy(p.Schema, 1)
	}

	return param
}

func transformRequestBody(rb *v3.RequestBody) *model.RequestBody {
	body := &model.RequestBody{
		Description: rb.Description,
		Required:    boolPtr(rb.Required),
	}

	if rb.Content != nil {
		for mediaType, content := range rb.Content.FromOldest() {
			mtc := model.MediaTypeContent{MediaType: mediaType}
			if content.Schema != nil {
				mtc.Schema = transformSchemaProxy(content.Schema, 0)
			}
			body.Content = append(body.Content, mtc)
		}
	}

	return body
}

func transformSchemaProxy(proxy *base.SchemaProxy, depth int) *model.Schema {
	if proxy == nil || depth > maxSchemaDepth {
		return nil
	}
	return transformSchema("", proxy.Schema(), depth)
}

func transformSchema(name string, s *base.Schema, depth int) *model.Schema {
	if s == nil {
		return nil
	}

	schema := &model.Schema{
		Name:        name,
		Description: s.Description,
		Format:      s.Format,
		Required:    s.Required,
		Source:      s,
	}

	if len(s.Type) > 0 {
		schema.Type = model.SchemaType(s.Type[0])
	}

	if s.Properties != nil {
		for propName, propProxy := range s.Properties.FromOldest() {
			propSchema := transformSchemaProxy(propProxy, depth+1)
			if propSchema != nil && propSchema.Name == "" {
				propSchema.Name = propName
			}
			schema.Properties = append(schema.Properties, model.Property{
				Name:   propName,
				Schema: propSchema,
			})
		}
	}

	if s.Items != nil && s.Items.A != nil {
		schema.Items = transformSchemaProxy(s.Items.A, depth+1)
	}

	return schema
}

func stringExtension(extensions *orderedmap.Map[string, *yaml.Node], key string) string {
	if extensions == nil {
		return ""
	}
	for pair := extensions.First(); pair != nil; pair = pair.Next() {
		if pair.Key() != key {
			continue
		}
		node := pair.Value()
		if node != nil && node.Kind == yaml.ScalarNode {
			return node.Value
		}
		return ""
	}
	return ""
}

func boolPtr(b *bool) bool {
	if b == nil {
		return false
	}
	return *b
}
