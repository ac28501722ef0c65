package model

import "strings"

type Operation struct {
	ID          string
	Method      Method
	Path        string
	Summary     string
	Description string
	Tags        []string
	Parameters  []Parameter
	RequestBody *RequestBody
	Deprecated  bool

	// PathPrefix overrides the resource's path rule for this operation
	// (x-tapis-path-prefix). Empty means "use the resource rule".
	PathPrefix string
}

type Method string

const (
	MethodGet     Method = "GET"
	MethodPost    Method = "POST"
	MethodPut     Method = "PUT"
	MethodDelete  Method = "DELETE"
	MethodPatch   Method = "PATCH"
	MethodHead    Method = "HEAD"
	MethodOptions Method = "OPTIONS"
	MethodTrace   Method = "TRACE"
)

type ParameterLocation string

const (
	LocationPath   ParameterLocation = "path"
	LocationQuery  ParameterLocation = "query"
	LocationHeader ParameterLocation = "header"
	LocationCookie ParameterLocation = "cookie"
)

type Parameter struct {
	Name        string
	In          ParameterLocation
	Description string
	Required    bool
	Schema      *Schema
}

type RequestBody struct {
	Description string
	Required    bool
	Content     []MediaTypeContent
}

type MediaTypeContent struct {
	MediaType string
	Schema    *Schema
}

// PathParameters returns the parameters declared in the path, in declaration order.
func (o *Operation) PathParameters() []Parameter {
	return o.parametersIn(LocationPath)
}

// QueryParameters returns the parameters declared in the query string.
func (o *Operation) QueryParameters() []Parameter {
	return o.parametersIn(LocationQuery)
}

func (o *Operation) parametersIn(loc ParameterLocation) []Parameter {
	var params []Parameter
	for _, p := range o.Parameters {
		if p.In == loc {
			params = append(params, p)
		}
	}
	return params
}

// Find returns the request body content for the first media type accepted
// by match, or nil.
func (b *RequestBody) Find(match func(mediaType string) bool) *MediaTypeContent {
	if b == nil {
		return nil
	}
	for i := range b.Content {
		if match(strings.ToLower(b.Content[i].MediaType)) {
			return &b.Content[i]
		}
	}
	return nil
}
