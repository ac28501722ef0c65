package model

import (
	"slices"

	"github.com/pb33f/libopenapi/datamodel/high/base"
)

// Schema is the subset of a JSON schema the invoker needs: the top-level
// properties of a request body and their declared types.
type Schema struct {
	Name        string
	Description string
	Type        SchemaType
	Format      string

	Properties []Property
	Required   []string

	Items *Schema

	// Source is the libopenapi schema this was built from. It is kept for
	// payload validation and is nil for hand-built schemas.
	Source *base.Schema
}

type SchemaType string

const (
	TypeString  SchemaType = "string"
	TypeNumber  SchemaType = "number"
	TypeInteger SchemaType = "integer"
	TypeBoolean SchemaType = "boolean"
	TypeArray   SchemaType = "array"
	TypeObject  SchemaType = "object"
	TypeNull    SchemaType = "null"
)

type Property struct {
	Name   string
	Schema *Schema
}

// IsRequired reports whether name is listed in the schema's required fields.
func (s *Schema) IsRequired(name string) bool {
	return s != nil && slices.Contains(s.Required, name)
}
