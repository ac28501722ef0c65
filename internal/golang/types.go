package golang

import "github.com/tapis-project/tapis-go/internal/model"

// GoType maps a schema to the Go type used in generated parameter structs.
func GoType(s *model.Schema) string {
	if s == nil {
		return "any"
	}
	switch s.Type {
	case model.TypeString:
		return "string"
	case model.TypeInteger:
		if s.Format == "int32" {
			return "int32"
		}
		return "int64"
	case model.TypeNumber:
		if s.Format == "float" {
			return "float32"
		}
		return "float64"
	case model.TypeBoolean:
		return "bool"
	case model.TypeArray:
		return "[]" + GoType(s.Items)
	case model.TypeObject:
		return "map[string]any"
	default:
		return "any"
	}
}

// IsNilable reports whether the zero value of a generated type is nil, so an
// optional field does not need a pointer.
func IsNilable(goType string) bool {
	return goType == "any" || len(goType) > 2 && goType[:2] == "[]" || len(goType) > 4 && goType[:4] == "map["
}
