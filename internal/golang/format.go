package golang

import (
	"fmt"

	"golang.org/x/tools/imports"
)

// Format gofmts generated source and fixes its imports. filename only
// labels errors.
func Format(filename string, src []byte) ([]byte, error) {
	out, err := imports.Process("", src, &imports.Options{
		Comments:  true,
		TabIndent: true,
		TabWidth:  8,
	})
	if err != nil {
		return nil, fmt.Errorf("formatting %s: %w", filename, err)
	}
	return out, nil
}
