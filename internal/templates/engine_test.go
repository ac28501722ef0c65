package templates

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"text/template"

	"github.com/stretchr/testify/require"
)

func TestEngineExecute(t *testing.T) {
	bundled := fstest.MapFS{
		"go/hello.tmpl": &fstest.MapFile{Data: []byte(`Hello {{upper .}}`)},
		"README.md":     &fstest.MapFile{Data: []byte(`ignored`)},
	}
	funcs := template.FuncMap{"upper": strings.ToUpper}

	e, err := NewEngine(bundled, "", funcs)
	require.NoError(t, err)

	out, err := e.Execute("go/hello.tmpl", "tapis")
	require.NoError(t, err)
	require.Equal(t, "Hello TAPIS", out)

	_, err = e.Execute("README.md", nil)
	require.ErrorContains(t, err, "template not found")
}

func TestEngineOverrideDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "go"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go", "hello.tmpl"), []byte(`Bye {{.}}`), 0o644))

	bundled := fstest.MapFS{"go/hello.tmpl": &fstest.MapFile{Data: []byte(`Hello {{.}}`)}}
	e, err := NewEngine(bundled, dir, nil)
	require.NoError(t, err)

	out, err := e.Execute("go/hello.tmpl", "tapis")
	require.NoError(t, err)
	require.Equal(t, "Bye tapis", out)

	_, err = NewEngine(bundled, filepath.Join(dir, "absent"), nil)
	require.Error(t, err)
}

func TestEngineParseError(t *testing.T) {
	bundled := fstest.MapFS{"bad.tmpl": &fstest.MapFile{Data: []byte(`{{if}}`)}}
	_, err := NewEngine(bundled, "", nil)
	require.ErrorContains(t, err, "parsing bundled template bad.tmpl")
}
