package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pb33f/libopenapi"
	"github.com/pb33f/libopenapi/datamodel"
	v3 "github.com/pb33f/libopenapi/datamodel/high/v3"
	"go.uber.org/zap"

	"github.com/tapis-project/tapis-go/specs"
)

// DefaultFetchTimeout bounds a remote spec download.
const DefaultFetchTimeout = 5 * time.Second

type Result struct {
	Document *libopenapi.DocumentModel[v3.Document]
	Version  string
	Warnings []string
	RawData  []byte
	// Origin is the URL or path the document was read from.
	Origin string
}

// SpecLoadError reports that no usable specification could be produced for a resource.
type SpecLoadError struct {
	Resource string
	Origin   string
	Err      error
}

func (e *SpecLoadError) Error() string {
	if e.Origin != "" {
		return fmt.Sprintf("loading spec for resource %q from %s: %v", e.Resource, e.Origin, e.Err)
	}
	return fmt.Sprintf("loading spec for resource %q: %v", e.Resource, e.Err)
}

func (e *SpecLoadError) Unwrap() error {
	return e.Err
}

// Loader resolves Sources into parsed documents. The zero value reads only
// bundled copies.
type Loader struct {
	// Download enables fetching Source.URL before falling back to the local copy.
	Download bool
	// Timeout bounds each remote fetch; DefaultFetchTimeout when zero.
	Timeout time.Duration
	// HTTPClient is used for remote fetches; http.DefaultClient when nil.
	HTTPClient *http.Client
	// Bundled holds the fallback copies; specs.FS when nil.
	Bundled fs.FS
	Logger  *zap.Logger
}

// Load produces a parsed document for src. Remote failures are never fatal;
// local failures are.
func (l *Loader) Load(ctx context.Context, src Source) (*Result, error) {
	log := l.logger().With(zap.String("resource", src.Name))

	if l.Download && src.URL != "" {
		result, err := l.fetch(ctx, src.URL)
		if err == nil {
			log.Debug("Loaded remote spec", zap.String("url", src.URL))
			return result, nil
		}
		log.Debug("Remote spec unavailable, using local copy", zap.String("url", src.URL), zap.Error(err))
	}

	result, err := l.loadLocal(src)
	if err != nil {
		return nil, err
	}
	for _, w := range result.Warnings {
		log.Debug("Spec warning", zap.String("warning", w))
	}
	return result, nil
}

func (l *Loader) fetch(ctx context.Context, url string) (*Result, error) {
	timeout := l.Timeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	client := l.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: HTTP %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	result, err := LoadBytes(data)
	if err != nil {
		return nil, err
	}
	result.Origin = url
	return result, nil
}

func (l *Loader) loadLocal(src Source) (*Result, error) {
	if src.LocalPath != "" {
		result, err := LoadFile(src.LocalPath)
		if err != nil {
			return nil, &SpecLoadError{Resource: src.Name, Origin: src.LocalPath, Err: err}
		}
		return result, nil
	}

	bundled := l.Bundled
	if bundled == nil {
		bundled = specs.FS
	}
	name := specs.FileName(src.Name)
	data, err := fs.ReadFile(bundled, name)
	if err != nil {
		return nil, &SpecLoadError{Resource: src.Name, Origin: name, Err: err}
	}
	result, err := LoadBytes(data)
	if err != nil {
		return nil, &SpecLoadError{Resource: src.Name, Origin: name, Err: err}
	}
	result.Origin = name
	return result, nil
}

func (l *Loader) logger() *zap.Logger {
	if l.Logger == nil {
		return zap.NewNop()
	}
	return l.Logger
}

func LoadFile(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading spec file: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving absolute path: %w", err)
	}

	config := &datamodel.DocumentConfiguration{
		BasePath:            filepath.Dir(absPath),
		AllowFileReferences: true,
	}

	result, err := loadWithConfig(data, config)
	if err != nil {
		return nil, err
	}
	result.Origin = path
	return result, nil
}

// LoadBytes parses an in-memory OpenAPI document (YAML or JSON).
func LoadBytes(data []byte) (*Result, error) {
	return loadWithConfig(data, nil)
}

var errEmptyDocument = errors.New("empty OpenAPI document")

func loadWithConfig(data []byte, config *datamodel.DocumentConfiguration) (*Result, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errEmptyDocument
	}

	var doc libopenapi.Document
	var err error

	if config != nil {
		doc, err = libopenapi.NewDocumentWithConfiguration(data, config)
	} else {
		doc, err = libopenapi.NewDocument(data)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing OpenAPI document: %w", err)
	}

	version := doc.GetVersion()
	if !strings.HasPrefix(version, "3.") {
		return nil, fmt.Errorf("unsupported OpenAPI version: %s (only 3.x supported)", version)
	}

	model, err := doc.BuildV3Model()
	if err != nil {
		return nil, fmt.Errorf("building OpenAPI model: %w", err)
	}

	return &Result{
		Document: model,
		Version:  version,
		RawData:  data,
	}, nil
}
