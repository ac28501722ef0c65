package tapis

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

const uploadOperation = "upload"

// Upload sends the file at sourcePath to destPath on a Files system as a
// multipart POST to /files/ops/{systemID}/{destPath}. Only the headers and
// debug keys of args are used; caller headers win.
func (c *Client) Upload(ctx context.Context, sourcePath, systemID, destPath string, args Args) (*Response, error) {
	co, err := parseCallOptions(args)
	if err != nil {
		return nil, err
	}
	if systemID == "" {
		return nil, invalidInput("upload: system id is required")
	}
	if strings.Trim(destPath, "/") == "" {
		return nil, invalidInput("upload: destination path is required")
	}
	base := c.BaseURL()
	if base == "" {
		return nil, configurationError("base URL not configured")
	}

	f, err := os.Open(sourcePath)
	if err != nil {
		return nil, &Error{Kind: ErrInvalidInput, Message: fmt.Sprintf("upload: opening %s", sourcePath), Err: err}
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(sourcePath))
	if err != nil {
		return nil, fmt.Errorf("upload: creating form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, &Error{Kind: ErrInvalidInput, Message: fmt.Sprintf("upload: reading %s", sourcePath), Err: err}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("upload: closing multipart body: %w", err)
	}

	path := "/files/ops/" + escapePathValue(systemID) + "/" + escapePathValue(strings.TrimLeft(destPath, "/"))
	path = c.pathRule("files", nil).Apply(path)

	c.maybeRefresh(ctx, "files", uploadOperation)

	body := buf.Bytes()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+path, bytes.NewReader(body))
	if err != nil {
		return nil, configurationError("building upload request: %v", err)
	}
	c.setIdentityHeaders(req)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	mergeHeaders(req.Header, co.headers)

	return c.do(req, body, co.debug, zap.String("resource", "files"), zap.String("operation", uploadOperation))
}
