package tapis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/tapis-project/tapis-go/internal/model"
)

// Args are the caller's keyword arguments for one operation: declared
// parameter and body-field names plus the reserved keys below.
type Args map[string]any

// Reserved argument keys.
const (
	ArgHeaders      = "headers"
	ArgDebug        = "_tapis_debug"
	ArgBasicAuth    = "use_basic_auth"
	ArgRequestBody  = "request_body"
	jsonContentType = "application/json"
)

// callOptions are the reserved arguments of one call.
type callOptions struct {
	headers   http.Header
	debug     bool
	basicAuth bool
}

func parseCallOptions(args Args) (callOptions, error) {
	co := callOptions{basicAuth: true}

	switch h := args[ArgHeaders].(type) {
	case nil:
	case http.Header:
		co.headers = h.Clone()
	case map[string]string:
		co.headers = make(http.Header, len(h))
		for k, v := range h {
			co.headers.Set(k, v)
		}
	case map[string]any:
		co.headers = make(http.Header, len(h))
		for k, v := range h {
			s, ok := v.(string)
			if !ok {
				return co, invalidInput("header %q must be a string, got %T", k, v)
			}
			co.headers.Set(k, s)
		}
	default:
		return co, invalidInput("%s must be a map of strings, got %T", ArgHeaders, h)
	}

	if debug, ok := args[ArgDebug].(bool); ok {
		co.debug = debug
	}
	if basic, ok := args[ArgBasicAuth].(bool); ok {
		co.basicAuth = basic
	}
	return co, nil
}

// preparedRequest is everything about a call that can be checked without
// touching the network.
type preparedRequest struct {
	method      string
	url         string
	header      http.Header
	body        []byte
	contentType string
}

// prepare validates args against op and renders the request.
func (c *Client) prepare(resource string, op *model.Operation, args Args) (*preparedRequest, error) {
	base := c.BaseURL()
	if base == "" {
		return nil, configurationError("base URL not configured")
	}

	path, err := expandPath(c.pathRule(resource, op).Apply(op.Path), op, args)
	if err != nil {
		return nil, err
	}

	u, err := url.Parse(base + path)
	if err != nil {
		return nil, configurationError("invalid request URL %q: %v", base+path, err)
	}

	query, err := buildQuery(op, args)
	if err != nil {
		return nil, err
	}
	u.RawQuery = query.Encode()

	header, err := buildHeaderParams(op, args)
	if err != nil {
		return nil, err
	}

	body, err := c.buildBody(op, args)
	if err != nil {
		return nil, err
	}

	pr := &preparedRequest{
		method: string(op.Method),
		url:    u.String(),
		header: header,
		body:   body,
	}
	if body != nil {
		pr.contentType = jsonContentType
	}
	return pr, nil
}

// pathRule picks the operation's own prefix, then the resource rule, then
// the client default.
func (c *Client) pathRule(resource string, op *model.Operation) PathRule {
	if op != nil && op.PathPrefix != "" {
		return ParsePathRule(op.PathPrefix)
	}
	if rule, ok := c.opts.resourceRules[resource]; ok {
		return rule
	}
	return c.opts.defaultRule
}

func expandPath(template string, op *model.Operation, args Args) (string, error) {
	path := template
	for _, p := range op.PathParameters() {
		v, ok := args[p.Name]
		if !ok || isEmptyArg(v) {
			return "", invalidInput("operation %s: missing required path parameter %q", op.ID, p.Name)
		}
		path = strings.ReplaceAll(path, "{"+p.Name+"}", escapePathValue(formatValue(v)))
	}
	return path, nil
}

// escapePathValue escapes each segment of a value, keeping slashes so file
// paths can be passed as a single parameter.
func escapePathValue(s string) string {
	segments := strings.Split(s, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}

func buildQuery(op *model.Operation, args Args) (url.Values, error) {
	query := url.Values{}
	for _, p := range op.QueryParameters() {
		v, ok := args[p.Name]
		if !ok || v == nil {
			if p.Required {
				return nil, invalidInput("operation %s: missing required query parameter %q", op.ID, p.Name)
			}
			continue
		}
		for _, item := range expandList(v) {
			query.Add(p.Name, formatValue(item))
		}
	}
	return query, nil
}

func buildHeaderParams(op *model.Operation, args Args) (http.Header, error) {
	header := http.Header{}
	for _, p := range op.Parameters {
		if p.In != model.LocationHeader {
			continue
		}
		v, ok := args[p.Name]
		if !ok || v == nil {
			if p.Required {
				return nil, invalidInput("operation %s: missing required header parameter %q", op.ID, p.Name)
			}
			continue
		}
		header.Set(p.Name, formatValue(v))
	}
	return header, nil
}

func (c *Client) buildBody(op *model.Operation, args Args) ([]byte, error) {
	if op.RequestBody == nil || len(op.RequestBody.Content) == 0 {
		return nil, nil
	}

	content := op.RequestBody.Find(isJSONMediaType)
	if content == nil {
		return nil, &Error{
			Kind:    ErrNotImplemented,
			Message: fmt.Sprintf("operation %s: %s request bodies are not supported", op.ID, op.RequestBody.Content[0].MediaType),
		}
	}

	var payload any
	schema := content.Schema
	if schema == nil || len(schema.Properties) == 0 {
		v, ok := args[ArgRequestBody]
		if !ok {
			if op.RequestBody.Required {
				return nil, invalidInput("operation %s: missing required argument %q", op.ID, ArgRequestBody)
			}
			return nil, nil
		}
		payload = v
	} else {
		fields := make(map[string]any, len(schema.Properties))
		for _, prop := range schema.Properties {
			v, ok := args[prop.Name]
			if !ok {
				if schema.IsRequired(prop.Name) {
					return nil, invalidInput("operation %s: missing required body field %q", op.ID, prop.Name)
				}
				continue
			}
			fields[prop.Name] = v
		}
		payload = fields
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, &Error{Kind: ErrInvalidInput, Message: fmt.Sprintf("operation %s: encoding request body", op.ID), Err: err}
	}

	if c.opts.validateBodies && schema != nil && schema.Source != nil {
		if err := validateBody(op.ID, schema.Source, data); err != nil {
			return nil, err
		}
	}
	return data, nil
}

func isJSONMediaType(mediaType string) bool {
	mt := baseMediaType(mediaType)
	return mt == jsonContentType || mt == "*/*" || strings.HasSuffix(mt, "+json")
}

// baseMediaType strips parameters such as charset.
func baseMediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt, _, _ = strings.Cut(contentType, ";")
	}
	return strings.ToLower(strings.TrimSpace(mt))
}

func isEmptyArg(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

func formatValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case []byte:
		return string(t)
	case fmt.Stringer:
		return t.String()
	}
	return fmt.Sprint(v)
}

// expandList returns the elements of a slice value, or v itself.
func expandList(v any) []any {
	if _, ok := v.([]byte); ok {
		return []any{v}
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []any{v}
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items
}

func (pr *preparedRequest) newHTTPRequest(ctx context.Context) (*http.Request, error) {
	var body io.Reader
	if pr.body != nil {
		body = bytes.NewReader(pr.body)
	}
	req, err := http.NewRequestWithContext(ctx, pr.method, pr.url, body)
	if err != nil {
		return nil, configurationError("building request: %v", err)
	}
	for k, vs := range pr.header {
		req.Header[k] = vs
	}
	if pr.contentType != "" {
		req.Header.Set("Content-Type", pr.contentType)
	}
	return req, nil
}
