package tapis

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tapis-project/tapis-go/internal/model"
	"github.com/tapis-project/tapis-go/result"
)

// Identity headers understood by every Tapis service.
const (
	HeaderToken  = "X-Tapis-Token"
	HeaderTenant = "X-Tapis-Tenant"
	HeaderUser   = "X-Tapis-User"
)

// Invoke calls operationID of resource with args. Argument errors are
// reported before any network I/O.
func (c *Client) Invoke(ctx context.Context, resource, operationID string, args Args) (*Response, error) {
	op, err := c.registry.Lookup(resource, operationID)
	if err != nil {
		return nil, err
	}
	return c.InvokeOperation(ctx, resource, op, args)
}

// InvokeOperation calls a descriptor directly, for operations that were not
// registered.
func (c *Client) InvokeOperation(ctx context.Context, resource string, op *model.Operation, args Args) (*Response, error) {
	co, err := parseCallOptions(args)
	if err != nil {
		return nil, err
	}
	pr, err := c.prepare(resource, op, args)
	if err != nil {
		return nil, err
	}

	c.maybeRefresh(ctx, resource, op.ID)

	req, err := pr.newHTTPRequest(ctx)
	if err != nil {
		return nil, err
	}
	c.setIdentityHeaders(req)
	if opKey(resource, op.ID) == opKey("tokens", "create_token") && co.basicAuth {
		c.setServiceBasicAuth(req)
	}
	mergeHeaders(req.Header, co.headers)

	return c.do(req, pr.body, co.debug, zap.String("resource", resource), zap.String("operation", op.ID))
}

func (c *Client) setIdentityHeaders(req *http.Request) {
	if jwt := c.accessJWT(); jwt != "" {
		req.Header.Set(HeaderToken, jwt)
	}
	s := c.snapshot()
	if s.xTenantID != "" {
		req.Header.Set(HeaderTenant, s.xTenantID)
	}
	if s.xUsername != "" {
		req.Header.Set(HeaderUser, s.xUsername)
	}
	req.Header.Set("Accept", jsonContentType)
}

// setServiceBasicAuth authenticates a service account to the Tokens API.
func (c *Client) setServiceBasicAuth(req *http.Request) {
	if c.cfg.Username == "" || c.cfg.ServicePassword == "" {
		return
	}
	req.Header.Set("Authorization", BasicAuthHeader(c.cfg.Username, c.cfg.ServicePassword))
}

// mergeHeaders copies caller headers over dst; the caller wins.
func mergeHeaders(dst, src http.Header) {
	for k, vs := range src {
		dst.Del(k)
		for _, v := range vs {
			dst.Add(k, v)
		}
	}
}

// do sends req and classifies the outcome.
func (c *Client) do(req *http.Request, reqBody []byte, debug bool, fields ...zap.Field) (*Response, error) {
	id := uuid.New()
	log := c.logger.With(append(fields, zap.Stringer("request_id", id))...)
	log.Debug("Sending request", zap.String("method", req.Method), zap.String("url", req.URL.String()))

	start := time.Now()
	httpResp, err := c.http.Do(req)
	if err != nil {
		log.Debug("Request failed", zap.Error(err))
		return nil, &Error{Kind: ErrTransport, Message: err.Error(), Request: req, Err: err}
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &Error{Kind: ErrTransport, Message: "reading response body", Request: req, Response: httpResp, StatusCode: httpResp.StatusCode, Err: err}
	}
	elapsed := time.Since(start)
	log.Debug("Received response", zap.Int("status", httpResp.StatusCode), zap.Duration("elapsed", elapsed))

	if kind := statusKind(httpResp.StatusCode); kind != nil {
		message, version := errorDetails(body)
		return nil, &Error{
			Kind:       kind,
			Message:    message,
			Version:    version,
			StatusCode: httpResp.StatusCode,
			Request:    req,
			Response:   httpResp,
			Body:       body,
		}
	}

	resp := &Response{
		StatusCode:  httpResp.StatusCode,
		Header:      httpResp.Header,
		ContentType: httpResp.Header.Get("Content-Type"),
		Body:        body,
	}
	if debug {
		resp.Debug = &Debug{
			ID:          id,
			Request:     req,
			RequestBody: reqBody,
			Response:    httpResp,
			Elapsed:     elapsed,
		}
	}
	if err := resp.normalize(); err != nil {
		return nil, &Error{
			Kind:       ErrInvalidServerResponse,
			Message:    "response body is not valid JSON",
			StatusCode: httpResp.StatusCode,
			Request:    req,
			Response:   httpResp,
			Body:       body,
			Err:        err,
		}
	}
	return resp, nil
}

// ResolveTenant looks up the tenant served at the client's base URL when no
// tenant id was configured, and returns the tenant id.
func (c *Client) ResolveTenant(ctx context.Context) (string, error) {
	if id := c.TenantID(); id != "" {
		return id, nil
	}
	resp, err := c.Invoke(ctx, "tenants", "list_tenants", nil)
	if err != nil {
		return "", err
	}

	base := c.BaseURL()
	for _, tenant := range tenantNodes(resp.Result) {
		tenantURL, _ := tenant.Get("base_url").AsString()
		if strings.TrimRight(tenantURL, "/") != base {
			continue
		}
		id, ok := tenant.Get("tenant_id").AsString()
		if !ok || id == "" {
			continue
		}
		c.SetTenant(id, base)
		c.defaultImpersonation()
		c.logger.Debug("Resolved tenant", zap.String("tenant_id", id), zap.String("base_url", base))
		return id, nil
	}
	return "", configurationError("no tenant found with base_url %s", base)
}

func tenantNodes(v result.Value) []result.Value {
	if v.Kind() == result.KindNodes {
		return v.Nodes()
	}
	// A primitive-bearing list arrives wrapped under "result".
	list := v.Get(result.EnvelopeKey)
	nodes := make([]result.Value, 0, list.Len())
	for i := 0; i < list.Len(); i++ {
		if item := list.Index(i); item.IsObject() {
			nodes = append(nodes, item)
		}
	}
	return nodes
}
