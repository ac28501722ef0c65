package tapis

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/tapis-project/tapis-go/internal/loader"
)

const thingsSpec = `
openapi: "3.0.3"
info:
  title: Things API
  version: "1"
paths:
  /v3/things/{id}:
    parameters:
      - name: id
        in: path
        required: true
        schema:
          type: string
    get:
      operationId: get_thing
      responses:
        "200":
          description: ok
    put:
      operationId: replace_thing
      requestBody:
        required: true
        content:
          application/json:
            schema:
              type: object
      responses:
        "200":
          description: ok
  /things:
    get:
      operationId: list_things
      parameters:
        - name: limit
          in: query
          required: true
          schema:
            type: integer
        - name: recurse
          in: query
          schema:
            type: boolean
        - name: tag
          in: query
          schema:
            type: array
            items:
              type: string
        - name: offset
          in: query
          schema:
            type: integer
      responses:
        "200":
          description: ok
    post:
      operationId: create_thing
      requestBody:
        required: true
        content:
          application/json:
            schema:
              type: object
              required:
                - name
              properties:
                name:
                  type: string
                size:
                  type: integer
      responses:
        "200":
          description: ok
  /raw/things:
    get:
      operationId: get_raw
      x-tapis-path-prefix: none
      responses:
        "200":
          description: ok
  /things/upload:
    post:
      operationId: upload_thing
      requestBody:
        content:
          multipart/form-data:
            schema:
              type: object
              properties:
                file:
                  type: string
                  format: binary
      responses:
        "200":
          description: ok
`

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func testClock() time.Time { return testNow }

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   []byte
}

// recorder is an httptest handler that records every request and answers
// with the handler registered for "METHOD /escaped/path".
type recorder struct {
	t        *testing.T
	mu       sync.Mutex
	requests []recordedRequest
	routes   map[string]http.HandlerFunc
}

func newRecorder(t *testing.T) *recorder {
	return &recorder{t: t, routes: make(map[string]http.HandlerFunc)}
}

func (rec *recorder) handle(route string, h http.HandlerFunc) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.routes[route] = h
}

func (rec *recorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	rec.mu.Lock()
	rec.requests = append(rec.requests, recordedRequest{
		Method: r.Method,
		Path:   r.URL.EscapedPath(),
		Query:  r.URL.RawQuery,
		Header: r.Header.Clone(),
		Body:   body,
	})
	h, ok := rec.routes[r.Method+" "+r.URL.EscapedPath()]
	rec.mu.Unlock()

	if ok {
		h(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"result": map[string]any{"ok": true}})
}

func (rec *recorder) all() []recordedRequest {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return append([]recordedRequest(nil), rec.requests...)
}

func (rec *recorder) last() recordedRequest {
	all := rec.all()
	require.NotEmpty(rec.t, all)
	return all[len(all)-1]
}

func (rec *recorder) count(method, path string) int {
	n := 0
	for _, r := range rec.all() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// testRegistry holds the inline things spec plus the bundled tokens,
// tenants and authenticator specs.
func testRegistry(t *testing.T) *Registry {
	t.Helper()
	l := &loader.Loader{Logger: zaptest.NewLogger(t)}
	reg, err := LoadRegistry(context.Background(), l, []loader.Source{
		{Name: "tokens"},
		{Name: "tenants"},
		{Name: "authenticator"},
	})
	require.NoError(t, err)

	result, err := loader.LoadBytes([]byte(thingsSpec))
	require.NoError(t, err)
	spec, err := loader.Transform(result)
	require.NoError(t, err)
	reg.Add("things", spec)
	return reg
}

func newTestClient(t *testing.T, rec *recorder, cfg Config, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(rec)
	t.Cleanup(srv.Close)

	cfg.BaseURL = srv.URL
	base := []Option{
		WithLogger(zaptest.NewLogger(t)),
		WithHTTPClient(srv.Client()),
		WithClock(testClock),
	}
	c, err := New(testRegistry(t), cfg, append(base, opts...)...)
	require.NoError(t, err)
	return c
}

// signedJWT returns an HS256 token expiring at exp.
func signedJWT(t *testing.T, subject string, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"exp": exp.Unix(),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func tokenPairBody(access, refresh string) map[string]any {
	return map[string]any{
		"status":  "success",
		"message": "Token generation successful.",
		"version": "dev",
		"result": map[string]any{
			"access_token": map[string]any{
				"access_token": access,
				"expires_in":   3600,
			},
			"refresh_token": map[string]any{
				"refresh_token": refresh,
				"expires_in":    7200,
			},
		},
	}
}
