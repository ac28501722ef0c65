package tapis

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/tapis-project/tapis-go/result"
)

// Response is a successful call.
type Response struct {
	StatusCode  int
	Header      http.Header
	ContentType string
	// Body is the raw response body, always populated.
	Body []byte

	// Result is the normalized envelope "result" field. It is invalid when
	// the body is not JSON or carries no result.
	Result result.Value
	// JSON is the parsed document when it has no result envelope.
	JSON any

	// Envelope metadata, empty when absent.
	Status  string
	Message string
	Version string

	// Debug is set when the call was made with the debug flag.
	Debug *Debug
}

// IsJSON reports whether the response declared a JSON content type.
func (r *Response) IsJSON() bool {
	mt := baseMediaType(r.ContentType)
	return mt == jsonContentType || strings.HasSuffix(mt, "+json")
}

// Value returns the most specific view of the body: the envelope result,
// then the unwrapped JSON document, then the raw bytes.
func (r *Response) Value() result.Value {
	switch {
	case r.Result.IsValid():
		return r.Result
	case r.JSON != nil:
		return result.From(r.JSON)
	case r.IsJSON():
		return result.Null()
	}
	return result.Bytes(r.Body)
}

// normalize parses a JSON body and unwraps the result envelope.
func (r *Response) normalize() error {
	if !r.IsJSON() || len(bytes.TrimSpace(r.Body)) == 0 {
		return nil
	}
	doc, err := result.Decode(r.Body)
	if err != nil {
		return err
	}

	obj, ok := doc.(map[string]any)
	if !ok {
		r.JSON = doc
		return nil
	}
	r.Status = stringField(obj, "status")
	r.Message = stringField(obj, "message")
	r.Version = stringField(obj, "version")

	// Only an absent or null result means no envelope; [] and false unwrap.
	if env, ok := obj[result.EnvelopeKey]; ok && env != nil {
		r.Result = result.FromEnvelope(env)
		return nil
	}
	r.JSON = doc
	return nil
}

// errorDetails extracts the server message and API version from an error
// body, falling back to the raw text.
func errorDetails(body []byte) (message, version string) {
	if doc, err := result.Decode(body); err == nil {
		if obj, ok := doc.(map[string]any); ok {
			message = stringField(obj, "message")
			version = stringField(obj, "version")
		}
	}
	if message == "" {
		message = strings.TrimSpace(string(body))
	}
	return message, version
}

func stringField(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return s
}
