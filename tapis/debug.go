package tapis

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Debug carries the diagnostics of one call made with the debug flag.
type Debug struct {
	// ID correlates this call with the client's log lines.
	ID          uuid.UUID
	Request     *http.Request
	RequestBody []byte
	Response    *http.Response
	Elapsed     time.Duration
}
