package testsupport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// LedgerStub imitates the ledger's record-create endpoint and keeps every row it accepted.
type LedgerStub struct {
	Server *httptest.Server

	apiKey string

	mu       sync.Mutex
	attempts int
	failOn   map[int]bool
	rows     []map[string]interface{}
	paths    []string
}

// NewLedgerStub starts a ledger expecting the given bearer token.
func NewLedgerStub(apiKey string) *LedgerStub {
	stub := &LedgerStub{apiKey: apiKey, failOn: map[int]bool{}}
	stub.Server = httptest.NewServer(http.HandlerFunc(stub.serve))
	return stub
}

// URL is the API root, equivalent to https://api.airtable.com/v0.
func (l *LedgerStub) URL() string {
	return l.Server.URL + "/v0"
}

// Close shuts the server down.
func (l *LedgerStub) Close() {
	l.Server.Close()
}

// FailAttempt makes the n-th (1-based) write attempt return 422.
func (l *LedgerStub) FailAttempt(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failOn[n] = true
}

// Attempts returns the number of write requests received.
func (l *LedgerStub) Attempts() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.attempts
}

// Rows returns the field maps of every stored row, in arrival order.
func (l *LedgerStub) Rows() []map[string]interface{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]map[string]interface{}(nil), l.rows...)
}

// Paths returns the request paths seen.
func (l *LedgerStub) Paths() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.paths...)
}

type ledgerCreateRequest struct {
	Records []struct {
		Fields map[string]interface{} `json:"fields"`
	} `json:"records"`
}

func (l *LedgerStub) serve(w http.ResponseWriter, r *http.Request) {
	l.mu.Lock()
	l.attempts++
	attempt := l.attempts
	fail := l.failOn[attempt]
	l.paths = append(l.paths, r.URL.Path)
	l.mu.Unlock()

	if r.Header.Get("Authorization") != "Bearer "+l.apiKey {
		w.WriteHeader(http.StatusUnauthorized)
		writeJSON(w, map[string]interface{}{"error": map[string]string{"type": "AUTHENTICATION_REQUIRED", "message": "Authentication required"}})
		return
	}
	if !strings.HasPrefix(r.URL.Path, "/v0/") {
		w.WriteHeader(http.StatusNotFound)
		writeJSON(w, map[string]interface{}{"error": "NOT_FOUND"})
		return
	}

	var req ledgerCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Records) == 0 {
		w.WriteHeader(http.StatusUnprocessableEntity)
		writeJSON(w, map[string]interface{}{"error": map[string]string{"type": "INVALID_REQUEST_UNKNOWN", "message": "Invalid request"}})
		return
	}
	if fail {
		w.WriteHeader(http.StatusUnprocessableEntity)
		writeJSON(w, map[string]interface{}{"error": map[string]string{"type": "INVALID_VALUE_FOR_COLUMN", "message": "Field \"SentTime\" cannot accept the provided value"}})
		return
	}

	created := make([]map[string]interface{}, 0, len(req.Records))
	l.mu.Lock()
	for _, rec := range req.Records {
		l.rows = append(l.rows, rec.Fields)
		created = append(created, map[string]interface{}{
			"id":     fmt.Sprintf("rec%04d", len(l.rows)),
			"fields": rec.Fields,
		})
	}
	l.mu.Unlock()

	writeJSON(w, map[string]interface{}{"records": created})
}
