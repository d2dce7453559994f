package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/noah-isme/announcement-sync/internal/models"
	"github.com/noah-isme/announcement-sync/pkg/config"
	appErrors "github.com/noah-isme/announcement-sync/pkg/errors"
)

const maxLedgerErrorBody = 64 << 10

// LedgerRepository writes announcement rows through the ledger's REST API.
type LedgerRepository struct {
	client   *http.Client
	endpoint string
	apiKey   string
}

type ledgerCreateRecord struct {
	Fields models.LedgerRecord `json:"fields"`
}

type ledgerCreateRequest struct {
	Records []ledgerCreateRecord `json:"records"`
}

type ledgerCreateResponse struct {
	Records []struct {
		ID string `json:"id"`
	} `json:"records"`
}

// NewLedgerRepository constructs a repository for the configured base and table.
func NewLedgerRepository(cfg config.LedgerConfig) *LedgerRepository {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	endpoint := fmt.Sprintf("%s/%s/%s", strings.TrimRight(cfg.APIURL, "/"), url.PathEscape(cfg.BaseID), url.PathEscape(cfg.Table))
	return &LedgerRepository{
		client:   &http.Client{Timeout: timeout},
		endpoint: endpoint,
		apiKey:   cfg.APIKey,
	}
}

// CreateRecord inserts a single row and returns the ledger's record id.
func (r *LedgerRepository) CreateRecord(ctx context.Context, record models.LedgerRecord) (string, error) {
	payload, err := json.Marshal(ledgerCreateRequest{Records: []ledgerCreateRecord{{Fields: record}}})
	if err != nil {
		return "", appErrors.WrapAs(err, appErrors.ErrLedgerWrite, "encode ledger record")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", appErrors.WrapAs(err, appErrors.ErrLedgerWrite, "build ledger request")
	}
	req.Header.Set("Authorization", "Bearer "+r.apiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := r.client.Do(req)
	if err != nil {
		return "", appErrors.WrapAs(err, appErrors.ErrLedgerWrite, "")
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(res.Body, maxLedgerErrorBody))
	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return "", appErrors.WrapAs(fmt.Errorf("status %d: %s", res.StatusCode, ledgerErrorMessage(body)), appErrors.ErrLedgerWrite, "")
	}

	var created ledgerCreateResponse
	if err := json.Unmarshal(body, &created); err != nil || len(created.Records) == 0 {
		// The row was accepted; an unreadable body only loses the id.
		return "", nil
	}
	return created.Records[0].ID, nil
}

// ledgerErrorMessage extracts the message from `{"error":{"type","message"}}`
// or `{"error":"TYPE"}` bodies.
func ledgerErrorMessage(body []byte) string {
	var structured struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &structured); err != nil || len(structured.Error) == 0 {
		return strings.TrimSpace(string(body))
	}
	var detail struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(structured.Error, &detail); err == nil {
		if detail.Message != "" {
			return fmt.Sprintf("%s: %s", detail.Type, detail.Message)
		}
		return detail.Type
	}
	var code string
	if err := json.Unmarshal(structured.Error, &code); err == nil {
		return code
	}
	return string(structured.Error)
}
