package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/announcement-sync/internal/testsupport"
	"github.com/noah-isme/announcement-sync/pkg/config"
)

func testConfig(portalURL, ledgerURL string) *config.Config {
	return &config.Config{
		Env:       config.EnvDevelopment,
		APIPrefix: "/api",
		Portal: config.PortalConfig{
			GraphQLURL:        portalURL,
			Timeout:           5 * time.Second,
			UserAgent:         config.DefaultUserAgent,
			DefaultPageSize:   15,
			MaxPageSize:       100,
			EnrichConcurrency: 2,
		},
		Ledger: config.LedgerConfig{
			Mode:           config.LedgerModeSync,
			APIURL:         ledgerURL,
			BaseID:         "appBase",
			Table:          "Announcements",
			APIKey:         "key",
			Timeout:        5 * time.Second,
			MaxAttachments: 5,
		},
		Queue:   config.QueueConfig{BufferSize: 4},
		Metrics: config.MetricsConfig{Enabled: true},
	}
}

func TestRouterEndToEnd(t *testing.T) {
	gin.SetMode(gin.TestMode)
	portal := testsupport.NewPortalStub(map[string]string{"teacher": "pw"}, []testsupport.StubAnnouncement{
		{ID: "gid-1", DBID: 11, Title: "One", Message: "<p>1</p>", CreatedAt: "2024-03-01T00:00:00Z", PermittedName: "Jane"},
		{ID: "gid-2", DBID: "12", Title: "Two", Message: "<p>2</p>", CreatedAt: "2024-03-02T00:00:00Z", PermittedName: "Jane",
			DocumentsCount: 1, Documents: []map[string]string{{"id": "d", "fileFilename": "x.pdf", "fileUrl": "https://files.test/x", "contentType": "application/pdf"}}},
	})
	defer portal.Close()
	ledger := testsupport.NewLedgerStub("key")
	defer ledger.Close()

	r := newApp(testConfig(portal.URL(), ledger.URL()), zap.NewNop()).router()

	body, _ := json.Marshal(map[string]interface{}{"username": "teacher", "password": "pw", "itemsPerPage": 1})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/announcements", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var first struct {
		Announcements []map[string]interface{} `json:"announcements"`
		HasNextPage   bool                     `json:"hasNextPage"`
		EndCursor     string                   `json:"endCursor"`
		Sync          map[string]interface{}   `json:"sync"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))
	require.Len(t, first.Announcements, 1)
	assert.True(t, first.HasNextPage)
	assert.Equal(t, float64(1), first.Sync["successCount"])

	body, _ = json.Marshal(map[string]interface{}{"username": "teacher", "password": "pw", "afterCursor": first.EndCursor, "itemsPerPage": 1})
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/announcements/more", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"fileFilename":"x.pdf"`)
	assert.Contains(t, w.Body.String(), `"hasNextPage":false`)

	rows := ledger.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, "11", rows[0]["AnnouncementId"])
	assert.Equal(t, "12", rows[1]["AnnouncementId"])
	assert.Contains(t, rows[1], "Attachments")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics/summary", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ledger_writes":2`)
}

func TestRouterRejectsBadCredentials(t *testing.T) {
	gin.SetMode(gin.TestMode)
	portal := testsupport.NewPortalStub(map[string]string{"teacher": "pw"}, nil)
	defer portal.Close()
	ledger := testsupport.NewLedgerStub("key")
	defer ledger.Close()

	r := newApp(testConfig(portal.URL(), ledger.URL()), zap.NewNop()).router()

	body, _ := json.Marshal(map[string]interface{}{"username": "teacher", "password": "nope"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/announcements", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "PORTAL_INVALID_CREDENTIALS")
	assert.Equal(t, 0, ledger.Attempts())
}
