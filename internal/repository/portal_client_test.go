package repository

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/announcement-sync/internal/models"
	"github.com/noah-isme/announcement-sync/internal/testsupport"
	"github.com/noah-isme/announcement-sync/pkg/config"
	appErrors "github.com/noah-isme/announcement-sync/pkg/errors"
)

func newStubPortal(t *testing.T) *testsupport.PortalStub {
	t.Helper()
	stub := testsupport.NewPortalStub(map[string]string{"5551234567": "secret"}, []testsupport.StubAnnouncement{
		{ID: "QW5uOjE=", DBID: 101, Title: "Field trip", Message: "<p>Bring lunch</p>", CreatedAt: "2024-05-01T10:00:00Z", PermittedName: "Ms. Rivera"},
		{ID: "QW5uOjI=", DBID: 102, Title: "Picture day", Message: "<p>Smile</p>", CreatedAt: "2024-05-02T10:00:00Z", PermittedName: "Mr. Chen", DocumentsCount: 1,
			Documents: []map[string]string{{"id": "RG9jOjE=", "fileFilename": "form.pdf", "fileUrl": "https://files.test/form.pdf?sig=1", "contentType": "application/pdf"}}},
	})
	t.Cleanup(stub.Close)
	return stub
}

func newTestClient(url string) *PortalClient {
	return NewPortalClient(config.PortalConfig{GraphQLURL: url, Timeout: 5 * time.Second})
}

func TestPortalLoginSuccessCarriesSessionCookie(t *testing.T) {
	stub := newStubPortal(t)
	client := newTestClient(stub.URL())

	session, user, err := client.Login(context.Background(), models.Credentials{Credential: "5551234567", Password: "secret"})
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, models.FlexibleID("1"), user.DBID)

	var data models.AnnouncementsQueryData
	err = session.Query(context.Background(), AnnouncementsQuery, map[string]interface{}{"first": 1, "after": nil}, &data)
	require.NoError(t, err)
	require.NotNil(t, data.Viewer)
	require.Len(t, data.Viewer.Announcements.Edges, 1)
	assert.Equal(t, models.FlexibleID("101"), data.Viewer.Announcements.Edges[0].Node.DBID)
	assert.True(t, data.Viewer.Announcements.PageInfo.HasNextPage)

	for _, ua := range stub.UserAgents() {
		assert.Equal(t, config.DefaultUserAgent, ua)
	}
}

func TestPortalLoginInvalidCredentials(t *testing.T) {
	stub := newStubPortal(t)
	client := newTestClient(stub.URL())

	session, _, err := client.Login(context.Background(), models.Credentials{Credential: "5551234567", Password: "wrong"})
	require.Error(t, err)
	assert.Nil(t, session)
	assert.True(t, errors.Is(err, appErrors.ErrPortalInvalidCredentials))
	assert.Contains(t, err.Error(), "Invalid credentials")
}

func TestPortalLoginGraphQLErrorsAreInvalidCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"errors":[{"message":"Variable $input is invalid"}]}`))
	}))
	t.Cleanup(server.Close)

	_, _, err := newTestClient(server.URL).Login(context.Background(), models.Credentials{Credential: "a", Password: "b"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrPortalInvalidCredentials))
	assert.Contains(t, err.Error(), "Variable $input is invalid")
}

func TestPortalLoginTransportFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)

	_, _, err := newTestClient(server.URL).Login(context.Background(), models.Credentials{Credential: "a", Password: "b"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrPortalTransport))
	assert.False(t, errors.Is(err, appErrors.ErrPortalTimeout))
}

func TestPortalLoginTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		server.Close()
	})

	client := NewPortalClient(config.PortalConfig{GraphQLURL: server.URL, Timeout: 50 * time.Millisecond})
	_, _, err := client.Login(context.Background(), models.Credentials{Credential: "a", Password: "b"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrPortalTransport))
	assert.True(t, errors.Is(err, appErrors.ErrPortalTimeout))
}

func TestPortalLoginMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	}))
	t.Cleanup(server.Close)

	_, _, err := newTestClient(server.URL).Login(context.Background(), models.Credentials{Credential: "a", Password: "b"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrPortalMalformedResponse))
}

func TestPortalLoginMissingSessionCreate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{}}`))
	}))
	t.Cleanup(server.Close)

	_, _, err := newTestClient(server.URL).Login(context.Background(), models.Credentials{Credential: "a", Password: "b"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrPortalMalformedResponse))
}

func TestPortalQueryGraphQLErrorKeepsRawPayload(t *testing.T) {
	stub := newStubPortal(t)
	stub.FailAnnouncements("Field 'announcements' is unavailable")
	client := newTestClient(stub.URL())

	session, _, err := client.Login(context.Background(), models.Credentials{Credential: "5551234567", Password: "secret"})
	require.NoError(t, err)

	var data models.AnnouncementsQueryData
	err = session.Query(context.Background(), AnnouncementsQuery, map[string]interface{}{"first": 5}, &data)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrPortalGraphQL))

	var gqlErr *GraphQLError
	require.True(t, errors.As(err, &gqlErr))
	assert.Equal(t, "Field 'announcements' is unavailable", gqlErr.Message)
	assert.Contains(t, gqlErr.Raw, `"message"`)
}

func TestPortalQueryTransportAndMalformed(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		switch calls {
		case 1:
			_, _ = w.Write([]byte(`{"data":{"sessionCreate":{"error":null,"user":{"id":"x","dbId":"7"}}}}`))
		case 2:
			w.WriteHeader(http.StatusBadGateway)
		default:
			_, _ = w.Write([]byte(`not json`))
		}
	}))
	t.Cleanup(server.Close)

	session, user, err := newTestClient(server.URL).Login(context.Background(), models.Credentials{Credential: "a", Password: "b"})
	require.NoError(t, err)
	assert.Equal(t, models.FlexibleID("7"), user.DBID)

	err = session.Query(context.Background(), AnnouncementsQuery, nil, &models.AnnouncementsQueryData{})
	assert.True(t, errors.Is(err, appErrors.ErrPortalQueryTransport))

	err = session.Query(context.Background(), AnnouncementsQuery, nil, &models.AnnouncementsQueryData{})
	assert.True(t, errors.Is(err, appErrors.ErrPortalQueryMalformed))
}

func TestPortalSessionsAreIndependent(t *testing.T) {
	stub := newStubPortal(t)
	client := newTestClient(stub.URL())
	creds := models.Credentials{Credential: "5551234567", Password: "secret"}

	first, _, err := client.Login(context.Background(), creds)
	require.NoError(t, err)
	second, _, err := client.Login(context.Background(), creds)
	require.NoError(t, err)

	assert.NotSame(t, first.client.Jar, second.client.Jar)
	assert.Equal(t, 2, stub.LoginCalls())
}
