package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/announcement-sync/internal/models"
	"github.com/noah-isme/announcement-sync/internal/repository"
	"github.com/noah-isme/announcement-sync/internal/testsupport"
	"github.com/noah-isme/announcement-sync/pkg/config"
	appErrors "github.com/noah-isme/announcement-sync/pkg/errors"
)

var testCreds = models.Credentials{Credential: "teacher@school.test", Password: "secret"}

type recordingSink struct {
	mu     sync.Mutex
	events []models.PipelineEvent
}

func (r *recordingSink) Record(_ context.Context, event models.PipelineEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingSink) byStage(stage models.PipelineStage) []models.PipelineEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.PipelineEvent
	for _, e := range r.events {
		if e.Stage == stage {
			out = append(out, e)
		}
	}
	return out
}

func stubAnnouncements(n int) []testsupport.StubAnnouncement {
	out := make([]testsupport.StubAnnouncement, n)
	for i := range out {
		out[i] = testsupport.StubAnnouncement{
			ID:            fmt.Sprintf("QW5ub3VuY2VtZW50OjE%03d", i),
			DBID:          1000 + i,
			Title:         fmt.Sprintf("Announcement %d", i),
			Message:       "<p>body</p>",
			CreatedAt:     "2024-01-15T10:00:00Z",
			PermittedName: "Jane Doe",
		}
	}
	return out
}

func newPortal(t *testing.T, announcements []testsupport.StubAnnouncement) *testsupport.PortalStub {
	t.Helper()
	stub := testsupport.NewPortalStub(map[string]string{testCreds.Credential: testCreds.Password}, announcements)
	t.Cleanup(stub.Close)
	return stub
}

func newAnnouncementService(stub *testsupport.PortalStub, events EventSink, concurrency int) *AnnouncementService {
	client := repository.NewPortalClient(config.PortalConfig{GraphQLURL: stub.URL(), Timeout: 5 * time.Second, UserAgent: "test-agent"})
	docs := NewDocumentService(client, events, zap.NewNop())
	return NewAnnouncementService(client, docs, events, zap.NewNop(), AnnouncementServiceConfig{
		DefaultPageSize:   15,
		MaxPageSize:       100,
		EnrichConcurrency: concurrency,
	})
}

func TestFetchPageReturnsRequestedSize(t *testing.T) {
	stub := newPortal(t, stubAnnouncements(20))
	svc := newAnnouncementService(stub, nil, 1)

	page := svc.FetchPage(context.Background(), testCreds, nil, 15)
	require.Nil(t, page.Error)
	assert.Len(t, page.Announcements, 15)
	assert.True(t, page.HasNextPage)
	require.NotNil(t, page.EndCursor)
	assert.Equal(t, "cursor:14", *page.EndCursor)

	page = svc.FetchPage(context.Background(), testCreds, nil, 30)
	require.Nil(t, page.Error)
	assert.Len(t, page.Announcements, 20)
	assert.False(t, page.HasNextPage)
}

func TestFetchPageUsesDefaultSizeAndKeepsOrder(t *testing.T) {
	stub := newPortal(t, stubAnnouncements(20))
	svc := newAnnouncementService(stub, nil, 1)

	page := svc.FetchPage(context.Background(), testCreds, nil, 0)
	require.Nil(t, page.Error)
	require.Len(t, page.Announcements, 15)
	for i, ann := range page.Announcements {
		assert.Equal(t, fmt.Sprintf("%d", 1000+i), ann.DBID)
		require.NotNil(t, ann.Title)
		assert.Equal(t, fmt.Sprintf("Announcement %d", i), *ann.Title)
		assert.NotNil(t, ann.Documents)
	}
}

func TestFetchPageEmptyFeed(t *testing.T) {
	stub := newPortal(t, nil)
	svc := newAnnouncementService(stub, nil, 1)

	page := svc.FetchPage(context.Background(), testCreds, nil, 15)
	require.Nil(t, page.Error)
	assert.NotNil(t, page.Announcements)
	assert.Empty(t, page.Announcements)
	assert.False(t, page.HasNextPage)
	assert.Nil(t, page.EndCursor)
}

func TestFetchPageSkipsEnrichmentWithoutDocuments(t *testing.T) {
	stub := newPortal(t, stubAnnouncements(5))
	svc := newAnnouncementService(stub, nil, 1)

	page := svc.FetchPage(context.Background(), testCreds, nil, 5)
	require.Nil(t, page.Error)
	assert.Equal(t, 0, stub.TotalDocumentCalls())
	assert.Equal(t, 1, stub.LoginCalls())
	for _, ann := range page.Announcements {
		assert.Empty(t, ann.Documents)
	}
}

func TestFetchPageEnrichesOnFreshSessions(t *testing.T) {
	data := stubAnnouncements(3)
	data[1].DocumentsCount = 2
	data[1].Documents = []map[string]string{
		{"id": "d1", "fileFilename": "a.pdf", "fileUrl": "https://files.test/a.pdf?sig=1", "contentType": "application/pdf"},
		{"id": "d2", "fileFilename": "b.png", "fileUrl": "https://files.test/b.png?sig=1", "contentType": "image/png"},
	}
	stub := newPortal(t, data)
	svc := newAnnouncementService(stub, nil, 1)

	page := svc.FetchPage(context.Background(), testCreds, nil, 3)
	require.Nil(t, page.Error)
	require.Len(t, page.Announcements[1].Documents, 2)
	assert.Equal(t, "a.pdf", page.Announcements[1].Documents[0].FileFilename)
	assert.Equal(t, "b.png", page.Announcements[1].Documents[1].FileFilename)
	assert.Equal(t, 1, stub.DocumentCalls(data[1].ID))
	assert.Equal(t, 1, stub.TotalDocumentCalls())
	assert.Equal(t, 2, stub.LoginCalls())
}

func TestFetchPageEnrichmentFailureDegradesToNoDocuments(t *testing.T) {
	data := stubAnnouncements(2)
	data[0].DocumentsCount = 1
	data[0].Documents = []map[string]string{{"id": "d1", "fileFilename": "a.pdf", "fileUrl": "u", "contentType": "application/pdf"}}
	stub := newPortal(t, data)
	stub.FailDocumentsFor(data[0].ID)
	events := &recordingSink{}
	svc := newAnnouncementService(stub, events, 1)

	page := svc.FetchPage(context.Background(), testCreds, nil, 2)
	require.Nil(t, page.Error)
	require.Len(t, page.Announcements, 2)
	assert.NotNil(t, page.Announcements[0].Documents)
	assert.Empty(t, page.Announcements[0].Documents)
	assert.Equal(t, 1, page.Announcements[0].DocumentsCount)

	enrichment := events.byStage(models.StageEnrichment)
	require.Len(t, enrichment, 1)
	assert.True(t, errors.Is(enrichment[0].Err, appErrors.ErrEnrichment))
}

func TestFetchPageLoginFailure(t *testing.T) {
	stub := newPortal(t, stubAnnouncements(3))
	svc := newAnnouncementService(stub, nil, 1)

	page := svc.FetchPage(context.Background(), models.Credentials{Credential: testCreds.Credential, Password: "wrong"}, nil, 3)
	require.NotNil(t, page.Error)
	assert.Contains(t, *page.Error, "Invalid credentials")
	assert.True(t, errors.Is(page.Err, appErrors.ErrPortalInvalidCredentials))
	assert.NotNil(t, page.Announcements)
	assert.Empty(t, page.Announcements)
	assert.False(t, page.HasNextPage)
	assert.Nil(t, page.EndCursor)
}

func TestFetchPageRejectsEmptyCredentials(t *testing.T) {
	stub := newPortal(t, stubAnnouncements(1))
	svc := newAnnouncementService(stub, nil, 1)

	page := svc.FetchPage(context.Background(), models.Credentials{Credential: "x"}, nil, 3)
	require.NotNil(t, page.Error)
	assert.True(t, errors.Is(page.Err, appErrors.ErrValidation))
	assert.Equal(t, 0, stub.LoginCalls())
}

func TestFetchPageGraphQLError(t *testing.T) {
	stub := newPortal(t, stubAnnouncements(3))
	stub.FailAnnouncements("Field 'announcements' is not available")
	svc := newAnnouncementService(stub, nil, 1)

	page := svc.FetchPage(context.Background(), testCreds, nil, 3)
	require.NotNil(t, page.Error)
	assert.True(t, strings.HasPrefix(*page.Error, "announcements query failed: "))
	assert.Contains(t, *page.Error, "is not available")
	assert.True(t, errors.Is(page.Err, appErrors.ErrPortalGraphQL))
	assert.Empty(t, page.Announcements)
}

func TestFetchPagePaginationCoversDatasetOnce(t *testing.T) {
	stub := newPortal(t, stubAnnouncements(37))
	svc := newAnnouncementService(stub, nil, 1)

	seen := map[string]bool{}
	var ordered []string
	var cursor *string
	for pages := 0; pages < 10; pages++ {
		page := svc.FetchPage(context.Background(), testCreds, cursor, 10)
		require.Nil(t, page.Error)
		for _, ann := range page.Announcements {
			require.False(t, seen[ann.DBID], "duplicate %s", ann.DBID)
			seen[ann.DBID] = true
			ordered = append(ordered, ann.DBID)
		}
		if !page.HasNextPage {
			break
		}
		cursor = page.EndCursor
	}

	require.Len(t, ordered, 37)
	assert.Equal(t, "1000", ordered[0])
	assert.Equal(t, "1036", ordered[36])
}

func TestFetchPageConcurrentEnrichmentKeepsOrder(t *testing.T) {
	data := stubAnnouncements(8)
	for i := range data {
		data[i].DocumentsCount = 1
		data[i].Documents = []map[string]string{{
			"id":           fmt.Sprintf("doc-%d", i),
			"fileFilename": fmt.Sprintf("file-%d.pdf", i),
			"fileUrl":      fmt.Sprintf("https://files.test/%d.pdf", i),
			"contentType":  "application/pdf",
		}}
	}
	stub := newPortal(t, data)
	svc := newAnnouncementService(stub, nil, 4)

	page := svc.FetchPage(context.Background(), testCreds, nil, 8)
	require.Nil(t, page.Error)
	require.Len(t, page.Announcements, 8)
	for i, ann := range page.Announcements {
		assert.Equal(t, data[i].ID, ann.ID)
		require.Len(t, ann.Documents, 1)
		assert.Equal(t, fmt.Sprintf("file-%d.pdf", i), ann.Documents[0].FileFilename)
	}
	assert.Equal(t, 8, stub.TotalDocumentCalls())
}

func TestFetchPageKeepsNodesWithoutDBID(t *testing.T) {
	data := stubAnnouncements(2)
	data[1].DBID = nil
	stub := newPortal(t, data)
	events := &recordingSink{}
	svc := newAnnouncementService(stub, events, 1)

	page := svc.FetchPage(context.Background(), testCreds, nil, 2)
	require.Nil(t, page.Error)
	require.Len(t, page.Announcements, 2)
	assert.Empty(t, page.Announcements[1].DBID)

	skipped := events.byStage(models.StageNodeSkipped)
	require.Len(t, skipped, 1)
	assert.Equal(t, data[1].ID, skipped[0].AnnouncementID)
	assert.Len(t, events.byStage(models.StageLogin), 1)
	assert.Len(t, events.byStage(models.StagePageQuery), 1)
}

func TestFetchPageSendsConfiguredUserAgent(t *testing.T) {
	stub := newPortal(t, stubAnnouncements(1))
	svc := newAnnouncementService(stub, nil, 1)

	svc.FetchPage(context.Background(), testCreds, nil, 1)
	for _, ua := range stub.UserAgents() {
		assert.Equal(t, "test-agent", ua)
	}
}
