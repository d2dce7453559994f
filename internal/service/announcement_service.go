package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/announcement-sync/internal/models"
	"github.com/noah-isme/announcement-sync/internal/repository"
	appErrors "github.com/noah-isme/announcement-sync/pkg/errors"
)

type documentFetcher interface {
	FetchDocuments(ctx context.Context, announcementID string, creds models.Credentials) ([]models.Document, error)
}

// AnnouncementServiceConfig bounds page sizes and enrichment fan-out.
type AnnouncementServiceConfig struct {
	DefaultPageSize   int
	MaxPageSize       int
	EnrichConcurrency int
}

// AnnouncementService drives the portal's announcement feed one page at a time.
type AnnouncementService struct {
	portal    portalAuthenticator
	documents documentFetcher
	events    EventSink
	logger    *zap.Logger
	cfg       AnnouncementServiceConfig
}

// NewAnnouncementService constructs the pagination driver.
func NewAnnouncementService(portal portalAuthenticator, documents documentFetcher, events EventSink, logger *zap.Logger, cfg AnnouncementServiceConfig) *AnnouncementService {
	if events == nil {
		events = NopEventSink()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 15
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = 100
	}
	if cfg.EnrichConcurrency <= 0 {
		cfg.EnrichConcurrency = 1
	}
	return &AnnouncementService{portal: portal, documents: documents, events: events, logger: logger, cfg: cfg}
}

// FetchPage logs in, fetches one page after afterCursor (nil or empty means the
// first page) and enriches announcements that report documents. Failures are
// reported in the page's Error field, never returned.
func (s *AnnouncementService) FetchPage(ctx context.Context, creds models.Credentials, afterCursor *string, pageSize int) models.AnnouncementPage {
	if !creds.Valid() {
		err := appErrors.Clone(appErrors.ErrValidation, "username and password are required")
		return models.FailedPage(err.Error(), err)
	}
	pageSize = s.clampPageSize(pageSize)

	start := time.Now()
	session, _, err := s.portal.Login(ctx, creds)
	s.events.Record(ctx, models.PipelineEvent{Stage: models.StageLogin, Credential: creds.Credential, Duration: time.Since(start), Err: err})
	if err != nil {
		return models.FailedPage(err.Error(), err)
	}

	var after interface{}
	if afterCursor != nil && *afterCursor != "" {
		after = *afterCursor
	}
	vars := map[string]interface{}{"first": pageSize, "after": after}

	start = time.Now()
	var data models.AnnouncementsQueryData
	err = session.Query(ctx, repository.AnnouncementsQuery, vars, &data)
	if err == nil && data.Viewer == nil {
		err = appErrors.Clone(appErrors.ErrPortalQueryMalformed, "portal response has no viewer")
	}
	var connection *models.AnnouncementConnection
	if err == nil {
		connection = data.Viewer.Announcements
	}
	edgeCount := 0
	if connection != nil {
		edgeCount = len(connection.Edges)
	}
	s.events.Record(ctx, models.PipelineEvent{Stage: models.StagePageQuery, Credential: creds.Credential, Count: edgeCount, Duration: time.Since(start), Err: err})
	if err != nil {
		return models.FailedPage(pageQueryMessage(err), err)
	}

	page := models.AnnouncementPage{Announcements: make([]models.Announcement, 0, edgeCount)}
	if connection == nil {
		return page
	}
	for _, edge := range connection.Edges {
		if edge.Node == nil {
			continue
		}
		ann := NormalizeAnnouncement(*edge.Node)
		if ann.DBID == "" {
			s.events.Record(ctx, models.PipelineEvent{Stage: models.StageNodeSkipped, Credential: creds.Credential, AnnouncementID: ann.ID})
		}
		page.Announcements = append(page.Announcements, ann)
	}
	if connection.PageInfo != nil {
		page.HasNextPage = connection.PageInfo.HasNextPage
		page.EndCursor = connection.PageInfo.EndCursor
	}

	s.enrich(ctx, creds, page.Announcements)
	return page
}

// enrich fills Documents in place. Each worker writes only its own index, so
// output order follows the upstream edges regardless of concurrency.
func (s *AnnouncementService) enrich(ctx context.Context, creds models.Credentials, announcements []models.Announcement) {
	if s.documents == nil {
		return
	}
	var g errgroup.Group
	g.SetLimit(s.cfg.EnrichConcurrency)
	for i := range announcements {
		if announcements[i].DocumentsCount <= 0 {
			continue
		}
		i := i
		g.Go(func() error {
			docs, err := s.documents.FetchDocuments(ctx, announcements[i].ID, creds)
			if err != nil || docs == nil {
				docs = []models.Document{}
			}
			announcements[i].Documents = docs
			return nil
		})
	}
	_ = g.Wait()
}

func (s *AnnouncementService) clampPageSize(pageSize int) int {
	if pageSize <= 0 {
		return s.cfg.DefaultPageSize
	}
	if pageSize > s.cfg.MaxPageSize {
		return s.cfg.MaxPageSize
	}
	return pageSize
}

func pageQueryMessage(err error) string {
	var gqlErr *repository.GraphQLError
	if errors.As(err, &gqlErr) && gqlErr.Raw != "" {
		return "announcements query failed: " + gqlErr.Raw
	}
	return err.Error()
}
