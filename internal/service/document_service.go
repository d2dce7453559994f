package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/announcement-sync/internal/models"
	"github.com/noah-isme/announcement-sync/internal/repository"
	appErrors "github.com/noah-isme/announcement-sync/pkg/errors"
)

type portalAuthenticator interface {
	Login(ctx context.Context, creds models.Credentials) (*repository.PortalSession, *models.AuthenticatedUser, error)
}

// DocumentService fetches the attachments of a single announcement. Every call
// logs in on its own session; the caller's session is never reused.
type DocumentService struct {
	portal portalAuthenticator
	events EventSink
	logger *zap.Logger
}

// NewDocumentService constructs the enricher.
func NewDocumentService(portal portalAuthenticator, events EventSink, logger *zap.Logger) *DocumentService {
	if events == nil {
		events = NopEventSink()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentService{portal: portal, events: events, logger: logger}
}

// FetchDocuments returns the unfiltered document list of announcementID.
// Any failure is returned as ErrEnrichment; callers treat it as zero documents.
func (s *DocumentService) FetchDocuments(ctx context.Context, announcementID string, creds models.Credentials) ([]models.Document, error) {
	start := time.Now()
	docs, err := s.fetch(ctx, announcementID, creds)
	s.events.Record(ctx, models.PipelineEvent{
		Stage:          models.StageEnrichment,
		Credential:     creds.Credential,
		AnnouncementID: announcementID,
		Count:          len(docs),
		Duration:       time.Since(start),
		Err:            err,
	})
	return docs, err
}

func (s *DocumentService) fetch(ctx context.Context, announcementID string, creds models.Credentials) ([]models.Document, error) {
	if announcementID == "" {
		return nil, appErrors.Clone(appErrors.ErrEnrichment, "announcement id required")
	}
	if !creds.Valid() {
		return nil, appErrors.Clone(appErrors.ErrEnrichment, "credentials required")
	}

	session, _, err := s.portal.Login(ctx, creds)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrEnrichment, "document enrichment login failed")
	}

	var data models.DocumentsQueryData
	vars := map[string]interface{}{"id": announcementID}
	if err := session.Query(ctx, repository.AnnouncementDocumentsQuery, vars, &data); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrEnrichment, "document query failed")
	}

	if data.Announcement == nil || data.Announcement.Documents == nil {
		return []models.Document{}, nil
	}
	return data.Announcement.Documents, nil
}
