package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/noah-isme/announcement-sync/internal/models"
)

const (
	pdfContentType        = "application/pdf"
	defaultMaxAttachments = 5
)

type ledgerWriter interface {
	CreateRecord(ctx context.Context, record models.LedgerRecord) (string, error)
}

// LedgerServiceConfig tunes write pacing and attachment limits.
type LedgerServiceConfig struct {
	WriteDelay     time.Duration
	MaxAttachments int
}

// LedgerService mirrors canonical announcements into the ledger, one record
// per request. Records are never deduplicated against existing rows.
type LedgerService struct {
	writer  ledgerWriter
	events  EventSink
	logger  *zap.Logger
	limiter *rate.Limiter
	cfg     LedgerServiceConfig
}

// NewLedgerService constructs the sync service. All writes made through one
// instance share a single pacing budget.
func NewLedgerService(writer ledgerWriter, events EventSink, logger *zap.Logger, cfg LedgerServiceConfig) *LedgerService {
	if events == nil {
		events = NopEventSink()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxAttachments <= 0 {
		cfg.MaxAttachments = defaultMaxAttachments
	}
	limit := rate.Inf
	if cfg.WriteDelay > 0 {
		limit = rate.Every(cfg.WriteDelay)
	}
	return &LedgerService{
		writer:  writer,
		events:  events,
		logger:  logger,
		limiter: rate.NewLimiter(limit, 1),
		cfg:     cfg,
	}
}

// Sync writes each announcement in order. A failed write is counted and the
// remaining records are still attempted; Saved reports SuccessCount > 0.
func (s *LedgerService) Sync(ctx context.Context, announcements []models.Announcement) models.SyncResult {
	var result models.SyncResult
	start := time.Now()

	for _, ann := range announcements {
		if ann.DBID == "" {
			result.SkippedCount++
			s.events.Record(ctx, models.PipelineEvent{Stage: models.StageNodeSkipped, AnnouncementID: ann.ID})
			continue
		}

		writeStart := time.Now()
		err := s.limiter.Wait(ctx)
		if err == nil {
			_, err = s.writer.CreateRecord(ctx, BuildLedgerRecord(ann, s.cfg.MaxAttachments))
		}
		s.events.Record(ctx, models.PipelineEvent{
			Stage:          models.StageLedgerWrite,
			AnnouncementID: ann.DBID,
			Duration:       time.Since(writeStart),
			Err:            err,
		})
		if err != nil {
			result.ErrorCount++
			continue
		}
		result.SuccessCount++
	}

	result.Saved = result.SuccessCount > 0
	s.events.Record(ctx, models.PipelineEvent{Stage: models.StageLedgerSync, Count: result.SuccessCount, Duration: time.Since(start)})
	s.logger.Sugar().Infow("ledger sync finished",
		"records", len(announcements),
		"success", result.SuccessCount,
		"errors", result.ErrorCount,
		"skipped", result.SkippedCount,
	)
	return result
}

// BuildLedgerRecord maps a canonical announcement onto the ledger's fields.
// Attachments is left nil when no document qualifies so the field is omitted.
func BuildLedgerRecord(ann models.Announcement, maxAttachments int) models.LedgerRecord {
	record := models.LedgerRecord{
		AnnouncementID: ann.DBID,
		Title:          ann.Title,
		Description:    ann.Message,
		SentByUser:     ann.User.PermittedName,
		DocumentsCount: ann.DocumentsCount,
		SentTime:       ann.CreatedAt,
	}
	if attachments := FilterPDFAttachments(ann.Documents, maxAttachments); len(attachments) > 0 {
		record.Attachments = attachments
	}
	return record
}

// FilterPDFAttachments keeps documents that are PDFs by content type or by a
// case-insensitive ".pdf" suffix, in order, up to limit.
func FilterPDFAttachments(docs []models.Document, limit int) []models.LedgerAttachment {
	if limit <= 0 {
		limit = defaultMaxAttachments
	}
	var out []models.LedgerAttachment
	for _, doc := range docs {
		if len(out) == limit {
			break
		}
		if !isPDF(doc) {
			continue
		}
		out = append(out, models.LedgerAttachment{URL: doc.FileURL, Filename: doc.FileFilename})
	}
	return out
}

func isPDF(doc models.Document) bool {
	return doc.ContentType == pdfContentType || strings.HasSuffix(strings.ToLower(doc.FileFilename), ".pdf")
}
