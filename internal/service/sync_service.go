package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/announcement-sync/internal/models"
	"github.com/noah-isme/announcement-sync/pkg/config"
	"github.com/noah-isme/announcement-sync/pkg/jobs"
)

// LedgerJobType identifies queued ledger sync jobs.
const LedgerJobType = "ledger_sync"

type pageFetcher interface {
	FetchPage(ctx context.Context, creds models.Credentials, afterCursor *string, pageSize int) models.AnnouncementPage
}

type ledgerSyncer interface {
	Sync(ctx context.Context, announcements []models.Announcement) models.SyncResult
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

// LedgerJobPayload is the body of a queued ledger sync.
type LedgerJobPayload struct {
	Announcements []models.Announcement
}

// SyncService runs the fetch then mirror pipeline for one caller request.
type SyncService struct {
	pages  pageFetcher
	ledger ledgerSyncer
	queue  jobDispatcher
	mode   string
	logger *zap.Logger
}

// NewSyncService wires the pipeline. queue is only consulted in async mode and
// ledger is ignored when mode is disabled.
func NewSyncService(pages pageFetcher, ledger ledgerSyncer, queue jobDispatcher, mode string, logger *zap.Logger) *SyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if mode == "" {
		mode = config.LedgerModeSync
	}
	return &SyncService{pages: pages, ledger: ledger, queue: queue, mode: mode, logger: logger}
}

// Mode returns the configured ledger mode.
func (s *SyncService) Mode() string {
	return s.mode
}

// Run fetches one page and mirrors it into the ledger. A failed page is
// returned as is and nothing is written.
func (s *SyncService) Run(ctx context.Context, creds models.Credentials, afterCursor *string, pageSize int) models.SyncedPage {
	page := s.pages.FetchPage(ctx, creds, afterCursor, pageSize)
	out := models.SyncedPage{AnnouncementPage: page}
	if page.Failed() || s.ledger == nil {
		return out
	}

	switch s.mode {
	case config.LedgerModeDisabled:
		return out
	case config.LedgerModeAsync:
		if s.queue != nil {
			err := s.queue.Enqueue(jobs.Job{
				Type:    LedgerJobType,
				Payload: LedgerJobPayload{Announcements: page.Announcements},
			})
			if err == nil {
				out.Sync = &models.SyncResult{Queued: true}
				return out
			}
			s.logger.Sugar().Warnw("ledger enqueue failed, syncing inline", "records", len(page.Announcements), "error", err)
		}
	}

	result := s.ledger.Sync(ctx, page.Announcements)
	out.Sync = &result
	return out
}

// HandleLedgerJob is the queue handler for async mode. Per-record failures are
// already counted by the ledger sync, so the job itself never asks for a retry.
func (s *SyncService) HandleLedgerJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(LedgerJobPayload)
	if !ok {
		return fmt.Errorf("job %s: unexpected payload %T", job.ID, job.Payload)
	}
	result := s.ledger.Sync(ctx, payload.Announcements)
	s.logger.Sugar().Infow("queued ledger sync finished",
		"job_id", job.ID,
		"success", result.SuccessCount,
		"errors", result.ErrorCount,
		"skipped", result.SkippedCount,
		"enqueued_at", job.Enqueued,
	)
	return nil
}
