package models

// LedgerAttachment references a file the ledger downloads into an attachment field.
type LedgerAttachment struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

// LedgerRecord is the field set accepted by the ledger's announcements table.
type LedgerRecord struct {
	AnnouncementID string             `json:"AnnouncementId"`
	Title          *string            `json:"Title,omitempty"`
	Description    *string            `json:"Description,omitempty"`
	SentByUser     *string            `json:"SentByUser,omitempty"`
	DocumentsCount int                `json:"DocumentsCount"`
	SentTime       string             `json:"SentTime,omitempty"`
	Attachments    []LedgerAttachment `json:"Attachments,omitempty"`
}

// SyncResult summarises one ledger sync run.
type SyncResult struct {
	SuccessCount int  `json:"successCount"`
	ErrorCount   int  `json:"errorCount"`
	SkippedCount int  `json:"skippedCount"`
	Saved        bool `json:"saved"`
	Queued       bool `json:"queued,omitempty"`
}

// SyncedPage is a fetched page together with the outcome of mirroring it.
// Sync is nil when the ledger is disabled or the page failed.
type SyncedPage struct {
	AnnouncementPage
	Sync *SyncResult `json:"sync,omitempty"`
}
