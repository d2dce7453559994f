package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/announcement-sync/internal/models"
	"github.com/noah-isme/announcement-sync/internal/repository"
	"github.com/noah-isme/announcement-sync/internal/service"
	"github.com/noah-isme/announcement-sync/pkg/config"
	"github.com/noah-isme/announcement-sync/pkg/export"
)

type output struct {
	AnnouncementID string                    `json:"announcementId"`
	Documents      []models.Document         `json:"documents"`
	Attachments    []models.LedgerAttachment `json:"ledgerAttachments"`
	Elapsed        string                    `json:"elapsed"`
}

func main() {
	var (
		graphqlURL     string
		username       string
		announcementID string
		maxAttachments int
		timeout        time.Duration
		format         string
		verbose        bool
	)

	flag.StringVar(&graphqlURL, "graphql-url", "https://connect.schoolstatus.com/graphql", "Portal GraphQL endpoint")
	flag.StringVar(&username, "username", os.Getenv("PORTAL_USERNAME"), "Portal username (defaults to $PORTAL_USERNAME)")
	flag.StringVar(&announcementID, "id", "", "Global announcement id")
	flag.IntVar(&maxAttachments, "max-attachments", 5, "Attachment cap used for the ledger preview")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "Per-request timeout")
	flag.StringVar(&format, "format", "json", "Output format: json or csv")
	flag.BoolVar(&verbose, "v", false, "Log pipeline events to stderr")
	flag.Parse()

	password := os.Getenv("PORTAL_PASSWORD")
	if username == "" || password == "" || announcementID == "" {
		log.Fatal("-username (or $PORTAL_USERNAME), $PORTAL_PASSWORD and -id are required")
	}

	logr := zap.NewNop()
	if verbose {
		var err error
		if logr, err = zap.NewDevelopment(); err != nil {
			log.Fatalf("failed to init logger: %v", err)
		}
	}
	defer logr.Sync() //nolint:errcheck

	portal := repository.NewPortalClient(config.PortalConfig{
		GraphQLURL: graphqlURL,
		Timeout:    timeout,
		UserAgent:  config.DefaultUserAgent,
	})
	docs := service.NewDocumentService(portal, service.NewLoggingEventSink(logr, nil), logr)

	ctx, cancel := context.WithTimeout(context.Background(), 2*timeout)
	defer cancel()

	start := time.Now()
	found, err := docs.FetchDocuments(ctx, announcementID, models.Credentials{Credential: username, Password: password})
	if err != nil {
		log.Fatalf("fetch documents: %v", err)
	}

	elapsed := time.Since(start).Round(time.Millisecond)
	if format == "csv" {
		if err := export.WriteCSV(os.Stdout, documentsTable(found)); err != nil {
			log.Fatalf("write csv: %v", err)
		}
		return
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(output{
		AnnouncementID: announcementID,
		Documents:      found,
		Attachments:    service.FilterPDFAttachments(found, maxAttachments),
		Elapsed:        elapsed.String(),
	}); err != nil {
		log.Fatalf("encode output: %v", err)
	}
}

func documentsTable(docs []models.Document) export.Table {
	table := export.Table{Headers: []string{"id", "fileFilename", "contentType", "fileUrl"}}
	for _, doc := range docs {
		table.Rows = append(table.Rows, []string{doc.ID, doc.FileFilename, doc.ContentType, doc.FileURL})
	}
	return table
}
