package dto

import "github.com/noah-isme/announcement-sync/internal/models"

// AnnouncementsRequest asks for the first page of the feed.
type AnnouncementsRequest struct {
	Username     string `json:"username" validate:"required"`
	Password     string `json:"password" validate:"required"`
	ItemsPerPage int    `json:"itemsPerPage" validate:"omitempty,min=1,max=100" example:"15"`
}

// Credentials returns the portal login pair.
func (r AnnouncementsRequest) Credentials() models.Credentials {
	return models.Credentials{Credential: r.Username, Password: r.Password}
}

// MoreAnnouncementsRequest continues the feed after AfterCursor.
type MoreAnnouncementsRequest struct {
	AnnouncementsRequest
	AfterCursor string `json:"afterCursor" validate:"required"`
}

// DocumentsRequest fetches the attachments of one announcement.
type DocumentsRequest struct {
	Username       string `json:"username" validate:"required"`
	Password       string `json:"password" validate:"required"`
	AnnouncementID string `json:"announcementId" validate:"required"`
}

// Credentials returns the portal login pair.
func (r DocumentsRequest) Credentials() models.Credentials {
	return models.Credentials{Credential: r.Username, Password: r.Password}
}

// DocumentsResponse lists an announcement's documents.
type DocumentsResponse struct {
	AnnouncementID string            `json:"announcementId"`
	Documents      []models.Document `json:"documents"`
}
