package service

import "github.com/noah-isme/announcement-sync/internal/models"

// NormalizeAnnouncement maps a portal node onto the canonical record. Missing
// nested objects become nil; Documents starts empty and is filled by the caller.
func NormalizeAnnouncement(node models.RawAnnouncementNode) models.Announcement {
	ann := models.Announcement{
		ID:             node.ID,
		DBID:           string(node.DBID),
		CreatedAt:      node.CreatedAt,
		DocumentsCount: node.DocumentsCount,
		Documents:      []models.Document{},
	}
	if ann.DocumentsCount < 0 {
		ann.DocumentsCount = 0
	}
	if node.TitleInfo != nil {
		ann.Title = node.TitleInfo.Origin
	}
	if node.MessageInfo != nil {
		ann.Message = node.MessageInfo.Origin
	}
	if node.User != nil {
		ann.User.PermittedName = node.User.PermittedName
	}
	return ann
}
