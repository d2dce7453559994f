package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// FlexibleID decodes identifiers the portal sends either as numbers or strings.
type FlexibleID string

// UnmarshalJSON accepts a JSON string, number or null.
func (f *FlexibleID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*f = ""
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*f = FlexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return fmt.Errorf("dbId: %w", err)
	}
	if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
		*f = FlexibleID(strconv.FormatInt(i, 10))
		return nil
	}
	*f = FlexibleID(n.String())
	return nil
}

// OriginText wraps the `{origin}` objects used for translated portal fields.
type OriginText struct {
	Origin *string `json:"origin"`
}

// RawAnnouncementUser is the sender object of a portal announcement node.
type RawAnnouncementUser struct {
	PermittedName *string `json:"permittedName"`
	AvatarURL     *string `json:"avatarUrl"`
}

// RawAnnouncementNode mirrors an announcement node from the portal's GraphQL API.
type RawAnnouncementNode struct {
	ID             string               `json:"id"`
	DBID           FlexibleID           `json:"dbId"`
	TitleInfo      *OriginText          `json:"titleInfo"`
	MessageInfo    *OriginText          `json:"messageInfo"`
	CreatedAt      string               `json:"createdAt"`
	User           *RawAnnouncementUser `json:"user"`
	DocumentsCount int                  `json:"documentsCount"`
}

// AnnouncementEdge is a connection edge; Node may be null.
type AnnouncementEdge struct {
	Cursor string               `json:"cursor"`
	Node   *RawAnnouncementNode `json:"node"`
}

// PageInfo is the Relay pagination block.
type PageInfo struct {
	HasNextPage bool    `json:"hasNextPage"`
	EndCursor   *string `json:"endCursor"`
}

// AnnouncementConnection is `viewer.announcements`.
type AnnouncementConnection struct {
	Edges    []AnnouncementEdge `json:"edges"`
	PageInfo *PageInfo          `json:"pageInfo"`
}

// AnnouncementsQueryData is the `data` object of the announcements query.
type AnnouncementsQueryData struct {
	Viewer *struct {
		ID            string                  `json:"id"`
		Announcements *AnnouncementConnection `json:"announcements"`
	} `json:"viewer"`
}

// DocumentsQueryData is the `data` object of the announcement documents query.
type DocumentsQueryData struct {
	Announcement *struct {
		ID        string     `json:"id"`
		Documents []Document `json:"documents"`
	} `json:"announcement"`
}

// AuthenticatedUser is the user returned by a successful portal login.
type AuthenticatedUser struct {
	ID   string     `json:"id"`
	DBID FlexibleID `json:"dbId"`
}
