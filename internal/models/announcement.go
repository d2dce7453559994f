package models

// Credentials are the portal login pair forwarded verbatim on every login call.
type Credentials struct {
	Credential string
	Password   string
}

// Valid reports whether both halves are present.
func (c Credentials) Valid() bool {
	return c.Credential != "" && c.Password != ""
}

// AnnouncementUser is the sender of an announcement.
type AnnouncementUser struct {
	PermittedName *string `json:"permittedName"`
}

// Document is a file attached to an announcement. FileURL is signed and expires.
type Document struct {
	ID           string `json:"id"`
	FileFilename string `json:"fileFilename"`
	FileURL      string `json:"fileUrl"`
	ContentType  string `json:"contentType"`
}

// Announcement is the canonical, portal-independent announcement record.
type Announcement struct {
	ID             string           `json:"id"`
	DBID           string           `json:"dbId"`
	Title          *string          `json:"title"`
	Message        *string          `json:"message"`
	CreatedAt      string           `json:"createdAt"`
	DocumentsCount int              `json:"documentsCount"`
	User           AnnouncementUser `json:"user"`
	Documents      []Document       `json:"documents"`
}

// AnnouncementPage is one page of the announcement feed. Failures are carried
// in Error instead of being returned, so callers always get the same shape.
type AnnouncementPage struct {
	Announcements []Announcement `json:"announcements"`
	HasNextPage   bool           `json:"hasNextPage"`
	EndCursor     *string        `json:"endCursor"`
	Error         *string        `json:"error"`

	// Err is the typed cause behind Error.
	Err error `json:"-"`
}

// Failed reports whether the page carries an error.
func (p AnnouncementPage) Failed() bool {
	return p.Error != nil
}

// FailedPage builds an empty page describing err.
func FailedPage(message string, err error) AnnouncementPage {
	return AnnouncementPage{
		Announcements: []Announcement{},
		Error:         &message,
		Err:           err,
	}
}
