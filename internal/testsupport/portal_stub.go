// Package testsupport provides in-process stand-ins for the portal and the
// ledger, shared by package tests.
package testsupport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
)

const sessionCookie = "_portal_session"

// StubAnnouncement is one announcement served by the stub portal.
type StubAnnouncement struct {
	ID             string
	DBID           interface{}
	Title          string
	Message        string
	CreatedAt      string
	PermittedName  string
	DocumentsCount int
	Documents      []map[string]string
}

// PortalStub is an httptest GraphQL server imitating the portal's login,
// announcements and documents operations.
type PortalStub struct {
	Server *httptest.Server

	mu              sync.Mutex
	users           map[string]string
	announcements   []StubAnnouncement
	failingDocs     map[string]bool
	announcementErr string
	loginCalls      int
	documentCalls   map[string]int
	sessions        map[string]bool
	nextSession     int
	userAgents      []string
}

// NewPortalStub starts a stub portal accepting the given credential/password pairs.
func NewPortalStub(users map[string]string, announcements []StubAnnouncement) *PortalStub {
	stub := &PortalStub{
		users:         users,
		announcements: announcements,
		failingDocs:   map[string]bool{},
		documentCalls: map[string]int{},
		sessions:      map[string]bool{},
	}
	stub.Server = httptest.NewServer(http.HandlerFunc(stub.serve))
	return stub
}

// URL is the GraphQL endpoint.
func (p *PortalStub) URL() string {
	return p.Server.URL + "/graphql"
}

// Close shuts the server down.
func (p *PortalStub) Close() {
	p.Server.Close()
}

// FailDocumentsFor makes the documents query for id return a GraphQL error.
func (p *PortalStub) FailDocumentsFor(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failingDocs[id] = true
}

// FailAnnouncements makes the announcements query return a GraphQL error.
func (p *PortalStub) FailAnnouncements(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.announcementErr = message
}

// LoginCalls returns how many login mutations were received.
func (p *PortalStub) LoginCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loginCalls
}

// DocumentCalls returns how many documents queries targeted id.
func (p *PortalStub) DocumentCalls(id string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.documentCalls[id]
}

// TotalDocumentCalls returns the number of documents queries received.
func (p *PortalStub) TotalDocumentCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	total := 0
	for _, n := range p.documentCalls {
		total += n
	}
	return total
}

// UserAgents returns the User-Agent headers seen so far.
func (p *PortalStub) UserAgents() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.userAgents...)
}

type stubRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables"`
}

func (p *PortalStub) serve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req stubRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	p.mu.Lock()
	p.userAgents = append(p.userAgents, r.UserAgent())
	p.mu.Unlock()

	switch {
	case strings.Contains(req.Query, "sessionCreate"):
		p.login(w, req)
	case !p.authenticated(r):
		writeJSON(w, map[string]interface{}{"errors": []map[string]string{{"message": "Not authenticated"}}})
	case strings.Contains(req.Query, "AnnouncementsListQuery"):
		p.listAnnouncements(w, req)
	case strings.Contains(req.Query, "AnnouncementDocumentsQuery"):
		p.documents(w, req)
	default:
		writeJSON(w, map[string]interface{}{"errors": []map[string]string{{"message": "unknown operation"}}})
	}
}

func (p *PortalStub) login(w http.ResponseWriter, req stubRequest) {
	input, _ := req.Variables["input"].(map[string]interface{})
	credential, _ := input["credential"].(string)
	password, _ := input["password"].(string)

	p.mu.Lock()
	p.loginCalls++
	expected, ok := p.users[credential]
	valid := ok && expected == password
	var token string
	if valid {
		p.nextSession++
		token = "session-" + strconv.Itoa(p.nextSession)
		p.sessions[token] = true
	}
	p.mu.Unlock()

	if !valid {
		writeJSON(w, map[string]interface{}{
			"data": map[string]interface{}{
				"sessionCreate": map[string]interface{}{"error": "Invalid credentials", "user": nil},
			},
		})
		return
	}

	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: token, Path: "/"})
	writeJSON(w, map[string]interface{}{
		"data": map[string]interface{}{
			"sessionCreate": map[string]interface{}{
				"error": nil,
				"user":  map[string]interface{}{"id": "VXNlcjox", "dbId": 1},
			},
		},
	})
}

func (p *PortalStub) authenticated(r *http.Request) bool {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sessions[cookie.Value]
}

func (p *PortalStub) listAnnouncements(w http.ResponseWriter, req stubRequest) {
	p.mu.Lock()
	failure := p.announcementErr
	data := p.announcements
	p.mu.Unlock()

	if failure != "" {
		writeJSON(w, map[string]interface{}{"errors": []map[string]string{{"message": failure}}})
		return
	}

	first := len(data)
	if raw, ok := req.Variables["first"].(float64); ok {
		first = int(raw)
	}
	start := 0
	if after, ok := req.Variables["after"].(string); ok && after != "" {
		idx, err := strconv.Atoi(strings.TrimPrefix(after, "cursor:"))
		if err != nil {
			writeJSON(w, map[string]interface{}{"errors": []map[string]string{{"message": "invalid cursor"}}})
			return
		}
		start = idx + 1
	}
	if start > len(data) {
		start = len(data)
	}
	end := start + first
	if end > len(data) {
		end = len(data)
	}

	edges := make([]map[string]interface{}, 0, end-start)
	for i := start; i < end; i++ {
		a := data[i]
		edges = append(edges, map[string]interface{}{
			"cursor": fmt.Sprintf("cursor:%d", i),
			"node": map[string]interface{}{
				"id":             a.ID,
				"dbId":           a.DBID,
				"titleInfo":      map[string]interface{}{"origin": a.Title},
				"messageInfo":    map[string]interface{}{"origin": a.Message},
				"createdAt":      a.CreatedAt,
				"user":           map[string]interface{}{"permittedName": a.PermittedName, "avatarUrl": nil},
				"documentsCount": a.DocumentsCount,
			},
		})
	}

	var endCursor interface{}
	if end > start {
		endCursor = fmt.Sprintf("cursor:%d", end-1)
	}
	writeJSON(w, map[string]interface{}{
		"data": map[string]interface{}{
			"viewer": map[string]interface{}{
				"id": "Vmlld2VyOjE=",
				"announcements": map[string]interface{}{
					"edges": edges,
					"pageInfo": map[string]interface{}{
						"hasNextPage": end < len(data),
						"endCursor":   endCursor,
					},
				},
			},
		},
	})
}

func (p *PortalStub) documents(w http.ResponseWriter, req stubRequest) {
	id, _ := req.Variables["id"].(string)

	p.mu.Lock()
	p.documentCalls[id]++
	failing := p.failingDocs[id]
	var docs []map[string]string
	found := false
	for _, a := range p.announcements {
		if a.ID == id {
			docs = a.Documents
			found = true
			break
		}
	}
	p.mu.Unlock()

	if failing {
		writeJSON(w, map[string]interface{}{"errors": []map[string]string{{"message": "documents unavailable"}}})
		return
	}
	if !found {
		writeJSON(w, map[string]interface{}{"data": map[string]interface{}{"announcement": nil}})
		return
	}
	if docs == nil {
		docs = []map[string]string{}
	}
	writeJSON(w, map[string]interface{}{
		"data": map[string]interface{}{
			"announcement": map[string]interface{}{"id": id, "documents": docs},
		},
	})
}

func writeJSON(w http.ResponseWriter, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}
