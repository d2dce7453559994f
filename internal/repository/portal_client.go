package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/noah-isme/announcement-sync/internal/models"
	"github.com/noah-isme/announcement-sync/pkg/config"
	appErrors "github.com/noah-isme/announcement-sync/pkg/errors"
)

const maxPortalBody = 10 << 20

// GraphQLError carries the first message of a GraphQL `errors` array and the
// raw array for diagnostics.
type GraphQLError struct {
	Message string
	Raw     string
}

func (e *GraphQLError) Error() string {
	return e.Message
}

type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors json.RawMessage `json:"errors"`
}

type graphQLErrorEntry struct {
	Message string `json:"message"`
}

type loginPayload struct {
	SessionCreate *struct {
		Error    *string                   `json:"error"`
		Location *string                   `json:"location"`
		User     *models.AuthenticatedUser `json:"user"`
	} `json:"sessionCreate"`
}

// failureKind classifies a failed round trip before it is mapped onto the
// auth or query taxonomy.
type failureKind int

const (
	failureNone failureKind = iota
	failureTransport
	failureMalformed
)

// PortalClient opens authenticated sessions against the portal's GraphQL endpoint.
type PortalClient struct {
	endpoint  string
	userAgent string
	timeout   time.Duration
	transport http.RoundTripper
}

// NewPortalClient constructs a client from configuration.
func NewPortalClient(cfg config.PortalConfig) *PortalClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = config.DefaultUserAgent
	}
	return &PortalClient{endpoint: cfg.GraphQLURL, userAgent: userAgent, timeout: timeout}
}

// WithTransport overrides the HTTP transport, used by tests and the diagnostic CLI.
func (c *PortalClient) WithTransport(rt http.RoundTripper) *PortalClient {
	c.transport = rt
	return c
}

// PortalSession is an authenticated portal session. Only Login creates one.
type PortalSession struct {
	client    *http.Client
	endpoint  string
	userAgent string
}

// Login authenticates on a fresh cookie jar and returns the session only when
// the portal accepted the credentials.
func (c *PortalClient) Login(ctx context.Context, creds models.Credentials) (*PortalSession, *models.AuthenticatedUser, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to create cookie jar")
	}
	session := &PortalSession{
		client:    &http.Client{Jar: jar, Timeout: c.timeout, Transport: c.transport},
		endpoint:  c.endpoint,
		userAgent: c.userAgent,
	}

	req := graphQLRequest{
		Query: loginMutation,
		Variables: map[string]interface{}{
			"input": map[string]interface{}{
				"credential": creds.Credential,
				"password":   creds.Password,
				"rememberMe": true,
			},
		},
	}

	resp, kind, err := session.post(ctx, req)
	switch kind {
	case failureTransport:
		return nil, nil, transportError(err, appErrors.ErrPortalTransport, "portal login request failed")
	case failureMalformed:
		return nil, nil, appErrors.WrapAs(err, appErrors.ErrPortalMalformedResponse, "")
	}

	if gqlErr := decodeGraphQLErrors(resp.Errors); gqlErr != nil {
		return nil, nil, appErrors.Wrap(gqlErr, appErrors.ErrPortalInvalidCredentials.Code, appErrors.ErrPortalInvalidCredentials.Status, "portal login failed")
	}

	var payload loginPayload
	if len(resp.Data) == 0 || bytes.Equal(resp.Data, []byte("null")) {
		return nil, nil, appErrors.Clone(appErrors.ErrPortalMalformedResponse, "portal login response has no data")
	}
	if err := json.Unmarshal(resp.Data, &payload); err != nil {
		return nil, nil, appErrors.WrapAs(err, appErrors.ErrPortalMalformedResponse, "")
	}
	if payload.SessionCreate == nil {
		return nil, nil, appErrors.Clone(appErrors.ErrPortalMalformedResponse, "portal login response has no sessionCreate")
	}
	if msg := payload.SessionCreate.Error; msg != nil && *msg != "" {
		return nil, nil, appErrors.Wrap(errors.New(*msg), appErrors.ErrPortalInvalidCredentials.Code, appErrors.ErrPortalInvalidCredentials.Status, "portal login failed")
	}

	user := payload.SessionCreate.User
	if user == nil {
		user = &models.AuthenticatedUser{}
	}
	return session, user, nil
}

// Query executes a GraphQL document on the session and decodes `data` into dest.
func (s *PortalSession) Query(ctx context.Context, query string, variables map[string]interface{}, dest interface{}) error {
	resp, kind, err := s.post(ctx, graphQLRequest{Query: query, Variables: variables})
	switch kind {
	case failureTransport:
		return transportError(err, appErrors.ErrPortalQueryTransport, "")
	case failureMalformed:
		return appErrors.WrapAs(err, appErrors.ErrPortalQueryMalformed, "")
	}

	if gqlErr := decodeGraphQLErrors(resp.Errors); gqlErr != nil {
		return appErrors.WrapAs(gqlErr, appErrors.ErrPortalGraphQL, "")
	}
	if dest == nil || len(resp.Data) == 0 || bytes.Equal(resp.Data, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(resp.Data, dest); err != nil {
		return appErrors.WrapAs(err, appErrors.ErrPortalQueryMalformed, "")
	}
	return nil
}

func (s *PortalSession) post(ctx context.Context, payload graphQLRequest) (*graphQLResponse, failureKind, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, failureMalformed, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, failureTransport, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", s.userAgent)

	res, err := s.client.Do(req)
	if err != nil {
		return nil, failureTransport, err
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxPortalBody))
	if err != nil {
		return nil, failureTransport, fmt.Errorf("read response: %w", err)
	}
	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return nil, failureTransport, fmt.Errorf("portal returned status %d", res.StatusCode)
	}

	var decoded graphQLResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, failureMalformed, fmt.Errorf("decode response: %w", err)
	}
	return &decoded, failureNone, nil
}

func decodeGraphQLErrors(raw json.RawMessage) *GraphQLError {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	var entries []graphQLErrorEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return &GraphQLError{Message: "unknown GraphQL error", Raw: string(raw)}
	}
	if len(entries) == 0 {
		return nil
	}
	msg := entries[0].Message
	if msg == "" {
		msg = "unknown GraphQL error"
	}
	return &GraphQLError{Message: msg, Raw: string(raw)}
}

func transportError(err error, kind *appErrors.Error, message string) error {
	if isTimeout(err) {
		err = appErrors.WrapAs(err, appErrors.ErrPortalTimeout, "")
	}
	return appErrors.WrapAs(err, kind, message)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
