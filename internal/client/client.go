// Package client talks to the teacher dashboard API on behalf of rosterctl.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/teacher-dashboard-api/pkg/roster"
)

// APIError is a non-2xx response decoded from the error envelope.
type APIError struct {
	Status  int             `json:"status"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

// Download is a file returned by an export endpoint.
type Download struct {
	Name        string
	ContentType string
	Content     []byte
}

// ImportReport is the server outcome of an upload.
type ImportReport struct {
	roster.ImportOutcome
	DryRun  bool `json:"dry_run"`
	Created int  `json:"created"`
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient overrides the transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// Client is an API client bound to a shared session guard.
type Client struct {
	baseURL string
	http    *http.Client
	session *Refresher
	logger  *zap.Logger
}

// New builds a client for baseURL, e.g. http://localhost:8080/api/v1.
func New(baseURL string, session *Refresher, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		session: session,
		logger:  zap.NewNop(),
	}
	if c.session == nil {
		c.session = NewRefresher(Session{})
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session returns the guard so other clients can share it.
func (c *Client) Session() *Refresher {
	return c.session
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *APIError       `json:"error"`
}

type tokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Login signs in and stores the session on the guard.
func (c *Client) Login(ctx context.Context, email, password string) error {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return err
	}
	var tokens tokenPair
	if err := c.postJSON(ctx, "/auth/login", body, &tokens); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	c.session.Set(Session{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken})
	return nil
}

func (c *Client) refresh(ctx context.Context, refreshToken string) (Session, error) {
	body, err := json.Marshal(map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return Session{}, err
	}
	var tokens tokenPair
	if err := c.postJSON(ctx, "/auth/refresh", body, &tokens); err != nil {
		return Session{}, fmt.Errorf("refresh session: %w", err)
	}
	c.logger.Debug("session refreshed")
	return Session{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken}, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body []byte, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeData(resp, dest)
}

// Export downloads the roster in the given format.
func (c *Client) Export(ctx context.Context, format roster.Format) (*Download, error) {
	query := url.Values{"format": []string{string(format)}}
	resp, err := c.do(ctx, http.MethodGet, "/students/export?"+query.Encode(), "", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return readDownload(resp)
}

// Sample downloads the import template.
func (c *Client) Sample(ctx context.Context) (*Download, error) {
	resp, err := c.do(ctx, http.MethodGet, "/students/import/sample", "", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return readDownload(resp)
}

// Import uploads a roster. When the server rejects the file the returned report
// carries the outcome alongside the *APIError.
func (c *Client) Import(ctx context.Context, filename string, content []byte, dryRun bool) (*ImportReport, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(content); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	path := "/students/import?dryRun=" + strconv.FormatBool(dryRun)
	resp, err := c.do(ctx, http.MethodPost, path, writer.FormDataContentType(), body.Bytes())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var report ImportReport
	if err := decodeData(resp, &report); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && len(apiErr.Details) > 0 {
			var outcome roster.ImportOutcome
			if json.Unmarshal(apiErr.Details, &outcome) == nil {
				return &ImportReport{ImportOutcome: outcome, DryRun: dryRun}, apiErr
			}
		}
		return nil, err
	}
	return &report, nil
}

// do sends an authorised request, refreshing the session and retrying once on 401.
func (c *Client) do(ctx context.Context, method, path, contentType string, body []byte) (*http.Response, error) {
	session := c.session.Session()
	resp, err := c.send(ctx, method, path, contentType, body, session.AccessToken)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	next, err := c.session.Refresh(ctx, session.AccessToken, c.refresh)
	if err != nil {
		return nil, err
	}
	return c.send(ctx, method, path, contentType, body, next.AccessToken)
}

func (c *Client) send(ctx context.Context, method, path, contentType string, body []byte, token string) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

func decodeData(resp *http.Response, dest interface{}) error {
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return &APIError{Status: resp.StatusCode, Code: "HTTP_ERROR", Message: resp.Status}
		}
		return fmt.Errorf("decode response (%d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		if env.Error == nil {
			return &APIError{Status: resp.StatusCode, Code: "HTTP_ERROR", Message: resp.Status}
		}
		return env.Error
	}
	if dest == nil || len(env.Data) == 0 {
		return nil
	}
	return json.Unmarshal(env.Data, dest)
}

func readDownload(resp *http.Response) (*Download, error) {
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, decodeData(resp, nil)
	}
	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read download: %w", err)
	}
	download := &Download{ContentType: resp.Header.Get("Content-Type"), Content: content}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		download.Name = params["filename"]
	}
	return download, nil
}
