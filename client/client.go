// Package client talks to an xlform server over HTTP. A Client implements
// both xlform.TemplateStore and xlform.InstanceStore, so a Session can run
// against a remote server.
package client

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/javajack/xlform"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
)

// APIError is a non-2xx response from the server.
type APIError struct {
	Status      int
	Code        string
	Description string
}

func (e *APIError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("server returned %d %s: %s", e.Status, e.Code, e.Description)
	}
	return fmt.Sprintf("server returned %d %s", e.Status, e.Code)
}

// Is maps status codes onto the package sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrForbidden:
		return e.Status == http.StatusForbidden
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}

// Client is bound to one server and one bearer token.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.http = hc } }

// WithLogger sets the logger for request failures.
func WithLogger(l *slog.Logger) Option { return func(c *Client) { c.logger = l } }

// New returns a Client that authenticates every request with token.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 60 * time.Second},
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Login exchanges credentials for a bearer token.
func Login(ctx context.Context, baseURL, email, password string, opts ...Option) (string, error) {
	c := New(baseURL, "", opts...)
	var out struct {
		AccessToken string `json:"access_token"`
	}
	err := c.doJSON(ctx, http.MethodPost, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &out)
	if err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	return out.AccessToken, nil
}

// Me describes the authenticated user.
type Me struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (Me, error) {
	var me Me
	err := c.doJSON(ctx, http.MethodGet, "/me", nil, &me)
	return me, err
}

// ListTemplates lists the templates visible to the caller.
func (c *Client) ListTemplates(ctx context.Context) ([]xlform.Template, error) {
	var out []xlform.Template
	err := c.doJSON(ctx, http.MethodGet, "/templates", nil, &out)
	return out, err
}

// MappedCells returns the mapping set of a template.
func (c *Client) MappedCells(ctx context.Context, templateID int64) ([]xlform.MappedCell, error) {
	var out []xlform.MappedCell
	err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/templates/%d/mapped-cells", templateID), nil, &out)
	return out, err
}

// WorkbookBytes downloads the template workbook as xlsx bytes.
func (c *Client) WorkbookBytes(ctx context.Context, templateID int64) ([]byte, error) {
	var out struct {
		Hex string `json:"hex"`
	}
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/templates/%d/workbook", templateID), nil, &out); err != nil {
		return nil, err
	}
	data, err := hex.DecodeString(out.Hex)
	if err != nil {
		return nil, fmt.Errorf("decode workbook: %w", err)
	}
	return data, nil
}

// UploadTemplate uploads a workbook as a new template. Requires an admin token.
func (c *Client) UploadTemplate(ctx context.Context, name, filename string, data []byte) (xlform.Template, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return xlform.Template{}, err
	}
	if _, err := fw.Write(data); err != nil {
		return xlform.Template{}, err
	}
	if err := mw.Close(); err != nil {
		return xlform.Template{}, err
	}

	path := "/templates"
	if name != "" {
		path += "?name=" + url.QueryEscape(name)
	}
	var out xlform.Template
	err = c.do(ctx, http.MethodPost, path, &buf, mw.FormDataContentType(), &out)
	return out, err
}

// SetMappedCells replaces the mapping set of a template. Requires an admin token.
func (c *Client) SetMappedCells(ctx context.Context, templateID int64, cells []xlform.MappedCell) error {
	return c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/templates/%d/map", templateID), map[string]any{"cells": cells}, nil)
}

// CreateInstance starts a new instance of a template.
func (c *Client) CreateInstance(ctx context.Context, templateID int64, title string) (xlform.Instance, error) {
	var out xlform.Instance
	err := c.doJSON(ctx, http.MethodPost, "/instances", map[string]any{
		"template_id": templateID,
		"title":       title,
	}, &out)
	return out, err
}

// InstanceDetail is an instance with its persisted values and audit trail.
type InstanceDetail struct {
	xlform.Instance
	Values xlform.ValueSet `json:"values"`
	Audit  []AuditRecord   `json:"audit"`
}

// AuditRecord is a persisted audit event with the acting user.
type AuditRecord struct {
	xlform.AuditEvent
	ID        int64  `json:"id"`
	UserEmail string `json:"user_email"`
}

// Instance returns an instance with its values and audit trail.
func (c *Client) Instance(ctx context.Context, id int64) (InstanceDetail, error) {
	var out InstanceDetail
	err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/instances/%d", id), nil, &out)
	return out, err
}

// SaveInstance persists values and audit events for an instance.
func (c *Client) SaveInstance(ctx context.Context, instanceID int64, payload xlform.SavePayload) error {
	return c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/instances/%d/save", instanceID), payload, nil)
}

// ExportInstance renders the filled instance as PDF on the server and returns it.
func (c *Client) ExportInstance(ctx context.Context, instanceID int64) (xlform.Document, error) {
	var out struct {
		Filename string `json:"filename"`
		PDFHex   string `json:"pdf_hex"`
	}
	if err := c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/instances/%d/export", instanceID), nil, &out); err != nil {
		return xlform.Document{}, err
	}
	data, err := hex.DecodeString(out.PDFHex)
	if err != nil {
		return xlform.Document{}, fmt.Errorf("decode export: %w", err)
	}
	return xlform.Document{Filename: out.Filename, Data: data}, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	return c.do(ctx, method, path, body, "application/json", out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "request failed", "method", method, "path", path, "error", err)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var e struct {
			Error            string `json:"error"`
			ErrorDescription string `json:"error_description"`
		}
		if json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&e) == nil {
			apiErr.Code, apiErr.Description = e.Error, e.ErrorDescription
		}
		c.logger.WarnContext(ctx, "server rejected request",
			"method", method,
			"path", path,
			"status", resp.StatusCode,
			"code", apiErr.Code,
		)
		return fmt.Errorf("%s %s: %w", method, path, apiErr)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
