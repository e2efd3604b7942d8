// Package httpapi serves the template, instance and auth endpoints over HTTP.
package httpapi

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/javajack/xlform"
	"github.com/javajack/xlform/internal/service"
	"github.com/javajack/xlform/internal/store"
)

const maxUploadBytes = 32 << 20

// Authenticator issues and resolves bearer tokens.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (string, error)
	CurrentUser(ctx context.Context, token string) (store.User, error)
}

// TemplateService manages templates and their mapping sets.
type TemplateService interface {
	Upload(ctx context.Context, userID int64, name, filename string, data []byte) (xlform.Template, error)
	List(ctx context.Context) ([]xlform.Template, error)
	MappedCells(ctx context.Context, templateID int64) ([]xlform.MappedCell, error)
	Workbook(ctx context.Context, templateID int64) (service.WorkbookFile, error)
	SetMappedCells(ctx context.Context, templateID int64, cells []xlform.MappedCell) (int, error)
}

// InstanceService creates, saves and exports instances.
type InstanceService interface {
	Create(ctx context.Context, userID, templateID int64, title string) (xlform.Instance, error)
	Get(ctx context.Context, id int64) (service.InstanceDetail, error)
	Save(ctx context.Context, userID, id int64, payload xlform.SavePayload) (int, error)
	Export(ctx context.Context, userID, id int64) (xlform.Document, error)
}

// Pinger reports backend health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators of a Handler. Latency and Health are optional.
type Deps struct {
	Auth        Authenticator
	Templates   TemplateService
	Instances   InstanceService
	Health      Pinger
	Latency     func(http.Handler) http.Handler
	CORSOrigins []string
	Logger      *slog.Logger
}

// Handler holds the route handlers.
type Handler struct {
	deps   Deps
	logger *slog.Logger
}

// New builds a Handler from deps. A nil deps.Logger discards logs.
func New(deps Deps) *Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{deps: deps, logger: logger}
}

// Router builds the chi router with all routes and middleware.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(RequestID)
	r.Use(Logger(h.logger))
	r.Use(CORS(h.deps.CORSOrigins))
	if h.deps.Latency != nil {
		r.Use(h.deps.Latency)
	}
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", h.handleHealth)
	r.Post("/auth/login", h.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(RequireAuth(h.deps.Auth, h.logger))
		r.Get("/me", h.handleMe)

		r.Get("/templates", h.handleListTemplates)
		r.Get("/templates/{id}/mapped-cells", h.handleMappedCells)
		r.Get("/templates/{id}/workbook", h.handleWorkbook)

		r.Post("/instances", h.handleCreateInstance)
		r.Get("/instances/{id}", h.handleGetInstance)
		r.Post("/instances/{id}/save", h.handleSaveInstance)
		r.Post("/instances/{id}/export", h.handleExportInstance)

		r.Group(func(r chi.Router) {
			r.Use(RequireAdmin(h.logger))
			r.Post("/templates", h.handleUploadTemplate)
			r.Post("/templates/{id}/map", h.handleMapTemplate)
		})
	})
	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.deps.Health != nil {
		if err := h.deps.Health.Ping(r.Context()); err != nil {
			h.logger.ErrorContext(r.Context(), "health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse carries an issued bearer token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.decode(w, r, &req) {
		return
	}
	token, err := h.deps.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logger.WarnContext(r.Context(), "login failed",
			"email", req.Email,
			"request_id", GetRequestID(r.Context()),
		)
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TokenResponse{AccessToken: token, TokenType: "bearer"})
}

// MeResponse describes the authenticated user.
type MeResponse struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	u, _ := CurrentUser(r.Context())
	writeJSON(w, http.StatusOK, MeResponse{ID: u.ID, Email: u.Email, Role: u.Role})
}

func (h *Handler) handleUploadTemplate(w http.ResponseWriter, r *http.Request) {
	u, _ := CurrentUser(r.Context())
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_input", "expected multipart form with a file field")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_input", "missing file field")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_input", "read upload")
		return
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		name = r.FormValue("name")
	}
	tpl, err := h.deps.Templates.Upload(r.Context(), u.ID, name, header.Filename, data)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tpl)
}

func (h *Handler) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	list, err := h.deps.Templates.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []xlform.Template{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) handleMappedCells(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	cells, err := h.deps.Templates.MappedCells(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if cells == nil {
		cells = []xlform.MappedCell{}
	}
	writeJSON(w, http.StatusOK, cells)
}

// WorkbookResponse carries a template workbook. Data is hex encoded.
type WorkbookResponse struct {
	Filename string `json:"filename"`
	Mime     string `json:"mime"`
	Hex      string `json:"hex"`
}

func (h *Handler) handleWorkbook(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	f, err := h.deps.Templates.Workbook(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, WorkbookResponse{
		Filename: f.Filename,
		Mime:     f.Mime,
		Hex:      hex.EncodeToString(f.Data),
	})
}

// MapRequest replaces a template's mapping set.
type MapRequest struct {
	Cells []xlform.MappedCell `json:"cells"`
}

// CountResponse acknowledges a write.
type CountResponse struct {
	OK    bool `json:"ok"`
	Count int  `json:"count"`
}

func (h *Handler) handleMapTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req MapRequest
	if !h.decode(w, r, &req) {
		return
	}
	n, err := h.deps.Templates.SetMappedCells(r.Context(), id, req.Cells)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CountResponse{OK: true, Count: n})
}

// CreateInstanceRequest opens a new instance of a template.
type CreateInstanceRequest struct {
	TemplateID int64  `json:"template_id"`
	Title      string `json:"title"`
}

func (h *Handler) handleCreateInstance(w http.ResponseWriter, r *http.Request) {
	u, _ := CurrentUser(r.Context())
	var req CreateInstanceRequest
	if !h.decode(w, r, &req) {
		return
	}
	inst, err := h.deps.Instances.Create(r.Context(), u.ID, req.TemplateID, req.Title)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, inst)
}

func (h *Handler) handleGetInstance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	detail, err := h.deps.Instances.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if detail.Values == nil {
		detail.Values = xlform.ValueSet{}
	}
	if detail.Audit == nil {
		detail.Audit = []store.AuditRecord{}
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *Handler) handleSaveInstance(w http.ResponseWriter, r *http.Request) {
	u, _ := CurrentUser(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var payload xlform.SavePayload
	if !h.decode(w, r, &payload) {
		return
	}
	n, err := h.deps.Instances.Save(r.Context(), u.ID, id, payload)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CountResponse{OK: true, Count: n})
}

// ExportResponse carries a rendered PDF, hex encoded.
type ExportResponse struct {
	Filename string `json:"filename"`
	PDFHex   string `json:"pdf_hex"`
}

func (h *Handler) handleExportInstance(w http.ResponseWriter, r *http.Request) {
	u, _ := CurrentUser(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	doc, err := h.deps.Instances.Export(r.Context(), u.ID, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ExportResponse{Filename: doc.Filename, PDFHex: hex.EncodeToString(doc.Data)})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.logger.WarnContext(r.Context(), "invalid request body",
			"path", r.URL.Path,
			"error", err.Error(),
			"request_id", GetRequestID(r.Context()),
		)
		writeJSONError(w, http.StatusBadRequest, "invalid_input", "invalid request body")
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeJSONError(w, http.StatusBadRequest, "invalid_input", fmt.Sprintf("invalid id %q", raw))
		return 0, false
	}
	return id, true
}
