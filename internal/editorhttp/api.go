// Package editorhttp exposes the editing operations as a JSON API:
// fetch, save, list, heading validation, auth status, and publish.
package editorhttp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pagedesk/pagedesk/internal/address"
	"github.com/pagedesk/pagedesk/internal/authgate"
	"github.com/pagedesk/pagedesk/internal/docstore"
	"github.com/pagedesk/pagedesk/internal/headings"
	"github.com/pagedesk/pagedesk/internal/log"
	"github.com/pagedesk/pagedesk/internal/metrics"
	"github.com/pagedesk/pagedesk/internal/publish"
)

// API wires the editing components into HTTP handlers. Handlers only
// translate; all behavior lives in the injected components.
type API struct {
	resolver  *address.Resolver
	store     *docstore.Store
	validator *headings.Validator
	gate      authgate.Policy
	publisher *publish.Coordinator
	metrics   *metrics.ServerMetrics
	logger    log.Logger
}

func NewAPI(
	resolver *address.Resolver,
	store *docstore.Store,
	validator *headings.Validator,
	gate authgate.Policy,
	publisher *publish.Coordinator,
	m *metrics.ServerMetrics,
	logger log.Logger,
) *API {
	if logger == nil {
		logger = log.Nop()
	}
	return &API{
		resolver:  resolver,
		store:     store,
		validator: validator,
		gate:      gate,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
	}
}

// RegisterRoutes attaches the editing endpoints. The list route is
// registered before the wildcard so "list" never parses as a slug.
func (api *API) RegisterRoutes(r chi.Router) {
	r.Get("/api/health", api.HandleHealth)
	r.Get("/api/auth/status", api.HandleAuthStatus)
	r.Get("/api/content/list", api.HandleList)
	r.Get("/api/content/{type}/{slug}", api.HandleFetch)
	r.Put("/api/content/{type}/{slug}", api.HandleSave)
	r.Post("/api/validate-headings", api.HandleValidateHeadings)
	r.Post("/api/build", api.HandleBuild)
}

func (api *API) HandleHealth(w http.ResponseWriter, r *http.Request) {
	api.writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
}

func (api *API) HandleAuthStatus(w http.ResponseWriter, r *http.Request) {
	st, err := api.gate.Authorize(r)
	if err != nil {
		// Status is informational; an unauthenticated caller gets a
		// 200 with authenticated=false, not a 401.
		api.writeJSON(r.Context(), w, http.StatusOK, authgate.State{})
		return
	}
	api.writeJSON(r.Context(), w, http.StatusOK, st)
}

// ListResponse wraps the content listing.
type ListResponse struct {
	Documents []docstore.Entry `json:"documents"`
}

func (api *API) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entries, err := api.store.List(ctx)
	if err != nil {
		api.writeError(ctx, w, err)
		return
	}
	if entries == nil {
		entries = []docstore.Entry{}
	}
	api.writeJSON(ctx, w, http.StatusOK, ListResponse{Documents: entries})
}

func (api *API) HandleFetch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	a, err := api.addressFromRoute(r)
	if err != nil {
		api.writeError(ctx, w, err)
		return
	}
	doc, err := api.store.Fetch(ctx, a)
	if err != nil {
		api.writeError(ctx, w, err)
		return
	}
	api.writeJSON(ctx, w, http.StatusOK, doc)
}

// SaveRequest is the PUT body: the full replacement document.
type SaveRequest struct {
	Frontmatter *docstore.Frontmatter `json:"frontmatter"`
	Body        string                `json:"body"`
}

// SaveResponse confirms the write and echoes the canonical address.
type SaveResponse struct {
	Saved   bool            `json:"saved"`
	Address address.Address `json:"address"`
}

func (api *API) HandleSave(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !api.authorize(w, r) {
		return
	}

	a, err := api.addressFromRoute(r)
	if err != nil {
		api.writeError(ctx, w, err)
		return
	}

	var req SaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.writeJSON(ctx, w, http.StatusBadRequest, errorBody("bad_request", "request body is not valid JSON"))
		return
	}
	if req.Frontmatter == nil {
		req.Frontmatter = docstore.NewFrontmatter()
	}

	doc := &docstore.Document{Address: a, Meta: req.Frontmatter, Body: req.Body}
	if err := api.store.Save(ctx, doc); err != nil {
		api.writeError(ctx, w, err)
		return
	}
	if api.metrics != nil {
		api.metrics.IncSaved(a.Type)
	}
	api.writeJSON(ctx, w, http.StatusOK, SaveResponse{Saved: true, Address: a})
}

// ValidateRequest carries the markdown body to check.
type ValidateRequest struct {
	Body string `json:"body"`
}

func (api *API) HandleValidateHeadings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.writeJSON(ctx, w, http.StatusBadRequest, errorBody("bad_request", "request body is not valid JSON"))
		return
	}

	rep := api.validator.Validate([]byte(req.Body))
	if rep.Issues == nil {
		rep.Issues = []headings.Issue{}
	}
	if api.metrics != nil {
		for _, iss := range rep.Issues {
			api.metrics.IncValidationIssue(iss.Rule, string(iss.Severity))
		}
	}
	api.writeJSON(ctx, w, http.StatusOK, rep)
}

// BuildResponse reports the publish outcome. A push failure is not a
// request failure: committed stays true and push_error explains.
type BuildResponse struct {
	Committed    bool     `json:"committed"`
	Pushed       bool     `json:"pushed"`
	CommitID     string   `json:"commit_id,omitempty"`
	ChangedPaths []string `json:"changed_paths,omitempty"`
	PushError    string   `json:"push_error,omitempty"`
}

func (api *API) HandleBuild(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !api.authorize(w, r) {
		return
	}

	var req publish.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		api.writeJSON(ctx, w, http.StatusBadRequest, errorBody("bad_request", "request body is not valid JSON"))
		return
	}

	res, err := api.publisher.Publish(ctx, req)
	if api.metrics != nil && res.State != "" {
		api.metrics.ObservePublish(res.State, res.Duration.Seconds())
	}
	if err != nil {
		api.writeError(ctx, w, err)
		return
	}

	resp := BuildResponse{
		Committed:    res.Committed,
		Pushed:       res.Pushed,
		CommitID:     res.CommitID,
		ChangedPaths: res.ChangedPaths,
	}
	if res.PushErr != nil {
		resp.PushError = res.PushErr.Error()
		if api.metrics != nil {
			api.metrics.IncPushFailure()
		}
	}
	api.writeJSON(ctx, w, http.StatusOK, resp)
}

func (api *API) addressFromRoute(r *http.Request) (address.Address, error) {
	a := address.Address{
		Type: chi.URLParam(r, "type"),
		Slug: chi.URLParam(r, "slug"),
	}
	if err := api.resolver.Check(a); err != nil {
		return address.Address{}, err
	}
	return a, nil
}

func (api *API) authorize(w http.ResponseWriter, r *http.Request) bool {
	if _, err := api.gate.Authorize(r); err != nil {
		api.writeError(r.Context(), w, err)
		return false
	}
	return true
}

type apiError struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

func errorBody(code, msg string) apiError {
	return apiError{Code: code, Error: msg}
}

// writeError maps domain sentinels onto HTTP statuses. Unrecognized
// errors become a 500 with a generic body; the detail goes to the log,
// not the client.
func (api *API) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	var status int
	var body apiError

	switch {
	case errors.Is(err, address.ErrInvalid):
		status, body = http.StatusBadRequest, errorBody("invalid_address", err.Error())
	case errors.Is(err, docstore.ErrNotFound):
		status, body = http.StatusNotFound, errorBody("not_found", err.Error())
	case errors.Is(err, docstore.ErrParse):
		status, body = http.StatusUnprocessableEntity, errorBody("parse_error", err.Error())
	case errors.Is(err, authgate.ErrUnauthorized):
		status, body = http.StatusUnauthorized, errorBody("unauthorized", "authorization required")
	case errors.Is(err, publish.ErrNothingToCommit):
		status, body = http.StatusConflict, errorBody("nothing_to_commit", "working tree is clean")
	case errors.Is(err, publish.ErrCommit):
		status, body = http.StatusInternalServerError, errorBody("commit_error", "commit failed, changes remain staged")
	case errors.Is(err, docstore.ErrWrite):
		status, body = http.StatusInternalServerError, errorBody("write_error", "document write failed")
	default:
		status, body = http.StatusInternalServerError, errorBody("internal", "internal error")
	}

	if status >= 500 {
		api.logger.Error(ctx, err, "request failed", "status", status, "code", body.Code)
	} else {
		api.logger.Debug(ctx, "request rejected", "status", status, "code", body.Code)
	}
	api.writeJSON(ctx, w, status, body)
}

func (api *API) writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		api.logger.Warn(ctx, "failed to encode JSON response", "error", err)
	}
}
