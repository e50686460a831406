package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/rcliao/mindtrace/internal/guard"
	"github.com/rcliao/mindtrace/internal/log"
	"github.com/rcliao/mindtrace/internal/model"
	"github.com/rcliao/mindtrace/internal/pipeline"
	"github.com/rcliao/mindtrace/internal/store"
)

const maxBodyBytes = 1 << 20

// Handlers serves the v1 API on top of an engine and its session store.
type Handlers struct {
	engine   *pipeline.Engine
	sessions store.SessionStore
	validate *validator.Validate
}

// NewHandlers creates the v1 handlers.
func NewHandlers(eng *pipeline.Engine, sessions store.SessionStore) *Handlers {
	return &Handlers{
		engine:   eng,
		sessions: sessions,
		validate: validator.New(),
	}
}

type sessionRequest struct {
	ID        string    `json:"session_id" validate:"omitempty,max=128,printascii"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
	Text      string    `json:"text" validate:"required"`
	Tags      []string  `json:"confirmed_tags" validate:"dive,required,max=64"`
}

type tagsRequest struct {
	Tags []string `json:"confirmed_tags" validate:"dive,required,max=64"`
}

type analyzeRequest struct {
	Since      time.Time `json:"since"`
	SkipRender bool      `json:"skip_render"`
}

type reflectionRequest struct {
	Text      string `json:"text" validate:"required,max=20000"`
	SessionID string `json:"session_id" validate:"omitempty,max=128,printascii"`
}

type guardRequest struct {
	Text string `json:"text" validate:"required"`
}

type guardResponse struct {
	Allowed   bool `json:"allowed"`
	Sentences int  `json:"sentences"`
}

type patternsResponse struct {
	UserID   string                   `json:"user_id"`
	Patterns []model.CognitivePattern `json:"patterns"`
}

// Health handles GET /healthz.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CreateSession handles POST /v1/sessions.
func (h *Handlers) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if !h.decode(w, r, &req, false) {
		return
	}
	if req.StartedAt.IsZero() {
		writeError(w, r, http.StatusBadRequest, codeValidationFailed, "started_at is required", nil)
		return
	}
	if !req.EndedAt.IsZero() && req.EndedAt.Before(req.StartedAt) {
		writeError(w, r, http.StatusBadRequest, codeValidationFailed, "ended_at is before started_at", nil)
		return
	}

	sess, err := h.sessions.SaveSession(r.Context(), model.Session{
		ID:            req.ID,
		StartedAt:     req.StartedAt.UTC(),
		EndedAt:       req.EndedAt.UTC(),
		Text:          req.Text,
		ConfirmedTags: req.Tags,
	})
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

// UpdateTags handles PUT /v1/sessions/{id}/tags.
func (h *Handlers) UpdateTags(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req tagsRequest
	if !h.decode(w, r, &req, false) {
		return
	}
	sess, err := h.sessions.UpdateSessionTags(r.Context(), id, req.Tags)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// Analyze handles POST /v1/analyze. An empty body analyzes everything.
func (h *Handlers) Analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !h.decode(w, r, &req, true) {
		return
	}
	a, err := h.engine.Analyze(r.Context(), pipeline.AnalyzeOptions{
		Since:      req.Since,
		SkipRender: req.SkipRender,
	})
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// Reflect handles POST /v1/users/{user}/reflections.
func (h *Handlers) Reflect(w http.ResponseWriter, r *http.Request) {
	user, ok := h.userParam(w, r)
	if !ok {
		return
	}
	var req reflectionRequest
	if !h.decode(w, r, &req, false) {
		return
	}
	ref, err := h.engine.Reflect(r.Context(), user, req.Text, req.SessionID)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ref)
}

// Plan handles GET /v1/users/{user}/plan.
func (h *Handlers) Plan(w http.ResponseWriter, r *http.Request) {
	user, ok := h.userParam(w, r)
	if !ok {
		return
	}
	view, err := h.engine.Plan(r.Context(), user)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Patterns handles GET /v1/users/{user}/patterns.
func (h *Handlers) Patterns(w http.ResponseWriter, r *http.Request) {
	user, ok := h.userParam(w, r)
	if !ok {
		return
	}
	patterns, err := h.engine.Patterns(r.Context(), user)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, patternsResponse{UserID: user, Patterns: patterns})
}

// Guard handles POST /v1/guard. Rejected text gets a 422 naming the reason.
func (h *Handlers) Guard(w http.ResponseWriter, r *http.Request) {
	var req guardRequest
	if !h.decode(w, r, &req, false) {
		return
	}
	if err := h.engine.Guard(req.Text); err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, guardResponse{Allowed: true, Sentences: guard.SentenceCount(req.Text)})
}

func (h *Handlers) userParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	user := chi.URLParam(r, "user")
	if err := h.validate.Var(user, "required,max=128,printascii"); err != nil {
		writeError(w, r, http.StatusBadRequest, codeValidationFailed, "invalid user id", nil)
		return "", false
	}
	return user, true
}

// decode reads a JSON body into dst and validates it. With allowEmpty an
// empty body leaves dst at its zero value.
func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if !(allowEmpty && errors.Is(err, io.EOF)) {
			writeError(w, r, http.StatusBadRequest, codeBadRequest, "invalid request body", nil)
			return false
		}
	}

	if err := h.validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			log.FromCtx(r.Context()).Error().Err(err).Msg("validate request")
			writeError(w, r, http.StatusInternalServerError, codeInternal, "internal error", nil)
			return false
		}
		fields := make(map[string]any, len(fieldErrs))
		for _, fe := range fieldErrs {
			fields[fe.Field()] = fe.Tag()
		}
		writeError(w, r, http.StatusBadRequest, codeValidationFailed, "request validation failed", fields)
		return false
	}
	return true
}
