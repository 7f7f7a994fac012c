package handlers

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/zatekoja/sheetfeedback/internal/application/services"
	"github.com/zatekoja/sheetfeedback/internal/domain/entities"
)

const (
	maxCommentLength = 1000
	maxEmailLength   = 200
	maxBodyBytes     = 16 << 10

	defaultSearchLimit = 20
)

// FeedbackService defines the feedback operations used by the handler.
type FeedbackService interface {
	List(ctx context.Context) (entities.FeedbackTable, error)
	Status(ctx context.Context, session entities.Session) (entities.SubmissionStatus, error)
	Submit(ctx context.Context, session entities.Session, input services.SubmissionInput) (entities.FeedbackRecord, error)
	Search(ctx context.Context, query string, limit int) ([]entities.FeedbackSearchHit, error)
}

// SessionProvider hands out the per-browser feedback session.
type SessionProvider interface {
	Session(w http.ResponseWriter, r *http.Request) (entities.Session, error)
	Clear(w http.ResponseWriter, r *http.Request) (entities.Session, error)
}

// FeedbackHandler serves the feedback form API.
type FeedbackHandler struct {
	service  FeedbackService
	sessions SessionProvider
	limiter  *RateLimiter
}

// NewFeedbackHandler creates a new feedback handler.
func NewFeedbackHandler(service FeedbackService, sessions SessionProvider, limiter *RateLimiter) *FeedbackHandler {
	return &FeedbackHandler{
		service:  service,
		sessions: sessions,
		limiter:  limiter,
	}
}

type feedbackRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
	Email   string `json:"email"`
}

type feedbackListResponse struct {
	Records entities.FeedbackTable `json:"records"`
	Count   int                    `json:"count"`
}

// ListFeedback handles GET /api/feedback
func (h *FeedbackHandler) ListFeedback(w http.ResponseWriter, r *http.Request) {
	table, err := h.service.List(r.Context())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	if table == nil {
		table = entities.FeedbackTable{}
	}

	respondWithJSON(w, http.StatusOK, feedbackListResponse{Records: table, Count: len(table)})
}

// GetSession handles GET /api/feedback/session
func (h *FeedbackHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Session(w, r)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	status, err := h.service.Status(r.Context(), session)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, status)
}

// SubmitFeedback handles POST /api/feedback
func (h *FeedbackHandler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	var payload feedbackRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	payload.Comment = strings.TrimSpace(payload.Comment)
	payload.Email = strings.TrimSpace(payload.Email)

	if len(payload.Comment) > maxCommentLength {
		respondWithError(w, http.StatusBadRequest, "comment is too long")
		return
	}
	if len(payload.Email) > maxEmailLength {
		respondWithError(w, http.StatusBadRequest, "email is too long")
		return
	}

	if h.limiter != nil {
		allowed, retryAfter := h.limiter.Allow(r.Context(), "feedback:rate:"+clientIP(r))
		if !allowed {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
			respondWithError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
	}

	session, err := h.sessions.Session(w, r)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	record, err := h.service.Submit(r.Context(), session, services.SubmissionInput{
		Rating:  payload.Rating,
		Comment: payload.Comment,
		Email:   payload.Email,
	})
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"status":     "received",
		"request_id": record.RequestID,
	})
}

// ClearSession handles POST /api/feedback/session/clear
func (h *FeedbackHandler) ClearSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Clear(w, r)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, entities.SubmissionStatus{
		RequestID:    session.RequestID,
		State:        entities.SubmissionStateOpen,
		ContactEmail: session.ContactEmail,
	})
}

// SearchFeedback handles GET /api/feedback/search?q=&limit=
func (h *FeedbackHandler) SearchFeedback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit := defaultSearchLimit
	if raw := query.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			respondWithError(w, http.StatusBadRequest, "invalid limit parameter")
			return
		}
		limit = parsed
	}

	start := time.Now()
	hits, err := h.service.Search(r.Context(), query.Get("q"), limit)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	if hits == nil {
		hits = []entities.FeedbackSearchHit{}
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"hits":    hits,
		"count":   len(hits),
		"took_ms": time.Since(start).Milliseconds(),
		"query":   query.Get("q"),
	})
}
