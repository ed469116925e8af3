package httpadapter

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/kirillkom/intendex/internal/core/domain"
	"github.com/kirillkom/intendex/internal/core/ports"
)

const maxRequestBodyBytes = 64 << 10

type Router struct {
	recorder ports.IntentRecorder
	matcher  ports.IntentMatcher
	matches  ports.MatchLifecycle
	ledger   ports.LedgerReader
	auth     authenticator
	metrics  http.Handler
}

func NewRouter(
	recorder ports.IntentRecorder,
	matcher ports.IntentMatcher,
	matches ports.MatchLifecycle,
	ledger ports.LedgerReader,
	auth authenticator,
	metrics http.Handler,
) *Router {
	return &Router{
		recorder: recorder,
		matcher:  matcher,
		matches:  matches,
		ledger:   ledger,
		auth:     auth,
		metrics:  metrics,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics)
	}
	mux.HandleFunc("POST /v1/intents", requireUser(rt.auth, rt.recordIntent))
	mux.HandleFunc("POST /v1/intents/{id}/match", requireUser(rt.auth, rt.matchIntent))
	mux.HandleFunc("POST /v1/matching/run", requireUser(rt.auth, rt.runMatching))
	mux.HandleFunc("GET /v1/matches", requireUser(rt.auth, rt.listMatches))
	mux.HandleFunc("POST /v1/matches/{id}/accept", requireUser(rt.auth, rt.acceptMatch))
	mux.HandleFunc("POST /v1/matches/{id}/reject", requireUser(rt.auth, rt.rejectMatch))
	mux.HandleFunc("GET /v1/points", requireUser(rt.auth, rt.points))
	return requestIDMiddleware(accessLogMiddleware(recoverMiddleware(mux)))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) recordIntent(w http.ResponseWriter, r *http.Request) {
	var req domain.ExtractedIntent
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	intent, err := rt.recorder.Record(r.Context(), userIDFromContext(r.Context()), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, intent)
}

// matchIntent runs matching for one of the caller's intents. Intents owned by
// someone else are reported as missing.
func (rt *Router) matchIntent(w http.ResponseWriter, r *http.Request) {
	created, err := rt.matcher.MatchIntentForUser(r.Context(), strings.TrimSpace(r.PathValue("id")), userIDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, matchesResponse{Matches: nonNil(created), Count: len(created)})
}

func (rt *Router) runMatching(w http.ResponseWriter, r *http.Request) {
	created := rt.matcher.RunMatchingForUser(r.Context(), userIDFromContext(r.Context()))
	writeJSON(w, http.StatusOK, matchesResponse{Matches: nonNil(created), Count: len(created)})
}

func (rt *Router) listMatches(w http.ResponseWriter, r *http.Request) {
	status := domain.MatchStatus(strings.TrimSpace(r.URL.Query().Get("status")))
	matches, err := rt.matches.ListMatches(r.Context(), userIDFromContext(r.Context()), status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, matchesResponse{Matches: nonNil(matches), Count: len(matches)})
}

func (rt *Router) acceptMatch(w http.ResponseWriter, r *http.Request) {
	match, err := rt.matches.AcceptMatch(r.Context(), r.PathValue("id"), userIDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, match)
}

func (rt *Router) rejectMatch(w http.ResponseWriter, r *http.Request) {
	match, err := rt.matches.RejectMatch(r.Context(), r.PathValue("id"), userIDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, match)
}

func (rt *Router) points(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "points", errors.New("limit must be a non-negative integer")))
			return
		}
		limit = n
	}

	summary, err := rt.ledger.Summary(r.Context(), userIDFromContext(r.Context()), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

type matchesResponse struct {
	Matches []domain.Match `json:"matches"`
	Count   int            `json:"count"`
}

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

func nonNil(matches []domain.Match) []domain.Match {
	if matches == nil {
		return []domain.Match{}
	}
	return matches
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxRequestBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "decode request", err)
	}
	return nil
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		slog.Error("request_failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
		message = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{
		Error:     message,
		Code:      errorCode(err),
		RequestID: requestIDFromContext(r.Context()),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
