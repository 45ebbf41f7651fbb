package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"assessmentlinks/internal/security"
	"assessmentlinks/internal/service"
)

// LeaderHandler validates leader links and hands the leader identity to the portal
type LeaderHandler struct {
	sessions  *service.LeaderSessionService
	portalURL string
	logger    *zap.Logger
}

// NewLeaderHandler creates a new leader handler
func NewLeaderHandler(sessions *service.LeaderSessionService, portalURL string, logger *zap.Logger) *LeaderHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeaderHandler{sessions: sessions, portalURL: portalURL, logger: logger}
}

// ValidateToken opens a leader session and redirects to the portal
func (h *LeaderHandler) ValidateToken(w http.ResponseWriter, r *http.Request) {
	tokenID := strings.TrimSpace(r.URL.Query().Get("token"))
	if tokenID == "" {
		http.Error(w, MsgTokenMissing, http.StatusBadRequest)
		return
	}

	session, err := h.sessions.StartSession(r.Context(), tokenID)
	if err != nil {
		respondWithTokenError(w, h.logger, err, "Error starting leader session")
		return
	}

	http.SetCookie(w, security.CreateSessionCookie(r, LeaderSessionCookieName, session.ID, session.ExpiresAt))
	http.Redirect(w, r, h.portalURL, http.StatusSeeOther)
}

type leaderSessionResponse struct {
	LeaderName  string    `json:"nomeLider"`
	LeaderEmail string    `json:"emailLider"`
	Company     string    `json:"empresa"`
	RoundCode   string    `json:"codrodada"`
	ExpiresAt   time.Time `json:"expira_em"`
}

// CurrentSession returns the identity of the leader behind the session cookie
func (h *LeaderHandler) CurrentSession(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(LeaderSessionCookieName)
	if err != nil {
		http.Error(w, MsgUnauthorized, http.StatusUnauthorized)
		return
	}

	session, err := h.sessions.CurrentSession(r.Context(), cookie.Value)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) || errors.Is(err, service.ErrExpired) {
			http.SetCookie(w, security.CreateDeleteCookie(r, LeaderSessionCookieName))
			http.Error(w, MsgUnauthorized, http.StatusUnauthorized)
			return
		}
		respondWithError(w, h.logger, http.StatusInternalServerError, MsgInternalServerError, "Error loading leader session", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	json.NewEncoder(w).Encode(leaderSessionResponse{
		LeaderName:  session.LeaderName,
		LeaderEmail: session.LeaderEmail,
		Company:     session.Company,
		RoundCode:   session.RoundCode,
		ExpiresAt:   session.ExpiresAt,
	})
}

// EndSession clears the leader session
func (h *LeaderHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(LeaderSessionCookieName); err == nil {
		if err := h.sessions.EndSession(r.Context(), cookie.Value); err != nil {
			h.logger.Warn("failed to end leader session", zap.Error(err))
		}
	}
	http.SetCookie(w, security.CreateDeleteCookie(r, LeaderSessionCookieName))
	w.WriteHeader(http.StatusNoContent)
}
