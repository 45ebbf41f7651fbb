package handlers

import (
	"bytes"
	"errors"
	"html/template"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"assessmentlinks/internal/models"
	"assessmentlinks/internal/security"
	"assessmentlinks/internal/service"
)

// TokenHandler serves the public registration completion flow
type TokenHandler struct {
	tokens    *service.TokenService
	csrf      *security.CSRFGenerator
	templates *template.Template
	logger    *zap.Logger
	now       func() time.Time
}

// NewTokenHandler creates a new token handler
func NewTokenHandler(tokens *service.TokenService, csrf *security.CSRFGenerator, templates *template.Template, logger *zap.Logger) *TokenHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenHandler{
		tokens:    tokens,
		csrf:      csrf,
		templates: templates,
		logger:    logger,
		now:       time.Now,
	}
}

// ShowCompletion renders the completion form for a valid registration token
func (h *TokenHandler) ShowCompletion(w http.ResponseWriter, r *http.Request) {
	tokenID := strings.TrimSpace(r.URL.Query().Get("token"))
	if tokenID == "" {
		http.Error(w, MsgTokenMissing, http.StatusBadRequest)
		return
	}

	token, err := h.tokens.ValidateRegistration(r.Context(), tokenID, h.now())
	if err != nil {
		respondWithTokenError(w, h.logger, err, "Error validating registration token")
		return
	}

	h.renderForm(w, token, http.StatusOK, "")
}

// renderCompletion re-validates tokenID and shows the form again with an error message
func (h *TokenHandler) renderCompletion(w http.ResponseWriter, r *http.Request, tokenID string, status int, message string) {
	token, err := h.tokens.ValidateRegistration(r.Context(), tokenID, h.now())
	if err != nil {
		respondWithTokenError(w, h.logger, err, "Error validating registration token")
		return
	}
	h.renderForm(w, token, status, message)
}

func (h *TokenHandler) renderForm(w http.ResponseWriter, token *models.RegistrationToken, status int, message string) {
	csrfToken, err := h.csrf.GenerateToken(csrfScopeCompletion, token.Token)
	if err != nil {
		respondWithError(w, h.logger, http.StatusInternalServerError, MsgInternalServerError, "Error generating CSRF token", err)
		return
	}

	var buf bytes.Buffer
	data := CompletionViewData{
		Title:     "Completar cadastro",
		Token:     token,
		CSRFToken: csrfToken,
		Error:     message,
	}
	if err := h.templates.ExecuteTemplate(&buf, "completar_cadastro.tmpl", data); err != nil {
		respondWithError(w, h.logger, http.StatusInternalServerError, MsgInternalServerError, "Error rendering completion form", err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// FinalizeCompletion consumes the token and redirects to the resolved form
func (h *TokenHandler) FinalizeCompletion(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, MsgInvalidFormData, http.StatusBadRequest)
		return
	}

	tokenID := strings.TrimSpace(r.PostFormValue("token"))
	if tokenID == "" {
		http.Error(w, MsgTokenMissing, http.StatusBadRequest)
		return
	}

	if !h.csrf.ValidateToken(csrfScopeCompletion, tokenID, r.PostFormValue("csrf_token")) {
		h.logger.Warn("invalid CSRF token on completion", zap.String("token", tokenID))
		http.Error(w, MsgInvalidForm, http.StatusForbidden)
		return
	}

	completion, err := h.tokens.Complete(r.Context(), service.CompletionInput{
		Token:    tokenID,
		Password: r.PostFormValue("senha"),
		Age:      r.PostFormValue("idade"),
		Role:     r.PostFormValue("cargo"),
	}, h.now())
	if errors.Is(err, service.ErrMalformedInput) {
		h.renderCompletion(w, r, tokenID, http.StatusBadRequest, MsgInvalidPassword)
		return
	}
	if err != nil {
		if errors.Is(err, service.ErrUnresolvable) && completion != nil {
			h.logger.Error("registration consumed but destination unresolvable",
				zap.String("token", tokenID), zap.Error(err))
		}
		respondWithTokenError(w, h.logger, err, "Error completing registration")
		return
	}

	http.Redirect(w, r, completion.URL, http.StatusSeeOther)
}
