package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"assessmentlinks/internal/service"
)

func respondWithError(w http.ResponseWriter, logger *zap.Logger, status int, userMsg, logMsg string, err error) {
	if err != nil && logger != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		logger.Error(logMsg, zap.Int("status", status), zap.Error(err))
	}

	http.Error(w, userMsg, status)
}

// tokenErrorStatus maps a token lifecycle error to the status and message shown to the user
func tokenErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrMalformedInput):
		return http.StatusBadRequest, MsgInvalidFormData
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, MsgTokenNotFound
	case errors.Is(err, service.ErrAlreadyUsed):
		return http.StatusForbidden, MsgTokenUsed
	case errors.Is(err, service.ErrExpired):
		return http.StatusForbidden, MsgTokenExpired
	case errors.Is(err, service.ErrUnresolvable):
		return http.StatusBadRequest, MsgUnresolvable
	default:
		return http.StatusInternalServerError, MsgInternalServerError
	}
}

// respondWithTokenError writes the user-facing response for a lifecycle error,
// logging only unexpected failures
func respondWithTokenError(w http.ResponseWriter, logger *zap.Logger, err error, logMsg string) {
	status, msg := tokenErrorStatus(err)
	if status == http.StatusInternalServerError {
		respondWithError(w, logger, status, msg, logMsg, err)
		return
	}
	http.Error(w, msg, status)
}
