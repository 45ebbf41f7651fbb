package handlers

import (
	"assessmentlinks/internal/models"
	"assessmentlinks/internal/service"
)

type CompletionViewData struct {
	Title     string
	Token     *models.RegistrationToken
	CSRFToken string
	Error     string
}

type IndexViewData struct {
	Title             string
	RegistrationCount int
	LeaderCount       int
	EmailEnabled      bool
	UploadMaxMB       int64
}

type RegistrationListViewData struct {
	Title  string
	Tokens []models.RegistrationToken
	Links  map[string]string
}

type LeaderListViewData struct {
	Title  string
	Tokens []models.LeaderAccessToken
	Links  map[string]string
}

type ConfirmClearViewData struct {
	Title  string
	Action string
	Kind   string
	Count  int
}

type ResultViewData struct {
	Title    string
	Message  string
	Issue    *service.IssueResult
	Dispatch *service.DispatchResult
	Back     string
}
