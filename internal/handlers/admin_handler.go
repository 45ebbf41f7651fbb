package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"assessmentlinks/internal/importer"
	"assessmentlinks/internal/service"
	"assessmentlinks/internal/storage"
)

// AdminHandler serves the operator pages: uploads, listings, clearing and dispatch
type AdminHandler struct {
	tokens        *service.TokenService
	dispatch      *service.DispatchService
	importer      *importer.Reader
	archive       *storage.Archive
	templates     *template.Template
	appBaseURL    string
	uploadMaxSize int64
	emailEnabled  bool
	logger        *zap.Logger
}

// AdminHandlerConfig carries the non-service settings of the admin pages
type AdminHandlerConfig struct {
	AppBaseURL    string
	UploadMaxSize int64
	EmailEnabled  bool
}

// NewAdminHandler creates a new admin handler. archive may be nil.
func NewAdminHandler(tokens *service.TokenService, dispatch *service.DispatchService, reader *importer.Reader, archive *storage.Archive, templates *template.Template, cfg AdminHandlerConfig, logger *zap.Logger) *AdminHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminHandler{
		tokens:        tokens,
		dispatch:      dispatch,
		importer:      reader,
		archive:       archive,
		templates:     templates,
		appBaseURL:    cfg.AppBaseURL,
		uploadMaxSize: cfg.UploadMaxSize,
		emailEnabled:  cfg.EmailEnabled,
		logger:        logger,
	}
}

// Index shows the upload forms and store sizes
func (h *AdminHandler) Index(w http.ResponseWriter, r *http.Request) {
	data := IndexViewData{
		Title:             "Links de avaliação",
		RegistrationCount: len(h.tokens.ListRegistrations(r.Context())),
		LeaderCount:       len(h.tokens.ListLeaders(r.Context())),
		EmailEnabled:      h.emailEnabled,
		UploadMaxMB:       h.uploadMaxSize / (1024 * 1024),
	}
	h.render(w, "index.tmpl", data)
}

// UploadRegistrations issues a new registration batch from an uploaded spreadsheet.
// The batch replaces every existing registration token.
func (h *AdminHandler) UploadRegistrations(w http.ResponseWriter, r *http.Request) {
	content, filename, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	rows, err := h.importer.ReadRegistrationRows(bytes.NewReader(content))
	if err != nil {
		h.respondWithImportError(w, err)
		return
	}

	result, err := h.tokens.IssueRegistrationBatch(r.Context(), rows)
	if err != nil {
		respondWithError(w, h.logger, http.StatusInternalServerError, MsgInternalServerError, "Error issuing registration tokens", err)
		return
	}

	h.archiveUpload(r, storage.FolderRegistrations, filename, content)

	h.render(w, "resultado.tmpl", ResultViewData{
		Title:   "Tokens gerados",
		Message: fmt.Sprintf("%d tokens de cadastro gerados.", result.Created),
		Issue:   &result,
		Back:    "/listar-tokens",
	})
}

// UploadLeaders adds leader tokens from an uploaded spreadsheet
func (h *AdminHandler) UploadLeaders(w http.ResponseWriter, r *http.Request) {
	content, filename, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	rows, err := h.importer.ReadLeaderRows(bytes.NewReader(content))
	if err != nil {
		h.respondWithImportError(w, err)
		return
	}

	result, err := h.tokens.IssueLeaderBatch(r.Context(), rows)
	if err != nil {
		respondWithError(w, h.logger, http.StatusInternalServerError, MsgInternalServerError, "Error issuing leader tokens", err)
		return
	}

	h.archiveUpload(r, storage.FolderLeaders, filename, content)

	h.render(w, "resultado.tmpl", ResultViewData{
		Title:   "Tokens de liderança gerados",
		Message: fmt.Sprintf("%d tokens de liderança gerados.", result.Created),
		Issue:   &result,
		Back:    "/listar-tokens-leadertrack",
	})
}

// ListRegistrations shows every registration token with its completion link
func (h *AdminHandler) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	tokens := h.tokens.ListRegistrations(r.Context())

	links := make(map[string]string, len(tokens))
	for _, t := range tokens {
		links[t.Token] = h.appBaseURL + "/completar-cadastro?" + url.Values{"token": {t.Token}}.Encode()
	}

	h.render(w, "listar_tokens.tmpl", RegistrationListViewData{
		Title:  "Tokens de cadastro",
		Tokens: tokens,
		Links:  links,
	})
}

// ListLeaders shows every leader token with its portal link
func (h *AdminHandler) ListLeaders(w http.ResponseWriter, r *http.Request) {
	tokens := h.tokens.ListLeaders(r.Context())

	links := make(map[string]string, len(tokens))
	for _, t := range tokens {
		links[t.Token] = h.dispatch.LeaderLink(t.Token)
	}

	h.render(w, "listar_tokens_leadertrack.tmpl", LeaderListViewData{
		Title:  "Tokens de liderança",
		Tokens: tokens,
		Links:  links,
	})
}

// ConfirmClearRegistrations asks before deleting every registration token
func (h *AdminHandler) ConfirmClearRegistrations(w http.ResponseWriter, r *http.Request) {
	h.render(w, "confirmar_exclusao.tmpl", ConfirmClearViewData{
		Title:  "Excluir tokens de cadastro",
		Action: "/excluir-tokens",
		Kind:   "cadastro",
		Count:  len(h.tokens.ListRegistrations(r.Context())),
	})
}

// ClearRegistrations deletes every registration token
func (h *AdminHandler) ClearRegistrations(w http.ResponseWriter, r *http.Request) {
	if !confirmed(r) {
		http.Redirect(w, r, "/excluir-tokens", http.StatusSeeOther)
		return
	}

	n, err := h.tokens.ClearRegistrations(r.Context())
	if err != nil {
		respondWithError(w, h.logger, http.StatusInternalServerError, MsgInternalServerError, "Error clearing registration tokens", err)
		return
	}

	h.render(w, "resultado.tmpl", ResultViewData{
		Title:   "Tokens excluídos",
		Message: fmt.Sprintf("%d tokens de cadastro excluídos.", n),
		Back:    "/listar-tokens",
	})
}

// ConfirmClearLeaders asks before deleting every leader token
func (h *AdminHandler) ConfirmClearLeaders(w http.ResponseWriter, r *http.Request) {
	h.render(w, "confirmar_exclusao.tmpl", ConfirmClearViewData{
		Title:  "Excluir tokens de liderança",
		Action: "/excluir-tokens-leadertrack",
		Kind:   "liderança",
		Count:  len(h.tokens.ListLeaders(r.Context())),
	})
}

// ClearLeaders deletes every leader token
func (h *AdminHandler) ClearLeaders(w http.ResponseWriter, r *http.Request) {
	if !confirmed(r) {
		http.Redirect(w, r, "/excluir-tokens-leadertrack", http.StatusSeeOther)
		return
	}

	n, err := h.tokens.ClearLeaders(r.Context())
	if err != nil {
		respondWithError(w, h.logger, http.StatusInternalServerError, MsgInternalServerError, "Error clearing leader tokens", err)
		return
	}

	h.render(w, "resultado.tmpl", ResultViewData{
		Title:   "Tokens excluídos",
		Message: fmt.Sprintf("%d tokens de liderança excluídos.", n),
		Back:    "/listar-tokens-leadertrack",
	})
}

// SendRegistrationEmails emails every unused registration token its destination link
func (h *AdminHandler) SendRegistrationEmails(w http.ResponseWriter, r *http.Request) {
	h.extendWriteDeadline(w)

	result, err := h.dispatch.DispatchRegistrationLinks(r.Context())
	if err != nil {
		respondWithError(w, h.logger, http.StatusInternalServerError, MsgInternalServerError, "Error dispatching registration links", err)
		return
	}

	h.render(w, "resultado.tmpl", ResultViewData{
		Title:    "Envio de e-mails",
		Message:  fmt.Sprintf("%d e-mails enviados.", result.Sent),
		Dispatch: &result,
		Back:     "/listar-tokens",
	})
}

// SendLeaderEmails emails every active leader token its portal link
func (h *AdminHandler) SendLeaderEmails(w http.ResponseWriter, r *http.Request) {
	h.extendWriteDeadline(w)

	result, err := h.dispatch.DispatchLeaderLinks(r.Context())
	if err != nil {
		respondWithError(w, h.logger, http.StatusInternalServerError, MsgInternalServerError, "Error dispatching leader links", err)
		return
	}

	h.render(w, "resultado.tmpl", ResultViewData{
		Title:    "Envio de e-mails",
		Message:  fmt.Sprintf("%d e-mails enviados.", result.Sent),
		Dispatch: &result,
		Back:     "/listar-tokens-leadertrack",
	})
}

// readUpload returns the uploaded spreadsheet, writing an error response when it is missing or invalid
func (h *AdminHandler) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.uploadMaxSize)
	if err := r.ParseMultipartForm(h.uploadMaxSize); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			http.Error(w, fmt.Sprintf("Arquivo muito grande (máximo %d MB).", h.uploadMaxSize/(1024*1024)), http.StatusRequestEntityTooLarge)
			return nil, "", false
		}
		http.Error(w, MsgInvalidFormData, http.StatusBadRequest)
		return nil, "", false
	}

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		http.Error(w, "Nenhum arquivo enviado.", http.StatusBadRequest)
		return nil, "", false
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".xlsx") {
		http.Error(w, "Envie uma planilha .xlsx.", http.StatusBadRequest)
		return nil, "", false
	}

	content, err := io.ReadAll(file)
	if err != nil {
		respondWithError(w, h.logger, http.StatusInternalServerError, MsgInternalServerError, "Error reading upload", err)
		return nil, "", false
	}
	return content, header.Filename, true
}

func (h *AdminHandler) respondWithImportError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, importer.ErrMissingColumn):
		http.Error(w, "Planilha sem colunas obrigatórias: "+err.Error(), http.StatusBadRequest)
	case errors.Is(err, importer.ErrTooManyRows):
		http.Error(w, "Planilha com linhas demais: "+err.Error(), http.StatusBadRequest)
	case errors.Is(err, importer.ErrEmptySheet):
		http.Error(w, "Planilha vazia.", http.StatusBadRequest)
	default:
		h.logger.Warn("unreadable spreadsheet", zap.Error(err))
		http.Error(w, "Não foi possível ler a planilha.", http.StatusBadRequest)
	}
}

// archiveUpload keeps a copy of the upload. Failures are logged only.
func (h *AdminHandler) archiveUpload(r *http.Request, folder, filename string, content []byte) {
	if _, err := h.archive.Store(r.Context(), folder, filename, bytes.NewReader(content)); err != nil {
		h.logger.Warn("failed to archive upload", zap.String("filename", filename), zap.Error(err))
	}
}

// extendWriteDeadline lifts the server write timeout so large dispatch batches
// still deliver their result page
func (h *AdminHandler) extendWriteDeadline(w http.ResponseWriter) {
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Warn("could not lift write deadline", zap.Error(err))
	}
}

func (h *AdminHandler) render(w http.ResponseWriter, name string, data any) {
	if err := h.templates.ExecuteTemplate(w, name, data); err != nil {
		respondWithError(w, h.logger, http.StatusInternalServerError, MsgInternalServerError, "Error rendering "+name, err)
	}
}

func confirmed(r *http.Request) bool {
	return r.PostFormValue("confirmar") == "sim"
}
