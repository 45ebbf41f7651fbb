package handlers

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"assessmentlinks/internal/database"
	"assessmentlinks/internal/importer"
	"assessmentlinks/internal/models"
	"assessmentlinks/internal/repository"
	"assessmentlinks/internal/security"
	"assessmentlinks/internal/service"
	"assessmentlinks/internal/session"
)

const (
	testPortalURL  = "https://portal.example.com/"
	testAppBaseURL = "https://links.example.com"
)

var testDestinations = service.NewDestinations(
	"https://forms.example.com/arquetipos/auto",
	"https://forms.example.com/arquetipos/equipe",
	"https://forms.example.com/microambiente",
)

type recordingMailer struct {
	mu       sync.Mutex
	disabled bool
	messages []service.Message
}

func (m *recordingMailer) Send(_ context.Context, msg service.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disabled {
		return service.ErrEmailDisabled
	}
	m.messages = append(m.messages, msg)
	return nil
}

func (m *recordingMailer) sent() []service.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]service.Message(nil), m.messages...)
}

type testApp struct {
	mux           *http.ServeMux
	registrations *repository.RegistrationRepository
	leaders       *repository.LeaderRepository
	csrf          *security.CSRFGenerator
	mailer        *recordingMailer
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	ctx := context.Background()

	db, err := database.Initialize(filepath.Join(t.TempDir(), "handlers.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.RunMigrations(ctx, "../../migrations", nil))

	templates, err := LoadTemplates("../templates")
	require.NoError(t, err)

	registrations := repository.NewRegistrationRepository(db)
	leaders := repository.NewLeaderRepository(db)
	sessions := session.NewSQLStore(repository.NewSessionRepository(db), nil)
	csrf := security.NewCSRFGenerator("test-secret")
	mailer := &recordingMailer{}

	tokens := service.NewTokenService(registrations, leaders, testDestinations, 48*time.Hour, nil, nil)
	dispatch := service.NewDispatchService(registrations, leaders, testDestinations, mailer, testAppBaseURL, time.Second, 2, nil, nil)
	leaderSessions := service.NewLeaderSessionService(tokens, sessions, time.Hour, nil, nil)

	mux := http.NewServeMux()
	Routes{
		Tokens:  NewTokenHandler(tokens, csrf, templates, nil),
		Leaders: NewLeaderHandler(leaderSessions, testPortalURL, nil),
		Admin: NewAdminHandler(tokens, dispatch, importer.New(100), nil, templates, AdminHandlerConfig{
			AppBaseURL:    testAppBaseURL,
			UploadMaxSize: 1 << 20,
			EmailEnabled:  true,
		}, nil),
		Middleware: NewMiddleware(nil, false, nil),
	}.Register(mux)

	return &testApp{
		mux:           mux,
		registrations: registrations,
		leaders:       leaders,
		csrf:          csrf,
		mailer:        mailer,
	}
}

func (a *testApp) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.mux.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) seedRegistration(t *testing.T, tokens ...models.RegistrationToken) {
	t.Helper()
	require.NoError(t, a.registrations.InsertAll(context.Background(), tokens))
}

func (a *testApp) seedLeader(t *testing.T, tokens ...models.LeaderAccessToken) {
	t.Helper()
	inserted, err := a.leaders.InsertAll(context.Background(), tokens)
	require.NoError(t, err)
	require.Len(t, inserted, len(tokens))
}

func registrationToken(id, product, formType string, expiresAt time.Time) models.RegistrationToken {
	return models.RegistrationToken{
		Token:       id,
		Name:        "Ana Souza",
		Email:       "ana@example.com",
		Company:     "Acme",
		RoundCode:   "R1",
		LeaderName:  "Carlos Lima",
		LeaderEmail: "carlos@example.com",
		Product:     product,
		Type:        formType,
		ExpiresAt:   expiresAt,
		CreatedAt:   time.Now().Add(-time.Hour),
	}
}

func leaderToken(id, email string) models.LeaderAccessToken {
	return models.LeaderAccessToken{
		Token:       id,
		LeaderName:  "Carlos Lima",
		LeaderEmail: email,
		Company:     "Acme",
		RoundCode:   "R1",
		CreatedAt:   time.Now().Add(-time.Hour),
		Active:      true,
	}
}

// xlsxUpload builds a multipart request carrying a workbook made of rows
func xlsxUpload(t *testing.T, target, filename string, rows ...[]any) *http.Request {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	content, err := f.WriteToBuffer()
	require.NoError(t, err)

	return multipartUpload(t, target, uploadField, filename, content.Bytes())
}

func multipartUpload(t *testing.T, target, field, filename string, content []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if field != "" {
		part, err := mw.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	} else {
		require.NoError(t, mw.WriteField("outro", "valor"))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func tokenURL(path, token string) string {
	return fmt.Sprintf("%s?token=%s", path, token)
}
