package service

import (
	"context"
	"net/url"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assessmentlinks/internal/models"
)

func newTestDispatchService(reg RegistrationStore, leaders LeaderStore, mailer Mailer) *DispatchService {
	return NewDispatchService(reg, leaders, testDestinations, mailer, "https://links.example.com", time.Second, 2, nil, nil)
}

func TestDispatchRegistrationLinks(t *testing.T) {
	expiry := time.Now().Add(time.Hour)
	store := newFakeRegistrationStore(
		models.RegistrationToken{Token: "a", Name: "Ana", Email: "ana@example.com", Product: "arquetipos", Type: "autoavaliacao", ExpiresAt: expiry},
		models.RegistrationToken{Token: "b", Name: "Bruno", Email: "bruno@example.com", Product: "microambiente", Type: "microambiente_equipe", ExpiresAt: expiry},
		models.RegistrationToken{Token: "c", Name: "Clara", Email: "clara@example.com", Product: "arquetipos", Type: "equipe", ExpiresAt: expiry, Used: true},
		models.RegistrationToken{Token: "d", Name: "Davi", Email: "davi@example.com", Product: "desconhecido", Type: "x", ExpiresAt: expiry},
		models.RegistrationToken{Token: "e", Name: "Eva", Email: "eva@example.com", Product: "arquetipos", Type: "equipe", ExpiresAt: expiry},
	)
	mailer := &fakeMailer{failFor: map[string]bool{"eva@example.com": true}}
	svc := newTestDispatchService(store, &fakeLeaderStore{}, mailer)

	result, err := svc.DispatchRegistrationLinks(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Sent)
	assert.Equal(t, 1, result.Skipped)
	require.Equal(t, 1, result.Failed())
	assert.Equal(t, "e", result.Failures[0].Token)
	assert.ErrorIs(t, result.Failures[0].Err, ErrTransport)

	recipients := make([]string, 0, len(mailer.sent))
	for _, msg := range mailer.sent {
		recipients = append(recipients, msg.To)
	}
	sort.Strings(recipients)
	assert.Equal(t, []string{"ana@example.com", "bruno@example.com"}, recipients)

	for _, msg := range mailer.sent {
		if msg.To != "ana@example.com" {
			continue
		}
		assert.Contains(t, msg.TextBody, "https://forms.example.com/arquetipos/auto?")
		assert.Contains(t, msg.TextBody, url.Values{"email": {"ana@example.com"}}.Encode())
	}
}

func TestDispatchLeaderLinks(t *testing.T) {
	leaders := &fakeLeaderStore{tokens: []models.LeaderAccessToken{
		{Token: "l1", LeaderName: "Carlos", LeaderEmail: "carlos@example.com", SendEmail: "rh@example.com", Active: true},
		{Token: "l2", LeaderName: "Dora", LeaderEmail: "dora@example.com", Active: true},
		{Token: "l3", LeaderName: "Inativo", LeaderEmail: "inativo@example.com", Active: false},
	}}
	mailer := &fakeMailer{}
	svc := newTestDispatchService(newFakeRegistrationStore(), leaders, mailer)

	result, err := svc.DispatchLeaderLinks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Sent)
	assert.Equal(t, 1, result.Skipped)

	byTo := make(map[string]Message)
	for _, msg := range mailer.sent {
		byTo[msg.To] = msg
	}
	require.Contains(t, byTo, "rh@example.com")
	require.Contains(t, byTo, "dora@example.com")
	assert.Contains(t, byTo["rh@example.com"].TextBody, "https://links.example.com/validar-token-leadertrack?token=l1")
	assert.NotContains(t, byTo["rh@example.com"].TextBody, "empresa=")
}

func TestDispatchLoadFailureSendsNothing(t *testing.T) {
	store := newFakeRegistrationStore(models.RegistrationToken{Token: "a", Email: "a@example.com"})
	store.listErr = errStoreDown
	mailer := &fakeMailer{}
	svc := newTestDispatchService(store, &fakeLeaderStore{listErr: errStoreDown}, mailer)

	result, err := svc.DispatchRegistrationLinks(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Sent)

	result, err = svc.DispatchLeaderLinks(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Sent)
	assert.Empty(t, mailer.sent)
}

func TestRegistrationMessageEscapesHTML(t *testing.T) {
	msg := registrationMessage(&models.RegistrationToken{Name: "<b>Ana</b>", Email: "ana@example.com", Type: "equipe"}, "https://x.example.com/?a=1&b=2")

	assert.Equal(t, "ana@example.com", msg.To)
	assert.NotContains(t, msg.HTMLBody, "<b>Ana</b>")
	assert.Contains(t, msg.HTMLBody, "&lt;b&gt;Ana&lt;/b&gt;")
	assert.Contains(t, msg.HTMLBody, "a=1&amp;b=2")
	assert.Contains(t, msg.TextBody, "https://x.example.com/?a=1&b=2")
}

func TestDispatchWithDisabledMailerSendsNothing(t *testing.T) {
	expiry := time.Now().Add(time.Hour)
	store := newFakeRegistrationStore(
		models.RegistrationToken{Token: "a", Name: "Ana", Email: "ana@example.com", Product: "arquetipos", Type: "autoavaliacao", ExpiresAt: expiry},
		models.RegistrationToken{Token: "b", Name: "Bruno", Email: "bruno@example.com", Product: "microambiente", Type: "microambiente_equipe", ExpiresAt: expiry},
	)
	leaders := &fakeLeaderStore{tokens: []models.LeaderAccessToken{
		{Token: "l1", LeaderName: "Carlos", LeaderEmail: "carlos@example.com", Active: true},
	}}

	mailer, err := NewEmailService(context.Background(), "us-east-1", "", "", nil)
	require.NoError(t, err)
	require.False(t, mailer.IsEnabled())

	svc := newTestDispatchService(store, leaders, mailer)

	result, err := svc.DispatchRegistrationLinks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Sent)
	assert.Equal(t, 2, result.Skipped)
	assert.Equal(t, 0, result.Failed())
	assert.True(t, result.Disabled)

	result, err = svc.DispatchLeaderLinks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Sent)
	assert.Equal(t, 1, result.Skipped)
	assert.True(t, result.Disabled)
}

func TestDisabledEmailServiceReturnsSentinel(t *testing.T) {
	mailer, err := NewEmailService(context.Background(), "us-east-1", "", "", nil)
	require.NoError(t, err)

	err = mailer.Send(context.Background(), Message{To: "ana@example.com", Subject: "Convite"})
	assert.ErrorIs(t, err, ErrEmailDisabled)
}
