package service

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assessmentlinks/internal/models"
)

// Legacy tokens.json: naive timestamps, no produto, no criado_em.
const legacyTokensJSON = `[
  {
    "nome": "Ana Souza",
    "email": "ana@example.com",
    "empresa": "Acme",
    "codrodada": "R1",
    "nomeLider": "Carlos",
    "emailLider": "carlos@example.com",
    "tipo": "arquetipos_autoavaliacao",
    "token": "a1b2c3d4e5",
    "expira_em": "2026-05-03T10:00:00.123456",
    "usado": false
  },
  {
    "nome": "Sem Token",
    "email": "x@example.com",
    "tipo": "microambiente_equipe",
    "expira_em": "2026-05-03T10:00:00"
  },
  {
    "nome": "Bruno",
    "email": "bruno@example.com",
    "tipo": "microambiente_equipe",
    "produto": "microambiente",
    "token": "f6e5d4c3b2",
    "expira_em": "2026-05-03T10:00:00Z",
    "usado": true
  }
]`

func TestImportLegacyRegistrations(t *testing.T) {
	ctx := context.Background()
	store := newFakeRegistrationStore(models.RegistrationToken{Token: "stale"})
	svc := NewBackupService(store, &fakeLeaderStore{}, nil)

	result, err := svc.ImportRegistrations(ctx, strings.NewReader(legacyTokensJSON))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Created)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, 2, result.Skipped[0].Line)

	ana, _ := store.GetByToken(ctx, "a1b2c3d4e5")
	require.NotNil(t, ana)
	assert.Equal(t, "arquetipos", ana.Product)
	want := time.Date(2026, 5, 3, 10, 0, 0, 123456000, time.Local)
	assert.True(t, ana.ExpiresAt.Equal(want), "expira_em = %v, want %v", ana.ExpiresAt, want)
	assert.False(t, ana.CreatedAt.IsZero())

	bruno, _ := store.GetByToken(ctx, "f6e5d4c3b2")
	require.NotNil(t, bruno)
	assert.True(t, bruno.Used)

	stale, _ := store.GetByToken(ctx, "stale")
	assert.Nil(t, stale, "import replaces the registration store")
}

func TestImportRejectsInvalidJSON(t *testing.T) {
	svc := NewBackupService(newFakeRegistrationStore(), &fakeLeaderStore{}, nil)

	_, err := svc.ImportRegistrations(context.Background(), strings.NewReader(`{"not": "an array"}`))
	assert.ErrorIs(t, err, ErrMalformedInput)

	_, err = svc.ImportRegistrations(context.Background(), strings.NewReader(`[{"token": "x", "expira_em": "amanhã"}]`))
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	expiry := time.Date(2026, 5, 3, 10, 0, 0, 0, time.UTC)
	source := newFakeRegistrationStore(models.RegistrationToken{
		Token: "t1", Name: "Ana", Email: "ana@example.com", Product: "arquetipos", Type: "equipe", ExpiresAt: expiry, CreatedAt: expiry.Add(-48 * time.Hour),
	})
	sourceLeaders := &fakeLeaderStore{tokens: []models.LeaderAccessToken{
		{Token: "l1", LeaderName: "Carlos", LeaderEmail: "carlos@example.com", SendEmail: "carlos@example.com", Active: true, CreatedAt: expiry},
	}}
	exporter := NewBackupService(source, sourceLeaders, nil)

	var regBuf, leaderBuf bytes.Buffer
	n, err := exporter.ExportRegistrations(ctx, &regBuf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = exporter.ExportLeaders(ctx, &leaderBuf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var raw []map[string]any
	require.NoError(t, json.Unmarshal(regBuf.Bytes(), &raw))
	assert.Equal(t, "Ana", raw[0]["nome"])
	assert.Equal(t, false, raw[0]["usado"])

	target := newFakeRegistrationStore()
	targetLeaders := &fakeLeaderStore{}
	importer := NewBackupService(target, targetLeaders, nil)

	_, err = importer.ImportRegistrations(ctx, &regBuf)
	require.NoError(t, err)
	got, _ := target.GetByToken(ctx, "t1")
	require.NotNil(t, got)
	assert.True(t, got.ExpiresAt.Equal(expiry))

	result, err := importer.ImportLeaders(ctx, &leaderBuf)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	assert.Len(t, targetLeaders.tokens, 1)
}
