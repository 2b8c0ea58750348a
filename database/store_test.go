package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbolis/survey-intake/config"
	"github.com/mbolis/survey-intake/model"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(config.Config{DBUrl: filepath.Join(t.TempDir(), "test.sqlite")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCreateAccount(t *testing.T) {
	ctx := context.Background()
	store := NewStore(openTestDB(t))

	acc, err := store.CreateAccount(ctx, "jane", []byte("hash"))
	require.NoError(t, err)
	assert.NotZero(t, acc.ID)
	assert.Len(t, acc.WebhookID, 36)

	got, err := store.AccountByWebhookID(ctx, acc.WebhookID)
	require.NoError(t, err)
	assert.Equal(t, acc.ID, got.ID)
	assert.Equal(t, "jane", got.Username)
	assert.Equal(t, model.ProviderOther, got.WebhookConfig.Provider)
	assert.Empty(t, got.WebhookConfig.FieldMappings)
	assert.Nil(t, got.WebhookLastReceived)
	assert.Nil(t, got.EmailContext)

	_, err = store.CreateAccount(ctx, "jane", []byte("other"))
	assert.ErrorIs(t, err, ErrConflict)
}

func TestAccountNotFound(t *testing.T) {
	store := NewStore(openTestDB(t))

	_, err := store.AccountByWebhookID(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.AccountByID(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveTestEventKeepsMapping(t *testing.T) {
	ctx := context.Background()
	store := NewStore(openTestDB(t))
	acc, err := store.CreateAccount(ctx, "jane", []byte("hash"))
	require.NoError(t, err)

	require.NoError(t, store.UpdateWebhookConfig(ctx, acc.ID, model.WebhookConfig{
		Provider:      model.ProviderTally,
		FieldMappings: model.FieldMapping{"email": "data.fields[0]"},
	}))

	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveTestEvent(ctx, acc.ID, json.RawMessage(`{"foo":"bar"}`), at))

	got, err := store.AccountByID(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ProviderTally, got.WebhookConfig.Provider)
	assert.Equal(t, model.FieldMapping{"email": "data.fields[0]"}, got.WebhookConfig.FieldMappings)
	assert.JSONEq(t, `{"foo":"bar"}`, string(got.WebhookConfig.TestEvent))
	require.NotNil(t, got.WebhookLastReceived)
	assert.True(t, at.Equal(*got.WebhookLastReceived))

	assert.ErrorIs(t, store.SaveTestEvent(ctx, 999, json.RawMessage(`{}`), at), ErrNotFound)
}

func TestSurveyResponses(t *testing.T) {
	ctx := context.Background()
	store := NewStore(openTestDB(t))
	acc, err := store.CreateAccount(ctx, "jane", []byte("hash"))
	require.NoError(t, err)

	first := &model.SurveyResponse{
		AccountID:  acc.ID,
		Email:      "a@b.com",
		SurveyData: map[string]any{"company": "Acme"},
		Time:       time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.InsertSurveyResponse(ctx, first))
	assert.NotZero(t, first.ID)

	second := &model.SurveyResponse{
		AccountID:  acc.ID,
		Email:      "a@b.com",
		SurveyData: map[string]any{"company": "Acme"},
		Time:       time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.InsertSurveyResponse(ctx, second))

	require.NoError(t, store.UpdateGeneratedEmail(ctx, first.ID, "Hello", "Body"))

	list, err := store.ListSurveyResponses(ctx, acc.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
	assert.Equal(t, "Hello", list[1].AISubject)
	assert.Equal(t, "Body", list[1].AIEmail)
	assert.Empty(t, list[0].AISubject)
	assert.Equal(t, map[string]any{"company": "Acme"}, list[0].SurveyData)

	got, err := store.SurveyResponse(ctx, acc.ID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", got.Email)

	_, err = store.SurveyResponse(ctx, acc.ID+1, first.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, store.UpdateGeneratedEmail(ctx, 999, "s", "b"), ErrNotFound)
}

func TestRegenerateWebhookID(t *testing.T) {
	ctx := context.Background()
	store := NewStore(openTestDB(t))
	acc, err := store.CreateAccount(ctx, "jane", []byte("hash"))
	require.NoError(t, err)

	id, err := store.RegenerateWebhookID(ctx, acc.ID)
	require.NoError(t, err)
	assert.NotEqual(t, acc.WebhookID, id)

	_, err = store.AccountByWebhookID(ctx, acc.WebhookID)
	assert.ErrorIs(t, err, ErrNotFound)
	got, err := store.AccountByWebhookID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, acc.ID, got.ID)
}

func TestEmailContext(t *testing.T) {
	ctx := context.Background()
	store := NewStore(openTestDB(t))
	acc, err := store.CreateAccount(ctx, "jane", []byte("hash"))
	require.NoError(t, err)

	ec := model.EmailContext{Tone: "casual", BrandInfo: "Acme", EmailLength: "short"}
	require.NoError(t, store.UpdateEmailContext(ctx, acc.ID, ec))

	got, err := store.AccountByID(ctx, acc.ID)
	require.NoError(t, err)
	require.NotNil(t, got.EmailContext)
	assert.Equal(t, ec, *got.EmailContext)
}

func TestCredentialsAndTokens(t *testing.T) {
	ctx := context.Background()
	store := NewStore(openTestDB(t))
	acc, err := store.CreateAccount(ctx, "jane", []byte("hash"))
	require.NoError(t, err)

	id, hash, err := store.Credentials(ctx, "jane")
	require.NoError(t, err)
	assert.Equal(t, acc.ID, id)
	assert.Equal(t, []byte("hash"), hash)

	_, _, err = store.Credentials(ctx, "john")
	assert.ErrorIs(t, err, ErrNotFound)

	expiration := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	require.NoError(t, store.StoreToken(ctx, "jane", "tok", "ref", expiration))

	got, err := store.ConsumeToken(ctx, "jane", "tok", "ref")
	require.NoError(t, err)
	assert.True(t, expiration.Equal(got))

	_, err = store.ConsumeToken(ctx, "jane", "tok", "ref")
	assert.ErrorIs(t, err, ErrNotFound)
}
