package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"profitops-go/internal/model"
)

// failingKVStore simulates an unavailable storage backend.
type failingKVStore struct{}

func (failingKVStore) Read(context.Context, string) (string, bool) { return "", false }
func (failingKVStore) Write(context.Context, string, string) bool  { return false }

func newTestRepo(t *testing.T) (ConversationRepository, KVStore) {
	t.Helper()
	kv := NewMemoryKVStore()
	clock := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	repo := NewConversationRepository(kv, ConversationStoreOptions{
		Now: func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		},
	})
	return repo, kv
}

func msg(id, role, content string) model.SavedMessage {
	return model.SavedMessage{ID: id, Role: role, Content: content, Timestamp: "09:00"}
}

func TestList_EmptyWhenStorageAbsent(t *testing.T) {
	repo, _ := newTestRepo(t)
	convs := repo.List(context.Background())
	require.NotNil(t, convs)
	assert.Empty(t, convs)
}

func TestList_MalformedDataIsEmpty(t *testing.T) {
	ctx := context.Background()
	repo, kv := newTestRepo(t)
	require.True(t, kv.Write(ctx, "profitops_conversations", "{not json"))

	assert.Empty(t, repo.List(ctx))

	require.True(t, kv.Write(ctx, "profitops_conversations", "null"))
	assert.Empty(t, repo.List(ctx))
}

func TestSave_PrependsAndDerivesFields(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	first := repo.Save(ctx, "first", []model.SavedMessage{msg("1", model.RoleUser, "hola")})
	second := repo.Save(ctx, "second", nil)

	assert.True(t, strings.HasPrefix(first.ID, "conv_"))
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, "2026-10-19T09:00:01.000Z", first.Fecha)
	assert.Equal(t, "hola", first.Preview)
	assert.Equal(t, previewFallback, second.Preview)

	convs := repo.List(ctx)
	require.Len(t, convs, 2)
	assert.Equal(t, "second", convs[0].Nombre)
	assert.Equal(t, "first", convs[1].Nombre)
}

func TestSave_PreviewUsesFirstUserMessage(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	long := strings.Repeat("A", 150)
	conv := repo.Save(ctx, "preview", []model.SavedMessage{
		msg("1", model.RoleAssistant, "hi"),
		msg("2", model.RoleUser, long),
	})

	assert.Equal(t, long[:100], conv.Preview)
}

func TestSave_PreviewCountsCharactersNotBytes(t *testing.T) {
	repo, _ := newTestRepo(t)
	conv := repo.Save(context.Background(), "acentos", []model.SavedMessage{
		msg("1", model.RoleUser, strings.Repeat("ñ", 120)),
	})
	assert.Equal(t, strings.Repeat("ñ", 100), conv.Preview)
}

func TestSave_PreviewSkipsBlankUserMessages(t *testing.T) {
	repo, _ := newTestRepo(t)
	conv := repo.Save(context.Background(), "vacio", []model.SavedMessage{
		msg("1", model.RoleUser, ""),
		msg("2", model.RoleUser, "  \n"),
		msg("3", model.RoleUser, "Revisar TechCorp"),
	})
	assert.Equal(t, "Revisar TechCorp", conv.Preview)

	onlyBlank := repo.Save(context.Background(), "solo vacio", []model.SavedMessage{msg("1", model.RoleUser, "")})
	assert.Equal(t, previewFallback, onlyBlank.Preview)
}

func TestSave_CapDropsOldest(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	var firstID string
	for i := 0; i < DefaultMaxConversations; i++ {
		c := repo.Save(ctx, fmt.Sprintf("conv-%d", i), nil)
		if i == 0 {
			firstID = c.ID
		}
	}
	require.Len(t, repo.List(ctx), DefaultMaxConversations)

	newest := repo.Save(ctx, "conv-50", nil)

	convs := repo.List(ctx)
	require.Len(t, convs, DefaultMaxConversations)
	assert.Equal(t, newest.ID, convs[0].ID)
	assert.Equal(t, "conv-1", convs[len(convs)-1].Nombre)
	_, found := repo.Get(ctx, firstID)
	assert.False(t, found)
}

func TestDelete_Idempotent(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)
	repo.Save(ctx, "keep", []model.SavedMessage{msg("1", model.RoleUser, "x")})

	before := repo.List(ctx)
	repo.Delete(ctx, "conv_does_not_exist")
	assert.Equal(t, before, repo.List(ctx))
}

func TestUpdate_NeverCreates(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)
	repo.Save(ctx, "one", nil)

	ok := repo.Update(ctx, "conv_missing", []model.SavedMessage{msg("1", model.RoleUser, "x")})

	assert.False(t, ok)
	assert.Len(t, repo.List(ctx), 1)
}

func TestUpdate_ReplacesMessagesAndRefreshesFechaOnly(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)
	saved := repo.Save(ctx, "q3", []model.SavedMessage{msg("1", model.RoleUser, "original")})

	newMsgs := []model.SavedMessage{
		msg("1", model.RoleUser, "otra pregunta"),
		msg("2", model.RoleAssistant, "respuesta"),
	}
	require.True(t, repo.Update(ctx, saved.ID, newMsgs))

	got, ok := repo.Get(ctx, saved.ID)
	require.True(t, ok)
	assert.Equal(t, saved.ID, got.ID)
	assert.Equal(t, newMsgs, got.Mensajes)
	assert.Equal(t, "original", got.Preview)
	assert.NotEqual(t, saved.Fecha, got.Fecha)
}

func TestStore_UnavailableStorageDegrades(t *testing.T) {
	ctx := context.Background()
	repo := NewConversationRepository(failingKVStore{}, ConversationStoreOptions{})

	conv := repo.Save(ctx, "lost", []model.SavedMessage{msg("1", model.RoleUser, "x")})
	assert.Equal(t, "lost", conv.Nombre)
	assert.Empty(t, repo.List(ctx))
	assert.False(t, repo.Update(ctx, conv.ID, nil))
	repo.Delete(ctx, conv.ID)
	assert.Nil(t, repo.LoadTranscript(ctx, "s1"))
}

func TestEndToEnd_SaveLoadDelete(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	messages := []model.SavedMessage{
		msg("1", model.RoleAssistant, "Hola Alan, soy tu Coach de Ventas B2B."),
		msg("2", model.RoleUser, "¿Qué deals cierro este trimestre?"),
		msg("3", model.RoleAssistant, "TechCorp e Innovate."),
	}
	saved := repo.Save(ctx, "Q3 follow-up", messages)

	convs := repo.List(ctx)
	require.Len(t, convs, 1)
	assert.Equal(t, "Q3 follow-up", convs[0].Nombre)
	assert.Equal(t, "¿Qué deals cierro este trimestre?", convs[0].Preview)
	assert.Len(t, convs[0].Mensajes, 3)

	loaded, ok := repo.Get(ctx, saved.ID)
	require.True(t, ok)
	assert.Equal(t, messages, loaded.Mensajes)

	repo.Delete(ctx, saved.ID)
	assert.Empty(t, repo.List(ctx))
}

func TestTranscript_KeepsMostRecentEntries(t *testing.T) {
	ctx := context.Background()
	repo, kv := newTestRepo(t)

	var msgs []model.Message
	for i := 0; i < 60; i++ {
		msgs = append(msgs, model.Message{ID: fmt.Sprint(i), Role: model.RoleUser, Content: fmt.Sprint(i)})
	}
	repo.SaveTranscript(ctx, "s1", msgs)

	got := repo.LoadTranscript(ctx, "s1")
	require.Len(t, got, DefaultMaxTranscript)
	assert.Equal(t, "10", got[0].ID)
	assert.Equal(t, "59", got[len(got)-1].ID)

	_, ok := kv.Read(ctx, "profitops_chat_history:s1")
	assert.True(t, ok)
	assert.Nil(t, repo.LoadTranscript(ctx, "other"))
	assert.Empty(t, repo.List(ctx))
}
