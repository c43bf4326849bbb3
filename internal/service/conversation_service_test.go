package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"profitops-go/internal/model"
)

type fakeUploader struct {
	objectName  string
	data        []byte
	contentType string
	err         error
}

func (f *fakeUploader) Upload(_ context.Context, objectName string, data []byte, contentType string) (string, error) {
	f.objectName, f.data, f.contentType = objectName, data, contentType
	if f.err != nil {
		return "", f.err
	}
	return "https://minio.local/profitops-exports/" + objectName + "?X-Amz-Signature=abc", nil
}

type conversationFixture struct {
	chat     ChatService
	convs    ConversationService
	activity *recordingActivity
	uploader *fakeUploader
}

func newConversationFixture(withUploader bool) *conversationFixture {
	repo := newMemoryRepo()
	f := &conversationFixture{activity: &recordingActivity{}}
	f.chat = newTestChat(&fakeSender{reply: "Revisa el pipeline de Q3"}, nil, repo, nil)
	var up Uploader
	if withUploader {
		f.uploader = &fakeUploader{}
		up = f.uploader
	}
	f.convs = NewConversationService(repo, f.chat, up, f.activity)
	return f
}

func TestConversationService_SaveRequiresName(t *testing.T) {
	f := newConversationFixture(false)
	ctx := context.Background()

	_, err := f.convs.SaveSession(ctx, "s1", "   ")
	assert.ErrorIs(t, err, ErrEmptyName)
	assert.Empty(t, f.convs.List(ctx))
	assert.Empty(t, f.activity.kinds())
}

func TestConversationService_SaveLoadUpdateDelete(t *testing.T) {
	f := newConversationFixture(false)
	ctx := context.Background()

	_, err := f.chat.Send(ctx, "s1", "Q3 follow-up")
	require.NoError(t, err)

	saved, err := f.convs.SaveSession(ctx, "s1", "  Seguimiento Q3  ")
	require.NoError(t, err)
	assert.Equal(t, "Seguimiento Q3", saved.Nombre)
	assert.Equal(t, "Q3 follow-up", saved.Preview)
	assert.Len(t, saved.Mensajes, 3)

	list := f.convs.List(ctx)
	require.Len(t, list, 1)
	assert.Equal(t, saved.ID, list[0].ID)

	// 另一个 session 加载并继续对话
	loaded, err := f.convs.LoadIntoSession(ctx, saved.ID, "s2")
	require.NoError(t, err)
	assert.Len(t, loaded, 3)
	_, err = f.chat.Send(ctx, "s2", "¿Y ahora?")
	require.NoError(t, err)

	updated, err := f.convs.UpdateFromSession(ctx, saved.ID, "s2")
	require.NoError(t, err)
	assert.Len(t, updated.Mensajes, 5)
	assert.Equal(t, saved.Preview, updated.Preview)

	f.convs.Delete(ctx, saved.ID)
	f.convs.Delete(ctx, saved.ID)
	assert.Empty(t, f.convs.List(ctx))
	_, err = f.convs.Get(ctx, saved.ID)
	assert.ErrorIs(t, err, ErrConversationNotFound)

	assert.Equal(t, []string{
		model.ActivityConversationSaved,
		model.ActivityConversationUpdated,
		model.ActivityConversationDeleted,
		model.ActivityConversationDeleted,
	}, f.activity.kinds())
}

func TestConversationService_UnknownIDs(t *testing.T) {
	f := newConversationFixture(false)
	ctx := context.Background()

	_, err := f.convs.UpdateFromSession(ctx, "conv_missing", "s1")
	assert.ErrorIs(t, err, ErrConversationNotFound)
	assert.Empty(t, f.convs.List(ctx))

	_, err = f.convs.LoadIntoSession(ctx, "conv_missing", "s1")
	assert.ErrorIs(t, err, ErrConversationNotFound)

	_, err = f.convs.ExportMarkdown(ctx, "conv_missing")
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestConversationService_ExportInline(t *testing.T) {
	f := newConversationFixture(false)
	ctx := context.Background()

	_, err := f.chat.Send(ctx, "s1", "Q3 follow-up")
	require.NoError(t, err)
	saved, err := f.convs.SaveSession(ctx, "s1", "Seguimiento")
	require.NoError(t, err)

	exp, err := f.convs.ExportMarkdown(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.ID+".md", exp.FileName)
	assert.Empty(t, exp.URL)
	assert.Contains(t, exp.Markdown, "# Seguimiento\n")
	assert.Contains(t, exp.Markdown, "**Tú** (09:30):\n\nQ3 follow-up\n")
	assert.Contains(t, exp.Markdown, "**Coach** (09:30):\n\nRevisa el pipeline de Q3\n")
}

func TestConversationService_ExportUpload(t *testing.T) {
	f := newConversationFixture(true)
	ctx := context.Background()

	saved, err := f.convs.SaveSession(ctx, "s1", "Vacía")
	require.NoError(t, err)

	exp, err := f.convs.ExportMarkdown(ctx, saved.ID)
	require.NoError(t, err)
	assert.Empty(t, exp.Markdown)
	assert.Contains(t, exp.URL, "conversations/"+saved.ID+".md")
	assert.Equal(t, "conversations/"+saved.ID+".md", f.uploader.objectName)
	assert.Equal(t, "text/markdown; charset=utf-8", f.uploader.contentType)
	assert.Contains(t, string(f.uploader.data), "# Vacía")

	f.uploader.err = errors.New("bucket unavailable")
	_, err = f.convs.ExportMarkdown(ctx, saved.ID)
	assert.ErrorContains(t, err, "bucket unavailable")
}

func TestRenderMarkdown(t *testing.T) {
	md := RenderMarkdown(model.SavedConversation{
		Nombre: "Plan",
		Fecha:  "2026-10-19T09:30:00.000Z",
		Mensajes: []model.SavedMessage{
			{Role: model.RoleUser, Content: "hola"},
			{Role: model.RoleAssistant, Content: "¿En qué te ayudo?", Timestamp: "09:31"},
		},
	})
	want := "# Plan\n\n_Fecha: 2026-10-19T09:30:00.000Z_\n" +
		"\n**Tú**:\n\nhola\n" +
		"\n**Coach** (09:31):\n\n¿En qué te ayudo?\n"
	assert.Equal(t, want, md)
}
