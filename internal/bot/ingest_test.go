package bot

import (
	"context"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filedexbot/filedex/internal/authz"
	"github.com/filedexbot/filedex/internal/files"
)

func documentMessage(chatID int64, chatType string) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 42,
		Caption:   "Q1 numbers",
		Document: &tgbotapi.Document{
			FileID:   "doc-ref",
			FileName: "Report_Final.pdf",
			MimeType: "application/pdf",
			FileSize: 2048,
		},
		Chat: &tgbotapi.Chat{ID: chatID, Type: chatType, Title: "Releases"},
	}
}

func TestSourceMessage_UnauthorizedDropped(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	service, api := newTestService(store, authz.NewGate([]string{"-1001"}))

	service.handleSourceMessage(context.Background(), documentMessage(-2000, "channel"))

	assert.Empty(t, store.ingested, "no record for unauthorized origin")
	assert.Empty(t, api.sent, "unauthorized origin gets no reply")
}

func TestSourceMessage_EmptyAllowListRejects(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	service, _ := newTestService(store, nil)

	service.handleSourceMessage(context.Background(), documentMessage(-1001, "group"))

	assert.Empty(t, store.ingested)
}

func TestSourceMessage_IngestsAuthorizedDocument(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	service, _ := newTestService(store, authz.NewGate([]string{"-1001"}))

	service.handleSourceMessage(context.Background(), documentMessage(-1001, "channel"))

	require.Len(t, store.ingested, 1)
	got := store.ingested[0]
	assert.Equal(t, "doc-ref", got.FileRef)
	assert.Equal(t, "Report_Final.pdf", got.DisplayName)
	assert.Equal(t, "Q1 numbers", got.Caption)
	assert.Equal(t, files.KindDocument, got.Kind)
	assert.Equal(t, "-1001", got.SourceChatID)
	assert.Equal(t, int64(42), got.SourceMessageID)
	assert.Equal(t, "Releases", got.SourceTitle)
	assert.Equal(t, "channel", got.SourceKind)
}

func TestSourceMessage_DuplicateIsNotAnError(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	service, api := newTestService(store, authz.NewGate([]string{"-1001"}))

	service.handleSourceMessage(context.Background(), documentMessage(-1001, "channel"))
	service.handleSourceMessage(context.Background(), documentMessage(-1001, "channel"))

	assert.Len(t, store.ingested, 1, "second ingest of the same file ref is a no-op")
	assert.Empty(t, api.sent)
}

func TestSourceMessage_CommandGetsLockNotice(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	service, api := newTestService(store, authz.NewGate([]string{"100"}))

	service.handleSourceMessage(context.Background(), commandMessage("group", "/search lofi"))

	msgs := api.sentMessages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "only available in private chat")
}

func TestExtractAttachment(t *testing.T) {
	t.Parallel()

	video := &tgbotapi.Message{
		Caption: "trailer",
		Video:   &tgbotapi.Video{FileID: "vid-ref", MimeType: "video/mp4", FileSize: 9000},
		Chat:    &tgbotapi.Chat{ID: -1, Type: "group"},
	}
	att, ok := extractAttachment(video)
	require.True(t, ok)
	assert.Equal(t, files.KindVideo, att.Kind)
	assert.Equal(t, "vid-ref", att.Ref)
	assert.Equal(t, "trailer", att.Caption)

	audio := &tgbotapi.Message{
		Audio: &tgbotapi.Audio{FileID: "aud-ref", Title: "Lo-fi Mix"},
		Chat:  &tgbotapi.Chat{ID: -1, Type: "group"},
	}
	att, ok = extractAttachment(audio)
	require.True(t, ok)
	assert.Equal(t, files.KindAudio, att.Kind)
	assert.Equal(t, "Lo-fi Mix", att.Title)

	text := &tgbotapi.Message{Text: "hello", Chat: &tgbotapi.Chat{ID: -1, Type: "group"}}
	_, ok = extractAttachment(text)
	assert.False(t, ok, "plain text carries nothing to index")
}
