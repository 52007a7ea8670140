package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filedexbot/filedex/internal/authz"
	"github.com/filedexbot/filedex/internal/files"
	"github.com/filedexbot/filedex/internal/pagination"
)

// fakeAPI captures everything the service sends to Telegram.
type fakeAPI struct {
	sent      []tgbotapi.Chattable
	requested []tgbotapi.Chattable
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.requested = append(f.requested, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) sentMessages() []tgbotapi.MessageConfig {
	var out []tgbotapi.MessageConfig
	for _, c := range f.sent {
		if msg, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, msg)
		}
	}
	return out
}

// fakeStore implements FileStore over an in-memory record list, newest
// first, with the same offset pagination the real store uses.
type fakeStore struct {
	records    []files.FileRecord
	ingested   []files.FileRecord
	ingestErr  error
	getErr     error
	searchErr  error
	statsValue files.Stats
}

func (s *fakeStore) Ingest(ctx context.Context, candidate files.FileRecord) (files.IngestOutcome, error) {
	if s.ingestErr != nil {
		return 0, s.ingestErr
	}
	for _, existing := range s.ingested {
		if existing.FileRef == candidate.FileRef {
			return files.OutcomeAlreadyExists, nil
		}
	}
	s.ingested = append(s.ingested, candidate)
	return files.OutcomeInserted, nil
}

func (s *fakeStore) Search(ctx context.Context, query string, page int) (files.SearchResult, error) {
	if s.searchErr != nil {
		return files.SearchResult{}, s.searchErr
	}
	var matches []files.FileRecord
	needle := strings.ToLower(query)
	for _, record := range s.records {
		if strings.Contains(strings.ToLower(record.DisplayName), needle) ||
			strings.Contains(strings.ToLower(record.Caption), needle) {
			matches = append(matches, record)
		}
	}
	total := len(matches)
	if total == 0 {
		if page > 1 {
			return files.SearchResult{}, files.ErrPageOutOfRange
		}
		return files.SearchResult{Page: 1}, nil
	}
	totalPages := (total + files.PageSize - 1) / files.PageSize
	if page < 1 || page > totalPages {
		return files.SearchResult{}, files.ErrPageOutOfRange
	}
	start := (page - 1) * files.PageSize
	end := start + files.PageSize
	if end > total {
		end = total
	}
	return files.SearchResult{
		TotalCount: total,
		TotalPages: totalPages,
		Page:       page,
		Items:      matches[start:end],
	}, nil
}

func (s *fakeStore) GetByID(ctx context.Context, id string) (files.FileRecord, error) {
	if s.getErr != nil {
		return files.FileRecord{}, s.getErr
	}
	for _, record := range s.records {
		if record.ID == id {
			return record, nil
		}
	}
	return files.FileRecord{}, files.ErrNotFound
}

func (s *fakeStore) Stats(ctx context.Context) (files.Stats, error) {
	return s.statsValue, nil
}

func newTestService(store FileStore, gate *authz.Gate) (*Service, *fakeAPI) {
	if gate == nil {
		gate = authz.NewGate(nil)
	}
	api := &fakeAPI{}
	return &Service{
		logger:      slog.Default(),
		api:         api,
		store:       store,
		gate:        gate,
		attribution: "Powered By: [filedex]",
	}, api
}

func commandMessage(chatType, text string) *tgbotapi.Message {
	length := len(text)
	if idx := strings.Index(text, " "); idx > 0 {
		length = idx
	}
	return &tgbotapi.Message{
		MessageID: 1,
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: length}},
		Chat:      &tgbotapi.Chat{ID: 100, Type: chatType},
	}
}

func audioRecords(n int) []files.FileRecord {
	records := make([]files.FileRecord, 0, n)
	for i := n; i >= 1; i-- {
		records = append(records, files.FileRecord{
			ID:          fmt.Sprintf("id-%d", i),
			FileRef:     fmt.Sprintf("ref-%d", i),
			DisplayName: fmt.Sprintf("lofi beats %d.mp3", i),
			Kind:        files.KindAudio,
		})
	}
	return records
}

func TestSearchCommand_RequiresQuery(t *testing.T) {
	t.Parallel()

	service, api := newTestService(&fakeStore{}, nil)
	service.handlePrivateMessage(context.Background(), commandMessage("private", "/search"))

	msgs := api.sentMessages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "Please provide a search query.")
}

func TestSearchCommand_NoMatches(t *testing.T) {
	t.Parallel()

	service, api := newTestService(&fakeStore{}, nil)
	service.handlePrivateMessage(context.Background(), commandMessage("private", "/search nothing"))

	msgs := api.sentMessages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, `No files found matching "nothing"`)
}

func TestSearchCommand_RendersResultsAndNav(t *testing.T) {
	t.Parallel()

	store := &fakeStore{records: audioRecords(15)}
	service, api := newTestService(store, nil)
	service.handlePrivateMessage(context.Background(), commandMessage("private", "/search lofi"))

	msgs := api.sentMessages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "Found 15 file(s)")
	assert.Contains(t, msgs[0].Text, "Page 1 of 2")

	markup, ok := msgs[0].ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, markup.InlineKeyboard, 11, "10 result rows plus navigation")

	nav := markup.InlineKeyboard[10]
	require.Len(t, nav, 2, "page 1 has indicator and next only")
	assert.Equal(t, "1/2", nav[0].Text)
	assert.Equal(t, "Next >", nav[1].Text)
}

// Walking every page must cover the full match set exactly once.
func TestPagination_CoversAllMatchesOnce(t *testing.T) {
	t.Parallel()

	store := &fakeStore{records: audioRecords(15)}
	service, _ := newTestService(store, nil)

	seen := map[string]int{}
	for page := 1; page <= 2; page++ {
		result, err := store.Search(context.Background(), "lofi", page)
		require.NoError(t, err)
		markup := service.buildResultKeyboard("lofi", result)
		for _, row := range markup.InlineKeyboard {
			decoded, err := pagination.Decode(*row[0].CallbackData)
			require.NoError(t, err)
			if file, ok := decoded.(pagination.FileCallback); ok {
				seen[file.ID]++
			}
		}
	}

	assert.Len(t, seen, 15, "every match appears")
	for id, count := range seen {
		assert.Equal(t, 1, count, "record %s must appear on exactly one page", id)
	}
}

func TestFlipPage_EditsInPlace(t *testing.T) {
	t.Parallel()

	store := &fakeStore{records: audioRecords(15)}
	service, api := newTestService(store, nil)
	cq := &tgbotapi.CallbackQuery{
		ID:      "cb-1",
		Data:    "unused",
		Message: &tgbotapi.Message{MessageID: 7, Chat: &tgbotapi.Chat{ID: 100, Type: "private"}},
	}

	service.flipPage(context.Background(), cq, "lofi", 2)

	require.Len(t, api.sent, 1)
	edit, ok := api.sent[0].(tgbotapi.EditMessageTextConfig)
	require.True(t, ok)
	assert.Equal(t, 7, edit.MessageID)
	assert.Contains(t, edit.Text, "Page 2 of 2")
	require.NotNil(t, edit.ReplyMarkup)
	assert.Len(t, edit.ReplyMarkup.InlineKeyboard, 6, "5 result rows plus navigation")
}

func TestFlipPage_OutOfRangeLeavesMessageUntouched(t *testing.T) {
	t.Parallel()

	store := &fakeStore{records: audioRecords(15)}
	service, api := newTestService(store, nil)
	cq := &tgbotapi.CallbackQuery{
		ID:      "cb-1",
		Message: &tgbotapi.Message{MessageID: 7, Chat: &tgbotapi.Chat{ID: 100, Type: "private"}},
	}

	service.flipPage(context.Background(), cq, "lofi", 99)

	assert.Empty(t, api.sent, "message must not be edited")
	require.Len(t, api.requested, 1)
	answer, ok := api.requested[0].(tgbotapi.CallbackConfig)
	require.True(t, ok)
	assert.True(t, answer.ShowAlert)
	assert.Equal(t, "Invalid page number", answer.Text)
}

func TestDeliverFile_AppendsAttribution(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind    files.Kind
		caption string
		want    string
	}{
		{files.KindDocument, "Q1 numbers", "Q1 numbers\n\nPowered By: [filedex]"},
		{files.KindVideo, "trailer", "trailer\n\nPowered By: [filedex]"},
		{files.KindAudio, "", "Powered By: [filedex]"},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			t.Parallel()
			store := &fakeStore{records: []files.FileRecord{{
				ID: "id-1", FileRef: "ref-1", Kind: tt.kind, Caption: tt.caption,
			}}}
			service, api := newTestService(store, nil)
			cq := &tgbotapi.CallbackQuery{
				ID:      "cb-1",
				Message: &tgbotapi.Message{MessageID: 7, Chat: &tgbotapi.Chat{ID: 100, Type: "private"}},
			}

			service.deliverFile(context.Background(), cq, "id-1")

			require.Len(t, api.sent, 1)
			switch tt.kind {
			case files.KindVideo:
				video, ok := api.sent[0].(tgbotapi.VideoConfig)
				require.True(t, ok)
				assert.Equal(t, tt.want, video.Caption)
			case files.KindAudio:
				audio, ok := api.sent[0].(tgbotapi.AudioConfig)
				require.True(t, ok)
				assert.Equal(t, tt.want, audio.Caption)
			default:
				document, ok := api.sent[0].(tgbotapi.DocumentConfig)
				require.True(t, ok)
				assert.Equal(t, tt.want, document.Caption)
			}
		})
	}
}

func TestDeliverFile_VanishedRecord(t *testing.T) {
	t.Parallel()

	service, api := newTestService(&fakeStore{}, nil)
	cq := &tgbotapi.CallbackQuery{
		ID:      "cb-1",
		Message: &tgbotapi.Message{MessageID: 7, Chat: &tgbotapi.Chat{ID: 100, Type: "private"}},
	}

	service.deliverFile(context.Background(), cq, "gone")

	msgs := api.sentMessages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "File not found or may have been deleted.")
}

func TestHandleCallback_MalformedToken(t *testing.T) {
	t.Parallel()

	service, api := newTestService(&fakeStore{}, nil)
	cq := &tgbotapi.CallbackQuery{ID: "cb-1", Data: "garbage"}

	service.handleCallback(context.Background(), cq)

	assert.Empty(t, api.sent)
	require.Len(t, api.requested, 1)
	answer, ok := api.requested[0].(tgbotapi.CallbackConfig)
	require.True(t, ok)
	assert.True(t, answer.ShowAlert)
}

func TestStatsCommand(t *testing.T) {
	t.Parallel()

	store := &fakeStore{statsValue: files.Stats{Total: 6, Documents: 3, Videos: 2, Audios: 1}}
	service, api := newTestService(store, authz.NewGate([]string{"-1001", "-1002"}))
	service.handlePrivateMessage(context.Background(), commandMessage("private", "/stats"))

	msgs := api.sentMessages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "Total Files: 6")
	assert.Contains(t, msgs[0].Text, "Documents: 3")
	assert.Contains(t, msgs[0].Text, "Last file added: No files yet")
	assert.Contains(t, msgs[0].Text, "Authorized Chats: 2")
}

func TestChatsCommand(t *testing.T) {
	t.Parallel()

	service, api := newTestService(&fakeStore{}, authz.NewGate([]string{"-1001"}))
	service.handlePrivateMessage(context.Background(), commandMessage("private", "/chats"))

	msgs := api.sentMessages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "-1001")

	service2, api2 := newTestService(&fakeStore{}, nil)
	service2.handlePrivateMessage(context.Background(), commandMessage("private", "/chats"))

	msgs2 := api2.sentMessages()
	require.Len(t, msgs2, 1)
	assert.Contains(t, msgs2[0].Text, "No authorized channels/groups configured.")
}
