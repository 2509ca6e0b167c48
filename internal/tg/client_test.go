package tg

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/require"

	"cinema-tg-bot/internal/dispatch"
	"cinema-tg-bot/internal/storage"
)

func TestEventFromUpdate(t *testing.T) {
	tests := []struct {
		name string
		upd  tgbotapi.Update
		want dispatch.Event
		ok   bool
	}{
		{
			name: "text",
			upd: tgbotapi.Update{Message: &tgbotapi.Message{
				Chat: &tgbotapi.Chat{ID: 10},
				From: &tgbotapi.User{ID: 20, FirstName: "Анна"},
				Text: "Фильмы",
			}},
			want: dispatch.TextMessage{ChatID: 10, SenderID: 20, SenderName: "Анна", Text: "Фильмы"},
			ok:   true,
		},
		{
			name: "location",
			upd: tgbotapi.Update{Message: &tgbotapi.Message{
				Chat:     &tgbotapi.Chat{ID: 10},
				From:     &tgbotapi.User{ID: 20},
				Location: &tgbotapi.Location{Latitude: 59.93, Longitude: 30.31},
			}},
			want: dispatch.TextMessage{ChatID: 10, SenderID: 20, Location: &storage.Location{Latitude: 59.93, Longitude: 30.31}},
			ok:   true,
		},
		{
			name: "callback",
			upd: tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
				ID:      "cb",
				From:    &tgbotapi.User{ID: 20},
				Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 30}},
				Data:    `{"type":"sf","filmUuid":["f1"]}`,
			}},
			want: dispatch.CallbackEvent{SenderID: 20, CallbackID: "cb", Payload: `{"type":"sf","filmUuid":["f1"]}`, SourceChatID: 30},
			ok:   true,
		},
		{
			name: "inline callback without message",
			upd: tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
				ID:   "cb",
				From: &tgbotapi.User{ID: 20},
				Data: "x",
			}},
			want: dispatch.CallbackEvent{SenderID: 20, CallbackID: "cb", Payload: "x"},
			ok:   true,
		},
		{
			name: "inline query",
			upd:  tgbotapi.Update{InlineQuery: &tgbotapi.InlineQuery{ID: "q", From: &tgbotapi.User{ID: 20}, Query: "лог"}},
			want: dispatch.InlineQueryEvent{QueryID: "q", SenderID: 20, Query: "лог"},
			ok:   true,
		},
		{
			name: "unsupported",
			upd:  tgbotapi.Update{EditedMessage: &tgbotapi.Message{Text: "x"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := EventFromUpdate(tt.upd)
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.want, ev)
		})
	}
}

func TestChattable_TextReply(t *testing.T) {
	c, err := chattable(dispatch.TextReply{ChatID: 1, Body: "<b>1</b>", HTML: true, Keyboard: dispatch.KeyboardCinemas})
	require.NoError(t, err)
	msg, ok := c.(tgbotapi.MessageConfig)
	require.True(t, ok)
	require.Equal(t, int64(1), msg.ChatID)
	require.Equal(t, tgbotapi.ModeHTML, msg.ParseMode)

	kb, ok := msg.ReplyMarkup.(tgbotapi.ReplyKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, kb.Keyboard, 2)
	require.True(t, kb.Keyboard[0][0].RequestLocation)
	require.Equal(t, dispatch.LabelBack, kb.Keyboard[1][0].Text)

	c, err = chattable(dispatch.TextReply{ChatID: 1, Body: "plain", Inline: [][]dispatch.Button{
		{{Text: "site", URL: "https://a"}, {Text: "map", Data: "payload"}},
	}})
	require.NoError(t, err)
	msg = c.(tgbotapi.MessageConfig)
	require.Empty(t, msg.ParseMode)
	markup, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	row := markup.InlineKeyboard[0]
	require.Equal(t, "https://a", *row[0].URL)
	require.Nil(t, row[0].CallbackData)
	require.Equal(t, "payload", *row[1].CallbackData)
}

func TestChattable_OtherReplies(t *testing.T) {
	c, err := chattable(dispatch.PhotoReply{ChatID: 2, ImageRef: "https://img", Caption: "cap",
		Inline: [][]dispatch.Button{{{Text: "a", Data: "d"}}}})
	require.NoError(t, err)
	photo := c.(tgbotapi.PhotoConfig)
	require.Equal(t, tgbotapi.FileURL("https://img"), photo.File)
	require.Equal(t, "cap", photo.Caption)
	require.NotNil(t, photo.ReplyMarkup)

	c, err = chattable(dispatch.LocationReply{ChatID: 2, Latitude: 1.5, Longitude: 2.5})
	require.NoError(t, err)
	require.Equal(t, tgbotapi.NewLocation(2, 1.5, 2.5), c)

	c, err = chattable(dispatch.CallbackAck{CallbackID: "cb", Text: "Добавлено"})
	require.NoError(t, err)
	require.Equal(t, tgbotapi.NewCallback("cb", "Добавлено"), c)

	c, err = chattable(dispatch.InlineResults{QueryID: "q", Results: []dispatch.InlineResult{
		{ID: "f1", ImageRef: "https://img", Caption: "Название: A", Link: dispatch.Button{Text: "KP", URL: "https://kp"}},
		{ID: "f2", Caption: "Название: B\nГод: 2000"},
	}})
	require.NoError(t, err)
	inline := c.(tgbotapi.InlineConfig)
	require.Equal(t, "q", inline.InlineQueryID)
	require.Len(t, inline.Results, 2)

	p := inline.Results[0].(tgbotapi.InlineQueryResultPhoto)
	require.Equal(t, "f1", p.ID)
	require.Equal(t, "https://img", p.URL)
	require.NotNil(t, p.ReplyMarkup)

	a := inline.Results[1].(tgbotapi.InlineQueryResultArticle)
	require.Equal(t, "Название: B", a.Title)
	require.Nil(t, a.ReplyMarkup)
}

func TestChattable_Unsupported(t *testing.T) {
	_, err := chattable(nil)
	require.Error(t, err)
}

type apiRecorder struct {
	mu      sync.Mutex
	methods []string
	fail    string
}

func (a *apiRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	method := path.Base(r.URL.Path)
	a.mu.Lock()
	a.methods = append(a.methods, method)
	fail := a.fail == method
	a.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if fail {
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request"}`))
		return
	}
	_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"bot","username":"cinema_bot",` +
		`"message_id":1,"date":0,"chat":{"id":1,"type":"private"}}}`))
}

func (a *apiRecorder) calls() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.methods...)
}

func newTestClient(t *testing.T, rec *apiRecorder) *Client {
	t.Helper()
	srv := httptest.NewServer(rec)
	t.Cleanup(srv.Close)
	c, err := NewClientWithEndpoint("TOKEN", srv.URL+"/bot%s/%s", srv.Client(), nil)
	require.NoError(t, err)
	return c
}

func TestClient_Send(t *testing.T) {
	rec := &apiRecorder{}
	c := newTestClient(t, rec)

	err := c.Send(context.Background(), []dispatch.Reply{
		dispatch.CallbackAck{CallbackID: "cb"},
		dispatch.TextReply{ChatID: 1, Body: "hi"},
		dispatch.LocationReply{ChatID: 1, Latitude: 1, Longitude: 2},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"getMe", "answerCallbackQuery", "sendMessage", "sendLocation"}, rec.calls())
}

func TestClient_SendContinuesAfterFailure(t *testing.T) {
	rec := &apiRecorder{fail: "sendMessage"}
	c := newTestClient(t, rec)

	err := c.Send(context.Background(), []dispatch.Reply{
		dispatch.TextReply{ChatID: 1, Body: "hi"},
		dispatch.LocationReply{ChatID: 1},
	})
	require.Error(t, err)
	require.Equal(t, []string{"getMe", "sendMessage", "sendLocation"}, rec.calls())
}

type stubDispatcher struct {
	replies []dispatch.Reply
	err     error
	got     dispatch.Event
}

func (s *stubDispatcher) Dispatch(ctx context.Context, ev dispatch.Event) ([]dispatch.Reply, error) {
	s.got = ev
	return s.replies, s.err
}

func TestClient_HandleUpdate(t *testing.T) {
	rec := &apiRecorder{}
	c := newTestClient(t, rec)
	upd := tgbotapi.Update{Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 5}, From: &tgbotapi.User{ID: 5}, Text: "/start"}}

	d := &stubDispatcher{replies: []dispatch.Reply{dispatch.TextReply{ChatID: 5, Body: "hi"}}}
	require.NoError(t, c.HandleUpdate(context.Background(), d, upd))
	require.Equal(t, "/start", d.got.(dispatch.TextMessage).Text)
	require.Equal(t, []string{"getMe", "sendMessage"}, rec.calls())

	failing := &stubDispatcher{replies: []dispatch.Reply{dispatch.TextReply{ChatID: 5}}, err: errors.New("store down")}
	require.NoError(t, c.HandleUpdate(context.Background(), failing, upd))
	require.Equal(t, []string{"getMe", "sendMessage"}, rec.calls(), "replies of a failed dispatch are dropped")

	skipped := &stubDispatcher{}
	require.NoError(t, c.HandleUpdate(context.Background(), skipped, tgbotapi.Update{}))
	require.Nil(t, skipped.got)
}
