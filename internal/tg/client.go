// Package tg adapts the Telegram Bot API to the dispatcher's events and replies.
package tg

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"cinema-tg-bot/internal/dispatch"
	"cinema-tg-bot/internal/metrics"
	"cinema-tg-bot/internal/storage"
)

var allowedUpdates = []string{"message", "callback_query", "inline_query"}

type Client struct {
	api *tgbotapi.BotAPI
	log *slog.Logger
}

type Dispatcher interface {
	Dispatch(ctx context.Context, ev dispatch.Event) ([]dispatch.Reply, error)
}

func NewClient(token string, log *slog.Logger) (*Client, error) {
	return NewClientWithEndpoint(token, tgbotapi.APIEndpoint, &http.Client{Timeout: 9 * time.Second}, log)
}

// NewClientWithEndpoint talks to a custom Bot API server. endpoint is a format
// string taking the token and the method name.
func NewClientWithEndpoint(token, endpoint string, hc tgbotapi.HTTPClient, log *slog.Logger) (*Client, error) {
	const op = "tg.NewClient"
	api, err := tgbotapi.NewBotAPIWithClient(token, endpoint, hc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if log == nil {
		log = slog.Default()
	}
	log.Info("telegram bot authorized", "username", api.Self.UserName)
	return &Client{api: api, log: log}, nil
}

// HandleUpdate runs one update through d and delivers the replies. Dispatch
// failures are logged by the dispatcher and produce no replies; only delivery
// errors are returned.
func (c *Client) HandleUpdate(ctx context.Context, d Dispatcher, upd tgbotapi.Update) error {
	ev, ok := EventFromUpdate(upd)
	if !ok {
		c.log.DebugContext(ctx, "update skipped", "update_id", upd.UpdateID)
		return nil
	}
	replies, err := d.Dispatch(ctx, ev)
	if err != nil {
		return nil
	}
	return c.Send(ctx, replies)
}

// Send delivers replies in order. A failed reply does not stop the rest.
func (c *Client) Send(ctx context.Context, replies []dispatch.Reply) error {
	const op = "tg.Client.Send"
	var errs []error
	for _, r := range replies {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		msg, err := chattable(r)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := c.deliver(msg); err != nil {
			metrics.APIFailures.WithLabelValues(r.ReplyType()).Inc()
			c.log.ErrorContext(ctx, "reply not delivered", "type", r.ReplyType(), "error", err)
			errs = append(errs, err)
			continue
		}
		metrics.RepliesSent.WithLabelValues(r.ReplyType()).Inc()
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (c *Client) deliver(msg tgbotapi.Chattable) error {
	switch msg.(type) {
	case tgbotapi.CallbackConfig, tgbotapi.InlineConfig:
		// These return a bare boolean, not a Message.
		_, err := c.api.Request(msg)
		return err
	default:
		_, err := c.api.Send(msg)
		return err
	}
}

// Poll drops any webhook and feeds long-polled updates to handle until ctx is done.
func (c *Client) Poll(ctx context.Context, timeout int, handle func(tgbotapi.Update)) error {
	const op = "tg.Client.Poll"
	if _, err := c.api.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: true}); err != nil {
		return fmt.Errorf("%s: delete webhook: %w", op, err)
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = timeout
	u.AllowedUpdates = allowedUpdates
	updates := c.api.GetUpdatesChan(u)
	defer c.api.StopReceivingUpdates()

	c.log.Info("polling started")
	for {
		select {
		case <-ctx.Done():
			return nil
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			handle(upd)
		}
	}
}

// EventFromUpdate converts an update into a dispatcher event. Updates the bot
// does not handle report false.
func EventFromUpdate(upd tgbotapi.Update) (dispatch.Event, bool) {
	switch {
	case upd.Message != nil:
		m := upd.Message
		ev := dispatch.TextMessage{Text: m.Text}
		if m.Chat != nil {
			ev.ChatID = m.Chat.ID
		}
		if m.From != nil {
			ev.SenderID = m.From.ID
			ev.SenderName = m.From.FirstName
		}
		if m.Location != nil {
			ev.Location = &storage.Location{Latitude: m.Location.Latitude, Longitude: m.Location.Longitude}
		}
		return ev, true
	case upd.CallbackQuery != nil:
		cq := upd.CallbackQuery
		ev := dispatch.CallbackEvent{CallbackID: cq.ID, Payload: cq.Data}
		if cq.From != nil {
			ev.SenderID = cq.From.ID
		}
		if cq.Message != nil && cq.Message.Chat != nil {
			ev.SourceChatID = cq.Message.Chat.ID
		}
		return ev, true
	case upd.InlineQuery != nil:
		q := upd.InlineQuery
		ev := dispatch.InlineQueryEvent{QueryID: q.ID, Query: q.Query}
		if q.From != nil {
			ev.SenderID = q.From.ID
		}
		return ev, true
	}
	return nil, false
}

func chattable(r dispatch.Reply) (tgbotapi.Chattable, error) {
	switch r := r.(type) {
	case dispatch.TextReply:
		msg := tgbotapi.NewMessage(r.ChatID, r.Body)
		if r.HTML {
			msg.ParseMode = tgbotapi.ModeHTML
		}
		switch {
		case len(r.Inline) > 0:
			msg.ReplyMarkup = inlineMarkup(r.Inline)
		case len(r.Keyboard) > 0:
			msg.ReplyMarkup = replyKeyboard(r.Keyboard)
		}
		return msg, nil
	case dispatch.PhotoReply:
		photo := tgbotapi.NewPhoto(r.ChatID, tgbotapi.FileURL(r.ImageRef))
		photo.Caption = r.Caption
		if len(r.Inline) > 0 {
			photo.ReplyMarkup = inlineMarkup(r.Inline)
		}
		return photo, nil
	case dispatch.LocationReply:
		return tgbotapi.NewLocation(r.ChatID, r.Latitude, r.Longitude), nil
	case dispatch.CallbackAck:
		return tgbotapi.NewCallback(r.CallbackID, r.Text), nil
	case dispatch.InlineResults:
		results := make([]interface{}, 0, len(r.Results))
		for _, res := range r.Results {
			results = append(results, inlineResult(res))
		}
		return tgbotapi.InlineConfig{
			InlineQueryID: r.QueryID,
			Results:       results,
			CacheTime:     r.CacheTime,
		}, nil
	}
	return nil, fmt.Errorf("tg: unsupported reply %T", r)
}

func inlineResult(res dispatch.InlineResult) interface{} {
	var markup *tgbotapi.InlineKeyboardMarkup
	if res.Link.URL != "" {
		m := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL(res.Link.Text, res.Link.URL)))
		markup = &m
	}
	if res.ImageRef == "" {
		title, _, _ := strings.Cut(res.Caption, "\n")
		article := tgbotapi.NewInlineQueryResultArticle(res.ID, title, res.Caption)
		article.ReplyMarkup = markup
		return article
	}
	photo := tgbotapi.NewInlineQueryResultPhotoWithThumb(res.ID, res.ImageRef, res.ImageRef)
	photo.Caption = res.Caption
	photo.ReplyMarkup = markup
	return photo
}

func inlineMarkup(rows [][]dispatch.Button) tgbotapi.InlineKeyboardMarkup {
	out := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			if b.URL != "" {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonURL(b.Text, b.URL))
			} else {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
			}
		}
		out = append(out, buttons)
	}
	return tgbotapi.NewInlineKeyboardMarkup(out...)
}

func replyKeyboard(kb dispatch.Keyboard) tgbotapi.ReplyKeyboardMarkup {
	rows := make([][]tgbotapi.KeyboardButton, 0, len(kb))
	for _, row := range kb {
		buttons := make([]tgbotapi.KeyboardButton, 0, len(row))
		for _, b := range row {
			if b.RequestLocation {
				buttons = append(buttons, tgbotapi.NewKeyboardButtonLocation(b.Text))
			} else {
				buttons = append(buttons, tgbotapi.NewKeyboardButton(b.Text))
			}
		}
		rows = append(rows, buttons)
	}
	return tgbotapi.NewReplyKeyboard(rows...)
}
