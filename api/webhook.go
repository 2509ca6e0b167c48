package handler

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	maxUpdateSize = 2 << 20
	secretHeader  = "X-Telegram-Bot-Api-Secret-Token"
)

type UpdateHandler interface {
	HandleUpdate(ctx context.Context, upd tgbotapi.Update) error
}

type UpdateHandlerFunc func(ctx context.Context, upd tgbotapi.Update) error

func (f UpdateHandlerFunc) HandleUpdate(ctx context.Context, upd tgbotapi.Update) error {
	return f(ctx, upd)
}

type webhook struct {
	updates UpdateHandler
	secret  string
	timeout time.Duration
	log     *slog.Logger
}

// ServeHTTP answers 200 for every decoded update so Telegram does not redeliver it.
func (h *webhook) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h.secret != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get(secretHeader)), []byte(h.secret)) != 1 {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxUpdateSize))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	var upd tgbotapi.Update
	if err := json.Unmarshal(body, &upd); err != nil {
		h.log.WarnContext(r.Context(), "webhook: bad update", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	if err := h.updates.HandleUpdate(ctx, upd); err != nil {
		h.log.ErrorContext(ctx, "webhook: update not handled", "update_id", upd.UpdateID, "error", err)
	}
	w.WriteHeader(http.StatusOK)
}
