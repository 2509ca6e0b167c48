package dispatch

import "cinema-tg-bot/internal/storage"

// Event is an inbound chat event: TextMessage, CallbackEvent or InlineQueryEvent.
type Event interface {
	EventKind() string
}

type TextMessage struct {
	ChatID     int64
	SenderID   int64
	SenderName string
	Text       string
	Location   *storage.Location
}

type CallbackEvent struct {
	SenderID     int64
	CallbackID   string
	Payload      string
	SourceChatID int64
}

type InlineQueryEvent struct {
	QueryID  string
	SenderID int64
	Query    string
}

func (TextMessage) EventKind() string      { return "message" }
func (CallbackEvent) EventKind() string    { return "callback" }
func (InlineQueryEvent) EventKind() string { return "inline_query" }

// Reply is an outbound instruction for the transport.
type Reply interface {
	ReplyType() string
}

// Button is an inline button. Exactly one of URL and Data is set.
type Button struct {
	Text string
	URL  string
	Data string
}

type KeyboardButton struct {
	Text            string
	RequestLocation bool
}

// Keyboard is a reply keyboard layout, row by row.
type Keyboard [][]KeyboardButton

type TextReply struct {
	ChatID   int64
	Body     string
	HTML     bool
	Keyboard Keyboard
	Inline   [][]Button
}

type PhotoReply struct {
	ChatID   int64
	ImageRef string
	Caption  string
	Inline   [][]Button
}

type LocationReply struct {
	ChatID    int64
	Latitude  float64
	Longitude float64
}

// CallbackAck answers a callback query; it is shown as a toast, not a message.
type CallbackAck struct {
	CallbackID string
	Text       string
}

type InlineResult struct {
	ID       string
	ImageRef string
	Caption  string
	Link     Button
}

type InlineResults struct {
	QueryID   string
	Results   []InlineResult
	CacheTime int
}

func (TextReply) ReplyType() string     { return "text" }
func (PhotoReply) ReplyType() string    { return "photo" }
func (LocationReply) ReplyType() string { return "location" }
func (CallbackAck) ReplyType() string   { return "callback_ack" }
func (InlineResults) ReplyType() string { return "inline_results" }
