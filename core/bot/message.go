// Package bot defines the normalized inbound message envelope shared by the
// router, the dialogue engine, and the webhook transport.
package bot

import (
	"errors"
	"strings"
)

// ErrUnroutable marks an inbound update shape the router does not support.
// It is fatal for that request only.
var ErrUnroutable = errors.New("unroutable request")

// Chat types as reported by the provider.
const (
	ChatPrivate = "private"
	ChatGroup   = "group"
)

// Update is the provider's webhook envelope.
type Update struct {
	UpdateID int       `json:"update_id"`
	Message  *Incoming `json:"message"`
}

// Incoming is the raw provider message shape.
type Incoming struct {
	MessageID int    `json:"message_id"`
	Text      string `json:"text"`
	Chat      struct {
		ID   int64  `json:"id"`
		Type string `json:"type"`
	} `json:"chat"`
	From struct {
		Username  string `json:"username"`
		FirstName string `json:"first_name"`
	} `json:"from"`
	ReplyTo *Incoming `json:"reply_to_message"`
	Contact *struct {
		PhoneNumber string `json:"phone_number"`
	} `json:"contact"`
	Photo []PhotoSize `json:"photo"`
	Document *struct {
		FileID   string `json:"file_id"`
		FileName string `json:"file_name"`
	} `json:"document"`
}

// PhotoSize is one resolution of an inbound photo.
type PhotoSize struct {
	FileID string `json:"file_id"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Message is the normalized inbound envelope. It is derived once per request
// and treated as immutable afterwards.
type Message struct {
	ChatID    int64
	ChatType  string
	MessageID int
	Username  string
	FirstName string
	// Command is the leading slash command, lowercased and without the
	// marker; empty when the message is free text.
	Command string
	// Args is the remaining text after the command token, or the whole text
	// for free-text messages.
	Args string
	// Photo and Document reference inbound attachments by provider file id.
	Photo    string
	Document string
}

// Normalize converts a webhook update into the Message envelope. Updates
// without a message payload are unroutable.
func Normalize(u *Update) (*Message, error) {
	if u == nil || u.Message == nil {
		return nil, ErrUnroutable
	}
	in := u.Message

	text := in.Text
	if in.ReplyTo != nil && in.ReplyTo.Text != "" {
		// Answering by replying carries the replied-to text.
		text = in.ReplyTo.Text
	}
	if in.Contact != nil {
		text = in.Contact.PhoneNumber
	}

	m := &Message{
		ChatID:    in.Chat.ID,
		ChatType:  in.Chat.Type,
		MessageID: in.MessageID,
		Username:  in.From.Username,
		FirstName: in.From.FirstName,
		Args:      text,
	}

	if cmd, args, ok := splitCommand(text); ok {
		m.Command = cmd
		m.Args = args
	}

	if len(in.Photo) > 0 {
		// The provider lists sizes smallest first.
		m.Photo = in.Photo[len(in.Photo)-1].FileID
	}
	if in.Document != nil {
		m.Document = in.Document.FileID
	}

	return m, nil
}

// splitCommand detects leading command syntax: a line beginning with the
// command marker followed by a token.
func splitCommand(text string) (cmd, args string, ok bool) {
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	token, rest, _ := strings.Cut(text, " ")
	token = strings.TrimPrefix(token, "/")
	// Group chats address commands as /cmd@botname.
	token, _, _ = strings.Cut(token, "@")
	if token == "" {
		return "", "", false
	}
	return strings.ToLower(token), strings.TrimSpace(rest), true
}
