// Package render expands handler results into ordered, wire-ready message
// payloads: segmentation, variable substitution, keyboards, and attachment
// detection.
package render

import (
	"regexp"
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Send methods understood by the delivery transport.
const (
	MethodSendMessage  = "sendMessage"
	MethodSendPhoto    = "sendPhoto"
	MethodSendDocument = "sendDocument"
)

// Choice is a selectable option offered to the user, optionally naming the
// dialogue step the selection leads to.
type Choice struct {
	Value    string
	NextStep string
}

// Template is a structured response description produced by a route handler
// or the dialogue engine, prior to wire serialization.
type Template struct {
	Text string
	// Vars fill %{name} placeholders in Text. Unresolved placeholders are
	// left verbatim.
	Vars map[string]string
	// Options become a reply keyboard, one row per option, attached to the
	// first payload rendered from this template.
	Options []Choice
	// Inline becomes a single-row inline keyboard.
	Inline []string
	// Photo and Document switch the send method; Text becomes the caption.
	Photo    string
	Document string
}

// Text builds a single plain-text template list.
func Text(s string) []Template { return []Template{{Text: s}} }

// Texts builds one template per string.
func Texts(ss ...string) []Template {
	out := make([]Template, len(ss))
	for i, s := range ss {
		out[i] = Template{Text: s}
	}
	return out
}

// Labels converts plain strings into choices.
func Labels(ss ...string) []Choice {
	out := make([]Choice, len(ss))
	for i, s := range ss {
		out[i] = Choice{Value: s}
	}
	return out
}

// Payload is one wire-ready outbound message.
type Payload struct {
	Method      string            `json:"-"`
	ChatID      int64             `json:"chat_id"`
	Text        string            `json:"text,omitempty"`
	Caption     string            `json:"caption,omitempty"`
	Photo       string            `json:"photo,omitempty"`
	Document    string            `json:"document,omitempty"`
	ParseMode   string            `json:"parse_mode,omitempty"`
	ReplyTo     int               `json:"reply_to_message_id,omitempty"`
	ReplyMarkup *tele.ReplyMarkup `json:"reply_markup,omitempty"`
}

// Options carry per-turn delivery context from the inbound message.
type Options struct {
	ChatID    int64
	ParseMode string
	// ReplyTo quotes the triggering message (group chats).
	ReplyTo int
}

var (
	segmentRe  = regexp.MustCompile(`(?m)^[ \t]*---[ \t]*$`)
	indentRe   = regexp.MustCompile(`(?m)^[ \t]+`)
	newlinesRe = regexp.MustCompile(`\n+`)
	varRe      = regexp.MustCompile(`%\{(\w+)\}`)
	imageURLRe = regexp.MustCompile(`https?://\S+\.(?:png|jpe?g|gif)(?:\?\S*)?`)
)

// Render expands templates into an ordered payload sequence. Output order is
// exactly the order the fragments are produced; delivery must preserve it.
func Render(templates []Template, opts Options) []Payload {
	mode := opts.ParseMode
	if mode == "" {
		mode = tele.ModeMarkdown
	}

	var out []Payload
	for _, t := range templates {
		out = append(out, renderOne(t, opts, mode)...)
	}
	return out
}

func renderOne(t Template, opts Options, mode string) []Payload {
	var fragments []string
	for _, seg := range segmentRe.Split(t.Text, -1) {
		seg = Sprintf(Trimln(seg), t.Vars)
		if seg != "" {
			fragments = append(fragments, seg)
		}
	}
	if len(fragments) == 0 {
		if t.Photo == "" && t.Document == "" {
			return nil
		}
		fragments = []string{""}
	}

	payloads := make([]Payload, 0, len(fragments))
	for i, text := range fragments {
		p := Payload{
			Method:    MethodSendMessage,
			ChatID:    opts.ChatID,
			Text:      text,
			ParseMode: mode,
			ReplyTo:   opts.ReplyTo,
		}

		if i == 0 {
			switch {
			case t.Photo != "":
				p.asPhoto(t.Photo)
			case t.Document != "":
				p.Method = MethodSendDocument
				p.Document = t.Document
				p.Caption = text
				p.Text = ""
			case imageURLRe.MatchString(text):
				url := imageURLRe.FindString(text)
				p.Text = strings.TrimSpace(strings.Replace(text, url, "", 1))
				p.asPhoto(url)
			}
			if markup := keyboard(t); markup != nil {
				p.ReplyMarkup = markup
			}
		}
		payloads = append(payloads, p)
	}
	return payloads
}

func (p *Payload) asPhoto(url string) {
	p.Method = MethodSendPhoto
	p.Photo = url
	p.Caption = p.Text
	p.Text = ""
}

func keyboard(t Template) *tele.ReplyMarkup {
	if len(t.Inline) > 0 {
		row := make([]tele.InlineButton, len(t.Inline))
		for i, label := range t.Inline {
			row[i] = tele.InlineButton{Text: label, Data: label}
		}
		return &tele.ReplyMarkup{InlineKeyboard: [][]tele.InlineButton{row}}
	}
	if len(t.Options) == 0 {
		return nil
	}
	rows := make([][]tele.ReplyButton, len(t.Options))
	for i, c := range t.Options {
		rows[i] = []tele.ReplyButton{{Text: c.Value}}
	}
	return &tele.ReplyMarkup{
		ReplyKeyboard:   rows,
		ResizeKeyboard:  true,
		OneTimeKeyboard: true,
	}
}

// Trimln trims the text, strips per-line leading indentation, and collapses
// single newlines into spaces while keeping blank lines as paragraph breaks.
// It lets handlers return indented heredoc-style literals.
func Trimln(s string) string {
	s = strings.TrimSpace(s)
	s = indentRe.ReplaceAllString(s, "")
	return newlinesRe.ReplaceAllStringFunc(s, func(nl string) string {
		if nl == "\n" {
			return " "
		}
		return nl
	})
}

// Sprintf fills %{name} placeholders from vars, leaving unresolved ones
// verbatim.
func Sprintf(s string, vars map[string]string) string {
	if len(vars) == 0 {
		return s
	}
	return varRe.ReplaceAllStringFunc(s, func(m string) string {
		name := m[2 : len(m)-1]
		if v, ok := vars[name]; ok {
			return v
		}
		return m
	})
}
