package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

func TestRenderSegmentsBecomeSeparatePayloads(t *testing.T) {
	templates := Text(`
		First part.
		---
		Second part.
		---
		Third part.
	`)

	payloads := Render(templates, Options{ChatID: 7})
	require.Len(t, payloads, 3)
	assert.Equal(t, "First part.", payloads[0].Text)
	assert.Equal(t, "Second part.", payloads[1].Text)
	assert.Equal(t, "Third part.", payloads[2].Text)
	for _, p := range payloads {
		assert.Equal(t, MethodSendMessage, p.Method)
		assert.Equal(t, int64(7), p.ChatID)
		assert.NotContains(t, p.Text, "---")
	}
}

func TestRenderDefaultsToMarkdown(t *testing.T) {
	payloads := Render(Text("hi"), Options{ChatID: 1})
	require.Len(t, payloads, 1)
	assert.Equal(t, tele.ModeMarkdown, payloads[0].ParseMode)

	payloads = Render(Text("hi"), Options{ChatID: 1, ParseMode: tele.ModeHTML})
	assert.Equal(t, tele.ModeHTML, payloads[0].ParseMode)
}

func TestTrimlnCollapsesIndentedHeredoc(t *testing.T) {
	s := Trimln(`
		one line
		split in source

		new paragraph
	`)
	assert.Equal(t, "one line split in source\n\nnew paragraph", s)
}

func TestSprintfLeavesUnresolvedPlaceholders(t *testing.T) {
	out := Sprintf("Hello %{name}, balance %{balance}", map[string]string{"name": "ziggy"})
	assert.Equal(t, "Hello ziggy, balance %{balance}", out)

	assert.Equal(t, "Hello %{name}", Sprintf("Hello %{name}", nil))
}

func TestRenderKeyboardOnFirstPayloadOnly(t *testing.T) {
	templates := []Template{{
		Text: `
			Pick one
			---
			Trailer
		`,
		Options: []Choice{{Value: "Yes"}, {Value: "No"}},
	}}

	payloads := Render(templates, Options{ChatID: 1})
	require.Len(t, payloads, 2)
	require.NotNil(t, payloads[0].ReplyMarkup)
	assert.Nil(t, payloads[1].ReplyMarkup)

	rows := payloads[0].ReplyMarkup.ReplyKeyboard
	require.Len(t, rows, 2, "one row per option")
	assert.Equal(t, "Yes", rows[0][0].Text)
	assert.Equal(t, "No", rows[1][0].Text)
	assert.True(t, payloads[0].ReplyMarkup.OneTimeKeyboard)
}

func TestRenderInlineKeyboardSingleRow(t *testing.T) {
	payloads := Render([]Template{{Text: "choose", Inline: []string{"A", "B", "C"}}}, Options{ChatID: 1})
	require.Len(t, payloads, 1)
	require.NotNil(t, payloads[0].ReplyMarkup)
	rows := payloads[0].ReplyMarkup.InlineKeyboard
	require.Len(t, rows, 1)
	assert.Len(t, rows[0], 3)
	assert.Equal(t, "A", rows[0][0].Text)
}

func TestRenderDetectsImageURL(t *testing.T) {
	payloads := Render(Text("Here you go https://example.com/cat.png enjoy"), Options{ChatID: 1})
	require.Len(t, payloads, 1)
	p := payloads[0]
	assert.Equal(t, MethodSendPhoto, p.Method)
	assert.Equal(t, "https://example.com/cat.png", p.Photo)
	assert.Equal(t, "Here you go  enjoy", p.Caption)
	assert.Empty(t, p.Text)
}

func TestRenderExplicitPhotoAndDocument(t *testing.T) {
	payloads := Render([]Template{{Text: "caption", Photo: "file-id-123"}}, Options{ChatID: 1})
	require.Len(t, payloads, 1)
	assert.Equal(t, MethodSendPhoto, payloads[0].Method)
	assert.Equal(t, "file-id-123", payloads[0].Photo)
	assert.Equal(t, "caption", payloads[0].Caption)

	payloads = Render([]Template{{Document: "doc-id"}}, Options{ChatID: 1})
	require.Len(t, payloads, 1)
	assert.Equal(t, MethodSendDocument, payloads[0].Method)
	assert.Equal(t, "doc-id", payloads[0].Document)
	assert.Empty(t, payloads[0].Caption)
}

func TestRenderVarsSubstitutedPerFragment(t *testing.T) {
	templates := []Template{{
		Text: `
			Hello %{name}
			---
			Goodbye %{name}
		`,
		Vars: map[string]string{"name": "ziggy"},
	}}

	payloads := Render(templates, Options{ChatID: 1})
	require.Len(t, payloads, 2)
	assert.Equal(t, "Hello ziggy", payloads[0].Text)
	assert.Equal(t, "Goodbye ziggy", payloads[1].Text)
}

func TestRenderEmptyTemplateProducesNothing(t *testing.T) {
	assert.Empty(t, Render([]Template{{Text: "   "}}, Options{ChatID: 1}))
	assert.Empty(t, Render(nil, Options{ChatID: 1}))
}

func TestRenderReplyTo(t *testing.T) {
	payloads := Render(Text("quoted"), Options{ChatID: 1, ReplyTo: 42})
	require.Len(t, payloads, 1)
	assert.Equal(t, 42, payloads[0].ReplyTo)
}
