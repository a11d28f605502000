package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTemplate_NoMarkers(t *testing.T) {
	out, err := RenderTemplate("plain text", nil)
	require.NoError(t, err)
	assert.Equal(t, "plain text", out)
}

func TestRenderTemplate_VerbatimHTML(t *testing.T) {
	html := `<button onclick="go()">Go & see</button>`
	out, err := RenderTemplate("Code:\n{{.code}}", map[string]any{"code": html})
	require.NoError(t, err)
	assert.Equal(t, "Code:\n"+html, out)
}

func TestRenderTemplate_MissingKey(t *testing.T) {
	_, err := RenderTemplate("{{.missing}}", map[string]any{})
	assert.Error(t, err)
}

func TestRenderTemplate_Funcs(t *testing.T) {
	out, err := RenderTemplate(`{{upper .a}} {{default "x" .b}}`, map[string]any{"a": "hi", "b": ""})
	require.NoError(t, err)
	assert.Equal(t, "HI x", out)
}

func TestExtractHTML(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  string
	}{
		{"bare document", "  <!DOCTYPE html><html></html>\n", "<!DOCTYPE html><html></html>"},
		{"fenced with info", "Here you go:\n```html\n<html>x</html>\n```\nEnjoy", "<html>x</html>"},
		{"fenced without info", "```\n<p>y</p>\n```", "<p>y</p>"},
		{"unterminated fence", "```html\n<p>z</p>", "<p>z</p>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractHTML(tt.reply))
		})
	}
}
