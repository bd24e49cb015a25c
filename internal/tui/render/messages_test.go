package render

import (
	"strings"
	"testing"

	"flowchat/internal/flow"
	"flowchat/internal/promptflow"
)

func TestRenderMessagesSeparatesAndMarksLoading(t *testing.T) {
	msgs := []promptflow.Message{
		{Role: flow.RoleUser, Content: "what is up"},
		{Role: flow.RoleAssistant, Content: "all good"},
		{Role: flow.RoleUser, Content: "again"},
		{Role: flow.RoleAssistant, Content: ""},
	}
	lines := LinesToPlainStrings(RenderMessages(msgs, MessagesOptions{
		Width:        20,
		LoadingIndex: 3,
		Spinner:      "*",
		Thinking:     "thinking",
	}))

	want := []string{
		"› what is up",
		strings.Repeat("─", 20),
		"• all good",
		strings.Repeat("─", 20),
		"› again",
		strings.Repeat("─", 20),
		"• ",
		"  * thinking",
	}
	if len(lines) != len(want) {
		t.Fatalf("lines = %q", lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestRenderMessagesWrapsUserText(t *testing.T) {
	msgs := []promptflow.Message{{Role: flow.RoleUser, Content: "alpha beta gamma"}}
	lines := LinesToPlainStrings(RenderMessages(msgs, MessagesOptions{Width: 12, LoadingIndex: -1}))
	if len(lines) != 2 || lines[0] != "› alpha beta" || lines[1] != "  gamma" {
		t.Fatalf("lines = %q", lines)
	}
}

func TestMarkdownRender(t *testing.T) {
	md := NewMarkdown("notty")
	lines := md.Render("# Title\n\nsome **bold** text", 40)
	joined := strings.Join(lines, "\n")
	if !strings.Contains(joined, "Title") || !strings.Contains(joined, "bold") {
		t.Fatalf("rendered = %q", joined)
	}
	if strings.TrimSpace(lines[0]) == "" || strings.TrimSpace(lines[len(lines)-1]) == "" {
		t.Fatalf("leading/trailing blank lines not trimmed: %q", lines)
	}
	if got := md.Render("   ", 40); got != nil {
		t.Fatalf("blank input = %q", got)
	}
	var nilMD *Markdown
	if got := nilMD.Render("plain", 40); len(got) != 1 || got[0] != "plain" {
		t.Fatalf("nil renderer = %q", got)
	}
}
