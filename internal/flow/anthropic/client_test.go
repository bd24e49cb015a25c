package anthropic

import (
	"testing"

	"flowchat/internal/flow"
)

func TestNormalizeBaseURL(t *testing.T) {
	cases := map[string]string{
		"":                          "",
		"https://api.example.test/": "https://api.example.test",
		"https://proxy.test/v1":     "https://proxy.test",
		"https://proxy.test/v1/":    "https://proxy.test",
	}
	for in, want := range cases {
		if got := normalizeBaseURL(in); got != want {
			t.Fatalf("normalizeBaseURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBuildMessageParams_SkipsEmptyHistoryAndSetsSystem(t *testing.T) {
	req := flow.Request{
		Flow:  flow.Descriptor{Identifier: "f", System: "answer in haiku"},
		Input: "now",
		History: []flow.Turn{
			{Role: flow.RoleUser, Content: "first"},
			{Role: flow.RoleAssistant, Content: "  "},
			{Role: flow.RoleAssistant, Content: "reply"},
		},
	}
	params := buildMessageParams(req, "claude-test")
	if len(params.Messages) != 3 {
		t.Fatalf("messages = %d, want 3", len(params.Messages))
	}
	if params.Messages[1].Role != "assistant" || params.Messages[2].Role != "user" {
		t.Fatalf("unexpected roles: %q %q", params.Messages[1].Role, params.Messages[2].Role)
	}
	if len(params.System) != 1 || params.System[0].Text != "answer in haiku" {
		t.Fatalf("system = %#v", params.System)
	}
	if params.MaxTokens != defaultMaxTokens {
		t.Fatalf("max tokens = %d", params.MaxTokens)
	}
}

func TestNewRequiresToken(t *testing.T) {
	if _, err := New(Options{Token: " "}); err == nil {
		t.Fatalf("expected error for empty token")
	}
}
