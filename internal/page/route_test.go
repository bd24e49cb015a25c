package page

import "testing"

func TestParseRoute(t *testing.T) {
	tests := []struct {
		in      string
		chatID  string
		search  string
		content string
		wantErr bool
	}{
		{in: ""},
		{in: "/"},
		{in: "/prompt-flow-chat"},
		{in: "/prompt-flow-chat/"},
		{in: "/prompt-flow-chat/abc-123", chatID: "abc-123"},
		{in: "/prompt-flow-chat/a%20b/", chatID: "a b"},
		{in: "abc-123", chatID: "abc-123"},
		{in: "/prompt-flow-chat?content=hi+there", search: "?content=hi+there", content: "hi there"},
		{in: "?content=x#frag", search: "?content=x", content: "x"},
		{in: "/prompt-flow-chat/a/b", wantErr: true},
		{in: "/elsewhere", wantErr: true},
		{in: "/prompt-flow-chat?content=%zz", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			r, err := ParseRoute(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %#v", r)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRoute: %v", err)
			}
			if r.ChatID != tt.chatID || r.Search != tt.search {
				t.Fatalf("route = %#v", r)
			}
			content, _ := r.Content()
			if content != tt.content {
				t.Fatalf("content = %q, want %q", content, tt.content)
			}
		})
	}
}

func TestRouteString(t *testing.T) {
	r := Route{ChatID: "a b", Search: "?content=x"}
	if got := r.String(); got != "/prompt-flow-chat/a%20b?content=x" {
		t.Fatalf("String = %q", got)
	}
	parsed, err := ParseRoute(r.String())
	if err != nil || parsed.ChatID != "a b" {
		t.Fatalf("round trip = %#v, %v", parsed, err)
	}
}
