package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"flowchat/internal/chatlist"
	"flowchat/internal/flow"
	"flowchat/internal/promptflow"
)

func streamingInvoker(parts ...string) flow.Invoker {
	return flow.InvokerFunc(func(ctx context.Context, req flow.Request, onEvent func(flow.Event)) error {
		for _, p := range parts {
			onEvent(flow.Event{Type: flow.EventText, Text: p})
		}
		onEvent(flow.Event{Type: flow.EventCompleted})
		return nil
	})
}

func decodeEvents(t *testing.T, out string) []jsonEvent {
	t.Helper()
	var events []jsonEvent
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		var ev jsonEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			t.Fatalf("decode %q: %v", line, err)
		}
		events = append(events, ev)
	}
	return events
}

func TestRunExecStreamsText(t *testing.T) {
	var out bytes.Buffer
	req := execRequest{Flow: flow.Descriptor{Identifier: "f1"}, Input: "hi"}
	chatID, err := runExec(context.Background(), &out, streamingInvoker("Hel", "lo"), nil, req)
	if err != nil {
		t.Fatalf("runExec: %v", err)
	}
	if chatID == "" {
		t.Fatalf("expected a chat id")
	}
	if out.String() != "Hello\n" {
		t.Fatalf("output = %q", out.String())
	}
}

func TestRunExecJSONEvents(t *testing.T) {
	var out bytes.Buffer
	req := execRequest{Flow: flow.Descriptor{Identifier: "f1"}, Input: "hi", JSON: true}
	chatID, err := runExec(context.Background(), &out, streamingInvoker("a", "b", "c"), nil, req)
	if err != nil {
		t.Fatalf("runExec: %v", err)
	}
	events := decodeEvents(t, out.String())
	if len(events) < 3 {
		t.Fatalf("expected started, delta and completed events, got %+v", events)
	}
	first, last := events[0], events[len(events)-1]
	if first.Type != "turn.started" || first.ChatID != chatID || first.Flow != "f1" {
		t.Fatalf("unexpected first event %+v", first)
	}
	if last.Type != "turn.completed" || last.Text != "abc" {
		t.Fatalf("unexpected last event %+v", last)
	}
	var streamed string
	for _, ev := range events[1 : len(events)-1] {
		if ev.Type != "output.delta" {
			t.Fatalf("unexpected event %+v", ev)
		}
		streamed += ev.Text
	}
	if streamed != "abc" {
		t.Fatalf("streamed = %q", streamed)
	}
}

func TestRunExecFailure(t *testing.T) {
	var out bytes.Buffer
	failing := flow.InvokerFunc(func(ctx context.Context, req flow.Request, onEvent func(flow.Event)) error {
		return errors.New("boom")
	})
	req := execRequest{Flow: flow.Descriptor{Identifier: "f1"}, Input: "hi", JSON: true}
	_, err := runExec(context.Background(), &out, failing, nil, req)
	if err == nil || err.Error() != "boom" {
		t.Fatalf("expected boom, got %v", err)
	}
	events := decodeEvents(t, out.String())
	last := events[len(events)-1]
	if last.Type != "turn.failed" || last.Error == nil || last.Error.Message != "boom" {
		t.Fatalf("unexpected last event %+v", last)
	}
}

func TestRunExecRejectsEmptyInput(t *testing.T) {
	var out bytes.Buffer
	req := execRequest{Flow: flow.Descriptor{Identifier: "f1"}, Input: "   "}
	if _, err := runExec(context.Background(), &out, streamingInvoker("x"), nil, req); !errors.Is(err, promptflow.ErrEmptyContent) {
		t.Fatalf("expected ErrEmptyContent, got %v", err)
	}
}

func TestRunExecRecordsChat(t *testing.T) {
	ctx := context.Background()
	list := chatlist.New(chatlist.NewFileStore(t.TempDir()))
	var out bytes.Buffer
	req := execRequest{Flow: flow.Descriptor{Identifier: "f1"}, Input: "Plan the release"}
	chatID, err := runExec(ctx, &out, flow.EchoInvoker{Prefix: "echo: "}, list, req)
	if err != nil {
		t.Fatalf("runExec: %v", err)
	}
	if got := list.GetChatTitle(ctx, chatID); got != "Plan the release" {
		t.Fatalf("title = %q", got)
	}
	rec, err := list.Load(ctx, chatID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(rec.Messages) != 2 || rec.Messages[1].Content != "echo: Plan the release" {
		t.Fatalf("unexpected messages %+v", rec.Messages)
	}

	// 继续同一会话时历史会传给 flow。
	var seen int
	counting := flow.InvokerFunc(func(ctx context.Context, r flow.Request, onEvent func(flow.Event)) error {
		seen = len(r.History)
		onEvent(flow.Event{Type: flow.EventText, Text: "ok"})
		return nil
	})
	req = execRequest{Flow: req.Flow, Input: "and then?", ChatID: rec.ID, History: rec.Messages}
	again, err := runExec(ctx, &out, counting, list, req)
	if err != nil {
		t.Fatalf("runExec: %v", err)
	}
	if again != chatID || seen != 2 {
		t.Fatalf("chat id %q history %d", again, seen)
	}
}

func TestReadPrompt(t *testing.T) {
	got, err := readPrompt([]string{"hello", "world"}, strings.NewReader("ignored"))
	if err != nil || got != "hello world" {
		t.Fatalf("args prompt = %q, %v", got, err)
	}
	got, err = readPrompt([]string{"-"}, strings.NewReader("  from stdin\n"))
	if err != nil || got != "from stdin" {
		t.Fatalf("stdin prompt = %q, %v", got, err)
	}
	got, err = readPrompt(nil, nil)
	if err != nil || got != "" {
		t.Fatalf("empty prompt = %q, %v", got, err)
	}
}
