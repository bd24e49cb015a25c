package promptflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"flowchat/internal/flow"
	"flowchat/internal/logger"
)

type recordCall struct {
	chatID   string
	flowID   string
	messages []Message
}

type fakeRecorder struct {
	mu    sync.Mutex
	calls []recordCall
}

func (r *fakeRecorder) Record(_ context.Context, chatID, flowID string, messages []Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, recordCall{chatID: chatID, flowID: flowID, messages: messages})
	return nil
}

func chunks(parts ...string) flow.Invoker {
	return flow.InvokerFunc(func(_ context.Context, _ flow.Request, onEvent func(flow.Event)) error {
		for _, p := range parts {
			onEvent(flow.Event{Type: flow.EventText, Text: p})
		}
		onEvent(flow.Event{Type: flow.EventCompleted})
		return nil
	})
}

func newChat(inv flow.Invoker, rec Recorder) *Chat {
	c := New(Options{
		Invoker:  inv,
		Flows:    []flow.Descriptor{{Identifier: "F1", Name: "One"}, {Identifier: "F2", Name: "Two"}},
		Recorder: rec,
		FlowLog:  logger.NoopFlowLogger{},
	})
	first := c.AvailableFlows()[0]
	c.SetFlow(&first)
	return c
}

func TestSendMessage_StreamsIntoAssistantMessage(t *testing.T) {
	rec := &fakeRecorder{}
	c := newChat(chunks("Hel", "lo"), rec)

	if err := c.SendMessage(context.Background(), "hi"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	c.Wait()

	msgs := c.Messages()
	if len(msgs) != 2 {
		t.Fatalf("messages = %d, want 2", len(msgs))
	}
	if msgs[0].Role != flow.RoleUser || msgs[0].Content != "hi" {
		t.Fatalf("user message = %#v", msgs[0])
	}
	if msgs[1].Role != flow.RoleAssistant || msgs[1].Content != "Hello" {
		t.Fatalf("assistant message = %#v", msgs[1])
	}
	if msgs[0].ID == "" || msgs[0].ID == msgs[1].ID {
		t.Fatalf("message ids should be unique and non-empty")
	}
	if c.Loading() || c.Error() != "" {
		t.Fatalf("loading=%v err=%q after completion", c.Loading(), c.Error())
	}
	if len(rec.calls) != 1 || rec.calls[0].flowID != "F1" || rec.calls[0].chatID != c.ChatID() || len(rec.calls[0].messages) != 2 {
		t.Fatalf("recorder calls = %#v", rec.calls)
	}
}

func TestSendMessage_PassesHistory(t *testing.T) {
	var got []flow.Request
	inv := flow.InvokerFunc(func(_ context.Context, req flow.Request, onEvent func(flow.Event)) error {
		got = append(got, req)
		onEvent(flow.Event{Type: flow.EventText, Text: "r"})
		return nil
	})
	c := newChat(inv, nil)
	for _, text := range []string{"one", "two"} {
		if err := c.SendMessage(context.Background(), text); err != nil {
			t.Fatalf("SendMessage(%q): %v", text, err)
		}
		c.Wait()
	}
	if len(got) != 2 || len(got[0].History) != 0 || len(got[1].History) != 2 {
		t.Fatalf("unexpected requests: %#v", got)
	}
	if got[1].Input != "two" || got[1].Flow.Identifier != "F1" {
		t.Fatalf("second request = %#v", got[1])
	}
}

func TestSendMessage_Rejections(t *testing.T) {
	c := New(Options{Invoker: chunks("x"), FlowLog: logger.NoopFlowLogger{}})
	if err := c.SendMessage(context.Background(), "  "); !errors.Is(err, ErrEmptyContent) {
		t.Fatalf("empty content err = %v", err)
	}
	if err := c.SendMessage(context.Background(), "hi"); !errors.Is(err, ErrNoFlow) {
		t.Fatalf("no flow err = %v", err)
	}

	release := make(chan struct{})
	blocking := flow.InvokerFunc(func(ctx context.Context, _ flow.Request, _ func(flow.Event)) error {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	})
	c = newChat(blocking, nil)
	if err := c.SendMessage(context.Background(), "first"); err != nil {
		t.Fatalf("first send: %v", err)
	}
	if !c.Loading() {
		t.Fatalf("loading should be true while invoking")
	}
	if err := c.SendMessage(context.Background(), "second"); !errors.Is(err, ErrBusy) {
		t.Fatalf("busy err = %v", err)
	}
	close(release)
	c.Wait()
}

func TestSendMessage_ErrorDropsEmptyPlaceholder(t *testing.T) {
	inv := flow.InvokerFunc(func(context.Context, flow.Request, func(flow.Event)) error {
		return errors.New("flow exploded")
	})
	c := newChat(inv, nil)
	if err := c.SendMessage(context.Background(), "hi"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	c.Wait()
	if c.Error() != "flow exploded" {
		t.Fatalf("error = %q", c.Error())
	}
	if msgs := c.Messages(); len(msgs) != 1 || msgs[0].Role != flow.RoleUser {
		t.Fatalf("messages after failure = %#v", msgs)
	}
	if c.Loading() {
		t.Fatalf("loading should clear after failure")
	}
}

func TestSendMessage_ErrorKeepsPartialOutput(t *testing.T) {
	inv := flow.InvokerFunc(func(_ context.Context, _ flow.Request, onEvent func(flow.Event)) error {
		onEvent(flow.Event{Type: flow.EventText, Text: "partial"})
		return errors.New("stream cut")
	})
	c := newChat(inv, nil)
	_ = c.SendMessage(context.Background(), "hi")
	c.Wait()
	msgs := c.Messages()
	if len(msgs) != 2 || msgs[1].Content != "partial" || c.Error() != "stream cut" {
		t.Fatalf("messages=%#v err=%q", msgs, c.Error())
	}
}

func TestSendMessage_PanicBecomesError(t *testing.T) {
	inv := flow.InvokerFunc(func(context.Context, flow.Request, func(flow.Event)) error {
		panic("bad backend")
	})
	c := newChat(inv, nil)
	_ = c.SendMessage(context.Background(), "hi")
	c.Wait()
	if c.Error() == "" {
		t.Fatalf("expected error after panic")
	}
}

func TestClearCancelsInFlightAndResets(t *testing.T) {
	started := make(chan struct{})
	inv := flow.InvokerFunc(func(ctx context.Context, _ flow.Request, onEvent func(flow.Event)) error {
		close(started)
		<-ctx.Done()
		onEvent(flow.Event{Type: flow.EventText, Text: "late"})
		return ctx.Err()
	})
	c := newChat(inv, nil)
	if err := c.SendMessage(context.Background(), "hi"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	<-started
	firstID := c.ChatID()
	c.Clear()
	c.Wait()

	if len(c.Messages()) != 0 || c.Error() != "" || c.Loading() {
		t.Fatalf("state after clear: msgs=%d err=%q loading=%v", len(c.Messages()), c.Error(), c.Loading())
	}
	if firstID == "" || c.ChatID() != "" {
		t.Fatalf("chat id should reset on clear: before=%q after=%q", firstID, c.ChatID())
	}
}

func TestTimeoutSurfacesAsError(t *testing.T) {
	inv := flow.InvokerFunc(func(ctx context.Context, _ flow.Request, _ func(flow.Event)) error {
		<-ctx.Done()
		return ctx.Err()
	})
	c := New(Options{Invoker: inv, FlowLog: logger.NoopFlowLogger{}, Timeout: 10 * time.Millisecond})
	c.SetFlow(&flow.Descriptor{Identifier: "F"})
	_ = c.SendMessage(context.Background(), "hi")
	c.Wait()
	if c.Error() != context.DeadlineExceeded.Error() {
		t.Fatalf("error = %q", c.Error())
	}
}

func TestSetAvailableFlowsPublishes(t *testing.T) {
	c := newChat(chunks(), nil)
	sub := c.Subscribe()
	c.SetAvailableFlows([]flow.Descriptor{{Identifier: "F9"}})

	select {
	case ev := <-sub:
		if ev.Kind != FlowsChanged {
			t.Fatalf("event = %v", ev.Kind)
		}
	case <-time.After(time.Second):
		t.Fatalf("no event published")
	}
	if flows := c.AvailableFlows(); len(flows) != 1 || flows[0].Identifier != "F9" {
		t.Fatalf("flows = %#v", flows)
	}
}

func TestFlowReturnsCopy(t *testing.T) {
	c := newChat(chunks(), nil)
	f := c.Flow()
	f.Name = "mutated"
	if c.Flow().Name != "One" {
		t.Fatalf("Flow() leaked internal state")
	}
	c.SetFlow(nil)
	if c.Flow() != nil {
		t.Fatalf("SetFlow(nil) should clear selection")
	}
}

func TestFlowsChangedSurvivesStreamingBurst(t *testing.T) {
	parts := make([]string, 100)
	for i := range parts {
		parts[i] = "x"
	}
	c := newChat(chunks(parts...), nil)
	sub := c.Subscribe()

	if err := c.SendMessage(context.Background(), "hi"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	c.Wait()
	c.SetAvailableFlows([]flow.Descriptor{{Identifier: "F9"}})

	var flows, status int
	for len(sub) > 0 {
		switch (<-sub).Kind {
		case FlowsChanged:
			flows++
		case StatusChanged:
			status++
		}
	}
	if flows != 1 {
		t.Fatalf("FlowsChanged delivered %d times, want 1", flows)
	}
	if status != 2 {
		t.Fatalf("StatusChanged delivered %d times, want 2 (start and finish)", status)
	}
}

type gatedRecorder struct {
	fakeRecorder
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (r *gatedRecorder) Record(ctx context.Context, chatID, flowID string, messages []Message) error {
	first := false
	r.once.Do(func() { first = true })
	if first {
		close(r.entered)
		<-r.release
	}
	return r.fakeRecorder.Record(ctx, chatID, flowID, messages)
}

func TestRecordKeepsTurnOrder(t *testing.T) {
	rec := &gatedRecorder{entered: make(chan struct{}), release: make(chan struct{})}
	c := newChat(chunks("ok"), rec)

	if err := c.SendMessage(context.Background(), "one"); err != nil {
		t.Fatalf("first send: %v", err)
	}
	<-rec.entered
	if err := c.SendMessage(context.Background(), "two"); err != nil {
		t.Fatalf("second send: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for c.Loading() {
		if time.Now().After(deadline) {
			t.Fatalf("second turn did not finish")
		}
		time.Sleep(5 * time.Millisecond)
	}
	close(rec.release)
	c.Wait()

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.calls) != 2 {
		t.Fatalf("record calls = %d, want 2", len(rec.calls))
	}
	if last := rec.calls[len(rec.calls)-1]; len(last.messages) != 4 {
		t.Fatalf("last recorded snapshot has %d messages, want 4", len(last.messages))
	}
}

func TestRecordSkipsStaleTurn(t *testing.T) {
	rec := &fakeRecorder{}
	c := newChat(chunks(), rec)
	ctx := context.Background()
	c.record(ctx, 2, "c1", "F1", make([]Message, 4))
	c.record(ctx, 1, "c1", "F1", make([]Message, 2))
	if len(rec.calls) != 1 || len(rec.calls[0].messages) != 4 {
		t.Fatalf("calls = %#v", rec.calls)
	}
}
