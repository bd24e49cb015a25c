package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"flowchat/internal/chatlist"
	"flowchat/internal/flow"
	"flowchat/internal/promptflow"
)

type jsonEvent struct {
	Type   string      `json:"type"`
	ChatID string      `json:"chat_id,omitempty"`
	Flow   string      `json:"flow,omitempty"`
	Text   string      `json:"text,omitempty"`
	Error  *eventError `json:"error,omitempty"`
}

type eventError struct {
	Message string `json:"message"`
}

var encodeMu sync.Mutex

func emitEvent(w io.Writer, ev jsonEvent) {
	encodeMu.Lock()
	defer encodeMu.Unlock()
	data, err := json.Marshal(ev)
	if err != nil {
		log.Warnf("encode event: %v", err)
		return
	}
	fmt.Fprintln(w, string(data))
}

func execMain(root rootArgs, args []string) {
	fs := flag.NewFlagSet("exec", flag.ExitOnError)
	var cfgPath string
	var configOverrides stringSlice
	var flowID string
	var chatID string
	var jsonOutput bool
	var noSave bool
	var timeout time.Duration

	fs.StringVar(&cfgPath, "config", root.cfgPath, "Path to config file (default ~/.flowchat/config.toml)")
	fs.Var(&configOverrides, "c", "Override config value key=value (repeatable)")
	fs.StringVar(&flowID, "flow", "", "Flow identifier or alias (default: first available flow)")
	fs.StringVar(&chatID, "chat", "", "Continue a stored chat")
	fs.BoolVar(&jsonOutput, "json", false, "Print events to stdout as JSONL")
	fs.BoolVar(&noSave, "no-save", false, "Do not record the exchange in the chat list")
	fs.DurationVar(&timeout, "timeout", 0, "Request timeout, 0 disables it")
	if err := fs.Parse(args); err != nil {
		log.Fatalf("parse exec args: %v", err)
	}
	overrides := prependOverrides(root.overrides, []string(configOverrides))

	input, err := readPrompt(fs.Args(), os.Stdin)
	if err != nil {
		log.Fatalf("read prompt: %v", err)
	}
	if input == "" {
		log.Fatalf("prompt is required for exec")
	}

	ctx := context.Background()
	cfg, err := loadConfig(cfgPath, overrides)
	if err != nil {
		log.Fatalf("%v", err)
	}
	a, err := newApp(ctx, cfg)
	if err != nil {
		log.Fatalf("init: %v", err)
	}
	selected, err := pickFlow(loadFlows(cfg), flowID)
	if err != nil {
		log.Fatalf("%v", err)
	}

	req := execRequest{Flow: selected, Input: input, JSON: jsonOutput, Timeout: timeout}
	if chatID != "" {
		rec, err := a.list.Load(ctx, chatID)
		switch {
		case err == nil:
			req.ChatID = rec.ID
			req.History = rec.Messages
		case errors.Is(err, chatlist.ErrNotFound):
			log.Fatalf("chat %s not found", chatID)
		default:
			log.Fatalf("load chat: %v", err)
		}
	}
	var recorder promptflow.Recorder
	if !noSave {
		recorder = a.list
	}
	if _, err := runExec(ctx, os.Stdout, a.router, recorder, req); err != nil {
		if !jsonOutput {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

// readPrompt 拼接位置参数；没有参数或参数为 "-" 时读取标准输入。
func readPrompt(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.TrimSpace(strings.Join(args, " ")), nil
	}
	if stdin == nil {
		return "", nil
	}
	if f, ok := stdin.(*os.File); ok {
		if info, err := f.Stat(); err == nil && info.Mode()&os.ModeCharDevice != 0 {
			return "", nil
		}
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

type execRequest struct {
	Flow    flow.Descriptor
	Input   string
	ChatID  string
	History []promptflow.Message
	JSON    bool
	Timeout time.Duration
}

// runExec 通过一个独立的 Chat 发送一条消息，并把助手输出增量写到 out。
// 返回本次使用的 chat id。
func runExec(ctx context.Context, out io.Writer, inv flow.Invoker, rec promptflow.Recorder, req execRequest) (string, error) {
	chat := promptflow.New(promptflow.Options{
		Invoker:  inv,
		Flows:    []flow.Descriptor{req.Flow},
		Recorder: rec,
		ChatID:   req.ChatID,
		Messages: req.History,
		Timeout:  req.Timeout,
	})
	defer chat.Close()

	selected := req.Flow
	chat.SetFlow(&selected)
	sub := chat.Subscribe()
	if err := chat.SendMessage(ctx, req.Input); err != nil {
		if req.JSON {
			emitEvent(out, jsonEvent{Type: "turn.failed", Flow: selected.Identifier, Error: &eventError{Message: err.Error()}})
		}
		return "", err
	}
	chatID := chat.ChatID()
	if req.JSON {
		emitEvent(out, jsonEvent{Type: "turn.started", ChatID: chatID, Flow: selected.Identifier})
	}

	done := make(chan struct{})
	go func() {
		chat.Wait()
		close(done)
	}()

	printed := 0
	var full string
	flush := func() {
		msgs := chat.Messages()
		if len(msgs) == 0 || msgs[len(msgs)-1].Role != flow.RoleAssistant {
			return
		}
		full = msgs[len(msgs)-1].Content
		if len(full) <= printed {
			return
		}
		delta := full[printed:]
		printed = len(full)
		if req.JSON {
			emitEvent(out, jsonEvent{Type: "output.delta", Text: delta})
		} else {
			fmt.Fprint(out, delta)
		}
	}

wait:
	for {
		select {
		case <-sub:
			flush()
		case <-done:
			flush()
			break wait
		}
	}

	if msg := chat.Error(); msg != "" {
		if req.JSON {
			emitEvent(out, jsonEvent{Type: "turn.failed", ChatID: chatID, Flow: selected.Identifier, Error: &eventError{Message: msg}})
		}
		return chatID, errors.New(msg)
	}
	if req.JSON {
		emitEvent(out, jsonEvent{Type: "turn.completed", ChatID: chatID, Flow: selected.Identifier, Text: full})
	} else if printed > 0 && !strings.HasSuffix(full, "\n") {
		fmt.Fprintln(out)
	}
	return chatID, nil
}
