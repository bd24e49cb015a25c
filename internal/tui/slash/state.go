// Package slash 实现输入框中的斜杠命令弹窗。
package slash

import (
	"sort"
	"strings"
	"unicode"

	"github.com/sahilm/fuzzy"
)

// ActionKind 描述按键触发后的处理类型。
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionClose
	ActionInsert
	ActionSubmitCommand
	ActionError
)

// Action 汇总 Slash 处理结果。
type Action struct {
	Kind     ActionKind
	Command  Command
	NewValue string
	Args     string
}

// State 维护 slash 弹窗的匹配与选择状态。
type State struct {
	items    []Item
	matches  []match
	selected int
	open     bool
	args     string
	maxLines int
}

type match struct {
	item       Item
	highlights []int
	score      int
}

func NewState() *State {
	return &State{items: builtinItems(), maxLines: 6}
}

// Open 返回弹窗是否展示。
func (s *State) Open() bool {
	return s != nil && s.open
}

// SyncInput 根据输入框首行同步过滤结果。命令词之后出现空白即关闭弹窗。
func (s *State) SyncInput(value string) {
	if s == nil {
		return
	}
	token, args, ok := parseToken(value)
	s.args = args
	if !ok || strings.ContainsAny(value, " \t\n") {
		s.open = false
		s.matches = nil
		return
	}
	s.open = true
	s.matches = filterMatches(s.items, token)
	if s.selected >= len(s.matches) {
		s.selected = 0
	}
}

func (s *State) Close() {
	if s == nil {
		return
	}
	s.open = false
	s.matches = nil
	s.selected = 0
}

// ResolveSubmit 按 Enter 行为解析完整输入，不依赖弹窗是否打开。
func (s *State) ResolveSubmit(value string) Action {
	token, args, ok := parseToken(value)
	if !ok || token == "" {
		return Action{Kind: ActionNone}
	}
	for _, item := range s.items {
		if strings.EqualFold(string(item.Command), token) {
			return Action{Kind: ActionSubmitCommand, Command: item.Command, Args: args}
		}
	}
	return Action{Kind: ActionError}
}

// HandleKey 处理弹窗打开时的按键；未处理时返回 false。
func (s *State) HandleKey(key string) (Action, bool) {
	if !s.Open() {
		return Action{}, false
	}
	switch key {
	case "up", "ctrl+p":
		if len(s.matches) > 0 {
			s.selected = (s.selected - 1 + len(s.matches)) % len(s.matches)
		}
		return Action{Kind: ActionNone}, true
	case "down", "ctrl+n":
		if len(s.matches) > 0 {
			s.selected = (s.selected + 1) % len(s.matches)
		}
		return Action{Kind: ActionNone}, true
	case "esc":
		s.Close()
		return Action{Kind: ActionClose}, true
	case "tab":
		if len(s.matches) == 0 {
			return Action{Kind: ActionError}, true
		}
		item := s.matches[s.selected].item
		s.Close()
		return Action{Kind: ActionInsert, Command: item.Command, NewValue: item.DisplayName() + " "}, true
	case "enter":
		if len(s.matches) == 0 {
			return Action{Kind: ActionError}, true
		}
		item := s.matches[s.selected].item
		s.Close()
		return Action{Kind: ActionSubmitCommand, Command: item.Command, Args: s.args}, true
	default:
		return Action{}, false
	}
}

// Selected 返回当前选中的命令。
func (s *State) Selected() (Item, bool) {
	if !s.Open() || len(s.matches) == 0 {
		return Item{}, false
	}
	return s.matches[s.selected].item, true
}

func parseToken(value string) (string, string, bool) {
	line, _, _ := strings.Cut(value, "\n")
	if !strings.HasPrefix(line, "/") {
		return "", "", false
	}
	body := line[1:]
	end := strings.IndexFunc(body, unicode.IsSpace)
	if end < 0 {
		return body, "", !strings.Contains(body, "/")
	}
	token := body[:end]
	if strings.Contains(token, "/") {
		return "", "", false
	}
	return token, strings.TrimSpace(body[end:]), true
}

func filterMatches(items []Item, query string) []match {
	query = strings.TrimSpace(query)
	if query == "" {
		out := make([]match, 0, len(items))
		for _, item := range items {
			out = append(out, match{item: item})
		}
		return out
	}
	keys := make([]string, len(items))
	for i, item := range items {
		keys[i] = string(item.Command)
	}
	results := fuzzy.Find(strings.ToLower(query), keys)
	out := make([]match, 0, len(results))
	for _, res := range results {
		out = append(out, match{item: items[res.Index], highlights: res.MatchedIndexes, score: res.Score})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].score == out[j].score {
			return out[i].item.Command < out[j].item.Command
		}
		return out[i].score > out[j].score
	})
	return out
}
