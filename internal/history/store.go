// Package history 记录已发送的草稿，供输入框上下翻阅。
package history

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultLimit 是加载时保留的最大条数。
const DefaultLimit = 500

type Entry struct {
	Text string    `json:"text"`
	Flow string    `json:"flow,omitempty"`
	TS   time.Time `json:"ts"`
}

type Store struct {
	Path string
	// Limit 限制 Load 返回的条数（保留最新的），<=0 时使用 DefaultLimit。
	Limit int
}

func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".flowchat", "history.jsonl"), nil
}

func NewDefault() (*Store, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return &Store{Path: path}, nil
}

func (s *Store) check() error {
	if s == nil {
		return errors.New("history store is nil")
	}
	if strings.TrimSpace(s.Path) == "" {
		return errors.New("history store path is empty")
	}
	return nil
}

// Append 追加一条草稿；空白文本被忽略。
func (s *Store) Append(text, flowID string) error {
	if err := s.check(); err != nil {
		return err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(s.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	data, err := json.Marshal(Entry{Text: text, Flow: flowID, TS: time.Now()})
	if err != nil {
		return err
	}
	_, err = f.Write(append(data, '\n'))
	return err
}

// Load 读取历史，跳过无法解析的行，连续重复的文本只保留一次。
func (s *Store) Load() ([]Entry, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var out []Entry
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(line), &e); err != nil || strings.TrimSpace(e.Text) == "" {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Text == e.Text {
			out[n-1] = e
			continue
		}
		out = append(out, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	limit := s.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// Texts 返回 Load 结果中的文本。
func (s *Store) Texts() ([]string, error) {
	entries, err := s.Load()
	if err != nil {
		return nil, err
	}
	texts := make([]string, len(entries))
	for i, e := range entries {
		texts[i] = e.Text
	}
	return texts, nil
}
