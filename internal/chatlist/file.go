package chatlist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileStore 把每个对话写成 <dir>/<id>.json。
type FileStore struct {
	dir string
}

// DefaultDir 返回 ~/.flowchat/chats。
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".flowchat", "chats"), nil
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) path(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", fmt.Errorf("invalid chat id %q", id)
	}
	return filepath.Join(s.dir, id+".json"), nil
}

func (s *FileStore) Save(_ context.Context, chat Chat) error {
	path, err := s.path(chat.ID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(chat, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (s *FileStore) Get(_ context.Context, id string) (Chat, error) {
	var chat Chat
	path, err := s.path(id)
	if err != nil {
		return chat, ErrNotFound
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return chat, ErrNotFound
		}
		return chat, err
	}
	if err := json.Unmarshal(data, &chat); err != nil {
		return chat, fmt.Errorf("decode chat %s: %w", id, err)
	}
	return chat, nil
}

// List 返回所有可解析的对话，按更新时间倒序。损坏的文件会被跳过。
func (s *FileStore) List(ctx context.Context) ([]Chat, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var chats []Chat
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		chat, err := s.Get(ctx, strings.TrimSuffix(e.Name(), ".json"))
		if err != nil {
			log.WithField("file", e.Name()).Warnf("skip chat: %v", err)
			continue
		}
		chats = append(chats, chat)
	}
	sortByUpdated(chats)
	return chats, nil
}

func (s *FileStore) Delete(_ context.Context, id string) error {
	path, err := s.path(id)
	if err != nil {
		return ErrNotFound
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return err
	}
	return nil
}
