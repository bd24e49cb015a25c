package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"flowchat/internal/flow"

	"github.com/pelletier/go-toml/v2"
)

// Save 以 TOML 写入配置。先写同目录临时文件再 rename，中途失败不会留下半截文件。
func Save(path string, cfg Config) error {
	if path == "" {
		path = DefaultPath()
	}
	if path == "" {
		return errors.New("config path is empty and $HOME is not set")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// Starter 返回 flowchat init 写入的初始配置：默认值加一个离线 echo flow。
func Starter() Config {
	cfg := Default()
	cfg.Flows = []flow.Descriptor{{
		Identifier:  "echo",
		Name:        "Echo",
		Description: "Replies with what you send. Replace with your own flows.",
		Backend:     flow.BackendEcho,
	}}
	return cfg
}
