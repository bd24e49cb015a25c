package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"flowchat/internal/flow"

	"github.com/pelletier/go-toml/v2"
)

// Chat store kinds.
const (
	StoreFile     = "file"
	StoreDynamoDB = "dynamodb"
)

// Provider 是一个 HTTP 模型后端的连接参数。TokenParameter 指向 SSM 参数名，
// Token 为空时从中读取。
type Provider struct {
	URL            string `toml:"url,omitempty"`
	Token          string `toml:"token,omitempty"`
	TokenParameter string `toml:"token_parameter,omitempty"`
	Model          string `toml:"model,omitempty"`
}

type Bedrock struct {
	Region string `toml:"region,omitempty"`
}

type ChatStore struct {
	Kind  string `toml:"kind,omitempty"`
	Dir   string `toml:"dir,omitempty"`
	Table string `toml:"table,omitempty"`
}

// Config 是 config.toml 的完整结构。
type Config struct {
	Language  string            `toml:"language,omitempty"`
	FlowsFile string            `toml:"flows_file,omitempty"`
	ChatStore ChatStore         `toml:"chat_store"`
	OpenAI    Provider          `toml:"openai"`
	Anthropic Provider          `toml:"anthropic"`
	Bedrock   Bedrock           `toml:"bedrock"`
	Flows     []flow.Descriptor `toml:"flows"`
	Source    string            `toml:"-"`
}

func Default() Config {
	return Config{
		Language:  "en",
		ChatStore: ChatStore{Kind: StoreFile},
	}
}

// Dir 返回 ~/.flowchat。
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".flowchat")
}

func DefaultPath() string {
	dir := Dir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.toml")
}

// Load 读取配置；文件不存在时返回默认值。环境变量总是覆盖文件内容。
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath()
	}
	if path == "" {
		return cfg, errors.New("config path is empty and $HOME is not set")
	}
	cfg.Source = path

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return applyEnv(cfg), nil
		}
		return cfg, err
	}
	if err := toml.Unmarshal(content, &cfg); err != nil {
		return cfg, err
	}
	if strings.TrimSpace(cfg.ChatStore.Kind) == "" {
		cfg.ChatStore.Kind = StoreFile
	}
	if cfg.FlowsFile != "" && !filepath.IsAbs(cfg.FlowsFile) {
		cfg.FlowsFile = filepath.Join(filepath.Dir(path), cfg.FlowsFile)
	}
	return applyEnv(cfg), nil
}

func applyEnv(cfg Config) Config {
	if env := strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")); env != "" {
		cfg.OpenAI.URL = env
	}
	if env := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); env != "" {
		cfg.OpenAI.Token = env
	}
	if env := strings.TrimSpace(os.Getenv("ANTHROPIC_BASE_URL")); env != "" {
		cfg.Anthropic.URL = env
	}
	if env := strings.TrimSpace(os.Getenv("ANTHROPIC_AUTH_TOKEN")); env != "" {
		cfg.Anthropic.Token = env
	}
	if env := strings.TrimSpace(os.Getenv("AWS_REGION")); env != "" && cfg.Bedrock.Region == "" {
		cfg.Bedrock.Region = env
	}
	return cfg
}

// UsesAWS 报告是否需要加载 AWS SDK 配置。
func (c Config) UsesAWS() bool {
	if c.ChatStore.Kind == StoreDynamoDB || c.OpenAI.TokenParameter != "" || c.Anthropic.TokenParameter != "" {
		return true
	}
	for _, f := range c.Flows {
		if strings.EqualFold(f.Backend, flow.BackendBedrock) {
			return true
		}
	}
	return false
}
