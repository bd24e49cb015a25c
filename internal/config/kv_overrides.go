package config

import (
	"strings"
)

// ApplyKVOverrides 应用 -c key=value 覆盖项，未知 key 忽略。
func ApplyKVOverrides(cfg Config, overrides []string) Config {
	for _, raw := range overrides {
		parts := strings.SplitN(raw, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		val := strings.TrimSpace(parts[1])
		switch key {
		case "language", "lang":
			cfg.Language = val
		case "flows_file":
			cfg.FlowsFile = val
		case "chat_store.kind":
			cfg.ChatStore.Kind = val
		case "chat_store.dir":
			cfg.ChatStore.Dir = val
		case "chat_store.table":
			cfg.ChatStore.Table = val
		case "openai.url":
			cfg.OpenAI.URL = val
		case "openai.token":
			cfg.OpenAI.Token = val
		case "openai.model":
			cfg.OpenAI.Model = val
		case "anthropic.url":
			cfg.Anthropic.URL = val
		case "anthropic.token":
			cfg.Anthropic.Token = val
		case "anthropic.model":
			cfg.Anthropic.Model = val
		case "bedrock.region":
			cfg.Bedrock.Region = val
		}
	}
	return cfg
}
