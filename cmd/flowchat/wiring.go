package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"flowchat/internal/chatlist"
	"flowchat/internal/config"
	"flowchat/internal/flow"
	anthropicflow "flowchat/internal/flow/anthropic"
	"flowchat/internal/flow/bedrock"
	openaiflow "flowchat/internal/flow/openai"
	"flowchat/internal/paramstore"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// app 汇总一次运行所需的后端、会话存储与 flow 列表。
type app struct {
	cfg    config.Config
	router *flow.Router
	list   *chatlist.List
}

func loadConfig(cfgPath string, overrides []string) (config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	return config.ApplyKVOverrides(cfg, overrides), nil
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	var awsCfg *aws.Config
	if cfg.UsesAWS() {
		loaded, err := loadAWSConfig(ctx, cfg.Bedrock.Region)
		if err != nil {
			return nil, err
		}
		awsCfg = &loaded
	}

	var params paramstore.Getter
	if awsCfg != nil {
		client, err := paramstore.New(ssm.NewFromConfig(*awsCfg))
		if err != nil {
			return nil, err
		}
		params = client
	}

	router, err := buildRouter(ctx, cfg, params, awsCfg)
	if err != nil {
		return nil, err
	}
	store, err := buildStore(cfg, awsCfg)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, router: router, list: chatlist.New(store)}, nil
}

func loadAWSConfig(ctx context.Context, region string) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if strings.TrimSpace(region) != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return cfg, nil
}

// buildRouter 总是注册 echo；HTTP 后端在拿到令牌时注册，bedrock 在有 AWS 配置时注册。
func buildRouter(ctx context.Context, cfg config.Config, params paramstore.Getter, awsCfg *aws.Config) (*flow.Router, error) {
	router := flow.NewRouter(flow.BackendEcho)
	router.Register(flow.BackendEcho, flow.EchoInvoker{Prefix: "echo: "})

	token, err := paramstore.ResolveToken(ctx, params, cfg.OpenAI.Token, cfg.OpenAI.TokenParameter)
	if err != nil {
		return nil, fmt.Errorf("resolve openai token: %w", err)
	}
	if token != "" {
		client, err := openaiflow.New(openaiflow.Options{APIKey: token, BaseURL: cfg.OpenAI.URL, Model: cfg.OpenAI.Model})
		if err != nil {
			return nil, fmt.Errorf("init openai backend: %w", err)
		}
		router.Register(flow.BackendOpenAI, client)
	}

	token, err = paramstore.ResolveToken(ctx, params, cfg.Anthropic.Token, cfg.Anthropic.TokenParameter)
	if err != nil {
		return nil, fmt.Errorf("resolve anthropic token: %w", err)
	}
	if token != "" {
		client, err := anthropicflow.New(anthropicflow.Options{Token: token, BaseURL: cfg.Anthropic.URL, Model: cfg.Anthropic.Model})
		if err != nil {
			return nil, fmt.Errorf("init anthropic backend: %w", err)
		}
		router.Register(flow.BackendAnthropic, client)
	}

	if awsCfg != nil {
		client, err := bedrock.New(bedrockagentruntime.NewFromConfig(*awsCfg))
		if err != nil {
			return nil, fmt.Errorf("init bedrock backend: %w", err)
		}
		router.Register(flow.BackendBedrock, client)
	}
	return router, nil
}

func buildStore(cfg config.Config, awsCfg *aws.Config) (chatlist.Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.ChatStore.Kind)) {
	case "", config.StoreFile:
		dir := strings.TrimSpace(cfg.ChatStore.Dir)
		if dir == "" {
			var err error
			if dir, err = chatlist.DefaultDir(); err != nil {
				return nil, err
			}
		}
		return chatlist.NewFileStore(dir), nil
	case config.StoreDynamoDB:
		if awsCfg == nil {
			return nil, errors.New("dynamodb chat store requires aws config")
		}
		return chatlist.NewDynamoStore(dynamodb.NewFromConfig(*awsCfg), cfg.ChatStore.Table)
	default:
		return nil, fmt.Errorf("unknown chat store kind %q", cfg.ChatStore.Kind)
	}
}

// loadFlows 合并 config.toml 中的 [[flows]] 与 flows_file。目录文件缺失时只记录警告。
func loadFlows(cfg config.Config) []flow.Descriptor {
	flows := cfg.Flows
	if strings.TrimSpace(cfg.FlowsFile) == "" {
		return flow.Merge(flows)
	}
	extra, err := flow.LoadCatalog(cfg.FlowsFile)
	if err != nil {
		log.Warnf("failed to load flow catalog: %v", err)
		return flow.Merge(flows)
	}
	return flow.Merge(flows, extra)
}

// reloadFlows 重新读取配置文件与 flow 目录，供 /reload 使用。
func reloadFlows(cfgPath string, overrides []string) func(ctx context.Context) ([]flow.Descriptor, error) {
	return func(ctx context.Context) ([]flow.Descriptor, error) {
		cfg, err := loadConfig(cfgPath, overrides)
		if err != nil {
			return nil, err
		}
		if cfg.FlowsFile != "" {
			if _, err := flow.LoadCatalog(cfg.FlowsFile); err != nil {
				return nil, err
			}
		}
		return loadFlows(cfg), nil
	}
}

// pickFlow 返回 identifier 对应的 flow；identifier 为空时返回第一个。
func pickFlow(flows []flow.Descriptor, identifier string) (flow.Descriptor, error) {
	if strings.TrimSpace(identifier) == "" {
		if len(flows) == 0 {
			return flow.Descriptor{}, errors.New("no flow available")
		}
		return flows[0], nil
	}
	for _, f := range flows {
		if f.Identifier == identifier || (f.AliasIdentifier != "" && f.AliasIdentifier == identifier) {
			return f, nil
		}
	}
	return flow.Descriptor{}, fmt.Errorf("unknown flow %q", identifier)
}
