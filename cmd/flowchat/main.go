package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"flowchat/internal/chatlist"
	"flowchat/internal/history"
	"flowchat/internal/logger"
	"flowchat/internal/promptflow"
	"flowchat/internal/tui"
)

var log = logger.Named("main")

func main() {
	logger.Configure()
	if logFile, _, err := logger.SetupFile(logger.DefaultLogPath); err != nil {
		log.Warnf("failed to initialize log file: %v", err)
	} else {
		defer logFile.Close()
	}
	if entry, closer, _, err := logger.SetupComponentFile("flow", logger.DefaultFlowLogPath); err != nil {
		log.Warnf("failed to initialize flow log (%s): %v", logger.DefaultFlowLogPath, err)
	} else {
		logger.SetFlowLog(logger.NewFlowLogger(entry))
		if closer != nil {
			defer closer.Close()
		}
	}

	root, rest, err := parseRootArgs(os.Args[1:])
	if err != nil {
		log.Fatalf("parse args: %v", err)
	}
	if len(rest) > 0 {
		switch rest[0] {
		case "flows":
			flowsMain(root, rest[1:])
			return
		case "chats":
			chatsMain(root, rest[1:])
			return
		case "exec":
			execMain(root, rest[1:])
			return
		case "init":
			initMain(root, rest[1:])
			return
		}
	}

	runInteractive(root, rest)
}

func runInteractive(root rootArgs, args []string) {
	fs, cli := newInteractiveFlagSet("flowchat")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatalf("parse args: %v", err)
	}
	cli.finalize(fs)
	if cli.cfgPath == "" {
		cli.cfgPath = root.cfgPath
	}
	overrides := prependOverrides(root.overrides, []string(cli.configOverrides))

	route, err := cli.route()
	if err != nil {
		log.Fatalf("invalid location: %v", err)
	}
	cfg, err := loadConfig(cli.cfgPath, overrides)
	if err != nil {
		log.Fatalf("%v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a, err := newApp(ctx, cfg)
	if err != nil {
		log.Fatalf("init: %v", err)
	}

	opts := promptflow.Options{
		Invoker:  a.router,
		Flows:    loadFlows(cfg),
		Recorder: a.list,
		Timeout:  cli.timeout,
	}
	if route.ChatID != "" {
		rec, err := a.list.Load(ctx, route.ChatID)
		switch {
		case err == nil:
			opts.ChatID = rec.ID
			opts.Messages = rec.Messages
		case errors.Is(err, chatlist.ErrNotFound):
			log.Infof("chat %s not found; starting empty", route.ChatID)
		default:
			log.Warnf("failed to load chat %s: %v", route.ChatID, err)
		}
	}
	chat := promptflow.New(opts)
	defer chat.Close()

	hist, err := history.NewDefault()
	if err != nil {
		log.Warnf("prompt history disabled: %v", err)
		hist = nil
	}

	result, err := tui.Run(tui.Options{
		Context:       ctx,
		Chat:          chat,
		Titles:        a.list,
		Route:         route,
		Language:      cfg.Language,
		History:       hist,
		Reload:        reloadFlows(cli.cfgPath, overrides),
		MarkdownStyle: cli.markdownStyle,
	})
	if err != nil {
		log.Fatalf("program exit: %v", err)
	}
	printExitSummary(result.ChatID, len(result.Messages))
}

func printExitSummary(chatID string, messages int) {
	if chatID == "" || messages == 0 {
		return
	}
	fmt.Printf("To continue this chat, run flowchat -chat %s\n", chatID)
}
