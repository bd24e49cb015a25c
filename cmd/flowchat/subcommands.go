package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"flowchat/internal/chatlist"
	"flowchat/internal/config"
	"flowchat/internal/flow"
)

func initMain(root rootArgs, args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	var cfgPath string
	var force bool
	fs.StringVar(&cfgPath, "config", root.cfgPath, "Path to write (default ~/.flowchat/config.toml)")
	fs.BoolVar(&force, "force", false, "Overwrite an existing config file")
	if err := fs.Parse(args); err != nil {
		log.Fatalf("parse init args: %v", err)
	}
	path, err := writeStarterConfig(cfgPath, force)
	if err != nil {
		log.Fatalf("%v", err)
	}
	fmt.Printf("wrote %s\n", path)
}

// writeStarterConfig 写入初始配置；文件已存在且未指定 force 时报错。
func writeStarterConfig(path string, force bool) (string, error) {
	if path == "" {
		path = config.DefaultPath()
	}
	if path == "" {
		return "", fmt.Errorf("config path is empty and $HOME is not set")
	}
	if _, err := os.Stat(path); err == nil && !force {
		return "", fmt.Errorf("%s already exists (use -force to overwrite)", path)
	}
	if err := config.Save(path, config.Starter()); err != nil {
		return "", fmt.Errorf("write config: %w", err)
	}
	return path, nil
}

func flowsMain(root rootArgs, args []string) {
	fs := flag.NewFlagSet("flows", flag.ExitOnError)
	var cfgPath string
	var configOverrides stringSlice
	var jsonOutput bool
	fs.StringVar(&cfgPath, "config", root.cfgPath, "Path to config file (default ~/.flowchat/config.toml)")
	fs.Var(&configOverrides, "c", "Override config value key=value (repeatable)")
	fs.BoolVar(&jsonOutput, "json", false, "Print flows as JSON")
	if err := fs.Parse(args); err != nil {
		log.Fatalf("parse flows args: %v", err)
	}
	cfg, err := loadConfig(cfgPath, prependOverrides(root.overrides, []string(configOverrides)))
	if err != nil {
		log.Fatalf("%v", err)
	}
	if err := printFlows(os.Stdout, loadFlows(cfg), jsonOutput); err != nil {
		log.Fatalf("print flows: %v", err)
	}
}

func printFlows(w io.Writer, flows []flow.Descriptor, asJSON bool) error {
	if asJSON {
		if flows == nil {
			flows = []flow.Descriptor{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(flows)
	}
	if len(flows) == 0 {
		_, err := fmt.Fprintln(w, "no flows configured")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "IDENTIFIER\tNAME\tBACKEND\tDESCRIPTION")
	for _, f := range flows {
		backend := f.Backend
		if backend == "" {
			backend = flow.BackendEcho
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.Identifier, f.Label(), backend, f.Description)
	}
	return tw.Flush()
}

func chatsMain(root rootArgs, args []string) {
	fs := flag.NewFlagSet("chats", flag.ExitOnError)
	var cfgPath string
	var configOverrides stringSlice
	var jsonOutput bool
	var deleteID string
	fs.StringVar(&cfgPath, "config", root.cfgPath, "Path to config file (default ~/.flowchat/config.toml)")
	fs.Var(&configOverrides, "c", "Override config value key=value (repeatable)")
	fs.BoolVar(&jsonOutput, "json", false, "Print chats as JSON")
	fs.StringVar(&deleteID, "delete", "", "Delete the chat with this id")
	if err := fs.Parse(args); err != nil {
		log.Fatalf("parse chats args: %v", err)
	}
	ctx := context.Background()
	cfg, err := loadConfig(cfgPath, prependOverrides(root.overrides, []string(configOverrides)))
	if err != nil {
		log.Fatalf("%v", err)
	}
	a, err := newApp(ctx, cfg)
	if err != nil {
		log.Fatalf("init: %v", err)
	}
	if deleteID != "" {
		if err := a.list.Store().Delete(ctx, deleteID); err != nil {
			log.Fatalf("delete chat %s: %v", deleteID, err)
		}
		fmt.Printf("deleted %s\n", deleteID)
		return
	}
	chats, err := a.list.Chats(ctx)
	if err != nil {
		log.Fatalf("list chats: %v", err)
	}
	if err := printChats(os.Stdout, chats, jsonOutput); err != nil {
		log.Fatalf("print chats: %v", err)
	}
}

type chatSummary struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Flow     string    `json:"flow,omitempty"`
	Messages int       `json:"messages"`
	Updated  time.Time `json:"updated"`
}

func printChats(w io.Writer, chats []chatlist.Chat, asJSON bool) error {
	summaries := make([]chatSummary, 0, len(chats))
	for _, c := range chats {
		summaries = append(summaries, chatSummary{
			ID:       c.ID,
			Title:    c.Title,
			Flow:     c.FlowIdentifier,
			Messages: len(c.Messages),
			Updated:  c.Updated,
		})
	}
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(summaries)
	}
	if len(summaries) == 0 {
		_, err := fmt.Fprintln(w, "no chats yet")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tFLOW\tMESSAGES\tUPDATED")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", s.ID, s.Title, s.Flow, s.Messages, s.Updated.Local().Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}
