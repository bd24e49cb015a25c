package main

import (
	"flag"
	"net/url"
	"strings"
	"time"

	"flowchat/internal/page"
)

// interactiveArgs 是交互式页面的参数。
type interactiveArgs struct {
	cfgPath         string
	configOverrides stringSlice
	chatID          string
	content         string
	contentSet      bool
	open            string
	markdownStyle   string
	timeout         time.Duration
}

func newInteractiveFlagSet(name string) (*flag.FlagSet, *interactiveArgs) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	args := &interactiveArgs{}

	fs.StringVar(&args.cfgPath, "config", "", "Path to config file (default ~/.flowchat/config.toml)")
	fs.Var(&args.configOverrides, "c", "Override config value key=value (repeatable)")
	fs.StringVar(&args.chatID, "chat", "", "Chat id to open")
	fs.StringVar(&args.content, "content", "", "Pre-fill the draft")
	fs.StringVar(&args.open, "open", "", "Page location to open, e.g. /prompt-flow-chat/<id>?content=hi")
	fs.StringVar(&args.markdownStyle, "markdown-style", "", "Glamour style (dark|light|notty), auto-detected when empty")
	fs.DurationVar(&args.timeout, "timeout", 0, "Per-message timeout, 0 disables it")

	return fs, args
}

// finalize 记录 -content 是否显式给出；空字符串同样会覆盖草稿。
func (i *interactiveArgs) finalize(fs *flag.FlagSet) {
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "content" {
			i.contentSet = true
		}
	})
	if !i.contentSet && fs.NArg() > 0 {
		i.content = strings.Join(fs.Args(), " ")
		i.contentSet = true
	}
}

// route 把 -open / -chat / -content 组合成页面位置。-chat 与 -content 优先于 -open 中的同名部分。
func (i *interactiveArgs) route() (page.Route, error) {
	var r page.Route
	if strings.TrimSpace(i.open) != "" {
		parsed, err := page.ParseRoute(i.open)
		if err != nil {
			return page.Route{}, err
		}
		r = parsed
	}
	if id := strings.TrimSpace(i.chatID); id != "" {
		r.ChatID = id
	}
	if i.contentSet {
		q := url.Values{}
		for k, v := range r.Query {
			q[k] = v
		}
		q.Set("content", i.content)
		r.Query = q
		r.Search = "?" + q.Encode()
	}
	return r, nil
}
