package main

import (
	"fmt"
	"strings"
)

type rootArgs struct {
	cfgPath   string
	overrides []string
}

// parseRootArgs 只消费前置的 -c 与 -config，遇到其它参数即停止，
// 其余参数原样交给子命令或交互模式。
func parseRootArgs(args []string) (rootArgs, []string, error) {
	var root rootArgs
	i := 0
	for i < len(args) {
		name, value, hasValue := splitFlag(args[i])
		if name != "c" && name != "config" {
			break
		}
		if !hasValue {
			if i+1 >= len(args) {
				return rootArgs{}, nil, fmt.Errorf("flag needs an argument: -%s", name)
			}
			value = args[i+1]
			i++
		}
		i++
		if name == "c" {
			root.overrides = append(root.overrides, value)
		} else {
			root.cfgPath = value
		}
	}
	return root, args[i:], nil
}

func splitFlag(arg string) (name, value string, hasValue bool) {
	if !strings.HasPrefix(arg, "-") || arg == "-" || arg == "--" {
		return "", "", false
	}
	name = strings.TrimPrefix(strings.TrimPrefix(arg, "-"), "-")
	if idx := strings.Index(name, "="); idx >= 0 {
		return name[:idx], name[idx+1:], true
	}
	return name, "", false
}

func prependOverrides(root []string, overrides []string) []string {
	merged := append([]string{}, root...)
	return append(merged, overrides...)
}
