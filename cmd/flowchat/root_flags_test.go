package main

import (
	"reflect"
	"testing"
)

func TestParseRootArgsAllowsUnknownFlags(t *testing.T) {
	orig := []string{"--content", "测试"}
	root, rest, err := parseRootArgs(orig)
	if err != nil {
		t.Fatalf("parseRootArgs returned error: %v", err)
	}
	if len(root.overrides) != 0 {
		t.Fatalf("expected no overrides, got %v", root.overrides)
	}
	if !reflect.DeepEqual(rest, orig) {
		t.Fatalf("expected rest to preserve args %v, got %v", orig, rest)
	}
}

func TestParseRootArgsExtractsOverrides(t *testing.T) {
	args := []string{
		"-c", "language=zh",
		"--c=chat_store.kind=dynamodb",
		"-config", "/tmp/flowchat.toml",
		"exec", "-c", "x=y", "hi",
	}
	root, rest, err := parseRootArgs(args)
	if err != nil {
		t.Fatalf("parseRootArgs returned error: %v", err)
	}
	expectedOverrides := []string{"language=zh", "chat_store.kind=dynamodb"}
	if !reflect.DeepEqual(root.overrides, expectedOverrides) {
		t.Fatalf("unexpected overrides: got %v, want %v", root.overrides, expectedOverrides)
	}
	if root.cfgPath != "/tmp/flowchat.toml" {
		t.Fatalf("unexpected config path %q", root.cfgPath)
	}
	expectedRest := []string{"exec", "-c", "x=y", "hi"}
	if !reflect.DeepEqual(rest, expectedRest) {
		t.Fatalf("unexpected rest args: got %v, want %v", rest, expectedRest)
	}
}

func TestParseRootArgsMissingValue(t *testing.T) {
	if _, _, err := parseRootArgs([]string{"-c"}); err == nil {
		t.Fatalf("expected error for -c without value")
	}
}

func TestPrependOverrides(t *testing.T) {
	got := prependOverrides([]string{"a=1"}, []string{"b=2"})
	if !reflect.DeepEqual(got, []string{"a=1", "b=2"}) {
		t.Fatalf("unexpected merge %v", got)
	}
}
