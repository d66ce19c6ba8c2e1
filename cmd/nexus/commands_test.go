package main

import (
	"bytes"
	"testing"
)

func TestEnvVarForProvider(t *testing.T) {
	tests := []struct {
		kind string
		want string
	}{
		{"anthropic", "ANTHROPIC_API_KEY"},
		{"", "ANTHROPIC_API_KEY"},
		{"openai", "OPENAI_API_KEY"},
		{"azure", "AZURE_OPENAI_API_KEY"},
		{"google", "GOOGLE_API_KEY"},
		{"gemini", "GOOGLE_API_KEY"},
		{"openrouter", "OPENROUTER_API_KEY"},
		{"unknown", "ANTHROPIC_API_KEY"},
	}

	for _, tt := range tests {
		if got := envVarForProvider(tt.kind); got != tt.want {
			t.Errorf("envVarForProvider(%q) = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestBuildRootCmd_HasSubcommands(t *testing.T) {
	root := buildRootCmd()

	names := map[string]bool{}
	for _, cmd := range root.Commands() {
		names[cmd.Name()] = true
	}

	for _, want := range []string{"chat", "models"} {
		if !names[want] {
			t.Errorf("root command missing %q subcommand", want)
		}
	}
}

func TestBuildModelsCmd_ListsCatalog(t *testing.T) {
	cmd := buildModelsCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(nil)

	if err := cmd.RunE(cmd, nil); err != nil {
		t.Fatalf("RunE() error = %v", err)
	}

	if out.Len() == 0 {
		t.Error("models command should print at least one model")
	}
}

func TestBuildChatCmd_FlagsRegistered(t *testing.T) {
	cmd := buildChatCmd()
	for _, name := range []string{"provider", "api-key", "base-url", "model", "system", "workspace", "max-iterations", "prompt"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("chat command missing flag %q", name)
		}
	}
}
