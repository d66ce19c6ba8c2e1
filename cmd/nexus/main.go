// Package main provides a minimal command-line front end for the swarm
// runtime. It wires a single agent's session store, LLM provider, and a
// small tool catalog together and drives one conversation at a time; it is
// a demonstration binary, not the product's primary deliverable.
//
// # Basic usage
//
//	nexus chat --provider anthropic --model claude-sonnet-4-20250514
//
// # Environment variables
//
//   - ANTHROPIC_API_KEY: Anthropic API key for Claude models
//   - OPENAI_API_KEY: OpenAI API key for GPT models
//   - GOOGLE_API_KEY: Google API key for Gemini models
package main

import (
	"log/slog"
	"os"
)

// Build information, populated by ldflags during build.
//
//	go build -ldflags "-X main.version=v1.0.0 -X main.commit=$(git rev-parse HEAD)"
var (
	version = "dev"
	commit  = "none"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}
