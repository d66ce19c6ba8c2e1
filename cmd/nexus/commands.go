package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/haasonsaas/nexus/internal/agent"
	"github.com/haasonsaas/nexus/internal/agent/providers"
	modelcatalog "github.com/haasonsaas/nexus/internal/models"
	"github.com/haasonsaas/nexus/internal/sessions"
	"github.com/haasonsaas/nexus/internal/tools/exec"
	"github.com/haasonsaas/nexus/internal/tools/files"
	modelstool "github.com/haasonsaas/nexus/internal/tools/models"
	pkgmodels "github.com/haasonsaas/nexus/pkg/models"
)

// chatOptions holds the flags for the chat command.
type chatOptions struct {
	providerKind string
	apiKey       string
	baseURL      string
	model        string
	systemPrompt string
	workspace    string
	maxIters     int
	prompt       string
}

func buildRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "nexus",
		Short:   "Drive a single agent conversation against a configured LLM provider",
		Version: fmt.Sprintf("%s (%s)", version, commit),
	}

	root.AddCommand(buildChatCmd())
	root.AddCommand(buildModelsCmd())
	return root
}

func buildChatCmd() *cobra.Command {
	opts := &chatOptions{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation with an agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.providerKind, "provider", "anthropic", "LLM provider: anthropic, openai, azure, bedrock, google, ollama, openrouter")
	flags.StringVar(&opts.apiKey, "api-key", "", "API key for the provider (defaults to the provider's standard env var)")
	flags.StringVar(&opts.baseURL, "base-url", "", "Override base URL for the provider, if applicable")
	flags.StringVar(&opts.model, "model", "", "Default model id; provider-specific default is used when empty")
	flags.StringVar(&opts.systemPrompt, "system", "You are a helpful assistant with access to a small set of tools.", "System prompt for the agent")
	flags.StringVar(&opts.workspace, "workspace", ".", "Directory the file and exec tools are scoped to")
	flags.IntVar(&opts.maxIters, "max-iterations", 25, "Maximum agentic loop turns before the runtime forces a stop")
	flags.StringVar(&opts.prompt, "prompt", "", "Send a single message non-interactively instead of opening a REPL")

	return cmd
}

func buildModelsCmd() *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List models known to the built-in catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog := modelcatalog.NewCatalog()
			var list []*modelcatalog.Model
			if provider != "" {
				list = catalog.ListByProvider(modelcatalog.Provider(provider))
			} else {
				list = catalog.List(nil)
			}
			for _, m := range list {
				fmt.Fprintf(cmd.OutOrStdout(), "%-10s %-30s context=%d\n", m.Provider, m.ID, m.ContextWindow)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&provider, "provider", "", "Filter by provider")
	return cmd
}

func runChat(ctx context.Context, opts *chatOptions) error {
	apiKey := opts.apiKey
	if apiKey == "" {
		apiKey = os.Getenv(envVarForProvider(opts.providerKind))
	}

	provider, err := providers.New(providers.ProviderSpec{
		Kind:         opts.providerKind,
		APIKey:       apiKey,
		BaseURL:      opts.baseURL,
		DefaultModel: opts.model,
	})
	if err != nil {
		return fmt.Errorf("construct provider %q: %w", opts.providerKind, err)
	}

	store := sessions.NewMemoryStore()
	runtime := agent.NewRuntime(provider, store)
	runtime.SetSystemPrompt(opts.systemPrompt)
	runtime.SetMaxIterations(opts.maxIters)
	if opts.model != "" {
		runtime.SetDefaultModel(opts.model)
	}

	registerTools(runtime, opts.workspace)

	agentID := "cli-agent"
	session, err := store.GetOrCreate(ctx, sessions.SessionKey(agentID, pkgmodels.ChannelAPI, "cli"), agentID, pkgmodels.ChannelAPI, "cli")
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	if opts.prompt != "" {
		return sendAndPrint(ctx, runtime, session, opts.prompt)
	}

	return repl(ctx, runtime, session)
}

// envVarForProvider names the standard environment variable a provider
// kind reads its API key from, when --api-key is not passed explicitly.
func envVarForProvider(kind string) string {
	switch kind {
	case "openai":
		return "OPENAI_API_KEY"
	case "azure":
		return "AZURE_OPENAI_API_KEY"
	case "google", "gemini":
		return "GOOGLE_API_KEY"
	case "openrouter":
		return "OPENROUTER_API_KEY"
	default:
		return "ANTHROPIC_API_KEY"
	}
}

func registerTools(runtime *agent.Runtime, workspace string) {
	fileCfg := files.Config{Workspace: workspace}
	runtime.RegisterTool(files.NewReadTool(fileCfg))
	runtime.RegisterTool(files.NewWriteTool(fileCfg))
	runtime.RegisterTool(files.NewEditTool(fileCfg))
	runtime.RegisterTool(files.NewApplyPatchTool(fileCfg))

	execManager := exec.NewManager(workspace)
	runtime.RegisterTool(exec.NewExecTool("shell", execManager))
	runtime.RegisterTool(exec.NewProcessTool(execManager))

	runtime.RegisterTool(modelstool.NewTool(modelcatalog.NewCatalog(), nil))
}

func repl(ctx context.Context, runtime *agent.Runtime, session *pkgmodels.Session) error {
	fmt.Println("nexus chat - type 'exit' to quit")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}
		if err := sendAndPrint(ctx, runtime, session, line); err != nil {
			slog.Error("message failed", "error", err)
		}
	}
}

func sendAndPrint(ctx context.Context, runtime *agent.Runtime, session *pkgmodels.Session, content string) error {
	msg := &pkgmodels.Message{
		ID:        uuid.New().String(),
		SessionID: session.ID,
		Channel:   pkgmodels.ChannelAPI,
		Direction: pkgmodels.DirectionInbound,
		Role:      pkgmodels.RoleUser,
		Content:   content,
		CreatedAt: time.Now(),
	}

	chunks, err := runtime.Process(ctx, session, msg)
	if err != nil {
		return err
	}

	for chunk := range chunks {
		if chunk.Error != nil {
			return chunk.Error
		}
		if chunk.Text != "" {
			fmt.Print(chunk.Text)
		}
		if chunk.ToolEvent != nil {
			fmt.Fprintf(os.Stderr, "\n[tool: %s]\n", chunk.ToolEvent.ToolName)
		}
	}
	fmt.Println()
	return nil
}
