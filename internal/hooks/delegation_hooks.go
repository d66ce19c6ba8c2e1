package hooks

import (
	"context"
	"log/slog"
	"sync"
)

// Delegation hook event types, following the same Clawdbot-derived pattern
// as the tool execution hooks above.
const (
	// EventAgentPreDelegation fires before a delegation tool call hands a
	// prompt to its target agent. Handlers may cancel the delegation.
	EventAgentPreDelegation EventType = "agent.delegation.pre"

	// EventAgentPostDelegation fires after the target agent has produced its
	// final content. Handlers may replace the result returned to the caller.
	EventAgentPostDelegation EventType = "agent.delegation.post"
)

// DelegationHookContext carries the caller/target pair and prompt/result for
// one delegation call.
type DelegationHookContext struct {
	// Delegator is the agent name initiating the delegation.
	Delegator string `json:"delegator"`

	// Target is the agent name the prompt is being delegated to.
	Target string `json:"target"`

	// ToolCallID is the delegation tool call this hook is running for.
	ToolCallID string `json:"tool_call_id"`

	// Prompt is the text handed to the target agent.
	Prompt string `json:"prompt"`

	// Result is the target agent's final content (set before the post hook).
	Result string `json:"result,omitempty"`

	// Canceled halts the delegation; CancelReason is returned as the tool
	// result instead of running the target agent.
	Canceled     bool   `json:"canceled"`
	CancelReason string `json:"cancel_reason,omitempty"`

	// Modified indicates a hook replaced Result.
	Modified bool `json:"modified"`
}

// DelegationPreHook runs before a delegation call reaches its target agent.
type DelegationPreHook func(ctx context.Context, hookCtx *DelegationHookContext) error

// DelegationPostHook runs after a delegation call's target agent completes.
type DelegationPostHook func(ctx context.Context, hookCtx *DelegationHookContext) error

// DelegationHookManager manages pre_delegation/post_delegation hooks.
type DelegationHookManager struct {
	registry *Registry
	logger   *slog.Logger
	mu       sync.RWMutex
}

// NewDelegationHookManager creates a delegation hook manager over registry.
// A nil registry uses the package-global registry.
func NewDelegationHookManager(registry *Registry, logger *slog.Logger) *DelegationHookManager {
	if logger == nil {
		logger = slog.Default()
	}
	if registry == nil {
		registry = Global()
	}
	return &DelegationHookManager{
		registry: registry,
		logger:   logger.With("component", "delegation-hooks"),
	}
}

// RegisterPreHook registers a pre_delegation hook.
func (m *DelegationHookManager) RegisterPreHook(name string, handler DelegationPreHook, opts ...RegisterOption) string {
	wrapped := func(ctx context.Context, event *Event) error {
		hookCtx, ok := event.Context["delegation_hook_context"].(*DelegationHookContext)
		if !ok {
			return nil
		}
		return handler(ctx, hookCtx)
	}
	return m.registry.Register(string(EventAgentPreDelegation), wrapped, append([]RegisterOption{WithName(name)}, opts...)...)
}

// RegisterPostHook registers a post_delegation hook.
func (m *DelegationHookManager) RegisterPostHook(name string, handler DelegationPostHook, opts ...RegisterOption) string {
	wrapped := func(ctx context.Context, event *Event) error {
		hookCtx, ok := event.Context["delegation_hook_context"].(*DelegationHookContext)
		if !ok {
			return nil
		}
		return handler(ctx, hookCtx)
	}
	return m.registry.Register(string(EventAgentPostDelegation), wrapped, append([]RegisterOption{WithName(name)}, opts...)...)
}

// TriggerPreDelegation runs every registered pre_delegation hook in priority
// order. hookCtx.Canceled may be set by a handler to halt the delegation.
func (m *DelegationHookManager) TriggerPreDelegation(ctx context.Context, hookCtx *DelegationHookContext) error {
	event := NewEvent(EventAgentPreDelegation, "pre_delegation").
		WithContext("delegation_hook_context", hookCtx)
	return m.registry.Trigger(ctx, event)
}

// TriggerPostDelegation runs every registered post_delegation hook.
func (m *DelegationHookManager) TriggerPostDelegation(ctx context.Context, hookCtx *DelegationHookContext) error {
	event := NewEvent(EventAgentPostDelegation, "post_delegation").
		WithContext("delegation_hook_context", hookCtx)
	return m.registry.Trigger(ctx, event)
}
