package multiagent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/haasonsaas/nexus/internal/agent"
	"github.com/haasonsaas/nexus/internal/hooks"
	"github.com/haasonsaas/nexus/pkg/models"
)

// CircularDependencyError is a ConfigurationError subtype: no Swarm is
// constructed when the agent set's delegates_to relations contain a
// directed cycle.
type CircularDependencyError struct {
	Cycle []string
}

func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("circular delegation: %s", strings.Join(e.Cycle, " → "))
}

// DelegationGraph is the directed graph of delegates_to relations computed
// before a swarm runs.
type DelegationGraph struct {
	edges map[string][]DelegationSpec
}

// Edges returns the delegation specs for agent.
func (g *DelegationGraph) Edges(agent string) []DelegationSpec {
	return g.edges[agent]
}

// BuildDelegationGraph computes the directed delegates_to graph over agents
// and rejects any configuration containing a directed cycle, per §4.5's
// invariant: cycle detection runs before the swarm runs, and no swarm
// instance is created on failure.
func BuildDelegationGraph(agents []AgentDefinition) (*DelegationGraph, error) {
	g := &DelegationGraph{edges: make(map[string][]DelegationSpec, len(agents))}
	for _, a := range agents {
		g.edges[a.Name] = append(g.edges[a.Name], a.DelegatesTo...)
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(agents))
	var path []string

	var visit func(name string) error
	visit = func(name string) error {
		switch color[name] {
		case black:
			return nil
		case gray:
			cycleStart := 0
			for i, n := range path {
				if n == name {
					cycleStart = i
					break
				}
			}
			cycle := append(append([]string{}, path[cycleStart:]...), name)
			return &CircularDependencyError{Cycle: cycle}
		}

		color[name] = gray
		path = append(path, name)
		for _, spec := range g.edges[name] {
			if err := visit(spec.Agent); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		color[name] = black
		return nil
	}

	for _, a := range agents {
		if color[a.Name] == white {
			if err := visit(a.Name); err != nil {
				return nil, err
			}
		}
	}

	return g, nil
}

// DeriveDelegationToolName returns the PascalCase WorkWith<Target> tool name
// for a delegation, unless explicit is non-empty. Underscored agent names
// are converted component-wise: slack_agent → WorkWithSlackAgent.
func DeriveDelegationToolName(target, explicit string) string {
	if strings.TrimSpace(explicit) != "" {
		return explicit
	}
	return "WorkWith" + pascalCase(target)
}

func pascalCase(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	})
	var sb strings.Builder
	for _, part := range parts {
		if part == "" {
			continue
		}
		runes := []rune(part)
		sb.WriteRune(unicode.ToUpper(runes[0]))
		sb.WriteString(string(runes[1:]))
	}
	return sb.String()
}

// DelegationRuntimeResolver resolves a target agent name to the Runtime
// (Chat) that should execute it, and the session to run it under. Swarm
// implements this by applying §4.5's instance-keying rule.
type DelegationRuntimeResolver interface {
	ResolveDelegate(ctx context.Context, delegator string, spec DelegationSpec) (*agent.Runtime, *models.Session, error)

	// ClearDelegate drops a non-preserve_context delegation instance once
	// its call returns, per §4.5's "clear mapping" call-flow step.
	ClearDelegate(delegator string, spec DelegationSpec)
}

// DelegationTool is the synthesized WorkWith<Agent> tool installed on a
// delegator's runtime for one DelegationSpec. It implements §4.5's call
// flow: pre_delegation hook, instance resolution, agent_delegation /
// delegation_result events, T.ask(prompt), post_delegation hook.
type DelegationTool struct {
	delegator string
	spec      DelegationSpec
	toolName  string
	resolver  DelegationRuntimeResolver
	hookMgr   *hooks.DelegationHookManager
	onEvent   func(OrchestratorEvent)
}

// NewDelegationTool creates the WorkWith<Agent> tool for one delegation
// entry. onEvent, if non-nil, receives agent_delegation/delegation_result
// notifications for the event bus.
func NewDelegationTool(delegator string, spec DelegationSpec, resolver DelegationRuntimeResolver, hookMgr *hooks.DelegationHookManager, onEvent func(OrchestratorEvent)) *DelegationTool {
	return &DelegationTool{
		delegator: delegator,
		spec:      spec,
		toolName:  DeriveDelegationToolName(spec.Agent, spec.ToolName),
		resolver:  resolver,
		hookMgr:   hookMgr,
		onEvent:   onEvent,
	}
}

// Name returns the derived or explicit tool name.
func (t *DelegationTool) Name() string { return t.toolName }

// Description describes the delegation tool.
func (t *DelegationTool) Description() string {
	return fmt.Sprintf("Delegates a task to the %s agent and returns its response.", t.spec.Agent)
}

// Schema defines the delegation tool's input: a prompt and optional context.
func (t *DelegationTool) Schema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "prompt": {"type": "string", "description": "Task or question to delegate."},
    "context": {"type": "string", "description": "Optional additional context for the target agent."}
  },
  "required": ["prompt"]
}`)
}

type delegationInput struct {
	Prompt  string `json:"prompt"`
	Context string `json:"context"`
}

// Execute runs the delegation call flow described in §4.5.
func (t *DelegationTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input delegationInput
	if err := json.Unmarshal(params, &input); err != nil {
		return &agent.ToolResult{Content: fmt.Sprintf("invalid params: %v", err), IsError: true}, nil
	}
	prompt := strings.TrimSpace(input.Prompt)
	if prompt == "" {
		return &agent.ToolResult{Content: "prompt is required", IsError: true}, nil
	}
	if strings.TrimSpace(input.Context) != "" {
		prompt = prompt + "\n\n" + input.Context
	}

	hookCtx := &hooks.DelegationHookContext{
		Delegator: t.delegator,
		Target:    t.spec.Agent,
		Prompt:    prompt,
	}
	if t.hookMgr != nil {
		if err := t.hookMgr.TriggerPreDelegation(ctx, hookCtx); err != nil {
			return &agent.ToolResult{Content: fmt.Sprintf("pre_delegation hook error: %v", err), IsError: true}, nil
		}
		if hookCtx.Canceled {
			return &agent.ToolResult{Content: hookCtx.CancelReason}, nil
		}
	}

	target, session, err := t.resolver.ResolveDelegate(ctx, t.delegator, t.spec)
	if err != nil {
		return &agent.ToolResult{Content: fmt.Sprintf("delegation failed: %v", err), IsError: true}, nil
	}

	t.emit(OrchestratorEvent{Type: EventAgentDelegation, FromAgentID: t.delegator, ToAgentID: t.spec.Agent, Message: prompt, Timestamp: time.Now()})

	result, err := target.Ask(ctx, session, prompt)
	if err != nil {
		t.emit(OrchestratorEvent{Type: EventAgentDelegation, FromAgentID: t.delegator, ToAgentID: t.spec.Agent, Message: err.Error(), Timestamp: time.Now()})
		return &agent.ToolResult{Content: fmt.Sprintf("delegate %s failed: %v", t.spec.Agent, err), IsError: true}, nil
	}

	t.emit(OrchestratorEvent{Type: EventDelegationResult, FromAgentID: t.spec.Agent, ToAgentID: t.delegator, Message: result, Timestamp: time.Now()})

	t.resolver.ClearDelegate(t.delegator, t.spec)

	hookCtx.Result = result
	if t.hookMgr != nil {
		if err := t.hookMgr.TriggerPostDelegation(ctx, hookCtx); err != nil {
			return &agent.ToolResult{Content: fmt.Sprintf("post_delegation hook error: %v", err), IsError: true}, nil
		}
	}

	return &agent.ToolResult{Content: hookCtx.Result}, nil
}

func (t *DelegationTool) emit(event OrchestratorEvent) {
	if t.onEvent != nil {
		t.onEvent(event)
	}
}
