package multiagent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/haasonsaas/nexus/internal/agent"
	"github.com/haasonsaas/nexus/internal/hooks"
	"github.com/haasonsaas/nexus/internal/sessions"
	toolsessions "github.com/haasonsaas/nexus/internal/tools/sessions"
	"github.com/haasonsaas/nexus/pkg/models"
)

// SwarmConfig configures a Swarm's lifecycle: how long it may run, how many
// concurrent tool executions it allows across every agent it owns, and the
// default per-agent concurrency.
type SwarmConfig struct {
	// ExecutionTimeout bounds the whole swarm run; zero means no bound.
	ExecutionTimeout time.Duration

	// GlobalConcurrency bounds the number of tool executions in flight at
	// once across every agent and delegation instance in the swarm.
	GlobalConcurrency int

	// DefaultLocalConcurrency is the per-agent executor concurrency applied
	// when an AgentDefinition doesn't configure its own.
	DefaultLocalConcurrency int
}

func (c SwarmConfig) sanitized() SwarmConfig {
	if c.GlobalConcurrency <= 0 {
		c.GlobalConcurrency = 8
	}
	if c.DefaultLocalConcurrency <= 0 {
		c.DefaultLocalConcurrency = 5
	}
	return c
}

// Swarm is the lifecycle container for a set of agents running under one
// lead agent. It owns the agents' runtimes (constructed lazily, on first
// use), the delegation instances synthesized per §4.5's instance-keying
// rule, the shared scratchpad, and a process-wide semaphore bounding tool
// concurrency across every agent it owns. A Swarm is rejected at
// construction time if its agents' delegates_to relations contain a cycle;
// no partially-built Swarm is ever returned in that case.
type Swarm struct {
	mu sync.Mutex

	swarmID       string
	parentSwarmID string
	name          string
	leadAgent     string

	defs  map[string]AgentDefinition // by Name
	graph *DelegationGraph

	provider agent.LLMProvider
	store    sessions.Store

	agents              map[string]*agent.Runtime // name -> runtime, built lazily
	delegationInstances map[string]*agent.Runtime // "<base>@<delegator>" -> runtime

	scratchpad *toolsessions.ScratchpadStorage
	hookMgr    *hooks.DelegationHookManager
	onEvent    func(OrchestratorEvent)

	globalSemaphore  chan struct{}
	executionTimeout time.Duration
	localConcurrency int

	firstMessageSent bool
}

// NewSwarm validates the delegation graph over defs (rejecting cycles with
// a CircularDependencyError) and constructs an empty Swarm around
// leadAgent. Agent runtimes and delegation instances are built lazily as
// the swarm runs.
func NewSwarm(name, leadAgent string, defs []AgentDefinition, provider agent.LLMProvider, store sessions.Store, cfg SwarmConfig) (*Swarm, error) {
	cfg = cfg.sanitized()

	graph, err := BuildDelegationGraph(defs)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]AgentDefinition, len(defs))
	for _, d := range defs {
		n := strings.TrimSpace(d.Name)
		if n == "" {
			n = d.ID
		}
		byName[n] = d
	}
	if _, ok := byName[leadAgent]; !ok {
		return nil, fmt.Errorf("swarm %q: lead agent %q not found among agents", name, leadAgent)
	}

	return &Swarm{
		swarmID:             uuid.NewString(),
		name:                name,
		leadAgent:           leadAgent,
		defs:                byName,
		graph:               graph,
		provider:            provider,
		store:               store,
		agents:              make(map[string]*agent.Runtime),
		delegationInstances: make(map[string]*agent.Runtime),
		scratchpad:          toolsessions.NewScratchpadStorage(),
		hookMgr:             hooks.NewDelegationHookManager(nil, nil),
		globalSemaphore:     make(chan struct{}, cfg.GlobalConcurrency),
		executionTimeout:    cfg.ExecutionTimeout,
		localConcurrency:    cfg.DefaultLocalConcurrency,
	}, nil
}

// WithParent marks this swarm as a child of parentSwarmID, for nested
// delegation into a sub-swarm.
func (s *Swarm) WithParent(parentSwarmID string) *Swarm {
	s.parentSwarmID = parentSwarmID
	return s
}

// SetEventCallback installs the callback receiving swarm_start/swarm_stop
// and agent_delegation/delegation_result notifications.
func (s *Swarm) SetEventCallback(cb func(OrchestratorEvent)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEvent = cb
}

// ID returns the swarm's identifier.
func (s *Swarm) ID() string { return s.swarmID }

// LeadAgent returns the name of the swarm's lead agent.
func (s *Swarm) LeadAgent() string { return s.leadAgent }

// Scratchpad exposes the swarm's shared scratchpad storage.
func (s *Swarm) Scratchpad() *toolsessions.ScratchpadStorage { return s.scratchpad }

func (s *Swarm) emit(event OrchestratorEvent) {
	s.mu.Lock()
	cb := s.onEvent
	s.mu.Unlock()
	if cb != nil {
		cb(event)
	}
}

// runtimeFor lazily constructs and caches the runtime for agent name,
// installing the scratchpad tools and any WorkWith<Agent> delegation tools
// its definition declares.
func (s *Swarm) runtimeFor(name string) (*agent.Runtime, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rt, ok := s.agents[name]; ok {
		return rt, nil
	}

	def, ok := s.defs[name]
	if !ok {
		return nil, fmt.Errorf("swarm %q: unknown agent %q", s.name, name)
	}

	rt := s.buildRuntime(def)
	s.installTools(rt, name, def)
	s.agents[name] = rt
	return rt, nil
}

func (s *Swarm) buildRuntime(def AgentDefinition) *agent.Runtime {
	cfg := agent.DefaultLoopConfig()
	cfg.ExecutorConfig.MaxConcurrency = s.localConcurrency
	if def.MaxIterations > 0 {
		cfg.MaxIterations = def.MaxIterations
	}

	rt := agent.NewAgenticRuntime(s.provider, s.store, cfg)
	if def.SystemPrompt != "" {
		rt.SetSystemPrompt(def.SystemPrompt)
	}
	if def.Model != "" {
		rt.SetDefaultModel(def.Model)
	}
	return rt
}

// installTools wires the scratchpad tools and any delegations declared by
// def onto rt, each gated behind the swarm's global semaphore.
func (s *Swarm) installTools(rt *agent.Runtime, ownerName string, def AgentDefinition) {
	rt.RegisterTool(s.globalGate(toolsessions.NewScratchpadWriteTool(s.scratchpad, ownerName)))
	rt.RegisterTool(s.globalGate(toolsessions.NewScratchpadReadTool(s.scratchpad)))
	rt.RegisterTool(s.globalGate(toolsessions.NewScratchpadListTool(s.scratchpad)))

	for _, spec := range def.DelegatesTo {
		tool := NewDelegationTool(ownerName, spec, s, s.hookMgr, s.emit)
		rt.RegisterTool(s.globalGate(tool))
	}
}

// ResolveDelegate implements DelegationRuntimeResolver, applying §4.5's
// instance-keying rule: a delegation marked preserve_context routes to the
// swarm-wide singleton for the target agent; every other delegation gets a
// dedicated "<target>@<delegator>" instance, so concurrent delegators never
// share transcript state for the same target.
func (s *Swarm) ResolveDelegate(ctx context.Context, delegator string, spec DelegationSpec) (*agent.Runtime, *models.Session, error) {
	if spec.PreserveContext {
		rt, err := s.runtimeFor(spec.Agent)
		if err != nil {
			return nil, nil, err
		}
		session, err := s.sessionFor(ctx, spec.Agent)
		return rt, session, err
	}

	instanceKey := fmt.Sprintf("%s@%s", spec.Agent, delegator)

	s.mu.Lock()
	rt, ok := s.delegationInstances[instanceKey]
	s.mu.Unlock()
	if ok {
		session, err := s.sessionFor(ctx, instanceKey)
		return rt, session, err
	}

	s.mu.Lock()
	def, ok := s.defs[spec.Agent]
	s.mu.Unlock()
	if !ok {
		return nil, nil, fmt.Errorf("swarm %q: unknown delegation target %q", s.name, spec.Agent)
	}

	rt = s.buildRuntime(def)

	s.mu.Lock()
	s.installTools(rt, instanceKey, def)
	s.delegationInstances[instanceKey] = rt
	s.mu.Unlock()

	session, err := s.sessionFor(ctx, instanceKey)
	return rt, session, err
}

// ClearDelegate drops a delegation instance once its call returns, per
// §4.5's "clear mapping" step for non-preserve_context delegations.
func (s *Swarm) ClearDelegate(delegator string, spec DelegationSpec) {
	if spec.PreserveContext {
		return
	}
	instanceKey := fmt.Sprintf("%s@%s", spec.Agent, delegator)
	s.mu.Lock()
	delete(s.delegationInstances, instanceKey)
	s.mu.Unlock()
}

// sessionFor gets-or-creates the session backing key within the swarm's
// store, scoping session keys to the swarm so two swarms never collide.
func (s *Swarm) sessionFor(ctx context.Context, key string) (*models.Session, error) {
	sessionKey := fmt.Sprintf("swarm:%s:%s", s.swarmID, key)
	return s.store.GetOrCreate(ctx, sessionKey, key, models.ChannelAPI, s.swarmID)
}

// globalGate wraps tool with the swarm's global semaphore, so its Execute
// call counts against GlobalConcurrency regardless of which agent runs it.
func (s *Swarm) globalGate(tool agent.Tool) agent.Tool {
	return &semaphoreTool{inner: tool, sem: s.globalSemaphore}
}

// semaphoreTool enforces a process-wide concurrency bound around another
// tool's Execute call, implementing Swarm's global_semaphore.
type semaphoreTool struct {
	inner agent.Tool
	sem   chan struct{}
}

func (t *semaphoreTool) Name() string           { return t.inner.Name() }
func (t *semaphoreTool) Description() string    { return t.inner.Description() }
func (t *semaphoreTool) Schema() json.RawMessage { return t.inner.Schema() }

func (t *semaphoreTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	select {
	case t.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-t.sem }()
	return t.inner.Execute(ctx, params)
}

// Execute runs prompt through the swarm's lead agent, wrapping the call in
// ExecutionTimeout (if configured) and tearing down the swarm's scratchpad
// and delegation instances when it returns.
func (s *Swarm) Execute(ctx context.Context, prompt string) (string, error) {
	runCtx := ctx
	if s.executionTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.executionTimeout)
		defer cancel()
	}

	s.emit(OrchestratorEvent{Type: EventSwarmStart, AgentID: s.leadAgent, Message: s.name, Timestamp: time.Now()})
	defer func() {
		s.scratchpad.Clear()
		s.mu.Lock()
		s.delegationInstances = make(map[string]*agent.Runtime)
		s.mu.Unlock()
		s.emit(OrchestratorEvent{Type: EventSwarmStop, AgentID: s.leadAgent, Message: s.name, Timestamp: time.Now()})
	}()

	lead, err := s.runtimeFor(s.leadAgent)
	if err != nil {
		return "", err
	}
	session, err := s.sessionFor(runCtx, s.leadAgent)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.firstMessageSent = true
	s.mu.Unlock()

	return lead.Ask(runCtx, session, prompt)
}
