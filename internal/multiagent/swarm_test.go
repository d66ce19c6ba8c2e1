package multiagent

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/haasonsaas/nexus/internal/agent"
	"github.com/haasonsaas/nexus/internal/sessions"
)

// swarmTestProvider returns one canned text response per Complete call,
// cycling through responses in order.
type swarmTestProvider struct {
	responses   []string
	currentCall int32
}

func (p *swarmTestProvider) Complete(ctx context.Context, req *agent.CompletionRequest) (<-chan *agent.CompletionChunk, error) {
	call := int(atomic.AddInt32(&p.currentCall, 1)) - 1
	ch := make(chan *agent.CompletionChunk, 2)
	go func() {
		defer close(ch)
		text := "done"
		if call < len(p.responses) {
			text = p.responses[call]
		}
		ch <- &agent.CompletionChunk{Text: text}
		ch <- &agent.CompletionChunk{Done: true}
	}()
	return ch, nil
}

func (p *swarmTestProvider) Name() string         { return "swarm-test" }
func (p *swarmTestProvider) Models() []agent.Model { return nil }
func (p *swarmTestProvider) SupportsTools() bool   { return true }

func cyclicDelegationAgents() []AgentDefinition {
	return []AgentDefinition{
		{ID: "a", Name: "a", DelegatesTo: []DelegationSpec{{Agent: "b"}}},
		{ID: "b", Name: "b", DelegatesTo: []DelegationSpec{{Agent: "a"}}},
	}
}

func TestBuildDelegationGraph_DetectsCycle(t *testing.T) {
	_, err := BuildDelegationGraph(cyclicDelegationAgents())
	if err == nil {
		t.Fatal("expected circular dependency error, got nil")
	}
	var cycleErr *CircularDependencyError
	if !asCircularDependencyError(err, &cycleErr) {
		t.Fatalf("expected *CircularDependencyError, got %T: %v", err, err)
	}
}

func asCircularDependencyError(err error, target **CircularDependencyError) bool {
	cycleErr, ok := err.(*CircularDependencyError)
	if ok {
		*target = cycleErr
	}
	return ok
}

func TestDeriveDelegationToolName(t *testing.T) {
	cases := []struct {
		target, explicit, want string
	}{
		{"researcher", "", "WorkWithResearcher"},
		{"slack_agent", "", "WorkWithSlackAgent"},
		{"billing-support", "", "WorkWithBillingSupport"},
		{"anything", "CustomToolName", "CustomToolName"},
	}
	for _, tc := range cases {
		if got := DeriveDelegationToolName(tc.target, tc.explicit); got != tc.want {
			t.Errorf("DeriveDelegationToolName(%q, %q) = %q, want %q", tc.target, tc.explicit, got, tc.want)
		}
	}
}

func TestNewSwarm_RejectsCycle(t *testing.T) {
	_, err := NewSwarm("cyclic", "a", cyclicDelegationAgents(), nil, sessions.NewMemoryStore(), SwarmConfig{})
	if err == nil {
		t.Fatal("expected NewSwarm to reject a cyclic agent set")
	}
	if _, ok := err.(*CircularDependencyError); !ok {
		t.Fatalf("expected *CircularDependencyError, got %T: %v", err, err)
	}
}

func TestNewSwarm_UnknownLeadAgentIsError(t *testing.T) {
	defs := []AgentDefinition{{ID: "a", Name: "a"}}
	_, err := NewSwarm("s", "missing", defs, nil, sessions.NewMemoryStore(), SwarmConfig{})
	if err == nil {
		t.Fatal("expected error for unknown lead agent")
	}
}

func swarmTestDefs() []AgentDefinition {
	return []AgentDefinition{
		{ID: "lead", Name: "lead", SystemPrompt: "You are the lead."},
		{ID: "researcher", Name: "researcher", SystemPrompt: "You research."},
	}
}

func TestSwarm_ResolveDelegate_PreserveContextSharesSingleton(t *testing.T) {
	provider := &swarmTestProvider{}
	swarm, err := NewSwarm("s", "lead", swarmTestDefs(), provider, sessions.NewMemoryStore(), SwarmConfig{})
	if err != nil {
		t.Fatalf("NewSwarm: %v", err)
	}

	spec := DelegationSpec{Agent: "researcher", PreserveContext: true}
	rt1, _, err := swarm.ResolveDelegate(context.Background(), "lead", spec)
	if err != nil {
		t.Fatalf("ResolveDelegate (caller 1): %v", err)
	}
	rt2, _, err := swarm.ResolveDelegate(context.Background(), "other-delegator", spec)
	if err != nil {
		t.Fatalf("ResolveDelegate (caller 2): %v", err)
	}
	if rt1 != rt2 {
		t.Fatal("expected preserve_context delegation to share the swarm-wide singleton runtime")
	}
}

func TestSwarm_ResolveDelegate_DefaultKeyedPerDelegator(t *testing.T) {
	provider := &swarmTestProvider{}
	swarm, err := NewSwarm("s", "lead", swarmTestDefs(), provider, sessions.NewMemoryStore(), SwarmConfig{})
	if err != nil {
		t.Fatalf("NewSwarm: %v", err)
	}

	spec := DelegationSpec{Agent: "researcher"}
	rtFromLead, _, err := swarm.ResolveDelegate(context.Background(), "lead", spec)
	if err != nil {
		t.Fatalf("ResolveDelegate (lead): %v", err)
	}
	rtFromOther, _, err := swarm.ResolveDelegate(context.Background(), "other-delegator", spec)
	if err != nil {
		t.Fatalf("ResolveDelegate (other): %v", err)
	}
	if rtFromLead == rtFromOther {
		t.Fatal("expected distinct <target>@<delegator> instances for different delegators")
	}

	rtFromLeadAgain, _, err := swarm.ResolveDelegate(context.Background(), "lead", spec)
	if err != nil {
		t.Fatalf("ResolveDelegate (lead again): %v", err)
	}
	if rtFromLead != rtFromLeadAgain {
		t.Fatal("expected the same delegator to reuse its keyed instance before ClearDelegate runs")
	}

	swarm.ClearDelegate("lead", spec)
	rtFromLeadAfterClear, _, err := swarm.ResolveDelegate(context.Background(), "lead", spec)
	if err != nil {
		t.Fatalf("ResolveDelegate (lead after clear): %v", err)
	}
	if rtFromLeadAfterClear == rtFromLead {
		t.Fatal("expected a fresh instance after ClearDelegate")
	}
}

func TestSwarm_Execute_RunsLeadAgentAndTearsDownScratchpad(t *testing.T) {
	provider := &swarmTestProvider{responses: []string{"lead's answer"}}
	swarm, err := NewSwarm("s", "lead", swarmTestDefs(), provider, sessions.NewMemoryStore(), SwarmConfig{})
	if err != nil {
		t.Fatalf("NewSwarm: %v", err)
	}

	swarm.Scratchpad().Write("notes/plan", "lead", "draft plan")
	if len(swarm.Scratchpad().List()) != 1 {
		t.Fatal("expected scratchpad write to be visible before Execute tears it down")
	}

	result, err := swarm.Execute(context.Background(), "What should we do?")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result != "lead's answer" {
		t.Errorf("Execute result = %q, want %q", result, "lead's answer")
	}

	if len(swarm.Scratchpad().List()) != 0 {
		t.Error("expected scratchpad to be cleared after Execute tears down the swarm")
	}
}

func TestSwarm_EventCallbackReceivesSwarmLifecycleEvents(t *testing.T) {
	provider := &swarmTestProvider{responses: []string{"ok"}}
	swarm, err := NewSwarm("s", "lead", swarmTestDefs(), provider, sessions.NewMemoryStore(), SwarmConfig{})
	if err != nil {
		t.Fatalf("NewSwarm: %v", err)
	}

	var events []OrchestratorEventType
	swarm.SetEventCallback(func(e OrchestratorEvent) {
		events = append(events, e.Type)
	})

	if _, err := swarm.Execute(context.Background(), "go"); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if len(events) != 2 || events[0] != EventSwarmStart || events[1] != EventSwarmStop {
		t.Fatalf("expected [swarm_start, swarm_stop], got %v", events)
	}
}
