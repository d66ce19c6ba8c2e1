package permission

import (
	"context"
	"encoding/json"

	"github.com/haasonsaas/nexus/internal/agent"
)

// pathParams matches the "path" field every file tool (read/write/edit/
// multi_edit/glob/grep) declares in its schema.
type pathParams struct {
	Path string `json:"path"`
}

// commandParams matches the "command" field the shell/process tools declare.
type commandParams struct {
	Command string `json:"command"`
}

// Guarded wraps a base agent.Tool with a PermissionPolicy. Execute checks the
// relevant field of the call parameters (path or command, based on field
// detects which) before delegating; a violation short-circuits with a
// structured tool-use error instead of running the base tool.
type Guarded struct {
	base   agent.Tool
	policy agent.PermissionPolicy
}

// Wrap decorates tool with policy enforcement. The returned tool implements
// the same agent.Tool contract plus WithOverride, so ToolRegistry.ActiveTools
// can detect and re-wrap it when a skill supplies a permission override.
func Wrap(base agent.Tool, policy agent.PermissionPolicy) *Guarded {
	return &Guarded{base: base, policy: policy}
}

func (g *Guarded) Name() string        { return g.base.Name() }
func (g *Guarded) Description() string { return g.base.Description() }
func (g *Guarded) Schema() json.RawMessage { return g.base.Schema() }

// WithOverride returns a copy of this tool enforcing a different policy,
// satisfying the interface ToolRegistry.ActiveTools looks for.
func (g *Guarded) WithOverride(policy agent.PermissionPolicy) agent.Tool {
	return Wrap(g.base, policy)
}

func (g *Guarded) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	if g.policy.IsZero() {
		return g.base.Execute(ctx, params)
	}

	v := New(g.policy)

	var p pathParams
	if err := json.Unmarshal(params, &p); err == nil && p.Path != "" {
		if err := v.CheckPath(p.Path); err != nil {
			return &agent.ToolResult{Content: DeniedErrorContent(err), IsError: true}, nil
		}
	}

	var c commandParams
	if err := json.Unmarshal(params, &c); err == nil && c.Command != "" {
		if err := v.CheckCommand(c.Command); err != nil {
			return &agent.ToolResult{Content: DeniedErrorContent(err), IsError: true}, nil
		}
	}

	return g.base.Execute(ctx, params)
}
