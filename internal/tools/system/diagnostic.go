// Package system provides system-level tools for health, usage, and diagnostics.
package system

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/haasonsaas/nexus/internal/agent"
)

// ActivityStats summarizes swarm activity over the process lifetime: how
// many agents have run, how many tool calls and delegations occurred, and a
// per-agent breakdown, independent of any particular delegation instance.
type ActivityStats struct {
	TotalAgents      int            `json:"total_agents"`
	TotalToolCalls   int            `json:"total_tool_calls"`
	TotalDelegations int            `json:"total_delegations"`
	RecentToolCalls  int            `json:"recent_tool_calls"`
	ByAgent          map[string]int `json:"by_agent"`
}

// MemoryStatus summarizes the semantic memory plugin's on-disk index.
type MemoryStatus struct {
	EntryCount     int    `json:"entry_count"`
	PendingDefrag  int    `json:"pending_defrag"`
	LastDefragedAt string `json:"last_defraged_at,omitempty"`
}

// DiagnosticProvider provides diagnostic information.
type DiagnosticProvider interface {
	GetActivityStats() ActivityStats
	GetMemoryStatus() (MemoryStatus, error)
}

// DiagnosticTool provides diagnostic information to the agent.
type DiagnosticTool struct {
	provider DiagnosticProvider
}

// NewDiagnosticTool creates a new diagnostic tool.
func NewDiagnosticTool(provider DiagnosticProvider) *DiagnosticTool {
	return &DiagnosticTool{provider: provider}
}

// Name returns the tool name.
func (t *DiagnosticTool) Name() string { return "system_diagnostic" }

// Description returns the tool description.
func (t *DiagnosticTool) Description() string {
	return "Get system diagnostic information including swarm activity stats and memory index status."
}

// Schema returns the JSON schema for the tool parameters.
func (t *DiagnosticTool) Schema() json.RawMessage {
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"section": map[string]interface{}{
				"type":        "string",
				"description": "Diagnostic section: 'activity', 'memory', or 'all' (default).",
				"default":     "all",
			},
		},
		"required": []string{},
	}
	payload, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return payload
}

// Execute retrieves diagnostic information.
func (t *DiagnosticTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	if t.provider == nil {
		return toolError("diagnostic provider unavailable"), nil
	}

	var input struct {
		Section string `json:"section"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}

	section := input.Section
	if section == "" {
		section = "all"
	}

	result := make(map[string]interface{})

	if section == "all" || section == "activity" {
		stats := t.provider.GetActivityStats()
		result["activity"] = map[string]interface{}{
			"total_agents":      stats.TotalAgents,
			"total_tool_calls":  stats.TotalToolCalls,
			"total_delegations": stats.TotalDelegations,
			"recent_tool_calls": stats.RecentToolCalls,
			"by_agent":          stats.ByAgent,
		}
	}

	if section == "all" || section == "memory" {
		memStatus, err := t.provider.GetMemoryStatus()
		if err != nil {
			result["memory"] = map[string]interface{}{
				"error": err.Error(),
			}
		} else {
			result["memory"] = map[string]interface{}{
				"entry_count":      memStatus.EntryCount,
				"pending_defrag":   memStatus.PendingDefrag,
				"last_defraged_at": memStatus.LastDefragedAt,
			}
		}
	}

	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return toolError(fmt.Sprintf("encode result: %v", err)), nil
	}

	return &agent.ToolResult{Content: string(encoded)}, nil
}
