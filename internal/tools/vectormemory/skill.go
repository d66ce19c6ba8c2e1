package vectormemory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/haasonsaas/nexus/internal/agent"
	"github.com/haasonsaas/nexus/pkg/models"
)

// SkillLoader is the subset of agent.AgenticLoop behavior LoadSkillTool and
// ClearSkillTool need: install or clear the active SkillState that
// ToolRegistry.ActiveTools resolves against on the next LLM turn.
type SkillLoader interface {
	LoadSkill(state *agent.SkillState)
	ClearSkill()
}

// LoadSkillTool activates a skill memory entry's tool restriction and
// permission overrides on the chat's active tool set.
type LoadSkillTool struct {
	manager Searcher
	loop    SkillLoader
}

// NewLoadSkillTool creates a new LoadSkill tool.
func NewLoadSkillTool(manager Searcher, loop SkillLoader) *LoadSkillTool {
	return &LoadSkillTool{manager: manager, loop: loop}
}

// Name returns the tool name.
func (t *LoadSkillTool) Name() string { return "LoadSkill" }

// Description describes the tool.
func (t *LoadSkillTool) Description() string {
	return "Loads a named skill memory entry, restricting the active tool set to the skill's declared tools (plus non-removable tools) and applying its permission overrides."
}

// Schema defines the tool parameters.
func (t *LoadSkillTool) Schema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "skill_id": {"type": "string", "description": "Memory entry ID of the skill, if already known"},
    "query": {"type": "string", "description": "Skill name or description to search for when skill_id is not known"}
  }
}`)
}

type loadSkillInput struct {
	SkillID string `json:"skill_id"`
	Query   string `json:"query"`
}

// Execute runs the LoadSkill tool.
func (t *LoadSkillTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	if t.manager == nil {
		return &agent.ToolResult{Content: "memory is unavailable", IsError: true}, nil
	}
	if t.loop == nil {
		return &agent.ToolResult{Content: "no active chat to install the skill on", IsError: true}, nil
	}

	var input loadSkillInput
	if err := json.Unmarshal(params, &input); err != nil {
		return &agent.ToolResult{Content: fmt.Sprintf("invalid params: %v", err), IsError: true}, nil
	}

	query := strings.TrimSpace(input.Query)
	if query == "" {
		query = strings.TrimSpace(input.SkillID)
	}
	if query == "" {
		return &agent.ToolResult{Content: "skill_id or query is required", IsError: true}, nil
	}

	resp, err := t.manager.Search(ctx, &models.SearchRequest{
		Query: query,
		Scope: models.ScopeAll,
		Limit: 10,
	})
	if err != nil {
		return &agent.ToolResult{Content: fmt.Sprintf("skill lookup failed: %v", err), IsError: true}, nil
	}

	entry := findSkillEntry(resp, input.SkillID)
	if entry == nil {
		return &agent.ToolResult{Content: fmt.Sprintf("no skill entry matches %q", query), IsError: true}, nil
	}

	state := skillStateFromEntry(entry)
	t.loop.LoadSkill(state)

	payload, _ := json.MarshalIndent(struct {
		SkillID string   `json:"skill_id"`
		Tools   []string `json:"tools"`
	}{SkillID: entry.ID, Tools: state.Tools}, "", "  ")
	return &agent.ToolResult{Content: string(payload)}, nil
}

func findSkillEntry(resp *models.SearchResponse, wantID string) *models.MemoryEntry {
	if resp == nil {
		return nil
	}
	for _, r := range resp.Results {
		if r == nil || r.Entry == nil {
			continue
		}
		if wantID != "" && r.Entry.ID == wantID {
			return r.Entry
		}
	}
	if wantID != "" {
		return nil
	}
	for _, r := range resp.Results {
		if r == nil || r.Entry == nil {
			continue
		}
		if entryType(r.Entry) == "skill" {
			return r.Entry
		}
	}
	return nil
}

func entryType(e *models.MemoryEntry) string {
	if e == nil || e.Metadata.Extra == nil {
		return ""
	}
	if v, ok := e.Metadata.Extra["type"].(string); ok {
		return v
	}
	return ""
}

// skillStateFromEntry builds a SkillState from a skill memory entry's
// frontmatter, carried in Metadata.Extra as "tools" ([]string) and
// "permissions" (map[tool_name]{allowed_paths, denied_paths, allowed_commands,
// denied_commands}).
func skillStateFromEntry(e *models.MemoryEntry) *agent.SkillState {
	state := &agent.SkillState{FilePath: e.ID}
	if e.Metadata.Extra == nil {
		return state
	}

	if raw, ok := e.Metadata.Extra["tools"]; ok {
		if list, ok := raw.([]any); ok {
			for _, v := range list {
				if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
					state.Tools = append(state.Tools, s)
				}
			}
		}
	}

	if raw, ok := e.Metadata.Extra["permissions"]; ok {
		if byTool, ok := raw.(map[string]any); ok {
			state.Permissions = make(map[string]agent.PermissionPolicy, len(byTool))
			for name, v := range byTool {
				policyMap, ok := v.(map[string]any)
				if !ok {
					continue
				}
				state.Permissions[name] = agent.PermissionPolicy{
					AllowedPaths:    stringList(policyMap["allowed_paths"]),
					DeniedPaths:     stringList(policyMap["denied_paths"]),
					AllowedCommands: stringList(policyMap["allowed_commands"]),
					DeniedCommands:  stringList(policyMap["denied_commands"]),
				}
			}
		}
	}

	return state
}

func stringList(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

// ClearSkillTool restores the chat's full registered tool set.
type ClearSkillTool struct {
	loop SkillLoader
}

// NewClearSkillTool creates a new clear_skill tool.
func NewClearSkillTool(loop SkillLoader) *ClearSkillTool {
	return &ClearSkillTool{loop: loop}
}

// Name returns the tool name.
func (t *ClearSkillTool) Name() string { return "clear_skill" }

// Description describes the tool.
func (t *ClearSkillTool) Description() string {
	return "Clears the currently loaded skill, restoring the full registered tool set."
}

// Schema defines the tool parameters (none).
func (t *ClearSkillTool) Schema() json.RawMessage {
	return json.RawMessage(`{"type": "object", "properties": {}}`)
}

// Execute runs the clear_skill tool.
func (t *ClearSkillTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	if t.loop == nil {
		return &agent.ToolResult{Content: "no active chat to clear the skill on", IsError: true}, nil
	}
	t.loop.ClearSkill()
	return &agent.ToolResult{Content: `{"cleared": true}`}, nil
}
