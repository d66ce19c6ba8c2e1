package vectormemory

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/haasonsaas/nexus/internal/agent"
	"github.com/haasonsaas/nexus/internal/memory"
	"github.com/haasonsaas/nexus/pkg/models"
)

type fakeSkillSearcher struct {
	resp *models.SearchResponse
	err  error
}

func (f *fakeSkillSearcher) Search(_ context.Context, _ *models.SearchRequest) (*models.SearchResponse, error) {
	return f.resp, f.err
}

func (f *fakeSkillSearcher) SearchHierarchical(_ context.Context, _ *memory.HierarchyRequest) (*models.SearchResponse, error) {
	return f.resp, f.err
}

type fakeSkillLoader struct {
	loaded  *agent.SkillState
	cleared bool
}

func (f *fakeSkillLoader) LoadSkill(state *agent.SkillState) { f.loaded = state }
func (f *fakeSkillLoader) ClearSkill()                       { f.cleared = true }

func TestLoadSkillTool_InstallsToolsAndPermissions(t *testing.T) {
	entry := &models.MemoryEntry{
		ID:      "skill-1",
		Content: "deploy runbook",
		Metadata: models.MemoryMetadata{
			Extra: map[string]any{
				"type":  "skill",
				"tools": []any{"Bash", "Read"},
				"permissions": map[string]any{
					"Bash": map[string]any{
						"allowed_commands": []any{"^kubectl "},
					},
				},
			},
		},
	}
	searcher := &fakeSkillSearcher{
		resp: &models.SearchResponse{Results: []*models.SearchResult{{Entry: entry, Score: 0.9}}},
	}
	loader := &fakeSkillLoader{}
	tool := NewLoadSkillTool(searcher, loader)

	result, err := tool.Execute(context.Background(), json.RawMessage(`{"query":"deploy"}`))
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", result.Content)
	}
	if loader.loaded == nil {
		t.Fatal("expected LoadSkill to be called")
	}
	if len(loader.loaded.Tools) != 2 {
		t.Fatalf("Tools = %v, want 2 entries", loader.loaded.Tools)
	}
	policy, ok := loader.loaded.Permissions["Bash"]
	if !ok {
		t.Fatal("expected a Bash permission override")
	}
	if len(policy.AllowedCommands) != 1 || policy.AllowedCommands[0] != "^kubectl " {
		t.Errorf("AllowedCommands = %v", policy.AllowedCommands)
	}
}

func TestLoadSkillTool_NoMatchIsError(t *testing.T) {
	searcher := &fakeSkillSearcher{resp: &models.SearchResponse{}}
	tool := NewLoadSkillTool(searcher, &fakeSkillLoader{})

	result, err := tool.Execute(context.Background(), json.RawMessage(`{"query":"nope"}`))
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected a tool error when no skill entry matches")
	}
}

func TestClearSkillTool_Clears(t *testing.T) {
	loader := &fakeSkillLoader{}
	tool := NewClearSkillTool(loader)

	result, err := tool.Execute(context.Background(), json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", result.Content)
	}
	if !loader.cleared {
		t.Fatal("expected ClearSkill to be called")
	}
}
