package sessions

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/haasonsaas/nexus/internal/agent"
)

// ScratchpadEntry is one volatile key/value slot: the content written by
// owner_agent at created_at. Entries never survive past the swarm that
// created them.
type ScratchpadEntry struct {
	Content   string    `json:"content"`
	Owner     string    `json:"owner_agent"`
	CreatedAt time.Time `json:"created_at"`
}

// ScratchpadStorage is the process-local, per-swarm key→entry map shared by
// every agent and delegation instance in one swarm. Mutations are serialized
// with a single mutex: last write wins across concurrent writers on
// different paths, and a path is never torn between two concurrent writes.
type ScratchpadStorage struct {
	mu      sync.Mutex
	entries map[string]ScratchpadEntry
}

// NewScratchpadStorage creates an empty scratchpad for one swarm.
func NewScratchpadStorage() *ScratchpadStorage {
	return &ScratchpadStorage{entries: make(map[string]ScratchpadEntry)}
}

// Write stores content at path under owner, overwriting any prior entry.
func (s *ScratchpadStorage) Write(path, owner, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[path] = ScratchpadEntry{Content: content, Owner: owner, CreatedAt: time.Now()}
}

// Read returns the entry at path, if any.
func (s *ScratchpadStorage) Read(path string) (ScratchpadEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[path]
	return e, ok
}

// List returns every stored path in sorted order.
func (s *ScratchpadStorage) List() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	paths := make([]string, 0, len(s.entries))
	for p := range s.entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Clear empties the scratchpad. Called at swarm teardown.
func (s *ScratchpadStorage) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]ScratchpadEntry)
}

// ScratchpadWriteTool writes a path in the swarm's scratchpad.
type ScratchpadWriteTool struct {
	storage *ScratchpadStorage
	owner   string
}

// NewScratchpadWriteTool creates a ScratchpadWrite tool bound to storage,
// attributing writes to owner (the agent name the tool is installed on).
func NewScratchpadWriteTool(storage *ScratchpadStorage, owner string) *ScratchpadWriteTool {
	return &ScratchpadWriteTool{storage: storage, owner: owner}
}

func (t *ScratchpadWriteTool) Name() string { return "ScratchpadWrite" }

func (t *ScratchpadWriteTool) Description() string {
	return "Writes content to a volatile scratchpad path shared by every agent in the swarm. Cleared when the swarm ends."
}

func (t *ScratchpadWriteTool) Schema() json.RawMessage {
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Scratchpad key to write.",
			},
			"content": map[string]interface{}{
				"type":        "string",
				"description": "Content to store at path.",
			},
		},
		"required": []string{"path", "content"},
	}
	payload, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return payload
}

func (t *ScratchpadWriteTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	if t.storage == nil {
		return toolError("scratchpad unavailable"), nil
	}
	var input struct {
		Path    string `json:"path"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError(fmt.Sprintf("Invalid parameters: %v", err)), nil
	}
	path := strings.TrimSpace(input.Path)
	if path == "" {
		return toolError("path is required"), nil
	}

	t.storage.Write(path, t.owner, input.Content)
	payload, _ := json.Marshal(map[string]string{"path": path, "status": "written"})
	return &agent.ToolResult{Content: string(payload)}, nil
}

// ScratchpadReadTool reads a path from the swarm's scratchpad.
type ScratchpadReadTool struct {
	storage *ScratchpadStorage
}

// NewScratchpadReadTool creates a ScratchpadRead tool bound to storage.
func NewScratchpadReadTool(storage *ScratchpadStorage) *ScratchpadReadTool {
	return &ScratchpadReadTool{storage: storage}
}

func (t *ScratchpadReadTool) Name() string { return "ScratchpadRead" }

func (t *ScratchpadReadTool) Description() string {
	return "Reads a path previously written to the swarm's scratchpad."
}

func (t *ScratchpadReadTool) Schema() json.RawMessage {
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Scratchpad key to read.",
			},
		},
		"required": []string{"path"},
	}
	payload, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return payload
}

func (t *ScratchpadReadTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	if t.storage == nil {
		return toolError("scratchpad unavailable"), nil
	}
	var input struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError(fmt.Sprintf("Invalid parameters: %v", err)), nil
	}
	path := strings.TrimSpace(input.Path)
	if path == "" {
		return toolError("path is required"), nil
	}

	entry, ok := t.storage.Read(path)
	if !ok {
		return toolError(fmt.Sprintf("no scratchpad entry at %q", path)), nil
	}
	payload, _ := json.Marshal(struct {
		Path      string    `json:"path"`
		Content   string    `json:"content"`
		Owner     string    `json:"owner_agent"`
		CreatedAt time.Time `json:"created_at"`
	}{Path: path, Content: entry.Content, Owner: entry.Owner, CreatedAt: entry.CreatedAt})
	return &agent.ToolResult{Content: string(payload)}, nil
}

// ScratchpadListTool lists every path in the swarm's scratchpad.
type ScratchpadListTool struct {
	storage *ScratchpadStorage
}

// NewScratchpadListTool creates a ScratchpadList tool bound to storage.
func NewScratchpadListTool(storage *ScratchpadStorage) *ScratchpadListTool {
	return &ScratchpadListTool{storage: storage}
}

func (t *ScratchpadListTool) Name() string { return "ScratchpadList" }

func (t *ScratchpadListTool) Description() string {
	return "Lists every path currently stored in the swarm's scratchpad."
}

func (t *ScratchpadListTool) Schema() json.RawMessage {
	return json.RawMessage(`{"type": "object", "properties": {}}`)
}

func (t *ScratchpadListTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	if t.storage == nil {
		return toolError("scratchpad unavailable"), nil
	}
	paths := t.storage.List()
	payload, _ := json.Marshal(struct {
		Paths []string `json:"paths"`
	}{Paths: paths})
	return &agent.ToolResult{Content: string(payload)}, nil
}
