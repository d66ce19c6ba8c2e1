package agent

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/haasonsaas/nexus/pkg/models"
)

// isOrphanToolCallError reports whether err looks like the provider rejected
// the request because an assistant tool_calls entry has no matching tool
// result in the same request body. Anthropic/OpenAI both surface this as a
// 400 whose message names tool_use or tool_result.
func isOrphanToolCallError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	if !strings.Contains(msg, "400") {
		return false
	}
	return strings.Contains(msg, "tool_use") ||
		strings.Contains(msg, "tool_result") ||
		strings.Contains(msg, "tool_call")
}

// repairOrphanToolCalls scans a completion-ready message list for assistant
// tool_calls whose id never appears as a tool_call_id on a later tool
// message, and drops them. An assistant message left with no tool_calls and
// no content is removed outright; one with remaining content is kept without
// its tool_calls. Returns the repaired slice, a human-readable description of
// each removed call (for the system-reminder message), and how many calls
// were pruned.
func repairOrphanToolCalls(messages []CompletionMessage) ([]CompletionMessage, []string, int) {
	matched := make(map[string]bool)
	for _, m := range messages {
		if m.Role != "tool" {
			continue
		}
		for _, r := range m.ToolResults {
			if r.ToolCallID != "" {
				matched[r.ToolCallID] = true
			}
		}
	}

	repaired := make([]CompletionMessage, 0, len(messages))
	var removed []string

	for _, m := range messages {
		if m.Role != "assistant" || len(m.ToolCalls) == 0 {
			repaired = append(repaired, m)
			continue
		}

		kept := make([]models.ToolCall, 0, len(m.ToolCalls))
		for _, tc := range m.ToolCalls {
			if matched[tc.ID] {
				kept = append(kept, tc)
				continue
			}
			removed = append(removed, describeToolCall(tc))
		}

		if len(kept) == len(m.ToolCalls) {
			repaired = append(repaired, m)
			continue
		}

		m.ToolCalls = kept
		if len(kept) == 0 && strings.TrimSpace(m.Content) == "" {
			continue
		}
		repaired = append(repaired, m)
	}

	return repaired, removed, len(removed)
}

// describeToolCall renders a tool call as "Name(key=value, ...)" for the
// orphan-repair system reminder.
func describeToolCall(tc models.ToolCall) string {
	if len(tc.Input) == 0 {
		return tc.Name + "()"
	}
	var args map[string]any
	if err := json.Unmarshal(tc.Input, &args); err != nil || len(args) == 0 {
		return tc.Name + "()"
	}
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, args[k]))
	}
	return fmt.Sprintf("%s(%s)", tc.Name, strings.Join(parts, ", "))
}

// orphanRepairReminder builds the user-role system reminder appended after an
// orphan tool-call repair pass, listing every call that was removed.
func orphanRepairReminder(removed []string) string {
	var sb strings.Builder
	sb.WriteString("<system-reminder>\n")
	sb.WriteString("The following tool calls were removed from the conversation because they never received a tool result:\n")
	for _, r := range removed {
		sb.WriteString("- ")
		sb.WriteString(r)
		sb.WriteString("\n")
	}
	sb.WriteString("</system-reminder>")
	return sb.String()
}
