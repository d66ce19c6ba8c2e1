// Package permission enforces per-skill path and command restrictions on top
// of the tool registry. A skill declares a PermissionPolicy of allowed/denied
// path globs (for file tools) or allowed/denied command patterns (for the
// shell tool); ToolRegistry.ActiveTools rewraps a tool's base instance with
// WithOverride whenever a skill is active, so the same underlying tool
// enforces a narrower policy for the duration of that skill.
package permission

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar"

	"github.com/haasonsaas/nexus/internal/agent"
)

var (
	commandPatternCacheMu sync.Mutex
	commandPatternCache   = map[string]*regexp.Regexp{}
)

// commandMatches reports whether pattern matches command. Patterns that
// compile as a valid regexp are matched as a substring search; patterns that
// don't compile fall back to a literal substring match so authoring a skill
// policy never requires knowing regexp metacharacter escaping rules.
func commandMatches(pattern, command string) bool {
	if pattern == "" {
		return false
	}
	re := compiledCommandPattern(pattern)
	if re != nil {
		return re.MatchString(command)
	}
	return strings.Contains(command, pattern)
}

func compiledCommandPattern(pattern string) *regexp.Regexp {
	commandPatternCacheMu.Lock()
	defer commandPatternCacheMu.Unlock()
	if re, ok := commandPatternCache[pattern]; ok {
		return re
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		commandPatternCache[pattern] = nil
		return nil
	}
	commandPatternCache[pattern] = re
	return re
}

// ErrDenied is wrapped into the structured tool-use error returned on a
// permission check failure.
type ErrDenied struct {
	Kind    string // "path" or "command"
	Subject string
	Reason  string
}

func (e *ErrDenied) Error() string {
	return fmt.Sprintf("%s %q denied: %s", e.Kind, e.Subject, e.Reason)
}

// Validator evaluates an agent.PermissionPolicy against concrete paths and
// commands. Deny rules are checked before allow rules: a match on Denied*
// always loses even if Allowed* would also match.
type Validator struct {
	policy agent.PermissionPolicy
}

// New creates a Validator enforcing the given policy.
func New(policy agent.PermissionPolicy) *Validator {
	return &Validator{policy: policy}
}

// CheckPath validates a resolved filesystem path against AllowedPaths and
// DeniedPaths globs. An empty policy (no allow/deny path rules) always
// passes. Glob matching follows POSIX shell semantics by way of doublestar:
// a lone "*" does not cross a path separator, while "**" does.
func (v *Validator) CheckPath(path string) error {
	for _, pattern := range v.policy.DeniedPaths {
		if matched(pattern, path) {
			return &ErrDenied{Kind: "path", Subject: path, Reason: "matches denied pattern " + pattern}
		}
	}
	if len(v.policy.AllowedPaths) == 0 {
		return nil
	}
	for _, pattern := range v.policy.AllowedPaths {
		if matched(pattern, path) {
			return nil
		}
	}
	return &ErrDenied{Kind: "path", Subject: path, Reason: "does not match any allowed path pattern"}
}

// CheckCommand validates a shell command string against AllowedCommands and
// DeniedCommands regex patterns, matched as substrings against the command.
// An empty policy always passes.
func (v *Validator) CheckCommand(command string) error {
	for _, pattern := range v.policy.DeniedCommands {
		if commandMatches(pattern, command) {
			return &ErrDenied{Kind: "command", Subject: command, Reason: "matches denied pattern " + pattern}
		}
	}
	if len(v.policy.AllowedCommands) == 0 {
		return nil
	}
	for _, pattern := range v.policy.AllowedCommands {
		if commandMatches(pattern, command) {
			return nil
		}
	}
	return &ErrDenied{Kind: "command", Subject: command, Reason: "does not match any allowed command pattern"}
}

func matched(pattern, path string) bool {
	ok, err := doublestar.Match(pattern, path)
	if err != nil {
		return false
	}
	return ok
}

// DeniedErrorContent renders the structured tool-use error content the
// agent loop surfaces back to the model on a permission denial, matching the
// <tool_use_error>/<system-reminder> convention used for policy rejections
// elsewhere in the tool layer.
func DeniedErrorContent(err error) string {
	return fmt.Sprintf("<tool_use_error>%s</tool_use_error>\n<system-reminder>This action was blocked by the active skill's permission policy.</system-reminder>", err.Error())
}
