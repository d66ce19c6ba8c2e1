package agent

// PermissionPolicy describes the glob/regex allow and deny rules enforced by
// a permission-wrapped tool. Path-oriented tools match AllowedPaths/DeniedPaths
// against the resolved file path; the command tool matches AllowedCommands/
// DeniedCommands as substrings against the command string.
type PermissionPolicy struct {
	AllowedPaths    []string
	DeniedPaths     []string
	AllowedCommands []string
	DeniedCommands  []string
}

// IsZero reports whether the policy carries no restrictions at all.
func (p PermissionPolicy) IsZero() bool {
	return len(p.AllowedPaths) == 0 && len(p.DeniedPaths) == 0 &&
		len(p.AllowedCommands) == 0 && len(p.DeniedCommands) == 0
}

// SkillState is the runtime projection of a loaded skill: the tool subset it
// exposes and any per-tool permission overrides. A nil tools list (or an
// empty one) means "no restriction" - the full registered tool set remains
// active. See ToolRegistry.ActiveTools for how this is resolved against the
// registry.
type SkillState struct {
	// FilePath is the memory entry this skill was loaded from.
	FilePath string

	// Tools restricts the active set to this list, unioned with every
	// non-removable tool. Nil or empty means no restriction.
	Tools []string

	// Permissions overrides the wrapping policy for specific tool names
	// while the skill is active.
	Permissions map[string]PermissionPolicy
}

// Restricted reports whether this state actually narrows the tool set.
func (s *SkillState) Restricted() bool {
	return s != nil && len(s.Tools) > 0
}
