package manifest

import "encoding/json"

// Kind is the component type discriminator.
type Kind string

// Component kinds.
const (
	KindAgent   Kind = "agent"
	KindSkill   Kind = "skill"
	KindPlugin  Kind = "plugin"
	KindCommand Kind = "command"
	KindTool    Kind = "tool"
	KindBundle  Kind = "bundle"
	KindProfile Kind = "profile"
)

// ValidKinds contains all valid component kinds.
var ValidKinds = []Kind{
	KindAgent,
	KindSkill,
	KindPlugin,
	KindCommand,
	KindTool,
	KindBundle,
	KindProfile,
}

// MCP scopes.
const (
	ScopeAgent  = "agent"
	ScopeGlobal = "global"
)

// Component is a normalized component manifest.
type Component struct {
	Name               string               `json:"name" yaml:"name"`
	Type               Kind                 `json:"type" yaml:"type"`
	Description        string               `json:"description,omitempty" yaml:"description,omitempty"`
	Files              []FileEntry          `json:"files,omitempty" yaml:"files,omitempty"`
	Dependencies       []DependencyRef      `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	McpServers         map[string]McpServer `json:"mcpServers,omitempty" yaml:"mcpServers,omitempty"`
	McpScope           string               `json:"mcpScope,omitempty" yaml:"mcpScope,omitempty"`
	NpmDependencies    []string             `json:"npmDependencies,omitempty" yaml:"npmDependencies,omitempty"`
	NpmDevDependencies []string             `json:"npmDevDependencies,omitempty" yaml:"npmDevDependencies,omitempty"`
	DisabledTools      []string             `json:"disabledTools,omitempty" yaml:"disabledTools,omitempty"`
	HostConfig         *HostConfig          `json:"hostConfig,omitempty" yaml:"hostConfig,omitempty"`
}

// FileEntry maps a registry-relative source path to a project-relative target.
type FileEntry struct {
	Source string `json:"path" yaml:"path"`
	Target string `json:"target" yaml:"target"`
}

// McpServer describes one MCP server. A bare URL string decodes as a remote server.
type McpServer struct {
	Type        string            `json:"type,omitempty" yaml:"type,omitempty"`
	URL         string            `json:"url,omitempty" yaml:"url,omitempty"`
	Command     []string          `json:"command,omitempty" yaml:"command,omitempty"`
	Environment map[string]string `json:"environment,omitempty" yaml:"environment,omitempty"`
	Headers     map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Enabled     *bool             `json:"enabled,omitempty" yaml:"enabled,omitempty"`
}

// HostConfig is the fragment a component contributes to the host configuration.
type HostConfig struct {
	Plugin       []string                  `json:"plugin,omitempty" yaml:"plugin,omitempty"`
	Instructions []string                  `json:"instructions,omitempty" yaml:"instructions,omitempty"`
	Agent        map[string]map[string]any `json:"agent,omitempty" yaml:"agent,omitempty"`
	Tools        map[string]bool           `json:"tools,omitempty" yaml:"tools,omitempty"`
}

// Packument is a registry's document for one component: every published
// version's manifest plus dist-tags.
type Packument struct {
	Name     string                     `json:"name"`
	DistTags map[string]string          `json:"dist-tags,omitempty"`
	Versions map[string]json.RawMessage `json:"versions"`
}

// RegistryIndex lists the components a registry serves.
type RegistryIndex struct {
	Name       string       `json:"name"`
	Version    string       `json:"version"`
	Components []IndexEntry `json:"components"`
}

// IndexEntry is one component in a RegistryIndex.
type IndexEntry struct {
	Name        string `json:"name"`
	Type        Kind   `json:"type"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version,omitempty"`
}

// IsValidKind reports whether k is a known component kind.
func IsValidKind(k Kind) bool {
	for _, v := range ValidKinds {
		if v == k {
			return true
		}
	}
	return false
}

// Normalize fills defaults and qualifies bare dependency references with
// namespace. It is idempotent.
func (c *Component) Normalize(namespace string) {
	if c.McpScope == "" {
		c.McpScope = ScopeAgent
	}
	for i := range c.Files {
		if c.Files[i].Target == "" {
			c.Files[i].Target = c.Files[i].Source
		}
	}
	for i := range c.Dependencies {
		if c.Dependencies[i].Namespace == "" {
			c.Dependencies[i].Namespace = namespace
		}
	}
}
