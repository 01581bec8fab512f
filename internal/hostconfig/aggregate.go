package hostconfig

import (
	"sort"

	"github.com/agentx-labs/compkg/internal/manifest"
)

// Aggregate is the side-channel configuration collected from a resolution.
type Aggregate struct {
	McpServers         map[string]manifest.McpServer `json:"mcpServers,omitempty" yaml:"mcpServers,omitempty"`
	AgentMcpServers    map[string][]string           `json:"agentMcpServers,omitempty" yaml:"agentMcpServers,omitempty"`
	NpmDependencies    []string                      `json:"npmDependencies,omitempty" yaml:"npmDependencies,omitempty"`
	NpmDevDependencies []string                      `json:"npmDevDependencies,omitempty" yaml:"npmDevDependencies,omitempty"`
	DisabledTools      []string                      `json:"disabledTools,omitempty" yaml:"disabledTools,omitempty"`
	Plugins            []string                      `json:"plugins,omitempty" yaml:"plugins,omitempty"`
	Instructions       []string                      `json:"instructions,omitempty" yaml:"instructions,omitempty"`
	AgentConfig        map[string]map[string]any     `json:"agentConfig,omitempty" yaml:"agentConfig,omitempty"`
}

// Empty reports whether the aggregate contributes nothing.
func (a Aggregate) Empty() bool {
	return len(a.McpServers) == 0 && len(a.AgentMcpServers) == 0 &&
		len(a.NpmDependencies) == 0 && len(a.NpmDevDependencies) == 0 &&
		len(a.DisabledTools) == 0 && len(a.Plugins) == 0 &&
		len(a.Instructions) == 0 && len(a.AgentConfig) == 0
}

// HostFragment renders the agents.json fragment for the aggregate.
func (a Aggregate) HostFragment() (map[string]any, error) {
	frag := map[string]any{}

	if len(a.McpServers) > 0 {
		mcp := map[string]any{}
		for name, srv := range a.McpServers {
			v, err := ToValue(srv)
			if err != nil {
				return nil, err
			}
			mcp[name] = v
		}
		frag["mcp"] = mcp
	}
	if len(a.Plugins) > 0 {
		frag["plugin"] = Strings(a.Plugins)
	}
	if len(a.Instructions) > 0 {
		frag["instructions"] = Strings(a.Instructions)
	}

	agents := map[string]any{}
	for name, cfg := range a.AgentConfig {
		v, err := ToValue(cfg)
		if err != nil {
			return nil, err
		}
		agents[name] = v
	}

	tools := map[string]any{}
	for _, t := range a.DisabledTools {
		tools[t] = false
	}

	agentNames := make([]string, 0, len(a.AgentMcpServers))
	for name := range a.AgentMcpServers {
		agentNames = append(agentNames, name)
	}
	sort.Strings(agentNames)
	for _, agent := range agentNames {
		enabled := map[string]any{}
		for _, srv := range a.AgentMcpServers[agent] {
			pattern := srv + "*"
			tools[pattern] = false
			enabled[pattern] = true
		}
		agents[agent] = Merge(agents[agent], map[string]any{"tools": enabled})
	}

	if len(agents) > 0 {
		frag["agent"] = agents
	}
	if len(tools) > 0 {
		frag["tools"] = tools
	}
	return frag, nil
}
