package registry

import (
	"reflect"
	"sort"

	"github.com/agentx-labs/compkg/internal/hostconfig"
	"github.com/agentx-labs/compkg/internal/manifest"
	"go.uber.org/zap"
)

// orderedSet keeps first-insertion order.
type orderedSet struct {
	seen  map[string]bool
	items []string
}

func (s *orderedSet) add(values ...string) {
	if s.seen == nil {
		s.seen = make(map[string]bool)
	}
	for _, v := range values {
		if v == "" || s.seen[v] {
			continue
		}
		s.seen[v] = true
		s.items = append(s.items, v)
	}
}

type aggregator struct {
	logger       *zap.Logger
	servers      map[string]manifest.McpServer
	serverOwner  map[string]string
	agentServers map[string][]string
	npm          orderedSet
	npmDev       orderedSet
	disabled     orderedSet
	plugins      orderedSet
	instructions orderedSet
	agents       map[string]map[string]any
}

func newAggregator(logger *zap.Logger) *aggregator {
	return &aggregator{
		logger:       logger,
		servers:      make(map[string]manifest.McpServer),
		serverOwner:  make(map[string]string),
		agentServers: make(map[string][]string),
		agents:       make(map[string]map[string]any),
	}
}

func (a *aggregator) add(res *Resolved) {
	c := res.Manifest
	owner := res.Name.String()

	names := sortedKeys(c.McpServers)
	for _, name := range names {
		srv := c.McpServers[name]
		if prev, ok := a.servers[name]; ok && !reflect.DeepEqual(prev, srv) {
			a.logger.Warn("mcp server redefined; later definition wins",
				zap.String("server", name),
				zap.String("previous", a.serverOwner[name]),
				zap.String("winner", owner))
		}
		a.servers[name] = srv
		a.serverOwner[name] = owner
	}
	if c.Type == manifest.KindAgent && c.McpScope == manifest.ScopeAgent && len(names) > 0 {
		a.agentServers[c.Name] = names
	}

	a.npm.add(c.NpmDependencies...)
	a.npmDev.add(c.NpmDevDependencies...)
	a.disabled.add(c.DisabledTools...)

	if hc := c.HostConfig; hc != nil {
		a.plugins.add(hc.Plugin...)
		a.instructions.add(hc.Instructions...)
		for _, tool := range sortedKeys(hc.Tools) {
			if !hc.Tools[tool] {
				a.disabled.add(tool)
			}
		}
		for _, agent := range sortedKeys(hc.Agent) {
			a.agents[agent] = hostconfig.MergeObjects(a.agents[agent], hc.Agent[agent])
		}
	}
}

func (a *aggregator) materialize() hostconfig.Aggregate {
	out := hostconfig.Aggregate{
		NpmDependencies:    a.npm.items,
		NpmDevDependencies: a.npmDev.items,
		DisabledTools:      a.disabled.items,
		Plugins:            a.plugins.items,
		Instructions:       a.instructions.items,
	}
	if len(a.servers) > 0 {
		out.McpServers = a.servers
	}
	if len(a.agentServers) > 0 {
		out.AgentMcpServers = a.agentServers
	}
	if len(a.agents) > 0 {
		out.AgentConfig = a.agents
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
