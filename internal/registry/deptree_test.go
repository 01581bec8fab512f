package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/agentx-labs/compkg/internal/config"
	"github.com/agentx-labs/compkg/internal/errs"
	"github.com/agentx-labs/compkg/internal/manifest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFetcher serves components from memory and counts fetches.
type fakeFetcher struct {
	mu         sync.Mutex
	components map[string]manifest.Component // "baseURL|name"
	calls      map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{components: map[string]manifest.Component{}, calls: map[string]int{}}
}

func (f *fakeFetcher) put(baseURL string, c manifest.Component) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.components[baseURL+"|"+c.Name] = c
}

func (f *fakeFetcher) count(baseURL, name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[baseURL+"|"+name]
}

func (f *fakeFetcher) FetchComponent(_ context.Context, baseURL, name, version string) (*manifest.Component, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[baseURL+"|"+name]++
	c, ok := f.components[baseURL+"|"+name]
	if !ok {
		return nil, "", errs.NotFoundf("%s not found", name)
	}
	// Deep copy so callers may mutate the result.
	raw, err := json.Marshal(c)
	if err != nil {
		return nil, "", err
	}
	var out manifest.Component
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, "", err
	}
	if version == "" {
		version = "1.0.0"
	}
	return &out, version, nil
}

func (f *fakeFetcher) FetchFileContent(context.Context, string, string, string) ([]byte, error) {
	return nil, errs.NotFoundf("no files")
}

const (
	acmeURL  = "https://acme.test"
	toolsURL = "https://tools.test"
)

var testRegistries = map[string]config.Registry{
	"acme":  {URL: acmeURL},
	"tools": {URL: toolsURL},
}

func deps(refs ...string) []manifest.DependencyRef {
	out := make([]manifest.DependencyRef, len(refs))
	for i, r := range refs {
		d, err := manifest.ParseDependency(r)
		if err != nil {
			panic(err)
		}
		out[i] = d
	}
	return out
}

func TestResolve_ExampleOrder(t *testing.T) {
	f := newFakeFetcher()
	f.put(acmeURL, manifest.Component{Name: "agent-x", Type: manifest.KindAgent, Dependencies: deps("skill-y")})
	f.put(acmeURL, manifest.Component{Name: "skill-y", Type: manifest.KindSkill, Dependencies: deps("tools/plugin-z")})
	f.put(toolsURL, manifest.Component{Name: "plugin-z", Type: manifest.KindPlugin})

	res, err := NewResolver(f).Resolve(context.Background(), testRegistries, []string{"acme/agent-x"})
	require.NoError(t, err)
	assert.Equal(t, []string{"tools/plugin-z", "acme/skill-y", "acme/agent-x"}, res.Names())

	skill, ok := res.Get("acme/skill-y")
	require.True(t, ok)
	assert.Equal(t, acmeURL, skill.RegistryURL)
	assert.Equal(t, "acme", skill.Namespace())

	agent, _ := res.Get("acme/agent-x")
	assert.Equal(t, "acme", agent.Manifest.Dependencies[0].Namespace, "bare dependency is normalized to its namespace")
	assert.Equal(t, manifest.ScopeAgent, agent.Manifest.McpScope)
}

func TestResolve_SharedDependencyFetchedOnce(t *testing.T) {
	f := newFakeFetcher()
	f.put(acmeURL, manifest.Component{Name: "a", Type: manifest.KindBundle, Dependencies: deps("b", "c")})
	f.put(acmeURL, manifest.Component{Name: "b", Type: manifest.KindSkill, Dependencies: deps("d")})
	f.put(acmeURL, manifest.Component{Name: "c", Type: manifest.KindSkill, Dependencies: deps("acme/d")})
	f.put(acmeURL, manifest.Component{Name: "d", Type: manifest.KindTool})

	res, err := NewResolver(f).Resolve(context.Background(), testRegistries, []string{"acme/a", "acme/d"})
	require.NoError(t, err)

	assert.Equal(t, []string{"acme/d", "acme/b", "acme/c", "acme/a"}, res.Names())
	assert.Equal(t, 1, f.count(acmeURL, "d"))
	require.Len(t, res.Roots, 2)
	assert.True(t, res.Roots[1].Deduped)
	assert.True(t, res.Roots[0].Children[1].Children[0].Deduped)
}

func TestResolve_Cycle(t *testing.T) {
	f := newFakeFetcher()
	f.put(acmeURL, manifest.Component{Name: "a", Type: manifest.KindSkill, Dependencies: deps("b")})
	f.put(acmeURL, manifest.Component{Name: "b", Type: manifest.KindSkill, Dependencies: deps("tools/c")})
	f.put(toolsURL, manifest.Component{Name: "c", Type: manifest.KindSkill, Dependencies: deps("acme/a")})

	res, err := NewResolver(f).Resolve(context.Background(), testRegistries, []string{"acme/a"})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, errs.Is(err, errs.KindValidation))
	assert.Contains(t, err.Error(), "acme/a -> acme/b -> tools/c -> acme/a")
}

func TestResolve_PinsOverrideRequestedVersions(t *testing.T) {
	f := newFakeFetcher()
	f.put(acmeURL, manifest.Component{Name: "a", Type: manifest.KindAgent, Dependencies: deps("b@2.0.0", "c")})
	f.put(acmeURL, manifest.Component{Name: "b", Type: manifest.KindSkill})
	f.put(acmeURL, manifest.Component{Name: "c", Type: manifest.KindSkill})

	pins := map[string]string{"acme/a": "0.9.0", "acme/b": "1.5.0"}
	res, err := NewResolver(f).Resolve(context.Background(), testRegistries, []string{"acme/a@3.0.0"}, WithPins(pins))
	require.NoError(t, err)

	versions := map[string]string{}
	for _, c := range res.Components {
		versions[c.Name.String()] = c.Version
	}
	assert.Equal(t, map[string]string{"acme/a": "0.9.0", "acme/b": "1.5.0", "acme/c": "1.0.0"}, versions)
	assert.Equal(t, "1.5.0", res.Roots[0].Children[0].Version)
}

func TestResolve_SelfDependency(t *testing.T) {
	f := newFakeFetcher()
	f.put(acmeURL, manifest.Component{Name: "a", Type: manifest.KindSkill, Dependencies: deps("a")})

	_, err := NewResolver(f).Resolve(context.Background(), testRegistries, []string{"acme/a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "acme/a -> acme/a")
}

func TestResolve_Errors(t *testing.T) {
	f := newFakeFetcher()
	f.put(acmeURL, manifest.Component{Name: "needs-missing-registry", Type: manifest.KindSkill, Dependencies: deps("ghost/x")})

	tests := []struct {
		name     string
		request  string
		wantKind errs.Kind
		wantMsg  string
	}{
		{"bare name", "agent-x", errs.KindValidation, "registry prefix"},
		{"empty version", "acme/agent-x@", errs.KindValidation, "empty version"},
		{"nested namespace", "acme/team/agent-x", errs.KindValidation, "more than one"},
		{"unknown registry", "ghost/agent-x", errs.KindConfiguration, `registry "ghost"`},
		{"unknown dependency registry", "acme/needs-missing-registry", errs.KindConfiguration, `registry "ghost"`},
		{"missing component", "acme/nope", errs.KindNotFound, "not found in registry"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := NewResolver(f).Resolve(context.Background(), testRegistries, []string{tt.request})
			require.Error(t, err)
			assert.Nil(t, res)
			assert.Equal(t, tt.wantKind, errs.KindOf(err), err.Error())
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestResolve_PinnedVersion(t *testing.T) {
	f := newFakeFetcher()
	f.put(acmeURL, manifest.Component{Name: "a", Type: manifest.KindSkill, Dependencies: deps("b@2.1.0")})
	f.put(acmeURL, manifest.Component{Name: "b", Type: manifest.KindSkill})

	res, err := NewResolver(f).Resolve(context.Background(), testRegistries, []string{"acme/a@0.3.0"})
	require.NoError(t, err)

	a, _ := res.Get("acme/a")
	b, _ := res.Get("acme/b")
	assert.Equal(t, "0.3.0", a.Version)
	assert.Equal(t, "2.1.0", b.Version)
}

func TestResolve_Aggregation(t *testing.T) {
	enabled := false
	f := newFakeFetcher()
	f.put(acmeURL, manifest.Component{
		Name:         "reviewer",
		Type:         manifest.KindAgent,
		Dependencies: deps("base", "tools/global-agent"),
		McpServers: map[string]manifest.McpServer{
			"github": {Type: "remote", URL: "https://mcp.example/github-v2"},
		},
		NpmDependencies: []string{"zod", "left-pad@1.0.0"},
		HostConfig: &manifest.HostConfig{
			Plugin:       []string{"p1", "p2"},
			Instructions: []string{"REVIEW.md"},
			Agent:        map[string]map[string]any{"reviewer": {"model": "large", "options": map[string]any{"depth": 2.0}}},
			Tools:        map[string]bool{"webfetch": false, "read": true},
		},
	})
	f.put(acmeURL, manifest.Component{
		Name: "base",
		Type: manifest.KindSkill,
		McpServers: map[string]manifest.McpServer{
			"github": {Type: "remote", URL: "https://mcp.example/github"},
		},
		NpmDependencies:    []string{"zod"},
		NpmDevDependencies: []string{"typescript"},
		DisabledTools:      []string{"bash"},
		HostConfig: &manifest.HostConfig{
			Plugin: []string{"p1"},
			Agent:  map[string]map[string]any{"reviewer": {"model": "small", "temperature": 0.1, "options": map[string]any{"strict": true}}},
		},
	})
	f.put(toolsURL, manifest.Component{
		Name:       "global-agent",
		Type:       manifest.KindAgent,
		McpScope:   manifest.ScopeGlobal,
		McpServers: map[string]manifest.McpServer{"search": {Type: "local", Command: []string{"search-mcp"}, Enabled: &enabled}},
	})

	res, err := NewResolver(f).Resolve(context.Background(), testRegistries, []string{"acme/reviewer"})
	require.NoError(t, err)
	cfg := res.Config

	assert.Equal(t, "https://mcp.example/github-v2", cfg.McpServers["github"].URL, "later-resolved definition wins")
	assert.Contains(t, cfg.McpServers, "search")
	assert.Equal(t, map[string][]string{"reviewer": {"github"}}, cfg.AgentMcpServers, "global-scope agents are not bound")
	assert.Equal(t, []string{"zod", "left-pad@1.0.0"}, cfg.NpmDependencies)
	assert.Equal(t, []string{"typescript"}, cfg.NpmDevDependencies)
	assert.Equal(t, []string{"bash", "webfetch"}, cfg.DisabledTools)
	assert.Equal(t, []string{"p1", "p2"}, cfg.Plugins)
	assert.Equal(t, []string{"REVIEW.md"}, cfg.Instructions)
	assert.Equal(t, map[string]any{
		"model":       "large",
		"temperature": 0.1,
		"options":     map[string]any{"strict": true, "depth": 2.0},
	}, cfg.AgentConfig["reviewer"])
}

func TestCheckConflicts(t *testing.T) {
	got := CheckConflicts(
		[]string{"acme/a", "acme/b", "tools/c"},
		[]string{"tools/c", "acme/x", "acme/a"},
	)
	assert.Equal(t, []string{"tools/c", "acme/a"}, got)
	assert.Empty(t, CheckConflicts(nil, []string{"acme/a"}))
}

func TestPrintPlan(t *testing.T) {
	f := newFakeFetcher()
	f.put(acmeURL, manifest.Component{Name: "agent-x", Type: manifest.KindAgent, Dependencies: deps("skill-y", "skill-z")})
	f.put(acmeURL, manifest.Component{Name: "skill-y", Type: manifest.KindSkill})
	f.put(acmeURL, manifest.Component{Name: "skill-z", Type: manifest.KindSkill, Dependencies: deps("skill-y")})

	res, err := NewResolver(f).Resolve(context.Background(), testRegistries, []string{"acme/agent-x"})
	require.NoError(t, err)
	res.MarkInstalled(func(q string) bool { return q == "acme/skill-z" })

	var buf bytes.Buffer
	PrintPlan(&buf, res)
	out := buf.String()

	for _, want := range []string{
		"agent: acme/agent-x@1.0.0",
		"├── skill: acme/skill-y@1.0.0",
		"└── skill: acme/skill-z@1.0.0 (already installed)",
		"skill: acme/skill-y@1.0.0 (deduped)",
		"Install: 1 agent, 2 skills (3 components)",
		"Order: acme/skill-y, acme/skill-z, acme/agent-x",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("plan output missing %q:\n%s", want, out)
		}
	}
}

func ExampleCheckConflicts() {
	fmt.Println(CheckConflicts([]string{"acme/a"}, []string{"acme/a", "acme/b"}))
	// Output: [acme/a]
}
