package hostconfig

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/agentx-labs/compkg/internal/manifest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readJSON(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestHostFragment_AgentScopedMcp(t *testing.T) {
	agg := Aggregate{
		McpServers:      map[string]manifest.McpServer{"github": {Type: "remote", URL: "https://mcp.example/github"}},
		AgentMcpServers: map[string][]string{"reviewer": {"github"}},
		DisabledTools:   []string{"bash"},
	}

	frag, err := agg.HostFragment()
	require.NoError(t, err)

	tools := frag["tools"].(map[string]any)
	assert.Equal(t, false, tools["github*"])
	assert.Equal(t, false, tools["bash"])

	reviewer := frag["agent"].(map[string]any)["reviewer"].(map[string]any)
	assert.Equal(t, map[string]any{"github*": true}, reviewer["tools"])

	mcp := frag["mcp"].(map[string]any)["github"].(map[string]any)
	assert.Equal(t, "remote", mcp["type"])
	assert.Equal(t, "https://mcp.example/github", mcp["url"])
}

func TestApply_MergesIntoExistingJSONC(t *testing.T) {
	dir := t.TempDir()
	existing := `{
  // user settings
  "plugin": ["existing-plugin"],
  "agent": {"reviewer": {"model": "old", "temperature": 0.2}},
}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "agents.json"), []byte(existing), 0644))

	m := NewMerger("agents.json", ".agents", nil)
	written, err := m.Apply(dir, Aggregate{
		Plugins:      []string{"existing-plugin", "new-plugin"},
		Instructions: []string{"AGENTS.md"},
		AgentConfig:  map[string]map[string]any{"reviewer": {"model": "new"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"agents.json"}, written)

	got := readJSON(t, filepath.Join(dir, "agents.json"))
	assert.Equal(t, []any{"existing-plugin", "new-plugin"}, got["plugin"])
	assert.Equal(t, []any{"AGENTS.md"}, got["instructions"])
	reviewer := got["agent"].(map[string]any)["reviewer"].(map[string]any)
	assert.Equal(t, "new", reviewer["model"])
	assert.Equal(t, 0.2, reviewer["temperature"])
}

func TestApply_PackageJSON(t *testing.T) {
	dir := t.TempDir()
	pkgPath := filepath.Join(dir, ".agents", "package.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(pkgPath), 0755))
	require.NoError(t, os.WriteFile(pkgPath, []byte(`{"name":"mine","dependencies":{"zod":"^3.0.0"}}`), 0644))

	m := NewMerger("agents.json", ".agents", nil)
	written, err := m.Apply(dir, Aggregate{
		NpmDependencies:    []string{"zod", "@scope/tool@1.2.0"},
		NpmDevDependencies: []string{"typescript@5"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(".agents", "package.json")}, written)

	got := readJSON(t, pkgPath)
	assert.Equal(t, "mine", got["name"])
	assert.Equal(t, map[string]any{"zod": "^3.0.0", "@scope/tool": "1.2.0"}, got["dependencies"])
	assert.Equal(t, map[string]any{"typescript": "5"}, got["devDependencies"])
	_, err = os.Stat(filepath.Join(dir, "agents.json"))
	assert.True(t, os.IsNotExist(err), "host config must not be created when nothing contributes to it")
}

func TestApply_EmptyAggregateWritesNothing(t *testing.T) {
	dir := t.TempDir()
	written, err := NewMerger("agents.json", ".agents", nil).Apply(dir, Aggregate{})
	require.NoError(t, err)
	assert.Empty(t, written)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
