//go:build integration

package integration_test

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/agentx-labs/compkg/internal/config"
	"github.com/agentx-labs/compkg/internal/fetch"
	"github.com/agentx-labs/compkg/internal/fetch/fetchtest"
	"github.com/agentx-labs/compkg/internal/installer"
	"github.com/agentx-labs/compkg/internal/manifest"
	"github.com/agentx-labs/compkg/internal/userdata"
)

// testEnv holds paths to isolated test directories and the registries the
// project is configured against.
type testEnv struct {
	HomeDir     string // user config and profiles root
	ProjectDir  string // a mock project directory
	ProfilesDir string
	ConfigFile  string

	Acme  *fetchtest.Server // configured in the user config file
	Tools *fetchtest.Server // configured by the project's compkg.yaml
}

// setupTestEnv creates isolated temp directories and points COMPKG_CONFIG at
// a user config naming the acme registry. The project file adds tools.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		HomeDir:    t.TempDir(),
		ProjectDir: t.TempDir(),
		Acme:       fetchtest.New(t),
		Tools:      fetchtest.New(t),
	}
	env.ProfilesDir = filepath.Join(env.HomeDir, "profiles")
	env.ConfigFile = filepath.Join(env.HomeDir, "config.yaml")
	t.Setenv("COMPKG_CONFIG", env.ConfigFile)

	writeFile(t, env.ConfigFile, fmt.Sprintf(`registries:
  acme:
    url: %s
    headers:
      X-Registry-Token: secret
profilesDir: %s
`, env.Acme.URL, env.ProfilesDir))
	writeFile(t, filepath.Join(env.ProjectDir, userdata.ProjectConfigFile), fmt.Sprintf(`registries:
  tools:
    url: %s
`, env.Tools.URL))

	return env
}

// loadInstaller builds an installer the way the CLI does for one invocation.
func loadInstaller(t *testing.T, env *testEnv) *installer.Installer {
	t.Helper()
	cfg, err := config.Load(config.Options{ProjectDir: env.ProjectDir})
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	var opts []fetch.Option
	for _, ns := range cfg.Namespaces() {
		if reg := cfg.Registries[ns]; len(reg.Headers) > 0 {
			opts = append(opts, fetch.WithHeaders(reg.URL, reg.Headers))
		}
	}
	return installer.New(fetch.New(opts...), userdata.NewLayout(env.ProjectDir, cfg), cfg.Registries)
}

// publishCatalog publishes a reviewer agent that pulls in a skill from the
// same registry and a plugin from tools, plus a profile built on the agent.
func publishCatalog(t *testing.T, env *testEnv) {
	t.Helper()

	env.Acme.Publish(t, "1.0.0", manifest.Component{
		Name:         "reviewer",
		Type:         manifest.KindAgent,
		Files:        []manifest.FileEntry{{Source: "reviewer.md", Target: "agent/reviewer.md"}},
		Dependencies: []manifest.DependencyRef{{Name: "diff-skill"}},
		McpServers:   map[string]manifest.McpServer{"github": {Type: "remote", URL: "https://mcp.example.com/github"}},
	})
	env.Acme.Publish(t, "1.0.0", manifest.Component{
		Name:         "diff-skill",
		Type:         manifest.KindSkill,
		Files:        []manifest.FileEntry{{Source: "SKILL.md", Target: "skills/diff/SKILL.md"}},
		Dependencies: []manifest.DependencyRef{{Namespace: "tools", Name: "git-plugin"}},
	})
	env.Tools.Publish(t, "2.1.0", manifest.Component{
		Name:            "git-plugin",
		Type:            manifest.KindPlugin,
		Files:           []manifest.FileEntry{{Source: "index.js", Target: "plugin/git.js"}},
		NpmDependencies: []string{"simple-git@3.27.0"},
	})
	env.Acme.Publish(t, "1.0.0", manifest.Component{
		Name:         "team",
		Type:         manifest.KindProfile,
		Files:        []manifest.FileEntry{{Source: "AGENTS.md", Target: "AGENTS.md"}, {Source: "agents.json", Target: "agents.json"}},
		Dependencies: []manifest.DependencyRef{{Name: "reviewer"}},
	})
}

// writeFile creates a file at the given path with the given content.
func writeFile(t *testing.T, path, content string) {
	t.Helper()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("creating dir %s: %v", dir, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

// assertFileExists fails the test if the file does not exist.
func assertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected file to exist: %s (error: %v)", path, err)
	}
}

// assertFileNotExists fails the test if the file exists.
func assertFileNotExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err == nil {
		t.Errorf("expected file NOT to exist: %s", path)
	}
}

// assertFileContains fails if the file doesn't exist or doesn't contain substr.
func assertFileContains(t *testing.T, path, substr string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Errorf("reading %s: %v", path, err)
		return
	}
	if !strings.Contains(string(data), substr) {
		t.Errorf("file %s does not contain %q.\nContents:\n%s", path, substr, string(data))
	}
}
