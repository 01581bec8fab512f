package installer

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/agentx-labs/compkg/internal/config"
	"github.com/agentx-labs/compkg/internal/fetch"
	"github.com/agentx-labs/compkg/internal/fetch/fetchtest"
	"github.com/agentx-labs/compkg/internal/lockfile"
	"github.com/agentx-labs/compkg/internal/manifest"
	"github.com/agentx-labs/compkg/internal/userdata"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

// testEnv is a project directory wired to two fake registries.
type testEnv struct {
	t        *testing.T
	acme     *fetchtest.Server
	tools    *fetchtest.Server
	dir      string
	profiles string
	clock    time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	root := t.TempDir()
	e := &testEnv{
		t:        t,
		acme:     fetchtest.New(t),
		tools:    fetchtest.New(t),
		dir:      filepath.Join(root, "project"),
		profiles: filepath.Join(root, "profiles"),
		clock:    t0,
	}
	require.NoError(t, os.MkdirAll(e.dir, 0755))
	return e
}

func (e *testEnv) registries() map[string]config.Registry {
	return map[string]config.Registry{
		"acme":  {URL: e.acme.URL},
		"tools": {URL: e.tools.URL},
	}
}

// installer returns an Installer with a fresh fetch cache, as a new
// invocation would have.
func (e *testEnv) installer() *Installer {
	layout := userdata.NewLayout(e.dir, &config.Config{ProfilesDir: e.profiles})
	return New(fetch.New(), layout, e.registries(), WithClock(func() time.Time { return e.clock }))
}

func (e *testEnv) path(rel string) string {
	return filepath.Join(e.dir, filepath.FromSlash(rel))
}

func (e *testEnv) read(rel string) string {
	e.t.Helper()
	data, err := os.ReadFile(e.path(rel))
	require.NoError(e.t, err)
	return string(data)
}

func (e *testEnv) write(rel, content string) {
	e.t.Helper()
	require.NoError(e.t, os.MkdirAll(filepath.Dir(e.path(rel)), 0755))
	require.NoError(e.t, os.WriteFile(e.path(rel), []byte(content), 0644))
}

func (e *testEnv) lock() *lockfile.LockFile {
	e.t.Helper()
	l, err := lockfile.Read(filepath.Join(e.dir, "compkg.lock"))
	require.NoError(e.t, err)
	return l
}

func (e *testEnv) lockBytes() string {
	e.t.Helper()
	data, err := os.ReadFile(filepath.Join(e.dir, "compkg.lock"))
	require.NoError(e.t, err)
	return string(data)
}

// publishGraph publishes acme/agent-x -> skill-y -> tools/plugin-z.
func (e *testEnv) publishGraph() {
	e.acme.Publish(e.t, "1.0.0", manifest.Component{
		Name:         "agent-x",
		Type:         manifest.KindAgent,
		Files:        []manifest.FileEntry{{Source: "agent-x.md", Target: "agent/agent-x.md"}},
		Dependencies: []manifest.DependencyRef{{Name: "skill-y"}},
	})
	e.acme.Publish(e.t, "1.0.0", manifest.Component{
		Name:         "skill-y",
		Type:         manifest.KindSkill,
		Files:        []manifest.FileEntry{{Source: "SKILL.md", Target: "skills/skill-y/SKILL.md"}},
		Dependencies: []manifest.DependencyRef{{Namespace: "tools", Name: "plugin-z"}},
	})
	e.tools.Publish(e.t, "1.0.0", manifest.Component{
		Name:  "plugin-z",
		Type:  manifest.KindPlugin,
		Files: []manifest.FileEntry{{Source: "index.js", Target: "plugin/plugin-z.js"}},
	})
}
