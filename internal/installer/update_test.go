package installer

import (
	"context"
	"testing"

	"github.com/agentx-labs/compkg/internal/errs"
	"github.com/agentx-labs/compkg/internal/lockfile"
	"github.com/agentx-labs/compkg/internal/manifest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func installGraph(t *testing.T, e *testEnv) {
	t.Helper()
	e.publishGraph()
	_, err := e.installer().Add(context.Background(), []string{"acme/agent-x"}, AddOptions{})
	require.NoError(t, err)
}

// publishSkillY110 publishes a changed skill-y as 1.1.0.
func publishSkillY110(t *testing.T, e *testEnv) {
	e.acme.Publish(t, "1.1.0", manifest.Component{
		Name:         "skill-y",
		Type:         manifest.KindSkill,
		Files:        []manifest.FileEntry{{Source: "SKILL.md", Target: "skills/skill-y/SKILL.md"}},
		Dependencies: []manifest.DependencyRef{{Namespace: "tools", Name: "plugin-z"}},
	})
	e.acme.SetFile("skill-y", "SKILL.md", "skill-y v1.1")
}

func TestUpdate_SelectionErrors(t *testing.T) {
	e := newTestEnv(t)
	installGraph(t, e)

	tests := []struct {
		name string
		opts UpdateOptions
		want string
	}{
		{"names and all", UpdateOptions{Targets: []string{"acme/skill-y"}, All: true}, "with --all"},
		{"names and registry", UpdateOptions{Targets: []string{"acme/skill-y"}, Registry: "acme"}, "with --registry"},
		{"all and registry", UpdateOptions{All: true, Registry: "acme"}, "mutually exclusive"},
		{"nothing selected", UpdateOptions{}, "specify components"},
		{"empty version", UpdateOptions{Targets: []string{"acme/skill-y@"}}, "empty version"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.installer().Update(context.Background(), tt.opts)
			require.Error(t, err)
			assert.True(t, errs.Is(err, errs.KindValidation), err.Error())
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestUpdate_NothingInstalled(t *testing.T) {
	e := newTestEnv(t)
	_, err := e.installer().Update(context.Background(), UpdateOptions{All: true})
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindNotFound))
	assert.Contains(t, err.Error(), "nothing installed")
}

func TestUpdate_BareNames(t *testing.T) {
	e := newTestEnv(t)
	installGraph(t, e)

	_, err := e.installer().Update(context.Background(), UpdateOptions{Targets: []string{"skill-y"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "did you mean acme/skill-y?")

	_, err = e.installer().Update(context.Background(), UpdateOptions{Targets: []string{"nope"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must include a registry prefix")

	// A second installed skill-y from another registry makes the name ambiguous.
	e.tools.Publish(t, "1.0.0", manifest.Component{Name: "skill-y", Type: manifest.KindSkill})
	_, err = e.installer().Add(context.Background(), []string{"tools/skill-y"}, AddOptions{})
	require.NoError(t, err)

	_, err = e.installer().Update(context.Background(), UpdateOptions{Targets: []string{"skill-y"}})
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindValidation))
	assert.Contains(t, err.Error(), "acme/skill-y, tools/skill-y")
}

func TestUpdate_NotInstalled(t *testing.T) {
	e := newTestEnv(t)
	installGraph(t, e)

	_, err := e.installer().Update(context.Background(), UpdateOptions{Targets: []string{"acme/other"}})
	assert.True(t, errs.Is(err, errs.KindNotFound))

	_, err = e.installer().Update(context.Background(), UpdateOptions{Registry: "ghost"})
	assert.True(t, errs.Is(err, errs.KindNotFound))
}

func TestUpdate_UpToDate(t *testing.T) {
	e := newTestEnv(t)
	installGraph(t, e)
	before := e.lockBytes()

	records, err := e.installer().Update(context.Background(), UpdateOptions{All: true})
	require.NoError(t, err)
	require.Len(t, records, 3)
	for _, r := range records {
		assert.Equal(t, StatusUpToDate, r.Status, r.Name)
		assert.Equal(t, r.OldVersion, r.NewVersion)
	}
	assert.Equal(t, before, e.lockBytes())
}

func TestUpdate_DryRunNeverWrites(t *testing.T) {
	e := newTestEnv(t)
	installGraph(t, e)
	publishSkillY110(t, e)
	before := e.lockBytes()

	records, err := e.installer().Update(context.Background(), UpdateOptions{Targets: []string{"acme/skill-y"}, DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, []UpdateRecord{{Name: "acme/skill-y", OldVersion: "1.0.0", NewVersion: "1.1.0", Status: StatusWouldUpdate}}, records)

	assert.Equal(t, "skill-y:SKILL.md", e.read(".agents/skills/skill-y/SKILL.md"))
	assert.Equal(t, before, e.lockBytes())
}

func TestUpdate_WritesFilesAndLock(t *testing.T) {
	e := newTestEnv(t)
	installGraph(t, e)
	publishSkillY110(t, e)
	e.clock = t0.AddDate(0, 1, 0)

	records, err := e.installer().Update(context.Background(), UpdateOptions{Registry: "acme"})
	require.NoError(t, err)
	assert.Equal(t, []UpdateRecord{
		{Name: "acme/agent-x", OldVersion: "1.0.0", NewVersion: "1.0.0", Status: StatusUpToDate},
		{Name: "acme/skill-y", OldVersion: "1.0.0", NewVersion: "1.1.0", Status: StatusUpdated},
	}, records)

	assert.Equal(t, "skill-y v1.1", e.read(".agents/skills/skill-y/SKILL.md"))

	entry, ok := e.lock().Get("acme/skill-y")
	require.True(t, ok)
	assert.Equal(t, "1.1.0", entry.Version)
	assert.Equal(t, "acme", entry.Registry)
	assert.True(t, entry.InstalledAt.Equal(t0), "install time is preserved")
	require.NotNil(t, entry.UpdatedAt)
	assert.True(t, entry.UpdatedAt.Equal(e.clock))
	assert.NoError(t, lockfile.Verify(e.dir, entry))

	// The updated entry is now trusted: a plain re-add succeeds.
	_, err = e.installer().Add(context.Background(), []string{"acme/agent-x"}, AddOptions{})
	require.NoError(t, err)
}

func TestUpdate_PinnedVersion(t *testing.T) {
	e := newTestEnv(t)
	installGraph(t, e)
	publishSkillY110(t, e)

	records, err := e.installer().Update(context.Background(), UpdateOptions{Targets: []string{"acme/skill-y@1.0.0", "acme/skill-y@1.0.0"}})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "1.0.0", records[0].NewVersion)
	// Files are served unversioned, so 1.0.0 now carries the changed bytes.
	assert.Equal(t, StatusUpdated, records[0].Status)
}
