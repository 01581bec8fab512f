package userdata

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/agentx-labs/compkg/internal/branding"
	"github.com/agentx-labs/compkg/internal/config"
)

// ProjectConfigFile is the project-local config merged over the user config.
const ProjectConfigFile = "compkg.yaml"

// InstructionsFile is the shared agent instructions file.
const InstructionsFile = "AGENTS.md"

// Permission constants.
const (
	DirPermNormal  os.FileMode = 0755
	FilePermNormal os.FileMode = 0644
)

// Layout locates everything an install touches.
type Layout struct {
	// ProjectDir is the absolute project root.
	ProjectDir string
	// InstallDir is where component files go, relative to ProjectDir.
	InstallDir string
	// LockFile is the lock path relative to ProjectDir.
	LockFile string
	// HostConfig is the host config path relative to ProjectDir.
	HostConfig string
	// ProfilesDir is the absolute root holding installed profiles.
	ProfilesDir string
}

// NewLayout builds a Layout from configuration. Empty config values fall
// back to the branding defaults.
func NewLayout(projectDir string, cfg *config.Config) Layout {
	l := Layout{
		ProjectDir:  projectDir,
		InstallDir:  branding.HostDir(),
		LockFile:    branding.LockFile(),
		HostConfig:  branding.HostConfig(),
		ProfilesDir: filepath.Join(config.Dir(), "profiles"),
	}
	if cfg != nil {
		if cfg.InstallDir != "" {
			l.InstallDir = cfg.InstallDir
		}
		if cfg.LockFile != "" {
			l.LockFile = cfg.LockFile
		}
		if cfg.HostConfig != "" {
			l.HostConfig = cfg.HostConfig
		}
		if cfg.ProfilesDir != "" {
			l.ProfilesDir = cfg.ProfilesDir
		}
	}
	return l
}

// LockPath returns the absolute lock file path.
func (l Layout) LockPath() string {
	return filepath.Join(l.ProjectDir, l.LockFile)
}

// ProfilePath returns the install destination of a named profile.
func (l Layout) ProfilePath(name string) string {
	return filepath.Join(l.ProfilesDir, name)
}

// TargetPath maps a manifest target to a project-relative, slash-separated
// path under the install directory. A target already prefixed with the
// install directory is not prefixed twice.
func (l Layout) TargetPath(target string) string {
	dir := filepath.ToSlash(filepath.Clean(l.InstallDir))
	return path.Join(dir, StripPrefix(target, dir))
}

// StripPrefix removes a leading "dir/" from a slash-separated target.
func StripPrefix(target, dir string) string {
	t := strings.TrimPrefix(path.Clean("/"+filepath.ToSlash(target)), "/")
	dir = strings.Trim(dir, "/")
	if t == dir {
		return ""
	}
	return strings.TrimPrefix(t, dir+"/")
}

// FlatFiles are the profile files kept at the profile root.
func FlatFiles() []string {
	return []string{ProjectConfigFile, branding.HostConfig(), InstructionsFile}
}

// IsFlat reports whether target is one of the profile-root files.
func IsFlat(target string) bool {
	t := strings.TrimPrefix(path.Clean("/"+filepath.ToSlash(target)), "/")
	for _, f := range FlatFiles() {
		if t == f {
			return true
		}
	}
	return false
}

// ProfileTarget maps a manifest target to a slash-separated path within a
// profile directory: flat files stay at the root, everything else goes
// under the host directory.
func ProfileTarget(target string) string {
	t := strings.TrimPrefix(path.Clean("/"+filepath.ToSlash(target)), "/")
	if IsFlat(t) {
		return t
	}
	return path.Join(branding.HostDir(), StripPrefix(t, branding.HostDir()))
}
