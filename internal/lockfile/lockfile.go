package lockfile

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/agentx-labs/compkg/internal/errs"
	"github.com/agentx-labs/compkg/internal/platform"
)

// Version is the lock format version written by this package.
const Version = 1

// Entry is the installed state of one component.
type Entry struct {
	Registry    string     `json:"registry"`
	Version     string     `json:"version"`
	Hash        string     `json:"hash"`
	Files       []string   `json:"files"`
	InstalledAt time.Time  `json:"installedAt"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

// NewEntry builds an entry for a fresh install of files.
func NewEntry(registry, version string, files []File, now time.Time) Entry {
	return Entry{
		Registry:    registry,
		Version:     version,
		Hash:        HashBundle(files),
		Files:       Paths(files),
		InstalledAt: now.UTC(),
	}
}

// Updated returns e moved to version with the given files. The registry and
// original install time are preserved.
func (e Entry) Updated(version string, files []File, now time.Time) Entry {
	ts := now.UTC()
	return Entry{
		Registry:    e.Registry,
		Version:     version,
		Hash:        HashBundle(files),
		Files:       Paths(files),
		InstalledAt: e.InstalledAt,
		UpdatedAt:   &ts,
	}
}

// LockFile is the lock for one install target.
type LockFile struct {
	LockVersion int              `json:"lockVersion"`
	Installed   map[string]Entry `json:"installed"`
}

// New returns an empty lock.
func New() *LockFile {
	return &LockFile{LockVersion: Version, Installed: map[string]Entry{}}
}

// Empty reports whether nothing is recorded.
func (l *LockFile) Empty() bool {
	return l == nil || len(l.Installed) == 0
}

// Get returns the entry for a qualified name.
func (l *LockFile) Get(qualified string) (Entry, bool) {
	if l == nil {
		return Entry{}, false
	}
	e, ok := l.Installed[qualified]
	return e, ok
}

// Set records an entry.
func (l *LockFile) Set(qualified string, e Entry) {
	if l.Installed == nil {
		l.Installed = map[string]Entry{}
	}
	l.Installed[qualified] = e
}

// Names returns every installed qualified name, sorted.
func (l *LockFile) Names() []string {
	if l == nil {
		return nil
	}
	names := make([]string, 0, len(l.Installed))
	for n := range l.Installed {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// NamesFrom returns installed qualified names whose entry came from registry, sorted.
func (l *LockFile) NamesFrom(registry string) []string {
	var names []string
	for _, n := range l.Names() {
		if l.Installed[n].Registry == registry {
			names = append(names, n)
		}
	}
	return names
}

// Versions maps each installed qualified name to its locked version.
func (l *LockFile) Versions() map[string]string {
	out := make(map[string]string)
	for _, n := range l.Names() {
		out[n] = l.Installed[n].Version
	}
	return out
}

// Owners maps each recorded file path to the component that installed it.
// When entries overlap, the first name in sorted order wins.
func (l *LockFile) Owners() map[string]string {
	out := make(map[string]string)
	for _, n := range l.Names() {
		for _, p := range l.Installed[n].Files {
			if _, ok := out[p]; !ok {
				out[p] = n
			}
		}
	}
	return out
}

// MatchName returns installed qualified names whose component part is name, sorted.
func (l *LockFile) MatchName(name string) []string {
	var names []string
	for _, n := range l.Names() {
		if _, comp, ok := strings.Cut(n, "/"); ok && comp == name {
			names = append(names, n)
		}
	}
	return names
}

// Source describes where a profile itself came from.
type Source struct {
	Registry    string    `json:"registry"`
	Component   string    `json:"component"`
	Version     string    `json:"version"`
	Hash        string    `json:"hash"`
	InstalledAt time.Time `json:"installedAt"`
}

// ProfileLock is the lock written inside an installed profile.
type ProfileLock struct {
	LockVersion   int              `json:"lockVersion"`
	InstalledFrom Source           `json:"installedFrom"`
	Installed     map[string]Entry `json:"installed"`
}

// Read loads the lock file at path. Returns nil, nil if it does not exist.
func Read(path string) (*LockFile, error) {
	var l LockFile
	ok, err := readJSON(path, &l)
	if err != nil || !ok {
		return nil, err
	}
	if err := checkVersion(path, l.LockVersion); err != nil {
		return nil, err
	}
	if l.Installed == nil {
		l.Installed = map[string]Entry{}
	}
	return &l, nil
}

// ReadProfile loads a profile lock. Returns nil, nil if it does not exist.
func ReadProfile(path string) (*ProfileLock, error) {
	var l ProfileLock
	ok, err := readJSON(path, &l)
	if err != nil || !ok {
		return nil, err
	}
	if err := checkVersion(path, l.LockVersion); err != nil {
		return nil, err
	}
	return &l, nil
}

// Write replaces the lock file at path in one step.
func Write(path string, l *LockFile) error {
	if l.LockVersion == 0 {
		l.LockVersion = Version
	}
	return writeJSON(path, l)
}

// WriteProfile writes a profile lock.
func WriteProfile(path string, l *ProfileLock) error {
	if l.LockVersion == 0 {
		l.LockVersion = Version
	}
	if l.Installed == nil {
		l.Installed = map[string]Entry{}
	}
	return writeJSON(path, l)
}

func readJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading lock file: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, errs.Wrap(errs.KindValidation, err, "parsing lock file %s", path)
	}
	return true, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling lock file: %w", err)
	}
	data = append(data, '\n')
	if err := platform.WriteFileAtomic(path, data, 0644); err != nil {
		return fmt.Errorf("writing lock file: %w", err)
	}
	return nil
}

func checkVersion(path string, v int) error {
	if v != Version {
		return errs.Validationf("lock file %s has unsupported lockVersion %d (expected %d)", path, v, Version)
	}
	return nil
}

// Verify rehashes the files recorded in e, relative to root, and returns an
// Integrity error if any file is missing or the bundle hash differs.
func Verify(root string, e Entry) error {
	files := make([]File, 0, len(e.Files))
	var missing []string
	for _, p := range e.Files {
		full, err := platform.SafeJoin(root, p)
		if err != nil {
			return errs.Wrap(errs.KindValidation, err, "lock entry path")
		}
		data, err := os.ReadFile(full)
		if os.IsNotExist(err) {
			missing = append(missing, p)
			continue
		}
		if err != nil {
			return fmt.Errorf("reading %s: %w", full, err)
		}
		files = append(files, File{Path: p, Content: data})
	}
	if len(missing) > 0 {
		return errs.Integrityf("installed files missing: %s", strings.Join(missing, ", "))
	}
	if got := HashBundle(files); got != e.Hash {
		return errs.Integrityf("bundle hash mismatch: recorded %s, found %s", short(e.Hash), short(got))
	}
	return nil
}

func short(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
