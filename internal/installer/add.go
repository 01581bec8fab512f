package installer

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"

	"github.com/agentx-labs/compkg/internal/errs"
	"github.com/agentx-labs/compkg/internal/lockfile"
	"github.com/agentx-labs/compkg/internal/manifest"
	"github.com/agentx-labs/compkg/internal/platform"
	"github.com/agentx-labs/compkg/internal/registry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// AddOptions controls Add.
type AddOptions struct {
	// Force overwrites locally modified files.
	Force bool
	// DryRun reports the plan, including conflicts, without writing.
	DryRun bool
}

// FileAction is what Add does with one target path.
type FileAction string

const (
	ActionCreate    FileAction = "create"
	ActionUnchanged FileAction = "unchanged"
	ActionOverwrite FileAction = "overwrite"
	ActionConflict  FileAction = "conflict"
)

// PlannedFile is one file Add writes or skips.
type PlannedFile struct {
	Component string     `json:"component" yaml:"component"`
	Path      string     `json:"path" yaml:"path"`
	Action    FileAction `json:"action" yaml:"action"`
}

// ComponentStatus summarizes one component in an Add.
type ComponentStatus string

const (
	StatusInstalled ComponentStatus = "installed"
	StatusUnchanged ComponentStatus = "unchanged"
	StatusRestored  ComponentStatus = "restored"
)

// AddedComponent reports one component in an Add.
type AddedComponent struct {
	Name    string          `json:"name" yaml:"name"`
	Version string          `json:"version" yaml:"version"`
	Status  ComponentStatus `json:"status" yaml:"status"`
}

// AddResult is the outcome of Add.
type AddResult struct {
	Components []AddedComponent `json:"components" yaml:"components"`
	Files      []PlannedFile    `json:"files" yaml:"files"`
	Conflicts  []string         `json:"conflicts,omitempty" yaml:"conflicts,omitempty"`
	HostFiles  []string         `json:"hostFiles,omitempty" yaml:"hostFiles,omitempty"`
	DryRun     bool             `json:"dryRun,omitempty" yaml:"dryRun,omitempty"`

	Plan *registry.Result `json:"-" yaml:"-"`
}

// Add resolves refs with their dependencies and installs every resolved
// component into the project. Locked components stay at their locked
// version. Nothing is written when a locked component's content no longer
// matches its lock entry, when two components target one path with different
// content, or when a locally modified file would be overwritten without
// Force. The lock file is written last.
func (in *Installer) Add(ctx context.Context, refs []string, opts AddOptions) (*AddResult, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "installer.add")
	defer span.End()

	res, err := in.add(ctx, refs, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("components", len(res.Components)), attribute.Bool("dry_run", opts.DryRun))
	return res, nil
}

func (in *Installer) add(ctx context.Context, refs []string, opts AddOptions) (*AddResult, error) {
	if len(refs) == 0 {
		return nil, errs.Validationf("no components given")
	}

	lock, err := lockfile.Read(in.layout.LockPath())
	if err != nil {
		return nil, err
	}
	if lock == nil {
		lock = lockfile.New()
	}

	// Locked components resolve at their locked version, so their
	// dependencies and host config come from the locked manifest too. An
	// explicit version on a locked root is left unpinned and checked below.
	pins := lock.Versions()
	for _, ref := range refs {
		q, version, err := manifest.ParseRef(ref)
		if err != nil {
			return nil, err
		}
		if version != "" {
			delete(pins, q.String())
		}
	}

	plan, err := in.resolver.Resolve(ctx, in.registries, refs, registry.WithPins(pins))
	if err != nil {
		return nil, err
	}
	for _, rc := range plan.Components {
		name := rc.Name.String()
		if e, ok := lock.Get(name); ok && e.Version != rc.Version {
			return nil, errs.Validationf("%s is locked at %s; run `update %s@%s` to change its version",
				name, e.Version, name, rc.Version)
		}
	}

	bundles := make([]bundle, 0, len(plan.Components))
	inBatch := make(map[string]bool, len(plan.Components))
	for _, rc := range plan.Components {
		b, err := in.fetchBundle(ctx, rc, in.layout.TargetPath)
		if err != nil {
			return nil, err
		}
		bundles = append(bundles, b)
		inBatch[rc.Name.String()] = true
	}

	for _, b := range bundles {
		name := b.component.Name.String()
		e, ok := lock.Get(name)
		if !ok {
			continue
		}
		if got := lockfile.HashBundle(b.files); got != e.Hash {
			return nil, errs.Integrityf(
				"registry served different content for %s@%s than recorded in %s (locked %s, fetched %s); run `update %s` to accept it",
				name, e.Version, in.layout.LockFile, short(e.Hash), short(got), name)
		}
	}

	result := &AddResult{Plan: plan, DryRun: opts.DryRun}
	touched := make(map[string]bool, len(bundles))
	owners := lock.Owners()
	planned := make(map[string]plannedWrite)
	for _, b := range bundles {
		name := b.component.Name.String()
		for _, f := range b.files {
			if prev, ok := planned[f.Path]; ok {
				if !bytes.Equal(prev.content, f.Content) {
					return nil, overlapConflict(prev.component, name, f.Path)
				}
				action := result.Files[prev.index].Action
				if action != ActionUnchanged {
					touched[name] = true
				}
				result.Files = append(result.Files, PlannedFile{Component: name, Path: f.Path, Action: action})
				continue
			}

			full, err := platform.SafeJoin(in.layout.ProjectDir, f.Path)
			if err != nil {
				return nil, errs.Wrap(errs.KindValidation, err, "component %s", name)
			}
			state, err := platform.Compare(full, f.Content)
			if err != nil {
				return nil, err
			}
			if err := checkOwner(owners, inBatch, name, f.Path, state); err != nil {
				return nil, err
			}

			action := ActionCreate
			switch state {
			case platform.FileSame:
				action = ActionUnchanged
			case platform.FileDiffers:
				if opts.Force {
					action = ActionOverwrite
				} else {
					action = ActionConflict
					result.Conflicts = append(result.Conflicts, f.Path)
				}
			}
			if action != ActionUnchanged {
				touched[name] = true
			}
			planned[f.Path] = plannedWrite{component: name, content: f.Content, index: len(result.Files)}
			result.Files = append(result.Files, PlannedFile{Component: name, Path: f.Path, Action: action})
		}
	}

	for _, b := range bundles {
		name := b.component.Name.String()
		status := StatusInstalled
		if _, locked := lock.Get(name); locked {
			status = StatusUnchanged
			if touched[name] {
				status = StatusRestored
			}
		}
		result.Components = append(result.Components, AddedComponent{Name: name, Version: b.component.Version, Status: status})
	}

	if opts.DryRun {
		return result, nil
	}
	if len(result.Conflicts) > 0 {
		return nil, errs.Conflict(
			fmt.Sprintf("%d file(s) were modified locally; rerun with --force to overwrite", len(result.Conflicts)),
			result.Conflicts)
	}

	for _, b := range bundles {
		if !touched[b.component.Name.String()] {
			continue
		}
		if err := writeFiles(in.layout.ProjectDir, b.files); err != nil {
			return nil, err
		}
	}

	hostFiles, err := in.merger.Apply(in.layout.ProjectDir, plan.Config)
	if err != nil {
		return nil, fmt.Errorf("merging host config: %w", err)
	}
	result.HostFiles = hostFiles

	now := in.now()
	added := 0
	for _, b := range bundles {
		name := b.component.Name.String()
		if _, locked := lock.Get(name); locked {
			continue
		}
		lock.Set(name, lockfile.NewEntry(b.component.Namespace(), b.component.Version, b.files, now))
		added++
	}
	if added > 0 {
		if err := lockfile.Write(in.layout.LockPath(), lock); err != nil {
			return nil, err
		}
	}
	in.logger.Debug("add complete",
		zap.Int("components", len(bundles)),
		zap.Int("new", added),
		zap.String("lock", filepath.Base(in.layout.LockPath())))
	return result, nil
}

// plannedWrite is the first writer of a path within one Add.
type plannedWrite struct {
	component string
	content   []byte
	index     int
}

// checkOverlaps rejects bundles that write different content to one path.
func checkOverlaps(bundles []bundle) error {
	first := make(map[string]plannedWrite)
	for _, b := range bundles {
		name := b.component.Name.String()
		for _, f := range b.files {
			prev, ok := first[f.Path]
			if !ok {
				first[f.Path] = plannedWrite{component: name, content: f.Content}
				continue
			}
			if !bytes.Equal(prev.content, f.Content) {
				return overlapConflict(prev.component, name, f.Path)
			}
		}
	}
	return nil
}

func overlapConflict(first, second, path string) error {
	return errs.Conflict(fmt.Sprintf("%s and %s install different content at the same path", first, second), []string{path})
}

// checkOwner rejects a write to a path recorded for another locked
// component, unless the content already on disk is what would be written or
// the owner is part of the same batch. Force does not override it.
func checkOwner(owners map[string]string, inBatch map[string]bool, name, path string, state platform.FileState) error {
	owner, ok := owners[path]
	if !ok || owner == name || inBatch[owner] || state == platform.FileSame {
		return nil
	}
	return errs.Conflict(fmt.Sprintf("%s would replace a file installed by %s", name, owner), []string{path})
}

func short(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
