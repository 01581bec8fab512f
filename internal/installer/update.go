package installer

import (
	"context"
	"fmt"
	"strings"

	"github.com/agentx-labs/compkg/internal/errs"
	"github.com/agentx-labs/compkg/internal/fetch"
	"github.com/agentx-labs/compkg/internal/lockfile"
	"github.com/agentx-labs/compkg/internal/manifest"
	"github.com/agentx-labs/compkg/internal/registry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// UpdateOptions selects what Update touches. Exactly one of Targets, All,
// or Registry must be set.
type UpdateOptions struct {
	// Targets are "namespace/name[@version]" arguments.
	Targets []string
	// All selects every installed component.
	All bool
	// Registry selects every component installed from one registry.
	Registry string
	// DryRun reports changes without writing.
	DryRun bool
}

// UpdateStatus is the outcome for one updated component.
type UpdateStatus string

const (
	StatusUpdated     UpdateStatus = "updated"
	StatusUpToDate    UpdateStatus = "up-to-date"
	StatusWouldUpdate UpdateStatus = "would-update"
)

// UpdateRecord reports one component processed by Update.
type UpdateRecord struct {
	Name       string       `json:"name" yaml:"name"`
	OldVersion string       `json:"oldVersion" yaml:"oldVersion"`
	NewVersion string       `json:"newVersion" yaml:"newVersion"`
	Status     UpdateStatus `json:"status" yaml:"status"`
}

type updateTarget struct {
	name    manifest.QualifiedName
	version string
}

// Update refreshes previously added components from their registries. Each
// changed component's files are written as it is processed; the lock file is
// rewritten once at the end.
func (in *Installer) Update(ctx context.Context, opts UpdateOptions) ([]UpdateRecord, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "installer.update")
	defer span.End()

	records, err := in.update(ctx, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("targets", len(records)), attribute.Bool("dry_run", opts.DryRun))
	return records, nil
}

func (in *Installer) update(ctx context.Context, opts UpdateOptions) ([]UpdateRecord, error) {
	if err := validateSelection(opts); err != nil {
		return nil, err
	}

	lock, err := lockfile.Read(in.layout.LockPath())
	if err != nil {
		return nil, err
	}
	if lock.Empty() {
		return nil, errs.NotFoundf("nothing installed yet: %s has no components", in.layout.LockFile)
	}

	targets, err := selectTargets(lock, opts)
	if err != nil {
		return nil, err
	}

	var records []UpdateRecord
	changed := 0
	for _, t := range targets {
		rec, wrote, err := in.updateOne(ctx, lock, t, opts.DryRun)
		if err != nil {
			return nil, err
		}
		if wrote {
			changed++
		}
		records = append(records, rec)
	}

	if changed > 0 {
		if err := lockfile.Write(in.layout.LockPath(), lock); err != nil {
			return nil, err
		}
	}
	return records, nil
}

func (in *Installer) updateOne(ctx context.Context, lock *lockfile.LockFile, t updateTarget, dryRun bool) (UpdateRecord, bool, error) {
	key := t.name.String()
	entry, _ := lock.Get(key)
	rec := UpdateRecord{Name: key, OldVersion: entry.Version}

	reg, ok := in.registries[t.name.Namespace]
	if !ok || reg.URL == "" {
		return rec, false, errs.Configurationf("registry %q is not configured (required by %s)", t.name.Namespace, key)
	}

	comp, version, err := in.fetcher.FetchComponent(ctx, reg.URL, t.name.Name, t.version)
	if err != nil {
		return rec, false, fmt.Errorf("component %s not found in registry %q: %w", key, t.name.Namespace, err)
	}
	comp.Normalize(t.name.Namespace)
	rec.NewVersion = version

	b, err := in.fetchBundle(ctx, &registry.Resolved{Manifest: comp, Name: t.name, Version: version, RegistryURL: reg.URL}, in.layout.TargetPath)
	if err != nil {
		return rec, false, err
	}

	if lockfile.HashBundle(b.files) == entry.Hash {
		rec.Status = StatusUpToDate
		return rec, false, nil
	}
	if t.version == "" {
		if cmp, ok := fetch.CompareVersions(version, entry.Version); ok && cmp < 0 {
			in.logger.Warn("registry latest is older than the installed version",
				zap.String("component", key),
				zap.String("installed", entry.Version),
				zap.String("latest", version))
		}
	}
	if dryRun {
		rec.Status = StatusWouldUpdate
		return rec, false, nil
	}

	if err := writeFiles(in.layout.ProjectDir, b.files); err != nil {
		return rec, false, err
	}
	lock.Set(key, entry.Updated(version, b.files, in.now()))
	rec.Status = StatusUpdated
	return rec, true, nil
}

func validateSelection(opts UpdateOptions) error {
	explicit := len(opts.Targets) > 0
	byRegistry := opts.Registry != ""
	switch {
	case explicit && opts.All:
		return errs.Validationf("cannot combine component names with --all")
	case explicit && byRegistry:
		return errs.Validationf("cannot combine component names with --registry")
	case opts.All && byRegistry:
		return errs.Validationf("--all and --registry are mutually exclusive")
	case !explicit && !opts.All && !byRegistry:
		return errs.Validationf("specify components to update, --all, or --registry <namespace>")
	}
	return nil
}

func selectTargets(lock *lockfile.LockFile, opts UpdateOptions) ([]updateTarget, error) {
	switch {
	case opts.All:
		return lockedTargets(lock.Names())
	case opts.Registry != "":
		names := lock.NamesFrom(opts.Registry)
		if len(names) == 0 {
			return nil, errs.NotFoundf("nothing installed from registry %q", opts.Registry)
		}
		return lockedTargets(names)
	}

	targets := make([]updateTarget, 0, len(opts.Targets))
	seen := make(map[string]bool)
	for _, arg := range opts.Targets {
		ref, version, err := manifest.SplitVersion(arg)
		if err != nil {
			return nil, err
		}
		if !strings.Contains(ref, manifest.Separator) {
			return nil, suggestQualified(lock, ref)
		}
		q, err := manifest.ParseQualified(ref)
		if err != nil {
			return nil, err
		}
		if _, ok := lock.Get(q.String()); !ok {
			return nil, errs.NotFoundf("%s is not installed", q)
		}
		if seen[q.String()] {
			continue
		}
		seen[q.String()] = true
		targets = append(targets, updateTarget{name: q, version: version})
	}
	return targets, nil
}

// suggestQualified builds the error for a bare update argument.
func suggestQualified(lock *lockfile.LockFile, name string) error {
	matches := lock.MatchName(name)
	switch len(matches) {
	case 0:
		return errs.Validationf("component %q must include a registry prefix (namespace/name)", name)
	case 1:
		return errs.Validationf("component %q must include a registry prefix; did you mean %s?", name, matches[0])
	default:
		return errs.Validationf("component %q is ambiguous; specify one of: %s", name, strings.Join(matches, ", "))
	}
}

func lockedTargets(names []string) ([]updateTarget, error) {
	targets := make([]updateTarget, 0, len(names))
	for _, n := range names {
		q, err := manifest.ParseQualified(n)
		if err != nil {
			return nil, fmt.Errorf("lock entry %q: %w", n, err)
		}
		targets = append(targets, updateTarget{name: q})
	}
	return targets, nil
}
