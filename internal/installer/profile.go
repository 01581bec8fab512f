package installer

import (
	"context"
	"fmt"
	"path"
	"path/filepath"

	"github.com/agentx-labs/compkg/internal/branding"
	"github.com/agentx-labs/compkg/internal/errs"
	"github.com/agentx-labs/compkg/internal/lockfile"
	"github.com/agentx-labs/compkg/internal/manifest"
	"github.com/agentx-labs/compkg/internal/platform"
	"github.com/agentx-labs/compkg/internal/registry"
	"github.com/agentx-labs/compkg/internal/userdata"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// ProfileOptions controls InstallProfile.
type ProfileOptions struct {
	// Ref is the profile component, "namespace/name[@version]".
	Ref string
	// Name is the installed profile name; defaults to the component name.
	Name string
	// Force replaces an existing profile of the same name.
	Force bool
}

// ProfileResult describes an installed profile.
type ProfileResult struct {
	Name         string   `json:"name" yaml:"name"`
	Path         string   `json:"path" yaml:"path"`
	Component    string   `json:"component" yaml:"component"`
	Version      string   `json:"version" yaml:"version"`
	Hash         string   `json:"hash" yaml:"hash"`
	Files        []string `json:"files" yaml:"files"`
	Dependencies []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Replaced     bool     `json:"replaced,omitempty" yaml:"replaced,omitempty"`
}

// InstallProfile installs a profile component and its dependencies as one
// unit under the profiles root. The destination is either left as it was or
// replaced completely.
func (in *Installer) InstallProfile(ctx context.Context, opts ProfileOptions) (*ProfileResult, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "installer.profile")
	defer span.End()

	res, err := in.installProfile(ctx, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("profile", res.Name), attribute.Int("files", len(res.Files)))
	return res, nil
}

func (in *Installer) installProfile(ctx context.Context, opts ProfileOptions) (*ProfileResult, error) {
	q, version, err := manifest.ParseRef(opts.Ref)
	if err != nil {
		return nil, err
	}
	name := opts.Name
	if name == "" {
		name = q.Name
	}
	if err := manifest.ValidateProfileName(name); err != nil {
		return nil, err
	}

	dest := in.layout.ProfilePath(name)
	existed, err := platform.Exists(dest)
	if err != nil {
		return nil, fmt.Errorf("checking %s: %w", dest, err)
	}
	if existed && !opts.Force {
		return nil, errs.Conflict(fmt.Sprintf("profile %q already exists at %s; use --force to replace it", name, dest), []string{dest})
	}

	reg, ok := in.registries[q.Namespace]
	if !ok || reg.URL == "" {
		return nil, errs.Configurationf("registry %q is not configured (required by %s)", q.Namespace, q)
	}
	comp, resolvedVersion, err := in.fetcher.FetchComponent(ctx, reg.URL, q.Name, version)
	if err != nil {
		return nil, fmt.Errorf("component %s not found in registry %q: %w", q, q.Namespace, err)
	}
	if comp.Type != manifest.KindProfile {
		return nil, errs.Validationf("%s is a %s, not a %s", q, comp.Type, manifest.KindProfile)
	}
	comp.Normalize(q.Namespace)
	profile := &registry.Resolved{Manifest: comp, Name: q, Version: resolvedVersion, RegistryURL: reg.URL}

	own, err := in.fetchBundle(ctx, profile, userdata.ProfileTarget)
	if err != nil {
		return nil, err
	}

	var deps []bundle
	if len(comp.Dependencies) > 0 {
		refs := make([]string, len(comp.Dependencies))
		for i, d := range comp.Dependencies {
			refs[i] = d.Qualified(q.Namespace).String()
			if d.Version != "" {
				refs[i] += "@" + d.Version
			}
		}
		plan, err := in.resolver.Resolve(ctx, in.registries, refs)
		if err != nil {
			return nil, err
		}
		for _, rc := range plan.Components {
			b, err := in.fetchBundle(ctx, rc, nestedTarget)
			if err != nil {
				return nil, err
			}
			deps = append(deps, b)
		}
	}

	if err := checkOverlaps(append([]bundle{own}, deps...)); err != nil {
		return nil, err
	}

	var flat []lockfile.File
	for _, f := range own.files {
		if userdata.IsFlat(f.Path) {
			flat = append(flat, f)
		}
	}
	now := in.now()
	plock := &lockfile.ProfileLock{
		InstalledFrom: lockfile.Source{
			Registry:    q.Namespace,
			Component:   q.Name,
			Version:     resolvedVersion,
			Hash:        lockfile.HashBundle(flat),
			InstalledAt: now.UTC(),
		},
		Installed: make(map[string]lockfile.Entry, len(deps)),
	}
	for _, b := range deps {
		plock.Installed[b.component.Name.String()] = lockfile.NewEntry(b.component.Namespace(), b.component.Version, b.files, now)
	}

	id := in.newID()
	staging, err := platform.StagingDir(dest, id)
	if err != nil {
		return nil, err
	}
	promoted := false
	defer func() {
		if !promoted {
			in.removeBestEffort(staging, "staging directory")
		}
	}()

	all := append([]lockfile.File{}, own.files...)
	for _, b := range deps {
		all = append(all, b.files...)
	}
	if err := writeFiles(staging, all); err != nil {
		return nil, fmt.Errorf("materializing profile %s: %w", name, err)
	}
	if err := lockfile.WriteProfile(filepath.Join(staging, in.layout.LockFile), plock); err != nil {
		return nil, err
	}

	// Re-check: the destination may have appeared since the first look.
	existed, err = platform.Exists(dest)
	if err != nil {
		return nil, fmt.Errorf("checking %s: %w", dest, err)
	}
	backup := ""
	if existed {
		if !opts.Force {
			return nil, errs.Conflict(fmt.Sprintf("profile %q already exists at %s; use --force to replace it", name, dest), []string{dest})
		}
		backup = platform.BackupPath(dest, now, id)
	}
	if err := platform.ReplaceDir(staging, dest, backup); err != nil {
		return nil, err
	}
	promoted = true
	if backup != "" {
		in.removeBestEffort(backup, "previous profile backup")
	}
	in.logger.Debug("profile installed", zap.String("profile", name), zap.String("path", dest))

	result := &ProfileResult{
		Name:      name,
		Path:      dest,
		Component: q.String(),
		Version:   resolvedVersion,
		Hash:      plock.InstalledFrom.Hash,
		Files:     lockfile.Paths(all),
		Replaced:  existed,
	}
	for _, b := range deps {
		result.Dependencies = append(result.Dependencies, b.component.Name.String()+"@"+b.component.Version)
	}
	return result, nil
}

// nestedTarget routes a dependency file under the host directory.
func nestedTarget(target string) string {
	return path.Join(branding.HostDir(), userdata.StripPrefix(target, branding.HostDir()))
}
