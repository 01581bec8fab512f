package installer

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/agentx-labs/compkg/internal/config"
	"github.com/agentx-labs/compkg/internal/hostconfig"
	"github.com/agentx-labs/compkg/internal/lockfile"
	"github.com/agentx-labs/compkg/internal/logging"
	"github.com/agentx-labs/compkg/internal/platform"
	"github.com/agentx-labs/compkg/internal/registry"
	"github.com/agentx-labs/compkg/internal/userdata"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const tracerName = "github.com/agentx-labs/compkg/internal/installer"

// maxParallelFiles bounds concurrent file fetches per component.
const maxParallelFiles = 8

// Installer runs install pipelines against one project layout.
type Installer struct {
	fetcher    registry.Fetcher
	resolver   *registry.Resolver
	merger     *hostconfig.Merger
	layout     userdata.Layout
	registries map[string]config.Registry
	logger     *zap.Logger
	now        func() time.Time
	newID      func() string
}

// Option configures an Installer.
type Option func(*Installer)

// WithLogger sets the diagnostic logger.
func WithLogger(l *zap.Logger) Option {
	return func(in *Installer) {
		in.logger = logging.OrNop(l)
	}
}

// WithClock overrides the time source used for lock timestamps and backup names.
func WithClock(now func() time.Time) Option {
	return func(in *Installer) {
		in.now = now
	}
}

// New returns an Installer that fetches through f from registries and
// installs into layout.
func New(f registry.Fetcher, layout userdata.Layout, registries map[string]config.Registry, opts ...Option) *Installer {
	in := &Installer{
		fetcher:    f,
		layout:     layout,
		registries: registries,
		logger:     logging.Nop(),
		now:        time.Now,
		newID:      func() string { return uuid.NewString()[:8] },
	}
	for _, opt := range opts {
		opt(in)
	}
	in.resolver = registry.NewResolver(f, registry.WithLogger(in.logger))
	in.merger = hostconfig.NewMerger(layout.HostConfig, layout.InstallDir, in.logger)
	return in
}

// Layout returns the installer's layout.
func (in *Installer) Layout() userdata.Layout { return in.layout }

// bundle is a resolved component together with its fetched files.
type bundle struct {
	component *registry.Resolved
	files     []lockfile.File
}

// fetchBundle fetches every file of rc, mapping manifest targets through
// target. Files keep manifest order.
func (in *Installer) fetchBundle(ctx context.Context, rc *registry.Resolved, target func(string) string) (bundle, error) {
	entries := rc.Manifest.Files
	files := make([]lockfile.File, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelFiles)
	for i, f := range entries {
		g.Go(func() error {
			data, err := in.fetcher.FetchFileContent(gctx, rc.RegistryURL, rc.Name.Name, f.Source)
			if err != nil {
				return fmt.Errorf("fetching %s of %s: %w", f.Source, rc.Name, err)
			}
			files[i] = lockfile.File{Path: target(f.Target), Content: data}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return bundle{}, err
	}
	return bundle{component: rc, files: files}, nil
}

// writeFiles writes files under root, creating parent directories.
func writeFiles(root string, files []lockfile.File) error {
	for _, f := range files {
		full, err := platform.SafeJoin(root, f.Path)
		if err != nil {
			return err
		}
		if err := platform.WriteFile(full, f.Content); err != nil {
			return err
		}
	}
	return nil
}

// removeBestEffort deletes path and logs, rather than returns, a failure.
func (in *Installer) removeBestEffort(path, what string) {
	if err := os.RemoveAll(path); err != nil {
		in.logger.Warn("could not remove "+what, zap.String("path", path), zap.Error(err))
	}
}
