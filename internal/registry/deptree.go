package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/agentx-labs/compkg/internal/config"
	"github.com/agentx-labs/compkg/internal/errs"
	"github.com/agentx-labs/compkg/internal/logging"
	"github.com/agentx-labs/compkg/internal/manifest"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const tracerName = "github.com/agentx-labs/compkg/internal/registry"

// Resolver builds dependency graphs through a Fetcher.
type Resolver struct {
	fetcher Fetcher
	logger  *zap.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the diagnostic logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) {
		r.logger = logging.OrNop(l)
	}
}

// NewResolver returns a Resolver that fetches through f.
func NewResolver(f Fetcher, opts ...Option) *Resolver {
	r := &Resolver{fetcher: f, logger: logging.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveOption adjusts a single Resolve call.
type ResolveOption func(*pass)

// WithPins fixes components at the given versions, keyed by qualified name.
// A pinned component resolves at its pin whatever version a request or a
// dependency asks for.
func WithPins(pins map[string]string) ResolveOption {
	return func(p *pass) {
		p.pins = pins
	}
}

// Resolve resolves every requested "namespace/name[@version]" and its
// transitive dependencies. Requests must be qualified. On any error no
// partial result is returned.
func (r *Resolver) Resolve(ctx context.Context, registries map[string]config.Registry, requested []string, opts ...ResolveOption) (*Result, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "registry.resolve")
	defer span.End()
	span.SetAttributes(attribute.StringSlice("requested", requested))

	type request struct {
		name    manifest.QualifiedName
		version string
	}
	reqs := make([]request, 0, len(requested))
	for _, s := range requested {
		q, version, err := manifest.ParseRef(s)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, request{q, version})
	}

	p := &pass{
		ctx:        ctx,
		fetcher:    r.fetcher,
		logger:     r.logger,
		registries: registries,
		result:     newResult(),
		visiting:   make(map[string]bool),
		agg:        newAggregator(r.logger),
	}
	for _, opt := range opts {
		opt(p)
	}
	for _, req := range reqs {
		node, err := p.resolve(req.name, req.version)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		p.result.Roots = append(p.result.Roots, node)
	}

	p.result.Config = p.agg.materialize()
	span.SetAttributes(attribute.Int("resolved", len(p.result.Components)))
	return p.result, nil
}

// pass is the state of one Resolve call.
type pass struct {
	ctx        context.Context
	fetcher    Fetcher
	logger     *zap.Logger
	registries map[string]config.Registry
	pins       map[string]string
	result     *Result
	visiting   map[string]bool
	stack      []string
	agg        *aggregator
}

func (p *pass) resolve(q manifest.QualifiedName, version string) (*Node, error) {
	key := q.String()

	if done, ok := p.result.byName[key]; ok {
		if version != "" && version != done.Version {
			p.logger.Warn("dependency version ignored; already resolved",
				zap.String("component", key),
				zap.String("requested", version),
				zap.String("resolved", done.Version))
		}
		return &Node{Name: key, Kind: done.Manifest.Type, Version: done.Version, Deduped: true}, nil
	}
	if p.visiting[key] {
		chain := append(append([]string{}, p.stack...), key)
		return nil, errs.Validationf("dependency cycle detected: %s", strings.Join(chain, " -> "))
	}

	if pin, ok := p.pins[key]; ok {
		if version != "" && version != pin {
			p.logger.Warn("requested version ignored; component is pinned",
				zap.String("component", key),
				zap.String("requested", version),
				zap.String("pinned", pin))
		}
		version = pin
	}

	reg, ok := p.registries[q.Namespace]
	if !ok {
		return nil, errs.Configurationf("registry %q is not configured (required by %s)", q.Namespace, key)
	}
	if reg.URL == "" {
		return nil, errs.Configurationf("registry %q has no url", q.Namespace)
	}

	p.visiting[key] = true
	p.stack = append(p.stack, key)

	comp, resolvedVersion, err := p.fetcher.FetchComponent(p.ctx, reg.URL, q.Name, version)
	if err != nil {
		return nil, fmt.Errorf("component %s not found in registry %q: %w", key, q.Namespace, err)
	}
	p.logger.Debug("resolved component", zap.String("component", key), zap.String("version", resolvedVersion))

	node := &Node{Name: key, Kind: comp.Type, Version: resolvedVersion}
	for _, dep := range comp.Dependencies {
		child, err := p.resolve(dep.Qualified(q.Namespace), dep.Version)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, child)
	}

	comp.Normalize(q.Namespace)
	res := &Resolved{
		Manifest:    comp,
		Name:        q,
		Version:     resolvedVersion,
		RegistryURL: reg.URL,
	}
	p.result.add(res)
	delete(p.visiting, key)
	p.stack = p.stack[:len(p.stack)-1]

	p.agg.add(res)
	return node, nil
}

// CheckConflicts returns the names in toInstall that are already present in
// existing, in toInstall order.
func CheckConflicts(existing, toInstall []string) []string {
	have := make(map[string]bool, len(existing))
	for _, n := range existing {
		have[n] = true
	}
	var out []string
	for _, n := range toInstall {
		if have[n] {
			out = append(out, n)
		}
	}
	return out
}
