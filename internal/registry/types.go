package registry

import (
	"context"

	"github.com/agentx-labs/compkg/internal/hostconfig"
	"github.com/agentx-labs/compkg/internal/manifest"
)

// Fetcher retrieves manifests and files from a registry. *fetch.Client
// satisfies it.
type Fetcher interface {
	FetchComponent(ctx context.Context, baseURL, name, version string) (*manifest.Component, string, error)
	FetchFileContent(ctx context.Context, baseURL, name, path string) ([]byte, error)
}

// Resolved is a component manifest bound to the registry it resolved from.
type Resolved struct {
	Manifest    *manifest.Component
	Name        manifest.QualifiedName
	Version     string
	RegistryURL string
}

// Namespace returns the registry namespace the component resolved in.
func (r *Resolved) Namespace() string { return r.Name.Namespace }

// Node is one entry in the resolution tree used for plan output.
type Node struct {
	Name      string
	Kind      manifest.Kind
	Version   string
	Children  []*Node
	Deduped   bool // resolved earlier in this pass
	Installed bool // already recorded in the lock
}

// Result is the outcome of one resolution pass.
type Result struct {
	// Components is the install order: every component follows all of its
	// dependencies.
	Components []*Resolved
	// Roots holds one tree per requested name, in request order.
	Roots []*Node
	// Config is the side-channel configuration aggregated across Components.
	Config hostconfig.Aggregate

	byName map[string]*Resolved
}

func newResult() *Result {
	return &Result{byName: make(map[string]*Resolved)}
}

func (r *Result) add(res *Resolved) {
	r.byName[res.Name.String()] = res
	r.Components = append(r.Components, res)
}

// Get returns the resolved component for a qualified name.
func (r *Result) Get(qualified string) (*Resolved, bool) {
	res, ok := r.byName[qualified]
	return res, ok
}

// Names returns the qualified names in install order.
func (r *Result) Names() []string {
	names := make([]string, len(r.Components))
	for i, c := range r.Components {
		names[i] = c.Name.String()
	}
	return names
}

// MarkInstalled flags tree nodes whose qualified name satisfies installed.
func (r *Result) MarkInstalled(installed func(qualified string) bool) {
	var walk func(n *Node)
	walk = func(n *Node) {
		n.Installed = installed(n.Name)
		for _, c := range n.Children {
			walk(c)
		}
	}
	for _, root := range r.Roots {
		walk(root)
	}
}
