// Package registry resolves requested components and their transitive
// dependencies across configured registries.
//
// Resolution is depth-first and memoized by qualified name: a component
// shared by several dependents is fetched once, and a component is appended
// to the install order only after all of its dependencies, so the order is
// topological. Side-channel configuration (MCP servers, npm packages,
// disabled tools, plugins, instructions, per-agent overrides) is aggregated
// as components are resolved.
package registry
