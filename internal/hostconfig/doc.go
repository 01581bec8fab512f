// Package hostconfig merges the configuration collected from resolved
// components into the host's configuration surfaces: the agents.json host
// config (MCP servers, plugins, instructions, per-agent overrides, tool
// toggles) and the package.json next to installed components.
//
// Merge operates on generic JSON values. Objects merge recursively, the
// "plugin" and "instructions" arrays concatenate and deduplicate, and every
// other conflict is won by the later value.
package hostconfig
