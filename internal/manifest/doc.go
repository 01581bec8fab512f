// Package manifest defines component manifests served by registries: the
// closed set of component kinds, file and dependency entries (each accepting a
// shorthand and a structured form, normalized at decode time), MCP server
// definitions, host config fragments, and qualified component names. It also
// validates registry payloads against an embedded JSON schema.
package manifest
