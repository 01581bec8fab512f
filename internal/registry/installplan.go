package registry

import (
	"fmt"
	"io"
	"strings"

	"github.com/agentx-labs/compkg/internal/manifest"
)

// PrintTree prints a resolution tree with box-drawing characters.
func PrintTree(w io.Writer, node *Node, prefix string, isLast bool) {
	if node == nil {
		return
	}

	connector := "├── "
	if isLast {
		connector = "└── "
	}

	label := fmt.Sprintf("%s: %s@%s", node.Kind, node.Name, node.Version)
	if node.Deduped {
		label += " (deduped)"
	} else if node.Installed {
		label += " (already installed)"
	}

	if prefix == "" {
		fmt.Fprintf(w, "  %s\n", label)
	} else {
		fmt.Fprintf(w, "  %s%s%s\n", prefix, connector, label)
	}

	childPrefix := prefix
	if prefix != "" {
		if isLast {
			childPrefix += "    "
		} else {
			childPrefix += "│   "
		}
	} else {
		childPrefix = " "
	}

	for i, child := range node.Children {
		PrintTree(w, child, childPrefix, i == len(node.Children)-1)
	}
}

// PrintPlan prints the resolution trees, install order, and aggregated
// configuration of a Result.
func PrintPlan(w io.Writer, res *Result) {
	fmt.Fprintln(w, "Resolving dependencies...")
	fmt.Fprintln(w)

	for _, root := range res.Roots {
		PrintTree(w, root, "", true)
	}
	fmt.Fprintln(w)

	counts := make(map[manifest.Kind]int)
	for _, c := range res.Components {
		counts[c.Manifest.Type]++
	}
	var parts []string
	for _, kind := range manifest.ValidKinds {
		if n := counts[kind]; n > 0 {
			noun := string(kind)
			if n != 1 {
				noun += "s"
			}
			parts = append(parts, fmt.Sprintf("%d %s", n, noun))
		}
	}
	if len(parts) > 0 {
		fmt.Fprintf(w, "  Install: %s (%d components)\n", strings.Join(parts, ", "), len(res.Components))
	}
	fmt.Fprintf(w, "  Order: %s\n", strings.Join(res.Names(), ", "))

	cfg := res.Config
	if len(cfg.McpServers) > 0 {
		fmt.Fprintf(w, "  MCP servers: %s\n", strings.Join(sortedKeys(cfg.McpServers), ", "))
	}
	if len(cfg.AgentMcpServers) > 0 {
		var bindings []string
		for _, agent := range sortedKeys(cfg.AgentMcpServers) {
			bindings = append(bindings, fmt.Sprintf("%s=[%s]", agent, strings.Join(cfg.AgentMcpServers[agent], ",")))
		}
		fmt.Fprintf(w, "  Agent MCP bindings: %s\n", strings.Join(bindings, " "))
	}
	printList(w, "npm dependencies", cfg.NpmDependencies)
	printList(w, "npm devDependencies", cfg.NpmDevDependencies)
	printList(w, "Disabled tools", cfg.DisabledTools)
	printList(w, "Plugins", cfg.Plugins)
	printList(w, "Instructions", cfg.Instructions)
	if len(cfg.AgentConfig) > 0 {
		fmt.Fprintf(w, "  Agent overrides: %s\n", strings.Join(sortedKeys(cfg.AgentConfig), ", "))
	}

	fmt.Fprintln(w)
}

func printList(w io.Writer, label string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "  %s: %s\n", label, strings.Join(items, ", "))
}
