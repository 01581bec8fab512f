package cli

import (
	"github.com/agentx-labs/compkg/internal/hostconfig"
	"github.com/agentx-labs/compkg/internal/lockfile"
	"github.com/agentx-labs/compkg/internal/manifest"
	"github.com/agentx-labs/compkg/internal/registry"
	"github.com/spf13/cobra"
)

var resolveJSON bool

var resolveCmd = &cobra.Command{
	Use:   "resolve <namespace/name[@version]>...",
	Short: "Show the dependency plan for components without installing",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runResolve,
}

func init() {
	resolveCmd.Flags().BoolVar(&resolveJSON, "json", false, "Output the plan as JSON")
	rootCmd.AddCommand(resolveCmd)
}

type plannedComponent struct {
	Name      string        `json:"name"`
	Kind      manifest.Kind `json:"kind"`
	Version   string        `json:"version"`
	Registry  string        `json:"registry"`
	Installed bool          `json:"installed,omitempty"`
}

type resolvePlan struct {
	Components []plannedComponent   `json:"components"`
	Config     hostconfig.Aggregate `json:"config"`
}

func runResolve(cmd *cobra.Command, args []string) error {
	lock, err := lockfile.Read(sess.layout().LockPath())
	if err != nil {
		return err
	}

	resolver := registry.NewResolver(sess.fetcher(), registry.WithLogger(sess.logger))
	res, err := resolver.Resolve(cmd.Context(), sess.cfg.Registries, args, registry.WithPins(lock.Versions()))
	if err != nil {
		return err
	}

	present := make(map[string]bool)
	for _, name := range registry.CheckConflicts(lock.Names(), res.Names()) {
		present[name] = true
	}
	installed := func(name string) bool { return present[name] }
	res.MarkInstalled(installed)

	if resolveJSON {
		plan := resolvePlan{Config: res.Config}
		for _, c := range res.Components {
			plan.Components = append(plan.Components, plannedComponent{
				Name:      c.Name.String(),
				Kind:      c.Manifest.Type,
				Version:   c.Version,
				Registry:  c.Namespace(),
				Installed: installed(c.Name.String()),
			})
		}
		return printJSON(cmd.OutOrStdout(), plan)
	}

	registry.PrintPlan(cmd.OutOrStdout(), res)
	return nil
}
