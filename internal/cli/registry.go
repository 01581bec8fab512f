package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/agentx-labs/compkg/internal/manifest"
	"github.com/spf13/cobra"
)

var registryJSON bool

func init() {
	registryListCmd.Flags().BoolVar(&registryJSON, "json", false, "Output the index as JSON")

	registryCmd.AddCommand(registryListCmd)
	rootCmd.AddCommand(registryCmd)
}

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Inspect configured registries",
}

var registryListCmd = &cobra.Command{
	Use:   "list [namespace]",
	Short: "List configured registries, or the components one serves",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if len(args) == 0 {
			namespaces := sess.cfg.Namespaces()
			if len(namespaces) == 0 {
				fmt.Fprintf(out, "No registries configured. Add registries.<namespace>.url to %s.\n", sess.configPath)
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "NAMESPACE\tURL")
			for _, ns := range namespaces {
				fmt.Fprintf(tw, "%s\t%s\n", ns, sess.cfg.Registries[ns].URL)
			}
			return tw.Flush()
		}

		ns := args[0]
		reg, err := sess.cfg.Registry(ns)
		if err != nil {
			return err
		}
		idx, err := sess.fetcher().FetchRegistryIndex(cmd.Context(), reg.URL)
		if err != nil {
			return fmt.Errorf("reading index of registry %q: %w", ns, err)
		}
		if reg.Version != "" && idx.Version != reg.Version {
			sess.logger.Sugar().Warnf("registry %q serves index version %s, configuration expects %s", ns, idx.Version, reg.Version)
		}

		if registryJSON {
			return printJSON(out, idx)
		}
		printIndex(cmd, ns, idx)
		return nil
	},
}

func printIndex(cmd *cobra.Command, ns string, idx *manifest.RegistryIndex) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (%s)", ns, idx.Name)
	if idx.Version != "" {
		fmt.Fprintf(out, " index %s", idx.Version)
	}
	fmt.Fprintln(out)
	if len(idx.Components) == 0 {
		fmt.Fprintln(out, "  no components")
		return
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  NAME\tTYPE\tVERSION\tDESCRIPTION")
	for _, c := range idx.Components {
		fmt.Fprintf(tw, "  %s/%s\t%s\t%s\t%s\n", ns, c.Name, c.Type, c.Version, c.Description)
	}
	_ = tw.Flush()
}
