package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/agentx-labs/compkg/internal/branding"
	"github.com/agentx-labs/compkg/internal/installer"
	"github.com/spf13/cobra"
)

var (
	updateAll      bool
	updateRegistry string
	updateDryRun   bool
	updateJSON     bool
	updateYAML     bool
)

func init() {
	updateCmd.Flags().BoolVar(&updateAll, "all", false, "Update every installed component")
	updateCmd.Flags().StringVar(&updateRegistry, "registry", "", "Update every component installed from this registry namespace")
	updateCmd.Flags().BoolVar(&updateDryRun, "dry-run", false, "Report available updates without writing")
	updateCmd.Flags().BoolVar(&updateJSON, "json", false, "Output records as JSON")
	updateCmd.Flags().BoolVar(&updateYAML, "yaml", false, "Output records as YAML")
	updateCmd.MarkFlagsMutuallyExclusive("json", "yaml")

	rootCmd.AddCommand(updateCmd)
}

var updateCmd = &cobra.Command{
	Use:   "update [namespace/name[@version]...]",
	Short: "Update installed components from their registries",
	Long: `Refetch components recorded in ` + branding.LockFile() + ` and rewrite the ones whose
content changed. Dependencies are not re-resolved.

  ` + branding.CLIName() + ` update acme/reviewer
  ` + branding.CLIName() + ` update --all
  ` + branding.CLIName() + ` update --registry acme --dry-run`,
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := sess.installer().Update(cmd.Context(), installer.UpdateOptions{
			Targets:  args,
			All:      updateAll,
			Registry: updateRegistry,
			DryRun:   updateDryRun,
		})
		if err != nil {
			return err
		}

		switch {
		case updateJSON:
			return printJSON(cmd.OutOrStdout(), records)
		case updateYAML:
			return printYAML(cmd.OutOrStdout(), records)
		}
		return printUpdateRecords(cmd.OutOrStdout(), records)
	},
}

func printUpdateRecords(w io.Writer, records []installer.UpdateRecord) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "COMPONENT\tFROM\tTO\tSTATUS")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Name, r.OldVersion, r.NewVersion, r.Status)
	}
	return tw.Flush()
}
