package cli

import (
	"fmt"
	"io"

	"github.com/agentx-labs/compkg/internal/branding"
	"github.com/agentx-labs/compkg/internal/installer"
	"github.com/spf13/cobra"
)

var (
	addForce  bool
	addDryRun bool
	addJSON   bool
)

var addCmd = &cobra.Command{
	Use:   "add <namespace/name[@version]>...",
	Short: "Install components and their dependencies into the project",
	Long: `Resolve the named components with all of their dependencies, write their
files into the project, merge their configuration into ` + branding.HostConfig() + `,
and record them in ` + branding.LockFile() + `.

Components already in the lock file stay at their locked version. Files
that were edited locally are reported as conflicts and nothing is written
unless --force is given.

  ` + branding.CLIName() + ` add acme/reviewer
  ` + branding.CLIName() + ` add acme/reviewer@1.2.0 tools/lint-skill
  ` + branding.CLIName() + ` add acme/reviewer --dry-run`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

func init() {
	addCmd.Flags().BoolVarP(&addForce, "force", "f", false, "Overwrite locally modified files")
	addCmd.Flags().BoolVar(&addDryRun, "dry-run", false, "Show what would be written without writing")
	addCmd.Flags().BoolVar(&addJSON, "json", false, "Output result as JSON")
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	res, err := sess.installer().Add(cmd.Context(), args, installer.AddOptions{Force: addForce, DryRun: addDryRun})
	if err != nil {
		return err
	}
	if addJSON {
		return printJSON(cmd.OutOrStdout(), res)
	}
	printAddResult(cmd.OutOrStdout(), res)
	return nil
}

func printAddResult(w io.Writer, res *installer.AddResult) {
	if res.DryRun {
		fmt.Fprintln(w, "Dry run: nothing was written.")
		for _, f := range res.Files {
			fmt.Fprintf(w, "  %-9s  %s  (%s)\n", f.Action, f.Path, f.Component)
		}
		if len(res.Conflicts) > 0 {
			fmt.Fprintf(w, "\n%d file(s) were modified locally and would need --force:\n", len(res.Conflicts))
			for _, p := range res.Conflicts {
				fmt.Fprintf(w, "  - %s\n", p)
			}
		}
		return
	}

	for _, c := range res.Components {
		switch c.Status {
		case installer.StatusInstalled:
			fmt.Fprintf(w, "Installed %s@%s\n", c.Name, c.Version)
		case installer.StatusRestored:
			fmt.Fprintf(w, "Restored %s@%s\n", c.Name, c.Version)
		default:
			fmt.Fprintf(w, "Unchanged %s@%s\n", c.Name, c.Version)
		}
	}
	for _, f := range res.HostFiles {
		fmt.Fprintf(w, "Updated %s\n", f)
	}
}
