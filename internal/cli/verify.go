package cli

import (
	"fmt"

	"github.com/agentx-labs/compkg/internal/branding"
	"github.com/agentx-labs/compkg/internal/errs"
	"github.com/agentx-labs/compkg/internal/lockfile"
	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check installed files against " + branding.LockFile(),
	Long: `Rehash the files of every component in the lock file and report any
component whose files are missing or no longer match.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		layout := sess.layout()
		lock, err := lockfile.Read(layout.LockPath())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if lock == nil || lock.Empty() {
			fmt.Fprintln(out, "Nothing installed yet.")
			return nil
		}

		names := lock.Names()
		failed := 0
		for _, name := range names {
			e, _ := lock.Get(name)
			if err := lockfile.Verify(layout.ProjectDir, e); err != nil {
				failed++
				fmt.Fprintf(out, "FAIL  %s@%s: %v\n", name, e.Version, err)
				continue
			}
			fmt.Fprintf(out, "ok    %s@%s\n", name, e.Version)
		}
		if failed > 0 {
			return errs.Integrityf("%d of %d components do not match %s", failed, len(names), layout.LockFile)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
