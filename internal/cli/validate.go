package cli

import (
	"fmt"

	"github.com/agentx-labs/compkg/internal/manifest"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <manifest>",
	Short: "Validate a component manifest (YAML or JSON)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		result, err := manifest.ValidateFile(path)
		if err != nil {
			return err
		}
		if err := result.Err(); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		c, err := manifest.ParseFile(path)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: valid %s %q (%d files, %d dependencies)\n",
			path, c.Type, c.Name, len(c.Files), len(c.Dependencies))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
