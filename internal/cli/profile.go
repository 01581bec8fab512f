package cli

import (
	"fmt"

	"github.com/agentx-labs/compkg/internal/installer"
	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"
)

var (
	profileName  string
	profileForce bool
	profileJSON  bool
	profileYAML  bool
)

func init() {
	profileInstallCmd.Flags().StringVar(&profileName, "name", "", "Install under this profile name (default: component name)")
	profileInstallCmd.Flags().BoolVarP(&profileForce, "force", "f", false, "Replace an existing profile of the same name")
	profileInstallCmd.Flags().BoolVar(&profileJSON, "json", false, "Output as JSON")
	profileInstallCmd.Flags().BoolVar(&profileYAML, "yaml", false, "Output as YAML")
	profileInstallCmd.MarkFlagsMutuallyExclusive("json", "yaml")

	profileCmd.AddCommand(profileInstallCmd)
	rootCmd.AddCommand(profileCmd)
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage installed profiles",
	Long:  `Profiles are complete agent setups installed as one unit under the profiles directory.`,
}

var profileInstallCmd = &cobra.Command{
	Use:   "install <namespace/name[@version]>",
	Short: "Install a profile component and its dependencies",
	Long: `Fetch a profile and its dependencies into a staging directory, then swap
it into place. An existing profile is left untouched if anything fails.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := sess.installer().InstallProfile(cmd.Context(), installer.ProfileOptions{
			Ref:   args[0],
			Name:  profileName,
			Force: profileForce,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		switch {
		case profileJSON:
			return printJSON(out, res)
		case profileYAML:
			data, err := yaml.Marshal(res)
			if err != nil {
				return fmt.Errorf("marshaling profile result: %w", err)
			}
			fmt.Fprint(out, string(data))
			return nil
		}

		verb := "Installed"
		if res.Replaced {
			verb = "Replaced"
		}
		fmt.Fprintf(out, "%s profile %q from %s@%s\n", verb, res.Name, res.Component, res.Version)
		fmt.Fprintf(out, "  Path: %s\n", res.Path)
		fmt.Fprintf(out, "  Files: %d\n", len(res.Files))
		for _, d := range res.Dependencies {
			fmt.Fprintf(out, "  + %s\n", d)
		}
		return nil
	},
}
