package commands

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
)

// ConfigCmd groups configuration operations
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration and profiles",
	Long: `Manage configuration and named profiles.

Examples:
  ezmark config show               # Print the active configuration
  ezmark config reset              # Restore defaults
  ezmark config profile save fast  # Snapshot current settings as "fast"
  ezmark config profile load fast  # Replace settings from "fast"
  ezmark config profile ls         # List saved profiles`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the active configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := loadManager()
		if err != nil {
			return err
		}
		out, err := toml.Marshal(manager.Active())
		if err != nil {
			return err
		}
		fmt.Printf("# %s\n\n%s", manager.Path(), out)
		return nil
	},
}

var configResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the default configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := loadManager()
		if err != nil {
			return err
		}
		if err := manager.Reset(); err != nil {
			return err
		}
		fmt.Printf("Configuration reset to defaults (%s)\n", manager.Path())
		return nil
	},
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage named configuration profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var profileSaveCmd = &cobra.Command{
	Use:   "save <name>",
	Short: "Save the active configuration as a named profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := loadManager()
		if err != nil {
			return err
		}
		path, err := manager.SaveProfile(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Saved profile %q to %s\n", args[0], path)
		return nil
	},
}

var profileLoadCmd = &cobra.Command{
	Use:   "load <name>",
	Short: "Replace the active configuration from a named profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := loadManager()
		if err != nil {
			return err
		}
		if err := manager.LoadProfile(args[0]); err != nil {
			return err
		}
		fmt.Printf("Loaded profile %q\n", args[0])
		return nil
	},
}

var profileLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List saved profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := loadManager()
		if err != nil {
			return err
		}
		names, err := manager.ListProfiles()
		if err != nil {
			return err
		}
		if len(names) == 0 {
			fmt.Println("No profiles saved")
			return nil
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}

func init() {
	profileCmd.AddCommand(profileSaveCmd)
	profileCmd.AddCommand(profileLoadCmd)
	profileCmd.AddCommand(profileLsCmd)

	ConfigCmd.AddCommand(configShowCmd)
	ConfigCmd.AddCommand(configResetCmd)
	ConfigCmd.AddCommand(profileCmd)
}
