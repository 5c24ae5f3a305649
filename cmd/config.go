package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/emsysdev/accelspec/configs"
)

// configCmd prints the effective configuration after defaults, config
// file, environment and flags are merged.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := configs.LoadConfig()
		if err != nil {
			return err
		}
		if err := configs.ValidateConfig(config); err != nil {
			return fmt.Errorf("invalid options: %w", err)
		}

		out, err := yaml.Marshal(config)
		if err != nil {
			return fmt.Errorf("failed to render configuration: %w", err)
		}
		fmt.Fprint(os.Stdout, string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
