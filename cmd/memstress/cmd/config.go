package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/psantana5/memstress/internal/report"
)

var configOutput string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
	Long:  `Commands for inspecting the resolved memstress configuration.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the resolved configuration",
	Long: `Prints the configuration after merging defaults, the config file,
MEMSTRESS_* environment variables and flags.`,
	RunE: runConfigShow,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configShowCmd.Flags().StringVarP(&configOutput, "output", "o", "yaml", "Output format: yaml, json")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch configOutput {
	case "json":
		return report.WriteJSON(out, cfg)
	case "yaml":
		if used := viper.ConfigFileUsed(); used != "" {
			fmt.Fprintf(out, "# from %s\n", used)
		}
		return report.WriteYAML(out, cfg)
	default:
		return fmt.Errorf("unknown output format %q (want yaml or json)", configOutput)
	}
}
