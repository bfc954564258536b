package cmd

import (
	"errors"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/kilianp07/islandsim/config"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "islandsim",
	Short: "Residential microgrid islanding simulator",
	Long: "islandsim runs day-long fault scenarios on a residential feeder and reports\n" +
		"how many islanded minutes the battery keeps the homes supplied.",
	SilenceUsage: true,
	RunE:         runScenarios,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

// loadConfig reads the configuration file. A missing default file falls back
// to built-in defaults; an explicit --config must exist.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if _, err := os.Stat(cfgPath); errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config") {
		return config.Default(), nil
	}
	return config.Load(cfgPath)
}
