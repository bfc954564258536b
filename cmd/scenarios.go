package cmd

import (
	"fmt"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kilianp07/islandsim/core/scenario"
)

var scenariosCmd = &cobra.Command{
	Use:   "scenarios",
	Short: "Inspect the scenario catalog",
}

var scenariosLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List known scenarios",
	RunE:  listScenarios,
}

func init() {
	scenariosCmd.AddCommand(scenariosLsCmd)
	rootCmd.AddCommand(scenariosCmd)
}

func listScenarios(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cat := scenario.NewCatalog()
	if err := cat.LoadFiles(cfg.Scenarios.Files...); err != nil {
		return err
	}
	selected := cfg.Scenarios.Names
	if len(selected) == 0 {
		selected = scenario.DefaultNames
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tDEFAULT\tEVENTS\tDESCRIPTION")
	for _, name := range cat.Names() {
		sc, _ := cat.Get(name)
		mark := ""
		if slices.Contains(selected, name) {
			mark = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", name, mark, sc.Events.Len(), sc.Description)
	}
	return w.Flush()
}
