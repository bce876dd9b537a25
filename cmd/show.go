package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/spigell/resume-screener/internal/ranking"
)

var showCmd = &cobra.Command{
	Use:   "show <export.csv>",
	Short: "Print a previously exported ranking as a table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		minimum, _ := cmd.Flags().GetInt("minimum-score")
		return show(cmd, args[0], minimum)
	},
}

func init() {
	rootCmd.AddCommand(showCmd)

	showCmd.Flags().IntP("minimum-score", "m", 0, "hide candidates scored below this value")
}

func show(cmd *cobra.Command, path string, minimum int) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	ranked, err := ranking.ReadCSV(file)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	return ranked.Above(minimum).WriteTable(cmd.OutOrStdout())
}
