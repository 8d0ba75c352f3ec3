package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/mathmatrix/internal/markup"
)

var previewCmd = &cobra.Command{
	Use:   "preview <text>",
	Short: "Show the live-preview fragment for input text",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := markup.Preview(strings.Join(args, " "))
		if out == "" {
			fmt.Fprintln(cmd.ErrOrStderr(), "⚠ Warning: nothing to preview")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(previewCmd)
}
