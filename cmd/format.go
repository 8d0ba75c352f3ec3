package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/mathmatrix/internal/markup"
	"github.com/KaramelBytes/mathmatrix/internal/utils"
)

var (
	formatEscape   bool
	formatTrace    bool
	formatPlain    bool
	formatFallback bool
	formatOutput   string
)

var formatCmd = &cobra.Command{
	Use:   "format [file|-]",
	Short: "Render solver output text as a MathJax-ready HTML fragment",
	Example: `  mathmatrix format answer.txt
  cat answer.txt | mathmatrix format - --escape
  mathmatrix format answer.txt --trace`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			b   []byte
			err error
		)
		if len(args) == 0 || args[0] == "-" {
			b, err = io.ReadAll(cmd.InOrStdin())
		} else {
			b, err = os.ReadFile(args[0])
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
		p := markup.NewPipeline(markup.Options{EscapeHTML: formatEscape})
		out := cmd.OutOrStdout()

		if formatTrace {
			for _, st := range p.Trace(string(b)) {
				fmt.Fprintf(out, "[%s]\n%s\n\n", st.Stage, st.Output)
			}
			return nil
		}
		html := p.Run(string(b))
		switch {
		case formatPlain:
			if html, err = markup.PlainText(html); err != nil {
				return err
			}
		case formatFallback:
			html = markup.FallbackRender(html)
		}
		if formatOutput != "" {
			if err := utils.SafeWriteFile(formatOutput, []byte(html+"\n")); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "✓ Wrote %s\n", formatOutput)
			return nil
		}
		fmt.Fprintln(out, html)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(formatCmd)
	formatCmd.Flags().BoolVar(&formatEscape, "escape", false, "escape '<' and '>' before adding markup")
	formatCmd.Flags().BoolVar(&formatTrace, "trace", false, "print the output of every stage")
	formatCmd.Flags().BoolVar(&formatPlain, "plain", false, "render as terminal text")
	formatCmd.Flags().BoolVar(&formatFallback, "fallback", false, "apply the no-typesetter fallback to the fragment")
	formatCmd.Flags().StringVarP(&formatOutput, "output", "o", "", "write to file instead of stdout")
}
