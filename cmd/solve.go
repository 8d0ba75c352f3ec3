package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/mathmatrix/internal/ai"
	"github.com/KaramelBytes/mathmatrix/internal/chat"
	"github.com/KaramelBytes/mathmatrix/internal/markup"
	"github.com/KaramelBytes/mathmatrix/internal/utils"
)

var (
	solveProvider   string
	solveModel      string
	solveFile       string
	solveHTML       bool
	solveJSON       bool
	solveDryRun     bool
	solveOutput     string
	solveTimeoutSec int
)

type solveResult struct {
	Provider string       `json:"provider"`
	Problem  string       `json:"problem"`
	Message  chat.Message `json:"message"`
}

var solveCmd = &cobra.Command{
	Use:   "solve [problem]",
	Short: "Ask for a step-by-step solution to a math problem",
	Example: `  mathmatrix solve "Solve x^2 - 5x + 6 = 0"
  mathmatrix solve --file problem.txt --html --output answer.html
  echo "\int_0^1 x^2 dx" | mathmatrix solve -
  mathmatrix solve --dry-run "2+2"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		problem, err := readProblem(cmd.InOrStdin(), args, solveFile)
		if err != nil {
			return err
		}
		if strings.TrimSpace(problem) == "" {
			return chat.ErrEmptyInput
		}
		if solveDryRun {
			prompt := ai.BuildPrompt(strings.TrimSpace(problem))
			fmt.Fprintln(cmd.OutOrStdout(), prompt)
			tb := utils.TokenBreakdown(map[string]string{"prompt": prompt, "problem": problem})
			fmt.Fprintf(cmd.ErrOrStderr(), "✓ Dry run: ~%d prompt tokens (%d from the problem)\n", tb["prompt"], tb["problem"])
			return nil
		}

		c, err := requireConfig()
		if err != nil {
			return err
		}
		rt, provider, err := newRuntime(c, solveProvider, solveModel)
		if err != nil {
			return err
		}
		sess := chat.NewSession(chat.Options{Runtime: rt, Provider: provider, Logger: log})

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		if solveTimeoutSec > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, time.Duration(solveTimeoutSec)*time.Second)
			defer cancel()
		}
		msg, err := sess.Submit(ctx, problem)
		if err != nil {
			return err
		}

		var data []byte
		switch {
		case solveJSON:
			data, err = utils.PrettyJSON(solveResult{Provider: provider, Problem: strings.TrimSpace(problem), Message: msg})
			if err != nil {
				return err
			}
			data = append(data, '\n')
		case solveHTML:
			data = []byte(msg.HTML + "\n")
		default:
			text, perr := markup.PlainText(msg.HTML)
			if perr != nil {
				return perr
			}
			data = []byte(text + "\n")
		}
		if msg.Error != "" && !solveJSON {
			return errors.New(msg.Error)
		}
		if solveOutput != "" {
			if err := utils.SafeWriteFile(solveOutput, data); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "✓ Solution written to %s (%.2fs)\n", solveOutput, float64(msg.ElapsedMs)/1000)
		} else if _, err := cmd.OutOrStdout().Write(data); err != nil {
			return err
		}
		if msg.Error != "" {
			return errors.New(msg.Error)
		}
		return nil
	},
}

// readProblem takes the problem from --file, from stdin for "-", or from
// the joined arguments.
func readProblem(stdin io.Reader, args []string, file string) (string, error) {
	if file != "" {
		b, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read problem file: %w", err)
		}
		return string(b), nil
	}
	if len(args) == 1 && args[0] == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), nil
	}
	if len(args) == 0 {
		return "", errors.New("a problem is required (argument, --file, or - for stdin)")
	}
	return strings.Join(args, " "), nil
}

func init() {
	rootCmd.AddCommand(solveCmd)
	solveCmd.Flags().StringVar(&solveProvider, "provider", "", "text-generation provider: gemini or openai (overrides config)")
	solveCmd.Flags().StringVar(&solveModel, "model", "", "model name (overrides config)")
	solveCmd.Flags().StringVarP(&solveFile, "file", "f", "", "read the problem from a file")
	solveCmd.Flags().BoolVar(&solveHTML, "html", false, "print the HTML fragment instead of plain text")
	solveCmd.Flags().BoolVar(&solveJSON, "json", false, "output JSON")
	solveCmd.Flags().BoolVar(&solveDryRun, "dry-run", false, "print the prompt without calling the provider")
	solveCmd.Flags().StringVarP(&solveOutput, "output", "o", "", "write to file instead of stdout")
	solveCmd.Flags().IntVar(&solveTimeoutSec, "timeout-sec", 0, "overall timeout in seconds (0 = none)")
}
