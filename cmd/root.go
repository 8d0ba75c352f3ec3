package cmd

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KaramelBytes/mathmatrix/internal/ai"
	cfgpkg "github.com/KaramelBytes/mathmatrix/internal/config"
	"github.com/KaramelBytes/mathmatrix/internal/logger"
	"github.com/KaramelBytes/mathmatrix/internal/parser"
)

var (
	cfgFile string
	debug   bool
	// Retry/HTTP flags (override config if set)
	flagHTTPTimeoutSec   int
	flagRetryMaxAttempts int
	flagRetryBaseDelayMs int
	flagRetryMaxDelayMs  int

	// Loaded configuration
	cfg *cfgpkg.Global
	log = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "mathmatrix",
	Short: "MathMatrix: step-by-step math tutoring and solver analytics",
	Long: `MathMatrix sends math problems to a text-generation service, renders the worked
solution as MathJax-ready HTML, and summarizes solver performance and user feedback
from CSV exports.`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	cobra.OnInitialize(loadConfig)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.mathmatrix/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().IntVar(&flagHTTPTimeoutSec, "http-timeout", 0, "HTTP client timeout in seconds (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagRetryMaxAttempts, "retry-max", 0, "max attempts on 429/5xx (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagRetryBaseDelayMs, "retry-base-ms", 0, "base retry backoff in ms (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagRetryMaxDelayMs, "retry-max-ms", 0, "max retry backoff cap in ms (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: allow running commands that don't need config
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		return
	}
	cfg = c

	f := rootCmd.PersistentFlags()
	if f.Changed("http-timeout") && flagHTTPTimeoutSec > 0 {
		cfg.HTTPTimeoutSec = flagHTTPTimeoutSec
	}
	if f.Changed("retry-max") && flagRetryMaxAttempts > 0 {
		cfg.RetryMaxAttempts = flagRetryMaxAttempts
	}
	if f.Changed("retry-base-ms") && flagRetryBaseDelayMs > 0 {
		cfg.RetryBaseDelayMs = flagRetryBaseDelayMs
	}
	if f.Changed("retry-max-ms") && flagRetryMaxDelayMs > 0 {
		cfg.RetryMaxDelayMs = flagRetryMaxDelayMs
	}

	level := cfg.LogLevel
	if debug {
		level = "debug"
	}
	log = logger.Must(level, cfg.LogFormat)
}

// requireConfig returns the loaded config, loading it on demand for callers
// that run before OnInitialize (tests driving subcommands directly).
func requireConfig() (*cfgpkg.Global, error) {
	if cfg != nil {
		return cfg, nil
	}
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	cfg = c
	return cfg, nil
}

// newRuntime builds the configured text-generation runtime. Empty provider
// and model arguments fall back to the config.
func newRuntime(c *cfgpkg.Global, provider, model string) (ai.Runtime, string, error) {
	if provider == "" {
		provider = c.Provider
	}
	if model == "" && provider == c.Provider {
		model = c.Model
	}
	rt, err := ai.MustRuntime(provider, ai.RuntimeConfig{
		APIKey:      c.APIKey,
		Model:       model,
		BaseURL:     c.APIBaseURL,
		HTTPTimeout: c.HTTPTimeout(),
		RetryMax:    c.RetryMaxAttempts,
		BaseDelay:   c.RetryBaseDelay(),
		MaxDelay:    c.RetryMaxDelay(),
	})
	if err != nil {
		return nil, "", err
	}
	return rt, provider, nil
}

func newLoader(c *cfgpkg.Global) *parser.Loader {
	hc := &http.Client{}
	if t := c.HTTPTimeout(); t > 0 {
		hc.Timeout = t
	}
	return parser.NewLoader(hc, log)
}
