package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/mathmatrix/internal/ai"
	cfgpkg "github.com/KaramelBytes/mathmatrix/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set MathMatrix configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "api_key: %s\n", mask(c.APIKey))
		fmt.Fprintf(out, "provider: %s\n", c.Provider)
		fmt.Fprintf(out, "model: %s\n", c.Model)
		if c.APIBaseURL != "" {
			fmt.Fprintf(out, "api_base_url: %s\n", c.APIBaseURL)
		}
		fmt.Fprintf(out, "http_timeout_sec: %d\n", c.HTTPTimeoutSec)
		fmt.Fprintf(out, "retry_max_attempts: %d\n", c.RetryMaxAttempts)
		fmt.Fprintf(out, "metrics_csv: %s\n", c.MetricsCSV)
		fmt.Fprintf(out, "feedback_csv: %s\n", c.FeedbackCSV)
		fmt.Fprintf(out, "recent_feedback: %d\n", c.RecentFeedback)
		fmt.Fprintf(out, "listen_addr: %s\n", c.ListenAddr)
		fmt.Fprintf(out, "sanitize_html: %t\n", c.SanitizeHTML)
		if len(c.CORSOrigins) > 0 {
			fmt.Fprintf(out, "cors_origins: %s\n", strings.Join(c.CORSOrigins, ","))
		}
		if c.RedisAddr != "" {
			fmt.Fprintf(out, "redis_addr: %s\n", c.RedisAddr)
		}
		fmt.Fprintf(out, "log_level: %s\n", c.LogLevel)
		fmt.Fprintf(out, "log_format: %s\n", c.LogFormat)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		if err := setConfigValue(c, args[0], args[1]); err != nil {
			return err
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func setConfigValue(c *cfgpkg.Global, key, val string) error {
	atoi := func(min int) (int, error) {
		i, err := strconv.Atoi(val)
		if err != nil || i < min {
			return 0, fmt.Errorf("invalid int for %s: %v", key, val)
		}
		return i, nil
	}
	var err error
	switch key {
	case "api_key":
		c.APIKey = val
	case "provider":
		p := strings.ToLower(val)
		if p != ai.ProviderGemini && p != ai.ProviderOpenAI {
			return fmt.Errorf("invalid provider: %s (use %s)", val, strings.Join(ai.Providers(), " or "))
		}
		c.Provider = p
	case "model":
		c.Model = val
	case "api_base_url":
		c.APIBaseURL = val
	case "http_timeout_sec":
		c.HTTPTimeoutSec, err = atoi(0)
	case "retry_max_attempts":
		c.RetryMaxAttempts, err = atoi(1)
	case "retry_base_delay_ms":
		c.RetryBaseDelayMs, err = atoi(0)
	case "retry_max_delay_ms":
		c.RetryMaxDelayMs, err = atoi(0)
	case "metrics_csv":
		c.MetricsCSV = val
	case "feedback_csv":
		c.FeedbackCSV = val
	case "recent_feedback":
		c.RecentFeedback, err = atoi(1)
	case "listen_addr":
		c.ListenAddr = val
	case "sanitize_html":
		b, perr := strconv.ParseBool(val)
		if perr != nil {
			return fmt.Errorf("invalid bool for sanitize_html: %v", val)
		}
		c.SanitizeHTML = b
	case "cors_origins":
		c.CORSOrigins = splitList(val)
	case "redis_addr":
		c.RedisAddr = val
	case "log_level":
		c.LogLevel = val
	case "log_format":
		if val != "json" && val != "console" {
			return fmt.Errorf("invalid log_format: %s (use json or console)", val)
		}
		c.LogFormat = val
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return err
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}
