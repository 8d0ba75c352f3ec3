package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KaramelBytes/mathmatrix/internal/chat"
	"github.com/KaramelBytes/mathmatrix/internal/server"
)

var (
	serveAddr     string
	serveProvider string
	serveRedis    string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API for the solver and dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		addr := c.ListenAddr
		if serveAddr != "" {
			addr = serveAddr
		}
		redisAddr := c.RedisAddr
		if serveRedis != "" {
			redisAddr = serveRedis
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rt, provider, err := newRuntime(c, serveProvider, "")
		if err != nil {
			return err
		}
		if c.APIKey == "" {
			fmt.Fprintln(cmd.ErrOrStderr(), "⚠ Warning: api_key is not set; solve requests will return a configuration error")
		}

		var examples chat.ExampleStore = chat.NewMemoryExampleStore()
		if redisAddr != "" {
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			rs, err := chat.NewRedisExampleStore(pingCtx, redisAddr, time.Hour, log)
			cancel()
			if err != nil {
				return err
			}
			defer rs.Close()
			examples = rs
		}

		srv := server.New(server.Config{
			Addr:           addr,
			MetricsCSV:     c.MetricsCSV,
			FeedbackCSV:    c.FeedbackCSV,
			RecentFeedback: c.RecentFeedback,
			CORSOrigins:    c.CORSOrigins,
			SanitizeHTML:   c.SanitizeHTML,
		}, server.Deps{
			Session:  chat.NewSession(chat.Options{Runtime: rt, Provider: provider, Sanitize: c.SanitizeHTML, Logger: log}),
			Examples: examples,
			Loader:   newLoader(c),
			Logger:   log,
		})
		fmt.Fprintf(cmd.ErrOrStderr(), "✓ Serving on %s (provider %s)\n", addr, provider)
		defer func() { _ = log.Sync() }()
		if err := srv.Start(ctx); err != nil {
			log.Error("server stopped", zap.Error(err))
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
	serveCmd.Flags().StringVar(&serveProvider, "provider", "", "text-generation provider (overrides config)")
	serveCmd.Flags().StringVar(&serveRedis, "redis", "", "redis address for the example store (overrides config)")
}
