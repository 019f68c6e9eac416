package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	cleanupDryRun          bool
	cleanupOutput          string
	cleanupMetricsTextfile string
	cleanupInteractive     bool
	cleanupEnvFile         string

	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "snyk-cleanup",
	Short: "Bulk-delete Snyk targets in an organization",
	Long: `Lists the organizations your SNYK_TOKEN can access, lets you pick one, and deletes every
target registered under it after confirmation. Use --dry-run to preview without deleting.`,
	// stray arguments are ignored so --dry-run works in any position
	Args: cobra.ArbitraryArgs,
	Run:  runCleanup,
}

func init() {
	rootCmd.Flags().BoolVar(&cleanupDryRun, "dry-run", false, "Show what would be deleted without making changes")
	rootCmd.Flags().StringVarP(&cleanupOutput, "output", "o", "text", "Dry-run report format (text, json, yaml)")
	rootCmd.Flags().StringVar(&cleanupMetricsTextfile, "metrics-textfile", "", "Write run counters to this file in Prometheus text format")
	rootCmd.Flags().BoolVarP(&cleanupInteractive, "interactive", "i", false, "Use form inputs for prompts when stdin is a terminal")
	rootCmd.Flags().StringVar(&cleanupEnvFile, "env-file", ".env", "Optional env file to read SNYK_TOKEN from")

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", envOrDefault("SNYK_CLEANUP_LOG_LEVEL", "warn"), "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", envOrDefault("SNYK_CLEANUP_LOG_FORMAT", "auto"), "Log format (console, json, auto)")
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func printFatal(msg string) {
	fmt.Println(errorStyle.Render(msg))
	os.Exit(1)
}
