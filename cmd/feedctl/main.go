// Command feedctl drives the feed core from a terminal against the remote
// catalog API.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/reelhouse/reelhouse-server/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:           "feedctl",
	Short:         "Inspect the Reelhouse dashboard feed from a terminal",
	Long:          "feedctl builds feed rows against the remote catalog exactly as a viewer session would and prints them.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String("catalog-url", envOr("CATALOG_BASE_URL", "http://localhost:3000/api"), "base URL of the remote catalog API")
	rootCmd.PersistentFlags().Duration("timeout", 10*time.Second, "catalog request timeout")
	rootCmd.PersistentFlags().String("cache-path", "", "serve catalog pages through this SQLite page cache")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log feed activity to stderr")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: ")+err.Error())
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// newLogger logs to stderr in verbose mode and discards otherwise.
func newLogger(cmd *cobra.Command) *slog.Logger {
	verbose, _ := cmd.Flags().GetBool("verbose")
	if !verbose {
		return logger.Discard().Logger
	}
	return logger.New(logger.Config{
		Writer:      os.Stderr,
		Level:       slog.LevelDebug,
		Environment: "development",
	}).Logger
}
