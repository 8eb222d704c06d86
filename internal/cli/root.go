// Package cli provides the command-line interface for subwatch.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version and Commit are set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
)

const defaultConfigDir = ".subwatch"

var (
	configDir string
	logLevel  string
)

var rootCmd = &cobra.Command{
	Use:   "subwatch",
	Short: "Watch subreddits for matching posts and notify Discord",
	Long: "subwatch scans the newest posts of configured subreddits, matches them against " +
		"per-subreddit criteria, and sends a Discord notification for each new match.",
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("subwatch %s (%s)\n", Version, Commit)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", defaultConfigDir, "directory holding config.yaml and .env")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level from config (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(explainCmd)
	rootCmd.AddCommand(seenCmd)
}

// Execute runs the root command. SIGINT and SIGTERM cancel the context so
// an interrupted scan still saves its dedup state.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}
