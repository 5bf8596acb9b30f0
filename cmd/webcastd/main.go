package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "webcastd",
		Short: "Live webcast feed decoder",
		Long: `webcastd keeps persistent connections to live-stream push endpoints,
decodes their binary frames and re-emits normalized events.

  • TikTok webcast protocol over a persistent websocket
  • Kick chat over the pusher protocol
  • Reconnect sweep with bounded retries
  • Prometheus metrics and an admin HTTP surface`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		runCmd(),
		statusCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
