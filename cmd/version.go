package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/frame-dedup/internal/fingerprint"
)

// Build metadata variables, set by -ldflags at compile time.
var (
	Version   = "dev"
	CommitSHA = "unknown"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version information",
	Run: func(cmd *cobra.Command, _ []string) {
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "frame-dedup %s\n", Version)
		fmt.Fprintf(w, "  Commit: %s\n", CommitSHA)
		fmt.Fprintf(w, "  Built:  %s\n", BuildDate)
		fmt.Fprintf(w, "  Hashes: %s\n", strings.Join(fingerprint.Names(), ", "))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
