package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/frame-dedup/internal/fingerprint"
)

var hashCmd = &cobra.Command{
	Use:   "hash <file>...",
	Short: "Print the perceptual hash of image files",
	Long: `Compute and print the perceptual hash of one or more image files.

Each line has the form "<algorithm>:<hex>  <path>". Useful for picking a
--threshold: the distance between two frames is the number of differing bits.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runHash,
}

func init() {
	rootCmd.AddCommand(hashCmd)

	hashCmd.Flags().String("hash", "", "Hash algorithm (default: FRAME_DEDUP_HASH or phash)")
	hashCmd.Flags().Bool("json", false, "Output as JSON")
}

// HashOutput is one line of the hash command in JSON form.
type HashOutput struct {
	Path        string `json:"path"`
	Fingerprint string `json:"fingerprint,omitempty"`
	Error       string `json:"error,omitempty"`
}

func runHash(cmd *cobra.Command, args []string) error {
	provider, err := fingerprint.ByName(stringFlagOr(cmd, "hash", cfg.Dedup.Hash))
	if err != nil {
		return err
	}

	results, failed := hashFiles(provider, args)

	if mustGetBool(cmd, "json") {
		if err := outputJSON(cmd.OutOrStdout(), results); err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		for _, r := range results {
			if r.Error != "" {
				fmt.Fprintf(w, "[WARN] %s: %s\n", r.Path, r.Error)
				continue
			}
			fmt.Fprintf(w, "%s  %s\n", r.Fingerprint, r.Path)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files could not be hashed", failed, len(args))
	}
	return nil
}

func hashFiles(provider fingerprint.Provider, paths []string) ([]HashOutput, int) {
	results := make([]HashOutput, 0, len(paths))
	failed := 0
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err == nil {
			var fp fingerprint.Fingerprint
			if fp, err = provider.Compute(data); err == nil {
				results = append(results, HashOutput{Path: path, Fingerprint: fp.String()})
				continue
			}
		}
		logger.Debug("hash failed", "path", path, "error", err)
		results = append(results, HashOutput{Path: path, Error: err.Error()})
		failed++
	}
	return results, failed
}
