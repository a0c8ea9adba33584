package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/frame-dedup/internal/config"
	"github.com/kozaktomas/frame-dedup/internal/constants"
	"github.com/kozaktomas/frame-dedup/internal/fingerprint"
)

var (
	cfg    *config.Config
	logger = slog.Default()
)

var rootCmd = &cobra.Command{
	Use:   "frame-dedup [frames_dir]",
	Short: "Remove near-duplicate frames extracted from a video",
	Long: `Frame Dedup reads the image files of a frames directory in file name order,
computes a perceptual hash for each one and removes the frames that look
the same as the last frame kept before them.

A frame whose hash differs from the current reference frame by at most
--threshold bits is a duplicate. Any other frame is kept and becomes the
new reference.

Examples:
  # Remove duplicates from ./frames
  frame-dedup

  # Be more tolerant of small changes
  frame-dedup frames --threshold 8

  # Only show what would be deleted
  frame-dedup frames --threshold 5 --dry-run

  # Extract frames from a video first
  frame-dedup extract talk.mp4 --out frames --fps 1`,
	Args:              cobra.MaximumNArgs(1),
	PersistentPreRunE: setup,
	RunE:              runDedup,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "[ERROR]", err)
		os.Exit(constants.ExitFailure)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error); overrides LOG_LEVEL")

	defaults := config.Defaults()
	rootCmd.Flags().Int("threshold", defaults.Dedup.Threshold, "Max perceptual hash distance to treat as duplicate (0 = identical hashes only)")
	rootCmd.Flags().Bool("dry-run", false, "Show what would be deleted without deleting")
	rootCmd.Flags().String("hash", defaults.Dedup.Hash, "Hash algorithm ("+strings.Join(fingerprint.Names(), ", ")+")")
	rootCmd.Flags().Int("concurrency", defaults.Dedup.Concurrency, "Number of parallel hashing workers (0 = one per CPU)")
	rootCmd.Flags().Bool("json", false, "Output the result as JSON")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

// setup loads configuration and installs the logger. Flags explicitly set
// on the command line take precedence over the environment.
func setup(cmd *cobra.Command, _ []string) error {
	loaded, err := config.Load()
	if err != nil {
		return err
	}
	cfg = loaded

	if level := mustGetString(cmd, "log-level"); level != "" {
		cfg.Log.Level = level
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger = slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      cfg.Log.SlogLevel(),
		TimeFormat: time.TimeOnly,
	}))
	slog.SetDefault(logger)

	return nil
}
