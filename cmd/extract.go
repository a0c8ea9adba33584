package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/frame-dedup/internal/frames"
)

var extractCmd = &cobra.Command{
	Use:   "extract <video>",
	Short: "Extract frames from a video with ffmpeg",
	Long: `Extract frames from a video file into a directory using ffmpeg.

Frames are written as frame_000001.<format>, frame_000002.<format>, ... so
that file name order is frame order. Run frame-dedup on the output directory
afterwards to drop the duplicates.

Examples:
  # One frame per second into ./frames
  frame-dedup extract talk.mp4

  # Two frames per second as PNG
  frame-dedup extract talk.mp4 --out slides --fps 2 --format png`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().String("out", "", "Output directory (default: FRAME_DEDUP_DIR or frames)")
	extractCmd.Flags().Int("fps", 0, "Frames per second to extract (default: FRAME_DEDUP_EXTRACT_FPS or 1)")
	extractCmd.Flags().String("format", "", "Output image format (default: FRAME_DEDUP_EXTRACT_FORMAT or jpg)")
	extractCmd.Flags().Bool("json", false, "Output the result as JSON")
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ex := &frames.Extractor{
		FFmpeg:  cfg.Extract.FFmpeg,
		FFprobe: cfg.Extract.FFprobe,
		FPS:     intFlagOr(cmd, "fps", cfg.Extract.FPS),
		Format:  stringFlagOr(cmd, "format", cfg.Extract.Format),
		Logger:  logger,
	}
	outDir := stringFlagOr(cmd, "out", cfg.Dedup.FramesDir)

	result, err := ex.Extract(ctx, args[0], outDir)
	if err != nil {
		return err
	}

	if mustGetBool(cmd, "json") {
		return outputJSON(cmd.OutOrStdout(), result)
	}

	pr := newPrinter(cmd.OutOrStdout())
	pr.p.Fprintf(pr.w, "[DONE] Extracted %d frames to: %s\n", len(result.Frames), absPath(result.OutputDir))
	if result.Duration > 0 {
		fmt.Fprintf(pr.w, "  Video duration: %.1fs\n", result.Duration)
	}
	return nil
}
