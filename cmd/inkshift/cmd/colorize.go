package cmd

import (
	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/inkshift/internal/config"
	"github.com/MeKo-Tech/inkshift/internal/page"
	"github.com/MeKo-Tech/inkshift/internal/plan"
	"github.com/MeKo-Tech/inkshift/internal/prompt"
)

// colorizeCmd runs dependency-chained colorization over a page sequence.
var colorizeCmd = &cobra.Command{
	Use:   "colorize [files...]",
	Short: "Colorize comic pages with reference-consistency chaining",
	Long: `Colorize a sequence of black-and-white comic pages.

Pages are processed in batches. The first batch is a single page; each
following batch grows by one parallel slot up to --max-width, and every
request embeds the most recently completed pages as color references so
characters and palettes stay consistent across the chapter. A page the
service fails on is skipped and the run continues.

Inputs may be image files, directories of images, or PDF chapters.

Examples:
  inkshift colorize pages/*.png --max-width 4 --output colored/
  inkshift colorize chapter.pdf --resolution 4K --progress`,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE:         runColorizeCommand,
}

// applyRunFlags overrides config values with explicitly set run flags.
// CLI flags shared by both run commands are applied here rather than
// bound to viper, so the two commands' defaults cannot clobber each
// other's bindings.
func applyRunFlags(cfg *config.Config, cmd *cobra.Command) {
	if cmd.Flags().Changed("max-width") {
		cfg.Batch.MaxWidth, _ = cmd.Flags().GetInt("max-width")
	}
	if cmd.Flags().Changed("max-dimension") {
		cfg.Batch.MaxDimension, _ = cmd.Flags().GetInt("max-dimension")
	}
	if cmd.Flags().Changed("resolution") {
		cfg.API.Resolution, _ = cmd.Flags().GetString("resolution")
	}
	if cmd.Flags().Changed("output") {
		cfg.Output.Dir, _ = cmd.Flags().GetString("output")
	}
	if cmd.Flags().Changed("format") {
		cfg.Output.Format, _ = cmd.Flags().GetString("format")
	}
	if cmd.Flags().Changed("progress") {
		cfg.Output.Progress, _ = cmd.Flags().GetBool("progress")
	}
	if cmd.Flags().Changed("quiet") {
		cfg.Output.Quiet, _ = cmd.Flags().GetBool("quiet")
	}
}

// addRunFlags registers the flags shared by both run commands.
func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().Int("max-width", 4, "maximum pages processed concurrently per batch")
	cmd.Flags().Int("max-dimension", 0, "downscale pages whose longest side exceeds this (0 = keep)")
	cmd.Flags().String("resolution", "2K", "output resolution hint (1K, 2K, 4K)")
	cmd.Flags().StringP("output", "o", "out", "output directory")
	cmd.Flags().String("format", "json", "manifest format (json, yaml)")
	cmd.Flags().Bool("progress", false, "show a progress bar")
	cmd.Flags().BoolP("quiet", "q", false, "suppress non-error output")
}

func runColorizeCommand(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	applyRunFlags(cfg, cmd)
	if err := cfg.Validate(); err != nil {
		return err
	}

	instruction := func(refCount int, meta page.Metadata) string {
		return prompt.Colorize(refCount, meta.AspectRatio)
	}
	return runPages(cfg, args, plan.ModeChained, instruction)
}

func init() {
	rootCmd.AddCommand(colorizeCmd)
	addRunFlags(colorizeCmd)
}
