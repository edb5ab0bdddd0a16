package cmd

import (
	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/inkshift/internal/page"
	"github.com/MeKo-Tech/inkshift/internal/plan"
	"github.com/MeKo-Tech/inkshift/internal/prompt"
)

// translateCmd runs flat-batched translation over a page sequence.
var translateCmd = &cobra.Command{
	Use:   "translate [files...]",
	Short: "Translate the text on comic pages between languages",
	Long: `Translate the text on a sequence of comic pages.

Pages are processed in flat batches of --max-width parallel requests;
no cross-batch references are carried. Unlike colorization, the first
page-level failure aborts the whole run once its batch has settled.

Inputs may be image files, directories of images, or PDF chapters.

Examples:
  inkshift translate pages/ --from ja --to en
  inkshift translate chapter.pdf --from ja --to en --format yaml`,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE:         runTranslateCommand,
}

func runTranslateCommand(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	applyRunFlags(cfg, cmd)
	if cmd.Flags().Changed("from") {
		cfg.Translate.From, _ = cmd.Flags().GetString("from")
	}
	if cmd.Flags().Changed("to") {
		cfg.Translate.To, _ = cmd.Flags().GetString("to")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	from, to, err := cfg.Translate.Languages()
	if err != nil {
		return err
	}

	instruction := func(refCount int, meta page.Metadata) string {
		return prompt.Translate(from, to)
	}
	return runPages(cfg, args, plan.ModeFlat, instruction)
}

func init() {
	rootCmd.AddCommand(translateCmd)
	addRunFlags(translateCmd)

	translateCmd.Flags().String("from", "", "source language (BCP 47, e.g. ja)")
	translateCmd.Flags().String("to", "", "target language (BCP 47, e.g. en)")
}
