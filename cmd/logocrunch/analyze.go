package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dunamismax/logocrunch/internal/compose"
	"github.com/dunamismax/logocrunch/internal/palette"
	"github.com/dunamismax/logocrunch/internal/raster"
)

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <image>",
		Short: "Print the dominant color of a raster",
		Long: `Print the dominant color measured for a raster, along with the background
fill and keying decision the pipeline would make for it.

The image path may omit its extension.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			img, path, err := raster.LoadFile(args[0])
			if err != nil {
				return err
			}
			flat := raster.FlattenOnWhite(img)
			res, err := palette.Analyze(flat, cfg.PaletteOptions())
			if err != nil {
				return fmt.Errorf("analyze %s: %w", path, err)
			}

			opts := cfg.PipelineOptions().Compose
			rows := analysisRows(path, flat.Bounds().Dx(), flat.Bounds().Dy(), res, opts)
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows, nil, nil))
			return nil
		},
	}
}

func analysisRows(path string, width, height int, res palette.Result, opts compose.Options) [][]string {
	fill := compose.BackgroundFill(res, opts.WhiteThreshold, opts.NeutralGray)
	return [][]string{
		{"File", path},
		{"Size", fmt.Sprintf("%dx%d", width, height)},
		{"Dominant", res.Color.Hex() + " " + res.Color.CSS()},
		{"Score", fmt.Sprintf("%.1f%%", res.Score*100)},
		{"Brightness", strconv.Itoa(int(res.Brightness))},
		{"Clusters", strconv.Itoa(res.Clusters)},
		{"Background", fill.CSS()},
		{"Keyed", yesNo(res.Score > opts.MinConfidence)},
	}
}
