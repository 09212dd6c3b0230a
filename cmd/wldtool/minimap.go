package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Faultbox/terrafirma/internal/minimap"
)

func (a *app) minimapCmd() *cobra.Command {
	var output, dir string
	var maxDim int
	cmd := &cobra.Command{
		Use:   "minimap <world>",
		Short: "Export the world map as PNG",
		Long: `Render one pixel per tile from the derived map colors and write a PNG.

Large worlds are scaled down so neither side exceeds --max-dimension
(default from config; 0 keeps full size).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, _, err := a.openWorld(cmd, args[0])
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("max-dimension") {
				maxDim = a.cfg.Minimap.MaxDimension
			}

			exp := minimap.NewExporter(dir, maxDim)
			if output == "" {
				output, err = exp.Export(w)
			} else {
				err = exp.ExportTo(output, w)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output PNG path (default: generated name)")
	cmd.Flags().StringVar(&dir, "dir", "", "Directory for generated names")
	cmd.Flags().IntVar(&maxDim, "max-dimension", 0, "Longest side in pixels")
	return cmd
}
