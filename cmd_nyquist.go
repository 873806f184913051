package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

func newNyquistCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "nyquist",
		Short: "Print the display geometry and its resolution limit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := loadStation(cmd)
			if err != nil {
				return err
			}
			defer st.close()

			disp := st.cfg.Geometry()
			if err := disp.Validate(); err != nil {
				return err
			}
			wDeg, hDeg := disp.SizeDeg()
			limit := disp.Nyquist()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "pixels per degree: %.2f\n", disp.PixelsPerDegree())
			fmt.Fprintf(out, "screen:            %.2f x %.2f deg\n", wDeg, hDeg)
			fmt.Fprintf(out, "nyquist limit:     %.2f c/deg\n", limit)

			tc := st.cfg.Trial()
			highest := tc.MaxFrequency
			if len(tc.Frequencies) > 0 {
				highest = slices.Max(tc.Frequencies)
			}
			if highest > limit {
				return fmt.Errorf("highest test frequency %.3g c/deg exceeds the resolution limit %.3g c/deg", highest, limit)
			}
			fmt.Fprintf(out, "highest frequency: %.3g c/deg fits\n", highest)
			return nil
		},
	}
}
