package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"ridescore/internal/modules/ranking"
	"ridescore/internal/types"
)

func newRankCommand(opts *globalOptions) *cobra.Command {
	var (
		userID string
		top    int
		filter string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank the loaded rides for a driver",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if userID == "" {
				return fmt.Errorf("--user is required")
			}
			f, err := ranking.CompileFilter(filter)
			if err != nil {
				return err
			}
			eng, err := opts.newEngine(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			n := top
			if n <= 0 {
				n = len(eng.data.Snapshot().Rides)
			}
			res, err := eng.ranking.TopRecommendations(cmd.Context(), types.ID(userID), n, ranking.Options{Filter: f})
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			printRanking(cmd.OutOrStdout(), res)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "Driver (user) id")
	cmd.Flags().IntVar(&top, "top", 0, "Keep only the first N rides (0 = all)")
	cmd.Flags().StringVar(&filter, "filter", "", `CEL filter, e.g. 'ride.distance < 10.0'`)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

func printRanking(w io.Writer, res *ranking.Result) {
	fmt.Fprintf(w, "%-4s %-12s %11s %10s %8s %-10s\n", "#", "RIDE", "PROBABILITY", "DISTANCE", "TIME", "DAY")
	for i, r := range res.Rides {
		dist, _ := r.Ride.Distance()
		fmt.Fprintf(w, "%-4d %-12s %11.4f %10.2f %8s %-10s\n", i+1, r.RideID, r.Probability, dist, r.Ride.Time(), r.Ride.Day())
	}
	if res.Filtered > 0 {
		fmt.Fprintf(w, "%d ride(s) filtered out\n", res.Filtered)
	}
	for _, f := range res.Failures {
		fmt.Fprintf(w, "skipped %s: %v\n", f.RideID, f.Err)
	}
}
