package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"ridescore/internal/modules/ranking"
)

func newBenchCommand(opts *globalOptions) *cobra.Command {
	var iterations int
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Time full rankings for every loaded driver",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if iterations <= 0 {
				return fmt.Errorf("--iterations must be positive")
			}
			eng, err := opts.newEngine(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			snap := eng.data.Snapshot()
			if len(snap.Users) == 0 {
				return fmt.Errorf("no users loaded from %s", opts.dataDir)
			}

			var samples []time.Duration
			scored, failed := 0, 0
			for i := 0; i < iterations; i++ {
				for _, u := range snap.Users {
					start := time.Now()
					res, err := eng.ranking.Rank(cmd.Context(), u.ID, snap.Rides, ranking.Options{})
					if err != nil {
						return err
					}
					samples = append(samples, time.Since(start))
					scored += len(res.Rides)
					failed += len(res.Failures)
				}
			}

			sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "rankings=%d rides_scored=%d failures=%d\n", len(samples), scored, failed)
			fmt.Fprintf(out, "p50=%s p95=%s max=%s\n", percentile(samples, 50), percentile(samples, 95), samples[len(samples)-1])
			return nil
		},
	}
	cmd.Flags().IntVar(&iterations, "iterations", 10, "Rankings per driver")
	return cmd
}

// percentile expects sorted, non-empty samples.
func percentile(samples []time.Duration, p int) time.Duration {
	i := (len(samples)*p+99)/100 - 1
	if i < 0 {
		i = 0
	}
	return samples[i]
}
