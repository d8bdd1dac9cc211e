package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"ridescore/internal/types"
)

func newExplainCommand(opts *globalOptions) *cobra.Command {
	var (
		userID string
		rideID string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "explain",
		Short: "Break a ride's acceptance probability down by feature",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if userID == "" || rideID == "" {
				return fmt.Errorf("--user and --ride are required")
			}
			eng, err := opts.newEngine(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			report, err := eng.explanation.Explain(cmd.Context(), types.ID(userID), types.ID(rideID))
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), report.String())
			return err
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "Driver (user) id")
	cmd.Flags().StringVar(&rideID, "ride", "", "Ride id (open or historical)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}
