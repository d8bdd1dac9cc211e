package main

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newCoefficientsCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "coefficients",
		Short: "Print the coefficient set in YAML",
		Long: `Print the coefficient set the other commands would use: the file given
with --coefficients, or the built-in baseline.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.coefficients()
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			if err := enc.Encode(c); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}
