package main

import (
	"encoding/json"
	"fmt"

	"github.com/amirphl/counter-clean-arch/app/dto"
	"github.com/amirphl/counter-clean-arch/models"
	"github.com/spf13/cobra"
)

func newGetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Print a counter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client().Get(cmd.Context(), opts.id)
			if err != nil {
				return err
			}
			return printCounter(cmd, opts, c)
		},
	}
}

func newIncrementCmd(opts *rootOptions) *cobra.Command {
	var amount int64
	cmd := &cobra.Command{
		Use:   "increment",
		Short: "Add --amount (default 1) to a counter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client().Increment(cmd.Context(), opts.id, amountFlag(cmd, amount))
			if err != nil {
				return err
			}
			return printCounter(cmd, opts, c)
		},
	}
	cmd.Flags().Int64Var(&amount, "amount", 1, "Amount to add")
	return cmd
}

func newDecrementCmd(opts *rootOptions) *cobra.Command {
	var amount int64
	cmd := &cobra.Command{
		Use:   "decrement",
		Short: "Subtract --amount (default 1) from a counter, stopping at zero",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client().Decrement(cmd.Context(), opts.id, amountFlag(cmd, amount))
			if err != nil {
				return err
			}
			return printCounter(cmd, opts, c)
		},
	}
	cmd.Flags().Int64Var(&amount, "amount", 1, "Amount to subtract")
	return cmd
}

func newResetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Set a counter back to zero",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client().Reset(cmd.Context(), opts.id)
			if err != nil {
				return err
			}
			return printCounter(cmd, opts, c)
		},
	}
}

// amountFlag sends the amount only when the user set it, leaving the default to the server
func amountFlag(cmd *cobra.Command, amount int64) *int64 {
	if !cmd.Flags().Changed("amount") {
		return nil
	}
	return &amount
}

func printCounter(cmd *cobra.Command, opts *rootOptions, c models.Counter) error {
	out := cmd.OutOrStdout()
	if opts.json {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(dto.ToCounterDTO(c))
	}
	_, err := fmt.Fprintf(out, "%s\t%d\n", c.ID(), c.Value())
	return err
}
