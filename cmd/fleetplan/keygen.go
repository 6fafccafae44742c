package main

import (
	"encoding/hex"
	"fmt"

	"github.com/passbi/passbi_fleet/internal/middleware"
	"github.com/spf13/cobra"
)

func newKeygenCmd() *cobra.Command {
	var env string

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a planner API key for the write routes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, prefix, err := middleware.GeneratePlannerKey(env)
			if err != nil {
				return err
			}
			hash := middleware.PlannerKeyHash(key)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Environment: %s\n", env)
			fmt.Fprintf(out, "Key:         %s\n", key)
			fmt.Fprintf(out, "Prefix:      %s\n", prefix)
			fmt.Fprintf(out, "SHA-256:     %s\n", hex.EncodeToString(hash[:]))
			fmt.Fprintln(out, "\nSet PLANNER_API_KEY to the key on the API server. It is not shown again.")
			return nil
		},
	}
	cmd.Flags().StringVar(&env, "env", "test", "key environment: test or live")
	return cmd
}
