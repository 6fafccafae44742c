package main

import (
	"fmt"

	"github.com/passbi/passbi_fleet/internal/calc"
	"github.com/passbi/passbi_fleet/internal/logging"
	"github.com/passbi/passbi_fleet/internal/planner"
	"github.com/spf13/cobra"
)

func newImportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import",
		Short: "Store a line archive and plan in the database and record a calculation run",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.New("fleetplan")

			in, dropped, err := loadInput(opts)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			repo, release, err := opts.openRepo(ctx)
			if err != nil {
				return err
			}
			defer release()

			calculator := calc.New(calc.Options{Workers: opts.workers, Strict: opts.strict}, logging.New("calc"))
			svc := planner.New(repo, calculator, logging.New("planner"))

			snap, err := svc.ReplaceInputs(ctx, in)
			if err != nil {
				return err
			}

			log.Info().
				Str("run_id", snap.RunID.String()).
				Int("lines", len(in.Lines)).
				Int("dropped", dropped).
				Int("total_fleet", snap.Data.NetworkTotals.TotalFleet).
				Msg("import completed")
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d lines, run %s, total fleet %d\n",
				len(in.Lines), snap.RunID, snap.Data.NetworkTotals.TotalFleet)
			return nil
		},
	}
}
