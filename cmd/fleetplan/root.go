package main

import (
	"context"
	"fmt"

	"github.com/passbi/passbi_fleet/internal/config"
	"github.com/passbi/passbi_fleet/internal/db"
	"github.com/passbi/passbi_fleet/internal/lineimport"
	"github.com/passbi/passbi_fleet/internal/logging"
	"github.com/passbi/passbi_fleet/internal/planner"
	"github.com/passbi/passbi_fleet/internal/store"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	linesPath string
	planPath  string
	strict    bool
	workers   int
	openRepo  repoOpener
}

// repoOpener returns the repository import writes to and a release func
type repoOpener func(ctx context.Context) (store.Repository, func(), error)

// openPostgres connects with the DB_* environment and migrates the schema
func openPostgres(ctx context.Context) (store.Repository, func(), error) {
	pool, err := db.GetDB()
	if err != nil {
		return nil, nil, err
	}
	if _, err := db.Migrate(ctx, pool); err != nil {
		db.Close()
		return nil, nil, err
	}
	return store.NewPostgresRepository(pool), db.Close, nil
}

func newRootCmd() *cobra.Command {
	return newRootCmdWith(openPostgres)
}

func newRootCmdWith(open repoOpener) *cobra.Command {
	opts := &rootOptions{openRepo: open}

	root := &cobra.Command{
		Use:          "fleetplan",
		Short:        "Bus network fleet and operating metrics planner",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&opts.linesPath, "lines", "l", "", "ZIP archive of line documents (required)")
	root.PersistentFlags().StringVarP(&opts.planPath, "plan", "p", "plan.yaml", "plan file with params and calendar (YAML or JSON)")
	root.PersistentFlags().BoolVar(&opts.strict, "strict", false, "fail on calendar days without a matching schedule")
	root.PersistentFlags().IntVar(&opts.workers, "workers", 0, "parallel line calculations (0 = GOMAXPROCS)")

	root.AddCommand(newCalculateCmd(opts))
	root.AddCommand(newImportCmd(opts))
	root.AddCommand(newKeygenCmd())
	return root
}

// loadInput reads the line archive and plan file into calculation inputs.
// Travel times missing from line documents are estimated from the plan's
// commercial speed.
func loadInput(opts *rootOptions) (planner.Input, int, error) {
	if opts.linesPath == "" {
		return planner.Input{}, 0, fmt.Errorf("--lines is required")
	}

	plan, err := config.LoadPlan(opts.planPath)
	if err != nil {
		return planner.Input{}, 0, fmt.Errorf("load plan: %w", err)
	}

	docs, err := lineimport.ParseArchive(opts.linesPath)
	if err != nil {
		return planner.Input{}, 0, fmt.Errorf("read lines: %w", err)
	}

	lines, dropped := lineimport.ToBusLines(docs, lineimport.Options{CommercialSpeedKmh: plan.Params.VCommercial}, logging.New("import"))
	if len(lines) == 0 {
		return planner.Input{}, dropped, lineimport.ErrNoDocuments
	}

	return planner.Input{Lines: lines, Params: plan.Params, Calendar: plan.Calendar}, dropped, nil
}
