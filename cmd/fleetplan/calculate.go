package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/passbi/passbi_fleet/internal/calc"
	"github.com/passbi/passbi_fleet/internal/logging"
	"github.com/passbi/passbi_fleet/internal/models"
	"github.com/spf13/cobra"
)

func newCalculateCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "calculate",
		Short: "Calculate fleet and operating metrics for a line archive",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, dropped, err := loadInput(opts)
			if err != nil {
				return err
			}

			calculator := calc.New(calc.Options{Workers: opts.workers, Strict: opts.strict}, logging.New("calc"))
			result, err := calculator.Calculate(in.Lines, in.Params, in.Calendar)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			if dropped > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "skipped %d invalid line documents\n", dropped)
			}
			return printSummary(out, result)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")
	return cmd
}

func printSummary(out io.Writer, result *models.CalculatedData) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, "LINE\tNAME\tPARC\tBUS MAX\tVOYAGES/AN\tKM/AN\tHEURES/AN\tDEPOT")
	for _, l := range result.Lines {
		avg := l.TenYearAvg
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%.0f\t%.0f\t%.0f\t%s (%.1f km)\n",
			l.ID, l.Name, avg.ParcAffecte, avg.BusMax, avg.Voyages, avg.KmTotal, avg.HTotal,
			l.DepotProche.Location, l.DepotProche.Distance)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	t := result.NetworkTotals
	peak := "-"
	if t.PeakSlot.Season != "" {
		peak = fmt.Sprintf("%s/%s", t.PeakSlot.Season, t.PeakSlot.DayType)
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Peak bus demand:   %d (%s)\n", t.PeakBusDemand, peak)
	fmt.Fprintf(out, "Total fleet:       %d\n", t.TotalFleet)
	fmt.Fprintf(out, "Buses available:   %.0f (margin %.0f)\n", t.TotalBusesAvailable, t.FleetMargin)
	fmt.Fprintf(out, "Voyages per year:  %.0f\n", t.TotalVoyagesAn)
	fmt.Fprintf(out, "Km per year:       %.0f\n", t.TotalKmAn)
	fmt.Fprintf(out, "Hours per year:    %.0f (paid %.0f)\n", t.TotalHeuresAn, t.TotalHeuresConduiteAn)
	return nil
}
