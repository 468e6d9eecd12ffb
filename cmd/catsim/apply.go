package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/star/catsim/internal/astrotime"
	"github.com/star/catsim/internal/catalog"
	"github.com/star/catsim/internal/photometry"
	"github.com/star/catsim/internal/variability"
)

type applyOptions struct {
	db      string
	table   string
	kind    string
	mjds    []float64
	at      []string
	outPath string
}

func newApplyCmd(a *app) *cobra.Command {
	opts := applyOptions{}
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Compute magnitude offsets for every row of a catalog table",
		Long:  "apply reads the varParamStr column (and any reddening, parallax and quiescent magnitude columns the models need) from a SQLite catalog table and writes one CSV row of ugrizy offsets per object and epoch.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if opts.outPath != "" {
				f, err := os.Create(opts.outPath)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			return a.runApply(cmd, opts, out)
		},
	}
	cmd.Flags().StringVar(&opts.db, "db", "", "SQLite catalog database")
	cmd.Flags().StringVar(&opts.table, "table", "", "catalog table")
	cmd.Flags().StringVar(&opts.kind, "catalog", "stars", "catalog kind")
	cmd.Flags().Float64SliceVar(&opts.mjds, "mjd", nil, "evaluation epoch as MJD (repeatable)")
	cmd.Flags().StringArrayVar(&opts.at, "at", nil, "evaluation epoch as an RFC3339 time (repeatable)")
	cmd.Flags().StringVarP(&opts.outPath, "output", "o", "", "write CSV to this file instead of stdout")
	_ = cmd.MarkFlagRequired("db")
	_ = cmd.MarkFlagRequired("table")
	return cmd
}

// epochs resolves --mjd and --at into MJDs. With neither the configured
// observation epoch is used.
func (o applyOptions) epochs(defaultMJD float64) ([]float64, error) {
	mjds := append([]float64(nil), o.mjds...)
	for _, s := range o.at {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, fmt.Errorf("invalid --at %q: %w", s, err)
		}
		mjds = append(mjds, astrotime.MJD(t))
	}
	if len(mjds) == 0 {
		mjds = []float64{defaultMJD}
	}
	return mjds, nil
}

// catalogColumns returns the host columns to load: the ones the models of
// kind read plus the quiescent magnitudes, limited to those the table has.
func catalogColumns(needed, available []string) []string {
	want := make(map[string]bool)
	for _, c := range needed {
		if c != variability.ParamColumn {
			want[c] = true
		}
	}
	for _, b := range photometry.Bands {
		want["quiescent_lsst_"+b] = true
	}

	var cols []string
	for _, c := range available {
		if want[c] {
			cols = append(cols, c)
		}
	}
	return cols
}

func (a *app) runApply(cmd *cobra.Command, opts applyOptions, out io.Writer) error {
	ctx := cmd.Context()

	mjds, err := opts.epochs(a.cfg.ObservationMJD)
	if err != nil {
		return err
	}
	ev, err := a.evaluator()
	if err != nil {
		return err
	}
	needed, err := ev.Columns(opts.kind)
	if err != nil {
		return err
	}

	src := catalog.NewSQLiteSource(opts.db)
	if err := src.Open(ctx); err != nil {
		return err
	}
	defer src.Close()

	available, err := src.TableColumns(ctx, opts.table)
	if err != nil {
		return err
	}
	batch, err := src.Load(ctx, opts.table, catalogColumns(needed, available))
	if err != nil {
		return err
	}
	a.logger.Info("catalog loaded", "db", opts.db, "table", opts.table, "objects", batch.Len(), "epochs", len(mjds))

	delta, err := ev.Evaluate(opts.kind, batch.Params, variability.Series(mjds...), batch)
	if err != nil {
		return err
	}
	return writeOffsetsCSV(out, batch.IDs, mjds, delta)
}

// writeOffsetsCSV writes one row per object and epoch.
func writeOffsetsCSV(w io.Writer, ids []int64, mjds []float64, delta *variability.Tensor) error {
	cw := csv.NewWriter(w)
	header := []string{"object", "mjd"}
	for _, b := range photometry.Bands {
		header = append(header, "delta_lsst_"+b)
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	row := make([]string, len(header))
	for i, id := range ids {
		for k, mjd := range mjds {
			row[0] = strconv.FormatInt(id, 10)
			row[1] = strconv.FormatFloat(mjd, 'f', -1, 64)
			for b := range photometry.Bands {
				row[2+b] = strconv.FormatFloat(delta.At(b, i, k), 'g', -1, 64)
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
