package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/star/catsim/internal/api"
	"github.com/star/catsim/internal/config"
	"github.com/star/catsim/internal/photometry"
	"github.com/star/catsim/internal/variability"
)

// app is the state shared by every subcommand once flags are parsed.
type app struct {
	configFile string
	logLevel   string

	logger *slog.Logger
	cfg    config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:           "catsim",
		Short:         "Simulate the photometric variability of catalog objects",
		Long:          "catsim evaluates variability models (RR Lyrae, Cepheids, eclipsing binaries, microlensing, AM CVn, M dwarf flares, AGN) for catalog objects and reports magnitude offsets in the LSST ugrizy bands.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.ErrOrStderr())
		},
	}
	rootCmd.PersistentFlags().StringVar(&a.configFile, "config", "", "config file (toml or yaml)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "info", "log level: debug, info, warn, error")

	rootCmd.AddCommand(
		newApplyCmd(a),
		newModelsCmd(a),
		newColumnsCmd(a),
		newServeCmd(a),
	)
	return rootCmd
}

func (a *app) setup(logOut io.Writer) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(a.logLevel))); err != nil {
		return fmt.Errorf("invalid --log-level %q", a.logLevel)
	}
	a.logger = slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load(viper.New(), a.configFile, a.logger)
	if err != nil {
		a.logger.Error("invalid configuration", "error", err)
		return err
	}
	a.cfg = cfg
	return nil
}

// resources builds the shared model resources from the configuration.
func (a *app) resources() (*variability.Resources, error) {
	pp := photometry.DefaultPhotParams()
	res := &variability.Resources{
		Curves: variability.NewCurveCache(a.cfg.DataDir, a.cfg.LightCurveCache),
		AGN:    variability.NewAGNCache(a.cfg.AGNCacheMax, a.logger),
		Flares: variability.FlareOptions{
			ArchivePath: a.cfg.MLTArchive,
			PhotParams:  &pp,
			Cache:       variability.NewFlareCache(a.logger),
		},
	}
	if name := a.cfg.LightCurveInterp; name != "" {
		f, err := variability.InterpByName(name)
		if err != nil {
			return nil, err
		}
		res.Interp = f
	}
	if a.cfg.BandpassDir != "" {
		bp, err := photometry.LoadBandpasses(a.cfg.BandpassDir)
		if err != nil {
			return nil, fmt.Errorf("loading bandpasses: %w", err)
		}
		res.Flares.Bandpasses = bp
		a.logger.Info("loaded bandpasses", "dir", a.cfg.BandpassDir, "count", len(bp))
	}
	return res, nil
}

func (a *app) evaluator() (*api.Evaluator, error) {
	res, err := a.resources()
	if err != nil {
		return nil, err
	}
	return api.NewEvaluator(res, a.logger, variability.WithObservationMJD(a.cfg.ObservationMJD))
}

func newModelsCmd(a *app) *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the variability models a catalog kind accepts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ev, err := a.evaluator()
			if err != nil {
				return err
			}
			names, err := ev.Models(kind)
			if err != nil {
				return err
			}
			for _, n := range names {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), n); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "catalog", "stars", "catalog kind: "+strings.Join(variability.CatalogKinds(), ", "))
	return cmd
}

func newColumnsCmd(a *app) *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "columns",
		Short: "List the catalog columns a catalog kind reads",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ev, err := a.evaluator()
			if err != nil {
				return err
			}
			cols, err := ev.Columns(kind)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.Join(cols, "\n"))
			return err
		},
	}
	cmd.Flags().StringVar(&kind, "catalog", "stars", "catalog kind: "+strings.Join(variability.CatalogKinds(), ", "))
	return cmd
}
