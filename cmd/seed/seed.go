// Package seed loads the reference data and the keystone trial.
package seed

import (
	"fmt"
	"math/rand/v2"

	"github.com/spf13/cobra"

	"github.com/regenpgc/trialbase/internal/app"
	"github.com/regenpgc/trialbase/internal/conf"
	"github.com/regenpgc/trialbase/internal/logger"
	seedpkg "github.com/regenpgc/trialbase/internal/seed"
)

// Command creates the seed command.
func Command(settings *conf.Settings) *cobra.Command {
	var (
		plots string
		sops  string
		seedN uint64
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Populate the database with reference data",
		Long: "Create states, organizations, people, projects, locations, trials, treatments, " +
			"the keystone plot layout and the SOP documents. Tables that already hold rows are skipped.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("plots") {
				settings.Seed.PlotList = plots
			}
			if cmd.Flags().Changed("sops") {
				settings.Seed.SOPList = sops
			}
			if cmd.Flags().Changed("seed") {
				settings.Seed.RandomSeed = seedN
			}

			a, err := app.Open(cmd.Context(), settings)
			if err != nil {
				return err
			}
			defer a.Close()

			log := logger.Global().Module("seed")
			report, err := seedpkg.Run(cmd.Context(), a.Trials, seedpkg.Options{
				PlotList: settings.Seed.PlotList,
				SOPList:  settings.Seed.SOPList,
				Rand:     rand.New(rand.NewPCG(settings.Seed.RandomSeed, settings.Seed.RandomSeed)),
				Logger:   log,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(),
				"seeded %d rows: %d organizations, %d people, %d trials, %d plots, %d SOPs (%d already present)\n",
				report.Total(), report.Organizations, report.People, report.Trials,
				report.Plots, report.SOPs, report.SOPsSkipped)
			return nil
		},
	}

	cmd.Flags().StringVar(&plots, "plots", "", "Plot list file (.csv or .xlsx), default is the embedded keystone layout")
	cmd.Flags().StringVar(&sops, "sops", "", "SOP list file (.csv or .xlsx), default is the embedded list")
	cmd.Flags().Uint64Var(&seedN, "seed", 1, "Random seed for generated names and trials")

	return cmd
}
