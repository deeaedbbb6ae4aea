// Package importdata loads plot layouts and SOP lists from CSV or XLSX files.
package importdata

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/regenpgc/trialbase/internal/app"
	"github.com/regenpgc/trialbase/internal/conf"
	"github.com/regenpgc/trialbase/internal/datastore/entities"
	"github.com/regenpgc/trialbase/internal/datastore/repository"
	"github.com/regenpgc/trialbase/internal/errors"
	"github.com/regenpgc/trialbase/internal/fieldtrial"
	"github.com/regenpgc/trialbase/internal/importer"
	"github.com/regenpgc/trialbase/internal/logger"
)

// Command creates the import command with its plots and sops subcommands.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import plot layouts or SOP documents",
		Long: "Import rows from .csv or .xlsx files. File arguments are glob patterns " +
			"(doublestar syntax, e.g. 'layouts/**/*.{csv,xlsx}'). Each file is imported in " +
			"its own transaction.",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "plots <trial> <pattern...>",
			Short: "Import plots into a trial, given by id or name",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd, settings, func(ctx context.Context, svc *fieldtrial.Service) error {
					return Plots(ctx, svc, cmd.OutOrStdout(), args[0], args[1:])
				})
			},
		},
		&cobra.Command{
			Use:   "sops <pattern...>",
			Short: "Import SOP documents",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd, settings, func(ctx context.Context, svc *fieldtrial.Service) error {
					return SOPs(ctx, svc, cmd.OutOrStdout(), args)
				})
			},
		},
	)

	return cmd
}

func withApp(cmd *cobra.Command, settings *conf.Settings, fn func(context.Context, *fieldtrial.Service) error) error {
	a, err := app.Open(cmd.Context(), settings)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(cmd.Context(), a.Trials)
}

// Plots imports every file matched by patterns into the trial with the given
// id or name. It stops at the first failing file; earlier files stay
// imported.
func Plots(ctx context.Context, svc *fieldtrial.Service, out io.Writer, trial string, patterns []string) error {
	t, err := findTrial(ctx, svc, trial)
	if err != nil {
		return err
	}
	files, err := importer.ExpandPatterns(patterns)
	if err != nil {
		return err
	}

	log := logger.Global().Module("import")
	total := 0
	for _, file := range files {
		rows, err := importer.ReadPlotsFile(file)
		if err != nil {
			return err
		}
		n, err := importer.ImportPlots(ctx, svc, t.ID, rows)
		if err != nil {
			return errors.New(err).
				Component("import").
				FileContext(file, 0).
				Context(errors.ContextOperation, "import_plots").
				Build()
		}
		log.Info("plots imported", logger.String("file", file), logger.String("trial", t.Name), logger.Int("plots", n))
		fmt.Fprintf(out, "%s: %d plots\n", file, n)
		total += n
	}
	fmt.Fprintf(out, "imported %d plots into %s from %d files\n", total, t.Name, len(files))
	return nil
}

// SOPs imports every file matched by patterns. Documents whose label and
// version already exist are skipped.
func SOPs(ctx context.Context, svc *fieldtrial.Service, out io.Writer, patterns []string) error {
	files, err := importer.ExpandPatterns(patterns)
	if err != nil {
		return err
	}

	created, skipped := 0, 0
	for _, file := range files {
		rows, err := importer.ReadSOPsFile(file)
		if err != nil {
			return err
		}
		c, s, err := importer.ImportSOPs(ctx, svc, rows)
		if err != nil {
			return errors.New(err).
				Component("import").
				FileContext(file, 0).
				Context(errors.ContextOperation, "import_sops").
				Build()
		}
		fmt.Fprintf(out, "%s: %d created, %d skipped\n", file, c, s)
		created += c
		skipped += s
	}
	fmt.Fprintf(out, "imported %d SOP documents (%d skipped) from %d files\n", created, skipped, len(files))
	return nil
}

// findTrial resolves ref as a trial id, then as a trial name.
func findTrial(ctx context.Context, svc *fieldtrial.Service, ref string) (*entities.Trial, error) {
	t, err := svc.GetTrial(ctx, ref)
	if err == nil {
		return t, nil
	}
	if !errors.IsNotFound(err) {
		return nil, err
	}
	return repository.NewTrialRepository(svc.DB()).GetByName(ctx, ref)
}
