// Package migrate creates or upgrades the database schema.
package migrate

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/regenpgc/trialbase/internal/app"
	"github.com/regenpgc/trialbase/internal/conf"
)

// Command creates the migrate command. Opening the application migrates,
// so the command only reports where.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.Open(cmd.Context(), settings)
			if err != nil {
				return err
			}
			defer a.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "schema up to date (%s, %s)\n", a.Manager.Driver(), a.Manager.Path())
			return nil
		},
	}
}
