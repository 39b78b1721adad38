package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	ppostgres "github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/platform/postgres"
)

func migrateCmd(opts *globalOptions) *cobra.Command {
	var databaseURL string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the Postgres schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			url := strings.TrimSpace(databaseURL)
			if url == "" {
				url = strings.TrimSpace(os.Getenv("STOREFRONT_POSTGRES_URL"))
			}
			if url == "" {
				return errors.New("--database-url or STOREFRONT_POSTGRES_URL is required")
			}
			version, err := ppostgres.Migrate(url)
			if err != nil {
				return err
			}
			opts.logger.Info("migrations applied", zap.Uint("version", version))
			fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d\n", version)
			return nil
		},
	}
	cmd.Flags().StringVar(&databaseURL, "database-url", "", "Postgres connection URL")
	return cmd
}
