package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	migrateAPIKey  string
	migrateShopURL string
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create provider subscriptions for all calendars that have none",
	Long: `Create provider subscriptions for all local calendars.

Calendars that already have a provider subscription are skipped, so the
command can be re-run after a partial failure. Failures are saved to the
migration_failures table and printed at the end.

Examples:
  calsync migrate --api-key $SEAL_API_KEY --shop-url myshop.myshopify.com`,
	RunE: runMigrate,
}

func init() {
	migrateCmd.Flags().StringVar(&migrateAPIKey, "api-key", "", "Provider API key, defaults to PROVIDER_API_KEY")
	migrateCmd.Flags().StringVar(&migrateShopURL, "shop-url", "", "Shop host, defaults to PROVIDER_SHOP_URL")

	RootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := a.MigrateSubscriptions(ctx, migrateAPIKey, migrateShopURL)
	if report != nil {
		fmt.Fprintln(cmd.OutOrStdout(), report.Summary())
	}
	if err != nil {
		return errors.Wrap(err, "migration failed")
	}

	if len(report.Failures) != 0 {
		return fmt.Errorf("%d of %d calendars failed to migrate", len(report.Failures), report.Exported)
	}
	return nil
}
