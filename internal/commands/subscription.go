package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/deliverykit/calsync/internal/api/subsproviders/subsprovider"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var subscriptionCmd = &cobra.Command{
	Use:   "subscription",
	Short: "Inspect provider subscriptions",
}

var subscriptionGetCmd = &cobra.Command{
	Use:   "get <subscription-id>",
	Short: "Print a provider subscription as json",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		sub, err := a.GetSubscription(context.Background(), args[0])
		if err != nil {
			if callErr, ok := errors.Cause(err).(*subsprovider.CallError); ok && callErr.IsNotFound() {
				return fmt.Errorf("no subscription %s in provider", args[0])
			}
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(sub)
	},
}

func init() {
	subscriptionCmd.AddCommand(subscriptionGetCmd)
	RootCmd.AddCommand(subscriptionCmd)
}
