package cmd

import (
	"context"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/trestleworks/planledger/internal/core/domain"
)

var verifyAccountID string

// verifyCmd represents the verify command.
var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Recompute and print account balances",
	Long: `Verify recomputes account balances through the balance engine and
prints them, so a loaded store can be checked against the source system.

Every account is verified unless --account narrows it to one.

Example:
  ledger-loader verify
  ledger-loader verify --account acct-1`,
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().StringVar(&verifyAccountID, "account", "", "Only verify this account ID")
}

func runVerify(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	repos, container, cleanup, err := openLedger(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	var accounts []domain.Account
	if verifyAccountID != "" {
		account, err := repos.AccountRepo.FindAccountByID(ctx, verifyAccountID)
		if err != nil {
			return fmt.Errorf("failed to find account %s: %w", verifyAccountID, err)
		}
		accounts = []domain.Account{*account}
	} else {
		accounts, err = repos.AccountRepo.ListAccounts(ctx)
		if err != nil {
			return fmt.Errorf("failed to list accounts: %w", err)
		}
	}

	if len(accounts) == 0 {
		pterm.Info.Println("No accounts in store")
		return nil
	}

	tableData := pterm.TableData{{"Account", "Currency", "Own", "Min", "Max"}}
	for _, account := range accounts {
		balance, err := container.Balance.GetBalanceByID(ctx, account.AccountID, domain.LatestClock())
		if err != nil {
			return fmt.Errorf("failed to compute balance for %s: %w", account.AccountID, err)
		}
		tableData = append(tableData, []string{
			balance.AccountID,
			balance.CurrencyCode,
			balance.OwnAmount.String(),
			balance.MinAvailableAmount.String(),
			balance.MaxAvailableAmount.String(),
		})
	}

	pterm.DefaultTable.WithHasHeader().WithData(tableData).Render()
	pterm.Success.Printf("Verified %d accounts\n", len(accounts))
	return nil
}
