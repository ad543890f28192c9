package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/trestleworks/planledger/internal/apperrors"
	"github.com/trestleworks/planledger/internal/core/domain"
	"github.com/trestleworks/planledger/internal/core/services"
	"github.com/trestleworks/planledger/internal/dto"
	"github.com/trestleworks/planledger/internal/utils/validation"
)

var (
	accountsFile string
	recordsFile  string
)

// loadCmd represents the load command.
var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Replay exported ledger history into the store",
	Long: `Load replays flattened historical records through the live engine.

This command:
1. Seeds accounts from the optional --accounts JSON file
2. Walks --records rows in order, grouping consecutive hold rows that
   share plan and batch into single engine Hold calls
3. Applies commit and rollback markers through the plan state machine
4. Prints a summary with the final replica clock

Replayed traffic follows every live rule: duplicate batches no-op and rows
against terminal plans are ignored.

Example:
  ledger-loader load --accounts accounts.json --records records.json`,
	RunE: runLoad,
}

func init() {
	loadCmd.Flags().StringVar(&accountsFile, "accounts", "", "Accounts JSON file seeded before replay (optional)")
	loadCmd.Flags().StringVar(&recordsFile, "records", "", "Flattened history JSON file (required)")

	loadCmd.MarkFlagRequired("records")
}

func runLoad(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	_, container, cleanup, err := openLedger(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	accountsSeeded := 0

	// Seed accounts first so replayed postings meet their currencies.
	if accountsFile != "" {
		accountRecords, err := readAccountsFile(accountsFile)
		if err != nil {
			return err
		}

		spinner, _ := pterm.DefaultSpinner.Start(fmt.Sprintf("Seeding %d accounts", len(accountRecords)))

		seeder := services.NewLoaderService(container.Plan, container.Account, container.Clocks)
		seeded, err := seeder.SeedAccounts(ctx, toDomainAccounts(accountRecords))
		if err != nil {
			spinner.Fail(err.Error())
			return err
		}
		spinner.Success(fmt.Sprintf("Seeded %d accounts", seeded))
		accountsSeeded = seeded
	}

	records, err := readRecordsFile(recordsFile)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		pterm.Info.Println("No records to replay")
		return nil
	}

	bar, _ := pterm.DefaultProgressbar.WithTotal(len(records)).WithTitle("Replaying records").Start()

	loader := services.NewLoaderService(container.Plan, container.Account, container.Clocks,
		services.WithLoaderProgress(func(processed, total int) {
			bar.Increment()
		}),
	)

	summary, err := loader.Replay(ctx, records)
	bar.Stop()
	if err != nil {
		printPostingIssues(err)
		return fmt.Errorf("replay failed: %w", err)
	}

	summary.AccountsSeeded = accountsSeeded
	printLoadSummary(summary)
	pterm.Success.Println("Load completed successfully!")
	return nil
}

func toDomainAccounts(records []dto.LoadAccountRecord) []domain.Account {
	accounts := make([]domain.Account, 0, len(records))
	for _, record := range records {
		accounts = append(accounts, record.ToDomainAccount())
	}
	return accounts
}

func readAccountsFile(path string) ([]dto.LoadAccountRecord, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read accounts file: %w", err)
	}

	var records []dto.LoadAccountRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decode accounts file: %w", err)
	}

	validate, err := validation.Validator()
	if err != nil {
		return nil, err
	}
	for i, record := range records {
		if err := validate.Struct(record); err != nil {
			return nil, fmt.Errorf("invalid account record %d: %w", i, err)
		}
	}
	return records, nil
}

func readRecordsFile(path string) ([]dto.LoadRecord, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read records file: %w", err)
	}

	var records []dto.LoadRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decode records file: %w", err)
	}
	return records, nil
}

// printPostingIssues renders the per-posting issue table when the replay
// failed on batch validation.
func printPostingIssues(err error) {
	var ipp *apperrors.InvalidPostingParamsError
	if !errors.As(err, &ipp) || len(ipp.Issues) == 0 {
		return
	}

	tableData := pterm.TableData{{"Batch", "Posting", "Field", "Reason"}}
	for _, issue := range ipp.Issues {
		tableData = append(tableData, []string{
			strconv.FormatInt(issue.BatchID, 10),
			strconv.Itoa(issue.Index),
			issue.Field,
			issue.Reason,
		})
	}
	pterm.DefaultTable.WithHasHeader().WithData(tableData).Render()
}

func printLoadSummary(summary *dto.LoadSummary) {
	tableData := pterm.TableData{
		{pterm.Blue("Accounts seeded"), strconv.Itoa(summary.AccountsSeeded)},
		{pterm.Blue("Plans touched"), strconv.Itoa(summary.PlansTouched)},
		{pterm.Blue("Batches held"), strconv.Itoa(summary.BatchesHeld)},
		{pterm.Blue("Postings loaded"), strconv.Itoa(summary.PostingsLoaded)},
		{pterm.Blue("Plans committed"), strconv.Itoa(summary.PlansCommitted)},
		{pterm.Blue("Plans rolled back"), strconv.Itoa(summary.PlansRolledBack)},
		{pterm.Blue("Final clock"), summary.Clock.String()},
	}
	pterm.DefaultTable.WithData(tableData).Render()
}
