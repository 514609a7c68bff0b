package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/attunefin/attune-go/api"
)

// TransactionsCmd groups transaction subcommands.
var TransactionsCmd = &cobra.Command{
	Use:     "transactions",
	Aliases: []string{"tx"},
	Short:   "Browse and categorize transactions",
}

var transactionsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List transactions",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		client, err := newAPIClient(cfg)
		if err != nil {
			return err
		}

		category, _ := cmd.Flags().GetString("category")
		from, _ := cmd.Flags().GetString("from")
		to, _ := cmd.Flags().GetString("to")
		limit, _ := cmd.Flags().GetInt("limit")

		list, err := client.ListTransactions(cmd.Context(), api.ListTransactionsParams{
			Category: category,
			From:     from,
			To:       to,
			PageSize: limit,
		})
		if err != nil {
			return err
		}

		if len(list.Transactions) == 0 {
			pterm.Info.Println("No transactions found")
			return nil
		}

		rows := pterm.TableData{{"Date", "Description", "Amount", "Category"}}
		for _, tx := range list.Transactions {
			category := tx.Category
			if category == "" {
				category = pterm.Gray("uncategorized")
			}
			rows = append(rows, []string{
				tx.Date,
				tx.Description,
				fmt.Sprintf("%.2f %s", tx.Amount, tx.Currency),
				category,
			})
		}
		if err := pterm.DefaultTable.WithHasHeader().WithData(rows).Render(); err != nil {
			return err
		}
		pterm.Printf("%d of %d transactions\n", len(list.Transactions), list.Total)
		return nil
	},
}

var transactionsCategorizeCmd = &cobra.Command{
	Use:   "categorize <transaction-id> <category>",
	Short: "Assign a category to a transaction",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		client, err := newAPIClient(cfg)
		if err != nil {
			return err
		}

		tx, err := client.Recategorize(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		pterm.Success.Printf("%s is now %s\n", tx.Description, tx.Category)
		return nil
	},
}

func init() {
	transactionsLsCmd.Flags().String("category", "", "Filter by category")
	transactionsLsCmd.Flags().String("from", "", "Start date (YYYY-MM-DD)")
	transactionsLsCmd.Flags().String("to", "", "End date (YYYY-MM-DD)")
	transactionsLsCmd.Flags().Int("limit", 50, "Maximum transactions to list")

	TransactionsCmd.AddCommand(transactionsLsCmd)
	TransactionsCmd.AddCommand(transactionsCategorizeCmd)
}
