package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// AnalyticsCmd prints the monthly analytics roll-up.
var AnalyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Show the monthly spending roll-up",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		client, err := newAPIClient(cfg)
		if err != nil {
			return err
		}

		month, _ := cmd.Flags().GetString("month")
		summary, err := client.GetAnalyticsSummary(cmd.Context(), month)
		if err != nil {
			return err
		}

		pterm.DefaultSection.Printf("Analytics for %s", summary.Month)
		pterm.Printf("Income:    %s\n", pterm.Green(fmt.Sprintf("%.2f", summary.TotalIncome)))
		pterm.Printf("Spending:  %s\n", pterm.Red(fmt.Sprintf("%.2f", summary.TotalSpending)))
		pterm.Printf("Cashflow:  %.2f over %d transactions\n", summary.NetCashflow, summary.TransactionCount)

		if len(summary.TopCategories) > 0 {
			rows := pterm.TableData{{"Category", "Spent"}}
			for _, cat := range summary.TopCategories {
				rows = append(rows, []string{cat.Category, fmt.Sprintf("%.2f", cat.Spent)})
			}
			if err := pterm.DefaultTable.WithHasHeader().WithData(rows).Render(); err != nil {
				return err
			}
		}

		showBudget, _ := cmd.Flags().GetBool("budget")
		if !showBudget {
			return nil
		}

		budget, err := client.GetBudgetAnalysis(cmd.Context(), summary.Month)
		if err != nil {
			return err
		}
		rows := pterm.TableData{{"Category", "Budgeted", "Spent", "Status"}}
		for _, line := range budget.Categories {
			status := line.Status
			if status == "over" {
				status = pterm.Red(status)
			}
			rows = append(rows, []string{
				line.Category,
				fmt.Sprintf("%.2f", line.Budgeted),
				fmt.Sprintf("%.2f", line.Spent),
				status,
			})
		}
		return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
	},
}

func init() {
	AnalyticsCmd.Flags().String("month", "", "Month to report on (YYYY-MM, default current)")
	AnalyticsCmd.Flags().Bool("budget", false, "Include per-category budget analysis")
}
