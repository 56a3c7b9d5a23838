package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/MrJamesThe3rd/caiwu/internal/amortization"
	"github.com/MrJamesThe3rd/caiwu/internal/loan"
	loanStore "github.com/MrJamesThe3rd/caiwu/internal/loan/store"
	"github.com/MrJamesThe3rd/caiwu/internal/money"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

func amortizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "amortize",
		Short: "Print a loan repayment schedule",
		Long: `Print the month-by-month split of a fixed repayment into principal and
interest. Either pass the terms directly:

  caiwuctl amortize --principal 100000 --rate 6 --payment 3000

or load them from a stored loan record:

  caiwuctl amortize --loan 3f0c...`,
		RunE: runAmortize,
	}

	cmd.Flags().String("principal", "", "Amount borrowed")
	cmd.Flags().String("rate", "0", "Annual interest rate in percent")
	cmd.Flags().String("payment", "", "Fixed monthly payment")
	cmd.Flags().String("loan", "", "Loan record ID to read the terms from")
	cmd.Flags().Int("periods", amortization.PreviewPeriods, "Number of periods to print (0 for all)")

	cmd.MarkFlagsMutuallyExclusive("loan", "principal")
	cmd.MarkFlagsMutuallyExclusive("loan", "payment")

	return cmd
}

func runAmortize(cmd *cobra.Command, _ []string) error {
	periods, _ := cmd.Flags().GetInt("periods")
	if periods < 0 {
		return fmt.Errorf("--periods must not be negative")
	}

	if periods == 0 {
		periods = amortization.MaxPeriods
	}

	if id, _ := cmd.Flags().GetString("loan"); id != "" {
		return amortizeLoan(cmd, id, periods)
	}

	principal, err := decimalFlag(cmd, "principal")
	if err != nil {
		return err
	}

	rate, err := decimalFlag(cmd, "rate")
	if err != nil {
		return err
	}

	payment, err := decimalFlag(cmd, "payment")
	if err != nil {
		return err
	}

	sched, err := amortization.Generate(principal, rate, payment)
	if err != nil {
		return err
	}

	renderSchedule(cmd.OutOrStdout(), sched.Head(periods), len(sched.Periods), sched.TotalInterest, sched.TotalPaid, sched.Truncated)

	return nil
}

func amortizeLoan(cmd *cobra.Command, rawID string, periods int) error {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return fmt.Errorf("invalid --loan id: %w", err)
	}

	db, err := openDB(cmd.Context())
	if err != nil {
		return err
	}
	defer db.Close()

	proj, err := loan.NewService(loanStore.New(db)).Schedule(cmd.Context(), id, periods)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s  %s%% (%s)\n\n", proj.Record.Name, proj.Record.AnnualInterestRate, proj.RiskLevel)
	renderSchedule(out, proj.Periods, proj.TotalPeriods, proj.TotalInterest, proj.TotalPaid, proj.Truncated)

	return nil
}

func decimalFlag(cmd *cobra.Command, name string) (decimal.Decimal, error) {
	s, _ := cmd.Flags().GetString(name)
	if s == "" {
		return decimal.Zero, fmt.Errorf("--%s is required", name)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid --%s %q", name, s)
	}

	return d, nil
}

func renderSchedule(w io.Writer, rows []amortization.Period, total int, interest, paid decimal.Decimal, truncated bool) {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		Headers("期数", "还款额", "本金", "利息", "剩余本金").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}

			return cellStyle.Align(lipgloss.Right)
		})

	for _, p := range rows {
		t.Row(
			strconv.Itoa(p.Number),
			money.Format(p.Payment),
			money.Format(p.Principal),
			money.Format(p.Interest),
			money.Format(p.RemainingBalance),
		)
	}

	fmt.Fprintln(w, t.Render())

	if len(rows) < total {
		fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("showing %d of %d periods", len(rows), total)))
	}

	fmt.Fprintf(w, "total interest: %s\ntotal paid:     %s\n", money.Format(interest), money.Format(paid))

	if truncated {
		fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("balance still owed after %d periods", amortization.MaxPeriods)))
	}
}
