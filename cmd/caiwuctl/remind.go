package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/MrJamesThe3rd/caiwu/internal/money"
	"github.com/MrJamesThe3rd/caiwu/internal/notification"
	notificationStore "github.com/MrJamesThe3rd/caiwu/internal/notification/store"
	"github.com/MrJamesThe3rd/caiwu/internal/payment"
	paymentStore "github.com/MrJamesThe3rd/caiwu/internal/payment/store"
)

func remindCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remind",
		Short: "Run one reminder pass now",
		Long: `Mark overdue payment items and record due-soon and overdue reminders,
exactly as the scheduled job in the API server does. Reminders already
recorded for the same item and due date are not duplicated.`,
		RunE: runRemind,
	}

	cmd.Flags().String("at", "", "Evaluate as of this date (YYYY-MM-DD) instead of now")

	return cmd
}

func runRemind(cmd *cobra.Command, _ []string) error {
	now := time.Now()

	if at, _ := cmd.Flags().GetString("at"); at != "" {
		t, err := time.ParseInLocation(time.DateOnly, at, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --at date: %w", err)
		}

		now = t
	}

	db, err := openDB(cmd.Context())
	if err != nil {
		return err
	}
	defer db.Close()

	svc := notification.NewService(notificationStore.New(db), payment.NewService(paymentStore.New(db)))

	run, err := svc.GenerateReminders(cmd.Context(), now)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "marked overdue:  %d\n", run.MarkedOverdue)
	fmt.Fprintf(out, "items scanned:   %d\n", run.Scanned)
	fmt.Fprintf(out, "reminders added: %d\n", run.Created)
	fmt.Fprintf(out, "outstanding:     ¥%s\n", money.Format(run.Outstanding))

	return nil
}
