package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/caiwu/internal/auth"
	"github.com/MrJamesThe3rd/caiwu/internal/budget"
	budgetStore "github.com/MrJamesThe3rd/caiwu/internal/budget/store"
	"github.com/MrJamesThe3rd/caiwu/internal/catalog"
	catalogStore "github.com/MrJamesThe3rd/caiwu/internal/catalog/store"
	"github.com/MrJamesThe3rd/caiwu/internal/config"
	"github.com/MrJamesThe3rd/caiwu/internal/database"
	"github.com/MrJamesThe3rd/caiwu/internal/household"
	householdStore "github.com/MrJamesThe3rd/caiwu/internal/household/store"
	caiwuHttp "github.com/MrJamesThe3rd/caiwu/internal/http"
	budgetHandler "github.com/MrJamesThe3rd/caiwu/internal/http/budget"
	catalogHandler "github.com/MrJamesThe3rd/caiwu/internal/http/catalog"
	householdHandler "github.com/MrJamesThe3rd/caiwu/internal/http/household"
	loanHandler "github.com/MrJamesThe3rd/caiwu/internal/http/loan"
	notificationHandler "github.com/MrJamesThe3rd/caiwu/internal/http/notification"
	paymentHandler "github.com/MrJamesThe3rd/caiwu/internal/http/payment"
	"github.com/MrJamesThe3rd/caiwu/internal/importer"
	"github.com/MrJamesThe3rd/caiwu/internal/loan"
	loanStore "github.com/MrJamesThe3rd/caiwu/internal/loan/store"
	"github.com/MrJamesThe3rd/caiwu/internal/notification"
	notificationStore "github.com/MrJamesThe3rd/caiwu/internal/notification/store"
	"github.com/MrJamesThe3rd/caiwu/internal/payment"
	paymentStore "github.com/MrJamesThe3rd/caiwu/internal/payment/store"
	"github.com/MrJamesThe3rd/caiwu/internal/scheduler"
	"github.com/MrJamesThe3rd/caiwu/internal/upload"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := cfg.Logger(os.Stdout)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.New(ctx, cfg.ConnectionString())
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	applied, err := database.Migrate(ctx, db)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	slog.Info("migrations applied", "count", applied)

	receipts, err := upload.NewStore(cfg.Uploads.Dir, cfg.Uploads.BaseURL, cfg.Uploads.MaxSize)
	if err != nil {
		return err
	}

	var (
		paymentService      = payment.NewService(paymentStore.New(db))
		catalogService      = catalog.NewService(catalogStore.New(db))
		loanService         = loan.NewService(loanStore.New(db))
		budgetService       = budget.NewService(budgetStore.New(db))
		householdService    = household.NewService(householdStore.New(db))
		notificationService = notification.NewService(notificationStore.New(db), paymentService)
		importService       = importer.NewService(paymentService)
	)

	router := caiwuHttp.New(caiwuHttp.Handlers{
		Payment:      paymentHandler.NewHandler(paymentService, importService, receipts, cfg.Uploads.MaxSize),
		Catalog:      catalogHandler.NewHandler(catalogService),
		Loan:         loanHandler.NewHandler(loanService),
		Budget:       budgetHandler.NewHandler(budgetService),
		Household:    householdHandler.NewHandler(householdService),
		Notification: notificationHandler.NewHandler(notificationService),
	}, caiwuHttp.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		UploadsDir:     receipts.Dir(),
		UploadsURL:     cfg.Uploads.BaseURL,
		Verifier:       auth.NewVerifier(cfg.Auth.JWTSecret),
	})

	sched := scheduler.New(logger)

	if cfg.Reminder.Enabled {
		err := sched.Add("reminders", cfg.Reminder.Schedule, func(ctx context.Context) error {
			_, err := notificationService.GenerateReminders(ctx, time.Now())
			return err
		})
		if err != nil {
			return err
		}
	}

	sched.Start()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  2 * cfg.Server.Timeout,
	}

	errCh := make(chan error, 1)

	go func() {
		slog.Info("starting server", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		slog.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown", "error", err)
	}

	if err := sched.Stop(shutdownCtx); err != nil {
		slog.Error("scheduler shutdown", "error", err)
	}

	return nil
}
