package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Jarrodhale08/petpal-app/internal/adapters/notify/local"
	"github.com/Jarrodhale08/petpal-app/internal/app"
	"github.com/Jarrodhale08/petpal-app/internal/router"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := configFromEnv()

		a, err := app.New(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := a.Init(ctx); err != nil {
			return err
		}

		// Con persistencia local el scheduler corre su ticker de entrega.
		if s, ok := a.Scheduler.(*local.Scheduler); ok {
			go s.Run(ctx)
		}

		addr := fmt.Sprintf("127.0.0.1:%d", envInt("PETPAL_PORT", 8080))
		srv := &http.Server{
			Addr:    addr,
			Handler: router.New(a, cfg.OwnerUserID),
			BaseContext: func(_ net.Listener) context.Context {
				return ctx
			},
		}

		errCh := make(chan error, 1)
		go func() {
			fmt.Fprintf(os.Stdout, "petpal listening on %s\n", addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case <-ctx.Done():
			fmt.Fprintln(os.Stdout, "shutting down...")
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one reconciliation pass against the backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.New(configFromEnv())
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		if err := a.Init(ctx); err != nil {
			return err
		}

		report, err := a.Sync(ctx)
		if err != nil {
			return err
		}

		if report.RemoteCalls() == 0 {
			fmt.Fprintln(os.Stdout, "nothing to sync")
			return nil
		}
		for kind, st := range report.Stats {
			fmt.Fprintf(os.Stdout, "%-14s created=%d patched=%d removed=%d deferred=%d failed=%d dropped=%d\n",
				kind, st.Created, st.Patched, st.Removed, st.Deferred, st.Failed, st.Dropped)
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pending changes and last sync time per store",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.New(configFromEnv())
		if err != nil {
			return err
		}
		defer a.Close()

		// Solo estado local: status no toca red.
		if err := a.InitLocal(cmd.Context()); err != nil {
			return err
		}

		printStatus("pets", a.Pets.PendingCount(), a.Pets.LastSyncedAt())
		printStatus("appointments", a.Appointments.PendingCount(), a.Appointments.LastSyncedAt())
		printStatus("reminders", a.Reminders.PendingCount(), a.Reminders.LastSyncedAt())
		return nil
	},
}

func printStatus(kind string, pending int, lastSync *time.Time) {
	last := "never"
	if lastSync != nil {
		last = lastSync.Format(time.RFC3339)
	}
	fmt.Fprintf(os.Stdout, "%-14s pending=%d last_synced=%s\n", kind, pending, last)
}
