package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Jarrodhale08/petpal-app/internal/app"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:           "petpal",
	Short:         "Offline-first pet records: local API, sync and reminders",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.AddCommand(serveCmd, syncCmd, statusCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// configFromEnv arma la config de la app desde env vars. Sin backend
// configurado la app corre contra el gateway en memoria (modo demo).
func configFromEnv() app.Config {
	return app.Config{
		OwnerUserID: envOr("PETPAL_OWNER_ID", "local-user"),
		DataDir:     os.Getenv("PETPAL_DATA_DIR"),

		PostgresDSN:    os.Getenv("PETPAL_DB_DSN"),
		GatewayURL:     os.Getenv("PETPAL_GATEWAY_URL"),
		GatewayAPIKey:  os.Getenv("PETPAL_GATEWAY_API_KEY"),
		GatewayToken:   os.Getenv("PETPAL_GATEWAY_TOKEN"),
		TenantID:       os.Getenv("PETPAL_TENANT_ID"),
		GatewayTimeout: envDuration("PETPAL_GATEWAY_TIMEOUT", 10*time.Second),

		VAPIDSubject:    os.Getenv("VAPID_SUBJECT"),
		VAPIDPublicKey:  os.Getenv("VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("VAPID_PRIVATE_KEY"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
