package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/civicfix/civicfix-server/internal/auth"
	"github.com/civicfix/civicfix-server/internal/config"
	"github.com/civicfix/civicfix-server/internal/observability"
	"github.com/civicfix/civicfix-server/internal/persistence"
	"github.com/civicfix/civicfix-server/internal/repository"
	"github.com/civicfix/civicfix-server/internal/service"
)

const commandTimeout = 2 * time.Minute

// withStore loads config, opens the store and hands both to fn.
func withStore(migrate bool, fn func(ctx context.Context, cfg *config.Config, store repository.Store) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logger, cfg.App.Env)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	store, err := persistence.OpenStore(ctx, cfg, logger, migrate)
	if err != nil {
		logger.Error("open store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
		return err
	}
	defer store.Close(context.Background()) //nolint:errcheck
	return fn(ctx, cfg, store)
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply Postgres migrations or ensure MongoDB indexes",
		Long: `Prepare the store selected by STORE_DRIVER.

postgres: applies every file in migrations/ (idempotent).
mongo:    creates the unique and listing indexes.
memory:   nothing to do.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(true, func(_ context.Context, cfg *config.Config, _ repository.Store) error {
				fmt.Fprintf(cmd.OutOrStdout(), "%s store ready\n", cfg.Store.Driver)
				return nil
			})
		},
	}
}

func promoteCmd() *cobra.Command {
	var email, role string
	cmd := &cobra.Command{
		Use:   "promote",
		Short: "Set the role of a registered account",
		Example: `  civicfixctl promote --email admin@city.gov --role admin
  civicfixctl promote --email crew@city.gov --role staff`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(false, func(ctx context.Context, cfg *config.Config, store repository.Store) error {
				user, err := service.NewUserService(*cfg, store).PromoteByEmail(ctx, email, role)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", user.Email, user.Role)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email of the account")
	cmd.Flags().StringVar(&role, "role", "", "citizen, staff or admin")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}

func signWebhookCmd() *cobra.Command {
	var file, secret string
	cmd := &cobra.Command{
		Use:   "sign-webhook",
		Short: "Print the X-Payment-Signature value for a webhook body",
		Long: `Compute hex(HMAC-SHA256(secret, body)) for a payment webhook body.
The secret defaults to PAYMENT_WEBHOOK_SECRET. Use --file - to read stdin.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if secret == "" {
				secret = os.Getenv("PAYMENT_WEBHOOK_SECRET")
			}
			if secret == "" {
				return fmt.Errorf("no secret: pass --secret or set PAYMENT_WEBHOOK_SECRET")
			}
			body, err := readBody(cmd, file)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), auth.SignPayload([]byte(secret), body))
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "path to the JSON body, or - for stdin")
	cmd.Flags().StringVar(&secret, "secret", "", "webhook secret")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func readBody(cmd *cobra.Command, file string) ([]byte, error) {
	if file == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	body, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}
