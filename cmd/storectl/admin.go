package main

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/database"
	"storefront/internal/store"
)

const minPasswordLength = 8

func adminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage admin accounts",
	}
	cmd.AddCommand(adminCreateCmd())
	return cmd
}

func adminCreateCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an admin or reset its password",
		RunE: func(cmd *cobra.Command, args []string) error {
			email = strings.ToLower(strings.TrimSpace(email))
			if err := validateAdminInput(email, password); err != nil {
				return err
			}

			hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()

			client, db, err := openDB(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = client.Disconnect(context.Background()) }()

			if err := database.EnsureAdminIndexes(db); err != nil {
				return err
			}
			if err := store.NewAdminStore(db).Upsert(ctx, email, string(hash)); err != nil {
				return fmt.Errorf("save admin: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "admin %s saved\n", email)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Admin email (required)")
	cmd.Flags().StringVar(&password, "password", "", "Admin password (required)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func validateAdminInput(email, password string) error {
	if _, err := mail.ParseAddress(email); err != nil || !strings.Contains(email, "@") {
		return fmt.Errorf("invalid email %q", email)
	}
	if len(password) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	return nil
}
