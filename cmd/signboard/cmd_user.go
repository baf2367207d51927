/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/friendsincode/signboard/internal/audit"
	"github.com/friendsincode/signboard/internal/auth"
	"github.com/friendsincode/signboard/internal/db"
	"github.com/friendsincode/signboard/internal/events"
	"github.com/friendsincode/signboard/internal/models"
	"github.com/friendsincode/signboard/internal/sequence"
)

var (
	userEmail      string
	userPassword   string
	userName       string
	userPermission string
	userSequences  []string
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user account",
	Long: `Create a user with a bcrypt-hashed password.

Permission levels: viewer (1), editor (2), manager (3), admin (4).

Examples:
  signboard user create --email ops@example.com --password 's3cret-pass' --permission admin
  signboard user create --email shop@example.com --password 's3cret-pass' --sequence seq-123 --sequence seq-456
`,
	RunE: runUserCreate,
}

func init() {
	userCreateCmd.Flags().StringVar(&userEmail, "email", "", "Email address (required)")
	userCreateCmd.Flags().StringVar(&userPassword, "password", "", "Password, at least 8 characters (required)")
	userCreateCmd.Flags().StringVar(&userName, "name", "", "Display name")
	userCreateCmd.Flags().StringVar(&userPermission, "permission", "viewer", "Permission level name or number")
	userCreateCmd.Flags().StringArrayVar(&userSequences, "sequence", nil, "Sequence id to grant access to (repeatable)")
	_ = userCreateCmd.MarkFlagRequired("email")
	_ = userCreateCmd.MarkFlagRequired("password")

	userCmd.AddCommand(userCreateCmd)
	rootCmd.AddCommand(userCmd)
}

func runUserCreate(cmd *cobra.Command, args []string) error {
	perm, err := models.ParsePermission(userPermission)
	if err != nil {
		return err
	}
	if err := loadConfig(); err != nil {
		return err
	}

	database, err := initDatabase()
	if err != nil {
		return err
	}
	defer db.Close(database)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	user, err := auth.CreateUser(ctx, database, userEmail, userPassword, userName, perm)
	if err != nil {
		return err
	}

	store := sequence.NewStore(database, logger)
	for _, seqID := range userSequences {
		if err := store.Assign(ctx, seqID, user.ID); err != nil {
			return fmt.Errorf("assign %s: %w", seqID, err)
		}
	}

	auditSvc := audit.NewService(database, events.NewBus(), logger)
	if err := auditSvc.Log(ctx, &models.AuditLog{
		UserID:       &user.ID,
		UserEmail:    user.Email,
		Action:       models.AuditActionUserCreate,
		ResourceType: "user",
		ResourceID:   user.ID,
		UserAgent:    "signboard-cli",
		Details: map[string]any{
			"permission_user": int(perm),
			"sequences":       userSequences,
		},
	}); err != nil {
		logger.Warn().Err(err).Msg("failed to record audit entry")
	}

	fmt.Fprintf(cmd.OutOrStdout(), "created user %s (%s, %s)\n", user.ID, user.Email, perm)
	return nil
}
