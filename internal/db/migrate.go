/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"fmt"

	"github.com/friendsincode/signboard/internal/models"
	"gorm.io/gorm"
)

// Migrate applies database schema migrations using GORM auto-migrate.
func Migrate(database *gorm.DB) error {
	if err := database.AutoMigrate(
		&models.User{},
		&models.Sequence{},
		&models.SequenceUser{},
		&models.Format{},
		&models.AuditLog{},
	); err != nil {
		return err
	}

	if err := normalizeUserEmails(database); err != nil {
		return err
	}
	if err := clampPermissions(database); err != nil {
		return err
	}

	return nil
}

// normalizeUserEmails lowercases stored emails so login lookups match.
func normalizeUserEmails(database *gorm.DB) error {
	if err := database.Exec("UPDATE users SET email = LOWER(TRIM(email)) WHERE email <> LOWER(TRIM(email))").Error; err != nil {
		return fmt.Errorf("normalize user emails: %w", err)
	}
	return nil
}

// clampPermissions moves rows imported with out-of-range levels back to known values.
func clampPermissions(database *gorm.DB) error {
	if err := database.Exec("UPDATE users SET permission_user = ? WHERE permission_user > ?", models.PermissionAdmin, models.PermissionAdmin).Error; err != nil {
		return fmt.Errorf("clamp permissions: %w", err)
	}
	if err := database.Exec("UPDATE users SET permission_user = ? WHERE permission_user < ?", models.PermissionNone, models.PermissionNone).Error; err != nil {
		return fmt.Errorf("clamp permissions: %w", err)
	}
	return nil
}
