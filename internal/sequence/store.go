/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package sequence persists display sequences and the users allowed to see them.
package sequence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/friendsincode/signboard/internal/campaign"
	"github.com/friendsincode/signboard/internal/models"
)

var (
	// ErrSequenceNotFound is returned when no sequence has the requested id.
	ErrSequenceNotFound = errors.New("sequence not found")

	// ErrUserNotFound is returned when assigning an unknown user.
	ErrUserNotFound = errors.New("user not found")

	// ErrSequenceExists is returned when creating a sequence whose id is taken.
	ErrSequenceExists = errors.New("sequence already exists")

	// ErrInvalidSequence is returned for a blank id or name.
	ErrInvalidSequence = errors.New("sequence id and name are required")
)

// Store is the gorm-backed sequence repository.
type Store struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewStore creates a sequence store.
func NewStore(db *gorm.DB, logger zerolog.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger.With().Str("component", "sequence").Logger(),
	}
}

// ListAccessibleSlots returns the sequences userID is a member of, ordered by name.
func (s *Store) ListAccessibleSlots(ctx context.Context, userID string) ([]campaign.Slot, error) {
	var rows []models.Sequence
	err := s.db.WithContext(ctx).
		Table("sequences").
		Select("sequences.seq_id, sequences.seq_name").
		Joins("JOIN sequence_users ON sequence_users.seq_id = sequences.seq_id").
		Where("sequence_users.user_id = ?", userID).
		Order("sequences.seq_name ASC, sequences.seq_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list sequences for user: %w", err)
	}

	slots := make([]campaign.Slot, 0, len(rows))
	for _, row := range rows {
		slots = append(slots, campaign.Slot{ID: row.ID, Name: row.Name})
	}
	return slots, nil
}

// NamesByID maps each accessible sequence name to its id.
func (s *Store) NamesByID(ctx context.Context, userID string) (map[string]string, error) {
	slots, err := s.ListAccessibleSlots(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(slots))
	for _, slot := range slots {
		out[slot.Name] = slot.ID
	}
	return out, nil
}

// HasAccess reports whether userID may act on sequenceID. Admins may act on every sequence.
func (s *Store) HasAccess(ctx context.Context, userID, sequenceID string) (bool, error) {
	var user models.User
	err := s.db.WithContext(ctx).Select("id", "permission_user").Where("id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load user: %w", err)
	}
	if user.Permission.Allows(models.PermissionAdmin) {
		return true, nil
	}

	var count int64
	err = s.db.WithContext(ctx).Model(&models.SequenceUser{}).
		Where("seq_id = ? AND user_id = ?", sequenceID, userID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return count > 0, nil
}

// List returns every sequence ordered by name.
func (s *Store) List(ctx context.Context) ([]models.Sequence, error) {
	var seqs []models.Sequence
	if err := s.db.WithContext(ctx).Order("seq_name ASC").Find(&seqs).Error; err != nil {
		return nil, fmt.Errorf("list sequences: %w", err)
	}
	return seqs, nil
}

// Get loads one sequence.
func (s *Store) Get(ctx context.Context, id string) (*models.Sequence, error) {
	var seq models.Sequence
	err := s.db.WithContext(ctx).Where("seq_id = ?", id).First(&seq).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSequenceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get sequence: %w", err)
	}
	return &seq, nil
}

// Create inserts a sequence. The id is the Stacks sequence id and is never generated.
func (s *Store) Create(ctx context.Context, seq *models.Sequence) error {
	seq.ID = strings.TrimSpace(seq.ID)
	seq.Name = strings.TrimSpace(seq.Name)
	if seq.ID == "" || seq.Name == "" {
		return ErrInvalidSequence
	}

	if _, err := s.Get(ctx, seq.ID); err == nil {
		return ErrSequenceExists
	} else if !errors.Is(err, ErrSequenceNotFound) {
		return err
	}

	if err := s.db.WithContext(ctx).Create(seq).Error; err != nil {
		return fmt.Errorf("create sequence: %w", err)
	}
	s.logger.Info().Str("seq_id", seq.ID).Str("seq_name", seq.Name).Msg("sequence created")
	return nil
}

// Update applies the non-nil fields.
func (s *Store) Update(ctx context.Context, id string, name, retailer *string) (*models.Sequence, error) {
	seq, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" {
			return nil, ErrInvalidSequence
		}
		updates["seq_name"] = trimmed
	}
	if retailer != nil {
		updates["retailer"] = strings.TrimSpace(*retailer)
	}
	if len(updates) == 0 {
		return seq, nil
	}

	if err := s.db.WithContext(ctx).Model(seq).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update sequence: %w", err)
	}
	return s.Get(ctx, id)
}

// Delete removes a sequence and its memberships.
func (s *Store) Delete(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("seq_id = ?", id).Delete(&models.SequenceUser{}).Error; err != nil {
			return fmt.Errorf("delete memberships: %w", err)
		}
		res := tx.Where("seq_id = ?", id).Delete(&models.Sequence{})
		if res.Error != nil {
			return fmt.Errorf("delete sequence: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrSequenceNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info().Str("seq_id", id).Msg("sequence deleted")
	return nil
}

// Assign grants userID access to sequenceID. Assigning twice is a no-op.
func (s *Store) Assign(ctx context.Context, sequenceID, userID string) error {
	if _, err := s.Get(ctx, sequenceID); err != nil {
		return err
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return fmt.Errorf("check user: %w", err)
	}
	if count == 0 {
		return ErrUserNotFound
	}

	member := models.SequenceUser{SequenceID: sequenceID, UserID: userID}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&member).Error
	if err != nil {
		return fmt.Errorf("assign user: %w", err)
	}
	return nil
}

// Unassign revokes access. Missing memberships are ignored.
func (s *Store) Unassign(ctx context.Context, sequenceID, userID string) error {
	err := s.db.WithContext(ctx).
		Where("seq_id = ? AND user_id = ?", sequenceID, userID).
		Delete(&models.SequenceUser{}).Error
	if err != nil {
		return fmt.Errorf("unassign user: %w", err)
	}
	return nil
}

// Members lists the user ids assigned to a sequence.
func (s *Store) Members(ctx context.Context, sequenceID string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&models.SequenceUser{}).
		Where("seq_id = ?", sequenceID).
		Order("user_id ASC").
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return ids, nil
}
