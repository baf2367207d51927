/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package format keeps the catalogue of display formats and the Stacks
// conditions that target them.
package format

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/signboard/internal/models"
)

var (
	// ErrFormatNotFound is returned when no format has the requested id.
	ErrFormatNotFound = errors.New("format not found")

	// ErrFormatExists is returned when a format name is already catalogued.
	ErrFormatExists = errors.New("format already exists")

	// ErrInvalidFormat is returned for a blank name or condition, or a non-positive size.
	ErrInvalidFormat = errors.New("format name, condition and size are required")
)

// Changes holds the fields a PATCH may set. Nil fields are left alone.
type Changes struct {
	Name      *string `json:"format"`
	Width     *int    `json:"width"`
	Height    *int    `json:"height"`
	Condition *string `json:"condition"`
	Retailer  *string `json:"retailer"`
}

// Store is the gorm-backed format catalogue.
type Store struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewStore creates a format store.
func NewStore(db *gorm.DB, logger zerolog.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger.With().Str("component", "format").Logger(),
	}
}

// List returns the catalogue ordered by format name.
func (s *Store) List(ctx context.Context) ([]models.Format, error) {
	formats := make([]models.Format, 0)
	if err := s.db.WithContext(ctx).Order("format ASC").Find(&formats).Error; err != nil {
		return nil, fmt.Errorf("list formats: %w", err)
	}
	return formats, nil
}

// Get loads one format by id.
func (s *Store) Get(ctx context.Context, id string) (*models.Format, error) {
	var f models.Format
	err := s.db.WithContext(ctx).Where("form_id = ?", id).First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrFormatNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get format: %w", err)
	}
	return &f, nil
}

// ConditionFor returns the condition catalogued under name. ok is false when
// the name is unknown.
func (s *Store) ConditionFor(ctx context.Context, name string) (string, bool, error) {
	var f models.Format
	err := s.db.WithContext(ctx).Select("form_condition").Where("format = ?", strings.TrimSpace(name)).First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup format %q: %w", name, err)
	}
	return f.Condition, true, nil
}

// Create validates and inserts a format, assigning its id.
func (s *Store) Create(ctx context.Context, f *models.Format) error {
	f.Name = strings.TrimSpace(f.Name)
	f.Condition = strings.TrimSpace(f.Condition)
	f.Retailer = strings.TrimSpace(f.Retailer)
	if err := validate(f); err != nil {
		return err
	}
	if err := s.ensureNameFree(ctx, f.Name, ""); err != nil {
		return err
	}

	f.ID = uuid.NewString()
	if err := s.db.WithContext(ctx).Create(f).Error; err != nil {
		return fmt.Errorf("create format: %w", err)
	}
	s.logger.Info().Str("form_id", f.ID).Str("format", f.Name).Msg("format created")
	return nil
}

// Update applies changes to the format with id and returns the stored row.
func (s *Store) Update(ctx context.Context, id string, c Changes) (*models.Format, error) {
	f, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	next := *f
	if c.Name != nil {
		next.Name = strings.TrimSpace(*c.Name)
	}
	if c.Width != nil {
		next.Width = *c.Width
	}
	if c.Height != nil {
		next.Height = *c.Height
	}
	if c.Condition != nil {
		next.Condition = strings.TrimSpace(*c.Condition)
	}
	if c.Retailer != nil {
		next.Retailer = strings.TrimSpace(*c.Retailer)
	}
	if err := validate(&next); err != nil {
		return nil, err
	}
	if next.Name != f.Name {
		if err := s.ensureNameFree(ctx, next.Name, id); err != nil {
			return nil, err
		}
	}

	err = s.db.WithContext(ctx).Model(f).Updates(map[string]any{
		"format":         next.Name,
		"width":          next.Width,
		"height":         next.Height,
		"form_condition": next.Condition,
		"retailer":       next.Retailer,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("update format: %w", err)
	}
	return s.Get(ctx, id)
}

// Delete removes a format. Items already written to Stacks keep their condition.
func (s *Store) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("form_id = ?", id).Delete(&models.Format{})
	if res.Error != nil {
		return fmt.Errorf("delete format: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrFormatNotFound
	}
	s.logger.Info().Str("form_id", id).Msg("format deleted")
	return nil
}

func (s *Store) ensureNameFree(ctx context.Context, name, exceptID string) error {
	q := s.db.WithContext(ctx).Model(&models.Format{}).Where("format = ?", name)
	if exceptID != "" {
		q = q.Where("form_id <> ?", exceptID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return fmt.Errorf("check format name: %w", err)
	}
	if count > 0 {
		return ErrFormatExists
	}
	return nil
}

func validate(f *models.Format) error {
	if f.Name == "" || f.Condition == "" || f.Width <= 0 || f.Height <= 0 {
		return ErrInvalidFormat
	}
	return nil
}
