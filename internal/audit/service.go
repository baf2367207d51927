/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/signboard/internal/events"
	"github.com/friendsincode/signboard/internal/models"
)

// subscriptions maps each audited event to the action it is stored as.
var subscriptions = map[events.EventType]models.AuditAction{
	events.EventAuditUserLogin:        models.AuditActionUserLogin,
	events.EventAuditUserCreate:       models.AuditActionUserCreate,
	events.EventAuditSequenceCreate:   models.AuditActionSequenceCreate,
	events.EventAuditSequenceUpdate:   models.AuditActionSequenceUpdate,
	events.EventAuditSequenceDelete:   models.AuditActionSequenceDelete,
	events.EventAuditSequenceAssign:   models.AuditActionSequenceAssign,
	events.EventAuditSequenceUnassign: models.AuditActionSequenceUnassign,
	events.EventAuditFormatCreate:     models.AuditActionFormatCreate,
	events.EventAuditFormatUpdate:     models.AuditActionFormatUpdate,
	events.EventAuditFormatDelete:     models.AuditActionFormatDelete,
	events.EventCampaignItemUpdated:   models.AuditActionCampaignItemUpdate,
	events.EventCampaignItemDeleted:   models.AuditActionCampaignItemDelete,
}

// Service handles audit logging by subscribing to events and storing audit entries.
type Service struct {
	db     *gorm.DB
	bus    events.Broker
	logger zerolog.Logger
}

// NewService creates a new audit service.
func NewService(db *gorm.DB, bus events.Broker, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		bus:    bus,
		logger: logger.With().Str("component", "audit").Logger(),
	}
}

type auditEvent struct {
	action  models.AuditAction
	payload events.Payload
}

// Start subscribes to audited events and stores them until ctx is done.
// Entries are written one at a time so they keep publish order.
func (s *Service) Start(ctx context.Context) {
	s.logger.Info().Msg("audit service starting")

	merged := make(chan auditEvent, 64)
	done := make(chan struct{})
	defer close(done)

	for eventType, action := range subscriptions {
		sub := s.bus.Subscribe(eventType)
		defer s.bus.Unsubscribe(eventType, sub)

		go func(action models.AuditAction, sub events.Subscriber) {
			for {
				select {
				case <-done:
					return
				case payload, ok := <-sub:
					if !ok {
						return
					}
					select {
					case merged <- auditEvent{action: action, payload: payload}:
					case <-done:
						return
					}
				}
			}
		}(action, sub)
	}

	s.logger.Info().Int("event_types", len(subscriptions)).Msg("audit service started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("audit service stopping")
			return
		case ev := <-merged:
			s.logAuditEntry(ctx, ev.action, ev.payload)
		}
	}
}

// logAuditEntry creates an audit log entry from an event payload.
func (s *Service) logAuditEntry(ctx context.Context, action models.AuditAction, payload events.Payload) {
	// The originating instance already stored it.
	if _, remote := payload[events.SourceNodeKey]; remote {
		return
	}

	entry := &models.AuditLog{
		Action:  action,
		Details: make(map[string]any),
	}

	if userID, ok := payload["user_id"].(string); ok && userID != "" {
		entry.UserID = &userID
	}
	if userEmail, ok := payload["user_email"].(string); ok {
		entry.UserEmail = userEmail
	}
	if seqID, ok := payload["seq_id"].(string); ok && seqID != "" {
		entry.SequenceID = &seqID
	}
	if resourceType, ok := payload["resource_type"].(string); ok {
		entry.ResourceType = resourceType
	}
	if resourceID, ok := payload["resource_id"].(string); ok {
		entry.ResourceID = resourceID
	}
	if ipAddress, ok := payload["ip_address"].(string); ok {
		entry.IPAddress = ipAddress
	}
	if userAgent, ok := payload["user_agent"].(string); ok {
		entry.UserAgent = userAgent
	}

	for k, v := range payload {
		switch k {
		case "user_id", "user_email", "seq_id", "resource_type", "resource_id", "ip_address", "user_agent":
		default:
			entry.Details[k] = v
		}
	}

	if err := s.Log(ctx, entry); err != nil {
		s.logger.Error().Err(err).
			Str("action", string(action)).
			Msg("failed to log audit entry")
	}
}

// Log records an audit entry directly (for non-event-bus actions).
func (s *Service) Log(ctx context.Context, entry *models.AuditLog) error {
	now := time.Now().UTC()
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = now
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	if entry.Details == nil {
		entry.Details = make(map[string]any)
	}

	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return err
	}

	s.logger.Debug().
		Str("action", string(entry.Action)).
		Str("id", entry.ID).
		Msg("audit entry logged")

	return nil
}

// QueryFilters defines filters for querying audit logs.
type QueryFilters struct {
	UserID     *string
	SequenceID *string
	Action     *models.AuditAction

	// ResourceType matches the audited resource kind, e.g. "sequence" or "format".
	ResourceType *string
	StartTime    *time.Time
	EndTime      *time.Time
	Limit        int
	Offset       int
}

// Query retrieves audit logs with filters, newest first.
func (s *Service) Query(ctx context.Context, filters QueryFilters) ([]models.AuditLog, int64, error) {
	var logs []models.AuditLog
	var total int64

	query := s.db.WithContext(ctx).Model(&models.AuditLog{})

	if filters.UserID != nil {
		query = query.Where("user_id = ?", *filters.UserID)
	}
	if filters.SequenceID != nil {
		query = query.Where("seq_id = ?", *filters.SequenceID)
	}
	if filters.Action != nil {
		query = query.Where("action = ?", *filters.Action)
	}
	if filters.ResourceType != nil {
		query = query.Where("resource_type = ?", *filters.ResourceType)
	}
	if filters.StartTime != nil {
		query = query.Where("timestamp >= ?", *filters.StartTime)
	}
	if filters.EndTime != nil {
		query = query.Where("timestamp <= ?", *filters.EndTime)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	} else {
		query = query.Limit(100)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	if err := query.Order("timestamp DESC").Find(&logs).Error; err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}
