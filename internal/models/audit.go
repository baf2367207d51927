/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// AuditAction defines the type of audited action.
type AuditAction string

// Audit action constants for all operations that change campaigns or access.
const (
	AuditActionUserLogin          AuditAction = "user.login"
	AuditActionUserCreate         AuditAction = "user.create"
	AuditActionSequenceCreate     AuditAction = "sequence.create"
	AuditActionSequenceUpdate     AuditAction = "sequence.update"
	AuditActionSequenceDelete     AuditAction = "sequence.delete"
	AuditActionSequenceAssign     AuditAction = "sequence.assign"
	AuditActionSequenceUnassign   AuditAction = "sequence.unassign"
	AuditActionFormatCreate       AuditAction = "format.create"
	AuditActionFormatUpdate       AuditAction = "format.update"
	AuditActionFormatDelete       AuditAction = "format.delete"
	AuditActionCampaignItemUpdate AuditAction = "campaign.item_update"
	AuditActionCampaignItemDelete AuditAction = "campaign.item_delete"
)

// AuditLog records sensitive operations for security and compliance.
type AuditLog struct {
	ID           string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	Timestamp    time.Time      `gorm:"index:idx_audit_timestamp;not null" json:"changed_at"`
	UserID       *string        `gorm:"type:varchar(36);index:idx_audit_user" json:"user_id,omitempty"` // NULL for system actions
	UserEmail    string         `gorm:"type:varchar(255)" json:"user_email,omitempty"`
	SequenceID   *string        `gorm:"column:seq_id;type:varchar(64);index:idx_audit_sequence" json:"seq_id,omitempty"`
	Action       AuditAction    `gorm:"type:varchar(64);index:idx_audit_action;not null" json:"action"`
	ResourceType string         `gorm:"type:varchar(64)" json:"resource_type,omitempty"`
	ResourceID   string         `gorm:"type:varchar(128)" json:"resource_id,omitempty"`
	Details      map[string]any `gorm:"type:text;serializer:json" json:"details,omitempty"`
	IPAddress    string         `gorm:"type:varchar(45)" json:"ip_address,omitempty"`
	UserAgent    string         `gorm:"type:varchar(512)" json:"user_agent,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// TableName returns the table name for GORM.
func (AuditLog) TableName() string {
	return "audit_logs"
}
