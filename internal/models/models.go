package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Permission is a user's access level. Higher levels include the lower ones.
type Permission int

const (
	PermissionNone    Permission = 0
	PermissionViewer  Permission = 1
	PermissionEditor  Permission = 2
	PermissionManager Permission = 3
	PermissionAdmin   Permission = 4
)

var permissionNames = map[Permission]string{
	PermissionNone:    "none",
	PermissionViewer:  "viewer",
	PermissionEditor:  "editor",
	PermissionManager: "manager",
	PermissionAdmin:   "admin",
}

func (p Permission) String() string {
	if name, ok := permissionNames[p]; ok {
		return name
	}
	return "permission(" + strconv.Itoa(int(p)) + ")"
}

// Allows reports whether p meets the required level.
func (p Permission) Allows(required Permission) bool {
	return p >= required
}

// ParsePermission accepts a level name or its number.
func ParsePermission(s string) (Permission, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for p, name := range permissionNames {
		if s == name {
			return p, nil
		}
	}
	if n, err := strconv.Atoi(s); err == nil && n >= int(PermissionNone) && n <= int(PermissionAdmin) {
		return Permission(n), nil
	}
	return PermissionNone, fmt.Errorf("unknown permission %q", s)
}

// User represents an authenticated account.
type User struct {
	ID         string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	Email      string     `gorm:"type:varchar(255);uniqueIndex" json:"email"`
	Password   string     `gorm:"type:varchar(255)" json:"-"`
	Name       string     `gorm:"type:varchar(255)" json:"name"`
	Permission Permission `gorm:"column:permission_user;not null;default:0" json:"permission_user"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Sequence is a named physical display spot that campaign items are scheduled against.
type Sequence struct {
	ID        string    `gorm:"column:seq_id;type:varchar(64);primaryKey" json:"seq_id"`
	Name      string    `gorm:"column:seq_name;type:varchar(255);index" json:"seq_name"`
	Retailer  string    `gorm:"type:varchar(255)" json:"retailer"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for GORM.
func (Sequence) TableName() string {
	return "sequences"
}

// SequenceUser grants a user access to a sequence.
type SequenceUser struct {
	SequenceID string    `gorm:"column:seq_id;type:varchar(64);primaryKey" json:"seq_id"`
	UserID     string    `gorm:"type:varchar(36);primaryKey;index" json:"user_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName returns the table name for GORM.
func (SequenceUser) TableName() string {
	return "sequence_users"
}

// Format is a display format in the catalogue: a screen shape and the Stacks
// condition that targets it.
type Format struct {
	ID        string    `gorm:"column:form_id;type:varchar(36);primaryKey" json:"form_id"`
	Name      string    `gorm:"column:format;type:varchar(255);uniqueIndex" json:"format"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Condition string    `gorm:"column:form_condition;type:text" json:"condition"`
	Retailer  string    `gorm:"type:varchar(255)" json:"retailer"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for GORM.
func (Format) TableName() string {
	return "formats"
}
