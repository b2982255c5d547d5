package model

import (
	"time"
)

type AuditLog struct {
	ID         string    `json:"id" bson:"_id" db:"id"`
	UserID     string    `json:"userId" bson:"userId" db:"user_id"`
	UserEmail  string    `json:"userEmail,omitempty" bson:"userEmail,omitempty" db:"user_email"`
	Action     string    `json:"action" bson:"action" db:"action"`
	EntityType string    `json:"entityType" bson:"entityType" db:"entity_type"`
	EntityID   string    `json:"entityId" bson:"entityId" db:"entity_id"`
	Changes    JSONMap   `json:"changes,omitempty" bson:"changes,omitempty" db:"changes"`
	Metadata   JSONMap   `json:"metadata,omitempty" bson:"metadata,omitempty" db:"metadata"`
	IPAddress  string    `json:"ipAddress,omitempty" bson:"ipAddress,omitempty" db:"ip_address"`
	UserAgent  string    `json:"userAgent,omitempty" bson:"userAgent,omitempty" db:"user_agent"`
	RequestID  string    `json:"requestId,omitempty" bson:"requestId,omitempty" db:"request_id"`
	CreatedAt  time.Time `json:"createdAt" bson:"createdAt" db:"created_at"`
}

const (
	// Action types
	AuditActionCreate = "create"
	AuditActionUpdate = "update"
	AuditActionDelete = "delete"
	AuditActionInvite = "invite"
	AuditActionAccept = "accept"

	// Entity types
	AuditEntityUser     = "user"
	AuditEntityPatient  = "patient"
	AuditEntityVisit    = "visit"
	AuditEntityTemplate = "template"
	AuditEntityPractice = "practice"
)

type AuditFilter struct {
	UserID     string
	EntityType string
	EntityID   string
	Action     string
	From       *time.Time
	To         *time.Time
	Page       int
	Limit      int
}
