package model

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleProvider Role = "provider"
	RoleStaff    Role = "staff"
)

var roleAliases = map[string]Role{
	"admin":         RoleAdmin,
	"administrator": RoleAdmin,
	"provider":      RoleProvider,
	"doctor":        RoleProvider,
	"clinician":     RoleProvider,
	"staff":         RoleStaff,
}

// NormalizeRole maps input role names, including aliases, onto a Role.
func NormalizeRole(name string) (Role, bool) {
	r, ok := roleAliases[strings.ToLower(strings.TrimSpace(name))]
	return r, ok
}

// Satisfies reports whether a user holding r passes a check requiring
// any of the given roles. Admin passes every check.
func (r Role) Satisfies(required ...Role) bool {
	if r == RoleAdmin {
		return true
	}
	for _, req := range required {
		if r == req {
			return true
		}
	}
	return false
}

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusPending  UserStatus = "pending"
	UserStatusInactive UserStatus = "inactive"
)

func (s UserStatus) Valid() bool {
	return s == UserStatusActive || s == UserStatusPending || s == UserStatusInactive
}

type Invitation struct {
	InvitedBy  primitive.ObjectID `json:"invitedBy" bson:"invitedBy"`
	TokenHash  string             `json:"-" bson:"tokenHash"`
	SentAt     time.Time          `json:"sentAt" bson:"sentAt"`
	ExpiresAt  time.Time          `json:"expiresAt" bson:"expiresAt"`
	AcceptedAt *time.Time         `json:"acceptedAt,omitempty" bson:"acceptedAt,omitempty"`
}

type User struct {
	Base        `bson:",inline"`
	Email       string      `json:"email" bson:"email"`
	Name        string      `json:"name" bson:"name"`
	Role        Role        `json:"role" bson:"role"`
	Status      UserStatus  `json:"status" bson:"status"`
	ExternalID  string      `json:"externalId,omitempty" bson:"externalId,omitempty"`
	Invitation  *Invitation `json:"invitation,omitempty" bson:"invitation,omitempty"`
	LastLoginAt *time.Time  `json:"lastLoginAt,omitempty" bson:"lastLoginAt,omitempty"`
}

type InviteUserRequest struct {
	Email string `json:"email" binding:"required,email"`
	Name  string `json:"name" binding:"required"`
	Role  string `json:"role" binding:"required"`
}

// InvitationSummary is returned to the inviting admin.
type InvitationSummary struct {
	UserID    string     `json:"userId"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Role      Role       `json:"role"`
	Status    UserStatus `json:"status"`
	ExpiresAt time.Time  `json:"expiresAt"`
	EmailSent bool       `json:"emailSent"`
}

// BootstrapAdminRequest names an operator account to create or promote
// outside the HTTP API.
type BootstrapAdminRequest struct {
	Email string `json:"email" binding:"required,email"`
	Name  string `json:"name"`
}

type AcceptInviteRequest struct {
	Token string `json:"token" binding:"required"`
}

type UpdateUserRequest struct {
	Name   *string `json:"name" binding:"omitempty,min=1"`
	Role   *string `json:"role"`
	Status *string `json:"status"`
}
