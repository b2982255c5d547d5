package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "PENDING"
	OutboxStatusProcessed OutboxStatus = "PROCESSED"
	OutboxStatusFailed    OutboxStatus = "FAILED"
)

// Event types written to the outbox.
const (
	EventVisitCreated    = "visit.created"
	EventVisitCompleted  = "visit.completed"
	EventVisitCancelled  = "visit.cancelled"
	EventUserInvited     = "user.invited"
	EventUserActivated   = "user.activated"
	EventTemplateUpdated = "template.updated"
)

type OutboxEvent struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	EventType    string             `json:"eventType" bson:"eventType"`
	AggregateID  string             `json:"aggregateId" bson:"aggregateId"`
	Payload      JSONMap            `json:"payload" bson:"payload"`
	Status       OutboxStatus       `json:"status" bson:"status"`
	Attempts     int                `json:"attempts" bson:"attempts"`
	ErrorMessage *string            `json:"errorMessage,omitempty" bson:"errorMessage,omitempty"`
	CreatedAt    time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt" bson:"updatedAt"`
	ProcessedAt  *time.Time         `json:"processedAt,omitempty" bson:"processedAt,omitempty"`
}
