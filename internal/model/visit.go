package model

import (
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type VisitStatus string

const (
	VisitStatusScheduled  VisitStatus = "scheduled"
	VisitStatusInProgress VisitStatus = "in-progress"
	VisitStatusCompleted  VisitStatus = "completed"
	VisitStatusCancelled  VisitStatus = "cancelled"
	VisitStatusNoShow     VisitStatus = "no-show"
)

func (s VisitStatus) Valid() bool {
	switch s {
	case VisitStatusScheduled, VisitStatusInProgress, VisitStatusCompleted, VisitStatusCancelled, VisitStatusNoShow:
		return true
	}
	return false
}

func (s VisitStatus) Terminal() bool {
	return s == VisitStatusCompleted || s == VisitStatusCancelled || s == VisitStatusNoShow
}

// Initial reports whether a visit may be created in status s. Cancelled
// and no-show are only reached through an update.
func (s VisitStatus) Initial() bool {
	return s == VisitStatusScheduled || s == VisitStatusInProgress || s == VisitStatusCompleted
}

var visitTransitions = map[VisitStatus][]VisitStatus{
	VisitStatusScheduled:  {VisitStatusScheduled, VisitStatusInProgress, VisitStatusCompleted, VisitStatusCancelled, VisitStatusNoShow},
	VisitStatusInProgress: {VisitStatusInProgress, VisitStatusCompleted, VisitStatusCancelled, VisitStatusNoShow},
	VisitStatusCompleted:  {VisitStatusCompleted},
	VisitStatusCancelled:  {VisitStatusCancelled},
	VisitStatusNoShow:     {VisitStatusNoShow},
}

// CanTransitionTo reports whether a visit may move from s to next.
func (s VisitStatus) CanTransitionTo(next VisitStatus) bool {
	for _, allowed := range visitTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Visit struct {
	Base              `bson:",inline"`
	Patient           primitive.ObjectID  `json:"patient" bson:"patient"`
	Provider          *primitive.ObjectID `json:"provider,omitempty" bson:"provider,omitempty"`
	ScheduledDate     time.Time           `json:"scheduledDate" bson:"scheduledDate"`
	Status            VisitStatus         `json:"status" bson:"status"`
	TemplateID        *primitive.ObjectID `json:"templateId,omitempty" bson:"templateId,omitempty"`
	Responses         Responses           `json:"responses" bson:"responses"`
	CompletedSections []int               `json:"completedSections" bson:"completedSections"`
	Notes             string              `json:"notes,omitempty" bson:"notes,omitempty"`
	CompletedAt       *time.Time          `json:"completedAt,omitempty" bson:"completedAt,omitempty"`

	PatientInfo *PatientSummary `json:"patientInfo,omitempty" bson:"-"`
}

// NormalizeSections dedupes and sorts completed section indices and
// checks them against the section count. A negative count skips the
// range check.
func NormalizeSections(indices []int, sectionCount int) ([]int, error) {
	seen := make(map[int]bool, len(indices))
	out := make([]int, 0, len(indices))
	for _, i := range indices {
		if i < 0 || (sectionCount >= 0 && i >= sectionCount) {
			return nil, fmt.Errorf("completed section index %d is out of range", i)
		}
		if seen[i] {
			continue
		}
		seen[i] = true
		out = append(out, i)
	}
	sort.Ints(out)
	return out, nil
}

type CreateVisitRequest struct {
	Patient       string      `json:"patient" binding:"required,objectid"`
	ScheduledDate string      `json:"scheduledDate" binding:"required"`
	Provider      string      `json:"provider" binding:"omitempty,objectid"`
	TemplateID    string      `json:"templateId" binding:"omitempty,objectid"`
	Status        VisitStatus `json:"status"`
	Notes         string      `json:"notes"`
}

// UpdateVisitRequest is a shallow merge: only supplied fields change.
type UpdateVisitRequest struct {
	Provider          *string      `json:"provider" binding:"omitempty,objectid"`
	ScheduledDate     *string      `json:"scheduledDate"`
	Status            *VisitStatus `json:"status"`
	TemplateID        *string      `json:"templateId" binding:"omitempty,objectid"`
	Responses         *Responses   `json:"responses"`
	CompletedSections *[]int       `json:"completedSections"`
	Notes             *string      `json:"notes"`
}

type RecordResponsesRequest struct {
	Responses         Responses `json:"responses"`
	CompletedSections []int     `json:"completedSections"`
}
