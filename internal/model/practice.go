package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PracticeSettingsID is the fixed identifier of the settings singleton.
const PracticeSettingsID = "practice"

type Logo struct {
	Key         string    `json:"-" bson:"key"`
	ContentType string    `json:"contentType" bson:"contentType"`
	Size        int64     `json:"size" bson:"size"`
	UploadedAt  time.Time `json:"uploadedAt" bson:"uploadedAt"`
}

type PracticeSettings struct {
	ID        string              `json:"id" bson:"_id"`
	Name      string              `json:"name" bson:"name"`
	Email     string              `json:"email,omitempty" bson:"email,omitempty"`
	Phone     string              `json:"phone,omitempty" bson:"phone,omitempty"`
	Website   string              `json:"website,omitempty" bson:"website,omitempty"`
	Timezone  string              `json:"timezone,omitempty" bson:"timezone,omitempty"`
	Address   *Address            `json:"address,omitempty" bson:"address,omitempty"`
	Logo      *Logo               `json:"logo,omitempty" bson:"logo,omitempty"`
	UpdatedAt time.Time           `json:"updatedAt" bson:"updatedAt"`
	UpdatedBy *primitive.ObjectID `json:"updatedBy,omitempty" bson:"updatedBy,omitempty"`
}

type UpdatePracticeRequest struct {
	Name     *string  `json:"name" binding:"omitempty,min=1"`
	Email    *string  `json:"email" binding:"omitempty,email"`
	Phone    *string  `json:"phone"`
	Website  *string  `json:"website" binding:"omitempty,url"`
	Timezone *string  `json:"timezone" binding:"omitempty,timezone"`
	Address  *Address `json:"address"`
}

func (r *UpdatePracticeRequest) Apply(s *PracticeSettings) {
	if r.Name != nil {
		s.Name = *r.Name
	}
	if r.Email != nil {
		s.Email = *r.Email
	}
	if r.Phone != nil {
		s.Phone = *r.Phone
	}
	if r.Website != nil {
		s.Website = *r.Website
	}
	if r.Timezone != nil {
		s.Timezone = *r.Timezone
	}
	if r.Address != nil {
		s.Address = r.Address
	}
}
