package model

import (
	"strings"
)

type Address struct {
	Street     string `json:"street,omitempty" bson:"street,omitempty"`
	City       string `json:"city,omitempty" bson:"city,omitempty"`
	State      string `json:"state,omitempty" bson:"state,omitempty"`
	PostalCode string `json:"postalCode,omitempty" bson:"postalCode,omitempty"`
	Country    string `json:"country,omitempty" bson:"country,omitempty"`
}

type Insurance struct {
	Provider     string `json:"provider,omitempty" bson:"provider,omitempty"`
	PolicyNumber string `json:"policyNumber,omitempty" bson:"policyNumber,omitempty"`
	GroupNumber  string `json:"groupNumber,omitempty" bson:"groupNumber,omitempty"`
}

type EmergencyContact struct {
	Name         string `json:"name,omitempty" bson:"name,omitempty"`
	Relationship string `json:"relationship,omitempty" bson:"relationship,omitempty"`
	Phone        string `json:"phone,omitempty" bson:"phone,omitempty"`
}

type Patient struct {
	Base             `bson:",inline"`
	FirstName        string            `json:"firstName" bson:"firstName"`
	LastName         string            `json:"lastName" bson:"lastName"`
	DateOfBirth      string            `json:"dateOfBirth,omitempty" bson:"dateOfBirth,omitempty"`
	Gender           string            `json:"gender,omitempty" bson:"gender,omitempty"`
	Email            string            `json:"email,omitempty" bson:"email,omitempty"`
	Phone            string            `json:"phone,omitempty" bson:"phone,omitempty"`
	Address          *Address          `json:"address,omitempty" bson:"address,omitempty"`
	Insurance        *Insurance        `json:"insurance,omitempty" bson:"insurance,omitempty"`
	MedicalHistory   []string          `json:"medicalHistory" bson:"medicalHistory"`
	EmergencyContact *EmergencyContact `json:"emergencyContact,omitempty" bson:"emergencyContact,omitempty"`
}

// PatientSummary is the slice of a patient shown alongside visits.
type PatientSummary struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

func (p *Patient) Summary() *PatientSummary {
	return &PatientSummary{
		ID:        p.ID.Hex(),
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Email:     p.Email,
		Phone:     p.Phone,
	}
}

type CreatePatientRequest struct {
	FirstName        string            `json:"firstName" binding:"required"`
	LastName         string            `json:"lastName" binding:"required"`
	DateOfBirth      string            `json:"dateOfBirth" binding:"omitempty,datetime=2006-01-02"`
	Gender           string            `json:"gender" binding:"omitempty,oneof=male female other unknown"`
	Email            string            `json:"email" binding:"omitempty,email"`
	Phone            string            `json:"phone"`
	Address          *Address          `json:"address"`
	Insurance        *Insurance        `json:"insurance"`
	MedicalHistory   []string          `json:"medicalHistory"`
	EmergencyContact *EmergencyContact `json:"emergencyContact"`
}

func (r *CreatePatientRequest) ToPatient() *Patient {
	history := r.MedicalHistory
	if history == nil {
		history = []string{}
	}
	return &Patient{
		FirstName:        strings.TrimSpace(r.FirstName),
		LastName:         strings.TrimSpace(r.LastName),
		DateOfBirth:      r.DateOfBirth,
		Gender:           r.Gender,
		Email:            strings.ToLower(strings.TrimSpace(r.Email)),
		Phone:            strings.TrimSpace(r.Phone),
		Address:          r.Address,
		Insurance:        r.Insurance,
		MedicalHistory:   history,
		EmergencyContact: r.EmergencyContact,
	}
}

// UpdatePatientRequest is a shallow merge: only supplied fields change.
type UpdatePatientRequest struct {
	FirstName        *string           `json:"firstName" binding:"omitempty,min=1"`
	LastName         *string           `json:"lastName" binding:"omitempty,min=1"`
	DateOfBirth      *string           `json:"dateOfBirth" binding:"omitempty,datetime=2006-01-02"`
	Gender           *string           `json:"gender" binding:"omitempty,oneof=male female other unknown"`
	Email            *string           `json:"email" binding:"omitempty,email"`
	Phone            *string           `json:"phone"`
	Address          *Address          `json:"address"`
	Insurance        *Insurance        `json:"insurance"`
	MedicalHistory   []string          `json:"medicalHistory"`
	EmergencyContact *EmergencyContact `json:"emergencyContact"`
}

func (r *UpdatePatientRequest) Apply(p *Patient) {
	if r.FirstName != nil {
		p.FirstName = strings.TrimSpace(*r.FirstName)
	}
	if r.LastName != nil {
		p.LastName = strings.TrimSpace(*r.LastName)
	}
	if r.DateOfBirth != nil {
		p.DateOfBirth = *r.DateOfBirth
	}
	if r.Gender != nil {
		p.Gender = *r.Gender
	}
	if r.Email != nil {
		p.Email = strings.ToLower(strings.TrimSpace(*r.Email))
	}
	if r.Phone != nil {
		p.Phone = strings.TrimSpace(*r.Phone)
	}
	if r.Address != nil {
		p.Address = r.Address
	}
	if r.Insurance != nil {
		p.Insurance = r.Insurance
	}
	if r.MedicalHistory != nil {
		p.MedicalHistory = r.MedicalHistory
	}
	if r.EmergencyContact != nil {
		p.EmergencyContact = r.EmergencyContact
	}
}
