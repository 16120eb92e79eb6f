// internal/models/patent_request.go
package models

import (
	"time"
)

// Default cap on concurrent pending requests per contribuyente; the effective
// limit is configurable (PATENT_MAX_PENDING).
const MaxPendingRequests = 5

// Tracking code format: PAT-YYYY-NNNNNN (e.g. PAT-2025-000001). The sequence
// restarts every calendar year.
const (
	CodePrefix         = "PAT"
	CodeSequenceDigits = 6
)

type PatentRequest struct {
	BaseModel
	Code             string       `json:"code" gorm:"uniqueIndex;size:20;not null"`
	UserID           uint         `json:"user_id" gorm:"not null;index:idx_patent_requests_user_state"`
	Rut              string       `json:"rut" gorm:"size:12;not null;index"`
	BusinessAddress  string       `json:"business_address" gorm:"size:255;not null"`
	BusinessActivity string       `json:"business_activity" gorm:"size:1000;not null"`
	State            RequestState `json:"state" gorm:"type:varchar(30);not null;default:'pending';index:idx_patent_requests_user_state"`
	ReviewedBy       *uint        `json:"reviewed_by"`
	ReviewedAt       *time.Time   `json:"reviewed_at"`
	Observations     *string      `json:"observations,omitempty" gorm:"type:text"`

	// Relationships
	User         User                       `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Reviewer     *User                      `json:"reviewer,omitempty" gorm:"foreignKey:ReviewedBy"`
	History      []PatentRequestHistory     `json:"history,omitempty" gorm:"foreignKey:PatentRequestID"`
	Forms        []PatentRequestForm        `json:"forms,omitempty" gorm:"foreignKey:PatentRequestID"`
	Requirements []PatentRequestRequirement `json:"requirements,omitempty" gorm:"foreignKey:PatentRequestID"`
}

func (r *PatentRequest) IsPending() bool {
	return r.State == RequestStatePending
}

func (r *PatentRequest) IsApproved() bool {
	return r.State == RequestStateApproved
}

func (r *PatentRequest) IsRejected() bool {
	return r.State == RequestStateRejected
}

func (r *PatentRequest) IsRejectedWithObservations() bool {
	return r.State == RequestStateRejectedWithObservations
}

// PatentRequestHistory rows are append-only: one per lifecycle transition,
// never updated. UserID is nullable so system-originated entries are allowed.
type PatentRequestHistory struct {
	ID              uint          `json:"id" gorm:"primaryKey"`
	PatentRequestID uint          `json:"patent_request_id" gorm:"not null;index"`
	UserID          *uint         `json:"user_id"`
	Action          HistoryAction `json:"action" gorm:"type:varchar(30);not null"`
	Observations    *string       `json:"observations,omitempty" gorm:"type:text"`
	CreatedAt       time.Time     `json:"created_at"`

	// Relationships
	Request PatentRequest `json:"-" gorm:"foreignKey:PatentRequestID"`
	User    *User         `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

func (h *PatentRequestHistory) HasObservations() bool {
	return h.Observations != nil && *h.Observations != ""
}
