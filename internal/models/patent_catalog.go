// internal/models/patent_catalog.go
package models

import (
	"time"
)

// PatentForm is a downloadable form template managed by rentas funcionarios.
// TemplateFile holds the storage object key, not a URL.
type PatentForm struct {
	BaseModel
	Name         string `json:"name" gorm:"size:255;not null"`
	Description  string `json:"description,omitempty" gorm:"size:1000"`
	TemplateFile string `json:"template_file" gorm:"size:512;not null"`
	IsActive     bool   `json:"is_active" gorm:"default:true;index"`
	CreatedBy    uint   `json:"created_by" gorm:"not null"`

	// Relationships
	Creator  User                `json:"creator,omitempty" gorm:"foreignKey:CreatedBy"`
	Requests []PatentRequestForm `json:"-" gorm:"foreignKey:PatentFormID"`
}

// PatentRequirement describes a document the contribuyente must obtain
// elsewhere (no file is attached, only instructions).
type PatentRequirement struct {
	BaseModel
	Code          string              `json:"code" gorm:"uniqueIndex;size:50;not null"`
	Name          string              `json:"name" gorm:"size:255;not null"`
	Description   string              `json:"description,omitempty" gorm:"type:text"`
	Category      RequirementCategory `json:"category" gorm:"type:varchar(20);not null;default:'otros';index"`
	WhereToObtain string              `json:"where_to_obtain" gorm:"size:255;not null"`
	ObtainAddress string              `json:"obtain_address,omitempty" gorm:"size:255"`
	ObtainPhone   string              `json:"obtain_phone,omitempty" gorm:"size:50"`
	InfoURL       string              `json:"info_url,omitempty" gorm:"size:512"`
	ValidityDays  *int                `json:"validity_days,omitempty"`
	IsActive      bool                `json:"is_active" gorm:"default:true;index"`
	CreatedBy     uint                `json:"created_by" gorm:"not null"`

	// Relationships
	Creator  User                       `json:"creator,omitempty" gorm:"foreignKey:CreatedBy"`
	Requests []PatentRequestRequirement `json:"-" gorm:"foreignKey:PatentRequirementID"`
}

// Join records created in bulk during approval; insert-only.
type PatentRequestForm struct {
	PatentRequestID uint      `json:"patent_request_id" gorm:"primaryKey;autoIncrement:false"`
	PatentFormID    uint      `json:"patent_form_id" gorm:"primaryKey;autoIncrement:false"`
	AttachedBy      uint      `json:"attached_by" gorm:"not null"`
	CreatedAt       time.Time `json:"created_at"`

	// Relationships
	Request    PatentRequest `json:"-" gorm:"foreignKey:PatentRequestID"`
	PatentForm PatentForm    `json:"patent_form,omitempty" gorm:"foreignKey:PatentFormID"`
	Attacher   User          `json:"-" gorm:"foreignKey:AttachedBy"`
}

type PatentRequestRequirement struct {
	PatentRequestID     uint      `json:"patent_request_id" gorm:"primaryKey;autoIncrement:false"`
	PatentRequirementID uint      `json:"patent_requirement_id" gorm:"primaryKey;autoIncrement:false"`
	Observations        *string   `json:"observations,omitempty" gorm:"type:text"`
	AttachedBy          uint      `json:"attached_by" gorm:"not null"`
	CreatedAt           time.Time `json:"created_at"`

	// Relationships
	Request           PatentRequest     `json:"-" gorm:"foreignKey:PatentRequestID"`
	PatentRequirement PatentRequirement `json:"patent_requirement,omitempty" gorm:"foreignKey:PatentRequirementID"`
	Attacher          User              `json:"-" gorm:"foreignKey:AttachedBy"`
}
