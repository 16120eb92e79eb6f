// internal/models/portal.go
package models

// Public information portal hierarchy:
// department -> categories -> procedures -> requirements.

type Department struct {
	BaseModel
	Name        string `json:"name" gorm:"size:255;not null"`
	Slug        string `json:"slug" gorm:"uniqueIndex;size:255;not null"`
	Description string `json:"description,omitempty" gorm:"type:text"`
	Icon        string `json:"icon,omitempty" gorm:"size:100"`
	IsActive    bool   `json:"is_active" gorm:"default:true"`

	// Relationships
	Categories []Category `json:"categories,omitempty" gorm:"foreignKey:DepartmentID"`
}

type Category struct {
	BaseModel
	DepartmentID uint   `json:"department_id" gorm:"not null;index"`
	Name         string `json:"name" gorm:"size:255;not null"`
	Slug         string `json:"slug" gorm:"size:255;not null;index"`
	Description  string `json:"description,omitempty" gorm:"type:text"`

	// Relationships
	Department Department  `json:"department,omitempty" gorm:"foreignKey:DepartmentID"`
	Procedures []Procedure `json:"procedures,omitempty" gorm:"foreignKey:CategoryID"`
}

type Procedure struct {
	BaseModel
	CategoryID  uint   `json:"category_id" gorm:"not null;index"`
	Name        string `json:"name" gorm:"size:255;not null"`
	Slug        string `json:"slug" gorm:"size:255;not null;index"`
	Description string `json:"description,omitempty" gorm:"type:text"`

	// Relationships
	Category     Category      `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
	Requirements []Requirement `json:"requirements,omitempty" gorm:"many2many:procedure_requirements"`
}

// Requirement is portal content (what a procedure asks for); distinct from
// PatentRequirement, which is attached to patent approvals.
type Requirement struct {
	BaseModel
	Name        string `json:"name" gorm:"size:255;not null"`
	Description string `json:"description,omitempty" gorm:"type:text"`

	// Relationships
	Procedures []Procedure `json:"-" gorm:"many2many:procedure_requirements"`
}
