// internal/models/common.go
package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// Enums
type UserRole string

const (
	UserRoleContribuyente UserRole = "contribuyente"
	UserRoleFuncionario   UserRole = "funcionario"
	UserRoleAdmin         UserRole = "admin"
)

// Department affiliations for funcionarios. Rentas is the only department
// with a review workflow today; the others only publish portal content.
const (
	DepartmentRentas = "rentas"
)

type RequestState string

const (
	RequestStatePending                  RequestState = "pending"
	RequestStateApproved                 RequestState = "approved"
	RequestStateRejected                 RequestState = "rejected"
	RequestStateRejectedWithObservations RequestState = "rejected_with_observations"
)

func (s RequestState) IsTerminal() bool {
	switch s {
	case RequestStateApproved, RequestStateRejected, RequestStateRejectedWithObservations:
		return true
	}
	return false
}

func (s RequestState) Valid() bool {
	return s == RequestStatePending || s.IsTerminal()
}

type HistoryAction string

const (
	HistoryActionCreated                  HistoryAction = "created"
	HistoryActionApproved                 HistoryAction = "approved"
	HistoryActionRejected                 HistoryAction = "rejected"
	HistoryActionRejectedWithObservations HistoryAction = "rejected_with_observations"
)

// Transition is the single place where the request lifecycle is defined.
// The only legal moves are pending -> approved | rejected |
// rejected_with_observations; terminal states accept no further action.
func Transition(from RequestState, action HistoryAction) (RequestState, error) {
	if from != RequestStatePending {
		return from, fmt.Errorf("no transition out of state %q", from)
	}

	switch action {
	case HistoryActionApproved:
		return RequestStateApproved, nil
	case HistoryActionRejected:
		return RequestStateRejected, nil
	case HistoryActionRejectedWithObservations:
		return RequestStateRejectedWithObservations, nil
	}

	return from, fmt.Errorf("unknown review action %q", action)
}

type RequirementCategory string

const (
	RequirementCategoryMunicipal   RequirementCategory = "municipal"
	RequirementCategorySanitario   RequirementCategory = "sanitario"
	RequirementCategoryLegal       RequirementCategory = "legal"
	RequirementCategoryProfesional RequirementCategory = "profesional"
	RequirementCategoryFinanciero  RequirementCategory = "financiero"
	RequirementCategoryTransporte  RequirementCategory = "transporte"
	RequirementCategoryEducacion   RequirementCategory = "educacion"
	RequirementCategorySeguridad   RequirementCategory = "seguridad"
	RequirementCategoryOtros       RequirementCategory = "otros"
)
