// internal/services/admin_service.go
package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/munidigital/ventanilla-backend/internal/models"
	"github.com/munidigital/ventanilla-backend/internal/utils"
)

// AdminService covers administration of municipal accounts and the public
// portal taxonomy. All of it sits behind the admin role.
type AdminService struct {
	db *gorm.DB
}

type CreateOfficialRequest struct {
	Name       string `json:"name" validate:"required,min=2,max=255"`
	Email      string `json:"email" validate:"required,email,max=255"`
	Rut        string `json:"rut" validate:"omitempty,rut"`
	Password   string `json:"password" validate:"required,strong_password"`
	Role       string `json:"role" validate:"required,oneof=funcionario admin"`
	Department string `json:"department" validate:"required_if=Role funcionario,max=50"`
}

type UpdateOfficialRequest struct {
	Name       *string `json:"name" validate:"omitempty,min=2,max=255"`
	Department *string `json:"department" validate:"omitempty,max=50"`
	IsActive   *bool   `json:"is_active"`
}

type DepartmentRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=255"`
	Slug        string `json:"slug" validate:"required,min=2,max=255,lowercase"`
	Description string `json:"description" validate:"max=2000"`
	Icon        string `json:"icon" validate:"max=100"`
}

type CategoryRequest struct {
	DepartmentID uint   `json:"department_id" validate:"required"`
	Name         string `json:"name" validate:"required,min=2,max=255"`
	Slug         string `json:"slug" validate:"required,min=2,max=255,lowercase"`
	Description  string `json:"description" validate:"max=2000"`
}

type ProcedureRequest struct {
	CategoryID     uint   `json:"category_id" validate:"required"`
	Name           string `json:"name" validate:"required,min=2,max=255"`
	Slug           string `json:"slug" validate:"required,min=2,max=255,lowercase"`
	Description    string `json:"description" validate:"max=5000"`
	RequirementIDs []uint `json:"requirement_ids"`
}

type PortalRequirementRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=255"`
	Description string `json:"description" validate:"max=2000"`
}

func NewAdminService(db *gorm.DB) *AdminService {
	return &AdminService{db: db}
}

// ===== Municipal accounts =====

func (s *AdminService) CreateOfficial(req *CreateOfficialRequest) (*models.User, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	user := &models.User{
		Name:       req.Name,
		Email:      req.Email,
		Role:       models.UserRole(req.Role),
		Department: req.Department,
		IsActive:   true,
	}
	if req.Rut != "" {
		user.Rut = utils.FormatRut(req.Rut)
	}
	if err := user.SetPassword(req.Password); err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.db.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: email %s is already registered", ErrConflict, req.Email)
		}
		return nil, fmt.Errorf("failed to create official account: %w", err)
	}

	return user, nil
}

func (s *AdminService) UpdateOfficial(userID uint, req *UpdateOfficialRequest) (*models.User, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	var user models.User
	if err := s.db.Where("role IN ?", []models.UserRole{models.UserRoleFuncionario, models.UserRoleAdmin}).
		First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: official account %d", ErrNotFound, userID)
		}
		return nil, fmt.Errorf("failed to fetch official account: %w", err)
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Department != nil {
		updates["department"] = *req.Department
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	if len(updates) > 0 {
		if err := s.db.Model(&user).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update official account: %w", err)
		}
	}

	return &user, nil
}

func (s *AdminService) ListOfficials(params utils.PaginationParams) ([]models.User, int64, error) {
	query := s.db.Model(&models.User{}).
		Where("role IN ?", []models.UserRole{models.UserRoleFuncionario, models.UserRoleAdmin})

	if params.Search != "" {
		search := "%" + params.Search + "%"
		query = query.Where("name LIKE ? OR email LIKE ?", search, search)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count official accounts: %w", err)
	}

	var users []models.User
	query = utils.ApplySort(query, params, []string{"name", "email", "department", "created_at"})
	query = utils.ApplyPagination(query, params)
	if err := query.Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list official accounts: %w", err)
	}

	return users, total, nil
}

// ===== Portal taxonomy =====

func (s *AdminService) CreateDepartment(req *DepartmentRequest) (*models.Department, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	department := &models.Department{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		Icon:        req.Icon,
		IsActive:    true,
	}
	if err := s.db.Create(department).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: department slug %s already exists", ErrConflict, req.Slug)
		}
		return nil, fmt.Errorf("failed to create department: %w", err)
	}
	return department, nil
}

func (s *AdminService) UpdateDepartment(departmentID uint, req *DepartmentRequest) (*models.Department, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	var department models.Department
	if err := s.db.First(&department, departmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: department %d", ErrNotFound, departmentID)
		}
		return nil, fmt.Errorf("failed to fetch department: %w", err)
	}

	updates := map[string]interface{}{
		"name":        req.Name,
		"slug":        req.Slug,
		"description": req.Description,
		"icon":        req.Icon,
	}
	if err := s.db.Model(&department).Updates(updates).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: department slug %s already exists", ErrConflict, req.Slug)
		}
		return nil, fmt.Errorf("failed to update department: %w", err)
	}

	return &department, nil
}

// DeleteDepartment soft deletes the department and everything beneath it.
// The cascade is explicit so the full subtree disappears from the portal
// in one transaction.
func (s *AdminService) DeleteDepartment(departmentID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var department models.Department
		if err := tx.First(&department, departmentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: department %d", ErrNotFound, departmentID)
			}
			return fmt.Errorf("failed to fetch department: %w", err)
		}

		var categoryIDs []uint
		if err := tx.Model(&models.Category{}).
			Where("department_id = ?", departmentID).
			Pluck("id", &categoryIDs).Error; err != nil {
			return fmt.Errorf("failed to list categories: %w", err)
		}

		if len(categoryIDs) > 0 {
			if err := tx.Where("category_id IN ?", categoryIDs).Delete(&models.Procedure{}).Error; err != nil {
				return fmt.Errorf("failed to delete procedures: %w", err)
			}
			if err := tx.Where("department_id = ?", departmentID).Delete(&models.Category{}).Error; err != nil {
				return fmt.Errorf("failed to delete categories: %w", err)
			}
		}

		if err := tx.Delete(&department).Error; err != nil {
			return fmt.Errorf("failed to delete department: %w", err)
		}
		return nil
	})
}

func (s *AdminService) CreateCategory(req *CategoryRequest) (*models.Category, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	var department models.Department
	if err := s.db.First(&department, req.DepartmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: department %d", ErrNotFound, req.DepartmentID)
		}
		return nil, fmt.Errorf("failed to fetch department: %w", err)
	}

	category := &models.Category{
		DepartmentID: req.DepartmentID,
		Name:         req.Name,
		Slug:         req.Slug,
		Description:  req.Description,
	}
	if err := s.db.Create(category).Error; err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return category, nil
}

func (s *AdminService) UpdateCategory(categoryID uint, req *CategoryRequest) (*models.Category, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	var category models.Category
	if err := s.db.First(&category, categoryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: category %d", ErrNotFound, categoryID)
		}
		return nil, fmt.Errorf("failed to fetch category: %w", err)
	}

	updates := map[string]interface{}{
		"department_id": req.DepartmentID,
		"name":          req.Name,
		"slug":          req.Slug,
		"description":   req.Description,
	}
	if err := s.db.Model(&category).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update category: %w", err)
	}
	return &category, nil
}

func (s *AdminService) DeleteCategory(categoryID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var category models.Category
		if err := tx.First(&category, categoryID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: category %d", ErrNotFound, categoryID)
			}
			return fmt.Errorf("failed to fetch category: %w", err)
		}

		if err := tx.Where("category_id = ?", categoryID).Delete(&models.Procedure{}).Error; err != nil {
			return fmt.Errorf("failed to delete procedures: %w", err)
		}
		if err := tx.Delete(&category).Error; err != nil {
			return fmt.Errorf("failed to delete category: %w", err)
		}
		return nil
	})
}

func (s *AdminService) CreateProcedure(req *ProcedureRequest) (*models.Procedure, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	var category models.Category
	if err := s.db.First(&category, req.CategoryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: category %d", ErrNotFound, req.CategoryID)
		}
		return nil, fmt.Errorf("failed to fetch category: %w", err)
	}

	procedure := &models.Procedure{
		CategoryID:  req.CategoryID,
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(procedure).Error; err != nil {
			return fmt.Errorf("failed to create procedure: %w", err)
		}
		return s.replaceProcedureRequirements(tx, procedure, req.RequirementIDs)
	})
	if err != nil {
		return nil, err
	}
	return procedure, nil
}

func (s *AdminService) UpdateProcedure(procedureID uint, req *ProcedureRequest) (*models.Procedure, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	var procedure models.Procedure
	if err := s.db.First(&procedure, procedureID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: procedure %d", ErrNotFound, procedureID)
		}
		return nil, fmt.Errorf("failed to fetch procedure: %w", err)
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"category_id": req.CategoryID,
			"name":        req.Name,
			"slug":        req.Slug,
			"description": req.Description,
		}
		if err := tx.Model(&procedure).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update procedure: %w", err)
		}
		return s.replaceProcedureRequirements(tx, &procedure, req.RequirementIDs)
	})
	if err != nil {
		return nil, err
	}
	return &procedure, nil
}

func (s *AdminService) DeleteProcedure(procedureID uint) error {
	result := s.db.Delete(&models.Procedure{}, procedureID)
	if result.Error != nil {
		return fmt.Errorf("failed to delete procedure: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: procedure %d", ErrNotFound, procedureID)
	}
	return nil
}

func (s *AdminService) CreatePortalRequirement(req *PortalRequirementRequest) (*models.Requirement, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	requirement := &models.Requirement{
		Name:        req.Name,
		Description: req.Description,
	}
	if err := s.db.Create(requirement).Error; err != nil {
		return nil, fmt.Errorf("failed to create requirement: %w", err)
	}
	return requirement, nil
}

func (s *AdminService) UpdatePortalRequirement(requirementID uint, req *PortalRequirementRequest) (*models.Requirement, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	var requirement models.Requirement
	if err := s.db.First(&requirement, requirementID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: requirement %d", ErrNotFound, requirementID)
		}
		return nil, fmt.Errorf("failed to fetch requirement: %w", err)
	}

	updates := map[string]interface{}{
		"name":        req.Name,
		"description": req.Description,
	}
	if err := s.db.Model(&requirement).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update requirement: %w", err)
	}
	return &requirement, nil
}

func (s *AdminService) DeletePortalRequirement(requirementID uint) error {
	result := s.db.Delete(&models.Requirement{}, requirementID)
	if result.Error != nil {
		return fmt.Errorf("failed to delete requirement: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: requirement %d", ErrNotFound, requirementID)
	}
	return nil
}

func (s *AdminService) ListPortalRequirements() ([]models.Requirement, error) {
	var requirements []models.Requirement
	if err := s.db.Order("name ASC").Find(&requirements).Error; err != nil {
		return nil, fmt.Errorf("failed to list requirements: %w", err)
	}
	return requirements, nil
}

func (s *AdminService) replaceProcedureRequirements(tx *gorm.DB, procedure *models.Procedure, requirementIDs []uint) error {
	if requirementIDs == nil {
		return nil
	}

	requirements := make([]models.Requirement, 0, len(requirementIDs))
	if len(requirementIDs) > 0 {
		if err := tx.Where("id IN ?", requirementIDs).Find(&requirements).Error; err != nil {
			return fmt.Errorf("failed to fetch requirements: %w", err)
		}
		if len(requirements) != len(requirementIDs) {
			return fmt.Errorf("%w: one or more requirements do not exist", ErrNotFound)
		}
	}

	if err := tx.Model(procedure).Association("Requirements").Replace(requirements); err != nil {
		return fmt.Errorf("failed to link requirements: %w", err)
	}
	return nil
}
