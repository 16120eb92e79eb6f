// internal/services/portal_service.go
package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/munidigital/ventanilla-backend/internal/models"
)

// PortalService serves the public, read-only view of the municipal
// procedure catalog. No authentication is required for any of it.
type PortalService struct {
	db *gorm.DB
}

type DepartmentSummary struct {
	models.Department
	ProcedureCount int64 `json:"procedure_count"`
}

type PortalSearchResult struct {
	Departments []models.Department `json:"departments"`
	Procedures  []models.Procedure  `json:"procedures"`
}

func NewPortalService(db *gorm.DB) *PortalService {
	return &PortalService{db: db}
}

// ListDepartments returns active departments with how many procedures
// each one offers.
func (s *PortalService) ListDepartments() ([]DepartmentSummary, error) {
	var departments []models.Department
	if err := s.db.Where("is_active = ?", true).
		Order("name ASC").
		Find(&departments).Error; err != nil {
		return nil, fmt.Errorf("failed to list departments: %w", err)
	}

	summaries := make([]DepartmentSummary, 0, len(departments))
	for _, department := range departments {
		var count int64
		err := s.db.Model(&models.Procedure{}).
			Joins("JOIN categories ON categories.id = procedures.category_id").
			Where("categories.department_id = ? AND categories.deleted_at IS NULL", department.ID).
			Count(&count).Error
		if err != nil {
			return nil, fmt.Errorf("failed to count procedures for department %s: %w", department.Slug, err)
		}
		summaries = append(summaries, DepartmentSummary{Department: department, ProcedureCount: count})
	}

	return summaries, nil
}

func (s *PortalService) GetDepartmentBySlug(slug string) (*models.Department, error) {
	var department models.Department
	err := s.db.Where("slug = ? AND is_active = ?", slug, true).
		Preload("Categories", func(db *gorm.DB) *gorm.DB {
			return db.Order("categories.name ASC")
		}).
		Preload("Categories.Procedures", func(db *gorm.DB) *gorm.DB {
			return db.Order("procedures.name ASC")
		}).
		First(&department).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: department %s", ErrNotFound, slug)
		}
		return nil, fmt.Errorf("failed to fetch department: %w", err)
	}
	return &department, nil
}

func (s *PortalService) GetCategory(departmentSlug, categorySlug string) (*models.Category, error) {
	var category models.Category
	err := s.db.
		Joins("JOIN departments ON departments.id = categories.department_id").
		Where("departments.slug = ? AND departments.is_active = ? AND categories.slug = ?",
			departmentSlug, true, categorySlug).
		Preload("Department").
		Preload("Procedures", func(db *gorm.DB) *gorm.DB {
			return db.Order("procedures.name ASC")
		}).
		First(&category).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: category %s/%s", ErrNotFound, departmentSlug, categorySlug)
		}
		return nil, fmt.Errorf("failed to fetch category: %w", err)
	}
	return &category, nil
}

// GetProcedure resolves a procedure by the full slug path and includes the
// documents the contribuyente needs to bring.
func (s *PortalService) GetProcedure(departmentSlug, categorySlug, procedureSlug string) (*models.Procedure, error) {
	var procedure models.Procedure
	err := s.db.
		Joins("JOIN categories ON categories.id = procedures.category_id").
		Joins("JOIN departments ON departments.id = categories.department_id").
		Where("departments.slug = ? AND departments.is_active = ? AND categories.slug = ? AND procedures.slug = ?",
			departmentSlug, true, categorySlug, procedureSlug).
		Preload("Category.Department").
		Preload("Requirements").
		First(&procedure).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: procedure %s/%s/%s", ErrNotFound, departmentSlug, categorySlug, procedureSlug)
		}
		return nil, fmt.Errorf("failed to fetch procedure: %w", err)
	}
	return &procedure, nil
}

// Search matches departments and procedures by name or description.
func (s *PortalService) Search(term string, limit int) (*PortalSearchResult, error) {
	if limit < 1 || limit > 50 {
		limit = 20
	}
	pattern := "%" + term + "%"

	result := &PortalSearchResult{}

	err := s.db.Where("is_active = ?", true).
		Where("name LIKE ? OR description LIKE ?", pattern, pattern).
		Limit(limit).
		Find(&result.Departments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search departments: %w", err)
	}

	err = s.db.
		Joins("JOIN categories ON categories.id = procedures.category_id").
		Joins("JOIN departments ON departments.id = categories.department_id").
		Where("departments.is_active = ?", true).
		Where("procedures.name LIKE ? OR procedures.description LIKE ?", pattern, pattern).
		Preload("Category.Department").
		Limit(limit).
		Find(&result.Procedures).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search procedures: %w", err)
	}

	return result, nil
}
