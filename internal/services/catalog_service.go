// internal/services/catalog_service.go
package services

import (
	"errors"
	"fmt"
	"mime/multipart"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/munidigital/ventanilla-backend/internal/models"
	"github.com/munidigital/ventanilla-backend/internal/utils"
)

// CatalogService manages the patent form and requirement catalogs that
// funcionarios attach to approved requests.
type CatalogService struct {
	db      *gorm.DB
	storage *StorageService
}

type CreatePatentFormRequest struct {
	Name        string `form:"name" validate:"required,min=3,max=255"`
	Description string `form:"description" validate:"max=1000"`
}

type UpdatePatentFormRequest struct {
	Name        *string `form:"name" validate:"omitempty,min=3,max=255"`
	Description *string `form:"description" validate:"omitempty,max=1000"`
	IsActive    *bool   `form:"is_active"`
}

type CreatePatentRequirementRequest struct {
	Code          string  `json:"code" validate:"required,min=2,max=50"`
	Name          string  `json:"name" validate:"required,min=3,max=255"`
	Description   string  `json:"description" validate:"max=2000"`
	Category      string  `json:"category" validate:"required,oneof=municipal sanitario legal profesional financiero transporte educacion seguridad otros"`
	WhereToObtain string  `json:"where_to_obtain" validate:"required,max=255"`
	ObtainAddress string  `json:"obtain_address" validate:"max=255"`
	ObtainPhone   string  `json:"obtain_phone" validate:"max=50"`
	InfoURL       string  `json:"info_url" validate:"omitempty,url,max=512"`
	ValidityDays  *int    `json:"validity_days" validate:"omitempty,min=1,max=3650"`
}

type UpdatePatentRequirementRequest struct {
	Name          *string `json:"name" validate:"omitempty,min=3,max=255"`
	Description   *string `json:"description" validate:"omitempty,max=2000"`
	Category      *string `json:"category" validate:"omitempty,oneof=municipal sanitario legal profesional financiero transporte educacion seguridad otros"`
	WhereToObtain *string `json:"where_to_obtain" validate:"omitempty,max=255"`
	ObtainAddress *string `json:"obtain_address" validate:"omitempty,max=255"`
	ObtainPhone   *string `json:"obtain_phone" validate:"omitempty,max=50"`
	InfoURL       *string `json:"info_url" validate:"omitempty,url,max=512"`
	ValidityDays  *int    `json:"validity_days" validate:"omitempty,min=1,max=3650"`
	IsActive      *bool   `json:"is_active"`
}

func NewCatalogService(db *gorm.DB, storage *StorageService) *CatalogService {
	return &CatalogService{db: db, storage: storage}
}

// ===== Patent forms =====

func (s *CatalogService) CreateForm(req *CreatePatentFormRequest, file multipart.File, header *multipart.FileHeader, creatorID uint) (*models.PatentForm, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	upload, err := s.storage.UploadFile(file, header, s.storage.TemplateUploadOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to store template file: %w", err)
	}

	form := &models.PatentForm{
		Name:         req.Name,
		Description:  req.Description,
		TemplateFile: upload.Key,
		IsActive:     true,
		CreatedBy:    creatorID,
	}

	if err := s.db.Create(form).Error; err != nil {
		// Best effort cleanup of the orphaned object
		if delErr := s.storage.DeleteFile(upload.Key); delErr != nil {
			logrus.WithError(delErr).WithField("key", upload.Key).Error("Failed to remove orphaned template file")
		}
		return nil, fmt.Errorf("failed to create patent form: %w", err)
	}

	return form, nil
}

func (s *CatalogService) UpdateForm(formID, actorID uint, req *UpdatePatentFormRequest, file multipart.File, header *multipart.FileHeader) (*models.PatentForm, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	form, err := s.getForm(formID)
	if err != nil {
		return nil, err
	}
	if form.CreatedBy != actorID {
		return nil, fmt.Errorf("%w: only the creator can modify this form", ErrForbidden)
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	oldKey := ""
	if file != nil && header != nil {
		upload, err := s.storage.UploadFile(file, header, s.storage.TemplateUploadOptions())
		if err != nil {
			return nil, fmt.Errorf("failed to store template file: %w", err)
		}
		updates["template_file"] = upload.Key
		oldKey = form.TemplateFile
	}

	if len(updates) > 0 {
		if err := s.db.Model(form).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update patent form: %w", err)
		}
	}

	if oldKey != "" {
		if err := s.storage.DeleteFile(oldKey); err != nil {
			logrus.WithError(err).WithField("key", oldKey).Error("Failed to remove replaced template file")
		}
	}

	return form, nil
}

func (s *CatalogService) DeleteForm(formID, actorID uint) error {
	form, err := s.getForm(formID)
	if err != nil {
		return err
	}
	if form.CreatedBy != actorID {
		return fmt.Errorf("%w: only the creator can delete this form", ErrForbidden)
	}

	// Soft delete keeps attachment history on reviewed requests intact.
	if err := s.db.Delete(form).Error; err != nil {
		return fmt.Errorf("failed to delete patent form: %w", err)
	}
	return nil
}

func (s *CatalogService) GetForm(formID uint) (*models.PatentForm, error) {
	return s.getForm(formID)
}

func (s *CatalogService) ListForms(params utils.PaginationParams, activeOnly bool) ([]models.PatentForm, int64, error) {
	query := s.db.Model(&models.PatentForm{})
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	if params.Search != "" {
		search := "%" + params.Search + "%"
		query = query.Where("name LIKE ? OR description LIKE ?", search, search)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count patent forms: %w", err)
	}

	var forms []models.PatentForm
	query = utils.ApplySort(query, params, []string{"name", "created_at"})
	query = utils.ApplyPagination(query, params)
	if err := query.Find(&forms).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list patent forms: %w", err)
	}

	return forms, total, nil
}

func (s *CatalogService) getForm(formID uint) (*models.PatentForm, error) {
	var form models.PatentForm
	if err := s.db.First(&form, formID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: patent form %d", ErrNotFound, formID)
		}
		return nil, fmt.Errorf("failed to fetch patent form: %w", err)
	}
	return &form, nil
}

// ===== Patent requirements =====

func (s *CatalogService) CreateRequirement(req *CreatePatentRequirementRequest, creatorID uint) (*models.PatentRequirement, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	requirement := &models.PatentRequirement{
		Code:          req.Code,
		Name:          req.Name,
		Description:   req.Description,
		Category:      models.RequirementCategory(req.Category),
		WhereToObtain: req.WhereToObtain,
		ObtainAddress: req.ObtainAddress,
		ObtainPhone:   req.ObtainPhone,
		InfoURL:       req.InfoURL,
		ValidityDays:  req.ValidityDays,
		IsActive:      true,
		CreatedBy:     creatorID,
	}

	if err := s.db.Create(requirement).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: requirement code %s already exists", ErrConflict, req.Code)
		}
		return nil, fmt.Errorf("failed to create patent requirement: %w", err)
	}

	return requirement, nil
}

func (s *CatalogService) UpdateRequirement(requirementID, actorID uint, req *UpdatePatentRequirementRequest) (*models.PatentRequirement, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	requirement, err := s.getRequirement(requirementID)
	if err != nil {
		return nil, err
	}
	if requirement.CreatedBy != actorID {
		return nil, fmt.Errorf("%w: only the creator can modify this requirement", ErrForbidden)
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Category != nil {
		updates["category"] = *req.Category
	}
	if req.WhereToObtain != nil {
		updates["where_to_obtain"] = *req.WhereToObtain
	}
	if req.ObtainAddress != nil {
		updates["obtain_address"] = *req.ObtainAddress
	}
	if req.ObtainPhone != nil {
		updates["obtain_phone"] = *req.ObtainPhone
	}
	if req.InfoURL != nil {
		updates["info_url"] = *req.InfoURL
	}
	if req.ValidityDays != nil {
		updates["validity_days"] = *req.ValidityDays
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	if len(updates) > 0 {
		if err := s.db.Model(requirement).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update patent requirement: %w", err)
		}
	}

	return requirement, nil
}

func (s *CatalogService) DeleteRequirement(requirementID, actorID uint) error {
	requirement, err := s.getRequirement(requirementID)
	if err != nil {
		return err
	}
	if requirement.CreatedBy != actorID {
		return fmt.Errorf("%w: only the creator can delete this requirement", ErrForbidden)
	}

	if err := s.db.Delete(requirement).Error; err != nil {
		return fmt.Errorf("failed to delete patent requirement: %w", err)
	}
	return nil
}

func (s *CatalogService) GetRequirement(requirementID uint) (*models.PatentRequirement, error) {
	return s.getRequirement(requirementID)
}

func (s *CatalogService) ListRequirements(params utils.PaginationParams, category string, activeOnly bool) ([]models.PatentRequirement, int64, error) {
	query := s.db.Model(&models.PatentRequirement{})
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	if category != "" {
		query = query.Where("category = ?", category)
	}
	if params.Search != "" {
		search := "%" + params.Search + "%"
		query = query.Where("name LIKE ? OR code LIKE ? OR description LIKE ?", search, search, search)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count patent requirements: %w", err)
	}

	var requirements []models.PatentRequirement
	query = utils.ApplySort(query, params, []string{"code", "name", "category", "created_at"})
	query = utils.ApplyPagination(query, params)
	if err := query.Find(&requirements).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list patent requirements: %w", err)
	}

	return requirements, total, nil
}

// TemplateDownloadURL resolves the stored template key into a link the
// contribuyente can download from.
func (s *CatalogService) TemplateDownloadURL(formID uint) (string, error) {
	form, err := s.getForm(formID)
	if err != nil {
		return "", err
	}
	if !form.IsActive {
		return "", fmt.Errorf("%w: patent form %d", ErrNotFound, formID)
	}
	return s.storage.GeneratePresignedURL(form.TemplateFile, 15*time.Minute)
}

func (s *CatalogService) getRequirement(requirementID uint) (*models.PatentRequirement, error) {
	var requirement models.PatentRequirement
	if err := s.db.First(&requirement, requirementID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: patent requirement %d", ErrNotFound, requirementID)
		}
		return nil, fmt.Errorf("failed to fetch patent requirement: %w", err)
	}
	return &requirement, nil
}
