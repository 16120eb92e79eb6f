// internal/handlers/patent_requirement.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/munidigital/ventanilla-backend/internal/services"
	"github.com/munidigital/ventanilla-backend/internal/utils"
)

type PatentRequirementHandler struct {
	catalogService *services.CatalogService
}

func NewPatentRequirementHandler(catalogService *services.CatalogService) *PatentRequirementHandler {
	return &PatentRequirementHandler{
		catalogService: catalogService,
	}
}

// POST /funcionario/requisitos
func (h *PatentRequirementHandler) CreateRequirement(c *gin.Context) {
	userID, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req services.CreatePatentRequirementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	requirement, err := h.catalogService.CreateRequirement(&req, userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{"requirement": requirement})
}

// PUT /funcionario/requisitos/:id
func (h *PatentRequirementHandler) UpdateRequirement(c *gin.Context) {
	userID, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	requirementID, err := parseUintParam(c, "id")
	if err != nil {
		utils.BadRequestResponse(c, "Invalid requirement ID", nil)
		return
	}

	var req services.UpdatePatentRequirementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	requirement, err := h.catalogService.UpdateRequirement(requirementID, userID, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"requirement": requirement})
}

// DELETE /funcionario/requisitos/:id
func (h *PatentRequirementHandler) DeleteRequirement(c *gin.Context) {
	userID, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	requirementID, err := parseUintParam(c, "id")
	if err != nil {
		utils.BadRequestResponse(c, "Invalid requirement ID", nil)
		return
	}

	if err := h.catalogService.DeleteRequirement(requirementID, userID); err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"message": "Requisito eliminado correctamente"})
}

// GET /funcionario/requisitos
func (h *PatentRequirementHandler) ListRequirements(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	category := c.Query("category")
	activeOnly := c.Query("active") == "true"

	requirements, total, err := h.catalogService.ListRequirements(params, category, activeOnly)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	result := utils.CreatePaginationResult(requirements, total, params)
	utils.PaginatedResponse(c, result)
}

// GET /funcionario/requisitos/:id
func (h *PatentRequirementHandler) GetRequirement(c *gin.Context) {
	requirementID, err := parseUintParam(c, "id")
	if err != nil {
		utils.BadRequestResponse(c, "Invalid requirement ID", nil)
		return
	}

	requirement, err := h.catalogService.GetRequirement(requirementID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"requirement": requirement})
}
