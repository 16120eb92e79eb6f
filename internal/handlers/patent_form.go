// internal/handlers/patent_form.go
package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/munidigital/ventanilla-backend/internal/services"
	"github.com/munidigital/ventanilla-backend/internal/utils"
)

type PatentFormHandler struct {
	catalogService *services.CatalogService
}

func NewPatentFormHandler(catalogService *services.CatalogService) *PatentFormHandler {
	return &PatentFormHandler{
		catalogService: catalogService,
	}
}

// POST /funcionario/formularios
func (h *PatentFormHandler) CreateForm(c *gin.Context) {
	userID, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req services.CreatePatentFormRequest
	if err := c.ShouldBind(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	file, header, err := c.Request.FormFile("template_file")
	if err != nil {
		utils.BadRequestResponse(c, "Template file is required", nil)
		return
	}
	defer file.Close()

	form, err := h.catalogService.CreateForm(&req, file, header, userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{"form": form})
}

// PUT /funcionario/formularios/:id
func (h *PatentFormHandler) UpdateForm(c *gin.Context) {
	userID, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	formID, err := parseUintParam(c, "id")
	if err != nil {
		utils.BadRequestResponse(c, "Invalid form ID", nil)
		return
	}

	var req services.UpdatePatentFormRequest
	if err := c.ShouldBind(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	// Template replacement is optional
	file, header, err := c.Request.FormFile("template_file")
	if err == nil {
		defer file.Close()
	} else {
		file = nil
		header = nil
	}

	form, err := h.catalogService.UpdateForm(formID, userID, &req, file, header)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"form": form})
}

// DELETE /funcionario/formularios/:id
func (h *PatentFormHandler) DeleteForm(c *gin.Context) {
	userID, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	formID, err := parseUintParam(c, "id")
	if err != nil {
		utils.BadRequestResponse(c, "Invalid form ID", nil)
		return
	}

	if err := h.catalogService.DeleteForm(formID, userID); err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"message": "Formulario eliminado correctamente"})
}

// GET /funcionario/formularios
func (h *PatentFormHandler) ListForms(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	activeOnly := c.Query("active") == "true"

	forms, total, err := h.catalogService.ListForms(params, activeOnly)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	result := utils.CreatePaginationResult(forms, total, params)
	utils.PaginatedResponse(c, result)
}

// GET /formularios/:id/download
func (h *PatentFormHandler) DownloadTemplate(c *gin.Context) {
	formID, err := parseUintParam(c, "id")
	if err != nil {
		utils.BadRequestResponse(c, "Invalid form ID", nil)
		return
	}

	url, err := h.catalogService.TemplateDownloadURL(formID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"download_url": url})
}

func parseUintParam(c *gin.Context, name string) (uint, error) {
	value, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(value), nil
}
