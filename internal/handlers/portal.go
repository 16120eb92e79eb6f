// internal/handlers/portal.go
package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/munidigital/ventanilla-backend/internal/services"
	"github.com/munidigital/ventanilla-backend/internal/utils"
)

// PortalHandler serves the public procedure catalog. None of these routes
// require authentication.
type PortalHandler struct {
	portalService *services.PortalService
}

func NewPortalHandler(portalService *services.PortalService) *PortalHandler {
	return &PortalHandler{
		portalService: portalService,
	}
}

// GET /portal/departamentos
func (h *PortalHandler) ListDepartments(c *gin.Context) {
	departments, err := h.portalService.ListDepartments()
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{"departments": departments})
}

// GET /portal/departamentos/:slug
func (h *PortalHandler) GetDepartment(c *gin.Context) {
	department, err := h.portalService.GetDepartmentBySlug(c.Param("slug"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"department": department})
}

// GET /portal/departamentos/:slug/:category
func (h *PortalHandler) GetCategory(c *gin.Context) {
	category, err := h.portalService.GetCategory(c.Param("slug"), c.Param("category"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"category": category})
}

// GET /portal/departamentos/:slug/:category/:procedure
func (h *PortalHandler) GetProcedure(c *gin.Context) {
	procedure, err := h.portalService.GetProcedure(
		c.Param("slug"), c.Param("category"), c.Param("procedure"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"procedure": procedure})
}

// GET /portal/buscar?q=...
func (h *PortalHandler) Search(c *gin.Context) {
	term := c.Query("q")
	if len(term) < 2 {
		utils.BadRequestResponse(c, "Search term must be at least 2 characters", nil)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	results, err := h.portalService.Search(term, limit)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, results)
}
