// internal/handlers/admin.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/munidigital/ventanilla-backend/internal/services"
	"github.com/munidigital/ventanilla-backend/internal/utils"
)

type AdminHandler struct {
	adminService *services.AdminService
}

func NewAdminHandler(adminService *services.AdminService) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
	}
}

// ===== Official accounts =====

// POST /admin/funcionarios
func (h *AdminHandler) CreateOfficial(c *gin.Context) {
	var req services.CreateOfficialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	user, err := h.adminService.CreateOfficial(&req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{"user": user})
}

// PUT /admin/funcionarios/:id
func (h *AdminHandler) UpdateOfficial(c *gin.Context) {
	userID, err := parseUintParam(c, "id")
	if err != nil {
		utils.BadRequestResponse(c, "Invalid user ID", nil)
		return
	}

	var req services.UpdateOfficialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	user, err := h.adminService.UpdateOfficial(userID, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"user": user})
}

// GET /admin/funcionarios
func (h *AdminHandler) ListOfficials(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	users, total, err := h.adminService.ListOfficials(params)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	result := utils.CreatePaginationResult(users, total, params)
	utils.PaginatedResponse(c, result)
}

// ===== Portal taxonomy =====

// POST /admin/departamentos
func (h *AdminHandler) CreateDepartment(c *gin.Context) {
	var req services.DepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	department, err := h.adminService.CreateDepartment(&req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{"department": department})
}

// PUT /admin/departamentos/:id
func (h *AdminHandler) UpdateDepartment(c *gin.Context) {
	departmentID, err := parseUintParam(c, "id")
	if err != nil {
		utils.BadRequestResponse(c, "Invalid department ID", nil)
		return
	}

	var req services.DepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	department, err := h.adminService.UpdateDepartment(departmentID, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"department": department})
}

// DELETE /admin/departamentos/:id
func (h *AdminHandler) DeleteDepartment(c *gin.Context) {
	departmentID, err := parseUintParam(c, "id")
	if err != nil {
		utils.BadRequestResponse(c, "Invalid department ID", nil)
		return
	}

	if err := h.adminService.DeleteDepartment(departmentID); err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"message": "Departamento eliminado correctamente"})
}

// POST /admin/categorias
func (h *AdminHandler) CreateCategory(c *gin.Context) {
	var req services.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	category, err := h.adminService.CreateCategory(&req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{"category": category})
}

// PUT /admin/categorias/:id
func (h *AdminHandler) UpdateCategory(c *gin.Context) {
	categoryID, err := parseUintParam(c, "id")
	if err != nil {
		utils.BadRequestResponse(c, "Invalid category ID", nil)
		return
	}

	var req services.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	category, err := h.adminService.UpdateCategory(categoryID, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"category": category})
}

// DELETE /admin/categorias/:id
func (h *AdminHandler) DeleteCategory(c *gin.Context) {
	categoryID, err := parseUintParam(c, "id")
	if err != nil {
		utils.BadRequestResponse(c, "Invalid category ID", nil)
		return
	}

	if err := h.adminService.DeleteCategory(categoryID); err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"message": "Categoría eliminada correctamente"})
}

// POST /admin/tramites
func (h *AdminHandler) CreateProcedure(c *gin.Context) {
	var req services.ProcedureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	procedure, err := h.adminService.CreateProcedure(&req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{"procedure": procedure})
}

// PUT /admin/tramites/:id
func (h *AdminHandler) UpdateProcedure(c *gin.Context) {
	procedureID, err := parseUintParam(c, "id")
	if err != nil {
		utils.BadRequestResponse(c, "Invalid procedure ID", nil)
		return
	}

	var req services.ProcedureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	procedure, err := h.adminService.UpdateProcedure(procedureID, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"procedure": procedure})
}

// DELETE /admin/tramites/:id
func (h *AdminHandler) DeleteProcedure(c *gin.Context) {
	procedureID, err := parseUintParam(c, "id")
	if err != nil {
		utils.BadRequestResponse(c, "Invalid procedure ID", nil)
		return
	}

	if err := h.adminService.DeleteProcedure(procedureID); err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"message": "Trámite eliminado correctamente"})
}

// POST /admin/requisitos
func (h *AdminHandler) CreatePortalRequirement(c *gin.Context) {
	var req services.PortalRequirementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	requirement, err := h.adminService.CreatePortalRequirement(&req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{"requirement": requirement})
}

// PUT /admin/requisitos/:id
func (h *AdminHandler) UpdatePortalRequirement(c *gin.Context) {
	requirementID, err := parseUintParam(c, "id")
	if err != nil {
		utils.BadRequestResponse(c, "Invalid requirement ID", nil)
		return
	}

	var req services.PortalRequirementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	requirement, err := h.adminService.UpdatePortalRequirement(requirementID, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"requirement": requirement})
}

// DELETE /admin/requisitos/:id
func (h *AdminHandler) DeletePortalRequirement(c *gin.Context) {
	requirementID, err := parseUintParam(c, "id")
	if err != nil {
		utils.BadRequestResponse(c, "Invalid requirement ID", nil)
		return
	}

	if err := h.adminService.DeletePortalRequirement(requirementID); err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"message": "Requisito eliminado correctamente"})
}

// GET /admin/requisitos
func (h *AdminHandler) ListPortalRequirements(c *gin.Context) {
	requirements, err := h.adminService.ListPortalRequirements()
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{"requirements": requirements})
}
