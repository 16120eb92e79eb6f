// internal/handlers/patent_request.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/munidigital/ventanilla-backend/internal/models"
	"github.com/munidigital/ventanilla-backend/internal/services"
	"github.com/munidigital/ventanilla-backend/internal/utils"
)

type PatentRequestHandler struct {
	patentService *services.PatentService
	statsService  *services.StatsService
}

func NewPatentRequestHandler(patentService *services.PatentService, statsService *services.StatsService) *PatentRequestHandler {
	return &PatentRequestHandler{
		patentService: patentService,
		statsService:  statsService,
	}
}

func actorFromContext(c *gin.Context) (*models.User, bool) {
	userID, exists := utils.GetUserIDFromContext(c)
	if !exists {
		return nil, false
	}
	role, _ := utils.GetUserRoleFromContext(c)

	actor := &models.User{Role: models.UserRole(role)}
	actor.ID = userID
	return actor, true
}

// ===== Contribuyente endpoints =====

// POST /contribuyente/patentes
func (h *PatentRequestHandler) CreateRequest(c *gin.Context) {
	userID, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req services.CreatePatentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	request, err := h.patentService.CreateRequest(userID, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": "Solicitud de patente creada correctamente",
		"request": request,
	})
}

// GET /contribuyente/patentes
func (h *PatentRequestHandler) ListMyRequests(c *gin.Context) {
	userID, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	params := utils.GetPaginationParams(c)
	searchParams := services.PatentSearchParams{
		PaginationParams: params,
		OwnerID:          &userID,
	}
	if state := c.Query("state"); state != "" {
		requestState := models.RequestState(state)
		searchParams.State = &requestState
	}

	requests, total, err := h.patentService.SearchRequests(searchParams)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	pending, err := h.patentService.CountPendingForOwner(userID)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	result := utils.CreatePaginationResult(requests, total, params)
	utils.SuccessResponseWithMeta(c, result, gin.H{
		"pending_count": pending,
		"pending_limit": h.patentService.MaxPendingRequests(),
	})
}

// GET /contribuyente/patentes/:code
func (h *PatentRequestHandler) GetMyRequest(c *gin.Context) {
	actor, exists := actorFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	request, err := h.patentService.GetRequestByCode(c.Param("code"), actor)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"request": request})
}

// ===== Funcionario (rentas) endpoints =====

// GET /funcionario/patentes
func (h *PatentRequestHandler) ListRequests(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	searchParams := services.PatentSearchParams{
		PaginationParams: params,
		Rut:              c.Query("rut"),
		Code:             c.Query("code"),
	}
	if state := c.Query("state"); state != "" {
		requestState := models.RequestState(state)
		searchParams.State = &requestState
	}

	requests, total, err := h.patentService.SearchRequests(searchParams)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	result := utils.CreatePaginationResult(requests, total, params)
	utils.PaginatedResponse(c, result)
}

// GET /funcionario/patentes/:code
func (h *PatentRequestHandler) GetRequest(c *gin.Context) {
	actor, exists := actorFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	request, err := h.patentService.GetRequestByCode(c.Param("code"), actor)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"request": request})
}

// PUT /funcionario/patentes/:code/approve
//
// An empty body approves without attachments; a body with form or
// requirement IDs attaches those documents in the same transaction.
func (h *PatentRequestHandler) ApproveRequest(c *gin.Context) {
	reviewerID, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}
	code := c.Param("code")

	var req services.ApproveRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request body", err.Error())
			return
		}
	}

	var (
		request *models.PatentRequest
		err     error
	)
	if len(req.FormIDs) > 0 || len(req.RequirementIDs) > 0 {
		request, err = h.patentService.ApproveWithDocuments(code, reviewerID, &req)
	} else {
		request, err = h.patentService.Approve(code, reviewerID)
	}
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": "Solicitud aprobada correctamente",
		"request": request,
	})
}

// PUT /funcionario/patentes/:code/reject
func (h *PatentRequestHandler) RejectRequest(c *gin.Context) {
	reviewerID, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	request, err := h.patentService.Reject(c.Param("code"), reviewerID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": "Solicitud rechazada",
		"request": request,
	})
}

// PUT /funcionario/patentes/:code/reject-with-observations
func (h *PatentRequestHandler) RejectRequestWithObservations(c *gin.Context) {
	reviewerID, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req services.RejectWithObservationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	request, err := h.patentService.RejectWithObservations(c.Param("code"), reviewerID, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": "Solicitud rechazada con observaciones",
		"request": request,
	})
}

// GET /funcionario/dashboard
func (h *PatentRequestHandler) GetDashboardStats(c *gin.Context) {
	stats, err := h.statsService.GetDashboardStats()
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, stats)
}

// GET /contribuyente/dashboard
func (h *PatentRequestHandler) GetMyStats(c *gin.Context) {
	userID, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	counts, err := h.statsService.RequestStateCounts(&userID)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{"stats": counts})
}
