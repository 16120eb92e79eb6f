// internal/services/patent_service.go
package services

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/munidigital/ventanilla-backend/internal/config"
	"github.com/munidigital/ventanilla-backend/internal/models"
	"github.com/munidigital/ventanilla-backend/internal/utils"
)

// NotificationDispatcher receives one event per lifecycle transition. The
// workflow decides when to fire; composing and delivering the message is the
// dispatcher's problem.
type NotificationDispatcher interface {
	RequestCreated(request *models.PatentRequest) error
	RequestApproved(request *models.PatentRequest) error
	RequestRejected(request *models.PatentRequest) error
	RequestRejectedWithObservations(request *models.PatentRequest) error
}

type PatentService struct {
	db            *gorm.DB
	notifications NotificationDispatcher
	maxPending    int
	codeAttempts  int
}

type CreatePatentRequest struct {
	Rut              string `json:"rut" validate:"required"`
	BusinessAddress  string `json:"business_address" validate:"required,max=255"`
	BusinessActivity string `json:"business_activity" validate:"required,max=1000"`
}

type RejectWithObservationsRequest struct {
	Observations string `json:"observations" validate:"required,min=10,max=1000"`
}

type ApproveRequest struct {
	FormIDs        []uint `json:"forms,omitempty"`
	RequirementIDs []uint `json:"requirements,omitempty"`
}

type PatentSearchParams struct {
	utils.PaginationParams
	OwnerID *uint                `json:"owner_id,omitempty"`
	State   *models.RequestState `json:"state,omitempty"`
	Rut     string               `json:"rut,omitempty"`
	Code    string               `json:"code,omitempty"`
}

func NewPatentService(db *gorm.DB, notifications NotificationDispatcher, cfg config.PatentConfig) *PatentService {
	maxPending := cfg.MaxPendingRequests
	if maxPending <= 0 {
		maxPending = models.MaxPendingRequests
	}
	codeAttempts := cfg.CodeMaxAttempts
	if codeAttempts <= 0 {
		codeAttempts = 3
	}

	return &PatentService{
		db:            db,
		notifications: notifications,
		maxPending:    maxPending,
		codeAttempts:  codeAttempts,
	}
}

func (s *PatentService) MaxPendingRequests() int {
	return s.maxPending
}

// CreateRequest validates the RUT, enforces the pending-request quota and
// inserts the request together with its initial history entry. The quota
// check, code allocation and both inserts happen in one transaction; a
// duplicate tracking code is retried with a freshly computed sequence.
func (s *PatentService) CreateRequest(ownerID uint, req *CreatePatentRequest) (*models.PatentRequest, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if !utils.ValidateRut(req.Rut) {
		return nil, ErrInvalidRut
	}

	var created *models.PatentRequest

	for attempt := 1; attempt <= s.codeAttempts; attempt++ {
		request, err := s.tryCreateRequest(ownerID, req)
		if err == nil {
			created = request
			break
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			logrus.WithFields(logrus.Fields{
				"owner_id": ownerID,
				"attempt":  attempt,
			}).Warn("Tracking code collision, retrying")
			continue
		}
		return nil, err
	}

	if created == nil {
		return nil, fmt.Errorf("failed to allocate a unique tracking code after %d attempts", s.codeAttempts)
	}

	s.db.Preload("User").First(created, created.ID)
	s.notifyAsync(models.HistoryActionCreated, created)

	return created, nil
}

func (s *PatentService) tryCreateRequest(ownerID uint, req *CreatePatentRequest) (*models.PatentRequest, error) {
	var request *models.PatentRequest

	err := s.db.Transaction(func(tx *gorm.DB) error {
		// The owner row lock serializes concurrent creations by the same
		// contribuyente so the quota count cannot be raced past.
		var owner models.User
		if err := lockForUpdate(tx).First(&owner, ownerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("database error: %w", err)
		}

		if !owner.IsActive {
			return ErrForbidden
		}

		var pendingCount int64
		if err := tx.Model(&models.PatentRequest{}).
			Where("user_id = ? AND state = ?", ownerID, models.RequestStatePending).
			Count(&pendingCount).Error; err != nil {
			return fmt.Errorf("failed to count pending requests: %w", err)
		}

		if pendingCount >= int64(s.maxPending) {
			return fmt.Errorf("%w: maximum of %d pending requests", ErrQuotaExceeded, s.maxPending)
		}

		code, err := s.nextCode(tx, time.Now().Year())
		if err != nil {
			return err
		}

		request = &models.PatentRequest{
			Code:             code,
			UserID:           ownerID,
			Rut:              utils.FormatRut(req.Rut),
			BusinessAddress:  req.BusinessAddress,
			BusinessActivity: req.BusinessActivity,
			State:            models.RequestStatePending,
		}

		if err := tx.Create(request).Error; err != nil {
			return err
		}

		history := &models.PatentRequestHistory{
			PatentRequestID: request.ID,
			UserID:          &ownerID,
			Action:          models.HistoryActionCreated,
		}

		if err := tx.Create(history).Error; err != nil {
			return fmt.Errorf("failed to record history: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}
	return request, nil
}

// nextCode computes the next tracking code for the year from the highest
// sequence already assigned. Soft-deleted requests keep their codes, so the
// scan is unscoped.
func (s *PatentService) nextCode(tx *gorm.DB, year int) (string, error) {
	seq, err := s.highestSequenceForYear(tx, year)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%d-%0*d", models.CodePrefix, year, models.CodeSequenceDigits, seq+1), nil
}

func (s *PatentService) highestSequenceForYear(tx *gorm.DB, year int) (int, error) {
	prefix := fmt.Sprintf("%s-%d-", models.CodePrefix, year)

	var last models.PatentRequest
	err := tx.Unscoped().
		Where("code LIKE ?", prefix+"%").
		Order("code DESC").
		First(&last).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to look up last tracking code: %w", err)
	}

	seq, err := strconv.Atoi(strings.TrimPrefix(last.Code, prefix))
	if err != nil {
		return 0, fmt.Errorf("malformed tracking code %q: %w", last.Code, err)
	}
	return seq, nil
}

// Approve transitions a pending request to approved without attaching
// documents.
func (s *PatentService) Approve(code string, reviewerID uint) (*models.PatentRequest, error) {
	return s.review(code, reviewerID, models.HistoryActionApproved, nil, nil, nil)
}

// ApproveWithDocuments approves the request and attaches the selected form
// templates and requirements in the same transaction.
func (s *PatentService) ApproveWithDocuments(code string, reviewerID uint, req *ApproveRequest) (*models.PatentRequest, error) {
	if req == nil {
		req = &ApproveRequest{}
	}
	return s.review(code, reviewerID, models.HistoryActionApproved, nil, req.FormIDs, req.RequirementIDs)
}

func (s *PatentService) Reject(code string, reviewerID uint) (*models.PatentRequest, error) {
	return s.review(code, reviewerID, models.HistoryActionRejected, nil, nil, nil)
}

func (s *PatentService) RejectWithObservations(code string, reviewerID uint, req *RejectWithObservationsRequest) (*models.PatentRequest, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return s.review(code, reviewerID, models.HistoryActionRejectedWithObservations, &req.Observations, nil, nil)
}

// review performs a terminal transition. The state is re-checked by the
// conditional UPDATE inside the same transaction that writes the history and
// attachment rows, so when two reviewers race, exactly one wins and the
// other sees ErrAlreadyProcessed.
func (s *PatentService) review(code string, reviewerID uint, action models.HistoryAction, observations *string, formIDs, requirementIDs []uint) (*models.PatentRequest, error) {
	var requestID uint

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var request models.PatentRequest
		if err := tx.Where("code = ?", code).First(&request).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("database error: %w", err)
		}
		requestID = request.ID

		next, err := models.Transition(request.State, action)
		if err != nil {
			return ErrAlreadyProcessed
		}

		if err := s.checkAttachments(tx, formIDs, requirementIDs); err != nil {
			return err
		}

		now := time.Now()
		updates := map[string]interface{}{
			"state":       next,
			"reviewed_by": reviewerID,
			"reviewed_at": now,
		}
		if action == models.HistoryActionRejectedWithObservations {
			updates["observations"] = *observations
		}

		result := tx.Model(&models.PatentRequest{}).
			Where("id = ? AND state = ?", request.ID, models.RequestStatePending).
			Updates(updates)
		if result.Error != nil {
			return fmt.Errorf("failed to update request: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return errStaleState
		}

		for _, formID := range formIDs {
			attachment := &models.PatentRequestForm{
				PatentRequestID: request.ID,
				PatentFormID:    formID,
				AttachedBy:      reviewerID,
			}
			if err := tx.Create(attachment).Error; err != nil {
				return fmt.Errorf("failed to attach form %d: %w", formID, err)
			}
		}

		for _, requirementID := range requirementIDs {
			attachment := &models.PatentRequestRequirement{
				PatentRequestID:     request.ID,
				PatentRequirementID: requirementID,
				AttachedBy:          reviewerID,
			}
			if err := tx.Create(attachment).Error; err != nil {
				return fmt.Errorf("failed to attach requirement %d: %w", requirementID, err)
			}
		}

		history := &models.PatentRequestHistory{
			PatentRequestID: request.ID,
			UserID:          &reviewerID,
			Action:          action,
			Observations:    observations,
		}
		if err := tx.Create(history).Error; err != nil {
			return fmt.Errorf("failed to record history: %w", err)
		}

		return nil
	})

	if err != nil {
		if errors.Is(err, errStaleState) {
			return nil, ErrAlreadyProcessed
		}
		return nil, err
	}

	var request models.PatentRequest
	if err := s.db.Preload("User").Preload("Reviewer").First(&request, requestID).Error; err != nil {
		return nil, fmt.Errorf("failed to reload request: %w", err)
	}

	s.notifyAsync(action, &request)

	return &request, nil
}

// checkAttachments rejects selections that reference missing or inactive
// catalog entries before any row is written.
func (s *PatentService) checkAttachments(tx *gorm.DB, formIDs, requirementIDs []uint) error {
	if len(formIDs) > 0 {
		var count int64
		if err := tx.Model(&models.PatentForm{}).
			Where("id IN ? AND is_active = ?", formIDs, true).
			Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check forms: %w", err)
		}
		if count != int64(len(formIDs)) {
			return fmt.Errorf("%w: one or more selected forms do not exist or are inactive", ErrNotFound)
		}
	}

	if len(requirementIDs) > 0 {
		var count int64
		if err := tx.Model(&models.PatentRequirement{}).
			Where("id IN ? AND is_active = ?", requirementIDs, true).
			Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check requirements: %w", err)
		}
		if count != int64(len(requirementIDs)) {
			return fmt.Errorf("%w: one or more selected requirements do not exist or are inactive", ErrNotFound)
		}
	}

	return nil
}

// GetRequestByCode loads a request with its full detail. A contribuyente may
// only fetch their own requests; funcionarios and admins may fetch any.
func (s *PatentService) GetRequestByCode(code string, actor *models.User) (*models.PatentRequest, error) {
	query := s.db.Where("code = ?", code).
		Preload("User").
		Preload("Reviewer").
		Preload("History", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		Preload("History.User").
		Preload("Forms.PatentForm").
		Preload("Requirements.PatentRequirement")

	if actor.Role == models.UserRoleContribuyente {
		query = query.Where("user_id = ?", actor.ID)
	}

	var request models.PatentRequest
	if err := query.First(&request).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	return &request, nil
}

// SearchRequests lists requests for the review queue (or a contribuyente's
// own listing when OwnerID is set), filtered by state and RUT/code substring.
func (s *PatentService) SearchRequests(params PatentSearchParams) ([]models.PatentRequest, int64, error) {
	query := s.db.Model(&models.PatentRequest{}).
		Preload("User").
		Preload("Reviewer")

	if params.OwnerID != nil {
		query = query.Where("user_id = ?", *params.OwnerID)
	}

	if params.State != nil {
		query = query.Where("state = ?", *params.State)
	}

	if params.Rut != "" {
		query = query.Where("rut LIKE ?", "%"+params.Rut+"%")
	}

	if params.Code != "" {
		query = query.Where("code LIKE ?", "%"+params.Code+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count requests: %w", err)
	}

	allowedSortFields := []string{"created_at", "reviewed_at", "code", "state"}
	query = utils.ApplySort(query, params.PaginationParams, allowedSortFields)
	query = utils.ApplyPagination(query, params.PaginationParams)

	var requests []models.PatentRequest
	if err := query.Find(&requests).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch requests: %w", err)
	}

	return requests, total, nil
}

func (s *PatentService) CountPendingForOwner(ownerID uint) (int64, error) {
	var count int64
	err := s.db.Model(&models.PatentRequest{}).
		Where("user_id = ? AND state = ?", ownerID, models.RequestStatePending).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count pending requests: %w", err)
	}
	return count, nil
}

func (s *PatentService) notifyAsync(action models.HistoryAction, request *models.PatentRequest) {
	if s.notifications == nil {
		return
	}

	go func() {
		var err error
		switch action {
		case models.HistoryActionCreated:
			err = s.notifications.RequestCreated(request)
		case models.HistoryActionApproved:
			err = s.notifications.RequestApproved(request)
		case models.HistoryActionRejected:
			err = s.notifications.RequestRejected(request)
		case models.HistoryActionRejectedWithObservations:
			err = s.notifications.RequestRejectedWithObservations(request)
		}
		if err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"code":   request.Code,
				"action": action,
			}).Error("Failed to send request notification")
		}
	}()
}

// lockForUpdate adds a row lock on Postgres. SQLite (used by the test
// suites) has a single writer and no FOR UPDATE syntax.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}
