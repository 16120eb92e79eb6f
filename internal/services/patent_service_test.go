// internal/services/patent_service_test.go
package services

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/munidigital/ventanilla-backend/internal/config"
	"github.com/munidigital/ventanilla-backend/internal/models"
)

// recordingDispatcher captures notification events for assertions.
type recordingDispatcher struct {
	mtx    sync.Mutex
	events []string
}

func (d *recordingDispatcher) record(event, code string) error {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	d.events = append(d.events, event+":"+code)
	return nil
}

func (d *recordingDispatcher) RequestCreated(r *models.PatentRequest) error {
	return d.record("created", r.Code)
}

func (d *recordingDispatcher) RequestApproved(r *models.PatentRequest) error {
	return d.record("approved", r.Code)
}

func (d *recordingDispatcher) RequestRejected(r *models.PatentRequest) error {
	return d.record("rejected", r.Code)
}

func (d *recordingDispatcher) RequestRejectedWithObservations(r *models.PatentRequest) error {
	return d.record("rejected_with_observations", r.Code)
}

func (d *recordingDispatcher) snapshot() []string {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	return append([]string(nil), d.events...)
}

type PatentServiceTestSuite struct {
	suite.Suite
	db          *gorm.DB
	service     *PatentService
	dispatcher  *recordingDispatcher
	owner       *models.User
	reviewer    *models.User
	validRut    string
	currentYear int
}

func (suite *PatentServiceTestSuite) SetupTest() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	suite.Require().NoError(err)

	// A single connection keeps the in-memory database alive and
	// serializes concurrent transactions.
	sqlDB, err := db.DB()
	suite.Require().NoError(err)
	sqlDB.SetMaxOpenConns(1)

	suite.Require().NoError(db.AutoMigrate(
		&models.User{},
		&models.PatentRequest{},
		&models.PatentRequestHistory{},
		&models.PatentForm{},
		&models.PatentRequirement{},
		&models.PatentRequestForm{},
		&models.PatentRequestRequirement{},
	))

	suite.db = db
	suite.dispatcher = &recordingDispatcher{}
	suite.service = NewPatentService(db, suite.dispatcher, config.PatentConfig{
		MaxPendingRequests: 5,
		CodeMaxAttempts:    3,
	})

	suite.owner = &models.User{
		Name:     "Juana Contribuyente",
		Email:    "juana@example.cl",
		Rut:      "12345678-5",
		Role:     models.UserRoleContribuyente,
		IsActive: true,
	}
	suite.Require().NoError(suite.owner.SetPassword("Secret123"))
	suite.Require().NoError(db.Create(suite.owner).Error)

	suite.reviewer = &models.User{
		Name:       "Pedro Funcionario",
		Email:      "pedro@munidigital.cl",
		Role:       models.UserRoleFuncionario,
		Department: models.DepartmentRentas,
		IsActive:   true,
	}
	suite.Require().NoError(suite.reviewer.SetPassword("Secret123"))
	suite.Require().NoError(db.Create(suite.reviewer).Error)

	suite.validRut = "12345678-5"
	suite.currentYear = time.Now().Year()
}

func (suite *PatentServiceTestSuite) createRequest() *models.PatentRequest {
	request, err := suite.service.CreateRequest(suite.owner.ID, &CreatePatentRequest{
		Rut:              suite.validRut,
		BusinessAddress:  "Calle Falsa 123",
		BusinessActivity: "Almacén de barrio",
	})
	suite.Require().NoError(err)
	return request
}

func (suite *PatentServiceTestSuite) TestCreateRequestAssignsSequentialCodes() {
	first := suite.createRequest()
	second := suite.createRequest()

	suite.Equal(fmt.Sprintf("PAT-%d-000001", suite.currentYear), first.Code)
	suite.Equal(fmt.Sprintf("PAT-%d-000002", suite.currentYear), second.Code)
	suite.Equal(models.RequestStatePending, first.State)
	suite.Equal(suite.owner.ID, first.UserID)
}

func (suite *PatentServiceTestSuite) TestCreateRequestRejectsInvalidRut() {
	_, err := suite.service.CreateRequest(suite.owner.ID, &CreatePatentRequest{
		Rut:              "12345678-9",
		BusinessAddress:  "Calle Falsa 123",
		BusinessActivity: "Almacén de barrio",
	})
	suite.ErrorIs(err, ErrInvalidRut)
}

func (suite *PatentServiceTestSuite) TestCreateRequestNormalizesRut() {
	request, err := suite.service.CreateRequest(suite.owner.ID, &CreatePatentRequest{
		Rut:              "12.345.678-5",
		BusinessAddress:  "Calle Falsa 123",
		BusinessActivity: "Almacén de barrio",
	})
	suite.Require().NoError(err)
	suite.Equal("12345678-5", request.Rut)
}

func (suite *PatentServiceTestSuite) TestCreateRequestEnforcesQuota() {
	for i := 0; i < 5; i++ {
		suite.createRequest()
	}

	_, err := suite.service.CreateRequest(suite.owner.ID, &CreatePatentRequest{
		Rut:              suite.validRut,
		BusinessAddress:  "Calle Falsa 123",
		BusinessActivity: "Almacén de barrio",
	})
	suite.ErrorIs(err, ErrQuotaExceeded)

	count, err := suite.service.CountPendingForOwner(suite.owner.ID)
	suite.Require().NoError(err)
	suite.EqualValues(5, count)
}

func (suite *PatentServiceTestSuite) TestQuotaFreesUpAfterReview() {
	for i := 0; i < 5; i++ {
		suite.createRequest()
	}

	_, err := suite.service.Approve(fmt.Sprintf("PAT-%d-000001", suite.currentYear), suite.reviewer.ID)
	suite.Require().NoError(err)

	// One slot opened, so a sixth request is accepted
	request := suite.createRequest()
	suite.Equal(fmt.Sprintf("PAT-%d-000006", suite.currentYear), request.Code)
}

func (suite *PatentServiceTestSuite) TestCreateRequestRejectsInactiveOwner() {
	suite.Require().NoError(suite.db.Model(suite.owner).Update("is_active", false).Error)

	_, err := suite.service.CreateRequest(suite.owner.ID, &CreatePatentRequest{
		Rut:              suite.validRut,
		BusinessAddress:  "Calle Falsa 123",
		BusinessActivity: "Almacén de barrio",
	})
	suite.ErrorIs(err, ErrForbidden)
}

func (suite *PatentServiceTestSuite) TestApproveRecordsReviewerAndHistory() {
	request := suite.createRequest()

	approved, err := suite.service.Approve(request.Code, suite.reviewer.ID)
	suite.Require().NoError(err)

	suite.Equal(models.RequestStateApproved, approved.State)
	suite.Require().NotNil(approved.ReviewedBy)
	suite.Equal(suite.reviewer.ID, *approved.ReviewedBy)
	suite.NotNil(approved.ReviewedAt)
	suite.Nil(approved.Observations)

	var history []models.PatentRequestHistory
	suite.Require().NoError(suite.db.
		Where("patent_request_id = ?", request.ID).
		Order("created_at ASC, id ASC").
		Find(&history).Error)
	suite.Require().Len(history, 2)
	suite.Equal(models.HistoryActionCreated, history[0].Action)
	suite.Equal(models.HistoryActionApproved, history[1].Action)
	suite.Require().NotNil(history[1].UserID)
	suite.Equal(suite.reviewer.ID, *history[1].UserID)
}

func (suite *PatentServiceTestSuite) TestRejectDoesNotStoreObservations() {
	request := suite.createRequest()

	rejected, err := suite.service.Reject(request.Code, suite.reviewer.ID)
	suite.Require().NoError(err)

	suite.Equal(models.RequestStateRejected, rejected.State)
	suite.Nil(rejected.Observations)
}

func (suite *PatentServiceTestSuite) TestRejectWithObservationsStoresText() {
	request := suite.createRequest()

	result, err := suite.service.RejectWithObservations(request.Code, suite.reviewer.ID, &RejectWithObservationsRequest{
		Observations: "Falta el certificado de zonificación municipal",
	})
	suite.Require().NoError(err)

	suite.Equal(models.RequestStateRejectedWithObservations, result.State)
	suite.Require().NotNil(result.Observations)
	suite.Equal("Falta el certificado de zonificación municipal", *result.Observations)

	var history models.PatentRequestHistory
	suite.Require().NoError(suite.db.
		Where("patent_request_id = ? AND action = ?", request.ID, models.HistoryActionRejectedWithObservations).
		First(&history).Error)
	suite.True(history.HasObservations())
}

func (suite *PatentServiceTestSuite) TestRejectWithObservationsRequiresMinLength() {
	request := suite.createRequest()

	_, err := suite.service.RejectWithObservations(request.Code, suite.reviewer.ID, &RejectWithObservationsRequest{
		Observations: "muy corto",
	})
	suite.Error(err)

	// The request stays pending
	reloaded, err := suite.service.GetRequestByCode(request.Code, suite.reviewer)
	suite.Require().NoError(err)
	suite.True(reloaded.IsPending())
}

func (suite *PatentServiceTestSuite) TestReviewTwiceReturnsAlreadyProcessed() {
	request := suite.createRequest()

	_, err := suite.service.Approve(request.Code, suite.reviewer.ID)
	suite.Require().NoError(err)

	_, err = suite.service.Reject(request.Code, suite.reviewer.ID)
	suite.ErrorIs(err, ErrAlreadyProcessed)

	// The original decision stands
	reloaded, err := suite.service.GetRequestByCode(request.Code, suite.reviewer)
	suite.Require().NoError(err)
	suite.True(reloaded.IsApproved())
}

func (suite *PatentServiceTestSuite) TestConcurrentReviewsOnlyOneWins() {
	request := suite.createRequest()

	var wg sync.WaitGroup
	errs := make([]error, 2)

	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errs[0] = suite.service.Approve(request.Code, suite.reviewer.ID)
	}()
	go func() {
		defer wg.Done()
		_, errs[1] = suite.service.Reject(request.Code, suite.reviewer.ID)
	}()
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			suite.ErrorIs(err, ErrAlreadyProcessed)
		}
	}
	suite.Equal(1, succeeded)

	reloaded, err := suite.service.GetRequestByCode(request.Code, suite.reviewer)
	suite.Require().NoError(err)
	suite.True(reloaded.State.IsTerminal())

	// Exactly one review entry beyond creation
	var historyCount int64
	suite.Require().NoError(suite.db.Model(&models.PatentRequestHistory{}).
		Where("patent_request_id = ?", request.ID).
		Count(&historyCount).Error)
	suite.EqualValues(2, historyCount)
}

func (suite *PatentServiceTestSuite) TestReviewUnknownCodeReturnsNotFound() {
	_, err := suite.service.Approve("PAT-2020-999999", suite.reviewer.ID)
	suite.ErrorIs(err, ErrNotFound)
}

func (suite *PatentServiceTestSuite) seedCatalog() (forms []models.PatentForm, reqs []models.PatentRequirement) {
	for i := 1; i <= 3; i++ {
		form := models.PatentForm{
			Name:         fmt.Sprintf("Formulario %d", i),
			TemplateFile: fmt.Sprintf("patentes/formularios/f%d.pdf", i),
			IsActive:     true,
			CreatedBy:    suite.reviewer.ID,
		}
		suite.Require().NoError(suite.db.Create(&form).Error)
		forms = append(forms, form)
	}
	for i := 1; i <= 2; i++ {
		req := models.PatentRequirement{
			Code:          fmt.Sprintf("REQ-%03d", i),
			Name:          fmt.Sprintf("Requisito %d", i),
			Category:      models.RequirementCategoryMunicipal,
			WhereToObtain: "Dirección de Obras",
			IsActive:      true,
			CreatedBy:     suite.reviewer.ID,
		}
		suite.Require().NoError(suite.db.Create(&req).Error)
		reqs = append(reqs, req)
	}
	return forms, reqs
}

func (suite *PatentServiceTestSuite) TestApproveWithDocumentsAttachesSelection() {
	request := suite.createRequest()
	forms, reqs := suite.seedCatalog()

	approved, err := suite.service.ApproveWithDocuments(request.Code, suite.reviewer.ID, &ApproveRequest{
		FormIDs:        []uint{forms[0].ID, forms[2].ID},
		RequirementIDs: []uint{reqs[1].ID},
	})
	suite.Require().NoError(err)
	suite.Equal(models.RequestStateApproved, approved.State)

	var formCount, reqCount int64
	suite.Require().NoError(suite.db.Model(&models.PatentRequestForm{}).
		Where("patent_request_id = ?", request.ID).Count(&formCount).Error)
	suite.Require().NoError(suite.db.Model(&models.PatentRequestRequirement{}).
		Where("patent_request_id = ?", request.ID).Count(&reqCount).Error)
	suite.EqualValues(2, formCount)
	suite.EqualValues(1, reqCount)

	var attachment models.PatentRequestForm
	suite.Require().NoError(suite.db.
		Where("patent_request_id = ? AND patent_form_id = ?", request.ID, forms[0].ID).
		First(&attachment).Error)
	suite.Equal(suite.reviewer.ID, attachment.AttachedBy)
}

func (suite *PatentServiceTestSuite) TestApproveWithInactiveFormFails() {
	request := suite.createRequest()
	forms, _ := suite.seedCatalog()

	suite.Require().NoError(suite.db.Model(&forms[0]).Update("is_active", false).Error)

	_, err := suite.service.ApproveWithDocuments(request.Code, suite.reviewer.ID, &ApproveRequest{
		FormIDs: []uint{forms[0].ID},
	})
	suite.ErrorIs(err, ErrNotFound)

	// Nothing was attached and the request is still pending
	var formCount int64
	suite.Require().NoError(suite.db.Model(&models.PatentRequestForm{}).
		Where("patent_request_id = ?", request.ID).Count(&formCount).Error)
	suite.EqualValues(0, formCount)

	reloaded, err := suite.service.GetRequestByCode(request.Code, suite.reviewer)
	suite.Require().NoError(err)
	suite.True(reloaded.IsPending())
}

func (suite *PatentServiceTestSuite) TestGetRequestByCodeRestrictsContribuyente() {
	request := suite.createRequest()

	other := &models.User{
		Name:     "Otro Vecino",
		Email:    "otro@example.cl",
		Role:     models.UserRoleContribuyente,
		IsActive: true,
	}
	suite.Require().NoError(other.SetPassword("Secret123"))
	suite.Require().NoError(suite.db.Create(other).Error)

	_, err := suite.service.GetRequestByCode(request.Code, other)
	suite.ErrorIs(err, ErrNotFound)

	// The owner and the reviewer both see it
	_, err = suite.service.GetRequestByCode(request.Code, suite.owner)
	suite.NoError(err)
	_, err = suite.service.GetRequestByCode(request.Code, suite.reviewer)
	suite.NoError(err)
}

func (suite *PatentServiceTestSuite) TestSearchRequestsFilters() {
	request := suite.createRequest()
	suite.createRequest()

	_, err := suite.service.Approve(request.Code, suite.reviewer.ID)
	suite.Require().NoError(err)

	approvedState := models.RequestStateApproved
	results, total, err := suite.service.SearchRequests(PatentSearchParams{
		State: &approvedState,
	})
	suite.Require().NoError(err)
	suite.EqualValues(1, total)
	suite.Require().Len(results, 1)
	suite.Equal(request.Code, results[0].Code)

	results, total, err = suite.service.SearchRequests(PatentSearchParams{
		Code: "000002",
	})
	suite.Require().NoError(err)
	suite.EqualValues(1, total)
	suite.Require().Len(results, 1)
	suite.Equal(fmt.Sprintf("PAT-%d-000002", suite.currentYear), results[0].Code)
}

func (suite *PatentServiceTestSuite) TestNotificationsFireOnLifecycleEvents() {
	request := suite.createRequest()

	_, err := suite.service.Approve(request.Code, suite.reviewer.ID)
	suite.Require().NoError(err)

	suite.Eventually(func() bool {
		events := suite.dispatcher.snapshot()
		hasCreated, hasApproved := false, false
		for _, event := range events {
			switch event {
			case "created:" + request.Code:
				hasCreated = true
			case "approved:" + request.Code:
				hasApproved = true
			}
		}
		return hasCreated && hasApproved
	}, 2*time.Second, 10*time.Millisecond)
}

func TestPatentServiceSuite(t *testing.T) {
	suite.Run(t, new(PatentServiceTestSuite))
}
