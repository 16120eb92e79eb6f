// internal/services/stats_service_test.go
package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/munidigital/ventanilla-backend/internal/models"
)

type StatsServiceTestSuite struct {
	suite.Suite
	db       *gorm.DB
	service  *StatsService
	owner    *models.User
	reviewer *models.User
}

func (suite *StatsServiceTestSuite) SetupTest() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	suite.Require().NoError(err)

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
	suite.service = NewStatsService(db)

	suite.owner = &models.User{
		Name: "Juana Contribuyente", Email: "juana@example.cl",
		Role: models.UserRoleContribuyente, IsActive: true,
	}
	suite.Require().NoError(suite.owner.SetPassword("Secret123"))
	suite.Require().NoError(db.Create(suite.owner).Error)

	suite.reviewer = &models.User{
		Name: "Pedro Funcionario", Email: "pedro@munidigital.cl",
		Role: models.UserRoleFuncionario, Department: models.DepartmentRentas, IsActive: true,
	}
	suite.Require().NoError(suite.reviewer.SetPassword("Secret123"))
	suite.Require().NoError(db.Create(suite.reviewer).Error)
}

func (suite *StatsServiceTestSuite) seedRequest(seq int, state models.RequestState, reviewedDaysLater int) *models.PatentRequest {
	request := &models.PatentRequest{
		Code:             fmt.Sprintf("PAT-%d-%06d", time.Now().Year(), seq),
		UserID:           suite.owner.ID,
		Rut:              "12345678-5",
		BusinessAddress:  "Calle Falsa 123",
		BusinessActivity: "Almacén",
		State:            state,
	}
	suite.Require().NoError(suite.db.Create(request).Error)

	if state.IsTerminal() {
		reviewedAt := request.CreatedAt.AddDate(0, 0, reviewedDaysLater)
		suite.Require().NoError(suite.db.Model(request).Updates(map[string]interface{}{
			"reviewed_by": suite.reviewer.ID,
			"reviewed_at": reviewedAt,
		}).Error)
	}
	return request
}

func (suite *StatsServiceTestSuite) TestRequestStateCounts() {
	suite.seedRequest(1, models.RequestStatePending, 0)
	suite.seedRequest(2, models.RequestStatePending, 0)
	suite.seedRequest(3, models.RequestStateApproved, 2)
	suite.seedRequest(4, models.RequestStateRejected, 4)
	suite.seedRequest(5, models.RequestStateRejectedWithObservations, 6)

	counts, err := suite.service.RequestStateCounts(nil)
	suite.Require().NoError(err)
	suite.EqualValues(2, counts.Pending)
	suite.EqualValues(1, counts.Approved)
	suite.EqualValues(1, counts.Rejected)
	suite.EqualValues(1, counts.RejectedWithObservations)
}

func (suite *StatsServiceTestSuite) TestRequestStateCountsScopedToOwner() {
	other := &models.User{
		Name: "Otro Vecino", Email: "otro@example.cl",
		Role: models.UserRoleContribuyente, IsActive: true,
	}
	suite.Require().NoError(other.SetPassword("Secret123"))
	suite.Require().NoError(suite.db.Create(other).Error)

	suite.seedRequest(1, models.RequestStatePending, 0)

	otherRequest := &models.PatentRequest{
		Code:             fmt.Sprintf("PAT-%d-%06d", time.Now().Year(), 2),
		UserID:           other.ID,
		Rut:              "11111111-1",
		BusinessAddress:  "Otra Calle 456",
		BusinessActivity: "Ferretería",
		State:            models.RequestStatePending,
	}
	suite.Require().NoError(suite.db.Create(otherRequest).Error)

	counts, err := suite.service.RequestStateCounts(&suite.owner.ID)
	suite.Require().NoError(err)
	suite.EqualValues(1, counts.Pending)
}

func (suite *StatsServiceTestSuite) TestDashboardStats() {
	suite.seedRequest(1, models.RequestStatePending, 0)
	suite.seedRequest(2, models.RequestStateApproved, 2)
	suite.seedRequest(3, models.RequestStateApproved, 4)

	stats, err := suite.service.GetDashboardStats()
	suite.Require().NoError(err)

	suite.EqualValues(1, stats.Stats.Pending)
	suite.EqualValues(2, stats.Stats.Approved)

	// All three created just now, so a single month bucket
	suite.Require().Len(stats.RequestsByMonth, 1)
	suite.EqualValues(3, stats.RequestsByMonth[0].Count)
	suite.Equal(spanishMonths[time.Now().Month()-1], stats.RequestsByMonth[0].Month)

	// Mean of 2 and 4 days
	suite.InDelta(3.0, stats.AvgResponseDays, 0.11)
}

func (suite *StatsServiceTestSuite) TestTopFormsAndRequirements() {
	request1 := suite.seedRequest(1, models.RequestStateApproved, 1)
	request2 := suite.seedRequest(2, models.RequestStateApproved, 1)

	formA := models.PatentForm{Name: "Formulario A", TemplateFile: "a.pdf", IsActive: true, CreatedBy: suite.reviewer.ID}
	formB := models.PatentForm{Name: "Formulario B", TemplateFile: "b.pdf", IsActive: true, CreatedBy: suite.reviewer.ID}
	suite.Require().NoError(suite.db.Create(&formA).Error)
	suite.Require().NoError(suite.db.Create(&formB).Error)

	for _, requestID := range []uint{request1.ID, request2.ID} {
		suite.Require().NoError(suite.db.Create(&models.PatentRequestForm{
			PatentRequestID: requestID, PatentFormID: formA.ID, AttachedBy: suite.reviewer.ID,
		}).Error)
	}
	suite.Require().NoError(suite.db.Create(&models.PatentRequestForm{
		PatentRequestID: request1.ID, PatentFormID: formB.ID, AttachedBy: suite.reviewer.ID,
	}).Error)

	stats, err := suite.service.GetDashboardStats()
	suite.Require().NoError(err)

	suite.Require().Len(stats.TopForms, 2)
	suite.Equal("Formulario A", stats.TopForms[0].Name)
	suite.EqualValues(2, stats.TopForms[0].Count)
	suite.Equal("Formulario B", stats.TopForms[1].Name)
	suite.EqualValues(1, stats.TopForms[1].Count)
}

func TestStatsServiceSuite(t *testing.T) {
	suite.Run(t, new(StatsServiceTestSuite))
}
