// internal/handlers/patent_request_test.go
package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/munidigital/ventanilla-backend/internal/config"
	"github.com/munidigital/ventanilla-backend/internal/models"
	"github.com/munidigital/ventanilla-backend/internal/services"
)

type PatentRequestHandlerTestSuite struct {
	suite.Suite
	db       *gorm.DB
	router   *gin.Engine
	owner    *models.User
	reviewer *models.User
}

// asUser injects the auth context the way the JWT middleware would.
func asUser(user *models.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", user.ID)
		c.Set("user_name", user.Name)
		c.Set("user_role", string(user.Role))
		c.Set("user_department", user.Department)
		c.Next()
	}
}

func (suite *PatentRequestHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

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

	patentService := services.NewPatentService(db, nil, config.PatentConfig{
		MaxPendingRequests: 5,
		CodeMaxAttempts:    3,
	})
	statsService := services.NewStatsService(db)
	handler := NewPatentRequestHandler(patentService, statsService)

	suite.router = gin.New()

	contribuyente := suite.router.Group("/contribuyente", asUser(suite.owner))
	{
		contribuyente.POST("/patentes", handler.CreateRequest)
		contribuyente.GET("/patentes", handler.ListMyRequests)
		contribuyente.GET("/patentes/:code", handler.GetMyRequest)
	}

	funcionario := suite.router.Group("/funcionario", asUser(suite.reviewer))
	{
		funcionario.GET("/patentes", handler.ListRequests)
		funcionario.PUT("/patentes/:code/approve", handler.ApproveRequest)
		funcionario.PUT("/patentes/:code/reject", handler.RejectRequest)
		funcionario.PUT("/patentes/:code/reject-with-observations", handler.RejectRequestWithObservations)
		funcionario.GET("/dashboard", handler.GetDashboardStats)
	}
}

func (suite *PatentRequestHandlerTestSuite) doJSON(method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		suite.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *PatentRequestHandlerTestSuite) createRequest() string {
	w := suite.doJSON("POST", "/contribuyente/patentes", gin.H{
		"rut":               "12345678-5",
		"business_address":  "Calle Falsa 123",
		"business_activity": "Almacén de barrio",
	})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var response struct {
		Data struct {
			Request models.PatentRequest `json:"request"`
		} `json:"data"`
	}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	return response.Data.Request.Code
}

func (suite *PatentRequestHandlerTestSuite) TestCreateRequest() {
	code := suite.createRequest()
	suite.Equal(fmt.Sprintf("PAT-%d-000001", time.Now().Year()), code)
}

func (suite *PatentRequestHandlerTestSuite) TestCreateRequestInvalidRut() {
	w := suite.doJSON("POST", "/contribuyente/patentes", gin.H{
		"rut":               "12345678-9",
		"business_address":  "Calle Falsa 123",
		"business_activity": "Almacén de barrio",
	})
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *PatentRequestHandlerTestSuite) TestQuotaExceededReturnsConflict() {
	for i := 0; i < 5; i++ {
		suite.createRequest()
	}

	w := suite.doJSON("POST", "/contribuyente/patentes", gin.H{
		"rut":               "12345678-5",
		"business_address":  "Calle Falsa 123",
		"business_activity": "Almacén de barrio",
	})
	suite.Equal(http.StatusConflict, w.Code)
}

func (suite *PatentRequestHandlerTestSuite) TestApproveAndDoubleReview() {
	code := suite.createRequest()

	w := suite.doJSON("PUT", "/funcionario/patentes/"+code+"/approve", nil)
	suite.Equal(http.StatusOK, w.Code, w.Body.String())

	w = suite.doJSON("PUT", "/funcionario/patentes/"+code+"/reject", nil)
	suite.Equal(http.StatusConflict, w.Code)
}

func (suite *PatentRequestHandlerTestSuite) TestRejectWithObservationsValidation() {
	code := suite.createRequest()

	w := suite.doJSON("PUT", "/funcionario/patentes/"+code+"/reject-with-observations", gin.H{
		"observations": "corto",
	})
	suite.Equal(http.StatusBadRequest, w.Code)

	w = suite.doJSON("PUT", "/funcionario/patentes/"+code+"/reject-with-observations", gin.H{
		"observations": "Falta certificado de zonificación y patente anterior",
	})
	suite.Equal(http.StatusOK, w.Code, w.Body.String())
}

func (suite *PatentRequestHandlerTestSuite) TestContribuyenteCannotSeeOthersRequest() {
	code := suite.createRequest()

	other := &models.User{
		Name: "Otro Vecino", Email: "otro@example.cl",
		Role: models.UserRoleContribuyente, IsActive: true,
	}
	suite.Require().NoError(other.SetPassword("Secret123"))
	suite.Require().NoError(suite.db.Create(other).Error)

	otherRouter := gin.New()
	patentService := services.NewPatentService(suite.db, nil, config.PatentConfig{MaxPendingRequests: 5, CodeMaxAttempts: 3})
	handler := NewPatentRequestHandler(patentService, services.NewStatsService(suite.db))
	otherRouter.GET("/contribuyente/patentes/:code", asUser(other), handler.GetMyRequest)

	req, _ := http.NewRequest("GET", "/contribuyente/patentes/"+code, nil)
	w := httptest.NewRecorder()
	otherRouter.ServeHTTP(w, req)
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *PatentRequestHandlerTestSuite) TestUnknownCodeReturnsNotFound() {
	w := suite.doJSON("PUT", "/funcionario/patentes/PAT-2020-999999/approve", nil)
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *PatentRequestHandlerTestSuite) TestDashboardStats() {
	code := suite.createRequest()
	suite.createRequest()

	w := suite.doJSON("PUT", "/funcionario/patentes/"+code+"/approve", nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	w = suite.doJSON("GET", "/funcionario/dashboard", nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	var response struct {
		Data services.DashboardStats `json:"data"`
	}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	suite.EqualValues(1, response.Data.Stats.Pending)
	suite.EqualValues(1, response.Data.Stats.Approved)
}

func TestPatentRequestHandlerSuite(t *testing.T) {
	suite.Run(t, new(PatentRequestHandlerTestSuite))
}
