// internal/database/connection.go
package database

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/munidigital/ventanilla-backend/internal/config"
	"github.com/munidigital/ventanilla-backend/internal/models"
)

func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var gormConfig *gorm.Config

	// TranslateError maps driver duplicate-key failures to
	// gorm.ErrDuplicatedKey, which the tracking-code retry relies on.
	if cfg.LogLevel == "silent" {
		gormConfig = &gorm.Config{
			Logger:         logger.Default.LogMode(logger.Silent),
			TranslateError: true,
		}
	} else {
		gormConfig = &gorm.Config{
			Logger:         logger.Default.LogMode(logger.Info),
			TranslateError: true,
		}
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Second)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Database connection established successfully")
	return db, nil
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Printf("Error getting underlying sql.DB: %v", err)
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Printf("Error closing database connection: %v", err)
	} else {
		log.Println("Database connection closed successfully")
	}
}

func RunMigrations(db *gorm.DB) error {
	log.Println("Running database migrations...")

	err := db.AutoMigrate(
		&models.User{},
		&models.PasswordReset{},
		&models.PatentRequest{},
		&models.PatentRequestHistory{},
		&models.PatentForm{},
		&models.PatentRequirement{},
		&models.PatentRequestForm{},
		&models.PatentRequestRequirement{},
		&models.Department{},
		&models.Category{},
		&models.Procedure{},
		&models.Requirement{},
	)

	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	log.Println("Database migrations completed successfully")
	return nil
}

func createIndexes(db *gorm.DB) error {
	indexes := []string{
		// Request lookups by reviewer queue and by contribuyente
		"CREATE INDEX IF NOT EXISTS idx_patent_requests_state ON patent_requests(state)",
		"CREATE INDEX IF NOT EXISTS idx_patent_requests_rut ON patent_requests(rut)",
		"CREATE INDEX IF NOT EXISTS idx_patent_requests_created_at ON patent_requests(created_at DESC)",

		// Audit trail ordering
		"CREATE INDEX IF NOT EXISTS idx_patent_request_histories_request ON patent_request_histories(patent_request_id, created_at)",

		// Catalog listings
		"CREATE INDEX IF NOT EXISTS idx_patent_requirements_active_category ON patent_requirements(is_active, category)",
		"CREATE INDEX IF NOT EXISTS idx_patent_forms_active ON patent_forms(is_active)",

		// Portal navigation
		"CREATE INDEX IF NOT EXISTS idx_categories_department ON categories(department_id)",
		"CREATE INDEX IF NOT EXISTS idx_procedures_category ON procedures(category_id)",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			log.Printf("Warning: Failed to create index: %s, Error: %v", index, err)
			// Continue with other indexes instead of failing completely
		}
	}

	return nil
}

// Seed initial data
func SeedInitialData(db *gorm.DB) error {
	log.Println("Seeding initial data...")

	var adminCount int64
	db.Model(&models.User{}).Where("role = ?", models.UserRoleAdmin).Count(&adminCount)

	if adminCount == 0 {
		admin := &models.User{
			Name:     "Administrador Municipal",
			Email:    "admin@munidigital.cl",
			Role:     models.UserRoleAdmin,
			IsActive: true,
		}

		if err := admin.SetPassword("CambiarAhora123"); err != nil {
			return fmt.Errorf("failed to set admin password: %w", err)
		}

		if err := db.Create(admin).Error; err != nil {
			return fmt.Errorf("failed to create admin user: %w", err)
		}

		log.Println("Default admin user created successfully")
	}

	var rentasCount int64
	db.Model(&models.Department{}).Where("slug = ?", models.DepartmentRentas).Count(&rentasCount)

	if rentasCount == 0 {
		rentas := &models.Department{
			Name:        "Rentas y Patentes",
			Slug:        models.DepartmentRentas,
			Description: "Patentes comerciales, permisos y pagos municipales",
			Icon:        "building-2",
			IsActive:    true,
		}

		if err := db.Create(rentas).Error; err != nil {
			return fmt.Errorf("failed to create rentas department: %w", err)
		}
	}

	log.Println("Initial data seeding completed")
	return nil
}
