// internal/services/stats_service.go
package services

import (
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"

	"github.com/munidigital/ventanilla-backend/internal/models"
)

// StatsService is the read side of the review workflow: counts, trends and
// latency aggregates for the dashboards. It never mutates state.
type StatsService struct {
	db *gorm.DB
}

type StateCounts struct {
	Pending                  int64 `json:"pending"`
	Approved                 int64 `json:"approved"`
	Rejected                 int64 `json:"rejected"`
	RejectedWithObservations int64 `json:"rejected_with_observations"`
}

type MonthCount struct {
	Month string `json:"month"`
	Count int64  `json:"count"`
}

type CatalogUsage struct {
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
	Count    int64  `json:"count"`
}

type DashboardStats struct {
	Stats            StateCounts    `json:"stats"`
	RequestsByMonth  []MonthCount   `json:"requests_by_month"`
	TopRequirements  []CatalogUsage `json:"top_requirements"`
	TopForms         []CatalogUsage `json:"top_forms"`
	AvgResponseDays  float64        `json:"avg_response_days"`
	ReviewsThisMonth int64          `json:"reviews_this_month"`
}

var spanishMonths = [...]string{
	"Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
	"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre",
}

func NewStatsService(db *gorm.DB) *StatsService {
	return &StatsService{db: db}
}

// RequestStateCounts returns per-state totals, scoped to one contribuyente
// when ownerID is non-nil.
func (s *StatsService) RequestStateCounts(ownerID *uint) (*StateCounts, error) {
	counts := &StateCounts{}

	targets := []struct {
		state models.RequestState
		dest  *int64
	}{
		{models.RequestStatePending, &counts.Pending},
		{models.RequestStateApproved, &counts.Approved},
		{models.RequestStateRejected, &counts.Rejected},
		{models.RequestStateRejectedWithObservations, &counts.RejectedWithObservations},
	}

	for _, target := range targets {
		query := s.db.Model(&models.PatentRequest{}).Where("state = ?", target.state)
		if ownerID != nil {
			query = query.Where("user_id = ?", *ownerID)
		}
		if err := query.Count(target.dest).Error; err != nil {
			return nil, fmt.Errorf("failed to count %s requests: %w", target.state, err)
		}
	}

	return counts, nil
}

// GetDashboardStats assembles the rentas dashboard payload.
func (s *StatsService) GetDashboardStats() (*DashboardStats, error) {
	counts, err := s.RequestStateCounts(nil)
	if err != nil {
		return nil, err
	}

	byMonth, err := s.requestsByMonth(6)
	if err != nil {
		return nil, err
	}

	topForms, err := s.topForms(5)
	if err != nil {
		return nil, err
	}

	topRequirements, err := s.topRequirements(5)
	if err != nil {
		return nil, err
	}

	avgDays, err := s.averageResponseDays()
	if err != nil {
		return nil, err
	}

	reviewsThisMonth, err := s.reviewsThisMonth()
	if err != nil {
		return nil, err
	}

	return &DashboardStats{
		Stats:            *counts,
		RequestsByMonth:  byMonth,
		TopRequirements:  topRequirements,
		TopForms:         topForms,
		AvgResponseDays:  avgDays,
		ReviewsThisMonth: reviewsThisMonth,
	}, nil
}

// requestsByMonth buckets creation timestamps in Go so the query stays
// portable across database engines.
func (s *StatsService) requestsByMonth(months int) ([]MonthCount, error) {
	since := time.Now().AddDate(0, -months, 0)

	var createdAts []time.Time
	if err := s.db.Model(&models.PatentRequest{}).
		Where("created_at >= ?", since).
		Order("created_at ASC").
		Pluck("created_at", &createdAts).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch creation dates: %w", err)
	}

	type bucket struct {
		year  int
		month time.Month
	}

	order := make([]bucket, 0, months)
	counts := make(map[bucket]int64)
	for _, createdAt := range createdAts {
		b := bucket{createdAt.Year(), createdAt.Month()}
		if _, seen := counts[b]; !seen {
			order = append(order, b)
		}
		counts[b]++
	}

	result := make([]MonthCount, 0, len(order))
	for _, b := range order {
		result = append(result, MonthCount{
			Month: spanishMonths[b.month-1],
			Count: counts[b],
		})
	}

	return result, nil
}

func (s *StatsService) topForms(limit int) ([]CatalogUsage, error) {
	var usage []CatalogUsage
	err := s.db.Model(&models.PatentRequestForm{}).
		Select("patent_forms.name AS name, COUNT(*) AS count").
		Joins("JOIN patent_forms ON patent_forms.id = patent_request_forms.patent_form_id").
		Group("patent_forms.id, patent_forms.name").
		Order("count DESC").
		Limit(limit).
		Scan(&usage).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate form usage: %w", err)
	}
	return usage, nil
}

func (s *StatsService) topRequirements(limit int) ([]CatalogUsage, error) {
	var usage []CatalogUsage
	err := s.db.Model(&models.PatentRequestRequirement{}).
		Select("patent_requirements.name AS name, patent_requirements.category AS category, COUNT(*) AS count").
		Joins("JOIN patent_requirements ON patent_requirements.id = patent_request_requirements.patent_requirement_id").
		Group("patent_requirements.id, patent_requirements.name, patent_requirements.category").
		Order("count DESC").
		Limit(limit).
		Scan(&usage).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate requirement usage: %w", err)
	}
	return usage, nil
}

// averageResponseDays is the mean days between creation and review across
// all reviewed requests, rounded to one decimal.
func (s *StatsService) averageResponseDays() (float64, error) {
	type reviewTimes struct {
		CreatedAt  time.Time
		ReviewedAt time.Time
	}

	var rows []reviewTimes
	if err := s.db.Model(&models.PatentRequest{}).
		Select("created_at, reviewed_at").
		Where("reviewed_at IS NOT NULL").
		Scan(&rows).Error; err != nil {
		return 0, fmt.Errorf("failed to fetch review times: %w", err)
	}

	if len(rows) == 0 {
		return 0, nil
	}

	var totalDays float64
	for _, row := range rows {
		totalDays += row.ReviewedAt.Sub(row.CreatedAt).Hours() / 24
	}

	avg := totalDays / float64(len(rows))
	return math.Round(avg*10) / 10, nil
}

func (s *StatsService) reviewsThisMonth() (int64, error) {
	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	var count int64
	err := s.db.Model(&models.PatentRequest{}).
		Where("reviewed_at >= ?", monthStart).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count reviews this month: %w", err)
	}
	return count, nil
}
