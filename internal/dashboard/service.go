// Package dashboard serves the aggregate figures behind the home screen.
package dashboard

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"
)

// Summary carries all dashboard figures in one payload.
type Summary struct {
	Products       int     `json:"products"`
	LowStock       int     `json:"low_stock"`
	Clients        int     `json:"clients"`
	Suppliers      int     `json:"suppliers"`
	PendingOrders  int     `json:"pending_orders"`
	MonthSales     float64 `json:"month_sales"`
	MonthExpenses  float64 `json:"month_expenses"`
	StockValuation float64 `json:"stock_valuation"`
}

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	Summary(ctx context.Context, monthStart, monthEnd time.Time) (Summary, error)
}

// Service computes dashboard summaries. Concurrent requests share one
// repository round-trip via singleflight.
type Service struct {
	repo  RepositoryPort
	group singleflight.Group
	now   func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Summary returns the aggregate figures for the current month.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	v, err, _ := s.group.Do("summary", func() (any, error) {
		now := s.now()
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		monthEnd := monthStart.AddDate(0, 1, 0)
		return s.repo.Summary(ctx, monthStart, monthEnd)
	})
	if err != nil {
		return Summary{}, err
	}
	return v.(Summary), nil
}
